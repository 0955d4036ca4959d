package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mcoot/skateduel/internal/api/response"
	"github.com/mcoot/skateduel/internal/model"
)

func newMatchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "match",
		Short: "Match commands",
	}

	cmd.AddCommand(newMatchCreateCmd())
	cmd.AddCommand(newMatchGetCmd())
	cmd.AddCommand(newMatchActionCmd("start", "Start a pending match"))
	cmd.AddCommand(newMatchActionCmd("cancel", "Cancel a match"))
	cmd.AddCommand(newMatchResolveCmd())
	cmd.AddCommand(newMatchTurnsCmd())
	cmd.AddCommand(newMatchProposeCmd())

	return cmd
}

func matchPath(id string, parts ...string) string {
	p := "/api/v1/matches/" + id
	for _, part := range parts {
		p += "/" + part
	}
	return p
}

func newMatchCreateCmd() *cobra.Command {
	var opponent, mode string

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Challenge an opponent to a match",
		RunE: func(cmd *cobra.Command, args []string) error {
			req := map[string]string{"opponent": opponent, "mode": mode}
			var result model.Match
			if err := client.Post(cmd.Context(), "/api/v1/matches", req, &result); err != nil {
				return err
			}
			NewOutput(cfg.Output, cmd.OutOrStdout()).Print(&result)
			return nil
		},
	}

	cmd.Flags().StringVar(&opponent, "opponent", "", "Opponent handle (required)")
	cmd.Flags().StringVar(&mode, "mode", string(model.MatchModeRemote), "Match mode: live, remote")
	_ = cmd.MarkFlagRequired("opponent")

	return cmd
}

func newMatchGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <match-id>",
		Short: "Show a match",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var result model.Match
			if err := client.Get(cmd.Context(), matchPath(args[0]), &result); err != nil {
				return err
			}
			NewOutput(cfg.Output, cmd.OutOrStdout()).Print(&result)
			return nil
		},
	}
}

// newMatchActionCmd builds a body-less POST /matches/{id}/<action> command
func newMatchActionCmd(action, short string) *cobra.Command {
	return &cobra.Command{
		Use:   action + " <match-id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var result model.Match
			if err := client.Post(cmd.Context(), matchPath(args[0], action), nil, &result); err != nil {
				return err
			}
			NewOutput(cfg.Output, cmd.OutOrStdout()).Print(&result)
			return nil
		},
	}
}

func newMatchResolveCmd() *cobra.Command {
	var winner string

	cmd := &cobra.Command{
		Use:   "resolve <match-id>",
		Short: "Forfeit a match to your opponent",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var result model.Match
			if err := client.Post(cmd.Context(), matchPath(args[0], "resolve"), map[string]string{"winner": winner}, &result); err != nil {
				return err
			}
			NewOutput(cfg.Output, cmd.OutOrStdout()).Print(&result)
			return nil
		},
	}

	cmd.Flags().StringVar(&winner, "winner", "", "Opponent handle to concede to (required)")
	_ = cmd.MarkFlagRequired("winner")

	return cmd
}

func newMatchTurnsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "turns <match-id>",
		Short: "List the turns of a match",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var result response.TurnsResponse
			if err := client.Get(cmd.Context(), matchPath(args[0], "turns"), &result); err != nil {
				return err
			}
			NewOutput(cfg.Output, cmd.OutOrStdout()).Print(&result)
			return nil
		},
	}
}

func newMatchProposeCmd() *cobra.Command {
	var trick, video string
	var difficulty int

	cmd := &cobra.Command{
		Use:   "propose <match-id>",
		Short: "Propose the next trick",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := map[string]any{
				"trick_name": trick,
				"video_url":  video,
			}
			if cmd.Flags().Changed("difficulty") {
				if difficulty < 1 || difficulty > 5 {
					return fmt.Errorf("--difficulty must be between 1 and 5")
				}
				req["difficulty"] = difficulty
			}

			var result model.Turn
			if err := client.Post(cmd.Context(), matchPath(args[0], "turns"), req, &result); err != nil {
				return err
			}
			NewOutput(cfg.Output, cmd.OutOrStdout()).Print(&result)
			return nil
		},
	}

	cmd.Flags().StringVar(&trick, "trick", "", "Trick name (required)")
	cmd.Flags().StringVar(&video, "video", "", "Video URL of the landed trick (required)")
	cmd.Flags().IntVar(&difficulty, "difficulty", 0, "Difficulty 1-5")
	_ = cmd.MarkFlagRequired("trick")
	_ = cmd.MarkFlagRequired("video")

	return cmd
}
