package cli

import (
	"github.com/spf13/cobra"

	"github.com/mcoot/skateduel/internal/api/response"
	"github.com/mcoot/skateduel/internal/model"
)

func newTurnCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "turn",
		Short: "Turn commands",
	}

	cmd.AddCommand(newTurnGetCmd())
	cmd.AddCommand(newTurnRespondCmd())
	cmd.AddCommand(newTurnJudgeCmd())
	cmd.AddCommand(newTurnDisputeCmd())

	return cmd
}

func turnPath(id string, parts ...string) string {
	p := "/api/v1/turns/" + id
	for _, part := range parts {
		p += "/" + part
	}
	return p
}

func newTurnGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <turn-id>",
		Short: "Show a turn",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var result model.Turn
			if err := client.Get(cmd.Context(), turnPath(args[0]), &result); err != nil {
				return err
			}
			NewOutput(cfg.Output, cmd.OutOrStdout()).Print(&result)
			return nil
		},
	}
}

func newTurnRespondCmd() *cobra.Command {
	var video string

	cmd := &cobra.Command{
		Use:   "respond <turn-id>",
		Short: "Submit your attempt at the proposed trick",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var result response.RespondResponse
			if err := client.Post(cmd.Context(), turnPath(args[0], "respond"), map[string]string{"video_url": video}, &result); err != nil {
				return err
			}
			NewOutput(cfg.Output, cmd.OutOrStdout()).Print(&result)
			return nil
		},
	}

	cmd.Flags().StringVar(&video, "video", "", "Video URL of the attempt (required)")
	_ = cmd.MarkFlagRequired("video")

	return cmd
}

func newTurnJudgeCmd() *cobra.Command {
	var outcome string

	cmd := &cobra.Command{
		Use:   "judge <turn-id>",
		Short: "Accept (validated) or reject (failed) an attempt",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var result response.TurnResultResponse
			if err := client.Post(cmd.Context(), turnPath(args[0], "judge"), map[string]string{"outcome": outcome}, &result); err != nil {
				return err
			}
			NewOutput(cfg.Output, cmd.OutOrStdout()).Print(&result)
			return nil
		},
	}

	cmd.Flags().StringVar(&outcome, "outcome", "", "validated or failed (required)")
	_ = cmd.MarkFlagRequired("outcome")

	return cmd
}

func newTurnDisputeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "dispute <turn-id>",
		Short: "Send an attempt to the jury",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var result response.TurnResultResponse
			if err := client.Post(cmd.Context(), turnPath(args[0], "dispute"), nil, &result); err != nil {
				return err
			}
			NewOutput(cfg.Output, cmd.OutOrStdout()).Print(&result)
			return nil
		},
	}
}
