package cli

import (
	"github.com/spf13/cobra"

	"github.com/mcoot/skateduel/internal/api/response"
	"github.com/mcoot/skateduel/internal/services/arbitration"
)

func newReviewCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "review",
		Short: "Jury review commands",
	}

	cmd.AddCommand(newReviewListCmd())
	cmd.AddCommand(newReviewSubmitCmd())

	return cmd
}

func newReviewListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list <turn-id>",
		Short: "List the reviews of a disputed turn",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var result response.ReviewsResponse
			if err := client.Get(cmd.Context(), turnPath(args[0], "reviews"), &result); err != nil {
				return err
			}
			NewOutput(cfg.Output, cmd.OutOrStdout()).Print(&result)
			return nil
		},
	}
}

func newReviewSubmitCmd() *cobra.Command {
	var decision, reason string

	cmd := &cobra.Command{
		Use:   "submit <turn-id>",
		Short: "Review a disputed attempt",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := map[string]string{"decision": decision, "reason": reason}
			var result arbitration.Submission
			if err := client.Post(cmd.Context(), turnPath(args[0], "reviews"), req, &result); err != nil {
				return err
			}
			NewOutput(cfg.Output, cmd.OutOrStdout()).Print(&result)
			return nil
		},
	}

	cmd.Flags().StringVar(&decision, "decision", "", "valid or invalid (required)")
	cmd.Flags().StringVar(&reason, "reason", "", "Optional reason")
	_ = cmd.MarkFlagRequired("decision")

	return cmd
}
