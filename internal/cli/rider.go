package cli

import (
	"fmt"
	"net/url"

	"github.com/spf13/cobra"

	"github.com/mcoot/skateduel/internal/api/response"
	"github.com/mcoot/skateduel/internal/model"
)

func newRiderCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rider",
		Short: "Rider account commands",
	}

	cmd.AddCommand(newRiderRegisterCmd())
	cmd.AddCommand(newRiderLoginCmd())
	cmd.AddCommand(newRiderMeCmd())
	cmd.AddCommand(newRiderGetCmd())
	cmd.AddCommand(newRiderRewardsCmd())

	return cmd
}

func newRiderRegisterCmd() *cobra.Command {
	var handle, pass, country string

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Register a new rider account",
		RunE: func(cmd *cobra.Command, args []string) error {
			req := map[string]string{
				"handle":   handle,
				"password": pass,
				"country":  country,
			}
			return authenticate(cmd, "/api/v1/riders/register", req)
		},
	}

	cmd.Flags().StringVar(&handle, "handle", "", "Rider handle (required)")
	cmd.Flags().StringVar(&pass, "pass", "", "Password (required)")
	cmd.Flags().StringVar(&country, "country", "", "ISO country code")
	_ = cmd.MarkFlagRequired("handle")
	_ = cmd.MarkFlagRequired("pass")

	return cmd
}

func newRiderLoginCmd() *cobra.Command {
	var handle, pass string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in and save the token",
		RunE: func(cmd *cobra.Command, args []string) error {
			req := map[string]string{
				"handle":   handle,
				"password": pass,
			}
			return authenticate(cmd, "/api/v1/riders/login", req)
		},
	}

	cmd.Flags().StringVar(&handle, "handle", "", "Rider handle (required)")
	cmd.Flags().StringVar(&pass, "pass", "", "Password (required)")
	_ = cmd.MarkFlagRequired("handle")
	_ = cmd.MarkFlagRequired("pass")

	return cmd
}

// authenticate posts credentials and saves the returned token
func authenticate(cmd *cobra.Command, path string, req any) error {
	var result response.AuthResponse
	if err := client.Post(cmd.Context(), path, req, &result); err != nil {
		return err
	}

	if err := cfg.SaveToken(result.Token); err != nil {
		return fmt.Errorf("failed to save token: %w", err)
	}

	NewOutput(cfg.Output, cmd.OutOrStdout()).Print(&result)
	return nil
}

func newRiderMeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "me",
		Short: "Show the logged-in rider",
		RunE: func(cmd *cobra.Command, args []string) error {
			var result model.RiderProfile
			if err := client.Get(cmd.Context(), "/api/v1/riders/me", &result); err != nil {
				return err
			}
			NewOutput(cfg.Output, cmd.OutOrStdout()).Print(&result)
			return nil
		},
	}
}

func newRiderGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <handle>",
		Short: "Show a rider's profile",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var result model.RiderProfile
			if err := client.Get(cmd.Context(), "/api/v1/riders/"+url.PathEscape(args[0]), &result); err != nil {
				return err
			}
			NewOutput(cfg.Output, cmd.OutOrStdout()).Print(&result)
			return nil
		},
	}
}

func newRiderRewardsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rewards <handle>",
		Short: "Show a rider's reward ledger and balance",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var result response.RewardsResponse
			if err := client.Get(cmd.Context(), "/api/v1/riders/"+url.PathEscape(args[0])+"/rewards", &result); err != nil {
				return err
			}
			NewOutput(cfg.Output, cmd.OutOrStdout()).Print(&result)
			return nil
		},
	}
}
