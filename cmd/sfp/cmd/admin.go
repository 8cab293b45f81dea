package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func refreshCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "refresh",
		Short: "Refresh the proxy's marketplace access token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			tok, err := newClient().Refresh(cmd.Context())
			if err != nil {
				return err
			}

			if jsonOutput() {
				return outputJSON(cmd.OutOrStdout(), tok)
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "Token refreshed, expires in %ds (scope %q)\n",
				tok.ExpiresIn, tok.Scope)
			return err
		},
	}
}

func quotaCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "quota",
		Short: "Show the proxy's daily marketplace quota",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			q, err := newClient().Quota(cmd.Context())
			if err != nil {
				return err
			}

			if jsonOutput() {
				return outputJSON(cmd.OutOrStdout(), q)
			}
			return printQuota(cmd.OutOrStdout(), q)
		},
	}
}

func topCmd() *cobra.Command {
	var hours, limit int

	cmd := &cobra.Command{
		Use:     "top",
		Short:   "List the most searched terms",
		Example: `  sfp top --hours 168 --limit 20`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			top, err := newClient().TopQueries(cmd.Context(), hours, limit)
			if err != nil {
				return err
			}

			if jsonOutput() {
				return outputJSON(cmd.OutOrStdout(), top)
			}
			return printTopQueries(cmd.OutOrStdout(), top)
		},
	}
	cmd.Flags().IntVar(&hours, "hours", 24, "look-back window in hours")
	cmd.Flags().IntVar(&limit, "limit", 10, "maximum number of terms")

	return cmd
}
