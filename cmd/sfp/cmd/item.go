package cmd

import (
	"context"
	"io"

	"github.com/spf13/cobra"

	domain "github.com/donaldgifford/storefront-proxy/pkg/types"
)

type itemGetter interface {
	Item(ctx context.Context, id string) (*domain.Item, error)
}

func itemCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "item <id>",
		Short:   "Show a single listing with its pictures",
		Example: `  sfp item MLB3846022135`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runItem(cmd.Context(), cmd.OutOrStdout(), newClient(), args[0])
		},
	}
}

func runItem(ctx context.Context, w io.Writer, c itemGetter, id string) error {
	item, err := c.Item(ctx, id)
	if err != nil {
		return err
	}

	if jsonOutput() {
		return outputJSON(w, item)
	}
	return printItemDetail(w, item)
}
