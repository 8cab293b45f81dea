// Package cmd implements the CLI commands for the storefront proxy server.
package cmd

import (
	"github.com/spf13/cobra"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "storefront-proxy",
	Short: "Resilient Mercado Livre search proxy for the storefront",
	Long: "Proxies marketplace search and item lookups for the storefront, keeping OAuth " +
		"credentials fresh, retrying across auth failures and caching normalized results.",
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "config.yaml", "config file path")
	rootCmd.AddCommand(versionCommand())
}

// Root returns the root cobra command for documentation generation.
func Root() *cobra.Command {
	return rootCmd
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
