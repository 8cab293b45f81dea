// Package cmd implements the sfp CLI commands.
package cmd

import (
	"fmt"
	"net/http"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	apiclient "github.com/donaldgifford/storefront-proxy/internal/api/client"
	"github.com/donaldgifford/storefront-proxy/internal/marketplace"
	"github.com/donaldgifford/storefront-proxy/internal/telemetry"
	"github.com/donaldgifford/storefront-proxy/pkg/logger"
)

var (
	cfgFile string
	rootCmd = &cobra.Command{
		Use:   "sfp",
		Short: "CLI client for the Storefront Proxy",
		Long: "sfp is a command-line client for the Storefront Proxy API.\n" +
			"It searches listings the way the storefront does, falling back to the\n" +
			"marketplace directly when the proxy is unreachable, and reports quota\n" +
			"and search analytics.",
		SilenceUsage: true,
	}
)

// Root returns the root cobra command for documentation generation.
func Root() *cobra.Command {
	return rootCmd
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default $HOME/.sfp.yaml)")
	flags.String("server", "http://localhost:8080", "API server URL")
	flags.String("output", "table", "output format (table, json)")
	flags.String("lang", "pt-BR", "language for failure messages (pt-BR, en)")
	flags.String("marketplace-url", "", "marketplace search endpoint for direct fallback")
	flags.String("log-level", "warn", "log level (debug, info, warn, error)")

	cobra.CheckErr(viper.BindPFlag("server", flags.Lookup("server")))
	cobra.CheckErr(viper.BindPFlag("output", flags.Lookup("output")))
	cobra.CheckErr(viper.BindPFlag("lang", flags.Lookup("lang")))
	cobra.CheckErr(viper.BindPFlag("marketplace_url", flags.Lookup("marketplace-url")))
	cobra.CheckErr(viper.BindPFlag("log_level", flags.Lookup("log-level")))

	rootCmd.AddCommand(searchCmd())
	rootCmd.AddCommand(itemCmd())
	rootCmd.AddCommand(refreshCmd())
	rootCmd.AddCommand(quotaCmd())
	rootCmd.AddCommand(topCmd())
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		cobra.CheckErr(err)

		viper.AddConfigPath(home)
		viper.SetConfigType("yaml")
		viper.SetConfigName(".sfp")
	}

	viper.SetEnvPrefix("SFP")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

func httpClient() *http.Client {
	return &http.Client{Transport: telemetry.Transport(nil)}
}

func newClient() *apiclient.Client {
	return apiclient.New(viper.GetString("server"), apiclient.WithHTTPClient(httpClient()))
}

// newDispatcher returns the proxy-first searcher. With fallback enabled,
// failed proxy searches are retried once straight against the marketplace.
func newDispatcher(fallback bool) *apiclient.Dispatcher {
	log := logger.New(viper.GetString("log_level"), "text")
	opts := []apiclient.DispatcherOption{apiclient.WithDispatcherLogger(log)}
	if fallback {
		direct := marketplace.NewProxy(
			marketplace.NewClient(
				marketplace.WithHTTPClient(httpClient()),
				marketplace.WithLogger(log),
			),
			nil,
			marketplace.WithSearchURL(viper.GetString("marketplace_url")),
			marketplace.WithProxyLogger(log),
		)
		opts = append(opts, apiclient.WithDirect(direct))
	}
	return apiclient.NewDispatcher(newClient(), opts...)
}

func jsonOutput() bool {
	return viper.GetString("output") == "json"
}
