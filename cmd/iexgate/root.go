package main

import (
	"fmt"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

type rootOptions struct {
	configPath string
	envFile    string
	verbose    bool
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "iexgate",
		Short: "IEX market data gateway",
		Long: `iexgate exposes IEX symbols, last trades and historical prices over HTTP.
Single-day historical prices are cached by symbol and date.

Running without a subcommand starts the server.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return loadEnvFile(cmd, opts)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), opts)
		},
	}

	cmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "config file (default: $IEXGATE_CONFIG, ./iexgate.toml, config/iexgate.toml)")
	cmd.PersistentFlags().StringVar(&opts.envFile, "env-file", ".env", "dotenv file loaded before configuration")
	cmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "verbose output")

	cmd.AddCommand(newServeCmd(opts))
	cmd.AddCommand(newVersionCmd())

	return cmd
}

// loadEnvFile loads the dotenv file; a missing file is not an error.
// Variables already set in the environment win.
func loadEnvFile(cmd *cobra.Command, opts *rootOptions) error {
	if opts.envFile == "" {
		return nil
	}
	if err := godotenv.Load(opts.envFile); err != nil && opts.verbose {
		fmt.Fprintf(cmd.ErrOrStderr(), "Warning: %s not loaded, using environment variables\n", opts.envFile)
	}
	return nil
}
