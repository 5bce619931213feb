package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/driftwood-labs/sigengine/config"
)

var (
	cfgFile string
	envFile string
)

var rootCmd = &cobra.Command{
	Use:   "sigenginectl",
	Short: "Drive the strategy engine from the command line",
	Long: `sigenginectl runs the per-(symbol, strategy) signal engine against a
synthetic random-walk exchange, for development and demos.

It provides tools for:
  - Backtesting a strategy across a synthetic price frame
  - Walking several strategy variants and reporting whichever scored best
  - Journaling closed/cancelled signals to SQLite

Design notes are available in the repository's DESIGN.md.`,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "path to a YAML or JSON config file (defaults built in if omitted)")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", "", "optional .env file with TICK_TTL_MS-style overrides")
}

// loadConfig builds the effective Config for a subcommand: Default(),
// optionally replaced by --config, then overlaid with --env-file and any
// matching process environment variables.
func loadConfig() (*config.Config, error) {
	cfg := config.Default()
	if cfgFile != "" {
		var err error
		cfg, err = config.LoadFromFile(cfgFile)
		if err != nil {
			return nil, fmt.Errorf("load config: %w", err)
		}
	}
	if err := config.LoadEnv(cfg, envFile); err != nil {
		return nil, fmt.Errorf("load env overrides: %w", err)
	}
	return cfg, nil
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}
