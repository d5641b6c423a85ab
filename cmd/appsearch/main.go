// Package main is the entry point for the appsearch service and CLI.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kailas-cloud/appsearch/internal/config"
	logpkg "github.com/kailas-cloud/appsearch/internal/logger"
)

// Populated by rootCmd before any subcommand runs.
var (
	env    string
	cfg    config.Config
	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "appsearch",
	Short: "App Search integration service",
	Long: `appsearch runs searches against Elastic App Search, maps the hits back to
CMS records, suggests spellings for empty result sets and redirects tracked
clickthrough links.

The serve subcommand starts the HTTP API. The remaining subcommands run the
same pipeline once from the command line.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		env, _ = cmd.Flags().GetString("env")
		if env == "" {
			env = config.GetEnv()
		}

		var err error
		if path, _ := cmd.Flags().GetString("config"); path != "" {
			cfg, err = config.LoadFile(path)
		} else {
			cfg, err = config.Load(env)
		}
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}

		logger, err = logpkg.NewLogger(env, cfg.Logging.Level)
		if err != nil {
			return fmt.Errorf("create logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(_ *cobra.Command, _ []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().String("env", "", "environment name, selects config/<env>.yaml (default: $ENV or local)")
	rootCmd.PersistentFlags().String("config", "", "explicit config file, overrides --env lookup")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
