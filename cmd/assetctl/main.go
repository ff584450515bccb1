package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/tendant/simple-asset/internal/logging"
	"github.com/tendant/simple-asset/pkg/simpleasset/config"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	rootCmd := NewRootCommand()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func NewRootCommand() *cobra.Command {
	var verbose bool

	rootCmd := &cobra.Command{
		Use:   "assetctl",
		Short: "Operator CLI for the asset library",
		Long: `Operator command line for the asset library.

Reads the same environment variables as asset-server (run "assetctl env"
to list them) and talks to the database and object stores directly.`,
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := "warn"
			if verbose {
				level = "debug"
			}
			logger, _ := logging.New(logging.Config{Level: level})
			slog.SetDefault(logger)
		},
	}

	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	rootCmd.AddCommand(NewMigrateCommand())
	rootCmd.AddCommand(NewPingCommand())
	rootCmd.AddCommand(NewPurgeCommand())
	rootCmd.AddCommand(NewCategoriesCommand())
	rootCmd.AddCommand(NewStatsCommand())
	rootCmd.AddCommand(NewEnvCommand())

	return rootCmd
}

// loadConfig reads the environment the same way the server does.
func loadConfig() (*config.ServerConfig, error) {
	cfg, err := config.Load(config.WithEnv())
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return cfg, nil
}
