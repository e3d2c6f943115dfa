package main

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"ytcollect/config"
	"ytcollect/internal/logging"
)

// NewRootCmd creates the root command.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ytcollect",
		Short: "Collect YouTube channels from the popular charts",
		Long: `ytcollect discovers channels through the most-popular chart of each
configured video category, fetches their details in batches and merges them
into an incremental dataset saved as immutable snapshots.

Configuration comes from the environment (YOUTUBE_API_KEY, YTCOLLECT_*),
an optional .env file and ytcollect.json.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().String("log-level", "", "Log level (debug, info, warn, error)")
	cmd.PersistentFlags().String("log-format", "", "Log format (json, console)")
	cmd.PersistentFlags().StringP("categories", "c", "", "Path to the category list")

	cmd.AddCommand(NewRunCmd())
	cmd.AddCommand(NewCategoriesCmd())
	cmd.AddCommand(NewSnapshotCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// applyFlags lets persistent flags override the resolved configuration.
func applyFlags(cmd *cobra.Command, cfg *config.Config) {
	if v, _ := cmd.Flags().GetString("log-level"); v != "" {
		cfg.LogLevel = v
	}
	if v, _ := cmd.Flags().GetString("log-format"); v != "" {
		cfg.LogFormat = v
	}
	if v, _ := cmd.Flags().GetString("categories"); v != "" {
		cfg.CategoriesPath = v
	}
}

func newLogger(cmd *cobra.Command, cfg *config.Config) zerolog.Logger {
	return logging.New(cmd.ErrOrStderr(), cfg.LogLevel, cfg.LogFormat, "ytcollect")
}
