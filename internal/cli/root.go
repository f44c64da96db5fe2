// Package cli provides the command-line interface for FAIR Combine.
package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/faircombine/faircombine/internal/constants"
)

// BuildInfo contains version information set at build time via ldflags.
type BuildInfo struct {
	// Version is the semantic version (e.g., "1.0.0").
	Version string
	// Commit is the git commit hash.
	Commit string
	// Date is the build date.
	Date string
}

// globalFlags holds the persistent flags shared by all subcommands.
type globalFlags struct {
	// ConfigPath is the optional YAML configuration file.
	ConfigPath string

	// LogLevel overrides the configured log level when set.
	LogLevel string
}

// newRootCmd creates and returns the root command.
func newRootCmd(info BuildInfo) *cobra.Command {
	flags := &globalFlags{}

	cmd := &cobra.Command{
		Use:   constants.AppName,
		Short: "FAIR Combine - FAIR assessment task engine",
		Long: `FAIR Combine assesses computational model resources against the
FAIR indicator catalogue. Each assessment session builds a task tree
from the catalogue, resolves inter-indicator dependencies, dispatches
automated checks, and aggregates the outcomes into FAIRness scores.`,
		Version: formatVersion(info),
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&flags.ConfigPath, "config", "",
		"path to configuration file (optional)")
	cmd.PersistentFlags().StringVar(&flags.LogLevel, "log-level", "",
		"log level override: trace, debug, info, warn, error")

	cmd.AddCommand(newServeCmd(flags))
	cmd.AddCommand(newSessionCmd(flags))

	return cmd
}

// formatVersion creates the version string from build info.
func formatVersion(info BuildInfo) string {
	if info.Version == "" {
		info.Version = "dev"
	}
	if info.Commit == "" {
		info.Commit = "none"
	}
	if info.Date == "" {
		info.Date = "unknown"
	}
	return fmt.Sprintf("%s (commit: %s, built: %s)", info.Version, info.Commit, info.Date)
}

// Execute runs the root command with the provided context and build info.
func Execute(ctx context.Context, info BuildInfo) error {
	return newRootCmd(info).ExecuteContext(ctx)
}
