// Package cli implements the qagent command line interface.
package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/qagent/internal/connectors/filesystem"
	"github.com/custodia-labs/qagent/internal/core/ports/driven"
	"github.com/custodia-labs/qagent/internal/core/ports/driving"
	"github.com/custodia-labs/qagent/internal/logger"
)

// Config holds the services the commands run against.
type Config struct {
	Sessions  driving.SessionService
	TestCases driving.TestCaseService
	Scripts   driving.ScriptService
	Settings  driving.SettingsService

	// Loader reads documents from disk into a session.
	Loader *filesystem.Loader

	// Pages fetches live page markup for --page-url. Optional.
	Pages driven.PageFetcher

	// Collections lists saved knowledge bases. Nil with the memory backend.
	Collections driven.CollectionStore

	// Persistent reports whether knowledge bases survive the process.
	Persistent bool
}

var (
	version = "dev"
	verbose bool
	cfg     = &Config{}
)

var rootCmd = &cobra.Command{
	Use:   "qagent",
	Short: "Generate QA test cases and Selenium scripts from your documentation",
	Long: `qagent builds a knowledge base from product documentation and a page's
HTML, then uses retrieval-augmented generation to write grounded test cases
and executable Selenium scripts.

When the language model is unreachable, deterministic fallback output is
produced so every command still returns a usable result.`,
	SilenceUsage: true,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		logger.SetVerbose(verbose)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}

// SetConfig sets the services used by all commands.
func SetConfig(c *Config) {
	if c == nil {
		c = &Config{}
	}
	cfg = c
}

// SetVersion sets the version reported by the version command.
func SetVersion(v string) {
	if v != "" {
		version = v
	}
}

// Execute runs the root command.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}
