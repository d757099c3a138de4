// Package cli provides the command-line interface for sercha-rag.
package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/sercha-rag/internal/logger"
)

// version is set by Execute from the build version.
var version = "dev"

var (
	configPath string
	verbose    bool
	quiet      bool
	offline    bool
)

var rootCmd = &cobra.Command{
	Use:   "sercha-rag",
	Short: "Answer questions from a local document corpus",
	Long: `sercha-rag indexes a directory of text documents into a local vector
index and answers questions about them. Each query runs three stages:
retrieve the most relevant passages, analyse them with a language model,
and synthesise an answer that cites the source files.

Settings are read from ~/.sercha-rag/config.toml and the environment.
Environment variables (for example HUGGINGFACE_API_KEY, INDEX_PATH or
DOCUMENTS_DIR) take precedence over the file.`,
	SilenceUsage: true,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		logger.SetVerbose(verbose)
		logger.SetQuiet(quiet)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default ~/.sercha-rag/config.toml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "suppress warnings")
	rootCmd.PersistentFlags().BoolVar(&offline, "offline", false,
		"use the hashing embedder and answer from retrieved context without a model")
}

// Execute runs the root command with the given context and build version.
// Services opened by a command are closed before it returns.
func Execute(ctx context.Context, v string) error {
	if v != "" {
		version = v
	}
	defer closeServices()
	return rootCmd.ExecuteContext(ctx)
}
