// Package cmd implements the notabene command line interface.
package cmd

import (
	"github.com/spf13/cobra"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "notabene",
	Short: "notabene is a RAG assistant over your personal notes",
	Long: `notabene ingests markdown notes into a PostgreSQL vector store and
answers questions about them through an agentic chat loop with citations.

Run "notabene serve" to start the HTTP API, or "notabene ask" for a
one-shot question from the terminal.`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to config file")
}
