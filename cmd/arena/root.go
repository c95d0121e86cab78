package main

import (
	"log/slog"

	"github.com/spf13/cobra"
)

var version = "dev"

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "arena",
		Short: "Arena - pairwise benchmarking tournaments for language models",
		Long: `Arena runs benchmarking tournaments between language models.

Every participant model answers every question, an evaluator model
adjudicates every pairwise comparison with randomized positions, and all
results persist in a SQLite database. Rerunning against the same
database resumes an interrupted tournament instead of repeating
finished work.`,
		Version:      version,
		SilenceUsage: true,
	}

	debugLogging := cmd.PersistentFlags().Bool("debug", false, "Enable debug logging")
	cmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		if *debugLogging {
			slog.SetLogLoggerLevel(slog.LevelDebug)
		}
	}

	// Add subcommands
	cmd.AddCommand(newRunCommand())
	cmd.AddCommand(newRateCommand())

	return cmd
}

func execute() error {
	rootCmd := newRootCommand()
	return rootCmd.Execute()
}
