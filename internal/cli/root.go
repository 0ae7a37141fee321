package cli

import (
	"github.com/spf13/cobra"
)

var version = "dev"

func SetVersion(v string) {
	version = v
}

var rootCmd = &cobra.Command{
	Use:   "qaforge",
	Short: "qaforge — phase-gated QA process orchestration",
	Long: `qaforge runs multi-phase QA processes (E2E suite build-out, flakiness
elimination, mutation testing, performance testing, and more) through an
agent subprocess, with contract-validated results, quality gates for human
review, and durable run records.

All state is stored in ~/.qaforge/ (SQLite for the audit log, JSON snapshots
of every work unit's input and output per run).`,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(processesCmd)
	rootCmd.AddCommand(runsCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(eventsCmd)
	rootCmd.AddCommand(analyticsCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(dbCmd)
}
