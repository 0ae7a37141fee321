package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/calebmoore/qaforge/internal/config"
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List recorded runs",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadDefault()
		if err != nil {
			return err
		}
		database, err := openDB(cfg)
		if err != nil {
			return err
		}
		defer database.Close()

		statusFilter, _ := cmd.Flags().GetString("status")
		runs, err := database.ListRuns(statusFilter)
		if err != nil {
			return fmt.Errorf("list runs: %w", err)
		}

		if len(runs) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No runs found.")
			return nil
		}

		w := cmd.OutOrStdout()
		fmt.Fprintf(w, "%-28s %-15s %-12s %-9s %-20s %s\n", "RUN", "PROCESS", "STATUS", "SUCCESS", "STARTED", "FINISHED")
		fmt.Fprintf(w, "%-28s %-15s %-12s %-9s %-20s %s\n",
			strings.Repeat("-", 28),
			strings.Repeat("-", 15),
			strings.Repeat("-", 12),
			strings.Repeat("-", 9),
			strings.Repeat("-", 20),
			strings.Repeat("-", 8))
		for _, r := range runs {
			success := "-"
			if r.Success != nil {
				success = fmt.Sprintf("%t", *r.Success)
			}
			fmt.Fprintf(w, "%-28s %-15s %-12s %-9s %-20s %s\n",
				r.RunID, r.Process, r.Status, success, r.StartedAt, r.FinishedAt)
		}
		return nil
	},
}

func init() {
	runsCmd.Flags().String("status", "", "Filter by status: in_progress, completed, failed")
}
