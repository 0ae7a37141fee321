package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/calebmoore/qaforge/internal/config"
)

var showCmd = &cobra.Command{
	Use:   "show <run-id>",
	Short: "Show a run's executions and gate replies",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		runID := args[0]

		cfg, err := config.LoadDefault()
		if err != nil {
			return err
		}
		database, err := openDB(cfg)
		if err != nil {
			return err
		}
		defer database.Close()

		run, err := database.GetRun(runID)
		if err != nil {
			return err
		}
		if run == nil {
			return fmt.Errorf("run %s not found", runID)
		}

		w := cmd.OutOrStdout()
		fmt.Fprintf(w, "Run %s\n", run.RunID)
		fmt.Fprintf(w, "  Process:  %s\n", run.Process)
		fmt.Fprintf(w, "  Status:   %s\n", run.Status)
		if run.Success != nil {
			fmt.Fprintf(w, "  Success:  %t\n", *run.Success)
		}
		fmt.Fprintf(w, "  Started:  %s\n", run.StartedAt)
		if run.FinishedAt != "" {
			fmt.Fprintf(w, "  Finished: %s\n", run.FinishedAt)
		}

		execs, err := database.GetExecutions(runID)
		if err != nil {
			return err
		}
		if len(execs) > 0 {
			fmt.Fprintln(w, "  Executions:")
			for _, e := range execs {
				status := "ok"
				if !e.Ok {
					status = "failed"
				}
				fmt.Fprintf(w, "    %s %s/%s: %s (%dms)\n", e.ExecID, e.Phase, e.WorkUnit, status, e.DurationMs)
				if e.Failure != "" {
					fmt.Fprintf(w, "      %s\n", e.Failure)
				}
			}
		}

		replies, err := database.GetGateReplies(runID)
		if err != nil {
			return err
		}
		if len(replies) > 0 {
			fmt.Fprintln(w, "  Gate Replies:")
			for _, g := range replies {
				fmt.Fprintf(w, "    %s (%s): %q at %s\n", g.Gate, g.Phase, g.Reply, g.RepliedAt)
			}
		}
		return nil
	},
}
