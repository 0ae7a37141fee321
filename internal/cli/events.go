package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/calebmoore/qaforge/internal/config"
)

var eventsCmd = &cobra.Command{
	Use:   "events <run-id>",
	Short: "Show the event timeline for a run",
	Args:  cobra.ExactArgs(1),
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

		events, err := database.GetRunEvents(args[0])
		if err != nil {
			return err
		}
		if len(events) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No events found.")
			return nil
		}

		w := cmd.OutOrStdout()
		for _, e := range events {
			line := fmt.Sprintf("%s  %-16s %s", e.Timestamp, e.Event, e.Phase)
			if e.Detail != "" {
				line += "  " + e.Detail
			}
			fmt.Fprintln(w, line)
		}
		return nil
	},
}
