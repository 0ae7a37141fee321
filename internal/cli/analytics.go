package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/calebmoore/qaforge/internal/analytics"
	"github.com/calebmoore/qaforge/internal/config"
	"github.com/calebmoore/qaforge/internal/db"
)

var analyticsCmd = &cobra.Command{
	Use:   "analytics",
	Short: "Query run analytics from the audit log",
}

func withAnalyticsDB(fn func(*db.DB, string) (any, error)) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadDefault()
		if err != nil {
			return err
		}
		database, err := openDB(cfg)
		if err != nil {
			return err
		}
		defer database.Close()

		since, _ := cmd.Flags().GetString("since")
		results, err := fn(database, since)
		if err != nil {
			return err
		}
		data, err := json.MarshalIndent(results, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(data))
		return nil
	}
}

var analyticsRunDurationCmd = &cobra.Command{
	Use:   "run-duration",
	Short: "Average and percentile run durations per process",
	RunE: withAnalyticsDB(func(d *db.DB, since string) (any, error) {
		return analytics.QueryRunDurations(d, since)
	}),
}

var analyticsOutcomesCmd = &cobra.Command{
	Use:   "outcomes",
	Short: "Success and failure rates per process",
	RunE: withAnalyticsDB(func(d *db.DB, since string) (any, error) {
		return analytics.QueryProcessOutcomes(d, since)
	}),
}

var analyticsGatesCmd = &cobra.Command{
	Use:   "gates",
	Short: "Gate trigger counts and average review wait",
	RunE: withAnalyticsDB(func(d *db.DB, since string) (any, error) {
		return analytics.QueryGateActivity(d, since)
	}),
}

var analyticsWorkUnitsCmd = &cobra.Command{
	Use:   "work-units",
	Short: "Failure rates and average duration per work unit",
	RunE: withAnalyticsDB(func(d *db.DB, since string) (any, error) {
		return analytics.QueryWorkUnitFailures(d, since)
	}),
}

func init() {
	for _, c := range []*cobra.Command{
		analyticsRunDurationCmd, analyticsOutcomesCmd, analyticsGatesCmd, analyticsWorkUnitsCmd,
	} {
		c.Flags().String("since", "", "Only include data at or after this timestamp (e.g. 2024-06-01)")
		analyticsCmd.AddCommand(c)
	}
}
