package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/calebmoore/qaforge/internal/config"
	"github.com/calebmoore/qaforge/internal/db"
)

var dbCmd = &cobra.Command{
	Use:   "db",
	Short: "Audit database management",
}

var dbInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create the audit database and apply the schema",
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
		fmt.Fprintf(cmd.OutOrStdout(), "Audit database ready at %s\n", database.Path())
		return nil
	},
}

var dbPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the audit database path",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadDefault()
		if err != nil {
			return err
		}
		path := cfg.DB.Path
		if path == "" {
			path, err = db.DefaultDBPath()
			if err != nil {
				return err
			}
		}
		fmt.Fprintln(cmd.OutOrStdout(), path)
		return nil
	},
}

func init() {
	dbCmd.AddCommand(dbInitCmd)
	dbCmd.AddCommand(dbPathCmd)
}
