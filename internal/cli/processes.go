package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/calebmoore/qaforge/internal/process"
)

var processesCmd = &cobra.Command{
	Use:   "processes",
	Short: "List the available QA processes",
	RunE: func(cmd *cobra.Command, args []string) error {
		w := cmd.OutOrStdout()
		fmt.Fprintf(w, "%-15s %s\n", "PROCESS", "DESCRIPTION")
		fmt.Fprintf(w, "%-15s %s\n", strings.Repeat("-", 15), strings.Repeat("-", 11))
		for _, name := range process.Names() {
			def, _ := process.Get(name)
			fmt.Fprintf(w, "%-15s %s\n", name, def.Description)
		}
		return nil
	},
}
