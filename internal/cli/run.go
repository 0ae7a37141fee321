package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/calebmoore/qaforge/internal/config"
	"github.com/calebmoore/qaforge/internal/process"
)

var runCmd = &cobra.Command{
	Use:   "run <process>",
	Short: "Run a QA process to completion",
	Long: `Run a named QA process. The run executes phase by phase through the
configured agent; quality gates pause for review on the console unless
--auto-approve is set. The final outcome is printed as JSON.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := args[0]
		def, ok := process.Get(name)
		if !ok {
			return fmt.Errorf("unknown process %q (see 'qaforge processes')", name)
		}

		cfg, err := config.LoadDefault()
		if err != nil {
			return err
		}

		params := map[string]any{}
		for k, v := range cfg.ProcessParams(name) {
			params[k] = v
		}

		paramsFile, _ := cmd.Flags().GetString("params")
		if paramsFile != "" {
			data, err := os.ReadFile(paramsFile)
			if err != nil {
				return fmt.Errorf("reading params file: %w", err)
			}
			var fileParams map[string]any
			if err := yaml.Unmarshal(data, &fileParams); err != nil {
				return fmt.Errorf("parsing params file: %w", err)
			}
			for k, v := range fileParams {
				params[k] = v
			}
		}

		kvs, _ := cmd.Flags().GetStringArray("param")
		for _, kv := range kvs {
			k, v, found := strings.Cut(kv, "=")
			if !found {
				return fmt.Errorf("invalid --param %q (want key=value)", kv)
			}
			params[k] = coerceParam(v)
		}

		autoApprove, _ := cmd.Flags().GetBool("auto-approve")

		r, database, err := newRunner(cmd.Context(), cfg, autoApprove)
		if err != nil {
			return err
		}
		defer database.Close()

		out, err := r.Run(cmd.Context(), def, params)
		if err != nil {
			return fmt.Errorf("run %s: %w", name, err)
		}

		data, err := json.MarshalIndent(out, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(data))

		if !out.Success {
			return fmt.Errorf("process %s failed: %s (%s)", name, out.Failure.Reason, out.Failure.Kind)
		}
		return nil
	},
}

// coerceParam turns flag values into the types process parameters expect:
// numbers and bools where they parse, strings otherwise.
func coerceParam(v string) any {
	if n, err := strconv.ParseFloat(v, 64); err == nil {
		return n
	}
	if b, err := strconv.ParseBool(v); err == nil {
		return b
	}
	return v
}

func init() {
	runCmd.Flags().StringArray("param", nil, "Process parameter as key=value (repeatable)")
	runCmd.Flags().String("params", "", "YAML file of process parameters")
	runCmd.Flags().Bool("auto-approve", false, "Acknowledge all quality gates without pausing")
}
