package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// Script invokes an external agent process per work unit. The request is
// written to the process as JSON on stdin; the result is read as a JSON
// object from stdout. A non-zero exit or undecodable output is an agent
// failure, not a contract violation.
type Script struct {
	Command string
	Args    []string
	Timeout time.Duration // per-invocation; 0 means no timeout beyond ctx
}

// request is the envelope handed to the agent process.
type request struct {
	WorkUnit string         `json:"work_unit"`
	Input    map[string]any `json:"input"`
}

// Invoke runs the configured command once and decodes its stdout.
func (s *Script) Invoke(ctx context.Context, workUnit string, input map[string]any) (map[string]any, error) {
	if s.Command == "" {
		return nil, &Failure{WorkUnit: workUnit, Reason: "no agent command configured"}
	}

	if s.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.Timeout)
		defer cancel()
	}

	payload, err := json.Marshal(request{WorkUnit: workUnit, Input: input})
	if err != nil {
		return nil, &Failure{WorkUnit: workUnit, Reason: "encode request", Err: err}
	}

	cmd := exec.CommandContext(ctx, s.Command, s.Args...)
	cmd.Stdin = bytes.NewReader(payload)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, &Failure{WorkUnit: workUnit, Reason: "agent timed out or was cancelled", Err: ctx.Err()}
		}
		reason := "agent exited with error"
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			reason = fmt.Sprintf("agent exited with error: %s", firstLine(msg))
		}
		return nil, &Failure{WorkUnit: workUnit, Reason: reason, Err: err}
	}

	var result map[string]any
	if err := json.Unmarshal(stdout.Bytes(), &result); err != nil {
		return nil, &Failure{WorkUnit: workUnit, Reason: "agent output is not a JSON object", Err: err}
	}
	return result, nil
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
