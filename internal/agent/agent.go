// Package agent defines the boundary to the external execution agent: the
// single place where long-running, non-deterministic work is delegated.
package agent

import (
	"context"
	"fmt"
)

// Agent turns a work unit name plus an input payload into a raw result.
// Results are opaque here; the engine validates them against the work unit's
// declared output shape before they can affect a run.
type Agent interface {
	Invoke(ctx context.Context, workUnit string, input map[string]any) (map[string]any, error)
}

// Failure is an agent-level failure: the agent itself could not produce a
// result (as opposed to producing one that fails shape validation).
type Failure struct {
	WorkUnit string
	Reason   string
	Err      error
}

func (f *Failure) Error() string {
	if f.Err != nil {
		return fmt.Sprintf("agent failure in %q: %s: %v", f.WorkUnit, f.Reason, f.Err)
	}
	return fmt.Sprintf("agent failure in %q: %s", f.WorkUnit, f.Reason)
}

func (f *Failure) Unwrap() error {
	return f.Err
}

// Func adapts a plain function to the Agent interface. Used by tests and by
// in-process agents.
type Func func(ctx context.Context, workUnit string, input map[string]any) (map[string]any, error)

func (f Func) Invoke(ctx context.Context, workUnit string, input map[string]any) (map[string]any, error) {
	return f(ctx, workUnit, input)
}
