// Package record persists per-execution input/output snapshots and final
// reports, keyed by run id and execution id, so a run can be audited or
// replayed without re-invoking the agent.
package record

import "context"

// Artifact references a document or report emitted by a work unit. Artifacts
// are append-only: once added to a run they are never mutated or removed, and
// they surface verbatim in the run's final output and in review checkpoints.
type Artifact struct {
	Path   string `json:"path"`
	Format string `json:"format"`
	Label  string `json:"label,omitempty"`
}

// Store is the durable record store consumed by the engine.
type Store interface {
	// PutInput persists the constructed input payload for one execution.
	PutInput(ctx context.Context, runID, phase, execID string, data []byte) error
	// PutOutput persists the validated output for one execution.
	PutOutput(ctx context.Context, runID, phase, execID string, data []byte) error
	// PutReport persists a named run-level document and returns its path.
	PutReport(ctx context.Context, runID, name string, data []byte) (string, error)
}
