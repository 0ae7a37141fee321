// Package review is the human-facing side channel used by quality gates. A
// triggered gate presents a checkpoint and blocks until a reply arrives; the
// reply is kept for audit but never steers control flow: the run always
// resumes forward. Gates are checkpoints, not approval points.
package review

import (
	"context"
	"time"

	"github.com/calebmoore/qaforge/internal/record"
)

// Checkpoint is the bounded projection of run state shown to a reviewer.
type Checkpoint struct {
	RunID     string             `json:"run_id"`
	Process   string             `json:"process"`
	Gate      string             `json:"gate"`
	Question  string             `json:"question"`
	Metrics   map[string]float64 `json:"metrics,omitempty"`
	Artifacts []record.Artifact  `json:"artifacts,omitempty"`
}

// Reply is the reviewer's acknowledgment. Its value is opaque to the engine.
type Reply struct {
	Value string
	At    time.Time
}

// Channel presents a checkpoint to an external reviewer and blocks until a
// reply is supplied or the context expires.
type Channel interface {
	Present(ctx context.Context, cp Checkpoint) (Reply, error)
}

// Func adapts a plain function to the Channel interface.
type Func func(ctx context.Context, cp Checkpoint) (Reply, error)

func (f Func) Present(ctx context.Context, cp Checkpoint) (Reply, error) {
	return f(ctx, cp)
}
