// Package engine executes process definitions: statically declared chains of
// data-dependent phases, with optional parallel groups, threshold-triggered
// review checkpoints, durable per-execution recording, and a final explicit
// output projection.
package engine

import (
	"time"

	"github.com/calebmoore/qaforge/internal/contract"
	"github.com/calebmoore/qaforge/internal/record"
)

// Result is a validated work unit result. Only results that passed shape
// validation are ever stored in run state.
type Result = map[string]any

// WorkUnit is one named, independently invocable step. Its input is a pure
// function of upstream run state; its output must conform to the declared
// shape before downstream phases can see it.
type WorkUnit struct {
	Name   string
	Build  func(s *State) (map[string]any, error)
	Output *contract.Shape
}

// Phase is one step of a process: either a single work unit or a fan-out
// group of independent work units joined by a barrier. Exactly one of Unit
// and Group must be set.
type Phase struct {
	Name string

	Unit *WorkUnit

	// Group produces the member work units at run time, so cardinality may
	// depend on an upstream result (one member per flaky test, per platform,
	// and so on). Members must not depend on each other. An empty member
	// list is a legal no-op that joins immediately.
	Group func(s *State) ([]WorkUnit, error)

	// Require is a hard precondition on the phase's own result. A non-nil
	// error aborts the run immediately with a structured failure, with no
	// review pause. For group phases it is applied to each member result in
	// declared order.
	Require func(s *State, r Result) error

	// Artifacts extracts artifact references from a result. Group members
	// contribute artifacts in declared, not completion, order.
	Artifacts func(r Result) []record.Artifact

	// Metrics derives run metrics from the newly merged phase result. Runs
	// after the phase result is visible in state, before gates.
	Metrics func(s *State)

	// Gates are evaluated exactly once, in order, after the phase completes.
	Gates []Gate
}

func (Phase) step() {}

// Gate is a non-branching review checkpoint. When its condition holds, the
// run suspends, the checkpoint is presented on the review channel, and the
// run resumes once any reply arrives. The reply is audited but never alters
// control flow; a gate that should be able to reject would be a different
// primitive.
type Gate struct {
	Title    string
	Question string

	// When evaluates the trigger condition over current run metrics. A nil
	// condition always triggers (used for exhausted-loop checkpoints).
	When func(s *State) bool

	// Metrics names the run metrics projected into the checkpoint payload.
	Metrics []string

	// MaxArtifacts bounds the artifact slice shown to the reviewer.
	// 0 means the default of 5 most recent.
	MaxArtifacts int
}

// Loop is a bounded iterative refinement: while the target is unmet and
// budget remains, the body phases run again. On exhaustion the run proceeds
// forward with the best achieved metric, through OnExhausted if set.
type Loop struct {
	Name   string
	Max    int
	Metric string // metric whose trajectory is tracked across iterations

	// Done reports whether the target is met. Checked before every
	// iteration, so a loop whose target already holds never runs its body.
	Done func(s *State) bool

	// Better reports whether a is a better value than b for Metric.
	// Nil means higher is better.
	Better func(a, b float64) bool

	Body        []Phase
	OnExhausted *Gate
}

func (Loop) step() {}

// Step is one entry in a process definition: a Phase or a Loop.
type Step interface {
	step()
}

// FieldMapping routes one output field from a phase result. Source is a
// dotted path within the result; empty selects the whole result. For group
// phases the path is applied to each member, yielding an array.
type FieldMapping struct {
	Field  string
	Phase  string
	Source string
}

// Definition is a complete process: ordered steps plus the explicit output
// projection. Defaults are parameter values merged under caller params.
type Definition struct {
	Name        string
	Description string
	Defaults    map[string]any
	Steps       []Step
	Output      []FieldMapping
}

// Failure kinds reported in an aborted run's outcome.
const (
	FailureContract     = "contract_violation"
	FailureAgent        = "agent_failure"
	FailurePrecondition = "precondition_failure"
)

// FailureInfo names the cause of an aborted run.
type FailureInfo struct {
	Kind   string `json:"kind"`
	Phase  string `json:"phase"`
	Reason string `json:"reason"`
}

// Metadata is echoed in every outcome.
type Metadata struct {
	Process   string         `json:"process"`
	RunID     string         `json:"run_id"`
	StartedAt time.Time      `json:"started_at"`
	Params    map[string]any `json:"params"`
}

// Outcome is the caller-visible result of a run. A completed run carries the
// projected output; an aborted run carries the failure cause and whatever
// artifacts were produced before the abort.
type Outcome struct {
	Success   bool               `json:"success"`
	Output    map[string]any     `json:"output,omitempty"`
	Metrics   map[string]float64 `json:"metrics,omitempty"`
	Artifacts []record.Artifact  `json:"artifacts"`
	Failure   *FailureInfo       `json:"failure,omitempty"`
	Metadata  Metadata           `json:"metadata"`
}
