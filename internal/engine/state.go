package engine

import (
	"time"

	"github.com/calebmoore/qaforge/internal/record"
)

// State is the live execution context for one run: ordered phase results,
// the accumulated artifact list, and derived metrics. It is owned by the run
// goroutine; group members never write to it, their results are merged only
// after the barrier join.
type State struct {
	RunID     string
	Process   string
	Params    map[string]any
	StartedAt time.Time

	phases    []string
	results   map[string]Result
	groups    map[string][]Result
	artifacts []record.Artifact
	metrics   map[string]float64
}

func newState(runID, process string, params map[string]any) *State {
	return &State{
		RunID:     runID,
		Process:   process,
		Params:    params,
		StartedAt: time.Now().UTC(),
		results:   make(map[string]Result),
		groups:    make(map[string][]Result),
		metrics:   make(map[string]float64),
	}
}

// Result returns a completed single phase's result.
func (s *State) Result(phase string) (Result, bool) {
	r, ok := s.results[phase]
	return r, ok
}

// Group returns a completed group phase's joined results in declared member
// order.
func (s *State) Group(phase string) ([]Result, bool) {
	rs, ok := s.groups[phase]
	return rs, ok
}

// Phases returns completed phase names in completion order.
func (s *State) Phases() []string {
	out := make([]string, len(s.phases))
	copy(out, s.phases)
	return out
}

// Metric returns a derived metric, or 0 if unset.
func (s *State) Metric(name string) float64 {
	return s.metrics[name]
}

// SetMetric records a derived metric for gate conditions and the outcome.
func (s *State) SetMetric(name string, v float64) {
	s.metrics[name] = v
}

// Metrics returns a copy of all derived metrics.
func (s *State) Metrics() map[string]float64 {
	out := make(map[string]float64, len(s.metrics))
	for k, v := range s.metrics {
		out[k] = v
	}
	return out
}

// Artifacts returns a copy of the accumulated artifact list in append order.
func (s *State) Artifacts() []record.Artifact {
	out := make([]record.Artifact, len(s.artifacts))
	copy(out, s.artifacts)
	return out
}

// Param returns a caller-supplied parameter value.
func (s *State) Param(name string) any {
	return s.Params[name]
}

// NumParam returns a numeric parameter, coercing the types YAML and flag
// parsing produce, or def if absent.
func (s *State) NumParam(name string, def float64) float64 {
	switch v := s.Params[name].(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	case int:
		return float64(v)
	case int64:
		return float64(v)
	}
	return def
}

// StrParam returns a string parameter, or def if absent.
func (s *State) StrParam(name, def string) string {
	if v, ok := s.Params[name].(string); ok && v != "" {
		return v
	}
	return def
}

func (s *State) completeSingle(phase string, r Result) {
	s.results[phase] = r
	s.phases = append(s.phases, phase)
}

func (s *State) completeGroup(phase string, rs []Result) {
	s.groups[phase] = rs
	s.phases = append(s.phases, phase)
}

func (s *State) addArtifacts(arts ...record.Artifact) {
	s.artifacts = append(s.artifacts, arts...)
}

// lastArtifacts returns at most n of the most recently appended artifacts.
func (s *State) lastArtifacts(n int) []record.Artifact {
	if n <= 0 || len(s.artifacts) == 0 {
		return nil
	}
	start := len(s.artifacts) - n
	if start < 0 {
		start = 0
	}
	out := make([]record.Artifact, len(s.artifacts)-start)
	copy(out, s.artifacts[start:])
	return out
}
