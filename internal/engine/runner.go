package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/oklog/ulid/v2"
	"golang.org/x/sync/errgroup"

	"github.com/calebmoore/qaforge/internal/agent"
	"github.com/calebmoore/qaforge/internal/db"
	"github.com/calebmoore/qaforge/internal/record"
	"github.com/calebmoore/qaforge/internal/review"
)

// Runner drives one process run: phase by phase, with group fan-out, gate
// suspension, durable recording, and audit logging.
type Runner struct {
	agent   agent.Agent
	store   record.Store
	channel review.Channel
	db      *db.DB // optional; nil disables audit logging

	progress      io.Writer // live progress output; nil = silent
	invokeTimeout time.Duration
	reviewTimeout time.Duration
	newID         func() string
}

// NewRunner creates a Runner. The database is optional; pass nil to skip
// audit logging (tests do).
func NewRunner(a agent.Agent, store record.Store, channel review.Channel, database *db.DB) *Runner {
	return &Runner{
		agent:   a,
		store:   store,
		channel: channel,
		db:      database,
		newID:   func() string { return ulid.Make().String() },
	}
}

// SetProgress sets a writer for live progress output (e.g. os.Stderr).
func (r *Runner) SetProgress(w io.Writer) {
	r.progress = w
}

// SetInvokeTimeout bounds each agent invocation. 0 means no bound beyond the
// run context.
func (r *Runner) SetInvokeTimeout(d time.Duration) {
	r.invokeTimeout = d
}

// SetReviewTimeout bounds each gate suspension. 0 means wait indefinitely.
func (r *Runner) SetReviewTimeout(d time.Duration) {
	r.reviewTimeout = d
}

func (r *Runner) logf(format string, args ...interface{}) {
	if r.progress != nil {
		fmt.Fprintf(r.progress, "  → "+format+"\n", args...)
	}
}

// Run executes a process definition to completion or abort. Orchestrated
// failures (contract violations, agent failures, hard preconditions) return
// a structured failure outcome with a nil error; the error return is for
// infrastructure problems and cancelled contexts only.
func (r *Runner) Run(ctx context.Context, def *Definition, params map[string]any) (*Outcome, error) {
	st := newState(r.newID(), def.Name, mergeParams(def.Defaults, params))
	r.logf("run %s: process %q starting", st.RunID, def.Name)
	if r.db != nil {
		if err := r.db.CreateRun(st.RunID, def.Name); err != nil {
			return nil, err
		}
	}

	for _, step := range def.Steps {
		var abort *FailureInfo
		var err error
		switch v := step.(type) {
		case Phase:
			abort, err = r.runPhase(ctx, st, v)
		case Loop:
			abort, err = r.runLoop(ctx, st, v)
		default:
			err = fmt.Errorf("process %q: unknown step type %T", def.Name, step)
		}
		if err != nil {
			// Infrastructure errors still close the audit row. Leaving it
			// in_progress would skew duration analytics forever.
			if r.db != nil {
				_ = r.db.FinishRun(st.RunID, false)
			}
			return nil, err
		}
		if abort != nil {
			r.logf("run %s: aborted in phase %q (%s)", st.RunID, abort.Phase, abort.Kind)
			return r.finish(ctx, st, nil, abort), nil
		}
	}

	output := project(def.Output, st)
	r.logf("run %s: completed", st.RunID)
	return r.finish(ctx, st, output, nil), nil
}

// finish assembles the outcome, closes the audit record, and persists the
// outcome document to the record store.
func (r *Runner) finish(ctx context.Context, st *State, output map[string]any, failure *FailureInfo) *Outcome {
	out := &Outcome{
		Success:   failure == nil,
		Output:    output,
		Metrics:   st.Metrics(),
		Artifacts: st.Artifacts(),
		Failure:   failure,
		Metadata: Metadata{
			Process:   st.Process,
			RunID:     st.RunID,
			StartedAt: st.StartedAt,
			Params:    st.Params,
		},
	}
	if r.db != nil {
		_ = r.db.FinishRun(st.RunID, out.Success)
	}
	if data, err := json.MarshalIndent(out, "", "  "); err == nil {
		_, _ = r.store.PutReport(ctx, st.RunID, "outcome.json", data)
	}
	return out
}

// runPhase executes one phase and merges its result into run state. The
// returned FailureInfo aborts the run; the error return is infrastructure.
func (r *Runner) runPhase(ctx context.Context, st *State, p Phase) (*FailureInfo, error) {
	r.logf("run %s: phase %q", st.RunID, p.Name)
	r.event(st, "phase_started", p.Name, "")

	var abort *FailureInfo
	var err error
	switch {
	case p.Unit != nil:
		abort, err = r.runSingle(ctx, st, p)
	case p.Group != nil:
		abort, err = r.runGroup(ctx, st, p)
	default:
		return nil, fmt.Errorf("phase %q declares neither a unit nor a group", p.Name)
	}
	if err != nil {
		return nil, err
	}
	if abort != nil {
		r.event(st, "phase_failed", p.Name, abort.Reason)
		return abort, nil
	}

	if p.Metrics != nil {
		p.Metrics(st)
	}
	r.event(st, "phase_completed", p.Name, "")

	for _, gate := range p.Gates {
		if err := r.evalGate(ctx, st, p.Name, gate); err != nil {
			return nil, err
		}
	}
	return nil, nil
}

func (r *Runner) runSingle(ctx context.Context, st *State, p Phase) (*FailureInfo, error) {
	res, fail, err := r.execute(ctx, st, p.Name, *p.Unit)
	if err != nil || fail != nil {
		return fail, err
	}
	if p.Require != nil {
		if perr := p.Require(st, res); perr != nil {
			// The work behind a failed precondition was still produced;
			// its artifacts stay in the aborted outcome. The result itself
			// never becomes visible downstream.
			if p.Artifacts != nil {
				st.addArtifacts(p.Artifacts(res)...)
			}
			return &FailureInfo{Kind: FailurePrecondition, Phase: p.Name, Reason: perr.Error()}, nil
		}
	}
	st.completeSingle(p.Name, res)
	if p.Artifacts != nil {
		st.addArtifacts(p.Artifacts(res)...)
	}
	return nil, nil
}

// runGroup dispatches all members concurrently and joins them into a
// declaration-order result array. The first failing member, in declared
// order, fails the group; no partial success is merged forward.
func (r *Runner) runGroup(ctx context.Context, st *State, p Phase) (*FailureInfo, error) {
	members, err := p.Group(st)
	if err != nil {
		return nil, fmt.Errorf("phase %q: build group members: %w", p.Name, err)
	}
	r.logf("run %s: phase %q fan-out of %d", st.RunID, p.Name, len(members))

	results := make([]Result, len(members))
	fails := make([]*FailureInfo, len(members))
	infra := make([]error, len(members))

	g, gctx := errgroup.WithContext(ctx)
	for i := range members {
		i := i
		g.Go(func() error {
			res, fail, err := r.execute(gctx, st, p.Name, members[i])
			if err != nil {
				infra[i] = err
				return err
			}
			if fail != nil {
				fails[i] = fail
				return errors.New(fail.Reason)
			}
			results[i] = res
			return nil
		})
	}
	if joinErr := g.Wait(); joinErr != nil {
		for i := range members {
			if infra[i] != nil {
				return nil, infra[i]
			}
			if fails[i] != nil {
				return fails[i], nil
			}
		}
		return nil, joinErr
	}

	if p.Require != nil {
		for _, res := range results {
			if perr := p.Require(st, res); perr != nil {
				// Every member passed the barrier, so all their artifacts
				// were produced before the abort. Results stay unmerged.
				if p.Artifacts != nil {
					for _, mr := range results {
						st.addArtifacts(p.Artifacts(mr)...)
					}
				}
				return &FailureInfo{Kind: FailurePrecondition, Phase: p.Name, Reason: perr.Error()}, nil
			}
		}
	}

	// Merge only after the barrier join; artifacts in declared member order.
	st.completeGroup(p.Name, results)
	if p.Artifacts != nil {
		for _, res := range results {
			st.addArtifacts(p.Artifacts(res)...)
		}
	}
	return nil, nil
}

// execute runs one work unit: build input, record it, invoke the agent,
// validate the result shape, record the validated output.
func (r *Runner) execute(ctx context.Context, st *State, phase string, u WorkUnit) (Result, *FailureInfo, error) {
	execID := r.newID()

	input, err := u.Build(st)
	if err != nil {
		return nil, nil, fmt.Errorf("build input for %q: %w", u.Name, err)
	}
	inData, err := json.Marshal(input)
	if err != nil {
		return nil, nil, fmt.Errorf("encode input for %q: %w", u.Name, err)
	}
	if err := r.store.PutInput(ctx, st.RunID, phase, execID, inData); err != nil {
		return nil, nil, fmt.Errorf("record input for %q: %w", u.Name, err)
	}

	ictx := ctx
	if r.invokeTimeout > 0 {
		var cancel context.CancelFunc
		ictx, cancel = context.WithTimeout(ctx, r.invokeTimeout)
		defer cancel()
	}

	start := time.Now()
	raw, err := r.agent.Invoke(ictx, u.Name, input)
	durMs := int(time.Since(start).Milliseconds())
	if err != nil {
		r.logExecution(st, execID, phase, u.Name, false, durMs, err.Error())
		return nil, &FailureInfo{Kind: FailureAgent, Phase: phase, Reason: err.Error()}, nil
	}

	if u.Output != nil {
		if verr := u.Output.Validate(u.Name, raw); verr != nil {
			r.logExecution(st, execID, phase, u.Name, false, durMs, verr.Error())
			return nil, &FailureInfo{Kind: FailureContract, Phase: phase, Reason: verr.Error()}, nil
		}
	}

	outData, err := json.Marshal(raw)
	if err != nil {
		return nil, nil, fmt.Errorf("encode output of %q: %w", u.Name, err)
	}
	if err := r.store.PutOutput(ctx, st.RunID, phase, execID, outData); err != nil {
		return nil, nil, fmt.Errorf("record output of %q: %w", u.Name, err)
	}

	r.logExecution(st, execID, phase, u.Name, true, durMs, "")
	return raw, nil, nil
}

// evalGate evaluates one gate exactly once. A false condition skips with no
// payload; a true condition suspends on the review channel and resumes
// regardless of the reply's content.
func (r *Runner) evalGate(ctx context.Context, st *State, phase string, gate Gate) error {
	if gate.When != nil && !gate.When(st) {
		r.event(st, "gate_skipped", phase, gate.Title)
		return nil
	}

	r.logf("run %s: gate %q triggered", st.RunID, gate.Title)
	triggeredAt := time.Now().UTC().Format(time.RFC3339)
	r.event(st, "gate_triggered", phase, gate.Title)

	metrics := make(map[string]float64, len(gate.Metrics))
	for _, name := range gate.Metrics {
		metrics[name] = st.Metric(name)
	}
	maxArts := gate.MaxArtifacts
	if maxArts == 0 {
		maxArts = 5
	}
	cp := review.Checkpoint{
		RunID:     st.RunID,
		Process:   st.Process,
		Gate:      gate.Title,
		Question:  gate.Question,
		Metrics:   metrics,
		Artifacts: st.lastArtifacts(maxArts),
	}

	rctx := ctx
	if r.reviewTimeout > 0 {
		var cancel context.CancelFunc
		rctx, cancel = context.WithTimeout(ctx, r.reviewTimeout)
		defer cancel()
	}
	reply, err := r.channel.Present(rctx, cp)
	if err != nil {
		return fmt.Errorf("gate %q: %w", gate.Title, err)
	}

	if r.db != nil {
		_ = r.db.LogGateReply(st.RunID, gate.Title, phase, reply.Value,
			triggeredAt, reply.At.UTC().Format(time.RFC3339))
	}
	r.event(st, "gate_resumed", phase, gate.Title)
	return nil
}

// runLoop executes a bounded refinement loop. The target is checked before
// every iteration; on exhaustion the run proceeds via the OnExhausted gate
// with the best achieved metric recorded.
func (r *Runner) runLoop(ctx context.Context, st *State, l Loop) (*FailureInfo, error) {
	budget := l.Max
	if budget <= 0 {
		budget = 1
	}
	better := l.Better
	if better == nil {
		better = func(a, b float64) bool { return a > b }
	}

	var trajectory []float64
	iterations := 0
	for i := 1; i <= budget; i++ {
		if l.Done(st) {
			break
		}
		iterations = i
		r.logf("run %s: loop %q iteration %d/%d", st.RunID, l.Name, i, budget)
		r.event(st, "loop_iteration", l.Name, fmt.Sprintf("iteration=%d/%d", i, budget))

		for _, p := range l.Body {
			abort, err := r.runPhase(ctx, st, p)
			if err != nil || abort != nil {
				return abort, err
			}
		}
		if l.Metric != "" {
			trajectory = append(trajectory, st.Metric(l.Metric))
		}
	}

	if l.Metric != "" {
		st.SetMetric(l.Metric+"_iterations", float64(iterations))
		best := st.Metric(l.Metric)
		for _, v := range trajectory {
			if better(v, best) {
				best = v
			}
		}
		st.SetMetric(l.Metric+"_best", best)
	}

	if !l.Done(st) {
		r.event(st, "loop_exhausted", l.Name, fmt.Sprintf("iterations=%d", iterations))
		if l.OnExhausted != nil {
			if err := r.evalGate(ctx, st, l.Name, *l.OnExhausted); err != nil {
				return nil, err
			}
		}
	}
	return nil, nil
}

func (r *Runner) event(st *State, event, phase, detail string) {
	if r.db != nil {
		_ = r.db.LogRunEvent(st.RunID, event, phase, detail)
	}
}

func (r *Runner) logExecution(st *State, execID, phase, workUnit string, ok bool, durMs int, failure string) {
	if r.db != nil {
		_ = r.db.LogExecution(st.RunID, execID, phase, workUnit, ok, durMs, failure)
	}
}

func mergeParams(defaults, params map[string]any) map[string]any {
	merged := make(map[string]any, len(defaults)+len(params))
	for k, v := range defaults {
		merged[k] = v
	}
	for k, v := range params {
		merged[k] = v
	}
	return merged
}
