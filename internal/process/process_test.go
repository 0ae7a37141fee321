package process

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/calebmoore/qaforge/internal/agent"
	"github.com/calebmoore/qaforge/internal/engine"
	"github.com/calebmoore/qaforge/internal/record"
	"github.com/calebmoore/qaforge/internal/review"
)

func TestRegistry(t *testing.T) {
	names := Names()
	assert.Contains(t, names, "e2e-suite")
	assert.Contains(t, names, "flakiness")
	assert.Contains(t, names, "mutation")
	assert.Contains(t, names, "perf-test")
	assert.Contains(t, names, "cross-browser")
	assert.Contains(t, names, "env-provision")
	assert.Contains(t, names, "shift-left")
	assert.IsIncreasing(t, names)

	def, ok := Get("e2e-suite")
	require.True(t, ok)
	assert.Equal(t, "e2e-suite", def.Name)

	_, ok = Get("no-such-process")
	assert.False(t, ok)

	err := Register("e2e-suite", E2ESuite)
	assert.Error(t, err)
}

// scriptedAgent replies per work unit, with an optional call counter for
// units invoked more than once.
type scriptedAgent struct {
	mu      sync.Mutex
	replies map[string][]map[string]any
	counts  map[string]int
}

func newScriptedAgent() *scriptedAgent {
	return &scriptedAgent{
		replies: make(map[string][]map[string]any),
		counts:  make(map[string]int),
	}
}

func (s *scriptedAgent) on(workUnit string, results ...map[string]any) {
	s.replies[workUnit] = append(s.replies[workUnit], results...)
}

func (s *scriptedAgent) Invoke(_ context.Context, workUnit string, _ map[string]any) (map[string]any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	seq := s.replies[workUnit]
	if len(seq) == 0 {
		return nil, &agent.Failure{WorkUnit: workUnit, Reason: "no scripted reply"}
	}
	n := s.counts[workUnit]
	s.counts[workUnit]++
	if n >= len(seq) {
		n = len(seq) - 1
	}
	return seq[n], nil
}

type recordingChannel struct {
	mu    sync.Mutex
	gates []string
}

func (c *recordingChannel) Present(_ context.Context, cp review.Checkpoint) (review.Reply, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gates = append(c.gates, cp.Gate)
	return review.Reply{Value: "ack", At: time.Now()}, nil
}

func runProcess(t *testing.T, name string, a agent.Agent, ch review.Channel, params map[string]any) *engine.Outcome {
	t.Helper()
	def, ok := Get(name)
	require.True(t, ok)
	store := record.NewFS(afero.NewMemMapFs(), "/runs")
	r := engine.NewRunner(a, store, ch, nil)
	out, err := r.Run(context.Background(), def, params)
	require.NoError(t, err)
	return out
}

func TestE2ESuiteHappyPath(t *testing.T) {
	a := newScriptedAgent()
	a.on("journey_discovery", map[string]any{
		"success": true,
		"journeys": []any{
			map[string]any{"name": "signup", "priority": "high", "steps": 6.0},
			map[string]any{"name": "checkout", "priority": "high", "steps": 9.0},
			map[string]any{"name": "search", "priority": "medium", "steps": 4.0},
			map[string]any{"name": "profile", "priority": "low", "steps": 3.0},
			map[string]any{"name": "returns", "priority": "medium", "steps": 5.0},
		},
	})
	a.on("scenario_authoring", map[string]any{"success": true, "scenario_file": "e2e/scenario.spec.ts", "assertions": 12.0})
	a.on("stabilization", map[string]any{"success": true, "pass_rate": 97.5, "runs": 10.0})
	a.on("coverage_report", map[string]any{"success": true, "report_path": "reports/coverage.md", "covered_journeys": 5.0})

	ch := &recordingChannel{}
	out := runProcess(t, "e2e-suite", a, ch, map[string]any{"app_url": "https://shop.example"})

	assert.True(t, out.Success)
	assert.Empty(t, ch.gates, "five journeys and a high pass rate trigger nothing")
	journeys, ok := out.Output["journeys"].([]any)
	require.True(t, ok)
	assert.Len(t, journeys, 5)
	files, ok := out.Output["scenario_files"].([]any)
	require.True(t, ok)
	assert.Len(t, files, 5)
	assert.Equal(t, 97.5, out.Output["pass_rate"])
	assert.Equal(t, 5.0, out.Metrics["journeys_identified"])
}

func TestE2ESuiteGatesOnThinCoverageAndLowPassRate(t *testing.T) {
	a := newScriptedAgent()
	a.on("journey_discovery", map[string]any{
		"success": true,
		"journeys": []any{
			map[string]any{"name": "signup", "priority": "high"},
		},
	})
	a.on("scenario_authoring", map[string]any{"success": true, "scenario_file": "e2e/signup.spec.ts"})
	a.on("stabilization", map[string]any{"success": true, "pass_rate": 82.0})
	a.on("coverage_report", map[string]any{"success": true, "report_path": "reports/coverage.md"})

	ch := &recordingChannel{}
	out := runProcess(t, "e2e-suite", a, ch, nil)

	assert.True(t, out.Success, "gates pause, they never fail a run")
	assert.Equal(t, []string{"Few journeys identified", "Pass rate below target"}, ch.gates)
}

func TestE2ESuiteAbortsWithoutJourneys(t *testing.T) {
	a := newScriptedAgent()
	a.on("journey_discovery", map[string]any{"success": true, "journeys": []any{}})

	ch := &recordingChannel{}
	out := runProcess(t, "e2e-suite", a, ch, nil)

	assert.False(t, out.Success)
	require.NotNil(t, out.Failure)
	assert.Equal(t, engine.FailurePrecondition, out.Failure.Kind)
	assert.Equal(t, "discover", out.Failure.Phase)
	assert.Empty(t, ch.gates)
	// The discovery report was written before the abort and stays attached.
	require.Len(t, out.Artifacts, 1)
	assert.Equal(t, "reports/journeys.md", out.Artifacts[0].Path)
}

func TestE2ESuiteContractViolationOnBadPriority(t *testing.T) {
	a := newScriptedAgent()
	a.on("journey_discovery", map[string]any{
		"success": true,
		"journeys": []any{
			map[string]any{"name": "signup", "priority": "urgent"},
		},
	})

	out := runProcess(t, "e2e-suite", a, &recordingChannel{}, nil)

	assert.False(t, out.Success)
	assert.Equal(t, engine.FailureContract, out.Failure.Kind)
	assert.Contains(t, out.Failure.Reason, "priority")
}

func TestMutationLoopConverges(t *testing.T) {
	a := newScriptedAgent()
	a.on("mutation_baseline", map[string]any{"success": true, "mutation_score": 62.0, "mutants_total": 400.0, "mutants_killed": 248.0})
	a.on("test_strengthening",
		map[string]any{"success": true, "mutation_score": 74.0, "tests_added": 9.0},
		map[string]any{"success": true, "mutation_score": 83.0, "tests_added": 6.0},
	)
	a.on("survivor_report", map[string]any{"success": true, "report_path": "reports/mutants.md", "survivors": 54.0})

	ch := &recordingChannel{}
	out := runProcess(t, "mutation", a, ch, nil)

	assert.True(t, out.Success)
	assert.Empty(t, ch.gates, "target reached inside the budget")
	assert.Equal(t, 83.0, out.Metrics["mutation_score"])
	assert.Equal(t, 2.0, out.Metrics["mutation_score_iterations"])
	assert.Equal(t, 62.0, out.Output["baseline_score"])
	assert.Equal(t, 54.0, out.Output["survivors"])
}

func TestMutationLoopExhaustsAndGates(t *testing.T) {
	a := newScriptedAgent()
	a.on("mutation_baseline", map[string]any{"success": true, "mutation_score": 50.0})
	a.on("test_strengthening", map[string]any{"success": true, "mutation_score": 55.0})
	a.on("survivor_report", map[string]any{"success": true, "report_path": "reports/mutants.md", "survivors": 180.0})

	ch := &recordingChannel{}
	out := runProcess(t, "mutation", a, ch, nil)

	assert.True(t, out.Success)
	assert.Equal(t, []string{"Mutation score target unmet"}, ch.gates)
	assert.Equal(t, 3.0, out.Metrics["mutation_score_iterations"])
}

func TestPerfTestStaticFanOut(t *testing.T) {
	a := newScriptedAgent()
	a.on("workload_modeling", map[string]any{"success": true, "profile": "spiky-read-heavy", "virtual_users": 200.0})
	a.on("load_scenario", map[string]any{"success": true, "scenario": "any", "p95_latency_ms": 310.0, "throughput_rps": 850.0})
	a.on("perf_analysis", map[string]any{"success": true, "p95_latency_ms": 310.0, "bottlenecks": []any{"db pool"}, "report_path": "reports/perf.md"})

	ch := &recordingChannel{}
	out := runProcess(t, "perf-test", a, ch, nil)

	assert.True(t, out.Success)
	assert.Empty(t, ch.gates)
	scenarios, ok := out.Output["scenarios"].([]any)
	require.True(t, ok)
	assert.Len(t, scenarios, 3, "baseline, peak, soak")
	assert.Equal(t, []any{"db pool"}, out.Output["bottlenecks"])
}

func TestPerfTestGatesOverBudget(t *testing.T) {
	a := newScriptedAgent()
	a.on("workload_modeling", map[string]any{"success": true, "profile": "steady"})
	a.on("load_scenario", map[string]any{"success": true, "scenario": "any", "p95_latency_ms": 900.0})
	a.on("perf_analysis", map[string]any{"success": true, "p95_latency_ms": 900.0})

	ch := &recordingChannel{}
	out := runProcess(t, "perf-test", a, ch, map[string]any{"latency_budget_ms": 500})

	assert.True(t, out.Success)
	assert.Equal(t, []string{"Latency budget exceeded"}, ch.gates)
}

func TestCrossBrowserDynamicFanOut(t *testing.T) {
	a := newScriptedAgent()
	a.on("matrix_planning", map[string]any{
		"success": true,
		"platforms": []any{
			map[string]any{"name": "desktop-chrome", "browser": "chromium"},
			map[string]any{"name": "desktop-firefox", "browser": "firefox"},
			map[string]any{"name": "mobile-safari", "browser": "webkit", "viewport": "390x844"},
		},
	})
	a.on("platform_run", map[string]any{"success": true, "platform": "p", "passed": 40.0, "failed": 0.0})
	a.on("consolidation", map[string]any{"success": true, "critical_issues": 0.0, "report_path": "reports/compat.md"})

	ch := &recordingChannel{}
	out := runProcess(t, "cross-browser", a, ch, nil)

	assert.True(t, out.Success)
	assert.Empty(t, ch.gates)
	results, ok := out.Output["platform_results"].([]any)
	require.True(t, ok)
	assert.Len(t, results, 3)
	assert.Equal(t, 0.0, out.Output["critical_issues"])
}

func TestEnvProvisionAbortsOnFailedProvisioning(t *testing.T) {
	a := newScriptedAgent()
	a.on("env_requirements", map[string]any{"success": true, "services": []any{"postgres", "redis", "api"}})
	a.on("provisioning", map[string]any{"success": false, "failed_services": []any{"redis"}})

	out := runProcess(t, "env-provision", a, &recordingChannel{}, nil)

	assert.False(t, out.Success)
	assert.Equal(t, engine.FailurePrecondition, out.Failure.Kind)
	assert.Equal(t, "provision", out.Failure.Phase)
	assert.Contains(t, out.Failure.Reason, "1 service")
}

func TestShiftLeftPilotGate(t *testing.T) {
	a := newScriptedAgent()
	a.on("maturity_assessment", map[string]any{"success": true, "maturity_level": "managed", "gaps": []any{"no unit test culture"}})
	a.on("enablement_plan", map[string]any{
		"success": true,
		"initiatives": []any{
			map[string]any{"name": "test pairing", "effort": "medium"},
		},
	})
	a.on("pilot_run", map[string]any{"success": true, "adoption_rate": 35.0})
	a.on("rollout_report", map[string]any{"success": true, "report_path": "reports/rollout.md"})

	ch := &recordingChannel{}
	out := runProcess(t, "shift-left", a, ch, nil)

	assert.True(t, out.Success)
	assert.Equal(t, []string{"Adoption below target"}, ch.gates)
	assert.Equal(t, "managed", out.Output["maturity_level"])
	assert.Equal(t, 35.0, out.Output["adoption_rate"])
}

func TestFlakinessRemediatesByCategory(t *testing.T) {
	a := newScriptedAgent()
	a.on("flake_detection", map[string]any{
		"success": true,
		"flaky_tests": []any{
			map[string]any{"name": "t1", "category": "timing", "failure_rate": 0.2},
			map[string]any{"name": "t2", "category": "timing", "failure_rate": 0.1},
			map[string]any{"name": "t3", "category": "isolation", "failure_rate": 0.3},
		},
		"total_runs": 20.0,
	})
	a.on("flake_remediation", map[string]any{"success": true, "category": "c", "fixed": 2.0, "remaining": 0.0})
	a.on("flake_validation", map[string]any{"success": true, "flakiness_rate": 0.5, "runs": 20.0})

	ch := &recordingChannel{}
	out := runProcess(t, "flakiness", a, ch, nil)

	assert.True(t, out.Success)
	assert.Empty(t, ch.gates, "rate 0.5 is under the default target of 1")
	remediation, ok := out.Output["remediation"].([]any)
	require.True(t, ok)
	assert.Len(t, remediation, 2, "one member per distinct category")
	assert.Equal(t, 0.5, out.Output["flakiness_rate"])
}
