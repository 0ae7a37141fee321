package process

import (
	"github.com/calebmoore/qaforge/internal/contract"
	"github.com/calebmoore/qaforge/internal/engine"
	"github.com/calebmoore/qaforge/internal/record"
)

// perfScenarios is the static fan-out for the load phase.
var perfScenarios = []string{"baseline", "peak", "soak"}

// PerfTest runs a performance test campaign: model the workload, execute the
// load scenarios in parallel, and analyze against the latency budget.
func PerfTest() *engine.Definition {
	modelShape := &contract.Shape{Fields: []contract.Field{
		{Name: "success", Kind: contract.Bool, Required: true},
		{Name: "profile", Kind: contract.String, Required: true},
		{Name: "virtual_users", Kind: contract.Number},
	}}
	loadShape := &contract.Shape{Fields: []contract.Field{
		{Name: "success", Kind: contract.Bool, Required: true},
		{Name: "scenario", Kind: contract.String, Required: true},
		{Name: "p95_latency_ms", Kind: contract.Number, Required: true},
		{Name: "throughput_rps", Kind: contract.Number},
		{Name: "error_rate", Kind: contract.Number},
	}}
	analysisShape := &contract.Shape{Fields: []contract.Field{
		{Name: "success", Kind: contract.Bool, Required: true},
		{Name: "p95_latency_ms", Kind: contract.Number, Required: true},
		{Name: "bottlenecks", Kind: contract.Array, Elem: &contract.Field{Kind: contract.String}},
		{Name: "report_path", Kind: contract.String},
	}}

	return &engine.Definition{
		Name:        "perf-test",
		Description: "Model the workload, run load scenarios in parallel, and analyze against the latency budget",
		Defaults: map[string]any{
			"latency_budget_ms": 500,
		},
		Steps: []engine.Step{
			engine.Phase{
				Name: "model",
				Unit: &engine.WorkUnit{
					Name: "workload_modeling",
					Build: func(s *engine.State) (map[string]any, error) {
						return map[string]any{"target_url": s.StrParam("target_url", "")}, nil
					},
					Output: modelShape,
				},
			},
			engine.Phase{
				Name: "load",
				Group: func(s *engine.State) ([]engine.WorkUnit, error) {
					model, _ := s.Result("model")
					units := make([]engine.WorkUnit, 0, len(perfScenarios))
					for _, scenario := range perfScenarios {
						scenario := scenario
						units = append(units, engine.WorkUnit{
							Name: "load_scenario",
							Build: func(*engine.State) (map[string]any, error) {
								return map[string]any{
									"scenario": scenario,
									"profile":  contract.Str(model, "profile"),
								}, nil
							},
							Output: loadShape,
						})
					}
					return units, nil
				},
			},
			engine.Phase{
				Name: "analyze",
				Unit: &engine.WorkUnit{
					Name: "perf_analysis",
					Build: func(s *engine.State) (map[string]any, error) {
						members, _ := s.Group("load")
						results := make([]any, 0, len(members))
						for _, m := range members {
							results = append(results, map[string]any(m))
						}
						return map[string]any{
							"scenario_results":  results,
							"latency_budget_ms": s.NumParam("latency_budget_ms", 500),
						}, nil
					},
					Output: analysisShape,
				},
				Metrics: func(s *engine.State) {
					res, _ := s.Result("analyze")
					s.SetMetric("p95_latency_ms", contract.Num(res, "p95_latency_ms"))
					s.SetMetric("latency_budget_ms", s.NumParam("latency_budget_ms", 500))
				},
				Artifacts: func(res engine.Result) []record.Artifact {
					return []record.Artifact{{Path: contract.Str(res, "report_path"), Format: "markdown", Label: "Performance analysis"}}
				},
				Gates: []engine.Gate{{
					Title:    "Latency budget exceeded",
					Question: "The observed p95 latency exceeds the budget. Accept the results anyway?",
					When: func(s *engine.State) bool {
						return s.Metric("p95_latency_ms") > s.Metric("latency_budget_ms")
					},
					Metrics: []string{"p95_latency_ms", "latency_budget_ms"},
				}},
			},
		},
		Output: []engine.FieldMapping{
			{Field: "scenarios", Phase: "load"},
			{Field: "p95_latency_ms", Phase: "analyze", Source: "p95_latency_ms"},
			{Field: "bottlenecks", Phase: "analyze", Source: "bottlenecks"},
		},
	}
}
