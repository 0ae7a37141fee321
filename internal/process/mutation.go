package process

import (
	"github.com/calebmoore/qaforge/internal/contract"
	"github.com/calebmoore/qaforge/internal/engine"
	"github.com/calebmoore/qaforge/internal/record"
)

// Mutation raises a codebase's mutation score: establish the baseline, then
// iterate on test strengthening up to three times before reporting the
// surviving mutants.
func Mutation() *engine.Definition {
	scoreShape := &contract.Shape{Fields: []contract.Field{
		{Name: "success", Kind: contract.Bool, Required: true},
		{Name: "mutation_score", Kind: contract.Number, Required: true},
		{Name: "mutants_total", Kind: contract.Number},
		{Name: "mutants_killed", Kind: contract.Number},
	}}
	strengthenShape := &contract.Shape{Fields: []contract.Field{
		{Name: "success", Kind: contract.Bool, Required: true},
		{Name: "mutation_score", Kind: contract.Number, Required: true},
		{Name: "tests_added", Kind: contract.Number},
	}}
	reportShape := &contract.Shape{Fields: []contract.Field{
		{Name: "success", Kind: contract.Bool, Required: true},
		{Name: "report_path", Kind: contract.String, Required: true},
		{Name: "survivors", Kind: contract.Number},
	}}

	scoreMetrics := func(phase string) func(*engine.State) {
		return func(s *engine.State) {
			res, _ := s.Result(phase)
			s.SetMetric("mutation_score", contract.Num(res, "mutation_score"))
			s.SetMetric("target_mutation_score", s.NumParam("target_mutation_score", 80))
		}
	}

	return &engine.Definition{
		Name:        "mutation",
		Description: "Baseline the mutation score, strengthen tests iteratively, and report surviving mutants",
		Defaults: map[string]any{
			"target_mutation_score": 80,
		},
		Steps: []engine.Step{
			engine.Phase{
				Name: "baseline",
				Unit: &engine.WorkUnit{
					Name: "mutation_baseline",
					Build: func(s *engine.State) (map[string]any, error) {
						return map[string]any{"scope": s.StrParam("scope", "full")}, nil
					},
					Output: scoreShape,
				},
				Metrics: scoreMetrics("baseline"),
			},
			engine.Loop{
				Name:   "strengthen",
				Max:    3,
				Metric: "mutation_score",
				Done: func(s *engine.State) bool {
					return s.Metric("mutation_score") >= s.Metric("target_mutation_score")
				},
				Body: []engine.Phase{{
					Name: "strengthen",
					Unit: &engine.WorkUnit{
						Name: "test_strengthening",
						Build: func(s *engine.State) (map[string]any, error) {
							return map[string]any{
								"current_score": s.Metric("mutation_score"),
								"target_score":  s.Metric("target_mutation_score"),
							}, nil
						},
						Output: strengthenShape,
					},
					Metrics: scoreMetrics("strengthen"),
				}},
				OnExhausted: &engine.Gate{
					Title:    "Mutation score target unmet",
					Question: "Three strengthening rounds did not reach the target score. Proceed to reporting with the best achieved value?",
					Metrics:  []string{"mutation_score", "mutation_score_best", "target_mutation_score"},
				},
			},
			engine.Phase{
				Name: "report",
				Unit: &engine.WorkUnit{
					Name: "survivor_report",
					Build: func(s *engine.State) (map[string]any, error) {
						return map[string]any{"final_score": s.Metric("mutation_score")}, nil
					},
					Output: reportShape,
				},
				Artifacts: func(res engine.Result) []record.Artifact {
					return []record.Artifact{{Path: contract.Str(res, "report_path"), Format: "markdown", Label: "Surviving mutants"}}
				},
			},
		},
		Output: []engine.FieldMapping{
			{Field: "baseline_score", Phase: "baseline", Source: "mutation_score"},
			{Field: "survivors", Phase: "report", Source: "survivors"},
			{Field: "report_path", Phase: "report", Source: "report_path"},
		},
	}
}
