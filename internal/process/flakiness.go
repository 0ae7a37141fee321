package process

import (
	"fmt"

	"github.com/calebmoore/qaforge/internal/contract"
	"github.com/calebmoore/qaforge/internal/engine"
	"github.com/calebmoore/qaforge/internal/record"
)

// Flakiness hunts down flaky tests: detect and categorize them, remediate
// each category in parallel, then re-run to validate the remaining rate.
func Flakiness() *engine.Definition {
	detectShape := &contract.Shape{Fields: []contract.Field{
		{Name: "success", Kind: contract.Bool, Required: true},
		{Name: "flaky_tests", Kind: contract.Array, Required: true, Elem: &contract.Field{
			Kind: contract.Object,
			Fields: []contract.Field{
				{Name: "name", Kind: contract.String, Required: true},
				{Name: "category", Kind: contract.String, Required: true, Enum: []string{"timing", "isolation", "data", "infra"}},
				{Name: "failure_rate", Kind: contract.Number},
			},
		}},
		{Name: "total_runs", Kind: contract.Number},
	}}
	remediateShape := &contract.Shape{Fields: []contract.Field{
		{Name: "success", Kind: contract.Bool, Required: true},
		{Name: "category", Kind: contract.String, Required: true},
		{Name: "fixed", Kind: contract.Number, Required: true},
		{Name: "remaining", Kind: contract.Number},
	}}
	validateShape := &contract.Shape{Fields: []contract.Field{
		{Name: "success", Kind: contract.Bool, Required: true},
		{Name: "flakiness_rate", Kind: contract.Number, Required: true},
		{Name: "runs", Kind: contract.Number},
	}}

	return &engine.Definition{
		Name:        "flakiness",
		Description: "Detect flaky tests, remediate by category in parallel, and validate the remaining rate",
		Defaults: map[string]any{
			"detection_runs":        20,
			"target_flakiness_rate": 1,
		},
		Steps: []engine.Step{
			engine.Phase{
				Name: "detect",
				Unit: &engine.WorkUnit{
					Name: "flake_detection",
					Build: func(s *engine.State) (map[string]any, error) {
						return map[string]any{"runs": s.NumParam("detection_runs", 20)}, nil
					},
					Output: detectShape,
				},
				Metrics: func(s *engine.State) {
					res, _ := s.Result("detect")
					s.SetMetric("flaky_count", float64(len(contract.Items(res, "flaky_tests"))))
				},
				Artifacts: func(res engine.Result) []record.Artifact {
					return []record.Artifact{{Path: "reports/flaky-tests.md", Format: "markdown", Label: "Flaky test inventory"}}
				},
			},
			engine.Phase{
				Name: "remediate",
				Group: func(s *engine.State) ([]engine.WorkUnit, error) {
					res, ok := s.Result("detect")
					if !ok {
						return nil, fmt.Errorf("detect phase result missing")
					}
					byCategory := make(map[string][]any)
					var order []string
					for _, item := range contract.Items(res, "flaky_tests") {
						test, ok := item.(map[string]any)
						if !ok {
							continue
						}
						cat := contract.Str(test, "category")
						if _, seen := byCategory[cat]; !seen {
							order = append(order, cat)
						}
						byCategory[cat] = append(byCategory[cat], test)
					}
					var units []engine.WorkUnit
					for _, cat := range order {
						tests := byCategory[cat]
						category := cat
						units = append(units, engine.WorkUnit{
							Name: "flake_remediation",
							Build: func(*engine.State) (map[string]any, error) {
								return map[string]any{"category": category, "tests": tests}, nil
							},
							Output: remediateShape,
						})
					}
					return units, nil
				},
			},
			engine.Phase{
				Name: "validate",
				Unit: &engine.WorkUnit{
					Name: "flake_validation",
					Build: func(s *engine.State) (map[string]any, error) {
						return map[string]any{"runs": s.NumParam("detection_runs", 20)}, nil
					},
					Output: validateShape,
				},
				Metrics: func(s *engine.State) {
					res, _ := s.Result("validate")
					s.SetMetric("flakiness_rate", contract.Num(res, "flakiness_rate"))
					s.SetMetric("target_flakiness_rate", s.NumParam("target_flakiness_rate", 1))
				},
				Gates: []engine.Gate{{
					Title:    "Flakiness above target",
					Question: "The remaining flakiness rate still exceeds the target. Accept the current state?",
					When: func(s *engine.State) bool {
						return s.Metric("flakiness_rate") > s.Metric("target_flakiness_rate")
					},
					Metrics: []string{"flakiness_rate", "target_flakiness_rate", "flaky_count"},
				}},
			},
		},
		Output: []engine.FieldMapping{
			{Field: "flaky_tests", Phase: "detect", Source: "flaky_tests"},
			{Field: "remediation", Phase: "remediate"},
			{Field: "flakiness_rate", Phase: "validate", Source: "flakiness_rate"},
		},
	}
}
