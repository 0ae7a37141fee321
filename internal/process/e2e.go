package process

import (
	"fmt"

	"github.com/calebmoore/qaforge/internal/contract"
	"github.com/calebmoore/qaforge/internal/engine"
	"github.com/calebmoore/qaforge/internal/record"
)

// E2ESuite builds an end-to-end test suite: discover user journeys, author
// scenarios for each in parallel, stabilize the suite, and report coverage.
func E2ESuite() *engine.Definition {
	discoverShape := &contract.Shape{Fields: []contract.Field{
		{Name: "success", Kind: contract.Bool, Required: true},
		{Name: "journeys", Kind: contract.Array, Required: true, Elem: &contract.Field{
			Kind: contract.Object,
			Fields: []contract.Field{
				{Name: "name", Kind: contract.String, Required: true},
				{Name: "priority", Kind: contract.String, Required: true, Enum: []string{"high", "medium", "low"}},
				{Name: "steps", Kind: contract.Number},
			},
		}},
		{Name: "summary", Kind: contract.String},
	}}
	authorShape := &contract.Shape{Fields: []contract.Field{
		{Name: "success", Kind: contract.Bool, Required: true},
		{Name: "scenario_file", Kind: contract.String, Required: true},
		{Name: "assertions", Kind: contract.Number},
	}}
	stabilizeShape := &contract.Shape{Fields: []contract.Field{
		{Name: "success", Kind: contract.Bool, Required: true},
		{Name: "pass_rate", Kind: contract.Number, Required: true},
		{Name: "runs", Kind: contract.Number},
	}}
	reportShape := &contract.Shape{Fields: []contract.Field{
		{Name: "success", Kind: contract.Bool, Required: true},
		{Name: "report_path", Kind: contract.String, Required: true},
		{Name: "covered_journeys", Kind: contract.Number},
	}}

	return &engine.Definition{
		Name:        "e2e-suite",
		Description: "Discover user journeys, author E2E scenarios in parallel, stabilize, and report coverage",
		Defaults: map[string]any{
			"framework":        "playwright",
			"target_pass_rate": 95,
		},
		Steps: []engine.Step{
			engine.Phase{
				Name: "discover",
				Unit: &engine.WorkUnit{
					Name: "journey_discovery",
					Build: func(s *engine.State) (map[string]any, error) {
						return map[string]any{
							"app_url":   s.StrParam("app_url", ""),
							"objective": s.StrParam("objective", "identify the critical user journeys"),
						}, nil
					},
					Output: discoverShape,
				},
				Require: func(_ *engine.State, res engine.Result) error {
					if len(contract.Items(res, "journeys")) == 0 {
						return fmt.Errorf("no user journeys identified")
					}
					return nil
				},
				Metrics: func(s *engine.State) {
					res, _ := s.Result("discover")
					s.SetMetric("journeys_identified", float64(len(contract.Items(res, "journeys"))))
				},
				Artifacts: func(res engine.Result) []record.Artifact {
					return []record.Artifact{{Path: "reports/journeys.md", Format: "markdown", Label: "Journey inventory"}}
				},
				Gates: []engine.Gate{{
					Title:    "Few journeys identified",
					Question: "Fewer than five user journeys were identified. The suite may have thin coverage. Continue?",
					When: func(s *engine.State) bool {
						return s.Metric("journeys_identified") < 5
					},
					Metrics: []string{"journeys_identified"},
				}},
			},
			engine.Phase{
				Name: "author",
				Group: func(s *engine.State) ([]engine.WorkUnit, error) {
					res, ok := s.Result("discover")
					if !ok {
						return nil, fmt.Errorf("discover phase result missing")
					}
					var units []engine.WorkUnit
					for _, item := range contract.Items(res, "journeys") {
						journey, ok := item.(map[string]any)
						if !ok {
							continue
						}
						units = append(units, engine.WorkUnit{
							Name: "scenario_authoring",
							Build: func(s *engine.State) (map[string]any, error) {
								return map[string]any{
									"journey":   journey,
									"framework": s.StrParam("framework", "playwright"),
								}, nil
							},
							Output: authorShape,
						})
					}
					return units, nil
				},
			},
			engine.Phase{
				Name: "stabilize",
				Unit: &engine.WorkUnit{
					Name: "stabilization",
					Build: func(s *engine.State) (map[string]any, error) {
						members, _ := s.Group("author")
						files := make([]any, 0, len(members))
						for _, m := range members {
							files = append(files, contract.Str(m, "scenario_file"))
						}
						return map[string]any{"scenario_files": files}, nil
					},
					Output: stabilizeShape,
				},
				Metrics: func(s *engine.State) {
					res, _ := s.Result("stabilize")
					s.SetMetric("pass_rate", contract.Num(res, "pass_rate"))
					s.SetMetric("target_pass_rate", s.NumParam("target_pass_rate", 95))
				},
				Gates: []engine.Gate{{
					Title:    "Pass rate below target",
					Question: "The stabilized suite's pass rate is below target. Ship the suite anyway?",
					When: func(s *engine.State) bool {
						return s.Metric("pass_rate") < s.Metric("target_pass_rate")
					},
					Metrics: []string{"pass_rate", "target_pass_rate"},
				}},
			},
			engine.Phase{
				Name: "report",
				Unit: &engine.WorkUnit{
					Name: "coverage_report",
					Build: func(s *engine.State) (map[string]any, error) {
						return map[string]any{"pass_rate": s.Metric("pass_rate")}, nil
					},
					Output: reportShape,
				},
				Artifacts: func(res engine.Result) []record.Artifact {
					return []record.Artifact{{Path: contract.Str(res, "report_path"), Format: "markdown", Label: "Coverage report"}}
				},
			},
		},
		Output: []engine.FieldMapping{
			{Field: "journeys", Phase: "discover", Source: "journeys"},
			{Field: "scenario_files", Phase: "author", Source: "scenario_file"},
			{Field: "pass_rate", Phase: "stabilize", Source: "pass_rate"},
			{Field: "report_path", Phase: "report", Source: "report_path"},
		},
	}
}
