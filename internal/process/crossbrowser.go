package process

import (
	"fmt"

	"github.com/calebmoore/qaforge/internal/contract"
	"github.com/calebmoore/qaforge/internal/engine"
	"github.com/calebmoore/qaforge/internal/record"
)

// CrossBrowser validates behavior across a browser/platform matrix: plan the
// matrix, run each platform in parallel, and consolidate the findings.
func CrossBrowser() *engine.Definition {
	planShape := &contract.Shape{Fields: []contract.Field{
		{Name: "success", Kind: contract.Bool, Required: true},
		{Name: "platforms", Kind: contract.Array, Required: true, Elem: &contract.Field{
			Kind: contract.Object,
			Fields: []contract.Field{
				{Name: "name", Kind: contract.String, Required: true},
				{Name: "browser", Kind: contract.String, Required: true, Enum: []string{"chromium", "firefox", "webkit", "edge"}},
				{Name: "viewport", Kind: contract.String},
			},
		}},
	}}
	runShape := &contract.Shape{Fields: []contract.Field{
		{Name: "success", Kind: contract.Bool, Required: true},
		{Name: "platform", Kind: contract.String, Required: true},
		{Name: "passed", Kind: contract.Number, Required: true},
		{Name: "failed", Kind: contract.Number, Required: true},
		{Name: "issues", Kind: contract.Array, Elem: &contract.Field{
			Kind: contract.Object,
			Fields: []contract.Field{
				{Name: "severity", Kind: contract.String, Required: true, Enum: []string{"critical", "major", "minor"}},
				{Name: "description", Kind: contract.String, Required: true},
			},
		}},
	}}
	consolidateShape := &contract.Shape{Fields: []contract.Field{
		{Name: "success", Kind: contract.Bool, Required: true},
		{Name: "critical_issues", Kind: contract.Number, Required: true},
		{Name: "report_path", Kind: contract.String},
	}}

	return &engine.Definition{
		Name:        "cross-browser",
		Description: "Plan a browser matrix, run each platform in parallel, and consolidate findings",
		Steps: []engine.Step{
			engine.Phase{
				Name: "plan",
				Unit: &engine.WorkUnit{
					Name: "matrix_planning",
					Build: func(s *engine.State) (map[string]any, error) {
						return map[string]any{"audience": s.StrParam("audience", "general web")}, nil
					},
					Output: planShape,
				},
				Require: func(_ *engine.State, res engine.Result) error {
					if len(contract.Items(res, "platforms")) == 0 {
						return fmt.Errorf("matrix planning produced no platforms")
					}
					return nil
				},
			},
			engine.Phase{
				Name: "run",
				Group: func(s *engine.State) ([]engine.WorkUnit, error) {
					plan, ok := s.Result("plan")
					if !ok {
						return nil, fmt.Errorf("plan phase result missing")
					}
					var units []engine.WorkUnit
					for _, item := range contract.Items(plan, "platforms") {
						platform, ok := item.(map[string]any)
						if !ok {
							continue
						}
						units = append(units, engine.WorkUnit{
							Name: "platform_run",
							Build: func(*engine.State) (map[string]any, error) {
								return map[string]any{"platform": platform}, nil
							},
							Output: runShape,
						})
					}
					return units, nil
				},
			},
			engine.Phase{
				Name: "consolidate",
				Unit: &engine.WorkUnit{
					Name: "consolidation",
					Build: func(s *engine.State) (map[string]any, error) {
						members, _ := s.Group("run")
						results := make([]any, 0, len(members))
						for _, m := range members {
							results = append(results, map[string]any(m))
						}
						return map[string]any{"platform_results": results}, nil
					},
					Output: consolidateShape,
				},
				Metrics: func(s *engine.State) {
					res, _ := s.Result("consolidate")
					s.SetMetric("critical_issues", contract.Num(res, "critical_issues"))
				},
				Artifacts: func(res engine.Result) []record.Artifact {
					return []record.Artifact{{Path: contract.Str(res, "report_path"), Format: "markdown", Label: "Compatibility report"}}
				},
				Gates: []engine.Gate{{
					Title:    "Critical cross-browser issues",
					Question: "Critical compatibility issues were found. Proceed without fixing them?",
					When: func(s *engine.State) bool {
						return s.Metric("critical_issues") > 0
					},
					Metrics: []string{"critical_issues"},
				}},
			},
		},
		Output: []engine.FieldMapping{
			{Field: "platforms", Phase: "plan", Source: "platforms"},
			{Field: "platform_results", Phase: "run"},
			{Field: "critical_issues", Phase: "consolidate", Source: "critical_issues"},
		},
	}
}
