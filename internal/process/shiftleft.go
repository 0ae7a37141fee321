package process

import (
	"github.com/calebmoore/qaforge/internal/contract"
	"github.com/calebmoore/qaforge/internal/engine"
	"github.com/calebmoore/qaforge/internal/record"
)

// ShiftLeft drives shift-left testing adoption: assess the team's maturity,
// plan enablement, run a pilot, and report the rollout.
func ShiftLeft() *engine.Definition {
	assessShape := &contract.Shape{Fields: []contract.Field{
		{Name: "success", Kind: contract.Bool, Required: true},
		{Name: "maturity_level", Kind: contract.String, Required: true,
			Enum: []string{"initial", "managed", "defined", "measured", "optimizing"}},
		{Name: "gaps", Kind: contract.Array, Elem: &contract.Field{Kind: contract.String}},
	}}
	planShape := &contract.Shape{Fields: []contract.Field{
		{Name: "success", Kind: contract.Bool, Required: true},
		{Name: "initiatives", Kind: contract.Array, Required: true, Elem: &contract.Field{
			Kind: contract.Object,
			Fields: []contract.Field{
				{Name: "name", Kind: contract.String, Required: true},
				{Name: "effort", Kind: contract.String, Enum: []string{"low", "medium", "high"}},
			},
		}},
	}}
	pilotShape := &contract.Shape{Fields: []contract.Field{
		{Name: "success", Kind: contract.Bool, Required: true},
		{Name: "adoption_rate", Kind: contract.Number, Required: true},
		{Name: "feedback", Kind: contract.String},
	}}
	rolloutShape := &contract.Shape{Fields: []contract.Field{
		{Name: "success", Kind: contract.Bool, Required: true},
		{Name: "report_path", Kind: contract.String, Required: true},
	}}

	return &engine.Definition{
		Name:        "shift-left",
		Description: "Assess testing maturity, plan enablement, pilot the practices, and report the rollout",
		Defaults: map[string]any{
			"target_adoption_rate": 60,
		},
		Steps: []engine.Step{
			engine.Phase{
				Name: "assess",
				Unit: &engine.WorkUnit{
					Name: "maturity_assessment",
					Build: func(s *engine.State) (map[string]any, error) {
						return map[string]any{"team": s.StrParam("team", "")}, nil
					},
					Output: assessShape,
				},
			},
			engine.Phase{
				Name: "plan",
				Unit: &engine.WorkUnit{
					Name: "enablement_plan",
					Build: func(s *engine.State) (map[string]any, error) {
						assess, _ := s.Result("assess")
						return map[string]any{
							"maturity_level": contract.Str(assess, "maturity_level"),
							"gaps":           assess["gaps"],
						}, nil
					},
					Output: planShape,
				},
			},
			engine.Phase{
				Name: "pilot",
				Unit: &engine.WorkUnit{
					Name: "pilot_run",
					Build: func(s *engine.State) (map[string]any, error) {
						plan, _ := s.Result("plan")
						return map[string]any{"initiatives": plan["initiatives"]}, nil
					},
					Output: pilotShape,
				},
				Metrics: func(s *engine.State) {
					res, _ := s.Result("pilot")
					s.SetMetric("adoption_rate", contract.Num(res, "adoption_rate"))
					s.SetMetric("target_adoption_rate", s.NumParam("target_adoption_rate", 60))
				},
				Gates: []engine.Gate{{
					Title:    "Adoption below target",
					Question: "Pilot adoption came in below target. Proceed to the full rollout report?",
					When: func(s *engine.State) bool {
						return s.Metric("adoption_rate") < s.Metric("target_adoption_rate")
					},
					Metrics: []string{"adoption_rate", "target_adoption_rate"},
				}},
			},
			engine.Phase{
				Name: "rollout",
				Unit: &engine.WorkUnit{
					Name: "rollout_report",
					Build: func(s *engine.State) (map[string]any, error) {
						return map[string]any{"adoption_rate": s.Metric("adoption_rate")}, nil
					},
					Output: rolloutShape,
				},
				Artifacts: func(res engine.Result) []record.Artifact {
					return []record.Artifact{{Path: contract.Str(res, "report_path"), Format: "markdown", Label: "Rollout report"}}
				},
			},
		},
		Output: []engine.FieldMapping{
			{Field: "maturity_level", Phase: "assess", Source: "maturity_level"},
			{Field: "initiatives", Phase: "plan", Source: "initiatives"},
			{Field: "adoption_rate", Phase: "pilot", Source: "adoption_rate"},
			{Field: "report_path", Phase: "rollout", Source: "report_path"},
		},
	}
}
