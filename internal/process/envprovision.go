package process

import (
	"fmt"

	"github.com/calebmoore/qaforge/internal/contract"
	"github.com/calebmoore/qaforge/internal/engine"
)

// EnvProvision stands up a test environment: gather requirements, provision
// services, and smoke-validate the result. A failed provisioning aborts the
// run outright rather than pausing for review.
func EnvProvision() *engine.Definition {
	requirementsShape := &contract.Shape{Fields: []contract.Field{
		{Name: "success", Kind: contract.Bool, Required: true},
		{Name: "services", Kind: contract.Array, Required: true, Elem: &contract.Field{Kind: contract.String}},
	}}
	provisionShape := &contract.Shape{Fields: []contract.Field{
		{Name: "success", Kind: contract.Bool, Required: true},
		{Name: "endpoint", Kind: contract.String},
		{Name: "failed_services", Kind: contract.Array, Elem: &contract.Field{Kind: contract.String}},
	}}
	smokeShape := &contract.Shape{Fields: []contract.Field{
		{Name: "success", Kind: contract.Bool, Required: true},
		{Name: "checks_passed", Kind: contract.Number, Required: true},
		{Name: "checks_total", Kind: contract.Number, Required: true},
	}}

	return &engine.Definition{
		Name:        "env-provision",
		Description: "Gather environment requirements, provision services, and smoke-validate",
		Steps: []engine.Step{
			engine.Phase{
				Name: "requirements",
				Unit: &engine.WorkUnit{
					Name: "env_requirements",
					Build: func(s *engine.State) (map[string]any, error) {
						return map[string]any{"environment": s.StrParam("environment", "staging")}, nil
					},
					Output: requirementsShape,
				},
			},
			engine.Phase{
				Name: "provision",
				Unit: &engine.WorkUnit{
					Name: "provisioning",
					Build: func(s *engine.State) (map[string]any, error) {
						req, _ := s.Result("requirements")
						return map[string]any{"services": req["services"]}, nil
					},
					Output: provisionShape,
				},
				Require: func(_ *engine.State, res engine.Result) error {
					if !contract.Flag(res, "success") {
						failed := contract.Items(res, "failed_services")
						return fmt.Errorf("provisioning failed for %d service(s)", len(failed))
					}
					return nil
				},
			},
			engine.Phase{
				Name: "smoke",
				Unit: &engine.WorkUnit{
					Name: "smoke_validation",
					Build: func(s *engine.State) (map[string]any, error) {
						prov, _ := s.Result("provision")
						return map[string]any{"endpoint": contract.Str(prov, "endpoint")}, nil
					},
					Output: smokeShape,
				},
				Metrics: func(s *engine.State) {
					res, _ := s.Result("smoke")
					s.SetMetric("checks_passed", contract.Num(res, "checks_passed"))
					s.SetMetric("checks_total", contract.Num(res, "checks_total"))
				},
				Gates: []engine.Gate{{
					Title:    "Smoke checks incomplete",
					Question: "Some smoke checks failed against the new environment. Hand it over anyway?",
					When: func(s *engine.State) bool {
						return s.Metric("checks_passed") < s.Metric("checks_total")
					},
					Metrics: []string{"checks_passed", "checks_total"},
				}},
			},
		},
		Output: []engine.FieldMapping{
			{Field: "services", Phase: "requirements", Source: "services"},
			{Field: "endpoint", Phase: "provision", Source: "endpoint"},
			{Field: "checks_passed", Phase: "smoke", Source: "checks_passed"},
			{Field: "checks_total", Phase: "smoke", Source: "checks_total"},
		},
	}
}
