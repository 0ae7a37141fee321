// Package process holds the built-in QA process definitions: each one
// declares its phases, work unit contracts, gates, preconditions, and the
// output projection, expressed against the engine.
package process

import (
	"fmt"
	"sort"

	"github.com/calebmoore/qaforge/internal/engine"
)

var builtin = map[string]func() *engine.Definition{
	"e2e-suite":     E2ESuite,
	"flakiness":     Flakiness,
	"mutation":      Mutation,
	"perf-test":     PerfTest,
	"cross-browser": CrossBrowser,
	"env-provision": EnvProvision,
	"shift-left":    ShiftLeft,
}

// Register adds a process definition constructor under a name. Registering
// an existing name is an error; built-ins cannot be shadowed.
func Register(name string, ctor func() *engine.Definition) error {
	if _, exists := builtin[name]; exists {
		return fmt.Errorf("process %q already registered", name)
	}
	builtin[name] = ctor
	return nil
}

// Get returns a fresh definition for the named process.
func Get(name string) (*engine.Definition, bool) {
	ctor, ok := builtin[name]
	if !ok {
		return nil, false
	}
	return ctor(), true
}

// Names returns all registered process names, sorted.
func Names() []string {
	names := make([]string, 0, len(builtin))
	for name := range builtin {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
