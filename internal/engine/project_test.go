package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func projState() *State {
	s := newState("run1", "proc", nil)
	s.completeSingle("discover", Result{
		"success": true,
		"summary": map[string]any{
			"total":  12.0,
			"detail": map[string]any{"flaky": 2.0},
		},
		"internal_notes": "should never leak",
	})
	s.completeGroup("execute", []Result{
		{"success": true, "browser": "chromium", "passed": 10.0},
		{"success": true, "browser": "firefox", "passed": 9.0},
	})
	return s
}

func TestProjectSelectsOnlyMappedFields(t *testing.T) {
	out := project([]FieldMapping{
		{Field: "total", Phase: "discover", Source: "summary.total"},
	}, projState())

	assert.Equal(t, map[string]any{"total": 12.0}, out)
	assert.NotContains(t, out, "internal_notes")
	assert.NotContains(t, out, "success")
}

func TestProjectDottedPath(t *testing.T) {
	out := project([]FieldMapping{
		{Field: "flaky", Phase: "discover", Source: "summary.detail.flaky"},
	}, projState())
	assert.Equal(t, 2.0, out["flaky"])
}

func TestProjectMissingYieldsNil(t *testing.T) {
	out := project([]FieldMapping{
		{Field: "a", Phase: "absent_phase", Source: "x"},
		{Field: "b", Phase: "discover", Source: "no_such_field"},
		{Field: "c", Phase: "discover", Source: "summary.total.deeper"},
	}, projState())

	assert.Contains(t, out, "a")
	assert.Nil(t, out["a"])
	assert.Nil(t, out["b"])
	assert.Nil(t, out["c"], "non-object intermediate resolves to nil")
}

func TestProjectWholeResult(t *testing.T) {
	out := project([]FieldMapping{
		{Field: "discovery", Phase: "discover"},
	}, projState())

	m, ok := out["discovery"].(map[string]any)
	assert.True(t, ok)
	assert.Equal(t, true, m["success"])
}

func TestProjectGroupAppliesSourcePerMember(t *testing.T) {
	out := project([]FieldMapping{
		{Field: "browsers", Phase: "execute", Source: "browser"},
		{Field: "raw", Phase: "execute"},
	}, projState())

	assert.Equal(t, []any{"chromium", "firefox"}, out["browsers"])
	raw, ok := out["raw"].([]any)
	assert.True(t, ok)
	assert.Len(t, raw, 2)
}

func TestProjectEmptyMappings(t *testing.T) {
	out := project(nil, projState())
	assert.Empty(t, out)
}
