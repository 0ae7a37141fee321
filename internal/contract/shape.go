package contract

import (
	"fmt"
	"strings"
)

// Kind identifies the declared type of a field.
type Kind string

const (
	String Kind = "string"
	Number Kind = "number"
	Bool   Kind = "bool"
	Object Kind = "object"
	Array  Kind = "array"
)

// Field declares a single field within an output shape.
type Field struct {
	Name     string
	Kind     Kind
	Required bool
	Enum     []string // closed value set; only meaningful for string fields
	Fields   []Field  // nested declaration for object fields
	Elem     *Field   // element declaration for array fields; Elem.Name is unused
}

// Shape declares the output contract of a work unit: which fields a result
// must carry, their kinds, and any closed value sets. A result that does not
// validate never becomes visible to downstream phases.
type Shape struct {
	Fields []Field
}

// Violation collects every mismatch found while validating a result against
// its declared shape.
type Violation struct {
	WorkUnit string
	Problems []string
}

func (v *Violation) Error() string {
	return fmt.Sprintf("contract violation in %q: %s", v.WorkUnit, strings.Join(v.Problems, "; "))
}

// Validate checks a raw result against the shape. It returns a *Violation
// naming every problem found, or nil if the result conforms.
func (s *Shape) Validate(workUnit string, result map[string]any) error {
	var problems []string
	validateFields(s.Fields, result, "", &problems)
	if len(problems) > 0 {
		return &Violation{WorkUnit: workUnit, Problems: problems}
	}
	return nil
}

func validateFields(fields []Field, obj map[string]any, path string, problems *[]string) {
	for _, f := range fields {
		fieldPath := f.Name
		if path != "" {
			fieldPath = path + "." + f.Name
		}

		val, present := obj[f.Name]
		if !present || val == nil {
			if f.Required {
				*problems = append(*problems, fmt.Sprintf("missing required field %q", fieldPath))
			}
			continue
		}

		validateValue(f, val, fieldPath, problems)
	}
}

func validateValue(f Field, val any, path string, problems *[]string) {
	switch f.Kind {
	case String:
		s, ok := val.(string)
		if !ok {
			*problems = append(*problems, fmt.Sprintf("field %q: expected string, got %T", path, val))
			return
		}
		if len(f.Enum) > 0 && !containsString(f.Enum, s) {
			*problems = append(*problems, fmt.Sprintf("field %q: value %q not in enum %v", path, s, f.Enum))
		}
	case Number:
		if !isNumber(val) {
			*problems = append(*problems, fmt.Sprintf("field %q: expected number, got %T", path, val))
		}
	case Bool:
		if _, ok := val.(bool); !ok {
			*problems = append(*problems, fmt.Sprintf("field %q: expected bool, got %T", path, val))
		}
	case Object:
		obj, ok := val.(map[string]any)
		if !ok {
			*problems = append(*problems, fmt.Sprintf("field %q: expected object, got %T", path, val))
			return
		}
		validateFields(f.Fields, obj, path, problems)
	case Array:
		arr, ok := val.([]any)
		if !ok {
			*problems = append(*problems, fmt.Sprintf("field %q: expected array, got %T", path, val))
			return
		}
		if f.Elem == nil {
			return
		}
		for i, item := range arr {
			itemPath := fmt.Sprintf("%s[%d]", path, i)
			if item == nil {
				*problems = append(*problems, fmt.Sprintf("field %q: null element", itemPath))
				continue
			}
			validateValue(*f.Elem, item, itemPath, problems)
		}
	default:
		*problems = append(*problems, fmt.Sprintf("field %q: unknown declared kind %q", path, f.Kind))
	}
}

// isNumber accepts the numeric types a JSON decode or a Go caller can produce.
func isNumber(val any) bool {
	switch val.(type) {
	case float64, float32, int, int64, int32:
		return true
	}
	return false
}

func containsString(set []string, s string) bool {
	for _, v := range set {
		if v == s {
			return true
		}
	}
	return false
}

// Num reads a numeric field from a validated result, coercing the concrete
// type. Returns 0 if the field is absent or not numeric.
func Num(result map[string]any, field string) float64 {
	switch v := result[field].(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	case int:
		return float64(v)
	case int64:
		return float64(v)
	case int32:
		return float64(v)
	}
	return 0
}

// Str reads a string field from a validated result, or "" if absent.
func Str(result map[string]any, field string) string {
	s, _ := result[field].(string)
	return s
}

// Flag reads a bool field from a validated result, or false if absent.
func Flag(result map[string]any, field string) bool {
	b, _ := result[field].(bool)
	return b
}

// Items reads an array field from a validated result, or nil if absent.
func Items(result map[string]any, field string) []any {
	arr, _ := result[field].([]any)
	return arr
}
