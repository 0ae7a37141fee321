package engine

import "strings"

// project builds the process output by explicit field selection. Only mapped
// fields appear; a missing source phase or field projects as nil rather than
// failing, so internal result shapes can evolve behind the mapping.
func project(mappings []FieldMapping, s *State) map[string]any {
	out := make(map[string]any, len(mappings))
	for _, m := range mappings {
		out[m.Field] = resolveMapping(m, s)
	}
	return out
}

func resolveMapping(m FieldMapping, s *State) any {
	if rs, ok := s.Group(m.Phase); ok {
		arr := make([]any, len(rs))
		for i, r := range rs {
			if m.Source == "" {
				arr[i] = map[string]any(r)
			} else {
				arr[i] = lookupPath(r, m.Source)
			}
		}
		return arr
	}

	r, ok := s.Result(m.Phase)
	if !ok {
		return nil
	}
	if m.Source == "" {
		return map[string]any(r)
	}
	return lookupPath(r, m.Source)
}

// lookupPath walks a dotted path through nested objects. Any missing or
// non-object intermediate yields nil.
func lookupPath(r map[string]any, path string) any {
	var cur any = r
	for _, part := range strings.Split(path, ".") {
		obj, ok := cur.(map[string]any)
		if !ok {
			return nil
		}
		cur, ok = obj[part]
		if !ok {
			return nil
		}
	}
	return cur
}
