package integration

import (
	"strconv"
	"strings"
)

// Record is the dynamic record shape crossing the connector/transformer
// boundary. Values are restricted to what JSON can carry: string, float64,
// bool, nil, map[string]any and []any. Nested values are addressed with
// dot-path notation; array segments are numeric indices
// ("lines.0.amount").
type Record map[string]any

// GetPath resolves a dot-path into the record. A missing intermediate path
// yields nil, not an error.
func (r Record) GetPath(path string) any {
	if path == "" {
		return nil
	}
	var current any = map[string]any(r)
	for _, segment := range strings.Split(path, ".") {
		switch node := current.(type) {
		case map[string]any:
			current = node[segment]
		case Record:
			current = map[string]any(node)[segment]
		case []any:
			idx, err := strconv.Atoi(segment)
			if err != nil || idx < 0 || idx >= len(node) {
				return nil
			}
			current = node[idx]
		default:
			return nil
		}
		if current == nil {
			return nil
		}
	}
	return current
}

// SetPath writes a value at a dot-path, creating intermediate maps as
// needed. Array segments must already exist; SetPath never grows a slice.
func (r Record) SetPath(path string, value any) {
	if path == "" {
		return
	}
	segments := strings.Split(path, ".")
	var current any = map[string]any(r)
	for _, segment := range segments[:len(segments)-1] {
		switch node := current.(type) {
		case map[string]any:
			next, ok := node[segment]
			if !ok || next == nil {
				child := map[string]any{}
				node[segment] = child
				current = child
				continue
			}
			current = next
		case []any:
			idx, err := strconv.Atoi(segment)
			if err != nil || idx < 0 || idx >= len(node) {
				return
			}
			if node[idx] == nil {
				child := map[string]any{}
				node[idx] = child
				current = child
				continue
			}
			current = node[idx]
		default:
			return
		}
	}

	last := segments[len(segments)-1]
	switch node := current.(type) {
	case map[string]any:
		node[last] = value
	case []any:
		idx, err := strconv.Atoi(last)
		if err == nil && idx >= 0 && idx < len(node) {
			node[idx] = value
		}
	}
}

// Clone returns a deep copy of the record.
func (r Record) Clone() Record {
	return Record(cloneValue(map[string]any(r)).(map[string]any))
}

func cloneValue(v any) any {
	switch node := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(node))
		for k, child := range node {
			out[k] = cloneValue(child)
		}
		return out
	case Record:
		return cloneValue(map[string]any(node))
	case []any:
		out := make([]any, len(node))
		for i, child := range node {
			out[i] = cloneValue(child)
		}
		return out
	default:
		return v
	}
}
