// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package enrich

import (
	"strings"

	"github.com/pdiddy/smartbi/pkg/types"
)

// Merge builds a candidate from a deep copy of draft, overlays allowed
// paths present in completed, then restores every protected path from
// draft. A protected path absent from draft is removed from the candidate.
// Paths are top-level keys or dotted object paths.
func Merge(draft, completed types.Document, allowed, protected []string) types.Document {
	candidate := DeepCopy(draft).(map[string]any)

	for _, path := range allowed {
		if v, ok := lookup(completed, path); ok {
			assign(candidate, path, DeepCopy(v))
		}
	}
	for _, path := range protected {
		if v, ok := lookup(draft, path); ok {
			assign(candidate, path, DeepCopy(v))
		} else {
			remove(candidate, path)
		}
	}
	return candidate
}

// DeepCopy copies JSON-shaped values; maps and slices are duplicated.
func DeepCopy(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = DeepCopy(val)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = DeepCopy(val)
		}
		return out
	default:
		return v
	}
}

func lookup(doc map[string]any, path string) (any, bool) {
	var cur any = doc
	for _, key := range strings.Split(path, ".") {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		cur, ok = m[key]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

func assign(doc map[string]any, path string, v any) {
	keys := strings.Split(path, ".")
	cur := doc
	for _, key := range keys[:len(keys)-1] {
		next, ok := cur[key].(map[string]any)
		if !ok {
			next = make(map[string]any)
			cur[key] = next
		}
		cur = next
	}
	cur[keys[len(keys)-1]] = v
}

func remove(doc map[string]any, path string) {
	keys := strings.Split(path, ".")
	cur := doc
	for _, key := range keys[:len(keys)-1] {
		next, ok := cur[key].(map[string]any)
		if !ok {
			return
		}
		cur = next
	}
	delete(cur, keys[len(keys)-1])
}
