// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package normalize

import (
	"fmt"
	"reflect"
	"sort"
)

// maxDiffDepth bounds recursion; deeper subtrees are compared whole.
const maxDiffDepth = 64

// Diff lists the paths at which two JSON-shaped values differ. Object
// keys are joined with "." and array indices use "[i]". Keys or indices
// present on one side only are suffixed " (added)" or " (removed)".
// Object keys are visited in sorted order, so output is deterministic.
func Diff(a, b any) []string {
	var out []string
	diff("", a, b, 0, &out)
	return out
}

func diff(path string, a, b any, depth int, out *[]string) {
	if depth >= maxDiffDepth {
		if !reflect.DeepEqual(a, b) {
			*out = append(*out, rootOr(path))
		}
		return
	}

	switch av := a.(type) {
	case map[string]any:
		bv, ok := b.(map[string]any)
		if !ok {
			*out = append(*out, rootOr(path))
			return
		}
		keys := make([]string, 0, len(av)+len(bv))
		for k := range av {
			keys = append(keys, k)
		}
		for k := range bv {
			if _, ok := av[k]; !ok {
				keys = append(keys, k)
			}
		}
		sort.Strings(keys)
		for _, k := range keys {
			child := k
			if path != "" {
				child = path + "." + k
			}
			x, inA := av[k]
			y, inB := bv[k]
			switch {
			case !inA:
				*out = append(*out, child+" (added)")
			case !inB:
				*out = append(*out, child+" (removed)")
			default:
				diff(child, x, y, depth+1, out)
			}
		}
	case []any:
		bv, ok := b.([]any)
		if !ok {
			*out = append(*out, rootOr(path))
			return
		}
		n := max(len(av), len(bv))
		for i := 0; i < n; i++ {
			child := fmt.Sprintf("%s[%d]", path, i)
			switch {
			case i >= len(av):
				*out = append(*out, child+" (added)")
			case i >= len(bv):
				*out = append(*out, child+" (removed)")
			default:
				diff(child, av[i], bv[i], depth+1, out)
			}
		}
	default:
		if !reflect.DeepEqual(a, b) {
			*out = append(*out, rootOr(path))
		}
	}
}

func rootOr(path string) string {
	if path == "" {
		return "$"
	}
	return path
}
