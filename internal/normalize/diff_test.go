// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDiff(t *testing.T) {
	tests := []struct {
		name string
		a, b any
		want []string
	}{
		{"equal", map[string]any{"a": 1.0}, map[string]any{"a": 1.0}, nil},
		{"leaf", map[string]any{"a": 1.0}, map[string]any{"a": 2.0}, []string{"a"}},
		{"nested", map[string]any{"q": map[string]any{"intent": "x", "lang": "en"}},
			map[string]any{"q": map[string]any{"intent": "y", "lang": "en"}}, []string{"q.intent"}},
		{"added and removed", map[string]any{"b": 1.0, "c": 1.0}, map[string]any{"a": 1.0, "b": 1.0},
			[]string{"a (added)", "c (removed)"}},
		{"array", map[string]any{"h": []any{"a", "b"}}, map[string]any{"h": []any{"a", "c", "d"}},
			[]string{"h[1]", "h[2] (added)"}},
		{"array shrink", []any{1.0, 2.0}, []any{1.0}, []string{"[1] (removed)"}},
		{"type mismatch", map[string]any{"r": nil}, map[string]any{"r": map[string]any{"type": "x"}}, []string{"r"}},
		{"root leaf", "a", "b", []string{"$"}},
		{"sorted keys", map[string]any{"z": 1.0, "a": 1.0, "m": 1.0}, map[string]any{"z": 2.0, "a": 2.0, "m": 2.0},
			[]string{"a", "m", "z"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Diff(tt.a, tt.b))
		})
	}
}

func TestDiff_DepthBound(t *testing.T) {
	deep := func(leaf any) any {
		var v any = leaf
		for i := 0; i < 100; i++ {
			v = map[string]any{"n": v}
		}
		return v
	}
	got := Diff(deep(1.0), deep(2.0))
	assert.Len(t, got, 1)
	assert.Len(t, Diff(deep(1.0), deep(1.0)), 0)
}
