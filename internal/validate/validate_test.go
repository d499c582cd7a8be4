// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package validate

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/smartbi/pkg/types"
)

var shippedContract = filepath.Join("..", "..", DefaultContractPath)

func validDoc() types.Document {
	return types.Document{
		"schema_version": "1.0",
		"request_id":     "req-1",
		"request_context": map[string]any{
			"request_ts": "2026-02-11T10:00:00+08:00",
			"timezone":   "Asia/Macau",
			"channel":    "api",
		},
		"user_context": map[string]any{
			"user_id":         "u-1",
			"role":            "analyst",
			"data_scope":      []any{"AGGREGATED_ONLY"},
			"allowed_regions": []any{"澳門半島"},
		},
		"query_context": map[string]any{
			"raw_text":        "昨天存款餘額",
			"normalized_text": "昨天存款餘額",
			"language":        "zh-TW",
			"intent":          "kpi_query",
		},
		"time_context": map[string]any{
			"original_phrase": "昨天",
			"resolved": map[string]any{
				"type":       "single_date",
				"start_date": "2026-02-10",
				"end_date":   "2026-02-10",
			},
		},
		"risk_context": map[string]any{
			"contains_sensitive_terms": false,
			"risk_flags":               []any{},
		},
		"metric_hints":            []any{"metric.deposit.total_end_balance"},
		"normalization_trace":     []any{},
		"missing_required_fields": []any{},
	}
}

func shipped(t *testing.T) *Validator {
	t.Helper()
	v, err := New(shippedContract)
	require.NoError(t, err)
	return v
}

func TestValidate_Valid(t *testing.T) {
	ok, errs := shipped(t).Validate(validDoc())
	assert.True(t, ok)
	assert.Empty(t, errs)
}

func TestValidate_Violations(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(types.Document)
		want   []string
	}{
		{
			name:   "missing schema_version",
			mutate: func(d types.Document) { delete(d, "schema_version") },
			want:   []string{"missing required key: schema_version", "schema_version must be 1.0"},
		},
		{
			name:   "wrong schema_version",
			mutate: func(d types.Document) { d["schema_version"] = "2.0" },
			want:   []string{"schema_version must be 1.0"},
		},
		{
			name:   "numeric schema_version",
			mutate: func(d types.Document) { d["schema_version"] = 1.0 },
			want:   []string{"schema_version must be 1.0"},
		},
		{
			name:   "request_context not object",
			mutate: func(d types.Document) { d["request_context"] = "x" },
			want:   []string{"request_context must be object"},
		},
		{
			name: "empty request_ts and timezone",
			mutate: func(d types.Document) {
				d["request_context"] = map[string]any{"request_ts": "", "timezone": nil}
			},
			want: []string{"request_context.request_ts is required", "request_context.timezone is required"},
		},
		{
			name:   "absent request_context",
			mutate: func(d types.Document) { delete(d, "request_context") },
			want: []string{
				"missing required key: request_context",
				"request_context.request_ts is required",
				"request_context.timezone is required",
			},
		},
		{
			name: "bad language and intent",
			mutate: func(d types.Document) {
				d["query_context"] = map[string]any{"language": "fr", "intent": "chitchat"}
			},
			want: []string{"query_context.language invalid", "query_context.intent invalid"},
		},
		{
			name:   "query_context null",
			mutate: func(d types.Document) { d["query_context"] = nil },
			want:   []string{"query_context must be object"},
		},
		{
			name:   "time_context array",
			mutate: func(d types.Document) { d["time_context"] = []any{} },
			want:   []string{"time_context must be object"},
		},
		{
			name: "resolved not object",
			mutate: func(d types.Document) {
				d["time_context"] = map[string]any{"resolved": "yesterday"}
			},
			want: []string{"time_context.resolved must be object|null"},
		},
		{
			name: "resolved bad fields",
			mutate: func(d types.Document) {
				d["time_context"] = map[string]any{"resolved": map[string]any{
					"type":       "fortnight",
					"start_date": "2026/02/10",
				}}
			},
			want: []string{
				"time_context.resolved.type invalid",
				"time_context.resolved.start_date invalid",
				"time_context.resolved.end_date invalid",
			},
		},
		{
			name: "null resolved is fine",
			mutate: func(d types.Document) {
				d["time_context"] = map[string]any{"original_phrase": nil, "resolved": nil}
			},
			want: nil,
		},
		{
			name:   "missing_required_fields not array",
			mutate: func(d types.Document) { d["missing_required_fields"] = "metric" },
			want:   []string{"missing_required_fields must be array"},
		},
	}

	v := shipped(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := validDoc()
			tt.mutate(doc)
			ok, errs := v.Validate(doc)
			if tt.want == nil {
				assert.True(t, ok)
				assert.Empty(t, errs)
				return
			}
			assert.False(t, ok)
			assert.Equal(t, tt.want, errs)
		})
	}
}

func TestValidate_Deterministic(t *testing.T) {
	doc := validDoc()
	doc["schema_version"] = "0.9"
	delete(doc, "metric_hints")
	c := Contract{Required: []string{"schema_version", "metric_hints"}}

	ok1, errs1 := Validate(doc, c)
	ok2, errs2 := Validate(doc, c)
	assert.Equal(t, ok1, ok2)
	assert.Equal(t, errs1, errs2)
	assert.Equal(t, []string{"missing required key: metric_hints", "schema_version must be 1.0"}, errs1)
}

func TestValidate_EmptyDocument(t *testing.T) {
	ok, errs := Validate(types.Document{}, Contract{})
	assert.False(t, ok)
	assert.Equal(t, []string{
		"schema_version must be 1.0",
		"request_context.request_ts is required",
		"request_context.timezone is required",
		"query_context.language invalid",
		"query_context.intent invalid",
	}, errs)
}

func TestLoadContract_Errors(t *testing.T) {
	dir := t.TempDir()

	_, err := LoadContract(filepath.Join(dir, "missing.json"))
	var cre *ContractReadError
	require.True(t, errors.As(err, &cre))
	assert.True(t, errors.Is(err, fs.ErrNotExist))

	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte("{not json"), 0o644))
	_, err = New(bad)
	assert.True(t, errors.As(err, &cre))
}

func TestLoadContract_Shipped(t *testing.T) {
	c, err := LoadContract(shippedContract)
	require.NoError(t, err)
	assert.Contains(t, c.Required, "schema_version")
	assert.Contains(t, c.Required, "missing_required_fields")
}
