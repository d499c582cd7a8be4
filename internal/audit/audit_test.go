// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/smartbi/internal/normalize"
	"github.com/pdiddy/smartbi/pkg/types"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(types.AuditConfig{DBPath: filepath.Join(t.TempDir(), "nested", "audit.db")})
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func request(text string, intent types.Intent, flags ...string) *types.NormalizedRequest {
	return &types.NormalizedRequest{
		SchemaVersion:  types.SchemaVersion,
		RequestID:      "req-" + text,
		RequestContext: types.RequestContext{Channel: "cli", Timezone: "Asia/Macau"},
		QueryContext: types.QueryContext{
			RawText:  text,
			Language: types.LanguageZhTW,
			Intent:   intent,
		},
		RiskContext:           types.RiskContext{RiskFlags: flags},
		MetricHints:           []string{"metric.deposit.total_end_balance"},
		NormalizationTrace:    []string{},
		MissingRequiredFields: []string{},
	}
}

func seed(t *testing.T, s *Store) {
	t.Helper()
	ctx := context.Background()
	recs := []types.AuditRecord{
		NewRecord("昨天存款餘額", types.RequestMeta{RequestID: "r1"}, request("昨天存款餘額", types.IntentKPIQuery), nil),
		NewRecord("列出每個account_no的明細", types.RequestMeta{RequestID: "r2"},
			request("列出每個account_no的明細", types.IntentDetailRequest, types.FlagPIIRequested, types.FlagMissingTimeFilter), nil),
		NewRecord("交易量趨勢", types.RequestMeta{RequestID: "r3"}, nil,
			&normalize.NormalizationError{Errors: []string{"schema_version must be 1.0"}}),
	}
	for _, rec := range recs {
		_, err := s.Record(ctx, rec)
		require.NoError(t, err)
	}
}

func TestNewRecord(t *testing.T) {
	rec := NewRecord("q", types.RequestMeta{RequestID: "r1", Channel: "api"}, request("q", types.IntentTrend, "x"), nil)
	assert.True(t, rec.OK)
	assert.Equal(t, "r1", rec.RequestID)
	assert.Equal(t, "cli", rec.Channel)
	assert.Equal(t, types.IntentTrend, rec.Intent)
	assert.Equal(t, []string{"x"}, rec.RiskFlags)
	assert.Equal(t, "1.0", rec.Document["schema_version"])

	rec = NewRecord("q", types.RequestMeta{RequestID: "r2", Channel: "api"}, nil, &normalize.NormalizationError{Errors: []string{"a", "b"}})
	assert.False(t, rec.OK)
	assert.Equal(t, []string{"a", "b"}, rec.Errors)
	assert.Equal(t, "api", rec.Channel)
	assert.Nil(t, rec.Document)

	rec = NewRecord("q", types.RequestMeta{}, nil, errors.New("catalog unreadable"))
	assert.Equal(t, []string{"catalog unreadable"}, rec.Errors)
}

func TestList(t *testing.T) {
	s := testStore(t)
	seed(t, s)
	ctx := context.Background()

	tests := []struct {
		name string
		opts QueryOptions
		want []string
	}{
		{"all newest first", QueryOptions{}, []string{"r3", "r2", "r1"}},
		{"by intent", QueryOptions{Intent: types.IntentDetailRequest}, []string{"r2"}},
		{"by flag", QueryOptions{Flag: types.FlagPIIRequested}, []string{"r2"}},
		{"by unknown flag", QueryOptions{Flag: "nope"}, nil},
		{"by text", QueryOptions{Text: "存款"}, []string{"r1"}},
		{"failed only", QueryOptions{FailedOnly: true}, []string{"r3"}},
		{"limit", QueryOptions{MaxResults: 2}, []string{"r3", "r2"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.List(ctx, tt.opts)
			require.NoError(t, err)
			var ids []string
			for _, r := range got {
				ids = append(ids, r.RequestID)
			}
			if tt.want == nil {
				assert.Empty(t, ids)
				return
			}
			assert.Equal(t, tt.want, ids)
		})
	}
}

func TestList_RoundTripsFields(t *testing.T) {
	s := testStore(t)
	seed(t, s)

	got, err := s.List(context.Background(), QueryOptions{Intent: types.IntentDetailRequest})
	require.NoError(t, err)
	require.Len(t, got, 1)
	rec := got[0]
	assert.True(t, rec.OK)
	assert.Equal(t, types.LanguageZhTW, rec.Language)
	assert.Equal(t, []string{types.FlagPIIRequested, types.FlagMissingTimeFilter}, rec.RiskFlags)
	assert.Equal(t, []string{"metric.deposit.total_end_balance"}, rec.MetricHints)
	assert.Empty(t, rec.Errors)
	assert.False(t, rec.RecordedAt.IsZero())
	assert.Equal(t, "detail_request", rec.Document["query_context"].(map[string]any)["intent"])

	failed, err := s.List(context.Background(), QueryOptions{FailedOnly: true})
	require.NoError(t, err)
	require.Len(t, failed, 1)
	assert.Equal(t, []string{"schema_version must be 1.0"}, failed[0].Errors)
	assert.Nil(t, failed[0].Document)
}

func TestExport(t *testing.T) {
	s := testStore(t)
	seed(t, s)
	ctx := context.Background()

	var jbuf bytes.Buffer
	require.NoError(t, s.Export(ctx, &jbuf, FormatJSON, QueryOptions{}))
	var fromJSON []types.AuditRecord
	require.NoError(t, json.Unmarshal(jbuf.Bytes(), &fromJSON))
	require.Len(t, fromJSON, 3)
	assert.Equal(t, "r1", fromJSON[0].RequestID, "exports are oldest first")
	assert.Contains(t, jbuf.String(), "存款餘額")

	var ybuf bytes.Buffer
	require.NoError(t, s.Export(ctx, &ybuf, FormatYAML, QueryOptions{Flag: types.FlagPIIRequested}))
	var fromYAML []map[string]any
	require.NoError(t, yaml.Unmarshal(ybuf.Bytes(), &fromYAML))
	require.Len(t, fromYAML, 1)
	assert.Equal(t, "r2", fromYAML[0]["request_id"])

	var empty bytes.Buffer
	require.NoError(t, s.Export(ctx, &empty, FormatJSON, QueryOptions{Intent: types.IntentComparison}))
	assert.Equal(t, "[]\n", empty.String())

	assert.Error(t, s.Export(ctx, &empty, "csv", QueryOptions{}))
}
