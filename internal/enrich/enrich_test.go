// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package enrich

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/smartbi/internal/completion"
	"github.com/pdiddy/smartbi/internal/validate"
	"github.com/pdiddy/smartbi/pkg/types"
)

var testContract = validate.Contract{Required: []string{
	"schema_version", "request_id", "request_context", "user_context",
	"query_context", "time_context", "risk_context", "metric_hints",
	"normalization_trace", "missing_required_fields",
}}

// scriptedCapability replies with outputs in order, repeating the last.
type scriptedCapability struct {
	outputs []string
	errs    []error
	prompts []string
}

func (s *scriptedCapability) Complete(_ context.Context, prompt string, _ time.Duration) (string, error) {
	i := len(s.prompts)
	s.prompts = append(s.prompts, prompt)
	if i >= len(s.outputs) {
		i = len(s.outputs) - 1
	}
	var err error
	if i < len(s.errs) {
		err = s.errs[i]
	}
	return s.outputs[i], err
}

func writePrompt(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "prompt.md")
	require.NoError(t, os.WriteFile(path, []byte("Fill the fields."), 0o644))
	return path
}

func testDraft(t *testing.T) types.Document {
	t.Helper()
	r := &types.NormalizedRequest{
		SchemaVersion: types.SchemaVersion,
		RequestID:     "req-1",
		RequestContext: types.RequestContext{
			RequestTS: "2026-02-11T10:00:00+08:00",
			Timezone:  "Asia/Macau",
			Channel:   "api",
		},
		UserContext: types.UserContext{
			UserID:         "u1",
			Role:           "analyst",
			DataScope:      []string{"AGGREGATED_ONLY"},
			AllowedRegions: []string{"澳門半島"},
		},
		QueryContext: types.QueryContext{
			RawText:        "存款餘額",
			NormalizedText: "存款餘額",
			Language:       types.LanguageZhTW,
			Intent:         types.IntentKPIQuery,
		},
		RiskContext:           types.RiskContext{RiskFlags: []string{types.FlagMissingTimeFilter}},
		MetricHints:           []string{"metric.deposit.total_end_balance"},
		NormalizationTrace:    []string{"R7:metric_hint=metric.deposit.total_end_balance"},
		MissingRequiredFields: []string{types.MissingTimeWindow},
	}
	doc, err := r.Document()
	require.NoError(t, err)
	return doc
}

func newEnricher(t *testing.T, c completion.Capability, mutate func(*types.EnrichmentConfig)) (*Enricher, *[]AttemptFailure) {
	t.Helper()
	cfg := types.EnrichmentConfig{Enabled: true, PromptPath: writePrompt(t)}
	if mutate != nil {
		mutate(&cfg)
	}
	e, err := New(cfg, c, validate.NewWithContract(testContract))
	require.NoError(t, err)
	var failures []AttemptFailure
	e.OnFailure = func(f AttemptFailure) { failures = append(failures, f) }
	return e, &failures
}

const timeFill = `{"completed":{"time_context":{"original_phrase":"昨天","resolved":{"type":"single_date","start_date":"2026-02-10","end_date":"2026-02-10"}},"missing_required_fields":[]}}`

func TestEnrich_FillsAllowedFields(t *testing.T) {
	c := &scriptedCapability{outputs: []string{timeFill}}
	e, failures := newEnricher(t, c, nil)

	draft := testDraft(t)
	out := e.Enrich(context.Background(), draft, nil, []string{types.FlagMissingTimeFilter})

	assert.Empty(t, *failures)
	resolved := out["time_context"].(map[string]any)["resolved"].(map[string]any)
	assert.Equal(t, "2026-02-10", resolved["start_date"])
	assert.Equal(t, []any{}, out["missing_required_fields"])
	assert.Nil(t, draft["time_context"].(map[string]any)["resolved"], "draft must not be mutated")

	require.Len(t, c.prompts, 1)
	prompt := c.prompts[0]
	assert.True(t, strings.HasPrefix(prompt, "Fill the fields.\n\nInput JSON:\n{"))
	assert.Contains(t, prompt, `"time_resolved":null`)
	assert.Contains(t, prompt, `"risk_flags":["missing_time_filter"]`)
	assert.Contains(t, prompt, `"allowed_fields":["query_context.intent","time_context","metric_hints","filter_hints","missing_required_fields"]`)
	assert.Contains(t, prompt, "存款餘額", "prompt must not escape non-ASCII")
}

func TestEnrich_NonJSONReturnsDraft(t *testing.T) {
	c := &scriptedCapability{outputs: []string{"sorry, I cannot help with that"}}
	e, failures := newEnricher(t, c, nil)

	draft := testDraft(t)
	before := DeepCopy(draft)
	out := e.Enrich(context.Background(), draft, nil, nil)

	assert.Equal(t, before, out)
	require.Len(t, *failures, 1)
	assert.Equal(t, ReasonCompletion, (*failures)[0].Reason)
	assert.Equal(t, 1, (*failures)[0].Attempt)
}

func TestEnrich_CodeFencedResponse(t *testing.T) {
	c := &scriptedCapability{outputs: []string{"```json\n" + timeFill + "\n```"}}
	e, failures := newEnricher(t, c, nil)

	out := e.Enrich(context.Background(), testDraft(t), nil, nil)
	assert.Empty(t, *failures)
	assert.NotNil(t, out["time_context"].(map[string]any)["resolved"])
}

func TestEnrich_MissingCompleted(t *testing.T) {
	c := &scriptedCapability{outputs: []string{`{"answer":{}}`}}
	e, failures := newEnricher(t, c, nil)

	draft := testDraft(t)
	out := e.Enrich(context.Background(), draft, nil, nil)
	assert.Equal(t, testDraft(t), out)
	require.Len(t, *failures, 1)
	assert.Equal(t, ReasonMissingCompleted, (*failures)[0].Reason)
}

func TestEnrich_ProtectedFieldsWin(t *testing.T) {
	resp := `{"completed":{"request_id":"hijack","user_context":{"user_id":"root"},"schema_version":"9.9","query_context":{"raw_text":"changed","normalized_text":"存款餘額","language":"zh-TW","intent":"trend"}}}`
	c := &scriptedCapability{outputs: []string{resp}}
	e, failures := newEnricher(t, c, func(cfg *types.EnrichmentConfig) {
		cfg.AllowedFields = []string{"request_id", "user_context", "schema_version", "query_context"}
	})

	draft := testDraft(t)
	out := e.Enrich(context.Background(), draft, nil, nil)

	assert.Empty(t, *failures)
	assert.Equal(t, "req-1", out["request_id"])
	assert.Equal(t, "1.0", out["schema_version"])
	assert.Equal(t, draft["user_context"], out["user_context"])
	qc := out["query_context"].(map[string]any)
	assert.Equal(t, "存款餘額", qc["raw_text"])
	assert.Equal(t, "trend", qc["intent"])
}

func TestEnrich_NonAllowedFieldsIgnored(t *testing.T) {
	resp := `{"completed":{"risk_context":{"contains_sensitive_terms":true,"risk_flags":[]},"query_context":{"intent":"comparison","language":"en"}}}`
	c := &scriptedCapability{outputs: []string{resp}}
	e, _ := newEnricher(t, c, nil)

	draft := testDraft(t)
	out := e.Enrich(context.Background(), draft, nil, nil)

	assert.Equal(t, draft["risk_context"], out["risk_context"])
	qc := out["query_context"].(map[string]any)
	assert.Equal(t, "comparison", qc["intent"])
	assert.Equal(t, "zh-TW", qc["language"])
}

func TestEnrich_InvalidCandidateRetries(t *testing.T) {
	bad := `{"completed":{"query_context":{"intent":"gossip"}}}`
	good := `{"completed":{"query_context":{"intent":"trend"}}}`
	c := &scriptedCapability{outputs: []string{bad, good}}
	e, failures := newEnricher(t, c, func(cfg *types.EnrichmentConfig) { cfg.MaxAttempts = 2 })

	out := e.Enrich(context.Background(), testDraft(t), nil, nil)

	require.Len(t, *failures, 1)
	assert.Equal(t, ReasonSchema, (*failures)[0].Reason)
	assert.Equal(t, "trend", out["query_context"].(map[string]any)["intent"])
	assert.Len(t, c.prompts, 2)
}

func TestEnrich_AttemptsClamped(t *testing.T) {
	c := &scriptedCapability{outputs: []string{""}, errs: []error{errors.New("down")}}
	e, failures := newEnricher(t, c, func(cfg *types.EnrichmentConfig) { cfg.MaxAttempts = 10 })

	draft := testDraft(t)
	out := e.Enrich(context.Background(), draft, nil, nil)
	assert.Equal(t, testDraft(t), out)
	assert.Len(t, c.prompts, 2)
	assert.Len(t, *failures, 2)
	assert.Equal(t, 2, (*failures)[1].Attempt)
}

func TestEnrich_MistypedCandidateRejected(t *testing.T) {
	c := &scriptedCapability{outputs: []string{`{"completed":{"metric_hints":"metric.deposit.total_end_balance"}}`}}
	e, failures := newEnricher(t, c, nil)

	out := e.Enrich(context.Background(), testDraft(t), nil, nil)
	assert.Equal(t, testDraft(t), out)
	require.Len(t, *failures, 1)
	assert.Equal(t, ReasonSchema, (*failures)[0].Reason)
}

func TestEnrich_PanicRecovered(t *testing.T) {
	c := completion.Func(func(context.Context, string, time.Duration) (string, error) {
		panic("boom")
	})
	e, failures := newEnricher(t, c, nil)

	out := e.Enrich(context.Background(), testDraft(t), nil, nil)
	assert.Equal(t, testDraft(t), out)
	require.Len(t, *failures, 1)
	assert.Contains(t, (*failures)[0].Err.Error(), "panicked")
}

func TestEnrich_TimeoutAppliedToContext(t *testing.T) {
	c := completion.Func(func(ctx context.Context, _ string, timeout time.Duration) (string, error) {
		assert.Equal(t, 50*time.Millisecond, timeout)
		<-ctx.Done()
		return "", ctx.Err()
	})
	e, failures := newEnricher(t, c, func(cfg *types.EnrichmentConfig) { cfg.Timeout = 50 * time.Millisecond })

	out := e.Enrich(context.Background(), testDraft(t), nil, nil)
	assert.Equal(t, testDraft(t), out)
	require.Len(t, *failures, 1)
	assert.ErrorIs(t, (*failures)[0].Err, context.DeadlineExceeded)
}

func TestEnrich_Disabled(t *testing.T) {
	c := &scriptedCapability{outputs: []string{timeFill}}

	e, err := New(types.EnrichmentConfig{Enabled: false, PromptPath: "/does/not/exist"}, c, nil)
	require.NoError(t, err)
	assert.False(t, e.Enabled())
	draft := testDraft(t)
	assert.Equal(t, draft, e.Enrich(context.Background(), draft, nil, nil))

	e, err = New(types.EnrichmentConfig{Enabled: true}, nil, nil)
	require.NoError(t, err)
	assert.False(t, e.Enabled())
	assert.Empty(t, c.prompts)
}

func TestNew_PromptReadError(t *testing.T) {
	_, err := New(types.EnrichmentConfig{Enabled: true, PromptPath: filepath.Join(t.TempDir(), "missing.md")},
		&scriptedCapability{outputs: []string{""}}, nil)
	var pre *PromptReadError
	require.ErrorAs(t, err, &pre)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestNew_IdentityAlwaysProtected(t *testing.T) {
	e, err := New(types.EnrichmentConfig{ProtectedFields: []string{"metric_hints"}}, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"schema_version", "request_id", "request_context", "user_context", "metric_hints"}, e.ProtectedFields())
	assert.Equal(t, DefaultAllowedFields, e.AllowedFields())
}

// Protected paths keep their draft value and only allowed paths change,
// whatever the completion returns.
func TestMerge_Invariants(t *testing.T) {
	draft := testDraft(t)
	responses := []types.Document{
		{},
		{"request_id": "x", "schema_version": "2.0", "metric_hints": []any{"a"}},
		{"query_context": map[string]any{"raw_text": "y", "intent": "trend"}, "request_context": "flat"},
		{"user_context": nil, "time_context": nil, "extra": true},
		{"missing_required_fields": []any{}, "risk_context": map[string]any{}},
	}
	allowLists := [][]string{
		DefaultAllowedFields,
		{"request_id", "query_context", "metric_hints"},
		{"user_context", "extra", "time_context"},
		{},
	}
	protected := withIdentity(DefaultProtectedFields)

	for _, resp := range responses {
		for _, allowed := range allowLists {
			out := Merge(draft, resp, allowed, protected)
			for _, p := range protected {
				want, wantOK := lookup(draft, p)
				got, gotOK := lookup(out, p)
				assert.Equal(t, wantOK, gotOK, p)
				assert.Equal(t, want, got, p)
			}
			for key, v := range out {
				if dv, ok := draft[key]; ok && assert.ObjectsAreEqual(dv, v) {
					continue
				}
				assert.True(t, coveredBy(key, allowed), "changed %s not allowed by %v", key, allowed)
			}
		}
	}
}

func coveredBy(key string, allowed []string) bool {
	for _, a := range allowed {
		if a == key || strings.HasPrefix(a, key+".") {
			return true
		}
	}
	return false
}

func TestDeepCopy(t *testing.T) {
	src := map[string]any{"a": []any{map[string]any{"b": 1.0}}}
	cp := DeepCopy(src).(map[string]any)
	cp["a"].([]any)[0].(map[string]any)["b"] = 2.0
	assert.Equal(t, 1.0, src["a"].([]any)[0].(map[string]any)["b"])
}
