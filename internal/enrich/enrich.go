// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package enrich asks a completion capability to fill derived fields of a
// draft request. Only allow-listed fields may change; protected fields are
// always restored from the draft. Any failure falls back to the draft.
package enrich

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/pdiddy/smartbi/internal/completion"
	"github.com/pdiddy/smartbi/pkg/types"
)

// Defaults applied when the corresponding config field is unset.
const (
	DefaultTimeout     = 5 * time.Second
	DefaultPromptPath  = "prompts/json_completion_prompt.md"
	DefaultMaxAttempts = 1
	maxAttemptsCeiling = 2
)

// DefaultAllowedFields are the fields a completion may fill by default.
var DefaultAllowedFields = []string{
	"query_context.intent",
	"time_context",
	"metric_hints",
	"filter_hints",
	"missing_required_fields",
}

// DefaultProtectedFields are restored from the draft by default.
var DefaultProtectedFields = []string{
	"schema_version",
	"request_id",
	"request_context",
	"user_context",
	"query_context.raw_text",
}

// identityFields are protected regardless of configuration.
var identityFields = []string{"schema_version", "request_id", "request_context", "user_context"}

// Failure reasons reported through AttemptFailure.
const (
	ReasonCompletion       = "llm_or_parse_failure"
	ReasonMissingCompleted = "missing_completed"
	ReasonSchema           = "schema_validation_failure"
)

// AttemptFailure describes one failed enrichment attempt.
type AttemptFailure struct {
	Attempt int
	Reason  string
	Err     error
}

// PromptReadError reports an unreadable prompt template.
type PromptReadError struct {
	Path string
	Err  error
}

func (e *PromptReadError) Error() string {
	return fmt.Sprintf("reading prompt template %s: %v", e.Path, e.Err)
}

func (e *PromptReadError) Unwrap() error { return e.Err }

// Checker validates a candidate document.
type Checker interface {
	Validate(doc types.Document) (bool, []string)
}

// Enricher runs the bounded completion attempts. It holds no per-call
// state and is safe for concurrent use once constructed.
type Enricher struct {
	capability completion.Capability
	checker    Checker
	template   string
	timeout    time.Duration
	attempts   int
	allowed    []string
	protected  []string
	enabled    bool

	// OnFailure observes failed attempts. Nil means ignore.
	OnFailure func(AttemptFailure)
}

// New builds an Enricher. The prompt template is read only when
// enrichment is active (enabled with a non-nil capability).
func New(cfg types.EnrichmentConfig, capability completion.Capability, checker Checker) (*Enricher, error) {
	e := &Enricher{
		capability: capability,
		checker:    checker,
		timeout:    cfg.Timeout,
		attempts:   clampAttempts(cfg.MaxAttempts),
		allowed:    cfg.AllowedFields,
		protected:  withIdentity(cfg.ProtectedFields),
		enabled:    cfg.Enabled && capability != nil,
	}
	if e.timeout <= 0 {
		e.timeout = DefaultTimeout
	}
	if e.allowed == nil {
		e.allowed = DefaultAllowedFields
	}
	if !e.enabled {
		return e, nil
	}

	path := cfg.PromptPath
	if path == "" {
		path = DefaultPromptPath
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &PromptReadError{Path: path, Err: err}
	}
	e.template = string(data)
	return e, nil
}

// Enabled reports whether Enrich will call the capability.
func (e *Enricher) Enabled() bool { return e != nil && e.enabled }

// AllowedFields returns the effective allow-list.
func (e *Enricher) AllowedFields() []string { return append([]string(nil), e.allowed...) }

// ProtectedFields returns the effective protect-list, identity fields included.
func (e *Enricher) ProtectedFields() []string { return append([]string(nil), e.protected...) }

func clampAttempts(n int) int {
	if n < 1 {
		return DefaultMaxAttempts
	}
	if n > maxAttemptsCeiling {
		return maxAttemptsCeiling
	}
	return n
}

func withIdentity(fields []string) []string {
	if fields == nil {
		fields = DefaultProtectedFields
	}
	out := make([]string, 0, len(fields)+len(identityFields))
	seen := make(map[string]bool)
	for _, f := range append(append([]string(nil), identityFields...), fields...) {
		if !seen[f] {
			seen[f] = true
			out = append(out, f)
		}
	}
	return out
}

// Enrich returns the first candidate that passes validation, or draft
// itself when enrichment is disabled or every attempt fails. Enrich never
// returns an error and never panics on capability misbehavior.
func (e *Enricher) Enrich(ctx context.Context, draft types.Document, timeResolved *types.TimeRange, riskFlags []string) types.Document {
	if !e.Enabled() {
		return draft
	}

	prompt, err := e.buildPrompt(draft, timeResolved, riskFlags)
	if err != nil {
		e.fail(AttemptFailure{Attempt: 1, Reason: ReasonCompletion, Err: err})
		return draft
	}

	for attempt := 1; attempt <= e.attempts; attempt++ {
		if ctx.Err() != nil {
			e.fail(AttemptFailure{Attempt: attempt, Reason: ReasonCompletion, Err: ctx.Err()})
			break
		}
		candidate, reason, err := e.attempt(ctx, prompt, draft)
		if err == nil {
			return candidate
		}
		e.fail(AttemptFailure{Attempt: attempt, Reason: reason, Err: err})
	}
	return draft
}

func (e *Enricher) fail(f AttemptFailure) {
	if e.OnFailure != nil {
		e.OnFailure(f)
	}
}

type promptPayload struct {
	Draft           types.Document   `json:"draft"`
	TimeResolved    *types.TimeRange `json:"time_resolved"`
	RiskFlags       []string         `json:"risk_flags"`
	AllowedFields   []string         `json:"allowed_fields"`
	ProtectedFields []string         `json:"protected_fields"`
}

func (e *Enricher) buildPrompt(draft types.Document, timeResolved *types.TimeRange, riskFlags []string) (string, error) {
	if riskFlags == nil {
		riskFlags = []string{}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(promptPayload{
		Draft:           draft,
		TimeResolved:    timeResolved,
		RiskFlags:       riskFlags,
		AllowedFields:   e.allowed,
		ProtectedFields: e.protected,
	}); err != nil {
		return "", fmt.Errorf("encoding prompt payload: %w", err)
	}
	return e.template + "\n\nInput JSON:\n" + string(bytes.TrimSpace(buf.Bytes())), nil
}

func (e *Enricher) attempt(ctx context.Context, prompt string, draft types.Document) (types.Document, string, error) {
	raw, err := e.complete(ctx, prompt)
	if err != nil {
		return nil, ReasonCompletion, err
	}

	var resp map[string]any
	if err := json.Unmarshal([]byte(completion.StripCodeFences(raw)), &resp); err != nil {
		return nil, ReasonCompletion, fmt.Errorf("parsing completion: %w", err)
	}
	completed, ok := resp["completed"].(map[string]any)
	if !ok {
		return nil, ReasonMissingCompleted, errors.New("completion has no completed object")
	}

	candidate := Merge(draft, completed, e.allowed, e.protected)

	if e.checker != nil {
		if ok, errs := e.checker.Validate(candidate); !ok {
			return nil, ReasonSchema, fmt.Errorf("candidate invalid: %v", errs)
		}
	}
	if _, err := types.DecodeDocument(candidate); err != nil {
		return nil, ReasonSchema, err
	}
	return candidate, "", nil
}

// complete calls the capability under the configured deadline and turns a
// panic into an error.
func (e *Enricher) complete(ctx context.Context, prompt string) (out string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("completion panicked: %v", r)
		}
	}()
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()
	return e.capability.Complete(ctx, prompt, e.timeout)
}
