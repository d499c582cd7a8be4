// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package normalize runs the full pipeline: rule-based draft, optional
// enrichment, and contract validation.
package normalize

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/pdiddy/smartbi/pkg/types"
)

// Builder produces the rule-based draft.
type Builder interface {
	Build(rawText string, user types.UserContext, meta types.RequestMeta, ref time.Time) (*types.NormalizedRequest, error)
}

// Enricher fills derived fields; it must return the draft on any failure.
type Enricher interface {
	Enrich(ctx context.Context, draft types.Document, timeResolved *types.TimeRange, riskFlags []string) types.Document
}

// Checker validates the final document.
type Checker interface {
	Validate(doc types.Document) (bool, []string)
}

// Pipeline wires the stages. Enricher may be nil.
type Pipeline struct {
	Rules     Builder
	Enricher  Enricher
	Validator Checker
}

// Input is one question plus caller context.
type Input struct {
	Text    string
	User    types.UserContext
	Request types.RequestMeta

	// Reference anchors relative time phrases. Zero means now.
	Reference time.Time
}

// Options controls diagnostics.
type Options struct {
	// Debug receives stage snapshots and the build/enrich diff when non-nil.
	Debug io.Writer
}

// NormalizationError reports a document that failed validation.
type NormalizationError struct {
	Errors []string
}

func (e *NormalizationError) Error() string {
	return strings.Join(e.Errors, "; ")
}

const debugPrefix = "[normalize]"

// Normalize builds, enriches and validates a request.
func (p *Pipeline) Normalize(ctx context.Context, in Input, opts Options) (*types.NormalizedRequest, error) {
	draft, err := p.Rules.Build(in.Text, in.User, in.Request, in.Reference)
	if err != nil {
		return nil, fmt.Errorf("building draft: %w", err)
	}
	doc, err := draft.Document()
	if err != nil {
		return nil, err
	}
	snapshot(opts.Debug, "build", doc)

	enriched := doc
	if p.Enricher != nil {
		enriched = p.Enricher.Enrich(ctx, doc, draft.TimeContext.Resolved, draft.RiskContext.RiskFlags)
	}
	if opts.Debug != nil {
		snapshot(opts.Debug, "enrich", enriched)
		paths := Diff(doc, enriched)
		if paths == nil {
			paths = []string{}
		}
		fmt.Fprintf(opts.Debug, "%s build -> enrich diff_paths: %s\n", debugPrefix, marshal(paths))
	}

	ok, errs := p.Validator.Validate(enriched)
	if errs == nil {
		errs = []string{}
	}
	snapshot(opts.Debug, "validate", map[string]any{"ok": ok, "errors": errs, "document": enriched})
	if !ok {
		return nil, &NormalizationError{Errors: errs}
	}

	req, err := types.DecodeDocument(enriched)
	if err != nil {
		return nil, &NormalizationError{Errors: []string{err.Error()}}
	}
	return req, nil
}

func snapshot(w io.Writer, stage string, v any) {
	if w == nil {
		return
	}
	fmt.Fprintf(w, "%s %s JSON:\n%s\n", debugPrefix, stage, marshalIndent(v))
}

func marshal(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(data)
}

func marshalIndent(v any) string {
	var b strings.Builder
	enc := json.NewEncoder(&b)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Sprintf("%v", v)
	}
	return strings.TrimRight(b.String(), "\n")
}
