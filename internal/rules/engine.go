// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package rules builds the draft NormalizedRequest from raw query text with
// deterministic keyword rules.
package rules

import (
	"fmt"
	"time"

	"github.com/pdiddy/smartbi/internal/catalog"
	"github.com/pdiddy/smartbi/internal/timephrase"
	"github.com/pdiddy/smartbi/pkg/types"
)

const (
	defaultTimezone = "Asia/Macau"
	defaultChannel  = "api"
)

// Engine assembles drafts. The zero value reads catalog.DefaultPath and
// returns catalog.DefaultTopK hints.
type Engine struct {
	// CatalogPath is the metric catalog, re-read on every Build.
	CatalogPath string

	// TopK caps the number of metric hints.
	TopK int
}

// Build runs the rule stages over rawText and returns the draft request.
// The only error is a catalog read or parse failure.
func (e *Engine) Build(rawText string, user types.UserContext, meta types.RequestMeta, ref time.Time) (*types.NormalizedRequest, error) {
	catalogPath := e.CatalogPath
	if catalogPath == "" {
		catalogPath = catalog.DefaultPath
	}

	normalized := NormalizeText(rawText)
	language := DetectLanguage(normalized)
	intent := DetectIntent(normalized)

	tr := timephrase.Parse(normalized, ref)

	entries, err := catalog.Load(catalogPath)
	if err != nil {
		return nil, err
	}
	hints := catalog.Retrieve(normalized, entries, e.TopK)

	risk := AssessRisk(normalized, tr.Matched())

	var missing []string
	trace := []string{}

	if tr.OriginalPhrase != nil {
		trace = append(trace, fmt.Sprintf("R3:time_phrase=%s", *tr.OriginalPhrase))
	} else {
		missing = append(missing, types.MissingTimeWindow)
	}

	for _, h := range hints {
		trace = append(trace, fmt.Sprintf("R7:metric_hint=%s", h))
	}
	if len(hints) == 0 {
		missing = append(missing, types.MissingMetric)
	}

	if risk.ContainsSensitiveTerms {
		trace = append(trace, "R5:sensitive_term_detected")
	}

	timezone := meta.Timezone
	if timezone == "" {
		timezone = defaultTimezone
	}
	channel := meta.Channel
	if channel == "" {
		channel = defaultChannel
	}

	return &types.NormalizedRequest{
		SchemaVersion: types.SchemaVersion,
		RequestID:     meta.RequestID,
		RequestContext: types.RequestContext{
			RequestTS: meta.RequestTS,
			Timezone:  timezone,
			Channel:   channel,
		},
		UserContext: types.UserContext{
			UserID:         user.UserID,
			Role:           user.Role,
			DataScope:      copyStrings(user.DataScope),
			AllowedRegions: copyStrings(user.AllowedRegions),
		},
		QueryContext: types.QueryContext{
			RawText:        rawText,
			NormalizedText: normalized,
			Language:       language,
			Intent:         intent,
		},
		TimeContext: types.TimeContext{
			OriginalPhrase: tr.OriginalPhrase,
			Resolved:       tr.Resolved,
		},
		RiskContext:           risk,
		MetricHints:           hints,
		NormalizationTrace:    trace,
		MissingRequiredFields: dedupe(missing),
	}, nil
}

func copyStrings(in []string) []string {
	out := make([]string, len(in))
	copy(out, in)
	return out
}
