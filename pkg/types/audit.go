// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// AuditRecord is one normalization as stored in the audit log.
type AuditRecord struct {
	ID          int64     `json:"id" yaml:"id"`
	RequestID   string    `json:"request_id" yaml:"request_id"`
	RecordedAt  time.Time `json:"recorded_at" yaml:"recorded_at"`
	Channel     string    `json:"channel" yaml:"channel"`
	RawText     string    `json:"raw_text" yaml:"raw_text"`
	Intent      Intent    `json:"intent,omitempty" yaml:"intent,omitempty"`
	Language    Language  `json:"language,omitempty" yaml:"language,omitempty"`
	RiskFlags   []string  `json:"risk_flags" yaml:"risk_flags"`
	MetricHints []string  `json:"metric_hints" yaml:"metric_hints"`

	// OK is false when validation rejected the request; Errors then holds
	// the validator messages.
	OK     bool     `json:"ok" yaml:"ok"`
	Errors []string `json:"errors,omitempty" yaml:"errors,omitempty"`

	Document Document `json:"document,omitempty" yaml:"document,omitempty"`
}
