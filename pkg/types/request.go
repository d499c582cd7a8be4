// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// SchemaVersion is the only NormalizedRequest version this module produces
// and accepts.
const SchemaVersion = "1.0"

// Language is the detected language of a query.
type Language string

const (
	LanguageZhTW Language = "zh-TW"
	LanguageZhCN Language = "zh-CN"
	LanguageEn   Language = "en"
)

// Intent classifies what the user is asking for.
type Intent string

const (
	IntentKPIQuery      Intent = "kpi_query"
	IntentComparison    Intent = "comparison"
	IntentTrend         Intent = "trend"
	IntentDetailRequest Intent = "detail_request"
	IntentOutOfScope    Intent = "out_of_scope"
)

// RangeKind is the shape of a resolved time window.
type RangeKind string

const (
	RangeSingleDate          RangeKind = "single_date"
	RangeDateRange           RangeKind = "date_range"
	RangeMonthToDate         RangeKind = "month_to_date"
	RangeYearToDate          RangeKind = "year_to_date"
	RangeLatestAvailableDate RangeKind = "latest_available_date"
)

// Missing field tags reported in MissingRequiredFields.
const (
	MissingTimeWindow = "time_window"
	MissingMetric     = "metric"
)

// Risk flag tags reported in RiskContext.RiskFlags.
const (
	FlagPIIRequested                 = "pii_requested"
	FlagAccountLevelDetailRequested  = "account_level_detail_requested"
	FlagCustomerLevelDetailRequested = "customer_level_detail_requested"
	FlagMissingTimeFilter            = "missing_time_filter"
	FlagCrossCurrencyAggregationRisk = "cross_currency_aggregation_risk"
)

// RequestContext is caller-supplied request metadata, copied through verbatim.
type RequestContext struct {
	RequestTS string `json:"request_ts" yaml:"request_ts"`
	Timezone  string `json:"timezone" yaml:"timezone"`
	Channel   string `json:"channel" yaml:"channel"`
}

// UserContext is the caller's identity and authorization scope.
type UserContext struct {
	UserID string `json:"user_id" yaml:"user_id"`
	Role   string `json:"role" yaml:"role"`

	// DataScope is a set of scope tags (e.g. "AGGREGATED_ONLY").
	DataScope []string `json:"data_scope" yaml:"data_scope"`

	// AllowedRegions lists region names in caller order.
	AllowedRegions []string `json:"allowed_regions" yaml:"allowed_regions"`
}

// RequestMeta is the caller-side input that seeds RequestContext and
// RequestID. Empty Timezone and Channel fall back to Asia/Macau and api.
type RequestMeta struct {
	RequestID string `json:"request_id" yaml:"request_id"`
	RequestTS string `json:"request_ts" yaml:"request_ts"`
	Timezone  string `json:"timezone" yaml:"timezone"`
	Channel   string `json:"channel" yaml:"channel"`
}

// QueryContext holds the text-derived fields of a request.
type QueryContext struct {
	RawText        string   `json:"raw_text" yaml:"raw_text"`
	NormalizedText string   `json:"normalized_text" yaml:"normalized_text"`
	Language       Language `json:"language" yaml:"language"`
	Intent         Intent   `json:"intent" yaml:"intent"`
}

// TimeRange is a resolved calendar window. Dates are YYYY-MM-DD.
type TimeRange struct {
	Type      RangeKind `json:"type" yaml:"type"`
	StartDate string    `json:"start_date" yaml:"start_date"`
	EndDate   string    `json:"end_date" yaml:"end_date"`
}

// TimeContext is the time window derived from the query, if any.
type TimeContext struct {
	OriginalPhrase *string    `json:"original_phrase" yaml:"original_phrase"`
	Resolved       *TimeRange `json:"resolved" yaml:"resolved"`
}

// RiskContext summarizes policy-relevant properties of the query.
type RiskContext struct {
	ContainsSensitiveTerms bool     `json:"contains_sensitive_terms" yaml:"contains_sensitive_terms"`
	RiskFlags              []string `json:"risk_flags" yaml:"risk_flags"`
}

// NormalizedRequest is the pipeline output consumed by the query engine.
// SchemaVersion, RequestID, RequestContext and UserContext are fixed once
// the rule engine has produced the draft.
type NormalizedRequest struct {
	SchemaVersion  string         `json:"schema_version" yaml:"schema_version"`
	RequestID      string         `json:"request_id" yaml:"request_id"`
	RequestContext RequestContext `json:"request_context" yaml:"request_context"`
	UserContext    UserContext    `json:"user_context" yaml:"user_context"`
	QueryContext   QueryContext   `json:"query_context" yaml:"query_context"`
	TimeContext    TimeContext    `json:"time_context" yaml:"time_context"`
	RiskContext    RiskContext    `json:"risk_context" yaml:"risk_context"`

	// MetricHints lists catalog metric ids, best first.
	MetricHints []string `json:"metric_hints" yaml:"metric_hints"`

	// FilterHints is only populated by LLM enrichment; its element shape is
	// left to the completion model.
	FilterHints []any `json:"filter_hints,omitempty" yaml:"filter_hints,omitempty"`

	// NormalizationTrace records which rules fired, for diagnostics only.
	NormalizationTrace []string `json:"normalization_trace" yaml:"normalization_trace"`

	MissingRequiredFields []string `json:"missing_required_fields" yaml:"missing_required_fields"`
}

// Document is the untyped JSON form of a request: objects are
// map[string]any, arrays []any, and leaves string, float64, bool or nil.
type Document = map[string]any

// Document converts the request to its untyped JSON form.
func (r *NormalizedRequest) Document() (Document, error) {
	data, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("unmarshaling request document: %w", err)
	}
	return doc, nil
}

// DecodeDocument converts an untyped document back into a NormalizedRequest.
// Unknown keys are ignored; mistyped known keys are an error.
func DecodeDocument(doc Document) (*NormalizedRequest, error) {
	data, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("marshaling document: %w", err)
	}
	var r NormalizedRequest
	if err := json.NewDecoder(bytes.NewReader(data)).Decode(&r); err != nil {
		return nil, fmt.Errorf("decoding document: %w", err)
	}
	return &r, nil
}
