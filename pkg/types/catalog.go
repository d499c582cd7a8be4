// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// MetricCatalogEntry is one metric from the semantic catalog.
type MetricCatalogEntry struct {
	// MetricKey is the block key in the catalog file.
	MetricKey string `json:"metric_key" yaml:"metric_key"`

	// MetricID is the identifier emitted as a metric hint. It defaults to
	// MetricKey and is replaced by a non-empty ConceptID.
	MetricID string `json:"metric_id" yaml:"metric_id"`

	ConceptID string `json:"concept_id" yaml:"concept_id"`

	// Aliases lists alternate surface forms in catalog order.
	Aliases []string `json:"aliases" yaml:"aliases"`

	NameZh       string `json:"name_zh" yaml:"name_zh"`
	NameEn       string `json:"name_en" yaml:"name_en"`
	DefinitionZh string `json:"definition_zh" yaml:"definition_zh"`
}

// MetricScore pairs a metric id with its retrieval score.
type MetricScore struct {
	MetricID string `json:"metric_id" yaml:"metric_id"`
	Score    int    `json:"score" yaml:"score"`
}
