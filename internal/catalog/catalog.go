// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package catalog loads the semantic metric catalog and ranks its entries
// against query text.
package catalog

import (
	"fmt"
	"os"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/smartbi/pkg/types"
)

// DefaultPath is where the catalog lives relative to the working directory.
const DefaultPath = "semantic/metrics.yaml"

// ReadError reports a missing or unreadable catalog file. The catalog is
// mandatory, so callers propagate it.
type ReadError struct {
	Path string
	Err  error
}

func (e *ReadError) Error() string {
	return fmt.Sprintf("reading metric catalog %s: %v", e.Path, e.Err)
}

func (e *ReadError) Unwrap() error { return e.Err }

// Load reads the catalog at path and returns its metrics in file order.
//
// A metric block is any key nested one level under a top-level section
// whose value is a mapping:
//
//	metrics:
//	  deposit_total_end_balance:
//	    concept_id: "metric.deposit.total_end_balance"
//	    aliases:
//	      - "存款餘額"
//
// Load reads the file on every call; nothing is cached.
func Load(path string) ([]types.MetricCatalogEntry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &ReadError{Path: path, Err: err}
	}
	return Parse(data)
}

// Parse decodes catalog YAML already in memory.
func Parse(data []byte) ([]types.MetricCatalogEntry, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing metric catalog: %w", err)
	}
	if len(doc.Content) == 0 {
		return nil, nil
	}
	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("parsing metric catalog: top level is not a mapping")
	}

	var entries []types.MetricCatalogEntry
	for i := 0; i+1 < len(root.Content); i += 2 {
		section := root.Content[i+1]
		if section.Kind != yaml.MappingNode {
			continue
		}
		for j := 0; j+1 < len(section.Content); j += 2 {
			key, body := section.Content[j], section.Content[j+1]
			if body.Kind != yaml.MappingNode {
				continue
			}
			entries = append(entries, parseEntry(key.Value, body))
		}
	}
	return entries, nil
}

func parseEntry(key string, body *yaml.Node) types.MetricCatalogEntry {
	e := types.MetricCatalogEntry{
		MetricKey: key,
		MetricID:  key,
		ConceptID: key,
		Aliases:   []string{},
	}

	for i := 0; i+1 < len(body.Content); i += 2 {
		field, val := body.Content[i].Value, body.Content[i+1]
		switch field {
		case "concept_id":
			if val.Kind == yaml.ScalarNode && val.Value != "" {
				e.ConceptID = val.Value
				e.MetricID = val.Value
			}
		case "name_zh":
			e.NameZh = scalar(val)
		case "name_en":
			e.NameEn = scalar(val)
		case "definition_zh":
			e.DefinitionZh = scalar(val)
		case "aliases":
			if val.Kind != yaml.SequenceNode {
				continue
			}
			for _, a := range val.Content {
				if a.Kind == yaml.ScalarNode && a.Value != "" {
					e.Aliases = append(e.Aliases, a.Value)
				}
			}
		}
	}
	return e
}

func scalar(n *yaml.Node) string {
	if n.Kind != yaml.ScalarNode {
		return ""
	}
	return n.Value
}
