// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package catalog

import (
	"sort"
	"strings"

	"github.com/pdiddy/smartbi/pkg/types"
)

// DefaultTopK is the number of hints returned when topK is not positive.
const DefaultTopK = 3

// Score ranks every entry against text and returns the non-zero scores,
// highest first. Ties keep catalog order.
//
// Each whitespace token of the lowercased text earns +1 when it is a
// substring of any name, definition, or alias. Each alias found anywhere in
// the text earns +2, which covers Chinese queries without token boundaries.
func Score(text string, entries []types.MetricCatalogEntry) []types.MetricScore {
	lowered := strings.ToLower(text)
	tokens := strings.Fields(lowered)

	var scored []types.MetricScore
	for _, e := range entries {
		fields := make([]string, 0, 3+len(e.Aliases))
		for _, f := range []string{e.NameZh, e.NameEn, e.DefinitionZh} {
			if f != "" {
				fields = append(fields, strings.ToLower(f))
			}
		}
		aliases := make([]string, 0, len(e.Aliases))
		for _, a := range e.Aliases {
			if a != "" {
				aliases = append(aliases, strings.ToLower(a))
			}
		}
		fields = append(fields, aliases...)

		score := 0
		for _, tok := range tokens {
			if containsAny(fields, tok) {
				score++
			}
		}
		for _, a := range aliases {
			if strings.Contains(lowered, a) {
				score += 2
			}
		}

		if score > 0 {
			scored = append(scored, types.MetricScore{MetricID: e.MetricID, Score: score})
		}
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})
	return scored
}

// Retrieve returns up to topK metric ids for text, best first.
func Retrieve(text string, entries []types.MetricCatalogEntry, topK int) []string {
	if topK <= 0 {
		topK = DefaultTopK
	}
	scored := Score(text, entries)
	if len(scored) > topK {
		scored = scored[:topK]
	}
	ids := make([]string, 0, len(scored))
	for _, s := range scored {
		ids = append(ids, s.MetricID)
	}
	return ids
}

func containsAny(fields []string, tok string) bool {
	for _, f := range fields {
		if strings.Contains(f, tok) {
			return true
		}
	}
	return false
}
