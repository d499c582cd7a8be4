// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package rules

import (
	"strings"

	"github.com/pdiddy/smartbi/pkg/types"
)

var (
	sensitiveTerms  = []string{"account_no", "full_name", "id_no", "phone", "email", "客戶明細", "帳戶明細", "明細"}
	accountDetail   = []string{"帳戶明細", "account detail", "account_id"}
	customerDetail  = []string{"客戶明細", "customer detail", "customer_id"}
	aggregateTerms  = []string{"總餘額", "總和", "total"}
	currencyMarkers = []string{"mop", "hkd", "幣別", "currency"}
)

// AssessRisk flags policy-relevant properties of normalized text. Every
// check runs independently; flags keep check order without duplicates.
func AssessRisk(text string, timeResolved bool) types.RiskContext {
	lowered := strings.ToLower(text)
	var flags []string

	if containsAny(lowered, sensitiveTerms) {
		flags = append(flags, types.FlagPIIRequested)
	}
	if containsAny(lowered, accountDetail) {
		flags = append(flags, types.FlagAccountLevelDetailRequested)
	}
	if containsAny(lowered, customerDetail) {
		flags = append(flags, types.FlagCustomerLevelDetailRequested)
	}
	if !timeResolved {
		flags = append(flags, types.FlagMissingTimeFilter)
	}
	if containsAny(lowered, aggregateTerms) && !containsAny(lowered, currencyMarkers) {
		flags = append(flags, types.FlagCrossCurrencyAggregationRisk)
	}

	flags = dedupe(flags)
	sensitive := false
	for _, f := range flags {
		if strings.Contains(f, "requested") {
			sensitive = true
			break
		}
	}
	return types.RiskContext{
		ContainsSensitiveTerms: sensitive,
		RiskFlags:              flags,
	}
}

// dedupe drops repeated values, keeping first-seen order. It never returns nil.
func dedupe(values []string) []string {
	out := make([]string, 0, len(values))
	seen := make(map[string]bool, len(values))
	for _, v := range values {
		if seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out
}
