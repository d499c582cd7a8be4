// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package rules

import (
	"strings"

	"golang.org/x/text/width"

	"github.com/pdiddy/smartbi/pkg/types"
)

// substitutions canonicalizes synonyms. Applied in order.
var substitutions = []struct{ from, to string }{
	{"期末餘額", "存款餘額"},
	{"transaction volume", "交易量"},
}

// NormalizeText folds full-width forms, trims, collapses whitespace runs to
// a single space and applies the synonym table. It is stable under
// re-application.
func NormalizeText(raw string) string {
	text := width.Fold.String(raw)
	text = strings.Join(strings.Fields(text), " ")
	for _, s := range substitutions {
		text = strings.ReplaceAll(text, s.from, s.to)
	}
	return text
}

// DetectLanguage returns zh-TW when text contains a CJK ideograph, else en.
// zh-CN is a valid contract value but is never inferred.
func DetectLanguage(text string) types.Language {
	for _, r := range text {
		if r >= '\u4e00' && r <= '\u9fff' {
			return types.LanguageZhTW
		}
	}
	return types.LanguageEn
}

// intentRules is checked in priority order; the first group with a hit wins.
var intentRules = []struct {
	intent   types.Intent
	keywords []string
}{
	{types.IntentDetailRequest, []string{"明細", "detail", "列出每個", "list all"}},
	{types.IntentTrend, []string{"趨勢", "trend"}},
	{types.IntentComparison, []string{"比較", "vs", "對比", "同比", "環比"}},
	{types.IntentKPIQuery, []string{"存款", "交易", "餘額", "kpi", "balance", "volume"}},
}

// DetectIntent classifies text by keyword group.
func DetectIntent(text string) types.Intent {
	lowered := strings.ToLower(text)
	for _, r := range intentRules {
		if containsAny(lowered, r.keywords) {
			return r.intent
		}
	}
	return types.IntentOutOfScope
}

func containsAny(text string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(text, strings.ToLower(k)) {
			return true
		}
	}
	return false
}
