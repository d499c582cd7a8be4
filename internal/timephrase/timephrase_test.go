// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package timephrase

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/smartbi/pkg/types"
)

func mustTime(t *testing.T, s string) time.Time {
	t.Helper()
	ts, err := time.Parse(time.RFC3339, s)
	require.NoError(t, err)
	return ts
}

func TestParse(t *testing.T) {
	ref := mustTime(t, "2026-02-11T10:00:00+08:00")

	tests := []struct {
		name   string
		text   string
		phrase string
		kind   types.RangeKind
		start  string
		end    string
	}{
		{"today zh", "今天存款", "今天", types.RangeSingleDate, "2026-02-11", "2026-02-11"},
		{"today en mixed case", "balance TODAY", "today", types.RangeSingleDate, "2026-02-11", "2026-02-11"},
		{"yesterday", "昨天澳門半島存款餘額", "昨天", types.RangeSingleDate, "2026-02-10", "2026-02-10"},
		{"yesterday alt", "昨日交易量", "昨日", types.RangeSingleDate, "2026-02-10", "2026-02-10"},
		{"last 7 days", "最近7天交易量", "近7天", types.RangeDateRange, "2026-02-05", "2026-02-11"},
		{"this month", "這個月存款", "這個月", types.RangeMonthToDate, "2026-02-01", "2026-02-11"},
		{"this year", "this year balance", "this year", types.RangeYearToDate, "2026-01-01", "2026-02-11"},
		{"last month", "上個月交易量", "上個月", types.RangeDateRange, "2026-01-01", "2026-01-31"},
		{"last month en", "volume last month", "last month", types.RangeDateRange, "2026-01-01", "2026-01-31"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Parse(tt.text, ref)
			require.True(t, got.Matched())
			require.NotNil(t, got.OriginalPhrase)
			assert.Equal(t, tt.phrase, *got.OriginalPhrase)
			assert.Equal(t, tt.kind, got.Resolved.Type)
			assert.Equal(t, tt.start, got.Resolved.StartDate)
			assert.Equal(t, tt.end, got.Resolved.EndDate)
		})
	}
}

func TestParse_NoMatch(t *testing.T) {
	got := Parse("存款餘額", mustTime(t, "2026-02-11T10:00:00+08:00"))
	assert.False(t, got.Matched())
	assert.Nil(t, got.OriginalPhrase)
	assert.Nil(t, got.Resolved)
}

func TestParse_PriorityOrder(t *testing.T) {
	// "今天" outranks "上月" even when both appear.
	got := Parse("上月和今天的比較", mustTime(t, "2026-02-11T10:00:00+08:00"))
	require.True(t, got.Matched())
	assert.Equal(t, "今天", *got.OriginalPhrase)
}

func TestParse_LastMonthAcrossYear(t *testing.T) {
	got := Parse("last month", mustTime(t, "2026-01-15T00:00:00Z"))
	require.True(t, got.Matched())
	assert.Equal(t, "2025-12-01", got.Resolved.StartDate)
	assert.Equal(t, "2025-12-31", got.Resolved.EndDate)
}

func TestParse_UsesReferenceLocation(t *testing.T) {
	// 2026-02-10T23:30Z is already the 11th in Macau.
	macau := time.FixedZone("Asia/Macau", 8*3600)
	ref := mustTime(t, "2026-02-10T23:30:00Z").In(macau)
	got := Parse("today", ref)
	assert.Equal(t, "2026-02-11", got.Resolved.StartDate)
}

func TestParse_ZeroReferenceUsesNow(t *testing.T) {
	got := Parse("today", time.Time{})
	require.True(t, got.Matched())
	assert.Equal(t, time.Now().Format(dateFmt), got.Resolved.StartDate)
}
