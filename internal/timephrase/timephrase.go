// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package timephrase resolves relative time phrases ("昨天", "last month")
// to calendar date ranges.
package timephrase

import (
	"strings"
	"time"

	"github.com/pdiddy/smartbi/pkg/types"
)

const dateFmt = "2006-01-02"

// Result is the outcome of Parse. Both fields are nil when no phrase matched.
type Result struct {
	OriginalPhrase *string          `json:"original_phrase"`
	Resolved       *types.TimeRange `json:"resolved"`
}

// Matched reports whether a phrase was recognized.
func (r Result) Matched() bool {
	return r.Resolved != nil
}

// rule maps a keyword list to a range computed from today's date.
type rule struct {
	keywords []string
	kind     types.RangeKind
	window   func(today time.Time) (start, end time.Time)
}

// rules is scanned in order; the first rule with a matching keyword wins.
var rules = []rule{
	{
		keywords: []string{"今天", "今日", "today"},
		kind:     types.RangeSingleDate,
		window:   func(d time.Time) (time.Time, time.Time) { return d, d },
	},
	{
		keywords: []string{"昨天", "昨日", "yesterday"},
		kind:     types.RangeSingleDate,
		window: func(d time.Time) (time.Time, time.Time) {
			y := d.AddDate(0, 0, -1)
			return y, y
		},
	},
	{
		keywords: []string{"近7天", "最近7天", "last 7 days"},
		kind:     types.RangeDateRange,
		window:   func(d time.Time) (time.Time, time.Time) { return d.AddDate(0, 0, -6), d },
	},
	{
		keywords: []string{"本月", "这个月", "這個月", "this month"},
		kind:     types.RangeMonthToDate,
		window:   func(d time.Time) (time.Time, time.Time) { return firstOfMonth(d), d },
	},
	{
		keywords: []string{"今年", "this year"},
		kind:     types.RangeYearToDate,
		window: func(d time.Time) (time.Time, time.Time) {
			return time.Date(d.Year(), time.January, 1, 0, 0, 0, 0, d.Location()), d
		},
	},
	{
		keywords: []string{"上月", "上個月", "last month"},
		kind:     types.RangeDateRange,
		window: func(d time.Time) (time.Time, time.Time) {
			lastOfPrev := firstOfMonth(d).AddDate(0, 0, -1)
			return firstOfMonth(lastOfPrev), lastOfPrev
		},
	},
}

// Parse scans text for a known time phrase, case-insensitively, and resolves
// it against the date component of ref. A zero ref means time.Now().
func Parse(text string, ref time.Time) Result {
	if ref.IsZero() {
		ref = time.Now()
	}
	today := time.Date(ref.Year(), ref.Month(), ref.Day(), 0, 0, 0, 0, ref.Location())
	lowered := strings.ToLower(text)

	for _, r := range rules {
		for _, kw := range r.keywords {
			if !strings.Contains(lowered, strings.ToLower(kw)) {
				continue
			}
			start, end := r.window(today)
			phrase := kw
			return Result{
				OriginalPhrase: &phrase,
				Resolved: &types.TimeRange{
					Type:      r.kind,
					StartDate: start.Format(dateFmt),
					EndDate:   end.Format(dateFmt),
				},
			}
		}
	}
	return Result{}
}

func firstOfMonth(d time.Time) time.Time {
	return time.Date(d.Year(), d.Month(), 1, 0, 0, 0, 0, d.Location())
}
