// Package stats aggregates history records into usage summaries over
// trailing and calendar windows. Cost is always recomputed from the
// stored token counts and the current price table, so a price fix
// retroactively corrects past reports.
package stats

import (
	"sort"
	"time"

	"gemai/internal/history"
	"gemai/internal/registry"
)

// Window is a reporting interval, half-open [Start, End) in unix
// milliseconds.
type Window struct {
	Label string
	Start int64
	End   int64
}

// Summary is the aggregate over a set of records.
type Summary struct {
	Count       int
	TotalCost   float64
	TotalTokens int
	AvgTokens   float64
	AvgTime     float64
}

// Group is one row of a grouped report.
type Group struct {
	Key string
	Summary
}

// Windows returns the standard reporting intervals relative to now:
// trailing 1h/24h/7d/30d plus calendar today, yesterday, this week
// (starting Monday) and this month.
func Windows(now time.Time) []Window {
	ms := now.UnixMilli()
	// Calendar windows anchor to local midnight, not UTC.
	day := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	weekday := int(now.Weekday())
	if weekday == 0 {
		weekday = 7 // Sunday closes the week
	}
	weekStart := day.AddDate(0, 0, -(weekday - 1))
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())

	return []Window{
		{Label: "Last hour", Start: now.Add(-time.Hour).UnixMilli(), End: ms},
		{Label: "Last 24 hours", Start: now.Add(-24 * time.Hour).UnixMilli(), End: ms},
		{Label: "Last 7 days", Start: now.AddDate(0, 0, -7).UnixMilli(), End: ms},
		{Label: "Last 30 days", Start: now.AddDate(0, 0, -30).UnixMilli(), End: ms},
		{Label: "Today", Start: day.UnixMilli(), End: ms},
		{Label: "Yesterday", Start: day.AddDate(0, 0, -1).UnixMilli(), End: day.UnixMilli()},
		{Label: "This week", Start: weekStart.UnixMilli(), End: ms},
		{Label: "This month", Start: monthStart.UnixMilli(), End: ms},
	}
}

// Cost recomputes the price of one record from the current price
// table.
func Cost(r history.Record) float64 {
	m := registry.Resolve(r.ModelID, nil)
	return registry.Cost(m, r.PromptTokens, r.TotalTokens, r.ThoughtTokens)
}

// Filter returns the records falling inside the window.
func Filter(recs []history.Record, w Window) []history.Record {
	var out []history.Record
	for _, r := range recs {
		if r.Timestamp >= w.Start && r.Timestamp < w.End {
			out = append(out, r)
		}
	}
	return out
}

// Summarize aggregates a record set.
func Summarize(recs []history.Record) Summary {
	s := Summary{Count: len(recs)}
	if len(recs) == 0 {
		return s
	}
	var totalTime float64
	for _, r := range recs {
		s.TotalCost += Cost(r)
		s.TotalTokens += r.TotalTokens
		totalTime += r.TotalTime
	}
	s.AvgTokens = float64(s.TotalTokens) / float64(len(recs))
	s.AvgTime = totalTime / float64(len(recs))
	return s
}

// GroupByAction aggregates per action id, most-used first.
func GroupByAction(recs []history.Record) []Group {
	return groupBy(recs, func(r history.Record) string { return r.ActionID })
}

// GroupByModel aggregates per model, most-used first.
func GroupByModel(recs []history.Record) []Group {
	return groupBy(recs, func(r history.Record) string { return r.ModelID })
}

func groupBy(recs []history.Record, key func(history.Record) string) []Group {
	buckets := make(map[string][]history.Record)
	for _, r := range recs {
		k := key(r)
		buckets[k] = append(buckets[k], r)
	}

	out := make([]Group, 0, len(buckets))
	for k, rs := range buckets {
		out = append(out, Group{Key: k, Summary: Summarize(rs)})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Key < out[j].Key
	})
	return out
}
