package stats

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"gemai/internal/history"
)

func mkRecord(ts int64, action, model string, prompt, total int, seconds float64) history.Record {
	return history.Record{
		Timestamp:    ts,
		ActionID:     action,
		ModelID:      model,
		PromptTokens: prompt,
		TotalTokens:  total,
		TotalTime:    seconds,
	}
}

func TestWindowsCoverExpectedRanges(t *testing.T) {
	now := time.Date(2025, 6, 11, 15, 30, 0, 0, time.UTC) // a Wednesday
	ws := Windows(now)

	byLabel := make(map[string]Window)
	for _, w := range ws {
		byLabel[w.Label] = w
	}

	hour := byLabel["Last hour"]
	if hour.End-hour.Start != time.Hour.Milliseconds() {
		t.Fatalf("last hour span=%d", hour.End-hour.Start)
	}

	today := byLabel["Today"]
	wantStart := time.Date(2025, 6, 11, 0, 0, 0, 0, time.UTC).UnixMilli()
	if today.Start != wantStart {
		t.Fatalf("today start=%d, want %d", today.Start, wantStart)
	}

	yesterday := byLabel["Yesterday"]
	if yesterday.End != today.Start {
		t.Fatalf("yesterday must end where today starts")
	}
	if yesterday.End-yesterday.Start != 24*time.Hour.Milliseconds() {
		t.Fatalf("yesterday span=%d", yesterday.End-yesterday.Start)
	}

	week := byLabel["This week"]
	wantWeek := time.Date(2025, 6, 9, 0, 0, 0, 0, time.UTC).UnixMilli() // Monday
	if week.Start != wantWeek {
		t.Fatalf("week start=%d, want %d", week.Start, wantWeek)
	}

	month := byLabel["This month"]
	wantMonth := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC).UnixMilli()
	if month.Start != wantMonth {
		t.Fatalf("month start=%d, want %d", month.Start, wantMonth)
	}
}

func TestFilterHalfOpen(t *testing.T) {
	w := Window{Start: 1000, End: 2000}
	recs := []history.Record{
		mkRecord(999, "ask", "m", 0, 0, 0),
		mkRecord(1000, "ask", "m", 0, 0, 0),
		mkRecord(1999, "ask", "m", 0, 0, 0),
		mkRecord(2000, "ask", "m", 0, 0, 0),
	}
	got := Filter(recs, w)
	if len(got) != 2 || got[0].Timestamp != 1000 || got[1].Timestamp != 1999 {
		t.Fatalf("filtered=%+v", got)
	}
}

func TestSummarizeAverages(t *testing.T) {
	recs := []history.Record{
		mkRecord(1, "ask", "gemini-2.0-flash", 100, 200, 2.0),
		mkRecord(2, "ask", "gemini-2.0-flash", 300, 400, 4.0),
	}
	s := Summarize(recs)
	if s.Count != 2 || s.TotalTokens != 600 {
		t.Fatalf("summary=%+v", s)
	}
	if s.AvgTokens != 300 || s.AvgTime != 3.0 {
		t.Fatalf("averages wrong: %+v", s)
	}
	if s.TotalCost <= 0 {
		t.Fatalf("cost must be recomputed from the price table, got %v", s.TotalCost)
	}
}

func TestSummarizeEmpty(t *testing.T) {
	s := Summarize(nil)
	if s.Count != 0 || s.AvgTokens != 0 || s.AvgTime != 0 || s.TotalCost != 0 {
		t.Fatalf("empty summary=%+v", s)
	}
}

func TestGroupByActionOrdersByUsage(t *testing.T) {
	recs := []history.Record{
		mkRecord(1, "translator", "m", 10, 20, 1),
		mkRecord(2, "translator", "m", 10, 20, 1),
		mkRecord(3, "ask", "m", 10, 20, 1),
	}
	got := GroupByAction(recs)
	want := []Group{
		{Key: "translator", Summary: Summary{Count: 2, TotalTokens: 40, AvgTokens: 20, AvgTime: 1}},
		{Key: "ask", Summary: Summary{Count: 1, TotalTokens: 20, AvgTokens: 20, AvgTime: 1}},
	}
	// Cost depends on the price table; compare the shape, not the money.
	if diff := cmp.Diff(want, got, cmpopts.IgnoreFields(Summary{}, "TotalCost")); diff != "" {
		t.Fatalf("groups mismatch (-want +got):\n%s", diff)
	}
}

func TestGroupByModel(t *testing.T) {
	recs := []history.Record{
		mkRecord(1, "ask", "gemini-2.0-flash", 10, 20, 1),
		mkRecord(2, "ask", "gpt-4.1", 10, 20, 1),
		mkRecord(3, "chat", "gpt-4.1", 10, 20, 1),
	}
	groups := GroupByModel(recs)
	if len(groups) != 2 || groups[0].Key != "gpt-4.1" || groups[0].Count != 2 {
		t.Fatalf("groups=%+v", groups)
	}
}
