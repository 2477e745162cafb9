package history

import (
	"path/filepath"
	"testing"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func rec(ts int64, action, query string) Record {
	return Record{
		Timestamp: ts,
		ActionID:  action,
		ModelID:   "gemini-2.0-flash",
		ModelName: "Gemini 2.0 Flash",
		Provider:  "gemini",
		Query:     query,
		Answer:    "answer",
	}
}

func TestAppendAndListNewestFirst(t *testing.T) {
	s := openTestStore(t)

	for i, ts := range []int64{1000, 5000, 3000} {
		ok, err := s.Append(rec(ts, "ask", "q"+string(rune('a'+i))))
		if err != nil || !ok {
			t.Fatalf("append %d: ok=%v err=%v", ts, ok, err)
		}
	}

	got, err := s.List(0)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 3 {
		t.Fatalf("len=%d, want 3", len(got))
	}
	if got[0].Timestamp != 5000 || got[1].Timestamp != 3000 || got[2].Timestamp != 1000 {
		t.Fatalf("order wrong: %d %d %d", got[0].Timestamp, got[1].Timestamp, got[2].Timestamp)
	}

	limited, err := s.List(2)
	if err != nil {
		t.Fatal(err)
	}
	if len(limited) != 2 || limited[0].Timestamp != 5000 {
		t.Fatalf("limited=%+v", limited)
	}
}

func TestAppendSuppressesRapidDuplicate(t *testing.T) {
	s := openTestStore(t)

	ok, err := s.Append(rec(10_000, "translator", "bonjour"))
	if err != nil || !ok {
		t.Fatalf("first append: ok=%v err=%v", ok, err)
	}

	// Same action and query 500ms later: suppressed.
	ok, err = s.Append(rec(10_500, "translator", "bonjour"))
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Fatal("duplicate within window must be suppressed")
	}

	// Same query under a different action, still inside the window:
	// the query text alone defines a duplicate.
	ok, err = s.Append(rec(10_700, "grammar", "bonjour"))
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Fatal("cross-action duplicate within window must be suppressed")
	}

	// Same pair two seconds later: a genuine repeat, kept.
	ok, err = s.Append(rec(12_000, "translator", "bonjour"))
	if err != nil || !ok {
		t.Fatalf("repeat outside window: ok=%v err=%v", ok, err)
	}

	// Different query within the window: kept.
	ok, err = s.Append(rec(12_100, "translator", "merci"))
	if err != nil || !ok {
		t.Fatalf("different query: ok=%v err=%v", ok, err)
	}

	got, err := s.List(0)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 3 {
		t.Fatalf("len=%d, want 3", len(got))
	}
}

func TestDeleteAndClear(t *testing.T) {
	s := openTestStore(t)

	s.Append(rec(1000, "ask", "one"))
	s.Append(rec(2000, "ask", "two"))

	if err := s.Delete(1000); err != nil {
		t.Fatal(err)
	}
	got, _ := s.List(0)
	if len(got) != 1 || got[0].Timestamp != 2000 {
		t.Fatalf("after delete: %+v", got)
	}

	if err := s.Clear(); err != nil {
		t.Fatal(err)
	}
	got, _ = s.List(0)
	if len(got) != 0 {
		t.Fatalf("after clear: %+v", got)
	}
}

func TestSinceCutoff(t *testing.T) {
	s := openTestStore(t)

	s.Append(rec(1000, "ask", "old"))
	s.Append(rec(5000, "ask", "new"))

	got, err := s.Since(3000)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].Query != "new" {
		t.Fatalf("since=%+v", got)
	}
}

func TestChatTranscript(t *testing.T) {
	s := openTestStore(t)

	turns := []ChatMessage{
		{ID: "m1", Role: "user", Content: "hi", Timestamp: 1000},
		{ID: "m2", Role: "assistant", Content: "hello", Timestamp: 2000},
		{ID: "m3", Role: "user", Content: "bye", Timestamp: 3000},
	}
	for _, m := range turns {
		if err := s.AppendMessage(m); err != nil {
			t.Fatal(err)
		}
	}

	all, err := s.Messages()
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 3 || all[0].ID != "m1" || all[2].ID != "m3" {
		t.Fatalf("transcript=%+v", all)
	}

	last, err := s.LastMessages(2)
	if err != nil {
		t.Fatal(err)
	}
	if len(last) != 2 || last[0].ID != "m2" {
		t.Fatalf("last=%+v", last)
	}

	// Re-inserting an id updates in place (last writer wins).
	if err := s.AppendMessage(ChatMessage{ID: "m2", Role: "assistant", Content: "hello again", Timestamp: 2000}); err != nil {
		t.Fatal(err)
	}
	all, _ = s.Messages()
	if len(all) != 3 || all[1].Content != "hello again" {
		t.Fatalf("update in place failed: %+v", all)
	}

	if err := s.ClearMessages(); err != nil {
		t.Fatal(err)
	}
	all, _ = s.Messages()
	if len(all) != 0 {
		t.Fatalf("after clear: %+v", all)
	}
}
