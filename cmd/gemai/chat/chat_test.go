package chat

import (
	"strings"
	"testing"

	"gemai/internal/history"
)

func msgs(pairs ...string) []history.ChatMessage {
	out := make([]history.ChatMessage, 0, len(pairs))
	for i, content := range pairs {
		role := "user"
		if i%2 == 1 {
			role = "assistant"
		}
		out = append(out, history.ChatMessage{ID: content, Role: role, Content: content, Timestamp: int64(i)})
	}
	return out
}

func TestContextQueryEmptyTranscript(t *testing.T) {
	if got := contextQuery(nil, 10, "hello"); got != "hello" {
		t.Fatalf("got %q, want bare query", got)
	}
}

func TestContextQueryFoldsTranscript(t *testing.T) {
	got := contextQuery(msgs("q1", "a1"), 10, "q2")
	for _, want := range []string{"User: q1", "Assistant: a1", "User: q2"} {
		if !strings.Contains(got, want) {
			t.Fatalf("missing %q in:\n%s", want, got)
		}
	}
	if !strings.HasSuffix(got, "User: q2") {
		t.Fatalf("current query must close the prompt:\n%s", got)
	}
}

func TestContextQueryWindowTruncates(t *testing.T) {
	transcript := msgs("q1", "a1", "q2", "a2", "q3", "a3")

	got := contextQuery(transcript, 2, "q4")
	if strings.Contains(got, "q1") || strings.Contains(got, "a1") {
		t.Fatalf("oldest exchange must fall out of a window of 2:\n%s", got)
	}
	for _, want := range []string{"q2", "a2", "q3", "a3", "q4"} {
		if !strings.Contains(got, want) {
			t.Fatalf("missing %q in:\n%s", want, got)
		}
	}
}

func TestContextQueryZeroWindow(t *testing.T) {
	if got := contextQuery(msgs("q1", "a1"), 0, "q2"); got != "q2" {
		t.Fatalf("zero window must send the bare query, got %q", got)
	}
}
