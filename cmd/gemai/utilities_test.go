package main

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestTruncateShortStringUntouched(t *testing.T) {
	if got := truncate("hello", 10); got != "hello" {
		t.Fatalf("got %q", got)
	}
	if got := truncate("hello", 5); got != "hello" {
		t.Fatalf("exact length must pass through, got %q", got)
	}
}

func TestTruncateRuneBoundary(t *testing.T) {
	s := strings.Repeat("é", 10) // 2 bytes per rune
	got := truncate(s, 6)
	if !utf8.ValidString(got) {
		t.Fatalf("truncation produced invalid UTF-8: %q", got)
	}
	if got != strings.Repeat("é", 5)+"…" {
		t.Fatalf("got %q", got)
	}

	cyrillic := "привет как дела"
	got = truncate(cyrillic, 8)
	if !utf8.ValidString(got) {
		t.Fatalf("invalid UTF-8: %q", got)
	}
	if utf8.RuneCountInString(got) != 8 {
		t.Fatalf("rune count=%d, want 8", utf8.RuneCountInString(got))
	}
}
