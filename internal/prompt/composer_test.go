package prompt

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"gemai/internal/command"
)

func TestComposeFixedLanguageAction(t *testing.T) {
	_, out := Compose(command.Ask, "", "french", "Be helpful.")

	if !strings.Contains(out, "FRENCH") {
		t.Fatalf("fixed-language prompt missing primary language:\n%s", out)
	}
	if strings.Contains(out, "same language as the user's most recent query") {
		t.Fatalf("fixed-language prompt must not contain the mirror policy")
	}
	if !strings.Contains(out, "LOCKDOWN PROTOCOL") {
		t.Fatalf("lockdown block missing")
	}
}

func TestComposeMirrorLanguageAction(t *testing.T) {
	_, out := Compose(command.Translator, "", "FRENCH", "Translate.")

	if !strings.Contains(out, "same language as the user's most recent query") {
		t.Fatalf("mirror policy missing for non-fixed action:\n%s", out)
	}
	if strings.Contains(out, "in **FRENCH**") {
		t.Fatalf("mirror prompt must not pin the primary language")
	}
}

func TestComposeIsIdempotent(t *testing.T) {
	_, a := Compose(command.Summator, "", "SPANISH", "Summarize.")
	_, b := Compose(command.Summator, "", "SPANISH", "Summarize.")
	if a != b {
		t.Fatalf("Compose is not pure: outputs differ")
	}
}

func TestComposeReportsCustomPrompt(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ask.md")
	if err := os.WriteFile(path, []byte("You are a pirate."), 0o644); err != nil {
		t.Fatal(err)
	}

	custom, out := Compose(command.Ask, path, "ENGLISH", "Be helpful.")
	if !custom {
		t.Fatalf("prompt file differing from fallback must be flagged custom")
	}
	if !strings.Contains(out, "You are a pirate.") {
		t.Fatalf("prompt file content missing:\n%s", out)
	}

	custom, _ = Compose(command.Ask, filepath.Join(dir, "missing.md"), "ENGLISH", "Be helpful.")
	if custom {
		t.Fatalf("fallback-only composition must not be flagged custom")
	}
}

func TestComposeEmptyBaseIsNotAnError(t *testing.T) {
	_, out := Compose(command.Translator, "", "ENGLISH", "")
	if !strings.Contains(out, "# Language Policy") || !strings.Contains(out, "LOCKDOWN PROTOCOL") {
		t.Fatalf("policy blocks must survive an empty base prompt:\n%s", out)
	}
}

func TestLoadSystemPromptStripsFrontMatter(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "prompt.md")
	content := "---\ntitle: Custom Ask\nversion: 2\n---\nAnswer like a historian.\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	got := LoadSystemPrompt(path, "")
	if strings.Contains(got, "title:") {
		t.Fatalf("front matter not stripped: %q", got)
	}
	if !strings.Contains(got, "Answer like a historian.") {
		t.Fatalf("prompt body lost: %q", got)
	}
}

func TestLoadSystemPromptKeepsDashRuleText(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "prompt.md")
	// Leading --- with no closing delimiter is prompt content, not metadata.
	content := "--- not front matter, just a rule\nBody text."
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	got := LoadSystemPrompt(path, "")
	if !strings.Contains(got, "Body text.") {
		t.Fatalf("body lost: %q", got)
	}
}
