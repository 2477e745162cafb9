package command

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetKnownCommand(t *testing.T) {
	c := Get(Translator)
	require.Equal(t, Translator, c.ID)
	assert.NotEmpty(t, c.Name)
	assert.NotEmpty(t, c.Description)
	assert.NotEmpty(t, c.Placeholder)
}

func TestGetUnknownReturnsSentinel(t *testing.T) {
	c := Get("no-such-action")
	assert.Equal(t, "UNDEFINED_COMMAND", c.ID)
	assert.Equal(t, "UNDEFINED_COMMAND", c.Name)
}

func TestAllCoversEveryID(t *testing.T) {
	ids := map[string]bool{}
	for _, c := range All() {
		ids[c.ID] = true
	}
	for _, id := range []string{
		Ask, Chat, Explainer, Friend, Grammar, History, Longer, Professional,
		PromptBuilder, Rephraser, ScrExplain, ScrMarkdown, ScrTranslate,
		Shorter, Stats, Summator, Translator, CountTokens,
	} {
		assert.True(t, ids[id], "missing %s", id)
	}
}

func TestIsUtility(t *testing.T) {
	assert.True(t, IsUtility(CountTokens))
	assert.True(t, IsUtility(History))
	assert.True(t, IsUtility(Stats))
	assert.False(t, IsUtility(Ask))
	assert.False(t, IsUtility(Chat))
}

func TestFallbackPromptLanguageBinding(t *testing.T) {
	p := FallbackPrompt(Translator, "french", "german")
	require.NotEmpty(t, p)
	assert.Contains(t, p, "FRENCH")
	assert.Contains(t, p, "GERMAN")

	// Grammar binds both languages too.
	g := FallbackPrompt(Grammar, "english", "spanish")
	assert.Contains(t, g, "ENGLISH")
	assert.Contains(t, g, "SPANISH")

	// Ask is language-neutral.
	a := FallbackPrompt(Ask, "french", "german")
	assert.False(t, strings.Contains(a, "FRENCH"))
}

func TestFallbackPromptUtilityEmpty(t *testing.T) {
	assert.Empty(t, FallbackPrompt(CountTokens, "english", "english"))
	assert.Empty(t, FallbackPrompt(History, "english", "english"))
	assert.Empty(t, FallbackPrompt(Stats, "english", "english"))
}
