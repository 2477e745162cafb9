package registry

import (
	"math"
	"testing"
)

func TestKnownModelsHaveConsistentDescriptors(t *testing.T) {
	for id, want := range All() {
		got := Resolve(id, nil)
		if got.Provider != want.Provider {
			t.Errorf("Resolve(%q).Provider=%s, want %s", id, got.Provider, want.Provider)
		}
		if got.PriceInput < 0 || got.PriceOutput < 0 || got.PriceOutputThinking < 0 {
			t.Errorf("Resolve(%q) has negative pricing: %+v", id, got)
		}
		if got.ThinkingBudget < 0 {
			t.Errorf("Resolve(%q).ThinkingBudget=%d, want >= 0", id, got.ThinkingBudget)
		}
	}
}

func TestResolveInfersProviderForCustomModels(t *testing.T) {
	cases := []struct {
		name string
		want Provider
	}{
		{"gpt-5-turbo", ProviderOpenAI},
		{"o1-preview", ProviderOpenAI},
		{"chatgpt-4o-latest", ProviderOpenAI},
		{"claude-sonnet-4", ProviderOpenAI},
		{"llama-3.1-70b", ProviderOpenAI},
		{"mistral-large", ProviderOpenAI},
		{"azure-deployment-a", ProviderOpenAI},
		{"my-custom-model", ProviderGemini},
		{"gemini-3.0-flash-exp", ProviderGemini},
	}
	for _, tc := range cases {
		if got := Resolve(tc.name, nil).Provider; got != tc.want {
			t.Errorf("Resolve(%q).Provider=%s, want %s", tc.name, got, tc.want)
		}
	}
}

func TestResolveAppliesPriceOverride(t *testing.T) {
	m := Resolve("my-custom-model", &PriceOverride{Input: 0.5, Output: 1.5})
	if m.PriceInput != 0.5 || m.PriceOutput != 1.5 {
		t.Fatalf("override not applied: %+v", m)
	}
	if !m.Vision {
		t.Fatalf("custom models should be optimistically vision-capable")
	}

	// Known ids ignore the override entirely.
	known := Resolve("gpt-4.1", &PriceOverride{Input: 99, Output: 99})
	if known.PriceInput == 99 {
		t.Fatalf("override must not apply to registered models")
	}
}

func TestCostArithmetic(t *testing.T) {
	m := Model{PriceInput: 1.0, PriceOutput: 2.0, PriceOutputThinking: 5.0}

	// prompt=100, total=150 => output=50.
	got := Cost(m, 100, 150, 0)
	want := 100.0/1e6*1.0 + 50.0/1e6*2.0
	if math.Abs(got-want) > 1e-12 {
		t.Fatalf("Cost=%v, want %v", got, want)
	}

	// Thinking tokens spent: output billed at the thinking tier.
	got = Cost(m, 100, 150, 25)
	want = 100.0/1e6*1.0 + 50.0/1e6*5.0
	if math.Abs(got-want) > 1e-12 {
		t.Fatalf("Cost with thoughts=%v, want %v", got, want)
	}

	// Thinking tier priced at zero falls back to the plain output price.
	m.PriceOutputThinking = 0
	got = Cost(m, 100, 150, 25)
	want = 100.0/1e6*1.0 + 50.0/1e6*2.0
	if math.Abs(got-want) > 1e-12 {
		t.Fatalf("Cost with zero thinking tier=%v, want %v", got, want)
	}

	// Malformed usage (total < prompt) never yields negative cost.
	if got := Cost(m, 200, 150, 0); got != 200.0/1e6*1.0 {
		t.Fatalf("Cost with total<prompt=%v", got)
	}
}

func TestReasoningDetection(t *testing.T) {
	if !IsReasoning("gemini-2.5-flash-preview-04-17__thinking") {
		t.Errorf("thinking suffix not detected")
	}
	if !IsReasoning("o1-mini") || !IsReasoning("o4-mini") {
		t.Errorf("o-series not detected")
	}
	if IsReasoning("gpt-4.1") || IsReasoning("gemini-2.0-flash") {
		t.Errorf("standard models misclassified as reasoning")
	}
	if got := APIModelID("gemini-2.5-flash-preview-04-17__thinking"); got != "gemini-2.5-flash-preview-04-17" {
		t.Errorf("APIModelID=%q", got)
	}
}
