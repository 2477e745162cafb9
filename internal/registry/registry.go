// Package registry holds the static model catalog: identifiers, display
// names, per-token pricing and thinking budgets. It also classifies
// custom model names by provider using naming conventions. Everything
// here is a pure function of the static table and its inputs; no
// network calls are made.
package registry

import "strings"

// Provider identifies which backend family serves a model.
type Provider string

const (
	ProviderGemini  Provider = "gemini"
	ProviderOpenAI  Provider = "openai"
	ProviderGateway Provider = "gateway" // OpenAI-compatible endpoint with a custom base URL
)

// Model describes one entry of the catalog. Prices are USD per one
// million tokens. ThinkingBudget is the reasoning-token allowance for
// models that support extended deliberation; zero means no reasoning.
type Model struct {
	ID                  string
	Name                string
	PriceInput          float64
	PriceOutput         float64
	PriceOutputThinking float64
	ThinkingBudget      int
	Provider            Provider
	Vision              bool
}

// PriceOverride carries user-supplied pricing for custom models.
type PriceOverride struct {
	Input  float64
	Output float64
}

// Default model ids per tier.
const (
	DefaultModel           = "gemini-2.5-flash-preview-04-17"
	DefaultModelSmart      = "gemini-2.5-flash-preview-04-17__thinking"
	DefaultModelSuper      = "gemini-2.5-pro-preview-05-06"
	DefaultOpenAIModel     = "gpt-4.1"
	DefaultOpenAIModelMini = "o4-mini"

	// VisionFallbackModel is the model reasoning requests with image
	// attachments are re-routed to; o-series models cannot see images.
	VisionFallbackModel = "gpt-4o"
)

// Temperature presets.
const (
	DefaultTemp         = 0.1
	DefaultTempCreative = 0.6
	DefaultTempArtist   = 1.0
)

// Conservative pricing used for unregistered custom models.
const (
	customDefaultPriceInput  = 1.0
	customDefaultPriceOutput = 4.0
)

// ThinkingSuffix marks a Gemini model variant with a reasoning budget.
// The suffix is synthetic: it is stripped before the network call.
const ThinkingSuffix = "__thinking"

var catalog = map[string]Model{
	"gemini-2.0-flash-lite": {
		ID:          "gemini-2.0-flash-lite",
		Name:        "2.0 Flash-Lite",
		PriceInput:  0.075,
		PriceOutput: 0.3, PriceOutputThinking: 0.3,
		Provider: ProviderGemini,
		Vision:   true,
	},
	"gemini-2.0-flash": {
		ID:          "gemini-2.0-flash",
		Name:        "2.0 Flash",
		PriceInput:  0.1,
		PriceOutput: 0.4, PriceOutputThinking: 0.4,
		Provider: ProviderGemini,
		Vision:   true,
	},
	"gemini-2.5-flash-preview-04-17": {
		ID:          "gemini-2.5-flash-preview-04-17",
		Name:        "2.5 Flash",
		PriceInput:  0.15,
		PriceOutput: 0.6, PriceOutputThinking: 3.5,
		Provider: ProviderGemini,
		Vision:   true,
	},
	"gemini-2.5-flash-preview-04-17__thinking": {
		ID:          "gemini-2.5-flash-preview-04-17",
		Name:        "2.5 Flash Thinking",
		PriceInput:  0.15,
		PriceOutput: 0.6, PriceOutputThinking: 3.5,
		ThinkingBudget: 2000,
		Provider:       ProviderGemini,
		Vision:         true,
	},
	"gemini-2.5-pro-preview-05-06": {
		ID:          "gemini-2.5-pro-preview-05-06",
		Name:        "2.5 Pro",
		PriceInput:  1.25,
		PriceOutput: 10, PriceOutputThinking: 10,
		ThinkingBudget: 4000,
		Provider:       ProviderGemini,
		Vision:         true,
	},
	"gpt-4.1": {
		ID:          "gpt-4.1",
		Name:        "GPT-4.1 (Latest)",
		PriceInput:  2.0,
		PriceOutput: 8.0, PriceOutputThinking: 8.0,
		Provider: ProviderOpenAI,
		Vision:   true,
	},
	"gpt-4o": {
		ID:          "gpt-4o",
		Name:        "GPT-4o",
		PriceInput:  2.5,
		PriceOutput: 10.0, PriceOutputThinking: 10.0,
		Provider: ProviderOpenAI,
		Vision:   true,
	},
	"o4-mini": {
		ID:          "o4-mini",
		Name:        "o4-mini (Reasoning)",
		PriceInput:  1.1,
		PriceOutput: 4.4, PriceOutputThinking: 4.4,
		ThinkingBudget: 100000,
		Provider:       ProviderOpenAI,
		Vision:         false,
	},
}

// Known returns the static descriptor for a registered model id.
func Known(id string) (Model, bool) {
	m, ok := catalog[id]
	return m, ok
}

// All returns a copy of the catalog keyed by model id.
func All() map[string]Model {
	out := make(map[string]Model, len(catalog))
	for k, v := range catalog {
		out[k] = v
	}
	return out
}

// Resolve returns the descriptor for a model name. Registered ids
// return the static entry. Unknown names are synthesized: the provider
// is inferred from naming conventions, pricing comes from the override
// when supplied (else conservative defaults), and vision support is
// assumed optimistically. The inference is best-effort, not
// authoritative.
func Resolve(name string, override *PriceOverride) Model {
	if m, ok := catalog[name]; ok {
		return m
	}

	m := Model{
		ID:                  name,
		Name:                name,
		PriceInput:          customDefaultPriceInput,
		PriceOutput:         customDefaultPriceOutput,
		PriceOutputThinking: customDefaultPriceOutput,
		Provider:            InferProvider(name),
		Vision:              true,
	}
	if override != nil {
		m.PriceInput = override.Input
		m.PriceOutput = override.Output
		m.PriceOutputThinking = override.Output
	}
	return m
}

// InferProvider classifies an unregistered model name by substring
// heuristics. Chat-completions-style names win; anything unrecognized
// defaults to Gemini.
func InferProvider(name string) Provider {
	lower := strings.ToLower(name)
	openaiMarkers := []string{
		"gpt",
		"o1",
		"chatgpt",
		"claude",  // Anthropic models are usually served via OpenAI-compatible APIs
		"llama",   // local deployments
		"mistral",
		"azure",
	}
	for _, marker := range openaiMarkers {
		if strings.Contains(lower, marker) {
			return ProviderOpenAI
		}
	}
	return ProviderGemini
}

// IsReasoning reports whether the model id denotes a reasoning variant:
// the Gemini __thinking suffix or an OpenAI o-series name.
func IsReasoning(id string) bool {
	if strings.HasSuffix(id, ThinkingSuffix) {
		return true
	}
	return IsOpenAIReasoning(id)
}

// IsOpenAIReasoning reports whether an id names an o-series model.
func IsOpenAIReasoning(id string) bool {
	return strings.HasPrefix(id, "o1") || strings.HasPrefix(id, "o3") || strings.HasPrefix(id, "o4")
}

// APIModelID strips the synthetic thinking suffix, yielding the id the
// network API expects.
func APIModelID(id string) string {
	return strings.TrimSuffix(id, ThinkingSuffix)
}
