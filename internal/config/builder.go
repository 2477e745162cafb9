package config

import (
	"fmt"
	"strings"

	"gemai/internal/command"
	"gemai/internal/logging"
	"gemai/internal/prompt"
	"gemai/internal/registry"
)

// Invocation carries the per-call inputs of a command.
type Invocation struct {
	Query          string
	AttachmentFile string
}

// RequestInfo identifies what is being asked and by which action.
type RequestInfo struct {
	ActionID        string
	PrimaryLanguage string
	UserPrompt      string
	AttachmentFile  string
}

// ThinkingConfig carries the reasoning-token budget for models flagged
// as reasoning-capable in the registry.
type ThinkingConfig struct {
	IncludeThoughts bool
	Budget          int
}

// SafetySetting is a Gemini harm-category threshold.
type SafetySetting struct {
	Category  string
	Threshold string
}

// ModelParams is the normalized generation configuration handed to the
// provider adapter. Optional sampling knobs are pointers: nil means
// "omit from the request" (reasoning models reject them).
type ModelParams struct {
	SystemPrompt    string
	ModelName       string
	DisplayName     string
	MaxOutputTokens int
	Temperature     float64

	GeminiAPIKey  string
	OpenAIAPIKey  string
	OpenAIBaseURL string

	TopK             *int
	TopP             *float64
	FrequencyPenalty *float64
	PresencePenalty  *float64

	Thinking *ThinkingConfig
	Safety   []SafetySetting
}

// UISettings configure the surface presenting the request.
type UISettings struct {
	Placeholder string
	AllowPaste  bool
	UseSelected bool
}

// ChatSettings apply to the chat action only.
type ChatSettings struct {
	WindowSize int
}

// RequestConfig is the full normalized descriptor for one invocation.
// It is built fresh per call and never mutated concurrently; callers
// may override individual fields right after construction, before
// first use.
type RequestConfig struct {
	Provider registry.Provider
	Request  RequestInfo
	Model    ModelParams
	UI       UISettings
	Chat     *ChatSettings
}

// geminiSafetyOff disables all harm-category blocking, matching the
// original behavior of the tool (content filtering is the caller's
// decision, not the transport's).
var geminiSafetyOff = []SafetySetting{
	{Category: "HARM_CATEGORY_HARASSMENT", Threshold: "BLOCK_NONE"},
	{Category: "HARM_CATEGORY_HATE_SPEECH", Threshold: "BLOCK_NONE"},
	{Category: "HARM_CATEGORY_SEXUALLY_EXPLICIT", Threshold: "BLOCK_NONE"},
	{Category: "HARM_CATEGORY_DANGEROUS_CONTENT", Threshold: "BLOCK_NONE"},
}

// Build merges preferences, the composed system prompt and the
// invoking command's metadata into one RequestConfig, routed by
// provider. It fails fast when the resolved provider's credential is
// blank: no config ever names a provider whose key is missing.
func Build(actionID string, inv Invocation, prefs Preferences) (*RequestConfig, error) {
	log := logging.L(logging.CategoryConfig)

	modelName := prefs.CurrentModel(actionID)
	model := registry.Resolve(modelName, prefs.PriceOverride())
	provider := effectiveProvider(model.Provider, prefs)

	if err := checkCredential(provider, prefs); err != nil {
		return nil, err
	}

	if command.IsUtility(actionID) {
		log.Debugw("built utility config", "action", actionID, "model", modelName)
		return buildUtilityConfig(actionID, inv, prefs, provider, modelName, model), nil
	}

	fallback := command.FallbackPrompt(actionID, prefs.PrimaryLanguage, prefs.SecondaryLanguage)
	isCustom, systemPrompt := prompt.Compose(actionID, prefs.PromptPath(actionID), prefs.PrimaryLanguage, fallback)

	var cfg *RequestConfig
	switch provider {
	case registry.ProviderOpenAI, registry.ProviderGateway:
		cfg = buildOpenAIConfig(actionID, inv, prefs, provider, modelName, model, systemPrompt, isCustom)
	default:
		cfg = buildGeminiConfig(actionID, inv, prefs, modelName, model, systemPrompt, isCustom)
	}

	if actionID == command.Chat {
		cfg.Chat = &ChatSettings{WindowSize: prefs.ChatWindowSize()}
	}

	log.Debugw("built request config",
		"action", actionID, "provider", cfg.Provider, "model", cfg.Model.ModelName, "custom_prompt", isCustom)
	return cfg, nil
}

// effectiveProvider maps an OpenAI-classified model to the gateway
// provider when a custom base URL is configured.
func effectiveProvider(p registry.Provider, prefs Preferences) registry.Provider {
	if p == registry.ProviderOpenAI && strings.TrimSpace(prefs.OpenAIBaseURL) != "" {
		return registry.ProviderGateway
	}
	return p
}

func checkCredential(p registry.Provider, prefs Preferences) error {
	switch p {
	case registry.ProviderOpenAI, registry.ProviderGateway:
		if strings.TrimSpace(prefs.OpenAIAPIKey) == "" {
			return fmt.Errorf("openai api key is required for OpenAI models: %w", ErrCredentialMissing)
		}
	default:
		if strings.TrimSpace(prefs.GeminiAPIKey) == "" {
			return fmt.Errorf("gemini api key is required for Gemini models: %w", ErrCredentialMissing)
		}
	}
	return nil
}

func baseRequestInfo(actionID string, inv Invocation, prefs Preferences) RequestInfo {
	return RequestInfo{
		ActionID:        actionID,
		PrimaryLanguage: prefs.PrimaryLanguage,
		UserPrompt:      inv.Query,
		AttachmentFile:  inv.AttachmentFile,
	}
}

func defaultUI(actionID string) UISettings {
	placeholder := command.Get(actionID).Placeholder
	if placeholder == "" {
		placeholder = "Your question to AI here"
	}
	return UISettings{Placeholder: placeholder, AllowPaste: true, UseSelected: true}
}

// buildUtilityConfig produces the minimal config for token counting
// and the reporting views: empty system prompt, conservative ceiling,
// no generation knobs beyond the essentials. Utility commands never
// enter the prompt composer.
func buildUtilityConfig(actionID string, inv Invocation, prefs Preferences, provider registry.Provider, modelName string, model registry.Model) *RequestConfig {
	topK := 0
	topP := 0.95

	return &RequestConfig{
		Provider: provider,
		Request:  baseRequestInfo(actionID, inv, prefs),
		Model: ModelParams{
			SystemPrompt:    "",
			ModelName:       modelName,
			DisplayName:     model.Name,
			MaxOutputTokens: 4096,
			Temperature:     prefs.TemperatureValue(),
			GeminiAPIKey:    strings.TrimSpace(prefs.GeminiAPIKey),
			OpenAIAPIKey:    strings.TrimSpace(prefs.OpenAIAPIKey),
			OpenAIBaseURL:   strings.TrimSpace(prefs.OpenAIBaseURL),
			TopK:            &topK,
			TopP:            &topP,
			Safety:          geminiSafetyOff,
		},
		UI: defaultUI(actionID),
	}
}

func buildGeminiConfig(actionID string, inv Invocation, prefs Preferences, modelName string, model registry.Model, systemPrompt string, isCustom bool) *RequestConfig {
	topK := 0
	topP := 0.95
	zero := 0.0

	var thinking *ThinkingConfig
	if registry.IsReasoning(modelName) {
		thinking = &ThinkingConfig{IncludeThoughts: false, Budget: model.ThinkingBudget}
	}

	return &RequestConfig{
		Provider: registry.ProviderGemini,
		Request:  baseRequestInfo(actionID, inv, prefs),
		Model: ModelParams{
			SystemPrompt:     systemPrompt,
			ModelName:        modelName,
			DisplayName:      annotate(model.Name, isCustom),
			MaxOutputTokens:  32000,
			Temperature:      prefs.TemperatureValue(),
			GeminiAPIKey:     strings.TrimSpace(prefs.GeminiAPIKey),
			TopK:             &topK,
			TopP:             &topP,
			FrequencyPenalty: &zero,
			PresencePenalty:  &zero,
			Thinking:         thinking,
			Safety:           geminiSafetyOff,
		},
		UI: defaultUI(actionID),
	}
}

func buildOpenAIConfig(actionID string, inv Invocation, prefs Preferences, provider registry.Provider, modelName string, model registry.Model, systemPrompt string, isCustom bool) *RequestConfig {
	reasoning := registry.IsOpenAIReasoning(modelName)

	params := ModelParams{
		SystemPrompt:  systemPrompt,
		ModelName:     modelName,
		DisplayName:   annotate(model.Name, isCustom),
		OpenAIAPIKey:  strings.TrimSpace(prefs.OpenAIAPIKey),
		OpenAIBaseURL: strings.TrimSpace(prefs.OpenAIBaseURL),
	}

	if reasoning {
		// Reasoning models need headroom for the thinking process and
		// mandate temperature 1; sampling knobs stay nil (omitted).
		params.MaxOutputTokens = 16000
		params.Temperature = 1
		params.Thinking = &ThinkingConfig{IncludeThoughts: false, Budget: model.ThinkingBudget}
	} else {
		topP := 0.95
		zero := 0.0
		params.MaxOutputTokens = 4000
		params.Temperature = prefs.TemperatureValue()
		params.TopP = &topP
		params.FrequencyPenalty = &zero
		params.PresencePenalty = &zero
	}

	return &RequestConfig{
		Provider: provider,
		Request:  baseRequestInfo(actionID, inv, prefs),
		Model:    params,
		UI:       defaultUI(actionID),
	}
}

// annotate prefixes the display name with a marker glyph when a custom
// (non-default) prompt file is in effect.
func annotate(name string, isCustom bool) string {
	if isCustom {
		return "💭 " + name
	}
	return name
}
