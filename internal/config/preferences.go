// Package config holds user preferences and builds the per-invocation
// request configuration. Preferences are read once at the top of each
// command invocation and passed explicitly down the builder chain;
// nothing below this package reads preference state on its own.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gemai/internal/prompt"
	"gemai/internal/registry"
)

// DefaultTemperature is used when the temperature preference is blank
// or unparseable.
const DefaultTemperature = 0.3

// DefaultChatWindow is the trailing number of chat exchanges sent as
// context when the preference is unset.
const DefaultChatWindow = 10

// ModelOverrideDefault is the per-command override sentinel meaning
// "use the global model".
const ModelOverrideDefault = "default"

// Preferences is the closed set of user settings. Every field has a
// documented default; there is no open-ended dictionary access at the
// provider boundary.
type Preferences struct {
	PrimaryLanguage   string `json:"primary_language"`   // default "English"
	SecondaryLanguage string `json:"secondary_language"` // default "English"

	DefaultModel      string   `json:"default_model"`      // default registry.DefaultModel
	CustomModel       string   `json:"custom_model"`       // non-empty overrides DefaultModel
	CustomPriceInput  *float64 `json:"custom_price_input"` // USD per 1M tokens, custom models only
	CustomPriceOutput *float64 `json:"custom_price_output"`

	// CommandModels maps an action id to a model override. The value
	// "default" (or a missing key) means the global model applies.
	CommandModels map[string]string `json:"command_models"`

	Temperature string `json:"temperature"` // parsed with fallback 0.3

	PromptDir string `json:"prompt_dir"` // supports ~ expansion
	// PromptFiles maps an action id to a file name inside PromptDir.
	// Missing entries fall back to "<action id>.md".
	PromptFiles map[string]string `json:"prompt_files"`

	GeminiAPIKey  string `json:"gemini_api_key"`
	OpenAIAPIKey  string `json:"openai_api_key"`
	OpenAIBaseURL string `json:"openai_base_url"` // set for OpenAI-compatible gateways

	ChatWindow int `json:"chat_window"` // default 10
}

// Dir returns the gemai settings directory (~/.gemai).
func Dir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".gemai"
	}
	return filepath.Join(home, ".gemai")
}

// DefaultPath returns the default preferences file location.
func DefaultPath() string {
	return filepath.Join(Dir(), "config.json")
}

// Load reads preferences from the given path (DefaultPath when empty)
// and applies environment overrides. A missing file yields defaults,
// not an error; a malformed file is an error.
func Load(path string) (Preferences, error) {
	if path == "" {
		path = DefaultPath()
	}

	var prefs Preferences
	data, err := os.ReadFile(prompt.ExpandHome(path))
	switch {
	case os.IsNotExist(err):
		// First run: defaults plus whatever the environment provides.
	case err != nil:
		return Preferences{}, fmt.Errorf("read preferences: %w", err)
	default:
		if err := json.Unmarshal(data, &prefs); err != nil {
			return Preferences{}, fmt.Errorf("parse preferences %s: %w", path, err)
		}
	}

	if v := os.Getenv("GEMINI_API_KEY"); v != "" {
		prefs.GeminiAPIKey = v
	}
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		prefs.OpenAIAPIKey = v
	}
	if v := os.Getenv("OPENAI_BASE_URL"); v != "" {
		prefs.OpenAIBaseURL = v
	}

	if strings.TrimSpace(prefs.PrimaryLanguage) == "" {
		prefs.PrimaryLanguage = "English"
	}
	if strings.TrimSpace(prefs.SecondaryLanguage) == "" {
		prefs.SecondaryLanguage = "English"
	}
	return prefs, nil
}

// TemperatureValue parses the temperature preference with the 0.3
// fallback for blank or unparseable values.
func (p Preferences) TemperatureValue() float64 {
	s := strings.TrimSpace(p.Temperature)
	if s == "" {
		return DefaultTemperature
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return DefaultTemperature
	}
	return v
}

// CurrentModel resolves the effective model name for an action: the
// custom model (when set) beats the global default, and a per-command
// override beats both unless it is the "default" sentinel.
func (p Preferences) CurrentModel(actionID string) string {
	global := strings.TrimSpace(p.DefaultModel)
	if global == "" {
		global = registry.DefaultModel
	}
	if custom := strings.ToLower(strings.TrimSpace(p.CustomModel)); custom != "" {
		global = custom
	}

	if override, ok := p.CommandModels[actionID]; ok {
		override = strings.TrimSpace(override)
		if override != "" && override != ModelOverrideDefault {
			return override
		}
	}
	return global
}

// PriceOverride returns the custom-model price override, or nil when
// the user configured none.
func (p Preferences) PriceOverride() *registry.PriceOverride {
	if p.CustomPriceInput == nil && p.CustomPriceOutput == nil {
		return nil
	}
	o := &registry.PriceOverride{}
	if p.CustomPriceInput != nil {
		o.Input = *p.CustomPriceInput
	}
	if p.CustomPriceOutput != nil {
		o.Output = *p.CustomPriceOutput
	}
	return o
}

// PromptPath resolves the prompt file path for an action, or "" when
// no prompt directory is configured.
func (p Preferences) PromptPath(actionID string) string {
	if strings.TrimSpace(p.PromptDir) == "" {
		return ""
	}
	file := p.PromptFiles[actionID]
	if file == "" {
		file = actionID + ".md"
	}
	return filepath.Join(prompt.ExpandHome(strings.TrimSpace(p.PromptDir)), file)
}

// ChatWindowSize returns the configured chat context window with its
// default applied.
func (p Preferences) ChatWindowSize() int {
	if p.ChatWindow <= 0 {
		return DefaultChatWindow
	}
	return p.ChatWindow
}
