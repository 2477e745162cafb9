package provider

import (
	"fmt"

	"gemai/internal/config"
	"gemai/internal/registry"
)

// New returns the adapter for the config's provider. This switch is
// the only place in the repository that branches on provider identity.
func New(cfg *config.RequestConfig) (Adapter, error) {
	switch cfg.Provider {
	case registry.ProviderGemini:
		if cfg.Model.GeminiAPIKey == "" {
			return nil, fmt.Errorf("gemini adapter: %w", config.ErrCredentialMissing)
		}
		return newGeminiAdapter(cfg.Model.GeminiAPIKey), nil
	case registry.ProviderOpenAI:
		if cfg.Model.OpenAIAPIKey == "" {
			return nil, fmt.Errorf("openai adapter: %w", config.ErrCredentialMissing)
		}
		return newOpenAIAdapter(cfg.Model.OpenAIAPIKey, ""), nil
	case registry.ProviderGateway:
		if cfg.Model.OpenAIAPIKey == "" {
			return nil, fmt.Errorf("gateway adapter: %w", config.ErrCredentialMissing)
		}
		if cfg.Model.OpenAIBaseURL == "" {
			return nil, fmt.Errorf("gateway adapter requires a base URL")
		}
		return newGatewayAdapter(cfg.Model.OpenAIAPIKey, cfg.Model.OpenAIBaseURL), nil
	default:
		return nil, fmt.Errorf("unknown provider %q", cfg.Provider)
	}
}
