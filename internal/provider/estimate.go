package provider

import "gemai/internal/config"

// charsPerToken is the fixed estimation ratio used whenever a backend
// reports no usage metadata. Coarse on purpose: estimates feed the
// stats footer and history, never billing.
const charsPerToken = 4

// imageTokenEstimate is the flat per-image surcharge applied when
// counting tokens for a request that inlines an image.
const imageTokenEstimate = 765

// EstimateTokens approximates the token count of a text at four
// characters per token, rounding up.
func EstimateTokens(text string) int {
	if text == "" {
		return 0
	}
	return (len(text) + charsPerToken - 1) / charsPerToken
}

// estimatedStats builds a RequestStats entirely from estimates, for
// backends (or failures) that yielded no usage metadata.
func estimatedStats(cfg *config.RequestConfig, query string) RequestStats {
	system := EstimateTokens(cfg.Model.SystemPrompt)
	input := EstimateTokens(query)
	return RequestStats{
		Prompt: system + input,
		Input:  input,
		Total:  system + input,
	}
}

// statsFromUsage converts reported usage into a RequestStats. The
// user-only input share is derived by subtracting an estimated
// system-prompt count from the reported prompt total, clamped at zero.
func statsFromUsage(cfg *config.RequestConfig, usage *Usage, query string) RequestStats {
	if usage == nil {
		return estimatedStats(cfg, query)
	}
	input := usage.PromptTokens - EstimateTokens(cfg.Model.SystemPrompt)
	if input < 0 {
		input = 0
	}
	return RequestStats{
		Prompt:   usage.PromptTokens,
		Input:    input,
		Thoughts: usage.ThoughtTokens,
		Total:    usage.TotalTokens,
	}
}
