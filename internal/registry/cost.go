package registry

// Cost computes the monetary cost of one request in USD. Output tokens
// are billed at the thinking-tier price only when reasoning tokens were
// actually spent and that tier has a nonzero price. Cost is a pure
// function of the descriptor and the token counts; callers recompute it
// on read instead of caching it on stored records.
func Cost(m Model, promptTokens, totalTokens, thoughtTokens int) float64 {
	outputTokens := totalTokens - promptTokens
	if outputTokens < 0 {
		outputTokens = 0
	}

	outputPrice := m.PriceOutput
	if thoughtTokens > 0 && m.PriceOutputThinking > 0 {
		outputPrice = m.PriceOutputThinking
	}

	return float64(promptTokens)/1e6*m.PriceInput + float64(outputTokens)/1e6*outputPrice
}
