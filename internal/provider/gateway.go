package provider

import (
	"context"
	"encoding/json"
	"fmt"

	"gemai/internal/config"
)

// gatewayAdapter serves OpenAI-compatible gateways through a custom
// base URL. Request shaping is identical to the OpenAI adapter; the
// transport differs: gateways are not trusted to implement SSE
// faithfully, so the call is made non-streaming and the full response
// is delivered as one synthetic chunk.
type gatewayAdapter struct {
	*openAIAdapter
}

func newGatewayAdapter(apiKey, baseURL string) *gatewayAdapter {
	return &gatewayAdapter{openAIAdapter: newOpenAIAdapter(apiKey, baseURL)}
}

type gatewayResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage *openAIUsage `json:"usage"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// SendRequest issues one blocking chat completion and replays it as a
// single-chunk stream, keeping the caller's consumption path uniform
// across providers.
func (a *gatewayAdapter) SendRequest(ctx context.Context, cfg *config.RequestConfig, query string, att *Attachment) (*Stream, error) {
	body, substituted := a.resolveRequest(cfg, query, att)

	resp, err := a.post(ctx, "/chat/completions", body)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var result gatewayResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("parse gateway response: %w", err)
	}
	if result.Error != nil {
		return nil, fmt.Errorf("gateway API error: %s", result.Error.Message)
	}
	if len(result.Choices) == 0 {
		return nil, fmt.Errorf("gateway response carried no choices")
	}

	chunks := make(chan Chunk, 1)
	errs := make(chan error, 1)
	chunks <- Chunk{
		Text:         result.Choices[0].Message.Content,
		Usage:        result.Usage.normalize(),
		FinishReason: result.Choices[0].FinishReason,
	}
	close(chunks)

	return &Stream{Chunks: chunks, Errs: errs, Substituted: substituted}, nil
}
