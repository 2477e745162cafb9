package provider

import (
	"bufio"
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"gemai/internal/config"
	"gemai/internal/logging"
	"gemai/internal/registry"
)

const openAIDefaultBaseURL = "https://api.openai.com/v1"

// Sibling defaults applied when an o-series request with an image is
// re-routed to the vision-capable fallback model.
const (
	visionFallbackMaxTokens   = 4096
	visionFallbackTemperature = 0.7
)

// openAIAdapter implements chat completions against the OpenAI API (or
// any compatible endpoint via baseURL). Images travel inline as base64
// data URIs; there is no upload step.
type openAIAdapter struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	log        *zap.SugaredLogger
}

func newOpenAIAdapter(apiKey, baseURL string) *openAIAdapter {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = openAIDefaultBaseURL
	}
	return &openAIAdapter{
		apiKey:     apiKey,
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 10 * time.Minute},
		log:        logging.L(logging.CategoryAPI),
	}
}

// OpenAI wire structs. Message content is either a plain string or a
// part array when an image rides along, hence the any type.

type openAIMessage struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

type openAIContentPart struct {
	Type     string          `json:"type"`
	Text     string          `json:"text,omitempty"`
	ImageURL *openAIImageURL `json:"image_url,omitempty"`
}

type openAIImageURL struct {
	URL string `json:"url"`
}

type openAIStreamOptions struct {
	IncludeUsage bool `json:"include_usage"`
}

type openAIRequest struct {
	Model               string               `json:"model"`
	Messages            []openAIMessage      `json:"messages"`
	Stream              bool                 `json:"stream,omitempty"`
	StreamOptions       *openAIStreamOptions `json:"stream_options,omitempty"`
	Temperature         *float64             `json:"temperature,omitempty"`
	TopP                *float64             `json:"top_p,omitempty"`
	FrequencyPenalty    *float64             `json:"frequency_penalty,omitempty"`
	PresencePenalty     *float64             `json:"presence_penalty,omitempty"`
	MaxTokens           int                  `json:"max_tokens,omitempty"`
	MaxCompletionTokens int                  `json:"max_completion_tokens,omitempty"`
}

type openAIUsage struct {
	PromptTokens            int `json:"prompt_tokens"`
	CompletionTokens        int `json:"completion_tokens"`
	TotalTokens             int `json:"total_tokens"`
	CompletionTokensDetails struct {
		ReasoningTokens int `json:"reasoning_tokens"`
	} `json:"completion_tokens_details"`
}

func (u *openAIUsage) normalize() *Usage {
	if u == nil {
		return nil
	}
	return &Usage{
		PromptTokens:     u.PromptTokens,
		CompletionTokens: u.CompletionTokens,
		ThoughtTokens:    u.CompletionTokensDetails.ReasoningTokens,
		TotalTokens:      u.TotalTokens,
	}
}

type openAIStreamChunk struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage *openAIUsage `json:"usage"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// PrepareAttachment inlines images as base64 data URIs. Non-image
// files are skipped: the chat completions API has no generic file
// slot.
func (a *openAIAdapter) PrepareAttachment(ctx context.Context, path string) (*Attachment, error) {
	if strings.TrimSpace(path) == "" {
		return nil, nil
	}
	stat, err := os.Stat(path)
	if err != nil || !stat.Mode().IsRegular() {
		return nil, nil
	}

	mimeType := detectMimeType(path)
	if !strings.HasPrefix(mimeType, "image/") {
		a.log.Debugw("skipping non-image attachment", "path", path, "mime", mimeType)
		return nil, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read attachment %s: %w", path, err)
	}
	uri := fmt.Sprintf("data:%s;base64,%s", mimeType, base64.StdEncoding.EncodeToString(data))
	return &Attachment{Path: path, MimeType: mimeType, DataURI: uri}, nil
}

// resolveRequest shapes the wire request from the config, applying the
// vision fallback when a reasoning model is asked to look at an image.
// It returns the request body and the fallback model name ("" when the
// requested model serves the call).
func (a *openAIAdapter) resolveRequest(cfg *config.RequestConfig, query string, att *Attachment) (openAIRequest, string) {
	model := cfg.Model
	substituted := ""

	reasoning := registry.IsOpenAIReasoning(model.ModelName)
	if known, ok := registry.Known(model.ModelName); reasoning && att.IsImage() && (!ok || !known.Vision) {
		// o-series models cannot see images. Route to the vision-capable
		// sibling with its standard-model parameters rather than failing.
		substituted = registry.VisionFallbackModel
		fallback := registry.Resolve(substituted, nil)
		temp := visionFallbackTemperature
		model = config.ModelParams{
			SystemPrompt:    model.SystemPrompt,
			ModelName:       substituted,
			DisplayName:     fallback.Name,
			MaxOutputTokens: visionFallbackMaxTokens,
			Temperature:     temp,
		}
		reasoning = false
		a.log.Infow("vision fallback engaged", "requested", cfg.Model.ModelName, "substituted", substituted)
	}

	var userContent any = query
	if att.IsImage() {
		userContent = []openAIContentPart{
			{Type: "text", Text: query},
			{Type: "image_url", ImageURL: &openAIImageURL{URL: att.DataURI}},
		}
	}

	var messages []openAIMessage
	if reasoning {
		// o-series models take no system role; the system prompt is
		// folded into the user turn.
		text := query
		if model.SystemPrompt != "" {
			text = model.SystemPrompt + "\n\n---\n\n" + query
		}
		messages = []openAIMessage{{Role: "user", Content: text}}
	} else {
		if model.SystemPrompt != "" {
			messages = append(messages, openAIMessage{Role: "system", Content: model.SystemPrompt})
		}
		messages = append(messages, openAIMessage{Role: "user", Content: userContent})
	}

	temp := model.Temperature
	body := openAIRequest{
		Model:            registry.APIModelID(model.ModelName),
		Messages:         messages,
		Temperature:      &temp,
		TopP:             model.TopP,
		FrequencyPenalty: model.FrequencyPenalty,
		PresencePenalty:  model.PresencePenalty,
	}
	if reasoning {
		body.MaxCompletionTokens = model.MaxOutputTokens
	} else {
		body.MaxTokens = model.MaxOutputTokens
	}
	return body, substituted
}

// SendRequest starts one streaming chat completion.
func (a *openAIAdapter) SendRequest(ctx context.Context, cfg *config.RequestConfig, query string, att *Attachment) (*Stream, error) {
	body, substituted := a.resolveRequest(cfg, query, att)
	body.Stream = true
	body.StreamOptions = &openAIStreamOptions{IncludeUsage: true}

	resp, err := a.post(ctx, "/chat/completions", body)
	if err != nil {
		return nil, err
	}

	chunks := make(chan Chunk, 8)
	errs := make(chan error, 1)
	go a.consumeStream(ctx, resp.Body, chunks, errs)

	return &Stream{Chunks: chunks, Errs: errs, Substituted: substituted}, nil
}

func (a *openAIAdapter) post(ctx context.Context, path string, body any) (*http.Response, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+a.apiKey)

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("openai request: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		return nil, fmt.Errorf("openai API status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}
	return resp, nil
}

func (a *openAIAdapter) consumeStream(ctx context.Context, body io.ReadCloser, chunks chan<- Chunk, errs chan<- error) {
	defer close(chunks)
	defer body.Close()

	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data:") {
			continue
		}
		data := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if data == "" {
			continue
		}
		if data == "[DONE]" {
			return
		}

		var sc openAIStreamChunk
		if err := json.Unmarshal([]byte(data), &sc); err != nil {
			continue
		}
		if sc.Error != nil {
			errs <- fmt.Errorf("openai API error: %s", sc.Error.Message)
			return
		}

		chunk := Chunk{Usage: sc.Usage.normalize()}
		if len(sc.Choices) > 0 {
			chunk.Text = sc.Choices[0].Delta.Content
			chunk.FinishReason = sc.Choices[0].FinishReason
		}
		if chunk.Text == "" && chunk.Usage == nil && chunk.FinishReason == "" {
			continue
		}

		select {
		case chunks <- chunk:
		case <-ctx.Done():
			errs <- ctx.Err()
			return
		}
	}
	if err := scanner.Err(); err != nil {
		errs <- fmt.Errorf("stream read: %w", err)
	}
}

// TokenStats maps reported usage onto the stats record, estimating
// when the endpoint omitted usage entirely.
func (a *openAIAdapter) TokenStats(cfg *config.RequestConfig, usage *Usage, query string, att *Attachment) RequestStats {
	return statsFromUsage(cfg, usage, query)
}

// CountTokens estimates: the chat completions surface has no counting
// endpoint. Images add a flat surcharge.
func (a *openAIAdapter) CountTokens(ctx context.Context, cfg *config.RequestConfig, text string, att *Attachment) (int, error) {
	n := EstimateTokens(cfg.Model.SystemPrompt) + EstimateTokens(text)
	if att.IsImage() {
		n += imageTokenEstimate
	}
	return n, nil
}
