package provider

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"gemai/internal/config"
	"gemai/internal/logging"
	"gemai/internal/registry"
)

const geminiDefaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"

// filePollAttempts bounds the wait for an uploaded file to leave the
// PROCESSING state. One second between attempts.
const (
	filePollAttempts = 60
	filePollInterval = time.Second
)

// geminiAdapter talks to the Gemini REST API directly with typed wire
// structs; no vendor SDK sits between the request config and the bytes
// on the wire.
type geminiAdapter struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	log        *zap.SugaredLogger
}

func newGeminiAdapter(apiKey string) *geminiAdapter {
	return &geminiAdapter{
		apiKey:     apiKey,
		baseURL:    geminiDefaultBaseURL,
		httpClient: &http.Client{Timeout: 10 * time.Minute},
		log:        logging.L(logging.CategoryAPI),
	}
}

// Gemini wire structs.

type geminiFileData struct {
	MimeType string `json:"mimeType"`
	FileURI  string `json:"fileUri"`
}

type geminiPart struct {
	Text     string          `json:"text,omitempty"`
	FileData *geminiFileData `json:"fileData,omitempty"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiThinkingConfig struct {
	IncludeThoughts bool `json:"includeThoughts"`
	ThinkingBudget  int  `json:"thinkingBudget,omitempty"`
}

type geminiGenerationConfig struct {
	Temperature      float64               `json:"temperature"`
	MaxOutputTokens  int                   `json:"maxOutputTokens,omitempty"`
	TopK             *int                  `json:"topK,omitempty"`
	TopP             *float64              `json:"topP,omitempty"`
	FrequencyPenalty *float64              `json:"frequencyPenalty,omitempty"`
	PresencePenalty  *float64              `json:"presencePenalty,omitempty"`
	ThinkingConfig   *geminiThinkingConfig `json:"thinkingConfig,omitempty"`
}

type geminiSafetySetting struct {
	Category  string `json:"category"`
	Threshold string `json:"threshold"`
}

type geminiRequest struct {
	Contents          []geminiContent        `json:"contents"`
	SystemInstruction *geminiContent         `json:"systemInstruction,omitempty"`
	GenerationConfig  geminiGenerationConfig `json:"generationConfig"`
	SafetySettings    []geminiSafetySetting  `json:"safetySettings,omitempty"`
}

type geminiUsageMetadata struct {
	PromptTokenCount     int `json:"promptTokenCount"`
	CandidatesTokenCount int `json:"candidatesTokenCount"`
	ThoughtsTokenCount   int `json:"thoughtsTokenCount"`
	TotalTokenCount      int `json:"totalTokenCount"`
}

type geminiResponse struct {
	Candidates []struct {
		Content      geminiContent `json:"content"`
		FinishReason string        `json:"finishReason"`
	} `json:"candidates"`
	UsageMetadata *geminiUsageMetadata `json:"usageMetadata"`
	Error         *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

type geminiFile struct {
	Name     string `json:"name"`
	URI      string `json:"uri"`
	MimeType string `json:"mimeType"`
	State    string `json:"state"`
}

// PrepareAttachment uploads the file through the Files API resumable
// protocol, then polls until the backend finishes processing it. A
// blank or missing path yields (nil, nil).
func (a *geminiAdapter) PrepareAttachment(ctx context.Context, path string) (*Attachment, error) {
	if strings.TrimSpace(path) == "" {
		return nil, nil
	}
	stat, err := os.Stat(path)
	if err != nil || !stat.Mode().IsRegular() {
		return nil, nil
	}

	mimeType := detectMimeType(path)
	file, err := a.uploadFile(ctx, path, mimeType, stat.Size())
	if err != nil {
		return nil, fmt.Errorf("gemini file upload: %w", err)
	}

	file, err = a.waitForFile(ctx, file)
	if err != nil {
		return nil, err
	}

	a.log.Debugw("attachment ready", "uri", file.URI, "mime", file.MimeType)
	return &Attachment{Path: path, MimeType: file.MimeType, FileURI: file.URI}, nil
}

func (a *geminiAdapter) uploadFile(ctx context.Context, path, mimeType string, size int64) (*geminiFile, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	uploadBase := strings.Replace(a.baseURL, "/v1beta", "/upload/v1beta", 1)
	startURL := fmt.Sprintf("%s/files?key=%s", uploadBase, a.apiKey)

	meta, err := json.Marshal(map[string]map[string]string{
		"file": {"displayName": filepath.Base(path)},
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, startURL, bytes.NewReader(meta))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Goog-Upload-Protocol", "resumable")
	req.Header.Set("X-Goog-Upload-Command", "start")
	req.Header.Set("X-Goog-Upload-Header-Content-Length", fmt.Sprintf("%d", size))
	req.Header.Set("X-Goog-Upload-Header-Content-Type", mimeType)

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("upload start: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("upload start failed (status %d): %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	uploadURL := resp.Header.Get("X-Goog-Upload-URL")
	if uploadURL == "" {
		return nil, fmt.Errorf("upload start returned no session URL")
	}

	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}
	up, err := http.NewRequestWithContext(ctx, http.MethodPost, uploadURL, f)
	if err != nil {
		return nil, err
	}
	up.ContentLength = size
	up.Header.Set("X-Goog-Upload-Offset", "0")
	up.Header.Set("X-Goog-Upload-Command", "upload, finalize")

	upResp, err := a.httpClient.Do(up)
	if err != nil {
		return nil, fmt.Errorf("upload finalize: %w", err)
	}
	defer upResp.Body.Close()

	if upResp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(upResp.Body)
		return nil, fmt.Errorf("upload finalize failed (status %d): %s", upResp.StatusCode, strings.TrimSpace(string(body)))
	}

	var result struct {
		File geminiFile `json:"file"`
	}
	if err := json.NewDecoder(upResp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("parse upload response: %w", err)
	}
	if result.File.URI == "" {
		return nil, fmt.Errorf("upload response carried no file URI")
	}
	return &result.File, nil
}

// waitForFile polls the file resource until it leaves PROCESSING, up
// to the poll bound. Slow processing past the bound is an error rather
// than an indefinite hang.
func (a *geminiAdapter) waitForFile(ctx context.Context, file *geminiFile) (*geminiFile, error) {
	for attempt := 0; attempt < filePollAttempts; attempt++ {
		switch file.State {
		case "ACTIVE", "":
			return file, nil
		case "FAILED":
			return nil, fmt.Errorf("file processing failed for %s", file.Name)
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(filePollInterval):
		}

		url := fmt.Sprintf("%s/%s?key=%s", a.baseURL, file.Name, a.apiKey)
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, err
		}
		resp, err := a.httpClient.Do(req)
		if err != nil {
			return nil, fmt.Errorf("poll file state: %w", err)
		}
		var next geminiFile
		err = json.NewDecoder(resp.Body).Decode(&next)
		resp.Body.Close()
		if err != nil {
			return nil, fmt.Errorf("parse file state: %w", err)
		}
		file = &next
	}
	return nil, fmt.Errorf("file %s still processing after %d attempts", file.Name, filePollAttempts)
}

// SendRequest starts one streamGenerateContent call and feeds parsed
// SSE chunks to the returned stream.
func (a *geminiAdapter) SendRequest(ctx context.Context, cfg *config.RequestConfig, query string, att *Attachment) (*Stream, error) {
	body := a.buildRequest(cfg, query, att)
	model := registry.APIModelID(cfg.Model.ModelName)

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/models/%s:streamGenerateContent?alt=sse&key=%s", a.baseURL, model, a.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")

	a.log.Debugw("sending request", "provider", "gemini", "model", model, "attachment", att != nil)

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("gemini request: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		return nil, fmt.Errorf("gemini API status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	chunks := make(chan Chunk, 8)
	errs := make(chan error, 1)
	go a.consumeStream(ctx, resp.Body, chunks, errs)

	return &Stream{Chunks: chunks, Errs: errs}, nil
}

func (a *geminiAdapter) buildRequest(cfg *config.RequestConfig, query string, att *Attachment) geminiRequest {
	parts := []geminiPart{{Text: query}}
	if att != nil && att.FileURI != "" {
		parts = append(parts, geminiPart{FileData: &geminiFileData{MimeType: att.MimeType, FileURI: att.FileURI}})
	}

	gen := geminiGenerationConfig{
		Temperature:      cfg.Model.Temperature,
		MaxOutputTokens:  cfg.Model.MaxOutputTokens,
		TopK:             cfg.Model.TopK,
		TopP:             cfg.Model.TopP,
		FrequencyPenalty: cfg.Model.FrequencyPenalty,
		PresencePenalty:  cfg.Model.PresencePenalty,
	}
	if t := cfg.Model.Thinking; t != nil {
		gen.ThinkingConfig = &geminiThinkingConfig{IncludeThoughts: t.IncludeThoughts, ThinkingBudget: t.Budget}
	}

	reqBody := geminiRequest{
		Contents:         []geminiContent{{Role: "user", Parts: parts}},
		GenerationConfig: gen,
	}
	if cfg.Model.SystemPrompt != "" {
		reqBody.SystemInstruction = &geminiContent{Parts: []geminiPart{{Text: cfg.Model.SystemPrompt}}}
	}
	for _, s := range cfg.Model.Safety {
		reqBody.SafetySettings = append(reqBody.SafetySettings, geminiSafetySetting{Category: s.Category, Threshold: s.Threshold})
	}
	return reqBody
}

func (a *geminiAdapter) consumeStream(ctx context.Context, body io.ReadCloser, chunks chan<- Chunk, errs chan<- error) {
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
		if data == "" || data == "[DONE]" {
			continue
		}

		var resp geminiResponse
		if err := json.Unmarshal([]byte(data), &resp); err != nil {
			continue
		}
		if resp.Error != nil {
			errs <- fmt.Errorf("gemini API error %d: %s", resp.Error.Code, resp.Error.Message)
			return
		}

		chunk := Chunk{}
		if len(resp.Candidates) > 0 {
			var sb strings.Builder
			for _, part := range resp.Candidates[0].Content.Parts {
				sb.WriteString(part.Text)
			}
			chunk.Text = sb.String()
			chunk.FinishReason = resp.Candidates[0].FinishReason
		}
		if u := resp.UsageMetadata; u != nil {
			chunk.Usage = &Usage{
				PromptTokens:     u.PromptTokenCount,
				CompletionTokens: u.CandidatesTokenCount,
				ThoughtTokens:    u.ThoughtsTokenCount,
				TotalTokens:      u.TotalTokenCount,
			}
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

// TokenStats maps Gemini usage metadata onto the stats record.
func (a *geminiAdapter) TokenStats(cfg *config.RequestConfig, usage *Usage, query string, att *Attachment) RequestStats {
	return statsFromUsage(cfg, usage, query)
}

// CountTokens asks the countTokens endpoint; any failure falls back to
// the fixed-ratio estimate so the utility commands stay usable offline.
func (a *geminiAdapter) CountTokens(ctx context.Context, cfg *config.RequestConfig, text string, att *Attachment) (int, error) {
	parts := []geminiPart{{Text: text}}
	if att != nil && att.FileURI != "" {
		parts = append(parts, geminiPart{FileData: &geminiFileData{MimeType: att.MimeType, FileURI: att.FileURI}})
	}
	payload, err := json.Marshal(map[string][]geminiContent{
		"contents": {{Role: "user", Parts: parts}},
	})
	if err != nil {
		return EstimateTokens(text), nil
	}

	model := registry.APIModelID(cfg.Model.ModelName)
	url := fmt.Sprintf("%s/models/%s:countTokens?key=%s", a.baseURL, model, a.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return EstimateTokens(text), nil
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		a.log.Debugw("countTokens unavailable, estimating", "error", err)
		return EstimateTokens(text), nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		a.log.Debugw("countTokens rejected, estimating", "status", resp.StatusCode)
		return EstimateTokens(text), nil
	}

	var result struct {
		TotalTokens int `json:"totalTokens"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return EstimateTokens(text), nil
	}
	return result.TotalTokens, nil
}

// detectMimeType guesses from the extension, octet-stream when unknown.
func detectMimeType(path string) string {
	if t := mime.TypeByExtension(filepath.Ext(path)); t != "" {
		// TypeByExtension may append charset parameters.
		if i := strings.IndexByte(t, ';'); i >= 0 {
			t = t[:i]
		}
		return strings.TrimSpace(t)
	}
	return "application/octet-stream"
}
