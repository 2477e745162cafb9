// Package provider abstracts the generative-AI backends behind one
// adapter interface. The factory in this package is the single seam
// switching on provider identity; nothing else in the repository
// branches on which backend serves a request.
package provider

import (
	"context"
	"strings"

	"gemai/internal/config"
)

// Usage is the normalized usage-metadata record reported by a backend,
// usually on the final streamed chunk.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
	ThoughtTokens    int
	TotalTokens      int
}

// Chunk is one increment of a streamed response. Usage is non-nil only
// on chunks that carry usage metadata.
type Chunk struct {
	Text         string
	Usage        *Usage
	FinishReason string
}

// Stream is a single-flight response sequence. The caller drives
// consumption by ranging over Chunks until it closes; a terminal
// failure is delivered on Errs. Abandoning the stream abandons the
// underlying network call.
type Stream struct {
	Chunks <-chan Chunk
	Errs   <-chan error

	// Substituted names the model actually used when the adapter
	// re-routed the request to a vision-capable sibling. Empty when the
	// requested model served the call.
	Substituted string
}

// Attachment is a prepared file reference. Exactly one of FileURI
// (remote upload, Gemini) or DataURI (inline base64 image, OpenAI) is
// populated.
type Attachment struct {
	Path     string
	MimeType string
	FileURI  string
	DataURI  string
}

// IsImage reports whether the attachment is an image.
func (a *Attachment) IsImage() bool {
	return a != nil && strings.HasPrefix(a.MimeType, "image/")
}

// RequestStats is the per-request token and latency record.
type RequestStats struct {
	// Prompt is all input tokens, system and user combined.
	Prompt int
	// Input estimates the user-only share of the prompt tokens. It is
	// always derived (prompt minus an estimated system-prompt count,
	// clamped at zero) and is approximate, never billing-grade.
	Input int
	// Thoughts is the reasoning-token count for reasoning models.
	Thoughts int
	Total    int

	FirstRespTime float64 // seconds to the first non-empty chunk
	TotalTime     float64 // seconds for the whole request
}

// Adapter is the capability interface implemented once per backend.
type Adapter interface {
	// PrepareAttachment readies a file for the backend. A blank path,
	// missing file or unsupported kind yields (nil, nil); the request
	// proceeds without an attachment.
	PrepareAttachment(ctx context.Context, path string) (*Attachment, error)

	// SendRequest starts one streaming generation call.
	SendRequest(ctx context.Context, cfg *config.RequestConfig, query string, att *Attachment) (*Stream, error)

	// TokenStats converts backend usage metadata into a RequestStats,
	// estimating via a fixed characters-per-token ratio when the
	// backend reported nothing.
	TokenStats(cfg *config.RequestConfig, usage *Usage, query string, att *Attachment) RequestStats

	// CountTokens counts tokens for a text (plus optional attachment).
	// Backends without a counting endpoint estimate.
	CountTokens(ctx context.Context, cfg *config.RequestConfig, text string, att *Attachment) (int, error)
}
