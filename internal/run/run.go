// Package run drives one request end to end: prepare the attachment,
// open the stream, relay chunks to the renderer, then finalize with
// token stats, cost and a history record.
package run

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"gemai/internal/config"
	"gemai/internal/history"
	"gemai/internal/logging"
	"gemai/internal/provider"
	"gemai/internal/registry"
)

// State is the lifecycle of a single request.
type State int

const (
	StateIdle State = iota
	StateSending
	StateStreaming
	StateFinalized
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateSending:
		return "sending"
	case StateStreaming:
		return "streaming"
	case StateFinalized:
		return "finalized"
	case StateFailed:
		return "failed"
	default:
		return "idle"
	}
}

// Options configure a Runner.
type Options struct {
	// Render receives the accumulated text after every chunk. Nil
	// disables incremental rendering.
	Render func(text string)

	// Store receives the finished (or partially finished) request.
	// Nil disables history.
	Store *history.Store

	// NewAdapter overrides the provider factory. Nil uses provider.New.
	NewAdapter func(cfg *config.RequestConfig) (provider.Adapter, error)
}

// Result is the outcome of a finalized request.
type Result struct {
	Text        string
	Stats       provider.RequestStats
	Cost        float64
	Substituted string
	Footer      string
}

// Runner executes requests one at a time.
type Runner struct {
	opts Options
	log  *zap.SugaredLogger

	mu    sync.Mutex
	state State
}

func New(opts Options) *Runner {
	if opts.NewAdapter == nil {
		opts.NewAdapter = provider.New
	}
	return &Runner{opts: opts, log: logging.L(logging.CategoryAPI)}
}

// State reports the current lifecycle state.
func (r *Runner) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

func (r *Runner) setState(s State) {
	r.mu.Lock()
	r.state = s
	r.mu.Unlock()
}

// Execute runs the request described by cfg to completion. On failure
// the partial text accumulated so far still lands in history, marked
// by the error state of the runner.
func (r *Runner) Execute(ctx context.Context, cfg *config.RequestConfig, query string) (*Result, error) {
	r.setState(StateSending)
	start := time.Now()

	adapter, err := r.opts.NewAdapter(cfg)
	if err != nil {
		r.setState(StateFailed)
		return nil, err
	}

	att, err := adapter.PrepareAttachment(ctx, cfg.Request.AttachmentFile)
	if err != nil {
		r.setState(StateFailed)
		return nil, fmt.Errorf("prepare attachment: %w", err)
	}

	stream, err := adapter.SendRequest(ctx, cfg, query, att)
	if err != nil {
		r.setState(StateFailed)
		return nil, err
	}

	var (
		sb        strings.Builder
		usage     *provider.Usage
		firstResp time.Duration
	)

	consume := func() error {
		for {
			select {
			case chunk, ok := <-stream.Chunks:
				if !ok {
					// Adapters deliver a terminal error and then close
					// the chunk channel; a closed channel alone does not
					// mean success.
					select {
					case err := <-stream.Errs:
						return err
					default:
						return nil
					}
				}
				if chunk.Text != "" {
					if sb.Len() == 0 {
						firstResp = time.Since(start)
						r.setState(StateStreaming)
					}
					sb.WriteString(chunk.Text)
					if r.opts.Render != nil {
						r.opts.Render(sb.String())
					}
				}
				if chunk.Usage != nil {
					usage = chunk.Usage
				}
			case err := <-stream.Errs:
				return err
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}

	if err := consume(); err != nil {
		r.setState(StateFailed)
		// Partial output is still worth keeping; the record carries
		// whatever arrived before the failure.
		r.record(cfg, stream.Substituted, query, sb.String(), adapter.TokenStats(cfg, usage, query, att), firstResp, time.Since(start))
		return nil, err
	}

	total := time.Since(start)
	stats := adapter.TokenStats(cfg, usage, query, att)
	stats.FirstRespTime = firstResp.Seconds()
	stats.TotalTime = total.Seconds()

	modelID := effectiveModelID(cfg, stream.Substituted)
	model := registry.Resolve(modelID, nil)
	cost := registry.Cost(model, stats.Prompt, stats.Total, stats.Thoughts)

	result := &Result{
		Text:        sb.String(),
		Stats:       stats,
		Cost:        cost,
		Substituted: stream.Substituted,
		Footer:      Footer(displayName(cfg, stream.Substituted), cfg.Model.Temperature, stats),
	}

	r.record(cfg, stream.Substituted, query, result.Text, stats, firstResp, total)
	r.setState(StateFinalized)
	r.log.Debugw("request finalized",
		"action", cfg.Request.ActionID, "model", modelID, "tokens", stats.Total, "seconds", stats.TotalTime)
	return result, nil
}

// record appends to history best-effort: a storage failure never masks
// the request outcome.
func (r *Runner) record(cfg *config.RequestConfig, substituted, query, answer string, stats provider.RequestStats, firstResp, total time.Duration) {
	if r.opts.Store == nil {
		return
	}
	_, err := r.opts.Store.Append(history.Record{
		Timestamp:     time.Now().UnixMilli(),
		ActionID:      cfg.Request.ActionID,
		ModelID:       effectiveModelID(cfg, substituted),
		ModelName:     displayName(cfg, substituted),
		Provider:      string(cfg.Provider),
		Query:         query,
		Answer:        answer,
		Attachment:    cfg.Request.AttachmentFile,
		Temperature:   cfg.Model.Temperature,
		PromptTokens:  stats.Prompt,
		InputTokens:   stats.Input,
		ThoughtTokens: stats.Thoughts,
		TotalTokens:   stats.Total,
		FirstRespTime: firstResp.Seconds(),
		TotalTime:     total.Seconds(),
	})
	if err != nil {
		r.log.Warnw("history append failed", "error", err)
	}
}

func effectiveModelID(cfg *config.RequestConfig, substituted string) string {
	if substituted != "" {
		return substituted
	}
	return cfg.Model.ModelName
}

func displayName(cfg *config.RequestConfig, substituted string) string {
	if substituted != "" {
		return registry.Resolve(substituted, nil).Name
	}
	return cfg.Model.DisplayName
}

// Footer formats the one-line stats summary shown under a finished
// response.
func Footer(display string, temperature float64, stats provider.RequestStats) string {
	return fmt.Sprintf("%s; %g°; Time: %.1f sec; P:%d + I:%d + T:%d ~ %d tokens",
		display, temperature, stats.TotalTime, stats.Prompt, stats.Input, stats.Thoughts, stats.Total)
}
