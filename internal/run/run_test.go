package run

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"gemai/internal/command"
	"gemai/internal/config"
	"gemai/internal/history"
	"gemai/internal/provider"
	"gemai/internal/registry"
)

// fakeAdapter replays a scripted stream.
type fakeAdapter struct {
	chunks      []provider.Chunk
	streamErr   error
	substituted string
}

func (f *fakeAdapter) PrepareAttachment(ctx context.Context, path string) (*provider.Attachment, error) {
	return nil, nil
}

func (f *fakeAdapter) SendRequest(ctx context.Context, cfg *config.RequestConfig, query string, att *provider.Attachment) (*provider.Stream, error) {
	chunks := make(chan provider.Chunk)
	errs := make(chan error, 1)
	go func() {
		for _, c := range f.chunks {
			chunks <- c
		}
		// Same shutdown order as the real adapters: the error lands on
		// the buffered channel first, then the chunk channel closes.
		if f.streamErr != nil {
			errs <- f.streamErr
		}
		close(chunks)
	}()
	return &provider.Stream{Chunks: chunks, Errs: errs, Substituted: f.substituted}, nil
}

func (f *fakeAdapter) TokenStats(cfg *config.RequestConfig, usage *provider.Usage, query string, att *provider.Attachment) provider.RequestStats {
	if usage == nil {
		return provider.RequestStats{}
	}
	return provider.RequestStats{
		Prompt:   usage.PromptTokens,
		Input:    usage.PromptTokens,
		Thoughts: usage.ThoughtTokens,
		Total:    usage.TotalTokens,
	}
}

func (f *fakeAdapter) CountTokens(ctx context.Context, cfg *config.RequestConfig, text string, att *provider.Attachment) (int, error) {
	return provider.EstimateTokens(text), nil
}

func testPrefs() config.Preferences {
	return config.Preferences{
		PrimaryLanguage:   "English",
		SecondaryLanguage: "German",
		GeminiAPIKey:      "gm-key",
		OpenAIAPIKey:      "oa-key",
	}
}

func runnerWith(t *testing.T, fake *fakeAdapter, store *history.Store, render func(string)) *Runner {
	t.Helper()
	return New(Options{
		Render: render,
		Store:  store,
		NewAdapter: func(cfg *config.RequestConfig) (provider.Adapter, error) {
			return fake, nil
		},
	})
}

func TestExecuteTranslateEndToEnd(t *testing.T) {
	store, err := history.Open(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	fake := &fakeAdapter{chunks: []provider.Chunk{
		{Text: "Guten "},
		{Text: "Tag"},
		{Usage: &provider.Usage{PromptTokens: 40, TotalTokens: 44}, FinishReason: "STOP"},
	}}

	var renders []string
	r := runnerWith(t, fake, store, func(s string) { renders = append(renders, s) })

	cfg, err := config.Build(command.Translator, config.Invocation{Query: "good day"}, testPrefs())
	if err != nil {
		t.Fatal(err)
	}

	result, err := r.Execute(context.Background(), cfg, "good day")
	if err != nil {
		t.Fatal(err)
	}
	if r.State() != StateFinalized {
		t.Fatalf("state=%v, want finalized", r.State())
	}
	if result.Text != "Guten Tag" {
		t.Fatalf("text=%q", result.Text)
	}
	if len(renders) != 2 || renders[0] != "Guten " || renders[1] != "Guten Tag" {
		t.Fatalf("renders=%q (must accumulate)", renders)
	}
	if result.Stats.Prompt != 40 || result.Stats.Total != 44 {
		t.Fatalf("stats=%+v", result.Stats)
	}
	if result.Stats.TotalTime < result.Stats.FirstRespTime {
		t.Fatalf("total time %v < first-response time %v", result.Stats.TotalTime, result.Stats.FirstRespTime)
	}
	if result.Cost <= 0 {
		t.Fatalf("cost=%v, want > 0", result.Cost)
	}

	recs, err := store.List(0)
	if err != nil {
		t.Fatal(err)
	}
	if len(recs) != 1 {
		t.Fatalf("records=%d, want 1", len(recs))
	}
	rec := recs[0]
	if rec.ActionID != command.Translator {
		t.Fatalf("action=%q", rec.ActionID)
	}
	if rec.Query != "good day" || rec.Answer != "Guten Tag" {
		t.Fatalf("record=%+v", rec)
	}
	if rec.TotalTokens != 44 {
		t.Fatalf("tokens=%d", rec.TotalTokens)
	}
}

func TestExecuteRecordsPartialOnFailure(t *testing.T) {
	store, err := history.Open(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	boom := errors.New("connection reset")
	fake := &fakeAdapter{
		chunks:    []provider.Chunk{{Text: "partial ans"}},
		streamErr: boom,
	}
	r := runnerWith(t, fake, store, nil)

	cfg, err := config.Build(command.Ask, config.Invocation{Query: "hi"}, testPrefs())
	if err != nil {
		t.Fatal(err)
	}

	_, err = r.Execute(context.Background(), cfg, "hi")
	if !errors.Is(err, boom) {
		t.Fatalf("err=%v, want %v", err, boom)
	}
	if r.State() != StateFailed {
		t.Fatalf("state=%v, want failed", r.State())
	}

	recs, err := store.List(0)
	if err != nil {
		t.Fatal(err)
	}
	if len(recs) != 1 || recs[0].Answer != "partial ans" {
		t.Fatalf("partial text must be preserved: %+v", recs)
	}
}

func TestExecuteSubstitutionFlowsToRecord(t *testing.T) {
	store, err := history.Open(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	fake := &fakeAdapter{
		chunks:      []provider.Chunk{{Text: "a screenshot", Usage: &provider.Usage{PromptTokens: 10, TotalTokens: 20}}},
		substituted: registry.VisionFallbackModel,
	}
	r := runnerWith(t, fake, store, nil)

	prefs := testPrefs()
	prefs.CommandModels = map[string]string{command.Ask: "o4-mini"}
	cfg, err := config.Build(command.Ask, config.Invocation{Query: "what"}, prefs)
	if err != nil {
		t.Fatal(err)
	}

	result, err := r.Execute(context.Background(), cfg, "what")
	if err != nil {
		t.Fatal(err)
	}
	if result.Substituted != registry.VisionFallbackModel {
		t.Fatalf("substituted=%q", result.Substituted)
	}

	recs, _ := store.List(0)
	if len(recs) != 1 || recs[0].ModelID != registry.VisionFallbackModel {
		t.Fatalf("record must carry the substituted model: %+v", recs)
	}
}

func TestExecuteErrorBeforeChannelCloseNotSwallowed(t *testing.T) {
	boom := errors.New("stream reset")
	cfg, err := config.Build(command.Ask, config.Invocation{Query: "hi"}, testPrefs())
	if err != nil {
		t.Fatal(err)
	}

	// The error and the channel close race in the consumer's select;
	// repeat to cover both arrival orders.
	for i := 0; i < 50; i++ {
		fake := &fakeAdapter{
			chunks:    []provider.Chunk{{Text: "partial"}},
			streamErr: boom,
		}
		r := runnerWith(t, fake, nil, nil)
		if _, err := r.Execute(context.Background(), cfg, "hi"); !errors.Is(err, boom) {
			t.Fatalf("run %d: err=%v, want %v (terminal error must not finalize as success)", i, err, boom)
		}
		if r.State() != StateFailed {
			t.Fatalf("run %d: state=%v, want failed", i, r.State())
		}
	}
}

func TestExecuteWithoutStore(t *testing.T) {
	fake := &fakeAdapter{chunks: []provider.Chunk{{Text: "ok"}}}
	r := runnerWith(t, fake, nil, nil)

	cfg, err := config.Build(command.Ask, config.Invocation{Query: "hi"}, testPrefs())
	if err != nil {
		t.Fatal(err)
	}
	result, err := r.Execute(context.Background(), cfg, "hi")
	if err != nil || result.Text != "ok" {
		t.Fatalf("result=%+v err=%v", result, err)
	}
}

func TestFooterFormat(t *testing.T) {
	stats := provider.RequestStats{Prompt: 40, Input: 12, Thoughts: 3, Total: 55, TotalTime: 2.0}
	got := Footer("Gemini 2.0 Flash", 0.3, stats)
	want := "Gemini 2.0 Flash; 0.3°; Time: 2.0 sec; P:40 + I:12 + T:3 ~ 55 tokens"
	if got != want {
		t.Fatalf("footer=%q, want %q", got, want)
	}
	if !strings.Contains(got, "°") {
		t.Fatal("degree mark missing")
	}
}
