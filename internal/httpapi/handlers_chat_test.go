package httpapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/openfreerouter/freerouter/internal/classify"
	"github.com/openfreerouter/freerouter/internal/config"
	"github.com/openfreerouter/freerouter/internal/health"
	"github.com/openfreerouter/freerouter/internal/metrics"
	"github.com/openfreerouter/freerouter/internal/router"
	"github.com/openfreerouter/freerouter/internal/stats"
)

type fakeSender struct {
	id     string
	send   func(ctx context.Context, model string, req *router.UpstreamRequest) ([]byte, error)
	stream func(ctx context.Context, model string, req *router.UpstreamRequest) (io.ReadCloser, router.ChunkTranslator, error)
}

func (f *fakeSender) ID() string { return f.id }

func (f *fakeSender) Send(ctx context.Context, model string, req *router.UpstreamRequest) ([]byte, error) {
	return f.send(ctx, model, req)
}

func (f *fakeSender) SendStream(ctx context.Context, model string, req *router.UpstreamRequest) (io.ReadCloser, router.ChunkTranslator, error) {
	return f.stream(ctx, model, req)
}

// passTranslator forwards payloads untouched and swallows upstream [DONE].
type passTranslator struct{}

func (passTranslator) Next(data []byte) [][]byte {
	if string(data) == "[DONE]" {
		return nil
	}
	return [][]byte{data}
}

func (passTranslator) Finish() [][]byte { return nil }

func okSend(model string) func(context.Context, string, *router.UpstreamRequest) ([]byte, error) {
	return func(_ context.Context, _ string, _ *router.UpstreamRequest) ([]byte, error) {
		return []byte(fmt.Sprintf(`{"id":"chatcmpl-x","object":"chat.completion","model":"freerouter/%s","choices":[{"index":0,"message":{"role":"assistant","content":"hi"},"finish_reason":"stop"}]}`, model)), nil
	}
}

func newTestDeps(t *testing.T, senders ...*fakeSender) Dependencies {
	t.Helper()
	cfg := config.Default()
	reg := router.NewRegistry()
	for _, s := range senders {
		reg.Register(s)
	}
	snap := &Snapshot{
		Config:     cfg,
		Classifier: classify.New(cfg.EffectiveScoring()),
		Selector: &router.Selector{
			Tiers:         cfg.Tiers,
			AgenticTiers:  cfg.AgenticTiers,
			Catalog:       cfg.Models,
			BaselineModel: cfg.BaselineModel,
		},
		Adapters: reg,
		Timeouts: map[router.Tier]time.Duration{
			router.TierSimple:    time.Second,
			router.TierMedium:    time.Second,
			router.TierComplex:   time.Second,
			router.TierReasoning: time.Second,
		},
		StallTimeout: 100 * time.Millisecond,
	}
	return Dependencies{
		Snapshot: func() *Snapshot { return snap },
		Stats:    stats.NewCollector(),
		Metrics:  metrics.New(),
		Health:   health.NewTracker(health.DefaultConfig()),
		Version:  "test",
		RedactedConfig: func() map[string]any {
			return map[string]any{"host": cfg.Host}
		},
		ReloadCreds:  func() error { return nil },
		ReloadConfig: func() error { return nil },
	}
}

func newTestRouter(d Dependencies) chi.Router {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	MountRoutes(r, d)
	return r
}

func postChat(t *testing.T, h http.Handler, body string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/v1/chat/completions", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	h.ServeHTTP(rec, req)
	return rec
}

func TestChatRejectsInvalidBodies(t *testing.T) {
	d := newTestDeps(t)
	h := newTestRouter(d)

	tests := []struct {
		name string
		body string
	}{
		{"bad json", `{not json`},
		{"missing model", `{"messages":[{"role":"user","content":"hi"}]}`},
		{"missing messages", `{"model":"auto"}`},
		{"no user message", `{"model":"auto","messages":[{"role":"assistant","content":"hi"}]}`},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec := postChat(t, h, tc.body)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("status = %d", rec.Code)
			}
			var e openaiErrorBody
			if err := json.Unmarshal(rec.Body.Bytes(), &e); err != nil {
				t.Fatalf("error body: %v", err)
			}
			if e.Error.Type != "invalid_request_error" {
				t.Errorf("type = %q", e.Error.Type)
			}
		})
	}
}

func TestChatSimplePromptRoutesToSimpleTier(t *testing.T) {
	var gotModel string
	anthropic := &fakeSender{
		id: "anthropic",
		send: func(_ context.Context, model string, _ *router.UpstreamRequest) ([]byte, error) {
			gotModel = model
			return okSend(model)(nil, "", nil)
		},
	}
	d := newTestDeps(t, anthropic)
	h := newTestRouter(d)

	rec := postChat(t, h, `{"model":"auto","messages":[{"role":"user","content":"hi"}]}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	if gotModel != "claude-haiku-4-5" {
		t.Errorf("upstream model = %q", gotModel)
	}
	if got := rec.Header().Get("X-FreeRouter-Tier"); got != "SIMPLE" {
		t.Errorf("tier header = %q", got)
	}
	if got := rec.Header().Get("X-FreeRouter-Model"); got != "anthropic/claude-haiku-4-5" {
		t.Errorf("model header = %q", got)
	}
	if rec.Header().Get("X-FreeRouter-Reasoning") == "" {
		t.Error("reasoning header empty")
	}

	s := d.Stats.Summary()
	if s.TotalRequests != 1 || s.ByTier["SIMPLE"] != 1 {
		t.Errorf("stats = %+v", s)
	}
}

func TestChatExplicitModelBypassesClassification(t *testing.T) {
	var gotModel string
	anthropic := &fakeSender{
		id: "anthropic",
		send: func(_ context.Context, model string, _ *router.UpstreamRequest) ([]byte, error) {
			gotModel = model
			return okSend(model)(nil, "", nil)
		},
	}
	d := newTestDeps(t, anthropic)
	h := newTestRouter(d)

	rec := postChat(t, h, `{"model":"freerouter/anthropic/claude-opus-4-6","messages":[{"role":"user","content":"hi"}]}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	if gotModel != "claude-opus-4-6" {
		t.Errorf("upstream model = %q", gotModel)
	}
	if got := rec.Header().Get("X-FreeRouter-Tier"); got != "EXPLICIT" {
		t.Errorf("tier header = %q", got)
	}
}

func TestChatModeOverrideStripsPrefix(t *testing.T) {
	var gotContent string
	var gotRawContent string
	anthropic := &fakeSender{
		id: "anthropic",
		send: func(_ context.Context, model string, req *router.UpstreamRequest) ([]byte, error) {
			gotContent = req.Chat.Messages[0].Content.Flatten()
			msgs := req.Raw["messages"].([]any)
			gotRawContent = msgs[0].(map[string]any)["content"].(string)
			return okSend(model)(nil, "", nil)
		},
	}
	d := newTestDeps(t, anthropic)
	h := newTestRouter(d)

	rec := postChat(t, h, `{"model":"auto","messages":[{"role":"user","content":"/max prove this theorem"}]}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	if got := rec.Header().Get("X-FreeRouter-Tier"); got != "REASONING" {
		t.Errorf("tier header = %q", got)
	}
	if got := rec.Header().Get("X-FreeRouter-Reasoning"); !strings.Contains(got, "user-mode: reasoning") {
		t.Errorf("reasoning header = %q, want user-mode: reasoning", got)
	}
	if gotContent != "prove this theorem" {
		t.Errorf("typed content = %q, prefix not stripped", gotContent)
	}
	if gotRawContent != "prove this theorem" {
		t.Errorf("raw content = %q, prefix not stripped", gotRawContent)
	}
}

func TestChatFallbackOnPreHeaderFailure(t *testing.T) {
	anthropic := &fakeSender{
		id: "anthropic",
		send: func(_ context.Context, model string, _ *router.UpstreamRequest) ([]byte, error) {
			if model == "claude-haiku-4-5" {
				return nil, fmt.Errorf("upstream 500")
			}
			return okSend(model)(nil, "", nil)
		},
	}
	d := newTestDeps(t, anthropic)
	h := newTestRouter(d)

	rec := postChat(t, h, `{"model":"auto","messages":[{"role":"user","content":"hi"}]}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	if got := rec.Header().Get("X-FreeRouter-Model"); got != "anthropic/claude-sonnet-4-5" {
		t.Errorf("model header = %q, want the fallback model", got)
	}

	s := d.Stats.Summary()
	if s.Errors != 1 || s.Fallbacks != 1 {
		t.Errorf("errors = %d, fallbacks = %d", s.Errors, s.Fallbacks)
	}
}

func TestChatExhaustedChainReturns502(t *testing.T) {
	anthropic := &fakeSender{
		id: "anthropic",
		send: func(_ context.Context, _ string, _ *router.UpstreamRequest) ([]byte, error) {
			return nil, fmt.Errorf("upstream down")
		},
	}
	d := newTestDeps(t, anthropic)
	h := newTestRouter(d)

	rec := postChat(t, h, `{"model":"auto","messages":[{"role":"user","content":"hi"}]}`)
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("status = %d", rec.Code)
	}
	var e openaiErrorBody
	if err := json.Unmarshal(rec.Body.Bytes(), &e); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(e.Error.Message, "upstream down") {
		t.Errorf("message = %q", e.Error.Message)
	}
}

func TestChatStreamEndsWithDone(t *testing.T) {
	anthropic := &fakeSender{
		id: "anthropic",
		stream: func(_ context.Context, _ string, _ *router.UpstreamRequest) (io.ReadCloser, router.ChunkTranslator, error) {
			sse := "data: {\"choices\":[{\"delta\":{\"content\":\"hel\"}}]}\n\n" +
				"data: {\"choices\":[{\"delta\":{\"content\":\"lo\"}}]}\n\n" +
				"data: [DONE]\n\n"
			return io.NopCloser(strings.NewReader(sse)), passTranslator{}, nil
		},
	}
	d := newTestDeps(t, anthropic)
	h := newTestRouter(d)

	rec := postChat(t, h, `{"model":"auto","messages":[{"role":"user","content":"hi"}],"stream":true}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("Content-Type = %q", ct)
	}
	body := rec.Body.String()
	if !strings.Contains(body, `"content":"hel"`) || !strings.Contains(body, `"content":"lo"`) {
		t.Errorf("deltas missing: %s", body)
	}
	if !strings.HasSuffix(body, "data: [DONE]\n\n") {
		t.Errorf("stream not terminated with [DONE]: %q", body)
	}
	// The upstream [DONE] must not be duplicated by the translator.
	if strings.Count(body, "[DONE]") != 1 {
		t.Errorf("[DONE] count = %d", strings.Count(body, "[DONE]"))
	}
}

// stallingBody yields its initial payload, then blocks until the attempt
// context is cancelled.
type stallingBody struct {
	ctx  context.Context
	data []byte
	sent bool
}

func (b *stallingBody) Read(p []byte) (int, error) {
	if !b.sent {
		b.sent = true
		n := copy(p, b.data)
		return n, nil
	}
	<-b.ctx.Done()
	return 0, b.ctx.Err()
}

func (b *stallingBody) Close() error { return nil }

func TestChatStreamStallEmitsErrorTail(t *testing.T) {
	anthropic := &fakeSender{
		id: "anthropic",
		stream: func(ctx context.Context, _ string, _ *router.UpstreamRequest) (io.ReadCloser, router.ChunkTranslator, error) {
			body := &stallingBody{
				ctx:  ctx,
				data: []byte("data: {\"choices\":[{\"delta\":{\"content\":\"partial\"}}]}\n\n"),
			}
			return body, passTranslator{}, nil
		},
	}
	d := newTestDeps(t, anthropic)
	h := newTestRouter(d)

	rec := postChat(t, h, `{"model":"auto","messages":[{"role":"user","content":"hi"}],"stream":true}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, `"content":"partial"`) {
		t.Errorf("partial output missing: %s", body)
	}
	if !strings.Contains(body, "stalled") {
		t.Errorf("error tail missing: %s", body)
	}
	if !strings.HasSuffix(body, "data: [DONE]\n\n") {
		t.Errorf("stream not terminated with [DONE]: %q", body)
	}

	s := d.Stats.Summary()
	if s.Timeouts != 1 {
		t.Errorf("timeouts = %d", s.Timeouts)
	}
}

// dripBody emits its chunks one Read at a time with a pause before each
// subsequent chunk.
type dripBody struct {
	chunks []string
	gap    time.Duration
	i      int
}

func (b *dripBody) Read(p []byte) (int, error) {
	if b.i >= len(b.chunks) {
		return 0, io.EOF
	}
	if b.i > 0 {
		time.Sleep(b.gap)
	}
	n := copy(p, b.chunks[b.i])
	b.i++
	return n, nil
}

func (b *dripBody) Close() error { return nil }

func TestChatStreamSlowSingleLineIsNotAStall(t *testing.T) {
	// One SSE event arriving in fragments, each within the stall window but
	// totalling well past it. Progress mid-line must keep the stream alive.
	anthropic := &fakeSender{
		id: "anthropic",
		stream: func(_ context.Context, _ string, _ *router.UpstreamRequest) (io.ReadCloser, router.ChunkTranslator, error) {
			body := &dripBody{
				chunks: []string{
					"data: {\"choices\":[{\"delta\":",
					"{\"content\":",
					"\"slow but ",
					"steady\"}}",
					"]}\n\n",
				},
				gap: 40 * time.Millisecond,
			}
			return body, passTranslator{}, nil
		},
	}
	d := newTestDeps(t, anthropic)
	h := newTestRouter(d)

	rec := postChat(t, h, `{"model":"auto","messages":[{"role":"user","content":"hi"}],"stream":true}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, `"content":"slow but steady"`) {
		t.Errorf("delta missing: %s", body)
	}
	if strings.Contains(body, "stalled") {
		t.Errorf("slow line misread as stall: %s", body)
	}
	if !strings.HasSuffix(body, "data: [DONE]\n\n") {
		t.Errorf("stream not terminated with [DONE]: %q", body)
	}
	if s := d.Stats.Summary(); s.Timeouts != 0 {
		t.Errorf("timeouts = %d", s.Timeouts)
	}
}

func TestChatStreamPreHeaderFailureFallsBack(t *testing.T) {
	anthropic := &fakeSender{
		id: "anthropic",
		stream: func(_ context.Context, model string, _ *router.UpstreamRequest) (io.ReadCloser, router.ChunkTranslator, error) {
			if model == "claude-haiku-4-5" {
				return nil, nil, fmt.Errorf("connect refused")
			}
			return io.NopCloser(strings.NewReader("data: {\"ok\":true}\n\n")), passTranslator{}, nil
		},
	}
	d := newTestDeps(t, anthropic)
	h := newTestRouter(d)

	rec := postChat(t, h, `{"model":"auto","messages":[{"role":"user","content":"hi"}],"stream":true}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	if got := rec.Header().Get("X-FreeRouter-Model"); got != "anthropic/claude-sonnet-4-5" {
		t.Errorf("model header = %q", got)
	}
	if !strings.HasSuffix(rec.Body.String(), "data: [DONE]\n\n") {
		t.Errorf("stream not terminated with [DONE]")
	}
}

func TestChatUpstreamRequestCarriesTier(t *testing.T) {
	var gotTier router.Tier
	anthropic := &fakeSender{
		id: "anthropic",
		send: func(_ context.Context, model string, req *router.UpstreamRequest) ([]byte, error) {
			gotTier = req.Tier
			return okSend(model)(nil, "", nil)
		},
	}
	d := newTestDeps(t, anthropic)
	h := newTestRouter(d)

	rec := postChat(t, h, `{"model":"auto","messages":[{"role":"user","content":"[complex] design a distributed cache"}]}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if gotTier != router.TierComplex {
		t.Errorf("upstream tier = %s", gotTier)
	}
}
