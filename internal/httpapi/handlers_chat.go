package httpapi

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/openfreerouter/freerouter/internal/classify"
	"github.com/openfreerouter/freerouter/internal/providers"
	"github.com/openfreerouter/freerouter/internal/router"
	"github.com/openfreerouter/freerouter/internal/stats"
)

// defaultMaxOutputTokens feeds cost estimation when the caller sets no
// max_tokens.
const defaultMaxOutputTokens = 4096

// reasoningHeaderLimit caps the X-FreeRouter-Reasoning header value.
const reasoningHeaderLimit = 200

// routing is the resolved plan for one request: the decision record plus the
// ordered model chain to attempt.
type routing struct {
	decision router.Decision
	chain    []string
	agentic  bool
}

// ChatCompletionsHandler serves POST /v1/chat/completions: decode, validate,
// classify (or honor an explicit model), then walk the fallback chain under
// per-tier deadlines.
func ChatCompletionsHandler(d Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		snap := d.Snapshot()

		body, err := io.ReadAll(r.Body)
		if err != nil {
			writeOpenAIError(w, "read body: "+err.Error(), "invalid_request_error", http.StatusBadRequest)
			return
		}
		var chat router.ChatRequest
		if err := json.Unmarshal(body, &chat); err != nil {
			writeOpenAIError(w, "invalid JSON: "+err.Error(), "invalid_request_error", http.StatusBadRequest)
			return
		}
		var raw map[string]any
		if err := json.Unmarshal(body, &raw); err != nil {
			writeOpenAIError(w, "invalid JSON: "+err.Error(), "invalid_request_error", http.StatusBadRequest)
			return
		}
		if chat.Model == "" {
			writeOpenAIError(w, "model is required", "invalid_request_error", http.StatusBadRequest)
			return
		}
		if len(chat.Messages) == 0 {
			writeOpenAIError(w, "messages is required", "invalid_request_error", http.StatusBadRequest)
			return
		}

		plan, err := route(snap, &chat, raw)
		if err != nil {
			writeOpenAIError(w, err.Error(), "invalid_request_error", http.StatusBadRequest)
			return
		}
		d.Stats.RecordDecision(&plan.decision)

		reqID := middleware.GetReqID(r.Context())
		upstream := &router.UpstreamRequest{Chat: &chat, Raw: raw, Tier: plan.decision.Tier}
		timeout := snap.Timeouts[plan.decision.Tier]
		if timeout <= 0 {
			timeout = 120 * time.Second
		}

		var lastErr error
		for i, modelID := range plan.chain {
			sender, bare, rerr := snap.Adapters.Resolve(modelID)
			if rerr != nil {
				lastErr = rerr
				continue
			}

			attemptCtx, cancel := context.WithTimeout(providers.WithRequestID(r.Context(), reqID), timeout)
			var done bool
			if chat.Stream {
				done, lastErr = streamAttempt(attemptCtx, cancel, w, d, snap, plan, attempt{
					sender: sender, modelID: modelID, bare: bare,
					upstream: upstream, reqID: reqID, fallback: i > 0,
				})
			} else {
				done, lastErr = sendAttempt(attemptCtx, cancel, w, d, plan, attempt{
					sender: sender, modelID: modelID, bare: bare,
					upstream: upstream, reqID: reqID, fallback: i > 0,
				})
			}
			if done {
				return
			}
			slog.Warn("attempt failed",
				slog.String("request_id", reqID),
				slog.String("model", modelID),
				slog.String("tier", plan.decision.TierName()),
				slog.Bool("fallback", i > 0),
				slog.String("error", lastErr.Error()))
		}

		msg := "all upstream attempts failed"
		if lastErr != nil {
			msg = lastErr.Error()
		}
		writeOpenAIError(w, msg, "server_error", http.StatusBadGateway)
	}
}

// route builds the routing plan. The model "auto" (optionally namespaced)
// triggers the mode-override parser and then the classifier; any other model
// string is explicit and becomes a single-entry chain.
func route(snap *Snapshot, chat *router.ChatRequest, raw map[string]any) (*routing, error) {
	maxOut := defaultMaxOutputTokens
	if chat.MaxTokens != nil {
		maxOut = *chat.MaxTokens
	}

	model := strings.TrimPrefix(chat.Model, router.Namespace+"/")
	if model != "auto" {
		return &routing{
			decision: snap.Selector.DecideExplicit(model, 0, maxOut),
			chain:    []string{model},
		}, nil
	}

	ext, err := classify.Extract(chat.Messages)
	if err != nil {
		return nil, err
	}
	cfg := snap.Classifier.Config()

	idx := lastConvoIndex(chat.Messages, ext.LastUserIndex)
	lastUser := &chat.Messages[idx]
	if o, ok := classify.DetectOverride(lastUser.Content.Flatten()); ok && !lastUser.Content.IsParts {
		stripOverride(chat, raw, idx, o.Stripped)
		agentic := snap.Config.AgenticMode
		tokens := classify.EstimateTokens(o.Stripped) + classify.EstimateTokens(ext.SystemPrompt)
		dec := snap.Selector.Decide(o.Tier, agentic, 1, "override",
			fmt.Sprintf("user-mode: %s (alias %q)", strings.ToLower(o.Tier.String()), o.Word), tokens, maxOut)
		return &routing{
			decision: dec,
			chain:    snap.Selector.Chain(o.Tier, agentic, tokens),
			agentic:  agentic,
		}, nil
	}

	res := snap.Classifier.Classify(ext.Prompt, ext.SystemPrompt)
	agentic := snap.Config.AgenticMode || res.AgenticScore >= cfg.AgenticThreshold
	dec := snap.Selector.Decide(res.Tier, agentic, res.Confidence, "rules", res.Reasoning, res.TotalTokens, maxOut)
	return &routing{
		decision: dec,
		chain:    snap.Selector.Chain(res.Tier, agentic, res.TotalTokens),
		agentic:  agentic,
	}, nil
}

// lastConvoIndex guards against a LastUserIndex that no longer points at a
// user message (it always should; Extract computed it from this list).
func lastConvoIndex(messages []router.Message, idx int) int {
	if idx >= 0 && idx < len(messages) && messages[idx].Role == "user" {
		return idx
	}
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == "user" {
			return i
		}
	}
	return len(messages) - 1
}

// stripOverride removes the mode directive from the final user message in
// both the typed request and the raw pass-through body, so the prefix never
// reaches an upstream.
func stripOverride(chat *router.ChatRequest, raw map[string]any, idx int, stripped string) {
	chat.Messages[idx].Content = router.Str(stripped)

	msgs, ok := raw["messages"].([]any)
	if !ok || idx >= len(msgs) {
		return
	}
	m, ok := msgs[idx].(map[string]any)
	if !ok {
		return
	}
	if _, isString := m["content"].(string); isString {
		m["content"] = stripped
	}
}

type attempt struct {
	sender   router.Sender
	modelID  string
	bare     string
	upstream *router.UpstreamRequest
	reqID    string
	fallback bool
}

func setRoutingHeaders(w http.ResponseWriter, modelID string, dec router.Decision) {
	reasoning := dec.Reasoning
	if len(reasoning) > reasoningHeaderLimit {
		reasoning = reasoning[:reasoningHeaderLimit]
	}
	w.Header().Set("X-FreeRouter-Model", modelID)
	w.Header().Set("X-FreeRouter-Tier", dec.TierName())
	w.Header().Set("X-FreeRouter-Reasoning", reasoning)
}

// sendAttempt runs one non-streaming upstream call. A false return means the
// caller may try the next chain entry; nothing was written to the client.
func sendAttempt(ctx context.Context, cancel context.CancelFunc, w http.ResponseWriter, d Dependencies, plan *routing, at attempt) (bool, error) {
	defer cancel()
	start := time.Now()

	body, err := at.sender.Send(ctx, at.bare, at.upstream)
	latency := float64(time.Since(start).Milliseconds())
	if err != nil {
		recordOutcome(d, plan, at, latency, err)
		return false, err
	}

	recordOutcome(d, plan, at, latency, nil)
	setRoutingHeaders(w, at.modelID, plan.decision)
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(body)
	return true, nil
}

// streamAttempt runs one streaming upstream call. Before the upstream
// responds, failures are fallback-eligible. Once the client response has
// started, any failure is terminal: the stream is tailed with an SSE error
// event and [DONE].
func streamAttempt(ctx context.Context, cancel context.CancelFunc, w http.ResponseWriter, d Dependencies, snap *Snapshot, plan *routing, at attempt) (bool, error) {
	defer cancel()
	start := time.Now()

	body, translator, err := at.sender.SendStream(ctx, at.bare, at.upstream)
	if err != nil {
		recordOutcome(d, plan, at, float64(time.Since(start).Milliseconds()), err)
		return false, err
	}
	defer func() { _ = body.Close() }()

	setRoutingHeaders(w, at.modelID, plan.decision)
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher, _ := w.(http.Flusher)

	// The stall watchdog cancels the upstream read when no bytes arrive for
	// the configured window; the timer resets on every read, so a slowly
	// arriving large event still counts as liveness.
	stallWindow := snap.StallTimeout
	if stallWindow <= 0 {
		stallWindow = 30 * time.Second
	}
	var stalled atomic.Bool
	watchdog := time.AfterFunc(stallWindow, func() {
		stalled.Store(true)
		cancel()
	})
	defer watchdog.Stop()

	scanner := bufio.NewScanner(&activityReader{r: body, seen: func() {
		watchdog.Reset(stallWindow)
	}})
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if !bytes.HasPrefix(line, []byte("data:")) {
			continue
		}
		data := bytes.TrimSpace(line[len("data:"):])
		if len(data) == 0 {
			continue
		}
		for _, payload := range translator.Next(data) {
			writeSSE(w, flusher, payload)
		}
	}

	latency := float64(time.Since(start).Milliseconds())
	if readErr := scanner.Err(); readErr != nil {
		err := readErr
		if stalled.Load() {
			err = fmt.Errorf("upstream stalled for %s: %w", stallWindow, context.DeadlineExceeded)
		} else if ctx.Err() != nil {
			err = fmt.Errorf("upstream read: %w", ctx.Err())
		}
		recordOutcome(d, plan, at, latency, err)
		tail, _ := json.Marshal(openaiErrorBody{Error: openaiErrorDetail{
			Message: err.Error(),
			Type:    "server_error",
		}})
		writeSSE(w, flusher, tail)
		writeDone(w, flusher)
		return true, nil
	}

	for _, payload := range translator.Finish() {
		writeSSE(w, flusher, payload)
	}
	writeDone(w, flusher)
	recordOutcome(d, plan, at, latency, nil)
	return true, nil
}

// activityReader reports upstream progress byte-by-byte: seen fires on every
// read that returned data, regardless of line framing.
type activityReader struct {
	r    io.Reader
	seen func()
}

func (a *activityReader) Read(p []byte) (int, error) {
	n, err := a.r.Read(p)
	if n > 0 {
		a.seen()
	}
	return n, err
}

func writeSSE(w io.Writer, f http.Flusher, payload []byte) {
	_, _ = w.Write([]byte("data: "))
	_, _ = w.Write(payload)
	_, _ = w.Write([]byte("\n\n"))
	if f != nil {
		f.Flush()
	}
}

func writeDone(w io.Writer, f http.Flusher) {
	_, _ = w.Write([]byte("data: [DONE]\n\n"))
	if f != nil {
		f.Flush()
	}
}

// recordOutcome feeds one attempt result into stats, metrics, and health.
func recordOutcome(d Dependencies, plan *routing, at attempt, latencyMs float64, err error) {
	provider, _ := router.SplitModelID(at.modelID)
	tier := plan.decision.TierName()
	isTimeout := err != nil && errors.Is(err, context.DeadlineExceeded)

	saved := plan.decision.BaselineCost - plan.decision.CostEstimate
	if saved < 0 {
		saved = 0
	}

	d.Stats.Record(stats.Record{
		Tier:      plan.decision.Tier,
		Model:     at.modelID,
		Provider:  provider,
		LatencyMs: latencyMs,
		Savings:   saved,
		Fallback:  at.fallback,
		Err:       err != nil,
		Timeout:   isTimeout,
	})

	status := "200"
	switch {
	case isTimeout:
		status = "timeout"
	case err != nil:
		status = "error"
	}
	d.Metrics.RequestsTotal.WithLabelValues(tier, at.bare, provider, status).Inc()
	d.Metrics.RequestLatency.WithLabelValues(tier, at.bare, provider).Observe(latencyMs)
	if at.fallback {
		d.Metrics.FallbacksTotal.WithLabelValues(provider).Inc()
	}
	if err == nil {
		d.Metrics.SavingsUSD.WithLabelValues(at.bare).Add(saved)
		d.Health.RecordSuccess(at.modelID)
	} else {
		d.Health.RecordError(at.modelID, err.Error())
	}
}
