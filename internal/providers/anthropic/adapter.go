// Package anthropic translates OpenAI-chat requests to the Anthropic
// messages API and back, including streaming SSE translation.
package anthropic

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/openfreerouter/freerouter/internal/providers"
	"github.com/openfreerouter/freerouter/internal/router"
)

const (
	apiVersion = "2023-06-01"

	// Feature flags required when authenticating with an OAuth token.
	oauthBetas = "claude-code-20250219,oauth-2025-04-20,interleaved-thinking-2025-05-14,fine-grained-tool-streaming-2025-05-14"

	oauthUserAgent = "claude-cli/1.0.119 (external, cli)"

	// identityPrompt is the fixed first system block for OAuth requests.
	identityPrompt = "You are Claude Code, Anthropic's official CLI for Claude."
)

// CredFunc resolves the current credentials for this provider. It is called
// per request so a credential reload takes effect without rebuilding the
// adapter.
type CredFunc func() (providers.Credentials, error)

// Adapter implements router.Sender against the Anthropic messages API.
type Adapter struct {
	id      string
	baseURL string
	creds   CredFunc
	static  map[string]string
	client  *http.Client

	adaptiveModels   []string
	thinkingBudget   int
	defaultMaxTokens int
}

type Option func(*Adapter)

// WithHTTPClient overrides the HTTP client (no client-level timeout by
// default; attempt deadlines come from the request context).
func WithHTTPClient(c *http.Client) Option {
	return func(a *Adapter) { a.client = c }
}

// WithStaticHeaders adds provider-descriptor headers to every request.
func WithStaticHeaders(h map[string]string) Option {
	return func(a *Adapter) { a.static = h }
}

// WithAdaptiveModels sets the model-id substrings that enable adaptive
// thinking on COMPLEX and REASONING requests.
func WithAdaptiveModels(patterns []string) Option {
	return func(a *Adapter) { a.adaptiveModels = patterns }
}

// WithThinkingBudget sets the budget_tokens used on MEDIUM-tier requests.
func WithThinkingBudget(tokens int) Option {
	return func(a *Adapter) { a.thinkingBudget = tokens }
}

func New(id, baseURL string, creds CredFunc, opts ...Option) *Adapter {
	a := &Adapter{
		id:      id,
		baseURL: strings.TrimSuffix(baseURL, "/"),
		creds:   creds,
		client:  &http.Client{Transport: http.DefaultTransport},

		adaptiveModels:   []string{"opus-4-6", "opus-4.6"},
		thinkingBudget:   4096,
		defaultMaxTokens: 4096,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

func (a *Adapter) ID() string { return a.id }

// Send performs a non-streaming messages call and returns an OpenAI
// chat.completion body.
func (a *Adapter) Send(ctx context.Context, model string, req *router.UpstreamRequest) ([]byte, error) {
	creds, err := a.creds()
	if err != nil {
		return nil, fmt.Errorf("anthropic credentials: %w", err)
	}
	payload, err := a.buildRequest(model, req, creds.IsOAuth(), false)
	if err != nil {
		return nil, err
	}
	body, err := providers.DoRequest(ctx, a.client, a.baseURL+"/v1/messages", payload, a.headers(creds))
	if err != nil {
		return nil, err
	}
	return translateResponse(body, providers.GetRequestID(ctx), router.Namespace+"/"+model)
}

// SendStream performs a streaming messages call. The returned translator
// converts Anthropic SSE events into OpenAI chat.completion.chunk payloads.
func (a *Adapter) SendStream(ctx context.Context, model string, req *router.UpstreamRequest) (io.ReadCloser, router.ChunkTranslator, error) {
	creds, err := a.creds()
	if err != nil {
		return nil, nil, fmt.Errorf("anthropic credentials: %w", err)
	}
	payload, err := a.buildRequest(model, req, creds.IsOAuth(), true)
	if err != nil {
		return nil, nil, err
	}
	body, err := providers.DoStreamRequest(ctx, a.client, a.baseURL+"/v1/messages", payload, a.headers(creds))
	if err != nil {
		return nil, nil, err
	}
	tr := newStreamTranslator(providers.GetRequestID(ctx), router.Namespace+"/"+model)
	return body, tr, nil
}

func (a *Adapter) headers(c providers.Credentials) map[string]string {
	h := map[string]string{
		"anthropic-version": apiVersion,
		"accept":            "application/json",
	}
	for k, v := range a.static {
		h[k] = v
	}
	if c.IsOAuth() {
		h["Authorization"] = "Bearer " + c.Token
		h["anthropic-beta"] = oauthBetas
		h["user-agent"] = oauthUserAgent
		h["x-app"] = "cli"
		h["anthropic-dangerous-direct-browser-access"] = "true"
	} else if c.APIKey != "" {
		h["x-api-key"] = c.APIKey
	} else if c.Token != "" {
		h["Authorization"] = "Bearer " + c.Token
	}
	return h
}

// adaptiveCapable reports whether the model supports adaptive thinking.
func (a *Adapter) adaptiveCapable(model string) bool {
	for _, p := range a.adaptiveModels {
		if strings.Contains(model, p) {
			return true
		}
	}
	return false
}

// thinkingFor maps the routing tier to the thinking config for this model.
// Temperature must be suppressed whenever a config is returned.
func (a *Adapter) thinkingFor(model string, tier router.Tier) *thinkingConfig {
	switch {
	case a.adaptiveCapable(model) && tier >= router.TierComplex:
		return &thinkingConfig{Type: "adaptive"}
	case tier == router.TierMedium:
		return &thinkingConfig{Type: "enabled", BudgetTokens: a.thinkingBudget}
	default:
		return nil
	}
}

// WithTimeout sets a whole-request timeout on the HTTP client. Streaming
// adapters normally rely on context deadlines instead.
func WithTimeout(d time.Duration) Option {
	return func(a *Adapter) {
		if a.client == nil {
			a.client = &http.Client{}
		}
		a.client.Timeout = d
	}
}
