// Package openai forwards chat requests to an OpenAI-compatible endpoint
// nearly verbatim, rewriting only the model field on the way out and back.
package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/openfreerouter/freerouter/internal/providers"
	"github.com/openfreerouter/freerouter/internal/router"
)

// CredFunc resolves the current credentials for this provider, called per
// request so reloads take effect immediately.
type CredFunc func() (providers.Credentials, error)

// Adapter implements router.Sender for OpenAI-compatible upstreams.
type Adapter struct {
	id      string
	baseURL string
	creds   CredFunc
	static  map[string]string
	client  *http.Client
}

type Option func(*Adapter)

func WithHTTPClient(c *http.Client) Option {
	return func(a *Adapter) { a.client = c }
}

func WithStaticHeaders(h map[string]string) Option {
	return func(a *Adapter) { a.static = h }
}

func WithTimeout(d time.Duration) Option {
	return func(a *Adapter) { a.client.Timeout = d }
}

func New(id, baseURL string, creds CredFunc, opts ...Option) *Adapter {
	a := &Adapter{
		id:      id,
		baseURL: strings.TrimSuffix(baseURL, "/"),
		creds:   creds,
		client:  &http.Client{Transport: http.DefaultTransport},
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

func (a *Adapter) ID() string { return a.id }

// payload returns the raw body with the model field swapped and the stream
// flag forced. Everything else passes through untouched.
func payload(req *router.UpstreamRequest, model string, stream bool) map[string]any {
	out := make(map[string]any, len(req.Raw)+2)
	for k, v := range req.Raw {
		out[k] = v
	}
	out["model"] = model
	if stream {
		out["stream"] = true
	} else {
		delete(out, "stream")
	}
	return out
}

func (a *Adapter) Send(ctx context.Context, model string, req *router.UpstreamRequest) ([]byte, error) {
	creds, err := a.creds()
	if err != nil {
		return nil, fmt.Errorf("openai credentials: %w", err)
	}
	body, err := providers.DoRequest(ctx, a.client, a.baseURL+"/v1/chat/completions",
		payload(req, model, false), a.headers(creds))
	if err != nil {
		return nil, err
	}
	return rewriteModel(body, router.Namespace+"/"+model), nil
}

func (a *Adapter) SendStream(ctx context.Context, model string, req *router.UpstreamRequest) (io.ReadCloser, router.ChunkTranslator, error) {
	creds, err := a.creds()
	if err != nil {
		return nil, nil, fmt.Errorf("openai credentials: %w", err)
	}
	body, err := providers.DoStreamRequest(ctx, a.client, a.baseURL+"/v1/chat/completions",
		payload(req, model, true), a.headers(creds))
	if err != nil {
		return nil, nil, err
	}
	return body, &chunkRewriter{model: router.Namespace + "/" + model}, nil
}

func (a *Adapter) headers(c providers.Credentials) map[string]string {
	h := make(map[string]string, len(a.static)+1)
	for k, v := range a.static {
		h[k] = v
	}
	switch {
	case c.Token != "":
		h["Authorization"] = "Bearer " + c.Token
	case c.APIKey != "":
		h["Authorization"] = "Bearer " + c.APIKey
	}
	return h
}

// rewriteModel replaces the top-level model field in a response body with
// the namespaced id. Bodies that do not parse are returned unchanged.
func rewriteModel(body []byte, model string) []byte {
	var m map[string]any
	if err := json.Unmarshal(body, &m); err != nil {
		return body
	}
	m["model"] = model
	out, err := json.Marshal(m)
	if err != nil {
		return body
	}
	return out
}
