package router

import (
	"context"
	"encoding/json"
	"io"
)

// Namespace is the model-id prefix stamped on every outgoing response so
// clients can tell proxied completions apart from direct provider calls.
const Namespace = "freerouter"

// ChatRequest is the OpenAI-compatible body accepted on /v1/chat/completions.
// Fields we never inspect are carried in the raw body map instead (see
// UpstreamRequest.Raw), so unknown OpenAI parameters survive pass-through.
type ChatRequest struct {
	Model    string    `json:"model"`
	Messages []Message `json:"messages"`
	Stream   bool      `json:"stream,omitempty"`

	Temperature *float64 `json:"temperature,omitempty"`
	MaxTokens   *int     `json:"max_tokens,omitempty"`
	TopP        *float64 `json:"top_p,omitempty"`
	Stop        any      `json:"stop,omitempty"`

	Tools      []Tool `json:"tools,omitempty"`
	ToolChoice any    `json:"tool_choice,omitempty"`
}

// Message is a single chat turn. Content is polymorphic on the wire: either a
// plain string or an ordered list of typed parts.
type Message struct {
	Role       string         `json:"role"`
	Content    MessageContent `json:"content"`
	Name       string         `json:"name,omitempty"`
	ToolCalls  []ToolCall     `json:"tool_calls,omitempty"`
	ToolCallID string         `json:"tool_call_id,omitempty"`
}

// MessageContent holds either a flat string or structured parts. IsParts
// distinguishes an empty string from an empty part list so round-trips
// preserve the original shape.
type MessageContent struct {
	Text    string
	Parts   []ContentPart
	IsParts bool
}

// Str returns a MessageContent wrapping a plain string.
func Str(s string) MessageContent { return MessageContent{Text: s} }

func (c *MessageContent) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		c.Text = s
		c.Parts = nil
		c.IsParts = false
		return nil
	}
	var parts []ContentPart
	if err := json.Unmarshal(data, &parts); err != nil {
		return err
	}
	c.Parts = parts
	c.IsParts = true
	return nil
}

func (c MessageContent) MarshalJSON() ([]byte, error) {
	if c.IsParts {
		return json.Marshal(c.Parts)
	}
	return json.Marshal(c.Text)
}

// Flatten returns the textual content: the string form directly, or all text
// parts joined with newlines.
func (c MessageContent) Flatten() string {
	if !c.IsParts {
		return c.Text
	}
	var out string
	for _, p := range c.Parts {
		if p.Type != "text" || p.Text == "" {
			continue
		}
		if out != "" {
			out += "\n"
		}
		out += p.Text
	}
	return out
}

// ContentPart is a tagged content block inside a structured message.
type ContentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *ImageURL `json:"image_url,omitempty"`
}

type ImageURL struct {
	URL    string `json:"url"`
	Detail string `json:"detail,omitempty"`
}

// ToolCall is an assistant-issued function invocation.
type ToolCall struct {
	ID       string       `json:"id"`
	Type     string       `json:"type"`
	Function FunctionCall `json:"function"`
}

type FunctionCall struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// Tool is an OpenAI function definition offered to the model.
type Tool struct {
	Type     string      `json:"type"`
	Function FunctionDef `json:"function"`
}

type FunctionDef struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Parameters  json.RawMessage `json:"parameters,omitempty"`
}

// UpstreamRequest is what provider adapters receive: the parsed front request
// plus the decoded raw body (for verbatim pass-through) and the routing tier,
// which drives per-model thinking configuration.
type UpstreamRequest struct {
	Chat *ChatRequest
	Raw  map[string]any
	Tier Tier
}

// Decision is the immutable outcome of routing a single request.
type Decision struct {
	Model        string  `json:"model"`
	Tier         Tier    `json:"tier"`
	Explicit     bool    `json:"explicit"`
	Confidence   float64 `json:"confidence"`
	Method       string  `json:"method"` // rules | override | explicit
	Reasoning    string  `json:"reasoning"`
	CostEstimate float64 `json:"cost_estimate"`
	BaselineCost float64 `json:"baseline_cost"`
	Savings      float64 `json:"savings"`
}

// TierName returns the value reported in the X-FreeRouter-Tier header.
func (d Decision) TierName() string {
	if d.Explicit {
		return "EXPLICIT"
	}
	return d.Tier.String()
}

// Sender is the contract provider adapters implement. Send returns a fully
// translated OpenAI chat.completion JSON body; SendStream returns the raw
// upstream SSE body together with a per-request ChunkTranslator that converts
// upstream events into OpenAI chat.completion.chunk payloads.
type Sender interface {
	ID() string
	Send(ctx context.Context, model string, req *UpstreamRequest) ([]byte, error)
	SendStream(ctx context.Context, model string, req *UpstreamRequest) (io.ReadCloser, ChunkTranslator, error)
}

// ChunkTranslator converts one upstream SSE data payload into zero or more
// client chunk payloads. State (current block type, tool index, stop reason)
// is request-local; instances must not be shared across requests.
type ChunkTranslator interface {
	Next(data []byte) [][]byte
	Finish() [][]byte
}
