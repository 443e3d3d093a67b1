package anthropic

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/openfreerouter/freerouter/internal/router"
)

// messagesRequest is the Anthropic /v1/messages request body.
type messagesRequest struct {
	Model         string          `json:"model"`
	MaxTokens     int             `json:"max_tokens"`
	System        any             `json:"system,omitempty"` // string or []systemBlock
	Messages      []message       `json:"messages"`
	Temperature   *float64        `json:"temperature,omitempty"`
	TopP          *float64        `json:"top_p,omitempty"`
	StopSequences []string        `json:"stop_sequences,omitempty"`
	Stream        bool            `json:"stream,omitempty"`
	Tools         []tool          `json:"tools,omitempty"`
	ToolChoice    map[string]any  `json:"tool_choice,omitempty"`
	Thinking      *thinkingConfig `json:"thinking,omitempty"`
}

type thinkingConfig struct {
	Type         string `json:"type"` // adaptive | enabled
	BudgetTokens int    `json:"budget_tokens,omitempty"`
}

type systemBlock struct {
	Type         string        `json:"type"`
	Text         string        `json:"text"`
	CacheControl *cacheControl `json:"cache_control,omitempty"`
}

type cacheControl struct {
	Type string `json:"type"`
}

type message struct {
	Role    string `json:"role"`
	Content any    `json:"content"` // string or []contentBlock
}

// contentBlock covers text, tool_use and tool_result blocks; json tags keep
// the unused fields off the wire.
type contentBlock struct {
	Type string `json:"type"`

	Text string `json:"text,omitempty"`

	// tool_use
	ID    string          `json:"id,omitempty"`
	Name  string          `json:"name,omitempty"`
	Input json.RawMessage `json:"input,omitempty"`

	// tool_result
	ToolUseID string `json:"tool_use_id,omitempty"`
	Content   string `json:"content,omitempty"`
}

type tool struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	InputSchema json.RawMessage `json:"input_schema"`
}

var emptySchema = json.RawMessage(`{"type":"object","properties":{}}`)

// buildRequest translates the front request into the messages wire format.
func (a *Adapter) buildRequest(model string, req *router.UpstreamRequest, oauth, stream bool) (*messagesRequest, error) {
	chat := req.Chat

	out := &messagesRequest{
		Model:     model,
		MaxTokens: a.defaultMaxTokens,
		Stream:    stream,
		TopP:      chat.TopP,
	}
	if chat.MaxTokens != nil && *chat.MaxTokens > 0 {
		out.MaxTokens = *chat.MaxTokens
	}
	out.StopSequences = stopSequences(chat.Stop)

	out.System = buildSystem(chat.Messages, oauth)

	msgs, err := buildMessages(chat.Messages)
	if err != nil {
		return nil, err
	}
	if len(msgs) == 0 {
		return nil, fmt.Errorf("no forwardable messages in request")
	}
	out.Messages = msgs

	for _, t := range chat.Tools {
		schema := t.Function.Parameters
		if len(schema) == 0 {
			schema = emptySchema
		}
		out.Tools = append(out.Tools, tool{
			Name:        t.Function.Name,
			Description: t.Function.Description,
			InputSchema: schema,
		})
	}
	out.ToolChoice = toolChoice(chat.ToolChoice)

	out.Thinking = a.thinkingFor(model, req.Tier)
	if out.Thinking != nil {
		// Extended thinking rejects an explicit temperature; an enabled
		// budget eats into max_tokens, so restore the caller's output room.
		if out.Thinking.Type == "enabled" {
			out.MaxTokens += out.Thinking.BudgetTokens
		}
	} else {
		out.Temperature = chat.Temperature
	}

	return out, nil
}

// buildSystem joins system and developer messages. OAuth requests get the
// fixed CLI identity block first, both blocks ephemerally cached.
func buildSystem(messages []router.Message, oauth bool) any {
	var parts []string
	for _, m := range messages {
		if m.Role != "system" && m.Role != "developer" {
			continue
		}
		if s := m.Content.Flatten(); s != "" {
			parts = append(parts, s)
		}
	}
	joined := strings.Join(parts, "\n")

	if oauth {
		blocks := []systemBlock{{
			Type:         "text",
			Text:         identityPrompt,
			CacheControl: &cacheControl{Type: "ephemeral"},
		}}
		if joined != "" {
			blocks = append(blocks, systemBlock{
				Type:         "text",
				Text:         joined,
				CacheControl: &cacheControl{Type: "ephemeral"},
			})
		}
		return blocks
	}
	if joined == "" {
		return nil
	}
	return joined
}

// buildMessages converts the conversation turns. Consecutive tool results
// coalesce into a single user message; an assistant turn with tool calls
// becomes text + tool_use blocks.
func buildMessages(messages []router.Message) ([]message, error) {
	var out []message

	appendToolResult := func(block contentBlock) {
		if n := len(out); n > 0 && out[n-1].Role == "user" {
			if blocks, ok := out[n-1].Content.([]contentBlock); ok && allToolResults(blocks) {
				out[n-1].Content = append(blocks, block)
				return
			}
		}
		out = append(out, message{Role: "user", Content: []contentBlock{block}})
	}

	for _, m := range messages {
		switch m.Role {
		case "system", "developer":
			// Carried in the system field.
		case "tool":
			appendToolResult(contentBlock{
				Type:      "tool_result",
				ToolUseID: m.ToolCallID,
				Content:   toolResultContent(m.Content),
			})
		case "assistant":
			if len(m.ToolCalls) == 0 {
				if text := m.Content.Flatten(); text != "" {
					out = append(out, message{Role: "assistant", Content: text})
				}
				continue
			}
			var blocks []contentBlock
			if text := m.Content.Flatten(); text != "" {
				blocks = append(blocks, contentBlock{Type: "text", Text: text})
			}
			for _, tc := range m.ToolCalls {
				blocks = append(blocks, contentBlock{
					Type:  "tool_use",
					ID:    tc.ID,
					Name:  tc.Function.Name,
					Input: parseArguments(tc.Function.Arguments),
				})
			}
			out = append(out, message{Role: "assistant", Content: blocks})
		case "user":
			if text := m.Content.Flatten(); text != "" {
				out = append(out, message{Role: "user", Content: text})
			}
		default:
			return nil, fmt.Errorf("unsupported message role %q", m.Role)
		}
	}
	return out, nil
}

// toolResultContent stringifies a tool message for its tool_result block.
// String output is already the serialized tool result and passes through;
// structured parts are JSON-encoded whole so nothing is lost to flattening.
func toolResultContent(c router.MessageContent) string {
	if !c.IsParts {
		return c.Text
	}
	b, err := json.Marshal(c.Parts)
	if err != nil {
		return c.Flatten()
	}
	return string(b)
}

func allToolResults(blocks []contentBlock) bool {
	for _, b := range blocks {
		if b.Type != "tool_result" {
			return false
		}
	}
	return len(blocks) > 0
}

// parseArguments parses a tool-call argument string; invalid JSON becomes an
// empty object rather than failing the request.
func parseArguments(args string) json.RawMessage {
	if json.Valid([]byte(args)) && strings.TrimSpace(args) != "" {
		return json.RawMessage(args)
	}
	return json.RawMessage(`{}`)
}

// toolChoice maps the OpenAI tool_choice forms onto Anthropic's.
func toolChoice(tc any) map[string]any {
	switch v := tc.(type) {
	case nil:
		return nil
	case string:
		switch v {
		case "none":
			return map[string]any{"type": "none"}
		case "required":
			return map[string]any{"type": "any"}
		case "auto":
			return map[string]any{"type": "auto"}
		}
	case map[string]any:
		if fn, ok := v["function"].(map[string]any); ok {
			if name, ok := fn["name"].(string); ok {
				return map[string]any{"type": "tool", "name": name}
			}
		}
	}
	return nil
}

// stopSequences normalizes the OpenAI stop field (string or list of strings).
func stopSequences(stop any) []string {
	switch v := stop.(type) {
	case string:
		if v != "" {
			return []string{v}
		}
	case []string:
		return v
	case []any:
		var out []string
		for _, s := range v {
			if str, ok := s.(string); ok {
				out = append(out, str)
			}
		}
		return out
	}
	return nil
}
