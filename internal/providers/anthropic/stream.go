package anthropic

import (
	"encoding/json"
	"time"
)

// streamEvent covers every Anthropic SSE event type we act on. Unknown or
// unparseable events are skipped.
type streamEvent struct {
	Type string `json:"type"`

	ContentBlock *struct {
		Type string `json:"type"`
		ID   string `json:"id"`
		Name string `json:"name"`
	} `json:"content_block,omitempty"`

	Delta *struct {
		Type        string `json:"type"`
		Text        string `json:"text"`
		PartialJSON string `json:"partial_json"`
		StopReason  string `json:"stop_reason"`
	} `json:"delta,omitempty"`
}

// Client-side chunk shapes.
type chunk struct {
	ID      string        `json:"id"`
	Object  string        `json:"object"`
	Created int64         `json:"created"`
	Model   string        `json:"model"`
	Choices []chunkChoice `json:"choices"`
}

type chunkChoice struct {
	Index        int     `json:"index"`
	Delta        delta   `json:"delta"`
	FinishReason *string `json:"finish_reason"`
}

type delta struct {
	Role      string          `json:"role,omitempty"`
	Content   string          `json:"content,omitempty"`
	ToolCalls []deltaToolCall `json:"tool_calls,omitempty"`
}

type deltaToolCall struct {
	Index    int            `json:"index"`
	ID       string         `json:"id,omitempty"`
	Type     string         `json:"type,omitempty"`
	Function *deltaFunction `json:"function,omitempty"`
}

type deltaFunction struct {
	Name      string `json:"name,omitempty"`
	Arguments string `json:"arguments"`
}

// streamTranslator converts one upstream SSE stream into OpenAI chunks. All
// state is request-local: block flags, the running tool index, and the stop
// reason observed in message_delta.
type streamTranslator struct {
	id      string
	model   string
	created int64

	inThinking bool
	inToolUse  bool
	toolIndex  int
	stopReason string
	sentRole   bool
	finished   bool
}

func newStreamTranslator(requestID, model string) *streamTranslator {
	return &streamTranslator{
		id:        "chatcmpl-" + requestID,
		model:     model,
		created:   time.Now().Unix(),
		toolIndex: -1,
	}
}

// Next translates one upstream data payload into zero or more client chunk
// payloads (JSON only; the caller adds SSE framing).
func (t *streamTranslator) Next(data []byte) [][]byte {
	var ev streamEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		return nil
	}

	switch ev.Type {
	case "content_block_start":
		if ev.ContentBlock == nil {
			return nil
		}
		switch ev.ContentBlock.Type {
		case "thinking", "redacted_thinking":
			t.inThinking = true
			t.inToolUse = false
		case "tool_use":
			t.inThinking = false
			t.inToolUse = true
			t.toolIndex++
			return t.emit(delta{ToolCalls: []deltaToolCall{{
				Index:    t.toolIndex,
				ID:       ev.ContentBlock.ID,
				Type:     "function",
				Function: &deltaFunction{Name: ev.ContentBlock.Name, Arguments: ""},
			}}}, nil)
		default:
			t.inThinking = false
			t.inToolUse = false
		}

	case "content_block_delta":
		if ev.Delta == nil {
			return nil
		}
		switch ev.Delta.Type {
		case "text_delta":
			if t.inThinking {
				return nil // thinking text never reaches the client
			}
			if ev.Delta.Text == "" {
				return nil
			}
			return t.emit(delta{Content: ev.Delta.Text}, nil)
		case "thinking_delta", "signature_delta":
			return nil
		case "input_json_delta":
			if !t.inToolUse || ev.Delta.PartialJSON == "" {
				return nil
			}
			return t.emit(delta{ToolCalls: []deltaToolCall{{
				Index:    t.toolIndex,
				Function: &deltaFunction{Arguments: ev.Delta.PartialJSON},
			}}}, nil)
		}

	case "content_block_stop":
		t.inThinking = false
		t.inToolUse = false

	case "message_delta":
		if ev.Delta != nil && ev.Delta.StopReason != "" {
			t.stopReason = ev.Delta.StopReason
		}

	case "message_stop":
		return t.final()
	}

	return nil
}

// Finish emits the final chunk if the upstream ended without message_stop.
func (t *streamTranslator) Finish() [][]byte {
	if t.finished {
		return nil
	}
	return t.final()
}

func (t *streamTranslator) final() [][]byte {
	t.finished = true
	reason := "stop"
	if t.stopReason == "tool_use" {
		reason = "tool_calls"
	}
	return t.emit(delta{}, &reason)
}

func (t *streamTranslator) emit(d delta, finish *string) [][]byte {
	if !t.sentRole {
		d.Role = "assistant"
		t.sentRole = true
	}
	payload, err := json.Marshal(chunk{
		ID:      t.id,
		Object:  "chat.completion.chunk",
		Created: t.created,
		Model:   t.model,
		Choices: []chunkChoice{{Delta: d, FinishReason: finish}},
	})
	if err != nil {
		return nil
	}
	return [][]byte{payload}
}
