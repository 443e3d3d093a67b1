package anthropic

import (
	"encoding/json"
	"reflect"
	"testing"

	"github.com/openfreerouter/freerouter/internal/providers"
	"github.com/openfreerouter/freerouter/internal/router"
)

func testAdapter() *Adapter {
	return New("anthropic", "https://api.anthropic.com", func() (providers.Credentials, error) {
		return providers.Credentials{APIKey: "sk-test"}, nil
	})
}

func chatReq(msgs []router.Message) *router.UpstreamRequest {
	return &router.UpstreamRequest{
		Chat: &router.ChatRequest{Model: "auto", Messages: msgs},
		Tier: router.TierSimple,
	}
}

func umsg(role, content string) router.Message {
	return router.Message{Role: role, Content: router.Str(content)}
}

func TestBuildRequestPlainSystem(t *testing.T) {
	a := testAdapter()
	req, err := a.buildRequest("claude-haiku-4-5", chatReq([]router.Message{
		umsg("system", "be helpful"),
		umsg("developer", "be terse"),
		umsg("user", "hi"),
	}), false, false)
	if err != nil {
		t.Fatalf("buildRequest: %v", err)
	}
	if req.System != "be helpful\nbe terse" {
		t.Errorf("System = %v", req.System)
	}
	if len(req.Messages) != 1 || req.Messages[0].Role != "user" {
		t.Fatalf("Messages = %+v", req.Messages)
	}
}

func TestBuildRequestOAuthSystemBlocks(t *testing.T) {
	a := testAdapter()
	req, err := a.buildRequest("claude-haiku-4-5", chatReq([]router.Message{
		umsg("system", "project rules"),
		umsg("user", "hi"),
	}), true, false)
	if err != nil {
		t.Fatalf("buildRequest: %v", err)
	}
	blocks, ok := req.System.([]systemBlock)
	if !ok || len(blocks) != 2 {
		t.Fatalf("System = %#v, want two blocks", req.System)
	}
	if blocks[0].Text != identityPrompt {
		t.Errorf("first block = %q, want the CLI identity", blocks[0].Text)
	}
	for i, b := range blocks {
		if b.CacheControl == nil || b.CacheControl.Type != "ephemeral" {
			t.Errorf("block %d missing ephemeral cache marker", i)
		}
	}
}

func TestBuildRequestToolResultCoalescing(t *testing.T) {
	a := testAdapter()
	req, err := a.buildRequest("claude-sonnet-4-5", chatReq([]router.Message{
		umsg("user", "check the weather in two cities"),
		{Role: "assistant", Content: router.Str(""), ToolCalls: []router.ToolCall{
			{ID: "call_1", Type: "function", Function: router.FunctionCall{Name: "get_weather", Arguments: `{"city":"Paris"}`}},
			{ID: "call_2", Type: "function", Function: router.FunctionCall{Name: "get_weather", Arguments: `{"city":"Oslo"}`}},
		}},
		{Role: "tool", Content: router.Str(`{"temp":21}`), ToolCallID: "call_1"},
		{Role: "tool", Content: router.Str(`{"temp":9}`), ToolCallID: "call_2"},
	}), false, false)
	if err != nil {
		t.Fatalf("buildRequest: %v", err)
	}
	if len(req.Messages) != 3 {
		t.Fatalf("got %d messages, want 3 (user, assistant, coalesced tool results)", len(req.Messages))
	}

	last := req.Messages[2]
	if last.Role != "user" {
		t.Errorf("coalesced message role = %q, want user", last.Role)
	}
	blocks, ok := last.Content.([]contentBlock)
	if !ok || len(blocks) != 2 {
		t.Fatalf("coalesced content = %#v, want two tool_result blocks", last.Content)
	}
	for i, b := range blocks {
		if b.Type != "tool_result" {
			t.Errorf("block %d type = %q", i, b.Type)
		}
	}
	if blocks[0].ToolUseID != "call_1" || blocks[1].ToolUseID != "call_2" {
		t.Errorf("tool_use_ids = %q, %q", blocks[0].ToolUseID, blocks[1].ToolUseID)
	}
}

func TestBuildRequestToolResultContent(t *testing.T) {
	a := testAdapter()
	req, err := a.buildRequest("claude-sonnet-4-5", chatReq([]router.Message{
		umsg("user", "run both tools"),
		{Role: "tool", Content: router.Str(`{"temp":21}`), ToolCallID: "c1"},
		{Role: "tool", Content: router.MessageContent{IsParts: true, Parts: []router.ContentPart{
			{Type: "text", Text: "line one"},
			{Type: "text", Text: "line two"},
		}}, ToolCallID: "c2"},
	}), false, false)
	if err != nil {
		t.Fatalf("buildRequest: %v", err)
	}

	blocks := req.Messages[1].Content.([]contentBlock)
	if len(blocks) != 2 {
		t.Fatalf("blocks = %+v, want two tool_results", blocks)
	}
	// String output is already serialized and passes through untouched.
	if blocks[0].Content != `{"temp":21}` {
		t.Errorf("string result = %q", blocks[0].Content)
	}
	// Structured output is JSON-stringified whole, not flattened to text.
	var parts []router.ContentPart
	if err := json.Unmarshal([]byte(blocks[1].Content), &parts); err != nil {
		t.Fatalf("parts result not JSON: %q", blocks[1].Content)
	}
	if len(parts) != 2 || parts[0].Text != "line one" || parts[1].Text != "line two" {
		t.Errorf("parts result = %q", blocks[1].Content)
	}
}

func TestBuildRequestToolResultNotMergedAcrossAssistantTurn(t *testing.T) {
	a := testAdapter()
	req, err := a.buildRequest("claude-sonnet-4-5", chatReq([]router.Message{
		{Role: "tool", Content: router.Str("one"), ToolCallID: "c1"},
		umsg("assistant", "intermediate"),
		{Role: "tool", Content: router.Str("two"), ToolCallID: "c2"},
		umsg("user", "go on"),
	}), false, false)
	if err != nil {
		t.Fatalf("buildRequest: %v", err)
	}
	// tool, assistant, tool, user: the second tool result must start a new
	// user message rather than merging backwards.
	if len(req.Messages) != 4 {
		t.Fatalf("got %d messages, want 4: %+v", len(req.Messages), req.Messages)
	}
}

func TestBuildRequestAssistantTextWithToolCalls(t *testing.T) {
	a := testAdapter()
	req, err := a.buildRequest("claude-sonnet-4-5", chatReq([]router.Message{
		umsg("user", "weather?"),
		{Role: "assistant", Content: router.Str("let me check"), ToolCalls: []router.ToolCall{
			{ID: "call_9", Type: "function", Function: router.FunctionCall{Name: "get_weather", Arguments: `not json`}},
		}},
		{Role: "tool", Content: router.Str("sunny"), ToolCallID: "call_9"},
	}), false, false)
	if err != nil {
		t.Fatalf("buildRequest: %v", err)
	}
	blocks := req.Messages[1].Content.([]contentBlock)
	if len(blocks) != 2 || blocks[0].Type != "text" || blocks[1].Type != "tool_use" {
		t.Fatalf("assistant blocks = %+v", blocks)
	}
	if blocks[0].Text != "let me check" {
		t.Errorf("leading text = %q", blocks[0].Text)
	}
	// Invalid JSON arguments become an empty object.
	if string(blocks[1].Input) != "{}" {
		t.Errorf("input = %s, want {}", blocks[1].Input)
	}
}

func TestBuildRequestToolsAndChoice(t *testing.T) {
	a := testAdapter()
	base := chatReq([]router.Message{umsg("user", "hi")})
	base.Chat.Tools = []router.Tool{
		{Type: "function", Function: router.FunctionDef{Name: "lookup", Description: "find things"}},
	}

	cases := []struct {
		choice any
		want   map[string]any
	}{
		{nil, nil},
		{"none", map[string]any{"type": "none"}},
		{"auto", map[string]any{"type": "auto"}},
		{"required", map[string]any{"type": "any"}},
		{map[string]any{"type": "function", "function": map[string]any{"name": "lookup"}},
			map[string]any{"type": "tool", "name": "lookup"}},
	}
	for _, c := range cases {
		base.Chat.ToolChoice = c.choice
		req, err := a.buildRequest("claude-sonnet-4-5", base, false, false)
		if err != nil {
			t.Fatalf("buildRequest: %v", err)
		}
		if !reflect.DeepEqual(req.ToolChoice, c.want) {
			t.Errorf("tool_choice %v -> %v, want %v", c.choice, req.ToolChoice, c.want)
		}
	}

	req, _ := a.buildRequest("claude-sonnet-4-5", base, false, false)
	if len(req.Tools) != 1 || req.Tools[0].Name != "lookup" {
		t.Fatalf("Tools = %+v", req.Tools)
	}
	// Missing parameters default to an empty object schema.
	if string(req.Tools[0].InputSchema) != string(emptySchema) {
		t.Errorf("InputSchema = %s", req.Tools[0].InputSchema)
	}
}

func TestBuildRequestThinkingByTier(t *testing.T) {
	a := testAdapter()
	temp := 0.7
	maxTok := 1000

	mk := func(tier router.Tier) *router.UpstreamRequest {
		r := chatReq([]router.Message{umsg("user", "hi")})
		r.Tier = tier
		r.Chat.Temperature = &temp
		r.Chat.MaxTokens = &maxTok
		return r
	}

	// Adaptive-capable model on COMPLEX and REASONING.
	for _, tier := range []router.Tier{router.TierComplex, router.TierReasoning} {
		req, _ := a.buildRequest("claude-opus-4-6", mk(tier), false, false)
		if req.Thinking == nil || req.Thinking.Type != "adaptive" {
			t.Errorf("tier %s: thinking = %+v, want adaptive", tier, req.Thinking)
		}
		if req.Temperature != nil {
			t.Errorf("tier %s: temperature not suppressed with thinking", tier)
		}
	}

	// MEDIUM gets an explicit budget and the output room back.
	req, _ := a.buildRequest("claude-sonnet-4-5", mk(router.TierMedium), false, false)
	if req.Thinking == nil || req.Thinking.Type != "enabled" || req.Thinking.BudgetTokens != 4096 {
		t.Fatalf("MEDIUM thinking = %+v", req.Thinking)
	}
	if req.MaxTokens != maxTok+4096 {
		t.Errorf("MaxTokens = %d, want %d", req.MaxTokens, maxTok+4096)
	}
	if req.Temperature != nil {
		t.Error("MEDIUM: temperature not suppressed with thinking")
	}

	// SIMPLE: no thinking, temperature passes through.
	req, _ = a.buildRequest("claude-haiku-4-5", mk(router.TierSimple), false, false)
	if req.Thinking != nil {
		t.Errorf("SIMPLE thinking = %+v, want none", req.Thinking)
	}
	if req.Temperature == nil || *req.Temperature != temp {
		t.Error("SIMPLE: temperature dropped")
	}

	// COMPLEX on a non-adaptive model: no thinking either.
	req, _ = a.buildRequest("claude-sonnet-4-5", mk(router.TierComplex), false, false)
	if req.Thinking != nil {
		t.Errorf("non-adaptive COMPLEX thinking = %+v, want none", req.Thinking)
	}
}

func TestToolCallRoundTrip(t *testing.T) {
	a := testAdapter()
	orig := router.ToolCall{
		ID:       "call_rt",
		Type:     "function",
		Function: router.FunctionCall{Name: "search", Arguments: `{"q":"go proxies","limit":3}`},
	}
	req, err := a.buildRequest("claude-sonnet-4-5", chatReq([]router.Message{
		umsg("user", "search please"),
		{Role: "assistant", Content: router.Str(""), ToolCalls: []router.ToolCall{orig}},
		{Role: "tool", Content: router.Str("results"), ToolCallID: "call_rt"},
	}), false, false)
	if err != nil {
		t.Fatalf("buildRequest: %v", err)
	}

	use := req.Messages[1].Content.([]contentBlock)[0]
	resp := messagesResponse{
		ID:         "msg_1",
		StopReason: "tool_use",
		Content:    []contentBlock{{Type: "tool_use", ID: use.ID, Name: use.Name, Input: use.Input}},
	}
	raw, _ := json.Marshal(resp)
	out, err := translateResponse(raw, "rt", "freerouter/claude-sonnet-4-5")
	if err != nil {
		t.Fatalf("translateResponse: %v", err)
	}

	var parsed completion
	if err := json.Unmarshal(out, &parsed); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	got := parsed.Choices[0].Message.ToolCalls[0]
	if got.ID != orig.ID || got.Function.Name != orig.Function.Name {
		t.Errorf("round trip lost id/name: %+v", got)
	}
	var a1, a2 map[string]any
	_ = json.Unmarshal([]byte(orig.Function.Arguments), &a1)
	_ = json.Unmarshal([]byte(got.Function.Arguments), &a2)
	if !reflect.DeepEqual(a1, a2) {
		t.Errorf("arguments differ: %v vs %v", a1, a2)
	}
	if parsed.Choices[0].FinishReason != "tool_calls" {
		t.Errorf("finish_reason = %q", parsed.Choices[0].FinishReason)
	}
}

func TestHeadersAPIKeyVsOAuth(t *testing.T) {
	a := testAdapter()

	h := a.headers(providers.Credentials{APIKey: "sk-key"})
	if h["x-api-key"] != "sk-key" {
		t.Errorf("x-api-key = %q", h["x-api-key"])
	}
	if _, ok := h["Authorization"]; ok {
		t.Error("Authorization set for api-key auth")
	}

	h = a.headers(providers.Credentials{Token: "sk-ant-oat01-abc"})
	if h["Authorization"] != "Bearer sk-ant-oat01-abc" {
		t.Errorf("Authorization = %q", h["Authorization"])
	}
	if h["anthropic-beta"] != oauthBetas {
		t.Errorf("anthropic-beta = %q", h["anthropic-beta"])
	}
	if h["x-app"] != "cli" || h["anthropic-dangerous-direct-browser-access"] != "true" {
		t.Error("missing OAuth CLI headers")
	}
	if h["anthropic-version"] != apiVersion {
		t.Errorf("anthropic-version = %q", h["anthropic-version"])
	}
}
