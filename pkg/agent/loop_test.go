package agent

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/nanobot-ai/agentcore/pkg/bus"
	"github.com/nanobot-ai/agentcore/pkg/config"
	"github.com/nanobot-ai/agentcore/pkg/providers"
	"github.com/nanobot-ai/agentcore/pkg/session"
	"github.com/nanobot-ai/agentcore/pkg/tools"
)

// mockProvider is a test LLM provider that returns pre-configured responses
// in sequence.
type mockProvider struct {
	mu        sync.Mutex
	responses []mockResponse
	calls     int
}

type mockResponse struct {
	Content   string
	ToolCalls []providers.ToolCall
	Err       error
}

func (m *mockProvider) Chat(_ context.Context, _ []providers.Message, _ []providers.ToolDefinition, _ string, _ map[string]interface{}) (*providers.LLMResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if len(m.responses) == 0 {
		return &providers.LLMResponse{Content: "no more responses"}, nil
	}
	r := m.responses[0]
	m.responses = m.responses[1:]
	if r.Err != nil {
		return nil, r.Err
	}
	return &providers.LLMResponse{Content: r.Content, ToolCalls: r.ToolCalls}, nil
}

func (m *mockProvider) GetDefaultModel() string { return "test-model" }

func newTestAgentLoop(t *testing.T, provider providers.LLMProvider, maxIter int) *AgentLoop {
	t.Helper()
	workspace := t.TempDir()

	registry := tools.NewToolRegistry()
	messageTool := tools.NewMessageTool()
	registry.Register(messageTool)

	msgBus := bus.NewMessageBus()
	messageTool.SetSendCallback(func(channel, chatID, content string, media []string) error {
		msgBus.PublishOutbound(bus.OutboundMessage{Channel: channel, ChatID: chatID, Content: content})
		return nil
	})

	cb := NewContextBuilder(workspace, nil)
	cb.SetToolsRegistry(registry)

	return &AgentLoop{
		bus:                msgBus,
		provider:           provider,
		workspace:          workspace,
		model:              "test-model",
		maxIterations:      maxIter,
		memoryWindow:       20,
		maxMessages:        40,
		sessions:           session.NewSessionManager(""),
		contextBuilder:     cb,
		tools:              registry,
		messageTool:        messageTool,
		consolidationLocks: make(map[string]*lockEntry),
	}
}

func TestProcessMessage_DirectResponse(t *testing.T) {
	provider := &mockProvider{responses: []mockResponse{{Content: "Hi there"}}}
	al := newTestAgentLoop(t, provider, 5)

	out, err := al.processMessage(context.Background(), bus.InboundMessage{
		Channel: "cli", ChatID: "u1", Content: "hello",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out == nil || out.Content != "Hi there" {
		t.Fatalf("unexpected outbound: %+v", out)
	}
}

func TestProcessMessage_SlashNew(t *testing.T) {
	provider := &mockProvider{}
	al := newTestAgentLoop(t, provider, 5)

	sess := al.sessions.GetOrCreate("cli:u1")
	sess.Messages = append(sess.Messages, providers.Message{Role: "user", Content: "earlier"})

	out, err := al.processMessage(context.Background(), bus.InboundMessage{
		Channel: "cli", ChatID: "u1", Content: "/new",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out == nil || out.Content != "New session started." {
		t.Fatalf("unexpected outbound: %+v", out)
	}
	if len(al.sessions.GetOrCreate("cli:u1").Messages) != 0 {
		t.Error("expected session to be cleared")
	}
}

func TestProcessMessage_SlashHelp(t *testing.T) {
	al := newTestAgentLoop(t, &mockProvider{}, 5)

	out, err := al.processMessage(context.Background(), bus.InboundMessage{
		Channel: "cli", ChatID: "u1", Content: "/help",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out == nil || out.Content != helpText {
		t.Fatalf("unexpected outbound: %+v", out)
	}
}

func TestProcessMessage_ToolCallThenDone(t *testing.T) {
	provider := &mockProvider{responses: []mockResponse{
		{ToolCalls: []providers.ToolCall{{ID: "tc1", Name: "noop", Arguments: map[string]interface{}{}}}},
		{Content: "all done"},
	}}
	al := newTestAgentLoop(t, provider, 5)
	al.tools.Register(&noopTool{name: "noop", result: "ok"})

	out, err := al.processMessage(context.Background(), bus.InboundMessage{
		Channel: "cli", ChatID: "u1", Content: "do a thing",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out == nil || out.Content != "all done" {
		t.Fatalf("unexpected outbound: %+v", out)
	}

	history := al.sessions.GetOrCreate("cli:u1").Messages
	var sawTool bool
	for _, m := range history {
		if m.Role == "tool" {
			sawTool = true
		}
	}
	if !sawTool {
		t.Error("expected a tool-result message to be persisted")
	}
}

func TestProcessMessage_Exhausted(t *testing.T) {
	provider := &mockProvider{responses: []mockResponse{
		{ToolCalls: []providers.ToolCall{{ID: "tc1", Name: "noop", Arguments: map[string]interface{}{}}}},
	}}
	al := newTestAgentLoop(t, provider, 1)
	al.tools.Register(&noopTool{name: "noop", result: "ok"})

	out, err := al.processMessage(context.Background(), bus.InboundMessage{
		Channel: "cli", ChatID: "u1", Content: "loop forever",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out == nil {
		t.Fatal("expected an outbound message")
	}
	if out.Content == "" {
		t.Error("expected a non-empty exhaustion message")
	}
}

func TestProcessMessage_SuppressesReplyWhenMessageToolUsed(t *testing.T) {
	provider := &mockProvider{responses: []mockResponse{
		{ToolCalls: []providers.ToolCall{{ID: "tc1", Name: "message", Arguments: map[string]interface{}{
			"content": "delivered directly", "channel": "cli", "chat_id": "u1",
		}}}},
		{Content: "this should be suppressed"},
	}}
	al := newTestAgentLoop(t, provider, 5)

	out, err := al.processMessage(context.Background(), bus.InboundMessage{
		Channel: "cli", ChatID: "u1", Content: "send it yourself",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != nil {
		t.Errorf("expected no outbound message, got %+v", out)
	}
}

// noopTool is a minimal tool for testing that returns a fixed result.
type noopTool struct {
	name   string
	result string
}

func (t *noopTool) Name() string        { return t.name }
func (t *noopTool) Description() string { return "test tool" }
func (t *noopTool) Parameters() map[string]interface{} {
	return map[string]interface{}{"type": "object", "properties": map[string]interface{}{}}
}
func (t *noopTool) Execute(_ context.Context, _ map[string]interface{}) (string, error) {
	return t.result, nil
}

func TestStripThink(t *testing.T) {
	in := "before <thinking>internal reasoning</thinking> after"
	if got := stripThink(in); got != "before  after" {
		t.Errorf("stripThink() = %q", got)
	}
	if got := stripThink("<thinking>only</thinking>"); got != "" {
		t.Errorf("expected empty result, got %q", got)
	}
}

func TestToolHint(t *testing.T) {
	calls := []providers.ToolCall{
		{Name: "read_file", Arguments: map[string]interface{}{"path": "notes.md"}},
		{Name: "list_dir", Arguments: map[string]interface{}{}},
	}
	hint := toolHint(calls)
	if hint != `read_file("notes.md"), list_dir` {
		t.Errorf("toolHint() = %q", hint)
	}
}

func TestSaveTurn_TruncatesLongToolResults(t *testing.T) {
	sess := &session.Session{Key: "k"}
	long := make([]byte, 600)
	for i := range long {
		long[i] = 'x'
	}
	allMsgs := []providers.Message{
		{Role: "user", Content: "hi"},
		{Role: "tool", Content: string(long), ToolCallID: "tc1"},
	}

	saveTurn(sess, allMsgs, 1, nil)

	if len(sess.Messages) != 1 {
		t.Fatalf("expected 1 new message, got %d", len(sess.Messages))
	}
	content, _ := sess.Messages[0].Content.(string)
	if len(content) > 520 {
		t.Errorf("expected truncated content, got length %d", len(content))
	}
	if sess.Messages[0].Timestamp == "" {
		t.Error("expected a stamped timestamp")
	}
}

func TestSaveTurn_RecordsToolsUsedOnAssistantMessage(t *testing.T) {
	sess := &session.Session{Key: "k"}
	allMsgs := []providers.Message{
		{Role: "user", Content: "hi"},
		{Role: "assistant", Content: "", ToolCalls: []providers.ToolCall{{ID: "tc1", Name: "noop"}}},
		{Role: "tool", Content: "ok", ToolCallID: "tc1"},
	}

	saveTurn(sess, allMsgs, 1, []string{"noop"})

	if len(sess.Messages[0].ToolsUsed) != 1 || sess.Messages[0].ToolsUsed[0] != "noop" {
		t.Errorf("expected tools_used on assistant message, got %+v", sess.Messages[0])
	}
}

func TestMaybeTriggerConsolidation_NoMemoryStoreIsNoop(t *testing.T) {
	al := newTestAgentLoop(t, &mockProvider{}, 5)
	sess := &session.Session{Key: "k", Messages: make([]providers.Message, 50)}
	al.maybeTriggerConsolidation(sess) // must not panic with memoryStore == nil
}

func TestRun_StopsOnContextCancel(t *testing.T) {
	al := newTestAgentLoop(t, &mockProvider{}, 5)
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- al.Run(ctx) }()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after context cancellation")
	}
}
