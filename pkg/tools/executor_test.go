package tools

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/nanobot-ai/agentcore/pkg/providers"
)

type execTestTool struct {
	name    string
	delay   time.Duration
	result  string
	panicOn bool

	order *[]string
}

func (t *execTestTool) Name() string        { return t.name }
func (t *execTestTool) Description() string { return "executor test tool" }
func (t *execTestTool) Parameters() map[string]interface{} {
	return map[string]interface{}{"type": "object", "properties": map[string]interface{}{}}
}
func (t *execTestTool) Execute(ctx context.Context, _ map[string]interface{}) (string, error) {
	if t.panicOn {
		panic("boom")
	}
	if t.order != nil {
		*t.order = append(*t.order, t.name)
	}

	select {
	case <-time.After(t.delay):
		return t.result, nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func TestExecuteToolCalls_TimeoutProducesError(t *testing.T) {
	registry := NewToolRegistry()
	registry.Register(&execTestTool{name: "slow", delay: 300 * time.Millisecond, result: "ok"})

	results := registry.ExecuteToolCalls(context.Background(), []providers.ToolCall{
		{ID: "tc1", Name: "slow", Arguments: map[string]interface{}{}},
	}, ExecuteToolCallsOptions{Timeout: 50 * time.Millisecond})

	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	if results[0].ToolCallID != "tc1" {
		t.Fatalf("ToolCallID = %q, want %q", results[0].ToolCallID, "tc1")
	}
	if results[0].Content == "ok" {
		t.Fatalf("expected timeout error result, got success content: %q", results[0].Content)
	}
}

// TestExecuteToolCalls_RunsSequentiallyInOrder exercises the spec's
// departure from the teacher's bounded-parallel executor: calls within one
// iteration must complete strictly in the order the model requested them.
func TestExecuteToolCalls_RunsSequentiallyInOrder(t *testing.T) {
	registry := NewToolRegistry()
	var order []string

	for i := 1; i <= 4; i++ {
		name := fmt.Sprintf("t%d", i)
		registry.Register(&execTestTool{name: name, delay: 5 * time.Millisecond, result: name + "_ok", order: &order})
	}

	toolCalls := []providers.ToolCall{
		{ID: "tc1", Name: "t1", Arguments: map[string]interface{}{}},
		{ID: "tc2", Name: "t2", Arguments: map[string]interface{}{}},
		{ID: "tc3", Name: "t3", Arguments: map[string]interface{}{}},
		{ID: "tc4", Name: "t4", Arguments: map[string]interface{}{}},
	}

	results := registry.ExecuteToolCalls(context.Background(), toolCalls, ExecuteToolCallsOptions{})
	if len(results) != 4 {
		t.Fatalf("expected 4 results, got %d", len(results))
	}
	want := []string{"t1", "t2", "t3", "t4"}
	if len(order) != len(want) {
		t.Fatalf("order = %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("order = %v, want %v", order, want)
		}
	}
	for i, r := range results {
		if r.ToolCallID != toolCalls[i].ID {
			t.Fatalf("result %d ToolCallID = %q, want %q", i, r.ToolCallID, toolCalls[i].ID)
		}
	}
}

func TestExecuteToolCalls_PanicRecovered(t *testing.T) {
	registry := NewToolRegistry()
	registry.Register(&execTestTool{name: "panic_tool", panicOn: true})

	results := registry.ExecuteToolCalls(context.Background(), []providers.ToolCall{
		{ID: "tc1", Name: "panic_tool", Arguments: map[string]interface{}{}},
	}, ExecuteToolCallsOptions{})

	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	if results[0].ToolCallID != "tc1" {
		t.Fatalf("ToolCallID = %q, want %q", results[0].ToolCallID, "tc1")
	}
	if results[0].Content == "" {
		t.Fatal("expected panic error content, got empty result")
	}
}
