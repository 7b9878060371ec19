package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nanobot-ai/agentcore/pkg/logger"
	"github.com/nanobot-ai/agentcore/pkg/providers"
	"github.com/nanobot-ai/agentcore/pkg/utils"
)

// ExecuteToolCallsOptions configures a single batch of sequential tool-call
// executions.
type ExecuteToolCallsOptions struct {
	Channel   string
	ChatID    string
	MessageID string
	Timeout   time.Duration // per-call timeout; <=0 means none

	LogComponent string // default: "tool"
	Iteration    int

	OnToolComplete func(completed, total, index int, call providers.ToolCall, result providers.Message)
}

// ExecuteToolCalls executes a batch of tool calls sequentially, in the order
// the model requested them. A later call only begins once the previous one
// has returned, so a tool that depends on an earlier call's side effect
// within the same turn sees it. Results are returned in call order.
func (r *ToolRegistry) ExecuteToolCalls(
	ctx context.Context,
	toolCalls []providers.ToolCall,
	opts ExecuteToolCallsOptions,
) []providers.Message {
	n := len(toolCalls)
	if n == 0 {
		return nil
	}

	component := opts.LogComponent
	if component == "" {
		component = "tool"
	}

	results := make([]providers.Message, n)
	for i, tc := range toolCalls {
		result := r.runOne(ctx, tc, opts, component)
		results[i] = providers.ToolResultMessage(tc.ID, result)
		results[i].Name = tc.ResolvedName()
		if opts.OnToolComplete != nil {
			opts.OnToolComplete(i+1, n, i, tc, results[i])
		}
	}
	return results
}

func (r *ToolRegistry) runOne(ctx context.Context, tc providers.ToolCall, opts ExecuteToolCallsOptions, component string) (result string) {
	defer func() {
		if rec := recover(); rec != nil {
			logger.ErrorCF(component, "Recovered panic in tool execution",
				map[string]interface{}{
					"tool":      tc.Name,
					"iteration": opts.Iteration,
					"panic":     fmt.Sprintf("%v", rec),
				})
			result = fmt.Sprintf("Error: tool %s panicked: %v%s", tc.Name, rec, invalidParamsHint)
		}
	}()

	args := tc.ResolvedArguments()
	argsJSON, _ := json.Marshal(args)
	argsPreview := utils.Truncate(string(argsJSON), 200)
	logger.InfoCF(component, fmt.Sprintf("Tool call: %s(%s)", tc.Name, argsPreview),
		map[string]interface{}{
			"tool":      tc.Name,
			"iteration": opts.Iteration,
		})

	toolCtx := ctx
	cancel := func() {}
	if opts.Timeout > 0 {
		toolCtx, cancel = context.WithTimeout(ctx, opts.Timeout)
	}
	defer cancel()

	select {
	case <-toolCtx.Done():
		return fmt.Sprintf("Error: %v%s", toolCtx.Err(), invalidParamsHint)
	default:
	}

	out, _ := r.ExecuteWithContext(toolCtx, tc.ResolvedName(), args, opts.Channel, opts.ChatID, opts.MessageID)
	return out
}
