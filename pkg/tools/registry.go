package tools

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/nanobot-ai/agentcore/pkg/providers"
)

const invalidParamsHint = "\n\n[Analyze the error above and try a different approach.]"

// Tool is the contract every registered capability implements.
type Tool interface {
	Name() string
	Description() string
	Parameters() map[string]interface{}
	Execute(ctx context.Context, args map[string]interface{}) (string, error)
}

// ToolRegistry holds the set of tools available to the agent loop for a
// given conversation and validates/executes calls against it.
type ToolRegistry struct {
	mu     sync.RWMutex
	tools  map[string]Tool
	policy ToolExecutionPolicy
}

func NewToolRegistry() *ToolRegistry {
	return &ToolRegistry{tools: make(map[string]Tool)}
}

func (r *ToolRegistry) Register(t Tool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tools[t.Name()] = t
}

func (r *ToolRegistry) Get(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[name]
	return t, ok
}

func (r *ToolRegistry) SetExecutionPolicy(p ToolExecutionPolicy) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.policy = p
}

// names returns the registered tool names, sorted, for error messages.
func (r *ToolRegistry) names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.tools))
	for n := range r.tools {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Definitions returns the OpenAI-function-style schema for every registered
// tool, in a stable (name-sorted) order.
func (r *ToolRegistry) Definitions() []providers.ToolDefinition {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.tools))
	for n := range r.tools {
		names = append(names, n)
	}
	sort.Strings(names)

	defs := make([]providers.ToolDefinition, 0, len(names))
	for _, n := range names {
		t := r.tools[n]
		defs = append(defs, providers.ToolDefinition{
			Type: "function",
			Function: providers.ToolFunctionDefinition{
				Name:        t.Name(),
				Description: t.Description(),
				Parameters:  t.Parameters(),
			},
		})
	}
	return defs
}

// GetSummaries returns one human-readable line per tool, for splicing into a
// system prompt's tools section.
func (r *ToolRegistry) GetSummaries() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.tools))
	for n := range r.tools {
		names = append(names, n)
	}
	sort.Strings(names)

	out := make([]string, 0, len(names))
	for _, n := range names {
		t := r.tools[n]
		out = append(out, fmt.Sprintf("- **%s**: %s", t.Name(), t.Description()))
	}
	return out
}

// Execute runs a single tool call by name, enforcing the registry's policy,
// validating args against the tool's parameter schema, and normalizing
// policy/validation failures into an error return in addition to the fixed
// "Error: ..." + retry-hint string shape the engine feeds back to the model.
func (r *ToolRegistry) Execute(ctx context.Context, name string, args map[string]interface{}) (result string, execErr error) {
	t, ok := r.Get(name)
	if !ok {
		msg := fmt.Sprintf("Error: Tool '%s' not found. Available: %s", name, strings.Join(r.names(), ", "))
		return msg, fmt.Errorf("tool %s not found", name)
	}

	r.mu.RLock()
	policy := r.policy
	r.mu.RUnlock()
	if err := policy.check(name); err != nil {
		return fmt.Sprintf("Error: %v", err), err
	}

	if errs := validateParameters(t.Parameters(), args); len(errs) > 0 {
		msgs := make([]string, len(errs))
		for i, e := range errs {
			msgs[i] = e.Error()
		}
		joined := strings.Join(msgs, "; ")
		return fmt.Sprintf("Error: Invalid parameters for tool '%s': %s%s", name, joined, invalidParamsHint),
			fmt.Errorf("invalid parameters for tool %s: %s", name, joined)
	}

	defer func() {
		if rec := recover(); rec != nil {
			result = fmt.Sprintf("Error executing %s: %v%s", name, rec, invalidParamsHint)
			execErr = fmt.Errorf("tool %s panicked: %v", name, rec)
		}
	}()

	out, err := t.Execute(ctx, args)
	if err != nil {
		return fmt.Sprintf("Error executing %s: %v%s", name, err, invalidParamsHint), err
	}
	if strings.HasPrefix(out, "Error") {
		return out + invalidParamsHint, fmt.Errorf("%s", out)
	}
	return out, nil
}

// ExecuteWithContext is Execute, plus routing metadata (channel, chatID,
// messageID) spliced into args for tools that need it (see context_args.go).
func (r *ToolRegistry) ExecuteWithContext(ctx context.Context, name string, args map[string]interface{}, channel, chatID, messageID string) (string, error) {
	return r.Execute(ctx, name, withExecutionContext(args, channel, chatID, messageID, TraceIDFromContext(ctx)))
}
