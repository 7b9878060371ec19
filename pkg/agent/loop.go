// PicoClaw - Ultra-lightweight personal AI agent
// Inspired by and based on nanobot: https://github.com/HKUDS/nanobot
// License: MIT
//
// Copyright (c) 2026 PicoClaw contributors

package agent

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nanobot-ai/agentcore/pkg/bus"
	"github.com/nanobot-ai/agentcore/pkg/config"
	"github.com/nanobot-ai/agentcore/pkg/llmloop"
	"github.com/nanobot-ai/agentcore/pkg/logger"
	"github.com/nanobot-ai/agentcore/pkg/memory"
	"github.com/nanobot-ai/agentcore/pkg/providers"
	"github.com/nanobot-ai/agentcore/pkg/session"
	"github.com/nanobot-ai/agentcore/pkg/tools"
	"github.com/nanobot-ai/agentcore/pkg/utils"
)

type loopState int32

const (
	stateStopped loopState = iota
	stateRunning
	stateStopping
)

const helpText = "Commands:\n/new - archive this conversation to memory and start fresh\n/help - show this message"

// lockEntry is a per-session-key mutex with a refcount so idle entries can
// be reaped once no consolidation goroutine still references them.
type lockEntry struct {
	mu   sync.Mutex
	refs int
}

// AgentLoop is the outer message-processing engine: it consumes inbound bus
// messages one at a time, builds a turn's context, runs the reason-act
// iteration against the provider and tool registry, and publishes the
// resulting reply.
type AgentLoop struct {
	bus            *bus.MessageBus
	provider       providers.LLMProvider
	workspace      string
	model          string
	maxIterations  int
	llmTimeout     time.Duration
	toolTimeout    time.Duration
	memoryWindow   int
	maxMessages    int
	sessions       *session.SessionManager
	contextBuilder *ContextBuilder
	tools          *tools.ToolRegistry
	memoryStore    *memory.Store
	messageTool    *tools.MessageTool

	state loopState32
	wg    sync.WaitGroup

	locksGuard         sync.Mutex
	consolidationLocks map[string]*lockEntry
	consolidating      sync.Map // session key -> struct{}
}

// loopState32 wraps atomic.Int32 so AgentLoop's zero value doesn't need an
// explicit constructor call to be safely usable as "stopped".
type loopState32 struct{ v atomic.Int32 }

func (s *loopState32) load() loopState      { return loopState(s.v.Load()) }
func (s *loopState32) store(st loopState)   { s.v.Store(int32(st)) }

// NewAgentLoop wires a tool registry (filesystem + message tools), a
// session manager, a memory store, and a context builder rooted at the
// configured workspace.
func NewAgentLoop(cfg *config.Config, msgBus *bus.MessageBus, provider providers.LLMProvider) *AgentLoop {
	workspace := cfg.WorkspacePath()
	os.MkdirAll(workspace, 0o755)

	registry := tools.NewToolRegistry()
	registry.Register(&tools.ReadFileTool{AllowedDir: workspace})
	registry.Register(&tools.WriteFileTool{AllowedDir: workspace})
	registry.Register(&tools.ListDirTool{AllowedDir: workspace})

	messageTool := tools.NewMessageTool()
	messageTool.SetSendCallback(func(channel, chatID, content string, media []string) error {
		msgBus.PublishOutbound(bus.OutboundMessage{
			Channel: channel,
			ChatID:  chatID,
			Content: content,
			Media:   media,
		})
		return nil
	})
	registry.Register(messageTool)

	memStore, err := memory.NewStore(workspace)
	if err != nil {
		logger.WarnCF("agent", "Memory store unavailable, consolidation disabled", map[string]interface{}{"error": err.Error()})
		memStore = nil
	}

	sessionsManager := session.NewSessionManager(filepath.Join(workspace, "sessions"))

	contextBuilder := NewContextBuilder(workspace, memStore)
	contextBuilder.SetToolsRegistry(registry)

	return &AgentLoop{
		bus:                msgBus,
		provider:           provider,
		workspace:          workspace,
		model:              cfg.Agent.Model,
		maxIterations:      cfg.Agent.MaxIterations,
		llmTimeout:         time.Duration(cfg.Agent.LLMTimeoutSeconds) * time.Second,
		toolTimeout:        time.Duration(cfg.Agent.ToolTimeoutSeconds) * time.Second,
		memoryWindow:       cfg.Agent.MemoryWindow,
		maxMessages:        cfg.Agent.MaxMessages,
		sessions:           sessionsManager,
		contextBuilder:     contextBuilder,
		tools:              registry,
		memoryStore:        memStore,
		messageTool:        messageTool,
		consolidationLocks: make(map[string]*lockEntry),
	}
}

func (al *AgentLoop) RegisterTool(tool tools.Tool) {
	al.tools.Register(tool)
}

// Run drives the outer STOPPED -> RUNNING -> STOPPING -> STOPPED cycle: a
// single-consumer loop over the inbound bus, each message processed to
// completion before the next is read.
func (al *AgentLoop) Run(ctx context.Context) error {
	al.state.store(stateRunning)
	defer al.state.store(stateStopped)
	defer al.wg.Wait()

	for al.state.load() == stateRunning {
		select {
		case <-ctx.Done():
			al.state.store(stateStopping)
			return nil
		default:
		}

		consumeCtx, cancel := context.WithTimeout(ctx, time.Second)
		msg, ok := al.bus.ConsumeInbound(consumeCtx)
		cancel()
		if !ok {
			if ctx.Err() != nil {
				al.state.store(stateStopping)
				return nil
			}
			continue
		}

		out, err := al.processMessage(ctx, msg)
		if err != nil {
			logger.ErrorCF("agent", "Error processing message", map[string]interface{}{
				"channel": msg.Channel,
				"chat_id": msg.ChatID,
				"error":   err.Error(),
			})
			al.bus.PublishOutbound(bus.OutboundMessage{
				Channel: msg.Channel,
				ChatID:  msg.ChatID,
				Content: "Sorry, something went wrong while processing that.",
			})
			continue
		}

		if out != nil {
			al.bus.PublishOutbound(*out)
		} else if msg.Channel == "cli" {
			al.bus.PublishOutbound(bus.OutboundMessage{Channel: msg.Channel, ChatID: msg.ChatID})
		}
	}

	return nil
}

func (al *AgentLoop) Stop() {
	al.state.store(stateStopping)
}

// processMessage implements the per-message pipeline: session acquisition,
// slash commands, background consolidation trigger, context assembly, the
// inner reason-act loop, turn persistence, and duplicate-delivery
// suppression.
func (al *AgentLoop) processMessage(ctx context.Context, msg bus.InboundMessage) (*bus.OutboundMessage, error) {
	sessionKey := msg.SessionKey
	if sessionKey == "" {
		sessionKey = fmt.Sprintf("%s:%s", msg.Channel, msg.ChatID)
	}
	sess := al.sessions.GetOrCreate(sessionKey)

	logger.InfoCF("agent", "Processing message", map[string]interface{}{
		"channel":     msg.Channel,
		"chat_id":     msg.ChatID,
		"session_key": sessionKey,
		"preview":     utils.Truncate(msg.Content, 80),
	})

	if reply, handled := al.handleSlashCommand(ctx, sess, msg); handled {
		return &bus.OutboundMessage{Channel: msg.Channel, ChatID: msg.ChatID, Content: reply}, nil
	}

	al.maybeTriggerConsolidation(sess)

	messageID := ""
	if msg.Metadata != nil {
		messageID = msg.Metadata["message_id"]
	}

	al.messageTool.ResetTurn()

	history := al.sessions.GetHistoryCapped(sessionKey, al.memoryWindow)
	initial := al.contextBuilder.BuildMessages(history, msg.Content, msg.Media, msg.Channel, msg.ChatID)

	finalContent, toolsUsed, allMsgs := al.runInnerLoop(ctx, initial, msg.Channel, msg.ChatID, messageID)

	saveTurn(sess, allMsgs, 1+len(history), toolsUsed)
	if err := al.sessions.Save(sess); err != nil {
		logger.WarnCF("agent", "Failed to persist session", map[string]interface{}{"session_key": sessionKey, "error": err.Error()})
	}

	if al.messageTool.SentInTurn() {
		return nil, nil
	}

	return &bus.OutboundMessage{
		Channel:  msg.Channel,
		ChatID:   msg.ChatID,
		Content:  finalContent,
		Metadata: msg.Metadata,
	}, nil
}

func (al *AgentLoop) handleSlashCommand(_ context.Context, sess *session.Session, msg bus.InboundMessage) (string, bool) {
	switch strings.ToLower(strings.TrimSpace(msg.Content)) {
	case "/new":
		if al.memoryStore != nil {
			if _, err := al.memoryStore.Consolidate(context.Background(), sess, al.provider, al.model, true, al.memoryWindow); err != nil {
				logger.WarnCF("agent", "Memory archival failed", map[string]interface{}{"session_key": sess.Key, "error": err.Error()})
				return "Memory archival failed, session not cleared. Please try again.", true
			}
		}
		al.sessions.ResetSession(sess.Key)
		al.sessions.Save(al.sessions.GetOrCreate(sess.Key))
		al.sessions.Invalidate(sess.Key)
		return "New session started.", true
	case "/help":
		return helpText, true
	}
	return "", false
}

// maybeTriggerConsolidation spawns a background consolidation run when the
// unconsolidated tail of sess grows past memoryWindow, guarded so at most
// one consolidation runs per session key at a time.
func (al *AgentLoop) maybeTriggerConsolidation(sess *session.Session) {
	if al.memoryStore == nil || al.memoryWindow <= 0 {
		return
	}
	unconsolidated := len(sess.Messages) - sess.LastConsolidated
	if unconsolidated < al.memoryWindow {
		return
	}
	if _, already := al.consolidating.LoadOrStore(sess.Key, struct{}{}); already {
		return
	}

	entry := al.acquireLock(sess.Key)
	al.wg.Add(1)
	go func() {
		defer al.wg.Done()
		entry.mu.Lock()
		defer entry.mu.Unlock()
		defer al.consolidating.Delete(sess.Key)
		defer al.releaseLock(sess.Key)

		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()

		if _, err := al.memoryStore.Consolidate(ctx, sess, al.provider, al.model, false, al.memoryWindow); err != nil {
			logger.WarnCF("agent", "Background consolidation failed", map[string]interface{}{"session_key": sess.Key, "error": err.Error()})
			return
		}
		if err := al.sessions.Save(sess); err != nil {
			logger.WarnCF("agent", "Failed to persist session after consolidation", map[string]interface{}{"session_key": sess.Key, "error": err.Error()})
		}
	}()
}

func (al *AgentLoop) acquireLock(key string) *lockEntry {
	al.locksGuard.Lock()
	defer al.locksGuard.Unlock()
	e, ok := al.consolidationLocks[key]
	if !ok {
		e = &lockEntry{}
		al.consolidationLocks[key] = e
	}
	e.refs++
	return e
}

func (al *AgentLoop) releaseLock(key string) {
	al.locksGuard.Lock()
	defer al.locksGuard.Unlock()
	e, ok := al.consolidationLocks[key]
	if !ok {
		return
	}
	e.refs--
	if e.refs <= 0 {
		delete(al.consolidationLocks, key)
	}
}

var thinkingTagRe = regexp.MustCompile(`(?s)<thinking>.*?</thinking>`)

// stripThink removes any <thinking>...</thinking> blocks from s and trims
// surrounding whitespace.
func stripThink(s string) string {
	return strings.TrimSpace(thinkingTagRe.ReplaceAllString(s, ""))
}

// toolHint renders a short, comma-joined annotation describing a batch of
// requested tool calls, e.g. `read_file("notes.md"), list_dir`.
func toolHint(calls []providers.ToolCall) string {
	parts := make([]string, 0, len(calls))
	for _, tc := range calls {
		name := tc.ResolvedName()
		args := tc.ResolvedArguments()
		if arg, ok := firstStringArg(args); ok {
			if len(arg) > 40 {
				arg = arg[:40] + "..."
			}
			parts = append(parts, fmt.Sprintf("%s(%q)", name, arg))
			continue
		}
		parts = append(parts, name)
	}
	return strings.Join(parts, ", ")
}

func firstStringArg(args map[string]interface{}) (string, bool) {
	for _, v := range args {
		if s, ok := v.(string); ok {
			return s, true
		}
	}
	return "", false
}

// runInnerLoop drives the reason-act iteration via llmloop.Run, emitting
// progress OutboundMessages before each batch of tool calls and collecting
// the ordered list of tool names invoked during the turn.
func (al *AgentLoop) runInnerLoop(ctx context.Context, messages []providers.Message, channel, chatID, messageID string) (string, []string, []providers.Message) {
	var toolsUsed []string

	publish := func(content string, toolHintFlag bool) {
		if content == "" {
			return
		}
		meta := map[string]string{}
		if toolHintFlag {
			meta["_tool_hint"] = "true"
		} else {
			meta["_progress"] = "true"
		}
		al.bus.PublishOutbound(bus.OutboundMessage{Channel: channel, ChatID: chatID, Content: content, Metadata: meta})
	}

	result, err := llmloop.Run(ctx, llmloop.RunOptions{
		Provider:      al.provider,
		Model:         al.model,
		MaxIterations: al.maxIterations,
		LLMTimeout:    al.llmTimeout,
		Messages:      messages,
		BuildToolDefs: func(int, []providers.Message) []providers.ToolDefinition {
			return al.tools.Definitions()
		},
		ExecuteTools: func(ctx context.Context, toolCalls []providers.ToolCall, iteration int) []providers.Message {
			return al.tools.ExecuteToolCalls(ctx, toolCalls, tools.ExecuteToolCallsOptions{
				Channel:   channel,
				ChatID:    chatID,
				MessageID: messageID,
				Timeout:   al.toolTimeout,
				Iteration: iteration,
			})
		},
		Hooks: llmloop.Hooks{
			LLMCallFailed: func(_ int, err error) {
				logger.ErrorCF("agent", "LLM call failed", map[string]interface{}{"error": err.Error()})
			},
			ToolCallsRequested: func(_ int, calls []providers.ToolCall) {
				for _, tc := range calls {
					toolsUsed = append(toolsUsed, tc.ResolvedName())
				}
			},
			AssistantMessage: func(_ int, msg providers.Message) {
				if content, ok := msg.Content.(string); ok {
					publish(stripThink(content), false)
				}
				if len(msg.ToolCalls) > 0 {
					publish(toolHint(msg.ToolCalls), true)
				}
			},
		},
	})
	if err != nil {
		return "I ran into an error while working on that. Please try again.", toolsUsed, result.Messages
	}

	if result.Exhausted {
		return fmt.Sprintf("I reached the maximum number of tool call iterations (%d) without completing the task. You can try breaking the task into smaller steps.", al.maxIterations), toolsUsed, result.Messages
	}

	return stripThink(result.FinalContent), toolsUsed, result.Messages
}

// saveTurn appends allMsgs[skip:] onto sess.Messages, dropping
// reasoning_content, truncating oversized tool results, and stamping
// timestamps, then updates sess.UpdatedAt. toolsUsed is recorded on the
// final assistant message of the turn, if any.
func saveTurn(sess *session.Session, allMsgs []providers.Message, skip int, toolsUsed []string) {
	if skip > len(allMsgs) {
		skip = len(allMsgs)
	}
	newEntries := allMsgs[skip:]
	now := time.Now()

	lastAssistant := -1
	for i, m := range newEntries {
		m.ReasoningContent = ""
		if m.Role == "tool" {
			if content, ok := m.Content.(string); ok && len(content) > 500 {
				m.Content = content[:500] + "\n... (truncated)"
			}
		}
		if m.Timestamp == "" {
			m.Timestamp = now.Format(time.RFC3339)
		}
		if m.Role == "assistant" {
			lastAssistant = i
		}
		newEntries[i] = m
	}
	if lastAssistant >= 0 && len(toolsUsed) > 0 {
		newEntries[lastAssistant].ToolsUsed = toolsUsed
	}

	sess.Messages = append(sess.Messages, newEntries...)
	sess.UpdatedAt = now
}
