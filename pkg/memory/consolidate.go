package memory

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/nanobot-ai/agentcore/pkg/logger"
	"github.com/nanobot-ai/agentcore/pkg/providers"
	"github.com/nanobot-ai/agentcore/pkg/session"
)

var thinkTagRe = regexp.MustCompile(`(?s)<think>.*?</think>\s*`)

const saveMemoryToolName = "save_memory"

const consolidationSystemPrompt = "You are a memory consolidation agent. Review the conversation excerpt below " +
	"and the assistant's current long-term memory, then call save_memory exactly once with an updated history " +
	"entry and the full updated long-term memory."

// saveMemoryTool is the single tool advertised to the consolidation LLM call.
func saveMemoryTool() providers.ToolDefinition {
	return providers.ToolDefinition{
		Type: "function",
		Function: providers.ToolFunctionDefinition{
			Name:        saveMemoryToolName,
			Description: "Save the memory consolidation result to persistent storage.",
			Parameters: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"history_entry": map[string]interface{}{
						"type": "string",
						"description": "A paragraph (2-5 sentences) summarizing key events/decisions/topics. " +
							"Start with [YYYY-MM-DD HH:MM]. Include detail useful for substring search.",
					},
					"memory_update": map[string]interface{}{
						"type": "string",
						"description": "Full updated long-term memory as Markdown. Include all existing facts " +
							"plus new ones. Return unchanged if nothing new.",
					},
				},
				"required": []string{"history_entry", "memory_update"},
			},
		},
	}
}

// Consolidate archives the unconsolidated tail of sess's messages (every
// message, from index 0, when archiveAll is set) into the store's HISTORY.md/MEMORY.md via a single LLM call, and advances the
// session's consolidation cursor on success. It never mutates sess.Messages.
func (s *Store) Consolidate(ctx context.Context, sess *session.Session, provider providers.LLMProvider, model string, archiveAll bool, memoryWindow int) (bool, error) {
	keepCount := 0
	if !archiveAll {
		keepCount = memoryWindow / 2
	}

	total := len(sess.Messages)
	if !archiveAll {
		if total <= keepCount || total-sess.LastConsolidated <= 0 {
			return true, nil
		}
	}

	start := sess.LastConsolidated
	if archiveAll {
		start = 0
	}
	end := total - keepCount
	if end < start {
		return true, nil
	}
	archived := sess.Messages[start:end]
	if len(archived) == 0 {
		return true, nil
	}

	formatted := formatEntries(archived)
	if formatted == "" {
		advanceCursor(sess, archiveAll, end)
		return true, nil
	}

	currentMemory, err := s.ReadLongTerm()
	if err != nil {
		return false, err
	}
	memoryBlock := currentMemory
	if memoryBlock == "" {
		memoryBlock = "(empty)"
	}

	userContent := fmt.Sprintf("Current MEMORY.md:\n%s\n\nConversation to consolidate:\n%s", memoryBlock, formatted)

	resp, err := provider.Chat(ctx, []providers.Message{
		{Role: "system", Content: consolidationSystemPrompt},
		{Role: "user", Content: userContent},
	}, []providers.ToolDefinition{saveMemoryTool()}, model, map[string]interface{}{
		"max_tokens":  1024,
		"temperature": 0.1,
	})
	if err != nil {
		logger.WarnCF("memory", "consolidation LLM call failed", map[string]interface{}{"error": err.Error()})
		return false, fmt.Errorf("consolidation LLM call: %w", err)
	}

	if len(resp.ToolCalls) == 0 {
		return false, fmt.Errorf("consolidation response had no tool call")
	}

	args := resp.ToolCalls[0].ResolvedArguments()
	if len(args) == 0 {
		return false, fmt.Errorf("consolidation tool call carried no arguments")
	}

	if historyEntry, ok := args["history_entry"].(string); ok && historyEntry != "" {
		if err := s.AppendHistory(historyEntry); err != nil {
			return false, err
		}
	}
	if memoryUpdate, ok := args["memory_update"].(string); ok && memoryUpdate != "" && memoryUpdate != currentMemory {
		if err := s.WriteLongTerm(memoryUpdate); err != nil {
			return false, err
		}
	}

	advanceCursor(sess, archiveAll, end)
	return true, nil
}

func advanceCursor(sess *session.Session, archiveAll bool, end int) {
	if archiveAll {
		sess.LastConsolidated = 0
		return
	}
	sess.LastConsolidated = end
}

func formatEntries(messages []providers.Message) string {
	var lines []string
	for _, m := range messages {
		content, _ := m.ContentString()
		content = thinkTagRe.ReplaceAllString(content, "")
		content = strings.TrimSpace(content)
		if content == "" {
			continue
		}

		ts := "unknown"
		if m.Timestamp != "" {
			if t, err := time.Parse(time.RFC3339, m.Timestamp); err == nil {
				ts = t.Format("2006-01-02 15:04")
			} else {
				ts = m.Timestamp
			}
		}

		role := strings.ToUpper(m.Role)
		toolsAnnotation := ""
		if len(m.ToolsUsed) > 0 {
			toolsAnnotation = fmt.Sprintf(" [tools: %s]", strings.Join(m.ToolsUsed, ", "))
		}

		lines = append(lines, fmt.Sprintf("[%s] %s%s: %s", ts, role, toolsAnnotation, content))
	}
	return strings.Join(lines, "\n")
}
