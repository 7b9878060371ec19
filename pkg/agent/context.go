package agent

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/nanobot-ai/agentcore/pkg/media"
	"github.com/nanobot-ai/agentcore/pkg/memory"
	"github.com/nanobot-ai/agentcore/pkg/providers"
	"github.com/nanobot-ai/agentcore/pkg/skills"
	"github.com/nanobot-ai/agentcore/pkg/tools"
)

// bootstrapFiles are read from the workspace root, in order, and spliced
// into the system prompt when present. Missing files are skipped silently.
var bootstrapFiles = []string{
	"AGENTS.md",
	"SOUL.md",
	"USER.md",
	"TOOLS.md",
	"IDENTITY.md",
}

// ContextBuilder assembles the system prompt and per-turn message list fed
// to the provider: identity, bootstrap files, memory, active skills, skills
// catalog, and the current user turn (with runtime context and any media attachments).
type ContextBuilder struct {
	workspace string
	skills    *skills.Loader
	memory    *memory.Store
	tools     *tools.ToolRegistry
}

func globalConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".agentcore")
}

// NewContextBuilder wires a skills loader (workspace > global > builtin) and
// a memory store rooted at workspace. mem may be nil if the memory store
// failed to initialize; memory context is then omitted from the prompt.
func NewContextBuilder(workspace string, mem *memory.Store) *ContextBuilder {
	wd, _ := os.Getwd()
	builtinSkillsDir := filepath.Join(wd, "skills")

	return &ContextBuilder{
		workspace: workspace,
		skills:    skills.NewLoader(workspace, builtinSkillsDir),
		memory:    mem,
	}
}

// SetToolsRegistry supplies the tool registry used to render the tools
// section of the identity block.
func (cb *ContextBuilder) SetToolsRegistry(registry *tools.ToolRegistry) {
	cb.tools = registry
}

func (cb *ContextBuilder) identity() string {
	now := time.Now().Format("2006-01-02 15:04 (Monday)")
	workspacePath, _ := filepath.Abs(cb.workspace)
	rt := fmt.Sprintf("%s/%s, Go %s", runtime.GOOS, runtime.GOARCH, runtime.Version())

	var sb strings.Builder
	sb.WriteString("# Identity\n\n")
	sb.WriteString("You are an autonomous assistant that talks to people over chat channels and acts on their behalf by calling tools.\n\n")
	fmt.Fprintf(&sb, "## Current Time\n%s\n\n", now)
	fmt.Fprintf(&sb, "## Runtime\n%s\n\n", rt)
	fmt.Fprintf(&sb, "## Workspace\n%s\n", workspacePath)
	fmt.Fprintf(&sb, "- Long-term memory: %s/memory/MEMORY.md\n", workspacePath)
	fmt.Fprintf(&sb, "- Conversation archive: %s/memory/HISTORY.md\n", workspacePath)
	fmt.Fprintf(&sb, "- Skills: %s/skills/{skill-name}/SKILL.md\n\n", workspacePath)
	sb.WriteString("## Tool Use\n")
	sb.WriteString("When you need to perform an action, call the appropriate tool. Don't narrate an action instead of taking it.\n")
	sb.WriteString("- Read a file before writing to it, and check that a path exists before relying on it.\n")
	sb.WriteString("- After editing a file, read it again when accuracy matters.\n")
	sb.WriteString("- Never guess what a tool will return; wait for its result.\n")
	sb.WriteString("- When a tool call fails, work out why before trying again.\n")
	sb.WriteString("Your final reply is delivered to the user unless you already sent one with the message tool during this turn.\n")

	if toolsSection := cb.toolsSection(); toolsSection != "" {
		sb.WriteString("\n")
		sb.WriteString(toolsSection)
	}

	return sb.String()
}

func (cb *ContextBuilder) toolsSection() string {
	if cb.tools == nil {
		return ""
	}
	summaries := cb.tools.GetSummaries()
	if len(summaries) == 0 {
		return ""
	}

	var sb strings.Builder
	sb.WriteString("## Available Tools\n\n")
	for _, s := range summaries {
		sb.WriteString(s)
		sb.WriteString("\n")
	}
	return sb.String()
}

// LoadBootstrapFiles concatenates the workspace's bootstrap documents, each
// under its own heading, skipping any that don't exist.
func (cb *ContextBuilder) LoadBootstrapFiles() string {
	var sb strings.Builder
	for _, filename := range bootstrapFiles {
		data, err := os.ReadFile(filepath.Join(cb.workspace, filename))
		if err != nil {
			continue
		}
		fmt.Fprintf(&sb, "## %s\n\n%s\n\n", filename, string(data))
	}
	return sb.String()
}

// BuildSystemPrompt joins the identity, bootstrap files, memory context
// (under a "# Memory" heading), active-skill bodies, and skills catalog, in
// that order, into the single system message, omitting any section that has
// nothing to contribute.
func (cb *ContextBuilder) BuildSystemPrompt() string {
	var parts []string

	parts = append(parts, cb.identity())

	if bootstrap := cb.LoadBootstrapFiles(); bootstrap != "" {
		parts = append(parts, strings.TrimRight(bootstrap, "\n"))
	}

	if cb.memory != nil {
		if memCtx, err := cb.memory.GetMemoryContext(); err == nil && memCtx != "" {
			parts = append(parts, "# Memory\n\n"+memCtx)
		}
	}

	if active := cb.skills.BuildActiveSkills(); active != "" {
		parts = append(parts, active)
	}

	if catalog := cb.skills.BuildSkillsSummary(); catalog != "" {
		parts = append(parts, "# Skills\n\nRead a skill's SKILL.md for full instructions before using it.\n\n"+catalog)
	}

	return strings.Join(parts, "\n\n---\n\n")
}

// runtimeContext renders the block appended to the current user turn so the
// model always knows which channel/chat it's replying in.
func runtimeContext(channel, chatID string) string {
	now := time.Now()
	return fmt.Sprintf("[Runtime Context]\nCurrent Time: %s\nChannel: %s\nChat ID: %s",
		now.Format("2006-01-02 15:04 (Monday) (MST)"), channel, chatID)
}

// BuildUserContent constructs the Content value for the current turn: a
// plain string when there's no media, or an ordered ContentPart sequence
// (images first, then text) when mediaPaths resolves to at least one image.
// The runtime-context block is always appended to the trailing text.
func BuildUserContent(currentMessage string, mediaPaths []string, channel, chatID string) interface{} {
	text := currentMessage + "\n\n" + runtimeContext(channel, chatID)

	parts := media.BuildMediaParts(mediaPaths)
	if len(parts) == 0 {
		return text
	}

	parts = append(parts, providers.ContentPart{Type: "text", Text: text})
	return parts
}

// BuildMessages assembles the full message list for one LLM call: the
// system prompt, the session's existing history verbatim, and the current
// user turn with media and runtime context attached.
func (cb *ContextBuilder) BuildMessages(history []providers.Message, currentMessage string, mediaPaths []string, channel, chatID string) []providers.Message {
	messages := make([]providers.Message, 0, len(history)+2)
	messages = append(messages, providers.Message{
		Role:    "system",
		Content: cb.BuildSystemPrompt(),
	})
	messages = append(messages, history...)
	messages = append(messages, providers.Message{
		Role:    "user",
		Content: BuildUserContent(currentMessage, mediaPaths, channel, chatID),
	})
	return messages
}

