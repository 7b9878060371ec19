package bus

// InboundMessage is produced by a channel adapter and consumed by the agent
// loop. SessionKey overrides the default "channel:chat_id" session key when
// non-empty; BaseChannel.HandleMessage fills it in as "<channel>:<chat_id>".
type InboundMessage struct {
	Channel    string
	SenderID   string
	ChatID     string
	Content    string
	Media      []string
	Metadata   map[string]string
	SessionKey string
}

// OutboundMessage is produced by the agent loop and consumed by a channel
// adapter. Metadata carries the reserved flags "_progress" and "_tool_hint"
// (set to "true" when applicable) plus any channel-forwarded message_id.
// Media lists local file paths to deliver as attachments with Content.
type OutboundMessage struct {
	Channel  string
	ChatID   string
	Content  string
	Media    []string
	Metadata map[string]string
}

// IsProgress reports whether this outbound message is a streaming interim
// chunk rather than the turn's final reply.
func (m OutboundMessage) IsProgress() bool {
	return m.Metadata["_progress"] == "true"
}

// IsToolHint reports whether this outbound message is a short
// tool-invocation annotation.
func (m OutboundMessage) IsToolHint() bool {
	return m.Metadata["_tool_hint"] == "true"
}

// MessageHandler receives inbound messages dispatched for a specific channel
// and returns a non-nil error when it fails to handle one.
type MessageHandler func(InboundMessage) error
