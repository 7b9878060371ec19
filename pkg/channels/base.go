// Package channels bridges external chat transports (CLI, Telegram, Discord,
// a generic websocket) to the in-process message bus. Each adapter embeds
// *BaseChannel for the allowlist/running-state/publish plumbing common to
// all of them and implements the transport-specific Start/Stop/Send.
package channels

import (
	"context"
	"sync/atomic"

	"github.com/nanobot-ai/agentcore/pkg/bus"
)

// Channel is the contract the manager drives: connect/disconnect the
// transport and deliver an outbound message to it.
type Channel interface {
	Name() string
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	Send(ctx context.Context, msg bus.OutboundMessage) error
}

// BaseChannel holds the state shared by every adapter: its name (used to
// tag published InboundMessages and to filter outbound dispatch), the
// message bus, a sender allowlist, and a running flag the manager's status
// report reads.
type BaseChannel struct {
	name      string
	bus       *bus.MessageBus
	allowFrom map[string]bool
	running   atomic.Bool
}

// NewBaseChannel wires a channel's identity, bus, and allowlist. cfg is
// accepted for parity with adapter constructors that carry transport
// config alongside the allowlist; BaseChannel itself doesn't use it. An
// empty or nil allowList permits every sender.
func NewBaseChannel(name string, cfg interface{}, msgBus *bus.MessageBus, allowList []string) *BaseChannel {
	allow := make(map[string]bool, len(allowList))
	for _, id := range allowList {
		allow[id] = true
	}
	return &BaseChannel{
		name:      name,
		bus:       msgBus,
		allowFrom: allow,
	}
}

func (bc *BaseChannel) Name() string {
	return bc.name
}

// IsAllowed reports whether senderID may interact with this channel. An
// empty allowlist means "allow everyone".
func (bc *BaseChannel) IsAllowed(senderID string) bool {
	if len(bc.allowFrom) == 0 {
		return true
	}
	return bc.allowFrom[senderID]
}

func (bc *BaseChannel) setRunning(running bool) {
	bc.running.Store(running)
}

func (bc *BaseChannel) IsRunning() bool {
	return bc.running.Load()
}

// HandleMessage publishes an InboundMessage for senderID if allowed; blocked
// senders are silently dropped.
func (bc *BaseChannel) HandleMessage(senderID, chatID, content string, media []string, metadata map[string]string) {
	if !bc.IsAllowed(senderID) {
		return
	}

	bc.bus.PublishInbound(bus.InboundMessage{
		Channel:    bc.name,
		SenderID:   senderID,
		ChatID:     chatID,
		Content:    content,
		Media:      media,
		Metadata:   metadata,
		SessionKey: bc.name + ":" + chatID,
	})
}
