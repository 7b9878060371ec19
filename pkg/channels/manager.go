package channels

import (
	"context"
	"fmt"
	"sync"

	"github.com/nanobot-ai/agentcore/pkg/bus"
	"github.com/nanobot-ai/agentcore/pkg/logger"
)

// Manager owns the set of registered channels and the outbound dispatcher
// that routes each bus.OutboundMessage to the channel named in its
// Channel field.
type Manager struct {
	mu       sync.RWMutex
	channels map[string]Channel
	bus      *bus.MessageBus

	started  bool
	cancel   context.CancelFunc
	dispatch sync.WaitGroup
}

// NewManager creates a channel manager bound to msgBus.
func NewManager(msgBus *bus.MessageBus) *Manager {
	return &Manager{
		channels: make(map[string]Channel),
		bus:      msgBus,
	}
}

// RegisterChannel adds or replaces a channel under name.
func (m *Manager) RegisterChannel(name string, ch Channel) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.channels[name] = ch
}

// UnregisterChannel removes a channel by name.
func (m *Manager) UnregisterChannel(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.channels, name)
}

// GetChannel returns the registered channel by name, if any.
func (m *Manager) GetChannel(name string) (Channel, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ch, ok := m.channels[name]
	return ch, ok
}

// GetEnabledChannels lists the names of every registered channel.
func (m *Manager) GetEnabledChannels() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	names := make([]string, 0, len(m.channels))
	for name := range m.channels {
		names = append(names, name)
	}
	return names
}

// SendToChannel delivers content to chatID on the named channel directly,
// bypassing the bus. Used by callers (e.g. a health check or admin command)
// that need a synchronous send outside the agent loop's normal outbound
// flow.
func (m *Manager) SendToChannel(ctx context.Context, name, chatID, content string) error {
	ch, ok := m.GetChannel(name)
	if !ok {
		return fmt.Errorf("channel %q not registered", name)
	}
	return ch.Send(ctx, bus.OutboundMessage{Channel: name, ChatID: chatID, Content: content})
}

// StartAll starts every registered channel and, the first time it's
// called, begins the outbound dispatcher goroutine that routes
// bus.OutboundMessages to their named channel. Calling it again while
// already started is a no-op.
func (m *Manager) StartAll(ctx context.Context) error {
	m.mu.Lock()
	if m.started {
		m.mu.Unlock()
		return nil
	}
	m.started = true

	dispatchCtx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel

	channels := make(map[string]Channel, len(m.channels))
	for name, ch := range m.channels {
		channels[name] = ch
	}
	m.mu.Unlock()

	for name, ch := range channels {
		if err := ch.Start(ctx); err != nil {
			logger.ErrorCF("channels", "failed to start channel", map[string]interface{}{
				"channel": name,
				"error":   err.Error(),
			})
			return fmt.Errorf("starting channel %q: %w", name, err)
		}
	}

	m.dispatch.Add(1)
	go m.dispatchOutbound(dispatchCtx)

	return nil
}

// StopAll stops the outbound dispatcher and every registered channel.
func (m *Manager) StopAll(ctx context.Context) error {
	m.mu.Lock()
	if !m.started {
		m.mu.Unlock()
		return nil
	}
	m.started = false
	cancel := m.cancel
	m.cancel = nil

	channels := make(map[string]Channel, len(m.channels))
	for name, ch := range m.channels {
		channels[name] = ch
	}
	m.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	m.dispatch.Wait()

	var firstErr error
	for name, ch := range channels {
		if err := ch.Stop(ctx); err != nil {
			logger.ErrorCF("channels", "failed to stop channel", map[string]interface{}{
				"channel": name,
				"error":   err.Error(),
			})
			if firstErr == nil {
				firstErr = fmt.Errorf("stopping channel %q: %w", name, err)
			}
		}
	}
	return firstErr
}

// GetStatus reports running/enabled state for every registered channel.
func (m *Manager) GetStatus() map[string]interface{} {
	m.mu.RLock()
	defer m.mu.RUnlock()

	status := make(map[string]interface{}, len(m.channels))
	for name, ch := range m.channels {
		running := false
		if rc, ok := ch.(interface{ IsRunning() bool }); ok {
			running = rc.IsRunning()
		}
		status[name] = map[string]interface{}{
			"running": running,
			"enabled": true,
		}
	}
	return status
}

// dispatchOutbound drains bus.outbound for as long as ctx is live, routing
// each message to the channel named in its Channel field.
func (m *Manager) dispatchOutbound(ctx context.Context) {
	defer m.dispatch.Done()

	for {
		msg, ok := m.bus.SubscribeOutbound(ctx)
		if !ok {
			return
		}

		ch, ok := m.GetChannel(msg.Channel)
		if !ok {
			logger.WarnCF("channels", "dropping outbound message for unknown channel", map[string]interface{}{
				"channel": msg.Channel,
			})
			continue
		}
		if err := ch.Send(ctx, msg); err != nil {
			logger.ErrorCF("channels", "failed to send outbound message", map[string]interface{}{
				"channel": msg.Channel,
				"error":   err.Error(),
			})
		}
	}
}
