package channels

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/chzyer/readline"

	"github.com/nanobot-ai/agentcore/pkg/bus"
	"github.com/nanobot-ai/agentcore/pkg/config"
)

const cliSenderID = "local"
const cliChatID = "local"

// CLIChannel is an interactive local prompt: it reads one line at a time
// from stdin via readline, publishes it as an InboundMessage, and blocks
// until the matching OutboundMessage comes back before printing it and
// prompting again. Satisfies the outer agent loop's CLI quirk (an empty
// OutboundMessage unblocks the read when processMessage has nothing to
// say).
type CLIChannel struct {
	*BaseChannel
	rl *readline.Instance

	mu      sync.Mutex
	waiting chan bus.OutboundMessage
}

func NewCLIChannel(cfg config.CLIConfig, msgBus *bus.MessageBus) (*CLIChannel, error) {
	rl, err := readline.New("> ")
	if err != nil {
		return nil, fmt.Errorf("creating readline instance: %w", err)
	}

	return &CLIChannel{
		BaseChannel: NewBaseChannel("cli", cfg, msgBus, nil),
		rl:          rl,
	}, nil
}

func (c *CLIChannel) Start(ctx context.Context) error {
	c.setRunning(true)

	go c.readLoop(ctx)

	return nil
}

func (c *CLIChannel) Stop(ctx context.Context) error {
	c.setRunning(false)
	return c.rl.Close()
}

// Send delivers the response for whichever line is currently in flight.
func (c *CLIChannel) Send(ctx context.Context, msg bus.OutboundMessage) error {
	c.mu.Lock()
	waiting := c.waiting
	c.mu.Unlock()

	if waiting == nil {
		return nil
	}

	select {
	case waiting <- msg:
	case <-ctx.Done():
		return ctx.Err()
	}
	return nil
}

func (c *CLIChannel) readLoop(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}

		line, err := c.rl.Readline()
		if err != nil {
			if errors.Is(err, readline.ErrInterrupt) || errors.Is(err, io.EOF) {
				return
			}
			continue
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		reply := make(chan bus.OutboundMessage, 1)
		c.mu.Lock()
		c.waiting = reply
		c.mu.Unlock()

		c.HandleMessage(cliSenderID, cliChatID, line, nil, nil)

		select {
		case msg := <-reply:
			if msg.Content != "" {
				fmt.Fprintln(c.rl.Stdout(), msg.Content)
			}
		case <-ctx.Done():
			return
		}

		c.mu.Lock()
		c.waiting = nil
		c.mu.Unlock()
	}
}
