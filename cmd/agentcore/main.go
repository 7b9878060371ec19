// Command agentcore runs the agent engine: it loads configuration from the
// environment, wires the configured LLM provider and channel adapters to
// the message bus, and drives the agent loop until interrupted.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nanobot-ai/agentcore/pkg/agent"
	"github.com/nanobot-ai/agentcore/pkg/bus"
	"github.com/nanobot-ai/agentcore/pkg/channels"
	"github.com/nanobot-ai/agentcore/pkg/config"
	"github.com/nanobot-ai/agentcore/pkg/logger"
	"github.com/nanobot-ai/agentcore/pkg/providers"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "loading config: %s\n", err)
		os.Exit(1)
	}
	logger.SetLevel(cfg.LogLevel)

	provider, err := providers.CreateProvider(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "creating provider: %s\n", err)
		os.Exit(1)
	}

	msgBus := bus.NewMessageBus()
	loop := agent.NewAgentLoop(cfg, msgBus, provider)
	manager := channels.NewManager(msgBus)

	if err := registerChannels(cfg, msgBus, manager); err != nil {
		fmt.Fprintf(os.Stderr, "registering channels: %s\n", err)
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := manager.StartAll(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "starting channels: %s\n", err)
		os.Exit(1)
	}

	logger.InfoCF("main", "agentcore running", map[string]interface{}{
		"channels": manager.GetEnabledChannels(),
		"model":    cfg.Agent.Model,
	})

	runErr := loop.Run(ctx)

	stopCtx, stopCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer stopCancel()
	if err := manager.StopAll(stopCtx); err != nil {
		logger.ErrorCF("main", "error stopping channels", map[string]interface{}{"error": err.Error()})
	}

	if runErr != nil {
		fmt.Fprintf(os.Stderr, "agent loop exited with error: %s\n", runErr)
		os.Exit(1)
	}
}

// registerChannels constructs and registers every enabled channel adapter
// with the manager. CLI is registered unconditionally unless explicitly
// disabled, since it's the zero-config way to talk to the engine.
func registerChannels(cfg *config.Config, msgBus *bus.MessageBus, manager *channels.Manager) error {
	if cfg.Channels.CLI.Enabled {
		cli, err := channels.NewCLIChannel(cfg.Channels.CLI, msgBus)
		if err != nil {
			return fmt.Errorf("cli channel: %w", err)
		}
		manager.RegisterChannel("cli", cli)
	}

	if cfg.Channels.Telegram.Enabled {
		tg, err := channels.NewTelegramChannel(cfg.Channels.Telegram, msgBus)
		if err != nil {
			return fmt.Errorf("telegram channel: %w", err)
		}
		manager.RegisterChannel("telegram", tg)
	}

	if cfg.Channels.Discord.Enabled {
		dc, err := channels.NewDiscordChannel(cfg.Channels.Discord, msgBus)
		if err != nil {
			return fmt.Errorf("discord channel: %w", err)
		}
		manager.RegisterChannel("discord", dc)
	}

	if cfg.Channels.WebSocket.Enabled {
		ws := channels.NewWebSocketChannel(cfg.Channels.WebSocket, msgBus)
		manager.RegisterChannel("ws", ws)
	}

	return nil
}
