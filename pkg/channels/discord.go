package channels

import (
	"context"
	"fmt"

	"github.com/bwmarrin/discordgo"

	"github.com/nanobot-ai/agentcore/pkg/bus"
	"github.com/nanobot-ai/agentcore/pkg/config"
	"github.com/nanobot-ai/agentcore/pkg/logger"
)

// DiscordChannel bridges a discordgo session to the bus via a
// message-create handler and the REST channel-message-send call.
type DiscordChannel struct {
	*BaseChannel
	session *discordgo.Session
}

func NewDiscordChannel(cfg config.DiscordConfig, msgBus *bus.MessageBus) (*DiscordChannel, error) {
	session, err := discordgo.New("Bot " + cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("creating discord session: %w", err)
	}
	session.Identify.Intents = discordgo.IntentsGuildMessages | discordgo.IntentsDirectMessages

	ch := &DiscordChannel{
		BaseChannel: NewBaseChannel("discord", cfg, msgBus, cfg.AllowFrom),
		session:     session,
	}
	session.AddHandler(ch.onMessageCreate)

	return ch, nil
}

func (c *DiscordChannel) Start(ctx context.Context) error {
	if err := c.session.Open(); err != nil {
		return fmt.Errorf("opening discord session: %w", err)
	}
	c.setRunning(true)
	return nil
}

func (c *DiscordChannel) Stop(ctx context.Context) error {
	c.setRunning(false)
	return c.session.Close()
}

func (c *DiscordChannel) Send(ctx context.Context, msg bus.OutboundMessage) error {
	if !c.IsRunning() {
		return fmt.Errorf("discord channel not running")
	}
	_, err := c.session.ChannelMessageSend(msg.ChatID, msg.Content)
	if err != nil {
		return fmt.Errorf("sending discord message: %w", err)
	}
	return nil
}

func (c *DiscordChannel) onMessageCreate(s *discordgo.Session, m *discordgo.MessageCreate) {
	if m.Author == nil || m.Author.Bot {
		return
	}

	if !c.IsAllowed(m.Author.ID) {
		logger.DebugCF("discord", "message rejected by allowlist", map[string]interface{}{"sender": m.Author.ID})
		return
	}

	content := m.Content
	if content == "" {
		content = "[empty message]"
	}

	metadata := map[string]string{
		"message_id": m.ID,
		"guild_id":   m.GuildID,
	}

	c.HandleMessage(m.Author.ID, m.ChannelID, content, nil, metadata)
}
