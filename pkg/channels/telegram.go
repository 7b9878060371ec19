package channels

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/mymmrac/telego"
	tu "github.com/mymmrac/telego/telegoutil"

	"github.com/nanobot-ai/agentcore/pkg/bus"
	"github.com/nanobot-ai/agentcore/pkg/config"
	"github.com/nanobot-ai/agentcore/pkg/logger"
	"github.com/nanobot-ai/agentcore/pkg/utils"
)

var (
	codeBlockRe  = regexp.MustCompile("(?s)```[a-zA-Z]*\\n?(.*?)```")
	inlineCodeRe = regexp.MustCompile("`([^`]+)`")
	boldRe       = regexp.MustCompile(`\*\*(.+?)\*\*`)
	italicRe     = regexp.MustCompile(`_([^_]+)_`)
	strikeRe     = regexp.MustCompile(`~~(.+?)~~`)
	linkRe       = regexp.MustCompile(`\[([^\]]+)\]\(([^)]+)\)`)
)

// telegramBot abstracts the telego.Bot methods TelegramChannel uses, so
// tests can substitute a fake without a live API connection.
type telegramBot interface {
	Username() string
	FileDownloadURL(filePath string) string
	UpdatesViaLongPolling(ctx context.Context, params *telego.GetUpdatesParams, options ...telego.LongPollingOption) (<-chan telego.Update, error)
	SendMessage(ctx context.Context, params *telego.SendMessageParams) (*telego.Message, error)
	SendChatAction(ctx context.Context, params *telego.SendChatActionParams) error
	SendPhoto(ctx context.Context, params *telego.SendPhotoParams) (*telego.Message, error)
	SendDocument(ctx context.Context, params *telego.SendDocumentParams) (*telego.Message, error)
	GetFile(ctx context.Context, params *telego.GetFileParams) (*telego.File, error)
}

// TelegramChannel bridges a Telegram bot (long-polling) to the bus.
type TelegramChannel struct {
	*BaseChannel
	bot telegramBot
}

func NewTelegramChannel(cfg config.TelegramConfig, msgBus *bus.MessageBus) (*TelegramChannel, error) {
	bot, err := telego.NewBot(cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("creating telegram bot: %w", err)
	}

	return &TelegramChannel{
		BaseChannel: NewBaseChannel("telegram", cfg, msgBus, cfg.AllowFrom),
		bot:         bot,
	}, nil
}

func (c *TelegramChannel) Start(ctx context.Context) error {
	updates, err := c.bot.UpdatesViaLongPolling(ctx, &telego.GetUpdatesParams{Timeout: 30})
	if err != nil {
		return fmt.Errorf("starting long polling: %w", err)
	}

	c.setRunning(true)
	logger.InfoCF("telegram", "bot connected", map[string]interface{}{"username": c.bot.Username()})

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case update, ok := <-updates:
				if !ok {
					logger.InfoCF("telegram", "updates channel closed", nil)
					return
				}
				if update.Message != nil {
					c.handleUpdate(ctx, update)
				}
			}
		}
	}()

	return nil
}

func (c *TelegramChannel) Stop(ctx context.Context) error {
	c.setRunning(false)
	return nil
}

func (c *TelegramChannel) Send(ctx context.Context, msg bus.OutboundMessage) error {
	if !c.IsRunning() {
		return fmt.Errorf("telegram channel not running")
	}

	chatID, err := parseChatID(msg.ChatID)
	if err != nil {
		return fmt.Errorf("invalid chat id %q: %w", msg.ChatID, err)
	}

	html := markdownToTelegramHTML(msg.Content)
	if html != "" {
		tgMsg := tu.Message(tu.ID(chatID), html)
		tgMsg.ParseMode = telego.ModeHTML
		if _, err := c.bot.SendMessage(ctx, tgMsg); err != nil {
			logger.ErrorCF("telegram", "HTML send failed, retrying as plain text", map[string]interface{}{"error": err.Error()})
			plain := tu.Message(tu.ID(chatID), msg.Content)
			if _, err := c.bot.SendMessage(ctx, plain); err != nil {
				return fmt.Errorf("sending message: %w", err)
			}
		}
	}

	for _, mediaPath := range msg.Media {
		c.sendMedia(ctx, chatID, mediaPath)
	}

	return nil
}

func (c *TelegramChannel) sendMedia(ctx context.Context, chatID int64, mediaPath string) {
	file, err := os.Open(mediaPath)
	if err != nil {
		logger.ErrorCF("telegram", "failed to open media file", map[string]interface{}{"path": mediaPath, "error": err.Error()})
		return
	}
	defer file.Close()

	if isImageFile(mediaPath) {
		if _, err := c.bot.SendPhoto(ctx, tu.Photo(tu.ID(chatID), tu.File(file))); err != nil {
			logger.ErrorCF("telegram", "failed to send photo", map[string]interface{}{"path": mediaPath, "error": err.Error()})
		}
		return
	}
	if _, err := c.bot.SendDocument(ctx, tu.Document(tu.ID(chatID), tu.File(file))); err != nil {
		logger.ErrorCF("telegram", "failed to send document", map[string]interface{}{"path": mediaPath, "error": err.Error()})
	}
}

func (c *TelegramChannel) handleUpdate(ctx context.Context, update telego.Update) {
	message := update.Message
	user := message.From
	if user == nil {
		return
	}

	senderID := fmt.Sprintf("%d", user.ID)
	if user.Username != "" {
		senderID = fmt.Sprintf("%d|%s", user.ID, user.Username)
	}

	if !c.IsAllowed(senderID) {
		logger.DebugCF("telegram", "message rejected by allowlist", map[string]interface{}{"sender": senderID})
		return
	}

	content := message.Text
	if message.Caption != "" {
		if content != "" {
			content += "\n"
		}
		content += message.Caption
	}

	var mediaPaths []string
	if len(message.Photo) > 0 {
		largest := message.Photo[len(message.Photo)-1]
		if path := c.downloadFile(ctx, largest.FileID, ".jpg"); path != "" {
			mediaPaths = append(mediaPaths, path)
			content = appendTag(content, "[image]")
		}
	}
	if message.Document != nil {
		if path := c.downloadFile(ctx, message.Document.FileID, ""); path != "" {
			mediaPaths = append(mediaPaths, path)
			content = appendTag(content, "[file]")
		}
	}

	if content == "" {
		content = "[empty message]"
	}

	logger.DebugCF("telegram", "received message", map[string]interface{}{
		"sender":  senderID,
		"preview": utils.Truncate(content, 50),
	})

	metadata := map[string]string{
		"message_id": fmt.Sprintf("%d", message.MessageID),
		"is_group":   fmt.Sprintf("%t", message.Chat.Type != "private"),
	}

	c.HandleMessage(senderID, fmt.Sprintf("%d", message.Chat.ID), content, mediaPaths, metadata)
}

func appendTag(content, tag string) string {
	if content != "" {
		return content + "\n" + tag
	}
	return tag
}

func (c *TelegramChannel) downloadFile(ctx context.Context, fileID, ext string) string {
	file, err := c.bot.GetFile(ctx, &telego.GetFileParams{FileID: fileID})
	if err != nil {
		logger.ErrorCF("telegram", "failed to get file", map[string]interface{}{"error": err.Error()})
		return ""
	}
	if file.FilePath == "" {
		return ""
	}

	url := c.bot.FileDownloadURL(file.FilePath)
	filename := filepath.Base(file.FilePath) + ext
	path, err := utils.DownloadFile(url, filename, utils.DownloadOptions{})
	if err != nil {
		logger.ErrorCF("telegram", "failed to download file", map[string]interface{}{"error": err.Error()})
		return ""
	}
	return path
}

func isImageFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".jpg", ".jpeg", ".png", ".gif", ".webp":
		return true
	default:
		return false
	}
}

func parseChatID(chatIDStr string) (int64, error) {
	var id int64
	_, err := fmt.Sscanf(chatIDStr, "%d", &id)
	return id, err
}

// markdownToTelegramHTML converts the small Markdown subset the engine's
// responses tend to use (bold, italic, strikethrough, inline/fenced code,
// links) into Telegram's HTML parse mode, escaping everything else.
func markdownToTelegramHTML(text string) string {
	if text == "" {
		return ""
	}

	text = escapeHTML(text)
	text = boldRe.ReplaceAllString(text, "<b>$1</b>")
	text = italicRe.ReplaceAllString(text, "<i>$1</i>")
	text = strikeRe.ReplaceAllString(text, "<s>$1</s>")
	text = codeBlockRe.ReplaceAllString(text, "<pre><code>$1</code></pre>")
	text = inlineCodeRe.ReplaceAllString(text, "<code>$1</code>")
	text = linkRe.ReplaceAllString(text, `<a href="$2">$1</a>`)
	return text
}

func escapeHTML(text string) string {
	text = strings.ReplaceAll(text, "&", "&amp;")
	text = strings.ReplaceAll(text, "<", "&lt;")
	text = strings.ReplaceAll(text, ">", "&gt;")
	return text
}
