package channels

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/mymmrac/telego"

	"github.com/nanobot-ai/agentcore/pkg/bus"
)

// mockTelegramBot implements telegramBot for testing.
type mockTelegramBot struct {
	mu sync.Mutex

	sendMessageCalls  []*telego.SendMessageParams
	sendPhotoCalls    []*telego.SendPhotoParams
	sendDocumentCalls []*telego.SendDocumentParams

	sendMessageID int
}

func newMockBot() *mockTelegramBot {
	return &mockTelegramBot{sendMessageID: 42}
}

func (m *mockTelegramBot) Username() string { return "testbot" }
func (m *mockTelegramBot) FileDownloadURL(filePath string) string {
	return "https://example.com/" + filePath
}
func (m *mockTelegramBot) UpdatesViaLongPolling(ctx context.Context, params *telego.GetUpdatesParams, options ...telego.LongPollingOption) (<-chan telego.Update, error) {
	return nil, nil
}
func (m *mockTelegramBot) SendMessage(ctx context.Context, params *telego.SendMessageParams) (*telego.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sendMessageCalls = append(m.sendMessageCalls, params)
	return &telego.Message{MessageID: m.sendMessageID}, nil
}
func (m *mockTelegramBot) SendChatAction(ctx context.Context, params *telego.SendChatActionParams) error {
	return nil
}
func (m *mockTelegramBot) SendPhoto(ctx context.Context, params *telego.SendPhotoParams) (*telego.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sendPhotoCalls = append(m.sendPhotoCalls, params)
	return &telego.Message{MessageID: m.sendMessageID}, nil
}
func (m *mockTelegramBot) SendDocument(ctx context.Context, params *telego.SendDocumentParams) (*telego.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sendDocumentCalls = append(m.sendDocumentCalls, params)
	return &telego.Message{MessageID: m.sendMessageID}, nil
}
func (m *mockTelegramBot) GetFile(ctx context.Context, params *telego.GetFileParams) (*telego.File, error) {
	return &telego.File{FileID: params.FileID, FilePath: "photos/test.jpg"}, nil
}

func (m *mockTelegramBot) getSendMessageCalls() []*telego.SendMessageParams {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := make([]*telego.SendMessageParams, len(m.sendMessageCalls))
	copy(cp, m.sendMessageCalls)
	return cp
}

func newTestTelegramChannel(bot telegramBot) *TelegramChannel {
	msgBus := bus.NewMessageBus()
	base := NewBaseChannel("telegram", nil, msgBus, nil)
	base.setRunning(true)
	return &TelegramChannel{BaseChannel: base, bot: bot}
}

func TestIsImageFile(t *testing.T) {
	tests := []struct {
		path string
		want bool
	}{
		{"/tmp/photo.jpg", true},
		{"/tmp/photo.jpeg", true},
		{"/tmp/photo.JPG", true},
		{"/tmp/image.png", true},
		{"/tmp/animation.gif", true},
		{"/tmp/sticker.webp", true},
		{"/tmp/report.pdf", false},
		{"/tmp/data.txt", false},
		{"", false},
		{"noextension", false},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			if got := isImageFile(tt.path); got != tt.want {
				t.Errorf("isImageFile(%q) = %v, want %v", tt.path, got, tt.want)
			}
		})
	}
}

func TestMarkdownToTelegramHTML(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"empty string", "", ""},
		{"plain text", "hello world", "hello world"},
		{"bold text", "**bold**", "<b>bold</b>"},
		{"italic text", "_italic_", "<i>italic</i>"},
		{"escapes html", "a < b", "a &lt; b"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := markdownToTelegramHTML(tt.input); got != tt.want {
				t.Errorf("markdownToTelegramHTML(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestSend_TextMessage(t *testing.T) {
	mock := newMockBot()
	ch := newTestTelegramChannel(mock)

	err := ch.Send(context.Background(), bus.OutboundMessage{ChatID: "12345", Content: "Hello world"})
	if err != nil {
		t.Fatalf("Send failed: %v", err)
	}

	calls := mock.getSendMessageCalls()
	if len(calls) != 1 {
		t.Fatalf("expected 1 SendMessage call, got %d", len(calls))
	}
	if calls[0].ParseMode != telego.ModeHTML {
		t.Errorf("expected HTML parse mode, got %q", calls[0].ParseMode)
	}
}

func TestSend_NotRunningReturnsError(t *testing.T) {
	mock := newMockBot()
	msgBus := bus.NewMessageBus()
	ch := &TelegramChannel{BaseChannel: NewBaseChannel("telegram", nil, msgBus, nil), bot: mock}

	if err := ch.Send(context.Background(), bus.OutboundMessage{ChatID: "1", Content: "hi"}); err == nil {
		t.Fatal("expected error when channel not running")
	}
}

func TestSend_WithMediaSendsPhoto(t *testing.T) {
	mock := newMockBot()
	ch := newTestTelegramChannel(mock)

	dir := t.TempDir()
	imgPath := filepath.Join(dir, "a.png")
	if err := os.WriteFile(imgPath, []byte{0x89, 'P', 'N', 'G'}, 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	err := ch.Send(context.Background(), bus.OutboundMessage{ChatID: "1", Content: "", Media: []string{imgPath}})
	if err != nil {
		t.Fatalf("Send failed: %v", err)
	}

	mock.mu.Lock()
	photos := len(mock.sendPhotoCalls)
	mock.mu.Unlock()
	if photos != 1 {
		t.Errorf("expected 1 SendPhoto call, got %d", photos)
	}
}

func TestHandleUpdate_RejectsDisallowedSender(t *testing.T) {
	msgBus := bus.NewMessageBus()
	defer msgBus.Close()
	base := NewBaseChannel("telegram", nil, msgBus, []string{"1|allowed"})
	ch := &TelegramChannel{BaseChannel: base, bot: newMockBot()}

	ch.handleUpdate(context.Background(), telego.Update{Message: &telego.Message{
		MessageID: 1,
		Text:      "hi",
		From:      &telego.User{ID: 2, Username: "blocked"},
		Chat:      telego.Chat{ID: 99, Type: "private"},
	}})

	ctx, cancel := context.WithTimeout(context.Background(), 0)
	defer cancel()
	if _, ok := msgBus.ConsumeInbound(ctx); ok {
		t.Fatal("expected blocked sender's message not to be published")
	}
}
