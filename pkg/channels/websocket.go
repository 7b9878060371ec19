package channels

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/nanobot-ai/agentcore/pkg/bus"
	"github.com/nanobot-ai/agentcore/pkg/config"
	"github.com/nanobot-ai/agentcore/pkg/logger"
)

// wsFrame is the single JSON-line shape exchanged over the connection in
// both directions: {sender_id, chat_id, content}.
type wsFrame struct {
	SenderID string `json:"sender_id"`
	ChatID   string `json:"chat_id"`
	Content  string `json:"content"`
}

var wsUpgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// WebSocketChannel is a minimal bidirectional JSON-line bridge for
// embedding the engine behind a custom front-end: each connected client
// is keyed by chat ID and receives outbound frames addressed to it.
type WebSocketChannel struct {
	*BaseChannel
	addr   string
	server *http.Server

	mu    sync.Mutex
	conns map[string]*websocket.Conn
}

func NewWebSocketChannel(cfg config.WebSocketConfig, msgBus *bus.MessageBus) *WebSocketChannel {
	return &WebSocketChannel{
		BaseChannel: NewBaseChannel("ws", cfg, msgBus, cfg.AllowFrom),
		addr:        cfg.Addr,
		conns:       make(map[string]*websocket.Conn),
	}
}

func (c *WebSocketChannel) Start(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/", c.handleConn)
	c.server = &http.Server{Addr: c.addr, Handler: mux}

	ln := make(chan error, 1)
	go func() {
		ln <- c.server.ListenAndServe()
	}()

	c.setRunning(true)

	go func() {
		if err := <-ln; err != nil && err != http.ErrServerClosed {
			logger.ErrorCF("ws", "server stopped unexpectedly", map[string]interface{}{"error": err.Error()})
		}
	}()

	return nil
}

func (c *WebSocketChannel) Stop(ctx context.Context) error {
	c.setRunning(false)
	if c.server == nil {
		return nil
	}
	return c.server.Shutdown(ctx)
}

func (c *WebSocketChannel) Send(ctx context.Context, msg bus.OutboundMessage) error {
	c.mu.Lock()
	conn, ok := c.conns[msg.ChatID]
	c.mu.Unlock()
	if !ok {
		return fmt.Errorf("no websocket connection for chat %q", msg.ChatID)
	}

	return conn.WriteJSON(wsFrame{ChatID: msg.ChatID, Content: msg.Content})
}

func (c *WebSocketChannel) handleConn(w http.ResponseWriter, r *http.Request) {
	conn, err := wsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.ErrorCF("ws", "upgrade failed", map[string]interface{}{"error": err.Error()})
		return
	}
	defer conn.Close()

	var chatID string

	for {
		var frame wsFrame
		if err := conn.ReadJSON(&frame); err != nil {
			break
		}
		if frame.ChatID == "" {
			continue
		}
		chatID = frame.ChatID

		c.mu.Lock()
		c.conns[chatID] = conn
		c.mu.Unlock()

		if !c.IsAllowed(frame.SenderID) {
			continue
		}

		c.HandleMessage(frame.SenderID, frame.ChatID, frame.Content, nil, nil)
	}

	if chatID != "" {
		c.mu.Lock()
		delete(c.conns, chatID)
		c.mu.Unlock()
	}
}

