package session

import (
	"sync"

	"github.com/gorilla/websocket"

	"codesync/internal/models"
)

// Client wraps one live websocket connection. ID is the transport-assigned
// socket identity: unique, opaque, never reused after disconnect.
type Client struct {
	ID   string
	Conn *websocket.Conn
	mu   sync.Mutex
	hook func(models.Frame)
}

func NewClient(id string, conn *websocket.Conn) *Client {
	return &Client{ID: id, Conn: conn}
}

// SetSendHook replaces the default WebSocket sender (used in tests).
func (c *Client) SetSendHook(fn func(models.Frame)) {
	c.mu.Lock()
	c.hook = fn
	c.mu.Unlock()
}

// Send delivers one frame, fire-and-forget. Write errors are dropped: the
// transport's own read loop notices a dead peer and reports the disconnect.
func (c *Client) Send(frame models.Frame) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.hook != nil {
		c.hook(frame)
		return
	}
	if c.Conn == nil {
		return
	}
	_ = c.Conn.WriteJSON(frame)
}
