package websocket

import (
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/conneroisu/shelfsearch/internal/livesearch"
)

// Message types exchanged with the browser.
const (
	// sent by clients
	TypeQuery   = "query"
	TypeCancel  = "cancel"
	TypeRefresh = "refresh"

	// sent by the server
	TypeResults = "results"
	TypeReload  = "reload"
	TypeError   = "error"
)

// ClientMessage is a message read from a browser tab.
type ClientMessage struct {
	Type  string `json:"type"`
	Query string `json:"query,omitempty"`
}

// ServerMessage is a message sent to a browser tab.
type ServerMessage struct {
	Type      string             `json:"type"`
	Result    *livesearch.Result `json:"result,omitempty"`
	Code      string             `json:"code,omitempty"`
	Error     string             `json:"error,omitempty"`
	Timestamp time.Time          `json:"timestamp"`
}

// Client represents a WebSocket client connection with its own search
// session.
type Client struct {
	conn    *websocket.Conn
	send    chan []byte
	session *livesearch.Session
	ip      string
	id      string

	mu     sync.Mutex
	closed bool
}

// enqueue queues data for the write pump. It reports false when the client
// is gone or its buffer is full.
func (c *Client) enqueue(data []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.send <- data:
		return true
	default:
		return false
	}
}

// close stops the session and closes the send channel exactly once.
func (c *Client) close() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	c.closed = true
	if c.session != nil {
		c.session.Close()
	}
	close(c.send)
	return true
}
