// Package websocket serves live search to browser pages.
//
// Every connection gets its own livesearch.Session, so keystrokes from one
// tab are debounced independently of every other tab. A central hub
// goroutine owns unregistration and broadcasts; each client has a read pump
// that feeds its session and a write pump that drains its send buffer and
// keeps the connection alive with pings.
package websocket

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/coder/websocket"
	"github.com/conneroisu/shelfsearch/internal/debounce"
	"github.com/conneroisu/shelfsearch/internal/errors"
	"github.com/conneroisu/shelfsearch/internal/livesearch"
	"github.com/conneroisu/shelfsearch/internal/logging"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed between two reads, pings included.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 4096

	sendBuffer = 32
)

// Manager accepts WebSocket connections and runs one search session per
// client.
//
// Invariants:
//   - clients map access always protected by clientsMutex
//   - a client is in the map before its pumps start, so it is always
//     registered before it can be unregistered
//   - no client is added once isShutdown is set
//   - a client's send channel is closed exactly once, after its session
//   - isShutdown transitions from false to true exactly once
type Manager struct {
	catalog   *livesearch.Catalog
	delay     time.Duration
	scheduler debounce.Scheduler
	logger    logging.Logger

	clients      map[*websocket.Conn]*Client
	clientsMutex sync.RWMutex

	broadcast  chan []byte
	unregister chan *websocket.Conn

	originValidator OriginValidator
	limiter         *IPLimiter

	nextID       atomic.Uint64
	ctx          context.Context
	cancel       context.CancelFunc
	shutdownOnce sync.Once
	isShutdown   atomic.Bool
}

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the manager logger.
func WithLogger(l logging.Logger) Option {
	return func(m *Manager) {
		if l != nil {
			m.logger = l
		}
	}
}

// WithScheduler sets the clock used by client sessions.
func WithScheduler(s debounce.Scheduler) Option {
	return func(m *Manager) {
		m.scheduler = s
	}
}

// WithLimiter enables per-address connection and message limits.
func WithLimiter(l *IPLimiter) Option {
	return func(m *Manager) {
		m.limiter = l
	}
}

// NewManager creates a manager serving catalog. Every client session uses
// delay as its debounce delay.
func NewManager(
	catalog *livesearch.Catalog,
	delay time.Duration,
	originValidator OriginValidator,
	opts ...Option,
) (*Manager, error) {
	if catalog == nil {
		return nil, errors.NewInvalidArgument("websocket manager needs a catalog")
	}
	if originValidator == nil {
		return nil, errors.NewInvalidArgument("websocket manager needs an origin validator")
	}
	if delay < 0 {
		return nil, errors.NewInvalidArgument("debounce delay must not be negative").
			WithContext("delay", delay.String())
	}

	ctx, cancel := context.WithCancel(context.Background())
	m := &Manager{
		catalog:         catalog,
		delay:           delay,
		logger:          logging.Nop(),
		clients:         make(map[*websocket.Conn]*Client),
		broadcast:       make(chan []byte, 64),
		unregister:      make(chan *websocket.Conn, 32),
		originValidator: originValidator,
		ctx:             ctx,
		cancel:          cancel,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.logger = m.logger.WithComponent("websocket")

	go m.runHub()

	return m, nil
}

// HandleWebSocket upgrades the request and starts the client's pumps.
//
// Responses before the upgrade:
//   - 403 Forbidden: origin not allowed
//   - 429 Too Many Requests: too many connections from the address
//   - 503 Service Unavailable: manager shut down
func (m *Manager) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	if m.isShutdown.Load() {
		http.Error(w, "Service Unavailable", http.StatusServiceUnavailable)
		return
	}

	origin := r.Header.Get("Origin")
	if origin != "" && !m.originValidator.IsAllowedOrigin(origin) {
		m.logger.Warn(r.Context(), errors.ErrInvalidOrigin(origin),
			"websocket connection rejected", "remote", r.RemoteAddr)
		http.Error(w, "Forbidden", http.StatusForbidden)
		return
	}

	ip := clientIP(r)
	if m.limiter != nil {
		if !m.limiter.Acquire(ip) {
			m.logger.Warn(r.Context(), nil, "websocket connection rejected: too many connections", "ip", ip)
			http.Error(w, "Too Many Requests", http.StatusTooManyRequests)
			return
		}
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		// origins are checked above
		OriginPatterns:  []string{"*"},
		CompressionMode: websocket.CompressionDisabled,
	})
	if err != nil {
		if m.limiter != nil {
			m.limiter.Release(ip)
		}
		m.logger.Warn(r.Context(), err, "websocket upgrade failed", "ip", ip)
		return
	}
	conn.SetReadLimit(maxMessageSize)

	client := &Client{
		conn: conn,
		send: make(chan []byte, sendBuffer),
		ip:   ip,
		id:   fmt.Sprintf("ws-%d", m.nextID.Add(1)),
	}

	var sopts []livesearch.Option
	sopts = append(sopts, livesearch.WithLogger(m.logger), livesearch.WithID(client.id))
	if m.scheduler != nil {
		sopts = append(sopts, livesearch.WithScheduler(m.scheduler))
	}
	session, err := livesearch.New(m.catalog, m.delay, func(res livesearch.Result) {
		m.sendResult(client, res)
	}, sopts...)
	if err != nil {
		m.releaseIP(client)
		_ = conn.Close(websocket.StatusInternalError, "session setup failed")
		return
	}
	client.session = session

	if !m.registerClient(client) {
		m.releaseIP(client)
		session.Close()
		_ = conn.Close(websocket.StatusServiceRestart, "server shutting down")
		return
	}

	go m.handleClient(client)
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func (m *Manager) releaseIP(c *Client) {
	if m.limiter != nil {
		m.limiter.Release(c.ip)
	}
}

// runHub manages client connections and broadcasting
func (m *Manager) runHub() {
	for {
		select {
		case conn := <-m.unregister:
			m.unregisterClient(conn)

		case message := <-m.broadcast:
			m.broadcastToClients(message)

		case <-m.ctx.Done():
			return
		}
	}
}

// registerClient adds client to the map. It reports false once the manager
// is shutting down.
func (m *Manager) registerClient(client *Client) bool {
	m.clientsMutex.Lock()
	if m.isShutdown.Load() {
		m.clientsMutex.Unlock()
		return false
	}
	m.clients[client.conn] = client
	count := len(m.clients)
	m.clientsMutex.Unlock()

	m.logger.Info(m.ctx, "websocket client connected", "client", client.id, "clients", count)
	return true
}

func (m *Manager) unregisterClient(conn *websocket.Conn) {
	m.clientsMutex.Lock()
	client, exists := m.clients[conn]
	if exists {
		delete(m.clients, conn)
	}
	count := len(m.clients)
	m.clientsMutex.Unlock()

	if !exists {
		return
	}
	if client.close() {
		m.releaseIP(client)
	}
	_ = conn.Close(websocket.StatusNormalClosure, "")
	m.logger.Info(m.ctx, "websocket client disconnected", "client", client.id, "clients", count)
}

func (m *Manager) broadcastToClients(message []byte) {
	for _, client := range m.snapshot() {
		if !client.enqueue(message) {
			m.dropClient(client)
		}
	}
}

func (m *Manager) snapshot() []*Client {
	m.clientsMutex.RLock()
	defer m.clientsMutex.RUnlock()
	clients := make([]*Client, 0, len(m.clients))
	for _, client := range m.clients {
		clients = append(clients, client)
	}
	return clients
}

// dropClient unregisters a client without blocking the caller.
func (m *Manager) dropClient(c *Client) {
	go func() {
		select {
		case m.unregister <- c.conn:
		case <-m.ctx.Done():
		}
	}()
}

func (m *Manager) handleClient(client *Client) {
	defer func() {
		select {
		case m.unregister <- client.conn:
		case <-m.ctx.Done():
		}
	}()

	go m.writeToClient(client)

	m.readFromClient(client)
}

func (m *Manager) readFromClient(client *Client) {
	for {
		ctx, cancel := context.WithTimeout(m.ctx, pongWait)
		typ, data, err := client.conn.Read(ctx)
		cancel()

		if err != nil {
			status := websocket.CloseStatus(err)
			if status != websocket.StatusNormalClosure && status != websocket.StatusGoingAway && m.ctx.Err() == nil {
				m.logger.Debug(m.ctx, "websocket read ended", "client", client.id, "error", err.Error())
			}
			return
		}

		if m.limiter != nil && !m.limiter.AllowMessage(client.ip) {
			m.sendError(client, errors.NewTransportError(errors.ErrCodeInvalidMessage,
				"message rate limit exceeded", nil))
			continue
		}
		if typ != websocket.MessageText {
			m.sendError(client, errors.NewTransportError(errors.ErrCodeInvalidMessage,
				"expected a text message", nil))
			continue
		}

		m.processClientMessage(client, data)
	}
}

func (m *Manager) writeToClient(client *Client) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case message, ok := <-client.send:
			if !ok {
				return
			}

			ctx, cancel := context.WithTimeout(m.ctx, writeWait)
			err := client.conn.Write(ctx, websocket.MessageText, message)
			cancel()

			if err != nil {
				m.logger.Debug(m.ctx, "websocket write failed", "client", client.id, "error", err.Error())
				_ = client.conn.Close(websocket.StatusInternalError, "write failed")
				return
			}

		case <-ticker.C:
			ctx, cancel := context.WithTimeout(m.ctx, writeWait)
			err := client.conn.Ping(ctx)
			cancel()

			if err != nil {
				_ = client.conn.Close(websocket.StatusGoingAway, "ping failed")
				return
			}

		case <-m.ctx.Done():
			return
		}
	}
}

func (m *Manager) processClientMessage(client *Client, data []byte) {
	var msg ClientMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		m.sendError(client, errors.WrapTransport(err, errors.ErrCodeInvalidMessage, "malformed message"))
		return
	}

	switch msg.Type {
	case TypeQuery:
		client.session.Input(msg.Query)
	case TypeCancel:
		client.session.Cancel()
	case TypeRefresh:
		client.session.Refresh()
	default:
		m.sendError(client, errors.NewTransportError(errors.ErrCodeInvalidMessage,
			"unknown message type", nil).WithContext("type", msg.Type))
	}
}

func (m *Manager) sendResult(client *Client, res livesearch.Result) {
	m.send(client, ServerMessage{Type: TypeResults, Result: &res})
}

func (m *Manager) sendError(client *Client, err *errors.Error) {
	m.send(client, ServerMessage{Type: TypeError, Code: err.Code, Error: err.Message})
}

func (m *Manager) send(client *Client, msg ServerMessage) {
	msg.Timestamp = time.Now()
	data, err := json.Marshal(msg)
	if err != nil {
		m.logger.Error(m.ctx, err, "failed to marshal websocket message", "type", msg.Type)
		return
	}
	if !client.enqueue(data) {
		m.logger.Debug(m.ctx, "websocket send buffer unavailable, dropping message",
			"client", client.id, "type", msg.Type)
	}
}

// Reload tells every client the catalog changed and re-runs each client's
// last query against the new table.
func (m *Manager) Reload() {
	if m.isShutdown.Load() {
		return
	}

	data, err := json.Marshal(ServerMessage{Type: TypeReload, Timestamp: time.Now()})
	if err != nil {
		m.logger.Error(m.ctx, err, "failed to marshal reload message")
		return
	}

	// reload notices go out before the refreshed results
	for _, client := range m.snapshot() {
		if !client.enqueue(data) {
			m.dropClient(client)
			continue
		}
		if _, applied := client.session.LastQuery(); applied || client.session.Pending() {
			client.session.Refresh()
		}
	}
}

// Broadcast sends a message to all connected clients through the hub.
func (m *Manager) Broadcast(msg ServerMessage) {
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now()
	}
	data, err := json.Marshal(msg)
	if err != nil {
		m.logger.Error(m.ctx, err, "failed to marshal broadcast message")
		return
	}

	select {
	case m.broadcast <- data:
	case <-m.ctx.Done():
	default:
		m.logger.Warn(m.ctx, nil, "broadcast channel full, dropping message")
	}
}

// ConnectedClients returns the number of registered clients.
func (m *Manager) ConnectedClients() int {
	m.clientsMutex.RLock()
	defer m.clientsMutex.RUnlock()
	return len(m.clients)
}

// Shutdown closes every connection and stops the hub. New connections are
// refused afterwards.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.shutdownOnce.Do(func() {
		m.isShutdown.Store(true)
		m.cancel()

		m.clientsMutex.Lock()
		clients := m.clients
		m.clients = make(map[*websocket.Conn]*Client)
		m.clientsMutex.Unlock()

		for conn, client := range clients {
			if client.close() {
				m.releaseIP(client)
			}
			_ = conn.Close(websocket.StatusGoingAway, "server shutdown")
		}

		m.logger.Info(ctx, "websocket manager shut down", "closed", len(clients))
	})

	return nil
}

// IsShutdown reports whether Shutdown has been called.
func (m *Manager) IsShutdown() bool {
	return m.isShutdown.Load()
}
