package websocket

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	defaultReadBufferSize  = 1024
	defaultWriteBufferSize = 1024
	defaultPingInterval    = 30 * time.Second
	defaultPongWait        = 60 * time.Second
	defaultWriteWait       = 10 * time.Second
	defaultMaxMessageSize  = 4096
	defaultSendBufferSize  = 256
)

// ClientConfig holds configuration for WebSocket clients.
type ClientConfig struct {
	ReadBufferSize  int
	WriteBufferSize int

	// PingInterval is the interval for sending ping messages.
	PingInterval time.Duration

	// PongWait is the maximum time to wait for a pong response.
	PongWait time.Duration

	// WriteWait is the maximum time to wait for a write operation.
	WriteWait time.Duration

	// MaxMessageSize is the largest inbound frame accepted.
	MaxMessageSize int64
}

// DefaultClientConfig returns the default client configuration.
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		ReadBufferSize:  defaultReadBufferSize,
		WriteBufferSize: defaultWriteBufferSize,
		PingInterval:    defaultPingInterval,
		PongWait:        defaultPongWait,
		WriteWait:       defaultWriteWait,
		MaxMessageSize:  defaultMaxMessageSize,
	}
}

// ClientMessage is a frame sent by a client.
type ClientMessage struct {
	Type        string `json:"type"`
	WorkspaceID string `json:"workspace_id,omitempty"`
}

// Client is a single WebSocket connection of an authenticated member.
type Client struct {
	hub    *Hub
	conn   *websocket.Conn
	send   chan []byte
	userID string

	// workspaces this client follows.
	workspaces map[string]bool
	mu         sync.RWMutex

	// canFollow gates subscribe. Nil admits every workspace.
	canFollow func(workspaceID string) bool

	config ClientConfig
	logger *slog.Logger

	closed   bool
	closedMu sync.RWMutex
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithClientConfig sets the client configuration.
func WithClientConfig(config ClientConfig) ClientOption {
	return func(c *Client) {
		c.config = config
	}
}

// WithClientLogger sets the logger for the client.
func WithClientLogger(logger *slog.Logger) ClientOption {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithWorkspaceAccess restricts subscriptions to the workspaces allow accepts.
func WithWorkspaceAccess(allow func(workspaceID string) bool) ClientOption {
	return func(c *Client) {
		c.canFollow = allow
	}
}

// NewClient creates a client for conn owned by userID.
func NewClient(hub *Hub, conn *websocket.Conn, userID string, opts ...ClientOption) *Client {
	c := &Client{
		hub:        hub,
		conn:       conn,
		send:       make(chan []byte, defaultSendBufferSize),
		userID:     userID,
		workspaces: make(map[string]bool),
		config:     DefaultClientConfig(),
		logger:     slog.Default(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// UserID returns the member id associated with this client.
func (c *Client) UserID() string {
	return c.userID
}

// Workspaces returns the workspaces this client follows.
func (c *Client) Workspaces() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	ids := make([]string, 0, len(c.workspaces))
	for id := range c.workspaces {
		ids = append(ids, id)
	}
	return ids
}

// Follows reports whether the client is subscribed to a workspace.
func (c *Client) Follows(workspaceID string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.workspaces[workspaceID]
}

func (c *Client) addWorkspace(workspaceID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.workspaces[workspaceID] = true
}

func (c *Client) removeWorkspace(workspaceID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.workspaces, workspaceID)
}

// IsClosed returns whether the client connection has been closed.
func (c *Client) IsClosed() bool {
	c.closedMu.RLock()
	defer c.closedMu.RUnlock()
	return c.closed
}

// ReadPump reads frames from the connection until it fails. Run it as a goroutine.
func (c *Client) ReadPump() {
	defer func() {
		c.hub.Unregister(c)
	}()

	c.conn.SetReadLimit(c.config.MaxMessageSize)

	if err := c.conn.SetReadDeadline(time.Now().Add(c.config.PongWait)); err != nil {
		c.logger.Error("failed to set read deadline", slog.String("error", err.Error()))
		return
	}

	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(c.config.PongWait))
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Warn("websocket read error",
					slog.String("user_id", c.userID),
					slog.String("error", err.Error()),
				)
			}
			return
		}

		c.handleClientMessage(message)
	}
}

// WritePump writes queued messages and pings. Run it as a goroutine.
func (c *Client) WritePump() {
	ticker := time.NewTicker(c.config.PingInterval)
	defer func() {
		ticker.Stop()
		c.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			if err := c.conn.SetWriteDeadline(time.Now().Add(c.config.WriteWait)); err != nil {
				c.logger.Error("failed to set write deadline", slog.String("error", err.Error()))
				return
			}

			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				c.logger.Warn("websocket write error",
					slog.String("user_id", c.userID),
					slog.String("error", err.Error()),
				)
				return
			}

		case <-ticker.C:
			if err := c.conn.SetWriteDeadline(time.Now().Add(c.config.WriteWait)); err != nil {
				c.logger.Error("failed to set write deadline", slog.String("error", err.Error()))
				return
			}

			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Client) handleClientMessage(message []byte) {
	var msg ClientMessage
	if err := json.Unmarshal(message, &msg); err != nil {
		c.logger.Warn("invalid client message",
			slog.String("user_id", c.userID),
			slog.String("error", err.Error()),
		)
		c.sendError("invalid message format")
		return
	}

	switch msg.Type {
	case "subscribe":
		if msg.WorkspaceID == "" {
			c.sendError("workspace_id is required for subscribe")
			return
		}
		if c.canFollow != nil && !c.canFollow(msg.WorkspaceID) {
			c.logger.Debug("subscribe rejected",
				slog.String("user_id", c.userID),
				slog.String("workspace_id", msg.WorkspaceID),
			)
			c.sendError("not a member of workspace " + msg.WorkspaceID)
			return
		}
		c.hub.JoinWorkspace(c, msg.WorkspaceID)
		c.sendAck("subscribed", msg.WorkspaceID)

	case "unsubscribe":
		if msg.WorkspaceID == "" {
			c.sendError("workspace_id is required for unsubscribe")
			return
		}
		c.hub.LeaveWorkspace(c, msg.WorkspaceID)
		c.sendAck("unsubscribed", msg.WorkspaceID)

	case "ping":
		c.sendJSON(map[string]string{"type": "pong"})

	default:
		c.sendError("unknown message type: " + msg.Type)
	}
}

func (c *Client) sendError(message string) {
	c.sendJSON(map[string]any{
		"type":    "error",
		"message": message,
	})
}

func (c *Client) sendAck(action, workspaceID string) {
	c.sendJSON(map[string]any{
		"type":         "ack",
		"action":       action,
		"workspace_id": workspaceID,
	})
}

func (c *Client) sendJSON(v any) {
	data, err := json.Marshal(v)
	if err != nil {
		return
	}
	c.Send(data)
}

// Send queues message without blocking. It reports false when the client is
// closed or its buffer is full.
func (c *Client) Send(message []byte) bool {
	c.closedMu.RLock()
	defer c.closedMu.RUnlock()

	if c.closed {
		return false
	}

	select {
	case c.send <- message:
		return true
	default:
		c.logger.Warn("client send buffer full", slog.String("user_id", c.userID))
		return false
	}
}

// Close closes the connection. It is safe to call more than once.
func (c *Client) Close() {
	c.closedMu.Lock()
	defer c.closedMu.Unlock()

	if c.closed {
		return
	}
	c.closed = true

	close(c.send)
	_ = c.conn.Close()

	c.logger.Debug("client connection closed", slog.String("user_id", c.userID))
}
