// Package websocket pushes reply board changes to connected clients.
package websocket

import (
	"context"
	"log/slog"
	"sync"
)

const (
	defaultBroadcastBufferSize = 256
)

// Hub tracks connected clients and the workspaces they follow.
type Hub struct {
	// clients holds all connected clients.
	clients map[*Client]bool

	// rooms maps workspace ids to their subscribed clients.
	rooms map[string]map[*Client]bool

	// userClients maps member ids to their connections (a member may have several).
	userClients map[string]map[*Client]bool

	register   chan *Client
	unregister chan *Client
	broadcast  chan *broadcastMessage

	// mu protects the maps.
	mu sync.RWMutex

	logger *slog.Logger

	done      chan struct{}
	running   bool
	runningMu sync.RWMutex
}

// broadcastMessage is addressed to exactly one of a workspace or a member.
type broadcastMessage struct {
	workspaceID string
	userID      string
	message     []byte
}

// HubOption configures the Hub.
type HubOption func(*Hub)

// WithHubLogger sets the logger for the hub.
func WithHubLogger(logger *slog.Logger) HubOption {
	return func(h *Hub) {
		if logger != nil {
			h.logger = logger
		}
	}
}

// NewHub creates a new Hub with the given options.
func NewHub(opts ...HubOption) *Hub {
	h := &Hub{
		clients:     make(map[*Client]bool),
		rooms:       make(map[string]map[*Client]bool),
		userClients: make(map[string]map[*Client]bool),
		register:    make(chan *Client),
		unregister:  make(chan *Client),
		broadcast:   make(chan *broadcastMessage, defaultBroadcastBufferSize),
		logger:      slog.Default(),
		done:        make(chan struct{}),
	}

	for _, opt := range opts {
		opt(h)
	}

	return h
}

// Run starts the hub's event loop. It returns when ctx is cancelled or Stop is called.
func (h *Hub) Run(ctx context.Context) {
	h.runningMu.Lock()
	if h.running {
		h.runningMu.Unlock()
		return
	}
	h.running = true
	h.runningMu.Unlock()

	h.logger.InfoContext(ctx, "websocket hub started")

	for {
		select {
		case <-ctx.Done():
			h.shutdown()
			return

		case <-h.done:
			h.shutdown()
			return

		case client := <-h.register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.unregisterClient(client)

		case msg := <-h.broadcast:
			h.handleBroadcast(msg)
		}
	}
}

// Stop signals the hub to stop.
func (h *Hub) Stop() {
	h.runningMu.Lock()
	defer h.runningMu.Unlock()

	if !h.running {
		return
	}

	close(h.done)
}

func (h *Hub) shutdown() {
	h.runningMu.Lock()
	h.running = false
	h.runningMu.Unlock()

	h.mu.Lock()
	defer h.mu.Unlock()

	for client := range h.clients {
		client.Close()
	}

	h.clients = make(map[*Client]bool)
	h.rooms = make(map[string]map[*Client]bool)
	h.userClients = make(map[string]map[*Client]bool)

	h.logger.Info("websocket hub stopped")
}

// Register registers a new client with the hub.
func (h *Hub) Register(client *Client) {
	h.register <- client
}

// Unregister unregisters a client from the hub.
func (h *Hub) Unregister(client *Client) {
	h.unregister <- client
}

func (h *Hub) registerClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.clients[client] = true

	if client.userID != "" {
		if h.userClients[client.userID] == nil {
			h.userClients[client.userID] = make(map[*Client]bool)
		}
		h.userClients[client.userID][client] = true
	}

	h.logger.Debug("client registered",
		slog.String("user_id", client.userID),
		slog.Int("total_clients", len(h.clients)),
	)
}

func (h *Hub) unregisterClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[client]; !ok {
		return
	}

	for _, workspaceID := range client.Workspaces() {
		removeFromRoom(h.rooms, workspaceID, client)
	}
	if client.userID != "" {
		removeFromRoom(h.userClients, client.userID, client)
	}

	delete(h.clients, client)
	client.Close()

	h.logger.Debug("client unregistered",
		slog.String("user_id", client.userID),
		slog.Int("total_clients", len(h.clients)),
	)
}

// JoinWorkspace subscribes a registered client to a workspace.
func (h *Hub) JoinWorkspace(client *Client, workspaceID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[client]; !ok {
		return
	}

	if h.rooms[workspaceID] == nil {
		h.rooms[workspaceID] = make(map[*Client]bool)
	}
	h.rooms[workspaceID][client] = true
	client.addWorkspace(workspaceID)

	h.logger.Debug("client joined workspace",
		slog.String("user_id", client.userID),
		slog.String("workspace_id", workspaceID),
	)
}

// LeaveWorkspace unsubscribes a client from a workspace.
func (h *Hub) LeaveWorkspace(client *Client, workspaceID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	removeFromRoom(h.rooms, workspaceID, client)
	client.removeWorkspace(workspaceID)

	h.logger.Debug("client left workspace",
		slog.String("user_id", client.userID),
		slog.String("workspace_id", workspaceID),
	)
}

// BroadcastToWorkspace queues message for every client following the workspace.
func (h *Hub) BroadcastToWorkspace(workspaceID string, message []byte) {
	h.broadcast <- &broadcastMessage{workspaceID: workspaceID, message: message}
}

// SendToUser queues message for every connection of one member.
func (h *Hub) SendToUser(userID string, message []byte) {
	h.broadcast <- &broadcastMessage{userID: userID, message: message}
}

func (h *Hub) handleBroadcast(msg *broadcastMessage) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	var targets map[*Client]bool
	switch {
	case msg.workspaceID != "":
		targets = h.rooms[msg.workspaceID]
	case msg.userID != "":
		targets = h.userClients[msg.userID]
	}

	for client := range targets {
		if !client.Send(msg.message) {
			h.logger.Warn("client send buffer full, dropping message",
				slog.String("user_id", client.userID),
				slog.String("workspace_id", msg.workspaceID),
			)
		}
	}
}

// ClientCount returns the total number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// WorkspaceCount returns the number of workspaces with at least one subscriber.
func (h *Hub) WorkspaceCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms)
}

// ClientsInWorkspace returns the number of clients following a workspace.
func (h *Hub) ClientsInWorkspace(workspaceID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[workspaceID])
}

// UserConnectionCount returns the number of connections of one member.
func (h *Hub) UserConnectionCount(userID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.userClients[userID])
}

// IsRunning returns whether the hub is currently running.
func (h *Hub) IsRunning() bool {
	h.runningMu.RLock()
	defer h.runningMu.RUnlock()
	return h.running
}

func removeFromRoom(rooms map[string]map[*Client]bool, key string, client *Client) {
	room, ok := rooms[key]
	if !ok {
		return
	}
	delete(room, client)
	if len(room) == 0 {
		delete(rooms, key)
	}
}
