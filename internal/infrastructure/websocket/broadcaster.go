package websocket

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/lllypuk/ladder/internal/infrastructure/replyboard"
)

// OutboundMessage is a frame sent to clients.
type OutboundMessage struct {
	Type        string `json:"type"`
	WorkspaceID string `json:"workspace_id,omitempty"`
	Data        any    `json:"data,omitempty"`
}

// Broadcaster routes reply board events to the hub. Ephemeral replies go only
// to their requester; all others go to the reply's workspace.
type Broadcaster struct {
	hub    *Hub
	logger *slog.Logger
}

// BroadcasterOption configures a Broadcaster.
type BroadcasterOption func(*Broadcaster)

// WithBroadcasterLogger sets the logger for the broadcaster.
func WithBroadcasterLogger(logger *slog.Logger) BroadcasterOption {
	return func(b *Broadcaster) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// NewBroadcaster creates a Broadcaster over hub.
func NewBroadcaster(hub *Hub, opts ...BroadcasterOption) *Broadcaster {
	b := &Broadcaster{
		hub:    hub,
		logger: slog.Default(),
	}

	for _, opt := range opts {
		opt(b)
	}

	return b
}

// Publish implements replyboard.Publisher.
func (b *Broadcaster) Publish(ctx context.Context, evt replyboard.Event) {
	msg := OutboundMessage{
		Type:        evt.Type,
		WorkspaceID: evt.Reply.WorkspaceID,
		Data:        evt.Reply,
	}

	data, err := json.Marshal(msg)
	if err != nil {
		b.logger.ErrorContext(ctx, "failed to marshal websocket message",
			slog.String("event_type", evt.Type),
			slog.String("error", err.Error()),
		)
		return
	}

	switch {
	case evt.Reply.Presentation.Ephemeral:
		if evt.Reply.RequesterID == "" {
			return
		}
		b.hub.SendToUser(evt.Reply.RequesterID, data)
		b.logger.DebugContext(ctx, "sent reply to requester",
			slog.String("event_type", evt.Type),
			slog.String("user_id", evt.Reply.RequesterID),
		)

	case evt.Reply.WorkspaceID != "":
		b.hub.BroadcastToWorkspace(evt.Reply.WorkspaceID, data)
		b.logger.DebugContext(ctx, "broadcast reply to workspace",
			slog.String("event_type", evt.Type),
			slog.String("workspace_id", evt.Reply.WorkspaceID),
		)

	default:
		b.logger.DebugContext(ctx, "reply not routable", slog.String("response_id", evt.Reply.ID))
	}
}
