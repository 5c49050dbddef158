package websocket_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lllypuk/ladder/internal/application/describe"
	"github.com/lllypuk/ladder/internal/domain/request"
	"github.com/lllypuk/ladder/internal/infrastructure/replyboard"
	ws "github.com/lllypuk/ladder/internal/infrastructure/websocket"
)

func startHub(t *testing.T) *ws.Hub {
	t.Helper()
	hub := ws.NewHub()
	go hub.Run(t.Context())
	time.Sleep(10 * time.Millisecond)
	return hub
}

func decodeOutbound(t *testing.T, ch chan []byte) ws.OutboundMessage {
	t.Helper()
	select {
	case raw := <-ch:
		var msg ws.OutboundMessage
		require.NoError(t, json.Unmarshal(raw, &msg))
		return msg
	case <-time.After(200 * time.Millisecond):
		t.Fatal("expected a message")
		return ws.OutboundMessage{}
	}
}

// TestBroadcaster_WorkspaceReply tests that a public reply reaches the workspace.
func TestBroadcaster_WorkspaceReply(t *testing.T) {
	// Arrange
	hub := startHub(t)
	follower, followerCh := createTestClientWithChannel(t, hub, "bob")
	outsider, outsiderCh := createTestClientWithChannel(t, hub, "carol")
	hub.Register(follower)
	hub.Register(outsider)
	time.Sleep(10 * time.Millisecond)
	hub.JoinWorkspace(follower, "ws-1")

	board := replyboard.New(replyboard.WithPublisher(ws.NewBroadcaster(hub)))
	view := request.View{Command: "list-challenges", WorkspaceID: "ws-1", Sender: request.Member{ID: "alice"}}

	// Act
	id, err := board.Send(context.Background(), view, describe.Presentation{Content: "Match 01"})
	require.NoError(t, err)

	// Assert
	msg := decodeOutbound(t, followerCh)
	assert.Equal(t, replyboard.EventReplyCreated, msg.Type)
	assert.Equal(t, "ws-1", msg.WorkspaceID)
	data, ok := msg.Data.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, id, data["id"])
	assertNotReceived(t, outsiderCh)
}

// TestBroadcaster_EphemeralReply tests that an ephemeral reply reaches only its requester.
func TestBroadcaster_EphemeralReply(t *testing.T) {
	// Arrange
	hub := startHub(t)
	requester, requesterCh := createTestClientWithChannel(t, hub, "alice")
	follower, followerCh := createTestClientWithChannel(t, hub, "bob")
	hub.Register(requester)
	hub.Register(follower)
	time.Sleep(10 * time.Millisecond)
	hub.JoinWorkspace(follower, "ws-1")

	board := replyboard.New(replyboard.WithPublisher(ws.NewBroadcaster(hub)))
	view := request.View{Command: "join-tournament", WorkspaceID: "ws-1", Sender: request.Member{ID: "alice"}}

	// Act
	id, err := board.Send(context.Background(), view, describe.Presentation{Content: "Nope.", Ephemeral: true})
	require.NoError(t, err)
	require.NoError(t, board.Edit(context.Background(), id, describe.Presentation{Content: "Still nope.", Ephemeral: true}))

	// Assert
	assert.Equal(t, replyboard.EventReplyCreated, decodeOutbound(t, requesterCh).Type)
	assert.Equal(t, replyboard.EventReplyEdited, decodeOutbound(t, requesterCh).Type)
	assertNotReceived(t, followerCh)
}
