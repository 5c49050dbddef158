package websocket_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ws "github.com/lllypuk/ladder/internal/infrastructure/websocket"
)

func TestDefaultClientConfig(t *testing.T) {
	config := ws.DefaultClientConfig()

	assert.Equal(t, 1024, config.ReadBufferSize)
	assert.Equal(t, 1024, config.WriteBufferSize)
	assert.Equal(t, 30*time.Second, config.PingInterval)
	assert.Equal(t, 60*time.Second, config.PongWait)
	assert.Equal(t, 10*time.Second, config.WriteWait)
	assert.Equal(t, int64(4096), config.MaxMessageSize)
}

func TestClient_Close(t *testing.T) {
	hub := ws.NewHub()
	client := createMockClient(t, hub, "alice")

	client.Close()
	client.Close()

	assert.True(t, client.IsClosed())
	assert.False(t, client.Send([]byte("late")))
}

// TestClient_Protocol tests the subscribe, unsubscribe and ping frames end to end.
func TestClient_Protocol(t *testing.T) {
	hub := ws.NewHub()
	go hub.Run(t.Context())
	time.Sleep(10 * time.Millisecond)

	serverConn, clientConn, err := createWebSocketPair(t)
	require.NoError(t, err)
	t.Cleanup(func() { _ = clientConn.Close() })

	client := ws.NewClient(hub, serverConn, "alice")
	hub.Register(client)
	go client.WritePump()
	go client.ReadPump()

	roundTrip := func(frame string) map[string]any {
		t.Helper()
		require.NoError(t, clientConn.WriteMessage(websocket.TextMessage, []byte(frame)))
		require.NoError(t, clientConn.SetReadDeadline(time.Now().Add(time.Second)))
		_, raw, readErr := clientConn.ReadMessage()
		require.NoError(t, readErr)
		var out map[string]any
		require.NoError(t, json.Unmarshal(raw, &out))
		return out
	}

	t.Run("subscribe", func(t *testing.T) {
		ack := roundTrip(`{"type":"subscribe","workspace_id":"ws-1"}`)
		assert.Equal(t, "ack", ack["type"])
		assert.Equal(t, "subscribed", ack["action"])
		assert.Equal(t, 1, hub.ClientsInWorkspace("ws-1"))
	})

	t.Run("subscribe without workspace", func(t *testing.T) {
		resp := roundTrip(`{"type":"subscribe"}`)
		assert.Equal(t, "error", resp["type"])
	})

	t.Run("ping", func(t *testing.T) {
		assert.Equal(t, "pong", roundTrip(`{"type":"ping"}`)["type"])
	})

	t.Run("unknown type", func(t *testing.T) {
		resp := roundTrip(`{"type":"typing"}`)
		assert.Equal(t, "error", resp["type"])
		assert.Contains(t, resp["message"], "typing")
	})

	t.Run("malformed frame", func(t *testing.T) {
		assert.Equal(t, "error", roundTrip(`not json`)["type"])
	})

	t.Run("unsubscribe", func(t *testing.T) {
		ack := roundTrip(`{"type":"unsubscribe","workspace_id":"ws-1"}`)
		assert.Equal(t, "unsubscribed", ack["action"])
		assert.Equal(t, 0, hub.ClientsInWorkspace("ws-1"))
	})
}

func TestClient_WorkspaceAccess(t *testing.T) {
	hub := ws.NewHub()
	go hub.Run(t.Context())
	time.Sleep(10 * time.Millisecond)

	serverConn, clientConn, err := createWebSocketPair(t)
	require.NoError(t, err)
	t.Cleanup(func() { _ = clientConn.Close() })

	client := ws.NewClient(hub, serverConn, "alice", ws.WithWorkspaceAccess(func(id string) bool {
		return id == "ws-1"
	}))
	hub.Register(client)
	go client.WritePump()
	go client.ReadPump()

	subscribe := func(workspaceID string) map[string]any {
		t.Helper()
		require.NoError(t, clientConn.WriteJSON(map[string]string{"type": "subscribe", "workspace_id": workspaceID}))
		require.NoError(t, clientConn.SetReadDeadline(time.Now().Add(time.Second)))
		var out map[string]any
		require.NoError(t, clientConn.ReadJSON(&out))
		return out
	}

	resp := subscribe("ws-2")
	assert.Equal(t, "error", resp["type"])
	assert.Contains(t, resp["message"], "ws-2")
	assert.False(t, client.Follows("ws-2"))
	assert.Zero(t, hub.ClientsInWorkspace("ws-2"))

	assert.Equal(t, "ack", subscribe("ws-1")["type"])
	require.Eventually(t, func() bool { return client.Follows("ws-1") }, time.Second, 10*time.Millisecond)
}
