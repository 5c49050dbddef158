package eventbus_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lllypuk/ladder/internal/application/describe"
	"github.com/lllypuk/ladder/internal/infrastructure/eventbus"
	"github.com/lllypuk/ladder/internal/infrastructure/replyboard"
	"github.com/lllypuk/ladder/tests/testutil"
)

// recorder is a local publisher that keeps what it receives.
type recorder struct {
	mu     sync.Mutex
	events []replyboard.Event
}

func (r *recorder) Publish(_ context.Context, evt replyboard.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, evt)
}

func (r *recorder) received() []replyboard.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]replyboard.Event(nil), r.events...)
}

func startRelay(t *testing.T, relay *eventbus.RedisRelay) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = relay.Start(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	require.Eventually(t, relay.IsRunning, 2*time.Second, 10*time.Millisecond)
}

func TestNewRedisRelay(t *testing.T) {
	relay := eventbus.NewRedisRelay(nil, nil, eventbus.WithOrigin("node-a"))

	assert.Equal(t, "node-a", relay.Origin())
	assert.False(t, relay.IsRunning())
	assert.NoError(t, relay.Shutdown())
	assert.NotEmpty(t, eventbus.NewRedisRelay(nil, nil).Origin())
}

// TestRedisRelay_DeliversForeignEvents tests that an event published on one
// instance reaches the local publisher of another but not its own.
func TestRedisRelay_DeliversForeignEvents(t *testing.T) {
	client, prefix := testutil.SetupTestRedisWithPrefix(t)
	channel := prefix + "replies"

	localA, localB := &recorder{}, &recorder{}
	relayA := eventbus.NewRedisRelay(client, localA, eventbus.WithChannel(channel), eventbus.WithOrigin("a"))
	relayB := eventbus.NewRedisRelay(client, localB, eventbus.WithChannel(channel), eventbus.WithOrigin("b"))
	startRelay(t, relayA)
	startRelay(t, relayB)

	reply := replyboard.Reply{
		ID:           "r-1",
		WorkspaceID:  "ws-1",
		RequesterID:  "alice",
		Command:      "list-challenges",
		Presentation: describe.Presentation{Title: "Challenges", Content: "1. Opening"},
	}
	relayA.Publish(context.Background(), replyboard.Event{Type: replyboard.EventReplyCreated, Reply: reply})

	require.Eventually(t, func() bool { return len(localB.received()) == 1 }, 2*time.Second, 10*time.Millisecond)
	got := localB.received()[0]
	assert.Equal(t, replyboard.EventReplyCreated, got.Type)
	assert.Equal(t, "r-1", got.Reply.ID)
	assert.Equal(t, reply.Presentation, got.Reply.Presentation)

	time.Sleep(50 * time.Millisecond)
	assert.Empty(t, localA.received())
}

func TestRedisRelay_StartTwice(t *testing.T) {
	client, prefix := testutil.SetupTestRedisWithPrefix(t)
	relay := eventbus.NewRedisRelay(client, nil, eventbus.WithChannel(prefix+"replies"))
	startRelay(t, relay)

	err := relay.Start(context.Background())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "already running")
}

func TestRedisRelay_Shutdown(t *testing.T) {
	client, prefix := testutil.SetupTestRedisWithPrefix(t)
	relay := eventbus.NewRedisRelay(client, nil, eventbus.WithChannel(prefix+"replies"))

	done := make(chan error, 1)
	go func() { done <- relay.Start(context.Background()) }()
	require.Eventually(t, relay.IsRunning, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, relay.Shutdown())

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("relay did not stop")
	}
	assert.False(t, relay.IsRunning())
}
