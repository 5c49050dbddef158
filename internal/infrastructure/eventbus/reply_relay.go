// Package eventbus relays reply events between API instances over Redis
// Pub/Sub, so WebSocket subscribers see replies produced on any instance.
package eventbus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/lllypuk/ladder/internal/infrastructure/replyboard"
)

const defaultChannel = "ladder:replies"

// envelope is the wire form of a relayed event.
type envelope struct {
	ID     string           `json:"id"`
	Origin string           `json:"origin"`
	Type   string           `json:"type"`
	Reply  replyboard.Reply `json:"reply"`
}

// RedisRelay publishes reply events to a Redis channel and hands events from
// other instances to a local publisher. Events an instance published itself
// are skipped on receipt; the local publisher already saw them.
type RedisRelay struct {
	client  *redis.Client
	channel string
	origin  string
	local   replyboard.Publisher
	logger  *slog.Logger

	pubsub    *redis.PubSub
	pubsubMu  sync.Mutex
	running   bool
	runningMu sync.RWMutex
	shutdown  chan struct{}
}

// Option configures a RedisRelay.
type Option func(*RedisRelay)

// WithLogger sets the logger for the relay.
func WithLogger(logger *slog.Logger) Option {
	return func(r *RedisRelay) {
		r.logger = logger
	}
}

// WithChannel sets the Redis channel name.
func WithChannel(channel string) Option {
	return func(r *RedisRelay) {
		if channel != "" {
			r.channel = channel
		}
	}
}

// WithOrigin overrides the generated instance id.
func WithOrigin(origin string) Option {
	return func(r *RedisRelay) {
		r.origin = origin
	}
}

// NewRedisRelay creates a relay that delivers foreign events to local.
func NewRedisRelay(client *redis.Client, local replyboard.Publisher, opts ...Option) *RedisRelay {
	r := &RedisRelay{
		client:   client,
		channel:  defaultChannel,
		origin:   uuid.New().String(),
		local:    local,
		logger:   slog.Default(),
		shutdown: make(chan struct{}),
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Origin returns the instance id stamped on published events.
func (r *RedisRelay) Origin() string {
	return r.origin
}

// Publish implements replyboard.Publisher. Failures are logged; the reply
// itself was already delivered.
func (r *RedisRelay) Publish(ctx context.Context, evt replyboard.Event) {
	data, err := json.Marshal(envelope{
		ID:     uuid.New().String(),
		Origin: r.origin,
		Type:   evt.Type,
		Reply:  evt.Reply,
	})
	if err != nil {
		r.logger.ErrorContext(ctx, "failed to marshal reply event", slog.String("error", err.Error()))
		return
	}

	if pubErr := r.client.Publish(ctx, r.channel, data).Err(); pubErr != nil {
		r.logger.ErrorContext(ctx, "failed to relay reply event",
			slog.String("type", evt.Type),
			slog.String("response_id", evt.Reply.ID),
			slog.String("error", pubErr.Error()),
		)
		return
	}

	r.logger.DebugContext(ctx, "reply event relayed",
		slog.String("type", evt.Type),
		slog.String("response_id", evt.Reply.ID),
		slog.String("channel", r.channel),
	)
}

// Start subscribes to the channel and blocks until Shutdown is called or ctx
// is cancelled.
func (r *RedisRelay) Start(ctx context.Context) error {
	r.runningMu.Lock()
	if r.running {
		r.runningMu.Unlock()
		return errors.New("relay is already running")
	}
	r.running = true
	r.runningMu.Unlock()

	pubsub := r.client.Subscribe(ctx, r.channel)
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		r.setStopped()
		return fmt.Errorf("failed to subscribe to %s: %w", r.channel, err)
	}

	// Shutdown closes r.shutdown before taking pubsubMu, so either it sees
	// the stored pubsub or this check sees the closed channel.
	r.pubsubMu.Lock()
	select {
	case <-r.shutdown:
		r.pubsubMu.Unlock()
		_ = pubsub.Close()
		r.setStopped()
		return nil
	default:
	}
	r.pubsub = pubsub
	r.pubsubMu.Unlock()

	r.logger.InfoContext(ctx, "reply relay started",
		slog.String("channel", r.channel),
		slog.String("origin", r.origin),
	)

	msgCh := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			_ = r.closePubSub()
			r.setStopped()
			return ctx.Err()

		case <-r.shutdown:
			_ = r.closePubSub()
			return nil

		case msg, ok := <-msgCh:
			if !ok {
				r.logger.WarnContext(ctx, "relay channel closed")
				r.setStopped()
				return nil
			}
			r.handleMessage(ctx, msg)
		}
	}
}

// Shutdown stops a running relay.
func (r *RedisRelay) Shutdown() error {
	r.runningMu.Lock()
	if !r.running {
		r.runningMu.Unlock()
		return nil
	}
	r.running = false
	r.runningMu.Unlock()

	close(r.shutdown)
	return r.closePubSub()
}

// IsRunning reports whether Start is subscribed.
func (r *RedisRelay) IsRunning() bool {
	r.runningMu.RLock()
	running := r.running
	r.runningMu.RUnlock()

	r.pubsubMu.Lock()
	defer r.pubsubMu.Unlock()
	return running && r.pubsub != nil
}

func (r *RedisRelay) setStopped() {
	r.runningMu.Lock()
	r.running = false
	r.runningMu.Unlock()
}

func (r *RedisRelay) closePubSub() error {
	r.pubsubMu.Lock()
	pubsub := r.pubsub
	r.pubsub = nil
	r.pubsubMu.Unlock()

	if pubsub == nil {
		return nil
	}
	if err := pubsub.Close(); err != nil {
		return fmt.Errorf("failed to close pubsub: %w", err)
	}
	return nil
}

func (r *RedisRelay) handleMessage(ctx context.Context, msg *redis.Message) {
	var env envelope
	if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
		r.logger.ErrorContext(ctx, "failed to unmarshal relayed event",
			slog.String("channel", msg.Channel),
			slog.String("error", err.Error()),
		)
		return
	}
	if env.Origin == r.origin || r.local == nil {
		return
	}

	r.local.Publish(ctx, replyboard.Event{Type: env.Type, Reply: env.Reply})
}

var _ replyboard.Publisher = (*RedisRelay)(nil)
