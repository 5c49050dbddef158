// Package replyboard is the in-process reply transport. Command replies are
// stored, can be edited while their edit window is open, and are pushed to
// subscribers through a Publisher.
package replyboard

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/lllypuk/ladder/internal/application/describe"
	"github.com/lllypuk/ladder/internal/domain/errs"
	"github.com/lllypuk/ladder/internal/domain/request"
	"github.com/lllypuk/ladder/internal/domain/uuid"
)

const (
	// DefaultEditWindow is how long a delivered reply stays editable.
	DefaultEditWindow = 15 * time.Minute

	// DefaultRetention is how long a reply is kept after its edit window closed.
	DefaultRetention = time.Hour
)

// Event types pushed to subscribers.
const (
	EventReplyCreated = "reply.created"
	EventReplyEdited  = "reply.edited"
)

var (
	// ErrReplyNotFound is returned for an unknown reply id.
	ErrReplyNotFound = fmt.Errorf("reply %w", errs.ErrNotFound)

	// ErrEditWindowClosed is returned when a reply is edited after its window.
	ErrEditWindowClosed = fmt.Errorf("reply edit window %w", errs.ErrExpired)

	// ErrEmptyPresentation is returned when a reply carries no content.
	ErrEmptyPresentation = errors.New("presentation has no content")
)

// Reply is a delivered command response.
type Reply struct {
	ID           string                `json:"id"`
	WorkspaceID  string                `json:"workspace_id"`
	RequesterID  string                `json:"requester_id"`
	Command      string                `json:"command"`
	Presentation describe.Presentation `json:"presentation"`
	CreatedAt    time.Time             `json:"created_at"`
	EditedAt     *time.Time            `json:"edited_at,omitempty"`
}

// Event is a change pushed to subscribers.
type Event struct {
	Type  string `json:"type"`
	Reply Reply  `json:"reply"`
}

// Publisher receives every reply change.
type Publisher interface {
	Publish(ctx context.Context, evt Event)
}

// Publishers fans an event out to each non-nil publisher in order.
type Publishers []Publisher

// Publish implements Publisher.
func (ps Publishers) Publish(ctx context.Context, evt Event) {
	for _, p := range ps {
		if p != nil {
			p.Publish(ctx, evt)
		}
	}
}

// Board stores replies in memory.
type Board struct {
	mu         sync.RWMutex
	replies    map[string]*Reply
	editWindow time.Duration
	retention  time.Duration
	now        func() time.Time
	publisher  Publisher
	logger     *slog.Logger
}

// Option configures a Board.
type Option func(*Board)

// WithEditWindow sets how long replies remain editable.
func WithEditWindow(d time.Duration) Option {
	return func(b *Board) {
		if d > 0 {
			b.editWindow = d
		}
	}
}

// WithRetention sets how long replies are kept once they can no longer be edited.
func WithRetention(d time.Duration) Option {
	return func(b *Board) {
		if d >= 0 {
			b.retention = d
		}
	}
}

// WithClock replaces the time source.
func WithClock(now func() time.Time) Option {
	return func(b *Board) {
		b.now = now
	}
}

// WithPublisher sets where reply changes are pushed.
func WithPublisher(p Publisher) Option {
	return func(b *Board) {
		b.publisher = p
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(b *Board) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// New creates an empty Board.
func New(opts ...Option) *Board {
	b := &Board{
		replies:    make(map[string]*Reply),
		editWindow: DefaultEditWindow,
		retention:  DefaultRetention,
		now:        time.Now,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// EditWindow returns how long replies remain editable.
func (b *Board) EditWindow() time.Duration {
	return b.editWindow
}

// Send delivers p as the reply to req and returns its response id.
func (b *Board) Send(ctx context.Context, req request.View, p describe.Presentation) (string, error) {
	if p.Content == "" && p.Title == "" {
		return "", ErrEmptyPresentation
	}

	reply := Reply{
		ID:           uuid.NewUUID().String(),
		WorkspaceID:  req.WorkspaceID,
		RequesterID:  req.Sender.ID,
		Command:      req.Command,
		Presentation: p,
		CreatedAt:    b.now(),
	}

	b.mu.Lock()
	b.replies[reply.ID] = &reply
	b.mu.Unlock()

	b.logger.DebugContext(ctx, "reply sent",
		slog.String("response_id", reply.ID),
		slog.String("command", reply.Command),
		slog.Bool("ephemeral", p.Ephemeral),
	)
	b.publish(ctx, EventReplyCreated, reply)

	return reply.ID, nil
}

// Edit replaces the presentation of a delivered reply.
func (b *Board) Edit(ctx context.Context, id string, p describe.Presentation) error {
	if p.Content == "" && p.Title == "" {
		return ErrEmptyPresentation
	}

	b.mu.Lock()
	reply, ok := b.replies[id]
	if !ok {
		b.mu.Unlock()
		return ErrReplyNotFound
	}
	now := b.now()
	if !now.Before(reply.CreatedAt.Add(b.editWindow)) {
		b.mu.Unlock()
		return ErrEditWindowClosed
	}
	reply.Presentation = p
	reply.EditedAt = &now
	snapshot := *reply
	b.mu.Unlock()

	b.logger.DebugContext(ctx, "reply edited", slog.String("response_id", id))
	b.publish(ctx, EventReplyEdited, snapshot)

	return nil
}

// Get returns the reply with the given id.
func (b *Board) Get(_ context.Context, id string) (Reply, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	reply, ok := b.replies[id]
	if !ok {
		return Reply{}, ErrReplyNotFound
	}
	return *reply, nil
}

// Len returns the number of stored replies.
func (b *Board) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.replies)
}

// Sweep drops replies whose edit window closed more than the retention ago.
func (b *Board) Sweep() int {
	cutoff := b.now().Add(-(b.editWindow + b.retention))

	b.mu.Lock()
	defer b.mu.Unlock()

	removed := 0
	for id, reply := range b.replies {
		if reply.CreatedAt.Before(cutoff) {
			delete(b.replies, id)
			removed++
		}
	}
	return removed
}

// Run sweeps the board every interval until ctx is cancelled.
func (b *Board) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := b.Sweep(); n > 0 {
				b.logger.DebugContext(ctx, "reply board swept", slog.Int("removed", n))
			}
		}
	}
}

func (b *Board) publish(ctx context.Context, typ string, reply Reply) {
	if b.publisher == nil {
		return
	}
	b.publisher.Publish(ctx, Event{Type: typ, Reply: reply})
}
