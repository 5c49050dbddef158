package pagination

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/lllypuk/ladder/internal/application/command"
)

// DefaultTTL keeps entries slightly below a typical 15 minute edit window.
const DefaultTTL = 14 * time.Minute

// Cache stamps entries with their expiry and hands them to a Store.
type Cache struct {
	store  Store
	ttl    time.Duration
	now    func() time.Time
	logger *slog.Logger
}

// CacheOption configures a Cache.
type CacheOption func(*Cache)

// WithTTL sets how long entries stay navigable.
func WithTTL(ttl time.Duration) CacheOption {
	return func(c *Cache) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) CacheOption {
	return func(c *Cache) {
		c.now = now
	}
}

// WithCacheLogger sets the logger for the cache.
func WithCacheLogger(logger *slog.Logger) CacheOption {
	return func(c *Cache) {
		c.logger = logger
	}
}

// NewCache creates a Cache over store.
func NewCache(store Store, opts ...CacheOption) *Cache {
	c := &Cache{
		store:  store,
		ttl:    DefaultTTL,
		now:    time.Now,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// TTL returns the configured entry lifetime.
func (c *Cache) TTL() time.Duration {
	return c.ttl
}

// Put stores e, replacing ExpiresAt with now + TTL.
func (c *Cache) Put(ctx context.Context, e Entry) error {
	if e.ResponseID == "" || e.Command == "" {
		return fmt.Errorf("%w: response id and command are required", ErrInvalidEntry)
	}
	if e.TotalPages < 1 || e.Page < 0 || e.Page >= e.TotalPages {
		return fmt.Errorf("%w: page %d of %d", ErrInvalidEntry, e.Page, e.TotalPages)
	}

	e.ExpiresAt = c.now().Add(c.ttl)
	if err := c.store.Put(ctx, e); err != nil {
		return fmt.Errorf("store interaction %s: %w", e.ResponseID, err)
	}

	c.logger.DebugContext(ctx, "interaction cached",
		slog.String("response_id", e.ResponseID),
		slog.String("command", e.Command),
		slog.Int("total_pages", e.TotalPages),
	)
	return nil
}

// Get loads the entry for responseID.
func (c *Cache) Get(ctx context.Context, responseID string) (Entry, error) {
	e, err := c.store.Get(ctx, responseID)
	if err != nil {
		return Entry{}, err
	}
	if e.Expired(c.now()) {
		return Entry{}, ErrExpired
	}
	return e, nil
}

// SetPage overwrites the stored page. Concurrent writers race; the last one wins.
func (c *Cache) SetPage(ctx context.Context, responseID string, page int) error {
	return c.store.SetPage(ctx, responseID, page)
}

// Cacher adapts c into the pipeline's cacher for the command called name.
// Solver parameters are stored as JSON.
func Cacher[S any](c *Cache, name string) command.Cacher[S] {
	return func(ctx context.Context, p command.CacheParams[S]) error {
		raw, err := json.Marshal(p.SolverParams)
		if err != nil {
			return fmt.Errorf("encode %s parameters: %w", name, err)
		}
		return c.Put(ctx, Entry{
			ResponseID: p.ResponseID,
			SenderID:   p.SenderID,
			Command:    name,
			Page:       p.Page,
			TotalPages: p.TotalPages,
			Params:     raw,
		})
	}
}
