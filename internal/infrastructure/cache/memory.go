// Package cache provides stores for cached paginated interactions.
package cache

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/lllypuk/ladder/internal/application/pagination"
)

// DefaultSweepInterval is how often Run purges expired entries.
const DefaultSweepInterval = time.Minute

// MemoryStore is an in-process expiring map. Expired entries are hidden on
// read and removed by Run.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]pagination.Entry
	now     func() time.Time
	logger  *slog.Logger
}

// MemoryOption configures a MemoryStore.
type MemoryOption func(*MemoryStore)

// WithClock overrides the time source.
func WithClock(now func() time.Time) MemoryOption {
	return func(s *MemoryStore) {
		s.now = now
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) MemoryOption {
	return func(s *MemoryStore) {
		s.logger = logger
	}
}

// NewMemoryStore creates an empty store.
func NewMemoryStore(opts ...MemoryOption) *MemoryStore {
	s := &MemoryStore{
		entries: make(map[string]pagination.Entry),
		now:     time.Now,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Put stores e, replacing any entry with the same response id.
func (s *MemoryStore) Put(_ context.Context, e pagination.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries[e.ResponseID] = e
	return nil
}

// Get returns the live entry for responseID.
func (s *MemoryStore) Get(_ context.Context, responseID string) (pagination.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.entries[responseID]
	if !ok || e.Expired(s.now()) {
		return pagination.Entry{}, pagination.ErrExpired
	}
	return e, nil
}

// SetPage updates the page of a live entry.
func (s *MemoryStore) SetPage(_ context.Context, responseID string, page int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[responseID]
	if !ok || e.Expired(s.now()) {
		return pagination.ErrExpired
	}
	e.Page = page
	s.entries[responseID] = e
	return nil
}

// Len returns the number of stored entries, expired or not.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.entries)
}

// Sweep removes expired entries and returns how many were removed.
func (s *MemoryStore) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	removed := 0
	for id, e := range s.entries {
		if e.Expired(now) {
			delete(s.entries, id)
			removed++
		}
	}
	return removed
}

// Run sweeps every interval until ctx is cancelled.
func (s *MemoryStore) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.Sweep(); n > 0 {
				s.logger.DebugContext(ctx, "expired interactions swept", slog.Int("count", n))
			}
		}
	}
}
