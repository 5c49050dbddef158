package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
)

// Rate limit defaults.
const (
	DefaultRateLimit       = 60
	DefaultRateLimitWindow = time.Minute
)

// Rate limit response headers.
const (
	HeaderRateLimitLimit     = "X-Ratelimit-Limit"
	HeaderRateLimitRemaining = "X-Ratelimit-Remaining"
)

// RateLimitStore counts requests per key in fixed windows.
type RateLimitStore interface {
	// Increment bumps the counter of key and returns the new count and the
	// time left in the current window.
	Increment(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error)
}

// RateLimitConfig holds configuration for the rate limit middleware.
type RateLimitConfig struct {
	Logger *slog.Logger

	// Store is the counter backend. A nil store disables limiting.
	Store RateLimitStore

	// Limit is the number of requests allowed per Window.
	Limit  int
	Window time.Duration

	// KeyFunc derives the counter key. Defaults to the member id, then the client IP.
	KeyFunc func(c echo.Context) string
}

// RateLimit limits how often one requester may call the wrapped routes.
// Store failures let the request through.
func RateLimit(config RateLimitConfig) echo.MiddlewareFunc {
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	if config.Limit <= 0 {
		config.Limit = DefaultRateLimit
	}
	if config.Window <= 0 {
		config.Window = DefaultRateLimitWindow
	}
	if config.KeyFunc == nil {
		config.KeyFunc = memberOrIPKey
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if config.Store == nil {
				return next(c)
			}

			key := config.KeyFunc(c)
			count, ttl, err := config.Store.Increment(c.Request().Context(), key, config.Window)
			if err != nil {
				config.Logger.Error("failed to increment rate limit counter",
					slog.String("key", key),
					slog.String("error", err.Error()),
				)
				return next(c)
			}

			limit := int64(config.Limit)
			c.Response().Header().Set(HeaderRateLimitLimit, strconv.FormatInt(limit, 10))
			c.Response().Header().Set(HeaderRateLimitRemaining, strconv.FormatInt(max(limit-count, 0), 10))

			if count > limit {
				config.Logger.Warn("rate limit exceeded",
					slog.String("key", key),
					slog.Int64("count", count),
					slog.Int64("limit", limit),
				)
				return respondRateLimitError(c, ttl)
			}

			return next(c)
		}
	}
}

func memberOrIPKey(c echo.Context) string {
	if id := GetMemberID(c); id != "" {
		return "member:" + id
	}
	return "ip:" + c.RealIP()
}

func respondRateLimitError(c echo.Context, retryAfter time.Duration) error {
	seconds := int64(retryAfter.Round(time.Second).Seconds())
	if seconds > 0 {
		c.Response().Header().Set("Retry-After", strconv.FormatInt(seconds, 10))
	}

	return c.JSON(http.StatusTooManyRequests, map[string]any{
		"success": false,
		"error": map[string]any{
			"code":        "RATE_LIMIT_EXCEEDED",
			"message":     "Too many requests. Please try again later.",
			"retry_after": seconds,
		},
	})
}

// MemoryRateLimitStore keeps counters in process memory.
type MemoryRateLimitStore struct {
	mu     sync.Mutex
	counts map[string]*rateLimitEntry
	now    func() time.Time
}

type rateLimitEntry struct {
	count     int64
	expiresAt time.Time
}

// NewMemoryRateLimitStore creates an empty in-memory store.
func NewMemoryRateLimitStore() *MemoryRateLimitStore {
	return &MemoryRateLimitStore{
		counts: make(map[string]*rateLimitEntry),
		now:    time.Now,
	}
}

// Increment implements RateLimitStore.
func (s *MemoryRateLimitStore) Increment(_ context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	entry, ok := s.counts[key]
	if !ok || !now.Before(entry.expiresAt) {
		entry = &rateLimitEntry{expiresAt: now.Add(window)}
		s.counts[key] = entry
	}
	entry.count++

	return entry.count, entry.expiresAt.Sub(now), nil
}

// RedisRateLimitStore keeps counters in Redis so limits hold across replicas.
type RedisRateLimitStore struct {
	client    redis.UniversalClient
	keyPrefix string
}

// NewRedisRateLimitStore creates a Redis-backed store.
func NewRedisRateLimitStore(client redis.UniversalClient, keyPrefix string) *RedisRateLimitStore {
	if keyPrefix == "" {
		keyPrefix = "ladder:ratelimit:"
	}
	return &RedisRateLimitStore{client: client, keyPrefix: keyPrefix}
}

// Increment implements RateLimitStore.
func (s *RedisRateLimitStore) Increment(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	fullKey := s.keyPrefix + key

	pipe := s.client.TxPipeline()
	incr := pipe.Incr(ctx, fullKey)
	pipe.ExpireNX(ctx, fullKey, window)
	ttl := pipe.PTTL(ctx, fullKey)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, 0, fmt.Errorf("failed to increment counter: %w", err)
	}

	return incr.Val(), ttl.Val(), nil
}
