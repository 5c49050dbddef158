package middleware_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lllypuk/ladder/internal/domain/request"
	"github.com/lllypuk/ladder/internal/middleware"
	"github.com/lllypuk/ladder/tests/testutil"
)

func newRateLimitedEcho(store middleware.RateLimitStore, limit int) *echo.Echo {
	e := echo.New()
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if id := c.Request().Header.Get("X-Member"); id != "" {
				middleware.SetMember(c, request.Member{ID: id})
			}
			return next(c)
		}
	})
	e.Use(middleware.RateLimit(middleware.RateLimitConfig{Store: store, Limit: limit, Window: time.Minute}))
	e.POST("/cmd", func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})
	return e
}

func doRateLimited(e *echo.Echo, member string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/cmd", nil)
	if member != "" {
		req.Header.Set("X-Member", member)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

// TestRateLimit tests per-member limiting with the in-memory store.
func TestRateLimit(t *testing.T) {
	e := newRateLimitedEcho(middleware.NewMemoryRateLimitStore(), 2)

	first := doRateLimited(e, "alice")
	assert.Equal(t, http.StatusOK, first.Code)
	assert.Equal(t, "2", first.Header().Get(middleware.HeaderRateLimitLimit))
	assert.Equal(t, "1", first.Header().Get(middleware.HeaderRateLimitRemaining))

	assert.Equal(t, http.StatusOK, doRateLimited(e, "alice").Code)

	blocked := doRateLimited(e, "alice")
	assert.Equal(t, http.StatusTooManyRequests, blocked.Code)
	assert.Contains(t, blocked.Body.String(), "RATE_LIMIT_EXCEEDED")
	assert.NotEmpty(t, blocked.Header().Get("Retry-After"))

	assert.Equal(t, http.StatusOK, doRateLimited(e, "bob").Code, "other members keep their own budget")
}

func TestRateLimit_NoStore(t *testing.T) {
	e := newRateLimitedEcho(nil, 1)

	for range 3 {
		assert.Equal(t, http.StatusOK, doRateLimited(e, "alice").Code)
	}
}

func TestMemoryRateLimitStore_WindowReset(t *testing.T) {
	store := middleware.NewMemoryRateLimitStore()
	ctx := context.Background()

	count, ttl, err := store.Increment(ctx, "k", 20*time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
	assert.Positive(t, ttl)

	time.Sleep(30 * time.Millisecond)

	count, _, err = store.Increment(ctx, "k", 20*time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestRedisRateLimitStore(t *testing.T) {
	client, prefix := testutil.SetupTestRedisWithPrefix(t)
	store := middleware.NewRedisRateLimitStore(client, prefix)
	ctx := context.Background()

	for want := int64(1); want <= 3; want++ {
		count, ttl, err := store.Increment(ctx, "member:alice", time.Minute)
		require.NoError(t, err)
		assert.Equal(t, want, count)
		assert.Greater(t, ttl, 50*time.Second)
	}

	e := newRateLimitedEcho(store, 3)
	assert.Equal(t, http.StatusTooManyRequests, doRateLimited(e, "alice").Code)
}
