package middleware_test

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lllypuk/ladder/internal/application/appcore"
	"github.com/lllypuk/ladder/internal/domain/request"
	"github.com/lllypuk/ladder/internal/middleware"
)

func TestDefaultLoggingConfig(t *testing.T) {
	config := middleware.DefaultLoggingConfig()

	assert.NotNil(t, config.Logger)
	assert.Equal(t, []string{"/health", "/ready"}, config.SkipPaths)
}

func TestLogging(t *testing.T) {
	tests := []struct {
		name          string
		path          string
		status        int
		expectLog     bool
		expectedLevel string
	}{
		{name: "success logs at INFO", path: "/api/v1/commands/x", status: http.StatusOK, expectLog: true, expectedLevel: "INFO"},
		{name: "client error logs at WARN", path: "/api/v1/commands/x", status: http.StatusNotFound, expectLog: true, expectedLevel: "WARN"},
		{name: "server error logs at ERROR", path: "/api/v1/commands/x", status: http.StatusBadGateway, expectLog: true, expectedLevel: "ERROR"},
		{name: "health check is skipped", path: "/health", status: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var logBuffer bytes.Buffer
			e := echo.New()
			e.Use(middleware.Logging(middleware.LoggingConfig{
				Logger:    slog.New(slog.NewJSONHandler(&logBuffer, nil)),
				SkipPaths: []string{"/health"},
			}))
			e.GET(tt.path, func(c echo.Context) error {
				return c.NoContent(tt.status)
			})

			rec := httptest.NewRecorder()
			e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.path, nil))

			assert.Equal(t, tt.status, rec.Code)
			if !tt.expectLog {
				assert.Empty(t, logBuffer.String())
				return
			}

			var entry map[string]any
			require.NoError(t, json.Unmarshal(logBuffer.Bytes(), &entry))
			assert.Equal(t, tt.expectedLevel, entry["level"])
			assert.Equal(t, tt.path, entry["path"])
			assert.InDelta(t, float64(tt.status), entry["status"], 0)
			assert.Contains(t, entry, "latency")
		})
	}
}

// TestLogging_RequestID tests request id propagation into headers and the correlation id.
func TestLogging_RequestID(t *testing.T) {
	tests := []struct {
		name     string
		provided string
	}{
		{name: "generates request ID when not provided"},
		{name: "uses provided request ID", provided: "custom-request-id-123"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var logBuffer bytes.Buffer
			var correlationID string
			e := echo.New()
			e.Use(middleware.Logging(middleware.LoggingConfig{
				Logger: slog.New(slog.NewJSONHandler(&logBuffer, nil)),
			}))
			e.GET("/test", func(c echo.Context) error {
				correlationID = appcore.CorrelationID(c.Request().Context())
				return c.String(http.StatusOK, middleware.GetRequestID(c))
			})

			req := httptest.NewRequest(http.MethodGet, "/test", nil)
			if tt.provided != "" {
				req.Header.Set(middleware.RequestIDHeader, tt.provided)
			}
			rec := httptest.NewRecorder()
			e.ServeHTTP(rec, req)

			requestID := rec.Header().Get(middleware.RequestIDHeader)
			require.NotEmpty(t, requestID)
			if tt.provided != "" {
				assert.Equal(t, tt.provided, requestID)
			}
			assert.Equal(t, requestID, rec.Body.String())
			assert.Equal(t, requestID, correlationID)
			assert.Contains(t, logBuffer.String(), requestID)
		})
	}
}

func TestLogging_ActorID(t *testing.T) {
	var logBuffer bytes.Buffer
	e := echo.New()
	e.Use(middleware.Logging(middleware.LoggingConfig{
		Logger: slog.New(slog.NewJSONHandler(&logBuffer, nil)),
	}))
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			middleware.SetMember(c, request.Member{ID: "alice"})
			return next(c)
		}
	})
	e.GET("/test", func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})

	e.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/test", nil))

	assert.True(t, strings.Contains(logBuffer.String(), `"actor_id":"alice"`))
}
