package middleware

import (
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/lllypuk/ladder/internal/application/appcore"
)

const (
	statusClientError = 400
	statusServerError = 500
)

const (
	// RequestIDHeader carries the request id in and out.
	RequestIDHeader = echo.HeaderXRequestID

	// RequestIDKey is the echo context key of the request id.
	RequestIDKey = "request_id"
)

// LoggingConfig holds configuration for the logging middleware.
type LoggingConfig struct {
	Logger    *slog.Logger
	SkipPaths []string
}

// DefaultLoggingConfig returns a LoggingConfig that skips the health endpoints.
func DefaultLoggingConfig() LoggingConfig {
	return LoggingConfig{
		Logger:    slog.Default(),
		SkipPaths: []string{"/health", "/ready"},
	}
}

// Logging assigns every request an id, stores it as the correlation id of the
// request context and logs the request once it completes.
func Logging(config LoggingConfig) echo.MiddlewareFunc {
	if config.Logger == nil {
		config.Logger = slog.Default()
	}

	skipPaths := make(map[string]struct{}, len(config.SkipPaths))
	for _, path := range config.SkipPaths {
		skipPaths[path] = struct{}{}
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			res := c.Response()
			path := req.URL.Path

			if _, ok := skipPaths[path]; ok {
				return next(c)
			}

			requestID := req.Header.Get(RequestIDHeader)
			if requestID == "" {
				requestID = uuid.New().String()
			}
			res.Header().Set(RequestIDHeader, requestID)
			c.Set(RequestIDKey, requestID)
			c.SetRequest(req.WithContext(appcore.WithCorrelationID(req.Context(), requestID)))

			start := time.Now()
			err := next(c)
			latency := time.Since(start)

			status := res.Status
			if err != nil {
				var he *echo.HTTPError
				if errors.As(err, &he) {
					status = he.Code
				}
			}

			attrs := []slog.Attr{
				slog.String("request_id", requestID),
				slog.String("method", req.Method),
				slog.String("path", path),
				slog.Int("status", status),
				slog.Duration("latency", latency),
				slog.String("remote_ip", c.RealIP()),
				slog.Int64("response_size", res.Size),
			}
			if actor := GetMemberID(c); actor != "" {
				attrs = append(attrs, slog.String("actor_id", actor))
			}

			level := slog.LevelInfo
			switch {
			case status >= statusServerError:
				level = slog.LevelError
			case status >= statusClientError:
				level = slog.LevelWarn
			}
			if err != nil && level != slog.LevelInfo {
				attrs = append(attrs, slog.String("error", err.Error()))
			}

			config.Logger.LogAttrs(c.Request().Context(), level, "HTTP request", attrs...)

			return err
		}
	}
}

// GetRequestID returns the id assigned by Logging.
func GetRequestID(c echo.Context) string {
	if id, ok := c.Get(RequestIDKey).(string); ok {
		return id
	}
	return ""
}
