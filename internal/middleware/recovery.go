package middleware

import (
	"fmt"
	"log/slog"
	"net/http"
	"runtime"

	"github.com/labstack/echo/v4"
)

// DefaultStackSize is the default stack trace size (4KB).
const DefaultStackSize = 4 << 10

// RecoveryConfig holds configuration for the recovery middleware.
type RecoveryConfig struct {
	Logger *slog.Logger

	// StackSize caps the captured stack trace.
	StackSize int

	// DisablePrintStack leaves the stack out of the log line.
	DisablePrintStack bool
}

// DefaultRecoveryConfig returns a RecoveryConfig with a 4KB stack.
func DefaultRecoveryConfig() RecoveryConfig {
	return RecoveryConfig{
		Logger:    slog.Default(),
		StackSize: DefaultStackSize,
	}
}

// Recovery returns a middleware that turns handler panics into a 500 response.
func Recovery(logger *slog.Logger) echo.MiddlewareFunc {
	config := DefaultRecoveryConfig()
	config.Logger = logger
	return RecoveryWithConfig(config)
}

// RecoveryWithConfig returns a recovery middleware with custom configuration.
func RecoveryWithConfig(config RecoveryConfig) echo.MiddlewareFunc {
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	if config.StackSize == 0 {
		config.StackSize = DefaultStackSize
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) (err error) {
			defer func() {
				r := recover()
				if r == nil {
					return
				}
				if r == http.ErrAbortHandler {
					panic(r)
				}

				stack := make([]byte, config.StackSize)
				stack = stack[:runtime.Stack(stack, false)]

				req := c.Request()
				attrs := []slog.Attr{
					slog.String("error", fmt.Sprint(r)),
					slog.String("method", req.Method),
					slog.String("path", req.URL.Path),
				}
				if id := GetRequestID(c); id != "" {
					attrs = append(attrs, slog.String("request_id", id))
				}
				if !config.DisablePrintStack {
					attrs = append(attrs, slog.String("stack", string(stack)))
				}
				config.Logger.LogAttrs(req.Context(), slog.LevelError, "panic recovered", attrs...)

				if !c.Response().Committed {
					err = c.JSON(http.StatusInternalServerError, map[string]any{
						"success": false,
						"error": map[string]string{
							"code":    "INTERNAL_ERROR",
							"message": "An internal error occurred",
						},
					})
				}
			}()

			return next(c)
		}
	}
}
