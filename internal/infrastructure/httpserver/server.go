package httpserver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
)

// Default server configuration values.
const (
	DefaultHost            = "0.0.0.0"
	DefaultPort            = 8080
	DefaultReadTimeout     = 30 * time.Second
	DefaultWriteTimeout    = 30 * time.Second
	DefaultShutdownTimeout = 10 * time.Second
	DefaultBodyLimit       = "64K"
	DefaultMaxHeaderBytes  = 1 << 20
)

// ServerConfig holds configuration for the HTTP server.
type ServerConfig struct {
	Host            string
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration

	// BodyLimit caps command and navigation bodies, e.g. "64K". Empty disables it.
	BodyLimit string
}

// DefaultServerConfig returns a ServerConfig with the package defaults.
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Host:            DefaultHost,
		Port:            DefaultPort,
		ReadTimeout:     DefaultReadTimeout,
		WriteTimeout:    DefaultWriteTimeout,
		ShutdownTimeout: DefaultShutdownTimeout,
		BodyLimit:       DefaultBodyLimit,
	}
}

// Server owns the Echo instance of the API process.
type Server struct {
	echo   *echo.Echo
	config ServerConfig
	logger *slog.Logger
}

// NewServer creates an HTTP server. Errors that escape handlers, including the
// router's own 404 and 405, are answered with the Response envelope.
func NewServer(config ServerConfig, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Server.ReadTimeout = config.ReadTimeout
	e.Server.WriteTimeout = config.WriteTimeout
	e.Server.MaxHeaderBytes = DefaultMaxHeaderBytes
	e.HTTPErrorHandler = envelopeErrorHandler(logger)

	if config.BodyLimit != "" {
		e.Use(echomw.BodyLimit(config.BodyLimit))
	}

	return &Server{echo: e, config: config, logger: logger}
}

// Echo returns the underlying Echo instance for middleware and route registration.
func (s *Server) Echo() *echo.Echo {
	return s.echo
}

// Start serves until Shutdown is called.
func (s *Server) Start() error {
	addr := s.Address()
	s.logger.Info("starting HTTP server",
		slog.String("address", addr),
		slog.Duration("read_timeout", s.config.ReadTimeout),
		slog.Duration("write_timeout", s.config.WriteTimeout),
		slog.String("body_limit", s.config.BodyLimit),
	)

	if err := s.echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to start server: %w", err)
	}
	return nil
}

// Shutdown drains in-flight requests for at most the configured timeout.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.InfoContext(ctx, "shutting down HTTP server",
		slog.Duration("timeout", s.config.ShutdownTimeout),
	)

	shutdownCtx, cancel := context.WithTimeout(ctx, s.config.ShutdownTimeout)
	defer cancel()

	if err := s.echo.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shutdown server: %w", err)
	}

	s.logger.InfoContext(ctx, "HTTP server stopped")
	return nil
}

// Address returns the listen address.
func (s *Server) Address() string {
	return fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
}

func envelopeErrorHandler(logger *slog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		var he *echo.HTTPError
		if !errors.As(err, &he) {
			logger.ErrorContext(c.Request().Context(), "unhandled error",
				slog.String("path", c.Request().URL.Path),
				slog.String("error", err.Error()),
			)
			_ = RespondError(c, err)
			return
		}

		if c.Request().Method == http.MethodHead {
			_ = c.NoContent(he.Code)
			return
		}

		message, ok := he.Message.(string)
		if !ok || message == "" {
			message = http.StatusText(he.Code)
		}
		_ = RespondErrorWithCode(c, he.Code, statusCode(he.Code), message)
	}
}

// statusCode turns 404 into "NOT_FOUND".
func statusCode(status int) string {
	text := http.StatusText(status)
	if text == "" {
		return "HTTP_ERROR"
	}
	return strings.ToUpper(strings.NewReplacer(" ", "_", "-", "_", "'", "").Replace(text))
}
