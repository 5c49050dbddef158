// Package main provides the ladder API server entry point.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/lllypuk/ladder/internal/config"
	"github.com/lllypuk/ladder/internal/infrastructure/httpserver"
)

// Shutdown constants.
const (
	gracefulShutdownSleep = 100 * time.Millisecond
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		//nolint:sloglint // No context available before logger setup
		slog.Error("failed to load configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger := setupLogger(cfg)
	logger.Info("starting ladder API server",
		slog.String("name", cfg.App.Name),
		slog.String("mode", string(cfg.App.Mode)),
		slog.String("environment", getEnvironment(cfg)),
	)

	container, err := NewContainer(cfg, WithLogger(logger))
	if err != nil {
		logger.Error("failed to build container", slog.String("error", err.Error()))
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	container.Start(ctx)

	server := httpserver.NewServer(httpserver.ServerConfig{
		Host:            cfg.Server.Host,
		Port:            cfg.Server.Port,
		ReadTimeout:     cfg.Server.ReadTimeout,
		WriteTimeout:    cfg.Server.WriteTimeout,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
		BodyLimit:       cfg.Server.BodyLimit,
	}, logger)
	SetupRoutes(server.Echo(), container)

	go gracefulShutdown(ctx, cancel, server, container, logger)

	if serveErr := server.Start(); serveErr != nil {
		logger.Error("server error", slog.String("error", serveErr.Error()))
		cancel()
		_ = container.Close()
		os.Exit(1) //nolint:gocritic // Intentional exit after cleanup
	}
}

// setupLogger creates the structured logger described by cfg and installs it
// as the default.
func setupLogger(cfg *config.Config) *slog.Logger {
	var handler slog.Handler

	opts := &slog.HandlerOptions{
		Level:     parseLogLevel(cfg.Log.Level),
		AddSource: cfg.IsDevelopment(),
	}

	switch strings.ToLower(cfg.Log.Format) {
	case "text":
		handler = slog.NewTextHandler(os.Stdout, opts)
	default:
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)

	return logger
}

func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func getEnvironment(cfg *config.Config) string {
	if cfg.IsDevelopment() {
		return "development"
	}
	if cfg.IsProduction() {
		return "production"
	}
	return "unknown"
}

// gracefulShutdown stops the server on a signal or when ctx ends, then stops
// the background loops and releases the container.
func gracefulShutdown(
	ctx context.Context,
	cancel context.CancelFunc,
	server *httpserver.Server,
	container *Container,
	logger *slog.Logger,
) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM, syscall.SIGQUIT)

	shutdownLogCtx := context.Background()

	select {
	case sig := <-quit:
		logger.InfoContext(shutdownLogCtx, "received shutdown signal", slog.String("signal", sig.String()))
	case <-ctx.Done():
		logger.InfoContext(shutdownLogCtx, "context cancelled, initiating shutdown")
	}

	if err := server.Shutdown(shutdownLogCtx); err != nil {
		logger.ErrorContext(shutdownLogCtx, "server shutdown error", slog.String("error", err.Error()))
	}

	cancel()
	time.Sleep(gracefulShutdownSleep)

	if err := container.Close(); err != nil {
		logger.ErrorContext(shutdownLogCtx, "container close error", slog.String("error", err.Error()))
	}

	logger.InfoContext(shutdownLogCtx, "server shutdown complete")
}
