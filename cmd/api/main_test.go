package main

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/lllypuk/ladder/internal/config"
)

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		level    string
		expected slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"error", slog.LevelError},
		{"WARN", slog.LevelWarn},
		{"unknown", slog.LevelInfo},
		{"", slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			assert.Equal(t, tt.expected, parseLogLevel(tt.level))
		})
	}
}

func TestGetEnvironment(t *testing.T) {
	tests := []struct {
		name      string
		logLevel  string
		jwtSecret string
		expected  string
	}{
		{name: "development when debug", logLevel: "debug", jwtSecret: "any", expected: "development"},
		{name: "production with a real secret", logLevel: "info", jwtSecret: "s3cr3t", expected: "production"},
		{name: "unknown with the dev secret", logLevel: "info", jwtSecret: "dev-secret-change-in-production", expected: "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.DefaultConfig()
			cfg.Log.Level = tt.logLevel
			cfg.Auth.JWTSecret = tt.jwtSecret
			assert.Equal(t, tt.expected, getEnvironment(cfg))
		})
	}
}

func TestSetupLogger(t *testing.T) {
	previous := slog.Default()
	t.Cleanup(func() { slog.SetDefault(previous) })

	for _, format := range []string{"json", "text", ""} {
		t.Run("format "+format, func(t *testing.T) {
			cfg := config.DefaultConfig()
			cfg.Log.Level = "warn"
			cfg.Log.Format = format

			logger := setupLogger(cfg)

			assert.NotNil(t, logger)
			assert.Same(t, logger, slog.Default())
			assert.False(t, logger.Enabled(t.Context(), slog.LevelInfo))
			assert.True(t, logger.Enabled(t.Context(), slog.LevelWarn))
		})
	}
}
