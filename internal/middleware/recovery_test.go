package middleware_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lllypuk/ladder/internal/middleware"
)

func TestDefaultRecoveryConfig(t *testing.T) {
	config := middleware.DefaultRecoveryConfig()

	assert.NotNil(t, config.Logger)
	assert.Equal(t, middleware.DefaultStackSize, config.StackSize)
	assert.False(t, config.DisablePrintStack)
}

func TestRecovery(t *testing.T) {
	tests := []struct {
		name  string
		value any
		want  string
	}{
		{name: "string panic", value: "something went wrong", want: "something went wrong"},
		{name: "error panic", value: errors.New("boom"), want: "boom"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var logBuffer bytes.Buffer
			e := echo.New()
			e.Use(middleware.Recovery(slog.New(slog.NewJSONHandler(&logBuffer, nil))))
			e.GET("/panic", func(_ echo.Context) error {
				panic(tt.value)
			})

			rec := httptest.NewRecorder()
			e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/panic", nil))

			assert.Equal(t, http.StatusInternalServerError, rec.Code)
			var response map[string]any
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
			assert.Equal(t, false, response["success"])
			errorObj, ok := response["error"].(map[string]any)
			require.True(t, ok)
			assert.Equal(t, "INTERNAL_ERROR", errorObj["code"])

			assert.Contains(t, logBuffer.String(), "panic recovered")
			assert.Contains(t, logBuffer.String(), tt.want)
			assert.Contains(t, logBuffer.String(), "stack")
		})
	}
}

func TestRecovery_NoStack(t *testing.T) {
	var logBuffer bytes.Buffer
	e := echo.New()
	e.Use(middleware.RecoveryWithConfig(middleware.RecoveryConfig{
		Logger:            slog.New(slog.NewJSONHandler(&logBuffer, nil)),
		DisablePrintStack: true,
	}))
	e.GET("/panic", func(_ echo.Context) error {
		panic("quiet")
	})

	e.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/panic", nil))

	assert.Contains(t, logBuffer.String(), "quiet")
	assert.NotContains(t, logBuffer.String(), `"stack"`)
}

func TestRecovery_PassThrough(t *testing.T) {
	e := echo.New()
	e.Use(middleware.Recovery(nil))
	e.GET("/ok", func(c echo.Context) error {
		return c.String(http.StatusOK, "fine")
	})

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ok", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "fine", rec.Body.String())
}
