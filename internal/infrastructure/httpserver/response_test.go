package httpserver_test

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lllypuk/ladder/internal/domain/errs"
	"github.com/lllypuk/ladder/internal/infrastructure/httpserver"
	"github.com/lllypuk/ladder/internal/infrastructure/replyboard"
)

func newContext() (echo.Context, *httptest.ResponseRecorder) {
	rec := httptest.NewRecorder()
	return echo.New().NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec), rec
}

func decodeResponse(t *testing.T, rec *httptest.ResponseRecorder) httpserver.Response {
	t.Helper()
	var resp httpserver.Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestRespondOK(t *testing.T) {
	tests := []struct {
		name string
		data any
		body string
	}{
		{name: "map", data: map[string]int{"page": 2}, body: `{"success":true,"data":{"page":2}}`},
		{name: "nil data is omitted", data: nil, body: `{"success":true}`},
		{
			name: "struct",
			data: struct {
				ResponseID string `json:"response_id"`
			}{ResponseID: "r-1"},
			body: `{"success":true,"data":{"response_id":"r-1"}}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, rec := newContext()

			require.NoError(t, httpserver.RespondOK(c, tt.data))

			assert.Equal(t, http.StatusOK, rec.Code)
			assert.JSONEq(t, tt.body, rec.Body.String())
			assert.Contains(t, rec.Header().Get(echo.HeaderContentType), echo.MIMEApplicationJSON)
		})
	}
}

type teapotError struct{}

func (teapotError) Error() string       { return "teapot" }
func (teapotError) HTTPStatus() int     { return http.StatusTeapot }
func (teapotError) HTTPCode() string    { return "TEAPOT" }
func (teapotError) HTTPMessage() string { return "short and stout" }

// TestRespondError tests the mapping of sentinel and self-describing errors.
func TestRespondError(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"not found", errs.ErrNotFound, http.StatusNotFound, "NOT_FOUND"},
		{"unknown reply", replyboard.ErrReplyNotFound, http.StatusNotFound, "NOT_FOUND"},
		{"already exists", errs.ErrAlreadyExists, http.StatusConflict, "ALREADY_EXISTS"},
		{"invalid input", errs.ErrInvalidInput, http.StatusBadRequest, "INVALID_INPUT"},
		{"unauthorized", errs.ErrUnauthorized, http.StatusUnauthorized, "UNAUTHORIZED"},
		{"forbidden", errs.ErrForbidden, http.StatusForbidden, "FORBIDDEN"},
		{"edit window closed", replyboard.ErrEditWindowClosed, http.StatusGone, "EXPIRED"},
		{"invalid state", errs.ErrInvalidState, http.StatusUnprocessableEntity, "INVALID_STATE"},
		{"own representation", fmt.Errorf("wrapped: %w", teapotError{}), http.StatusTeapot, "TEAPOT"},
		{"joined", errors.Join(errors.New("lookup"), errs.ErrNotFound), http.StatusNotFound, "NOT_FOUND"},
		{"unknown", errors.New("boom"), http.StatusInternalServerError, "INTERNAL_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, rec := newContext()

			require.NoError(t, httpserver.RespondError(c, tt.err))

			assert.Equal(t, tt.status, rec.Code)
			resp := decodeResponse(t, rec)
			assert.False(t, resp.Success)
			assert.Nil(t, resp.Data)
			require.NotNil(t, resp.Error)
			assert.Equal(t, tt.code, resp.Error.Code)
			assert.NotEmpty(t, resp.Error.Message)
		})
	}
}

func TestRespondErrorWithCode(t *testing.T) {
	c, rec := newContext()

	err := httpserver.RespondErrorWithCode(c, http.StatusBadGateway, "REPLY_FAILED", "The reply could not be delivered")

	require.NoError(t, err)
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.JSONEq(t,
		`{"success":false,"error":{"code":"REPLY_FAILED","message":"The reply could not be delivered"}}`,
		rec.Body.String())
}
