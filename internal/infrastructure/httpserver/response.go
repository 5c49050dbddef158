package httpserver

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/lllypuk/ladder/internal/domain/errs"
)

// Response is the envelope of every JSON answer.
type Response struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   *Error `json:"error,omitempty"`
}

// Error is the error part of the envelope.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// HTTPError lets an error choose its own HTTP representation. It takes
// precedence over the sentinel table.
type HTTPError interface {
	error
	HTTPStatus() int
	HTTPCode() string
	HTTPMessage() string
}

type errorMapping struct {
	target error
	status int
	body   Error
}

// Checked in order; the first sentinel matched with errors.Is wins.
var errorMappings = []errorMapping{
	{errs.ErrNotFound, http.StatusNotFound, Error{"NOT_FOUND", "The requested resource was not found"}},
	{errs.ErrAlreadyExists, http.StatusConflict, Error{"ALREADY_EXISTS", "The resource already exists"}},
	{errs.ErrInvalidInput, http.StatusBadRequest, Error{"INVALID_INPUT", "Invalid input data"}},
	{errs.ErrUnauthorized, http.StatusUnauthorized, Error{"UNAUTHORIZED", "Authentication required"}},
	{errs.ErrForbidden, http.StatusForbidden, Error{"FORBIDDEN", "Access denied"}},
	{errs.ErrExpired, http.StatusGone, Error{"EXPIRED", "The resource has expired"}},
	{errs.ErrInvalidState, http.StatusUnprocessableEntity, Error{"INVALID_STATE", "Operation not allowed in current state"}},
}

var internalError = Error{Code: "INTERNAL_ERROR", Message: "An internal error occurred"}

// RespondOK sends data in a successful envelope with status 200.
func RespondOK(c echo.Context, data any) error {
	return c.JSON(http.StatusOK, Response{Success: true, Data: data})
}

// RespondError maps err to a status and an error envelope.
func RespondError(c echo.Context, err error) error {
	status, body := mapError(err)
	return c.JSON(status, Response{Error: &body})
}

// RespondErrorWithCode sends an error envelope with an explicit status and code.
func RespondErrorWithCode(c echo.Context, status int, code, message string) error {
	return c.JSON(status, Response{Error: &Error{Code: code, Message: message}})
}

func mapError(err error) (int, Error) {
	var httpErr HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.HTTPStatus(), Error{Code: httpErr.HTTPCode(), Message: httpErr.HTTPMessage()}
	}
	for _, m := range errorMappings {
		if errors.Is(err, m.target) {
			return m.status, m.body
		}
	}
	return http.StatusInternalServerError, internalError
}
