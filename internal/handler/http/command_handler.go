// Package httphandler serves the ladder command API.
package httphandler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/lllypuk/ladder/internal/application/appcore"
	"github.com/lllypuk/ladder/internal/application/command"
	"github.com/lllypuk/ladder/internal/application/describe"
	"github.com/lllypuk/ladder/internal/domain/outcome"
	"github.com/lllypuk/ladder/internal/domain/request"
	"github.com/lllypuk/ladder/internal/infrastructure/httpserver"
	"github.com/lllypuk/ladder/internal/infrastructure/metrics"
	"github.com/lllypuk/ladder/internal/middleware"
)

const maxOptions = 25

// ExecuteCommandRequest is the body of POST /commands/:name.
type ExecuteCommandRequest struct {
	WorkspaceID     string           `json:"workspace_id"`
	Options         []request.Option `json:"options"`
	TargetMessageID string           `json:"target_message_id"`
}

// CommandResponse is the result of one command run.
type CommandResponse struct {
	ResponseID   string                `json:"response_id"`
	Command      string                `json:"command"`
	Status       outcome.Status        `json:"status"`
	Presentation describe.Presentation `json:"presentation"`
	Cached       bool                  `json:"cached"`
}

// CommandListResponse lists the registered commands.
type CommandListResponse struct {
	Commands []string `json:"commands"`
}

// CommandRunner runs commands by name.
type CommandRunner interface {
	Execute(ctx context.Context, req request.View) (command.Result, error)
	Names() []string
}

// CommandHandler turns HTTP requests into command pipeline runs.
type CommandHandler struct {
	runner  CommandRunner
	metrics *metrics.LadderMetrics
	logger  *slog.Logger
}

// CommandHandlerOption configures a CommandHandler.
type CommandHandlerOption func(*CommandHandler)

// WithCommandMetrics records every run in m.
func WithCommandMetrics(m *metrics.LadderMetrics) CommandHandlerOption {
	return func(h *CommandHandler) {
		h.metrics = m
	}
}

// WithCommandLogger sets the logger.
func WithCommandLogger(logger *slog.Logger) CommandHandlerOption {
	return func(h *CommandHandler) {
		h.logger = logger
	}
}

// NewCommandHandler creates a new CommandHandler.
func NewCommandHandler(runner CommandRunner, opts ...CommandHandlerOption) *CommandHandler {
	h := &CommandHandler{runner: runner, logger: slog.Default()}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// RegisterRoutes registers command routes with the router.
func (h *CommandHandler) RegisterRoutes(r *httpserver.Router) {
	workspace := middleware.WorkspaceAccess(middleware.WorkspaceConfig{Logger: h.logger})

	r.Auth().GET("/commands", h.List)
	r.Auth().POST("/commands/:name", h.Execute, workspace)
}

// List handles GET /api/v1/commands.
func (h *CommandHandler) List(c echo.Context) error {
	return httpserver.RespondOK(c, CommandListResponse{Commands: h.runner.Names()})
}

// Execute handles POST /api/v1/commands/:name.
// The requester always gets a presentation back unless the reply itself
// could not be delivered.
func (h *CommandHandler) Execute(c echo.Context) error {
	member, ok := middleware.GetMember(c)
	if !ok || member.ID == "" {
		return httpserver.RespondErrorWithCode(c, http.StatusUnauthorized, "UNAUTHORIZED", "Member not authenticated")
	}

	var req ExecuteCommandRequest
	if err := c.Bind(&req); err != nil {
		return httpserver.RespondErrorWithCode(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid request body")
	}
	if err := validateCommandRequest(req); err != nil {
		return httpserver.RespondErrorWithCode(c, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
	}

	name := c.Param("name")
	view := request.View{
		Command:         name,
		Sender:          member,
		WorkspaceID:     req.WorkspaceID,
		Options:         req.Options,
		TargetMessageID: req.TargetMessageID,
	}

	ctx := c.Request().Context()
	start := time.Now()
	res, err := h.runner.Execute(ctx, view)
	elapsed := time.Since(start)

	if errors.Is(err, command.ErrUnknownCommand) {
		return httpserver.RespondErrorWithCode(c, http.StatusNotFound, "UNKNOWN_COMMAND",
			fmt.Sprintf("Command %q is not registered", name))
	}

	failure := ""
	switch {
	case errors.Is(err, command.ErrReplyFailed):
		failure = metrics.FailureReplyFailed
	case errors.Is(err, command.ErrDefect):
		failure = metrics.FailureDefect
	case err != nil:
		h.logger.LogAttrs(ctx, slog.LevelError, "command execution failed",
			append(appcore.LogAttrs(ctx), slog.String("command", name), slog.String("error", err.Error()))...)
		return httpserver.RespondError(c, err)
	}

	status := outcome.StatusFailUnknown
	if res.Outcome != nil {
		status = res.Outcome.Status()
	}
	h.metrics.ObserveCommand(name, string(status), failure, elapsed)

	if failure == metrics.FailureReplyFailed {
		return httpserver.RespondErrorWithCode(c, http.StatusBadGateway, "REPLY_FAILED", "The reply could not be delivered")
	}

	return httpserver.RespondOK(c, CommandResponse{
		ResponseID:   res.ResponseID,
		Command:      res.Command,
		Status:       status,
		Presentation: res.Presentation,
		Cached:       res.Cached,
	})
}

func validateCommandRequest(req ExecuteCommandRequest) error {
	if req.WorkspaceID == "" {
		return errors.New("workspace_id is required")
	}
	if len(req.Options) > maxOptions {
		return fmt.Errorf("at most %d options are allowed", maxOptions)
	}
	seen := make(map[string]struct{}, len(req.Options))
	for _, opt := range req.Options {
		if opt.Name == "" {
			return errors.New("option name is required")
		}
		if !opt.Kind.Valid() {
			return fmt.Errorf("option %q has unknown kind %q", opt.Name, opt.Kind)
		}
		if _, dup := seen[opt.Name]; dup {
			return fmt.Errorf("option %q is given more than once", opt.Name)
		}
		seen[opt.Name] = struct{}{}
	}
	return nil
}
