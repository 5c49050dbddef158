package httphandler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/lllypuk/ladder/internal/application/appcore"
	"github.com/lllypuk/ladder/internal/application/describe"
	"github.com/lllypuk/ladder/internal/application/pagination"
	"github.com/lllypuk/ladder/internal/infrastructure/httpserver"
	"github.com/lllypuk/ladder/internal/infrastructure/metrics"
	"github.com/lllypuk/ladder/internal/middleware"
)

// InteractionResponse is what the member who pressed a page control sees.
type InteractionResponse struct {
	ResponseID   string                `json:"response_id"`
	Page         int                   `json:"page"`
	Edited       bool                  `json:"edited"`
	Rejection    string                `json:"rejection,omitempty"`
	Presentation describe.Presentation `json:"presentation"`
}

// Navigator moves cached responses between pages.
type Navigator interface {
	Navigate(ctx context.Context, nav pagination.Navigation) (pagination.NavigationResult, error)
}

// InteractionHandler handles page control presses.
type InteractionHandler struct {
	navigator Navigator
	metrics   *metrics.LadderMetrics
	logger    *slog.Logger
}

// InteractionHandlerOption configures an InteractionHandler.
type InteractionHandlerOption func(*InteractionHandler)

// WithInteractionMetrics records every navigation in m.
func WithInteractionMetrics(m *metrics.LadderMetrics) InteractionHandlerOption {
	return func(h *InteractionHandler) {
		h.metrics = m
	}
}

// WithInteractionLogger sets the logger.
func WithInteractionLogger(logger *slog.Logger) InteractionHandlerOption {
	return func(h *InteractionHandler) {
		h.logger = logger
	}
}

// NewInteractionHandler creates a new InteractionHandler.
func NewInteractionHandler(navigator Navigator, opts ...InteractionHandlerOption) *InteractionHandler {
	h := &InteractionHandler{navigator: navigator, logger: slog.Default()}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// RegisterRoutes registers interaction routes with the router.
func (h *InteractionHandler) RegisterRoutes(r *httpserver.Router) {
	r.Auth().POST("/interactions/:response_id/:direction", h.Navigate)
}

// Navigate handles POST /api/v1/interactions/:response_id/:direction.
// Expired interactions, foreign members and solver defects answer 200 with
// a notice for the caller; only a failed edit of the response is an error.
func (h *InteractionHandler) Navigate(c echo.Context) error {
	memberID := middleware.GetMemberID(c)
	if memberID == "" {
		return httpserver.RespondErrorWithCode(c, http.StatusUnauthorized, "UNAUTHORIZED", "Member not authenticated")
	}

	dir, err := pagination.ParseDirection(c.Param("direction"))
	if err != nil {
		return httpserver.RespondErrorWithCode(c, http.StatusBadRequest, "INVALID_DIRECTION",
			"Direction must be one of first, previous, next, last")
	}

	responseID := c.Param("response_id")
	ctx := c.Request().Context()

	res, err := h.navigator.Navigate(ctx, pagination.Navigation{
		ResponseID: responseID,
		ActorID:    memberID,
		Direction:  dir,
	})
	if err != nil {
		h.metrics.ObserveNavigation(metrics.NavigationFailed)
		h.logger.LogAttrs(ctx, slog.LevelError, "navigation failed",
			append(appcore.LogAttrs(ctx), slog.String("response_id", responseID), slog.String("error", err.Error()))...)
		if errors.Is(err, pagination.ErrEditFailed) {
			return httpserver.RespondErrorWithCode(c, http.StatusBadGateway, "REPLY_FAILED", "The response could not be updated")
		}
	} else {
		h.metrics.ObserveNavigation(navigationLabel(res))
	}

	return httpserver.RespondOK(c, InteractionResponse{
		ResponseID:   responseID,
		Page:         res.Page,
		Edited:       res.Edited,
		Rejection:    string(res.Rejection),
		Presentation: res.Presentation,
	})
}

func navigationLabel(res pagination.NavigationResult) string {
	switch res.Rejection {
	case pagination.RejectedExpired:
		return metrics.NavigationExpired
	case pagination.RejectedNotOwner:
		return metrics.NavigationNotOwner
	}
	if res.Edited {
		return metrics.NavigationEdited
	}
	return metrics.NavigationFailed
}
