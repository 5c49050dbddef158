package httphandler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/lllypuk/ladder/internal/infrastructure/httpserver"
	"github.com/lllypuk/ladder/internal/infrastructure/replyboard"
	"github.com/lllypuk/ladder/internal/middleware"
)

// ReplyReader loads delivered replies.
type ReplyReader interface {
	Get(ctx context.Context, id string) (replyboard.Reply, error)
}

// ReplyHandler serves delivered replies.
type ReplyHandler struct {
	replies ReplyReader
}

// NewReplyHandler creates a new ReplyHandler.
func NewReplyHandler(replies ReplyReader) *ReplyHandler {
	return &ReplyHandler{replies: replies}
}

// RegisterRoutes registers reply routes with the router.
func (h *ReplyHandler) RegisterRoutes(r *httpserver.Router) {
	r.Auth().GET("/replies/:response_id", h.Get)
}

// Get handles GET /api/v1/replies/:response_id.
// Ephemeral replies are visible to their requester only.
func (h *ReplyHandler) Get(c echo.Context) error {
	memberID := middleware.GetMemberID(c)
	if memberID == "" {
		return httpserver.RespondErrorWithCode(c, http.StatusUnauthorized, "UNAUTHORIZED", "Member not authenticated")
	}

	reply, err := h.replies.Get(c.Request().Context(), c.Param("response_id"))
	if err != nil {
		return httpserver.RespondError(c, err)
	}
	if reply.Presentation.Ephemeral && reply.RequesterID != memberID {
		return httpserver.RespondError(c, replyboard.ErrReplyNotFound)
	}

	return httpserver.RespondOK(c, reply)
}
