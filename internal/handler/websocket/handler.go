// Package websocket serves the live reply feed over WebSocket.
package websocket

import (
	"log/slog"
	"net/http"
	"slices"
	"strings"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	ws "github.com/lllypuk/ladder/internal/infrastructure/websocket"
	"github.com/lllypuk/ladder/internal/middleware"
)

const (
	defaultHandlerReadBufferSize  = 1024
	defaultHandlerWriteBufferSize = 1024
)

// Handler upgrades authenticated requests and registers the connection with the hub.
type Handler struct {
	hub            *ws.Hub
	upgrader       websocket.Upgrader
	tokenValidator middleware.TokenValidator
	logger         *slog.Logger
	clientConfig   ws.ClientConfig
}

// HandlerConfig holds configuration for the WebSocket handler.
type HandlerConfig struct {
	ReadBufferSize  int
	WriteBufferSize int

	// AllowedOrigins restricts the Origin header of upgrade requests.
	// Empty or "*" accepts every origin.
	AllowedOrigins []string

	Logger       *slog.Logger
	ClientConfig ws.ClientConfig
}

// DefaultHandlerConfig returns a default configuration.
func DefaultHandlerConfig() HandlerConfig {
	return HandlerConfig{
		ReadBufferSize:  defaultHandlerReadBufferSize,
		WriteBufferSize: defaultHandlerWriteBufferSize,
		Logger:          slog.Default(),
		ClientConfig:    ws.DefaultClientConfig(),
	}
}

// HandlerOption configures the Handler.
type HandlerOption func(*Handler)

// WithHandlerLogger sets the logger for the handler.
func WithHandlerLogger(logger *slog.Logger) HandlerOption {
	return func(h *Handler) {
		h.logger = logger
	}
}

// WithTokenValidator authenticates upgrades that did not pass the auth middleware.
func WithTokenValidator(validator middleware.TokenValidator) HandlerOption {
	return func(h *Handler) {
		h.tokenValidator = validator
	}
}

// WithHandlerConfig sets the handler configuration.
func WithHandlerConfig(config HandlerConfig) HandlerOption {
	return func(h *Handler) {
		if config.ReadBufferSize > 0 {
			h.upgrader.ReadBufferSize = config.ReadBufferSize
		}
		if config.WriteBufferSize > 0 {
			h.upgrader.WriteBufferSize = config.WriteBufferSize
		}
		h.upgrader.CheckOrigin = originChecker(config.AllowedOrigins)
		if config.Logger != nil {
			h.logger = config.Logger
		}
		h.clientConfig = config.ClientConfig
	}
}

func originChecker(allowed []string) func(r *http.Request) bool {
	if len(allowed) == 0 || slices.Contains(allowed, "*") {
		return func(*http.Request) bool { return true }
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return origin == "" || slices.Contains(allowed, origin)
	}
}

// NewHandler creates a new WebSocket handler.
func NewHandler(hub *ws.Hub, opts ...HandlerOption) *Handler {
	h := &Handler{
		hub: hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  defaultHandlerReadBufferSize,
			WriteBufferSize: defaultHandlerWriteBufferSize,
			CheckOrigin:     originChecker(nil),
		},
		logger:       slog.Default(),
		clientConfig: ws.DefaultClientConfig(),
	}

	for _, opt := range opts {
		opt(h)
	}

	return h
}

// HandleWebSocket upgrades the connection and starts the client pumps.
// The member comes from the auth middleware or, failing that, from a token in
// the query string or Authorization header.
func (h *Handler) HandleWebSocket(c echo.Context) error {
	memberID, workspaces := h.member(c)
	if memberID == "" {
		h.logger.Warn("websocket connection rejected: authentication required",
			slog.String("remote_ip", c.RealIP()),
		)
		return c.JSON(http.StatusUnauthorized, map[string]any{
			"success": false,
			"error": map[string]string{
				"code":    "UNAUTHORIZED",
				"message": "Authentication required",
			},
		})
	}

	conn, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		h.logger.Error("websocket upgrade failed",
			slog.String("member_id", memberID),
			slog.String("error", err.Error()),
		)
		return nil // Upgrade already wrote the response
	}

	client := ws.NewClient(
		h.hub,
		conn,
		memberID,
		ws.WithClientConfig(h.clientConfig),
		ws.WithClientLogger(h.logger),
		ws.WithWorkspaceAccess(func(workspaceID string) bool {
			return middleware.CanAccessWorkspace(workspaces, workspaceID)
		}),
	)
	h.hub.Register(client)

	h.logger.Info("websocket connection established",
		slog.String("member_id", memberID),
		slog.String("remote_ip", c.RealIP()),
	)

	go client.WritePump()
	go client.ReadPump()

	return nil
}

// member returns the requester and the workspaces its token grants.
func (h *Handler) member(c echo.Context) (string, []string) {
	if id := middleware.GetMemberID(c); id != "" {
		return id, middleware.GetWorkspaces(c)
	}

	token := c.QueryParam("token")
	if token == "" {
		if after, ok := strings.CutPrefix(c.Request().Header.Get(echo.HeaderAuthorization), "Bearer "); ok {
			token = after
		}
	}
	if token == "" || h.tokenValidator == nil {
		return "", nil
	}

	claims, err := h.tokenValidator.ValidateToken(c.Request().Context(), token)
	if err != nil {
		h.logger.Debug("token validation failed", slog.String("error", err.Error()))
		return "", nil
	}
	return claims.MemberID, claims.Workspaces
}

// RegisterRoutes registers the WebSocket handler with the Echo router.
func (h *Handler) RegisterRoutes(e *echo.Echo) {
	e.GET("/ws", h.HandleWebSocket)
}

// RegisterRoutesWithGroup registers the WebSocket handler with an Echo group.
func (h *Handler) RegisterRoutesWithGroup(g *echo.Group) {
	g.GET("/ws", h.HandleWebSocket)
}
