package middleware

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"slices"

	"github.com/labstack/echo/v4"
)

// Workspace context keys.
const (
	// ContextKeyWorkspaces holds the workspaces the member's token grants.
	ContextKeyWorkspaces contextKey = "workspaces"

	// ContextKeyWorkspaceID holds the workspace a request was admitted to.
	ContextKeyWorkspaceID contextKey = "workspace_id"
)

// AnyWorkspace in a workspaces claim grants every workspace.
const AnyWorkspace = "*"

// Workspace errors.
var (
	ErrNotWorkspaceMember = errors.New("member is not in this workspace")
)

// WorkspaceConfig holds configuration for the workspace middleware.
type WorkspaceConfig struct {
	Logger *slog.Logger

	// Field is the JSON body field carrying the workspace id.
	// Default is "workspace_id".
	Field string
}

// DefaultWorkspaceConfig returns a WorkspaceConfig with sensible defaults.
func DefaultWorkspaceConfig() WorkspaceConfig {
	return WorkspaceConfig{
		Logger: slog.Default(),
		Field:  "workspace_id",
	}
}

// CanAccessWorkspace reports whether granted covers workspaceID.
func CanAccessWorkspace(granted []string, workspaceID string) bool {
	if workspaceID == "" {
		return false
	}
	return slices.Contains(granted, AnyWorkspace) || slices.Contains(granted, workspaceID)
}

// WorkspaceAccess returns a middleware that admits a request only when the
// workspace named in its JSON body is granted to the authenticated member.
// Bodies without the field pass through so the handler can report them.
func WorkspaceAccess(config WorkspaceConfig) echo.MiddlewareFunc {
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	if config.Field == "" {
		config.Field = "workspace_id"
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			memberID := GetMemberID(c)
			if memberID == "" {
				return respondAuthError(c, ErrInvalidToken)
			}

			workspaceID, err := peekBodyField(c, config.Field)
			if err != nil || workspaceID == "" {
				return next(c)
			}

			if !CanAccessWorkspace(GetWorkspaces(c), workspaceID) {
				config.Logger.Debug("member not in workspace",
					slog.String("member_id", memberID),
					slog.String("workspace_id", workspaceID),
				)
				return respondWorkspaceError(c, ErrNotWorkspaceMember)
			}

			c.Set(string(ContextKeyWorkspaceID), workspaceID)
			return next(c)
		}
	}
}

// peekBodyField reads a string field from the JSON body and restores the body
// for the handler.
func peekBodyField(c echo.Context, field string) (string, error) {
	req := c.Request()
	if req.Body == nil {
		return "", nil
	}

	raw, err := io.ReadAll(req.Body)
	_ = req.Body.Close()
	req.Body = io.NopCloser(bytes.NewReader(raw))
	if err != nil {
		return "", err
	}

	var fields map[string]json.RawMessage
	if err = json.Unmarshal(raw, &fields); err != nil {
		return "", err
	}
	value, ok := fields[field]
	if !ok {
		return "", nil
	}
	var s string
	if err = json.Unmarshal(value, &s); err != nil {
		return "", err
	}
	return s, nil
}

func respondWorkspaceError(c echo.Context, err error) error {
	code := "WORKSPACE_ERROR"
	message := "Workspace error"

	if errors.Is(err, ErrNotWorkspaceMember) {
		code = "NOT_WORKSPACE_MEMBER"
		message = "You are not a member of this workspace"
	}

	return c.JSON(http.StatusForbidden, map[string]any{
		"success": false,
		"error": map[string]string{
			"code":    code,
			"message": message,
		},
	})
}

// SetWorkspaces records the workspaces granted to the authenticated member.
func SetWorkspaces(c echo.Context, workspaces []string) {
	c.Set(string(ContextKeyWorkspaces), workspaces)
}

// GetWorkspaces returns the workspaces granted to the authenticated member.
func GetWorkspaces(c echo.Context) []string {
	ws, _ := c.Get(string(ContextKeyWorkspaces)).([]string)
	return ws
}

// GetWorkspaceID returns the workspace WorkspaceAccess admitted, or "".
func GetWorkspaceID(c echo.Context) string {
	id, _ := c.Get(string(ContextKeyWorkspaceID)).(string)
	return id
}
