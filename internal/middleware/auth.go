package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/lllypuk/ladder/internal/application/appcore"
	"github.com/lllypuk/ladder/internal/domain/request"
)

type contextKey string

const (
	// ContextKeyMember is the echo context key of the authenticated request.Member.
	ContextKeyMember contextKey = "member"
)

// Auth errors.
var (
	ErrMissingAuthHeader = errors.New("missing authorization header")
	ErrInvalidAuthHeader = errors.New("invalid authorization header format")
	ErrInvalidToken      = errors.New("invalid token")
	ErrTokenExpired      = errors.New("token expired")
)

// TokenClaims are the requester attributes extracted from a token.
type TokenClaims struct {
	MemberID    string
	Username    string
	Roles       []string
	Permissions []string
	// Workspaces the member may act in. AnyWorkspace grants all of them.
	Workspaces []string
	ExpiresAt  time.Time
}

// Member converts the claims into the requester of a command.
func (c *TokenClaims) Member() request.Member {
	return request.Member{
		ID:          c.MemberID,
		Username:    c.Username,
		Roles:       c.Roles,
		Permissions: c.Permissions,
	}
}

// TokenValidator validates a bearer token.
type TokenValidator interface {
	ValidateToken(ctx context.Context, token string) (*TokenClaims, error)
}

// AuthConfig holds configuration for the auth middleware.
type AuthConfig struct {
	Logger         *slog.Logger
	TokenValidator TokenValidator

	// SkipPaths are served without authentication.
	SkipPaths []string

	// QueryParam, when set, is checked for a token if the header is absent.
	// Browsers cannot set headers on a WebSocket upgrade.
	QueryParam string
}

// DefaultAuthConfig returns an AuthConfig that leaves the health endpoints open.
func DefaultAuthConfig() AuthConfig {
	return AuthConfig{
		Logger:     slog.Default(),
		SkipPaths:  []string{"/health", "/ready"},
		QueryParam: "token",
	}
}

// Auth authenticates the requester and stores it in both the echo context and
// the request context.
func Auth(config AuthConfig) echo.MiddlewareFunc {
	if config.Logger == nil {
		config.Logger = slog.Default()
	}

	skipPaths := make(map[string]struct{}, len(config.SkipPaths))
	for _, path := range config.SkipPaths {
		skipPaths[path] = struct{}{}
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			path := c.Request().URL.Path
			if _, ok := skipPaths[path]; ok {
				return next(c)
			}

			token, err := extractToken(c, config.QueryParam)
			if err != nil {
				return respondAuthError(c, err)
			}

			if config.TokenValidator == nil {
				config.Logger.Error("token validator not configured")
				return respondAuthError(c, ErrInvalidToken)
			}

			claims, err := config.TokenValidator.ValidateToken(c.Request().Context(), token)
			if err != nil {
				config.Logger.Warn("token validation failed",
					slog.String("error", err.Error()),
					slog.String("path", path),
					slog.String("remote_ip", c.RealIP()),
				)
				return respondAuthError(c, err)
			}

			SetMember(c, claims.Member())
			SetWorkspaces(c, claims.Workspaces)

			config.Logger.Debug("member authenticated",
				slog.String("member_id", claims.MemberID),
				slog.String("path", path),
			)

			return next(c)
		}
	}
}

func extractToken(c echo.Context, queryParam string) (string, error) {
	if header := c.Request().Header.Get(echo.HeaderAuthorization); header != "" {
		return extractBearerToken(header)
	}
	if queryParam != "" {
		if token := c.QueryParam(queryParam); token != "" {
			return token, nil
		}
	}
	return "", ErrMissingAuthHeader
}

func extractBearerToken(authHeader string) (string, error) {
	token, ok := strings.CutPrefix(authHeader, "Bearer ")
	if !ok || token == "" {
		return "", ErrInvalidAuthHeader
	}
	return token, nil
}

func respondAuthError(c echo.Context, err error) error {
	code := "UNAUTHORIZED"
	message := "Authentication required"

	switch {
	case errors.Is(err, ErrMissingAuthHeader):
		message = "Missing authorization header"
	case errors.Is(err, ErrInvalidAuthHeader):
		message = "Invalid authorization header format"
	case errors.Is(err, ErrTokenExpired):
		code = "TOKEN_EXPIRED"
		message = "Token has expired"
	case errors.Is(err, ErrInvalidToken):
		message = "Invalid token"
	}

	return c.JSON(http.StatusUnauthorized, map[string]any{
		"success": false,
		"error": map[string]string{
			"code":    code,
			"message": message,
		},
	})
}

// SetMember records the authenticated member on c and its request context.
func SetMember(c echo.Context, member request.Member) {
	c.Set(string(ContextKeyMember), member)
	req := c.Request()
	c.SetRequest(req.WithContext(appcore.WithActorID(req.Context(), member.ID)))
}

// GetMember returns the authenticated member, if any.
func GetMember(c echo.Context) (request.Member, bool) {
	m, ok := c.Get(string(ContextKeyMember)).(request.Member)
	return m, ok
}

// GetMemberID returns the authenticated member's id, or "".
func GetMemberID(c echo.Context) string {
	m, _ := GetMember(c)
	return m.ID
}

// StaticTokenValidator accepts "dev-token-<member>" tokens and grants every
// member the configured permissions and workspaces. It backs the mock mode.
type StaticTokenValidator struct {
	permissions []string
	workspaces  []string
	ttl         time.Duration
}

// NewStaticTokenValidator creates a validator for development tokens.
func NewStaticTokenValidator(permissions ...string) *StaticTokenValidator {
	const devTokenTTL = 24 * time.Hour
	return &StaticTokenValidator{permissions: permissions, ttl: devTokenTTL}
}

// WithWorkspaces grants every member the given workspaces.
func (v *StaticTokenValidator) WithWorkspaces(workspaces ...string) *StaticTokenValidator {
	v.workspaces = workspaces
	return v
}

// ValidateToken implements TokenValidator.
func (v *StaticTokenValidator) ValidateToken(_ context.Context, token string) (*TokenClaims, error) {
	member, ok := strings.CutPrefix(token, "dev-token-")
	if !ok || member == "" {
		return nil, ErrInvalidToken
	}
	return &TokenClaims{
		MemberID:    member,
		Username:    "dev-" + member,
		Permissions: v.permissions,
		Workspaces:  v.workspaces,
		ExpiresAt:   time.Now().Add(v.ttl),
	}, nil
}
