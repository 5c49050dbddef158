package middleware_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lllypuk/ladder/internal/application/appcore"
	"github.com/lllypuk/ladder/internal/domain/request"
	"github.com/lllypuk/ladder/internal/infrastructure/auth"
	"github.com/lllypuk/ladder/internal/middleware"
)

type mockTokenValidator struct {
	claims *middleware.TokenClaims
	err    error
	seen   string
}

func (m *mockTokenValidator) ValidateToken(_ context.Context, token string) (*middleware.TokenClaims, error) {
	m.seen = token
	return m.claims, m.err
}

func newAuthEcho(config middleware.AuthConfig) *echo.Echo {
	e := echo.New()
	e.Use(middleware.Auth(config))
	e.GET("/me", func(c echo.Context) error {
		member, ok := middleware.GetMember(c)
		if !ok {
			return c.String(http.StatusInternalServerError, "no member")
		}
		return c.JSON(http.StatusOK, map[string]any{
			"member": member,
			"actor":  appcore.ActorID(c.Request().Context()),
		})
	})
	e.GET("/health", func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})
	return e
}

func TestDefaultAuthConfig(t *testing.T) {
	config := middleware.DefaultAuthConfig()

	assert.NotNil(t, config.Logger)
	assert.Equal(t, []string{"/health", "/ready"}, config.SkipPaths)
	assert.Equal(t, "token", config.QueryParam)
}

// TestAuth_Rejections tests the responses for missing and malformed credentials.
func TestAuth_Rejections(t *testing.T) {
	tests := []struct {
		name        string
		header      string
		validator   *mockTokenValidator
		wantCode    string
		wantMessage string
	}{
		{
			name:        "missing header",
			validator:   &mockTokenValidator{},
			wantCode:    "UNAUTHORIZED",
			wantMessage: "Missing authorization header",
		},
		{
			name:        "basic scheme",
			header:      "Basic abc",
			validator:   &mockTokenValidator{},
			wantCode:    "UNAUTHORIZED",
			wantMessage: "Invalid authorization header format",
		},
		{
			name:        "empty bearer",
			header:      "Bearer ",
			validator:   &mockTokenValidator{},
			wantCode:    "UNAUTHORIZED",
			wantMessage: "Invalid authorization header format",
		},
		{
			name:        "expired token",
			header:      "Bearer old",
			validator:   &mockTokenValidator{err: middleware.ErrTokenExpired},
			wantCode:    "TOKEN_EXPIRED",
			wantMessage: "Token has expired",
		},
		{
			name:        "invalid token",
			header:      "Bearer bad",
			validator:   &mockTokenValidator{err: middleware.ErrInvalidToken},
			wantCode:    "UNAUTHORIZED",
			wantMessage: "Invalid token",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newAuthEcho(middleware.AuthConfig{TokenValidator: tt.validator})
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if tt.header != "" {
				req.Header.Set(echo.HeaderAuthorization, tt.header)
			}
			rec := httptest.NewRecorder()

			e.ServeHTTP(rec, req)

			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.wantCode)
			assert.Contains(t, rec.Body.String(), tt.wantMessage)
		})
	}
}

// TestAuth_Success tests that the member lands in both contexts.
func TestAuth_Success(t *testing.T) {
	// Arrange
	validator := &mockTokenValidator{claims: &middleware.TokenClaims{
		MemberID:    "alice",
		Username:    "Alice",
		Permissions: []string{"manage_tournaments"},
		ExpiresAt:   time.Now().Add(time.Hour),
	}}
	e := newAuthEcho(middleware.AuthConfig{TokenValidator: validator})
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set(echo.HeaderAuthorization, "Bearer good")
	rec := httptest.NewRecorder()

	// Act
	e.ServeHTTP(rec, req)

	// Assert
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "good", validator.seen)
	assert.Contains(t, rec.Body.String(), `"id":"alice"`)
	assert.Contains(t, rec.Body.String(), `"manage_tournaments"`)
	assert.Contains(t, rec.Body.String(), `"actor":"alice"`)
}

func TestAuth_QueryToken(t *testing.T) {
	validator := &mockTokenValidator{claims: &middleware.TokenClaims{MemberID: "bob"}}
	config := middleware.DefaultAuthConfig()
	config.TokenValidator = validator
	e := newAuthEcho(config)

	req := httptest.NewRequest(http.MethodGet, "/me?token=from-query", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "from-query", validator.seen)
}

func TestAuth_SkipPaths(t *testing.T) {
	config := middleware.DefaultAuthConfig()
	config.TokenValidator = &mockTokenValidator{}
	e := newAuthEcho(config)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAuth_NoValidator(t *testing.T) {
	e := newAuthEcho(middleware.AuthConfig{})

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set(echo.HeaderAuthorization, "Bearer x")
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestTokenClaims_Member(t *testing.T) {
	claims := &middleware.TokenClaims{
		MemberID:    "alice",
		Username:    "Alice",
		Roles:       []string{"organiser"},
		Permissions: []string{"manage_tournaments"},
	}

	assert.Equal(t, request.Member{
		ID:          "alice",
		Username:    "Alice",
		Roles:       []string{"organiser"},
		Permissions: []string{"manage_tournaments"},
	}, claims.Member())
}

func TestStaticTokenValidator(t *testing.T) {
	v := middleware.NewStaticTokenValidator("manage_tournaments").WithWorkspaces("ws-1")
	ctx := context.Background()

	claims, err := v.ValidateToken(ctx, "dev-token-carol")
	require.NoError(t, err)
	assert.Equal(t, "carol", claims.MemberID)
	assert.Equal(t, []string{"manage_tournaments"}, claims.Permissions)
	assert.Equal(t, []string{"ws-1"}, claims.Workspaces)

	_, err = v.ValidateToken(ctx, "dev-token-")
	require.ErrorIs(t, err, middleware.ErrInvalidToken)

	_, err = v.ValidateToken(ctx, "something-else")
	require.ErrorIs(t, err, middleware.ErrInvalidToken)
}

// TestJWTValidatorAdapter tests the bridge from signed tokens to middleware claims.
func TestJWTValidatorAdapter(t *testing.T) {
	const secret = "adapter-secret"
	validator, err := auth.NewJWTValidator(auth.JWTValidatorConfig{Secret: secret})
	require.NoError(t, err)
	adapter := middleware.NewJWTValidatorAdapter(validator)
	t.Cleanup(func() { _ = adapter.Close() })
	ctx := context.Background()

	t.Run("valid", func(t *testing.T) {
		token, signErr := auth.SignHMAC(secret, auth.Claims{
			MemberID:   "dave",
			Roles:      []string{"player"},
			Workspaces: []string{"ws-1", "ws-2"},
		}, "", time.Hour)
		require.NoError(t, signErr)

		claims, validateErr := adapter.ValidateToken(ctx, token)

		require.NoError(t, validateErr)
		assert.Equal(t, "dave", claims.MemberID)
		assert.Equal(t, []string{"player"}, claims.Roles)
		assert.Equal(t, []string{"ws-1", "ws-2"}, claims.Workspaces)
	})

	t.Run("expired maps to ErrTokenExpired", func(t *testing.T) {
		token, signErr := auth.SignHMAC(secret, auth.Claims{MemberID: "dave"}, "", -time.Hour)
		require.NoError(t, signErr)

		_, validateErr := adapter.ValidateToken(ctx, token)

		require.ErrorIs(t, validateErr, middleware.ErrTokenExpired)
	})

	t.Run("garbage maps to ErrInvalidToken", func(t *testing.T) {
		_, validateErr := adapter.ValidateToken(ctx, "not-a-jwt")

		require.ErrorIs(t, validateErr, middleware.ErrInvalidToken)
	})

	t.Run("nil validator panics", func(t *testing.T) {
		assert.Panics(t, func() { middleware.NewJWTValidatorAdapter(nil) })
	})
}
