package middleware

import (
	"context"
	"errors"

	"github.com/lllypuk/ladder/internal/infrastructure/auth"
)

// JWTVerifier is the part of auth.JWTValidator the adapter needs.
type JWTVerifier interface {
	Validate(ctx context.Context, tokenString string) (*auth.Claims, error)
	Close() error
}

// JWTValidatorAdapter adapts an auth.JWTValidator to TokenValidator.
type JWTValidatorAdapter struct {
	validator JWTVerifier
}

// NewJWTValidatorAdapter wraps validator.
func NewJWTValidatorAdapter(validator JWTVerifier) *JWTValidatorAdapter {
	if validator == nil {
		panic("jwt validator is required")
	}
	return &JWTValidatorAdapter{validator: validator}
}

// ValidateToken implements TokenValidator.
func (a *JWTValidatorAdapter) ValidateToken(ctx context.Context, token string) (*TokenClaims, error) {
	claims, err := a.validator.Validate(ctx, token)
	if err != nil {
		return nil, mapAuthError(err)
	}

	return &TokenClaims{
		MemberID:    claims.MemberID,
		Username:    claims.Username,
		Roles:       claims.Roles,
		Permissions: claims.Permissions,
		Workspaces:  claims.Workspaces,
		ExpiresAt:   claims.ExpiresAt,
	}, nil
}

func mapAuthError(err error) error {
	if errors.Is(err, auth.ErrTokenExpired) {
		return ErrTokenExpired
	}
	return errors.Join(ErrInvalidToken, err)
}

// Close closes the underlying validator.
func (a *JWTValidatorAdapter) Close() error {
	return a.validator.Close()
}
