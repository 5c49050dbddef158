// Package auth validates the bearer tokens that identify command requesters.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/MicahParks/jwkset"
	"github.com/MicahParks/keyfunc/v3"
	"github.com/golang-jwt/jwt/v5"
)

// JWT validation errors.
var (
	ErrInvalidToken    = errors.New("invalid token")
	ErrMissingSubject  = errors.New("missing subject claim")
	ErrTokenExpired    = errors.New("token expired")
	ErrInvalidIssuer   = errors.New("invalid issuer")
	ErrInvalidAudience = errors.New("invalid audience")
	ErrJWKSFetchFailed = errors.New("failed to fetch JWKS")
	ErrNoKeySource     = errors.New("either a secret or a JWKS URL is required")
)

// Default configuration values.
const (
	DefaultLeeway          = 30 * time.Second
	DefaultRefreshInterval = time.Hour
)

// Claims are the requester attributes carried by a token.
type Claims struct {
	MemberID    string
	Username    string
	Roles       []string
	Permissions []string
	Workspaces  []string
	IssuedAt    time.Time
	ExpiresAt   time.Time
}

// JWTValidatorConfig configures a JWTValidator. JWKSURL takes precedence
// over Secret when both are set.
type JWTValidatorConfig struct {
	Secret          string
	JWKSURL         string
	Issuer          string
	Audience        string
	Leeway          time.Duration
	RefreshInterval time.Duration
	Logger          *slog.Logger
}

// JWTValidator verifies signed tokens offline, with an HMAC secret or a
// periodically refreshed JWKS.
type JWTValidator struct {
	keyFunc jwt.Keyfunc
	methods []string
	config  JWTValidatorConfig
	logger  *slog.Logger
	cancel  context.CancelFunc
}

// NewJWTValidator creates a validator from config.
func NewJWTValidator(config JWTValidatorConfig) (*JWTValidator, error) {
	if config.Leeway == 0 {
		config.Leeway = DefaultLeeway
	}
	if config.RefreshInterval == 0 {
		config.RefreshInterval = DefaultRefreshInterval
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	v := &JWTValidator{config: config, logger: logger}

	switch {
	case config.JWKSURL != "":
		ctx, cancel := context.WithCancel(context.Background())

		storage, err := jwkset.NewStorageFromHTTP(config.JWKSURL, jwkset.HTTPClientStorageOptions{
			Ctx:             ctx,
			RefreshInterval: config.RefreshInterval,
			RefreshErrorHandler: func(_ context.Context, err error) {
				logger.Error("failed to refresh JWKS", slog.Any("error", err))
			},
		})
		if err != nil {
			cancel()
			return nil, fmt.Errorf("%w: %w", ErrJWKSFetchFailed, err)
		}

		jwks, err := keyfunc.New(keyfunc.Options{Ctx: ctx, Storage: storage})
		if err != nil {
			cancel()
			return nil, fmt.Errorf("%w: %w", ErrJWKSFetchFailed, err)
		}

		v.keyFunc = jwks.Keyfunc
		v.cancel = cancel
		logger.Info("JWT validator using JWKS",
			slog.String("jwks_url", config.JWKSURL),
			slog.Duration("refresh_interval", config.RefreshInterval),
		)

	case config.Secret != "":
		secret := []byte(config.Secret)
		v.keyFunc = func(*jwt.Token) (any, error) { return secret, nil }
		v.methods = []string{jwt.SigningMethodHS256.Alg(), jwt.SigningMethodHS384.Alg(), jwt.SigningMethodHS512.Alg()}

	default:
		return nil, ErrNoKeySource
	}

	return v, nil
}

// Validate verifies tokenString and returns its claims.
func (v *JWTValidator) Validate(_ context.Context, tokenString string) (*Claims, error) {
	if tokenString == "" {
		return nil, ErrInvalidToken
	}

	parserOpts := []jwt.ParserOption{
		jwt.WithLeeway(v.config.Leeway),
		jwt.WithIssuedAt(),
		jwt.WithExpirationRequired(),
	}
	if len(v.methods) > 0 {
		parserOpts = append(parserOpts, jwt.WithValidMethods(v.methods))
	}
	if v.config.Issuer != "" {
		parserOpts = append(parserOpts, jwt.WithIssuer(v.config.Issuer))
	}
	if v.config.Audience != "" {
		parserOpts = append(parserOpts, jwt.WithAudience(v.config.Audience))
	}

	token, err := jwt.Parse(tokenString, v.keyFunc, parserOpts...)
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, fmt.Errorf("%w: %w", ErrTokenExpired, err)
		case errors.Is(err, jwt.ErrTokenInvalidIssuer):
			return nil, fmt.Errorf("%w: %w", ErrInvalidIssuer, err)
		case errors.Is(err, jwt.ErrTokenInvalidAudience):
			return nil, fmt.Errorf("%w: %w", ErrInvalidAudience, err)
		default:
			return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
		}
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}

	return extractClaims(claims)
}

func extractClaims(claims jwt.MapClaims) (*Claims, error) {
	c := &Claims{}

	c.MemberID, _ = claims["sub"].(string)
	if c.MemberID == "" {
		return nil, ErrMissingSubject
	}
	c.Username, _ = claims["preferred_username"].(string)
	c.Roles = stringList(claims["roles"])
	c.Permissions = stringList(claims["permissions"])
	c.Workspaces = stringList(claims["workspaces"])

	if iat, err := claims.GetIssuedAt(); err == nil && iat != nil {
		c.IssuedAt = iat.Time
	}
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		c.ExpiresAt = exp.Time
	}

	return c, nil
}

func stringList(v any) []string {
	raw, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, item := range raw {
		if s, isString := item.(string); isString {
			out = append(out, s)
		}
	}
	return out
}

// Close stops the background JWKS refresh.
func (v *JWTValidator) Close() error {
	if v.cancel != nil {
		v.cancel()
	}
	return nil
}

// SignHMAC issues an HS256 token for claims. It serves local tooling and tests.
func SignHMAC(secret string, claims Claims, issuer string, ttl time.Duration) (string, error) {
	now := time.Now()
	mc := jwt.MapClaims{
		"sub":                claims.MemberID,
		"preferred_username": claims.Username,
		"roles":              claims.Roles,
		"permissions":        claims.Permissions,
		"workspaces":         claims.Workspaces,
		"iat":                now.Unix(),
		"exp":                now.Add(ttl).Unix(),
	}
	if issuer != "" {
		mc["iss"] = issuer
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, mc).SignedString([]byte(secret))
}
