package httpserver

import (
	"log/slog"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/lllypuk/ladder/internal/middleware"
)

// RouterConfig holds configuration for the router.
type RouterConfig struct {
	Logger *slog.Logger

	// AuthMiddleware guards the authenticated group.
	AuthMiddleware echo.MiddlewareFunc

	// RateLimitMiddleware runs on authenticated routes after AuthMiddleware
	// so the limit is keyed by member.
	RateLimitMiddleware echo.MiddlewareFunc

	CORSConfig     middleware.CORSConfig
	LoggingConfig  middleware.LoggingConfig
	RecoveryConfig middleware.RecoveryConfig

	// APIPrefix is the prefix for all API routes. Default is "/api/v1".
	APIPrefix string
}

// DefaultRouterConfig returns a RouterConfig with sensible defaults.
func DefaultRouterConfig() RouterConfig {
	return RouterConfig{
		Logger:         slog.Default(),
		CORSConfig:     middleware.DefaultCORSConfig(),
		LoggingConfig:  middleware.DefaultLoggingConfig(),
		RecoveryConfig: middleware.DefaultRecoveryConfig(),
		APIPrefix:      "/api/v1",
	}
}

// Router manages HTTP route groups and middleware chains.
type Router struct {
	echo   *echo.Echo
	config RouterConfig
	logger *slog.Logger

	public *echo.Group
	auth   *echo.Group
}

// NewRouter creates a new router with the given configuration.
func NewRouter(e *echo.Echo, config RouterConfig) *Router {
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	if config.APIPrefix == "" {
		config.APIPrefix = "/api/v1"
	}

	r := &Router{
		echo:   e,
		config: config,
		logger: config.Logger,
	}

	r.setupGlobalMiddleware()
	r.setupRouteGroups()

	return r
}

func (r *Router) setupGlobalMiddleware() {
	// Recovery must be first to catch all panics.
	r.echo.Use(middleware.RecoveryWithConfig(r.config.RecoveryConfig))
	r.echo.Use(middleware.CORS(r.config.CORSConfig))
	r.echo.Use(middleware.Logging(r.config.LoggingConfig))
}

func (r *Router) setupRouteGroups() {
	r.public = r.echo.Group(r.config.APIPrefix)

	var chain []echo.MiddlewareFunc
	if r.config.AuthMiddleware != nil {
		chain = append(chain, r.config.AuthMiddleware)
	} else {
		r.logger.Warn("no auth middleware configured, authenticated routes are public")
	}
	if r.config.RateLimitMiddleware != nil {
		chain = append(chain, r.config.RateLimitMiddleware)
	}
	r.auth = r.public.Group("", chain...)
}

// Echo returns the underlying Echo instance.
func (r *Router) Echo() *echo.Echo {
	return r.echo
}

// Public returns the API group that needs no authentication.
func (r *Router) Public() *echo.Group {
	return r.public
}

// Auth returns the API group that requires an authenticated member.
func (r *Router) Auth() *echo.Group {
	return r.auth
}

// RouteRegistrar defines the interface for registering routes.
type RouteRegistrar interface {
	RegisterRoutes(r *Router)
}

// RegisterAll registers all route registrars with the router.
func (r *Router) RegisterAll(registrars ...RouteRegistrar) {
	for _, registrar := range registrars {
		registrar.RegisterRoutes(r)
	}
}

// PrintRoutes logs all registered routes at debug level.
func (r *Router) PrintRoutes() {
	for _, route := range r.echo.Routes() {
		r.logger.Debug("registered route",
			slog.String("method", route.Method),
			slog.String("path", route.Path),
			slog.String("name", route.Name),
		)
	}
}

// RegisterMetricsEndpoint exposes gatherer at /metrics. A nil gatherer
// serves the default registry.
func (r *Router) RegisterMetricsEndpoint(gatherer prometheus.Gatherer) {
	handler := promhttp.Handler()
	if gatherer != nil {
		handler = promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
	}
	r.echo.GET("/metrics", echo.WrapHandler(handler))
}
