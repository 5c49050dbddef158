package main

import (
	"github.com/labstack/echo/v4"

	"github.com/lllypuk/ladder/internal/infrastructure/httpserver"
	"github.com/lllypuk/ladder/internal/middleware"
)

// SetupRoutes installs the middleware chain and every route on e.
func SetupRoutes(e *echo.Echo, c *Container) *httpserver.Router {
	cfg := c.Config

	authConfig := middleware.DefaultAuthConfig()
	authConfig.Logger = c.Logger
	authConfig.TokenValidator = c.TokenValidator

	routerConfig := httpserver.DefaultRouterConfig()
	routerConfig.Logger = c.Logger
	routerConfig.AuthMiddleware = middleware.Auth(authConfig)
	routerConfig.CORSConfig.AllowOrigins = cfg.Server.CORSOrigins
	routerConfig.LoggingConfig.Logger = c.Logger
	routerConfig.RecoveryConfig.Logger = c.Logger
	if c.RateLimitStore != nil {
		routerConfig.RateLimitMiddleware = middleware.RateLimit(middleware.RateLimitConfig{
			Logger: c.Logger,
			Store:  c.RateLimitStore,
			Limit:  cfg.Server.RateLimit.Limit,
			Window: cfg.Server.RateLimit.Window,
		})
	}

	router := httpserver.NewRouter(e, routerConfig)

	router.RegisterHealthEndpointsWithChecker(c)
	if c.Prometheus != nil {
		router.RegisterMetricsEndpoint(c.Prometheus)
	}

	router.RegisterAll(c.CommandHandler, c.InteractionHandler, c.ReplyHandler)
	c.WSHandler.RegisterRoutes(e)

	router.PrintRoutes()
	return router
}
