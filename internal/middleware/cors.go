package middleware

import (
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

// DefaultCORSMaxAge is the preflight cache lifetime in seconds (24 hours).
const DefaultCORSMaxAge = 86400

// CORSConfig holds CORS middleware configuration.
type CORSConfig struct {
	// AllowOrigins lists the origins allowed to call the API. "*" allows all.
	AllowOrigins     []string
	AllowMethods     []string
	AllowHeaders     []string
	AllowCredentials bool
	ExposeHeaders    []string
	MaxAge           int
}

// DefaultCORSConfig returns a CORSConfig for the command API.
func DefaultCORSConfig() CORSConfig {
	return CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{echo.GET, echo.HEAD, echo.POST, echo.OPTIONS},
		AllowHeaders: []string{
			echo.HeaderOrigin,
			echo.HeaderContentType,
			echo.HeaderAccept,
			echo.HeaderAuthorization,
			echo.HeaderXRequestID,
		},
		ExposeHeaders: []string{
			echo.HeaderXRequestID,
			HeaderRateLimitRemaining,
		},
		MaxAge: DefaultCORSMaxAge,
	}
}

// CORS returns a CORS middleware with the given configuration.
func CORS(config CORSConfig) echo.MiddlewareFunc {
	return middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     config.AllowOrigins,
		AllowMethods:     config.AllowMethods,
		AllowHeaders:     config.AllowHeaders,
		AllowCredentials: config.AllowCredentials,
		ExposeHeaders:    config.ExposeHeaders,
		MaxAge:           config.MaxAge,
	})
}

// CORSWithOrigins returns a CORS middleware restricted to origins.
func CORSWithOrigins(origins ...string) echo.MiddlewareFunc {
	config := DefaultCORSConfig()
	if len(origins) > 0 {
		config.AllowOrigins = origins
	}
	return CORS(config)
}
