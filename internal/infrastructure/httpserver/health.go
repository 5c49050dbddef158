// Package httpserver hosts the ladder API: server lifecycle, route groups,
// health endpoints and the JSON response envelope.
package httpserver

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
)

// Health statuses.
const (
	StatusHealthy   = "healthy"
	StatusUnhealthy = "unhealthy"
	StatusDegraded  = "degraded"
	StatusReady     = "ready"
	StatusNotReady  = "not_ready"
)

// ComponentStatus represents the health status of a single component.
type ComponentStatus struct {
	Name    string `json:"name"`
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// HealthResponse represents the response for health endpoints.
type HealthResponse struct {
	Status     string            `json:"status"`
	Components []ComponentStatus `json:"components,omitempty"`
}

// HealthChecker reports the state of the backing stores. The container
// implements it.
type HealthChecker interface {
	IsReady(ctx context.Context) bool
	GetHealthStatus(ctx context.Context) []ComponentStatus
}

// HealthEndpoints manages health check endpoint registration.
type HealthEndpoints struct {
	checker HealthChecker
}

// NewHealthEndpoints creates a new HealthEndpoints instance.
func NewHealthEndpoints(checker HealthChecker) *HealthEndpoints {
	return &HealthEndpoints{
		checker: checker,
	}
}

// Register registers all health endpoints on the Echo instance.
// Endpoints registered:
//   - GET /health - Liveness check (always returns 200 if app is running)
//   - GET /ready - Readiness check (returns 200 if ready, 503 if not)
//   - GET /health/details - Detailed health status of all components
func (h *HealthEndpoints) Register(e *echo.Echo) {
	e.GET("/health", h.handleHealth)
	e.GET("/ready", h.handleReady)
	e.GET("/health/details", h.handleHealthDetails)
}

// handleHealth always answers 200 while the process is up.
func (h *HealthEndpoints) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, HealthResponse{
		Status: StatusHealthy,
	})
}

func (h *HealthEndpoints) handleReady(c echo.Context) error {
	ctx := c.Request().Context()

	if h.checker == nil || h.checker.IsReady(ctx) {
		return c.JSON(http.StatusOK, HealthResponse{
			Status:     StatusReady,
			Components: h.getComponentsIfAvailable(ctx),
		})
	}

	return c.JSON(http.StatusServiceUnavailable, HealthResponse{
		Status:     StatusNotReady,
		Components: h.getComponentsIfAvailable(ctx),
	})
}

func (h *HealthEndpoints) handleHealthDetails(c echo.Context) error {
	ctx := c.Request().Context()

	components := h.getComponentsIfAvailable(ctx)

	overallStatus := StatusHealthy
	statusCode := http.StatusOK

	for _, comp := range components {
		if comp.Status == StatusUnhealthy {
			overallStatus = StatusUnhealthy
			statusCode = http.StatusServiceUnavailable
			break
		}
		if comp.Status == StatusDegraded {
			overallStatus = StatusDegraded
		}
	}

	return c.JSON(statusCode, HealthResponse{
		Status:     overallStatus,
		Components: components,
	})
}

// getComponentsIfAvailable returns component statuses if checker is available.
func (h *HealthEndpoints) getComponentsIfAvailable(ctx context.Context) []ComponentStatus {
	if h.checker == nil {
		return nil
	}
	return h.checker.GetHealthStatus(ctx)
}

// RegisterHealthEndpointsWithChecker registers the health endpoints on the router.
func (r *Router) RegisterHealthEndpointsWithChecker(checker HealthChecker) {
	endpoints := NewHealthEndpoints(checker)
	endpoints.Register(r.echo)
}
