package handlers

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/donaldgifford/storefront-proxy/internal/store"
)

// Check is an extra readiness dependency, such as the Redis cache.
type Check struct {
	Name string
	Ping func(ctx context.Context) error
}

// HealthHandler provides health and readiness endpoints.
type HealthHandler struct {
	store  store.Store
	checks []Check
}

// NewHealthHandler creates a new HealthHandler. The store is always
// checked for readiness, followed by checks.
func NewHealthHandler(s store.Store, checks ...Check) *HealthHandler {
	return &HealthHandler{store: s, checks: checks}
}

// Healthz returns 200 if the process is running.
//
// @Summary Liveness check
// @Description Returns 200 if the process is running.
// @Tags health
// @Produce json
// @Success 200 {object} StatusResponse
// @Router /healthz [get]
func (*HealthHandler) Healthz(c echo.Context) error {
	return c.JSON(http.StatusOK, StatusResponse{Status: "ok"})
}

// Readyz returns 200 if every dependency answers, 503 otherwise.
//
// @Summary Readiness check
// @Description Returns 200 if the store and cache are reachable, 503 otherwise.
// @Tags health
// @Produce json
// @Success 200 {object} StatusResponse
// @Failure 503 {object} ReadinessResponse
// @Router /readyz [get]
func (h *HealthHandler) Readyz(c echo.Context) error {
	ctx := c.Request().Context()

	if err := h.store.Ping(ctx); err != nil {
		return c.JSON(http.StatusServiceUnavailable, ReadinessResponse{Status: "unavailable", Failed: "store"})
	}
	for _, check := range h.checks {
		if err := check.Ping(ctx); err != nil {
			return c.JSON(http.StatusServiceUnavailable, ReadinessResponse{Status: "unavailable", Failed: check.Name})
		}
	}
	return c.JSON(http.StatusOK, StatusResponse{Status: "ready"})
}

// ReadinessResponse names the first dependency that failed.
type ReadinessResponse struct {
	Status string `json:"status"           example:"unavailable"`
	Failed string `json:"failed,omitempty" example:"store"`
}
