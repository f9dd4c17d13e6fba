package handlers

import (
	"net/http"

	"fireproof/internal/analytics"
	"fireproof/internal/middleware"
	"fireproof/internal/models"

	"github.com/labstack/echo/v4"
)

// DashboardHandlers serves tenant-level statistics
type DashboardHandlers struct {
	analyticsService *analytics.AnalyticsService
}

func NewDashboardHandlers(analyticsService *analytics.AnalyticsService) *DashboardHandlers {
	return &DashboardHandlers{analyticsService: analyticsService}
}

func (h *DashboardHandlers) RegisterRoutes(g *echo.Group, rbac *middleware.RBACMiddleware) {
	read := rbac.RequirePermission(models.PermDashboardRead)

	g.GET("/dashboard/stats", h.Stats, read)
	g.GET("/dashboard/compliance", h.Compliance, read)
}

// Stats returns the cached dashboard counters
// @Summary Dashboard statistics
// @Tags dashboard
// @Produce json
// @Success 200 {object} models.DashboardStats
// @Security BearerAuth
// @Router /v1/dashboard/stats [get]
func (h *DashboardHandlers) Stats(c echo.Context) error {
	tenantID, err := tenantFromContext(c)
	if err != nil {
		return err
	}
	stats, err := h.analyticsService.DashboardStats(c.Request().Context(), tenantID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, stats)
}

// Compliance returns per-location compliance rates
// @Summary Compliance by location
// @Tags dashboard
// @Produce json
// @Param location_id query string false "Restrict to one location"
// @Success 200 {object} map[string][]models.LocationCompliance
// @Security BearerAuth
// @Router /v1/dashboard/compliance [get]
func (h *DashboardHandlers) Compliance(c echo.Context) error {
	tenantID, err := tenantFromContext(c)
	if err != nil {
		return err
	}
	locationID, err := queryUUID(c, "location_id")
	if err != nil {
		return err
	}
	rows, err := h.analyticsService.Compliance(c.Request().Context(), tenantID, locationID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"data": rows})
}
