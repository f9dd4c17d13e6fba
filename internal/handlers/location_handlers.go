package handlers

import (
	"net/http"
	"strconv"

	"fireproof/internal/apperrors"
	"fireproof/internal/common"
	"fireproof/internal/middleware"
	"fireproof/internal/models"
	"fireproof/internal/services"

	"github.com/labstack/echo/v4"
)

// LocationHandlers handles location requests
type LocationHandlers struct {
	locationService     services.LocationService
	extinguisherService services.ExtinguisherService
}

func NewLocationHandlers(locationService services.LocationService, extinguisherService services.ExtinguisherService) *LocationHandlers {
	return &LocationHandlers{
		locationService:     locationService,
		extinguisherService: extinguisherService,
	}
}

func (h *LocationHandlers) RegisterRoutes(g *echo.Group, rbac *middleware.RBACMiddleware) {
	read := rbac.RequirePermission(models.PermLocationsRead)
	write := rbac.RequirePermission(models.PermLocationsWrite)

	g.GET("/locations", h.ListLocations, read)
	g.POST("/locations", h.CreateLocation, write)
	g.GET("/locations/:id", h.GetLocation, read)
	g.PUT("/locations/:id", h.UpdateLocation, write)
	g.DELETE("/locations/:id", h.DeleteLocation, write)
	g.GET("/locations/:id/extinguishers", h.ListLocationExtinguishers, read, rbac.RequirePermission(models.PermExtinguishersRead))
}

// ListLocations lists locations
// @Summary List locations
// @Tags locations
// @Produce json
// @Param search query string false "Search over code and name"
// @Param is_active query bool false "Filter by active flag"
// @Param limit query int false "Page size (default 50, max 1000)"
// @Param offset query int false "Offset"
// @Success 200 {object} common.ListResponse[models.Location]
// @Security BearerAuth
// @Router /v1/locations [get]
func (h *LocationHandlers) ListLocations(c echo.Context) error {
	tenantID, err := tenantFromContext(c)
	if err != nil {
		return err
	}
	limit, offset, err := pagination(c)
	if err != nil {
		return err
	}

	filter := models.LocationFilter{
		Search: common.SanitizeSearchQuery(c.QueryParam("search")),
		Limit:  limit,
		Offset: offset,
	}
	if v := c.QueryParam("is_active"); v != "" {
		active, err := strconv.ParseBool(v)
		if err != nil {
			return apperrors.Validation("is_active", "must be true or false")
		}
		filter.IsActive = &active
	}

	locations, total, err := h.locationService.List(c.Request().Context(), tenantID, filter)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, common.NewListResponse(locations, limit, offset, total))
}

// CreateLocation creates a location
// @Summary Create location
// @Tags locations
// @Accept json
// @Produce json
// @Param body body models.LocationRequest true "Location"
// @Success 201 {object} models.Location
// @Failure 400 {object} common.ErrorResponse
// @Failure 409 {object} common.ErrorResponse
// @Security BearerAuth
// @Router /v1/locations [post]
func (h *LocationHandlers) CreateLocation(c echo.Context) error {
	tenantID, err := tenantFromContext(c)
	if err != nil {
		return err
	}

	var req models.LocationRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	location, err := h.locationService.Create(c.Request().Context(), tenantID, &req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, location)
}

// GetLocation returns one location
// @Summary Get location
// @Tags locations
// @Produce json
// @Param id path string true "Location ID"
// @Success 200 {object} models.Location
// @Failure 404 {object} common.ErrorResponse
// @Security BearerAuth
// @Router /v1/locations/{id} [get]
func (h *LocationHandlers) GetLocation(c echo.Context) error {
	tenantID, err := tenantFromContext(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}

	location, err := h.locationService.GetByID(c.Request().Context(), tenantID, id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, location)
}

// UpdateLocation replaces a location
// @Summary Update location
// @Tags locations
// @Accept json
// @Produce json
// @Param id path string true "Location ID"
// @Param body body models.LocationRequest true "Location"
// @Success 200 {object} models.Location
// @Failure 404 {object} common.ErrorResponse
// @Security BearerAuth
// @Router /v1/locations/{id} [put]
func (h *LocationHandlers) UpdateLocation(c echo.Context) error {
	tenantID, err := tenantFromContext(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}

	var req models.LocationRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	location, err := h.locationService.Update(c.Request().Context(), tenantID, id, &req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, location)
}

// DeleteLocation soft deletes a location without active extinguishers
// @Summary Delete location
// @Tags locations
// @Param id path string true "Location ID"
// @Success 204
// @Failure 409 {object} common.ErrorResponse "Location still has active extinguishers"
// @Security BearerAuth
// @Router /v1/locations/{id} [delete]
func (h *LocationHandlers) DeleteLocation(c echo.Context) error {
	tenantID, err := tenantFromContext(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}

	if err := h.locationService.Delete(c.Request().Context(), tenantID, id); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// ListLocationExtinguishers lists the units installed at a location
// @Summary List extinguishers at a location
// @Tags locations
// @Produce json
// @Param id path string true "Location ID"
// @Param limit query int false "Page size"
// @Param offset query int false "Offset"
// @Success 200 {object} common.ListResponse[models.Extinguisher]
// @Failure 404 {object} common.ErrorResponse
// @Security BearerAuth
// @Router /v1/locations/{id}/extinguishers [get]
func (h *LocationHandlers) ListLocationExtinguishers(c echo.Context) error {
	tenantID, err := tenantFromContext(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	limit, offset, err := pagination(c)
	if err != nil {
		return err
	}

	ctx := c.Request().Context()
	if _, err := h.locationService.GetByID(ctx, tenantID, id); err != nil {
		return err
	}

	units, total, err := h.extinguisherService.List(ctx, tenantID, models.ExtinguisherFilter{
		LocationID: &id,
		Limit:      limit,
		Offset:     offset,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, common.NewListResponse(units, limit, offset, total))
}
