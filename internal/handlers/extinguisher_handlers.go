package handlers

import (
	"net/http"

	"fireproof/internal/common"
	"fireproof/internal/middleware"
	"fireproof/internal/models"
	"fireproof/internal/services"

	"github.com/labstack/echo/v4"
)

// ExtinguisherHandlers handles extinguisher inventory requests
type ExtinguisherHandlers struct {
	extinguisherService services.ExtinguisherService
}

func NewExtinguisherHandlers(extinguisherService services.ExtinguisherService) *ExtinguisherHandlers {
	return &ExtinguisherHandlers{extinguisherService: extinguisherService}
}

func (h *ExtinguisherHandlers) RegisterRoutes(g *echo.Group, rbac *middleware.RBACMiddleware) {
	read := rbac.RequirePermission(models.PermExtinguishersRead)
	write := rbac.RequirePermission(models.PermExtinguishersWrite)

	g.GET("/extinguishers", h.List, read)
	g.POST("/extinguishers", h.Create, write)
	g.GET("/extinguishers/barcode/:code", h.GetByBarcode, read)
	g.GET("/extinguishers/:id", h.Get, read)
	g.PUT("/extinguishers/:id", h.Update, write)
	g.DELETE("/extinguishers/:id", h.Delete, write)
	g.GET("/extinguishers/:id/inspections", h.History, read, rbac.RequirePermission(models.PermInspectionsRead))
}

// List lists extinguishers
// @Summary List extinguishers
// @Tags extinguishers
// @Produce json
// @Param location_id query string false "Location"
// @Param type_id query string false "Extinguisher type"
// @Param status query string false "Active, OutOfService, Retired or Missing"
// @Param due_before query string false "next_inspection_due on or before (YYYY-MM-DD)"
// @Param search query string false "Search over asset tag, serial and barcode"
// @Param limit query int false "Page size"
// @Param offset query int false "Offset"
// @Success 200 {object} common.ListResponse[models.Extinguisher]
// @Security BearerAuth
// @Router /v1/extinguishers [get]
func (h *ExtinguisherHandlers) List(c echo.Context) error {
	tenantID, err := tenantFromContext(c)
	if err != nil {
		return err
	}
	limit, offset, err := pagination(c)
	if err != nil {
		return err
	}

	filter := models.ExtinguisherFilter{
		Search: common.SanitizeSearchQuery(c.QueryParam("search")),
		Limit:  limit,
		Offset: offset,
	}
	if filter.Status, err = queryEnum(c, "status", models.ExtinguisherActive, models.ExtinguisherOutOfService,
		models.ExtinguisherRetired, models.ExtinguisherMissing); err != nil {
		return err
	}
	if filter.LocationID, err = queryUUID(c, "location_id"); err != nil {
		return err
	}
	if filter.TypeID, err = queryUUID(c, "type_id"); err != nil {
		return err
	}
	if filter.DueBefore, err = queryDate(c, "due_before"); err != nil {
		return err
	}

	units, total, err := h.extinguisherService.List(c.Request().Context(), tenantID, filter)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, common.NewListResponse(units, limit, offset, total))
}

// Create registers an extinguisher
// @Summary Create extinguisher
// @Tags extinguishers
// @Accept json
// @Produce json
// @Param body body models.ExtinguisherRequest true "Extinguisher"
// @Success 201 {object} models.Extinguisher
// @Failure 400 {object} common.ErrorResponse
// @Failure 404 {object} common.ErrorResponse "Unknown location or type"
// @Failure 409 {object} common.ErrorResponse "Duplicate asset tag or barcode"
// @Security BearerAuth
// @Router /v1/extinguishers [post]
func (h *ExtinguisherHandlers) Create(c echo.Context) error {
	tenantID, err := tenantFromContext(c)
	if err != nil {
		return err
	}

	var req models.ExtinguisherRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	unit, err := h.extinguisherService.Create(c.Request().Context(), tenantID, &req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, unit)
}

// Get returns one extinguisher
// @Summary Get extinguisher
// @Tags extinguishers
// @Produce json
// @Param id path string true "Extinguisher ID"
// @Success 200 {object} models.Extinguisher
// @Failure 404 {object} common.ErrorResponse
// @Security BearerAuth
// @Router /v1/extinguishers/{id} [get]
func (h *ExtinguisherHandlers) Get(c echo.Context) error {
	tenantID, err := tenantFromContext(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}

	unit, err := h.extinguisherService.GetByID(c.Request().Context(), tenantID, id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, unit)
}

// GetByBarcode looks a unit up by its scanned barcode
// @Summary Find extinguisher by barcode
// @Tags extinguishers
// @Produce json
// @Param code path string true "Barcode"
// @Success 200 {object} models.Extinguisher
// @Failure 404 {object} common.ErrorResponse
// @Security BearerAuth
// @Router /v1/extinguishers/barcode/{code} [get]
func (h *ExtinguisherHandlers) GetByBarcode(c echo.Context) error {
	tenantID, err := tenantFromContext(c)
	if err != nil {
		return err
	}

	unit, err := h.extinguisherService.GetByBarcode(c.Request().Context(), tenantID, c.Param("code"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, unit)
}

// Update replaces an extinguisher
// @Summary Update extinguisher
// @Tags extinguishers
// @Accept json
// @Produce json
// @Param id path string true "Extinguisher ID"
// @Param body body models.ExtinguisherRequest true "Extinguisher"
// @Success 200 {object} models.Extinguisher
// @Failure 404 {object} common.ErrorResponse
// @Security BearerAuth
// @Router /v1/extinguishers/{id} [put]
func (h *ExtinguisherHandlers) Update(c echo.Context) error {
	tenantID, err := tenantFromContext(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}

	var req models.ExtinguisherRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	unit, err := h.extinguisherService.Update(c.Request().Context(), tenantID, id, &req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, unit)
}

// Delete soft deletes an extinguisher
// @Summary Delete extinguisher
// @Tags extinguishers
// @Param id path string true "Extinguisher ID"
// @Success 204
// @Failure 404 {object} common.ErrorResponse
// @Security BearerAuth
// @Router /v1/extinguishers/{id} [delete]
func (h *ExtinguisherHandlers) Delete(c echo.Context) error {
	tenantID, err := tenantFromContext(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}

	if err := h.extinguisherService.Delete(c.Request().Context(), tenantID, id); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// History lists the inspections of a unit, newest first
// @Summary Inspection history
// @Tags extinguishers
// @Produce json
// @Param id path string true "Extinguisher ID"
// @Param limit query int false "Page size"
// @Param offset query int false "Offset"
// @Success 200 {object} common.ListResponse[models.Inspection]
// @Failure 404 {object} common.ErrorResponse
// @Security BearerAuth
// @Router /v1/extinguishers/{id}/inspections [get]
func (h *ExtinguisherHandlers) History(c echo.Context) error {
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

	inspections, total, err := h.extinguisherService.History(c.Request().Context(), tenantID, id, limit, offset)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, common.NewListResponse(inspections, limit, offset, total))
}
