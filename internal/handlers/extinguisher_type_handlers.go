package handlers

import (
	"net/http"

	"fireproof/internal/common"
	"fireproof/internal/middleware"
	"fireproof/internal/models"
	"fireproof/internal/services"

	"github.com/labstack/echo/v4"
)

type ExtinguisherTypeHandlers struct {
	typeService services.ExtinguisherTypeService
}

func NewExtinguisherTypeHandlers(typeService services.ExtinguisherTypeService) *ExtinguisherTypeHandlers {
	return &ExtinguisherTypeHandlers{typeService: typeService}
}

func (h *ExtinguisherTypeHandlers) RegisterRoutes(g *echo.Group, rbac *middleware.RBACMiddleware) {
	read := rbac.RequirePermission(models.PermTypesRead)
	write := rbac.RequirePermission(models.PermTypesWrite)

	g.GET("/extinguisher-types", h.List, read)
	g.POST("/extinguisher-types", h.Create, write)
	g.GET("/extinguisher-types/:id", h.Get, read)
	g.PUT("/extinguisher-types/:id", h.Update, write)
	g.DELETE("/extinguisher-types/:id", h.Delete, write)
}

// List lists extinguisher types
// @Summary List extinguisher types
// @Tags extinguisher-types
// @Produce json
// @Param limit query int false "Page size"
// @Param offset query int false "Offset"
// @Success 200 {object} common.ListResponse[models.ExtinguisherType]
// @Security BearerAuth
// @Router /v1/extinguisher-types [get]
func (h *ExtinguisherTypeHandlers) List(c echo.Context) error {
	tenantID, err := tenantFromContext(c)
	if err != nil {
		return err
	}
	limit, offset, err := pagination(c)
	if err != nil {
		return err
	}

	types, total, err := h.typeService.List(c.Request().Context(), tenantID, limit, offset)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, common.NewListResponse(types, limit, offset, total))
}

// Create creates an extinguisher type
// @Summary Create extinguisher type
// @Tags extinguisher-types
// @Accept json
// @Produce json
// @Param body body models.ExtinguisherTypeRequest true "Type"
// @Success 201 {object} models.ExtinguisherType
// @Failure 400 {object} common.ErrorResponse
// @Failure 409 {object} common.ErrorResponse
// @Security BearerAuth
// @Router /v1/extinguisher-types [post]
func (h *ExtinguisherTypeHandlers) Create(c echo.Context) error {
	tenantID, err := tenantFromContext(c)
	if err != nil {
		return err
	}

	var req models.ExtinguisherTypeRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	t, err := h.typeService.Create(c.Request().Context(), tenantID, &req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, t)
}

// Get returns one extinguisher type
// @Summary Get extinguisher type
// @Tags extinguisher-types
// @Produce json
// @Param id path string true "Type ID"
// @Success 200 {object} models.ExtinguisherType
// @Failure 404 {object} common.ErrorResponse
// @Security BearerAuth
// @Router /v1/extinguisher-types/{id} [get]
func (h *ExtinguisherTypeHandlers) Get(c echo.Context) error {
	tenantID, err := tenantFromContext(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}

	t, err := h.typeService.GetByID(c.Request().Context(), tenantID, id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, t)
}

// Update replaces an extinguisher type
// @Summary Update extinguisher type
// @Tags extinguisher-types
// @Accept json
// @Produce json
// @Param id path string true "Type ID"
// @Param body body models.ExtinguisherTypeRequest true "Type"
// @Success 200 {object} models.ExtinguisherType
// @Failure 404 {object} common.ErrorResponse
// @Security BearerAuth
// @Router /v1/extinguisher-types/{id} [put]
func (h *ExtinguisherTypeHandlers) Update(c echo.Context) error {
	tenantID, err := tenantFromContext(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}

	var req models.ExtinguisherTypeRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	t, err := h.typeService.Update(c.Request().Context(), tenantID, id, &req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, t)
}

// Delete removes an unused extinguisher type
// @Summary Delete extinguisher type
// @Tags extinguisher-types
// @Param id path string true "Type ID"
// @Success 204
// @Failure 409 {object} common.ErrorResponse
// @Security BearerAuth
// @Router /v1/extinguisher-types/{id} [delete]
func (h *ExtinguisherTypeHandlers) Delete(c echo.Context) error {
	tenantID, err := tenantFromContext(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}

	if err := h.typeService.Delete(c.Request().Context(), tenantID, id); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
