package handlers

import (
	"net/http"

	"fireproof/internal/common"
	"fireproof/internal/middleware"
	"fireproof/internal/models"
	"fireproof/internal/services"

	"github.com/labstack/echo/v4"
)

// TenantHandlers handles tenant-related HTTP requests. Every route is
// restricted to system administrators.
type TenantHandlers struct {
	tenantService services.TenantService
}

// NewTenantHandlers creates a new tenant handlers instance
func NewTenantHandlers(tenantService services.TenantService) *TenantHandlers {
	return &TenantHandlers{tenantService: tenantService}
}

func (h *TenantHandlers) RegisterRoutes(g *echo.Group, rbac *middleware.RBACMiddleware) {
	tenants := g.Group("/tenants", rbac.RequireSystemAdmin())
	tenants.GET("", h.ListTenants)
	tenants.POST("", h.CreateTenant)
	tenants.GET("/:id", h.GetTenant)
	tenants.PUT("/:id", h.UpdateTenant)
	tenants.DELETE("/:id", h.DeleteTenant)
}

// ListTenants handles getting a list of tenants
// @Summary List tenants
// @Tags tenants
// @Produce json
// @Param limit query int false "Page size"
// @Param offset query int false "Offset"
// @Success 200 {object} common.ListResponse[models.Tenant]
// @Failure 403 {object} common.ErrorResponse
// @Security BearerAuth
// @Router /v1/tenants [get]
func (h *TenantHandlers) ListTenants(c echo.Context) error {
	limit, offset, err := pagination(c)
	if err != nil {
		return err
	}

	tenants, total, err := h.tenantService.List(c.Request().Context(), limit, offset)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, common.NewListResponse(tenants, limit, offset, total))
}

// CreateTenant creates a tenant with its default roles
// @Summary Create tenant
// @Tags tenants
// @Accept json
// @Produce json
// @Param body body models.CreateTenantRequest true "Tenant"
// @Success 201 {object} models.Tenant
// @Failure 400 {object} common.ErrorResponse
// @Failure 409 {object} common.ErrorResponse
// @Security BearerAuth
// @Router /v1/tenants [post]
func (h *TenantHandlers) CreateTenant(c echo.Context) error {
	var req models.CreateTenantRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	tenant, err := h.tenantService.Create(c.Request().Context(), &req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, tenant)
}

// GetTenant handles getting tenant details by ID
// @Summary Get tenant
// @Tags tenants
// @Produce json
// @Param id path string true "Tenant ID"
// @Success 200 {object} models.Tenant
// @Failure 404 {object} common.ErrorResponse
// @Security BearerAuth
// @Router /v1/tenants/{id} [get]
func (h *TenantHandlers) GetTenant(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}

	tenant, err := h.tenantService.GetByID(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, tenant)
}

// UpdateTenant handles updating tenant details
// @Summary Update tenant
// @Tags tenants
// @Accept json
// @Produce json
// @Param id path string true "Tenant ID"
// @Param body body models.UpdateTenantRequest true "Changes"
// @Success 200 {object} models.Tenant
// @Failure 404 {object} common.ErrorResponse
// @Security BearerAuth
// @Router /v1/tenants/{id} [put]
func (h *TenantHandlers) UpdateTenant(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}

	var req models.UpdateTenantRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	tenant, err := h.tenantService.Update(c.Request().Context(), id, &req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, tenant)
}

// DeleteTenant deactivates a tenant
// @Summary Deactivate tenant
// @Tags tenants
// @Param id path string true "Tenant ID"
// @Success 204
// @Failure 404 {object} common.ErrorResponse
// @Security BearerAuth
// @Router /v1/tenants/{id} [delete]
func (h *TenantHandlers) DeleteTenant(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}

	if err := h.tenantService.Deactivate(c.Request().Context(), id); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
