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

type ChecklistHandlers struct {
	checklistService services.ChecklistService
}

func NewChecklistHandlers(checklistService services.ChecklistService) *ChecklistHandlers {
	return &ChecklistHandlers{checklistService: checklistService}
}

func (h *ChecklistHandlers) RegisterRoutes(g *echo.Group, rbac *middleware.RBACMiddleware) {
	read := rbac.RequirePermission(models.PermTemplatesRead)
	write := rbac.RequirePermission(models.PermTemplatesWrite)

	g.GET("/checklist-templates", h.List, read)
	g.POST("/checklist-templates", h.Create, write)
	g.GET("/checklist-templates/:id", h.Get, read)
	g.PUT("/checklist-templates/:id", h.Update, write)
	g.DELETE("/checklist-templates/:id", h.Delete, write)
	g.POST("/checklist-templates/:id/duplicate", h.Duplicate, write)
}

// List lists the tenant's templates and, unless include_system=false, the system templates
// @Summary List checklist templates
// @Tags checklist-templates
// @Produce json
// @Param inspection_type query string false "Monthly, Annual, SixYear or Hydrostatic"
// @Param is_active query bool false "Filter by active flag"
// @Param include_system query bool false "Include system templates (default true)"
// @Param limit query int false "Page size"
// @Param offset query int false "Offset"
// @Success 200 {object} common.ListResponse[models.ChecklistTemplate]
// @Security BearerAuth
// @Router /v1/checklist-templates [get]
func (h *ChecklistHandlers) List(c echo.Context) error {
	tenantID, err := tenantFromContext(c)
	if err != nil {
		return err
	}
	limit, offset, err := pagination(c)
	if err != nil {
		return err
	}

	filter := models.ChecklistTemplateFilter{IncludeSystem: true, Limit: limit, Offset: offset}
	if filter.InspectionType, err = queryEnum(c, "inspection_type", models.InspectionTypes...); err != nil {
		return err
	}
	if v := c.QueryParam("is_active"); v != "" {
		active, err := strconv.ParseBool(v)
		if err != nil {
			return apperrors.Validation("is_active", "must be true or false")
		}
		filter.IsActive = &active
	}
	if v := c.QueryParam("include_system"); v != "" {
		include, err := strconv.ParseBool(v)
		if err != nil {
			return apperrors.Validation("include_system", "must be true or false")
		}
		filter.IncludeSystem = include
	}

	templates, total, err := h.checklistService.List(c.Request().Context(), tenantID, filter)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, common.NewListResponse(templates, limit, offset, total))
}

// Create creates a tenant template with its items
// @Summary Create checklist template
// @Tags checklist-templates
// @Accept json
// @Produce json
// @Param body body models.ChecklistTemplateRequest true "Template"
// @Success 201 {object} models.ChecklistTemplate
// @Failure 400 {object} common.ErrorResponse
// @Security BearerAuth
// @Router /v1/checklist-templates [post]
func (h *ChecklistHandlers) Create(c echo.Context) error {
	tenantID, err := tenantFromContext(c)
	if err != nil {
		return err
	}

	var req models.ChecklistTemplateRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	template, err := h.checklistService.Create(c.Request().Context(), tenantID, &req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, template)
}

// Get returns a template with its ordered items
// @Summary Get checklist template
// @Tags checklist-templates
// @Produce json
// @Param id path string true "Template ID"
// @Success 200 {object} models.ChecklistTemplate
// @Failure 404 {object} common.ErrorResponse
// @Security BearerAuth
// @Router /v1/checklist-templates/{id} [get]
func (h *ChecklistHandlers) Get(c echo.Context) error {
	tenantID, err := tenantFromContext(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}

	template, err := h.checklistService.GetByID(c.Request().Context(), tenantID, id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, template)
}

// Update replaces a tenant template and its items
// @Summary Update checklist template
// @Tags checklist-templates
// @Accept json
// @Produce json
// @Param id path string true "Template ID"
// @Param body body models.ChecklistTemplateRequest true "Template"
// @Success 200 {object} models.ChecklistTemplate
// @Failure 403 {object} common.ErrorResponse "System templates are read-only"
// @Failure 409 {object} common.ErrorResponse "Items are referenced by inspections"
// @Security BearerAuth
// @Router /v1/checklist-templates/{id} [put]
func (h *ChecklistHandlers) Update(c echo.Context) error {
	tenantID, err := tenantFromContext(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}

	var req models.ChecklistTemplateRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	template, err := h.checklistService.Update(c.Request().Context(), tenantID, id, &req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, template)
}

// Delete soft deletes a tenant template
// @Summary Delete checklist template
// @Tags checklist-templates
// @Param id path string true "Template ID"
// @Success 204
// @Failure 403 {object} common.ErrorResponse
// @Security BearerAuth
// @Router /v1/checklist-templates/{id} [delete]
func (h *ChecklistHandlers) Delete(c echo.Context) error {
	tenantID, err := tenantFromContext(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}

	if err := h.checklistService.Delete(c.Request().Context(), tenantID, id); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// Duplicate copies a system or tenant template into the tenant
// @Summary Duplicate checklist template
// @Tags checklist-templates
// @Accept json
// @Produce json
// @Param id path string true "Template ID"
// @Param body body models.DuplicateTemplateRequest false "New name"
// @Success 201 {object} models.ChecklistTemplate
// @Failure 404 {object} common.ErrorResponse
// @Security BearerAuth
// @Router /v1/checklist-templates/{id}/duplicate [post]
func (h *ChecklistHandlers) Duplicate(c echo.Context) error {
	tenantID, err := tenantFromContext(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}

	var req models.DuplicateTemplateRequest
	if c.Request().ContentLength != 0 {
		if err := bindAndValidate(c, &req); err != nil {
			return err
		}
	}

	template, err := h.checklistService.Duplicate(c.Request().Context(), tenantID, id, req.Name)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, template)
}
