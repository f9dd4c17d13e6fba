package handlers

import (
	"net/http"

	"fireproof/internal/common"
	"fireproof/internal/middleware"
	"fireproof/internal/models"
	"fireproof/internal/services"

	"github.com/labstack/echo/v4"
)

type DeficiencyHandlers struct {
	deficiencyService services.DeficiencyService
}

func NewDeficiencyHandlers(deficiencyService services.DeficiencyService) *DeficiencyHandlers {
	return &DeficiencyHandlers{deficiencyService: deficiencyService}
}

func (h *DeficiencyHandlers) RegisterRoutes(g *echo.Group, rbac *middleware.RBACMiddleware) {
	read := rbac.RequirePermission(models.PermDeficienciesRead)
	write := rbac.RequirePermission(models.PermDeficienciesWrite)

	g.GET("/deficiencies", h.List, read)
	g.POST("/deficiencies", h.Create, write)
	g.GET("/deficiencies/:id", h.Get, read)
	g.PUT("/deficiencies/:id", h.Update, write)
	g.POST("/deficiencies/:id/assign", h.Assign, write)
	g.POST("/deficiencies/:id/resolve", h.Resolve, write)
	g.POST("/deficiencies/:id/close", h.Close, write)
}

// deficiencyFilter reads the list filters shared with the CSV export.
func deficiencyFilter(c echo.Context) (models.DeficiencyFilter, error) {
	var (
		filter models.DeficiencyFilter
		err    error
	)
	if filter.Status, err = queryEnum(c, "status", models.DeficiencyOpen, models.DeficiencyInProgress,
		models.DeficiencyResolved, models.DeficiencyDeferred, models.DeficiencyClosed); err != nil {
		return filter, err
	}
	if filter.Severity, err = queryEnum(c, "severity", models.Severities...); err != nil {
		return filter, err
	}
	if filter.ExtinguisherID, err = queryUUID(c, "extinguisher_id"); err != nil {
		return filter, err
	}
	if filter.LocationID, err = queryUUID(c, "location_id"); err != nil {
		return filter, err
	}
	if filter.AssignedTo, err = queryUUID(c, "assigned_to"); err != nil {
		return filter, err
	}
	return filter, nil
}

// List lists deficiencies
// @Summary List deficiencies
// @Tags deficiencies
// @Produce json
// @Param status query string false "Open, InProgress, Resolved, Deferred or Closed"
// @Param severity query string false "Low, Medium, High or Critical"
// @Param extinguisher_id query string false "Extinguisher"
// @Param location_id query string false "Location"
// @Param assigned_to query string false "Assignee"
// @Param limit query int false "Page size"
// @Param offset query int false "Offset"
// @Success 200 {object} common.ListResponse[models.Deficiency]
// @Security BearerAuth
// @Router /v1/deficiencies [get]
func (h *DeficiencyHandlers) List(c echo.Context) error {
	tenantID, err := tenantFromContext(c)
	if err != nil {
		return err
	}
	limit, offset, err := pagination(c)
	if err != nil {
		return err
	}
	filter, err := deficiencyFilter(c)
	if err != nil {
		return err
	}
	filter.Limit, filter.Offset = limit, offset

	deficiencies, total, err := h.deficiencyService.List(c.Request().Context(), tenantID, filter)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, common.NewListResponse(deficiencies, limit, offset, total))
}

// Create records a deficiency
// @Summary Create deficiency
// @Tags deficiencies
// @Accept json
// @Produce json
// @Param body body models.CreateDeficiencyRequest true "Deficiency"
// @Success 201 {object} models.Deficiency
// @Failure 400 {object} common.ErrorResponse
// @Failure 404 {object} common.ErrorResponse
// @Security BearerAuth
// @Router /v1/deficiencies [post]
func (h *DeficiencyHandlers) Create(c echo.Context) error {
	tenantID, err := tenantFromContext(c)
	if err != nil {
		return err
	}

	var req models.CreateDeficiencyRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	deficiency, err := h.deficiencyService.Create(c.Request().Context(), tenantID, &req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, deficiency)
}

// Get returns one deficiency
// @Summary Get deficiency
// @Tags deficiencies
// @Produce json
// @Param id path string true "Deficiency ID"
// @Success 200 {object} models.Deficiency
// @Failure 404 {object} common.ErrorResponse
// @Security BearerAuth
// @Router /v1/deficiencies/{id} [get]
func (h *DeficiencyHandlers) Get(c echo.Context) error {
	tenantID, err := tenantFromContext(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}

	deficiency, err := h.deficiencyService.GetByID(c.Request().Context(), tenantID, id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, deficiency)
}

// Update changes deficiency details or moves it between open states
// @Summary Update deficiency
// @Tags deficiencies
// @Accept json
// @Produce json
// @Param id path string true "Deficiency ID"
// @Param body body models.UpdateDeficiencyRequest true "Changes"
// @Success 200 {object} models.Deficiency
// @Failure 409 {object} common.ErrorResponse "Illegal status transition"
// @Security BearerAuth
// @Router /v1/deficiencies/{id} [put]
func (h *DeficiencyHandlers) Update(c echo.Context) error {
	tenantID, err := tenantFromContext(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}

	var req models.UpdateDeficiencyRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	deficiency, err := h.deficiencyService.Update(c.Request().Context(), tenantID, id, &req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, deficiency)
}

// Assign sets the user responsible for fixing a deficiency
// @Summary Assign deficiency
// @Tags deficiencies
// @Accept json
// @Produce json
// @Param id path string true "Deficiency ID"
// @Param body body models.AssignDeficiencyRequest true "Assignee"
// @Success 200 {object} models.Deficiency
// @Failure 404 {object} common.ErrorResponse
// @Failure 409 {object} common.ErrorResponse
// @Security BearerAuth
// @Router /v1/deficiencies/{id}/assign [post]
func (h *DeficiencyHandlers) Assign(c echo.Context) error {
	tenantID, err := tenantFromContext(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}

	var req models.AssignDeficiencyRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	deficiency, err := h.deficiencyService.Assign(c.Request().Context(), tenantID, id, req.AssignedTo)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, deficiency)
}

// Resolve marks a deficiency resolved
// @Summary Resolve deficiency
// @Tags deficiencies
// @Accept json
// @Produce json
// @Param id path string true "Deficiency ID"
// @Param body body models.ResolveDeficiencyRequest true "Resolution"
// @Success 200 {object} models.Deficiency
// @Failure 400 {object} common.ErrorResponse
// @Failure 409 {object} common.ErrorResponse
// @Security BearerAuth
// @Router /v1/deficiencies/{id}/resolve [post]
func (h *DeficiencyHandlers) Resolve(c echo.Context) error {
	tenantID, err := tenantFromContext(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}

	var req models.ResolveDeficiencyRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	deficiency, err := h.deficiencyService.Resolve(c.Request().Context(), tenantID, id, req.ResolutionNotes)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, deficiency)
}

// Close closes a resolved deficiency
// @Summary Close deficiency
// @Tags deficiencies
// @Produce json
// @Param id path string true "Deficiency ID"
// @Success 200 {object} models.Deficiency
// @Failure 409 {object} common.ErrorResponse
// @Security BearerAuth
// @Router /v1/deficiencies/{id}/close [post]
func (h *DeficiencyHandlers) Close(c echo.Context) error {
	tenantID, err := tenantFromContext(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}

	deficiency, err := h.deficiencyService.Close(c.Request().Context(), tenantID, id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, deficiency)
}
