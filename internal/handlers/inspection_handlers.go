package handlers

import (
	"fmt"
	"net/http"

	"fireproof/internal/common"
	"fireproof/internal/middleware"
	"fireproof/internal/models"
	"fireproof/internal/services"

	"github.com/labstack/echo/v4"
)

// InspectionHandlers handles the inspection lifecycle, verification and certificates
type InspectionHandlers struct {
	inspectionService services.InspectionService
	reportService     services.ReportService
	defaultDaysAhead  int
}

func NewInspectionHandlers(inspectionService services.InspectionService, reportService services.ReportService, defaultDaysAhead int) *InspectionHandlers {
	return &InspectionHandlers{
		inspectionService: inspectionService,
		reportService:     reportService,
		defaultDaysAhead:  defaultDaysAhead,
	}
}

func (h *InspectionHandlers) RegisterRoutes(g *echo.Group, rbac *middleware.RBACMiddleware) {
	read := rbac.RequirePermission(models.PermInspectionsRead)
	write := rbac.RequirePermission(models.PermInspectionsWrite)

	g.GET("/inspections", h.List, read)
	g.POST("/inspections", h.Schedule, write)
	g.POST("/inspections/schedule-due", h.ScheduleDue, write)
	g.GET("/inspections/verify-chain", h.VerifyChain, rbac.RequirePermission(models.PermAuditRead))
	g.GET("/inspections/:id", h.Get, read)
	g.POST("/inspections/:id/start", h.Start, write)
	g.PUT("/inspections/:id/responses", h.SaveResponses, write)
	g.POST("/inspections/:id/complete", h.Complete, rbac.RequirePermission(models.PermInspectionsComplete))
	g.GET("/inspections/:id/verify", h.Verify, read)
	g.GET("/inspections/:id/report.pdf", h.Report, read)
}

// List lists inspections
// @Summary List inspections
// @Tags inspections
// @Produce json
// @Param status query string false "Scheduled, InProgress, Completed or Overdue"
// @Param inspection_type query string false "Monthly, Annual, SixYear or Hydrostatic"
// @Param extinguisher_id query string false "Extinguisher"
// @Param location_id query string false "Location"
// @Param inspector_id query string false "Inspector"
// @Param from query string false "Scheduled on or after (YYYY-MM-DD)"
// @Param to query string false "Scheduled on or before (YYYY-MM-DD)"
// @Param limit query int false "Page size"
// @Param offset query int false "Offset"
// @Success 200 {object} common.ListResponse[models.Inspection]
// @Security BearerAuth
// @Router /v1/inspections [get]
func (h *InspectionHandlers) List(c echo.Context) error {
	tenantID, err := tenantFromContext(c)
	if err != nil {
		return err
	}
	limit, offset, err := pagination(c)
	if err != nil {
		return err
	}

	filter := models.InspectionFilter{Limit: limit, Offset: offset}
	if filter.Status, err = queryEnum(c, "status", models.InspectionScheduled, models.InspectionInProgress,
		models.InspectionCompleted, models.InspectionOverdue); err != nil {
		return err
	}
	if filter.InspectionType, err = queryEnum(c, "inspection_type", models.InspectionTypes...); err != nil {
		return err
	}
	if filter.ExtinguisherID, err = queryUUID(c, "extinguisher_id"); err != nil {
		return err
	}
	if filter.LocationID, err = queryUUID(c, "location_id"); err != nil {
		return err
	}
	if filter.InspectorID, err = queryUUID(c, "inspector_id"); err != nil {
		return err
	}
	if filter.From, err = queryDate(c, "from"); err != nil {
		return err
	}
	if filter.To, err = queryDate(c, "to"); err != nil {
		return err
	}

	inspections, total, err := h.inspectionService.List(c.Request().Context(), tenantID, filter)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, common.NewListResponse(inspections, limit, offset, total))
}

// Schedule creates a Scheduled inspection
// @Summary Schedule inspection
// @Tags inspections
// @Accept json
// @Produce json
// @Param body body models.ScheduleInspectionRequest true "Inspection"
// @Success 201 {object} models.Inspection
// @Failure 400 {object} common.ErrorResponse
// @Failure 404 {object} common.ErrorResponse "Unknown extinguisher or template"
// @Security BearerAuth
// @Router /v1/inspections [post]
func (h *InspectionHandlers) Schedule(c echo.Context) error {
	tenantID, err := tenantFromContext(c)
	if err != nil {
		return err
	}

	var req models.ScheduleInspectionRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	inspection, err := h.inspectionService.Schedule(c.Request().Context(), tenantID, &req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, inspection)
}

// ScheduleDue schedules Monthly inspections for units coming due
// @Summary Schedule due inspections
// @Tags inspections
// @Accept json
// @Produce json
// @Param body body models.ScheduleDueRequest false "Window"
// @Success 200 {object} models.ScheduleDueResult
// @Security BearerAuth
// @Router /v1/inspections/schedule-due [post]
func (h *InspectionHandlers) ScheduleDue(c echo.Context) error {
	tenantID, err := tenantFromContext(c)
	if err != nil {
		return err
	}

	var req models.ScheduleDueRequest
	if c.Request().ContentLength != 0 {
		if err := bindAndValidate(c, &req); err != nil {
			return err
		}
	}
	if req.DaysAhead == 0 {
		req.DaysAhead = h.defaultDaysAhead
	}

	result, err := h.inspectionService.ScheduleDue(c.Request().Context(), tenantID, req.DaysAhead)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, result)
}

// Get returns an inspection with responses, deficiencies and photos
// @Summary Get inspection
// @Tags inspections
// @Produce json
// @Param id path string true "Inspection ID"
// @Success 200 {object} models.Inspection
// @Failure 404 {object} common.ErrorResponse
// @Security BearerAuth
// @Router /v1/inspections/{id} [get]
func (h *InspectionHandlers) Get(c echo.Context) error {
	tenantID, err := tenantFromContext(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}

	inspection, err := h.inspectionService.Get(c.Request().Context(), tenantID, id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, inspection)
}

// Start moves a Scheduled or Overdue inspection to InProgress
// @Summary Start inspection
// @Tags inspections
// @Accept json
// @Produce json
// @Param id path string true "Inspection ID"
// @Param body body models.StartInspectionRequest false "Device position"
// @Success 200 {object} models.Inspection
// @Failure 409 {object} common.ErrorResponse
// @Security BearerAuth
// @Router /v1/inspections/{id}/start [post]
func (h *InspectionHandlers) Start(c echo.Context) error {
	tenantID, err := tenantFromContext(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}

	var req models.StartInspectionRequest
	if c.Request().ContentLength != 0 {
		if err := bindAndValidate(c, &req); err != nil {
			return err
		}
	}

	inspection, err := h.inspectionService.Start(c.Request().Context(), tenantID, id, &req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, inspection)
}

// SaveResponses stores draft responses of an InProgress inspection
// @Summary Save draft responses
// @Tags inspections
// @Accept json
// @Produce json
// @Param id path string true "Inspection ID"
// @Param body body models.SaveResponsesRequest true "Responses"
// @Success 200 {object} map[string][]models.InspectionResponse
// @Failure 400 {object} common.ErrorResponse
// @Failure 409 {object} common.ErrorResponse
// @Security BearerAuth
// @Router /v1/inspections/{id}/responses [put]
func (h *InspectionHandlers) SaveResponses(c echo.Context) error {
	tenantID, err := tenantFromContext(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}

	var req models.SaveResponsesRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	responses, err := h.inspectionService.SaveResponses(c.Request().Context(), tenantID, id, &req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"responses": responses})
}

// Complete finalizes an inspection and seals it
// @Summary Complete inspection
// @Description Validates the responses, records deficiencies, advances due dates and computes the tamper-evident hash.
// @Tags inspections
// @Accept json
// @Produce json
// @Param id path string true "Inspection ID"
// @Param body body models.CompleteInspectionRequest true "Final responses"
// @Success 200 {object} models.Inspection
// @Failure 400 {object} common.ErrorResponse
// @Failure 409 {object} common.ErrorResponse
// @Security BearerAuth
// @Router /v1/inspections/{id}/complete [post]
func (h *InspectionHandlers) Complete(c echo.Context) error {
	tenantID, err := tenantFromContext(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}

	var req models.CompleteInspectionRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	inspection, err := h.inspectionService.Complete(c.Request().Context(), tenantID, id, &req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, inspection)
}

// Verify recomputes the hash, signature and chain link of a completed inspection
// @Summary Verify inspection
// @Tags inspections
// @Produce json
// @Param id path string true "Inspection ID"
// @Success 200 {object} models.VerificationResult
// @Failure 409 {object} common.ErrorResponse "Inspection is not completed"
// @Security BearerAuth
// @Router /v1/inspections/{id}/verify [get]
func (h *InspectionHandlers) Verify(c echo.Context) error {
	tenantID, err := tenantFromContext(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}

	result, err := h.inspectionService.Verify(c.Request().Context(), tenantID, id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, result)
}

// VerifyChain walks every inspection chain of the tenant
// @Summary Verify all chains
// @Tags inspections
// @Produce json
// @Success 200 {object} models.ChainReport
// @Security BearerAuth
// @Router /v1/inspections/verify-chain [get]
func (h *InspectionHandlers) VerifyChain(c echo.Context) error {
	tenantID, err := tenantFromContext(c)
	if err != nil {
		return err
	}

	report, err := h.inspectionService.VerifyChain(c.Request().Context(), tenantID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, report)
}

// Report renders the inspection certificate
// @Summary Inspection certificate
// @Tags inspections
// @Produce application/pdf
// @Param id path string true "Inspection ID"
// @Success 200 {file} binary
// @Failure 409 {object} common.ErrorResponse "Inspection is not completed"
// @Security BearerAuth
// @Router /v1/inspections/{id}/report.pdf [get]
func (h *InspectionHandlers) Report(c echo.Context) error {
	tenantID, err := tenantFromContext(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}

	pdf, filename, err := h.reportService.InspectionCertificate(c.Request().Context(), tenantID, id)
	if err != nil {
		return err
	}
	c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("inline; filename=%q", filename))
	return c.Blob(http.StatusOK, "application/pdf", pdf)
}
