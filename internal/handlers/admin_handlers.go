package handlers

import (
	"net/http"

	"fireproof/internal/apperrors"
	"fireproof/internal/middleware"

	"github.com/labstack/echo/v4"
)

// JobRunner is the background scheduler as seen by the admin endpoints.
type JobRunner interface {
	RunNow(name string) error
	GetJobStatus() map[string]interface{}
}

// AdminHandlers exposes operator controls to system administrators
type AdminHandlers struct {
	jobs JobRunner
}

func NewAdminHandlers(jobs JobRunner) *AdminHandlers {
	return &AdminHandlers{jobs: jobs}
}

func (h *AdminHandlers) RegisterRoutes(g *echo.Group, rbac *middleware.RBACMiddleware) {
	admin := g.Group("/admin", rbac.RequireSystemAdmin())
	admin.GET("/jobs", h.JobStatus)
	admin.POST("/jobs/:name/run", h.RunJob)
}

// JobStatus lists the scheduled jobs
// @Summary Background job status
// @Tags admin
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Security BearerAuth
// @Router /v1/admin/jobs [get]
func (h *AdminHandlers) JobStatus(c echo.Context) error {
	if h.jobs == nil {
		return apperrors.NotFound("scheduler")
	}
	return c.JSON(http.StatusOK, h.jobs.GetJobStatus())
}

// RunJob triggers a job outside its schedule
// @Summary Run a background job now
// @Tags admin
// @Param name path string true "Job name"
// @Success 202
// @Failure 404 {object} common.ErrorResponse
// @Security BearerAuth
// @Router /v1/admin/jobs/{name}/run [post]
func (h *AdminHandlers) RunJob(c echo.Context) error {
	if h.jobs == nil {
		return apperrors.NotFound("scheduler")
	}
	if err := h.jobs.RunNow(c.Param("name")); err != nil {
		return apperrors.NotFound("job")
	}
	return c.NoContent(http.StatusAccepted)
}
