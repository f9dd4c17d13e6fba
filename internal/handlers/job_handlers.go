package handlers

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"fireproof/internal/apperrors"
	"fireproof/internal/common"
	"fireproof/internal/jobs"
	"fireproof/internal/logger"
	"fireproof/internal/middleware"
	"fireproof/internal/models"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// MaxImportBytes bounds an uploaded CSV file.
const MaxImportBytes = 20 << 20

// JobHandlers serves CSV import and export
type JobHandlers struct {
	importer *jobs.CSVImporter
	exporter *jobs.CSVExporter
}

func NewJobHandlers(importer *jobs.CSVImporter, exporter *jobs.CSVExporter) *JobHandlers {
	return &JobHandlers{importer: importer, exporter: exporter}
}

func (h *JobHandlers) RegisterRoutes(g *echo.Group, rbac *middleware.RBACMiddleware) {
	importWrite := rbac.RequirePermission(models.PermImportWrite)
	exportRead := rbac.RequirePermission(models.PermExportRead)

	g.POST("/import/extinguishers", h.ImportExtinguishers, importWrite)
	g.POST("/import/locations", h.ImportLocations, importWrite)
	g.GET("/import/jobs/:id", h.GetImportJob, importWrite)

	g.GET("/export/extinguishers.csv", h.ExportExtinguishers, exportRead)
	g.GET("/export/inspections.csv", h.ExportInspections, exportRead)
	g.GET("/export/deficiencies.csv", h.ExportDeficiencies, exportRead)
}

// ImportExtinguishers upserts extinguishers from a CSV file
// @Summary Import extinguishers
// @Description Files up to 500 rows are processed inline (200). Larger files are queued (202) and polled through /v1/import/jobs/{id}.
// @Tags import
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "CSV file"
// @Param dry_run formData bool false "Validate without writing"
// @Success 200 {object} models.ImportResponse
// @Success 202 {object} models.ImportResponse
// @Failure 400 {object} common.ErrorResponse
// @Security BearerAuth
// @Router /v1/import/extinguishers [post]
func (h *JobHandlers) ImportExtinguishers(c echo.Context) error {
	return h.submit(c, models.ImportExtinguishers)
}

// ImportLocations upserts locations from a CSV file
// @Summary Import locations
// @Tags import
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "CSV file"
// @Param dry_run formData bool false "Validate without writing"
// @Success 200 {object} models.ImportResponse
// @Success 202 {object} models.ImportResponse
// @Failure 400 {object} common.ErrorResponse
// @Security BearerAuth
// @Router /v1/import/locations [post]
func (h *JobHandlers) ImportLocations(c echo.Context) error {
	return h.submit(c, models.ImportLocations)
}

func (h *JobHandlers) submit(c echo.Context, kind string) error {
	tenantID, userID, err := tenantAndUser(c)
	if err != nil {
		return err
	}

	req := c.Request()
	req.Body = http.MaxBytesReader(c.Response(), req.Body, MaxImportBytes+multipartOverhead)

	fh, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return apperrors.TooLarge(fmt.Sprintf("import file exceeds %d bytes", MaxImportBytes))
		}
		return apperrors.Validation("file", "a CSV file is required")
	}

	dryRun := false
	if v := c.FormValue("dry_run"); v != "" {
		if dryRun, err = strconv.ParseBool(v); err != nil {
			return apperrors.Validation("dry_run", "must be true or false")
		}
	}

	file, err := fh.Open()
	if err != nil {
		return apperrors.Validation("file", "could not read upload")
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return apperrors.Validation("file", "could not read upload")
	}

	resp, err := h.importer.Submit(req.Context(), jobs.ImportRequest{
		TenantID: tenantID,
		UserID:   &userID,
		Kind:     kind,
		FileName: fh.Filename,
		DryRun:   dryRun,
		Data:     data,
	})
	if err != nil {
		return err
	}
	if resp.Status == models.ImportQueued {
		return c.JSON(http.StatusAccepted, resp)
	}
	return c.JSON(http.StatusOK, resp)
}

// GetImportJob polls a queued import
// @Summary Get import job
// @Tags import
// @Produce json
// @Param id path string true "Import job ID"
// @Success 200 {object} models.ImportJob
// @Failure 404 {object} common.ErrorResponse
// @Security BearerAuth
// @Router /v1/import/jobs/{id} [get]
func (h *JobHandlers) GetImportJob(c echo.Context) error {
	tenantID, err := tenantFromContext(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}

	job, err := h.importer.Job(c.Request().Context(), tenantID, id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, job)
}

// writeCSV buffers the export so a failed query still yields an error response.
func writeCSV(c echo.Context, filename string, export func(ctx context.Context, tenantID uuid.UUID, w io.Writer) (int, error)) error {
	tenantID, err := tenantFromContext(c)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	rows, err := export(c.Request().Context(), tenantID, &buf)
	if err != nil {
		return err
	}
	logger.FromContext(c.Request().Context()).WithFields(map[string]interface{}{
		"file": filename,
		"rows": rows,
	}).Info("CSV export")

	c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", filename))
	return c.Blob(http.StatusOK, "text/csv; charset=utf-8", buf.Bytes())
}

// ExportExtinguishers downloads every unit in the import column layout
// @Summary Export extinguishers
// @Tags export
// @Produce text/csv
// @Success 200 {file} binary
// @Security BearerAuth
// @Router /v1/export/extinguishers.csv [get]
func (h *JobHandlers) ExportExtinguishers(c echo.Context) error {
	return writeCSV(c, "extinguishers.csv", h.exporter.ExportExtinguishers)
}

// ExportInspections downloads inspections scheduled within from/to
// @Summary Export inspections
// @Tags export
// @Produce text/csv
// @Param from query string false "Scheduled on or after (YYYY-MM-DD)"
// @Param to query string false "Scheduled on or before (YYYY-MM-DD)"
// @Success 200 {file} binary
// @Security BearerAuth
// @Router /v1/export/inspections.csv [get]
func (h *JobHandlers) ExportInspections(c echo.Context) error {
	from, err := queryDate(c, "from")
	if err != nil {
		return err
	}
	to, err := queryDate(c, "to")
	if err != nil {
		return err
	}
	if from != nil && to != nil {
		if err := common.ValidateDateRange(*from, *to); err != nil {
			return apperrors.Validation("to", err.Error())
		}
	}

	return writeCSV(c, "inspections.csv", func(ctx context.Context, tenantID uuid.UUID, w io.Writer) (int, error) {
		return h.exporter.ExportInspections(ctx, tenantID, from, to, w)
	})
}

// ExportDeficiencies downloads deficiencies with the list filters
// @Summary Export deficiencies
// @Tags export
// @Produce text/csv
// @Param status query string false "Deficiency status"
// @Param severity query string false "Severity"
// @Success 200 {file} binary
// @Security BearerAuth
// @Router /v1/export/deficiencies.csv [get]
func (h *JobHandlers) ExportDeficiencies(c echo.Context) error {
	filter, err := deficiencyFilter(c)
	if err != nil {
		return err
	}

	return writeCSV(c, "deficiencies.csv", func(ctx context.Context, tenantID uuid.UUID, w io.Writer) (int, error) {
		return h.exporter.ExportDeficiencies(ctx, tenantID, filter, w)
	})
}
