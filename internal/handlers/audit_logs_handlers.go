package handlers

import (
	"net/http"

	"fireproof/internal/common"
	"fireproof/internal/middleware"
	"fireproof/internal/models"
	"fireproof/internal/services"

	"github.com/labstack/echo/v4"
)

// AuditLogsHandlers handles audit log requests
type AuditLogsHandlers struct {
	auditLogsService services.AuditLogsService
}

// NewAuditLogsHandlers creates a new audit logs handlers instance
func NewAuditLogsHandlers(auditLogsService services.AuditLogsService) *AuditLogsHandlers {
	return &AuditLogsHandlers{auditLogsService: auditLogsService}
}

func (h *AuditLogsHandlers) RegisterRoutes(g *echo.Group, rbac *middleware.RBACMiddleware) {
	read := rbac.RequirePermission(models.PermAuditRead)

	g.GET("/audit-logs", h.ListAuditLogs, read)
	g.GET("/audit-logs/tables", h.GetTableNames, read)
	g.GET("/audit-logs/:id", h.GetAuditLog, read)
}

// ListAuditLogs retrieves audit logs with filtering and pagination
// @Summary List audit log entries
// @Tags audit
// @Produce json
// @Param table query string false "Table name"
// @Param record_id query string false "Record ID"
// @Param action query string false "INSERT, UPDATE, DELETE, SOFT_DELETE or REQUEST"
// @Param user_id query string false "Acting user"
// @Param from query string false "From date (YYYY-MM-DD)"
// @Param to query string false "To date inclusive (YYYY-MM-DD)"
// @Param limit query int false "Page size"
// @Param offset query int false "Offset"
// @Success 200 {object} common.ListResponse[models.AuditLog]
// @Security BearerAuth
// @Router /v1/audit-logs [get]
func (h *AuditLogsHandlers) ListAuditLogs(c echo.Context) error {
	tenantID, err := tenantFromContext(c)
	if err != nil {
		return err
	}
	limit, offset, err := pagination(c)
	if err != nil {
		return err
	}

	filters := &models.AuditLogFilters{
		TableName: queryString(c, "table"),
		Limit:     limit,
		Offset:    offset,
	}
	if filters.Action, err = queryEnum(c, "action",
		models.ActionInsert, models.ActionUpdate, models.ActionDelete, models.ActionSoftDelete, models.ActionRequest); err != nil {
		return err
	}
	if filters.RecordID, err = queryUUID(c, "record_id"); err != nil {
		return err
	}
	if filters.ChangedBy, err = queryUUID(c, "user_id"); err != nil {
		return err
	}
	if filters.StartDate, err = queryDate(c, "from"); err != nil {
		return err
	}
	to, err := queryDate(c, "to")
	if err != nil {
		return err
	}
	if to != nil {
		end := to.AddDate(0, 0, 1)
		filters.EndDate = &end
	}

	if err := h.auditLogsService.ValidateAuditFilters(filters); err != nil {
		return err
	}

	logs, total, err := h.auditLogsService.ListAuditLogs(c.Request().Context(), tenantID, filters)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, common.NewListResponse(logs, limit, offset, total))
}

// GetAuditLog retrieves a specific audit log entry
// @Summary Get an audit log entry
// @Tags audit
// @Produce json
// @Param id path string true "Audit log ID"
// @Success 200 {object} models.AuditLog
// @Failure 404 {object} common.ErrorResponse
// @Security BearerAuth
// @Router /v1/audit-logs/{id} [get]
func (h *AuditLogsHandlers) GetAuditLog(c echo.Context) error {
	tenantID, err := tenantFromContext(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}

	log, err := h.auditLogsService.GetAuditLog(c.Request().Context(), tenantID, id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, log)
}

// GetTableNames returns distinct table names that have audit logs
// @Summary List audited tables
// @Tags audit
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Security BearerAuth
// @Router /v1/audit-logs/tables [get]
func (h *AuditLogsHandlers) GetTableNames(c echo.Context) error {
	tenantID, err := tenantFromContext(c)
	if err != nil {
		return err
	}

	tableNames, err := h.auditLogsService.GetTableNames(c.Request().Context(), tenantID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"table_names": tableNames,
		"count":       len(tableNames),
	})
}
