package middleware

import (
	"net/http"
	"strings"

	"fireproof/internal/apperrors"
	"fireproof/internal/common"
	"fireproof/internal/logger"
	"fireproof/internal/models"
	"fireproof/internal/services"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// Sensitivity levels for AuditRequest
const (
	AuditLow    = "low"
	AuditMedium = "medium"
	AuditHigh   = "high"
)

// AuditMiddleware records HTTP requests in the tenant audit trail
type AuditMiddleware struct {
	auditService services.AuditLogsService
}

// NewAuditMiddleware creates a new audit middleware instance
func NewAuditMiddleware(auditService services.AuditLogsService) *AuditMiddleware {
	return &AuditMiddleware{
		auditService: auditService,
	}
}

// AuditRequest audits requests after they are handled.
// Low records mutations and failures, medium records everything but
// health and docs reads, high adds sanitized headers.
func (m *AuditMiddleware) AuditRequest(sensitivityLevel string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			err := next(c)

			ctx := c.Request().Context()
			tenantID, ok := common.GetTenantIDFromContext(ctx)
			if !ok {
				return err
			}

			method := c.Request().Method
			path := c.Path()
			switch sensitivityLevel {
			case AuditHigh:
			case AuditMedium:
				if shouldSkipLogging(method, path) {
					return err
				}
			default:
				if !shouldLogLowSensitivity(method, err) {
					return err
				}
			}

			m.record(c, tenantID, sensitivityLevel, err)
			return err
		}
	}
}

func (m *AuditMiddleware) record(c echo.Context, tenantID uuid.UUID, sensitivityLevel string, reqErr error) {
	req := c.Request()
	ctx := req.Context()

	data := models.JSONB{
		"method": req.Method,
		"path":   c.Path(),
		"uri":    req.RequestURI,
		"status": responseStatus(c, reqErr),
	}
	if sensitivityLevel != AuditLow && len(c.QueryParams()) > 0 {
		data["query_params"] = c.QueryParams()
	}
	if sensitivityLevel == AuditHigh {
		data["headers"] = sanitizeHeaders(req.Header)
	}
	if reqErr != nil {
		data["error"] = publicMessage(reqErr)
	}

	entry := &models.AuditLog{
		TenantID:  tenantID,
		TableName: "http_requests",
		Action:    models.ActionRequest,
		NewValues: data,
		IPAddress: common.StringPtr(c.RealIP()),
		UserAgent: common.StringPtr(req.UserAgent()),
		RequestID: common.StringPtr(c.Response().Header().Get(echo.HeaderXRequestID)),
	}
	if userID, ok := common.GetUserIDFromContext(ctx); ok {
		entry.ChangedBy = &userID
	}
	if id, err := uuid.Parse(c.Param("id")); err == nil {
		entry.RecordID = &id
	}

	if err := m.auditService.Record(ctx, entry); err != nil {
		logger.FromContext(ctx).WithError(err).Error("Failed to record request audit entry")
	}
}

func responseStatus(c echo.Context, reqErr error) int {
	if reqErr == nil {
		return c.Response().Status
	}
	if appErr, ok := apperrors.As(reqErr); ok {
		return appErr.HTTPStatus()
	}
	if he, ok := reqErr.(*echo.HTTPError); ok {
		return he.Code
	}
	return http.StatusInternalServerError
}

// publicMessage never exposes the cause of an internal error.
func publicMessage(err error) string {
	if appErr, ok := apperrors.As(err); ok {
		return appErr.Message
	}
	if he, ok := err.(*echo.HTTPError); ok {
		if msg, ok := he.Message.(string); ok {
			return msg
		}
	}
	return http.StatusText(http.StatusInternalServerError)
}

func shouldLogLowSensitivity(method string, reqErr error) bool {
	if reqErr != nil {
		return true
	}
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	}
	return false
}

func shouldSkipLogging(method, path string) bool {
	if method != http.MethodGet {
		return false
	}
	for _, prefix := range []string{"/health", "/metrics", "/swagger", "/favicon"} {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

var sensitiveHeaders = map[string]bool{
	"authorization":       true,
	"cookie":              true,
	"x-api-key":           true,
	"x-auth-token":        true,
	"proxy-authorization": true,
}

// sanitizeHeaders redacts credentials before logging
func sanitizeHeaders(headers http.Header) map[string]interface{} {
	sanitized := make(map[string]interface{}, len(headers))
	for key, values := range headers {
		if sensitiveHeaders[strings.ToLower(key)] {
			sanitized[key] = "[REDACTED]"
			continue
		}
		sanitized[key] = values
	}
	return sanitized
}
