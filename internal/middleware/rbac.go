package middleware

import (
	"fireproof/internal/apperrors"
	"fireproof/internal/common"
	"fireproof/internal/logger"
	"fireproof/internal/services"

	"github.com/labstack/echo/v4"
)

type RBACMiddleware struct {
	rbacService services.RBACService
}

func NewRBACMiddleware(rbacService services.RBACService) *RBACMiddleware {
	return &RBACMiddleware{
		rbacService: rbacService,
	}
}

// RequirePermission rejects callers whose roles do not grant permission.
// System administrators pass every check.
func (m *RBACMiddleware) RequirePermission(permission string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx := c.Request().Context()
			userID, ok := common.GetUserIDFromContext(ctx)
			if !ok {
				return apperrors.Unauthorized("user not authenticated")
			}
			tenantID, ok := common.GetTenantIDFromContext(ctx)
			if !ok {
				return apperrors.Unauthorized("tenant not found")
			}
			if common.IsSystemAdmin(ctx) {
				return next(c)
			}

			hasPermission, err := m.rbacService.UserHasPermission(ctx, userID, tenantID, permission)
			if err != nil {
				return apperrors.Internal("error checking permission", err)
			}
			if !hasPermission {
				logger.FromContext(ctx).WithField("permission", permission).Debug("Permission denied")
				return apperrors.Forbidden("insufficient permissions")
			}

			return next(c)
		}
	}
}

// RequireSystemAdmin restricts a route to system administrators.
func (m *RBACMiddleware) RequireSystemAdmin() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx := c.Request().Context()
			if _, ok := common.GetUserIDFromContext(ctx); !ok {
				return apperrors.Unauthorized("user not authenticated")
			}
			if !common.IsSystemAdmin(ctx) {
				return apperrors.Forbidden("system administrator required")
			}
			return next(c)
		}
	}
}
