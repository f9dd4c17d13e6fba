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

// UserHandlers handles user, role and permission requests
type UserHandlers struct {
	userService services.UserService
	rbacService services.RBACService
}

// NewUserHandlers creates a new user handlers instance
func NewUserHandlers(userService services.UserService, rbacService services.RBACService) *UserHandlers {
	return &UserHandlers{
		userService: userService,
		rbacService: rbacService,
	}
}

func (h *UserHandlers) RegisterRoutes(g *echo.Group, rbac *middleware.RBACMiddleware) {
	read := rbac.RequirePermission(models.PermUsersRead)
	write := rbac.RequirePermission(models.PermUsersWrite)

	g.GET("/users", h.ListUsers, read)
	g.POST("/users", h.CreateUser, write)
	g.GET("/users/:id", h.GetUser, read)
	g.PUT("/users/:id", h.UpdateUser, write)
	g.DELETE("/users/:id", h.DeleteUser, write)
	g.PUT("/users/:id/roles", h.AssignRoles, write)

	g.GET("/roles", h.ListRoles, rbac.RequirePermission(models.PermRolesRead))
	g.GET("/permissions", h.ListPermissions, rbac.RequirePermission(models.PermRolesRead))
}

// ListUsers lists the tenant's users
// @Summary List users
// @Tags users
// @Produce json
// @Param search query string false "Search over email and name"
// @Param is_active query bool false "Filter by active flag"
// @Param limit query int false "Page size"
// @Param offset query int false "Offset"
// @Success 200 {object} common.ListResponse[models.User]
// @Security BearerAuth
// @Router /v1/users [get]
func (h *UserHandlers) ListUsers(c echo.Context) error {
	tenantID, err := tenantFromContext(c)
	if err != nil {
		return err
	}
	limit, offset, err := pagination(c)
	if err != nil {
		return err
	}

	filter := models.UserFilter{
		Search: common.SanitizeSearchQuery(c.QueryParam("search")),
		Limit:  limit,
		Offset: offset,
	}
	if v := c.QueryParam("is_active"); v != "" {
		active, err := strconv.ParseBool(v)
		if err != nil {
			return apperrors.Validation("is_active", "must be true or false")
		}
		filter.IsActive = &active
	}

	users, total, err := h.userService.List(c.Request().Context(), tenantID, filter)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, common.NewListResponse(users, limit, offset, total))
}

// CreateUser creates a user in the caller's tenant
// @Summary Create user
// @Tags users
// @Accept json
// @Produce json
// @Param body body models.CreateUserRequest true "User"
// @Success 201 {object} models.User
// @Failure 400 {object} common.ErrorResponse
// @Failure 409 {object} common.ErrorResponse
// @Security BearerAuth
// @Router /v1/users [post]
func (h *UserHandlers) CreateUser(c echo.Context) error {
	tenantID, err := tenantFromContext(c)
	if err != nil {
		return err
	}

	var req models.CreateUserRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	user, err := h.userService.Create(c.Request().Context(), tenantID, &req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, user)
}

// GetUser returns one user
// @Summary Get user
// @Tags users
// @Produce json
// @Param id path string true "User ID"
// @Success 200 {object} models.User
// @Failure 404 {object} common.ErrorResponse
// @Security BearerAuth
// @Router /v1/users/{id} [get]
func (h *UserHandlers) GetUser(c echo.Context) error {
	tenantID, err := tenantFromContext(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}

	user, err := h.userService.GetByID(c.Request().Context(), tenantID, id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, user)
}

// UpdateUser changes profile fields, the active flag or the password
// @Summary Update user
// @Tags users
// @Accept json
// @Produce json
// @Param id path string true "User ID"
// @Param body body models.UpdateUserRequest true "Changes"
// @Success 200 {object} models.User
// @Failure 404 {object} common.ErrorResponse
// @Security BearerAuth
// @Router /v1/users/{id} [put]
func (h *UserHandlers) UpdateUser(c echo.Context) error {
	tenantID, err := tenantFromContext(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}

	var req models.UpdateUserRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	user, err := h.userService.Update(c.Request().Context(), tenantID, id, &req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, user)
}

// DeleteUser soft deletes a user
// @Summary Delete user
// @Tags users
// @Param id path string true "User ID"
// @Success 204
// @Failure 404 {object} common.ErrorResponse
// @Security BearerAuth
// @Router /v1/users/{id} [delete]
func (h *UserHandlers) DeleteUser(c echo.Context) error {
	tenantID, userID, err := tenantAndUser(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	if id == userID {
		return apperrors.Conflict("you cannot delete your own account")
	}

	if err := h.userService.Delete(c.Request().Context(), tenantID, id); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// AssignRoles replaces the roles of a user
// @Summary Assign roles
// @Tags users
// @Accept json
// @Produce json
// @Param id path string true "User ID"
// @Param body body models.AssignRolesRequest true "Role IDs"
// @Success 200 {object} map[string][]string
// @Failure 404 {object} common.ErrorResponse
// @Security BearerAuth
// @Router /v1/users/{id}/roles [put]
func (h *UserHandlers) AssignRoles(c echo.Context) error {
	tenantID, err := tenantFromContext(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}

	var req models.AssignRolesRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	roles, err := h.userService.AssignRoles(c.Request().Context(), tenantID, id, req.RoleIDs)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string][]string{"roles": roles})
}

// ListRoles lists the tenant's roles with their permissions
// @Summary List roles
// @Tags roles
// @Produce json
// @Success 200 {object} map[string][]models.Role
// @Security BearerAuth
// @Router /v1/roles [get]
func (h *UserHandlers) ListRoles(c echo.Context) error {
	tenantID, err := tenantFromContext(c)
	if err != nil {
		return err
	}

	roles, err := h.rbacService.ListRoles(c.Request().Context(), tenantID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"data": roles})
}

// ListPermissions lists the global permission catalogue
// @Summary List permissions
// @Tags roles
// @Produce json
// @Success 200 {object} map[string][]models.Permission
// @Security BearerAuth
// @Router /v1/permissions [get]
func (h *UserHandlers) ListPermissions(c echo.Context) error {
	permissions, err := h.rbacService.ListPermissions(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"data": permissions})
}
