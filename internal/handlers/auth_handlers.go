package handlers

import (
	"net/http"
	"time"

	"fireproof/internal/common"
	"fireproof/internal/middleware"
	"fireproof/internal/models"
	"fireproof/internal/services"

	"github.com/labstack/echo/v4"
)

// AuthHandlers handles authentication-related HTTP requests
type AuthHandlers struct {
	authService services.AuthService
}

// NewAuthHandlers creates a new auth handlers instance
func NewAuthHandlers(authService services.AuthService) *AuthHandlers {
	return &AuthHandlers{authService: authService}
}

// RegisterPublicRoutes mounts the endpoints that need no bearer token.
func (h *AuthHandlers) RegisterPublicRoutes(g *echo.Group) {
	g.POST("/auth/login", h.Login)
	g.POST("/auth/refresh", h.Refresh)
}

func (h *AuthHandlers) RegisterRoutes(g *echo.Group, _ *middleware.RBACMiddleware) {
	g.POST("/auth/logout", h.Logout)
	g.GET("/me", h.Me)
}

// Login handles user login with email and password
// @Summary Log in
// @Description Exchange email and password for an access and refresh token
// @Tags auth
// @Accept json
// @Produce json
// @Param body body models.LoginRequest true "Credentials"
// @Success 200 {object} models.TokenResponse
// @Failure 400 {object} common.ErrorResponse
// @Failure 401 {object} common.ErrorResponse
// @Failure 429 {object} common.ErrorResponse
// @Router /v1/auth/login [post]
func (h *AuthHandlers) Login(c echo.Context) error {
	var req models.LoginRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	tokens, err := h.authService.Login(c.Request().Context(), &req, c.RealIP())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, tokens)
}

// Refresh rotates the token pair
// @Summary Refresh tokens
// @Tags auth
// @Accept json
// @Produce json
// @Param body body models.RefreshTokenRequest true "Refresh token"
// @Success 200 {object} models.TokenResponse
// @Failure 401 {object} common.ErrorResponse
// @Router /v1/auth/refresh [post]
func (h *AuthHandlers) Refresh(c echo.Context) error {
	var req models.RefreshTokenRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	tokens, err := h.authService.Refresh(c.Request().Context(), req.RefreshToken)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, tokens)
}

// Logout blacklists the current access token and revokes the refresh token
// @Summary Log out
// @Tags auth
// @Accept json
// @Param body body models.LogoutRequest false "Refresh token to revoke"
// @Success 204
// @Failure 401 {object} common.ErrorResponse
// @Security BearerAuth
// @Router /v1/auth/logout [post]
func (h *AuthHandlers) Logout(c echo.Context) error {
	if _, _, err := tenantAndUser(c); err != nil {
		return err
	}

	var req models.LogoutRequest
	// The body is optional.
	_ = c.Bind(&req)

	ctx := c.Request().Context()
	tokenID, _ := ctx.Value(common.TokenIDKey).(string)
	expiresAt, _ := ctx.Value(common.TokenExpiryKey).(time.Time)

	if err := h.authService.Logout(ctx, tokenID, expiresAt, req.RefreshToken); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// Me returns the caller's profile, roles and effective permissions
// @Summary Current user
// @Tags auth
// @Produce json
// @Success 200 {object} models.Profile
// @Failure 401 {object} common.ErrorResponse
// @Security BearerAuth
// @Router /v1/me [get]
func (h *AuthHandlers) Me(c echo.Context) error {
	tenantID, userID, err := tenantAndUser(c)
	if err != nil {
		return err
	}

	profile, err := h.authService.Profile(c.Request().Context(), tenantID, userID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, profile)
}
