package middleware

import (
	"net/http"
	"sort"

	"github.com/labstack/echo/v4"
)

const VersionActive = "active"

// APIVersion describes one mounted API version
type APIVersion struct {
	Version string `json:"version"`
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// VersionMiddleware provides API versioning headers
type VersionMiddleware struct {
	supportedVersions map[string]APIVersion
	defaultVersion    string
}

// NewVersionMiddleware creates a new version middleware instance
func NewVersionMiddleware() *VersionMiddleware {
	return &VersionMiddleware{
		supportedVersions: map[string]APIVersion{
			"v1": {Version: "v1", Status: VersionActive, Message: "Current stable API version"},
		},
		defaultVersion: "v1",
	}
}

// VersionHeader adds version information to response headers
func (vm *VersionMiddleware) VersionHeader(version string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			c.Response().Header().Set("X-API-Version", version)
			c.Set("api_version", version)
			return next(c)
		}
	}
}

// VersionRoute creates a version-specific route group
func (vm *VersionMiddleware) VersionRoute(e *echo.Echo, version string) *echo.Group {
	group := e.Group("/" + version)
	group.Use(vm.VersionHeader(version))
	return group
}

// GetCurrentVersion returns the current active API version
func (vm *VersionMiddleware) GetCurrentVersion() string {
	return vm.defaultVersion
}

// GetSupportedVersions returns the versions that are still served, sorted
func (vm *VersionMiddleware) GetSupportedVersions() []APIVersion {
	versions := make([]APIVersion, 0, len(vm.supportedVersions))
	for _, v := range vm.supportedVersions {
		versions = append(versions, v)
	}
	sort.Slice(versions, func(i, j int) bool { return versions[i].Version < versions[j].Version })
	return versions
}

// ListVersions reports the current and supported API versions
// @Summary API versions
// @Tags health
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /versions [get]
func (vm *VersionMiddleware) ListVersions(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]interface{}{
		"current":  vm.GetCurrentVersion(),
		"versions": vm.GetSupportedVersions(),
	})
}
