package services

import (
	"context"
	"sort"
	"time"

	"fireproof/internal/caching"
	"fireproof/internal/logger"
	"fireproof/internal/models"
	"fireproof/internal/repositories"

	"github.com/google/uuid"
)

// PermissionCacheTTL bounds how long a user's effective permissions are served from Redis.
const PermissionCacheTTL = 5 * time.Minute

type RBACService interface {
	UserHasPermission(ctx context.Context, userID, tenantID uuid.UUID, permissionName string) (bool, error)
	GetUserPermissions(ctx context.Context, userID, tenantID uuid.UUID) ([]string, error)
	// InvalidateUser drops the cached permissions after a role change.
	InvalidateUser(ctx context.Context, tenantID, userID uuid.UUID) error

	// EnsurePermissions writes the global permission catalogue.
	EnsurePermissions(ctx context.Context) error
	// SeedTenantRoles creates the default roles of a tenant with their grants.
	SeedTenantRoles(ctx context.Context, tenantID uuid.UUID) (map[string]*models.Role, error)

	ListRoles(ctx context.Context, tenantID uuid.UUID) ([]*models.Role, error)
	ListPermissions(ctx context.Context) ([]*models.Permission, error)
}

type rbacService struct {
	roleRepo           repositories.RoleRepository
	rolePermissionRepo repositories.RolePermissionRepository
	permissionRepo     repositories.PermissionRepository
	cacheSvc           caching.CacheService
}

func NewRBACService(roleRepo repositories.RoleRepository, rolePermissionRepo repositories.RolePermissionRepository, permissionRepo repositories.PermissionRepository, cacheSvc caching.CacheService) RBACService {
	return &rbacService{
		roleRepo:           roleRepo,
		rolePermissionRepo: rolePermissionRepo,
		permissionRepo:     permissionRepo,
		cacheSvc:           cacheSvc,
	}
}

func (s *rbacService) UserHasPermission(ctx context.Context, userID, tenantID uuid.UUID, permissionName string) (bool, error) {
	perms, err := s.GetUserPermissions(ctx, userID, tenantID)
	if err != nil {
		return false, err
	}
	for _, p := range perms {
		if p == permissionName {
			return true, nil
		}
	}
	return false, nil
}

func (s *rbacService) GetUserPermissions(ctx context.Context, userID, tenantID uuid.UUID) ([]string, error) {
	if s.cacheSvc != nil {
		perms, found, err := s.cacheSvc.GetUserPermissions(ctx, tenantID, userID)
		if err != nil {
			logger.FromContext(ctx).WithError(err).Warn("Permission cache read failed")
		} else if found {
			return perms, nil
		}
	}

	perms, err := s.rolePermissionRepo.ListForUser(ctx, tenantID, userID)
	if err != nil {
		return nil, err
	}
	sort.Strings(perms)

	if s.cacheSvc != nil {
		if err := s.cacheSvc.SetUserPermissions(ctx, tenantID, userID, perms, PermissionCacheTTL); err != nil {
			logger.FromContext(ctx).WithError(err).Warn("Permission cache write failed")
		}
	}
	return perms, nil
}

func (s *rbacService) InvalidateUser(ctx context.Context, tenantID, userID uuid.UUID) error {
	if s.cacheSvc == nil {
		return nil
	}
	return s.cacheSvc.DeleteUserPermissions(ctx, tenantID, userID)
}

func (s *rbacService) EnsurePermissions(ctx context.Context) error {
	return s.permissionRepo.Ensure(ctx, models.AllPermissions)
}

var defaultRoleDescriptions = map[string]string{
	models.RoleTenantAdmin: "Full access to the tenant",
	models.RoleInspector:   "Performs inspections and records deficiencies",
	models.RoleViewer:      "Read only access",
}

func (s *rbacService) SeedTenantRoles(ctx context.Context, tenantID uuid.UUID) (map[string]*models.Role, error) {
	roles := make(map[string]*models.Role)
	for name, perms := range models.DefaultRolePermissions() {
		role := &models.Role{
			ID:          uuid.New(),
			TenantID:    tenantID,
			Name:        name,
			Description: defaultRoleDescriptions[name],
			IsSystem:    true,
		}
		if err := s.roleRepo.Create(ctx, role); err != nil {
			return nil, err
		}
		if err := s.rolePermissionRepo.Grant(ctx, tenantID, role.ID, perms); err != nil {
			return nil, err
		}
		role.Permissions = perms
		roles[name] = role
	}
	return roles, nil
}

func (s *rbacService) ListRoles(ctx context.Context, tenantID uuid.UUID) ([]*models.Role, error) {
	return s.roleRepo.List(ctx, tenantID)
}

func (s *rbacService) ListPermissions(ctx context.Context) ([]*models.Permission, error) {
	return s.permissionRepo.List(ctx)
}
