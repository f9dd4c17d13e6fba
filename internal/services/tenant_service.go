package services

import (
	"context"
	"regexp"
	"strings"

	"fireproof/internal/apperrors"
	"fireproof/internal/caching"
	"fireproof/internal/common"
	"fireproof/internal/logger"
	"fireproof/internal/models"
	"fireproof/internal/repositories"

	"github.com/google/uuid"
)

var slugPattern = regexp.MustCompile(`^[a-z0-9-]{3,50}$`)

type TenantService interface {
	Create(ctx context.Context, req *models.CreateTenantRequest) (*models.Tenant, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.Tenant, error)
	GetBySlug(ctx context.Context, slug string) (*models.Tenant, error)
	Update(ctx context.Context, id uuid.UUID, req *models.UpdateTenantRequest) (*models.Tenant, error)
	Deactivate(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, limit, offset int) ([]*models.Tenant, int, error)
	ListActiveIDs(ctx context.Context) ([]uuid.UUID, error)
}

type tenantService struct {
	tenantRepo   repositories.TenantRepository
	userRepo     repositories.UserRepository
	userRoleRepo repositories.UserRoleRepository
	rbacSvc      RBACService
	auditSvc     AuditLogsService
	cacheSvc     caching.CacheService
}

func NewTenantService(
	tenantRepo repositories.TenantRepository,
	userRepo repositories.UserRepository,
	userRoleRepo repositories.UserRoleRepository,
	rbacSvc RBACService,
	auditSvc AuditLogsService,
	cacheSvc caching.CacheService,
) TenantService {
	return &tenantService{
		tenantRepo:   tenantRepo,
		userRepo:     userRepo,
		userRoleRepo: userRoleRepo,
		rbacSvc:      rbacSvc,
		auditSvc:     auditSvc,
		cacheSvc:     cacheSvc,
	}
}

// ValidateSlug checks the tenant slug format.
func ValidateSlug(slug string) error {
	if !slugPattern.MatchString(slug) {
		return apperrors.Validation("slug", "slug must be 3-50 characters of lowercase letters, digits and hyphens")
	}
	return nil
}

func (s *tenantService) Create(ctx context.Context, req *models.CreateTenantRequest) (*models.Tenant, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, apperrors.Validation("name", "name is required")
	}
	if err := ValidateSlug(req.Slug); err != nil {
		return nil, err
	}

	if _, err := s.tenantRepo.GetBySlug(ctx, req.Slug); err == nil {
		return nil, apperrors.Conflict("tenant slug already exists")
	} else if !apperrors.IsNotFound(err) {
		return nil, err
	}

	tenant := &models.Tenant{
		ID:       uuid.New(),
		Name:     name,
		Slug:     req.Slug,
		IsActive: true,
		Settings: models.JSONB{},
	}
	if err := s.tenantRepo.Create(ctx, tenant); err != nil {
		return nil, err
	}

	roles, err := s.rbacSvc.SeedTenantRoles(ctx, tenant.ID)
	if err != nil {
		return nil, err
	}

	if req.AdminEmail != "" {
		hash, err := HashPassword(req.AdminPassword)
		if err != nil {
			return nil, err
		}
		admin := &models.User{
			ID:           uuid.New(),
			TenantID:     tenant.ID,
			Email:        strings.ToLower(strings.TrimSpace(req.AdminEmail)),
			PasswordHash: hash,
			FirstName:    req.AdminFirstName,
			LastName:     req.AdminLastName,
			IsActive:     true,
		}
		if err := s.userRepo.Create(ctx, admin); err != nil {
			return nil, err
		}
		if err := s.userRoleRepo.Assign(ctx, tenant.ID, admin.ID, roles[models.RoleTenantAdmin].ID); err != nil {
			return nil, err
		}
	}

	changedBy := actorFromContext(ctx)
	s.auditSvc.LogEntityCreate(ctx, tenant.ID, "tenants", tenant.ID, changedBy, tenant)
	logger.FromContext(ctx).WithField("slug", tenant.Slug).Info("Tenant created")

	return tenant, nil
}

func (s *tenantService) GetByID(ctx context.Context, id uuid.UUID) (*models.Tenant, error) {
	return s.tenantRepo.GetByID(ctx, id)
}

func (s *tenantService) GetBySlug(ctx context.Context, slug string) (*models.Tenant, error) {
	if slug == "" {
		return nil, apperrors.Validation("slug", "slug is required")
	}
	return s.tenantRepo.GetBySlug(ctx, slug)
}

func (s *tenantService) Update(ctx context.Context, id uuid.UUID, req *models.UpdateTenantRequest) (*models.Tenant, error) {
	existing, err := s.tenantRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	before := *existing

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, apperrors.Validation("name", "name cannot be empty")
		}
		existing.Name = name
	}
	if req.IsActive != nil {
		existing.IsActive = *req.IsActive
	}
	if req.Settings != nil {
		existing.Settings = req.Settings
	}

	if err := s.tenantRepo.Update(ctx, existing); err != nil {
		return nil, err
	}
	s.auditSvc.LogEntityUpdate(ctx, existing.ID, "tenants", existing.ID, actorFromContext(ctx), before, existing)
	return existing, nil
}

// Deactivate disables the tenant and drops its cached data. Tenant rows are never removed.
func (s *tenantService) Deactivate(ctx context.Context, id uuid.UUID) error {
	existing, err := s.tenantRepo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.tenantRepo.Deactivate(ctx, id); err != nil {
		return err
	}
	if s.cacheSvc != nil {
		if err := s.cacheSvc.InvalidateTenantCache(ctx, id); err != nil {
			logger.FromContext(ctx).WithError(err).Warn("Failed to invalidate tenant cache")
		}
	}
	s.auditSvc.LogEntitySoftDelete(ctx, id, "tenants", id, actorFromContext(ctx), existing)
	return nil
}

func (s *tenantService) List(ctx context.Context, limit, offset int) ([]*models.Tenant, int, error) {
	limit, offset, err := common.ValidatePaginationParams(limit, offset)
	if err != nil {
		return nil, 0, apperrors.Validation("offset", err.Error())
	}
	return s.tenantRepo.List(ctx, limit, offset)
}

func (s *tenantService) ListActiveIDs(ctx context.Context) ([]uuid.UUID, error) {
	return s.tenantRepo.ListActiveIDs(ctx)
}

// actorFromContext returns the authenticated user id, if any, for audit records.
func actorFromContext(ctx context.Context) *uuid.UUID {
	if userID, ok := common.GetUserIDFromContext(ctx); ok {
		return &userID
	}
	return nil
}
