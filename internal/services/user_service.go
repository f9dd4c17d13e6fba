package services

import (
	"context"
	"strings"

	"fireproof/internal/apperrors"
	"fireproof/internal/common"
	"fireproof/internal/models"
	"fireproof/internal/repositories"

	"github.com/google/uuid"
)

type UserService interface {
	Create(ctx context.Context, tenantID uuid.UUID, req *models.CreateUserRequest) (*models.User, error)
	GetByID(ctx context.Context, tenantID, id uuid.UUID) (*models.User, error)
	List(ctx context.Context, tenantID uuid.UUID, filter models.UserFilter) ([]*models.User, int, error)
	Update(ctx context.Context, tenantID, id uuid.UUID, req *models.UpdateUserRequest) (*models.User, error)
	Delete(ctx context.Context, tenantID, id uuid.UUID) error
	// AssignRoles replaces the user's roles and drops their cached permissions.
	AssignRoles(ctx context.Context, tenantID, userID uuid.UUID, roleIDs []uuid.UUID) ([]string, error)
}

type userService struct {
	userRepo     repositories.UserRepository
	roleRepo     repositories.RoleRepository
	userRoleRepo repositories.UserRoleRepository
	rbacSvc      RBACService
	auditSvc     AuditLogsService
}

func NewUserService(
	userRepo repositories.UserRepository,
	roleRepo repositories.RoleRepository,
	userRoleRepo repositories.UserRoleRepository,
	rbacSvc RBACService,
	auditSvc AuditLogsService,
) UserService {
	return &userService{
		userRepo:     userRepo,
		roleRepo:     roleRepo,
		userRoleRepo: userRoleRepo,
		rbacSvc:      rbacSvc,
		auditSvc:     auditSvc,
	}
}

func (s *userService) Create(ctx context.Context, tenantID uuid.UUID, req *models.CreateUserRequest) (*models.User, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" {
		return nil, apperrors.Validation("email", "email is required")
	}

	roleNames := req.Roles
	if len(roleNames) == 0 {
		roleNames = []string{models.RoleViewer}
	}
	roleIDs := make([]uuid.UUID, 0, len(roleNames))
	for _, name := range roleNames {
		role, err := s.roleRepo.GetByName(ctx, tenantID, name)
		if err != nil {
			if apperrors.IsNotFound(err) {
				return nil, apperrors.Validation("roles", "unknown role "+name)
			}
			return nil, err
		}
		roleIDs = append(roleIDs, role.ID)
	}

	hash, err := HashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		ID:            uuid.New(),
		TenantID:      tenantID,
		Email:         email,
		PasswordHash:  hash,
		FirstName:     strings.TrimSpace(req.FirstName),
		LastName:      strings.TrimSpace(req.LastName),
		Phone:         req.Phone,
		IsActive:      true,
		IsSystemAdmin: req.SystemAdmin,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}
	for _, roleID := range roleIDs {
		if err := s.userRoleRepo.Assign(ctx, tenantID, user.ID, roleID); err != nil {
			return nil, err
		}
	}

	s.auditSvc.LogEntityCreate(ctx, tenantID, "users", user.ID, actorFromContext(ctx), user)
	return user, nil
}

func (s *userService) GetByID(ctx context.Context, tenantID, id uuid.UUID) (*models.User, error) {
	return s.userRepo.GetByID(ctx, tenantID, id)
}

func (s *userService) List(ctx context.Context, tenantID uuid.UUID, filter models.UserFilter) ([]*models.User, int, error) {
	filter.Search = common.SanitizeSearchQuery(filter.Search)
	return s.userRepo.List(ctx, tenantID, filter)
}

func (s *userService) Update(ctx context.Context, tenantID, id uuid.UUID, req *models.UpdateUserRequest) (*models.User, error) {
	user, err := s.userRepo.GetByID(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	before := *user

	if req.FirstName != nil {
		user.FirstName = strings.TrimSpace(*req.FirstName)
	}
	if req.LastName != nil {
		user.LastName = strings.TrimSpace(*req.LastName)
	}
	if req.Phone != nil {
		user.Phone = req.Phone
	}
	if req.IsActive != nil {
		if !*req.IsActive && isSelf(ctx, id) {
			return nil, apperrors.Validation("is_active", "you cannot deactivate your own account")
		}
		user.IsActive = *req.IsActive
	}

	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, err
	}
	if req.Password != nil {
		hash, err := HashPassword(*req.Password)
		if err != nil {
			return nil, err
		}
		if err := s.userRepo.UpdatePassword(ctx, tenantID, id, hash); err != nil {
			return nil, err
		}
	}

	s.auditSvc.LogEntityUpdate(ctx, tenantID, "users", id, actorFromContext(ctx), before, user)
	return user, nil
}

func (s *userService) Delete(ctx context.Context, tenantID, id uuid.UUID) error {
	if isSelf(ctx, id) {
		return apperrors.Validation("id", "you cannot delete your own account")
	}
	user, err := s.userRepo.GetByID(ctx, tenantID, id)
	if err != nil {
		return err
	}
	if err := s.userRepo.Delete(ctx, tenantID, id); err != nil {
		return err
	}
	if err := s.rbacSvc.InvalidateUser(ctx, tenantID, id); err != nil {
		return err
	}
	s.auditSvc.LogEntitySoftDelete(ctx, tenantID, "users", id, actorFromContext(ctx), user)
	return nil
}

func (s *userService) AssignRoles(ctx context.Context, tenantID, userID uuid.UUID, roleIDs []uuid.UUID) ([]string, error) {
	if len(roleIDs) == 0 {
		return nil, apperrors.Validation("role_ids", "at least one role is required")
	}
	if _, err := s.userRepo.GetByID(ctx, tenantID, userID); err != nil {
		return nil, err
	}
	// Roles from another tenant look like missing roles
	for _, roleID := range roleIDs {
		if _, err := s.roleRepo.GetByID(ctx, tenantID, roleID); err != nil {
			return nil, err
		}
	}

	before, err := s.userRoleRepo.ListRoleNames(ctx, tenantID, userID)
	if err != nil {
		return nil, err
	}
	if err := s.userRoleRepo.Replace(ctx, tenantID, userID, roleIDs); err != nil {
		return nil, err
	}
	if err := s.rbacSvc.InvalidateUser(ctx, tenantID, userID); err != nil {
		return nil, err
	}
	after, err := s.userRoleRepo.ListRoleNames(ctx, tenantID, userID)
	if err != nil {
		return nil, err
	}

	s.auditSvc.LogEntityUpdate(ctx, tenantID, "user_roles", userID, actorFromContext(ctx),
		map[string]any{"roles": before}, map[string]any{"roles": after})
	return after, nil
}

func isSelf(ctx context.Context, id uuid.UUID) bool {
	userID, ok := common.GetUserIDFromContext(ctx)
	return ok && userID == id
}
