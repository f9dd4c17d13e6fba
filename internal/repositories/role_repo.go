package repositories

import (
	"context"

	"github.com/google/uuid"

	"fireproof/internal/models"
)

type RoleRepository interface {
	Create(ctx context.Context, role *models.Role) error
	GetByID(ctx context.Context, tenantID, id uuid.UUID) (*models.Role, error)
	GetByName(ctx context.Context, tenantID uuid.UUID, name string) (*models.Role, error)
	List(ctx context.Context, tenantID uuid.UUID) ([]*models.Role, error)
}

type roleRepo struct {
	db DBTX
}

func NewRoleRepo(db DBTX) RoleRepository {
	return &roleRepo{db: db}
}

func (r *roleRepo) Create(ctx context.Context, role *models.Role) error {
	if role.ID == uuid.Nil {
		role.ID = uuid.New()
	}
	query := `
		INSERT INTO roles (id, tenant_id, name, description, is_system, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW(), NOW())
		ON CONFLICT (tenant_id, name) DO UPDATE SET description = EXCLUDED.description
		RETURNING id, created_at, updated_at
	`
	err := r.db.QueryRow(ctx, query, role.ID, role.TenantID, role.Name, role.Description, role.IsSystem).
		Scan(&role.ID, &role.CreatedAt, &role.UpdatedAt)
	return mapError(err, "role")
}

func (r *roleRepo) GetByID(ctx context.Context, tenantID, id uuid.UUID) (*models.Role, error) {
	role := &models.Role{}
	query := `
		SELECT id, tenant_id, name, description, is_system, created_at, updated_at
		FROM roles
		WHERE tenant_id = $1 AND id = $2
	`
	err := r.db.QueryRow(ctx, query, tenantID, id).
		Scan(&role.ID, &role.TenantID, &role.Name, &role.Description, &role.IsSystem, &role.CreatedAt, &role.UpdatedAt)
	if err != nil {
		return nil, mapError(err, "role")
	}
	return role, nil
}

func (r *roleRepo) GetByName(ctx context.Context, tenantID uuid.UUID, name string) (*models.Role, error) {
	role := &models.Role{}
	query := `
		SELECT id, tenant_id, name, description, is_system, created_at, updated_at
		FROM roles
		WHERE tenant_id = $1 AND name = $2
	`
	err := r.db.QueryRow(ctx, query, tenantID, name).
		Scan(&role.ID, &role.TenantID, &role.Name, &role.Description, &role.IsSystem, &role.CreatedAt, &role.UpdatedAt)
	if err != nil {
		return nil, mapError(err, "role")
	}
	return role, nil
}

// List returns the tenant's roles with their permission names.
func (r *roleRepo) List(ctx context.Context, tenantID uuid.UUID) ([]*models.Role, error) {
	query := `
		SELECT r.id, r.tenant_id, r.name, r.description, r.is_system, r.created_at, r.updated_at,
			COALESCE(array_agg(p.name ORDER BY p.name) FILTER (WHERE p.name IS NOT NULL), '{}')
		FROM roles r
		LEFT JOIN role_permissions rp ON rp.role_id = r.id
		LEFT JOIN permissions p ON p.id = rp.permission_id
		WHERE r.tenant_id = $1
		GROUP BY r.id
		ORDER BY r.name
	`
	rows, err := r.db.Query(ctx, query, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var roles []*models.Role
	for rows.Next() {
		role := &models.Role{}
		if err := rows.Scan(&role.ID, &role.TenantID, &role.Name, &role.Description, &role.IsSystem,
			&role.CreatedAt, &role.UpdatedAt, &role.Permissions); err != nil {
			return nil, err
		}
		roles = append(roles, role)
	}
	return roles, rows.Err()
}
