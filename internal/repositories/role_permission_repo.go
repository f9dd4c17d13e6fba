package repositories

import (
	"context"

	"github.com/google/uuid"
)

type RolePermissionRepository interface {
	// Grant attaches the named permissions to a role in the tenant.
	Grant(ctx context.Context, tenantID, roleID uuid.UUID, permissionNames []string) error
	// ListForUser returns the distinct permission names a user holds in a tenant.
	ListForUser(ctx context.Context, tenantID, userID uuid.UUID) ([]string, error)
}

type rolePermissionRepo struct {
	db DBTX
}

func NewRolePermissionRepo(db DBTX) RolePermissionRepository {
	return &rolePermissionRepo{db: db}
}

func (r *rolePermissionRepo) Grant(ctx context.Context, tenantID, roleID uuid.UUID, permissionNames []string) error {
	query := `
		INSERT INTO role_permissions (role_id, permission_id)
		SELECT $1, p.id
		FROM permissions p
		WHERE p.name = ANY($2)
		AND EXISTS (SELECT 1 FROM roles WHERE id = $1 AND tenant_id = $3)
		ON CONFLICT (role_id, permission_id) DO NOTHING
	`
	_, err := r.db.Exec(ctx, query, roleID, permissionNames, tenantID)
	return err
}

func (r *rolePermissionRepo) ListForUser(ctx context.Context, tenantID, userID uuid.UUID) ([]string, error) {
	query := `
		SELECT DISTINCT p.name
		FROM user_roles ur
		JOIN roles ro ON ro.id = ur.role_id AND ro.tenant_id = $1
		JOIN role_permissions rp ON rp.role_id = ro.id
		JOIN permissions p ON p.id = rp.permission_id
		WHERE ur.tenant_id = $1 AND ur.user_id = $2
		ORDER BY p.name
	`
	rows, err := r.db.Query(ctx, query, tenantID, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}
