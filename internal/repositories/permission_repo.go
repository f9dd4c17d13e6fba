package repositories

import (
	"context"

	"fireproof/internal/models"
)

type PermissionRepository interface {
	// Ensure inserts missing permissions and refreshes descriptions.
	Ensure(ctx context.Context, permissions []models.Permission) error
	List(ctx context.Context) ([]*models.Permission, error)
}

type permissionRepo struct {
	db DBTX
}

func NewPermissionRepo(db DBTX) PermissionRepository {
	return &permissionRepo{db: db}
}

func (r *permissionRepo) Ensure(ctx context.Context, permissions []models.Permission) error {
	query := `
		INSERT INTO permissions (name, description)
		VALUES ($1, $2)
		ON CONFLICT (name) DO UPDATE SET description = EXCLUDED.description
	`
	for _, p := range permissions {
		if _, err := r.db.Exec(ctx, query, p.Name, p.Description); err != nil {
			return err
		}
	}
	return nil
}

func (r *permissionRepo) List(ctx context.Context) ([]*models.Permission, error) {
	rows, err := r.db.Query(ctx, `SELECT id, name, description FROM permissions ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var permissions []*models.Permission
	for rows.Next() {
		p := &models.Permission{}
		if err := rows.Scan(&p.ID, &p.Name, &p.Description); err != nil {
			return nil, err
		}
		permissions = append(permissions, p)
	}
	return permissions, rows.Err()
}
