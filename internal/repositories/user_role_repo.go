package repositories

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type UserRoleRepository interface {
	Assign(ctx context.Context, tenantID, userID, roleID uuid.UUID) error
	// Replace swaps the user's role set for roleIDs in one transaction.
	Replace(ctx context.Context, tenantID, userID uuid.UUID, roleIDs []uuid.UUID) error
	ListRoleNames(ctx context.Context, tenantID, userID uuid.UUID) ([]string, error)
}

type userRoleRepo struct {
	db DBTX
}

func NewUserRoleRepo(db DBTX) UserRoleRepository {
	return &userRoleRepo{db: db}
}

const assignUserRoleSQL = `
	INSERT INTO user_roles (user_id, role_id, tenant_id, created_at)
	SELECT $1, $2, $3, NOW()
	WHERE EXISTS (SELECT 1 FROM users WHERE id = $1 AND tenant_id = $3)
	AND EXISTS (SELECT 1 FROM roles WHERE id = $2 AND tenant_id = $3)
	ON CONFLICT (user_id, role_id) DO NOTHING
`

func (r *userRoleRepo) Assign(ctx context.Context, tenantID, userID, roleID uuid.UUID) error {
	_, err := r.db.Exec(ctx, assignUserRoleSQL, userID, roleID, tenantID)
	return err
}

func (r *userRoleRepo) Replace(ctx context.Context, tenantID, userID uuid.UUID, roleIDs []uuid.UUID) error {
	return pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM user_roles WHERE tenant_id = $1 AND user_id = $2`, tenantID, userID); err != nil {
			return err
		}
		for _, roleID := range roleIDs {
			if _, err := tx.Exec(ctx, assignUserRoleSQL, userID, roleID, tenantID); err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *userRoleRepo) ListRoleNames(ctx context.Context, tenantID, userID uuid.UUID) ([]string, error) {
	query := `
		SELECT ro.name
		FROM user_roles ur
		JOIN roles ro ON ro.id = ur.role_id
		WHERE ur.tenant_id = $1 AND ur.user_id = $2
		ORDER BY ro.name
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
