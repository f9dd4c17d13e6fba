package repositories

import (
	"context"

	"github.com/google/uuid"

	"fireproof/internal/models"
)

type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, tenantID, id uuid.UUID) (*models.User, error)
	Update(ctx context.Context, user *models.User) error
	UpdatePassword(ctx context.Context, tenantID, id uuid.UUID, passwordHash string) error
	Delete(ctx context.Context, tenantID, id uuid.UUID) error
	List(ctx context.Context, tenantID uuid.UUID, filter models.UserFilter) ([]*models.User, int, error)
	GetByEmail(ctx context.Context, tenantID uuid.UUID, email string) (*models.User, error)
	// FindByEmail returns every active account with this email across tenants.
	// Only login uses it, to resolve the tenant when no slug is given.
	FindByEmail(ctx context.Context, email string) ([]*models.User, error)
	GetByExternalID(ctx context.Context, externalID string) (*models.User, error)
	TouchLastLogin(ctx context.Context, tenantID, id uuid.UUID) error
}

type userRepo struct {
	db DBTX
}

func NewUserRepo(db DBTX) UserRepository {
	return &userRepo{db: db}
}

const userColumns = `id, tenant_id, email, password_hash, first_name, last_name, phone, external_id,
	is_active, is_system_admin, last_login_at, created_at, updated_at`

func scanUser(row interface{ Scan(...any) error }, extra ...any) (*models.User, error) {
	u := &models.User{}
	dest := []any{&u.ID, &u.TenantID, &u.Email, &u.PasswordHash, &u.FirstName, &u.LastName, &u.Phone, &u.ExternalID,
		&u.IsActive, &u.IsSystemAdmin, &u.LastLoginAt, &u.CreatedAt, &u.UpdatedAt}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}
	return u, nil
}

func (r *userRepo) Create(ctx context.Context, user *models.User) error {
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	query := `
		INSERT INTO users (id, tenant_id, email, password_hash, first_name, last_name, phone, external_id,
			is_active, is_system_admin, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NOW(), NOW())
		RETURNING created_at, updated_at
	`
	err := r.db.QueryRow(ctx, query, user.ID, user.TenantID, user.Email, user.PasswordHash, user.FirstName,
		user.LastName, user.Phone, user.ExternalID, user.IsActive, user.IsSystemAdmin).
		Scan(&user.CreatedAt, &user.UpdatedAt)
	return mapError(err, "user")
}

func (r *userRepo) GetByID(ctx context.Context, tenantID, id uuid.UUID) (*models.User, error) {
	query := `
		SELECT ` + userColumns + `
		FROM users
		WHERE tenant_id = $1 AND id = $2 AND deleted_at IS NULL
	`
	user, err := scanUser(r.db.QueryRow(ctx, query, tenantID, id))
	if err != nil {
		return nil, mapError(err, "user")
	}
	return user, nil
}

func (r *userRepo) GetByEmail(ctx context.Context, tenantID uuid.UUID, email string) (*models.User, error) {
	query := `
		SELECT ` + userColumns + `
		FROM users
		WHERE tenant_id = $1 AND lower(email) = lower($2) AND deleted_at IS NULL
	`
	user, err := scanUser(r.db.QueryRow(ctx, query, tenantID, email))
	if err != nil {
		return nil, mapError(err, "user")
	}
	return user, nil
}

func (r *userRepo) FindByEmail(ctx context.Context, email string) ([]*models.User, error) {
	query := `
		SELECT ` + userColumns + `
		FROM users
		WHERE lower(email) = lower($1) AND deleted_at IS NULL AND is_active
	`
	rows, err := r.db.Query(ctx, query, email)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []*models.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	return users, rows.Err()
}

func (r *userRepo) GetByExternalID(ctx context.Context, externalID string) (*models.User, error) {
	query := `
		SELECT ` + userColumns + `
		FROM users
		WHERE external_id = $1 AND deleted_at IS NULL
	`
	user, err := scanUser(r.db.QueryRow(ctx, query, externalID))
	if err != nil {
		return nil, mapError(err, "user")
	}
	return user, nil
}

func (r *userRepo) Update(ctx context.Context, user *models.User) error {
	query := `
		UPDATE users
		SET first_name = $1, last_name = $2, phone = $3, is_active = $4, updated_at = NOW()
		WHERE tenant_id = $5 AND id = $6 AND deleted_at IS NULL
	`
	tag, err := r.db.Exec(ctx, query, user.FirstName, user.LastName, user.Phone, user.IsActive, user.TenantID, user.ID)
	if err != nil {
		return mapError(err, "user")
	}
	return requireAffected(tag, "user")
}

func (r *userRepo) UpdatePassword(ctx context.Context, tenantID, id uuid.UUID, passwordHash string) error {
	query := `UPDATE users SET password_hash = $1, updated_at = NOW() WHERE tenant_id = $2 AND id = $3 AND deleted_at IS NULL`
	tag, err := r.db.Exec(ctx, query, passwordHash, tenantID, id)
	if err != nil {
		return err
	}
	return requireAffected(tag, "user")
}

func (r *userRepo) Delete(ctx context.Context, tenantID, id uuid.UUID) error {
	query := `UPDATE users SET deleted_at = NOW(), is_active = FALSE WHERE tenant_id = $1 AND id = $2 AND deleted_at IS NULL`
	tag, err := r.db.Exec(ctx, query, tenantID, id)
	if err != nil {
		return err
	}
	return requireAffected(tag, "user")
}

func (r *userRepo) List(ctx context.Context, tenantID uuid.UUID, filter models.UserFilter) ([]*models.User, int, error) {
	w := newWhere("tenant_id = $1 AND deleted_at IS NULL", tenantID)
	if filter.Search != "" {
		like := "%" + filter.Search + "%"
		w.add("(email ILIKE ? OR first_name ILIKE ? OR last_name ILIKE ?)", like, like, like)
	}
	if filter.IsActive != nil {
		w.add("is_active = ?", *filter.IsActive)
	}

	query := `
		SELECT ` + userColumns + `, COUNT(*) OVER()
		FROM users
		` + w.sql() + `
		ORDER BY created_at DESC
		` + w.page(filter.Limit, filter.Offset)

	rows, err := r.db.Query(ctx, query, w.args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var users []*models.User
	total := 0
	for rows.Next() {
		user, err := scanUser(rows, &total)
		if err != nil {
			return nil, 0, err
		}
		users = append(users, user)
	}
	return users, total, rows.Err()
}

func (r *userRepo) TouchLastLogin(ctx context.Context, tenantID, id uuid.UUID) error {
	_, err := r.db.Exec(ctx, `UPDATE users SET last_login_at = NOW() WHERE tenant_id = $1 AND id = $2`, tenantID, id)
	return err
}
