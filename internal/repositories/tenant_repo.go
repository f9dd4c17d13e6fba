package repositories

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"fireproof/internal/models"
)

type TenantRepository interface {
	Create(ctx context.Context, tenant *models.Tenant) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Tenant, error)
	GetBySlug(ctx context.Context, slug string) (*models.Tenant, error)
	Update(ctx context.Context, tenant *models.Tenant) error
	Deactivate(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, limit, offset int) ([]*models.Tenant, int, error)
	ListActiveIDs(ctx context.Context) ([]uuid.UUID, error)
}

type tenantRepo struct {
	db DBTX
}

func NewTenantRepo(db DBTX) TenantRepository {
	return &tenantRepo{db: db}
}

const tenantColumns = `id, name, slug, is_active, settings, created_at, updated_at`

func scanTenant(row interface{ Scan(...any) error }) (*models.Tenant, error) {
	t := &models.Tenant{}
	var settings []byte
	if err := row.Scan(&t.ID, &t.Name, &t.Slug, &t.IsActive, &settings, &t.CreatedAt, &t.UpdatedAt); err != nil {
		return nil, err
	}
	if len(settings) > 0 {
		if err := json.Unmarshal(settings, &t.Settings); err != nil {
			return nil, fmt.Errorf("failed to unmarshal tenant settings: %w", err)
		}
	}
	return t, nil
}

func (r *tenantRepo) Create(ctx context.Context, tenant *models.Tenant) error {
	if tenant.ID == uuid.Nil {
		tenant.ID = uuid.New()
	}
	if tenant.Settings == nil {
		tenant.Settings = models.JSONB{}
	}
	settings, err := json.Marshal(tenant.Settings)
	if err != nil {
		return fmt.Errorf("failed to marshal tenant settings: %w", err)
	}

	query := `
		INSERT INTO tenants (id, name, slug, is_active, settings, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW(), NOW())
		RETURNING created_at, updated_at
	`
	err = r.db.QueryRow(ctx, query, tenant.ID, tenant.Name, tenant.Slug, tenant.IsActive, settings).
		Scan(&tenant.CreatedAt, &tenant.UpdatedAt)
	return mapError(err, "tenant")
}

func (r *tenantRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Tenant, error) {
	query := `SELECT ` + tenantColumns + ` FROM tenants WHERE id = $1`
	t, err := scanTenant(r.db.QueryRow(ctx, query, id))
	if err != nil {
		return nil, mapError(err, "tenant")
	}
	return t, nil
}

func (r *tenantRepo) GetBySlug(ctx context.Context, slug string) (*models.Tenant, error) {
	query := `SELECT ` + tenantColumns + ` FROM tenants WHERE slug = $1`
	t, err := scanTenant(r.db.QueryRow(ctx, query, slug))
	if err != nil {
		return nil, mapError(err, "tenant")
	}
	return t, nil
}

func (r *tenantRepo) Update(ctx context.Context, tenant *models.Tenant) error {
	settings, err := json.Marshal(tenant.Settings)
	if err != nil {
		return fmt.Errorf("failed to marshal tenant settings: %w", err)
	}
	query := `
		UPDATE tenants
		SET name = $1, is_active = $2, settings = $3, updated_at = NOW()
		WHERE id = $4
	`
	tag, err := r.db.Exec(ctx, query, tenant.Name, tenant.IsActive, settings, tenant.ID)
	if err != nil {
		return mapError(err, "tenant")
	}
	return requireAffected(tag, "tenant")
}

func (r *tenantRepo) Deactivate(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `UPDATE tenants SET is_active = FALSE, updated_at = NOW() WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return requireAffected(tag, "tenant")
}

func (r *tenantRepo) List(ctx context.Context, limit, offset int) ([]*models.Tenant, int, error) {
	query := `
		SELECT ` + tenantColumns + `, COUNT(*) OVER()
		FROM tenants
		ORDER BY name
		LIMIT $1 OFFSET $2
	`
	rows, err := r.db.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var tenants []*models.Tenant
	total := 0
	for rows.Next() {
		t := &models.Tenant{}
		var settings []byte
		if err := rows.Scan(&t.ID, &t.Name, &t.Slug, &t.IsActive, &settings, &t.CreatedAt, &t.UpdatedAt, &total); err != nil {
			return nil, 0, err
		}
		if len(settings) > 0 {
			_ = json.Unmarshal(settings, &t.Settings)
		}
		tenants = append(tenants, t)
	}
	return tenants, total, rows.Err()
}

func (r *tenantRepo) ListActiveIDs(ctx context.Context) ([]uuid.UUID, error) {
	rows, err := r.db.Query(ctx, `SELECT id FROM tenants WHERE is_active ORDER BY created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
