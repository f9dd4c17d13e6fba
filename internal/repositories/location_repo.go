package repositories

import (
	"context"

	"github.com/google/uuid"

	"fireproof/internal/models"
)

type LocationRepository interface {
	Create(ctx context.Context, location *models.Location) error
	GetByID(ctx context.Context, tenantID, id uuid.UUID) (*models.Location, error)
	GetByCode(ctx context.Context, tenantID uuid.UUID, code string) (*models.Location, error)
	Update(ctx context.Context, location *models.Location) error
	Delete(ctx context.Context, tenantID, id uuid.UUID) error
	List(ctx context.Context, tenantID uuid.UUID, filter models.LocationFilter) ([]*models.Location, int, error)
	CountActiveExtinguishers(ctx context.Context, tenantID, id uuid.UUID) (int, error)
}

type locationRepo struct {
	db DBTX
}

func NewLocationRepo(db DBTX) LocationRepository {
	return &locationRepo{db: db}
}

const locationColumns = `id, tenant_id, code, name, address_line1, address_line2, city, state, postal_code, country,
	latitude, longitude, contact_name, contact_phone, contact_email, is_active, created_at, updated_at`

func scanLocation(row interface{ Scan(...any) error }, extra ...any) (*models.Location, error) {
	l := &models.Location{}
	dest := []any{&l.ID, &l.TenantID, &l.Code, &l.Name, &l.AddressLine1, &l.AddressLine2, &l.City, &l.State,
		&l.PostalCode, &l.Country, &l.Latitude, &l.Longitude, &l.ContactName, &l.ContactPhone, &l.ContactEmail,
		&l.IsActive, &l.CreatedAt, &l.UpdatedAt}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}
	return l, nil
}

func (r *locationRepo) Create(ctx context.Context, l *models.Location) error {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	query := `
		INSERT INTO locations (id, tenant_id, code, name, address_line1, address_line2, city, state, postal_code, country,
			latitude, longitude, contact_name, contact_phone, contact_email, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, NOW(), NOW())
		RETURNING created_at, updated_at
	`
	err := r.db.QueryRow(ctx, query, l.ID, l.TenantID, l.Code, l.Name, l.AddressLine1, l.AddressLine2, l.City, l.State,
		l.PostalCode, l.Country, l.Latitude, l.Longitude, l.ContactName, l.ContactPhone, l.ContactEmail, l.IsActive).
		Scan(&l.CreatedAt, &l.UpdatedAt)
	return mapError(err, "location")
}

func (r *locationRepo) GetByID(ctx context.Context, tenantID, id uuid.UUID) (*models.Location, error) {
	query := `SELECT ` + locationColumns + ` FROM locations WHERE tenant_id = $1 AND id = $2 AND deleted_at IS NULL`
	l, err := scanLocation(r.db.QueryRow(ctx, query, tenantID, id))
	if err != nil {
		return nil, mapError(err, "location")
	}
	return l, nil
}

func (r *locationRepo) GetByCode(ctx context.Context, tenantID uuid.UUID, code string) (*models.Location, error) {
	query := `SELECT ` + locationColumns + ` FROM locations WHERE tenant_id = $1 AND code = $2 AND deleted_at IS NULL`
	l, err := scanLocation(r.db.QueryRow(ctx, query, tenantID, code))
	if err != nil {
		return nil, mapError(err, "location")
	}
	return l, nil
}

func (r *locationRepo) Update(ctx context.Context, l *models.Location) error {
	query := `
		UPDATE locations
		SET code = $1, name = $2, address_line1 = $3, address_line2 = $4, city = $5, state = $6, postal_code = $7,
			country = $8, latitude = $9, longitude = $10, contact_name = $11, contact_phone = $12, contact_email = $13,
			is_active = $14, updated_at = NOW()
		WHERE tenant_id = $15 AND id = $16 AND deleted_at IS NULL
	`
	tag, err := r.db.Exec(ctx, query, l.Code, l.Name, l.AddressLine1, l.AddressLine2, l.City, l.State, l.PostalCode,
		l.Country, l.Latitude, l.Longitude, l.ContactName, l.ContactPhone, l.ContactEmail, l.IsActive, l.TenantID, l.ID)
	if err != nil {
		return mapError(err, "location")
	}
	return requireAffected(tag, "location")
}

func (r *locationRepo) Delete(ctx context.Context, tenantID, id uuid.UUID) error {
	query := `UPDATE locations SET deleted_at = NOW(), is_active = FALSE WHERE tenant_id = $1 AND id = $2 AND deleted_at IS NULL`
	tag, err := r.db.Exec(ctx, query, tenantID, id)
	if err != nil {
		return err
	}
	return requireAffected(tag, "location")
}

func (r *locationRepo) List(ctx context.Context, tenantID uuid.UUID, filter models.LocationFilter) ([]*models.Location, int, error) {
	w := newWhere("tenant_id = $1 AND deleted_at IS NULL", tenantID)
	if filter.Search != "" {
		like := "%" + filter.Search + "%"
		w.add("(code ILIKE ? OR name ILIKE ?)", like, like)
	}
	if filter.IsActive != nil {
		w.add("is_active = ?", *filter.IsActive)
	}

	query := `
		SELECT ` + locationColumns + `, COUNT(*) OVER()
		FROM locations
		` + w.sql() + `
		ORDER BY code
		` + w.page(filter.Limit, filter.Offset)

	rows, err := r.db.Query(ctx, query, w.args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var locations []*models.Location
	total := 0
	for rows.Next() {
		l, err := scanLocation(rows, &total)
		if err != nil {
			return nil, 0, err
		}
		locations = append(locations, l)
	}
	return locations, total, rows.Err()
}

func (r *locationRepo) CountActiveExtinguishers(ctx context.Context, tenantID, id uuid.UUID) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM extinguishers
		WHERE tenant_id = $1 AND location_id = $2 AND deleted_at IS NULL AND status <> 'Retired'
	`
	var count int
	err := r.db.QueryRow(ctx, query, tenantID, id).Scan(&count)
	return count, err
}
