package repositories

import (
	"context"

	"github.com/google/uuid"

	"fireproof/internal/models"
)

type ExtinguisherTypeRepository interface {
	Create(ctx context.Context, t *models.ExtinguisherType) error
	GetByID(ctx context.Context, tenantID, id uuid.UUID) (*models.ExtinguisherType, error)
	GetByCode(ctx context.Context, tenantID uuid.UUID, code string) (*models.ExtinguisherType, error)
	Update(ctx context.Context, t *models.ExtinguisherType) error
	Delete(ctx context.Context, tenantID, id uuid.UUID) error
	List(ctx context.Context, tenantID uuid.UUID, limit, offset int) ([]*models.ExtinguisherType, int, error)
}

type extinguisherTypeRepo struct {
	db DBTX
}

func NewExtinguisherTypeRepo(db DBTX) ExtinguisherTypeRepository {
	return &extinguisherTypeRepo{db: db}
}

const extinguisherTypeColumns = `id, tenant_id, code, name, agent_type, monthly_inspection, annual_service_months,
	hydro_test_years, six_year_maintenance, created_at, updated_at`

func scanExtinguisherType(row interface{ Scan(...any) error }, extra ...any) (*models.ExtinguisherType, error) {
	t := &models.ExtinguisherType{}
	dest := []any{&t.ID, &t.TenantID, &t.Code, &t.Name, &t.AgentType, &t.MonthlyInspection, &t.AnnualServiceMonths,
		&t.HydroTestYears, &t.SixYearMaintenance, &t.CreatedAt, &t.UpdatedAt}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}
	return t, nil
}

func (r *extinguisherTypeRepo) Create(ctx context.Context, t *models.ExtinguisherType) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	query := `
		INSERT INTO extinguisher_types (id, tenant_id, code, name, agent_type, monthly_inspection, annual_service_months,
			hydro_test_years, six_year_maintenance, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW(), NOW())
		RETURNING created_at, updated_at
	`
	err := r.db.QueryRow(ctx, query, t.ID, t.TenantID, t.Code, t.Name, t.AgentType, t.MonthlyInspection,
		t.AnnualServiceMonths, t.HydroTestYears, t.SixYearMaintenance).Scan(&t.CreatedAt, &t.UpdatedAt)
	return mapError(err, "extinguisher type")
}

func (r *extinguisherTypeRepo) GetByID(ctx context.Context, tenantID, id uuid.UUID) (*models.ExtinguisherType, error) {
	query := `SELECT ` + extinguisherTypeColumns + ` FROM extinguisher_types WHERE tenant_id = $1 AND id = $2`
	t, err := scanExtinguisherType(r.db.QueryRow(ctx, query, tenantID, id))
	if err != nil {
		return nil, mapError(err, "extinguisher type")
	}
	return t, nil
}

func (r *extinguisherTypeRepo) GetByCode(ctx context.Context, tenantID uuid.UUID, code string) (*models.ExtinguisherType, error) {
	query := `SELECT ` + extinguisherTypeColumns + ` FROM extinguisher_types WHERE tenant_id = $1 AND code = $2`
	t, err := scanExtinguisherType(r.db.QueryRow(ctx, query, tenantID, code))
	if err != nil {
		return nil, mapError(err, "extinguisher type")
	}
	return t, nil
}

func (r *extinguisherTypeRepo) Update(ctx context.Context, t *models.ExtinguisherType) error {
	query := `
		UPDATE extinguisher_types
		SET code = $1, name = $2, agent_type = $3, monthly_inspection = $4, annual_service_months = $5,
			hydro_test_years = $6, six_year_maintenance = $7, updated_at = NOW()
		WHERE tenant_id = $8 AND id = $9
	`
	tag, err := r.db.Exec(ctx, query, t.Code, t.Name, t.AgentType, t.MonthlyInspection, t.AnnualServiceMonths,
		t.HydroTestYears, t.SixYearMaintenance, t.TenantID, t.ID)
	if err != nil {
		return mapError(err, "extinguisher type")
	}
	return requireAffected(tag, "extinguisher type")
}

// Delete fails with a validation error while extinguishers still reference the type.
func (r *extinguisherTypeRepo) Delete(ctx context.Context, tenantID, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM extinguisher_types WHERE tenant_id = $1 AND id = $2`, tenantID, id)
	if err != nil {
		return mapError(err, "extinguisher type")
	}
	return requireAffected(tag, "extinguisher type")
}

func (r *extinguisherTypeRepo) List(ctx context.Context, tenantID uuid.UUID, limit, offset int) ([]*models.ExtinguisherType, int, error) {
	query := `
		SELECT ` + extinguisherTypeColumns + `, COUNT(*) OVER()
		FROM extinguisher_types
		WHERE tenant_id = $1
		ORDER BY code
		LIMIT $2 OFFSET $3
	`
	rows, err := r.db.Query(ctx, query, tenantID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var types []*models.ExtinguisherType
	total := 0
	for rows.Next() {
		t, err := scanExtinguisherType(rows, &total)
		if err != nil {
			return nil, 0, err
		}
		types = append(types, t)
	}
	return types, total, rows.Err()
}
