package repositories

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"fireproof/internal/models"
)

type DeficiencyRepository interface {
	Create(ctx context.Context, d *models.Deficiency) error
	GetByID(ctx context.Context, tenantID, id uuid.UUID) (*models.Deficiency, error)
	Update(ctx context.Context, d *models.Deficiency) error
	List(ctx context.Context, tenantID uuid.UUID, filter models.DeficiencyFilter) ([]*models.Deficiency, int, error)
	ListByInspection(ctx context.Context, tenantID, inspectionID uuid.UUID) ([]models.Deficiency, error)
	// CountOpenSevere counts open High or Critical deficiencies on an extinguisher, excluding one id.
	CountOpenSevere(ctx context.Context, tenantID, extinguisherID, excludeID uuid.UUID) (int, error)
	// ListOverdue returns open deficiencies across all tenants whose due date is before asOf.
	ListOverdue(ctx context.Context, asOf time.Time) ([]*models.Deficiency, error)
	ForEach(ctx context.Context, tenantID uuid.UUID, filter models.DeficiencyFilter, fn func(*models.Deficiency) error) error
}

type deficiencyRepo struct {
	db DBTX
}

func NewDeficiencyRepo(db DBTX) DeficiencyRepository {
	return &deficiencyRepo{db: db}
}

const deficiencyColumns = `d.id, d.tenant_id, d.inspection_id, d.extinguisher_id, d.item_id, d.deficiency_type, d.severity,
	d.status, d.description, d.action_required, d.estimated_cost, d.assigned_to, d.due_date, d.resolved_at,
	d.resolved_by, d.resolution_notes, d.created_by, d.created_at, d.updated_at`

func scanDeficiency(row interface{ Scan(...any) error }, extra ...any) (*models.Deficiency, error) {
	d := &models.Deficiency{}
	dest := []any{&d.ID, &d.TenantID, &d.InspectionID, &d.ExtinguisherID, &d.ItemID, &d.DeficiencyType, &d.Severity,
		&d.Status, &d.Description, &d.ActionRequired, &d.EstimatedCost, &d.AssignedTo, &d.DueDate, &d.ResolvedAt,
		&d.ResolvedBy, &d.ResolutionNotes, &d.CreatedBy, &d.CreatedAt, &d.UpdatedAt}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}
	return d, nil
}

type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// insertDeficiency is shared with the inspection completion transaction.
func insertDeficiency(ctx context.Context, db execer, d *models.Deficiency) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	if d.Status == "" {
		d.Status = models.DeficiencyOpen
	}
	now := time.Now().UTC()
	if d.CreatedAt.IsZero() {
		d.CreatedAt = now
	}
	d.UpdatedAt = d.CreatedAt

	query := `
		INSERT INTO deficiencies (id, tenant_id, inspection_id, extinguisher_id, item_id, deficiency_type, severity,
			status, description, action_required, estimated_cost, assigned_to, due_date, created_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
	`
	_, err := db.Exec(ctx, query, d.ID, d.TenantID, d.InspectionID, d.ExtinguisherID, d.ItemID, d.DeficiencyType,
		d.Severity, d.Status, d.Description, d.ActionRequired, d.EstimatedCost, d.AssignedTo, d.DueDate, d.CreatedBy,
		d.CreatedAt, d.UpdatedAt)
	return mapError(err, "deficiency")
}

func (r *deficiencyRepo) Create(ctx context.Context, d *models.Deficiency) error {
	return insertDeficiency(ctx, r.db, d)
}

func (r *deficiencyRepo) GetByID(ctx context.Context, tenantID, id uuid.UUID) (*models.Deficiency, error) {
	query := `SELECT ` + deficiencyColumns + ` FROM deficiencies d WHERE d.tenant_id = $1 AND d.id = $2`
	d, err := scanDeficiency(r.db.QueryRow(ctx, query, tenantID, id))
	if err != nil {
		return nil, mapError(err, "deficiency")
	}
	return d, nil
}

func (r *deficiencyRepo) Update(ctx context.Context, d *models.Deficiency) error {
	query := `
		UPDATE deficiencies
		SET severity = $1, status = $2, description = $3, action_required = $4, estimated_cost = $5,
			assigned_to = $6, due_date = $7, resolved_at = $8, resolved_by = $9, resolution_notes = $10,
			updated_at = NOW()
		WHERE tenant_id = $11 AND id = $12
		RETURNING updated_at
	`
	err := r.db.QueryRow(ctx, query, d.Severity, d.Status, d.Description, d.ActionRequired, d.EstimatedCost,
		d.AssignedTo, d.DueDate, d.ResolvedAt, d.ResolvedBy, d.ResolutionNotes, d.TenantID, d.ID).Scan(&d.UpdatedAt)
	return mapError(err, "deficiency")
}

func deficiencyWhere(tenantID uuid.UUID, filter models.DeficiencyFilter) *whereBuilder {
	w := newWhere("d.tenant_id = $1", tenantID)
	if filter.Status != nil {
		w.add("d.status = ?", *filter.Status)
	}
	if filter.Severity != nil {
		w.add("d.severity = ?", *filter.Severity)
	}
	if filter.ExtinguisherID != nil {
		w.add("d.extinguisher_id = ?", *filter.ExtinguisherID)
	}
	if filter.LocationID != nil {
		w.add("e.location_id = ?", *filter.LocationID)
	}
	if filter.AssignedTo != nil {
		w.add("d.assigned_to = ?", *filter.AssignedTo)
	}
	return w
}

func (r *deficiencyRepo) List(ctx context.Context, tenantID uuid.UUID, filter models.DeficiencyFilter) ([]*models.Deficiency, int, error) {
	w := deficiencyWhere(tenantID, filter)
	query := `
		SELECT ` + deficiencyColumns + `, COUNT(*) OVER()
		FROM deficiencies d
		JOIN extinguishers e ON e.id = d.extinguisher_id AND e.tenant_id = d.tenant_id
		` + w.sql() + `
		ORDER BY d.created_at DESC
		` + w.page(filter.Limit, filter.Offset)

	rows, err := r.db.Query(ctx, query, w.args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []*models.Deficiency
	total := 0
	for rows.Next() {
		d, err := scanDeficiency(rows, &total)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, d)
	}
	return items, total, rows.Err()
}

func (r *deficiencyRepo) ListByInspection(ctx context.Context, tenantID, inspectionID uuid.UUID) ([]models.Deficiency, error) {
	query := `SELECT ` + deficiencyColumns + ` FROM deficiencies d WHERE d.tenant_id = $1 AND d.inspection_id = $2 ORDER BY d.created_at`
	rows, err := r.db.Query(ctx, query, tenantID, inspectionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []models.Deficiency
	for rows.Next() {
		d, err := scanDeficiency(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *d)
	}
	return items, rows.Err()
}

func (r *deficiencyRepo) CountOpenSevere(ctx context.Context, tenantID, extinguisherID, excludeID uuid.UUID) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM deficiencies
		WHERE tenant_id = $1 AND extinguisher_id = $2 AND id <> $3
		AND status IN ('Open', 'InProgress', 'Deferred') AND severity IN ('High', 'Critical')
	`
	var count int
	err := r.db.QueryRow(ctx, query, tenantID, extinguisherID, excludeID).Scan(&count)
	return count, err
}

func (r *deficiencyRepo) ListOverdue(ctx context.Context, asOf time.Time) ([]*models.Deficiency, error) {
	query := `
		SELECT ` + deficiencyColumns + `
		FROM deficiencies d
		WHERE d.status IN ('Open', 'InProgress') AND d.due_date IS NOT NULL AND d.due_date < $1
		ORDER BY d.tenant_id, d.due_date
	`
	rows, err := r.db.Query(ctx, query, asOf)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*models.Deficiency
	for rows.Next() {
		d, err := scanDeficiency(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, d)
	}
	return items, rows.Err()
}

func (r *deficiencyRepo) ForEach(ctx context.Context, tenantID uuid.UUID, filter models.DeficiencyFilter, fn func(*models.Deficiency) error) error {
	w := deficiencyWhere(tenantID, filter)
	query := `
		SELECT ` + deficiencyColumns + `
		FROM deficiencies d
		JOIN extinguishers e ON e.id = d.extinguisher_id AND e.tenant_id = d.tenant_id
		` + w.sql() + `
		ORDER BY d.created_at, d.id
	`
	rows, err := r.db.Query(ctx, query, w.args...)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		d, err := scanDeficiency(rows)
		if err != nil {
			return err
		}
		if err := fn(d); err != nil {
			return err
		}
	}
	return rows.Err()
}
