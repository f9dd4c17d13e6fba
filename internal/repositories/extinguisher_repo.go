package repositories

import (
	"context"
	"time"

	"github.com/google/uuid"

	"fireproof/internal/models"
)

type ExtinguisherRepository interface {
	Create(ctx context.Context, e *models.Extinguisher) error
	GetByID(ctx context.Context, tenantID, id uuid.UUID) (*models.Extinguisher, error)
	GetByAssetTag(ctx context.Context, tenantID uuid.UUID, assetTag string) (*models.Extinguisher, error)
	GetByBarcode(ctx context.Context, tenantID uuid.UUID, barcode string) (*models.Extinguisher, error)
	Update(ctx context.Context, e *models.Extinguisher) error
	SetStatus(ctx context.Context, tenantID, id uuid.UUID, status string) error
	Delete(ctx context.Context, tenantID, id uuid.UUID) error
	List(ctx context.Context, tenantID uuid.UUID, filter models.ExtinguisherFilter) ([]*models.Extinguisher, int, error)
	// ListDueWithoutOpenInspection returns active units due on or before dueBy
	// that have no Scheduled, InProgress or Overdue inspection.
	ListDueWithoutOpenInspection(ctx context.Context, tenantID uuid.UUID, dueBy time.Time) ([]*models.Extinguisher, error)
	// ForEach streams every non-deleted unit of the tenant ordered by asset tag.
	ForEach(ctx context.Context, tenantID uuid.UUID, fn func(*models.Extinguisher) error) error
	ListIDs(ctx context.Context, tenantID uuid.UUID) ([]uuid.UUID, error)
}

type extinguisherRepo struct {
	db DBTX
}

func NewExtinguisherRepo(db DBTX) ExtinguisherRepository {
	return &extinguisherRepo{db: db}
}

const extinguisherColumns = `e.id, e.tenant_id, e.location_id, e.type_id, e.asset_tag, e.barcode, e.serial_number,
	e.manufacturer, e.model, e.capacity, e.manufacture_date, e.install_date, e.floor, e.room, e.position_notes,
	e.status, e.last_inspection_at, e.next_inspection_due, e.last_service_date, e.next_service_due,
	e.last_hydro_test, e.next_hydro_due, e.created_at, e.updated_at, l.code, l.name, t.code, t.name`

const extinguisherFrom = `
	FROM extinguishers e
	LEFT JOIN locations l ON l.id = e.location_id
	LEFT JOIN extinguisher_types t ON t.id = e.type_id
`

func scanExtinguisher(row interface{ Scan(...any) error }, extra ...any) (*models.Extinguisher, error) {
	e := &models.Extinguisher{}
	dest := []any{&e.ID, &e.TenantID, &e.LocationID, &e.TypeID, &e.AssetTag, &e.Barcode, &e.SerialNumber,
		&e.Manufacturer, &e.Model, &e.Capacity, &e.ManufactureDate, &e.InstallDate, &e.Floor, &e.Room, &e.PositionNotes,
		&e.Status, &e.LastInspectionAt, &e.NextInspectionDue, &e.LastServiceDate, &e.NextServiceDue,
		&e.LastHydroTest, &e.NextHydroDue, &e.CreatedAt, &e.UpdatedAt, &e.LocationCode, &e.LocationName, &e.TypeCode, &e.TypeName}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}
	return e, nil
}

func (r *extinguisherRepo) Create(ctx context.Context, e *models.Extinguisher) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	if e.Status == "" {
		e.Status = models.ExtinguisherActive
	}
	query := `
		INSERT INTO extinguishers (id, tenant_id, location_id, type_id, asset_tag, barcode, serial_number, manufacturer,
			model, capacity, manufacture_date, install_date, floor, room, position_notes, status, next_inspection_due,
			last_service_date, next_service_due, last_hydro_test, next_hydro_due, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, NOW(), NOW())
		RETURNING created_at, updated_at
	`
	err := r.db.QueryRow(ctx, query, e.ID, e.TenantID, e.LocationID, e.TypeID, e.AssetTag, e.Barcode, e.SerialNumber,
		e.Manufacturer, e.Model, e.Capacity, e.ManufactureDate, e.InstallDate, e.Floor, e.Room, e.PositionNotes, e.Status,
		e.NextInspectionDue, e.LastServiceDate, e.NextServiceDue, e.LastHydroTest, e.NextHydroDue).
		Scan(&e.CreatedAt, &e.UpdatedAt)
	return mapError(err, "extinguisher")
}

func (r *extinguisherRepo) get(ctx context.Context, cond string, args ...any) (*models.Extinguisher, error) {
	query := `SELECT ` + extinguisherColumns + extinguisherFrom + `WHERE ` + cond + ` AND e.deleted_at IS NULL`
	e, err := scanExtinguisher(r.db.QueryRow(ctx, query, args...))
	if err != nil {
		return nil, mapError(err, "extinguisher")
	}
	return e, nil
}

func (r *extinguisherRepo) GetByID(ctx context.Context, tenantID, id uuid.UUID) (*models.Extinguisher, error) {
	return r.get(ctx, "e.tenant_id = $1 AND e.id = $2", tenantID, id)
}

func (r *extinguisherRepo) GetByAssetTag(ctx context.Context, tenantID uuid.UUID, assetTag string) (*models.Extinguisher, error) {
	return r.get(ctx, "e.tenant_id = $1 AND e.asset_tag = $2", tenantID, assetTag)
}

func (r *extinguisherRepo) GetByBarcode(ctx context.Context, tenantID uuid.UUID, barcode string) (*models.Extinguisher, error) {
	return r.get(ctx, "e.tenant_id = $1 AND e.barcode = $2", tenantID, barcode)
}

func (r *extinguisherRepo) Update(ctx context.Context, e *models.Extinguisher) error {
	query := `
		UPDATE extinguishers
		SET location_id = $1, type_id = $2, asset_tag = $3, barcode = $4, serial_number = $5, manufacturer = $6,
			model = $7, capacity = $8, manufacture_date = $9, install_date = $10, floor = $11, room = $12,
			position_notes = $13, status = $14, next_inspection_due = $15, last_service_date = $16,
			next_service_due = $17, last_hydro_test = $18, next_hydro_due = $19, updated_at = NOW()
		WHERE tenant_id = $20 AND id = $21 AND deleted_at IS NULL
	`
	tag, err := r.db.Exec(ctx, query, e.LocationID, e.TypeID, e.AssetTag, e.Barcode, e.SerialNumber, e.Manufacturer,
		e.Model, e.Capacity, e.ManufactureDate, e.InstallDate, e.Floor, e.Room, e.PositionNotes, e.Status,
		e.NextInspectionDue, e.LastServiceDate, e.NextServiceDue, e.LastHydroTest, e.NextHydroDue, e.TenantID, e.ID)
	if err != nil {
		return mapError(err, "extinguisher")
	}
	return requireAffected(tag, "extinguisher")
}

func (r *extinguisherRepo) SetStatus(ctx context.Context, tenantID, id uuid.UUID, status string) error {
	query := `UPDATE extinguishers SET status = $1, updated_at = NOW() WHERE tenant_id = $2 AND id = $3 AND deleted_at IS NULL`
	tag, err := r.db.Exec(ctx, query, status, tenantID, id)
	if err != nil {
		return err
	}
	return requireAffected(tag, "extinguisher")
}

func (r *extinguisherRepo) Delete(ctx context.Context, tenantID, id uuid.UUID) error {
	query := `UPDATE extinguishers SET deleted_at = NOW() WHERE tenant_id = $1 AND id = $2 AND deleted_at IS NULL`
	tag, err := r.db.Exec(ctx, query, tenantID, id)
	if err != nil {
		return err
	}
	return requireAffected(tag, "extinguisher")
}

func (r *extinguisherRepo) List(ctx context.Context, tenantID uuid.UUID, filter models.ExtinguisherFilter) ([]*models.Extinguisher, int, error) {
	w := newWhere("e.tenant_id = $1 AND e.deleted_at IS NULL", tenantID)
	if filter.LocationID != nil {
		w.add("e.location_id = ?", *filter.LocationID)
	}
	if filter.TypeID != nil {
		w.add("e.type_id = ?", *filter.TypeID)
	}
	if filter.Status != nil {
		w.add("e.status = ?", *filter.Status)
	}
	if filter.DueBefore != nil {
		w.add("e.next_inspection_due <= ?", *filter.DueBefore)
	}
	if filter.Search != "" {
		like := "%" + filter.Search + "%"
		w.add("(e.asset_tag ILIKE ? OR e.serial_number ILIKE ? OR e.barcode ILIKE ?)", like, like, like)
	}

	query := `SELECT ` + extinguisherColumns + `, COUNT(*) OVER()` + extinguisherFrom + w.sql() + `
		ORDER BY e.asset_tag
		` + w.page(filter.Limit, filter.Offset)

	rows, err := r.db.Query(ctx, query, w.args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []*models.Extinguisher
	total := 0
	for rows.Next() {
		e, err := scanExtinguisher(rows, &total)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, e)
	}
	return items, total, rows.Err()
}

func (r *extinguisherRepo) ListDueWithoutOpenInspection(ctx context.Context, tenantID uuid.UUID, dueBy time.Time) ([]*models.Extinguisher, error) {
	query := `SELECT ` + extinguisherColumns + extinguisherFrom + `
		WHERE e.tenant_id = $1 AND e.deleted_at IS NULL AND e.status = 'Active'
		AND (e.next_inspection_due IS NULL OR e.next_inspection_due <= $2)
		AND NOT EXISTS (
			SELECT 1 FROM inspections i
			WHERE i.tenant_id = e.tenant_id AND i.extinguisher_id = e.id
			AND i.status IN ('Scheduled', 'InProgress', 'Overdue')
		)
		ORDER BY e.next_inspection_due NULLS FIRST, e.asset_tag
	`
	rows, err := r.db.Query(ctx, query, tenantID, dueBy)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*models.Extinguisher
	for rows.Next() {
		e, err := scanExtinguisher(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, e)
	}
	return items, rows.Err()
}

func (r *extinguisherRepo) ForEach(ctx context.Context, tenantID uuid.UUID, fn func(*models.Extinguisher) error) error {
	query := `SELECT ` + extinguisherColumns + extinguisherFrom + `
		WHERE e.tenant_id = $1 AND e.deleted_at IS NULL
		ORDER BY e.asset_tag
	`
	rows, err := r.db.Query(ctx, query, tenantID)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		e, err := scanExtinguisher(rows)
		if err != nil {
			return err
		}
		if err := fn(e); err != nil {
			return err
		}
	}
	return rows.Err()
}

func (r *extinguisherRepo) ListIDs(ctx context.Context, tenantID uuid.UUID) ([]uuid.UUID, error) {
	rows, err := r.db.Query(ctx, `SELECT id FROM extinguishers WHERE tenant_id = $1 ORDER BY asset_tag`, tenantID)
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
