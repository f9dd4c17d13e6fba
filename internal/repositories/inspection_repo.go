package repositories

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"fireproof/internal/apperrors"
	"fireproof/internal/models"
)

// SealFunc computes the hash and signature of a completed inspection given
// the hash of its predecessor in the extinguisher's chain.
type SealFunc func(previousHash string) (hash, signature string, err error)

// Completion is everything written when an inspection is finalized.
// Inspection carries the completion fields and final Responses.
type Completion struct {
	Inspection   *models.Inspection
	Deficiencies []*models.Deficiency
	// Now is the requested completion time. The stored completed_at is moved
	// past the chain head when needed, so chain order follows completed_at.
	Now time.Time
	// Prepare applies due-date and status changes to the extinguisher as read
	// under the row lock.
	Prepare func(ext *models.Extinguisher, completedAt time.Time) error
	Seal    SealFunc
	// Extinguisher is the unit as written, set by Complete.
	Extinguisher *models.Extinguisher
}

type InspectionRepository interface {
	Create(ctx context.Context, insp *models.Inspection) error
	GetByID(ctx context.Context, tenantID, id uuid.UUID) (*models.Inspection, error)
	List(ctx context.Context, tenantID uuid.UUID, filter models.InspectionFilter) ([]*models.Inspection, int, error)
	Start(ctx context.Context, insp *models.Inspection) error
	SaveResponses(ctx context.Context, tenantID, inspectionID uuid.UUID, responses []models.InspectionResponse) error
	ListResponses(ctx context.Context, tenantID, inspectionID uuid.UUID) ([]models.InspectionResponse, error)
	// Complete runs the whole completion in one transaction. The extinguisher
	// row is locked before the chain head is read, so completions of the same
	// unit are serialized.
	Complete(ctx context.Context, c *Completion) error
	// PredecessorHash returns the hash of the completed inspection preceding
	// (completedAt, id) on the same extinguisher, or the genesis hash.
	PredecessorHash(ctx context.Context, tenantID, extinguisherID uuid.UUID, completedAt time.Time, id uuid.UUID) (string, error)
	// ListChain returns the completed inspections of an extinguisher in chain order, with responses.
	ListChain(ctx context.Context, tenantID, extinguisherID uuid.UUID) ([]*models.Inspection, error)
	ForEach(ctx context.Context, tenantID uuid.UUID, filter models.InspectionFilter, fn func(*models.Inspection) error) error
	// MarkOverdue flips past-due Scheduled inspections to Overdue across all tenants.
	MarkOverdue(ctx context.Context, now time.Time) (int, error)
}

type inspectionRepo struct {
	db DBTX
}

func NewInspectionRepo(db DBTX) InspectionRepository {
	return &inspectionRepo{db: db}
}

const inspectionColumns = `i.id, i.tenant_id, i.extinguisher_id, i.template_id, i.inspector_id, i.inspection_type,
	i.status, i.scheduled_date, i.started_at, i.completed_at, i.captured_at, i.overall_result, i.notes,
	i.latitude, i.longitude, i.device_id, i.previous_hash, i.hash, i.signature, i.created_at, i.updated_at`

func scanInspection(row interface{ Scan(...any) error }, extra ...any) (*models.Inspection, error) {
	i := &models.Inspection{}
	dest := []any{&i.ID, &i.TenantID, &i.ExtinguisherID, &i.TemplateID, &i.InspectorID, &i.InspectionType,
		&i.Status, &i.ScheduledDate, &i.StartedAt, &i.CompletedAt, &i.CapturedAt, &i.OverallResult, &i.Notes,
		&i.Latitude, &i.Longitude, &i.DeviceID, &i.PreviousHash, &i.Hash, &i.Signature, &i.CreatedAt, &i.UpdatedAt}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}
	return i, nil
}

func (r *inspectionRepo) Create(ctx context.Context, insp *models.Inspection) error {
	if insp.ID == uuid.Nil {
		insp.ID = uuid.New()
	}
	if insp.Status == "" {
		insp.Status = models.InspectionScheduled
	}
	query := `
		INSERT INTO inspections (id, tenant_id, extinguisher_id, template_id, inspector_id, inspection_type, status,
			scheduled_date, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW(), NOW())
		RETURNING created_at, updated_at
	`
	err := r.db.QueryRow(ctx, query, insp.ID, insp.TenantID, insp.ExtinguisherID, insp.TemplateID, insp.InspectorID,
		insp.InspectionType, insp.Status, insp.ScheduledDate).Scan(&insp.CreatedAt, &insp.UpdatedAt)
	return mapError(err, "inspection")
}

func (r *inspectionRepo) GetByID(ctx context.Context, tenantID, id uuid.UUID) (*models.Inspection, error) {
	query := `SELECT ` + inspectionColumns + ` FROM inspections i WHERE i.tenant_id = $1 AND i.id = $2`
	insp, err := scanInspection(r.db.QueryRow(ctx, query, tenantID, id))
	if err != nil {
		return nil, mapError(err, "inspection")
	}
	return insp, nil
}

func inspectionWhere(tenantID uuid.UUID, filter models.InspectionFilter) *whereBuilder {
	w := newWhere("i.tenant_id = $1", tenantID)
	if filter.Status != nil {
		w.add("i.status = ?", *filter.Status)
	}
	if filter.InspectionType != nil {
		w.add("i.inspection_type = ?", *filter.InspectionType)
	}
	if filter.ExtinguisherID != nil {
		w.add("i.extinguisher_id = ?", *filter.ExtinguisherID)
	}
	if filter.LocationID != nil {
		w.add("e.location_id = ?", *filter.LocationID)
	}
	if filter.InspectorID != nil {
		w.add("i.inspector_id = ?", *filter.InspectorID)
	}
	if filter.From != nil {
		w.add("i.scheduled_date >= ?", *filter.From)
	}
	if filter.To != nil {
		w.add("i.scheduled_date <= ?", *filter.To)
	}
	return w
}

func (r *inspectionRepo) List(ctx context.Context, tenantID uuid.UUID, filter models.InspectionFilter) ([]*models.Inspection, int, error) {
	w := inspectionWhere(tenantID, filter)
	query := `
		SELECT ` + inspectionColumns + `, COUNT(*) OVER()
		FROM inspections i
		JOIN extinguishers e ON e.id = i.extinguisher_id AND e.tenant_id = i.tenant_id
		` + w.sql() + `
		ORDER BY i.scheduled_date DESC, i.created_at DESC
		` + w.page(filter.Limit, filter.Offset)

	rows, err := r.db.Query(ctx, query, w.args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []*models.Inspection
	total := 0
	for rows.Next() {
		insp, err := scanInspection(rows, &total)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, insp)
	}
	return items, total, rows.Err()
}

func (r *inspectionRepo) ForEach(ctx context.Context, tenantID uuid.UUID, filter models.InspectionFilter, fn func(*models.Inspection) error) error {
	w := inspectionWhere(tenantID, filter)
	query := `
		SELECT ` + inspectionColumns + `
		FROM inspections i
		JOIN extinguishers e ON e.id = i.extinguisher_id AND e.tenant_id = i.tenant_id
		` + w.sql() + `
		ORDER BY i.scheduled_date, i.id
	`
	rows, err := r.db.Query(ctx, query, w.args...)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		insp, err := scanInspection(rows)
		if err != nil {
			return err
		}
		if err := fn(insp); err != nil {
			return err
		}
	}
	return rows.Err()
}

func (r *inspectionRepo) Start(ctx context.Context, insp *models.Inspection) error {
	query := `
		UPDATE inspections
		SET status = 'InProgress', started_at = $1, inspector_id = $2, latitude = $3, longitude = $4, device_id = $5,
			updated_at = NOW()
		WHERE tenant_id = $6 AND id = $7 AND status IN ('Scheduled', 'Overdue')
	`
	tag, err := r.db.Exec(ctx, query, insp.StartedAt, insp.InspectorID, insp.Latitude, insp.Longitude, insp.DeviceID,
		insp.TenantID, insp.ID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperrors.Conflict("inspection can only be started while Scheduled or Overdue")
	}
	insp.Status = models.InspectionInProgress
	return nil
}

// lockStatus locks the inspection row and returns its status and extinguisher.
func lockStatus(ctx context.Context, tx pgx.Tx, tenantID, id uuid.UUID) (string, uuid.UUID, error) {
	var status string
	var extinguisherID uuid.UUID
	err := tx.QueryRow(ctx, `SELECT status, extinguisher_id FROM inspections WHERE tenant_id = $1 AND id = $2 FOR UPDATE`,
		tenantID, id).Scan(&status, &extinguisherID)
	if err != nil {
		return "", uuid.Nil, mapError(err, "inspection")
	}
	return status, extinguisherID, nil
}

const upsertResponseSQL = `
	INSERT INTO inspection_responses (id, inspection_id, item_id, result, comment, photo_id, created_at)
	VALUES ($1, $2, $3, $4, $5, $6, NOW())
	ON CONFLICT (inspection_id, item_id) DO UPDATE
	SET result = EXCLUDED.result, comment = EXCLUDED.comment, photo_id = EXCLUDED.photo_id
`

func (r *inspectionRepo) SaveResponses(ctx context.Context, tenantID, inspectionID uuid.UUID, responses []models.InspectionResponse) error {
	return pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		status, _, err := lockStatus(ctx, tx, tenantID, inspectionID)
		if err != nil {
			return err
		}
		if status != models.InspectionInProgress {
			return apperrors.Conflict("responses can only be saved while the inspection is InProgress")
		}
		for _, resp := range responses {
			id := resp.ID
			if id == uuid.Nil {
				id = uuid.New()
			}
			if _, err := tx.Exec(ctx, upsertResponseSQL, id, inspectionID, resp.ItemID, resp.Result, resp.Comment, resp.PhotoID); err != nil {
				return mapError(err, "inspection response")
			}
		}
		return nil
	})
}

func (r *inspectionRepo) ListResponses(ctx context.Context, tenantID, inspectionID uuid.UUID) ([]models.InspectionResponse, error) {
	query := `
		SELECT ir.id, ir.inspection_id, ir.item_id, ir.result, ir.comment, ir.photo_id, ir.created_at
		FROM inspection_responses ir
		JOIN inspections i ON i.id = ir.inspection_id
		WHERE i.tenant_id = $1 AND ir.inspection_id = $2
		ORDER BY ir.item_id
	`
	rows, err := r.db.Query(ctx, query, tenantID, inspectionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var responses []models.InspectionResponse
	for rows.Next() {
		var resp models.InspectionResponse
		if err := rows.Scan(&resp.ID, &resp.InspectionID, &resp.ItemID, &resp.Result, &resp.Comment, &resp.PhotoID, &resp.CreatedAt); err != nil {
			return nil, err
		}
		responses = append(responses, resp)
	}
	return responses, rows.Err()
}

type queryRower interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// chainHead returns the hash and completion time of the extinguisher's most
// recent completed inspection. The time is nil for an empty chain.
func chainHead(ctx context.Context, q queryRower, tenantID, extinguisherID uuid.UUID) (string, *time.Time, error) {
	query := `
		SELECT hash, completed_at
		FROM inspections
		WHERE tenant_id = $1 AND extinguisher_id = $2 AND status = 'Completed' AND hash IS NOT NULL
		ORDER BY completed_at DESC, id DESC
		LIMIT 1
	`
	var hash string
	var completedAt time.Time
	err := q.QueryRow(ctx, query, tenantID, extinguisherID).Scan(&hash, &completedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.GenesisHash, nil, nil
	}
	if err != nil {
		return "", nil, err
	}
	return hash, &completedAt, nil
}

// lockExtinguisher locks the unit row and reads the fields a completion updates.
func lockExtinguisher(ctx context.Context, q queryRower, tenantID, id uuid.UUID) (*models.Extinguisher, error) {
	query := `
		SELECT id, tenant_id, type_id, barcode, status, manufacture_date, last_inspection_at, next_inspection_due,
			last_service_date, next_service_due, last_hydro_test, next_hydro_due
		FROM extinguishers
		WHERE tenant_id = $1 AND id = $2
		FOR UPDATE
	`
	e := &models.Extinguisher{}
	err := q.QueryRow(ctx, query, tenantID, id).Scan(&e.ID, &e.TenantID, &e.TypeID, &e.Barcode, &e.Status,
		&e.ManufactureDate, &e.LastInspectionAt, &e.NextInspectionDue, &e.LastServiceDate, &e.NextServiceDue,
		&e.LastHydroTest, &e.NextHydroDue)
	if err != nil {
		return nil, mapError(err, "extinguisher")
	}
	return e, nil
}

// completionTime keeps completed_at strictly after the chain head.
func completionTime(now time.Time, head *time.Time) time.Time {
	now = now.UTC().Truncate(time.Microsecond)
	if head != nil && !now.After(*head) {
		return head.UTC().Add(time.Microsecond)
	}
	return now
}

func (r *inspectionRepo) Complete(ctx context.Context, c *Completion) error {
	insp := c.Inspection
	return pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		status, extinguisherID, err := lockStatus(ctx, tx, insp.TenantID, insp.ID)
		if err != nil {
			return err
		}
		if status != models.InspectionInProgress {
			return apperrors.Conflict("only an InProgress inspection can be completed")
		}

		ext, err := lockExtinguisher(ctx, tx, insp.TenantID, extinguisherID)
		if err != nil {
			return err
		}
		previous, headAt, err := chainHead(ctx, tx, insp.TenantID, extinguisherID)
		if err != nil {
			return err
		}

		completedAt := completionTime(c.Now, headAt)
		insp.CompletedAt = &completedAt
		if c.Prepare != nil {
			if err := c.Prepare(ext, completedAt); err != nil {
				return err
			}
		}

		hash, signature, err := c.Seal(previous)
		if err != nil {
			return err
		}
		insp.PreviousHash = &previous
		insp.Hash = &hash
		insp.Signature = &signature

		if _, err := tx.Exec(ctx, `DELETE FROM inspection_responses WHERE inspection_id = $1`, insp.ID); err != nil {
			return err
		}
		for i := range insp.Responses {
			resp := &insp.Responses[i]
			if resp.ID == uuid.Nil {
				resp.ID = uuid.New()
			}
			resp.InspectionID = insp.ID
			if _, err := tx.Exec(ctx, upsertResponseSQL, resp.ID, insp.ID, resp.ItemID, resp.Result, resp.Comment, resp.PhotoID); err != nil {
				return mapError(err, "inspection response")
			}
		}

		for _, d := range c.Deficiencies {
			if err := insertDeficiency(ctx, tx, d); err != nil {
				return err
			}
		}

		query := `
			UPDATE inspections
			SET status = 'Completed', completed_at = $1, captured_at = $2, overall_result = $3, notes = $4,
				latitude = COALESCE($5, latitude), longitude = COALESCE($6, longitude), inspector_id = $7,
				previous_hash = $8, hash = $9, signature = $10, updated_at = NOW()
			WHERE tenant_id = $11 AND id = $12
		`
		if _, err := tx.Exec(ctx, query, completedAt, insp.CapturedAt, insp.OverallResult, insp.Notes,
			insp.Latitude, insp.Longitude, insp.InspectorID, previous, hash, signature, insp.TenantID, insp.ID); err != nil {
			return err
		}
		insp.Status = models.InspectionCompleted

		query = `
			UPDATE extinguishers
			SET status = $1, last_inspection_at = $2, next_inspection_due = $3, last_service_date = $4,
				next_service_due = $5, last_hydro_test = $6, next_hydro_due = $7, updated_at = NOW()
			WHERE tenant_id = $8 AND id = $9
		`
		if _, err := tx.Exec(ctx, query, ext.Status, ext.LastInspectionAt, ext.NextInspectionDue, ext.LastServiceDate,
			ext.NextServiceDue, ext.LastHydroTest, ext.NextHydroDue, ext.TenantID, ext.ID); err != nil {
			return err
		}
		c.Extinguisher = ext
		return nil
	})
}

func (r *inspectionRepo) PredecessorHash(ctx context.Context, tenantID, extinguisherID uuid.UUID, completedAt time.Time, id uuid.UUID) (string, error) {
	query := `
		SELECT hash
		FROM inspections
		WHERE tenant_id = $1 AND extinguisher_id = $2 AND status = 'Completed' AND hash IS NOT NULL
		AND (completed_at, id) < ($3, $4)
		ORDER BY completed_at DESC, id DESC
		LIMIT 1
	`
	var hash string
	err := r.db.QueryRow(ctx, query, tenantID, extinguisherID, completedAt, id).Scan(&hash)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.GenesisHash, nil
	}
	return hash, err
}

func (r *inspectionRepo) ListChain(ctx context.Context, tenantID, extinguisherID uuid.UUID) ([]*models.Inspection, error) {
	query := `
		SELECT ` + inspectionColumns + `
		FROM inspections i
		WHERE i.tenant_id = $1 AND i.extinguisher_id = $2 AND i.status = 'Completed'
		ORDER BY i.completed_at, i.id
	`
	rows, err := r.db.Query(ctx, query, tenantID, extinguisherID)
	if err != nil {
		return nil, err
	}

	var chain []*models.Inspection
	for rows.Next() {
		insp, err := scanInspection(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		chain = append(chain, insp)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, insp := range chain {
		insp.Responses, err = r.ListResponses(ctx, tenantID, insp.ID)
		if err != nil {
			return nil, err
		}
	}
	return chain, nil
}

func (r *inspectionRepo) MarkOverdue(ctx context.Context, now time.Time) (int, error) {
	var affected int
	err := r.db.QueryRow(ctx, `SELECT fp_mark_overdue_inspections($1)`, now).Scan(&affected)
	return affected, err
}
