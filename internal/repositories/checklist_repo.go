package repositories

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"fireproof/internal/apperrors"
	"fireproof/internal/models"
)

type ChecklistRepository interface {
	// Create inserts the template and its items. A nil TenantID creates a system template.
	Create(ctx context.Context, tpl *models.ChecklistTemplate) error
	// GetByID returns a template owned by the tenant or a system template, with items.
	GetByID(ctx context.Context, tenantID, id uuid.UUID) (*models.ChecklistTemplate, error)
	// Update rewrites a tenant owned template and replaces its items.
	Update(ctx context.Context, tpl *models.ChecklistTemplate) error
	Delete(ctx context.Context, tenantID, id uuid.UUID) error
	List(ctx context.Context, tenantID uuid.UUID, filter models.ChecklistTemplateFilter) ([]*models.ChecklistTemplate, int, error)
	// GetDefault picks the tenant's active template of the type, falling back to the system one.
	GetDefault(ctx context.Context, tenantID uuid.UUID, inspectionType string) (*models.ChecklistTemplate, error)
	GetSystemByName(ctx context.Context, name string) (*models.ChecklistTemplate, error)
	// CountOpenInspections counts Scheduled, InProgress and Overdue inspections using the template.
	CountOpenInspections(ctx context.Context, tenantID, id uuid.UUID) (int, error)
}

type checklistRepo struct {
	db DBTX
}

func NewChecklistRepo(db DBTX) ChecklistRepository {
	return &checklistRepo{db: db}
}

const templateColumns = `id, tenant_id, name, description, inspection_type, standard, is_system, is_active, created_at, updated_at`

func scanTemplate(row interface{ Scan(...any) error }, extra ...any) (*models.ChecklistTemplate, error) {
	t := &models.ChecklistTemplate{}
	dest := []any{&t.ID, &t.TenantID, &t.Name, &t.Description, &t.InspectionType, &t.Standard, &t.IsSystem,
		&t.IsActive, &t.CreatedAt, &t.UpdatedAt}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}
	return t, nil
}

const insertItemSQL = `
	INSERT INTO checklist_items (id, template_id, item_order, category, item_text, help_text, requires_photo, requires_comment_on_fail)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
`

func insertItems(ctx context.Context, tx pgx.Tx, tpl *models.ChecklistTemplate) error {
	for i := range tpl.Items {
		item := &tpl.Items[i]
		if item.ID == uuid.Nil {
			item.ID = uuid.New()
		}
		item.TemplateID = tpl.ID
		if _, err := tx.Exec(ctx, insertItemSQL, item.ID, item.TemplateID, item.Order, item.Category, item.Text,
			item.HelpText, item.RequiresPhoto, item.RequiresCommentOnFail); err != nil {
			return err
		}
	}
	return nil
}

func (r *checklistRepo) Create(ctx context.Context, tpl *models.ChecklistTemplate) error {
	if tpl.ID == uuid.Nil {
		tpl.ID = uuid.New()
	}
	tpl.IsSystem = tpl.TenantID == nil

	err := pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		query := `
			INSERT INTO checklist_templates (id, tenant_id, name, description, inspection_type, standard, is_system,
				is_active, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW(), NOW())
			RETURNING created_at, updated_at
		`
		if err := tx.QueryRow(ctx, query, tpl.ID, tpl.TenantID, tpl.Name, tpl.Description, tpl.InspectionType,
			tpl.Standard, tpl.IsSystem, tpl.IsActive).Scan(&tpl.CreatedAt, &tpl.UpdatedAt); err != nil {
			return err
		}
		return insertItems(ctx, tx, tpl)
	})
	return mapError(err, "checklist template")
}

func (r *checklistRepo) GetByID(ctx context.Context, tenantID, id uuid.UUID) (*models.ChecklistTemplate, error) {
	query := `
		SELECT ` + templateColumns + `
		FROM checklist_templates
		WHERE id = $2 AND (tenant_id = $1 OR tenant_id IS NULL) AND deleted_at IS NULL
	`
	tpl, err := scanTemplate(r.db.QueryRow(ctx, query, tenantID, id))
	if err != nil {
		return nil, mapError(err, "checklist template")
	}

	tpl.Items, err = r.listItems(ctx, tpl.ID)
	if err != nil {
		return nil, err
	}
	return tpl, nil
}

func (r *checklistRepo) GetSystemByName(ctx context.Context, name string) (*models.ChecklistTemplate, error) {
	query := `
		SELECT ` + templateColumns + `
		FROM checklist_templates
		WHERE tenant_id IS NULL AND name = $1 AND deleted_at IS NULL
	`
	tpl, err := scanTemplate(r.db.QueryRow(ctx, query, name))
	if err != nil {
		return nil, mapError(err, "checklist template")
	}
	return tpl, nil
}

func (r *checklistRepo) Update(ctx context.Context, tpl *models.ChecklistTemplate) error {
	err := pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		query := `
			UPDATE checklist_templates
			SET name = $1, description = $2, inspection_type = $3, standard = $4, is_active = $5, updated_at = NOW()
			WHERE tenant_id = $6 AND id = $7 AND deleted_at IS NULL
		`
		tag, err := tx.Exec(ctx, query, tpl.Name, tpl.Description, tpl.InspectionType, tpl.Standard, tpl.IsActive,
			tpl.TenantID, tpl.ID)
		if err != nil {
			return err
		}
		if err := requireAffected(tag, "checklist template"); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, `DELETE FROM checklist_items WHERE template_id = $1`, tpl.ID); err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == pgForeignKeyViolation {
				return apperrors.Conflict("checklist template is used by inspections, duplicate it to change items")
			}
			return err
		}
		return insertItems(ctx, tx, tpl)
	})
	return mapError(err, "checklist template")
}

func (r *checklistRepo) Delete(ctx context.Context, tenantID, id uuid.UUID) error {
	query := `UPDATE checklist_templates SET deleted_at = NOW(), is_active = FALSE WHERE tenant_id = $1 AND id = $2 AND deleted_at IS NULL`
	tag, err := r.db.Exec(ctx, query, tenantID, id)
	if err != nil {
		return err
	}
	return requireAffected(tag, "checklist template")
}

func (r *checklistRepo) CountOpenInspections(ctx context.Context, tenantID, id uuid.UUID) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM inspections
		WHERE tenant_id = $1 AND template_id = $2 AND status IN ('Scheduled', 'InProgress', 'Overdue')
	`
	var count int
	err := r.db.QueryRow(ctx, query, tenantID, id).Scan(&count)
	return count, err
}

func (r *checklistRepo) List(ctx context.Context, tenantID uuid.UUID, filter models.ChecklistTemplateFilter) ([]*models.ChecklistTemplate, int, error) {
	base := "tenant_id = $1 AND deleted_at IS NULL"
	if filter.IncludeSystem {
		base = "(tenant_id = $1 OR tenant_id IS NULL) AND deleted_at IS NULL"
	}
	w := newWhere(base, tenantID)
	if filter.InspectionType != nil {
		w.add("inspection_type = ?", *filter.InspectionType)
	}
	if filter.IsActive != nil {
		w.add("is_active = ?", *filter.IsActive)
	}

	query := `
		SELECT ` + templateColumns + `, COUNT(*) OVER()
		FROM checklist_templates
		` + w.sql() + `
		ORDER BY is_system, name
		` + w.page(filter.Limit, filter.Offset)

	rows, err := r.db.Query(ctx, query, w.args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var templates []*models.ChecklistTemplate
	total := 0
	for rows.Next() {
		tpl, err := scanTemplate(rows, &total)
		if err != nil {
			return nil, 0, err
		}
		templates = append(templates, tpl)
	}
	return templates, total, rows.Err()
}

func (r *checklistRepo) GetDefault(ctx context.Context, tenantID uuid.UUID, inspectionType string) (*models.ChecklistTemplate, error) {
	query := `
		SELECT ` + templateColumns + `
		FROM checklist_templates
		WHERE (tenant_id = $1 OR tenant_id IS NULL) AND inspection_type = $2 AND is_active AND deleted_at IS NULL
		ORDER BY (tenant_id IS NULL), created_at
		LIMIT 1
	`
	tpl, err := scanTemplate(r.db.QueryRow(ctx, query, tenantID, inspectionType))
	if err != nil {
		return nil, mapError(err, "checklist template")
	}
	return tpl, nil
}

func (r *checklistRepo) listItems(ctx context.Context, templateID uuid.UUID) ([]models.ChecklistItem, error) {
	query := `
		SELECT id, template_id, item_order, category, item_text, help_text, requires_photo, requires_comment_on_fail
		FROM checklist_items
		WHERE template_id = $1
		ORDER BY item_order, id
	`
	rows, err := r.db.Query(ctx, query, templateID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []models.ChecklistItem
	for rows.Next() {
		var item models.ChecklistItem
		if err := rows.Scan(&item.ID, &item.TemplateID, &item.Order, &item.Category, &item.Text, &item.HelpText,
			&item.RequiresPhoto, &item.RequiresCommentOnFail); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}
