package repositories

import (
	"context"

	"github.com/google/uuid"

	"fireproof/internal/models"
)

type PhotoRepository interface {
	Create(ctx context.Context, p *models.Photo) error
	GetByID(ctx context.Context, tenantID, id uuid.UUID) (*models.Photo, error)
	GetBySHA(ctx context.Context, tenantID, inspectionID uuid.UUID, sha string) (*models.Photo, error)
	ListByInspection(ctx context.Context, tenantID, inspectionID uuid.UUID) ([]models.Photo, error)
	Delete(ctx context.Context, tenantID, id uuid.UUID) error
}

type photoRepo struct {
	db DBTX
}

func NewPhotoRepo(db DBTX) PhotoRepository {
	return &photoRepo{db: db}
}

const photoColumns = `id, tenant_id, inspection_id, deficiency_id, photo_type, object_key, content_type, size_bytes,
	sha256, captured_at, latitude, longitude, uploaded_by, created_at`

func scanPhoto(row interface{ Scan(...any) error }) (*models.Photo, error) {
	p := &models.Photo{}
	err := row.Scan(&p.ID, &p.TenantID, &p.InspectionID, &p.DeficiencyID, &p.PhotoType, &p.ObjectKey, &p.ContentType,
		&p.SizeBytes, &p.SHA256, &p.CapturedAt, &p.Latitude, &p.Longitude, &p.UploadedBy, &p.CreatedAt)
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (r *photoRepo) Create(ctx context.Context, p *models.Photo) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	query := `
		INSERT INTO photos (id, tenant_id, inspection_id, deficiency_id, photo_type, object_key, content_type,
			size_bytes, sha256, captured_at, latitude, longitude, uploaded_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, NOW())
		RETURNING created_at
	`
	err := r.db.QueryRow(ctx, query, p.ID, p.TenantID, p.InspectionID, p.DeficiencyID, p.PhotoType, p.ObjectKey,
		p.ContentType, p.SizeBytes, p.SHA256, p.CapturedAt, p.Latitude, p.Longitude, p.UploadedBy).Scan(&p.CreatedAt)
	return mapError(err, "photo")
}

func (r *photoRepo) GetByID(ctx context.Context, tenantID, id uuid.UUID) (*models.Photo, error) {
	query := `SELECT ` + photoColumns + ` FROM photos WHERE tenant_id = $1 AND id = $2`
	p, err := scanPhoto(r.db.QueryRow(ctx, query, tenantID, id))
	if err != nil {
		return nil, mapError(err, "photo")
	}
	return p, nil
}

func (r *photoRepo) GetBySHA(ctx context.Context, tenantID, inspectionID uuid.UUID, sha string) (*models.Photo, error) {
	query := `SELECT ` + photoColumns + ` FROM photos WHERE tenant_id = $1 AND inspection_id = $2 AND sha256 = $3`
	p, err := scanPhoto(r.db.QueryRow(ctx, query, tenantID, inspectionID, sha))
	if err != nil {
		return nil, mapError(err, "photo")
	}
	return p, nil
}

func (r *photoRepo) ListByInspection(ctx context.Context, tenantID, inspectionID uuid.UUID) ([]models.Photo, error) {
	query := `SELECT ` + photoColumns + ` FROM photos WHERE tenant_id = $1 AND inspection_id = $2 ORDER BY created_at`
	rows, err := r.db.Query(ctx, query, tenantID, inspectionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var photos []models.Photo
	for rows.Next() {
		p, err := scanPhoto(rows)
		if err != nil {
			return nil, err
		}
		photos = append(photos, *p)
	}
	return photos, rows.Err()
}

func (r *photoRepo) Delete(ctx context.Context, tenantID, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM photos WHERE tenant_id = $1 AND id = $2`, tenantID, id)
	if err != nil {
		return err
	}
	return requireAffected(tag, "photo")
}
