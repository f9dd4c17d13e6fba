package repositories

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"fireproof/internal/models"
)

type ImportJobRepository interface {
	Create(ctx context.Context, job *models.ImportJob) error
	GetByID(ctx context.Context, tenantID, id uuid.UUID) (*models.ImportJob, error)
	MarkProcessing(ctx context.Context, tenantID, id uuid.UUID, at time.Time) error
	Finish(ctx context.Context, tenantID, id uuid.UUID, status string, result *models.ImportResult, at time.Time) error
}

type importJobRepo struct {
	db DBTX
}

func NewImportJobRepo(db DBTX) ImportJobRepository {
	return &importJobRepo{db: db}
}

func (r *importJobRepo) Create(ctx context.Context, job *models.ImportJob) error {
	if job.ID == uuid.Nil {
		job.ID = uuid.New()
	}
	if job.Status == "" {
		job.Status = models.ImportQueued
	}
	query := `
		INSERT INTO import_jobs (id, tenant_id, kind, status, file_name, dry_run, created_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
		RETURNING created_at
	`
	err := r.db.QueryRow(ctx, query, job.ID, job.TenantID, job.Kind, job.Status, job.FileName, job.DryRun,
		job.CreatedBy).Scan(&job.CreatedAt)
	return mapError(err, "import job")
}

func (r *importJobRepo) GetByID(ctx context.Context, tenantID, id uuid.UUID) (*models.ImportJob, error) {
	query := `
		SELECT id, tenant_id, kind, status, file_name, dry_run, total_rows, created_rows, updated_rows, failed_rows,
			errors, created_by, created_at, started_at, finished_at
		FROM import_jobs
		WHERE tenant_id = $1 AND id = $2
	`
	job := &models.ImportJob{}
	var errorsBytes []byte
	err := r.db.QueryRow(ctx, query, tenantID, id).Scan(&job.ID, &job.TenantID, &job.Kind, &job.Status, &job.FileName,
		&job.DryRun, &job.TotalRows, &job.CreatedRows, &job.UpdatedRows, &job.FailedRows, &errorsBytes, &job.CreatedBy,
		&job.CreatedAt, &job.StartedAt, &job.FinishedAt)
	if err != nil {
		return nil, mapError(err, "import job")
	}
	if len(errorsBytes) > 0 {
		if err := json.Unmarshal(errorsBytes, &job.Errors); err != nil {
			return nil, fmt.Errorf("failed to unmarshal errors: %w", err)
		}
	}
	if job.Errors == nil {
		job.Errors = []models.RowError{}
	}
	return job, nil
}

func (r *importJobRepo) MarkProcessing(ctx context.Context, tenantID, id uuid.UUID, at time.Time) error {
	tag, err := r.db.Exec(ctx, `UPDATE import_jobs SET status = 'Processing', started_at = $1 WHERE tenant_id = $2 AND id = $3`,
		at, tenantID, id)
	if err != nil {
		return err
	}
	return requireAffected(tag, "import job")
}

func (r *importJobRepo) Finish(ctx context.Context, tenantID, id uuid.UUID, status string, result *models.ImportResult, at time.Time) error {
	if result == nil {
		result = &models.ImportResult{}
	}
	rowErrors := result.Errors
	if rowErrors == nil {
		rowErrors = []models.RowError{}
	}
	errorsBytes, err := json.Marshal(rowErrors)
	if err != nil {
		return fmt.Errorf("failed to marshal errors: %w", err)
	}

	query := `
		UPDATE import_jobs
		SET status = $1, total_rows = $2, created_rows = $3, updated_rows = $4, failed_rows = $5, errors = $6,
			finished_at = $7
		WHERE tenant_id = $8 AND id = $9
	`
	tag, err := r.db.Exec(ctx, query, status, result.TotalRows, result.CreatedRows, result.UpdatedRows,
		result.FailedRows, errorsBytes, at, tenantID, id)
	if err != nil {
		return err
	}
	return requireAffected(tag, "import job")
}
