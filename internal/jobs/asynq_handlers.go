package jobs

import (
	"context"
	"encoding/json"
	"fmt"

	"fireproof/internal/logger"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

// Task type definitions
const (
	TypeCSVImport = "csv:import"
)

// CSVImportPayload defines the payload for queued CSV imports
type CSVImportPayload struct {
	JobID    uuid.UUID  `json:"job_id"`
	TenantID uuid.UUID  `json:"tenant_id"`
	UserID   *uuid.UUID `json:"user_id,omitempty"`
	Kind     string     `json:"kind"`
	DryRun   bool       `json:"dry_run"`
	Data     []byte     `json:"data"`
}

// NewCSVImportTask creates a new import task
func NewCSVImportTask(payload CSVImportPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeCSVImport, data), nil
}

// CSVImportHandler handles queued import tasks
func (i *CSVImporter) CSVImportHandler(ctx context.Context, t *asynq.Task) error {
	var payload CSVImportPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("failed to unmarshal import payload: %w: %w", err, asynq.SkipRetry)
	}

	log := logger.FromContext(ctx).WithFields(map[string]interface{}{
		"job_id":    payload.JobID,
		"tenant_id": payload.TenantID,
		"kind":      payload.Kind,
	})
	log.Info("Starting CSV import")

	if err := i.Run(ctx, payload); err != nil {
		log.WithError(err).Error("CSV import failed")
		return err
	}
	log.Info("CSV import finished")
	return nil
}

// NewServeMux registers every task handler.
func NewServeMux(importer *CSVImporter) *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.HandleFunc(TypeCSVImport, importer.CSVImportHandler)
	return mux
}
