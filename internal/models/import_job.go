package models

import (
	"time"

	"github.com/google/uuid"
)

// Import kinds
const (
	ImportExtinguishers = "extinguishers"
	ImportLocations     = "locations"
)

// Import job statuses
const (
	ImportQueued     = "Queued"
	ImportProcessing = "Processing"
	ImportCompleted  = "Completed"
	ImportFailed     = "Failed"
)

// RowError is a per-row import problem. Row numbers are 1-based and count the header.
type RowError struct {
	Row     int    `json:"row"`
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
}

// ImportResult summarizes a processed CSV file.
type ImportResult struct {
	TotalRows   int        `json:"total_rows"`
	CreatedRows int        `json:"created_rows"`
	UpdatedRows int        `json:"updated_rows"`
	FailedRows  int        `json:"failed_rows"`
	DryRun      bool       `json:"dry_run"`
	Errors      []RowError `json:"errors"`
}

type ImportJob struct {
	ID          uuid.UUID  `json:"id" db:"id"`
	TenantID    uuid.UUID  `json:"tenant_id" db:"tenant_id"`
	Kind        string     `json:"kind" db:"kind"`
	Status      string     `json:"status" db:"status"`
	FileName    string     `json:"file_name" db:"file_name"`
	DryRun      bool       `json:"dry_run" db:"dry_run"`
	TotalRows   int        `json:"total_rows" db:"total_rows"`
	CreatedRows int        `json:"created_rows" db:"created_rows"`
	UpdatedRows int        `json:"updated_rows" db:"updated_rows"`
	FailedRows  int        `json:"failed_rows" db:"failed_rows"`
	Errors      []RowError `json:"errors" db:"errors"`
	CreatedBy   *uuid.UUID `json:"created_by,omitempty" db:"created_by"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
	StartedAt   *time.Time `json:"started_at,omitempty" db:"started_at"`
	FinishedAt  *time.Time `json:"finished_at,omitempty" db:"finished_at"`
}

// ImportResponse is returned by the import endpoints. Synchronous imports fill
// Result, queued imports fill JobID.
type ImportResponse struct {
	Status string        `json:"status"`
	JobID  *uuid.UUID    `json:"job_id,omitempty"`
	Result *ImportResult `json:"result,omitempty"`
}
