package models

import (
	"time"

	"github.com/google/uuid"
)

// JSONB is a free-form JSON object column.
type JSONB map[string]interface{}

// AuditLog represents an audit log entry for tracking data changes
type AuditLog struct {
	ID        uuid.UUID  `json:"id" db:"id"`
	TenantID  uuid.UUID  `json:"tenant_id" db:"tenant_id"`
	TableName string     `json:"table_name" db:"table_name"`
	RecordID  *uuid.UUID `json:"record_id" db:"record_id"`
	Action    string     `json:"action" db:"action"`
	NewValues JSONB      `json:"new_values" db:"new_values"`
	OldValues JSONB      `json:"old_values" db:"old_values"`
	ChangedBy *uuid.UUID `json:"changed_by" db:"changed_by"`
	IPAddress *string    `json:"ip_address,omitempty" db:"ip_address"`
	UserAgent *string    `json:"user_agent,omitempty" db:"user_agent"`
	RequestID *string    `json:"request_id,omitempty" db:"request_id"`
	ChangedAt time.Time  `json:"changed_at" db:"changed_at"`
}

// Action constants for audit logs
const (
	ActionInsert     = "INSERT"
	ActionUpdate     = "UPDATE"
	ActionDelete     = "DELETE"
	ActionSoftDelete = "SOFT_DELETE"
	ActionRequest    = "REQUEST"
)

// AuditLogFilters represents filters for querying audit logs
type AuditLogFilters struct {
	TableName *string    `json:"table_name"`
	RecordID  *uuid.UUID `json:"record_id"`
	Action    *string    `json:"action"`
	ChangedBy *uuid.UUID `json:"changed_by"`
	StartDate *time.Time `json:"start_date"`
	EndDate   *time.Time `json:"end_date"`
	Limit     int        `json:"limit"`
	Offset    int        `json:"offset"`
}
