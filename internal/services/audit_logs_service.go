package services

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"fireproof/internal/apperrors"
	"fireproof/internal/logger"
	"fireproof/internal/models"
	"fireproof/internal/repositories"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
)

type AuditLogsService interface {
	// Create audit log entry
	LogActivity(ctx context.Context, tenantID uuid.UUID, tableName string, recordID *uuid.UUID, action string, changedBy *uuid.UUID, oldValues, newValues models.JSONB) error
	// Record stores a prepared entry, used for request level logging
	Record(ctx context.Context, entry *models.AuditLog) error

	// Query audit logs
	GetAuditLog(ctx context.Context, tenantID, auditLogID uuid.UUID) (*models.AuditLog, error)
	ListAuditLogs(ctx context.Context, tenantID uuid.UUID, filters *models.AuditLogFilters) ([]*models.AuditLog, int, error)
	GetTableNames(ctx context.Context, tenantID uuid.UUID) ([]string, error)

	// Helper methods for common audit scenarios. Failures are logged, never returned,
	// so an audit outage does not fail the business operation.
	LogEntityCreate(ctx context.Context, tenantID uuid.UUID, tableName string, recordID uuid.UUID, changedBy *uuid.UUID, entity any)
	LogEntityUpdate(ctx context.Context, tenantID uuid.UUID, tableName string, recordID uuid.UUID, changedBy *uuid.UUID, before, after any)
	LogEntityDelete(ctx context.Context, tenantID uuid.UUID, tableName string, recordID uuid.UUID, changedBy *uuid.UUID, before any)
	LogEntitySoftDelete(ctx context.Context, tenantID uuid.UUID, tableName string, recordID uuid.UUID, changedBy *uuid.UUID, before any)

	// Validation methods
	ValidateAuditFilters(filters *models.AuditLogFilters) error
}

type auditLogsService struct {
	auditLogsRepo repositories.AuditLogsRepository
	clock         clockwork.Clock
}

func NewAuditLogsService(auditLogsRepo repositories.AuditLogsRepository, clock clockwork.Clock) AuditLogsService {
	return &auditLogsService{
		auditLogsRepo: auditLogsRepo,
		clock:         clock,
	}
}

// LogActivity creates a new audit log entry with validation
func (s *auditLogsService) LogActivity(ctx context.Context, tenantID uuid.UUID, tableName string, recordID *uuid.UUID, action string, changedBy *uuid.UUID, oldValues, newValues models.JSONB) error {
	return s.Record(ctx, &models.AuditLog{
		TenantID:  tenantID,
		TableName: tableName,
		RecordID:  recordID,
		Action:    action,
		NewValues: newValues,
		OldValues: oldValues,
		ChangedBy: changedBy,
	})
}

func (s *auditLogsService) Record(ctx context.Context, entry *models.AuditLog) error {
	if entry.TableName == "" {
		return errors.New("table_name is required")
	}
	if entry.Action == "" {
		return errors.New("action is required")
	}
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	if entry.ChangedAt.IsZero() {
		entry.ChangedAt = s.clock.Now().UTC()
	}
	return s.auditLogsRepo.Create(ctx, entry)
}

// GetAuditLog retrieves a single audit log entry
func (s *auditLogsService) GetAuditLog(ctx context.Context, tenantID, auditLogID uuid.UUID) (*models.AuditLog, error) {
	return s.auditLogsRepo.GetByID(ctx, tenantID, auditLogID)
}

// ListAuditLogs retrieves multiple audit log entries with filtering
func (s *auditLogsService) ListAuditLogs(ctx context.Context, tenantID uuid.UUID, filters *models.AuditLogFilters) ([]*models.AuditLog, int, error) {
	if filters == nil {
		filters = &models.AuditLogFilters{}
	}
	if err := s.ValidateAuditFilters(filters); err != nil {
		return nil, 0, err
	}
	if filters.Limit <= 0 {
		filters.Limit = 50
	}
	return s.auditLogsRepo.List(ctx, tenantID, filters)
}

// GetTableNames returns distinct table names that have audit logs
func (s *auditLogsService) GetTableNames(ctx context.Context, tenantID uuid.UUID) ([]string, error) {
	return s.auditLogsRepo.GetTableNames(ctx, tenantID)
}

func (s *auditLogsService) logEntity(ctx context.Context, tenantID uuid.UUID, tableName string, recordID uuid.UUID, action string, changedBy *uuid.UUID, before, after any) {
	err := s.LogActivity(ctx, tenantID, tableName, &recordID, action, changedBy, EntityValues(before), EntityValues(after))
	if err != nil {
		logger.FromContext(ctx).WithError(err).WithFields(map[string]interface{}{
			"table":  tableName,
			"record": recordID,
			"action": action,
		}).Error("Failed to write audit log")
	}
}

// LogEntityCreate logs the creation of a new entity
func (s *auditLogsService) LogEntityCreate(ctx context.Context, tenantID uuid.UUID, tableName string, recordID uuid.UUID, changedBy *uuid.UUID, entity any) {
	s.logEntity(ctx, tenantID, tableName, recordID, models.ActionInsert, changedBy, nil, entity)
}

// LogEntityUpdate logs the update of an existing entity
func (s *auditLogsService) LogEntityUpdate(ctx context.Context, tenantID uuid.UUID, tableName string, recordID uuid.UUID, changedBy *uuid.UUID, before, after any) {
	s.logEntity(ctx, tenantID, tableName, recordID, models.ActionUpdate, changedBy, before, after)
}

// LogEntityDelete logs the hard deletion of an entity
func (s *auditLogsService) LogEntityDelete(ctx context.Context, tenantID uuid.UUID, tableName string, recordID uuid.UUID, changedBy *uuid.UUID, before any) {
	s.logEntity(ctx, tenantID, tableName, recordID, models.ActionDelete, changedBy, before, nil)
}

// LogEntitySoftDelete logs the soft deletion of an entity
func (s *auditLogsService) LogEntitySoftDelete(ctx context.Context, tenantID uuid.UUID, tableName string, recordID uuid.UUID, changedBy *uuid.UUID, before any) {
	s.logEntity(ctx, tenantID, tableName, recordID, models.ActionSoftDelete, changedBy, before, nil)
}

// EntityValues converts an entity into its JSON object form. Fields tagged
// json:"-", such as password hashes, are left out by the encoder.
func EntityValues(entity any) models.JSONB {
	if entity == nil {
		return nil
	}
	data, err := json.Marshal(entity)
	if err != nil {
		return nil
	}
	var values models.JSONB
	if err := json.Unmarshal(data, &values); err != nil {
		return nil
	}
	return values
}

// ValidateAuditFilters performs security and performance validation on audit filters
func (s *auditLogsService) ValidateAuditFilters(filters *models.AuditLogFilters) error {
	if filters == nil {
		return nil
	}

	if filters.StartDate != nil && filters.EndDate != nil {
		if filters.EndDate.Before(*filters.StartDate) {
			return apperrors.Validation("to", "to cannot be before from")
		}
		// Limit date range to prevent excessive data extraction
		if filters.EndDate.Sub(*filters.StartDate) > 366*24*time.Hour {
			return apperrors.Validation("to", "date range cannot exceed 1 year")
		}
	}

	// Limit page size for performance
	if filters.Limit > 1000 {
		return apperrors.Validation("limit", "maximum limit is 1000 records")
	}

	return nil
}
