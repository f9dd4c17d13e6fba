package repositories

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"fireproof/internal/models"

	"github.com/google/uuid"
)

// AuditLogsRepository is append only. Entries are never updated or removed.
type AuditLogsRepository interface {
	// Create a new audit log entry
	Create(ctx context.Context, auditLog *models.AuditLog) error

	// Get audit log by ID and tenant
	GetByID(ctx context.Context, tenantID, id uuid.UUID) (*models.AuditLog, error)

	// List audit logs with filtering options, newest first
	List(ctx context.Context, tenantID uuid.UUID, filters *models.AuditLogFilters) ([]*models.AuditLog, int, error)

	// Get distinct table names for a tenant
	GetTableNames(ctx context.Context, tenantID uuid.UUID) ([]string, error)
}

type auditLogsRepo struct {
	db DBTX
}

func NewAuditLogsRepo(db DBTX) AuditLogsRepository {
	return &auditLogsRepo{db: db}
}

func marshalValues(values models.JSONB) ([]byte, error) {
	if values == nil {
		return nil, nil
	}
	return json.Marshal(values)
}

func (r *auditLogsRepo) Create(ctx context.Context, auditLog *models.AuditLog) error {
	if auditLog.ChangedAt.IsZero() {
		auditLog.ChangedAt = time.Now().UTC()
	}
	if auditLog.ID == uuid.Nil {
		auditLog.ID = uuid.New()
	}

	newValuesBytes, err := marshalValues(auditLog.NewValues)
	if err != nil {
		return fmt.Errorf("failed to marshal new_values: %w", err)
	}
	oldValuesBytes, err := marshalValues(auditLog.OldValues)
	if err != nil {
		return fmt.Errorf("failed to marshal old_values: %w", err)
	}

	query := `
		INSERT INTO audit_logs (id, tenant_id, table_name, record_id, action, new_values, old_values, changed_by,
			ip_address, user_agent, request_id, changed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`
	_, err = r.db.Exec(ctx, query,
		auditLog.ID,
		auditLog.TenantID,
		auditLog.TableName,
		auditLog.RecordID,
		auditLog.Action,
		newValuesBytes,
		oldValuesBytes,
		auditLog.ChangedBy,
		auditLog.IPAddress,
		auditLog.UserAgent,
		auditLog.RequestID,
		auditLog.ChangedAt,
	)
	return err
}

const auditColumns = `id, tenant_id, table_name, record_id, action, new_values, old_values, changed_by,
	ip_address, user_agent, request_id, changed_at`

func scanAuditLog(row interface{ Scan(...any) error }, extra ...any) (*models.AuditLog, error) {
	auditLog := &models.AuditLog{}
	var newValuesBytes, oldValuesBytes []byte

	dest := []any{
		&auditLog.ID,
		&auditLog.TenantID,
		&auditLog.TableName,
		&auditLog.RecordID,
		&auditLog.Action,
		&newValuesBytes,
		&oldValuesBytes,
		&auditLog.ChangedBy,
		&auditLog.IPAddress,
		&auditLog.UserAgent,
		&auditLog.RequestID,
		&auditLog.ChangedAt,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}

	// Unmarshal JSONB fields
	if len(newValuesBytes) > 0 {
		if err := json.Unmarshal(newValuesBytes, &auditLog.NewValues); err != nil {
			return nil, fmt.Errorf("failed to unmarshal new_values: %w", err)
		}
	}
	if len(oldValuesBytes) > 0 {
		if err := json.Unmarshal(oldValuesBytes, &auditLog.OldValues); err != nil {
			return nil, fmt.Errorf("failed to unmarshal old_values: %w", err)
		}
	}
	return auditLog, nil
}

func (r *auditLogsRepo) GetByID(ctx context.Context, tenantID, id uuid.UUID) (*models.AuditLog, error) {
	query := `SELECT ` + auditColumns + ` FROM audit_logs WHERE tenant_id = $1 AND id = $2`
	auditLog, err := scanAuditLog(r.db.QueryRow(ctx, query, tenantID, id))
	if err != nil {
		return nil, mapError(err, "audit log")
	}
	return auditLog, nil
}

func (r *auditLogsRepo) List(ctx context.Context, tenantID uuid.UUID, filters *models.AuditLogFilters) ([]*models.AuditLog, int, error) {
	if filters == nil {
		filters = &models.AuditLogFilters{}
	}

	// Build WHERE clauses based on filters
	w := newWhere("tenant_id = $1", tenantID)
	if filters.TableName != nil {
		w.add("table_name = ?", *filters.TableName)
	}
	if filters.RecordID != nil {
		w.add("record_id = ?", *filters.RecordID)
	}
	if filters.Action != nil {
		w.add("action = ?", *filters.Action)
	}
	if filters.ChangedBy != nil {
		w.add("changed_by = ?", *filters.ChangedBy)
	}
	if filters.StartDate != nil {
		w.add("changed_at >= ?", *filters.StartDate)
	}
	if filters.EndDate != nil {
		w.add("changed_at <= ?", *filters.EndDate)
	}

	query := `SELECT ` + auditColumns + `, COUNT(*) OVER() FROM audit_logs ` + w.sql() +
		` ORDER BY changed_at DESC ` + w.page(filters.Limit, filters.Offset)

	rows, err := r.db.Query(ctx, query, w.args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var auditLogs []*models.AuditLog
	total := 0
	for rows.Next() {
		auditLog, err := scanAuditLog(rows, &total)
		if err != nil {
			return nil, 0, err
		}
		auditLogs = append(auditLogs, auditLog)
	}
	return auditLogs, total, rows.Err()
}

func (r *auditLogsRepo) GetTableNames(ctx context.Context, tenantID uuid.UUID) ([]string, error) {
	rows, err := r.db.Query(ctx, `SELECT DISTINCT table_name FROM audit_logs WHERE tenant_id = $1 ORDER BY table_name`, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}
