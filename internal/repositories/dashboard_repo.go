package repositories

import (
	"context"
	"time"

	"github.com/google/uuid"

	"fireproof/internal/models"
)

// DashboardRepository runs the aggregate queries behind the tenant dashboard.
type DashboardRepository interface {
	Stats(ctx context.Context, tenantID uuid.UUID, today time.Time) (*models.DashboardStats, error)
	Compliance(ctx context.Context, tenantID uuid.UUID, today time.Time) ([]models.LocationCompliance, error)
}

type dashboardRepo struct {
	db DBTX
}

func NewDashboardRepo(db DBTX) DashboardRepository {
	return &dashboardRepo{db: db}
}

func (r *dashboardRepo) Stats(ctx context.Context, tenantID uuid.UUID, today time.Time) (*models.DashboardStats, error) {
	stats := &models.DashboardStats{
		TenantID:              tenantID,
		ExtinguishersByStatus: map[string]int{},
		OpenDeficienciesBySev: map[string]int{},
	}

	rows, err := r.db.Query(ctx, `
		SELECT status, COUNT(*)
		FROM extinguishers
		WHERE tenant_id = $1 AND deleted_at IS NULL
		GROUP BY status
	`, tenantID)
	if err != nil {
		return nil, err
	}
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			rows.Close()
			return nil, err
		}
		stats.ExtinguishersByStatus[status] = count
		stats.TotalExtinguishers += count
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	monthStart := time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, time.UTC)
	err = r.db.QueryRow(ctx, `
		SELECT
			(SELECT COUNT(*) FROM extinguishers
				WHERE tenant_id = $1 AND deleted_at IS NULL AND status <> 'Retired'
				AND next_inspection_due BETWEEN $2 AND $3),
			(SELECT COUNT(*) FROM inspections WHERE tenant_id = $1 AND status = 'Overdue'),
			(SELECT COUNT(*) FROM inspections WHERE tenant_id = $1 AND status = 'Completed' AND completed_at >= $4),
			(SELECT COUNT(*) FROM inspections
				WHERE tenant_id = $1 AND status = 'Completed' AND completed_at >= $4 AND overall_result = 'Pass'),
			(SELECT COUNT(*) FROM deficiencies
				WHERE tenant_id = $1 AND status IN ('Open', 'InProgress') AND due_date < $2)
	`, tenantID, today, today.AddDate(0, 0, 30), monthStart).Scan(
		&stats.InspectionsDueNext30,
		&stats.OverdueInspections,
		&stats.CompletedThisMonth,
		&stats.PassedThisMonth,
		&stats.OverdueDeficiencies,
	)
	if err != nil {
		return nil, err
	}
	if stats.CompletedThisMonth > 0 {
		stats.PassRate = float64(stats.PassedThisMonth) / float64(stats.CompletedThisMonth) * 100
	}

	rows, err = r.db.Query(ctx, `
		SELECT severity, COUNT(*)
		FROM deficiencies
		WHERE tenant_id = $1 AND status IN ('Open', 'InProgress', 'Deferred')
		GROUP BY severity
	`, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var severity string
		var count int
		if err := rows.Scan(&severity, &count); err != nil {
			return nil, err
		}
		stats.OpenDeficienciesBySev[severity] = count
	}
	return stats, rows.Err()
}

func (r *dashboardRepo) Compliance(ctx context.Context, tenantID uuid.UUID, today time.Time) ([]models.LocationCompliance, error) {
	query := `
		SELECT l.id, l.code, l.name,
			COUNT(e.id) FILTER (WHERE e.status <> 'Retired'),
			COUNT(e.id) FILTER (WHERE e.status <> 'Retired' AND (e.next_inspection_due IS NULL OR e.next_inspection_due >= $2))
		FROM locations l
		LEFT JOIN extinguishers e ON e.location_id = l.id AND e.tenant_id = l.tenant_id AND e.deleted_at IS NULL
		WHERE l.tenant_id = $1 AND l.deleted_at IS NULL
		GROUP BY l.id, l.code, l.name
		ORDER BY l.code
	`
	rows, err := r.db.Query(ctx, query, tenantID, today)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []models.LocationCompliance
	for rows.Next() {
		var lc models.LocationCompliance
		if err := rows.Scan(&lc.LocationID, &lc.LocationCode, &lc.LocationName, &lc.Active, &lc.Compliant); err != nil {
			return nil, err
		}
		if lc.Active > 0 {
			lc.Percent = float64(lc.Compliant) / float64(lc.Active) * 100
		} else {
			lc.Percent = 100
		}
		items = append(items, lc)
	}
	return items, rows.Err()
}
