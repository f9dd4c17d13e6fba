package models

import (
	"time"

	"github.com/google/uuid"
)

// DashboardStats is the tenant overview shown on the dashboard.
type DashboardStats struct {
	TenantID              uuid.UUID      `json:"tenant_id"`
	TotalExtinguishers    int            `json:"total_extinguishers"`
	ExtinguishersByStatus map[string]int `json:"extinguishers_by_status"`
	InspectionsDueNext30  int            `json:"inspections_due_next_30_days"`
	OverdueInspections    int            `json:"overdue_inspections"`
	CompletedThisMonth    int            `json:"completed_this_month"`
	PassedThisMonth       int            `json:"passed_this_month"`
	PassRate              float64        `json:"pass_rate"`
	OpenDeficienciesBySev map[string]int `json:"open_deficiencies_by_severity"`
	OverdueDeficiencies   int            `json:"overdue_deficiencies"`
	GeneratedAt           time.Time      `json:"generated_at"`
}

// LocationCompliance is the share of active units at a location that are not past due.
type LocationCompliance struct {
	LocationID   uuid.UUID `json:"location_id"`
	LocationCode string    `json:"location_code"`
	LocationName string    `json:"location_name"`
	Active       int       `json:"active"`
	Compliant    int       `json:"compliant"`
	Percent      float64   `json:"percent"`
}
