package models

import (
	"time"

	"github.com/google/uuid"
)

// Deficiency types
const (
	DeficiencyDamage     = "Damage"
	DeficiencyLowPress   = "LowPressure"
	DeficiencyMissing    = "Missing"
	DeficiencyObstructed = "Obstructed"
	DeficiencyExpired    = "Expired"
	DeficiencyLeaking    = "Leaking"
	DeficiencyTamperSeal = "TamperSeal"
	DeficiencySignage    = "Signage"
	DeficiencyOther      = "Other"
)

// Severities
const (
	SeverityLow      = "Low"
	SeverityMedium   = "Medium"
	SeverityHigh     = "High"
	SeverityCritical = "Critical"
)

// Deficiency statuses
const (
	DeficiencyOpen       = "Open"
	DeficiencyInProgress = "InProgress"
	DeficiencyResolved   = "Resolved"
	DeficiencyDeferred   = "Deferred"
	DeficiencyClosed     = "Closed"
)

var (
	DeficiencyTypes = []string{DeficiencyDamage, DeficiencyLowPress, DeficiencyMissing, DeficiencyObstructed,
		DeficiencyExpired, DeficiencyLeaking, DeficiencyTamperSeal, DeficiencySignage, DeficiencyOther}
	Severities = []string{SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical}
)

type Deficiency struct {
	ID              uuid.UUID  `json:"id" db:"id"`
	TenantID        uuid.UUID  `json:"tenant_id" db:"tenant_id"`
	InspectionID    *uuid.UUID `json:"inspection_id,omitempty" db:"inspection_id"`
	ExtinguisherID  uuid.UUID  `json:"extinguisher_id" db:"extinguisher_id"`
	ItemID          *uuid.UUID `json:"item_id,omitempty" db:"item_id"`
	DeficiencyType  string     `json:"deficiency_type" db:"deficiency_type"`
	Severity        string     `json:"severity" db:"severity"`
	Status          string     `json:"status" db:"status"`
	Description     string     `json:"description" db:"description"`
	ActionRequired  *string    `json:"action_required,omitempty" db:"action_required"`
	EstimatedCost   *float64   `json:"estimated_cost,omitempty" db:"estimated_cost"`
	AssignedTo      *uuid.UUID `json:"assigned_to,omitempty" db:"assigned_to"`
	DueDate         *time.Time `json:"due_date,omitempty" db:"due_date"`
	ResolvedAt      *time.Time `json:"resolved_at,omitempty" db:"resolved_at"`
	ResolvedBy      *uuid.UUID `json:"resolved_by,omitempty" db:"resolved_by"`
	ResolutionNotes *string    `json:"resolution_notes,omitempty" db:"resolution_notes"`
	CreatedBy       *uuid.UUID `json:"created_by,omitempty" db:"created_by"`
	CreatedAt       time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at" db:"updated_at"`
}

// IsOpen reports whether the deficiency still needs attention.
func (d *Deficiency) IsOpen() bool {
	return d.Status == DeficiencyOpen || d.Status == DeficiencyInProgress || d.Status == DeficiencyDeferred
}

var deficiencyTransitions = map[string][]string{
	DeficiencyOpen:       {DeficiencyInProgress, DeficiencyResolved, DeficiencyDeferred},
	DeficiencyInProgress: {DeficiencyResolved, DeficiencyDeferred},
	DeficiencyDeferred:   {DeficiencyInProgress, DeficiencyResolved},
	DeficiencyResolved:   {DeficiencyClosed},
}

// CanTransitionDeficiency reports whether from -> to is an allowed status change.
func CanTransitionDeficiency(from, to string) bool {
	for _, allowed := range deficiencyTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// DefaultDeficiencyDueDate returns the due date for a deficiency raised at
// from with the given severity.
func DefaultDeficiencyDueDate(severity string, from time.Time) time.Time {
	switch severity {
	case SeverityCritical:
		return from.AddDate(0, 0, 1)
	case SeverityHigh:
		return from.AddDate(0, 0, 7)
	case SeverityLow:
		return from.AddDate(0, 0, 90)
	default:
		return from.AddDate(0, 0, 30)
	}
}

type DeficiencyFilter struct {
	Status         *string
	Severity       *string
	ExtinguisherID *uuid.UUID
	LocationID     *uuid.UUID
	AssignedTo     *uuid.UUID
	Limit          int
	Offset         int
}

type CreateDeficiencyRequest struct {
	ExtinguisherID uuid.UUID  `json:"extinguisher_id" validate:"required"`
	InspectionID   *uuid.UUID `json:"inspection_id"`
	DeficiencyType string     `json:"deficiency_type" validate:"required,deficiency_type"`
	Severity       string     `json:"severity" validate:"required,severity"`
	Description    string     `json:"description" validate:"required,max=2000"`
	ActionRequired *string    `json:"action_required" validate:"omitempty,max=2000"`
	EstimatedCost  *float64   `json:"estimated_cost" validate:"omitempty,min=0"`
	AssignedTo     *uuid.UUID `json:"assigned_to"`
	DueDate        *string    `json:"due_date" validate:"omitempty,datetime=2006-01-02"`
}

type UpdateDeficiencyRequest struct {
	Status         *string  `json:"status" validate:"omitempty,oneof=Open InProgress Resolved Deferred Closed"`
	Severity       *string  `json:"severity" validate:"omitempty,severity"`
	Description    *string  `json:"description" validate:"omitempty,max=2000"`
	ActionRequired *string  `json:"action_required" validate:"omitempty,max=2000"`
	EstimatedCost  *float64 `json:"estimated_cost" validate:"omitempty,min=0"`
	DueDate        *string  `json:"due_date" validate:"omitempty,datetime=2006-01-02"`
}

type AssignDeficiencyRequest struct {
	AssignedTo uuid.UUID `json:"assigned_to" validate:"required"`
}

type ResolveDeficiencyRequest struct {
	ResolutionNotes string `json:"resolution_notes" validate:"required,max=4000"`
}
