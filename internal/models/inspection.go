package models

import (
	"time"

	"github.com/google/uuid"
)

// Inspection types
const (
	InspectionMonthly     = "Monthly"
	InspectionAnnual      = "Annual"
	InspectionSixYear     = "SixYear"
	InspectionHydrostatic = "Hydrostatic"
)

// Inspection statuses
const (
	InspectionScheduled  = "Scheduled"
	InspectionInProgress = "InProgress"
	InspectionCompleted  = "Completed"
	InspectionOverdue    = "Overdue"
)

// Response and overall results
const (
	ResultPass = "Pass"
	ResultFail = "Fail"
	ResultNA   = "NA"
)

// GenesisHash is the previous hash of the first inspection in a chain.
const GenesisHash = "0000000000000000000000000000000000000000000000000000000000000000"

var InspectionTypes = []string{InspectionMonthly, InspectionAnnual, InspectionSixYear, InspectionHydrostatic}

type Inspection struct {
	ID             uuid.UUID  `json:"id" db:"id"`
	TenantID       uuid.UUID  `json:"tenant_id" db:"tenant_id"`
	ExtinguisherID uuid.UUID  `json:"extinguisher_id" db:"extinguisher_id"`
	TemplateID     uuid.UUID  `json:"template_id" db:"template_id"`
	InspectorID    *uuid.UUID `json:"inspector_id,omitempty" db:"inspector_id"`
	InspectionType string     `json:"inspection_type" db:"inspection_type"`
	Status         string     `json:"status" db:"status"`
	ScheduledDate  time.Time  `json:"scheduled_date" db:"scheduled_date"`
	StartedAt      *time.Time `json:"started_at,omitempty" db:"started_at"`
	CompletedAt    *time.Time `json:"completed_at,omitempty" db:"completed_at"`
	CapturedAt     *time.Time `json:"captured_at,omitempty" db:"captured_at"`
	OverallResult  *string    `json:"overall_result,omitempty" db:"overall_result"`
	Notes          *string    `json:"notes,omitempty" db:"notes"`
	Latitude       *float64   `json:"latitude,omitempty" db:"latitude"`
	Longitude      *float64   `json:"longitude,omitempty" db:"longitude"`
	DeviceID       *string    `json:"device_id,omitempty" db:"device_id"`
	PreviousHash   *string    `json:"previous_hash,omitempty" db:"previous_hash"`
	Hash           *string    `json:"hash,omitempty" db:"hash"`
	Signature      *string    `json:"signature,omitempty" db:"signature"`
	CreatedAt      time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at" db:"updated_at"`

	Responses    []InspectionResponse `json:"responses,omitempty" db:"-"`
	Deficiencies []Deficiency         `json:"deficiencies,omitempty" db:"-"`
	Photos       []Photo              `json:"photos,omitempty" db:"-"`
}

// IsOpen reports whether the inspection still awaits completion.
func (i *Inspection) IsOpen() bool {
	return i.Status == InspectionScheduled || i.Status == InspectionInProgress || i.Status == InspectionOverdue
}

type InspectionResponse struct {
	ID           uuid.UUID  `json:"id" db:"id"`
	InspectionID uuid.UUID  `json:"inspection_id" db:"inspection_id"`
	ItemID       uuid.UUID  `json:"item_id" db:"item_id"`
	Result       string     `json:"result" db:"result"`
	Comment      string     `json:"comment" db:"comment"`
	PhotoID      *uuid.UUID `json:"photo_id,omitempty" db:"photo_id"`
	CreatedAt    time.Time  `json:"created_at" db:"created_at"`
}

type InspectionFilter struct {
	Status         *string
	InspectionType *string
	ExtinguisherID *uuid.UUID
	LocationID     *uuid.UUID
	InspectorID    *uuid.UUID
	From           *time.Time
	To             *time.Time
	Limit          int
	Offset         int
}

type ScheduleInspectionRequest struct {
	ExtinguisherID uuid.UUID  `json:"extinguisher_id" validate:"required"`
	TemplateID     uuid.UUID  `json:"template_id" validate:"required"`
	ScheduledDate  string     `json:"scheduled_date" validate:"required,datetime=2006-01-02"`
	InspectorID    *uuid.UUID `json:"inspector_id"`
}

type StartInspectionRequest struct {
	Latitude  *float64 `json:"latitude" validate:"omitempty,latitude"`
	Longitude *float64 `json:"longitude" validate:"omitempty,longitude"`
	DeviceID  *string  `json:"device_id" validate:"omitempty,max=200"`
}

type ResponseInput struct {
	ItemID  uuid.UUID  `json:"item_id" validate:"required"`
	Result  string     `json:"result" validate:"required,checklist_response"`
	Comment string     `json:"comment" validate:"max=2000"`
	PhotoID *uuid.UUID `json:"photo_id"`
}

type SaveResponsesRequest struct {
	Responses []ResponseInput `json:"responses" validate:"required,min=1,dive"`
}

// DeficiencyInput is a client supplied deficiency attached at completion time.
type DeficiencyInput struct {
	ItemID         *uuid.UUID `json:"item_id"`
	DeficiencyType string     `json:"deficiency_type" validate:"required,deficiency_type"`
	Severity       string     `json:"severity" validate:"required,severity"`
	Description    string     `json:"description" validate:"required,max=2000"`
	ActionRequired *string    `json:"action_required" validate:"omitempty,max=2000"`
}

type CompleteInspectionRequest struct {
	Responses    []ResponseInput   `json:"responses" validate:"required,min=1,dive"`
	Deficiencies []DeficiencyInput `json:"deficiencies" validate:"omitempty,dive"`
	Notes        *string           `json:"notes" validate:"omitempty,max=4000"`
	Latitude     *float64          `json:"latitude" validate:"omitempty,latitude"`
	Longitude    *float64          `json:"longitude" validate:"omitempty,longitude"`
	CapturedAt   *time.Time        `json:"captured_at"`
}

type ScheduleDueRequest struct {
	DaysAhead int `json:"days_ahead" validate:"omitempty,min=0,max=365"`
}

type ScheduleDueResult struct {
	Created int `json:"created"`
}

// VerificationResult reports the tamper-evidence state of a completed inspection.
type VerificationResult struct {
	InspectionID   uuid.UUID `json:"inspection_id"`
	HashValid      bool      `json:"hash_valid"`
	SignatureValid bool      `json:"signature_valid"`
	ChainValid     bool      `json:"chain_valid"`
	ComputedHash   string    `json:"computed_hash"`
	StoredHash     string    `json:"stored_hash"`
}

// Valid reports whether every check passed.
func (v VerificationResult) Valid() bool {
	return v.HashValid && v.SignatureValid && v.ChainValid
}

// ChainBreak describes the first failure found while walking a chain.
type ChainBreak struct {
	ExtinguisherID uuid.UUID `json:"extinguisher_id"`
	InspectionID   uuid.UUID `json:"inspection_id"`
	Reason         string    `json:"reason"`
}

// ChainReport summarizes a tenant wide chain verification.
type ChainReport struct {
	TenantID      uuid.UUID    `json:"tenant_id"`
	Extinguishers int          `json:"extinguishers"`
	Inspections   int          `json:"inspections"`
	Breaks        []ChainBreak `json:"breaks"`
}
