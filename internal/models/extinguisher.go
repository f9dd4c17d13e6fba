package models

import (
	"time"

	"github.com/google/uuid"
)

// Extinguisher statuses
const (
	ExtinguisherActive       = "Active"
	ExtinguisherOutOfService = "OutOfService"
	ExtinguisherRetired      = "Retired"
	ExtinguisherMissing      = "Missing"
)

type Extinguisher struct {
	ID                uuid.UUID  `json:"id" db:"id"`
	TenantID          uuid.UUID  `json:"tenant_id" db:"tenant_id"`
	LocationID        uuid.UUID  `json:"location_id" db:"location_id"`
	TypeID            uuid.UUID  `json:"type_id" db:"type_id"`
	AssetTag          string     `json:"asset_tag" db:"asset_tag"`
	Barcode           *string    `json:"barcode,omitempty" db:"barcode"`
	SerialNumber      *string    `json:"serial_number,omitempty" db:"serial_number"`
	Manufacturer      *string    `json:"manufacturer,omitempty" db:"manufacturer"`
	Model             *string    `json:"model,omitempty" db:"model"`
	Capacity          *string    `json:"capacity,omitempty" db:"capacity"`
	ManufactureDate   *time.Time `json:"manufacture_date,omitempty" db:"manufacture_date"`
	InstallDate       *time.Time `json:"install_date,omitempty" db:"install_date"`
	Floor             *string    `json:"floor,omitempty" db:"floor"`
	Room              *string    `json:"room,omitempty" db:"room"`
	PositionNotes     *string    `json:"position_notes,omitempty" db:"position_notes"`
	Status            string     `json:"status" db:"status"`
	LastInspectionAt  *time.Time `json:"last_inspection_at,omitempty" db:"last_inspection_at"`
	NextInspectionDue *time.Time `json:"next_inspection_due,omitempty" db:"next_inspection_due"`
	LastServiceDate   *time.Time `json:"last_service_date,omitempty" db:"last_service_date"`
	NextServiceDue    *time.Time `json:"next_service_due,omitempty" db:"next_service_due"`
	LastHydroTest     *time.Time `json:"last_hydro_test,omitempty" db:"last_hydro_test"`
	NextHydroDue      *time.Time `json:"next_hydro_due,omitempty" db:"next_hydro_due"`
	CreatedAt         time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at" db:"updated_at"`
	DeletedAt         *time.Time `json:"-" db:"deleted_at"`

	// Joined for display
	LocationCode *string `json:"location_code,omitempty" db:"-"`
	LocationName *string `json:"location_name,omitempty" db:"-"`
	TypeCode     *string `json:"type_code,omitempty" db:"-"`
	TypeName     *string `json:"type_name,omitempty" db:"-"`
}

type ExtinguisherFilter struct {
	LocationID *uuid.UUID
	TypeID     *uuid.UUID
	Status     *string
	DueBefore  *time.Time
	Search     string
	Limit      int
	Offset     int
}

type ExtinguisherRequest struct {
	LocationID      uuid.UUID `json:"location_id" validate:"required"`
	TypeID          uuid.UUID `json:"type_id" validate:"required"`
	AssetTag        string    `json:"asset_tag" validate:"required,max=100"`
	Barcode         *string   `json:"barcode" validate:"omitempty,max=100"`
	SerialNumber    *string   `json:"serial_number" validate:"omitempty,max=100"`
	Manufacturer    *string   `json:"manufacturer" validate:"omitempty,max=100"`
	Model           *string   `json:"model" validate:"omitempty,max=100"`
	Capacity        *string   `json:"capacity" validate:"omitempty,max=50"`
	ManufactureDate *string   `json:"manufacture_date" validate:"omitempty,datetime=2006-01-02"`
	InstallDate     *string   `json:"install_date" validate:"omitempty,datetime=2006-01-02"`
	Floor           *string   `json:"floor" validate:"omitempty,max=50"`
	Room            *string   `json:"room" validate:"omitempty,max=100"`
	PositionNotes   *string   `json:"position_notes" validate:"omitempty,max=500"`
	Status          *string   `json:"status" validate:"omitempty,oneof=Active OutOfService Retired Missing"`
	LastServiceDate *string   `json:"last_service_date" validate:"omitempty,datetime=2006-01-02"`
	LastHydroTest   *string   `json:"last_hydro_test" validate:"omitempty,datetime=2006-01-02"`
}
