package models

import (
	"time"

	"github.com/google/uuid"
)

type Location struct {
	ID           uuid.UUID  `json:"id" db:"id"`
	TenantID     uuid.UUID  `json:"tenant_id" db:"tenant_id"`
	Code         string     `json:"code" db:"code"`
	Name         string     `json:"name" db:"name"`
	AddressLine1 *string    `json:"address_line1,omitempty" db:"address_line1"`
	AddressLine2 *string    `json:"address_line2,omitempty" db:"address_line2"`
	City         *string    `json:"city,omitempty" db:"city"`
	State        *string    `json:"state,omitempty" db:"state"`
	PostalCode   *string    `json:"postal_code,omitempty" db:"postal_code"`
	Country      *string    `json:"country,omitempty" db:"country"`
	Latitude     *float64   `json:"latitude,omitempty" db:"latitude"`
	Longitude    *float64   `json:"longitude,omitempty" db:"longitude"`
	ContactName  *string    `json:"contact_name,omitempty" db:"contact_name"`
	ContactPhone *string    `json:"contact_phone,omitempty" db:"contact_phone"`
	ContactEmail *string    `json:"contact_email,omitempty" db:"contact_email"`
	IsActive     bool       `json:"is_active" db:"is_active"`
	CreatedAt    time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at" db:"updated_at"`
	DeletedAt    *time.Time `json:"-" db:"deleted_at"`
}

type LocationFilter struct {
	Search   string
	IsActive *bool
	Limit    int
	Offset   int
}

type LocationRequest struct {
	Code         string   `json:"code" validate:"required,max=50"`
	Name         string   `json:"name" validate:"required,max=200"`
	AddressLine1 *string  `json:"address_line1" validate:"omitempty,max=200"`
	AddressLine2 *string  `json:"address_line2" validate:"omitempty,max=200"`
	City         *string  `json:"city" validate:"omitempty,max=100"`
	State        *string  `json:"state" validate:"omitempty,max=100"`
	PostalCode   *string  `json:"postal_code" validate:"omitempty,max=20"`
	Country      *string  `json:"country" validate:"omitempty,max=100"`
	Latitude     *float64 `json:"latitude" validate:"omitempty,latitude"`
	Longitude    *float64 `json:"longitude" validate:"omitempty,longitude"`
	ContactName  *string  `json:"contact_name" validate:"omitempty,max=200"`
	ContactPhone *string  `json:"contact_phone" validate:"omitempty,max=30"`
	ContactEmail *string  `json:"contact_email" validate:"omitempty,email"`
	IsActive     *bool    `json:"is_active"`
}
