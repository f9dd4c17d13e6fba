package models

import (
	"time"

	"github.com/google/uuid"
)

type Tenant struct {
	ID        uuid.UUID `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	Slug      string    `json:"slug" db:"slug"`
	IsActive  bool      `json:"is_active" db:"is_active"`
	Settings  JSONB     `json:"settings" db:"settings"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

type CreateTenantRequest struct {
	Name string `json:"name" validate:"required,max=200"`
	Slug string `json:"slug" validate:"required"`

	// Optional first administrator, created with the TenantAdmin role.
	AdminEmail     string `json:"admin_email" validate:"omitempty,email"`
	AdminPassword  string `json:"admin_password" validate:"required_with=AdminEmail,omitempty,min=8"`
	AdminFirstName string `json:"admin_first_name" validate:"omitempty,max=100"`
	AdminLastName  string `json:"admin_last_name" validate:"omitempty,max=100"`
}

type UpdateTenantRequest struct {
	Name     *string `json:"name" validate:"omitempty,max=200"`
	IsActive *bool   `json:"is_active"`
	Settings JSONB   `json:"settings"`
}
