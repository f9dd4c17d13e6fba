package models

import (
	"time"

	"github.com/google/uuid"
)

type User struct {
	ID            uuid.UUID  `json:"id" db:"id"`
	TenantID      uuid.UUID  `json:"tenant_id" db:"tenant_id"`
	Email         string     `json:"email" db:"email"`
	PasswordHash  string     `json:"-" db:"password_hash"` // Never serialize in JSON
	FirstName     string     `json:"first_name" db:"first_name"`
	LastName      string     `json:"last_name" db:"last_name"`
	Phone         *string    `json:"phone,omitempty" db:"phone"`
	ExternalID    *string    `json:"external_id,omitempty" db:"external_id"`
	IsActive      bool       `json:"is_active" db:"is_active"`
	IsSystemAdmin bool       `json:"is_system_admin" db:"is_system_admin"`
	LastLoginAt   *time.Time `json:"last_login_at,omitempty" db:"last_login_at"`
	CreatedAt     time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at" db:"updated_at"`
	DeletedAt     *time.Time `json:"-" db:"deleted_at"`
}

func (u *User) FullName() string {
	if u.LastName == "" {
		return u.FirstName
	}
	return u.FirstName + " " + u.LastName
}

// UserFilter narrows user listings.
type UserFilter struct {
	Search   string
	IsActive *bool
	Limit    int
	Offset   int
}

type CreateUserRequest struct {
	Email     string   `json:"email" validate:"required,email,max=255"`
	Password  string   `json:"password" validate:"required,min=8,max=128"`
	FirstName string   `json:"first_name" validate:"required,max=100"`
	LastName  string   `json:"last_name" validate:"max=100"`
	Phone     *string  `json:"phone" validate:"omitempty,max=30"`
	Roles     []string `json:"roles" validate:"omitempty,dive,required"`

	// SystemAdmin is only set by the command line tool.
	SystemAdmin bool `json:"-"`
}

type UpdateUserRequest struct {
	FirstName *string `json:"first_name" validate:"omitempty,max=100"`
	LastName  *string `json:"last_name" validate:"omitempty,max=100"`
	Phone     *string `json:"phone" validate:"omitempty,max=30"`
	IsActive  *bool   `json:"is_active"`
	Password  *string `json:"password" validate:"omitempty,min=8,max=128"`
}

type AssignRolesRequest struct {
	RoleIDs []uuid.UUID `json:"role_ids" validate:"required,min=1"`
}

// Profile is the authenticated user's view of themselves.
type Profile struct {
	User        *User    `json:"user"`
	Tenant      *Tenant  `json:"tenant"`
	Roles       []string `json:"roles"`
	Permissions []string `json:"permissions"`
}
