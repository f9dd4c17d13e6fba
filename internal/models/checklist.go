package models

import (
	"time"

	"github.com/google/uuid"
)

type ChecklistTemplate struct {
	ID             uuid.UUID       `json:"id" db:"id"`
	TenantID       *uuid.UUID      `json:"tenant_id,omitempty" db:"tenant_id"`
	Name           string          `json:"name" db:"name"`
	Description    string          `json:"description" db:"description"`
	InspectionType string          `json:"inspection_type" db:"inspection_type"`
	Standard       string          `json:"standard" db:"standard"`
	IsSystem       bool            `json:"is_system" db:"is_system"`
	IsActive       bool            `json:"is_active" db:"is_active"`
	Items          []ChecklistItem `json:"items,omitempty" db:"-"`
	CreatedAt      time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at" db:"updated_at"`
	DeletedAt      *time.Time      `json:"-" db:"deleted_at"`
}

// VisibleTo reports whether the template can be used by tenantID.
func (t *ChecklistTemplate) VisibleTo(tenantID uuid.UUID) bool {
	if t.TenantID == nil {
		return t.IsSystem
	}
	return *t.TenantID == tenantID
}

type ChecklistItem struct {
	ID                    uuid.UUID `json:"id" db:"id"`
	TemplateID            uuid.UUID `json:"template_id" db:"template_id"`
	Order                 int       `json:"order" db:"item_order"`
	Category              string    `json:"category" db:"category"`
	Text                  string    `json:"text" db:"item_text"`
	HelpText              string    `json:"help_text" db:"help_text"`
	RequiresPhoto         bool      `json:"requires_photo" db:"requires_photo"`
	RequiresCommentOnFail bool      `json:"requires_comment_on_fail" db:"requires_comment_on_fail"`
}

type ChecklistTemplateFilter struct {
	InspectionType *string
	IsActive       *bool
	IncludeSystem  bool
	Limit          int
	Offset         int
}

type ChecklistItemRequest struct {
	Order                 *int   `json:"order" validate:"omitempty,min=0"`
	Category              string `json:"category" validate:"max=100"`
	Text                  string `json:"text" validate:"required,max=500"`
	HelpText              string `json:"help_text" validate:"max=1000"`
	RequiresPhoto         bool   `json:"requires_photo"`
	RequiresCommentOnFail *bool  `json:"requires_comment_on_fail"`
}

type ChecklistTemplateRequest struct {
	Name           string                 `json:"name" validate:"required,max=200"`
	Description    string                 `json:"description" validate:"max=1000"`
	InspectionType string                 `json:"inspection_type" validate:"required,inspection_type"`
	Standard       string                 `json:"standard" validate:"max=50"`
	IsActive       *bool                  `json:"is_active"`
	Items          []ChecklistItemRequest `json:"items" validate:"required,min=1,dive"`
}

type DuplicateTemplateRequest struct {
	Name string `json:"name" validate:"omitempty,max=200"`
}
