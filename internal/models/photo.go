package models

import (
	"time"

	"github.com/google/uuid"
)

// Photo types
const (
	PhotoOverview = "Overview"
	PhotoTag      = "Tag"
	PhotoGauge    = "Gauge"
	PhotoDamage   = "Damage"
	PhotoLocation = "Location"
	PhotoOther    = "Other"
)

var PhotoTypes = []string{PhotoOverview, PhotoTag, PhotoGauge, PhotoDamage, PhotoLocation, PhotoOther}

type Photo struct {
	ID           uuid.UUID  `json:"id" db:"id"`
	TenantID     uuid.UUID  `json:"tenant_id" db:"tenant_id"`
	InspectionID uuid.UUID  `json:"inspection_id" db:"inspection_id"`
	DeficiencyID *uuid.UUID `json:"deficiency_id,omitempty" db:"deficiency_id"`
	PhotoType    string     `json:"photo_type" db:"photo_type"`
	ObjectKey    string     `json:"-" db:"object_key"`
	ContentType  string     `json:"content_type" db:"content_type"`
	SizeBytes    int64      `json:"size_bytes" db:"size_bytes"`
	SHA256       string     `json:"sha256" db:"sha256"`
	CapturedAt   *time.Time `json:"captured_at,omitempty" db:"captured_at"`
	Latitude     *float64   `json:"latitude,omitempty" db:"latitude"`
	Longitude    *float64   `json:"longitude,omitempty" db:"longitude"`
	UploadedBy   *uuid.UUID `json:"uploaded_by,omitempty" db:"uploaded_by"`
	CreatedAt    time.Time  `json:"created_at" db:"created_at"`

	URL string `json:"url,omitempty" db:"-"`
}

// PhotoUpload carries the metadata of a multipart photo upload.
type PhotoUpload struct {
	InspectionID uuid.UUID
	PhotoType    string
	DeficiencyID *uuid.UUID
	CapturedAt   *time.Time
	Latitude     *float64
	Longitude    *float64
	FileName     string
	Size         int64
}
