package jobs

import (
	"context"
	"encoding/csv"
	"io"
	"strconv"
	"time"

	"fireproof/internal/common"
	"fireproof/internal/models"
	"fireproof/internal/repositories"

	"github.com/google/uuid"
)

var (
	InspectionExportColumns = []string{"inspection_id", "asset_tag", "extinguisher_id", "inspection_type", "status",
		"scheduled_date", "started_at", "completed_at", "overall_result", "inspector_id", "notes", "hash"}
	DeficiencyExportColumns = []string{"deficiency_id", "asset_tag", "extinguisher_id", "inspection_id",
		"deficiency_type", "severity", "status", "description", "action_required", "estimated_cost", "assigned_to",
		"due_date", "resolved_at", "resolution_notes", "created_at"}
)

// CSVExporter streams tenant data as CSV.
type CSVExporter struct {
	extinguisherRepo repositories.ExtinguisherRepository
	inspectionRepo   repositories.InspectionRepository
	deficiencyRepo   repositories.DeficiencyRepository
}

func NewCSVExporter(extinguisherRepo repositories.ExtinguisherRepository, inspectionRepo repositories.InspectionRepository, deficiencyRepo repositories.DeficiencyRepository) *CSVExporter {
	return &CSVExporter{
		extinguisherRepo: extinguisherRepo,
		inspectionRepo:   inspectionRepo,
		deficiencyRepo:   deficiencyRepo,
	}
}

func formatDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(common.DateLayout)
}

func formatTimestamp(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func formatUUID(id *uuid.UUID) string {
	if id == nil {
		return ""
	}
	return id.String()
}

// ExportExtinguishers writes every unit in the importer's column layout.
func (e *CSVExporter) ExportExtinguishers(ctx context.Context, tenantID uuid.UUID, w io.Writer) (int, error) {
	cw := csv.NewWriter(w)
	if err := cw.Write(ExtinguisherColumns); err != nil {
		return 0, err
	}

	count := 0
	err := e.extinguisherRepo.ForEach(ctx, tenantID, func(x *models.Extinguisher) error {
		count++
		return cw.Write([]string{
			x.AssetTag,
			common.SafeString(x.LocationCode),
			common.SafeString(x.TypeCode),
			common.SafeString(x.SerialNumber),
			common.SafeString(x.Barcode),
			common.SafeString(x.Manufacturer),
			common.SafeString(x.Model),
			common.SafeString(x.Capacity),
			formatDate(x.ManufactureDate),
			formatDate(x.InstallDate),
			common.SafeString(x.Floor),
			common.SafeString(x.Room),
			common.SafeString(x.PositionNotes),
			formatDate(x.LastServiceDate),
			formatDate(x.LastHydroTest),
		})
	})
	if err != nil {
		return count, err
	}
	cw.Flush()
	return count, cw.Error()
}

func (e *CSVExporter) assetTags(ctx context.Context, tenantID uuid.UUID) (map[uuid.UUID]string, error) {
	tags := map[uuid.UUID]string{}
	err := e.extinguisherRepo.ForEach(ctx, tenantID, func(x *models.Extinguisher) error {
		tags[x.ID] = x.AssetTag
		return nil
	})
	return tags, err
}

// ExportInspections writes inspections scheduled within [from, to]. Nil bounds are open.
func (e *CSVExporter) ExportInspections(ctx context.Context, tenantID uuid.UUID, from, to *time.Time, w io.Writer) (int, error) {
	tags, err := e.assetTags(ctx, tenantID)
	if err != nil {
		return 0, err
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(InspectionExportColumns); err != nil {
		return 0, err
	}

	count := 0
	filter := models.InspectionFilter{From: from, To: to}
	err = e.inspectionRepo.ForEach(ctx, tenantID, filter, func(i *models.Inspection) error {
		count++
		scheduled := i.ScheduledDate
		return cw.Write([]string{
			i.ID.String(),
			tags[i.ExtinguisherID],
			i.ExtinguisherID.String(),
			i.InspectionType,
			i.Status,
			formatDate(&scheduled),
			formatTimestamp(i.StartedAt),
			formatTimestamp(i.CompletedAt),
			common.SafeString(i.OverallResult),
			formatUUID(i.InspectorID),
			common.SafeString(i.Notes),
			common.SafeString(i.Hash),
		})
	})
	if err != nil {
		return count, err
	}
	cw.Flush()
	return count, cw.Error()
}

// ExportDeficiencies writes deficiencies matching filter.
func (e *CSVExporter) ExportDeficiencies(ctx context.Context, tenantID uuid.UUID, filter models.DeficiencyFilter, w io.Writer) (int, error) {
	tags, err := e.assetTags(ctx, tenantID)
	if err != nil {
		return 0, err
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(DeficiencyExportColumns); err != nil {
		return 0, err
	}

	count := 0
	err = e.deficiencyRepo.ForEach(ctx, tenantID, filter, func(d *models.Deficiency) error {
		count++
		cost := ""
		if d.EstimatedCost != nil {
			cost = strconv.FormatFloat(*d.EstimatedCost, 'f', 2, 64)
		}
		created := d.CreatedAt
		return cw.Write([]string{
			d.ID.String(),
			tags[d.ExtinguisherID],
			d.ExtinguisherID.String(),
			formatUUID(d.InspectionID),
			d.DeficiencyType,
			d.Severity,
			d.Status,
			d.Description,
			common.SafeString(d.ActionRequired),
			cost,
			formatUUID(d.AssignedTo),
			formatDate(d.DueDate),
			formatTimestamp(d.ResolvedAt),
			common.SafeString(d.ResolutionNotes),
			formatTimestamp(&created),
		})
	})
	if err != nil {
		return count, err
	}
	cw.Flush()
	return count, cw.Error()
}
