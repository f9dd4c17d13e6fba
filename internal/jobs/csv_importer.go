package jobs

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"fireproof/internal/apperrors"
	"fireproof/internal/common"
	"fireproof/internal/logger"
	"fireproof/internal/metrics"
	"fireproof/internal/models"
	"fireproof/internal/repositories"
	"fireproof/internal/services"
	"fireproof/internal/validation"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/jonboulle/clockwork"
)

// SyncImportMaxRows is the largest file processed inside the request.
const SyncImportMaxRows = 500

// Column sets. Extinguisher exports use the same columns so files round-trip.
var (
	ExtinguisherColumns = []string{"asset_tag", "location_code", "type_code", "serial_number", "barcode",
		"manufacturer", "model", "capacity", "manufacture_date", "install_date", "floor", "room", "position_notes",
		"last_service_date", "last_hydro_test"}
	LocationColumns = []string{"code", "name", "address_line1", "address_line2", "city", "state", "postal_code",
		"country", "latitude", "longitude", "contact_name", "contact_phone", "contact_email"}

	requiredColumns = map[string][]string{
		models.ImportExtinguishers: {"asset_tag", "location_code", "type_code"},
		models.ImportLocations:     {"code", "name"},
	}
)

// Enqueuer is the part of *asynq.Client the importer needs.
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

type ImportRequest struct {
	TenantID uuid.UUID
	UserID   *uuid.UUID
	Kind     string
	FileName string
	DryRun   bool
	Data     []byte
}

// CSVImporter upserts extinguishers and locations from CSV files.
type CSVImporter struct {
	locationRepo     repositories.LocationRepository
	extinguisherRepo repositories.ExtinguisherRepository
	typeRepo         repositories.ExtinguisherTypeRepository
	importJobRepo    repositories.ImportJobRepository
	locationSvc      services.LocationService
	extinguisherSvc  services.ExtinguisherService
	queue            Enqueuer
	validate         *validator.Validate
	clock            clockwork.Clock
}

func NewCSVImporter(
	locationRepo repositories.LocationRepository,
	extinguisherRepo repositories.ExtinguisherRepository,
	typeRepo repositories.ExtinguisherTypeRepository,
	importJobRepo repositories.ImportJobRepository,
	locationSvc services.LocationService,
	extinguisherSvc services.ExtinguisherService,
	queue Enqueuer,
	clock clockwork.Clock,
) *CSVImporter {
	return &CSVImporter{
		locationRepo:     locationRepo,
		extinguisherRepo: extinguisherRepo,
		typeRepo:         typeRepo,
		importJobRepo:    importJobRepo,
		locationSvc:      locationSvc,
		extinguisherSvc:  extinguisherSvc,
		queue:            queue,
		validate:         validation.New(),
		clock:            clock,
	}
}

// table is a parsed CSV file with a lowercase header index.
type table struct {
	columns map[string]int
	rows    [][]string
}

func (t *table) get(row []string, column string) string {
	i, ok := t.columns[column]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

func (t *table) optional(row []string, column string) *string {
	v := t.get(row, column)
	if v == "" {
		return nil
	}
	return &v
}

func parseTable(data []byte, kind string) (*table, error) {
	reader := csv.NewReader(bytes.NewReader(data))
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, apperrors.Validation("file", "CSV header row is required")
	}
	if err != nil {
		return nil, apperrors.Validation("file", fmt.Sprintf("failed to parse CSV: %v", err))
	}

	t := &table{columns: make(map[string]int, len(header))}
	for i, name := range header {
		name = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")))
		t.columns[name] = i
	}
	var missing []string
	for _, col := range requiredColumns[kind] {
		if _, ok := t.columns[col]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, apperrors.Validation("file", "missing required columns: "+strings.Join(missing, ", "))
	}

	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, apperrors.Validation("file", fmt.Sprintf("failed to parse CSV: %v", err))
		}
		if isBlank(row) {
			continue
		}
		t.rows = append(t.rows, row)
	}
	return t, nil
}

func isBlank(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

// Submit imports small files right away and queues larger ones.
func (i *CSVImporter) Submit(ctx context.Context, req ImportRequest) (*models.ImportResponse, error) {
	if _, ok := requiredColumns[req.Kind]; !ok {
		return nil, apperrors.Validation("kind", "unknown import kind "+req.Kind)
	}
	t, err := parseTable(req.Data, req.Kind)
	if err != nil {
		return nil, err
	}

	if len(t.rows) <= SyncImportMaxRows {
		result := i.process(ctx, req.TenantID, req.Kind, req.DryRun, t)
		return &models.ImportResponse{Status: models.ImportCompleted, Result: result}, nil
	}
	if i.queue == nil {
		return nil, apperrors.Validation("file", fmt.Sprintf("files above %d rows require the background worker", SyncImportMaxRows))
	}

	job := &models.ImportJob{
		ID:        uuid.New(),
		TenantID:  req.TenantID,
		Kind:      req.Kind,
		Status:    models.ImportQueued,
		FileName:  req.FileName,
		DryRun:    req.DryRun,
		CreatedBy: req.UserID,
	}
	if err := i.importJobRepo.Create(ctx, job); err != nil {
		return nil, err
	}

	task, err := NewCSVImportTask(CSVImportPayload{
		JobID:    job.ID,
		TenantID: req.TenantID,
		UserID:   req.UserID,
		Kind:     req.Kind,
		DryRun:   req.DryRun,
		Data:     req.Data,
	})
	if err != nil {
		return nil, err
	}
	info, err := i.queue.EnqueueContext(ctx, task, asynq.MaxRetry(2))
	if err != nil {
		finishErr := i.importJobRepo.Finish(ctx, req.TenantID, job.ID, models.ImportFailed,
			&models.ImportResult{Errors: []models.RowError{{Message: "failed to enqueue import"}}}, i.clock.Now().UTC())
		if finishErr != nil {
			logger.FromContext(ctx).WithError(finishErr).Warn("Failed to mark import job failed")
		}
		return nil, apperrors.Internal("failed to enqueue import", err)
	}

	logger.FromContext(ctx).WithFields(map[string]interface{}{
		"job_id":  job.ID,
		"task_id": info.ID,
		"rows":    len(t.rows),
		"kind":    req.Kind,
	}).Info("Queued CSV import")
	return &models.ImportResponse{Status: models.ImportQueued, JobID: &job.ID}, nil
}

// Run processes a queued import job.
func (i *CSVImporter) Run(ctx context.Context, p CSVImportPayload) error {
	if err := i.importJobRepo.MarkProcessing(ctx, p.TenantID, p.JobID, i.clock.Now().UTC()); err != nil {
		return err
	}
	if p.UserID != nil {
		ctx = context.WithValue(ctx, common.UserIDKey, *p.UserID)
	}
	ctx = context.WithValue(ctx, common.TenantIDKey, p.TenantID)

	t, err := parseTable(p.Data, p.Kind)
	if err != nil {
		return i.importJobRepo.Finish(ctx, p.TenantID, p.JobID, models.ImportFailed,
			&models.ImportResult{Errors: rowErrors(1, err)}, i.clock.Now().UTC())
	}

	result := i.process(ctx, p.TenantID, p.Kind, p.DryRun, t)
	return i.importJobRepo.Finish(ctx, p.TenantID, p.JobID, models.ImportCompleted, result, i.clock.Now().UTC())
}

// Import processes a file synchronously regardless of its size.
func (i *CSVImporter) Import(ctx context.Context, tenantID uuid.UUID, kind string, dryRun bool, r io.Reader) (*models.ImportResult, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	t, err := parseTable(data, kind)
	if err != nil {
		return nil, err
	}
	return i.process(ctx, tenantID, kind, dryRun, t), nil
}

func (i *CSVImporter) process(ctx context.Context, tenantID uuid.UUID, kind string, dryRun bool, t *table) *models.ImportResult {
	result := &models.ImportResult{TotalRows: len(t.rows), DryRun: dryRun, Errors: []models.RowError{}}

	for n, row := range t.rows {
		rowNum := n + 2
		var created bool
		var err error
		switch kind {
		case models.ImportExtinguishers:
			created, err = i.upsertExtinguisher(ctx, tenantID, t, row, dryRun)
		case models.ImportLocations:
			created, err = i.upsertLocation(ctx, tenantID, t, row, dryRun)
		}

		outcome := "updated"
		switch {
		case err != nil:
			outcome = "failed"
			result.FailedRows++
			result.Errors = append(result.Errors, rowErrors(rowNum, err)...)
		case created:
			outcome = "created"
			result.CreatedRows++
		default:
			result.UpdatedRows++
		}
		if !dryRun {
			metrics.ImportRows.WithLabelValues(kind, outcome).Inc()
		}
	}

	logger.FromContext(ctx).WithFields(map[string]interface{}{
		"tenant_id": tenantID,
		"kind":      kind,
		"total":     result.TotalRows,
		"created":   result.CreatedRows,
		"updated":   result.UpdatedRows,
		"failed":    result.FailedRows,
		"dry_run":   dryRun,
	}).Info("CSV import processed")
	return result
}

// rowErrors flattens a row failure into one entry per offending field.
func rowErrors(row int, err error) []models.RowError {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		out := make([]models.RowError, 0, len(verrs))
		for _, fe := range verrs {
			out = append(out, models.RowError{Row: row, Field: fe.Field(), Message: validation.Message(fe)})
		}
		return out
	}
	if appErr, ok := apperrors.As(err); ok {
		if len(appErr.Details) > 0 {
			fields := make([]string, 0, len(appErr.Details))
			for field := range appErr.Details {
				fields = append(fields, field)
			}
			sort.Strings(fields)
			out := make([]models.RowError, 0, len(fields))
			for _, field := range fields {
				out = append(out, models.RowError{Row: row, Field: field, Message: appErr.Details[field]})
			}
			return out
		}
		return []models.RowError{{Row: row, Message: appErr.Message}}
	}
	return []models.RowError{{Row: row, Message: err.Error()}}
}

func (i *CSVImporter) upsertExtinguisher(ctx context.Context, tenantID uuid.UUID, t *table, row []string, dryRun bool) (bool, error) {
	locationCode := t.get(row, "location_code")
	loc, err := i.locationRepo.GetByCode(ctx, tenantID, locationCode)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return false, apperrors.Validation("location_code", "unknown location code "+locationCode)
		}
		return false, err
	}
	typeCode := t.get(row, "type_code")
	et, err := i.typeRepo.GetByCode(ctx, tenantID, typeCode)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return false, apperrors.Validation("type_code", "unknown type code "+typeCode)
		}
		return false, err
	}

	req := &models.ExtinguisherRequest{
		LocationID:      loc.ID,
		TypeID:          et.ID,
		AssetTag:        t.get(row, "asset_tag"),
		Barcode:         t.optional(row, "barcode"),
		SerialNumber:    t.optional(row, "serial_number"),
		Manufacturer:    t.optional(row, "manufacturer"),
		Model:           t.optional(row, "model"),
		Capacity:        t.optional(row, "capacity"),
		ManufactureDate: t.optional(row, "manufacture_date"),
		InstallDate:     t.optional(row, "install_date"),
		Floor:           t.optional(row, "floor"),
		Room:            t.optional(row, "room"),
		PositionNotes:   t.optional(row, "position_notes"),
		LastServiceDate: t.optional(row, "last_service_date"),
		LastHydroTest:   t.optional(row, "last_hydro_test"),
	}
	if err := i.validate.Struct(req); err != nil {
		return false, err
	}

	existing, err := i.extinguisherRepo.GetByAssetTag(ctx, tenantID, req.AssetTag)
	if err != nil && !apperrors.IsNotFound(err) {
		return false, err
	}
	if dryRun {
		return existing == nil, nil
	}
	if existing == nil {
		_, err = i.extinguisherSvc.Create(ctx, tenantID, req)
		return err == nil, err
	}
	status := existing.Status
	req.Status = &status
	_, err = i.extinguisherSvc.Update(ctx, tenantID, existing.ID, req)
	return false, err
}

func (i *CSVImporter) upsertLocation(ctx context.Context, tenantID uuid.UUID, t *table, row []string, dryRun bool) (bool, error) {
	req := &models.LocationRequest{
		Code:         t.get(row, "code"),
		Name:         t.get(row, "name"),
		AddressLine1: t.optional(row, "address_line1"),
		AddressLine2: t.optional(row, "address_line2"),
		City:         t.optional(row, "city"),
		State:        t.optional(row, "state"),
		PostalCode:   t.optional(row, "postal_code"),
		Country:      t.optional(row, "country"),
		ContactName:  t.optional(row, "contact_name"),
		ContactPhone: t.optional(row, "contact_phone"),
		ContactEmail: t.optional(row, "contact_email"),
	}
	var err error
	if req.Latitude, err = parseCoord(t.get(row, "latitude"), "latitude"); err != nil {
		return false, err
	}
	if req.Longitude, err = parseCoord(t.get(row, "longitude"), "longitude"); err != nil {
		return false, err
	}
	if err := i.validate.Struct(req); err != nil {
		return false, err
	}

	existing, err := i.locationRepo.GetByCode(ctx, tenantID, req.Code)
	if err != nil && !apperrors.IsNotFound(err) {
		return false, err
	}
	if dryRun {
		return existing == nil, nil
	}
	if existing == nil {
		_, err = i.locationSvc.Create(ctx, tenantID, req)
		return err == nil, err
	}
	_, err = i.locationSvc.Update(ctx, tenantID, existing.ID, req)
	return false, err
}

func parseCoord(v, field string) (*float64, error) {
	if v == "" {
		return nil, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return nil, apperrors.Validation(field, "must be a number")
	}
	return &f, nil
}

// Job returns a queued import job.
func (i *CSVImporter) Job(ctx context.Context, tenantID, id uuid.UUID) (*models.ImportJob, error) {
	return i.importJobRepo.GetByID(ctx, tenantID, id)
}
