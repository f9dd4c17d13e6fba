package services

import (
	"context"
	"strings"
	"time"

	"fireproof/internal/apperrors"
	"fireproof/internal/caching"
	"fireproof/internal/common"
	"fireproof/internal/logger"
	"fireproof/internal/models"
	"fireproof/internal/repositories"

	"github.com/google/uuid"
)

// BarcodeCacheTTL bounds how long a barcode lookup is served from Redis.
const BarcodeCacheTTL = 30 * time.Minute

type ExtinguisherService interface {
	Create(ctx context.Context, tenantID uuid.UUID, req *models.ExtinguisherRequest) (*models.Extinguisher, error)
	GetByID(ctx context.Context, tenantID, id uuid.UUID) (*models.Extinguisher, error)
	GetByBarcode(ctx context.Context, tenantID uuid.UUID, barcode string) (*models.Extinguisher, error)
	Update(ctx context.Context, tenantID, id uuid.UUID, req *models.ExtinguisherRequest) (*models.Extinguisher, error)
	Delete(ctx context.Context, tenantID, id uuid.UUID) error
	List(ctx context.Context, tenantID uuid.UUID, filter models.ExtinguisherFilter) ([]*models.Extinguisher, int, error)
	// History lists the unit's inspections, newest first.
	History(ctx context.Context, tenantID, id uuid.UUID, limit, offset int) ([]*models.Inspection, int, error)
}

type extinguisherService struct {
	extinguisherRepo repositories.ExtinguisherRepository
	locationRepo     repositories.LocationRepository
	typeRepo         repositories.ExtinguisherTypeRepository
	inspectionRepo   repositories.InspectionRepository
	cacheSvc         caching.CacheService
	auditSvc         AuditLogsService
}

func NewExtinguisherService(
	extinguisherRepo repositories.ExtinguisherRepository,
	locationRepo repositories.LocationRepository,
	typeRepo repositories.ExtinguisherTypeRepository,
	inspectionRepo repositories.InspectionRepository,
	cacheSvc caching.CacheService,
	auditSvc AuditLogsService,
) ExtinguisherService {
	return &extinguisherService{
		extinguisherRepo: extinguisherRepo,
		locationRepo:     locationRepo,
		typeRepo:         typeRepo,
		inspectionRepo:   inspectionRepo,
		cacheSvc:         cacheSvc,
		auditSvc:         auditSvc,
	}
}

// ComputeServiceDates derives the next service and hydrostatic test dates
// from the unit's history and its type.
func ComputeServiceDates(e *models.Extinguisher, t *models.ExtinguisherType) {
	e.NextServiceDue = nil
	if e.LastServiceDate != nil {
		months := t.AnnualServiceMonths
		if months <= 0 {
			months = defaultAnnualServiceMonths
		}
		next := common.AddMonths(*e.LastServiceDate, months)
		e.NextServiceDue = &next
	}

	e.NextHydroDue = nil
	base := e.LastHydroTest
	if base == nil {
		base = e.ManufactureDate
	}
	if base != nil {
		years := t.HydroTestYears
		if years <= 0 {
			years = models.DefaultHydroTestYears(t.AgentType)
		}
		next := common.AddMonths(*base, years*12)
		e.NextHydroDue = &next
	}
}

func parseRequestDate(value *string, field string) (*time.Time, error) {
	if value == nil {
		return nil, nil
	}
	t, err := common.ParseOptionalDate(*value, field)
	if err != nil {
		return nil, apperrors.Validation(field, "must be a date in YYYY-MM-DD format")
	}
	return t, nil
}

// applyExtinguisherRequest copies request fields onto e and reports whether
// a date that drives the due dates changed.
func applyExtinguisherRequest(e *models.Extinguisher, req *models.ExtinguisherRequest) (bool, error) {
	manufactured, err := parseRequestDate(req.ManufactureDate, "manufacture_date")
	if err != nil {
		return false, err
	}
	installed, err := parseRequestDate(req.InstallDate, "install_date")
	if err != nil {
		return false, err
	}
	serviced, err := parseRequestDate(req.LastServiceDate, "last_service_date")
	if err != nil {
		return false, err
	}
	hydro, err := parseRequestDate(req.LastHydroTest, "last_hydro_test")
	if err != nil {
		return false, err
	}

	datesChanged := !sameDate(e.ManufactureDate, manufactured) ||
		!sameDate(e.LastServiceDate, serviced) ||
		!sameDate(e.LastHydroTest, hydro) ||
		e.TypeID != req.TypeID

	e.LocationID = req.LocationID
	e.TypeID = req.TypeID
	e.AssetTag = strings.TrimSpace(req.AssetTag)
	e.Barcode = emptyToNil(req.Barcode)
	e.SerialNumber = emptyToNil(req.SerialNumber)
	e.Manufacturer = req.Manufacturer
	e.Model = req.Model
	e.Capacity = req.Capacity
	e.ManufactureDate = manufactured
	e.InstallDate = installed
	e.Floor = req.Floor
	e.Room = req.Room
	e.PositionNotes = req.PositionNotes
	e.LastServiceDate = serviced
	e.LastHydroTest = hydro
	if req.Status != nil {
		e.Status = *req.Status
	}

	if e.AssetTag == "" {
		return false, apperrors.Validation("asset_tag", "asset_tag is required")
	}
	return datesChanged, nil
}

func sameDate(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Equal(*b)
}

func emptyToNil(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}

// checkReferences loads the location and type, both of which must belong to the tenant.
func (s *extinguisherService) checkReferences(ctx context.Context, tenantID uuid.UUID, e *models.Extinguisher) (*models.ExtinguisherType, error) {
	if _, err := s.locationRepo.GetByID(ctx, tenantID, e.LocationID); err != nil {
		return nil, err
	}
	return s.typeRepo.GetByID(ctx, tenantID, e.TypeID)
}

func (s *extinguisherService) Create(ctx context.Context, tenantID uuid.UUID, req *models.ExtinguisherRequest) (*models.Extinguisher, error) {
	e := &models.Extinguisher{ID: uuid.New(), TenantID: tenantID, Status: models.ExtinguisherActive}
	if _, err := applyExtinguisherRequest(e, req); err != nil {
		return nil, err
	}
	t, err := s.checkReferences(ctx, tenantID, e)
	if err != nil {
		return nil, err
	}
	ComputeServiceDates(e, t)

	if err := s.extinguisherRepo.Create(ctx, e); err != nil {
		return nil, err
	}
	s.auditSvc.LogEntityCreate(ctx, tenantID, "extinguishers", e.ID, actorFromContext(ctx), e)
	return e, nil
}

func (s *extinguisherService) GetByID(ctx context.Context, tenantID, id uuid.UUID) (*models.Extinguisher, error) {
	return s.extinguisherRepo.GetByID(ctx, tenantID, id)
}

func (s *extinguisherService) GetByBarcode(ctx context.Context, tenantID uuid.UUID, barcode string) (*models.Extinguisher, error) {
	barcode = strings.TrimSpace(barcode)
	if barcode == "" {
		return nil, apperrors.Validation("code", "barcode is required")
	}

	cached, err := s.cacheSvc.GetExtinguisherByBarcode(ctx, tenantID, barcode)
	if err != nil {
		logger.FromContext(ctx).WithError(err).Warn("Barcode cache read failed")
	} else if cached != nil {
		return cached, nil
	}

	e, err := s.extinguisherRepo.GetByBarcode(ctx, tenantID, barcode)
	if err != nil {
		return nil, err
	}
	if err := s.cacheSvc.SetExtinguisherByBarcode(ctx, tenantID, barcode, e, BarcodeCacheTTL); err != nil {
		logger.FromContext(ctx).WithError(err).Warn("Barcode cache write failed")
	}
	return e, nil
}

func (s *extinguisherService) Update(ctx context.Context, tenantID, id uuid.UUID, req *models.ExtinguisherRequest) (*models.Extinguisher, error) {
	e, err := s.extinguisherRepo.GetByID(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	before := *e

	datesChanged, err := applyExtinguisherRequest(e, req)
	if err != nil {
		return nil, err
	}
	t, err := s.checkReferences(ctx, tenantID, e)
	if err != nil {
		return nil, err
	}
	if datesChanged {
		ComputeServiceDates(e, t)
	}

	if err := s.extinguisherRepo.Update(ctx, e); err != nil {
		return nil, err
	}
	s.invalidateBarcode(ctx, tenantID, before.Barcode)
	s.invalidateBarcode(ctx, tenantID, e.Barcode)

	s.auditSvc.LogEntityUpdate(ctx, tenantID, "extinguishers", id, actorFromContext(ctx), before, e)
	return e, nil
}

func (s *extinguisherService) Delete(ctx context.Context, tenantID, id uuid.UUID) error {
	e, err := s.extinguisherRepo.GetByID(ctx, tenantID, id)
	if err != nil {
		return err
	}
	if err := s.extinguisherRepo.Delete(ctx, tenantID, id); err != nil {
		return err
	}
	s.invalidateBarcode(ctx, tenantID, e.Barcode)
	s.auditSvc.LogEntitySoftDelete(ctx, tenantID, "extinguishers", id, actorFromContext(ctx), e)
	return nil
}

func (s *extinguisherService) invalidateBarcode(ctx context.Context, tenantID uuid.UUID, barcode *string) {
	if barcode == nil || *barcode == "" {
		return
	}
	if err := s.cacheSvc.DeleteExtinguisherByBarcode(ctx, tenantID, *barcode); err != nil {
		logger.FromContext(ctx).WithError(err).WithField("barcode", *barcode).Warn("Failed to invalidate barcode cache")
	}
}

func (s *extinguisherService) List(ctx context.Context, tenantID uuid.UUID, filter models.ExtinguisherFilter) ([]*models.Extinguisher, int, error) {
	filter.Search = common.SanitizeSearchQuery(filter.Search)
	return s.extinguisherRepo.List(ctx, tenantID, filter)
}

func (s *extinguisherService) History(ctx context.Context, tenantID, id uuid.UUID, limit, offset int) ([]*models.Inspection, int, error) {
	if _, err := s.extinguisherRepo.GetByID(ctx, tenantID, id); err != nil {
		return nil, 0, err
	}
	return s.inspectionRepo.List(ctx, tenantID, models.InspectionFilter{
		ExtinguisherID: &id,
		Limit:          limit,
		Offset:         offset,
	})
}
