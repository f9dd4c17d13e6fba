package services

import (
	"context"
	"strings"

	"fireproof/internal/models"
	"fireproof/internal/repositories"

	"github.com/google/uuid"
)

const defaultAnnualServiceMonths = 12

type ExtinguisherTypeService interface {
	Create(ctx context.Context, tenantID uuid.UUID, req *models.ExtinguisherTypeRequest) (*models.ExtinguisherType, error)
	GetByID(ctx context.Context, tenantID, id uuid.UUID) (*models.ExtinguisherType, error)
	Update(ctx context.Context, tenantID, id uuid.UUID, req *models.ExtinguisherTypeRequest) (*models.ExtinguisherType, error)
	Delete(ctx context.Context, tenantID, id uuid.UUID) error
	List(ctx context.Context, tenantID uuid.UUID, limit, offset int) ([]*models.ExtinguisherType, int, error)
}

type extinguisherTypeService struct {
	typeRepo repositories.ExtinguisherTypeRepository
	auditSvc AuditLogsService
}

func NewExtinguisherTypeService(typeRepo repositories.ExtinguisherTypeRepository, auditSvc AuditLogsService) ExtinguisherTypeService {
	return &extinguisherTypeService{typeRepo: typeRepo, auditSvc: auditSvc}
}

// applyTypeRequest fills t from req. Omitted intervals fall back to the
// agent's defaults; on update they keep their current values.
func applyTypeRequest(t *models.ExtinguisherType, req *models.ExtinguisherTypeRequest, isNew bool) {
	agentChanged := t.AgentType != req.AgentType
	t.Code = strings.TrimSpace(req.Code)
	t.Name = strings.TrimSpace(req.Name)
	t.AgentType = req.AgentType

	switch {
	case req.MonthlyInspection != nil:
		t.MonthlyInspection = *req.MonthlyInspection
	case isNew:
		t.MonthlyInspection = true
	}

	switch {
	case req.AnnualServiceMonths != nil:
		t.AnnualServiceMonths = *req.AnnualServiceMonths
	case isNew:
		t.AnnualServiceMonths = defaultAnnualServiceMonths
	}

	switch {
	case req.HydroTestYears != nil:
		t.HydroTestYears = *req.HydroTestYears
	case isNew || agentChanged:
		t.HydroTestYears = models.DefaultHydroTestYears(req.AgentType)
	}

	switch {
	case req.SixYearMaintenance != nil:
		t.SixYearMaintenance = *req.SixYearMaintenance
	case isNew || agentChanged:
		t.SixYearMaintenance = models.DefaultSixYearMaintenance(req.AgentType)
	}
}

func (s *extinguisherTypeService) Create(ctx context.Context, tenantID uuid.UUID, req *models.ExtinguisherTypeRequest) (*models.ExtinguisherType, error) {
	t := &models.ExtinguisherType{ID: uuid.New(), TenantID: tenantID}
	applyTypeRequest(t, req, true)

	if err := s.typeRepo.Create(ctx, t); err != nil {
		return nil, err
	}
	s.auditSvc.LogEntityCreate(ctx, tenantID, "extinguisher_types", t.ID, actorFromContext(ctx), t)
	return t, nil
}

func (s *extinguisherTypeService) GetByID(ctx context.Context, tenantID, id uuid.UUID) (*models.ExtinguisherType, error) {
	return s.typeRepo.GetByID(ctx, tenantID, id)
}

func (s *extinguisherTypeService) Update(ctx context.Context, tenantID, id uuid.UUID, req *models.ExtinguisherTypeRequest) (*models.ExtinguisherType, error) {
	t, err := s.typeRepo.GetByID(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	before := *t
	applyTypeRequest(t, req, false)

	if err := s.typeRepo.Update(ctx, t); err != nil {
		return nil, err
	}
	s.auditSvc.LogEntityUpdate(ctx, tenantID, "extinguisher_types", id, actorFromContext(ctx), before, t)
	return t, nil
}

func (s *extinguisherTypeService) Delete(ctx context.Context, tenantID, id uuid.UUID) error {
	t, err := s.typeRepo.GetByID(ctx, tenantID, id)
	if err != nil {
		return err
	}
	if err := s.typeRepo.Delete(ctx, tenantID, id); err != nil {
		return err
	}
	s.auditSvc.LogEntityDelete(ctx, tenantID, "extinguisher_types", id, actorFromContext(ctx), t)
	return nil
}

func (s *extinguisherTypeService) List(ctx context.Context, tenantID uuid.UUID, limit, offset int) ([]*models.ExtinguisherType, int, error) {
	return s.typeRepo.List(ctx, tenantID, limit, offset)
}
