package services

import (
	"context"
	"fmt"
	"strings"

	"fireproof/internal/apperrors"
	"fireproof/internal/caching"
	"fireproof/internal/common"
	"fireproof/internal/logger"
	"fireproof/internal/metrics"
	"fireproof/internal/models"
	"fireproof/internal/repositories"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
)

type DeficiencyService interface {
	Create(ctx context.Context, tenantID uuid.UUID, req *models.CreateDeficiencyRequest) (*models.Deficiency, error)
	GetByID(ctx context.Context, tenantID, id uuid.UUID) (*models.Deficiency, error)
	Update(ctx context.Context, tenantID, id uuid.UUID, req *models.UpdateDeficiencyRequest) (*models.Deficiency, error)
	Assign(ctx context.Context, tenantID, id, assignee uuid.UUID) (*models.Deficiency, error)
	Resolve(ctx context.Context, tenantID, id uuid.UUID, notes string) (*models.Deficiency, error)
	Close(ctx context.Context, tenantID, id uuid.UUID) (*models.Deficiency, error)
	List(ctx context.Context, tenantID uuid.UUID, filter models.DeficiencyFilter) ([]*models.Deficiency, int, error)
	// Escalate reports open deficiencies past their due date across all tenants.
	Escalate(ctx context.Context) (int, error)
}

type deficiencyService struct {
	deficiencyRepo   repositories.DeficiencyRepository
	extinguisherRepo repositories.ExtinguisherRepository
	inspectionRepo   repositories.InspectionRepository
	userRepo         repositories.UserRepository
	cacheSvc         caching.CacheService
	auditSvc         AuditLogsService
	clock            clockwork.Clock
}

func NewDeficiencyService(
	deficiencyRepo repositories.DeficiencyRepository,
	extinguisherRepo repositories.ExtinguisherRepository,
	inspectionRepo repositories.InspectionRepository,
	userRepo repositories.UserRepository,
	cacheSvc caching.CacheService,
	auditSvc AuditLogsService,
	clock clockwork.Clock,
) DeficiencyService {
	return &deficiencyService{
		deficiencyRepo:   deficiencyRepo,
		extinguisherRepo: extinguisherRepo,
		inspectionRepo:   inspectionRepo,
		userRepo:         userRepo,
		cacheSvc:         cacheSvc,
		auditSvc:         auditSvc,
		clock:            clock,
	}
}

func (s *deficiencyService) Create(ctx context.Context, tenantID uuid.UUID, req *models.CreateDeficiencyRequest) (*models.Deficiency, error) {
	ext, err := s.extinguisherRepo.GetByID(ctx, tenantID, req.ExtinguisherID)
	if err != nil {
		return nil, err
	}
	if req.InspectionID != nil {
		insp, err := s.inspectionRepo.GetByID(ctx, tenantID, *req.InspectionID)
		if err != nil {
			return nil, err
		}
		if insp.ExtinguisherID != ext.ID {
			return nil, apperrors.Validation("inspection_id", "inspection belongs to a different extinguisher")
		}
	}
	if req.AssignedTo != nil {
		if _, err := s.userRepo.GetByID(ctx, tenantID, *req.AssignedTo); err != nil {
			return nil, err
		}
	}

	now := s.clock.Now().UTC()
	due, err := parseRequestDate(req.DueDate, "due_date")
	if err != nil {
		return nil, err
	}
	if due == nil {
		d := models.DefaultDeficiencyDueDate(req.Severity, common.TruncateToDate(now))
		due = &d
	}

	d := &models.Deficiency{
		ID:             uuid.New(),
		TenantID:       tenantID,
		InspectionID:   req.InspectionID,
		ExtinguisherID: ext.ID,
		DeficiencyType: req.DeficiencyType,
		Severity:       req.Severity,
		Status:         models.DeficiencyOpen,
		Description:    strings.TrimSpace(req.Description),
		ActionRequired: req.ActionRequired,
		EstimatedCost:  req.EstimatedCost,
		AssignedTo:     req.AssignedTo,
		DueDate:        due,
		CreatedBy:      actorFromContext(ctx),
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.deficiencyRepo.Create(ctx, d); err != nil {
		return nil, err
	}
	metrics.DeficienciesOpened.WithLabelValues(d.Severity).Inc()

	if d.Severity == models.SeverityCritical {
		if err := s.setUnitStatus(ctx, ext, models.ExtinguisherOutOfService); err != nil {
			return nil, err
		}
	}
	s.auditSvc.LogEntityCreate(ctx, tenantID, "deficiencies", d.ID, actorFromContext(ctx), d)
	return d, nil
}

func (s *deficiencyService) GetByID(ctx context.Context, tenantID, id uuid.UUID) (*models.Deficiency, error) {
	return s.deficiencyRepo.GetByID(ctx, tenantID, id)
}

func (s *deficiencyService) Update(ctx context.Context, tenantID, id uuid.UUID, req *models.UpdateDeficiencyRequest) (*models.Deficiency, error) {
	d, err := s.deficiencyRepo.GetByID(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	before := *d

	if req.Status != nil && *req.Status != d.Status {
		switch *req.Status {
		case models.DeficiencyResolved:
			return nil, apperrors.Validation("status", "use the resolve action, resolution_notes are required")
		case models.DeficiencyClosed:
			return nil, apperrors.Validation("status", "use the close action")
		}
		if err := transition(d, *req.Status); err != nil {
			return nil, err
		}
	}
	if req.Severity != nil {
		d.Severity = *req.Severity
	}
	if req.Description != nil {
		d.Description = strings.TrimSpace(*req.Description)
	}
	if req.ActionRequired != nil {
		d.ActionRequired = req.ActionRequired
	}
	if req.EstimatedCost != nil {
		d.EstimatedCost = req.EstimatedCost
	}
	if req.DueDate != nil {
		due, err := parseRequestDate(req.DueDate, "due_date")
		if err != nil {
			return nil, err
		}
		d.DueDate = due
	}
	d.UpdatedAt = s.clock.Now().UTC()

	if err := s.deficiencyRepo.Update(ctx, d); err != nil {
		return nil, err
	}
	if err := s.syncUnitStatus(ctx, d, before.Severity); err != nil {
		return nil, err
	}
	s.auditSvc.LogEntityUpdate(ctx, tenantID, "deficiencies", id, actorFromContext(ctx), before, d)
	return d, nil
}

func (s *deficiencyService) Assign(ctx context.Context, tenantID, id, assignee uuid.UUID) (*models.Deficiency, error) {
	d, err := s.deficiencyRepo.GetByID(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	if !d.IsOpen() {
		return nil, apperrors.Conflict(fmt.Sprintf("deficiency is %s and cannot be assigned", d.Status))
	}
	if _, err := s.userRepo.GetByID(ctx, tenantID, assignee); err != nil {
		return nil, err
	}
	before := *d

	d.AssignedTo = &assignee
	d.UpdatedAt = s.clock.Now().UTC()
	if err := s.deficiencyRepo.Update(ctx, d); err != nil {
		return nil, err
	}
	s.auditSvc.LogEntityUpdate(ctx, tenantID, "deficiencies", id, actorFromContext(ctx),
		map[string]any{"assigned_to": before.AssignedTo}, map[string]any{"assigned_to": assignee})
	return d, nil
}

func (s *deficiencyService) Resolve(ctx context.Context, tenantID, id uuid.UUID, notes string) (*models.Deficiency, error) {
	notes = strings.TrimSpace(notes)
	if notes == "" {
		return nil, apperrors.Validation("resolution_notes", "resolution_notes is required")
	}
	d, err := s.deficiencyRepo.GetByID(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	before := *d

	if err := transition(d, models.DeficiencyResolved); err != nil {
		return nil, err
	}
	now := s.clock.Now().UTC()
	d.ResolvedAt = &now
	d.ResolvedBy = actorFromContext(ctx)
	d.ResolutionNotes = &notes
	d.UpdatedAt = now

	if err := s.deficiencyRepo.Update(ctx, d); err != nil {
		return nil, err
	}
	if err := s.syncUnitStatus(ctx, d, before.Severity); err != nil {
		return nil, err
	}
	s.auditSvc.LogEntityUpdate(ctx, tenantID, "deficiencies", id, actorFromContext(ctx), before, d)
	return d, nil
}

func (s *deficiencyService) Close(ctx context.Context, tenantID, id uuid.UUID) (*models.Deficiency, error) {
	d, err := s.deficiencyRepo.GetByID(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	before := *d

	if err := transition(d, models.DeficiencyClosed); err != nil {
		return nil, err
	}
	d.UpdatedAt = s.clock.Now().UTC()
	if err := s.deficiencyRepo.Update(ctx, d); err != nil {
		return nil, err
	}
	s.auditSvc.LogEntityUpdate(ctx, tenantID, "deficiencies", id, actorFromContext(ctx), before, d)
	return d, nil
}

func (s *deficiencyService) List(ctx context.Context, tenantID uuid.UUID, filter models.DeficiencyFilter) ([]*models.Deficiency, int, error) {
	return s.deficiencyRepo.List(ctx, tenantID, filter)
}

func (s *deficiencyService) Escalate(ctx context.Context) (int, error) {
	overdue, err := s.deficiencyRepo.ListOverdue(ctx, common.TruncateToDate(s.clock.Now()))
	if err != nil {
		return 0, err
	}

	counts := map[uuid.UUID]map[string]int{}
	for _, d := range overdue {
		bySeverity, ok := counts[d.TenantID]
		if !ok {
			bySeverity = map[string]int{}
			counts[d.TenantID] = bySeverity
		}
		bySeverity[d.Severity]++
	}

	metrics.OverdueDeficiencies.Set(float64(len(overdue)))
	for tenantID, bySeverity := range counts {
		fields := map[string]interface{}{"tenant_id": tenantID}
		for severity, n := range bySeverity {
			fields[strings.ToLower(severity)] = n
		}
		logger.FromContext(ctx).WithFields(fields).Warn("Overdue deficiencies")
	}
	return len(overdue), nil
}

// transition moves d to status or returns a Conflict naming the illegal change.
func transition(d *models.Deficiency, status string) error {
	if !models.CanTransitionDeficiency(d.Status, status) {
		return apperrors.Conflict(fmt.Sprintf("deficiency cannot move from %s to %s", d.Status, status))
	}
	d.Status = status
	return nil
}

// syncUnitStatus keeps the extinguisher status in line with its open
// deficiencies. An open Critical deficiency takes the unit out of service and
// the unit returns to Active once no open High or Critical deficiency remains.
func (s *deficiencyService) syncUnitStatus(ctx context.Context, d *models.Deficiency, previousSeverity string) error {
	severe := func(sev string) bool { return sev == models.SeverityCritical || sev == models.SeverityHigh }

	if d.IsOpen() && d.Severity == models.SeverityCritical {
		ext, err := s.extinguisherRepo.GetByID(ctx, d.TenantID, d.ExtinguisherID)
		if err != nil {
			return err
		}
		return s.setUnitStatus(ctx, ext, models.ExtinguisherOutOfService)
	}
	if d.IsOpen() || !(severe(d.Severity) || severe(previousSeverity)) {
		return nil
	}

	remaining, err := s.deficiencyRepo.CountOpenSevere(ctx, d.TenantID, d.ExtinguisherID, d.ID)
	if err != nil {
		return err
	}
	if remaining > 0 {
		return nil
	}
	ext, err := s.extinguisherRepo.GetByID(ctx, d.TenantID, d.ExtinguisherID)
	if err != nil {
		return err
	}
	if ext.Status != models.ExtinguisherOutOfService {
		return nil
	}
	return s.setUnitStatus(ctx, ext, models.ExtinguisherActive)
}

func (s *deficiencyService) setUnitStatus(ctx context.Context, ext *models.Extinguisher, status string) error {
	if ext.Status == status || ext.Status == models.ExtinguisherRetired {
		return nil
	}
	if err := s.extinguisherRepo.SetStatus(ctx, ext.TenantID, ext.ID, status); err != nil {
		return err
	}
	previous := ext.Status
	ext.Status = status
	ext.UpdatedAt = s.clock.Now().UTC()
	invalidateUnitCaches(ctx, s.cacheSvc, ext)

	s.auditSvc.LogEntityUpdate(ctx, ext.TenantID, "extinguishers", ext.ID, actorFromContext(ctx),
		map[string]any{"status": previous}, map[string]any{"status": status})
	logger.FromContext(ctx).WithFields(map[string]interface{}{
		"extinguisher_id": ext.ID,
		"from":            previous,
		"to":              status,
	}).Info("Extinguisher status changed by deficiency")
	return nil
}
