package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"fireproof/internal/apperrors"
	"fireproof/internal/caching"
	"fireproof/internal/common"
	"fireproof/internal/logger"
	"fireproof/internal/metrics"
	"fireproof/internal/models"
	"fireproof/internal/repositories"
	"fireproof/internal/tamperproof"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
)

type InspectionService interface {
	Schedule(ctx context.Context, tenantID uuid.UUID, req *models.ScheduleInspectionRequest) (*models.Inspection, error)
	Start(ctx context.Context, tenantID, id uuid.UUID, req *models.StartInspectionRequest) (*models.Inspection, error)
	SaveResponses(ctx context.Context, tenantID, id uuid.UUID, req *models.SaveResponsesRequest) ([]models.InspectionResponse, error)
	Complete(ctx context.Context, tenantID, id uuid.UUID, req *models.CompleteInspectionRequest) (*models.Inspection, error)
	// Get returns the inspection with its responses, deficiencies and photos.
	Get(ctx context.Context, tenantID, id uuid.UUID) (*models.Inspection, error)
	List(ctx context.Context, tenantID uuid.UUID, filter models.InspectionFilter) ([]*models.Inspection, int, error)
	Verify(ctx context.Context, tenantID, id uuid.UUID) (*models.VerificationResult, error)
	// VerifyChain walks every extinguisher chain of the tenant.
	VerifyChain(ctx context.Context, tenantID uuid.UUID) (*models.ChainReport, error)
	// ScheduleDue creates Monthly inspections for active units due within daysAhead.
	ScheduleDue(ctx context.Context, tenantID uuid.UUID, daysAhead int) (*models.ScheduleDueResult, error)
}

type inspectionService struct {
	inspectionRepo   repositories.InspectionRepository
	extinguisherRepo repositories.ExtinguisherRepository
	typeRepo         repositories.ExtinguisherTypeRepository
	checklistRepo    repositories.ChecklistRepository
	deficiencyRepo   repositories.DeficiencyRepository
	photoRepo        repositories.PhotoRepository
	userRepo         repositories.UserRepository
	sealer           *tamperproof.Sealer
	cacheSvc         caching.CacheService
	auditSvc         AuditLogsService
	clock            clockwork.Clock
}

func NewInspectionService(
	inspectionRepo repositories.InspectionRepository,
	extinguisherRepo repositories.ExtinguisherRepository,
	typeRepo repositories.ExtinguisherTypeRepository,
	checklistRepo repositories.ChecklistRepository,
	deficiencyRepo repositories.DeficiencyRepository,
	photoRepo repositories.PhotoRepository,
	userRepo repositories.UserRepository,
	sealer *tamperproof.Sealer,
	cacheSvc caching.CacheService,
	auditSvc AuditLogsService,
	clock clockwork.Clock,
) InspectionService {
	return &inspectionService{
		inspectionRepo:   inspectionRepo,
		extinguisherRepo: extinguisherRepo,
		typeRepo:         typeRepo,
		checklistRepo:    checklistRepo,
		deficiencyRepo:   deficiencyRepo,
		photoRepo:        photoRepo,
		userRepo:         userRepo,
		sealer:           sealer,
		cacheSvc:         cacheSvc,
		auditSvc:         auditSvc,
		clock:            clock,
	}
}

func (s *inspectionService) Schedule(ctx context.Context, tenantID uuid.UUID, req *models.ScheduleInspectionRequest) (*models.Inspection, error) {
	scheduled, err := common.ParseDate(req.ScheduledDate, "scheduled_date")
	if err != nil {
		return nil, apperrors.Validation("scheduled_date", "must be a date in YYYY-MM-DD format")
	}

	ext, err := s.extinguisherRepo.GetByID(ctx, tenantID, req.ExtinguisherID)
	if err != nil {
		return nil, err
	}
	if ext.Status == models.ExtinguisherRetired {
		return nil, apperrors.Conflict("retired extinguishers cannot be inspected")
	}

	tpl, err := s.usableTemplate(ctx, tenantID, req.TemplateID)
	if err != nil {
		return nil, err
	}

	if req.InspectorID != nil {
		if _, err := s.userRepo.GetByID(ctx, tenantID, *req.InspectorID); err != nil {
			return nil, err
		}
	}

	insp := &models.Inspection{
		ID:             uuid.New(),
		TenantID:       tenantID,
		ExtinguisherID: ext.ID,
		TemplateID:     tpl.ID,
		InspectorID:    req.InspectorID,
		InspectionType: tpl.InspectionType,
		Status:         models.InspectionScheduled,
		ScheduledDate:  scheduled,
	}
	if err := s.inspectionRepo.Create(ctx, insp); err != nil {
		return nil, err
	}
	s.auditSvc.LogEntityCreate(ctx, tenantID, "inspections", insp.ID, actorFromContext(ctx), insp)
	return insp, nil
}

// usableTemplate loads an active template that is a system template or owned by the tenant.
func (s *inspectionService) usableTemplate(ctx context.Context, tenantID, id uuid.UUID) (*models.ChecklistTemplate, error) {
	tpl, err := s.checklistRepo.GetByID(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	if !tpl.VisibleTo(tenantID) {
		return nil, apperrors.NotFound("checklist template")
	}
	if !tpl.IsActive {
		return nil, apperrors.Validation("template_id", "checklist template is inactive")
	}
	return tpl, nil
}

func (s *inspectionService) Start(ctx context.Context, tenantID, id uuid.UUID, req *models.StartInspectionRequest) (*models.Inspection, error) {
	insp, err := s.inspectionRepo.GetByID(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	if insp.Status != models.InspectionScheduled && insp.Status != models.InspectionOverdue {
		return nil, apperrors.Conflict(fmt.Sprintf("inspection is %s and cannot be started", insp.Status))
	}

	now := s.clock.Now().UTC()
	insp.StartedAt = &now
	if actor := actorFromContext(ctx); actor != nil {
		insp.InspectorID = actor
	}
	if req != nil {
		insp.Latitude = req.Latitude
		insp.Longitude = req.Longitude
		insp.DeviceID = req.DeviceID
	}

	if err := s.inspectionRepo.Start(ctx, insp); err != nil {
		return nil, err
	}
	return insp, nil
}

func (s *inspectionService) SaveResponses(ctx context.Context, tenantID, id uuid.UUID, req *models.SaveResponsesRequest) ([]models.InspectionResponse, error) {
	insp, err := s.inspectionRepo.GetByID(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	if insp.Status != models.InspectionInProgress {
		return nil, apperrors.Conflict("responses can only be saved while the inspection is InProgress")
	}
	tpl, err := s.checklistRepo.GetByID(ctx, tenantID, insp.TemplateID)
	if err != nil {
		return nil, err
	}
	photoIDs, err := s.photoIDs(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}

	items := itemIndex(tpl)
	seen := make(map[uuid.UUID]bool, len(req.Responses))
	responses := make([]models.InspectionResponse, 0, len(req.Responses))
	for _, in := range req.Responses {
		if err := checkResponse(in, items, seen, photoIDs); err != nil {
			return nil, err
		}
		responses = append(responses, models.InspectionResponse{
			ID:           uuid.New(),
			InspectionID: id,
			ItemID:       in.ItemID,
			Result:       in.Result,
			Comment:      strings.TrimSpace(in.Comment),
			PhotoID:      in.PhotoID,
		})
	}

	if err := s.inspectionRepo.SaveResponses(ctx, tenantID, id, responses); err != nil {
		return nil, err
	}
	return s.inspectionRepo.ListResponses(ctx, tenantID, id)
}

func itemIndex(tpl *models.ChecklistTemplate) map[uuid.UUID]*models.ChecklistItem {
	items := make(map[uuid.UUID]*models.ChecklistItem, len(tpl.Items))
	for i := range tpl.Items {
		items[tpl.Items[i].ID] = &tpl.Items[i]
	}
	return items
}

func (s *inspectionService) photoIDs(ctx context.Context, tenantID, inspectionID uuid.UUID) (map[uuid.UUID]bool, error) {
	photos, err := s.photoRepo.ListByInspection(ctx, tenantID, inspectionID)
	if err != nil {
		return nil, err
	}
	ids := make(map[uuid.UUID]bool, len(photos))
	for _, p := range photos {
		ids[p.ID] = true
	}
	return ids, nil
}

// checkResponse validates one response against the template items. seen
// collects the items answered so far.
func checkResponse(in models.ResponseInput, items map[uuid.UUID]*models.ChecklistItem, seen map[uuid.UUID]bool, photoIDs map[uuid.UUID]bool) error {
	if _, ok := items[in.ItemID]; !ok {
		return apperrors.Validation("responses", fmt.Sprintf("item %s is not part of the checklist", in.ItemID))
	}
	if seen[in.ItemID] {
		return apperrors.Validation("responses", fmt.Sprintf("item %s has more than one response", in.ItemID))
	}
	seen[in.ItemID] = true

	switch in.Result {
	case models.ResultPass, models.ResultFail, models.ResultNA:
	default:
		return apperrors.Validation("responses", "result must be Pass, Fail or NA")
	}
	if in.PhotoID != nil && !photoIDs[*in.PhotoID] {
		return apperrors.Validation("responses", fmt.Sprintf("photo %s is not attached to this inspection", *in.PhotoID))
	}
	return nil
}

func (s *inspectionService) Complete(ctx context.Context, tenantID, id uuid.UUID, req *models.CompleteInspectionRequest) (*models.Inspection, error) {
	insp, err := s.inspectionRepo.GetByID(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	if insp.Status != models.InspectionInProgress {
		return nil, apperrors.Conflict(fmt.Sprintf("inspection is %s and cannot be completed", insp.Status))
	}

	tpl, err := s.checklistRepo.GetByID(ctx, tenantID, insp.TemplateID)
	if err != nil {
		return nil, err
	}
	photoIDs, err := s.photoIDs(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}

	responses, err := validateCompletion(tpl, req.Responses, photoIDs)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now().UTC().Truncate(time.Microsecond)
	overall := models.ResultPass
	for _, r := range responses {
		if r.Result == models.ResultFail {
			overall = models.ResultFail
			break
		}
	}

	insp.CompletedAt = &now
	if req.CapturedAt != nil {
		captured := req.CapturedAt.UTC().Truncate(time.Microsecond)
		insp.CapturedAt = &captured
	}
	insp.OverallResult = &overall
	insp.Notes = req.Notes
	if req.Latitude != nil {
		insp.Latitude = req.Latitude
	}
	if req.Longitude != nil {
		insp.Longitude = req.Longitude
	}
	if insp.InspectorID == nil {
		insp.InspectorID = actorFromContext(ctx)
	}
	insp.Responses = responses

	deficiencies, err := s.buildDeficiencies(ctx, insp, tpl, req.Deficiencies, now)
	if err != nil {
		return nil, err
	}

	completion := &repositories.Completion{
		Inspection:   insp,
		Deficiencies: deficiencies,
		Now:          now,
		Prepare: func(ext *models.Extinguisher, completedAt time.Time) error {
			if err := s.advanceDueDates(ctx, ext, insp.InspectionType, completedAt); err != nil {
				return err
			}
			for _, d := range deficiencies {
				if d.Severity == models.SeverityCritical {
					ext.Status = models.ExtinguisherOutOfService
				}
			}
			return nil
		},
		Seal: func(previousHash string) (string, string, error) {
			hash, signature := s.sealer.Seal(insp, previousHash)
			return hash, signature, nil
		},
	}
	if err := s.inspectionRepo.Complete(ctx, completion); err != nil {
		return nil, err
	}

	if ext := completion.Extinguisher; ext != nil {
		invalidateUnitCaches(ctx, s.cacheSvc, ext)
	}

	metrics.InspectionsCompleted.WithLabelValues(overall).Inc()
	for _, d := range deficiencies {
		metrics.DeficienciesOpened.WithLabelValues(d.Severity).Inc()
	}
	s.auditSvc.LogEntityUpdate(ctx, tenantID, "inspections", id, actorFromContext(ctx),
		map[string]any{"status": models.InspectionInProgress},
		map[string]any{"status": models.InspectionCompleted, "overall_result": overall, "hash": insp.Hash})
	logger.FromContext(ctx).WithFields(map[string]interface{}{
		"inspection_id": id,
		"result":        overall,
		"deficiencies":  len(deficiencies),
	}).Info("Inspection completed")

	return s.Get(ctx, tenantID, id)
}

// validateCompletion checks that every template item has exactly one
// response, that failed items carry a comment where required and that
// photo items reference a photo of this inspection.
func validateCompletion(tpl *models.ChecklistTemplate, inputs []models.ResponseInput, photoIDs map[uuid.UUID]bool) ([]models.InspectionResponse, error) {
	items := itemIndex(tpl)
	seen := make(map[uuid.UUID]bool, len(inputs))
	details := map[string]string{}
	responses := make([]models.InspectionResponse, 0, len(inputs))

	for _, in := range inputs {
		if err := checkResponse(in, items, seen, photoIDs); err != nil {
			return nil, err
		}
		item := items[in.ItemID]
		comment := strings.TrimSpace(in.Comment)
		key := "responses." + in.ItemID.String()
		if in.Result == models.ResultFail && item.RequiresCommentOnFail && comment == "" {
			details[key] = "a comment is required when this item fails"
		}
		if item.RequiresPhoto && in.PhotoID == nil {
			details[key] = "a photo is required for this item"
		}
		responses = append(responses, models.InspectionResponse{
			ID:      uuid.New(),
			ItemID:  in.ItemID,
			Result:  in.Result,
			Comment: comment,
			PhotoID: in.PhotoID,
		})
	}

	for _, item := range tpl.Items {
		if !seen[item.ID] {
			details["responses."+item.ID.String()] = "missing response for: " + item.Text
		}
	}
	if len(details) > 0 {
		return nil, apperrors.ValidationFields(details)
	}
	return responses, nil
}

// buildDeficiencies combines client supplied deficiencies with one automatic
// Medium deficiency per failed item the client did not cover.
func (s *inspectionService) buildDeficiencies(ctx context.Context, insp *models.Inspection, tpl *models.ChecklistTemplate, inputs []models.DeficiencyInput, at time.Time) ([]*models.Deficiency, error) {
	items := itemIndex(tpl)
	covered := map[uuid.UUID]bool{}
	creator := actorFromContext(ctx)
	var out []*models.Deficiency

	newDeficiency := func(itemID *uuid.UUID, defType, severity, description string, action *string) *models.Deficiency {
		due := models.DefaultDeficiencyDueDate(severity, common.TruncateToDate(at))
		inspectionID := insp.ID
		return &models.Deficiency{
			ID:             uuid.New(),
			TenantID:       insp.TenantID,
			InspectionID:   &inspectionID,
			ExtinguisherID: insp.ExtinguisherID,
			ItemID:         itemID,
			DeficiencyType: defType,
			Severity:       severity,
			Status:         models.DeficiencyOpen,
			Description:    description,
			ActionRequired: action,
			DueDate:        &due,
			CreatedBy:      creator,
			CreatedAt:      at,
			UpdatedAt:      at,
		}
	}

	for _, in := range inputs {
		if in.ItemID != nil {
			if _, ok := items[*in.ItemID]; !ok {
				return nil, apperrors.Validation("deficiencies", fmt.Sprintf("item %s is not part of the checklist", *in.ItemID))
			}
			covered[*in.ItemID] = true
		}
		if !isOneOf(in.DeficiencyType, models.DeficiencyTypes) {
			return nil, apperrors.Validation("deficiencies", "unknown deficiency_type "+in.DeficiencyType)
		}
		if !isOneOf(in.Severity, models.Severities) {
			return nil, apperrors.Validation("deficiencies", "unknown severity "+in.Severity)
		}
		out = append(out, newDeficiency(in.ItemID, in.DeficiencyType, in.Severity, strings.TrimSpace(in.Description), in.ActionRequired))
	}

	for _, r := range insp.Responses {
		if r.Result != models.ResultFail || covered[r.ItemID] {
			continue
		}
		description := items[r.ItemID].Text
		if r.Comment != "" {
			description += ": " + r.Comment
		}
		itemID := r.ItemID
		out = append(out, newDeficiency(&itemID, models.DeficiencyOther, models.SeverityMedium, description, nil))
	}
	return out, nil
}

func isOneOf(v string, allowed []string) bool {
	for _, a := range allowed {
		if a == v {
			return true
		}
	}
	return false
}

// advanceDueDates moves the unit's inspection or service dates forward after
// an inspection of the given type.
func (s *inspectionService) advanceDueDates(ctx context.Context, ext *models.Extinguisher, inspectionType string, completedAt time.Time) error {
	last := completedAt
	ext.LastInspectionAt = &last
	today := common.TruncateToDate(completedAt)

	switch inspectionType {
	case models.InspectionMonthly:
		next := common.AddMonths(today, 1)
		ext.NextInspectionDue = &next
		return nil
	case models.InspectionAnnual:
		next := common.AddMonths(today, 12)
		ext.NextInspectionDue = &next
		ext.LastServiceDate = &today
	case models.InspectionSixYear:
		ext.LastServiceDate = &today
	case models.InspectionHydrostatic:
		ext.LastHydroTest = &today
	}

	t, err := s.typeRepo.GetByID(ctx, ext.TenantID, ext.TypeID)
	if err != nil {
		return err
	}
	ComputeServiceDates(ext, t)
	return nil
}

func (s *inspectionService) Get(ctx context.Context, tenantID, id uuid.UUID) (*models.Inspection, error) {
	insp, err := s.inspectionRepo.GetByID(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	if insp.Responses, err = s.inspectionRepo.ListResponses(ctx, tenantID, id); err != nil {
		return nil, err
	}
	if insp.Deficiencies, err = s.deficiencyRepo.ListByInspection(ctx, tenantID, id); err != nil {
		return nil, err
	}
	if insp.Photos, err = s.photoRepo.ListByInspection(ctx, tenantID, id); err != nil {
		return nil, err
	}
	return insp, nil
}

func (s *inspectionService) List(ctx context.Context, tenantID uuid.UUID, filter models.InspectionFilter) ([]*models.Inspection, int, error) {
	if filter.From != nil && filter.To != nil {
		if err := common.ValidateDateRange(*filter.From, *filter.To); err != nil {
			return nil, 0, apperrors.Validation("to", err.Error())
		}
	}
	return s.inspectionRepo.List(ctx, tenantID, filter)
}

func (s *inspectionService) Verify(ctx context.Context, tenantID, id uuid.UUID) (*models.VerificationResult, error) {
	insp, err := s.inspectionRepo.GetByID(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	if insp.Status != models.InspectionCompleted || insp.CompletedAt == nil {
		return nil, apperrors.Conflict("only completed inspections can be verified")
	}
	if insp.Responses, err = s.inspectionRepo.ListResponses(ctx, tenantID, id); err != nil {
		return nil, err
	}
	predecessor, err := s.inspectionRepo.PredecessorHash(ctx, tenantID, insp.ExtinguisherID, *insp.CompletedAt, insp.ID)
	if err != nil {
		return nil, err
	}

	result := s.sealer.Verify(insp, predecessor)
	if !result.Valid() {
		logger.FromContext(ctx).WithFields(map[string]interface{}{
			"inspection_id":   id,
			"hash_valid":      result.HashValid,
			"signature_valid": result.SignatureValid,
			"chain_valid":     result.ChainValid,
		}).Warn("Inspection failed tamper verification")
	}
	return &result, nil
}

func (s *inspectionService) VerifyChain(ctx context.Context, tenantID uuid.UUID) (*models.ChainReport, error) {
	ids, err := s.extinguisherRepo.ListIDs(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	report := &models.ChainReport{TenantID: tenantID, Breaks: []models.ChainBreak{}}
	for _, extID := range ids {
		chain, err := s.inspectionRepo.ListChain(ctx, tenantID, extID)
		if err != nil {
			return nil, err
		}
		report.Extinguishers++
		report.Inspections += len(chain)
		if br := s.sealer.VerifyChain(chain); br != nil {
			report.Breaks = append(report.Breaks, *br)
		}
	}
	return report, nil
}

func (s *inspectionService) ScheduleDue(ctx context.Context, tenantID uuid.UUID, daysAhead int) (*models.ScheduleDueResult, error) {
	if daysAhead < 0 {
		return nil, apperrors.Validation("days_ahead", "days_ahead cannot be negative")
	}
	today := common.TruncateToDate(s.clock.Now())
	dueBy := today.AddDate(0, 0, daysAhead)

	candidates, err := s.extinguisherRepo.ListDueWithoutOpenInspection(ctx, tenantID, dueBy)
	if err != nil {
		return nil, err
	}
	result := &models.ScheduleDueResult{}
	if len(candidates) == 0 {
		return result, nil
	}

	tpl, err := s.checklistRepo.GetDefault(ctx, tenantID, models.InspectionMonthly)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return nil, apperrors.Validation("template", "no active Monthly checklist template is available")
		}
		return nil, err
	}

	for _, ext := range candidates {
		scheduled := today
		if ext.NextInspectionDue != nil && ext.NextInspectionDue.After(today) {
			scheduled = common.TruncateToDate(*ext.NextInspectionDue)
		}
		insp := &models.Inspection{
			ID:             uuid.New(),
			TenantID:       tenantID,
			ExtinguisherID: ext.ID,
			TemplateID:     tpl.ID,
			InspectionType: models.InspectionMonthly,
			Status:         models.InspectionScheduled,
			ScheduledDate:  scheduled,
		}
		if err := s.inspectionRepo.Create(ctx, insp); err != nil {
			return result, err
		}
		result.Created++
	}

	logger.FromContext(ctx).WithFields(map[string]interface{}{
		"tenant_id": tenantID,
		"created":   result.Created,
	}).Info("Scheduled due inspections")
	return result, nil
}

// invalidateUnitCaches drops cached views of ext after its status or due dates changed.
func invalidateUnitCaches(ctx context.Context, cacheSvc caching.CacheService, ext *models.Extinguisher) {
	if cacheSvc == nil {
		return
	}
	log := logger.FromContext(ctx)
	if ext.Barcode != nil && *ext.Barcode != "" {
		if err := cacheSvc.DeleteExtinguisherByBarcode(ctx, ext.TenantID, *ext.Barcode); err != nil {
			log.WithError(err).Warn("Failed to invalidate barcode cache")
		}
	}
	if err := cacheSvc.DeleteDashboardStats(ctx, ext.TenantID); err != nil {
		log.WithError(err).Warn("Failed to invalidate dashboard stats")
	}
}
