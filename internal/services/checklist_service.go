package services

import (
	"context"
	"fmt"
	"strings"

	"fireproof/internal/apperrors"
	"fireproof/internal/logger"
	"fireproof/internal/models"
	"fireproof/internal/repositories"

	"github.com/google/uuid"
)

type ChecklistService interface {
	Create(ctx context.Context, tenantID uuid.UUID, req *models.ChecklistTemplateRequest) (*models.ChecklistTemplate, error)
	GetByID(ctx context.Context, tenantID, id uuid.UUID) (*models.ChecklistTemplate, error)
	Update(ctx context.Context, tenantID, id uuid.UUID, req *models.ChecklistTemplateRequest) (*models.ChecklistTemplate, error)
	Delete(ctx context.Context, tenantID, id uuid.UUID) error
	List(ctx context.Context, tenantID uuid.UUID, filter models.ChecklistTemplateFilter) ([]*models.ChecklistTemplate, int, error)
	// Duplicate copies a system or tenant template into the tenant.
	Duplicate(ctx context.Context, tenantID, id uuid.UUID, name string) (*models.ChecklistTemplate, error)
	// SeedSystemTemplates creates the built-in templates that do not exist yet.
	SeedSystemTemplates(ctx context.Context) (int, error)
}

type checklistService struct {
	checklistRepo repositories.ChecklistRepository
	auditSvc      AuditLogsService
}

func NewChecklistService(checklistRepo repositories.ChecklistRepository, auditSvc AuditLogsService) ChecklistService {
	return &checklistService{checklistRepo: checklistRepo, auditSvc: auditSvc}
}

func buildItems(reqs []models.ChecklistItemRequest) ([]models.ChecklistItem, error) {
	if len(reqs) == 0 {
		return nil, apperrors.Validation("items", "at least one item is required")
	}
	items := make([]models.ChecklistItem, 0, len(reqs))
	for i, r := range reqs {
		text := strings.TrimSpace(r.Text)
		if text == "" {
			return nil, apperrors.Validation("items", "item text is required")
		}
		order := i + 1
		if r.Order != nil {
			order = *r.Order
		}
		requiresComment := true
		if r.RequiresCommentOnFail != nil {
			requiresComment = *r.RequiresCommentOnFail
		}
		items = append(items, models.ChecklistItem{
			ID:                    uuid.New(),
			Order:                 order,
			Category:              strings.TrimSpace(r.Category),
			Text:                  text,
			HelpText:              strings.TrimSpace(r.HelpText),
			RequiresPhoto:         r.RequiresPhoto,
			RequiresCommentOnFail: requiresComment,
		})
	}
	return items, nil
}

func applyTemplateRequest(tpl *models.ChecklistTemplate, req *models.ChecklistTemplateRequest) error {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return apperrors.Validation("name", "name is required")
	}
	if !isInspectionType(req.InspectionType) {
		return apperrors.Validation("inspection_type", "inspection_type must be one of Monthly, Annual, SixYear, Hydrostatic")
	}
	items, err := buildItems(req.Items)
	if err != nil {
		return err
	}

	tpl.Name = name
	tpl.Description = strings.TrimSpace(req.Description)
	tpl.InspectionType = req.InspectionType
	tpl.Standard = strings.TrimSpace(req.Standard)
	if req.IsActive != nil {
		tpl.IsActive = *req.IsActive
	}
	tpl.Items = items
	return nil
}

func isInspectionType(t string) bool {
	for _, v := range models.InspectionTypes {
		if v == t {
			return true
		}
	}
	return false
}

func (s *checklistService) Create(ctx context.Context, tenantID uuid.UUID, req *models.ChecklistTemplateRequest) (*models.ChecklistTemplate, error) {
	tpl := &models.ChecklistTemplate{ID: uuid.New(), TenantID: &tenantID, IsActive: true}
	if err := applyTemplateRequest(tpl, req); err != nil {
		return nil, err
	}
	if err := s.checklistRepo.Create(ctx, tpl); err != nil {
		return nil, err
	}
	s.auditSvc.LogEntityCreate(ctx, tenantID, "checklist_templates", tpl.ID, actorFromContext(ctx), tpl)
	return tpl, nil
}

func (s *checklistService) GetByID(ctx context.Context, tenantID, id uuid.UUID) (*models.ChecklistTemplate, error) {
	return s.checklistRepo.GetByID(ctx, tenantID, id)
}

// ownedTemplate loads a template the tenant may modify.
func (s *checklistService) ownedTemplate(ctx context.Context, tenantID, id uuid.UUID) (*models.ChecklistTemplate, error) {
	tpl, err := s.checklistRepo.GetByID(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	if tpl.IsSystem || tpl.TenantID == nil {
		return nil, apperrors.Forbidden("system templates are read-only")
	}
	return tpl, nil
}

func (s *checklistService) Update(ctx context.Context, tenantID, id uuid.UUID, req *models.ChecklistTemplateRequest) (*models.ChecklistTemplate, error) {
	tpl, err := s.ownedTemplate(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	before := *tpl

	if err := applyTemplateRequest(tpl, req); err != nil {
		return nil, err
	}
	if err := s.checklistRepo.Update(ctx, tpl); err != nil {
		return nil, err
	}
	s.auditSvc.LogEntityUpdate(ctx, tenantID, "checklist_templates", id, actorFromContext(ctx), before, tpl)
	return tpl, nil
}

func (s *checklistService) Delete(ctx context.Context, tenantID, id uuid.UUID) error {
	tpl, err := s.ownedTemplate(ctx, tenantID, id)
	if err != nil {
		return err
	}
	open, err := s.checklistRepo.CountOpenInspections(ctx, tenantID, id)
	if err != nil {
		return err
	}
	if open > 0 {
		return apperrors.Conflict(fmt.Sprintf("checklist template is used by %d open inspections", open))
	}
	if err := s.checklistRepo.Delete(ctx, tenantID, id); err != nil {
		return err
	}
	s.auditSvc.LogEntitySoftDelete(ctx, tenantID, "checklist_templates", id, actorFromContext(ctx), tpl)
	return nil
}

func (s *checklistService) List(ctx context.Context, tenantID uuid.UUID, filter models.ChecklistTemplateFilter) ([]*models.ChecklistTemplate, int, error) {
	return s.checklistRepo.List(ctx, tenantID, filter)
}

func (s *checklistService) Duplicate(ctx context.Context, tenantID, id uuid.UUID, name string) (*models.ChecklistTemplate, error) {
	src, err := s.checklistRepo.GetByID(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	if !src.VisibleTo(tenantID) {
		return nil, apperrors.NotFound("checklist template")
	}

	name = strings.TrimSpace(name)
	if name == "" {
		name = src.Name + " (copy)"
	}

	copyTpl := &models.ChecklistTemplate{
		ID:             uuid.New(),
		TenantID:       &tenantID,
		Name:           name,
		Description:    src.Description,
		InspectionType: src.InspectionType,
		Standard:       src.Standard,
		IsActive:       true,
		Items:          make([]models.ChecklistItem, 0, len(src.Items)),
	}
	for _, item := range src.Items {
		item.ID = uuid.New()
		item.TemplateID = copyTpl.ID
		copyTpl.Items = append(copyTpl.Items, item)
	}

	if err := s.checklistRepo.Create(ctx, copyTpl); err != nil {
		return nil, err
	}
	s.auditSvc.LogEntityCreate(ctx, tenantID, "checklist_templates", copyTpl.ID, actorFromContext(ctx),
		map[string]any{"duplicated_from": src.ID, "name": copyTpl.Name})
	return copyTpl, nil
}

func (s *checklistService) SeedSystemTemplates(ctx context.Context) (int, error) {
	created := 0
	for _, def := range SystemTemplates() {
		if _, err := s.checklistRepo.GetSystemByName(ctx, def.Name); err == nil {
			continue
		} else if !apperrors.IsNotFound(err) {
			return created, err
		}
		if err := s.checklistRepo.Create(ctx, def); err != nil {
			return created, err
		}
		logger.FromContext(ctx).WithField("template", def.Name).Info("Seeded system checklist template")
		created++
	}
	return created, nil
}

type seedItem struct {
	category string
	text     string
	photo    bool
}

func systemTemplate(name, inspectionType, description string, items []seedItem) *models.ChecklistTemplate {
	tpl := &models.ChecklistTemplate{
		ID:             uuid.New(),
		Name:           name,
		Description:    description,
		InspectionType: inspectionType,
		Standard:       "NFPA10",
		IsSystem:       true,
		IsActive:       true,
	}
	for i, it := range items {
		tpl.Items = append(tpl.Items, models.ChecklistItem{
			ID:                    uuid.New(),
			TemplateID:            tpl.ID,
			Order:                 i + 1,
			Category:              it.category,
			Text:                  it.text,
			RequiresPhoto:         it.photo,
			RequiresCommentOnFail: true,
		})
	}
	return tpl
}

// SystemTemplates returns the built-in NFPA 10 checklists.
func SystemTemplates() []*models.ChecklistTemplate {
	return []*models.ChecklistTemplate{
		systemTemplate("NFPA 10 Monthly Inspection", models.InspectionMonthly,
			"Monthly visual inspection", []seedItem{
				{"Location", "Extinguisher is in its designated place", false},
				{"Location", "Access and visibility are unobstructed", false},
				{"Condition", "Operating instructions on the nameplate are legible and face outward", false},
				{"Condition", "Safety seal and tamper indicator are intact", false},
				{"Pressure", "Pressure gauge reading is in the operable range", true},
				{"Condition", "Fullness confirmed by weighing or hefting", false},
				{"Condition", "No evident physical damage, corrosion, leakage or clogged nozzle", false},
				{"Tag", "Inspection tag is attached and up to date", false},
			}),
		systemTemplate("NFPA 10 Annual Maintenance", models.InspectionAnnual,
			"Annual maintenance examination", []seedItem{
				{"Mechanical", "Mechanical parts examined and operable", false},
				{"Agent", "Extinguishing agent condition verified", false},
				{"Expelling", "Expelling means checked", false},
				{"Hose", "Hose and nozzle free of cracks and obstructions", false},
				{"Mounting", "Mounting bracket secure", false},
				{"Tag", "Maintenance tag updated with date and initials", true},
			}),
		systemTemplate("NFPA 10 Six-Year Maintenance", models.InspectionSixYear,
			"Six-year internal examination for stored-pressure units", []seedItem{
				{"Agent", "Agent emptied and examined", false},
				{"Internal", "Cylinder interior free of corrosion", true},
				{"Valve", "Valve assembly disassembled, cleaned and inspected", false},
				{"Recharge", "Unit recharged and pressurized", false},
				{"Tag", "Verification-of-service collar installed", false},
			}),
		systemTemplate("NFPA 10 Hydrostatic Test", models.InspectionHydrostatic,
			"Hydrostatic test of the cylinder", []seedItem{
				{"Cylinder", "External and internal visual examination passed", false},
				{"Test", "Cylinder held test pressure without leakage or distortion", false},
				{"Test", "Permanent expansion within limits", false},
				{"Label", "Hydrostatic test label affixed", true},
			}),
	}
}
