package services

import (
	"context"
	"io"
	"time"

	"fireproof/internal/models"
	"fireproof/internal/repositories"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

type MockAuditLogsRepository struct {
	mock.Mock
}

func (m *MockAuditLogsRepository) Create(ctx context.Context, auditLog *models.AuditLog) error {
	args := m.Called(ctx, auditLog)
	return args.Error(0)
}

func (m *MockAuditLogsRepository) GetByID(ctx context.Context, tenantID, id uuid.UUID) (*models.AuditLog, error) {
	args := m.Called(ctx, tenantID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.AuditLog), args.Error(1)
}

func (m *MockAuditLogsRepository) List(ctx context.Context, tenantID uuid.UUID, filters *models.AuditLogFilters) ([]*models.AuditLog, int, error) {
	args := m.Called(ctx, tenantID, filters)
	var r0 []*models.AuditLog
	if v := args.Get(0); v != nil {
		r0 = v.([]*models.AuditLog)
	}
	return r0, args.Int(1), args.Error(2)
}

func (m *MockAuditLogsRepository) GetTableNames(ctx context.Context, tenantID uuid.UUID) ([]string, error) {
	args := m.Called(ctx, tenantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

type MockChecklistRepository struct {
	mock.Mock
}

func (m *MockChecklistRepository) Create(ctx context.Context, tpl *models.ChecklistTemplate) error {
	args := m.Called(ctx, tpl)
	return args.Error(0)
}

func (m *MockChecklistRepository) GetByID(ctx context.Context, tenantID, id uuid.UUID) (*models.ChecklistTemplate, error) {
	args := m.Called(ctx, tenantID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ChecklistTemplate), args.Error(1)
}

func (m *MockChecklistRepository) Update(ctx context.Context, tpl *models.ChecklistTemplate) error {
	args := m.Called(ctx, tpl)
	return args.Error(0)
}

func (m *MockChecklistRepository) Delete(ctx context.Context, tenantID, id uuid.UUID) error {
	args := m.Called(ctx, tenantID, id)
	return args.Error(0)
}

func (m *MockChecklistRepository) List(ctx context.Context, tenantID uuid.UUID, filter models.ChecklistTemplateFilter) ([]*models.ChecklistTemplate, int, error) {
	args := m.Called(ctx, tenantID, filter)
	var r0 []*models.ChecklistTemplate
	if v := args.Get(0); v != nil {
		r0 = v.([]*models.ChecklistTemplate)
	}
	return r0, args.Int(1), args.Error(2)
}

func (m *MockChecklistRepository) GetDefault(ctx context.Context, tenantID uuid.UUID, inspectionType string) (*models.ChecklistTemplate, error) {
	args := m.Called(ctx, tenantID, inspectionType)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ChecklistTemplate), args.Error(1)
}

func (m *MockChecklistRepository) CountOpenInspections(ctx context.Context, tenantID, id uuid.UUID) (int, error) {
	args := m.Called(ctx, tenantID, id)
	return args.Int(0), args.Error(1)
}

func (m *MockChecklistRepository) GetSystemByName(ctx context.Context, name string) (*models.ChecklistTemplate, error) {
	args := m.Called(ctx, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ChecklistTemplate), args.Error(1)
}

type MockDashboardRepository struct {
	mock.Mock
}

func (m *MockDashboardRepository) Stats(ctx context.Context, tenantID uuid.UUID, today time.Time) (*models.DashboardStats, error) {
	args := m.Called(ctx, tenantID, today)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.DashboardStats), args.Error(1)
}

func (m *MockDashboardRepository) Compliance(ctx context.Context, tenantID uuid.UUID, today time.Time) ([]models.LocationCompliance, error) {
	args := m.Called(ctx, tenantID, today)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.LocationCompliance), args.Error(1)
}

type MockDeficiencyRepository struct {
	mock.Mock
}

func (m *MockDeficiencyRepository) Create(ctx context.Context, d *models.Deficiency) error {
	args := m.Called(ctx, d)
	return args.Error(0)
}

func (m *MockDeficiencyRepository) GetByID(ctx context.Context, tenantID, id uuid.UUID) (*models.Deficiency, error) {
	args := m.Called(ctx, tenantID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Deficiency), args.Error(1)
}

func (m *MockDeficiencyRepository) Update(ctx context.Context, d *models.Deficiency) error {
	args := m.Called(ctx, d)
	return args.Error(0)
}

func (m *MockDeficiencyRepository) List(ctx context.Context, tenantID uuid.UUID, filter models.DeficiencyFilter) ([]*models.Deficiency, int, error) {
	args := m.Called(ctx, tenantID, filter)
	var r0 []*models.Deficiency
	if v := args.Get(0); v != nil {
		r0 = v.([]*models.Deficiency)
	}
	return r0, args.Int(1), args.Error(2)
}

func (m *MockDeficiencyRepository) ListByInspection(ctx context.Context, tenantID, inspectionID uuid.UUID) ([]models.Deficiency, error) {
	args := m.Called(ctx, tenantID, inspectionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Deficiency), args.Error(1)
}

func (m *MockDeficiencyRepository) CountOpenSevere(ctx context.Context, tenantID, extinguisherID, excludeID uuid.UUID) (int, error) {
	args := m.Called(ctx, tenantID, extinguisherID, excludeID)
	return args.Int(0), args.Error(1)
}

func (m *MockDeficiencyRepository) ListOverdue(ctx context.Context, asOf time.Time) ([]*models.Deficiency, error) {
	args := m.Called(ctx, asOf)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Deficiency), args.Error(1)
}

func (m *MockDeficiencyRepository) ForEach(ctx context.Context, tenantID uuid.UUID, filter models.DeficiencyFilter, fn func(*models.Deficiency) error) error {
	args := m.Called(ctx, tenantID, filter, fn)
	return args.Error(0)
}

type MockExtinguisherRepository struct {
	mock.Mock
}

func (m *MockExtinguisherRepository) Create(ctx context.Context, e *models.Extinguisher) error {
	args := m.Called(ctx, e)
	return args.Error(0)
}

func (m *MockExtinguisherRepository) GetByID(ctx context.Context, tenantID, id uuid.UUID) (*models.Extinguisher, error) {
	args := m.Called(ctx, tenantID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Extinguisher), args.Error(1)
}

func (m *MockExtinguisherRepository) GetByAssetTag(ctx context.Context, tenantID uuid.UUID, assetTag string) (*models.Extinguisher, error) {
	args := m.Called(ctx, tenantID, assetTag)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Extinguisher), args.Error(1)
}

func (m *MockExtinguisherRepository) GetByBarcode(ctx context.Context, tenantID uuid.UUID, barcode string) (*models.Extinguisher, error) {
	args := m.Called(ctx, tenantID, barcode)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Extinguisher), args.Error(1)
}

func (m *MockExtinguisherRepository) Update(ctx context.Context, e *models.Extinguisher) error {
	args := m.Called(ctx, e)
	return args.Error(0)
}

func (m *MockExtinguisherRepository) SetStatus(ctx context.Context, tenantID, id uuid.UUID, status string) error {
	args := m.Called(ctx, tenantID, id, status)
	return args.Error(0)
}

func (m *MockExtinguisherRepository) Delete(ctx context.Context, tenantID, id uuid.UUID) error {
	args := m.Called(ctx, tenantID, id)
	return args.Error(0)
}

func (m *MockExtinguisherRepository) List(ctx context.Context, tenantID uuid.UUID, filter models.ExtinguisherFilter) ([]*models.Extinguisher, int, error) {
	args := m.Called(ctx, tenantID, filter)
	var r0 []*models.Extinguisher
	if v := args.Get(0); v != nil {
		r0 = v.([]*models.Extinguisher)
	}
	return r0, args.Int(1), args.Error(2)
}

func (m *MockExtinguisherRepository) ListDueWithoutOpenInspection(ctx context.Context, tenantID uuid.UUID, dueBy time.Time) ([]*models.Extinguisher, error) {
	args := m.Called(ctx, tenantID, dueBy)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Extinguisher), args.Error(1)
}

func (m *MockExtinguisherRepository) ForEach(ctx context.Context, tenantID uuid.UUID, fn func(*models.Extinguisher) error) error {
	args := m.Called(ctx, tenantID, fn)
	return args.Error(0)
}

func (m *MockExtinguisherRepository) ListIDs(ctx context.Context, tenantID uuid.UUID) ([]uuid.UUID, error) {
	args := m.Called(ctx, tenantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]uuid.UUID), args.Error(1)
}

type MockExtinguisherTypeRepository struct {
	mock.Mock
}

func (m *MockExtinguisherTypeRepository) Create(ctx context.Context, t *models.ExtinguisherType) error {
	args := m.Called(ctx, t)
	return args.Error(0)
}

func (m *MockExtinguisherTypeRepository) GetByID(ctx context.Context, tenantID, id uuid.UUID) (*models.ExtinguisherType, error) {
	args := m.Called(ctx, tenantID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ExtinguisherType), args.Error(1)
}

func (m *MockExtinguisherTypeRepository) GetByCode(ctx context.Context, tenantID uuid.UUID, code string) (*models.ExtinguisherType, error) {
	args := m.Called(ctx, tenantID, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ExtinguisherType), args.Error(1)
}

func (m *MockExtinguisherTypeRepository) Update(ctx context.Context, t *models.ExtinguisherType) error {
	args := m.Called(ctx, t)
	return args.Error(0)
}

func (m *MockExtinguisherTypeRepository) Delete(ctx context.Context, tenantID, id uuid.UUID) error {
	args := m.Called(ctx, tenantID, id)
	return args.Error(0)
}

func (m *MockExtinguisherTypeRepository) List(ctx context.Context, tenantID uuid.UUID, limit, offset int) ([]*models.ExtinguisherType, int, error) {
	args := m.Called(ctx, tenantID, limit, offset)
	var r0 []*models.ExtinguisherType
	if v := args.Get(0); v != nil {
		r0 = v.([]*models.ExtinguisherType)
	}
	return r0, args.Int(1), args.Error(2)
}

type MockImportJobRepository struct {
	mock.Mock
}

func (m *MockImportJobRepository) Create(ctx context.Context, job *models.ImportJob) error {
	args := m.Called(ctx, job)
	return args.Error(0)
}

func (m *MockImportJobRepository) GetByID(ctx context.Context, tenantID, id uuid.UUID) (*models.ImportJob, error) {
	args := m.Called(ctx, tenantID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ImportJob), args.Error(1)
}

func (m *MockImportJobRepository) MarkProcessing(ctx context.Context, tenantID, id uuid.UUID, at time.Time) error {
	args := m.Called(ctx, tenantID, id, at)
	return args.Error(0)
}

func (m *MockImportJobRepository) Finish(ctx context.Context, tenantID, id uuid.UUID, status string, result *models.ImportResult, at time.Time) error {
	args := m.Called(ctx, tenantID, id, status, result, at)
	return args.Error(0)
}

type MockInspectionRepository struct {
	mock.Mock
}

func (m *MockInspectionRepository) Create(ctx context.Context, insp *models.Inspection) error {
	args := m.Called(ctx, insp)
	return args.Error(0)
}

func (m *MockInspectionRepository) GetByID(ctx context.Context, tenantID, id uuid.UUID) (*models.Inspection, error) {
	args := m.Called(ctx, tenantID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Inspection), args.Error(1)
}

func (m *MockInspectionRepository) List(ctx context.Context, tenantID uuid.UUID, filter models.InspectionFilter) ([]*models.Inspection, int, error) {
	args := m.Called(ctx, tenantID, filter)
	var r0 []*models.Inspection
	if v := args.Get(0); v != nil {
		r0 = v.([]*models.Inspection)
	}
	return r0, args.Int(1), args.Error(2)
}

func (m *MockInspectionRepository) Start(ctx context.Context, insp *models.Inspection) error {
	args := m.Called(ctx, insp)
	return args.Error(0)
}

func (m *MockInspectionRepository) SaveResponses(ctx context.Context, tenantID, inspectionID uuid.UUID, responses []models.InspectionResponse) error {
	args := m.Called(ctx, tenantID, inspectionID, responses)
	return args.Error(0)
}

func (m *MockInspectionRepository) ListResponses(ctx context.Context, tenantID, inspectionID uuid.UUID) ([]models.InspectionResponse, error) {
	args := m.Called(ctx, tenantID, inspectionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.InspectionResponse), args.Error(1)
}

func (m *MockInspectionRepository) Complete(ctx context.Context, c *repositories.Completion) error {
	args := m.Called(ctx, c)
	return args.Error(0)
}

func (m *MockInspectionRepository) PredecessorHash(ctx context.Context, tenantID, extinguisherID uuid.UUID, completedAt time.Time, id uuid.UUID) (string, error) {
	args := m.Called(ctx, tenantID, extinguisherID, completedAt, id)
	return args.String(0), args.Error(1)
}

func (m *MockInspectionRepository) ListChain(ctx context.Context, tenantID, extinguisherID uuid.UUID) ([]*models.Inspection, error) {
	args := m.Called(ctx, tenantID, extinguisherID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Inspection), args.Error(1)
}

func (m *MockInspectionRepository) ForEach(ctx context.Context, tenantID uuid.UUID, filter models.InspectionFilter, fn func(*models.Inspection) error) error {
	args := m.Called(ctx, tenantID, filter, fn)
	return args.Error(0)
}

func (m *MockInspectionRepository) MarkOverdue(ctx context.Context, now time.Time) (int, error) {
	args := m.Called(ctx, now)
	return args.Int(0), args.Error(1)
}

type MockLocationRepository struct {
	mock.Mock
}

func (m *MockLocationRepository) Create(ctx context.Context, location *models.Location) error {
	args := m.Called(ctx, location)
	return args.Error(0)
}

func (m *MockLocationRepository) GetByID(ctx context.Context, tenantID, id uuid.UUID) (*models.Location, error) {
	args := m.Called(ctx, tenantID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Location), args.Error(1)
}

func (m *MockLocationRepository) GetByCode(ctx context.Context, tenantID uuid.UUID, code string) (*models.Location, error) {
	args := m.Called(ctx, tenantID, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Location), args.Error(1)
}

func (m *MockLocationRepository) Update(ctx context.Context, location *models.Location) error {
	args := m.Called(ctx, location)
	return args.Error(0)
}

func (m *MockLocationRepository) Delete(ctx context.Context, tenantID, id uuid.UUID) error {
	args := m.Called(ctx, tenantID, id)
	return args.Error(0)
}

func (m *MockLocationRepository) List(ctx context.Context, tenantID uuid.UUID, filter models.LocationFilter) ([]*models.Location, int, error) {
	args := m.Called(ctx, tenantID, filter)
	var r0 []*models.Location
	if v := args.Get(0); v != nil {
		r0 = v.([]*models.Location)
	}
	return r0, args.Int(1), args.Error(2)
}

func (m *MockLocationRepository) CountActiveExtinguishers(ctx context.Context, tenantID, id uuid.UUID) (int, error) {
	args := m.Called(ctx, tenantID, id)
	return args.Int(0), args.Error(1)
}

type MockPermissionRepository struct {
	mock.Mock
}

func (m *MockPermissionRepository) Ensure(ctx context.Context, permissions []models.Permission) error {
	args := m.Called(ctx, permissions)
	return args.Error(0)
}

func (m *MockPermissionRepository) List(ctx context.Context) ([]*models.Permission, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Permission), args.Error(1)
}

type MockPhotoRepository struct {
	mock.Mock
}

func (m *MockPhotoRepository) Create(ctx context.Context, p *models.Photo) error {
	args := m.Called(ctx, p)
	return args.Error(0)
}

func (m *MockPhotoRepository) GetByID(ctx context.Context, tenantID, id uuid.UUID) (*models.Photo, error) {
	args := m.Called(ctx, tenantID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Photo), args.Error(1)
}

func (m *MockPhotoRepository) GetBySHA(ctx context.Context, tenantID, inspectionID uuid.UUID, sha string) (*models.Photo, error) {
	args := m.Called(ctx, tenantID, inspectionID, sha)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Photo), args.Error(1)
}

func (m *MockPhotoRepository) ListByInspection(ctx context.Context, tenantID, inspectionID uuid.UUID) ([]models.Photo, error) {
	args := m.Called(ctx, tenantID, inspectionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Photo), args.Error(1)
}

func (m *MockPhotoRepository) Delete(ctx context.Context, tenantID, id uuid.UUID) error {
	args := m.Called(ctx, tenantID, id)
	return args.Error(0)
}

type MockRolePermissionRepository struct {
	mock.Mock
}

func (m *MockRolePermissionRepository) Grant(ctx context.Context, tenantID, roleID uuid.UUID, permissionNames []string) error {
	args := m.Called(ctx, tenantID, roleID, permissionNames)
	return args.Error(0)
}

func (m *MockRolePermissionRepository) ListForUser(ctx context.Context, tenantID, userID uuid.UUID) ([]string, error) {
	args := m.Called(ctx, tenantID, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

type MockRoleRepository struct {
	mock.Mock
}

func (m *MockRoleRepository) Create(ctx context.Context, role *models.Role) error {
	args := m.Called(ctx, role)
	return args.Error(0)
}

func (m *MockRoleRepository) GetByID(ctx context.Context, tenantID, id uuid.UUID) (*models.Role, error) {
	args := m.Called(ctx, tenantID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Role), args.Error(1)
}

func (m *MockRoleRepository) GetByName(ctx context.Context, tenantID uuid.UUID, name string) (*models.Role, error) {
	args := m.Called(ctx, tenantID, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Role), args.Error(1)
}

func (m *MockRoleRepository) List(ctx context.Context, tenantID uuid.UUID) ([]*models.Role, error) {
	args := m.Called(ctx, tenantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Role), args.Error(1)
}

type MockTenantRepository struct {
	mock.Mock
}

func (m *MockTenantRepository) Create(ctx context.Context, tenant *models.Tenant) error {
	args := m.Called(ctx, tenant)
	return args.Error(0)
}

func (m *MockTenantRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Tenant, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Tenant), args.Error(1)
}

func (m *MockTenantRepository) GetBySlug(ctx context.Context, slug string) (*models.Tenant, error) {
	args := m.Called(ctx, slug)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Tenant), args.Error(1)
}

func (m *MockTenantRepository) Update(ctx context.Context, tenant *models.Tenant) error {
	args := m.Called(ctx, tenant)
	return args.Error(0)
}

func (m *MockTenantRepository) Deactivate(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockTenantRepository) List(ctx context.Context, limit, offset int) ([]*models.Tenant, int, error) {
	args := m.Called(ctx, limit, offset)
	var r0 []*models.Tenant
	if v := args.Get(0); v != nil {
		r0 = v.([]*models.Tenant)
	}
	return r0, args.Int(1), args.Error(2)
}

func (m *MockTenantRepository) ListActiveIDs(ctx context.Context) ([]uuid.UUID, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]uuid.UUID), args.Error(1)
}

type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) Create(ctx context.Context, user *models.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepository) GetByID(ctx context.Context, tenantID, id uuid.UUID) (*models.User, error) {
	args := m.Called(ctx, tenantID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepository) Update(ctx context.Context, user *models.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepository) UpdatePassword(ctx context.Context, tenantID, id uuid.UUID, passwordHash string) error {
	args := m.Called(ctx, tenantID, id, passwordHash)
	return args.Error(0)
}

func (m *MockUserRepository) Delete(ctx context.Context, tenantID, id uuid.UUID) error {
	args := m.Called(ctx, tenantID, id)
	return args.Error(0)
}

func (m *MockUserRepository) List(ctx context.Context, tenantID uuid.UUID, filter models.UserFilter) ([]*models.User, int, error) {
	args := m.Called(ctx, tenantID, filter)
	var r0 []*models.User
	if v := args.Get(0); v != nil {
		r0 = v.([]*models.User)
	}
	return r0, args.Int(1), args.Error(2)
}

func (m *MockUserRepository) GetByEmail(ctx context.Context, tenantID uuid.UUID, email string) (*models.User, error) {
	args := m.Called(ctx, tenantID, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepository) FindByEmail(ctx context.Context, email string) ([]*models.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.User), args.Error(1)
}

func (m *MockUserRepository) GetByExternalID(ctx context.Context, externalID string) (*models.User, error) {
	args := m.Called(ctx, externalID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepository) TouchLastLogin(ctx context.Context, tenantID, id uuid.UUID) error {
	args := m.Called(ctx, tenantID, id)
	return args.Error(0)
}

type MockUserRoleRepository struct {
	mock.Mock
}

func (m *MockUserRoleRepository) Assign(ctx context.Context, tenantID, userID, roleID uuid.UUID) error {
	args := m.Called(ctx, tenantID, userID, roleID)
	return args.Error(0)
}

func (m *MockUserRoleRepository) Replace(ctx context.Context, tenantID, userID uuid.UUID, roleIDs []uuid.UUID) error {
	args := m.Called(ctx, tenantID, userID, roleIDs)
	return args.Error(0)
}

func (m *MockUserRoleRepository) ListRoleNames(ctx context.Context, tenantID, userID uuid.UUID) ([]string, error) {
	args := m.Called(ctx, tenantID, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

type MockObjectStorage struct {
	mock.Mock
}

func (m *MockObjectStorage) PutObject(ctx context.Context, objectName string, reader io.Reader, objectSize int64, contentType string) error {
	args := m.Called(ctx, objectName, reader, objectSize, contentType)
	return args.Error(0)
}

func (m *MockObjectStorage) GetPresignedURL(ctx context.Context, objectName string, expiry time.Duration) (string, error) {
	args := m.Called(ctx, objectName, expiry)
	return args.String(0), args.Error(1)
}

func (m *MockObjectStorage) DeleteObject(ctx context.Context, objectName string) error {
	args := m.Called(ctx, objectName)
	return args.Error(0)
}

func (m *MockObjectStorage) EnsureBucketExists(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockObjectStorage) Ping(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

type MockRBACService struct {
	mock.Mock
}

func (m *MockRBACService) UserHasPermission(ctx context.Context, userID, tenantID uuid.UUID, permissionName string) (bool, error) {
	args := m.Called(ctx, userID, tenantID, permissionName)
	return args.Bool(0), args.Error(1)
}

func (m *MockRBACService) GetUserPermissions(ctx context.Context, userID, tenantID uuid.UUID) ([]string, error) {
	args := m.Called(ctx, userID, tenantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockRBACService) InvalidateUser(ctx context.Context, tenantID, userID uuid.UUID) error {
	args := m.Called(ctx, tenantID, userID)
	return args.Error(0)
}

func (m *MockRBACService) EnsurePermissions(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockRBACService) SeedTenantRoles(ctx context.Context, tenantID uuid.UUID) (map[string]*models.Role, error) {
	args := m.Called(ctx, tenantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]*models.Role), args.Error(1)
}

func (m *MockRBACService) ListRoles(ctx context.Context, tenantID uuid.UUID) ([]*models.Role, error) {
	args := m.Called(ctx, tenantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Role), args.Error(1)
}

func (m *MockRBACService) ListPermissions(ctx context.Context) ([]*models.Permission, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Permission), args.Error(1)
}
