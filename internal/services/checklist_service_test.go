package services

import (
	"context"
	"testing"
	"time"

	"fireproof/internal/apperrors"
	"fireproof/internal/common"
	"fireproof/internal/models"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

type ChecklistServiceTestSuite struct {
	suite.Suite
	checklistRepo *MockChecklistRepository
	auditRepo     *MockAuditLogsRepository
	service       ChecklistService

	ctx      context.Context
	tenantID uuid.UUID
	system   *models.ChecklistTemplate
	owned    *models.ChecklistTemplate
}

func (s *ChecklistServiceTestSuite) SetupTest() {
	s.checklistRepo = &MockChecklistRepository{}
	s.auditRepo = &MockAuditLogsRepository{}
	s.auditRepo.On("Create", mock.Anything, mock.Anything).Return(nil).Maybe()
	clock := clockwork.NewFakeClockAt(time.Date(2026, 4, 1, 8, 0, 0, 0, time.UTC))
	s.service = NewChecklistService(s.checklistRepo, NewAuditLogsService(s.auditRepo, clock))

	s.tenantID = uuid.New()
	s.ctx = context.WithValue(context.Background(), common.UserIDKey, uuid.New())

	s.system = SystemTemplates()[0]
	s.owned = &models.ChecklistTemplate{
		ID:             uuid.New(),
		TenantID:       &s.tenantID,
		Name:           "Warehouse Monthly",
		InspectionType: models.InspectionMonthly,
		IsActive:       true,
		Items:          []models.ChecklistItem{{ID: uuid.New(), Order: 1, Text: "Gauge in green"}},
	}
}

func TestChecklistServiceTestSuite(t *testing.T) {
	suite.Run(t, new(ChecklistServiceTestSuite))
}

func (s *ChecklistServiceTestSuite) request() *models.ChecklistTemplateRequest {
	return &models.ChecklistTemplateRequest{
		Name:           "Warehouse Monthly v2",
		InspectionType: models.InspectionMonthly,
		Items:          []models.ChecklistItemRequest{{Text: "Gauge in green"}, {Text: "Hose intact"}},
	}
}

func (s *ChecklistServiceTestSuite) TestSystemTemplatesAreReadOnly() {
	s.checklistRepo.On("GetByID", s.ctx, s.tenantID, s.system.ID).Return(s.system, nil)

	_, err := s.service.Update(s.ctx, s.tenantID, s.system.ID, s.request())
	appErr, ok := apperrors.As(err)
	require.True(s.T(), ok)
	assert.Equal(s.T(), apperrors.KindForbidden, appErr.Kind)

	err = s.service.Delete(s.ctx, s.tenantID, s.system.ID)
	appErr, ok = apperrors.As(err)
	require.True(s.T(), ok)
	assert.Equal(s.T(), apperrors.KindForbidden, appErr.Kind)

	s.checklistRepo.AssertNotCalled(s.T(), "Update", mock.Anything, mock.Anything)
	s.checklistRepo.AssertNotCalled(s.T(), "Delete", mock.Anything, mock.Anything, mock.Anything)
}

func (s *ChecklistServiceTestSuite) TestDuplicate_CopiesIntoTenant() {
	s.checklistRepo.On("GetByID", s.ctx, s.tenantID, s.system.ID).Return(s.system, nil)
	s.checklistRepo.On("Create", s.ctx, mock.AnythingOfType("*models.ChecklistTemplate")).Return(nil)

	copied, err := s.service.Duplicate(s.ctx, s.tenantID, s.system.ID, "  ")
	require.NoError(s.T(), err)

	assert.Equal(s.T(), s.system.Name+" (copy)", copied.Name)
	assert.Equal(s.T(), s.tenantID, *copied.TenantID)
	assert.False(s.T(), copied.IsSystem)
	assert.NotEqual(s.T(), s.system.ID, copied.ID)
	require.Len(s.T(), copied.Items, len(s.system.Items))
	for i, item := range copied.Items {
		assert.NotEqual(s.T(), s.system.Items[i].ID, item.ID)
		assert.Equal(s.T(), copied.ID, item.TemplateID)
		assert.Equal(s.T(), s.system.Items[i].Text, item.Text)
		assert.Equal(s.T(), s.system.Items[i].RequiresPhoto, item.RequiresPhoto)
	}
}

func (s *ChecklistServiceTestSuite) TestDuplicate_OtherTenantHidden() {
	other := uuid.New()
	s.owned.TenantID = &other
	s.checklistRepo.On("GetByID", s.ctx, s.tenantID, s.owned.ID).Return(s.owned, nil)

	_, err := s.service.Duplicate(s.ctx, s.tenantID, s.owned.ID, "Mine now")
	assert.True(s.T(), apperrors.IsNotFound(err))
	s.checklistRepo.AssertNotCalled(s.T(), "Create", mock.Anything, mock.Anything)
}

func (s *ChecklistServiceTestSuite) TestUpdate_ItemsInUseConflict() {
	s.checklistRepo.On("GetByID", s.ctx, s.tenantID, s.owned.ID).Return(s.owned, nil)
	s.checklistRepo.On("Update", s.ctx, mock.AnythingOfType("*models.ChecklistTemplate")).
		Return(apperrors.Conflict("checklist template is used by inspections, duplicate it to change items"))

	_, err := s.service.Update(s.ctx, s.tenantID, s.owned.ID, s.request())
	assert.ErrorIs(s.T(), err, apperrors.ErrConflict)
}

func (s *ChecklistServiceTestSuite) TestDelete_OpenInspectionsConflict() {
	s.checklistRepo.On("GetByID", s.ctx, s.tenantID, s.owned.ID).Return(s.owned, nil)
	s.checklistRepo.On("CountOpenInspections", s.ctx, s.tenantID, s.owned.ID).Return(3, nil)

	err := s.service.Delete(s.ctx, s.tenantID, s.owned.ID)
	appErr, ok := apperrors.As(err)
	require.True(s.T(), ok)
	assert.Equal(s.T(), apperrors.KindConflict, appErr.Kind)
	assert.Equal(s.T(), "checklist template is used by 3 open inspections", appErr.Message)
	s.checklistRepo.AssertNotCalled(s.T(), "Delete", mock.Anything, mock.Anything, mock.Anything)
}

func (s *ChecklistServiceTestSuite) TestDelete_Unused() {
	s.checklistRepo.On("GetByID", s.ctx, s.tenantID, s.owned.ID).Return(s.owned, nil)
	s.checklistRepo.On("CountOpenInspections", s.ctx, s.tenantID, s.owned.ID).Return(0, nil)
	s.checklistRepo.On("Delete", s.ctx, s.tenantID, s.owned.ID).Return(nil)

	require.NoError(s.T(), s.service.Delete(s.ctx, s.tenantID, s.owned.ID))
	s.checklistRepo.AssertExpectations(s.T())
}

func (s *ChecklistServiceTestSuite) TestCreate_DefaultsCommentOnFail() {
	s.checklistRepo.On("Create", s.ctx, mock.AnythingOfType("*models.ChecklistTemplate")).Return(nil)
	optional := false
	req := s.request()
	req.Items[1].RequiresCommentOnFail = &optional

	tpl, err := s.service.Create(s.ctx, s.tenantID, req)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), s.tenantID, *tpl.TenantID)
	assert.True(s.T(), tpl.Items[0].RequiresCommentOnFail)
	assert.False(s.T(), tpl.Items[1].RequiresCommentOnFail)
	assert.Equal(s.T(), 2, tpl.Items[1].Order)
}
