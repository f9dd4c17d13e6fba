package services

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"fireproof/internal/apperrors"
	"fireproof/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
)

// stubInspectionService serves one inspection and its verification result.
type stubInspectionService struct {
	InspectionService
	inspection   *models.Inspection
	verification *models.VerificationResult
}

func (s *stubInspectionService) Get(ctx context.Context, tenantID, id uuid.UUID) (*models.Inspection, error) {
	if s.inspection == nil || s.inspection.ID != id {
		return nil, apperrors.NotFound("inspection")
	}
	return s.inspection, nil
}

func (s *stubInspectionService) Verify(ctx context.Context, tenantID, id uuid.UUID) (*models.VerificationResult, error) {
	return s.verification, nil
}

type ReportServiceTestSuite struct {
	suite.Suite
	inspections      *stubInspectionService
	extinguisherRepo *MockExtinguisherRepository
	locationRepo     *MockLocationRepository
	tenantRepo       *MockTenantRepository
	checklistRepo    *MockChecklistRepository
	userRepo         *MockUserRepository
	service          ReportService
	ctx              context.Context
	tenantID         uuid.UUID
}

func (s *ReportServiceTestSuite) SetupTest() {
	s.inspections = &stubInspectionService{}
	s.extinguisherRepo = new(MockExtinguisherRepository)
	s.locationRepo = new(MockLocationRepository)
	s.tenantRepo = new(MockTenantRepository)
	s.checklistRepo = new(MockChecklistRepository)
	s.userRepo = new(MockUserRepository)
	s.service = NewReportService(s.inspections, s.extinguisherRepo, s.locationRepo, s.tenantRepo, s.checklistRepo, s.userRepo)
	s.ctx = context.Background()
	s.tenantID = uuid.New()
}

func (s *ReportServiceTestSuite) completedInspection() *models.Inspection {
	completed := time.Date(2026, 3, 9, 14, 5, 0, 0, time.UTC)
	result := models.ResultFail
	hash := "ab12"
	itemID := uuid.New()
	inspector := uuid.New()
	return &models.Inspection{
		ID:             uuid.New(),
		TenantID:       s.tenantID,
		ExtinguisherID: uuid.New(),
		TemplateID:     uuid.New(),
		InspectionType: models.InspectionMonthly,
		Status:         models.InspectionCompleted,
		CompletedAt:    &completed,
		OverallResult:  &result,
		InspectorID:    &inspector,
		Hash:           &hash,
		Responses: []models.InspectionResponse{
			{ItemID: itemID, Result: models.ResultFail, Comment: "Gauge in the red zone, needs recharge before next shift"},
		},
		Deficiencies: []models.Deficiency{
			{DeficiencyType: models.DeficiencyTypes[1], Severity: models.SeverityHigh, Status: models.DeficiencyOpen, Description: "Low pressure"},
		},
	}
}

func (s *ReportServiceTestSuite) expectLookups(insp *models.Inspection) {
	locationID := uuid.New()
	s.tenantRepo.On("GetByID", s.ctx, s.tenantID).Return(&models.Tenant{ID: s.tenantID, Name: "Acme Façades"}, nil)
	s.extinguisherRepo.On("GetByID", s.ctx, s.tenantID, insp.ExtinguisherID).
		Return(&models.Extinguisher{ID: insp.ExtinguisherID, AssetTag: "FE-042", LocationID: locationID}, nil)
	s.locationRepo.On("GetByID", s.ctx, s.tenantID, locationID).
		Return(&models.Location{ID: locationID, Code: "HQ", Name: "Head Office"}, nil)
	s.checklistRepo.On("GetByID", s.ctx, s.tenantID, insp.TemplateID).Return(&models.ChecklistTemplate{
		ID:       insp.TemplateID,
		Name:     "Monthly visual",
		Standard: "NFPA 10",
		Items:    []models.ChecklistItem{{ID: insp.Responses[0].ItemID, Text: "Pressure gauge in operable range"}},
	}, nil)
	s.userRepo.On("GetByID", s.ctx, s.tenantID, *insp.InspectorID).
		Return(&models.User{FirstName: "Sam", LastName: "Lee", Email: "sam@example.com"}, nil)
}

func (s *ReportServiceTestSuite) TestInspectionCertificate_RendersPDF() {
	insp := s.completedInspection()
	s.inspections.inspection = insp
	s.inspections.verification = &models.VerificationResult{HashValid: true, SignatureValid: true, ChainValid: true}
	s.expectLookups(insp)

	body, filename, err := s.service.InspectionCertificate(s.ctx, s.tenantID, insp.ID)

	s.Require().NoError(err)
	s.Equal("inspection-FE-042-2026-03-09.pdf", filename)
	s.True(bytes.HasPrefix(body, []byte("%PDF-")))
	s.mockAssert()
}

func (s *ReportServiceTestSuite) TestInspectionCertificate_FailedVerificationStillRenders() {
	insp := s.completedInspection()
	s.inspections.inspection = insp
	s.inspections.verification = &models.VerificationResult{HashValid: false, SignatureValid: true, ChainValid: true}
	s.expectLookups(insp)

	body, _, err := s.service.InspectionCertificate(s.ctx, s.tenantID, insp.ID)

	s.Require().NoError(err)
	s.NotEmpty(body)
}

func (s *ReportServiceTestSuite) TestInspectionCertificate_RequiresCompletedInspection() {
	insp := s.completedInspection()
	insp.Status = models.InspectionInProgress
	s.inspections.inspection = insp

	_, _, err := s.service.InspectionCertificate(s.ctx, s.tenantID, insp.ID)

	s.True(errors.Is(err, apperrors.ErrConflict))
	s.tenantRepo.AssertNotCalled(s.T(), "GetByID", mock.Anything, mock.Anything)
}

func (s *ReportServiceTestSuite) TestInspectionCertificate_UnknownInspection() {
	_, _, err := s.service.InspectionCertificate(s.ctx, s.tenantID, uuid.New())

	s.True(apperrors.IsNotFound(err))
}

func (s *ReportServiceTestSuite) mockAssert() {
	s.tenantRepo.AssertExpectations(s.T())
	s.extinguisherRepo.AssertExpectations(s.T())
	s.locationRepo.AssertExpectations(s.T())
	s.checklistRepo.AssertExpectations(s.T())
	s.userRepo.AssertExpectations(s.T())
}

func TestReportServiceTestSuite(t *testing.T) {
	suite.Run(t, new(ReportServiceTestSuite))
}
