package background

import (
	"context"
	"errors"
	"testing"
	"time"

	"fireproof/internal/models"
	"fireproof/internal/repositories"
	"fireproof/internal/services"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
)

type mockInspectionRepo struct {
	repositories.InspectionRepository
	mock.Mock
}

func (m *mockInspectionRepo) MarkOverdue(ctx context.Context, now time.Time) (int, error) {
	args := m.Called(ctx, now)
	return args.Int(0), args.Error(1)
}

type mockTenantRepo struct {
	repositories.TenantRepository
	mock.Mock
}

func (m *mockTenantRepo) ListActiveIDs(ctx context.Context) ([]uuid.UUID, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]uuid.UUID), args.Error(1)
}

type mockInspectionService struct {
	services.InspectionService
	mock.Mock
}

func (m *mockInspectionService) ScheduleDue(ctx context.Context, tenantID uuid.UUID, daysAhead int) (*models.ScheduleDueResult, error) {
	args := m.Called(ctx, tenantID, daysAhead)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ScheduleDueResult), args.Error(1)
}

type mockDeficiencyService struct {
	services.DeficiencyService
	mock.Mock
}

func (m *mockDeficiencyService) Escalate(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

type JobSchedulerTestSuite struct {
	suite.Suite
	inspectionRepo *mockInspectionRepo
	tenantRepo     *mockTenantRepo
	inspectionSvc  *mockInspectionService
	deficiencySvc  *mockDeficiencyService
	clock          *clockwork.FakeClock
	scheduler      *JobScheduler
	ctx            context.Context
}

func (s *JobSchedulerTestSuite) SetupTest() {
	s.inspectionRepo = new(mockInspectionRepo)
	s.tenantRepo = new(mockTenantRepo)
	s.inspectionSvc = new(mockInspectionService)
	s.deficiencySvc = new(mockDeficiencyService)
	s.clock = clockwork.NewFakeClockAt(time.Date(2026, 7, 1, 3, 0, 0, 0, time.UTC))
	s.ctx = context.Background()

	js, err := NewJobScheduler(nil, s.inspectionSvc, s.deficiencySvc, s.inspectionRepo, s.tenantRepo, s.clock, 14)
	s.Require().NoError(err)
	s.scheduler = js
	s.T().Cleanup(func() { _ = js.Stop() })
}

func (s *JobSchedulerTestSuite) TearDownTest() {
	s.inspectionRepo.AssertExpectations(s.T())
	s.tenantRepo.AssertExpectations(s.T())
	s.inspectionSvc.AssertExpectations(s.T())
	s.deficiencySvc.AssertExpectations(s.T())
}

func (s *JobSchedulerTestSuite) TestRegistersEveryJob() {
	status := s.scheduler.GetJobStatus()

	s.Equal(4, status["total_jobs"])
	names := map[string]bool{}
	for _, entry := range status["jobs"].([]map[string]interface{}) {
		names[entry["name"].(string)] = true
	}
	s.Equal(map[string]bool{
		JobMarkOverdue:      true,
		JobScheduleDue:      true,
		JobRefreshDashboard: true,
		JobEscalation:       true,
	}, names)
}

func (s *JobSchedulerTestSuite) TestRunNow_UnknownJob() {
	s.Error(s.scheduler.RunNow("compact-database"))
}

func (s *JobSchedulerTestSuite) TestMarkOverdue_UsesClock() {
	s.inspectionRepo.On("MarkOverdue", s.ctx, s.clock.Now()).Return(2, nil)

	s.NoError(s.scheduler.MarkOverdue(s.ctx))
}

func (s *JobSchedulerTestSuite) TestScheduleDue_SkipsFailingTenant() {
	a, b := uuid.New(), uuid.New()
	s.tenantRepo.On("ListActiveIDs", s.ctx).Return([]uuid.UUID{a, b}, nil)
	s.inspectionSvc.On("ScheduleDue", s.ctx, a, 14).Return(nil, errors.New("no template"))
	s.inspectionSvc.On("ScheduleDue", s.ctx, b, 14).Return(&models.ScheduleDueResult{}, nil)

	s.NoError(s.scheduler.ScheduleDue(s.ctx))
}

func (s *JobSchedulerTestSuite) TestScheduleDue_FailsWhenEveryTenantFails() {
	a := uuid.New()
	s.tenantRepo.On("ListActiveIDs", s.ctx).Return([]uuid.UUID{a}, nil)
	s.inspectionSvc.On("ScheduleDue", s.ctx, a, 14).Return(nil, errors.New("db down"))

	s.Error(s.scheduler.ScheduleDue(s.ctx))
}

func (s *JobSchedulerTestSuite) TestScheduleDue_NoTenants() {
	s.tenantRepo.On("ListActiveIDs", s.ctx).Return([]uuid.UUID{}, nil)

	s.NoError(s.scheduler.ScheduleDue(s.ctx))
}

func (s *JobSchedulerTestSuite) TestEscalateDeficiencies() {
	s.deficiencySvc.On("Escalate", s.ctx).Return(5, nil)

	s.NoError(s.scheduler.EscalateDeficiencies(s.ctx))
}

func TestJobSchedulerTestSuite(t *testing.T) {
	suite.Run(t, new(JobSchedulerTestSuite))
}
