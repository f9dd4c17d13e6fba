package repositories

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"fireproof/internal/apperrors"
	"fireproof/internal/models"
)

type ChecklistRepoTestSuite struct {
	suite.Suite
	mock     pgxmock.PgxPoolIface
	repo     ChecklistRepository
	tenantID uuid.UUID
	ctx      context.Context
}

func (s *ChecklistRepoTestSuite) SetupTest() {
	mock, err := pgxmock.NewPool()
	require.NoError(s.T(), err)
	s.mock = mock
	s.repo = NewChecklistRepo(mock)
	s.tenantID = uuid.New()
	s.ctx = context.Background()
}

func (s *ChecklistRepoTestSuite) TearDownTest() {
	assert.NoError(s.T(), s.mock.ExpectationsWereMet())
	s.mock.Close()
}

func TestChecklistRepoTestSuite(t *testing.T) {
	suite.Run(t, new(ChecklistRepoTestSuite))
}

func (s *ChecklistRepoTestSuite) template() *models.ChecklistTemplate {
	return &models.ChecklistTemplate{
		ID:             uuid.New(),
		TenantID:       &s.tenantID,
		Name:           "Warehouse Monthly",
		InspectionType: models.InspectionMonthly,
		Standard:       "NFPA10",
		IsActive:       true,
		Items:          []models.ChecklistItem{{Order: 1, Text: "Gauge in green", RequiresCommentOnFail: true}},
	}
}

func (s *ChecklistRepoTestSuite) expectTemplateUpdate(tpl *models.ChecklistTemplate) {
	s.mock.ExpectBegin()
	s.mock.ExpectExec(`UPDATE checklist_templates`).
		WithArgs(tpl.Name, tpl.Description, tpl.InspectionType, tpl.Standard, tpl.IsActive, tpl.TenantID, tpl.ID).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
}

func (s *ChecklistRepoTestSuite) TestUpdate_ReplacesItems() {
	tpl := s.template()

	s.expectTemplateUpdate(tpl)
	s.mock.ExpectExec(`DELETE FROM checklist_items WHERE template_id = \$1`).
		WithArgs(tpl.ID).
		WillReturnResult(pgxmock.NewResult("DELETE", 3))
	s.mock.ExpectExec(`INSERT INTO checklist_items`).
		WithArgs(pgxmock.AnyArg(), tpl.ID, 1, "", "Gauge in green", "", false, true).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	s.mock.ExpectCommit()

	require.NoError(s.T(), s.repo.Update(s.ctx, tpl))
	assert.Equal(s.T(), tpl.ID, tpl.Items[0].TemplateID)
	assert.NotEqual(s.T(), uuid.Nil, tpl.Items[0].ID)
}

func (s *ChecklistRepoTestSuite) TestUpdate_ItemsReferencedByInspectionsConflict() {
	tpl := s.template()

	s.expectTemplateUpdate(tpl)
	s.mock.ExpectExec(`DELETE FROM checklist_items WHERE template_id = \$1`).
		WithArgs(tpl.ID).
		WillReturnError(&pgconn.PgError{Code: pgForeignKeyViolation})
	s.mock.ExpectRollback()

	err := s.repo.Update(s.ctx, tpl)
	appErr, ok := apperrors.As(err)
	require.True(s.T(), ok)
	assert.Equal(s.T(), apperrors.KindConflict, appErr.Kind)
	assert.Contains(s.T(), appErr.Message, "duplicate it")
}

func (s *ChecklistRepoTestSuite) TestUpdate_OtherTenantNotFound() {
	tpl := s.template()

	s.mock.ExpectBegin()
	s.mock.ExpectExec(`UPDATE checklist_templates`).
		WithArgs(tpl.Name, tpl.Description, tpl.InspectionType, tpl.Standard, tpl.IsActive, tpl.TenantID, tpl.ID).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	s.mock.ExpectRollback()

	err := s.repo.Update(s.ctx, tpl)
	assert.True(s.T(), apperrors.IsNotFound(err))
}

func (s *ChecklistRepoTestSuite) TestCountOpenInspections() {
	id := uuid.New()
	s.mock.ExpectQuery(`status IN \('Scheduled', 'InProgress', 'Overdue'\)`).
		WithArgs(s.tenantID, id).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(2))

	open, err := s.repo.CountOpenInspections(s.ctx, s.tenantID, id)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), 2, open)
}
