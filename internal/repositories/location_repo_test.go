package repositories

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"fireproof/internal/apperrors"
	"fireproof/internal/models"
)

type LocationRepoTestSuite struct {
	suite.Suite
	mock     pgxmock.PgxPoolIface
	repo     LocationRepository
	tenantID uuid.UUID
	ctx      context.Context
}

func (s *LocationRepoTestSuite) SetupTest() {
	mock, err := pgxmock.NewPool()
	require.NoError(s.T(), err)
	s.mock = mock
	s.repo = NewLocationRepo(mock)
	s.tenantID = uuid.New()
	s.ctx = context.Background()
}

func (s *LocationRepoTestSuite) TearDownTest() {
	assert.NoError(s.T(), s.mock.ExpectationsWereMet())
	s.mock.Close()
}

func TestLocationRepoTestSuite(t *testing.T) {
	suite.Run(t, new(LocationRepoTestSuite))
}

var locationCols = []string{"id", "tenant_id", "code", "name", "address_line1", "address_line2", "city", "state",
	"postal_code", "country", "latitude", "longitude", "contact_name", "contact_phone", "contact_email", "is_active",
	"created_at", "updated_at"}

func locationRow(id, tenantID uuid.UUID, code string, now time.Time) []any {
	var noStr *string
	var noFloat *float64
	return []any{id, tenantID, code, "Main Building", stringPtr("1 Main St"), noStr, stringPtr("Springfield"), noStr,
		noStr, noStr, noFloat, noFloat, noStr, noStr, noStr, true, now, now}
}

func (s *LocationRepoTestSuite) TestCreate_DuplicateCode() {
	loc := &models.Location{TenantID: s.tenantID, Code: "HQ", Name: "Headquarters", IsActive: true}

	args := append([]interface{}{pgxmock.AnyArg(), s.tenantID, "HQ", "Headquarters"}, anyArgs(11)...)
	s.mock.ExpectQuery(`INSERT INTO locations`).
		WithArgs(append(args, true)...).
		WillReturnError(&pgconn.PgError{Code: pgUniqueViolation})

	err := s.repo.Create(s.ctx, loc)
	assert.ErrorIs(s.T(), err, apperrors.ErrConflict)
	assert.NotEqual(s.T(), uuid.Nil, loc.ID)
}

func (s *LocationRepoTestSuite) TestGetByID_ScopedToTenant() {
	id := uuid.New()
	now := time.Now()
	s.mock.ExpectQuery(`FROM locations WHERE tenant_id = \$1 AND id = \$2 AND deleted_at IS NULL`).
		WithArgs(s.tenantID, id).
		WillReturnRows(pgxmock.NewRows(locationCols).AddRow(locationRow(id, s.tenantID, "HQ", now)...))

	loc, err := s.repo.GetByID(s.ctx, s.tenantID, id)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), "HQ", loc.Code)
	assert.Equal(s.T(), "Springfield", *loc.City)
	assert.Nil(s.T(), loc.State)
}

func (s *LocationRepoTestSuite) TestList_ReturnsTotal() {
	now := time.Now()
	cols := append(append([]string{}, locationCols...), "total")
	rows := pgxmock.NewRows(cols).
		AddRow(append(locationRow(uuid.New(), s.tenantID, "A1", now), 7)...).
		AddRow(append(locationRow(uuid.New(), s.tenantID, "A2", now), 7)...)

	s.mock.ExpectQuery(`ILIKE \$2 OR name ILIKE \$3`).
		WithArgs(s.tenantID, "%A%", "%A%", 2, 0).
		WillReturnRows(rows)

	items, total, err := s.repo.List(s.ctx, s.tenantID, models.LocationFilter{Search: "A", Limit: 2})
	require.NoError(s.T(), err)
	assert.Len(s.T(), items, 2)
	assert.Equal(s.T(), 7, total)
}

func (s *LocationRepoTestSuite) TestDelete_NotFound() {
	id := uuid.New()
	s.mock.ExpectExec(`UPDATE locations SET deleted_at = NOW\(\)`).
		WithArgs(s.tenantID, id).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := s.repo.Delete(s.ctx, s.tenantID, id)
	assert.True(s.T(), apperrors.IsNotFound(err))
}

func (s *LocationRepoTestSuite) TestCountActiveExtinguishers() {
	id := uuid.New()
	s.mock.ExpectQuery(`status <> 'Retired'`).
		WithArgs(s.tenantID, id).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(3))

	count, err := s.repo.CountActiveExtinguishers(s.ctx, s.tenantID, id)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), 3, count)
}
