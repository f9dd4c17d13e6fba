package repositories

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListDueWithoutOpenInspection_IncludesNeverInspected(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	tenantID := uuid.New()
	dueBy := time.Date(2026, 5, 31, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery(`e\.status = 'Active'\s+AND \(e\.next_inspection_due IS NULL OR e\.next_inspection_due <= \$2\)`+
		`.*i\.status IN \('Scheduled', 'InProgress', 'Overdue'\).*ORDER BY e\.next_inspection_due NULLS FIRST`).
		WithArgs(tenantID, dueBy).
		WillReturnRows(pgxmock.NewRows([]string{"id"}))

	units, err := NewExtinguisherRepo(mock).ListDueWithoutOpenInspection(context.Background(), tenantID, dueBy)
	require.NoError(t, err)
	assert.Empty(t, units)
	assert.NoError(t, mock.ExpectationsWereMet())
}
