package testhelpers

import (
	"context"
	"os"
	"testing"

	"fireproof/pkg/database"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// TestDB holds the database connection for testing
type TestDB struct {
	Pool    *pgxpool.Pool
	Cleanup func()
}

// SetupTestDB connects to TEST_DATABASE_URL and applies the embedded
// migrations. The test is skipped when the variable is unset.
func SetupTestDB(t *testing.T) *TestDB {
	t.Helper()

	connString := os.Getenv("TEST_DATABASE_URL")
	if connString == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}
	if _, err := database.Migrate(ctx, pool); err != nil {
		pool.Close()
		t.Fatalf("Failed to migrate test database: %v", err)
	}

	db := &TestDB{Pool: pool, Cleanup: pool.Close}
	t.Cleanup(db.Cleanup)
	return db
}

// SetupTestTenant creates an active tenant with a unique slug
func SetupTestTenant(t *testing.T, db *TestDB) uuid.UUID {
	t.Helper()

	tenantID := uuid.New()
	query := `INSERT INTO tenants (id, name, slug) VALUES ($1, $2, $3)`
	_, err := db.Pool.Exec(context.Background(), query, tenantID, "Test Tenant", "test-"+tenantID.String()[:8])
	if err != nil {
		t.Fatalf("Failed to create test tenant: %v", err)
	}
	return tenantID
}

// SetupTestLocation creates a location in the tenant
func SetupTestLocation(t *testing.T, db *TestDB, tenantID uuid.UUID, code string) uuid.UUID {
	t.Helper()

	locationID := uuid.New()
	query := `INSERT INTO locations (id, tenant_id, code, name) VALUES ($1, $2, $3, $4)`
	_, err := db.Pool.Exec(context.Background(), query, locationID, tenantID, code, "Building "+code)
	if err != nil {
		t.Fatalf("Failed to create test location: %v", err)
	}
	return locationID
}

// SetupTestType creates a stored-pressure ABC extinguisher type in the tenant
func SetupTestType(t *testing.T, db *TestDB, tenantID uuid.UUID) uuid.UUID {
	t.Helper()

	typeID := uuid.New()
	query := `INSERT INTO extinguisher_types (id, tenant_id, code, name, agent_type, six_year_maintenance)
		VALUES ($1, $2, 'ABC-10', 'ABC dry chemical 10 lb', 'ABC', TRUE)`
	_, err := db.Pool.Exec(context.Background(), query, typeID, tenantID)
	if err != nil {
		t.Fatalf("Failed to create test extinguisher type: %v", err)
	}
	return typeID
}
