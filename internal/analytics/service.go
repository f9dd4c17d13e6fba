package analytics

import (
	"context"
	"time"

	"fireproof/internal/caching"
	"fireproof/internal/common"
	"fireproof/internal/logger"
	"fireproof/internal/models"
	"fireproof/internal/repositories"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
)

// StatsCacheTTL is how long dashboard stats are served from Redis.
const StatsCacheTTL = 10 * time.Minute

// AnalyticsService computes and caches the tenant dashboard
type AnalyticsService struct {
	dashboardRepo repositories.DashboardRepository
	tenantRepo    repositories.TenantRepository
	cacheService  caching.CacheService
	clock         clockwork.Clock
}

func NewAnalyticsService(dashboardRepo repositories.DashboardRepository, tenantRepo repositories.TenantRepository, cacheService caching.CacheService, clock clockwork.Clock) *AnalyticsService {
	return &AnalyticsService{
		dashboardRepo: dashboardRepo,
		tenantRepo:    tenantRepo,
		cacheService:  cacheService,
		clock:         clock,
	}
}

// DashboardStats returns the cached stats for a tenant, computing them on a miss.
func (a *AnalyticsService) DashboardStats(ctx context.Context, tenantID uuid.UUID) (*models.DashboardStats, error) {
	cached, err := a.cacheService.GetDashboardStats(ctx, tenantID)
	if err != nil {
		logger.FromContext(ctx).WithError(err).Warn("Dashboard cache read failed")
	} else if cached != nil {
		return cached, nil
	}
	return a.CalculateTenantStats(ctx, tenantID)
}

// CalculateTenantStats recomputes the stats and stores them in the cache.
func (a *AnalyticsService) CalculateTenantStats(ctx context.Context, tenantID uuid.UUID) (*models.DashboardStats, error) {
	now := a.clock.Now().UTC()
	stats, err := a.dashboardRepo.Stats(ctx, tenantID, common.TruncateToDate(now))
	if err != nil {
		return nil, err
	}
	stats.GeneratedAt = now

	if err := a.cacheService.SetDashboardStats(ctx, tenantID, stats, StatsCacheTTL); err != nil {
		logger.FromContext(ctx).WithError(err).Warn("Dashboard cache write failed")
	}
	return stats, nil
}

// Compliance returns per-location compliance, optionally narrowed to one location.
func (a *AnalyticsService) Compliance(ctx context.Context, tenantID uuid.UUID, locationID *uuid.UUID) ([]models.LocationCompliance, error) {
	items, err := a.dashboardRepo.Compliance(ctx, tenantID, common.TruncateToDate(a.clock.Now()))
	if err != nil {
		return nil, err
	}
	if locationID == nil {
		return items, nil
	}
	for _, lc := range items {
		if lc.LocationID == *locationID {
			return []models.LocationCompliance{lc}, nil
		}
	}
	return []models.LocationCompliance{}, nil
}

// RefreshAll invalidates and recomputes the stats of every active tenant.
// Failures for one tenant are logged and do not stop the others.
func (a *AnalyticsService) RefreshAll(ctx context.Context) (int, error) {
	ids, err := a.tenantRepo.ListActiveIDs(ctx)
	if err != nil {
		return 0, err
	}

	refreshed := 0
	for _, tenantID := range ids {
		if err := a.InvalidateTenantStats(ctx, tenantID); err != nil {
			logger.FromContext(ctx).WithError(err).WithField("tenant_id", tenantID).Warn("Failed to invalidate dashboard stats")
		}
		if _, err := a.CalculateTenantStats(ctx, tenantID); err != nil {
			logger.FromContext(ctx).WithError(err).WithField("tenant_id", tenantID).Error("Failed to refresh dashboard stats")
			continue
		}
		refreshed++
	}
	return refreshed, nil
}

// InvalidateTenantStats drops the cached dashboard stats of a tenant
func (a *AnalyticsService) InvalidateTenantStats(ctx context.Context, tenantID uuid.UUID) error {
	return a.cacheService.DeleteDashboardStats(ctx, tenantID)
}
