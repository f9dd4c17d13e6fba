package app

import (
	"context"
	"fmt"

	"fireproof/internal/analytics"
	"fireproof/internal/caching"
	"fireproof/internal/config"
	"fireproof/internal/jobs"
	"fireproof/internal/repositories"
	"fireproof/internal/services"
	"fireproof/internal/tamperproof"
	"fireproof/pkg/database"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jonboulle/clockwork"
	"github.com/redis/go-redis/v9"
)

// Repositories groups the data access layer.
type Repositories struct {
	Tenants       repositories.TenantRepository
	Users         repositories.UserRepository
	Roles         repositories.RoleRepository
	UserRoles     repositories.UserRoleRepository
	RolePerms     repositories.RolePermissionRepository
	Permissions   repositories.PermissionRepository
	Locations     repositories.LocationRepository
	Types         repositories.ExtinguisherTypeRepository
	Extinguishers repositories.ExtinguisherRepository
	Checklists    repositories.ChecklistRepository
	Inspections   repositories.InspectionRepository
	Deficiencies  repositories.DeficiencyRepository
	Photos        repositories.PhotoRepository
	ImportJobs    repositories.ImportJobRepository
	AuditLogs     repositories.AuditLogsRepository
	Dashboard     repositories.DashboardRepository
}

// Services groups the business layer.
type Services struct {
	Audit         services.AuditLogsService
	RBAC          services.RBACService
	Auth          services.AuthService
	Tenants       services.TenantService
	Users         services.UserService
	Locations     services.LocationService
	Types         services.ExtinguisherTypeService
	Extinguishers services.ExtinguisherService
	Checklists    services.ChecklistService
	Inspections   services.InspectionService
	Deficiencies  services.DeficiencyService
	Photos        services.PhotoService
	Reports       services.ReportService
	Analytics     *analytics.AnalyticsService
}

// Container holds every long lived dependency of the process.
type Container struct {
	Config      *config.Config
	Clock       clockwork.Clock
	Pool        *pgxpool.Pool
	Redis       *redis.Client
	Cache       caching.CacheService
	Idempotency caching.IdempotencyStore
	Storage     services.ObjectStorage
	Sealer      *tamperproof.Sealer
	Queue       *asynq.Client

	Repos    Repositories
	Services Services
	Importer *jobs.CSVImporter
	Exporter *jobs.CSVExporter
}

// RedisOpt returns the asynq connection settings for cfg.
func RedisOpt(cfg *config.Config) asynq.RedisClientOpt {
	return asynq.RedisClientOpt{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	}
}

// New connects to Postgres, Redis and object storage and wires the service graph.
func New(ctx context.Context, cfg *config.Config) (*Container, error) {
	pool, err := database.NewPool(ctx, cfg.DatabaseURL, database.PoolConfig{MaxConns: cfg.DBMaxConns})
	if err != nil {
		return nil, err
	}

	storage, err := services.NewMinioService(cfg.MinioEndpoint, cfg.MinioAccessKey, cfg.MinioSecretKey, cfg.MinioUseSSL, cfg.MinioBucket)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("init object storage: %w", err)
	}

	sealer, err := tamperproof.NewSealer(cfg.SigningKey)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("init signing key: %w", err)
	}

	rdb := caching.NewRedisClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	c := &Container{
		Config:      cfg,
		Clock:       clockwork.NewRealClock(),
		Pool:        pool,
		Redis:       rdb,
		Cache:       caching.NewRedisCacheService(rdb),
		Idempotency: caching.NewIdempotencyStore(rdb),
		Storage:     storage,
		Sealer:      sealer,
		Queue:       asynq.NewClient(RedisOpt(cfg)),
	}
	c.wire()
	return c, nil
}

func (c *Container) wire() {
	pool := c.Pool
	c.Repos = Repositories{
		Tenants:       repositories.NewTenantRepo(pool),
		Users:         repositories.NewUserRepo(pool),
		Roles:         repositories.NewRoleRepo(pool),
		UserRoles:     repositories.NewUserRoleRepo(pool),
		RolePerms:     repositories.NewRolePermissionRepo(pool),
		Permissions:   repositories.NewPermissionRepo(pool),
		Locations:     repositories.NewLocationRepo(pool),
		Types:         repositories.NewExtinguisherTypeRepo(pool),
		Extinguishers: repositories.NewExtinguisherRepo(pool),
		Checklists:    repositories.NewChecklistRepo(pool),
		Inspections:   repositories.NewInspectionRepo(pool),
		Deficiencies:  repositories.NewDeficiencyRepo(pool),
		Photos:        repositories.NewPhotoRepo(pool),
		ImportJobs:    repositories.NewImportJobRepo(pool),
		AuditLogs:     repositories.NewAuditLogsRepo(pool),
		Dashboard:     repositories.NewDashboardRepo(pool),
	}
	r := c.Repos
	cfg := c.Config

	audit := services.NewAuditLogsService(r.AuditLogs, c.Clock)
	rbac := services.NewRBACService(r.Roles, r.RolePerms, r.Permissions, c.Cache)
	inspections := services.NewInspectionService(r.Inspections, r.Extinguishers, r.Types, r.Checklists,
		r.Deficiencies, r.Photos, r.Users, c.Sealer, c.Cache, audit, c.Clock)
	locations := services.NewLocationService(r.Locations, audit)
	extinguishers := services.NewExtinguisherService(r.Extinguishers, r.Locations, r.Types, r.Inspections, c.Cache, audit)

	c.Services = Services{
		Audit: audit,
		RBAC:  rbac,
		Auth: services.NewAuthService(r.Users, r.Tenants, r.UserRoles, rbac, c.Cache, c.Clock, services.AuthConfig{
			Secret:     cfg.JWTSecret,
			Issuer:     cfg.JWTIssuer,
			AccessTTL:  cfg.AccessTokenTTL,
			RefreshTTL: cfg.RefreshTokenTTL,
		}),
		Tenants:       services.NewTenantService(r.Tenants, r.Users, r.UserRoles, rbac, audit, c.Cache),
		Users:         services.NewUserService(r.Users, r.Roles, r.UserRoles, rbac, audit),
		Locations:     locations,
		Types:         services.NewExtinguisherTypeService(r.Types, audit),
		Extinguishers: extinguishers,
		Checklists:    services.NewChecklistService(r.Checklists, audit),
		Inspections:   inspections,
		Deficiencies:  services.NewDeficiencyService(r.Deficiencies, r.Extinguishers, r.Inspections, r.Users, c.Cache, audit, c.Clock),
		Photos: services.NewPhotoService(r.Photos, r.Inspections, r.Deficiencies, c.Storage, audit, c.Clock, services.PhotoConfig{
			MaxBytes: cfg.PhotoMaxBytes,
			URLTTL:   cfg.PhotoURLTTL,
		}),
		Reports:   services.NewReportService(inspections, r.Extinguishers, r.Locations, r.Tenants, r.Checklists, r.Users),
		Analytics: analytics.NewAnalyticsService(r.Dashboard, r.Tenants, c.Cache, c.Clock),
	}

	c.Importer = jobs.NewCSVImporter(r.Locations, r.Extinguishers, r.Types, r.ImportJobs, locations, extinguishers, c.Queue, c.Clock)
	c.Exporter = jobs.NewCSVExporter(r.Extinguishers, r.Inspections, r.Deficiencies)
}

// Close releases connections in reverse order of acquisition.
func (c *Container) Close() {
	if c.Queue != nil {
		_ = c.Queue.Close()
	}
	if c.Redis != nil {
		_ = c.Redis.Close()
	}
	if c.Pool != nil {
		c.Pool.Close()
	}
}
