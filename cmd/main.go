// @title FireProof API
// @version 1.0
// @description Multi-tenant fire extinguisher inspection and compliance API.
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/labstack/echo/v4"
	echoMiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	echoSwagger "github.com/swaggo/echo-swagger"

	_ "fireproof/docs"
	"fireproof/internal/app"
	"fireproof/internal/config"
	"fireproof/internal/handlers"
	"fireproof/internal/jobs"
	"fireproof/internal/jobs/background"
	"fireproof/internal/logger"
	"fireproof/internal/metrics"
	"fireproof/internal/middleware"
	"fireproof/pkg/database"
)

const version = "1.0.0"

const shutdownTimeout = 15 * time.Second

// routeRegistrar is implemented by every protected handler group.
type routeRegistrar interface {
	RegisterRoutes(g *echo.Group, rbac *middleware.RBACMiddleware)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.New().WithError(err).Fatal("Failed to load configuration")
	}
	logger.Setup(cfg.LogLevel, cfg.LogFormat, cfg.Environment)
	log := logger.New()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	container, err := app.New(ctx, cfg)
	if err != nil {
		log.WithError(err).Fatal("Failed to initialize dependencies")
	}
	defer container.Close()

	applied, err := database.Migrate(ctx, container.Pool)
	if err != nil {
		log.WithError(err).Fatal("Failed to apply migrations")
	}
	log.WithField("applied", applied).Info("Database migrations up to date")

	svc := container.Services
	if err := svc.RBAC.EnsurePermissions(ctx); err != nil {
		log.WithError(err).Fatal("Failed to seed permissions")
	}
	if err := container.Storage.EnsureBucketExists(ctx); err != nil {
		log.WithError(err).Warn("Object storage bucket unavailable, photo uploads will fail")
	}

	// In-process asynq worker for queued imports
	worker := asynq.NewServer(app.RedisOpt(cfg), asynq.Config{
		Concurrency: cfg.WorkerConcurrency,
		Logger:      log,
	})
	if err := worker.Start(jobs.NewServeMux(container.Importer)); err != nil {
		log.WithError(err).Fatal("Failed to start task worker")
	}

	var (
		scheduler *background.JobScheduler
		jobRunner handlers.JobRunner
	)
	if cfg.SchedulerEnabled {
		scheduler, err = background.NewJobScheduler(svc.Analytics, svc.Inspections, svc.Deficiencies,
			container.Repos.Inspections, container.Repos.Tenants, container.Clock, cfg.InspectionLookaheadDays)
		if err != nil {
			log.WithError(err).Fatal("Failed to create job scheduler")
		}
		scheduler.Start()
		jobRunner = scheduler
	}

	jwtConfig := middleware.JWTConfig{
		AuthService: svc.Auth,
		UserRepo:    container.Repos.Users,
		TenantRepo:  container.Repos.Tenants,
		Issuer:      cfg.JWTIssuer,
	}
	if cfg.JWKSURL != "" {
		jwks, err := middleware.NewJWKS(cfg.JWKSURL)
		if err != nil {
			log.WithError(err).Fatal("Failed to load identity provider keys")
		}
		defer jwks.EndBackground()
		jwtConfig.JWKS = jwks
	}

	e := echo.New()
	e.HideBanner = true
	e.HTTPErrorHandler = middleware.HTTPErrorHandler
	e.Validator = middleware.NewRequestValidator()

	httpMetrics := metrics.NewHTTPMetrics(prometheus.DefaultRegisterer)

	// Global middleware
	e.Pre(echoMiddleware.RemoveTrailingSlash())
	e.Use(echoMiddleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(middleware.RequestLogger())
	e.Use(echoMiddleware.CORSWithConfig(echoMiddleware.CORSConfig{
		AllowOrigins: cfg.AllowedOrigins,
		AllowHeaders: []string{
			echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization,
			middleware.IdempotencyKeyHeader, middleware.TenantOverrideHeader,
		},
		ExposeHeaders: []string{echo.HeaderXRequestID, middleware.IdempotentReplayHeader, "X-API-Version"},
	}))
	e.Use(httpMetrics.Middleware())

	// Health endpoints (no auth required)
	healthHandlers := handlers.NewHealthHandlers(map[string]handlers.Pinger{
		"database":       container.Pool,
		"redis":          handlers.PingFunc(container.Cache.Ping),
		"object_storage": handlers.PingFunc(container.Storage.Ping),
	}, version)
	e.GET("/health", healthHandlers.LivenessCheck)
	e.GET("/health/ready", healthHandlers.ReadinessCheck)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	if !cfg.IsProduction() {
		e.GET("/swagger/*", echoSwagger.WrapHandler)
	}

	// API routes
	versionMiddleware := middleware.NewVersionMiddleware()
	e.GET("/versions", versionMiddleware.ListVersions)
	v1 := versionMiddleware.VersionRoute(e, "v1")

	authHandlers := handlers.NewAuthHandlers(svc.Auth)
	authHandlers.RegisterPublicRoutes(v1)

	// Protected routes (require JWT and RBAC)
	auditMiddleware := middleware.NewAuditMiddleware(svc.Audit)
	protected := v1.Group("")
	protected.Use(middleware.JWTMiddleware(jwtConfig))
	protected.Use(middleware.Idempotency(container.Idempotency))
	protected.Use(auditMiddleware.AuditRequest(middleware.AuditLow))

	rbacMiddleware := middleware.NewRBACMiddleware(svc.RBAC)
	for _, h := range []routeRegistrar{
		authHandlers,
		handlers.NewTenantHandlers(svc.Tenants),
		handlers.NewUserHandlers(svc.Users, svc.RBAC),
		handlers.NewLocationHandlers(svc.Locations, svc.Extinguishers),
		handlers.NewExtinguisherTypeHandlers(svc.Types),
		handlers.NewExtinguisherHandlers(svc.Extinguishers),
		handlers.NewChecklistHandlers(svc.Checklists),
		handlers.NewInspectionHandlers(svc.Inspections, svc.Reports, cfg.InspectionLookaheadDays),
		handlers.NewDeficiencyHandlers(svc.Deficiencies),
		handlers.NewPhotoHandlers(svc.Photos, cfg.PhotoMaxBytes),
		handlers.NewJobHandlers(container.Importer, container.Exporter),
		handlers.NewDashboardHandlers(svc.Analytics),
		handlers.NewAuditLogsHandlers(svc.Audit),
		handlers.NewAdminHandlers(jobRunner),
	} {
		h.RegisterRoutes(protected, rbacMiddleware)
	}

	go func() {
		log.WithFields(map[string]interface{}{
			"version": version,
			"port":    cfg.Port,
			"env":     cfg.Environment,
		}).Info("FireProof server starting")
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("Server stopped unexpectedly")
		}
	}()

	<-ctx.Done()
	log.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if scheduler != nil {
		if err := scheduler.Stop(); err != nil {
			log.WithError(err).Warn("Scheduler shutdown failed")
		}
	}
	worker.Shutdown()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("HTTP server shutdown failed")
	}
}
