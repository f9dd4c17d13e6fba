package background

import (
	"context"
	"fmt"
	"sync"
	"time"

	"fireproof/internal/analytics"
	"fireproof/internal/logger"
	"fireproof/internal/metrics"
	"fireproof/internal/repositories"
	"fireproof/internal/services"

	"github.com/go-co-op/gocron/v2"
	"github.com/jonboulle/clockwork"
)

// Job names
const (
	JobMarkOverdue      = "mark-overdue-inspections"
	JobScheduleDue      = "schedule-due-inspections"
	JobRefreshDashboard = "refresh-dashboard-stats"
	JobEscalation       = "deficiency-escalation"
)

// jobTimeout bounds a single run of any job.
const jobTimeout = 10 * time.Minute

// JobScheduler runs the periodic maintenance jobs
type JobScheduler struct {
	scheduler      gocron.Scheduler
	analyticsSvc   *analytics.AnalyticsService
	inspectionSvc  services.InspectionService
	deficiencySvc  services.DeficiencyService
	inspectionRepo repositories.InspectionRepository
	tenantRepo     repositories.TenantRepository
	clock          clockwork.Clock
	lookaheadDays  int
	jobs           map[string]gocron.Job
	mu             sync.RWMutex
}

// NewJobScheduler creates the scheduler and registers every job
func NewJobScheduler(
	analyticsSvc *analytics.AnalyticsService,
	inspectionSvc services.InspectionService,
	deficiencySvc services.DeficiencyService,
	inspectionRepo repositories.InspectionRepository,
	tenantRepo repositories.TenantRepository,
	clock clockwork.Clock,
	lookaheadDays int,
) (*JobScheduler, error) {
	scheduler, err := gocron.NewScheduler(
		gocron.WithClock(clock),
		gocron.WithLocation(time.UTC),
	)
	if err != nil {
		return nil, fmt.Errorf("create scheduler: %w", err)
	}

	js := &JobScheduler{
		scheduler:      scheduler,
		analyticsSvc:   analyticsSvc,
		inspectionSvc:  inspectionSvc,
		deficiencySvc:  deficiencySvc,
		inspectionRepo: inspectionRepo,
		tenantRepo:     tenantRepo,
		clock:          clock,
		lookaheadDays:  lookaheadDays,
		jobs:           make(map[string]gocron.Job),
	}

	if err := js.registerJobs(); err != nil {
		_ = scheduler.Shutdown()
		return nil, err
	}
	return js, nil
}

// Start starts the job scheduler
func (js *JobScheduler) Start() {
	logger.New().WithField("jobs", len(js.jobs)).Info("Starting background job scheduler")
	js.scheduler.Start()
}

// Stop waits for running jobs and stops the scheduler
func (js *JobScheduler) Stop() error {
	logger.New().Info("Stopping background job scheduler")
	return js.scheduler.Shutdown()
}

func (js *JobScheduler) registerJobs() error {
	definitions := []struct {
		name string
		def  gocron.JobDefinition
		fn   func(context.Context) error
	}{
		{JobMarkOverdue, gocron.DurationJob(time.Hour), js.MarkOverdue},
		{JobScheduleDue, gocron.DailyJob(1, gocron.NewAtTimes(gocron.NewAtTime(2, 0, 0))), js.ScheduleDue},
		{JobRefreshDashboard, gocron.DurationJob(10 * time.Minute), js.RefreshDashboard},
		{JobEscalation, gocron.DailyJob(1, gocron.NewAtTimes(gocron.NewAtTime(6, 0, 0))), js.EscalateDeficiencies},
	}

	for _, d := range definitions {
		job, err := js.scheduler.NewJob(
			d.def,
			gocron.NewTask(js.run, d.name, d.fn),
			gocron.WithName(d.name),
			gocron.WithSingletonMode(gocron.LimitModeReschedule),
		)
		if err != nil {
			return fmt.Errorf("register job %s: %w", d.name, err)
		}
		js.jobs[d.name] = job
	}
	return nil
}

// run executes one job with a timeout and records its outcome
func (js *JobScheduler) run(name string, fn func(context.Context) error) {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	start := js.clock.Now()
	log := logger.New().WithField("job", name)
	if err := fn(ctx); err != nil {
		metrics.JobRuns.WithLabelValues(name, "failure").Inc()
		log.WithError(err).Error("Background job failed")
		return
	}
	metrics.JobRuns.WithLabelValues(name, "success").Inc()
	log.WithField("duration", js.clock.Since(start).String()).Info("Background job completed")
}

// MarkOverdue flips past-due Scheduled inspections to Overdue for all tenants
func (js *JobScheduler) MarkOverdue(ctx context.Context) error {
	n, err := js.inspectionRepo.MarkOverdue(ctx, js.clock.Now().UTC())
	if err != nil {
		return err
	}
	if n > 0 {
		logger.New().WithField("count", n).Info("Marked inspections overdue")
	}
	return nil
}

// ScheduleDue creates due Monthly inspections for every active tenant.
// A failing tenant is logged and skipped.
func (js *JobScheduler) ScheduleDue(ctx context.Context) error {
	ids, err := js.tenantRepo.ListActiveIDs(ctx)
	if err != nil {
		return err
	}

	failed := 0
	for _, tenantID := range ids {
		if _, err := js.inspectionSvc.ScheduleDue(ctx, tenantID, js.lookaheadDays); err != nil {
			failed++
			logger.New().WithError(err).WithField("tenant_id", tenantID).Warn("Failed to schedule due inspections")
		}
	}
	if failed > 0 && failed == len(ids) {
		return fmt.Errorf("scheduling failed for all %d tenants", failed)
	}
	return nil
}

// RefreshDashboard recomputes cached dashboard stats
func (js *JobScheduler) RefreshDashboard(ctx context.Context) error {
	_, err := js.analyticsSvc.RefreshAll(ctx)
	return err
}

// EscalateDeficiencies logs and counts overdue open deficiencies
func (js *JobScheduler) EscalateDeficiencies(ctx context.Context) error {
	_, err := js.deficiencySvc.Escalate(ctx)
	return err
}

// RunNow triggers a registered job outside its schedule
func (js *JobScheduler) RunNow(name string) error {
	js.mu.RLock()
	job, ok := js.jobs[name]
	js.mu.RUnlock()
	if !ok {
		return fmt.Errorf("unknown job %s", name)
	}
	return job.RunNow()
}

// GetJobStatus returns information about scheduled jobs
func (js *JobScheduler) GetJobStatus() map[string]interface{} {
	js.mu.RLock()
	defer js.mu.RUnlock()

	jobs := make([]map[string]interface{}, 0, len(js.jobs))
	for name, job := range js.jobs {
		entry := map[string]interface{}{"name": name}
		if next, err := job.NextRun(); err == nil {
			entry["next_run"] = next
		}
		if last, err := job.LastRun(); err == nil && !last.IsZero() {
			entry["last_run"] = last
		}
		jobs = append(jobs, entry)
	}

	return map[string]interface{}{
		"total_jobs": len(js.jobs),
		"jobs":       jobs,
	}
}
