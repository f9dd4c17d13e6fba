package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "fireproof"

// Domain metrics
var (
	// InspectionsCompleted counts finalized inspections by overall result
	InspectionsCompleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "inspections_completed_total",
			Help:      "Completed inspections by overall result",
		},
		[]string{"result"},
	)

	// DeficienciesOpened counts new deficiencies by severity
	DeficienciesOpened = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "deficiencies_opened_total",
			Help:      "Deficiencies opened by severity",
		},
		[]string{"severity"},
	)

	PhotosUploaded = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "photos_uploaded_total",
			Help:      "Photos stored in object storage",
		},
	)

	// ImportRows counts processed CSV rows by kind and outcome (created, updated, failed)
	ImportRows = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "import_rows_total",
			Help:      "CSV import rows by kind and outcome",
		},
		[]string{"kind", "outcome"},
	)

	// JobRuns counts scheduler job executions by job and outcome
	JobRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "scheduler_job_runs_total",
			Help:      "Scheduler job runs by job and outcome",
		},
		[]string{"job", "outcome"},
	)

	OverdueDeficiencies = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "deficiencies_overdue",
			Help:      "Open deficiencies past their due date at the last escalation run",
		},
	)

	// HTTPErrors counts rendered error responses by error code
	HTTPErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_errors_total",
			Help:      "Error responses by error code",
		},
		[]string{"code"},
	)
)
