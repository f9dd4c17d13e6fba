package handlers

import (
	"context"
	"net/http"
	"runtime"
	"sort"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
)

// Pinger is a dependency the readiness check pings.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingFunc adapts a function to Pinger.
type PingFunc func(ctx context.Context) error

func (f PingFunc) Ping(ctx context.Context) error { return f(ctx) }

const healthCheckTimeout = 3 * time.Second

// HealthHandlers handles health check and monitoring endpoints
type HealthHandlers struct {
	checks    map[string]Pinger
	version   string
	startedAt time.Time
}

// NewHealthHandlers creates a new health handlers instance. checks maps a
// service name such as "database" to its check.
func NewHealthHandlers(checks map[string]Pinger, version string) *HealthHandlers {
	return &HealthHandlers{
		checks:    checks,
		version:   version,
		startedAt: time.Now(),
	}
}

// ServiceCheck is the outcome of one check
type ServiceCheck struct {
	Status    string `json:"status"`
	Message   string `json:"message,omitempty"`
	LatencyMS int64  `json:"latency_ms"`
}

// HealthStatus represents the overall health status
type HealthStatus struct {
	Status     string                  `json:"status"`
	Timestamp  string                  `json:"timestamp"`
	Version    string                  `json:"version"`
	Uptime     string                  `json:"uptime"`
	Goroutines int                     `json:"goroutines,omitempty"`
	Services   map[string]ServiceCheck `json:"services,omitempty"`
}

// LivenessCheck reports that the process is running
// @Summary Liveness check
// @Tags health
// @Produce json
// @Success 200 {object} HealthStatus
// @Router /health [get]
func (h *HealthHandlers) LivenessCheck(c echo.Context) error {
	return c.JSON(http.StatusOK, &HealthStatus{
		Status:    "alive",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Version:   h.version,
		Uptime:    time.Since(h.startedAt).Round(time.Second).String(),
	})
}

// ReadinessCheck pings every dependency
// @Summary Readiness check
// @Description Pings the database, Redis and object storage.
// @Tags health
// @Produce json
// @Success 200 {object} HealthStatus
// @Failure 503 {object} HealthStatus
// @Router /health/ready [get]
func (h *HealthHandlers) ReadinessCheck(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), healthCheckTimeout)
	defer cancel()

	services := h.runChecks(ctx)
	health := &HealthStatus{
		Status:     "ready",
		Timestamp:  time.Now().UTC().Format(time.RFC3339),
		Version:    h.version,
		Uptime:     time.Since(h.startedAt).Round(time.Second).String(),
		Goroutines: runtime.NumGoroutine(),
		Services:   services,
	}

	status := http.StatusOK
	for _, check := range services {
		if check.Status != "healthy" {
			health.Status = "not_ready"
			status = http.StatusServiceUnavailable
			break
		}
	}
	return c.JSON(status, health)
}

// runChecks pings every dependency concurrently.
func (h *HealthHandlers) runChecks(ctx context.Context) map[string]ServiceCheck {
	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	var (
		mu      sync.Mutex
		wg      sync.WaitGroup
		results = make(map[string]ServiceCheck, len(names))
	)
	for _, name := range names {
		wg.Add(1)
		go func(name string, p Pinger) {
			defer wg.Done()
			start := time.Now()
			check := ServiceCheck{Status: "healthy"}
			if err := p.Ping(ctx); err != nil {
				check.Status = "unhealthy"
				check.Message = err.Error()
			}
			check.LatencyMS = time.Since(start).Milliseconds()

			mu.Lock()
			results[name] = check
			mu.Unlock()
		}(name, h.checks[name])
	}
	wg.Wait()
	return results
}
