package observability

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"runtime"
	"sync"
	"time"
)

var errEmptyStore = errors.New("log store is empty")

// Status is the outcome of a health evaluation.
type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusDegraded  Status = "degraded"
	StatusUnhealthy Status = "unhealthy"
)

// Check is one named health probe. A failing critical check marks the whole
// service unhealthy; a failing non-critical one only degrades it.
type Check struct {
	Name     string
	Probe    func(context.Context) error
	Timeout  time.Duration
	Critical bool
}

// Checker evaluates registered checks on demand.
type Checker struct {
	mu      sync.RWMutex
	checks  []*Check
	started time.Time
}

// NewChecker creates an empty checker.
func NewChecker() *Checker {
	return &Checker{started: time.Now()}
}

// Register adds a check. A zero timeout defaults to 5s.
func (c *Checker) Register(check *Check) {
	if check.Timeout == 0 {
		check.Timeout = 5 * time.Second
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.checks = append(c.checks, check)
}

// Report is the full health document served on /health.
type Report struct {
	Status  Status                 `json:"status"`
	Uptime  string                 `json:"uptime"`
	Checks  map[string]CheckResult `json:"checks"`
	Runtime RuntimeInfo            `json:"runtime"`
}

// CheckResult is the outcome of one check run.
type CheckResult struct {
	Status   Status `json:"status"`
	Message  string `json:"message,omitempty"`
	Duration string `json:"duration"`
}

// RuntimeInfo carries process-level diagnostics.
type RuntimeInfo struct {
	Goroutines int    `json:"goroutines"`
	MemAllocMB uint64 `json:"mem_alloc_mb"`
}

// Evaluate runs every registered check and folds the results into a Report.
func (c *Checker) Evaluate(ctx context.Context) Report {
	c.mu.RLock()
	checks := make([]*Check, len(c.checks))
	copy(checks, c.checks)
	started := c.started
	c.mu.RUnlock()

	results := make(map[string]CheckResult, len(checks))
	overall := StatusHealthy
	for _, check := range checks {
		res := runCheck(ctx, check)
		results[check.Name] = res
		switch {
		case res.Status == StatusUnhealthy:
			overall = StatusUnhealthy
		case res.Status == StatusDegraded && overall == StatusHealthy:
			overall = StatusDegraded
		}
	}

	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	return Report{
		Status: overall,
		Uptime: time.Since(started).Round(time.Second).String(),
		Checks: results,
		Runtime: RuntimeInfo{
			Goroutines: runtime.NumGoroutine(),
			MemAllocMB: m.Alloc / 1024 / 1024,
		},
	}
}

// runCheck runs one probe under its timeout. The probe runs in its own
// goroutine so a stuck probe cannot hang the whole report past its deadline.
func runCheck(ctx context.Context, check *Check) CheckResult {
	start := time.Now()
	probeCtx, cancel := context.WithTimeout(ctx, check.Timeout)
	defer cancel()

	errCh := make(chan error, 1)
	go func() {
		errCh <- check.Probe(probeCtx)
	}()

	var err error
	select {
	case err = <-errCh:
	case <-probeCtx.Done():
		err = probeCtx.Err()
	}

	res := CheckResult{Duration: time.Since(start).String()}
	switch {
	case err == nil:
		res.Status = StatusHealthy
	case check.Critical:
		res.Status = StatusUnhealthy
		res.Message = err.Error()
	default:
		res.Status = StatusDegraded
		res.Message = err.Error()
	}
	return res
}

// Handler serves the full report. Unhealthy maps to 503, degraded stays 200.
func (c *Checker) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		report := c.Evaluate(r.Context())

		w.Header().Set("Content-Type", "application/json")
		if report.Status == StatusUnhealthy {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		_ = json.NewEncoder(w).Encode(report)
	}
}

// LivenessHandler answers the kubelet-style liveness probe.
func (c *Checker) LivenessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "alive"})
	}
}

// ReadinessHandler reports ready only while fully healthy.
func (c *Checker) ReadinessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		report := c.Evaluate(r.Context())

		w.Header().Set("Content-Type", "application/json")
		status := "ready"
		if report.Status != StatusHealthy {
			w.WriteHeader(http.StatusServiceUnavailable)
			status = "not ready"
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"status": status})
	}
}

// PingCheck always succeeds; it proves the checker itself is serving.
func PingCheck() *Check {
	return &Check{
		Name:     "ping",
		Probe:    func(ctx context.Context) error { return nil },
		Timeout:  time.Second,
		Critical: false,
	}
}

// LogStoreCheck verifies the log dataset was loaded with at least one record.
func LogStoreCheck(sizeFunc func() int) *Check {
	return &Check{
		Name: "logstore",
		Probe: func(ctx context.Context) error {
			if sizeFunc() == 0 {
				return errEmptyStore
			}
			return nil
		},
		Timeout:  time.Second,
		Critical: true,
	}
}

// AgentCheck probes the conversation session. The probe should acquire the
// session lock so a wedged agent call surfaces here as a timeout.
func AgentCheck(probe func(context.Context) error) *Check {
	return &Check{
		Name:     "agent",
		Probe:    probe,
		Timeout:  10 * time.Second,
		Critical: false,
	}
}
