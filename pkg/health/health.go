// Package health provides liveness and readiness checks with HTTP handlers.
package health

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/zavatech/agent-concierge/pkg/logger"
)

// Check represents a single health check that can succeed or fail.
type Check interface {
	// Name returns the human-readable name of this check
	Name() string

	// Check performs the health check.
	// Returns nil if healthy, error if unhealthy.
	Check(ctx context.Context) error
}

// CheckFunc is a function adapter that allows simple functions to be used as checks.
type CheckFunc struct {
	name string
	fn   func(context.Context) error
}

// NewCheckFunc creates a new CheckFunc with the given name and function.
func NewCheckFunc(name string, fn func(context.Context) error) *CheckFunc {
	return &CheckFunc{name: name, fn: fn}
}

// Name returns the name of this check.
func (c *CheckFunc) Name() string { return c.name }

// Check executes the check function.
func (c *CheckFunc) Check(ctx context.Context) error { return c.fn(ctx) }

// CheckResult represents the result of a single health check execution.
type CheckResult struct {
	Name    string
	Healthy bool
	Error   string
	Latency time.Duration
}

// Status represents the overall health status.
type Status struct {
	Healthy bool
	Checks  []CheckResult
}

// Checker manages and executes health checks for liveness and readiness probes.
type Checker struct {
	livenessChecks  []Check
	readinessChecks []Check
	timeout         time.Duration
	logger          logger.Logger
	mu              sync.RWMutex
}

// Option is a functional option for configuring Checker.
type Option func(*Checker)

// WithTimeout sets the timeout for individual health checks.
// Default is 5 seconds.
func WithTimeout(d time.Duration) Option {
	return func(h *Checker) {
		h.timeout = d
	}
}

// WithLogger sets the logger for health check operations.
func WithLogger(l logger.Logger) Option {
	return func(h *Checker) {
		h.logger = l
	}
}

// New creates a new Checker with the given options.
func New(opts ...Option) *Checker {
	h := &Checker{
		timeout: 5 * time.Second,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// AddLivenessCheck adds a liveness check.
// Liveness checks determine if the process should be restarted.
func (h *Checker) AddLivenessCheck(check Check) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.livenessChecks = append(h.livenessChecks, check)
}

// AddReadinessCheck adds a readiness check.
// Readiness checks determine if the service can handle requests.
func (h *Checker) AddReadinessCheck(check Check) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.readinessChecks = append(h.readinessChecks, check)
}

// CheckLiveness executes all liveness checks.
func (h *Checker) CheckLiveness(ctx context.Context) (*Status, error) {
	h.mu.RLock()
	checks := h.livenessChecks
	h.mu.RUnlock()
	return h.executeChecks(ctx, checks)
}

// CheckReadiness executes all readiness checks.
func (h *Checker) CheckReadiness(ctx context.Context) (*Status, error) {
	h.mu.RLock()
	checks := h.readinessChecks
	h.mu.RUnlock()
	return h.executeChecks(ctx, checks)
}

func (h *Checker) executeChecks(ctx context.Context, checks []Check) (*Status, error) {
	if len(checks) == 0 {
		// No checks configured - assume healthy
		return &Status{Healthy: true, Checks: []CheckResult{}}, nil
	}

	results := make([]CheckResult, len(checks))
	var wg sync.WaitGroup
	for i, check := range checks {
		wg.Add(1)
		go func(idx int, chk Check) {
			defer wg.Done()
			results[idx] = h.executeCheck(ctx, chk)
		}(i, check)
	}
	wg.Wait()

	status := &Status{Healthy: true, Checks: results}
	var failed []string
	for _, result := range results {
		if !result.Healthy {
			status.Healthy = false
			failed = append(failed, result.Name)
		}
	}

	if !status.Healthy {
		return status, fmt.Errorf("health checks failed: %v", failed)
	}
	return status, nil
}

func (h *Checker) executeCheck(parentCtx context.Context, check Check) CheckResult {
	ctx, cancel := context.WithTimeout(parentCtx, h.timeout)
	defer cancel()

	start := time.Now()
	err := check.Check(ctx)

	result := CheckResult{
		Name:    check.Name(),
		Healthy: err == nil,
		Latency: time.Since(start),
	}
	if err != nil {
		result.Error = err.Error()
		if h.logger != nil {
			h.logger.Warn("Health check failed",
				logger.StringField("check", check.Name()),
				logger.ErrorField(err))
		}
	}
	return result
}

// Response represents the JSON response structure for HTTP health endpoints.
type Response struct {
	Status  string                 `json:"status"`            // "healthy" | "unhealthy"
	Checks  map[string]CheckStatus `json:"checks,omitempty"`  // check name -> status
	Message string                 `json:"message,omitempty"` // optional message
}

// CheckStatus represents the status of an individual check in the HTTP response.
type CheckStatus struct {
	Status  string `json:"status"`            // "ok" | "error"
	Error   string `json:"error,omitempty"`   // error message if status is "error"
	Latency string `json:"latency,omitempty"` // latency in human-readable format
}

// LivenessHandler returns an HTTP handler for liveness checks.
// Returns 200 OK if the process is alive, 503 Service Unavailable otherwise.
func (h *Checker) LivenessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status, err := h.CheckLiveness(r.Context())
		h.writeResponse(w, status, err)
	}
}

// ReadinessHandler returns an HTTP handler for readiness checks.
// Returns 200 OK if the service is ready for traffic, 503 Service Unavailable otherwise.
func (h *Checker) ReadinessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status, err := h.CheckReadiness(r.Context())
		h.writeResponse(w, status, err)
	}
}

func (h *Checker) writeResponse(w http.ResponseWriter, status *Status, err error) {
	w.Header().Set("Content-Type", "application/json")

	response := Response{Checks: make(map[string]CheckStatus)}
	if status.Healthy {
		response.Status = "healthy"
		w.WriteHeader(http.StatusOK)
	} else {
		response.Status = "unhealthy"
		w.WriteHeader(http.StatusServiceUnavailable)
		if err != nil {
			response.Message = err.Error()
		}
	}

	for _, checkResult := range status.Checks {
		checkStatus := CheckStatus{Latency: checkResult.Latency.String()}
		if checkResult.Healthy {
			checkStatus.Status = "ok"
		} else {
			checkStatus.Status = "error"
			checkStatus.Error = checkResult.Error
		}
		response.Checks[checkResult.Name] = checkStatus
	}

	if encodeErr := json.NewEncoder(w).Encode(response); encodeErr != nil {
		if h.logger != nil {
			h.logger.Error("Failed to encode health response", logger.ErrorField(encodeErr))
		}
	}
}
