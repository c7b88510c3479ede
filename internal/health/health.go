// Package health exposes liveness and readiness probes over the components
// that can actually fail at runtime: the storage engine and the alert
// scheduler.
package health

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"
)

// Status represents the health status
type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusUnhealthy Status = "unhealthy"
)

// ComponentHealth represents the health of a single component
type ComponentHealth struct {
	Status      Status    `json:"status"`
	Message     string    `json:"message,omitempty"`
	LastChecked time.Time `json:"last_checked"`
}

// Check probes one component.
type Check func(ctx context.Context) ComponentHealth

// Checker runs registered component checks on demand.
type Checker struct {
	mu      sync.RWMutex
	checks  map[string]Check
	timeout time.Duration
}

// NewChecker creates a checker; a zero timeout defaults to 5s per check.
func NewChecker(timeout time.Duration) *Checker {
	if timeout == 0 {
		timeout = 5 * time.Second
	}
	return &Checker{
		checks:  make(map[string]Check),
		timeout: timeout,
	}
}

// Register adds a component check under name, replacing any previous one.
func (c *Checker) Register(name string, check Check) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.checks[name] = check
}

// Check runs every registered probe and returns the per-component results.
func (c *Checker) Check(ctx context.Context) map[string]ComponentHealth {
	c.mu.RLock()
	checks := make(map[string]Check, len(c.checks))
	for name, check := range c.checks {
		checks[name] = check
	}
	c.mu.RUnlock()

	var (
		wg      sync.WaitGroup
		resMu   sync.Mutex
		results = make(map[string]ComponentHealth, len(checks))
	)
	for name, check := range checks {
		wg.Add(1)
		go func(name string, check Check) {
			defer wg.Done()
			cctx, cancel := context.WithTimeout(ctx, c.timeout)
			defer cancel()

			result := check(cctx)
			result.LastChecked = time.Now()

			resMu.Lock()
			results[name] = result
			resMu.Unlock()
		}(name, check)
	}
	wg.Wait()
	return results
}

// Overall folds per-component results into a single status. No registered
// checks counts as healthy.
func Overall(results map[string]ComponentHealth) Status {
	for _, result := range results {
		if result.Status == StatusUnhealthy {
			return StatusUnhealthy
		}
	}
	return StatusHealthy
}

// Response is the readiness payload.
type Response struct {
	Status     Status                     `json:"status"`
	Components map[string]ComponentHealth `json:"components"`
	Timestamp  time.Time                  `json:"timestamp"`
}

// LivenessHandler reports that the process is up. It never probes
// dependencies.
func (c *Checker) LivenessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"status": "alive"})
	}
}

// ReadinessHandler runs all checks and returns 503 when any component is
// unhealthy.
func (c *Checker) ReadinessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		results := c.Check(r.Context())
		overall := Overall(results)

		code := http.StatusOK
		if overall == StatusUnhealthy {
			code = http.StatusServiceUnavailable
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		json.NewEncoder(w).Encode(Response{
			Status:     overall,
			Components: results,
			Timestamp:  time.Now(),
		})
	}
}

// Pinger is anything with a context-aware ping, such as the SQLite store.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingCheck probes a dependency through its Ping method.
func PingCheck(p Pinger) Check {
	return func(ctx context.Context) ComponentHealth {
		if err := p.Ping(ctx); err != nil {
			return ComponentHealth{Status: StatusUnhealthy, Message: err.Error()}
		}
		return ComponentHealth{Status: StatusHealthy}
	}
}

// Heartbeat tracks the last time a background loop reported progress.
type Heartbeat struct {
	mu   sync.Mutex
	last time.Time
}

func NewHeartbeat() *Heartbeat {
	return &Heartbeat{last: time.Now()}
}

// Beat records progress; the owning loop calls it once per iteration.
func (h *Heartbeat) Beat() {
	h.mu.Lock()
	h.last = time.Now()
	h.mu.Unlock()
}

// Check reports unhealthy once the last beat is older than maxAge.
func (h *Heartbeat) Check(maxAge time.Duration) Check {
	return func(ctx context.Context) ComponentHealth {
		h.mu.Lock()
		age := time.Since(h.last)
		h.mu.Unlock()
		if age > maxAge {
			return ComponentHealth{
				Status:  StatusUnhealthy,
				Message: "no progress for " + age.Truncate(time.Second).String(),
			}
		}
		return ComponentHealth{Status: StatusHealthy}
	}
}
