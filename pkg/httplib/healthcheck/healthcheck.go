package healthcheck

import (
	"context"
	"encoding/json"
	"net/http"
	"sort"
	"sync"
	"time"
)

// Checker reports whether a dependency is reachable.
type Checker func(ctx context.Context) error

// Status is the JSON body of GET /health.
type Status struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// HealthCheck is the health check handler.
type HealthCheck struct {
	mu       sync.RWMutex
	checkers map[string]Checker
	timeout  time.Duration
}

// New creates a HealthCheck that gives every checker at most timeout.
func New(timeout time.Duration) *HealthCheck {
	return &HealthCheck{
		checkers: make(map[string]Checker),
		timeout:  timeout,
	}
}

// Register adds a named dependency check.
func (hc *HealthCheck) Register(name string, checker Checker) {
	hc.mu.Lock()
	defer hc.mu.Unlock()
	hc.checkers[name] = checker
}

// Handler is used to control the flow of GET /health endpoint
func (hc *HealthCheck) Handler(h http.Handler) http.Handler {
	fn := func(w http.ResponseWriter, r *http.Request) {
		if IsHealthCheckRequest(r) {
			hc.ServeHTTP(w, r)

			return
		}

		h.ServeHTTP(w, r)
	}

	return http.HandlerFunc(fn)
}

// Check runs every checker and reports the aggregated status.
func (hc *HealthCheck) Check(ctx context.Context) Status {
	hc.mu.RLock()
	names := make([]string, 0, len(hc.checkers))
	for name := range hc.checkers {
		names = append(names, name)
	}
	sort.Strings(names)
	checkers := make([]Checker, len(names))
	for i, name := range names {
		checkers[i] = hc.checkers[name]
	}
	hc.mu.RUnlock()

	status := Status{Status: "ok"}
	if len(names) == 0 {
		return status
	}

	status.Checks = make(map[string]string, len(names))
	for i, name := range names {
		checkCtx := ctx
		var cancel context.CancelFunc
		if hc.timeout > 0 {
			checkCtx, cancel = context.WithTimeout(ctx, hc.timeout)
		}

		if err := checkers[i](checkCtx); err != nil {
			status.Status = "unavailable"
			status.Checks[name] = err.Error()
		} else {
			status.Checks[name] = "ok"
		}

		if cancel != nil {
			cancel()
		}
	}

	return status
}

// ServeHTTP serve http request for health check
func (hc *HealthCheck) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	status := hc.Check(r.Context())

	w.Header().Set("Content-Type", "application/json")
	if status.Status != "ok" {
		w.WriteHeader(http.StatusServiceUnavailable)
	} else {
		w.WriteHeader(http.StatusOK)
	}
	_ = json.NewEncoder(w).Encode(status)
}

// IsHealthCheckRequest is used to check if the request is a health check request
func IsHealthCheckRequest(r *http.Request) bool {
	return r.Method == "GET" && r.URL.Path == "/health"
}
