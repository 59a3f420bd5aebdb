package http

import (
	"context"
	"net/http"
	"time"
)

const readyTimeout = 3 * time.Second

// HealthCheck probes one dependency for the readiness endpoint.
type HealthCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

type healthStatus struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// Live handles GET /health
func (h *Handlers) Live(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, healthStatus{Status: "ok"})
}

// Ready handles GET /health/ready. Every registered check must pass.
func (h *Handlers) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
	defer cancel()

	status := healthStatus{Status: "ok", Checks: make(map[string]string, len(h.Health))}
	code := http.StatusOK
	for _, c := range h.Health {
		if err := c.Check(ctx); err != nil {
			status.Checks[c.Name] = err.Error()
			status.Status = "degraded"
			code = http.StatusServiceUnavailable
			continue
		}
		status.Checks[c.Name] = "ok"
	}
	writeJSON(w, code, status)
}
