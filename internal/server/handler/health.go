package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"
)

// checkTimeout bounds each dependency check so a hung backend cannot stall
// the health endpoint.
const checkTimeout = 2 * time.Second

// DependencyCheck verifies one backing dependency (Redis, Postgres, S3) for
// the health endpoint.
type DependencyCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

// HealthHandler serves the health-check endpoint, running the configured
// dependency checks on every request.
type HealthHandler struct {
	checks []DependencyCheck
	logger *slog.Logger
}

// NewHealthHandler creates a HealthHandler. checks may be empty; the endpoint
// then only reports liveness.
func NewHealthHandler(checks []DependencyCheck, logger *slog.Logger) *HealthHandler {
	return &HealthHandler{checks: checks, logger: logger}
}

// HealthCheck reports liveness plus the state of each backing dependency.
// Any failing dependency degrades the response to 503 so load balancers can
// rotate the replica out.
// GET /api/health
func (h *HealthHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	status := "ok"
	code := http.StatusOK

	deps := make(map[string]string, len(h.checks))
	for _, c := range h.checks {
		ctx, cancel := context.WithTimeout(r.Context(), checkTimeout)
		err := c.Check(ctx)
		cancel()

		if err != nil {
			h.logger.WarnContext(r.Context(), "dependency check failed",
				slog.String("dependency", c.Name),
				slog.String("error", err.Error()),
			)
			deps[c.Name] = "unavailable"
			status = "degraded"
			code = http.StatusServiceUnavailable
			continue
		}
		deps[c.Name] = "ok"
	}

	body := map[string]any{
		"status":    status,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}
	if len(deps) > 0 {
		body["dependencies"] = deps
	}
	writeJSON(w, code, body)
}
