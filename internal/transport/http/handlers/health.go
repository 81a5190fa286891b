package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

const readinessCheckTimeout = 2 * time.Second

// ReadinessCheck probes a single dependency.
type ReadinessCheck func(ctx context.Context) error

// HealthOption customizes the health handler.
type HealthOption func(*HealthHandler)

// WithReadinessCheck registers a named dependency probe for the readiness endpoint.
func WithReadinessCheck(name string, check ReadinessCheck) HealthOption {
	return func(h *HealthHandler) {
		if name == "" || check == nil {
			return
		}
		h.checks = append(h.checks, namedCheck{name: name, check: check})
	}
}

type namedCheck struct {
	name  string
	check ReadinessCheck
}

// HealthHandler exposes liveness and readiness information.
type HealthHandler struct {
	startedAt time.Time
	checks    []namedCheck
}

// NewHealthHandler builds a new health handler instance.
func NewHealthHandler(opts ...HealthOption) *HealthHandler {
	h := &HealthHandler{startedAt: time.Now().UTC()}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Status reports liveness with the service start time.
func (h *HealthHandler) Status(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{
		Status:    "ok",
		StartedAt: h.startedAt,
	})
}

// Readiness probes registered dependencies and fails when any is unavailable.
func (h *HealthHandler) Readiness(c *gin.Context) {
	checks := make(map[string]string, len(h.checks))
	status := http.StatusOK
	overall := "ready"

	for _, probe := range h.checks {
		ctx, cancel := context.WithTimeout(c.Request.Context(), readinessCheckTimeout)
		err := probe.check(ctx)
		cancel()

		if err != nil {
			checks[probe.name] = err.Error()
			status = http.StatusServiceUnavailable
			overall = "unavailable"
			continue
		}
		checks[probe.name] = "ok"
	}

	c.JSON(status, ReadinessResponse{
		Status: overall,
		Checks: checks,
	})
}
