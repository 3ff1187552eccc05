package handlers

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/spark-support/internal/observability"
)

// Pinger is a dependency that can report its connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler responds to liveness and readiness probes.
type HealthHandler struct {
	serviceName string
	version     string
	// deps holds only the dependencies that were configured.
	deps      map[string]Pinger
	endpoints func() map[string]bool
	metrics   *observability.Metrics
}

// NewHealthHandler returns a new handler instance. endpoints reports which
// text endpoints have an address.
func NewHealthHandler(serviceName, version string, deps map[string]Pinger, endpoints func() map[string]bool, metrics *observability.Metrics) *HealthHandler {
	return &HealthHandler{serviceName: serviceName, version: version, deps: deps, endpoints: endpoints, metrics: metrics}
}

// Live reports service liveness.
func (h *HealthHandler) Live(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":  "alive",
		"service": h.serviceName,
		"version": h.version,
	})
}

// Ready reports service readiness by checking dependencies. Unconfigured
// endpoints are listed but do not fail readiness; each call reports
// CONFIGURATION_MISSING on its own.
func (h *HealthHandler) Ready(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
	defer cancel()

	depStatus := fiber.Map{}
	ready := true
	for name, dep := range h.deps {
		if err := dep.Ping(ctx); err != nil {
			depStatus[name] = err.Error()
			ready = false
		} else {
			depStatus[name] = "ok"
		}
	}

	endpoints := fiber.Map{}
	if h.endpoints != nil {
		for name, configured := range h.endpoints() {
			if configured {
				endpoints[name] = "configured"
			} else {
				endpoints[name] = "missing"
			}
		}
	}

	if ready {
		return c.JSON(fiber.Map{
			"status":       "ready",
			"dependencies": depStatus,
			"endpoints":    endpoints,
		})
	}

	return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
		"error": fiber.Map{
			"code":    "DEPENDENCY_UNAVAILABLE",
			"message": "one or more dependencies unavailable",
			"details": fiber.Map{"dependencies": depStatus, "endpoints": endpoints},
		},
	})
}

// Metrics returns the in-process counters.
func (h *HealthHandler) Metrics(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"data": h.metrics.Snapshot()})
}
