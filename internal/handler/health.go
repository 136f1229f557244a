package handler

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
)

// Check pings one dependency
type Check func(ctx context.Context) error

// HealthHandler reports dependency reachability for /health
type HealthHandler struct {
	checks     map[string]Check
	configured map[string]bool
	timeout    time.Duration
}

func NewHealthHandler(checks map[string]Check, configured map[string]bool) *HealthHandler {
	return &HealthHandler{
		checks:     checks,
		configured: configured,
		timeout:    2 * time.Second,
	}
}

// Health handles GET /health. Any failing check turns the response into 503.
func (h *HealthHandler) Health(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.Context(), h.timeout)
	defer cancel()

	status := "ok"
	services := make(fiber.Map, len(h.checks))
	for name, check := range h.checks {
		if err := check(ctx); err != nil {
			services[name] = fiber.Map{"status": "down", "error": err.Error()}
			status = "degraded"
			continue
		}
		services[name] = fiber.Map{"status": "up"}
	}

	code := fiber.StatusOK
	if status != "ok" {
		code = fiber.StatusServiceUnavailable
	}
	return c.Status(code).JSON(fiber.Map{
		"status":     status,
		"services":   services,
		"configured": h.configured,
	})
}
