package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/soltixdb/fuzzcast/internal/models"
)

var startedAt = time.Now()

// Health reports liveness and the number of training jobs in flight
func (h *Handler) Health(c *fiber.Ctx) error {
	active := 0
	if h.trainingService != nil {
		active = h.trainingService.Active()
	}
	return c.JSON(models.HealthResponse{
		Status:     "healthy",
		Timestamp:  time.Now().UTC().Format(time.RFC3339),
		Version:    Version,
		Uptime:     time.Since(startedAt).Truncate(time.Second).String(),
		ActiveJobs: active,
	})
}

// NotFound is the fallback for unmatched routes
func (h *Handler) NotFound(c *fiber.Ctx) error {
	return c.Status(fiber.StatusNotFound).JSON(models.ErrorResponse{
		Error: models.ErrorDetail{
			Code:    "NOT_FOUND",
			Message: "Route not found",
			Path:    c.Path(),
		},
	})
}
