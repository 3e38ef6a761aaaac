package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/soltixdb/fuzzcast/internal/logging"
	"github.com/soltixdb/fuzzcast/internal/models"
	"github.com/soltixdb/fuzzcast/internal/services"
)

// Version is reported by the health endpoint
var Version = "1.0.0"

// Handler contains all HTTP handlers
type Handler struct {
	logger          *logging.Logger
	trainingService *services.TrainingService
	forecastService *services.ForecastService
}

// New creates a new handler instance
func New(logger *logging.Logger, training *services.TrainingService, forecast *services.ForecastService) *Handler {
	return &Handler{
		logger:          logger,
		trainingService: training,
		forecastService: forecast,
	}
}

// respondError writes err in the error envelope. Service errors keep their
// code and details; anything else is a 500.
func (h *Handler) respondError(c *fiber.Ctx, err error) error {
	status := services.HTTPStatus(err)

	var svcErr *services.ServiceError
	if errors.As(err, &svcErr) {
		if status >= fiber.StatusInternalServerError {
			h.logger.Error("Service error", "path", c.Path(), "code", svcErr.Code, "error", err)
		}
		return c.Status(status).JSON(models.ErrorResponse{
			Error: models.ErrorDetail{
				Code:    svcErr.Code,
				Message: svcErr.Message,
				Details: svcErr.Details,
			},
		})
	}

	h.logger.Error("Unhandled error", "path", c.Path(), "error", err)
	return c.Status(status).JSON(models.ErrorResponse{
		Error: models.ErrorDetail{
			Code:    "INTERNAL_ERROR",
			Message: "Internal Server Error",
		},
	})
}

func badRequest(c *fiber.Ctx, code, message string, details map[string]interface{}) error {
	return c.Status(fiber.StatusBadRequest).JSON(models.ErrorResponse{
		Error: models.ErrorDetail{
			Code:    code,
			Message: message,
			Details: details,
		},
	})
}
