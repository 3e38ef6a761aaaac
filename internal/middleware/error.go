package middleware

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/soltixdb/fuzzcast/internal/logging"
	"github.com/soltixdb/fuzzcast/internal/models"
	"github.com/soltixdb/fuzzcast/internal/services"
)

// ErrorHandler returns the app-wide error handler. Errors returned by
// handlers end up here: fiber errors keep their status, service errors are
// mapped by code, everything else is a 500.
func ErrorHandler(logger *logging.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		code := fiber.StatusInternalServerError
		detail := models.ErrorDetail{Code: "ERROR", Message: "Internal Server Error"}

		var fiberErr *fiber.Error
		var svcErr *services.ServiceError
		switch {
		case errors.As(err, &fiberErr):
			code = fiberErr.Code
			detail.Message = fiberErr.Message
		case errors.As(err, &svcErr):
			code = services.HTTPStatus(svcErr)
			detail = models.ErrorDetail{Code: svcErr.Code, Message: svcErr.Message, Details: svcErr.Details}
		}

		fields := []interface{}{"path", c.Path(), "method", c.Method(), "status", code, "error", err}
		if code >= fiber.StatusInternalServerError {
			logger.Error("Request error", fields...)
		} else {
			logger.Warn("Request error", fields...)
		}

		return c.Status(code).JSON(models.ErrorResponse{Error: detail})
	}
}
