package handlers

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/soltixdb/fuzzcast/internal/models"
	"github.com/soltixdb/fuzzcast/internal/storage"
)

// CreateModel starts a training job
// POST /v1/models
func (h *Handler) CreateModel(c *fiber.Ctx) error {
	var req models.TrainRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return badRequest(c, "INVALID_JSON", "Failed to parse JSON body",
				map[string]interface{}{"error": err.Error()})
		}
	}

	rec, err := h.trainingService.Submit(c.UserContext(), req)
	if err != nil {
		return h.respondError(c, err)
	}

	h.logger.Info("Training job accepted", "model_id", rec.ID, "request_id", c.Locals("request_id"))
	c.Location("/v1/models/" + rec.ID)
	return c.Status(fiber.StatusAccepted).JSON(models.TrainResponse{
		ID:     rec.ID,
		Status: rec.Status,
	})
}

// ListModels lists every model
// GET /v1/models
func (h *Handler) ListModels(c *fiber.Ctx) error {
	recs, err := h.trainingService.List(c.UserContext())
	if err != nil {
		return h.respondError(c, err)
	}

	status := c.Query("status")
	resp := models.ModelListResponse{Models: make([]models.ModelResponse, 0, len(recs))}
	for _, rec := range recs {
		if status != "" && rec.Status != status {
			continue
		}
		resp.Models = append(resp.Models, toModelResponse(rec))
	}
	resp.Count = len(resp.Models)
	return c.JSON(resp)
}

// GetModel returns one model with per-stage fitness and validation scores
// GET /v1/models/:id
func (h *Handler) GetModel(c *fiber.Ctx) error {
	rec, err := h.trainingService.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(toModelResponse(rec))
}

// GetRules returns the rule report of a completed model. With
// ?format=text the report is returned as plain text.
// GET /v1/models/:id/rules
func (h *Handler) GetRules(c *fiber.Ctx) error {
	rec, err := h.trainingService.Completed(c.UserContext(), c.Params("id"))
	if err != nil {
		return h.respondError(c, err)
	}

	if c.Query("format") == "text" {
		c.Set(fiber.HeaderContentType, fiber.MIMETextPlainCharsetUTF8)
		return c.SendString(rec.Report)
	}

	rules := []string{}
	if text := strings.TrimSuffix(rec.Report, "\n"); text != "" {
		rules = strings.Split(text, "\n")
	}
	return c.JSON(models.RulesResponse{
		ID:          rec.ID,
		OutputNames: rec.OutputNames,
		Rules:       rules,
		Text:        rec.Report,
	})
}

// CancelModel stops a training job in progress
// DELETE /v1/models/:id
func (h *Handler) CancelModel(c *fiber.Ctx) error {
	rec, err := h.trainingService.Stop(c.UserContext(), c.Params("id"))
	if err != nil {
		return h.respondError(c, err)
	}

	h.logger.Info("Training job cancel requested", "model_id", rec.ID, "request_id", c.Locals("request_id"))
	return c.Status(fiber.StatusAccepted).JSON(models.TrainResponse{
		ID:     rec.ID,
		Status: models.StatusCancelling,
	})
}

// Forecast evaluates feature rows with a completed model
// POST /v1/models/:id/forecast
func (h *Handler) Forecast(c *fiber.Ctx) error {
	var req models.ForecastRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "INVALID_JSON", "Failed to parse JSON body",
			map[string]interface{}{"error": err.Error()})
	}

	resp, err := h.forecastService.Forecast(c.UserContext(), c.Params("id"), req)
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(resp)
}

func toModelResponse(rec storage.ModelRecord) models.ModelResponse {
	resp := models.ModelResponse{
		ID:           rec.ID,
		Name:         rec.Name,
		Status:       rec.Status,
		Error:        rec.Error,
		CreatedAt:    rec.CreatedAt.Format(time.RFC3339),
		UpdatedAt:    rec.UpdatedAt.Format(time.RFC3339),
		Seed:         rec.Seed,
		FeatureNames: rec.FeatureNames,
		OutputNames:  rec.OutputNames,
		Anomalies:    len(rec.Anomalies),
	}
	for _, st := range rec.Stages {
		resp.Stages = append(resp.Stages, models.StageView(st))
	}
	if len(rec.Validation) > 0 {
		resp.Validation = make(map[string]models.ScoresView, len(rec.Validation))
		for name, s := range rec.Validation {
			resp.Validation[name] = models.ScoresView(s)
		}
	}
	return resp
}
