package handlers

import (
	"encoding/json"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"

	"github.com/soltixdb/fuzzcast/internal/logging"
	"github.com/soltixdb/fuzzcast/internal/models"
)

func TestHandler_Health(t *testing.T) {
	h := New(logging.Nop(), nil, nil)
	app := fiber.New()
	app.Get("/health", h.Health)

	resp, err := app.Test(httptest.NewRequest("GET", "/health", nil))
	if err != nil {
		t.Fatalf("Failed to perform request: %v", err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Errorf("Expected status 200, got %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("Failed to read body: %v", err)
	}

	var health models.HealthResponse
	if err := json.Unmarshal(body, &health); err != nil {
		t.Fatalf("Failed to unmarshal response: %v", err)
	}
	if health.Status != "healthy" {
		t.Errorf("Expected status 'healthy', got %q", health.Status)
	}
	if health.Version != Version {
		t.Errorf("Expected version %q, got %q", Version, health.Version)
	}
	if health.Timestamp == "" || health.Uptime == "" {
		t.Errorf("Expected timestamp and uptime, got %+v", health)
	}
	if health.ActiveJobs != 0 {
		t.Errorf("Expected no active jobs, got %d", health.ActiveJobs)
	}
}

func TestHandler_NotFound(t *testing.T) {
	h := New(logging.Nop(), nil, nil)
	app := fiber.New()
	app.Use(h.NotFound)

	for _, path := range []string{"/nonexistent", "/v1/models/x/unknown"} {
		t.Run(path, func(t *testing.T) {
			resp, err := app.Test(httptest.NewRequest("GET", path, nil))
			if err != nil {
				t.Fatalf("Failed to perform request: %v", err)
			}
			if resp.StatusCode != fiber.StatusNotFound {
				t.Errorf("Expected status 404, got %d", resp.StatusCode)
			}

			var errResp models.ErrorResponse
			if err := json.NewDecoder(resp.Body).Decode(&errResp); err != nil {
				t.Fatalf("Failed to decode response: %v", err)
			}
			if errResp.Error.Code != "NOT_FOUND" {
				t.Errorf("Expected code NOT_FOUND, got %s", errResp.Error.Code)
			}
			if errResp.Error.Path != path {
				t.Errorf("Expected path %s, got %s", path, errResp.Error.Path)
			}
		})
	}
}
