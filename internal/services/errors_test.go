package services

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"testing"
)

func TestServiceError_Error(t *testing.T) {
	err := &ServiceError{
		Code:    "TEST_ERROR",
		Message: "Test error message",
	}

	if err.Error() != "Test error message" {
		t.Errorf("Expected 'Test error message', got '%s'", err.Error())
	}
}

func TestNewServiceErrorWithDetails(t *testing.T) {
	details := map[string]interface{}{
		"model_id": "abc",
		"status":   "running",
	}

	err := NewServiceErrorWithDetails(CodeModelNotReady, "Model is not ready", details)

	if err.Code != CodeModelNotReady {
		t.Errorf("Expected code %s, got '%s'", CodeModelNotReady, err.Code)
	}
	if err.Details["status"] != "running" {
		t.Errorf("Expected status detail 'running', got %v", err.Details["status"])
	}
}

func TestServiceError_JSONSerialization(t *testing.T) {
	data, err := json.Marshal(NewServiceError(CodeModelNotFound, "Model not found"))
	if err != nil {
		t.Fatalf("Failed to marshal: %v", err)
	}
	if !strings.Contains(string(data), `"code":"MODEL_NOT_FOUND"`) {
		t.Errorf("Expected code in JSON, got %s", data)
	}
	if strings.Contains(string(data), "details") {
		t.Errorf("Expected details omitted when empty, got %s", data)
	}
}

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"invalid request", NewServiceError(CodeInvalidRequest, "bad"), http.StatusBadRequest},
		{"not found", NewServiceError(CodeModelNotFound, "missing"), http.StatusNotFound},
		{"not ready", NewServiceError(CodeModelNotReady, "running"), http.StatusConflict},
		{"not running", NewServiceError(CodeJobNotRunning, "done"), http.StatusConflict},
		{"too many jobs", NewServiceError(CodeTooManyJobs, "busy"), http.StatusTooManyRequests},
		{"forecast failed", NewServiceError(CodeForecastFailed, "width"), http.StatusUnprocessableEntity},
		{"storage error", NewServiceError(CodeStorageError, "disk"), http.StatusInternalServerError},
		{"wrapped", fmt.Errorf("outer: %w", NewServiceError(CodeModelNotFound, "missing")), http.StatusNotFound},
		{"plain error", fmt.Errorf("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := HTTPStatus(tt.err); got != tt.want {
				t.Errorf("HTTPStatus() = %d, want %d", got, tt.want)
			}
		})
	}
}
