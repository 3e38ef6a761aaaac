// Package services provides the business logic layer between handlers and
// the analytics packages. Services own training jobs, persistence and
// forecast serving.
package services

import (
	"errors"
	"net/http"
)

// Error codes returned in ServiceError.Code
const (
	CodeInvalidRequest = "INVALID_REQUEST"
	CodeModelNotFound  = "MODEL_NOT_FOUND"
	CodeModelNotReady  = "MODEL_NOT_READY"
	CodeTooManyJobs    = "TOO_MANY_JOBS"
	CodeJobNotRunning  = "JOB_NOT_RUNNING"
	CodeStorageError   = "STORAGE_ERROR"
	CodeTrainingFailed = "TRAINING_FAILED"
	CodeForecastFailed = "FORECAST_FAILED"
)

// ServiceError represents a service layer error
type ServiceError struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

func (e *ServiceError) Error() string {
	return e.Message
}

// NewServiceError creates a new ServiceError
func NewServiceError(code, message string) *ServiceError {
	return &ServiceError{
		Code:    code,
		Message: message,
	}
}

// NewServiceErrorWithDetails creates a new ServiceError with details
func NewServiceErrorWithDetails(code, message string, details map[string]interface{}) *ServiceError {
	return &ServiceError{
		Code:    code,
		Message: message,
		Details: details,
	}
}

// HTTPStatus maps an error to the status code handlers respond with
func HTTPStatus(err error) int {
	var svcErr *ServiceError
	if !errors.As(err, &svcErr) {
		return http.StatusInternalServerError
	}
	switch svcErr.Code {
	case CodeInvalidRequest:
		return http.StatusBadRequest
	case CodeModelNotFound:
		return http.StatusNotFound
	case CodeModelNotReady, CodeJobNotRunning:
		return http.StatusConflict
	case CodeTooManyJobs:
		return http.StatusTooManyRequests
	case CodeForecastFailed:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}
