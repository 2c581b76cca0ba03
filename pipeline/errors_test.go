package pipeline

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/tinfoilsh/multisearch/orchestrator"
	"github.com/tinfoilsh/multisearch/search"
)

func TestPipelineError(t *testing.T) {
	inner := errors.New("inner error")
	err := &PipelineError{Stage: "validate", Err: inner}

	expected := `pipeline failed at stage "validate": inner error`
	if err.Error() != expected {
		t.Errorf("expected %q, got %q", expected, err.Error())
	}
	if !errors.Is(err, inner) {
		t.Error("Unwrap should return inner error")
	}
}

func TestValidationError(t *testing.T) {
	tests := []struct {
		name     string
		field    string
		message  string
		expected string
	}{
		{"with field", "query", "is required", `validation error on field "query": is required`},
		{"without field", "", "invalid request", "validation error: invalid request"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := &ValidationError{Field: tt.field, Message: tt.message}
			if err.Error() != tt.expected {
				t.Errorf("expected %q, got %q", tt.expected, err.Error())
			}
		})
	}
}

func TestErrorResponse(t *testing.T) {
	timeout := &orchestrator.TimeoutError{Provider: "exa", Timeout: 50 * time.Millisecond}

	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantType   string
	}{
		{"validation", &PipelineError{Stage: "validate", Err: &ValidationError{Field: "query", Message: "required"}}, http.StatusBadRequest, "validation_error"},
		{"invalid input", fmt.Errorf("%w: bad", search.ErrInvalidInput), http.StatusBadRequest, "invalid_request_error"},
		{"no providers", &PipelineError{Stage: "search", Err: orchestrator.ErrNoProvidersConfigured}, http.StatusServiceUnavailable, "configuration_error"},
		{"all failed with timeout inside", &orchestrator.AllProvidersFailedError{Errors: []error{timeout}}, http.StatusBadGateway, "provider_error"},
		{"single timeout", &PipelineError{Stage: "search", Err: timeout}, http.StatusGatewayTimeout, "timeout_error"},
		{"request deadline", context.DeadlineExceeded, http.StatusGatewayTimeout, "timeout_error"},
		{"provider error", &orchestrator.ProviderError{Provider: "brave", Err: errors.New("down")}, http.StatusBadGateway, "provider_error"},
		{"unknown", errors.New("boom"), http.StatusInternalServerError, "api_error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := ErrorResponse(tt.err)
			if status != tt.wantStatus {
				t.Errorf("expected status %d, got %d", tt.wantStatus, status)
			}
			inner, ok := body["error"].(map[string]any)
			if !ok {
				t.Fatalf("expected error object, got %v", body)
			}
			if inner["type"] != tt.wantType {
				t.Errorf("expected type %q, got %v", tt.wantType, inner["type"])
			}
		})
	}
}

func TestErrorResponse_Details(t *testing.T) {
	_, body := ErrorResponse(&orchestrator.TimeoutError{Provider: "exa", Timeout: 50 * time.Millisecond})
	inner := body["error"].(map[string]any)
	if inner["provider"] != "exa" || inner["timeout_ms"] != int64(50) {
		t.Errorf("expected provider and timeout in body, got %v", inner)
	}

	_, body = ErrorResponse(&orchestrator.AllProvidersFailedError{Errors: []error{errors.New("a"), errors.New("b")}})
	failures := body["error"].(map[string]any)["failures"].([]string)
	if len(failures) != 2 {
		t.Errorf("expected 2 failures, got %v", failures)
	}

	// internal errors are not leaked
	_, body = ErrorResponse(errors.New("secret detail"))
	if body["error"].(map[string]any)["message"] != "internal server error" {
		t.Error("expected generic message for unknown errors")
	}
}
