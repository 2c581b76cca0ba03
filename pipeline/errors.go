package pipeline

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/tinfoilsh/multisearch/orchestrator"
	"github.com/tinfoilsh/multisearch/search"
)

// PipelineError wraps errors that occur during pipeline execution
type PipelineError struct {
	Stage string
	Err   error
}

func (e *PipelineError) Error() string {
	return fmt.Sprintf("pipeline failed at stage %q: %v", e.Stage, e.Err)
}

func (e *PipelineError) Unwrap() error {
	return e.Err
}

// ValidationError indicates invalid request parameters
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation error on field %q: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation error: %s", e.Message)
}

func (e *ValidationError) Unwrap() error {
	return search.ErrInvalidInput
}

// ErrorResponse maps an error to an HTTP status code and response body
func ErrorResponse(err error) (int, map[string]any) {
	var validationErr *ValidationError
	var allFailed *orchestrator.AllProvidersFailedError
	var timeoutErr *orchestrator.TimeoutError
	var providerErr *orchestrator.ProviderError

	switch {
	case errors.As(err, &validationErr):
		return http.StatusBadRequest, errorBody(validationErr.Message, "validation_error", map[string]any{
			"field": validationErr.Field,
		})

	case errors.Is(err, search.ErrInvalidInput):
		return http.StatusBadRequest, errorBody(rootMessage(err), "invalid_request_error", nil)

	case errors.Is(err, orchestrator.ErrNoProvidersConfigured):
		return http.StatusServiceUnavailable, errorBody("no search providers configured", "configuration_error", nil)

	// checked before timeouts since the joined failures may contain one
	case errors.As(err, &allFailed):
		failures := make([]string, 0, len(allFailed.Errors))
		for _, e := range allFailed.Errors {
			if e != nil {
				failures = append(failures, e.Error())
			}
		}
		return http.StatusBadGateway, errorBody("all search providers failed", "provider_error", map[string]any{
			"failures": failures,
		})

	case errors.As(err, &timeoutErr):
		return http.StatusGatewayTimeout, errorBody(timeoutErr.Error(), "timeout_error", map[string]any{
			"provider":   timeoutErr.Provider,
			"timeout_ms": timeoutErr.TimeoutMS(),
		})

	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, errorBody("search timed out", "timeout_error", nil)

	case errors.As(err, &providerErr):
		return http.StatusBadGateway, errorBody(providerErr.Error(), "provider_error", map[string]any{
			"provider": providerErr.Provider,
		})

	default:
		return http.StatusInternalServerError, errorBody("internal server error", "api_error", nil)
	}
}

func errorBody(message, errType string, extra map[string]any) map[string]any {
	inner := map[string]any{
		"message": message,
		"type":    errType,
	}
	for k, v := range extra {
		inner[k] = v
	}
	return map[string]any{"error": inner}
}

// rootMessage strips the pipeline stage prefix from client-facing messages
func rootMessage(err error) string {
	var pipelineErr *PipelineError
	if errors.As(err, &pipelineErr) {
		return pipelineErr.Err.Error()
	}
	return err.Error()
}
