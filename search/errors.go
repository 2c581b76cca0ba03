package search

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrInvalidInput = errors.New("invalid input")
	ErrUnauthorized = errors.New("authentication failed")
	ErrRateLimited  = errors.New("rate limit exceeded")
)

// HTTPError is returned when a backend answers with a non-success status
type HTTPError struct {
	Provider   string
	StatusCode int
	Message    string
	Body       string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("%s API returned status %d: %s", e.Provider, e.StatusCode, e.Message)
}

// Is lets callers match auth and rate-limit failures with errors.Is
func (e *HTTPError) Is(target error) bool {
	switch target {
	case ErrUnauthorized:
		return e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden
	case ErrRateLimited:
		return e.StatusCode == http.StatusTooManyRequests
	}
	return false
}

// ParseError indicates a backend payload could not be decoded
type ParseError struct {
	Provider string
	Err      error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s: failed to parse response: %v", e.Provider, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// ConfigError indicates a provider could not be constructed
type ConfigError struct {
	Provider string
	Field    string
	Message  string
}

func (e *ConfigError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s configuration error on %q: %s", e.Provider, e.Field, e.Message)
	}
	return fmt.Sprintf("%s configuration error: %s", e.Provider, e.Message)
}

// SearchError wraps a single-provider failure with troubleshooting guidance
type SearchError struct {
	Provider string
	Hint     string
	Err      error
}

func (e *SearchError) Error() string {
	if e.Hint == "" {
		return fmt.Sprintf("search with provider %q failed: %v", e.Provider, e.Err)
	}
	return fmt.Sprintf("search with provider %q failed: %v (troubleshooting: %s)", e.Provider, e.Err, e.Hint)
}

func (e *SearchError) Unwrap() error {
	return e.Err
}

// statusMessage gives a short explanation for common backend status codes
func statusMessage(status int) string {
	switch {
	case status == http.StatusBadRequest:
		return "bad request, check the query parameters"
	case status == http.StatusUnauthorized:
		return "invalid API key"
	case status == http.StatusPaymentRequired:
		return "payment required, check account billing"
	case status == http.StatusForbidden:
		return "access denied, the API key may lack permissions or be suspended"
	case status == http.StatusTooManyRequests:
		return "rate limit exceeded"
	case status >= 500:
		return "server error, try again later"
	}
	return "request failed"
}
