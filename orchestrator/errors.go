package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrNoProvidersConfigured = errors.New("no search providers configured")
	ErrAllProvidersFailed    = errors.New("all providers failed")
	ErrProvidersSealed       = errors.New("providers cannot be added after the first search")
)

// ProviderError wraps a failure reported by a provider
type ProviderError struct {
	Provider string
	Err      error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider %q failed: %v", e.Provider, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// TimeoutError indicates a provider did not answer within the per-provider timeout
type TimeoutError struct {
	Provider string
	Timeout  time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("provider %q timed out after %dms", e.Provider, e.TimeoutMS())
}

// TimeoutMS returns the configured timeout in milliseconds
func (e *TimeoutError) TimeoutMS() int64 {
	return e.Timeout.Milliseconds()
}

// Is matches context.DeadlineExceeded
func (e *TimeoutError) Is(target error) bool {
	return target == context.DeadlineExceeded
}

// AllProvidersFailedError is returned by the aggregate strategy when no
// provider succeeded. Errors holds one entry per provider in registration order.
type AllProvidersFailedError struct {
	Errors []error
}

func (e *AllProvidersFailedError) Error() string {
	msgs := make([]string, 0, len(e.Errors))
	for _, err := range e.Errors {
		if err != nil {
			msgs = append(msgs, err.Error())
		}
	}
	return fmt.Sprintf("%v: %s", ErrAllProvidersFailed, strings.Join(msgs, "; "))
}

func (e *AllProvidersFailedError) Is(target error) bool {
	return target == ErrAllProvidersFailed
}

func (e *AllProvidersFailedError) Unwrap() []error {
	return e.Errors
}

// ConfigError indicates an invalid orchestrator configuration
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("orchestrator configuration error on %q: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("orchestrator configuration error: %s", e.Message)
}
