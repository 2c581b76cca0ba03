package search

import (
	"context"
	"errors"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/sony/gobreaker/v2"
)

const (
	DefaultBreakerMaxFailures uint32 = 5
	DefaultBreakerTimeout            = 30 * time.Second
	defaultBreakerInterval           = 60 * time.Second
)

// ErrCircuitOpen is returned while a provider's breaker rejects calls
var ErrCircuitOpen = errors.New("circuit open")

// BreakerConfig controls when a provider's circuit opens
type BreakerConfig struct {
	MaxFailures uint32        `yaml:"max_failures"`
	Timeout     time.Duration `yaml:"timeout"`
	Interval    time.Duration `yaml:"interval"`
}

// BreakerProvider wraps a Provider so repeated failures fail fast
type BreakerProvider struct {
	inner   Provider
	breaker *gobreaker.CircuitBreaker[[]Result]
}

// NewBreakerProvider wraps inner with a circuit breaker. Zero values in cfg
// fall back to defaults.
func NewBreakerProvider(inner Provider, cfg BreakerConfig) *BreakerProvider {
	maxFailures := cfg.MaxFailures
	if maxFailures == 0 {
		maxFailures = DefaultBreakerMaxFailures
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = DefaultBreakerTimeout
	}
	interval := cfg.Interval
	if interval == 0 {
		interval = defaultBreakerInterval
	}

	cb := gobreaker.NewCircuitBreaker[[]Result](gobreaker.Settings{
		Name:        "search:" + inner.Name(),
		MaxRequests: 1,
		Interval:    interval,
		Timeout:     timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.WithFields(log.Fields{
				"breaker": name,
				"from":    from.String(),
				"to":      to.String(),
			}).Warn("Circuit breaker state change")
		},
		// Cancellation by the caller says nothing about the backend's health
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled) || errors.Is(err, ErrInvalidInput)
		},
	})

	return &BreakerProvider{inner: inner, breaker: cb}
}

func (p *BreakerProvider) Name() string {
	return p.inner.Name()
}

// Config implements Configurer, adding the breaker state
func (p *BreakerProvider) Config() map[string]string {
	cfg := make(map[string]string)
	for k, v := range ProviderConfig(p.inner) {
		cfg[k] = v
	}
	cfg["circuit_state"] = p.breaker.State().String()
	return cfg
}

// Search routes the call through the breaker
func (p *BreakerProvider) Search(ctx context.Context, req *Request) ([]Result, error) {
	results, err := p.breaker.Execute(func() ([]Result, error) {
		return p.inner.Search(ctx, req)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, fmt.Errorf("provider %q %w: %w", p.inner.Name(), ErrCircuitOpen, err)
	}
	return results, err
}

// State returns the current breaker state
func (p *BreakerProvider) State() gobreaker.State {
	return p.breaker.State()
}

// Unwrap returns the wrapped provider
func (p *BreakerProvider) Unwrap() Provider {
	return p.inner
}
