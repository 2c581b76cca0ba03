package orchestrator

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/trace"

	"github.com/tinfoilsh/multisearch/search"
	"github.com/tinfoilsh/multisearch/telemetry"
)

const (
	DefaultTimeoutPerProvider = 10 * time.Second
	DefaultMaxConcurrent      = 3
)

// Config controls dispatch across providers
type Config struct {
	Strategy           Strategy      `yaml:"strategy" json:"strategy"`
	TimeoutPerProvider time.Duration `yaml:"timeout_per_provider" json:"timeout_per_provider"`
	MaxConcurrent      int           `yaml:"max_concurrent" json:"max_concurrent"`
}

// DefaultConfig returns a failover configuration with default limits
func DefaultConfig() Config {
	return Config{
		Strategy:           Failover,
		TimeoutPerProvider: DefaultTimeoutPerProvider,
		MaxConcurrent:      DefaultMaxConcurrent,
	}
}

func (c Config) withDefaults() (Config, error) {
	if !c.Strategy.valid() {
		return c, &ConfigError{Field: "strategy", Message: fmt.Sprintf("unknown strategy %d", int(c.Strategy))}
	}
	if c.TimeoutPerProvider < 0 {
		return c, &ConfigError{Field: "timeout_per_provider", Message: "must not be negative"}
	}
	if c.MaxConcurrent < 0 {
		return c, &ConfigError{Field: "max_concurrent", Message: "must not be negative"}
	}
	if c.TimeoutPerProvider == 0 {
		c.TimeoutPerProvider = DefaultTimeoutPerProvider
	}
	if c.MaxConcurrent == 0 {
		c.MaxConcurrent = DefaultMaxConcurrent
	}
	return c, nil
}

// Orchestrator dispatches searches over an ordered list of providers and
// keeps per-provider statistics. Providers are registered before the first
// search; it is safe for concurrent use afterwards.
type Orchestrator struct {
	cfg Config

	mu        sync.RWMutex
	providers []search.Provider
	sealed    atomic.Bool

	stats  *statsTracker
	cursor atomic.Uint64
}

// New creates an orchestrator and registers the given providers in order
func New(cfg Config, providers ...search.Provider) (*Orchestrator, error) {
	cfg, err := cfg.withDefaults()
	if err != nil {
		return nil, err
	}

	o := &Orchestrator{cfg: cfg, stats: newStatsTracker()}
	for _, p := range providers {
		if err := o.AddProvider(p); err != nil {
			return nil, err
		}
	}
	return o, nil
}

// AddProvider appends a provider. Names must be unique.
func (o *Orchestrator) AddProvider(p search.Provider) error {
	if p == nil {
		return &ConfigError{Field: "providers", Message: "provider is nil"}
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	if o.sealed.Load() {
		return ErrProvidersSealed
	}
	name := p.Name()
	for _, existing := range o.providers {
		if existing.Name() == name {
			return &ConfigError{Field: "providers", Message: fmt.Sprintf("duplicate provider %q", name)}
		}
	}
	o.providers = append(o.providers, p)
	o.stats.register(name)
	return nil
}

// Search dispatches req according to the configured strategy
func (o *Orchestrator) Search(ctx context.Context, req *search.Request) ([]search.Result, error) {
	if req == nil {
		return nil, fmt.Errorf("%w: request is nil", search.ErrInvalidInput)
	}

	o.mu.RLock()
	o.sealed.Store(true)
	providers := o.providers
	o.mu.RUnlock()

	if len(providers) == 0 {
		return nil, ErrNoProvidersConfigured
	}

	ctx, span := telemetry.StartSpan(ctx, "orchestrator.search",
		trace.WithAttributes(
			telemetry.StringAttr("strategy", o.cfg.Strategy.String()),
			telemetry.IntAttr("providers", len(providers)),
		))
	defer span.End()

	req.Debug.Log("Dispatching search", log.Fields{
		"strategy":  o.cfg.Strategy.String(),
		"providers": len(providers),
		"query":     req.Query,
	})

	var (
		results []search.Result
		err     error
	)
	switch o.cfg.Strategy {
	case LoadBalance:
		results, err = o.loadBalance(ctx, providers, req)
	case Aggregate:
		results, err = o.aggregate(ctx, providers, req)
	case Race:
		results, err = o.race(ctx, providers, req)
	default:
		results, err = o.failover(ctx, providers, req)
	}

	if err != nil {
		telemetry.RecordError(span, err)
		req.Debug.Log("Search failed", log.Fields{"strategy": o.cfg.Strategy.String(), "error": err.Error()})
		return nil, err
	}

	span.SetAttributes(telemetry.IntAttr("results", len(results)))
	telemetry.SetOK(span)
	req.Debug.Log(fmt.Sprintf("Search returned %d results", len(results)), log.Fields{"strategy": o.cfg.Strategy.String()})
	return results, nil
}

// Stats returns a snapshot of every registered provider's statistics
func (o *Orchestrator) Stats() map[string]ProviderStats {
	return o.stats.snapshot()
}

// Providers returns the registered providers in order
func (o *Orchestrator) Providers() []search.Provider {
	o.mu.RLock()
	defer o.mu.RUnlock()
	out := make([]search.Provider, len(o.providers))
	copy(out, o.providers)
	return out
}

func (o *Orchestrator) Strategy() Strategy {
	return o.cfg.Strategy
}

func (o *Orchestrator) Config() Config {
	return o.cfg
}
