package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	log "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/tinfoilsh/multisearch/orchestrator"
	"github.com/tinfoilsh/multisearch/search"
	"github.com/tinfoilsh/multisearch/telemetry"
)

// Config holds the service configuration
type Config struct {
	Providers      ProvidersConfig  `yaml:"providers"`
	Search         SearchConfig     `yaml:"search"`
	CircuitBreaker BreakerConfig    `yaml:"circuit_breaker"`
	Tracing        telemetry.Config `yaml:"tracing"`

	// Server settings
	ListenAddr string `yaml:"listen_addr"`
	LogLevel   string `yaml:"log_level"`
}

// ProvidersConfig holds backend credentials
type ProvidersConfig struct {
	ExaAPIKey     string  `yaml:"exa_api_key"`
	BraveAPIKey   string  `yaml:"brave_api_key"`
	GoogleAPIKey  string  `yaml:"google_api_key"`
	GoogleCX      string  `yaml:"google_cx"`
	SerpAPIKey    string  `yaml:"serpapi_api_key"`
	TavilyAPIKey  string  `yaml:"tavily_api_key"`
	SearXNGURL    string  `yaml:"searxng_url"`
	OpenAIAPIKey  string  `yaml:"openai_api_key"`
	OpenAIModel   string  `yaml:"openai_search_model"`
	DuckDuckGoRPS float64 `yaml:"duckduckgo_rate_limit"`

	// Route the openai provider through an attested Tinfoil enclave
	TinfoilEnabled bool `yaml:"tinfoil_enabled"`
}

// SearchConfig controls orchestration
type SearchConfig struct {
	Strategy        string        `yaml:"strategy"`
	Providers       []string      `yaml:"providers"`
	ProviderTimeout time.Duration `yaml:"provider_timeout"`
	MaxConcurrent   int           `yaml:"max_concurrent"`
}

// BreakerConfig controls the per-provider circuit breaker
type BreakerConfig struct {
	Enabled     bool          `yaml:"enabled"`
	MaxFailures uint32        `yaml:"max_failures"`
	Timeout     time.Duration `yaml:"timeout"`
}

// Default returns the built-in configuration
func Default() *Config {
	return &Config{
		Providers: ProvidersConfig{
			OpenAIModel:   search.DefaultOpenAISearchModel,
			DuckDuckGoRPS: search.DefaultDuckDuckGoRate,
		},
		Search: SearchConfig{
			Strategy:        orchestrator.Failover.String(),
			ProviderTimeout: orchestrator.DefaultTimeoutPerProvider,
			MaxConcurrent:   orchestrator.DefaultMaxConcurrent,
		},
		CircuitBreaker: BreakerConfig{
			MaxFailures: search.DefaultBreakerMaxFailures,
			Timeout:     search.DefaultBreakerTimeout,
		},
		Tracing:    telemetry.Config{Exporter: "stdout"},
		ListenAddr: ":8089",
		LogLevel:   "info",
	}
}

// Load builds the configuration from defaults, an optional YAML file and the
// environment, in that order. An empty path falls back to CONFIG_FILE.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = os.Getenv("CONFIG_FILE")
	}
	if path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	log.WithField("path", path).Debug("Loaded config file")
	return nil
}

func (c *Config) applyEnv() error {
	p := &c.Providers
	p.ExaAPIKey = getEnv("EXA_API_KEY", p.ExaAPIKey)
	p.BraveAPIKey = getEnv("BRAVE_API_KEY", p.BraveAPIKey)
	p.GoogleAPIKey = getEnv("GOOGLE_API_KEY", p.GoogleAPIKey)
	p.GoogleCX = getEnv("GOOGLE_CX", p.GoogleCX)
	p.SerpAPIKey = getEnv("SERPAPI_API_KEY", p.SerpAPIKey)
	p.TavilyAPIKey = getEnv("TAVILY_API_KEY", p.TavilyAPIKey)
	p.SearXNGURL = getEnv("SEARXNG_URL", p.SearXNGURL)
	p.OpenAIAPIKey = getEnv("OPENAI_API_KEY", p.OpenAIAPIKey)
	p.OpenAIModel = getEnv("OPENAI_SEARCH_MODEL", p.OpenAIModel)

	c.Search.Strategy = getEnv("SEARCH_STRATEGY", c.Search.Strategy)
	c.Search.Providers = getEnvList("SEARCH_PROVIDERS", c.Search.Providers)
	c.ListenAddr = getEnv("LISTEN_ADDR", c.ListenAddr)
	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)
	c.Tracing.Exporter = getEnv("TRACING_EXPORTER", c.Tracing.Exporter)

	var errs []error
	var err error
	if p.TinfoilEnabled, err = getEnvBool("TINFOIL_ENABLED", p.TinfoilEnabled); err != nil {
		errs = append(errs, err)
	}
	if p.DuckDuckGoRPS, err = getEnvFloat("DUCKDUCKGO_RATE_LIMIT", p.DuckDuckGoRPS); err != nil {
		errs = append(errs, err)
	}
	if c.Search.ProviderTimeout, err = getEnvDuration("PROVIDER_TIMEOUT", c.Search.ProviderTimeout); err != nil {
		errs = append(errs, err)
	}
	if c.Search.MaxConcurrent, err = getEnvInt("MAX_CONCURRENT", c.Search.MaxConcurrent); err != nil {
		errs = append(errs, err)
	}
	if c.CircuitBreaker.Enabled, err = getEnvBool("CIRCUIT_BREAKER_ENABLED", c.CircuitBreaker.Enabled); err != nil {
		errs = append(errs, err)
	}
	maxFailures, err := getEnvInt("CIRCUIT_BREAKER_MAX_FAILURES", int(c.CircuitBreaker.MaxFailures))
	if err != nil {
		errs = append(errs, err)
	} else if maxFailures >= 0 {
		c.CircuitBreaker.MaxFailures = uint32(maxFailures)
	}
	if c.CircuitBreaker.Timeout, err = getEnvDuration("CIRCUIT_BREAKER_TIMEOUT", c.CircuitBreaker.Timeout); err != nil {
		errs = append(errs, err)
	}
	if c.Tracing.Enabled, err = getEnvBool("TRACING_ENABLED", c.Tracing.Enabled); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Validate checks the strategy name and numeric ranges
func (c *Config) Validate() error {
	if _, err := orchestrator.ParseStrategy(c.Search.Strategy); err != nil {
		return err
	}
	if c.Search.ProviderTimeout < 0 {
		return fmt.Errorf("provider timeout must not be negative, got %v", c.Search.ProviderTimeout)
	}
	if c.Search.MaxConcurrent < 0 {
		return fmt.Errorf("max concurrent must not be negative, got %d", c.Search.MaxConcurrent)
	}
	if c.Providers.DuckDuckGoRPS < 0 {
		return fmt.Errorf("duckduckgo rate limit must not be negative, got %v", c.Providers.DuckDuckGoRPS)
	}
	for _, name := range c.Search.Providers {
		if !isKnownProvider(name) {
			return fmt.Errorf("unknown provider %q in search providers", name)
		}
	}
	return nil
}

// OrchestratorConfig converts the search settings
func (c *Config) OrchestratorConfig() (orchestrator.Config, error) {
	strategy, err := orchestrator.ParseStrategy(c.Search.Strategy)
	if err != nil {
		return orchestrator.Config{}, err
	}
	return orchestrator.Config{
		Strategy:           strategy,
		TimeoutPerProvider: c.Search.ProviderTimeout,
		MaxConcurrent:      c.Search.MaxConcurrent,
	}, nil
}

// SearchConfig returns the provider factory settings. The OpenAI client is
// wired separately since it depends on the selected backend.
func (c *Config) SearchConfig() search.Config {
	cfg := search.Config{
		ExaAPIKey:     c.Providers.ExaAPIKey,
		TavilyAPIKey:  c.Providers.TavilyAPIKey,
		BraveAPIKey:   c.Providers.BraveAPIKey,
		GoogleAPIKey:  c.Providers.GoogleAPIKey,
		GoogleCX:      c.Providers.GoogleCX,
		SerpAPIKey:    c.Providers.SerpAPIKey,
		SearXNGURL:    c.Providers.SearXNGURL,
		DuckDuckGoRPS: c.Providers.DuckDuckGoRPS,
		OpenAIModel:   c.Providers.OpenAIModel,
	}
	if c.CircuitBreaker.Enabled {
		cfg.Breaker = &search.BreakerConfig{
			MaxFailures: c.CircuitBreaker.MaxFailures,
			Timeout:     c.CircuitBreaker.Timeout,
		}
	}
	return cfg
}

// Redacted returns a copy with credentials masked, suitable for display
func (c *Config) Redacted() *Config {
	out := *c
	out.Search.Providers = append([]string(nil), c.Search.Providers...)
	p := &out.Providers
	for _, secret := range []*string{&p.ExaAPIKey, &p.BraveAPIKey, &p.GoogleAPIKey, &p.SerpAPIKey, &p.TavilyAPIKey, &p.OpenAIAPIKey} {
		if *secret != "" {
			*secret = search.RedactedValue
		}
	}
	return &out
}

func isKnownProvider(name string) bool {
	for _, known := range search.KnownProviders {
		if name == known {
			return true
		}
	}
	return false
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvBool(key string, fallback bool) (bool, error) {
	val := os.Getenv(key)
	if val == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		return fallback, fmt.Errorf("%s: invalid boolean %q", key, val)
	}
	return b, nil
}

func getEnvInt(key string, fallback int) (int, error) {
	val := os.Getenv(key)
	if val == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return fallback, fmt.Errorf("%s: invalid integer %q", key, val)
	}
	return n, nil
}

func getEnvFloat(key string, fallback float64) (float64, error) {
	val := os.Getenv(key)
	if val == "" {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(val, 64)
	if err != nil {
		return fallback, fmt.Errorf("%s: invalid number %q", key, val)
	}
	return f, nil
}

// getEnvDuration accepts Go durations ("750ms") or bare milliseconds ("750")
func getEnvDuration(key string, fallback time.Duration) (time.Duration, error) {
	val := os.Getenv(key)
	if val == "" {
		return fallback, nil
	}
	if ms, err := strconv.Atoi(val); err == nil {
		return time.Duration(ms) * time.Millisecond, nil
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return fallback, fmt.Errorf("%s: invalid duration %q", key, val)
	}
	return d, nil
}

func getEnvList(key string, fallback []string) []string {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	return search.ParseProviderList(val)
}
