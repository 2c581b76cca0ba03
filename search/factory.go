package search

import (
	"fmt"
	"sort"
	"strings"
)

// KnownProviders lists every provider name NewProvider accepts
var KnownProviders = []string{"exa", "tavily", "openai", "brave", "google", "serpapi", "searxng", "duckduckgo", "arxiv"}

// Config holds the credentials and settings used to build providers
type Config struct {
	ExaAPIKey     string
	TavilyAPIKey  string
	BraveAPIKey   string
	GoogleAPIKey  string
	GoogleCX      string
	SerpAPIKey    string
	SearXNGURL    string
	DuckDuckGoRPS float64

	// OpenAIClient is required for the openai provider
	OpenAIClient  ChatClient
	OpenAIModel   string
	OpenAIBackend string

	// Breaker wraps every provider in a circuit breaker when non-nil
	Breaker *BreakerConfig

	HTTPClient HTTPDoer
}

func (c Config) httpClient() HTTPDoer {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	return NewHTTPClient()
}

func (c Config) rateLimited(client HTTPDoer) HTTPDoer {
	rps := c.DuckDuckGoRPS
	if rps <= 0 {
		rps = DefaultDuckDuckGoRate
	}
	return NewRateLimitedClient(client, rps)
}

// NewProvider creates the named provider from cfg
func NewProvider(name string, cfg Config) (Provider, error) {
	client := cfg.httpClient()

	var (
		p   Provider
		err error
	)
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "exa":
		p, err = NewExaProvider(cfg.ExaAPIKey, client)
	case "tavily":
		p, err = NewTavilyProvider(cfg.TavilyAPIKey, client)
	case "openai":
		p, err = NewOpenAIProvider(cfg.OpenAIClient, cfg.OpenAIModel, cfg.OpenAIBackend)
	case "brave":
		p, err = NewBraveProvider(cfg.BraveAPIKey, client)
	case "google":
		p, err = NewGoogleProvider(cfg.GoogleAPIKey, cfg.GoogleCX, client)
	case "serpapi":
		p, err = NewSerpAPIProvider(cfg.SerpAPIKey, client)
	case "searxng":
		p, err = NewSearXNGProvider(cfg.SearXNGURL, cfg.rateLimited(client))
	case "duckduckgo":
		p = NewDuckDuckGoProvider(cfg.rateLimited(client))
	case "arxiv":
		p = NewArxivProvider(client)
	default:
		return nil, &ConfigError{
			Provider: name,
			Message:  fmt.Sprintf("unknown provider, expected one of %s", strings.Join(KnownProviders, ", ")),
		}
	}
	if err != nil {
		return nil, err
	}

	if cfg.Breaker != nil {
		return NewBreakerProvider(p, *cfg.Breaker), nil
	}
	return p, nil
}

// NewProviders builds each named provider in order, stopping at the first error
func NewProviders(names []string, cfg Config) ([]Provider, error) {
	providers := make([]Provider, 0, len(names))
	for _, name := range names {
		p, err := NewProvider(name, cfg)
		if err != nil {
			return nil, err
		}
		providers = append(providers, p)
	}
	return providers, nil
}

// AvailableProviders returns the names of the providers cfg can build, in
// KnownProviders order
func AvailableProviders(cfg Config) []string {
	var names []string
	for _, name := range KnownProviders {
		if _, err := NewProvider(name, cfg); err == nil {
			names = append(names, name)
		}
	}
	return names
}

// ParseProviderList splits a comma separated provider list, dropping blanks
// and duplicates
func ParseProviderList(s string) []string {
	seen := make(map[string]bool)
	var names []string
	for _, part := range strings.Split(s, ",") {
		name := strings.ToLower(strings.TrimSpace(part))
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		names = append(names, name)
	}
	return names
}

// SortedConfigKeys returns the keys of a provider config in stable order
func SortedConfigKeys(cfg map[string]string) []string {
	keys := make([]string, 0, len(cfg))
	for k := range cfg {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
