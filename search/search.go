package search

import (
	"context"
	"fmt"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
)

const (
	DefaultMaxResults = 10
	DefaultPage       = 1
	DefaultTimeout    = 15 * time.Second

	// RedactedValue replaces credentials in provider configuration output
	RedactedValue = "***"
)

// Result represents a single normalized search result
type Result struct {
	Title         string         `json:"title"`
	URL           string         `json:"url"`
	Snippet       string         `json:"snippet,omitempty"`
	Domain        string         `json:"domain,omitempty"`
	PublishedDate string         `json:"published_date,omitempty"`
	Provider      string         `json:"provider,omitempty"`
	Raw           map[string]any `json:"raw,omitempty"`
}

// Provider defines the interface for search providers
type Provider interface {
	// Name is a stable lowercase identifier
	Name() string
	Search(ctx context.Context, req *Request) ([]Result, error)
}

// Configurer is implemented by providers that can describe their settings.
// Credentials must be masked with RedactedValue.
type Configurer interface {
	Config() map[string]string
}

// ProviderConfig returns the provider's diagnostic settings, or an empty map
func ProviderConfig(p Provider) map[string]string {
	if c, ok := p.(Configurer); ok {
		if cfg := c.Config(); cfg != nil {
			return cfg
		}
	}
	return map[string]string{}
}

// SafeSearch is the safe search level requested from a backend
type SafeSearch string

const (
	SafeSearchOff      SafeSearch = "off"
	SafeSearchModerate SafeSearch = "moderate"
	SafeSearchStrict   SafeSearch = "strict"
)

// SortBy selects the ordering field (arXiv)
type SortBy string

const (
	SortByRelevance       SortBy = "relevance"
	SortByLastUpdatedDate SortBy = "lastUpdatedDate"
	SortBySubmittedDate   SortBy = "submittedDate"
)

// SortOrder selects the ordering direction (arXiv)
type SortOrder string

const (
	SortAscending  SortOrder = "ascending"
	SortDescending SortOrder = "descending"
)

// ParseSafeSearch converts a user supplied level
func ParseSafeSearch(s string) (SafeSearch, error) {
	switch SafeSearch(strings.ToLower(strings.TrimSpace(s))) {
	case "":
		return "", nil
	case SafeSearchOff:
		return SafeSearchOff, nil
	case SafeSearchModerate:
		return SafeSearchModerate, nil
	case SafeSearchStrict:
		return SafeSearchStrict, nil
	}
	return "", fmt.Errorf("%w: unknown safe search level %q", ErrInvalidInput, s)
}

// ParseSortBy converts a user supplied sort field
func ParseSortBy(s string) (SortBy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return "", nil
	case "relevance":
		return SortByRelevance, nil
	case "lastupdateddate", "last-updated-date", "last_updated_date":
		return SortByLastUpdatedDate, nil
	case "submitteddate", "submitted-date", "submitted_date":
		return SortBySubmittedDate, nil
	}
	return "", fmt.Errorf("%w: unknown sort field %q", ErrInvalidInput, s)
}

// ParseSortOrder converts a user supplied sort direction
func ParseSortOrder(s string) (SortOrder, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return "", nil
	case "ascending", "asc":
		return SortAscending, nil
	case "descending", "desc":
		return SortDescending, nil
	}
	return "", fmt.Errorf("%w: unknown sort order %q", ErrInvalidInput, s)
}

// DebugOptions controls per-request diagnostic logging
type DebugOptions struct {
	Enabled      bool `json:"enabled"`
	LogRequests  bool `json:"log_requests"`
	LogResponses bool `json:"log_responses"`
}

// Log writes a diagnostic line. Enabled requests log at info level so they
// are visible without turning on global debug logging.
func (d DebugOptions) Log(msg string, fields log.Fields) {
	entry := log.WithFields(fields)
	if d.Enabled {
		entry.Info(msg)
		return
	}
	entry.Debug(msg)
}

// LogRequest logs outgoing request details when request logging is on
func (d DebugOptions) LogRequest(msg string, fields log.Fields) {
	if d.Enabled && d.LogRequests {
		log.WithFields(fields).Info(msg)
	}
}

// LogResponse logs response details when response logging is on
func (d DebugOptions) LogResponse(msg string, fields log.Fields) {
	if d.Enabled && d.LogResponses {
		log.WithFields(fields).Info(msg)
	}
}

// Request is the normalized query passed to every provider
type Request struct {
	Query      string
	IDList     []string // identifiers for lookup providers (arXiv)
	MaxResults int      // 0 means no cap
	Language   string
	Region     string
	SafeSearch SafeSearch
	Page       int
	Start      int
	SortBy     SortBy
	SortOrder  SortOrder
	Timeout    time.Duration // deadline applied by adapters to their own HTTP call
	Debug      DebugOptions
}

// NewRequest creates a request with default values
func NewRequest(query string) *Request {
	return &Request{
		Query:      query,
		MaxResults: DefaultMaxResults,
		Page:       DefaultPage,
		Timeout:    DefaultTimeout,
	}
}

// Validate checks that the request selects something to search for
func (r *Request) Validate() error {
	if r == nil {
		return fmt.Errorf("%w: request is nil", ErrInvalidInput)
	}
	if strings.TrimSpace(r.Query) == "" && len(r.IDList) == 0 {
		return fmt.Errorf("%w: a search query or ID list is required", ErrInvalidInput)
	}
	if r.MaxResults < 0 {
		return fmt.Errorf("%w: max results must not be negative", ErrInvalidInput)
	}
	if r.Page < 0 || r.Start < 0 {
		return fmt.Errorf("%w: pagination values must not be negative", ErrInvalidInput)
	}
	return nil
}

// limit returns the number of results to ask a backend for
func (r *Request) limit(fallback, max int) int {
	n := r.MaxResults
	if n <= 0 {
		n = fallback
	}
	if max > 0 && n > max {
		n = max
	}
	return n
}

// offset returns the zero-based result offset implied by Start or Page
func (r *Request) offset(pageSize int) int {
	if r.Start > 0 {
		return r.Start
	}
	if r.Page > 1 {
		return (r.Page - 1) * pageSize
	}
	return 0
}

// Search runs a single provider, validating the request first and adding
// troubleshooting guidance to failures.
func Search(ctx context.Context, p Provider, req *Request) ([]Result, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	req.Debug.Log("Performing search", log.Fields{"provider": p.Name(), "query": req.Query})

	results, err := p.Search(ctx, req)
	if err != nil {
		hint := Troubleshoot(p.Name(), err)
		req.Debug.Log("Search error", log.Fields{"provider": p.Name(), "error": err.Error()})
		return nil, &SearchError{Provider: p.Name(), Hint: hint, Err: err}
	}

	req.Debug.Log(fmt.Sprintf("Received %d results", len(results)), log.Fields{"provider": p.Name()})
	return results, nil
}
