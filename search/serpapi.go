package search

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	log "github.com/sirupsen/logrus"
)

const (
	defaultSerpAPIBaseURL = "https://serpapi.com/search.json"
	defaultSerpAPIEngine  = "google"
	serpAPIMaxResults     = 100
)

// SerpAPIProvider handles web searches through SerpAPI
type SerpAPIProvider struct {
	apiKey     string
	engine     string
	httpClient HTTPDoer
	baseURL    string
}

// NewSerpAPIProvider creates a SerpAPI provider using the Google engine
func NewSerpAPIProvider(apiKey string, client HTTPDoer) (*SerpAPIProvider, error) {
	if apiKey == "" {
		return nil, &ConfigError{Provider: "serpapi", Field: "api_key", Message: "SerpAPI key is required"}
	}
	return &SerpAPIProvider{
		apiKey:     apiKey,
		engine:     defaultSerpAPIEngine,
		httpClient: client,
		baseURL:    defaultSerpAPIBaseURL,
	}, nil
}

// WithEngine selects the SerpAPI engine (google, bing, ...)
func (p *SerpAPIProvider) WithEngine(engine string) *SerpAPIProvider {
	p.engine = engine
	return p
}

// WithBaseURL points the provider at a different API host
func (p *SerpAPIProvider) WithBaseURL(baseURL string) *SerpAPIProvider {
	p.baseURL = baseURL
	return p
}

func (p *SerpAPIProvider) Name() string {
	return "serpapi"
}

// Config implements Configurer
func (p *SerpAPIProvider) Config() map[string]string {
	return map[string]string{"api_key": RedactedValue, "engine": p.engine, "base_url": p.baseURL}
}

type serpAPIResponse struct {
	SearchMetadata *struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	} `json:"search_metadata,omitempty"`
	OrganicResults []struct {
		Position      int    `json:"position"`
		Title         string `json:"title"`
		Link          string `json:"link"`
		DisplayedLink string `json:"displayed_link"`
		Snippet       string `json:"snippet"`
		Date          string `json:"date"`
	} `json:"organic_results"`
	Error string `json:"error,omitempty"`
}

// Search performs a SerpAPI query
func (p *SerpAPIProvider) Search(ctx context.Context, req *Request) ([]Result, error) {
	if req.Query == "" {
		return nil, fmt.Errorf("%w: query cannot be empty", ErrInvalidInput)
	}

	ctx, cancel := withRequestTimeout(ctx, req)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL, nil)
	if err != nil {
		return nil, err
	}

	num := req.limit(DefaultMaxResults, serpAPIMaxResults)
	q := httpReq.URL.Query()
	q.Set("engine", p.engine)
	q.Set("api_key", p.apiKey)
	q.Set("q", req.Query)
	q.Set("num", strconv.Itoa(num))
	if offset := req.offset(num); offset > 0 {
		q.Set("start", strconv.Itoa(offset))
	}
	if req.Language != "" {
		q.Set("hl", req.Language)
	}
	if req.Region != "" {
		q.Set("gl", req.Region)
	}
	switch req.SafeSearch {
	case "":
	case SafeSearchOff:
		q.Set("safe", "off")
	default:
		q.Set("safe", "active")
	}
	httpReq.URL.RawQuery = q.Encode()

	req.Debug.LogRequest("SerpAPI request", log.Fields{"url": redactQuery(httpReq.URL, "api_key")})

	var data serpAPIResponse
	if err := doJSON(p.httpClient, p.Name(), httpReq, &data); err != nil {
		return nil, err
	}
	if data.Error != "" {
		return nil, fmt.Errorf("serpapi error: %s", data.Error)
	}

	req.Debug.LogResponse("SerpAPI response", log.Fields{"results": len(data.OrganicResults)})

	results := make([]Result, 0, len(data.OrganicResults))
	for _, item := range data.OrganicResults {
		results = append(results, Result{
			Title:         item.Title,
			URL:           item.Link,
			Snippet:       item.Snippet,
			Domain:        extractDomain(item.Link),
			PublishedDate: item.Date,
			Provider:      p.Name(),
			Raw:           map[string]any{"position": item.Position, "displayed_link": item.DisplayedLink},
		})
	}
	return results, nil
}
