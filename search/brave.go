package search

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	log "github.com/sirupsen/logrus"
)

const (
	defaultBraveBaseURL = "https://api.search.brave.com/res/v1"
	braveMaxResults     = 20
	braveMaxOffset      = 9
)

// BraveProvider handles web searches using the Brave Search API
type BraveProvider struct {
	apiKey     string
	httpClient HTTPDoer
	baseURL    string
}

// NewBraveProvider creates a Brave provider
func NewBraveProvider(apiKey string, client HTTPDoer) (*BraveProvider, error) {
	if apiKey == "" {
		return nil, &ConfigError{Provider: "brave", Field: "api_key", Message: "Brave API key is required"}
	}
	return &BraveProvider{apiKey: apiKey, httpClient: client, baseURL: defaultBraveBaseURL}, nil
}

// WithBaseURL points the provider at a different API host
func (p *BraveProvider) WithBaseURL(baseURL string) *BraveProvider {
	p.baseURL = baseURL
	return p
}

func (p *BraveProvider) Name() string {
	return "brave"
}

// Config implements Configurer
func (p *BraveProvider) Config() map[string]string {
	return map[string]string{"api_key": RedactedValue, "base_url": p.baseURL}
}

// braveResponse represents the Brave web search response structure
type braveResponse struct {
	Web *struct {
		Results []struct {
			Title       string `json:"title"`
			URL         string `json:"url"`
			Description string `json:"description"`
			Age         string `json:"age,omitempty"`
			PageAge     string `json:"page_age,omitempty"`
			MetaURL     struct {
				Hostname string `json:"hostname"`
			} `json:"meta_url"`
		} `json:"results"`
	} `json:"web,omitempty"`
}

// Search performs a Brave web search
func (p *BraveProvider) Search(ctx context.Context, req *Request) ([]Result, error) {
	if req.Query == "" {
		return nil, fmt.Errorf("%w: query cannot be empty", ErrInvalidInput)
	}

	ctx, cancel := withRequestTimeout(ctx, req)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"/web/search", nil)
	if err != nil {
		return nil, err
	}

	count := req.limit(DefaultMaxResults, braveMaxResults)
	q := httpReq.URL.Query()
	q.Set("q", req.Query)
	q.Set("count", strconv.Itoa(count))
	// Brave's offset counts pages, not results
	if req.Page > 1 {
		q.Set("offset", strconv.Itoa(min(req.Page-1, braveMaxOffset)))
	}
	if req.Region != "" {
		q.Set("country", req.Region)
	}
	if req.Language != "" {
		q.Set("search_lang", req.Language)
	}
	if req.SafeSearch != "" {
		q.Set("safesearch", string(req.SafeSearch))
	}
	httpReq.URL.RawQuery = q.Encode()
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("X-Subscription-Token", p.apiKey)

	req.Debug.LogRequest("Brave API request", log.Fields{"url": httpReq.URL.String()})

	var data braveResponse
	if err := doJSON(p.httpClient, p.Name(), httpReq, &data); err != nil {
		return nil, err
	}
	if data.Web == nil {
		return []Result{}, nil
	}

	req.Debug.LogResponse("Brave API response", log.Fields{"results": len(data.Web.Results)})

	results := make([]Result, 0, len(data.Web.Results))
	for _, item := range data.Web.Results {
		domain := item.MetaURL.Hostname
		if domain == "" {
			domain = extractDomain(item.URL)
		}
		published := item.PageAge
		if published == "" {
			published = item.Age
		}
		results = append(results, Result{
			Title:         item.Title,
			URL:           item.URL,
			Snippet:       item.Description,
			Domain:        domain,
			PublishedDate: published,
			Provider:      p.Name(),
		})
	}
	return results, nil
}
