package search

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	log "github.com/sirupsen/logrus"
)

// SearXNGProvider queries a self-hosted SearXNG instance
type SearXNGProvider struct {
	baseURL    string
	categories string
	httpClient HTTPDoer
}

// NewSearXNGProvider creates a provider for the instance at baseURL
func NewSearXNGProvider(baseURL string, client HTTPDoer) (*SearXNGProvider, error) {
	if baseURL == "" {
		return nil, &ConfigError{Provider: "searxng", Field: "base_url", Message: "SearXNG instance URL is required"}
	}
	u, err := url.Parse(baseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, &ConfigError{Provider: "searxng", Field: "base_url", Message: fmt.Sprintf("invalid instance URL %q", baseURL)}
	}
	return &SearXNGProvider{
		baseURL:    strings.TrimRight(baseURL, "/"),
		categories: "general",
		httpClient: client,
	}, nil
}

func (p *SearXNGProvider) Name() string {
	return "searxng"
}

// Config implements Configurer
func (p *SearXNGProvider) Config() map[string]string {
	return map[string]string{"base_url": p.baseURL, "categories": p.categories}
}

type searxngResponse struct {
	Query   string `json:"query"`
	Results []struct {
		Title         string   `json:"title"`
		URL           string   `json:"url"`
		Content       string   `json:"content"`
		Engine        string   `json:"engine"`
		Engines       []string `json:"engines"`
		Score         float64  `json:"score"`
		PublishedDate *string  `json:"publishedDate,omitempty"`
	} `json:"results"`
}

// Search performs a SearXNG JSON query
func (p *SearXNGProvider) Search(ctx context.Context, req *Request) ([]Result, error) {
	if req.Query == "" {
		return nil, fmt.Errorf("%w: query cannot be empty", ErrInvalidInput)
	}

	ctx, cancel := withRequestTimeout(ctx, req)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"/search", nil)
	if err != nil {
		return nil, err
	}

	q := httpReq.URL.Query()
	q.Set("q", req.Query)
	q.Set("format", "json")
	q.Set("categories", p.categories)
	if req.Page > 1 {
		q.Set("pageno", strconv.Itoa(req.Page))
	}
	if req.Language != "" {
		q.Set("language", req.Language)
	}
	switch req.SafeSearch {
	case SafeSearchOff:
		q.Set("safesearch", "0")
	case SafeSearchModerate:
		q.Set("safesearch", "1")
	case SafeSearchStrict:
		q.Set("safesearch", "2")
	}
	httpReq.URL.RawQuery = q.Encode()
	httpReq.Header.Set("Accept", "application/json")

	req.Debug.LogRequest("SearXNG request", log.Fields{"url": httpReq.URL.String()})

	var data searxngResponse
	if err := doJSON(p.httpClient, p.Name(), httpReq, &data); err != nil {
		return nil, err
	}

	req.Debug.LogResponse("SearXNG response", log.Fields{"results": len(data.Results)})

	limit := req.limit(DefaultMaxResults, 0)
	results := make([]Result, 0, min(len(data.Results), limit))
	for _, item := range data.Results {
		if len(results) >= limit {
			break
		}
		r := Result{
			Title:    item.Title,
			URL:      item.URL,
			Snippet:  item.Content,
			Domain:   extractDomain(item.URL),
			Provider: p.Name(),
			Raw:      map[string]any{"engine": item.Engine, "engines": item.Engines, "score": item.Score},
		}
		if item.PublishedDate != nil {
			r.PublishedDate = *item.PublishedDate
		}
		results = append(results, r)
	}
	return results, nil
}
