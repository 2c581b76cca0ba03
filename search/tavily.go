package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	log "github.com/sirupsen/logrus"
)

const (
	defaultTavilyBaseURL = "https://api.tavily.com"
	tavilyKeyPrefix      = "tvly-"
	tavilyMaxResults     = 20
)

// TavilyProvider handles web searches using the Tavily API
type TavilyProvider struct {
	apiKey        string
	httpClient    HTTPDoer
	baseURL       string
	searchDepth   string
	includeAnswer bool
}

// NewTavilyProvider creates a Tavily provider. Tavily keys carry a "tvly-" prefix.
func NewTavilyProvider(apiKey string, client HTTPDoer) (*TavilyProvider, error) {
	if apiKey == "" {
		return nil, &ConfigError{Provider: "tavily", Field: "api_key", Message: "Tavily API key is required"}
	}
	if !strings.HasPrefix(apiKey, tavilyKeyPrefix) {
		return nil, &ConfigError{Provider: "tavily", Field: "api_key", Message: "Tavily API key must start with \"tvly-\""}
	}
	return &TavilyProvider{
		apiKey:      apiKey,
		httpClient:  client,
		baseURL:     defaultTavilyBaseURL,
		searchDepth: "basic",
	}, nil
}

// WithSearchDepth selects basic or advanced search
func (p *TavilyProvider) WithSearchDepth(depth string) (*TavilyProvider, error) {
	if depth != "basic" && depth != "advanced" {
		return nil, &ConfigError{Provider: "tavily", Field: "search_depth", Message: fmt.Sprintf("unsupported search depth %q", depth)}
	}
	p.searchDepth = depth
	return p, nil
}

// WithBaseURL points the provider at a different API host
func (p *TavilyProvider) WithBaseURL(baseURL string) *TavilyProvider {
	p.baseURL = baseURL
	return p
}

func (p *TavilyProvider) Name() string {
	return "tavily"
}

// Config implements Configurer
func (p *TavilyProvider) Config() map[string]string {
	return map[string]string{"api_key": RedactedValue, "base_url": p.baseURL, "search_depth": p.searchDepth}
}

type tavilyRequest struct {
	APIKey        string `json:"api_key"`
	Query         string `json:"query"`
	SearchDepth   string `json:"search_depth"`
	IncludeAnswer bool   `json:"include_answer"`
	MaxResults    int    `json:"max_results"`
}

type tavilyResponse struct {
	Answer  string `json:"answer,omitempty"`
	Results []struct {
		Title         string   `json:"title"`
		URL           string   `json:"url"`
		Content       string   `json:"content"`
		Score         *float64 `json:"score,omitempty"`
		PublishedDate string   `json:"published_date,omitempty"`
	} `json:"results"`
}

// Search performs a Tavily search
func (p *TavilyProvider) Search(ctx context.Context, req *Request) ([]Result, error) {
	if req.Query == "" {
		return nil, fmt.Errorf("%w: query cannot be empty", ErrInvalidInput)
	}

	jsonBody, err := json.Marshal(tavilyRequest{
		APIKey:        p.apiKey,
		Query:         req.Query,
		SearchDepth:   p.searchDepth,
		IncludeAnswer: p.includeAnswer,
		MaxResults:    req.limit(DefaultMaxResults, tavilyMaxResults),
	})
	if err != nil {
		return nil, err
	}

	ctx, cancel := withRequestTimeout(ctx, req)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/search", bytes.NewReader(jsonBody))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	req.Debug.LogRequest("Tavily API request", log.Fields{"url": httpReq.URL.String(), "query": req.Query})

	var data tavilyResponse
	if err := doJSON(p.httpClient, p.Name(), httpReq, &data); err != nil {
		return nil, err
	}

	req.Debug.LogResponse("Tavily API response", log.Fields{"results": len(data.Results)})

	results := make([]Result, 0, len(data.Results))
	for _, item := range data.Results {
		var raw map[string]any
		if item.Score != nil {
			raw = map[string]any{"score": *item.Score}
		}
		results = append(results, Result{
			Title:         item.Title,
			URL:           item.URL,
			Snippet:       truncate(item.Content, maxSnippetLength),
			Domain:        extractDomain(item.URL),
			PublishedDate: item.PublishedDate,
			Provider:      p.Name(),
			Raw:           raw,
		})
	}
	return results, nil
}
