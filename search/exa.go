package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	log "github.com/sirupsen/logrus"
)

const (
	defaultExaBaseURL    = "https://api.exa.ai"
	defaultExaSearchType = "fast"
	exaMaxResults        = 100
	maxSnippetLength     = 500
)

var exaSearchTypes = map[string]bool{"auto": true, "fast": true, "keyword": true, "neural": true}

// ExaProvider handles web searches using Exa AI
type ExaProvider struct {
	apiKey      string
	httpClient  HTTPDoer
	baseURL     string
	searchType  string
	includeText bool
}

// NewExaProvider creates an Exa provider
func NewExaProvider(apiKey string, client HTTPDoer) (*ExaProvider, error) {
	if apiKey == "" {
		return nil, &ConfigError{Provider: "exa", Field: "api_key", Message: "Exa API key is required"}
	}
	return &ExaProvider{
		apiKey:      apiKey,
		httpClient:  client,
		baseURL:     defaultExaBaseURL,
		searchType:  defaultExaSearchType,
		includeText: true,
	}, nil
}

// WithSearchType selects the Exa search mode (auto, fast, keyword, neural)
func (p *ExaProvider) WithSearchType(searchType string) (*ExaProvider, error) {
	if !exaSearchTypes[searchType] {
		return nil, &ConfigError{Provider: "exa", Field: "type", Message: fmt.Sprintf("unsupported search type %q", searchType)}
	}
	p.searchType = searchType
	return p, nil
}

// WithBaseURL points the provider at a different API host
func (p *ExaProvider) WithBaseURL(baseURL string) *ExaProvider {
	p.baseURL = baseURL
	return p
}

func (p *ExaProvider) Name() string {
	return "exa"
}

// Config implements Configurer
func (p *ExaProvider) Config() map[string]string {
	return map[string]string{
		"api_key":          RedactedValue,
		"base_url":         p.baseURL,
		"type":             p.searchType,
		"include_contents": strconv.FormatBool(p.includeText),
	}
}

// exaRequest represents the Exa API request body
type exaRequest struct {
	Query      string       `json:"query"`
	Type       string       `json:"type,omitempty"`
	NumResults int          `json:"numResults"`
	Contents   *exaContents `json:"contents,omitempty"`
}

type exaContents struct {
	Text *exaText `json:"text,omitempty"`
}

type exaText struct {
	MaxCharacters int `json:"maxCharacters,omitempty"`
}

// exaResponse represents the Exa API response structure
type exaResponse struct {
	RequestID string      `json:"requestId,omitempty"`
	Results   []exaResult `json:"results"`
	Error     string      `json:"error,omitempty"`
}

type exaResult struct {
	ID            string   `json:"id,omitempty"`
	Title         string   `json:"title"`
	URL           string   `json:"url"`
	Text          string   `json:"text"`
	Favicon       string   `json:"favicon,omitempty"`
	PublishedDate string   `json:"publishedDate,omitempty"`
	Author        string   `json:"author,omitempty"`
	Score         *float64 `json:"score,omitempty"`
}

// Search performs an Exa web search
func (p *ExaProvider) Search(ctx context.Context, req *Request) ([]Result, error) {
	if req.Query == "" {
		return nil, fmt.Errorf("%w: query cannot be empty", ErrInvalidInput)
	}

	reqBody := exaRequest{
		Query:      req.Query,
		Type:       p.searchType,
		NumResults: req.limit(DefaultMaxResults, exaMaxResults),
	}
	if p.includeText {
		reqBody.Contents = &exaContents{Text: &exaText{MaxCharacters: maxSnippetLength * 4}}
	}

	jsonBody, err := json.Marshal(reqBody)
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
	httpReq.Header.Set("x-api-key", p.apiKey)

	req.Debug.LogRequest("Exa API request", log.Fields{"url": httpReq.URL.String(), "query": req.Query})

	var data exaResponse
	if err := doJSON(p.httpClient, p.Name(), httpReq, &data); err != nil {
		return nil, err
	}
	if data.Error != "" {
		return nil, fmt.Errorf("exa API error: %s", data.Error)
	}

	req.Debug.LogResponse("Exa API response", log.Fields{"results": len(data.Results), "request_id": data.RequestID})

	results := make([]Result, 0, len(data.Results))
	for _, item := range data.Results {
		raw := map[string]any{"id": item.ID}
		if item.Score != nil {
			raw["score"] = *item.Score
		}
		if item.Author != "" {
			raw["author"] = item.Author
		}
		if item.Favicon != "" {
			raw["favicon"] = item.Favicon
		}
		results = append(results, Result{
			Title:         item.Title,
			URL:           item.URL,
			Snippet:       truncate(item.Text, maxSnippetLength),
			Domain:        extractDomain(item.URL),
			PublishedDate: item.PublishedDate,
			Provider:      p.Name(),
			Raw:           raw,
		})
	}

	return results, nil
}
