package search

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	log "github.com/sirupsen/logrus"
)

const (
	defaultGoogleBaseURL = "https://www.googleapis.com/customsearch/v1"
	googleMaxResults     = 10
)

// GoogleProvider handles web searches using the Google Custom Search API
type GoogleProvider struct {
	apiKey     string
	cx         string
	httpClient HTTPDoer
	baseURL    string
}

// NewGoogleProvider creates a Google provider. Both the API key and the
// search engine ID (cx) are required.
func NewGoogleProvider(apiKey, cx string, client HTTPDoer) (*GoogleProvider, error) {
	if apiKey == "" {
		return nil, &ConfigError{Provider: "google", Field: "api_key", Message: "Google API key is required"}
	}
	if cx == "" {
		return nil, &ConfigError{Provider: "google", Field: "cx", Message: "Google Search Engine ID (cx) is required"}
	}
	return &GoogleProvider{apiKey: apiKey, cx: cx, httpClient: client, baseURL: defaultGoogleBaseURL}, nil
}

// WithBaseURL points the provider at a different API host
func (p *GoogleProvider) WithBaseURL(baseURL string) *GoogleProvider {
	p.baseURL = baseURL
	return p
}

func (p *GoogleProvider) Name() string {
	return "google"
}

// Config implements Configurer
func (p *GoogleProvider) Config() map[string]string {
	return map[string]string{"api_key": RedactedValue, "cx": p.cx, "base_url": p.baseURL}
}

type googleResponse struct {
	Items []struct {
		Title       string `json:"title"`
		Link        string `json:"link"`
		DisplayLink string `json:"displayLink"`
		Snippet     string `json:"snippet"`
		Pagemap     struct {
			Metatags []map[string]string `json:"metatags"`
		} `json:"pagemap"`
	} `json:"items"`
	SearchInformation struct {
		TotalResults string  `json:"totalResults"`
		SearchTime   float64 `json:"searchTime"`
	} `json:"searchInformation"`
}

// Search performs a Google Custom Search query
func (p *GoogleProvider) Search(ctx context.Context, req *Request) ([]Result, error) {
	if req.Query == "" {
		return nil, fmt.Errorf("%w: query cannot be empty", ErrInvalidInput)
	}

	ctx, cancel := withRequestTimeout(ctx, req)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL, nil)
	if err != nil {
		return nil, err
	}

	num := req.limit(DefaultMaxResults, googleMaxResults)
	q := httpReq.URL.Query()
	q.Set("key", p.apiKey)
	q.Set("cx", p.cx)
	q.Set("q", req.Query)
	q.Set("num", strconv.Itoa(num))
	if offset := req.offset(num); offset > 0 {
		q.Set("start", strconv.Itoa(offset+1))
	}
	if req.Language != "" {
		q.Set("lr", "lang_"+req.Language)
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

	req.Debug.LogRequest("Google Search request", log.Fields{"url": redactQuery(httpReq.URL, "key")})

	var data googleResponse
	if err := doJSON(p.httpClient, p.Name(), httpReq, &data); err != nil {
		return nil, err
	}

	req.Debug.LogResponse("Google Search response", log.Fields{
		"results":       len(data.Items),
		"total_results": data.SearchInformation.TotalResults,
	})

	results := make([]Result, 0, len(data.Items))
	for _, item := range data.Items {
		results = append(results, Result{
			Title:         item.Title,
			URL:           item.Link,
			Snippet:       item.Snippet,
			Domain:        item.DisplayLink,
			PublishedDate: googlePublishedDate(item.Pagemap.Metatags),
			Provider:      p.Name(),
		})
	}
	return results, nil
}

func googlePublishedDate(metatags []map[string]string) string {
	if len(metatags) == 0 {
		return ""
	}
	for _, key := range []string{"article:published_time", "date", "og:updated_time"} {
		if v := metatags[0][key]; v != "" {
			return v
		}
	}
	return ""
}
