package search

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	log "github.com/sirupsen/logrus"
)

const (
	defaultDuckDuckGoBaseURL = "https://html.duckduckgo.com/html"
	duckDuckGoUserAgent      = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36"
	duckDuckGoPageSize       = 30

	// DefaultDuckDuckGoRate is the request rate used when none is configured
	DefaultDuckDuckGoRate = 1.0
)

// DuckDuckGoProvider scrapes the DuckDuckGo HTML endpoint. It needs no API
// key, so the client should be rate limited to avoid being blocked.
type DuckDuckGoProvider struct {
	httpClient HTTPDoer
	baseURL    string
}

// NewDuckDuckGoProvider creates a DuckDuckGo provider
func NewDuckDuckGoProvider(client HTTPDoer) *DuckDuckGoProvider {
	return &DuckDuckGoProvider{httpClient: client, baseURL: defaultDuckDuckGoBaseURL}
}

// WithBaseURL points the provider at a different host
func (p *DuckDuckGoProvider) WithBaseURL(baseURL string) *DuckDuckGoProvider {
	p.baseURL = baseURL
	return p
}

func (p *DuckDuckGoProvider) Name() string {
	return "duckduckgo"
}

// Config implements Configurer
func (p *DuckDuckGoProvider) Config() map[string]string {
	return map[string]string{"base_url": p.baseURL}
}

// Search scrapes one page of DuckDuckGo HTML results
func (p *DuckDuckGoProvider) Search(ctx context.Context, req *Request) ([]Result, error) {
	if req.Query == "" {
		return nil, fmt.Errorf("%w: query cannot be empty", ErrInvalidInput)
	}

	form := url.Values{}
	form.Set("q", req.Query)
	if offset := req.offset(duckDuckGoPageSize); offset > 0 {
		form.Set("s", strconv.Itoa(offset))
	}
	region := req.Region
	if region == "" {
		region = "wt-wt"
	}
	form.Set("kl", region)
	switch req.SafeSearch {
	case SafeSearchOff:
		form.Set("kp", "-2")
	case SafeSearchStrict:
		form.Set("kp", "1")
	}

	ctx, cancel := withRequestTimeout(ctx, req)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/", strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	httpReq.Header.Set("User-Agent", duckDuckGoUserAgent)
	httpReq.Header.Set("Accept", "text/html")

	req.Debug.LogRequest("DuckDuckGo request", log.Fields{"url": httpReq.URL.String(), "query": req.Query})

	body, err := do(p.httpClient, p.Name(), httpReq)
	if err != nil {
		return nil, err
	}

	results, err := parseDuckDuckGoHTML(body, req.limit(DefaultMaxResults, 0))
	if err != nil {
		return nil, err
	}

	req.Debug.LogResponse("DuckDuckGo response", log.Fields{"results": len(results), "bytes": len(body)})
	return results, nil
}

func parseDuckDuckGoHTML(body []byte, limit int) ([]Result, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, &ParseError{Provider: "duckduckgo", Err: err}
	}

	// The HTML endpoint answers 200 with an anomaly page when it throttles
	if doc.Find(".anomaly-modal__title, #challenge-form").Length() > 0 {
		return nil, &HTTPError{
			Provider:   "duckduckgo",
			StatusCode: http.StatusTooManyRequests,
			Message:    statusMessage(http.StatusTooManyRequests),
		}
	}

	results := make([]Result, 0, limit)
	doc.Find(".result").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if len(results) >= limit {
			return false
		}
		if s.HasClass("result--ad") {
			return true
		}
		link := s.Find(".result__title a, a.result__a").First()
		href, ok := link.Attr("href")
		if !ok {
			return true
		}
		target := unwrapDuckDuckGoURL(href)
		if target == "" {
			return true
		}
		results = append(results, Result{
			Title:    strings.TrimSpace(link.Text()),
			URL:      target,
			Snippet:  strings.TrimSpace(s.Find(".result__snippet").Text()),
			Domain:   extractDomain(target),
			Provider: "duckduckgo",
		})
		return true
	})
	return results, nil
}

// unwrapDuckDuckGoURL resolves /l/?uddg= redirect links and drops ad clicks
func unwrapDuckDuckGoURL(href string) string {
	if strings.HasPrefix(href, "//") {
		href = "https:" + href
	}
	u, err := url.Parse(href)
	if err != nil {
		return ""
	}
	if strings.Contains(u.Path, "y.js") {
		return ""
	}
	if target := u.Query().Get("uddg"); target != "" {
		return target
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return ""
	}
	return u.String()
}
