package search

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

const (
	httpMaxIdleConns        = 100
	httpMaxIdleConnsPerHost = 100
	httpIdleConnTimeout     = 90 * time.Second
	httpClientTimeout       = 30 * time.Second

	maxErrorBodySize = 4 << 10
)

// HTTPDoer is the subset of *http.Client used by adapters
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// NewHTTPClient creates the pooled client shared by adapters
func NewHTTPClient() *http.Client {
	return &http.Client{
		Transport: &http.Transport{
			Proxy:               http.ProxyFromEnvironment,
			MaxIdleConns:        httpMaxIdleConns,
			MaxIdleConnsPerHost: httpMaxIdleConnsPerHost,
			IdleConnTimeout:     httpIdleConnTimeout,
		},
		Timeout: httpClientTimeout,
	}
}

// RateLimitedClient waits on a token bucket before each request
type RateLimitedClient struct {
	client  HTTPDoer
	limiter *rate.Limiter
}

// NewRateLimitedClient allows perSecond requests with a burst of one
func NewRateLimitedClient(client HTTPDoer, perSecond float64) *RateLimitedClient {
	return &RateLimitedClient{
		client:  client,
		limiter: rate.NewLimiter(rate.Limit(perSecond), 1),
	}
}

// Do implements HTTPDoer
func (c *RateLimitedClient) Do(req *http.Request) (*http.Response, error) {
	if err := c.limiter.Wait(req.Context()); err != nil {
		return nil, err
	}
	return c.client.Do(req)
}

// withRequestTimeout applies the request's own deadline, if any
func withRequestTimeout(ctx context.Context, req *Request) (context.Context, context.CancelFunc) {
	if req.Timeout > 0 {
		return context.WithTimeout(ctx, req.Timeout)
	}
	return context.WithCancel(ctx)
}

// do executes an HTTP request and returns the response body for 2xx answers.
// Other statuses become *HTTPError.
func do(client HTTPDoer, provider string, httpReq *http.Request) ([]byte, error) {
	resp, err := client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%s request failed: %w", provider, err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			log.WithError(closeErr).Warn("Failed to close response body")
		}
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodySize))
		return nil, &HTTPError{
			Provider:   provider,
			StatusCode: resp.StatusCode,
			Message:    statusMessage(resp.StatusCode),
			Body:       string(body),
		}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to read response: %w", provider, err)
	}
	return body, nil
}

// doJSON executes the request and decodes a JSON body into out
func doJSON(client HTTPDoer, provider string, httpReq *http.Request, out any) error {
	body, err := do(client, provider, httpReq)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return &ParseError{Provider: provider, Err: err}
	}
	return nil
}

// extractDomain returns the host of a URL without a leading www.
func extractDomain(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return ""
	}
	return strings.TrimPrefix(u.Hostname(), "www.")
}

// truncate shortens s to n bytes on a rune boundary, adding an ellipsis
func truncate(s string, n int) string {
	if n <= 0 || len(s) <= n {
		return s
	}
	cut := n
	for cut > 0 && !utf8RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}

func utf8RuneStart(b byte) bool {
	return b&0xC0 != 0x80
}

// redactQuery masks credential parameters before a URL is logged
func redactQuery(u *url.URL, keys ...string) string {
	c := *u
	q := c.Query()
	for _, k := range keys {
		if q.Has(k) {
			q.Set(k, RedactedValue)
		}
	}
	c.RawQuery = q.Encode()
	return c.String()
}
