//go:build integration

package search

import (
	"context"
	"os"
	"testing"
	"time"
)

func TestProviders_Integration_RealSearch(t *testing.T) {
	cfg := Config{
		ExaAPIKey:    os.Getenv("EXA_API_KEY"),
		TavilyAPIKey: os.Getenv("TAVILY_API_KEY"),
		BraveAPIKey:  os.Getenv("BRAVE_API_KEY"),
		GoogleAPIKey: os.Getenv("GOOGLE_API_KEY"),
		GoogleCX:     os.Getenv("GOOGLE_CX"),
		SerpAPIKey:   os.Getenv("SERPAPI_API_KEY"),
		SearXNGURL:   os.Getenv("SEARXNG_URL"),
	}

	for _, name := range AvailableProviders(cfg) {
		t.Run(name, func(t *testing.T) {
			provider, err := NewProvider(name, cfg)
			if err != nil {
				t.Fatalf("failed to create provider: %v", err)
			}

			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			req := NewRequest("golang testing best practices")
			req.MaxResults = 3
			results, err := Search(ctx, provider, req)
			if err != nil {
				t.Fatalf("search failed: %v", err)
			}
			if len(results) == 0 {
				t.Error("expected at least one result")
			}
			for i, r := range results {
				if r.URL == "" {
					t.Errorf("result %d: URL should not be empty", i)
				}
				if r.Provider != name {
					t.Errorf("result %d: expected provider %s, got %s", i, name, r.Provider)
				}
			}
		})
	}
}

func TestArxivProvider_Integration_IDLookup(t *testing.T) {
	p := NewArxivProvider(NewHTTPClient())

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	results, err := p.Search(ctx, &Request{IDList: []string{"1706.03762"}})
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	if results[0].Domain != "arxiv.org" {
		t.Errorf("expected arxiv.org domain, got %s", results[0].Domain)
	}
}
