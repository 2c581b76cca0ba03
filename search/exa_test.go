package search

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func newTestExaProvider(t *testing.T, serverURL string) *ExaProvider {
	t.Helper()
	p, err := NewExaProvider("test-api-key", &http.Client{Timeout: 5 * time.Second})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return p.WithBaseURL(serverURL)
}

func TestNewExaProvider_MissingAPIKey(t *testing.T) {
	_, err := NewExaProvider("", NewHTTPClient())
	var cfgErr *ConfigError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("expected ConfigError, got %v", err)
	}
	if cfgErr.Field != "api_key" {
		t.Errorf("expected field api_key, got %s", cfgErr.Field)
	}
}

func TestExaProvider_WithSearchType(t *testing.T) {
	p, _ := NewExaProvider("key", NewHTTPClient())
	if _, err := p.WithSearchType("neural"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Config()["type"] != "neural" {
		t.Errorf("expected type neural, got %s", p.Config()["type"])
	}
	if _, err := p.WithSearchType("psychic"); err == nil {
		t.Error("expected error for unsupported search type")
	}
}

func TestExaProvider_Search_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		if r.URL.Path != "/search" {
			t.Errorf("expected /search, got %s", r.URL.Path)
		}
		if r.Header.Get("Content-Type") != "application/json" {
			t.Errorf("expected Content-Type application/json")
		}
		if r.Header.Get("x-api-key") != "test-api-key" {
			t.Errorf("expected x-api-key header")
		}

		var reqBody exaRequest
		json.NewDecoder(r.Body).Decode(&reqBody)
		if reqBody.Query != "test query" {
			t.Errorf("expected query 'test query', got '%s'", reqBody.Query)
		}
		if reqBody.NumResults != 3 {
			t.Errorf("expected numResults 3, got %d", reqBody.NumResults)
		}
		if reqBody.Type != "fast" {
			t.Errorf("expected type 'fast', got '%s'", reqBody.Type)
		}

		score := 0.9
		resp := exaResponse{
			RequestID: "req-1",
			Results: []exaResult{
				{
					ID:            "doc-1",
					Title:         "Result 1",
					URL:           "https://www.example.com/1",
					Text:          "Content 1",
					Favicon:       "https://example.com/favicon.ico",
					PublishedDate: "2024-01-01",
					Score:         &score,
				},
				{
					Title: "Result 2",
					URL:   "https://example.com/2",
					Text:  strings.Repeat("x", 900),
				},
			},
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	provider := newTestExaProvider(t, server.URL)
	req := NewRequest("test query")
	req.MaxResults = 3
	results, err := provider.Search(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].Title != "Result 1" {
		t.Errorf("expected title 'Result 1', got '%s'", results[0].Title)
	}
	if results[0].Snippet != "Content 1" {
		t.Errorf("expected snippet 'Content 1', got '%s'", results[0].Snippet)
	}
	if results[0].Domain != "example.com" {
		t.Errorf("expected domain 'example.com', got '%s'", results[0].Domain)
	}
	if results[0].Provider != "exa" {
		t.Errorf("expected provider 'exa', got '%s'", results[0].Provider)
	}
	if results[0].Raw["favicon"] != "https://example.com/favicon.ico" {
		t.Errorf("expected favicon in raw data, got %v", results[0].Raw["favicon"])
	}
	if results[0].Raw["score"] != 0.9 {
		t.Errorf("expected score 0.9 in raw data, got %v", results[0].Raw["score"])
	}
	if len(results[1].Snippet) != maxSnippetLength+3 {
		t.Errorf("expected truncated snippet, got length %d", len(results[1].Snippet))
	}
}

func TestExaProvider_Search_EmptyResults(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"results":[]}`))
	}))
	defer server.Close()

	provider := newTestExaProvider(t, server.URL)
	results, err := provider.Search(context.Background(), NewRequest("no results query"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("expected 0 results, got %d", len(results))
	}
}

func TestExaProvider_Search_HTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error": "Invalid API key"}`))
	}))
	defer server.Close()

	provider := newTestExaProvider(t, server.URL)
	_, err := provider.Search(context.Background(), NewRequest("test"))
	if err == nil {
		t.Fatal("expected error for 401 response")
	}

	var httpErr *HTTPError
	if !errors.As(err, &httpErr) {
		t.Fatalf("expected HTTPError, got %T", err)
	}
	if httpErr.StatusCode != http.StatusUnauthorized {
		t.Errorf("expected status 401, got %d", httpErr.StatusCode)
	}
	if !strings.Contains(httpErr.Body, "Invalid API key") {
		t.Errorf("expected body to be captured, got %q", httpErr.Body)
	}
	if !errors.Is(err, ErrUnauthorized) {
		t.Error("expected error to match ErrUnauthorized")
	}
}

func TestExaProvider_Search_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"results": [], "error": "quota exhausted"}`))
	}))
	defer server.Close()

	provider := newTestExaProvider(t, server.URL)
	_, err := provider.Search(context.Background(), NewRequest("test"))
	if err == nil || !strings.Contains(err.Error(), "quota exhausted") {
		t.Fatalf("expected API error, got %v", err)
	}
}

func TestExaProvider_Search_InvalidJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{invalid json`))
	}))
	defer server.Close()

	provider := newTestExaProvider(t, server.URL)
	_, err := provider.Search(context.Background(), NewRequest("test"))
	var parseErr *ParseError
	if !errors.As(err, &parseErr) {
		t.Fatalf("expected ParseError, got %v", err)
	}
}

func TestExaProvider_Search_RequestTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(2 * time.Second):
		case <-r.Context().Done():
		}
	}))
	defer server.Close()

	provider := newTestExaProvider(t, server.URL)
	req := NewRequest("test")
	req.Timeout = 50 * time.Millisecond

	_, err := provider.Search(context.Background(), req)
	if err == nil {
		t.Fatal("expected error for request timeout")
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected deadline exceeded, got %v", err)
	}
}

func TestExaProvider_Search_EmptyQuery(t *testing.T) {
	provider := newTestExaProvider(t, "http://127.0.0.1:0")
	_, err := provider.Search(context.Background(), &Request{})
	if !errors.Is(err, ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput, got %v", err)
	}
}
