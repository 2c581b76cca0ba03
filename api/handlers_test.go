package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/tinfoilsh/multisearch/orchestrator"
	"github.com/tinfoilsh/multisearch/pipeline"
	"github.com/tinfoilsh/multisearch/search"
)

type stubProvider struct {
	name    string
	results []search.Result
	err     error
}

func (p *stubProvider) Name() string { return p.name }

func (p *stubProvider) Search(ctx context.Context, req *search.Request) ([]search.Result, error) {
	return p.results, p.err
}

func (p *stubProvider) Config() map[string]string {
	return map[string]string{"api_key": search.RedactedValue}
}

func newTestServer(t *testing.T, strategy orchestrator.Strategy, providers ...search.Provider) *Server {
	t.Helper()
	cfg := orchestrator.DefaultConfig()
	cfg.Strategy = strategy
	cfg.TimeoutPerProvider = time.Second
	orch, err := orchestrator.New(cfg, providers...)
	if err != nil {
		t.Fatalf("failed to create orchestrator: %v", err)
	}
	p := pipeline.NewPipeline([]pipeline.Stage{
		&pipeline.ValidateStage{},
		&pipeline.SearchStage{Searcher: orch},
	}, 5*time.Second)
	return &Server{Pipeline: p, Orchestrator: orch}
}

func postSearch(t *testing.T, srv *Server, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/v1/search", bytes.NewBufferString(body))
	w := httptest.NewRecorder()
	srv.Routes().ServeHTTP(w, req)
	return w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}
	inner, ok := body["error"].(map[string]any)
	if !ok {
		t.Fatalf("expected error object, got %v", body)
	}
	return inner
}

func TestHandleSearch_Success(t *testing.T) {
	srv := newTestServer(t, orchestrator.Failover,
		&stubProvider{name: "brave", err: errors.New("down")},
		&stubProvider{name: "exa", results: []search.Result{{Title: "Go", URL: "https://go.dev", Provider: "exa"}}},
	)

	w := postSearch(t, srv, `{"query":"golang","max_results":5}`)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("expected application/json, got %s", ct)
	}

	var resp SearchResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Object != "search.result" || resp.Strategy != "failover" {
		t.Errorf("unexpected envelope: %+v", resp)
	}
	if !strings.HasPrefix(resp.ID, "search_") {
		t.Errorf("expected search_ id prefix, got %s", resp.ID)
	}
	if len(resp.Results) != 1 || resp.Results[0].Provider != "exa" {
		t.Errorf("expected exa result, got %+v", resp.Results)
	}
}

func TestHandleSearch_EmptyResultsIsArray(t *testing.T) {
	srv := newTestServer(t, orchestrator.Aggregate, &stubProvider{name: "exa", results: nil})

	w := postSearch(t, srv, `{"query":"nothing"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"results":[]`) {
		t.Errorf("expected empty results array, got %s", w.Body.String())
	}
}

func TestHandleSearch_Errors(t *testing.T) {
	tests := []struct {
		name       string
		providers  []search.Provider
		body       string
		wantStatus int
		wantType   string
	}{
		{
			name:       "missing query",
			providers:  []search.Provider{&stubProvider{name: "exa"}},
			body:       `{"query":""}`,
			wantStatus: http.StatusBadRequest,
			wantType:   "validation_error",
		},
		{
			name:       "bad safe search",
			providers:  []search.Provider{&stubProvider{name: "exa"}},
			body:       `{"query":"q","safe_search":"extreme"}`,
			wantStatus: http.StatusBadRequest,
			wantType:   "validation_error",
		},
		{
			name:       "no providers",
			body:       `{"query":"q"}`,
			wantStatus: http.StatusServiceUnavailable,
			wantType:   "configuration_error",
		},
		{
			name: "provider failure",
			providers: []search.Provider{
				&stubProvider{name: "exa", err: errors.New("down")},
			},
			body:       `{"query":"q"}`,
			wantStatus: http.StatusBadGateway,
			wantType:   "provider_error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newTestServer(t, orchestrator.Failover, tt.providers...)
			w := postSearch(t, srv, tt.body)
			if w.Code != tt.wantStatus {
				t.Fatalf("expected %d, got %d: %s", tt.wantStatus, w.Code, w.Body.String())
			}
			if got := decodeError(t, w)["type"]; got != tt.wantType {
				t.Errorf("expected type %s, got %v", tt.wantType, got)
			}
		})
	}
}

func TestHandleSearch_AggregateAllFailed(t *testing.T) {
	srv := newTestServer(t, orchestrator.Aggregate,
		&stubProvider{name: "exa", err: errors.New("a")},
		&stubProvider{name: "brave", err: errors.New("b")},
	)

	w := postSearch(t, srv, `{"query":"q"}`)
	if w.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", w.Code)
	}
	failures, ok := decodeError(t, w)["failures"].([]any)
	if !ok || len(failures) != 2 {
		t.Errorf("expected 2 failures, got %v", failures)
	}
}

func TestHandleSearch_InvalidJSON(t *testing.T) {
	srv := newTestServer(t, orchestrator.Failover, &stubProvider{name: "exa"})
	w := postSearch(t, srv, `{not json`)
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
}

func TestHandleSearch_MethodNotAllowed(t *testing.T) {
	srv := newTestServer(t, orchestrator.Failover, &stubProvider{name: "exa"})
	req := httptest.NewRequest(http.MethodGet, "/v1/search", nil)
	w := httptest.NewRecorder()
	srv.Routes().ServeHTTP(w, req)
	if w.Code != http.StatusMethodNotAllowed {
		t.Errorf("expected 405, got %d", w.Code)
	}
}

func TestHandleSearch_BodyTooLarge(t *testing.T) {
	srv := newTestServer(t, orchestrator.Failover, &stubProvider{name: "exa"})
	big := `{"query":"` + strings.Repeat("a", MaxRequestBodySize+1) + `"}`
	w := postSearch(t, srv, big)
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for oversized body, got %d", w.Code)
	}
}

func TestHandleStats(t *testing.T) {
	srv := newTestServer(t, orchestrator.Failover,
		&stubProvider{name: "exa", results: []search.Result{{Title: "a"}}},
		&stubProvider{name: "brave"},
	)
	postSearch(t, srv, `{"query":"q"}`)

	req := httptest.NewRequest(http.MethodGet, "/v1/stats", nil)
	w := httptest.NewRecorder()
	srv.Routes().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var resp StatsResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode: %v", err)
	}
	if resp.Stats["exa"].SuccessfulRequests != 1 {
		t.Errorf("expected 1 exa success, got %+v", resp.Stats["exa"])
	}
	if resp.Stats["brave"].TotalRequests != 0 {
		t.Errorf("expected untouched brave stats, got %+v", resp.Stats["brave"])
	}
}

func TestHandleProviders_KeepsRegistrationOrder(t *testing.T) {
	srv := newTestServer(t, orchestrator.Race,
		&stubProvider{name: "tavily"},
		&stubProvider{name: "exa"},
	)

	req := httptest.NewRequest(http.MethodGet, "/v1/providers", nil)
	w := httptest.NewRecorder()
	srv.Routes().ServeHTTP(w, req)

	var resp ProvidersResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode: %v", err)
	}
	if resp.Strategy != "race" {
		t.Errorf("expected race strategy, got %s", resp.Strategy)
	}
	if len(resp.Providers) != 2 || resp.Providers[0].Name != "tavily" || resp.Providers[1].Name != "exa" {
		t.Errorf("unexpected providers: %+v", resp.Providers)
	}
	if resp.Providers[0].Config["api_key"] != search.RedactedValue {
		t.Errorf("expected redacted config, got %v", resp.Providers[0].Config)
	}
}

func TestRecoveryMiddleware(t *testing.T) {
	handler := RecoveryMiddleware(func(w http.ResponseWriter, r *http.Request) {
		panic("test panic")
	})

	w := httptest.NewRecorder()
	handler(w, httptest.NewRequest(http.MethodGet, "/", nil))

	if w.Code != http.StatusInternalServerError {
		t.Errorf("expected 500, got %d", w.Code)
	}
}

func TestHandleHealthAndRoot(t *testing.T) {
	srv := newTestServer(t, orchestrator.Failover)
	mux := srv.Routes()

	w := httptest.NewRecorder()
	mux.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	if w.Body.String() != `{"status":"ok"}` {
		t.Errorf("unexpected health body: %s", w.Body.String())
	}

	w = httptest.NewRecorder()
	mux.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	if !strings.Contains(w.Body.String(), `"service":"multisearch"`) {
		t.Errorf("unexpected root body: %s", w.Body.String())
	}

	w = httptest.NewRecorder()
	mux.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/missing", nil))
	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", w.Code)
	}
}
