package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/tinfoilsh/multisearch/pipeline"
	"github.com/tinfoilsh/multisearch/search"
)

// RecoveryMiddleware catches panics and returns 500 instead of crashing
func RecoveryMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				log.Errorf("panic recovered: %v", err)
				jsonError(w, "internal server error", http.StatusInternalServerError)
			}
		}()
		next(w, r)
	}
}

func jsonError(w http.ResponseWriter, message string, code int) {
	log.WithField("code", code).Warn(message)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}

func jsonErrorResponse(w http.ResponseWriter, code int, body map[string]any) {
	log.WithField("code", code).Warn("error response")
	writeJSON(w, code, body)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func parseRequestBody(r *http.Request, v any) error {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		return fmt.Errorf("failed to read request: %w", err)
	}
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("failed to parse request: %w", err)
	}
	return nil
}

// Routes registers the handlers on a new mux
func (s *Server) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/search", RecoveryMiddleware(s.HandleSearch))
	mux.HandleFunc("/v1/stats", RecoveryMiddleware(s.HandleStats))
	mux.HandleFunc("/v1/providers", RecoveryMiddleware(s.HandleProviders))
	mux.HandleFunc("/health", s.HandleHealth)
	mux.HandleFunc("/", s.HandleRoot)
	return mux
}

func (s *Server) HandleSearch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		jsonError(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, MaxRequestBodySize)

	var req pipeline.Request
	if err := parseRequestBody(r, &req); err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}

	if req.Stream {
		s.handleStreamingSearch(w, r, &req)
	} else {
		s.handleNonStreamingSearch(w, r, &req)
	}
}

func (s *Server) handleNonStreamingSearch(w http.ResponseWriter, r *http.Request, req *pipeline.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), RequestTimeout)
	defer cancel()

	start := time.Now()
	pctx, err := s.Pipeline.Execute(ctx, req, nil)
	if pctx != nil && pctx.Cancel != nil {
		defer pctx.Cancel()
	}

	if err != nil {
		status, body := pipeline.ErrorResponse(err)
		jsonErrorResponse(w, status, body)
		return
	}

	results := pctx.Results
	if results == nil {
		results = []search.Result{}
	}

	writeJSON(w, http.StatusOK, SearchResponse{
		ID:        "search_" + pctx.RequestID,
		Object:    "search.result",
		Strategy:  s.Orchestrator.Strategy().String(),
		Query:     pctx.SearchRequest.Query,
		Results:   results,
		ElapsedMS: time.Since(start).Milliseconds(),
	})
}

func (s *Server) handleStreamingSearch(w http.ResponseWriter, r *http.Request, req *pipeline.Request) {
	emitter, err := NewSSEEmitter(w)
	if err != nil {
		jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), RequestTimeout)
	defer cancel()

	pctx, err := s.Pipeline.Execute(ctx, req, emitter)
	if pctx != nil && pctx.Cancel != nil {
		defer pctx.Cancel()
	}

	if err != nil {
		log.WithError(err).Warn("Streaming search failed")
		emitter.EmitError(err)
	}
	emitter.EmitDone()
}

func (s *Server) HandleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonError(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, StatsResponse{
		Strategy: s.Orchestrator.Strategy().String(),
		Stats:    s.Orchestrator.Stats(),
	})
}

func (s *Server) HandleProviders(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonError(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	// registration order is the failover order
	providers := s.Orchestrator.Providers()
	infos := make([]ProviderInfo, 0, len(providers))
	for _, p := range providers {
		infos = append(infos, ProviderInfo{Name: p.Name(), Config: search.ProviderConfig(p)})
	}

	writeJSON(w, http.StatusOK, ProvidersResponse{
		Strategy:  s.Orchestrator.Strategy().String(),
		Providers: infos,
	})
}

func (s *Server) HandleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}

func (s *Server) HandleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		jsonError(w, "not found", http.StatusNotFound)
		return
	}
	service := s.Service
	if service == "" {
		service = "multisearch"
	}
	writeJSON(w, http.StatusOK, map[string]string{"service": service, "status": "ok"})
}
