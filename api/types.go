package api

import (
	"context"
	"time"

	"github.com/tinfoilsh/multisearch/orchestrator"
	"github.com/tinfoilsh/multisearch/pipeline"
	"github.com/tinfoilsh/multisearch/search"
)

const (
	MaxRequestBodySize = 1 << 20 // 1 MB
	RequestTimeout     = 2 * time.Minute
)

// Executor runs a search request through the pipeline
type Executor interface {
	Execute(ctx context.Context, req *pipeline.Request, emitter pipeline.EventEmitter) (*pipeline.Context, error)
}

// Orchestrator is the read-only view of the orchestrator used by the
// stats and provider endpoints
type Orchestrator interface {
	Stats() map[string]orchestrator.ProviderStats
	Providers() []search.Provider
	Strategy() orchestrator.Strategy
}

// Server holds all dependencies for the HTTP handlers
type Server struct {
	Pipeline     Executor
	Orchestrator Orchestrator
	Service      string
}

// SearchResponse is the non-streaming response body of /v1/search
type SearchResponse struct {
	ID        string          `json:"id"`
	Object    string          `json:"object"`
	Strategy  string          `json:"strategy"`
	Query     string          `json:"query,omitempty"`
	Results   []search.Result `json:"results"`
	ElapsedMS int64           `json:"elapsed_ms"`
}

// ProviderCallEvent reports a provider invocation in streaming output
type ProviderCallEvent struct {
	Type     string `json:"type"`
	Provider string `json:"provider"`
	Status   string `json:"status"`
	Reason   string `json:"reason,omitempty"`
}

// ResultsEvent carries the final results in streaming output
type ResultsEvent struct {
	Type    string          `json:"type"`
	Results []search.Result `json:"results"`
}

// ProviderInfo describes a configured provider
type ProviderInfo struct {
	Name   string            `json:"name"`
	Config map[string]string `json:"config"`
}

// ProvidersResponse is the response body of /v1/providers
type ProvidersResponse struct {
	Strategy  string         `json:"strategy"`
	Providers []ProviderInfo `json:"providers"`
}

// StatsResponse is the response body of /v1/stats
type StatsResponse struct {
	Strategy string                                `json:"strategy"`
	Stats    map[string]orchestrator.ProviderStats `json:"stats"`
}
