package pipeline

import (
	"context"

	"github.com/tinfoilsh/multisearch/search"
)

// Request is the search request as received from a client
type Request struct {
	Query      string   `json:"query"`
	IDList     []string `json:"id_list,omitempty"`
	MaxResults *int     `json:"max_results,omitempty"`
	Language   string   `json:"language,omitempty"`
	Region     string   `json:"region,omitempty"`
	SafeSearch string   `json:"safe_search,omitempty"`
	Page       int      `json:"page,omitempty"`
	Start      int      `json:"start,omitempty"`
	SortBy     string   `json:"sort_by,omitempty"`
	SortOrder  string   `json:"sort_order,omitempty"`
	TimeoutMS  int      `json:"timeout_ms,omitempty"`
	Debug      bool     `json:"debug,omitempty"`
	Stream     bool     `json:"stream,omitempty"`
}

// Context carries request data through the pipeline
type Context struct {
	context.Context

	RequestID string

	Request       *Request
	SearchRequest *search.Request

	Results []search.Result

	State StateTracker

	// nil for non-streaming requests
	Emitter EventEmitter

	Cancel context.CancelFunc
}

// NewContext creates a pipeline context
func NewContext(ctx context.Context, requestID string, req *Request) *Context {
	return &Context{
		Context:   ctx,
		RequestID: requestID,
		Request:   req,
		State:     NewStateTracker(),
	}
}

// IsStreaming reports whether events are emitted while the search runs
func (c *Context) IsStreaming() bool {
	return c.Emitter != nil
}

// EventEmitter handles streaming output events
type EventEmitter interface {
	// EmitProviderCall reports a provider invocation. reason is set for failures.
	EmitProviderCall(provider, status, reason string) error

	EmitResults(results []search.Result) error

	EmitError(err error) error

	EmitDone() error
}
