package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	"github.com/tinfoilsh/multisearch/pipeline"
	"github.com/tinfoilsh/multisearch/search"
)

// SSEEmitter implements pipeline.EventEmitter for Server-Sent Events.
// Provider events arrive from concurrent searches, so writes are serialized.
type SSEEmitter struct {
	mu      sync.Mutex
	w       http.ResponseWriter
	flusher http.Flusher
}

// NewSSEEmitter creates a new SSE emitter from a response writer
func NewSSEEmitter(w http.ResponseWriter) (*SSEEmitter, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, fmt.Errorf("streaming not supported")
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	return &SSEEmitter{w: w, flusher: flusher}, nil
}

func (e *SSEEmitter) EmitProviderCall(provider, status, reason string) error {
	return e.emitJSON(ProviderCallEvent{
		Type:     "provider_call",
		Provider: provider,
		Status:   status,
		Reason:   reason,
	})
}

func (e *SSEEmitter) EmitResults(results []search.Result) error {
	if results == nil {
		results = []search.Result{}
	}
	return e.emitJSON(ResultsEvent{Type: "search.results", Results: results})
}

// EmitError emits the error body produced by pipeline.ErrorResponse
func (e *SSEEmitter) EmitError(err error) error {
	_, body := pipeline.ErrorResponse(err)
	return e.emitJSON(body)
}

// EmitDone emits the final done signal
func (e *SSEEmitter) EmitDone() error {
	return e.write([]byte("[DONE]"))
}

func (e *SSEEmitter) emitJSON(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return e.write(data)
}

func (e *SSEEmitter) write(data []byte) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, err := fmt.Fprintf(e.w, "data: %s\n\n", data); err != nil {
		return err
	}
	e.flusher.Flush()
	return nil
}

var _ pipeline.EventEmitter = (*SSEEmitter)(nil)
