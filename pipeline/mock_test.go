package pipeline

import (
	"context"
	"sync"

	"github.com/tinfoilsh/multisearch/search"
)

// MockStage implements Stage for testing
type MockStage struct {
	name        string
	executeFunc func(ctx *Context) error
	executed    bool
}

func (s *MockStage) Name() string {
	return s.name
}

func (s *MockStage) Execute(ctx *Context) error {
	s.executed = true
	if s.executeFunc != nil {
		return s.executeFunc(ctx)
	}
	return nil
}

// MockSearcher implements Searcher for testing
type MockSearcher struct {
	results  []search.Result
	err      error
	searchFn func(ctx context.Context, req *search.Request) ([]search.Result, error)
	lastReq  *search.Request
}

func (m *MockSearcher) Search(ctx context.Context, req *search.Request) ([]search.Result, error) {
	m.lastReq = req
	if m.searchFn != nil {
		return m.searchFn(ctx, req)
	}
	return m.results, m.err
}

type providerCall struct {
	provider string
	status   string
	reason   string
}

// MockEmitter records emitted events
type MockEmitter struct {
	mu      sync.Mutex
	calls   []providerCall
	results []search.Result
	errs    []error
	done    bool
}

func (m *MockEmitter) EmitProviderCall(provider, status, reason string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, providerCall{provider, status, reason})
	return nil
}

func (m *MockEmitter) EmitResults(results []search.Result) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.results = results
	return nil
}

func (m *MockEmitter) EmitError(err error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errs = append(m.errs, err)
	return nil
}

func (m *MockEmitter) EmitDone() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.done = true
	return nil
}

func intPtr(n int) *int { return &n }
