package orchestrator

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/tinfoilsh/multisearch/search"
)

type mockProvider struct {
	name    string
	results []search.Result
	err     error
	delay   time.Duration
	panics  bool

	calls    atomic.Int32
	canceled atomic.Int32
	onCall   func(name string)
	onDone   func(name string)
}

func newMock(name string, n int) *mockProvider {
	return &mockProvider{name: name, results: resultsFor(name, n)}
}

func failing(name string) *mockProvider {
	return &mockProvider{name: name, err: fmt.Errorf("%s unavailable", name)}
}

func resultsFor(name string, n int) []search.Result {
	results := make([]search.Result, n)
	for i := range results {
		results[i] = search.Result{
			Title:    fmt.Sprintf("%s result %d", name, i),
			URL:      fmt.Sprintf("https://%s.example/%d", name, i),
			Provider: name,
		}
	}
	return results
}

func (m *mockProvider) Name() string { return m.name }

func (m *mockProvider) Search(ctx context.Context, req *search.Request) ([]search.Result, error) {
	m.calls.Add(1)
	if m.onCall != nil {
		m.onCall(m.name)
	}
	if m.onDone != nil {
		defer m.onDone(m.name)
	}
	if m.panics {
		panic("backend exploded")
	}
	if m.delay > 0 {
		select {
		case <-time.After(m.delay):
		case <-ctx.Done():
			m.canceled.Add(1)
			return nil, ctx.Err()
		}
	}
	return m.results, m.err
}

// callLog records the order in which providers were invoked
type callLog struct {
	mu    sync.Mutex
	names []string
}

func (l *callLog) record(name string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.names = append(l.names, name)
}

func (l *callLog) list() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.names...)
}
