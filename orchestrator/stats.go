package orchestrator

import (
	"sync"
	"time"
)

// ProviderStats is a snapshot of one provider's call accounting.
// TotalRequests always equals SuccessfulRequests + FailedRequests.
type ProviderStats struct {
	TotalRequests      uint64  `json:"total_requests"`
	SuccessfulRequests uint64  `json:"successful_requests"`
	FailedRequests     uint64  `json:"failed_requests"`
	AvgResponseTimeMS  float64 `json:"avg_response_time_ms"` // mean over successful calls only
}

type statsEntry struct {
	mu    sync.Mutex
	stats ProviderStats
}

func (e *statsEntry) recordSuccess(elapsed time.Duration) {
	ms := float64(elapsed.Microseconds()) / 1000

	e.mu.Lock()
	defer e.mu.Unlock()

	e.stats.TotalRequests++
	e.stats.SuccessfulRequests++
	n := float64(e.stats.SuccessfulRequests)
	e.stats.AvgResponseTimeMS = (e.stats.AvgResponseTimeMS*(n-1) + ms) / n
}

func (e *statsEntry) recordFailure() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.stats.TotalRequests++
	e.stats.FailedRequests++
}

func (e *statsEntry) snapshot() ProviderStats {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.stats
}

// statsTracker keys entries by provider name. Entries are created at
// registration and never removed.
type statsTracker struct {
	mu      sync.RWMutex
	entries map[string]*statsEntry
}

func newStatsTracker() *statsTracker {
	return &statsTracker{entries: make(map[string]*statsEntry)}
}

func (t *statsTracker) register(name string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.entries[name]; !ok {
		t.entries[name] = &statsEntry{}
	}
}

func (t *statsTracker) entry(name string) *statsEntry {
	t.mu.RLock()
	e, ok := t.entries[name]
	t.mu.RUnlock()
	if ok {
		return e
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if e, ok = t.entries[name]; !ok {
		e = &statsEntry{}
		t.entries[name] = e
	}
	return e
}

func (t *statsTracker) snapshot() map[string]ProviderStats {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make(map[string]ProviderStats, len(t.entries))
	for name, e := range t.entries {
		out[name] = e.snapshot()
	}
	return out
}
