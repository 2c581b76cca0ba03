package orchestrator

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tinfoilsh/multisearch/search"
)

func newOrchestrator(t *testing.T, strategy Strategy, providers ...search.Provider) *Orchestrator {
	t.Helper()
	o, err := New(Config{Strategy: strategy}, providers...)
	require.NoError(t, err)
	return o
}

func TestNew_Defaults(t *testing.T) {
	o, err := New(Config{})
	require.NoError(t, err)

	cfg := o.Config()
	assert.Equal(t, Failover, cfg.Strategy)
	assert.Equal(t, 10*time.Second, cfg.TimeoutPerProvider)
	assert.Equal(t, 3, cfg.MaxConcurrent)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestNew_InvalidConfig(t *testing.T) {
	tests := []struct {
		name  string
		cfg   Config
		field string
	}{
		{"unknown strategy", Config{Strategy: Strategy(42)}, "strategy"},
		{"negative timeout", Config{TimeoutPerProvider: -time.Second}, "timeout_per_provider"},
		{"negative concurrency", Config{MaxConcurrent: -1}, "max_concurrent"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.cfg)
			var cfgErr *ConfigError
			require.ErrorAs(t, err, &cfgErr)
			assert.Equal(t, tt.field, cfgErr.Field)
		})
	}
}

func TestParseStrategy(t *testing.T) {
	tests := []struct {
		in   string
		want Strategy
	}{
		{"failover", Failover},
		{"load-balance", LoadBalance},
		{"load_balance", LoadBalance},
		{"LoadBalance", LoadBalance},
		{"aggregate", Aggregate},
		{"race", Race},
		{"race-first", Race},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseStrategy(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := ParseStrategy("random")
	assert.Error(t, err)
}

func TestStrategy_TextRoundTrip(t *testing.T) {
	var s Strategy
	require.NoError(t, s.UnmarshalText([]byte("race")))
	assert.Equal(t, Race, s)

	text, err := LoadBalance.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "load-balance", string(text))
	assert.Error(t, s.UnmarshalText([]byte("bogus")))
}

func TestAddProvider_RejectsDuplicates(t *testing.T) {
	o := newOrchestrator(t, Failover, newMock("p1", 1))
	err := o.AddProvider(newMock("p1", 1))
	var cfgErr *ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Len(t, o.Providers(), 1)

	assert.Error(t, o.AddProvider(nil))
}

func TestAddProvider_SealedAfterSearch(t *testing.T) {
	o := newOrchestrator(t, Failover, newMock("p1", 1))
	_, err := o.Search(context.Background(), search.NewRequest("q"))
	require.NoError(t, err)

	err = o.AddProvider(newMock("p2", 1))
	assert.ErrorIs(t, err, ErrProvidersSealed)
}

func TestAddProvider_RegistersZeroStats(t *testing.T) {
	o := newOrchestrator(t, Failover, newMock("p1", 1), newMock("p2", 1))
	stats := o.Stats()
	require.Len(t, stats, 2)
	assert.Equal(t, ProviderStats{}, stats["p1"])
	assert.Equal(t, ProviderStats{}, stats["p2"])
}

func TestSearch_EmptyProviderList(t *testing.T) {
	for _, strategy := range []Strategy{Failover, LoadBalance, Aggregate, Race} {
		t.Run(strategy.String(), func(t *testing.T) {
			o := newOrchestrator(t, strategy)
			results, err := o.Search(context.Background(), search.NewRequest("q"))
			assert.ErrorIs(t, err, ErrNoProvidersConfigured)
			assert.Nil(t, results)
			assert.Empty(t, o.Stats())
		})
	}
}

func TestSearch_NilRequest(t *testing.T) {
	o := newOrchestrator(t, Failover, newMock("p1", 1))
	_, err := o.Search(context.Background(), nil)
	assert.ErrorIs(t, err, search.ErrInvalidInput)
}

func TestSearch_TimeoutScenario(t *testing.T) {
	slow := &mockProvider{name: "slow", delay: 100 * time.Millisecond, results: resultsFor("slow", 1)}
	o, err := New(Config{Strategy: Failover, TimeoutPerProvider: 50 * time.Millisecond}, slow)
	require.NoError(t, err)

	_, err = o.Search(context.Background(), search.NewRequest("q"))
	var timeoutErr *TimeoutError
	require.ErrorAs(t, err, &timeoutErr)
	assert.Equal(t, int64(50), timeoutErr.TimeoutMS())
	assert.Equal(t, "slow", timeoutErr.Provider)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	stats := o.Stats()["slow"]
	assert.Equal(t, uint64(1), stats.FailedRequests)
	assert.Equal(t, uint64(1), stats.TotalRequests)
	assert.Equal(t, uint64(0), stats.SuccessfulRequests)
	assert.Zero(t, stats.AvgResponseTimeMS)
}

func TestSearch_ProviderPanicIsFailure(t *testing.T) {
	o := newOrchestrator(t, Failover, &mockProvider{name: "boom", panics: true}, newMock("ok", 1))

	results, err := o.Search(context.Background(), search.NewRequest("q"))
	require.NoError(t, err)
	assert.Len(t, results, 1)
	assert.Equal(t, uint64(1), o.Stats()["boom"].FailedRequests)
}

func TestSearch_ProviderErrorUnwraps(t *testing.T) {
	cause := errors.New("quota exhausted")
	o := newOrchestrator(t, LoadBalance, &mockProvider{name: "p1", err: cause})

	_, err := o.Search(context.Background(), search.NewRequest("q"))
	var provErr *ProviderError
	require.ErrorAs(t, err, &provErr)
	assert.Equal(t, "p1", provErr.Provider)
	assert.ErrorIs(t, err, cause)
}

func TestSearch_ParentCancellationCountsAsFailure(t *testing.T) {
	slow := &mockProvider{name: "slow", delay: time.Second}
	o := newOrchestrator(t, Failover, slow)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	_, err := o.Search(ctx, search.NewRequest("q"))
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	var timeoutErr *TimeoutError
	assert.False(t, errors.As(err, &timeoutErr))
	assert.Equal(t, uint64(1), o.Stats()["slow"].FailedRequests)
}

func TestStats_InvariantUnderConcurrency(t *testing.T) {
	p1 := newMock("p1", 2)
	p2 := failing("p2")
	p3 := &mockProvider{name: "p3", delay: 5 * time.Millisecond, results: resultsFor("p3", 1)}
	o := newOrchestrator(t, Aggregate, p1, p2, p3)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = o.Search(context.Background(), search.NewRequest("q"))
			for _, s := range o.Stats() {
				assert.Equal(t, s.TotalRequests, s.SuccessfulRequests+s.FailedRequests)
			}
		}()
	}
	wg.Wait()

	stats := o.Stats()
	assert.Equal(t, uint64(20), stats["p1"].SuccessfulRequests)
	assert.Equal(t, uint64(20), stats["p2"].FailedRequests)
	assert.Equal(t, uint64(20), stats["p3"].TotalRequests)
	assert.Greater(t, stats["p3"].AvgResponseTimeMS, 0.0)
}

func TestSearch_ObserverEvents(t *testing.T) {
	o := newOrchestrator(t, Failover, failing("p1"), newMock("p2", 2))

	var mu sync.Mutex
	var events []Event
	ctx := WithObserver(context.Background(), ObserverFunc(func(e Event) {
		mu.Lock()
		defer mu.Unlock()
		events = append(events, e)
	}))

	_, err := o.Search(ctx, search.NewRequest("q"))
	require.NoError(t, err)

	require.Len(t, events, 4)
	assert.Equal(t, Event{Provider: "p1", Status: EventStarted}, events[0])
	assert.Equal(t, EventFailed, events[1].Status)
	assert.Error(t, events[1].Err)
	assert.Equal(t, EventStarted, events[2].Status)
	assert.Equal(t, EventCompleted, events[3].Status)
	assert.Equal(t, 2, events[3].Results)
}
