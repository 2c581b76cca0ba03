package orchestrator

import (
	"context"
	"time"
)

// EventStatus describes a step in a single provider invocation
type EventStatus string

const (
	EventStarted   EventStatus = "started"
	EventCompleted EventStatus = "completed"
	EventFailed    EventStatus = "failed"
)

// Event reports progress of one provider invocation
type Event struct {
	Provider string
	Status   EventStatus
	Results  int
	Elapsed  time.Duration
	Err      error
}

// Observer receives invocation events. Aggregate and race searches call it
// from several goroutines at once.
type Observer interface {
	OnProviderEvent(Event)
}

// ObserverFunc adapts a function to Observer
type ObserverFunc func(Event)

func (f ObserverFunc) OnProviderEvent(e Event) {
	f(e)
}

type observerKey struct{}

// WithObserver attaches an observer to the searches run with ctx
func WithObserver(ctx context.Context, obs Observer) context.Context {
	return context.WithValue(ctx, observerKey{}, obs)
}

func observerFrom(ctx context.Context) Observer {
	if obs, ok := ctx.Value(observerKey{}).(Observer); ok && obs != nil {
		return obs
	}
	return nil
}

func notify(obs Observer, e Event) {
	if obs != nil {
		obs.OnProviderEvent(e)
	}
}
