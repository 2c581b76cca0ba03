package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/trace"

	"github.com/tinfoilsh/multisearch/search"
	"github.com/tinfoilsh/multisearch/telemetry"
)

type outcome struct {
	index   int
	results []search.Result
	err     error
}

// invoke runs one provider call bounded by the per-provider timeout and
// records exactly one stats update for it
func (o *Orchestrator) invoke(ctx context.Context, p search.Provider, req *search.Request) ([]search.Result, error) {
	name := p.Name()
	entry := o.stats.entry(name)
	obs := observerFrom(ctx)

	ctx, span := telemetry.StartSpan(ctx, "provider.search",
		trace.WithAttributes(telemetry.StringAttr("provider", name)))
	defer span.End()

	notify(obs, Event{Provider: name, Status: EventStarted})

	callCtx, cancel := context.WithTimeout(ctx, o.cfg.TimeoutPerProvider)
	defer cancel()

	done := make(chan outcome, 1)
	start := time.Now()
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- outcome{err: fmt.Errorf("provider panicked: %v", r)}
			}
		}()
		results, err := p.Search(callCtx, req)
		done <- outcome{results: results, err: err}
	}()

	var res outcome
	select {
	case res = <-done:
	case <-callCtx.Done():
		// a result that landed together with the deadline still counts
		select {
		case res = <-done:
		default:
			res.err = callCtx.Err()
		}
	}
	elapsed := time.Since(start)

	if res.err == nil {
		entry.recordSuccess(elapsed)
		span.SetAttributes(telemetry.IntAttr("results", len(res.results)))
		telemetry.SetOK(span)
		notify(obs, Event{Provider: name, Status: EventCompleted, Results: len(res.results), Elapsed: elapsed})
		log.WithFields(log.Fields{
			"provider":   name,
			"results":    len(res.results),
			"elapsed_ms": elapsed.Milliseconds(),
		}).Debug("Provider search completed")
		return res.results, nil
	}

	err := o.classify(ctx, callCtx, name, res.err)
	entry.recordFailure()
	telemetry.RecordError(span, err)
	notify(obs, Event{Provider: name, Status: EventFailed, Elapsed: elapsed, Err: err})
	log.WithFields(log.Fields{
		"provider":   name,
		"elapsed_ms": elapsed.Milliseconds(),
	}).WithError(err).Debug("Provider search failed")
	return nil, err
}

// classify maps a failed call to a TimeoutError when the per-provider
// deadline fired and the caller's context is still live
func (o *Orchestrator) classify(parent, callCtx context.Context, name string, err error) error {
	if parent.Err() == nil && errors.Is(callCtx.Err(), context.DeadlineExceeded) {
		return &TimeoutError{Provider: name, Timeout: o.cfg.TimeoutPerProvider}
	}
	return &ProviderError{Provider: name, Err: err}
}
