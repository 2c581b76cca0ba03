package orchestrator

import (
	"context"
	"slices"
	"strings"
	"sync"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/tinfoilsh/multisearch/search"
)

// failover tries providers in registration order and returns the first success
func (o *Orchestrator) failover(ctx context.Context, providers []search.Provider, req *search.Request) ([]search.Result, error) {
	var lastErr error
	for _, p := range providers {
		results, err := o.invoke(ctx, p, req)
		if err == nil {
			return results, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			break
		}
		log.WithField("provider", p.Name()).WithError(err).Info("Provider failed, trying next")
	}
	return nil, lastErr
}

// loadBalance sends the search to one provider chosen round robin
func (o *Orchestrator) loadBalance(ctx context.Context, providers []search.Provider, req *search.Request) ([]search.Result, error) {
	n := o.cursor.Add(1) - 1
	p := providers[n%uint64(len(providers))]
	return o.invoke(ctx, p, req)
}

// aggregate queries every provider with at most MaxConcurrent calls in
// flight and merges the successes in registration order
func (o *Orchestrator) aggregate(ctx context.Context, providers []search.Provider, req *search.Request) ([]search.Result, error) {
	perProvider := make([][]search.Result, len(providers))
	errs := make([]error, len(providers))

	var g errgroup.Group
	g.SetLimit(o.cfg.MaxConcurrent)
	for i, p := range providers {
		g.Go(func() error {
			perProvider[i], errs[i] = o.invoke(ctx, p, req)
			return nil
		})
	}
	_ = g.Wait()

	succeeded := 0
	var merged []search.Result
	for i := range providers {
		if errs[i] != nil {
			continue
		}
		succeeded++
		merged = append(merged, perProvider[i]...)
	}
	if succeeded == 0 {
		return nil, &AllProvidersFailedError{Errors: errs}
	}

	slices.SortStableFunc(merged, func(a, b search.Result) int {
		return strings.Compare(a.Provider, b.Provider)
	})
	if req.MaxResults > 0 && len(merged) > req.MaxResults {
		merged = merged[:req.MaxResults]
	}
	if merged == nil {
		merged = []search.Result{}
	}
	return merged, nil
}

// race starts providers in registration order, at most MaxConcurrent at a
// time, and keeps the first success. Remaining calls are cancelled and
// awaited before returning so their stats are settled.
func (o *Orchestrator) race(ctx context.Context, providers []search.Provider, req *search.Request) ([]search.Result, error) {
	raceCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	sem := semaphore.NewWeighted(int64(o.cfg.MaxConcurrent))
	outcomes := make(chan outcome, len(providers))

	go func() {
		var wg sync.WaitGroup
		defer func() {
			wg.Wait()
			close(outcomes)
		}()
		for i, p := range providers {
			if err := sem.Acquire(raceCtx, 1); err != nil {
				return
			}
			wg.Add(1)
			go func() {
				defer wg.Done()
				defer sem.Release(1)
				results, err := o.invoke(raceCtx, p, req)
				outcomes <- outcome{index: i, results: results, err: err}
			}()
		}
	}()

	errs := make([]error, len(providers))
	var winner *outcome
	for out := range outcomes {
		if winner != nil {
			continue
		}
		if out.err != nil {
			errs[out.index] = out.err
			continue
		}
		winner = pickEarliest(out, outcomes, errs)
		cancel()
		log.WithField("provider", providers[winner.index].Name()).Debug("Race won")
	}

	if winner != nil {
		return winner.results, nil
	}
	for i := len(errs) - 1; i >= 0; i-- {
		if errs[i] != nil {
			return nil, errs[i]
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return nil, ErrNoProvidersConfigured
}

// pickEarliest drains outcomes that are already available and returns the
// successful one with the lowest registration index
func pickEarliest(first outcome, outcomes <-chan outcome, errs []error) *outcome {
	best := first
	for {
		select {
		case out, ok := <-outcomes:
			if !ok {
				return &best
			}
			if out.err != nil {
				errs[out.index] = out.err
				continue
			}
			if out.index < best.index {
				best = out
			}
		default:
			return &best
		}
	}
}
