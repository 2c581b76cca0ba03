package pipeline

import (
	"context"
	"errors"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/tinfoilsh/multisearch/orchestrator"
	"github.com/tinfoilsh/multisearch/search"
)

// Stage is a single step of request processing
type Stage interface {
	Name() string
	Execute(ctx *Context) error
}

// Searcher runs a normalized search. *orchestrator.Orchestrator satisfies it.
type Searcher interface {
	Search(ctx context.Context, req *search.Request) ([]search.Result, error)
}

// ValidateStage checks the client request and builds the provider request
type ValidateStage struct{}

func (s *ValidateStage) Name() string { return "validate" }

func (s *ValidateStage) Execute(ctx *Context) error {
	req := ctx.Request
	if req == nil {
		return &ValidationError{Message: "request body is required"}
	}

	query := strings.TrimSpace(req.Query)
	ids := make([]string, 0, len(req.IDList))
	for _, id := range req.IDList {
		if id = strings.TrimSpace(id); id != "" {
			ids = append(ids, id)
		}
	}
	if query == "" && len(ids) == 0 {
		return &ValidationError{Field: "query", Message: "query or id_list is required"}
	}

	sreq := search.NewRequest(query)
	sreq.IDList = ids
	sreq.Language = req.Language
	sreq.Region = req.Region
	sreq.Start = req.Start
	sreq.Debug = search.DebugOptions{Enabled: req.Debug}

	if req.MaxResults != nil {
		if *req.MaxResults < 0 {
			return &ValidationError{Field: "max_results", Message: "must not be negative"}
		}
		sreq.MaxResults = *req.MaxResults
	}
	if req.Page < 0 {
		return &ValidationError{Field: "page", Message: "must not be negative"}
	}
	if req.Page > 0 {
		sreq.Page = req.Page
	}
	if req.Start < 0 {
		return &ValidationError{Field: "start", Message: "must not be negative"}
	}
	if req.TimeoutMS < 0 {
		return &ValidationError{Field: "timeout_ms", Message: "must not be negative"}
	}
	if req.TimeoutMS > 0 {
		sreq.Timeout = time.Duration(req.TimeoutMS) * time.Millisecond
	}

	var err error
	if sreq.SafeSearch, err = search.ParseSafeSearch(req.SafeSearch); err != nil {
		return &ValidationError{Field: "safe_search", Message: unwrapInvalid(err)}
	}
	if sreq.SortBy, err = search.ParseSortBy(req.SortBy); err != nil {
		return &ValidationError{Field: "sort_by", Message: unwrapInvalid(err)}
	}
	if sreq.SortOrder, err = search.ParseSortOrder(req.SortOrder); err != nil {
		return &ValidationError{Field: "sort_order", Message: unwrapInvalid(err)}
	}

	ctx.SearchRequest = sreq
	return ctx.State.Transition(StateValidated, nil)
}

func unwrapInvalid(err error) string {
	return strings.TrimPrefix(err.Error(), search.ErrInvalidInput.Error()+": ")
}

// SearchStage dispatches the validated request to the searcher
type SearchStage struct {
	Searcher Searcher
}

func (s *SearchStage) Name() string { return "search" }

func (s *SearchStage) Execute(ctx *Context) error {
	if ctx.SearchRequest == nil {
		return errors.New("search stage requires a validated request")
	}
	if err := ctx.State.Transition(StateSearchStarted, nil); err != nil {
		return err
	}

	searchCtx := context.Context(ctx)
	if ctx.IsStreaming() {
		searchCtx = orchestrator.WithObserver(ctx, orchestrator.ObserverFunc(func(e orchestrator.Event) {
			reason := ""
			if e.Err != nil {
				reason = e.Err.Error()
			}
			if err := ctx.Emitter.EmitProviderCall(e.Provider, string(e.Status), reason); err != nil {
				log.WithError(err).WithField("request_id", ctx.RequestID).Debug("failed to emit provider event")
			}
		}))
	}

	start := time.Now()
	results, err := s.Searcher.Search(searchCtx, ctx.SearchRequest)
	if err != nil {
		return err
	}
	ctx.Results = results

	log.WithFields(log.Fields{
		"request_id": ctx.RequestID,
		"results":    len(results),
		"elapsed":    time.Since(start),
	}).Info("Search completed")

	if err := ctx.State.Transition(StateSearchCompleted, map[string]any{"results": len(results)}); err != nil {
		return err
	}
	if ctx.IsStreaming() {
		return ctx.Emitter.EmitResults(results)
	}
	return nil
}
