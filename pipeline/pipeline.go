package pipeline

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Pipeline runs stages in order for a single search request
type Pipeline struct {
	stages  []Stage
	timeout time.Duration
}

// NewPipeline creates a pipeline. A zero timeout leaves the request deadline
// to the caller.
func NewPipeline(stages []Stage, timeout time.Duration) *Pipeline {
	return &Pipeline{
		stages:  stages,
		timeout: timeout,
	}
}

// Execute runs all stages, stopping on the first error. The returned context
// is non-nil even on failure so callers can inspect the state history.
func (p *Pipeline) Execute(ctx context.Context, req *Request, emitter EventEmitter) (*Context, error) {
	var cancel context.CancelFunc
	if p.timeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
	} else {
		ctx, cancel = context.WithCancel(ctx)
	}

	pctx := NewContext(ctx, uuid.NewString(), req)
	pctx.Emitter = emitter
	pctx.Cancel = cancel

	for _, stage := range p.stages {
		if err := stage.Execute(pctx); err != nil {
			pctx.State.Transition(StateFailed, map[string]any{
				"stage": stage.Name(),
				"error": err.Error(),
			})
			return pctx, &PipelineError{
				Stage: stage.Name(),
				Err:   err,
			}
		}
	}

	if err := pctx.State.Transition(StateCompleted, nil); err != nil {
		return pctx, &PipelineError{Stage: "complete", Err: err}
	}
	return pctx, nil
}

func (p *Pipeline) Stages() []Stage {
	return p.stages
}

func (p *Pipeline) Timeout() time.Duration {
	return p.timeout
}
