package pipeline

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/askiada/go-dehost/pkg/pipeline/model"
)

// Pipeline is a pipeline of steps.
type Pipeline struct {
	ctx       context.Context
	cancel    context.CancelFunc
	errcList  *errorChans
	opts      []model.PipelineOption
	startTime time.Time
}

// New creates a new pipeline. Steps added to it stop when ctx is done.
func New(ctx context.Context, opts ...model.PipelineOption) (*Pipeline, error) {
	dCtx, cancel := context.WithCancel(ctx)
	pipe := &Pipeline{
		ctx:       dCtx,
		cancel:    cancel,
		errcList:  &errorChans{},
		startTime: time.Now(),
		opts:      opts,
	}

	for _, opt := range opts {
		err := opt.New()
		if err != nil {
			cancel()

			return nil, errors.Wrap(err, "unable to apply pipeline option")
		}
	}

	return pipe, nil
}

// Run waits for every step to finish. On the first error the pipeline is cancelled and Run
// returns that error once all the steps have stopped.
func (p *Pipeline) Run() error {
	defer p.cancel()

	var first error
	for err := range p.errcList.merge() {
		if err != nil && first == nil {
			first = err
			p.cancel()
		}
	}

	if first != nil {
		return first
	}

	return p.finishRun()
}

func (p *Pipeline) finishRun() error {
	for _, opt := range p.opts {
		err := opt.Finish()
		if err != nil {
			return errors.Wrap(err, "unable to finish pipeline option")
		}
	}

	return nil
}

func details[O any](step *model.Step[O]) *model.StepInfo {
	if step.Details == nil {
		return model.StartStep.Details
	}

	return step.Details
}

func (p *Pipeline) prepareStep(parent, step *model.StepInfo) error {
	for _, opt := range p.opts {
		err := opt.PrepareStep(parent, step)
		if err != nil {
			return errors.Wrap(err, "unable to run prepare step function")
		}
	}

	return nil
}

func (p *Pipeline) onStepOutput(parent, step *model.StepInfo, iteration, computation time.Duration) error {
	for _, opt := range p.opts {
		err := opt.OnStepOutput(parent, step, iteration, computation)
		if err != nil {
			return errors.Wrap(err, "unable to run on step output function")
		}
	}

	return nil
}
