package pipeline

import (
	"context"

	"github.com/askiada/go-dehost/pkg/pipeline/model"
)

// AddRootStep adds a step producing the elements of the pipeline. stepFn pushes to rootChan,
// which is closed when stepFn returns.
func AddRootStep[O any](
	p *Pipeline,
	name string,
	stepFn func(ctx context.Context, rootChan chan<- O) error,
	opts ...StepOption[O],
) (*model.Step[O], error) {
	if p == nil {
		return nil, ErrPipelineMustBeSet
	}

	step := newStep(model.RootStepType, name, opts...)

	err := p.prepareStep(model.StartStep.Details, step.Details)
	if err != nil {
		return nil, err
	}

	errC := make(chan error, 1)
	go func() {
		defer func() {
			if !step.KeepOpen {
				close(step.Output)
			}
			close(errC)
		}()
		err := stepFn(p.ctx, step.Output)
		if err != nil {
			errC <- err
		}
	}()
	p.errcList.add(newErrorChan(name, errC))

	return step, nil
}

func newStep[O any](stepType model.StepType, name string, opts ...StepOption[O]) *model.Step[O] {
	step := &model.Step[O]{
		Details: &model.StepInfo{
			Type:       stepType,
			Name:       name,
			Concurrent: 1,
		},
	}
	for _, opt := range opts {
		opt(step)
	}
	if step.Details.Concurrent < 1 {
		step.Details.Concurrent = 1
	}
	step.Output = make(chan O, step.Details.BufferSize)

	return step
}
