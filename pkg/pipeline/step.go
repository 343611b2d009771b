package pipeline

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/askiada/go-dehost/pkg/pipeline/model"
)

// stepFn transforms an element. keep is false when the element must be dropped.
type stepFn[I, O any] func(ctx context.Context, in I) (out O, keep bool, err error)

func sequentialFn[I, O any](
	ctx context.Context,
	goIdx int,
	p *Pipeline,
	input *model.Step[I],
	output *model.Step[O],
	fn stepFn[I, O],
) error {
	for {
		start := time.Now()
		select {
		case <-ctx.Done():
			return errors.Wrapf(ctx.Err(), "go routine %d", goIdx)
		case in, ok := <-input.Output:
			if !ok {
				return nil
			}
			startFn := time.Now()
			out, keep, err := fn(ctx, in)
			if err != nil {
				return errors.Wrapf(err, "go routine %d", goIdx)
			}
			endFn := time.Since(startFn)
			if !keep {
				continue
			}

			// we check the context again to make sure all go routines currently running
			// stop to add new elements to the pipeline
			select {
			case <-ctx.Done():
				return errors.Wrapf(ctx.Err(), "go routine %d", goIdx)
			case output.Output <- out:
			}

			err = p.onStepOutput(details(input), output.Details, time.Since(start)-endFn, endFn)
			if err != nil {
				return err
			}
		}
	}
}

func concurrentFn[I, O any](
	ctx context.Context,
	p *Pipeline,
	input *model.Step[I],
	output *model.Step[O],
	fn stepFn[I, O],
) error {
	errGrp, dCtx := errgroup.WithContext(ctx)
	errGrp.SetLimit(output.Details.Concurrent)
	// each consumer stops as soon as an error happens
	for goIdx := range output.Details.Concurrent {
		errGrp.Go(func() error {
			return sequentialFn(dCtx, goIdx, p, input, output, fn)
		})
	}

	return errGrp.Wait()
}

func run[I, O any](ctx context.Context, p *Pipeline, input *model.Step[I], output *model.Step[O], fn stepFn[I, O]) error {
	if output.Details.Concurrent == 1 {
		return sequentialFn(ctx, 0, p, input, output, fn)
	}

	return concurrentFn(ctx, p, input, output, fn)
}

func addStep[I, O any](
	p *Pipeline,
	name string,
	input *model.Step[I],
	stepToStepFn func(ctx context.Context, output *model.Step[O]) error,
	opts ...StepOption[O],
) (*model.Step[O], error) {
	if p == nil {
		return nil, ErrPipelineMustBeSet
	}
	if input == nil {
		return nil, ErrInputMustBeSet
	}

	step := newStep(model.NormalStepType, name, opts...)

	err := p.prepareStep(details(input), step.Details)
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
		err := stepToStepFn(p.ctx, step)
		if err != nil {
			errC <- err
		}
	}()
	p.errcList.add(newErrorChan(name, errC))

	return step, nil
}

// AddStepOneToOne adds a step sending one output for each input.
func AddStepOneToOne[I, O any](
	p *Pipeline,
	name string,
	input *model.Step[I],
	oneToOneFn func(context.Context, I) (O, error),
	opts ...StepOption[O],
) (*model.Step[O], error) {
	return addStep(p, name, input, func(ctx context.Context, output *model.Step[O]) error {
		return run(ctx, p, input, output, func(ctx context.Context, in I) (O, bool, error) {
			out, err := oneToOneFn(ctx, in)

			return out, true, err
		})
	}, opts...)
}

// AddStepOneToOneOrZero adds a step sending at most one output for each input. Inputs for
// which oneToOneOrZeroFn returns false are dropped.
func AddStepOneToOneOrZero[I, O any](
	p *Pipeline,
	name string,
	input *model.Step[I],
	oneToOneOrZeroFn func(context.Context, I) (O, bool, error),
	opts ...StepOption[O],
) (*model.Step[O], error) {
	return addStep(p, name, input, func(ctx context.Context, output *model.Step[O]) error {
		return run(ctx, p, input, output, oneToOneOrZeroFn)
	}, opts...)
}

// AddStepFromChan adds a step reading its input channel directly. stepFn owns the iteration
// and must stop when ctx is done.
func AddStepFromChan[I, O any](
	p *Pipeline,
	name string,
	input *model.Step[I],
	stepFn func(ctx context.Context, input <-chan I, output chan<- O) error,
	opts ...StepOption[O],
) (*model.Step[O], error) {
	return addStep(p, name, input, func(ctx context.Context, output *model.Step[O]) error {
		return stepFn(ctx, input.Output, output.Output)
	}, opts...)
}
