package pipeline

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/askiada/go-dehost/pkg/pipeline/model"
)

func prepareSink[I any](pipe *Pipeline, name string, input *model.Step[I]) (*model.StepInfo, error) {
	if pipe == nil {
		return nil, ErrPipelineMustBeSet
	}
	if input == nil {
		return nil, ErrInputMustBeSet
	}
	step := &model.StepInfo{
		Type:       model.SinkStepType,
		Name:       name,
		Concurrent: 1,
	}
	for _, opt := range pipe.opts {
		err := opt.PrepareSink(details(input), step)
		if err != nil {
			return nil, errors.Wrap(err, "unable to run prepare sink function")
		}
	}

	return step, nil
}

func (p *Pipeline) onSinkOutput(parent, step *model.StepInfo, iteration, computation time.Duration) error {
	for _, opt := range p.opts {
		err := opt.OnSinkOutput(parent, step, iteration, computation)
		if err != nil {
			return errors.Wrap(err, "unable to run on sink output function")
		}
	}

	return nil
}

func (p *Pipeline) afterSink(step *model.StepInfo) error {
	for _, opt := range p.opts {
		err := opt.AfterSink(step, time.Since(p.startTime))
		if err != nil {
			return errors.Wrap(err, "unable to run after sink function")
		}
	}

	return nil
}

// AddSink adds a step consuming every element of input with sinkFn.
func AddSink[I any](pipe *Pipeline, name string, input *model.Step[I], sinkFn func(ctx context.Context, input I) error) error {
	step, err := prepareSink(pipe, name, input)
	if err != nil {
		return err
	}

	errC := make(chan error, 1)
	go func() {
		defer close(errC)
		err := sink(pipe, input, step, sinkFn)
		if err == nil {
			err = pipe.afterSink(step)
		}
		if err != nil {
			errC <- err
		}
	}()
	pipe.errcList.add(newErrorChan(name, errC))

	return nil
}

func sink[I any](pipe *Pipeline, input *model.Step[I], step *model.StepInfo, sinkFn func(ctx context.Context, input I) error) error {
	for {
		startInputChan := time.Now()
		select {
		case <-pipe.ctx.Done():
			return pipe.ctx.Err()
		case in, ok := <-input.Output:
			if !ok {
				return nil
			}
			endInputChan := time.Since(startInputChan)

			startFn := time.Now()
			err := sinkFn(pipe.ctx, in)
			if err != nil {
				return err
			}

			err = pipe.onSinkOutput(details(input), step, endInputChan, time.Since(startFn))
			if err != nil {
				return err
			}
		}
	}
}

// AddSinkFromChan adds a step reading its input channel directly. stepFn owns the iteration
// and must stop when ctx is done.
func AddSinkFromChan[I any](pipe *Pipeline, name string, input *model.Step[I], stepFn func(ctx context.Context, input <-chan I) error) error {
	step, err := prepareSink(pipe, name, input)
	if err != nil {
		return err
	}

	errC := make(chan error, 1)
	go func() {
		defer close(errC)
		err := stepFn(pipe.ctx, input.Output)
		if err == nil {
			err = pipe.afterSink(step)
		}
		if err != nil {
			errC <- err
		}
	}()
	pipe.errcList.add(newErrorChan(name, errC))

	return nil
}
