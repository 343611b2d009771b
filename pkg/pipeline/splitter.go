package pipeline

import (
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/askiada/go-dehost/pkg/pipeline/model"
)

// Splitter copies every element of its input to several outputs.
type Splitter[I any] struct {
	mu            sync.Mutex
	currIdx       int
	mainStep      *model.Step[I]
	splittedSteps []*model.Step[I]
	bufferSize    int
	Total         int
}

// Get returns the next output of the splitter, false once all of them have been returned.
func (s *Splitter[I]) Get() (*model.Step[I], bool) {
	s.mu.Lock()
	defer func() {
		s.currIdx++
		s.mu.Unlock()
	}()
	if s.currIdx >= len(s.splittedSteps) {
		return nil, false
	}

	return s.splittedSteps[s.currIdx], true
}

func prepareSplitter[I any](pipe *Pipeline, input *model.Step[I], splitter *Splitter[I]) error {
	for _, opt := range pipe.opts {
		err := opt.PrepareSplitter(details(input), splitter.mainStep.Details)
		if err != nil {
			return errors.Wrap(err, "unable to run prepare splitter function")
		}
	}

	return nil
}

func (p *Pipeline) onSplitterOutput(parent, splitter *model.StepInfo, iteration, computation time.Duration) error {
	for _, opt := range p.opts {
		err := opt.OnSplitterOutput(parent, splitter, iteration, computation)
		if err != nil {
			return errors.Wrap(err, "unable to run on splitter output function")
		}
	}

	return nil
}

// AddSplitter adds a step copying input to total outputs. Each output has its own buffer of
// bufferSize elements, so a slow consumer only slows the others down once its buffer is full.
func AddSplitter[I any](p *Pipeline, name string, input *model.Step[I], total int, opts ...SplitterOption[I]) (*Splitter[I], error) {
	if p == nil {
		return nil, ErrPipelineMustBeSet
	}
	if input == nil {
		return nil, ErrInputMustBeSet
	}
	if total <= 0 {
		return nil, ErrSplitterTotal
	}
	splitter := &Splitter[I]{
		Total: total,
		mainStep: &model.Step[I]{
			Details: &model.StepInfo{
				Type:       model.SplitterStepType,
				Name:       name,
				Concurrent: 1,
			},
		},
	}
	for _, opt := range opts {
		opt(splitter)
	}
	if splitter.bufferSize == 0 {
		splitter.bufferSize = 1
	}
	splitter.mainStep.Details.BufferSize = splitter.bufferSize

	splitter.splittedSteps = make([]*model.Step[I], total)
	splitterBuffer := make([]chan I, total)
	for i := range total {
		splitterBuffer[i] = make(chan I, splitter.bufferSize)
		splitter.splittedSteps[i] = &model.Step[I]{
			Details: splitter.mainStep.Details,
			Output:  make(chan I),
		}
	}

	err := prepareSplitter(p, input, splitter)
	if err != nil {
		return nil, err
	}

	errC := make(chan error, 1)
	wgrp := &sync.WaitGroup{}
	wgrp.Add(total)
	for i, buf := range splitterBuffer {
		go func() {
			defer func() {
				close(splitter.splittedSteps[i].Output)
				wgrp.Done()
			}()
			for elem := range buf {
				select {
				case splitter.splittedSteps[i].Output <- elem:
				case <-p.ctx.Done():
					return
				}
			}
		}()
	}

	go func() {
		defer func() {
			for _, buf := range splitterBuffer {
				close(buf)
			}
			wgrp.Wait()
			close(errC)
		}()
		err := splitter.feed(p, input, splitterBuffer)
		if err != nil {
			errC <- err
		}
	}()
	p.errcList.add(newErrorChan(name, errC))

	return splitter, nil
}

func (s *Splitter[I]) feed(p *Pipeline, input *model.Step[I], buffers []chan I) error {
	for {
		startIter := time.Now()
		select {
		case <-p.ctx.Done():
			return p.ctx.Err()
		case entry, ok := <-input.Output:
			if !ok {
				return nil
			}
			startFn := time.Now()
			for _, buf := range buffers {
				select {
				case <-p.ctx.Done():
					return p.ctx.Err()
				case buf <- entry:
				}
			}
			endFn := time.Since(startFn)

			err := p.onSplitterOutput(details(input), s.mainStep.Details, time.Since(startIter)-endFn, endFn)
			if err != nil {
				return err
			}
		}
	}
}
