package pipeline

import "github.com/askiada/go-dehost/pkg/pipeline/model"

type StepOption[O any] func(s *model.Step[O])

// StepConcurrency sets the number of goroutines running a one-to-one step. The order of
// the elements is only kept with a single goroutine.
func StepConcurrency[O any](concurrent int) StepOption[O] {
	return func(s *model.Step[O]) {
		s.Details.Concurrent = concurrent
	}
}

// StepBufferSize sets the capacity of the step output channel.
func StepBufferSize[O any](bufferSize int) StepOption[O] {
	return func(s *model.Step[O]) {
		s.Details.BufferSize = bufferSize
	}
}

// StepKeepOpen leaves the output channel open when the step is done.
func StepKeepOpen[O any]() StepOption[O] {
	return func(s *model.Step[O]) {
		s.KeepOpen = true
	}
}

type SplitterOption[I any] func(s *Splitter[I])

func SplitterBufferSize[I any](bufferSize int) SplitterOption[I] {
	return func(s *Splitter[I]) {
		s.bufferSize = bufferSize
	}
}
