package pipeline

import (
	"sync"

	"github.com/pkg/errors"
)

var (
	ErrPipelineMustBeSet = errors.New("p must be set")
	ErrInputMustBeSet    = errors.New("input must be set")
	ErrSplitterTotal     = errors.New("total must be greater than 0")
)

// StepError is an error returned by a step.
type StepError struct {
	Step string
	Err  error
}

func (e *StepError) Error() string {
	return e.Step + ": " + e.Err.Error()
}

func (e *StepError) Unwrap() error {
	return e.Err
}

// errorChan is the error channel of a step goroutine. It is closed when the goroutine is done.
type errorChan struct {
	c    <-chan error
	name string
}

func newErrorChan(name string, c <-chan error) *errorChan {
	return &errorChan{c: c, name: name}
}

type errorChans struct {
	mu   sync.Mutex
	list []*errorChan
}

func (ec *errorChans) add(errChan *errorChan) {
	ec.mu.Lock()
	defer ec.mu.Unlock()

	ec.list = append(ec.list, errChan)
}

func (ec *errorChans) merge() <-chan error {
	ec.mu.Lock()
	defer ec.mu.Unlock()

	return mergeErrors(ec.list...)
}

// mergeErrors fans in the channels of cs. The result is closed once every channel is, and
// holds one error per channel without a reader.
func mergeErrors(cs ...*errorChan) <-chan error {
	merged := make(chan error, len(cs))

	var wg sync.WaitGroup
	for _, ec := range cs {
		if ec.c == nil {
			continue
		}

		wg.Add(1)
		go func() {
			defer wg.Done()

			for err := range ec.c {
				merged <- &StepError{Step: ec.name, Err: err}
			}
		}()
	}

	go func() {
		wg.Wait()
		close(merged)
	}()

	return merged
}
