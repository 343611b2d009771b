package pipeline

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/askiada/go-dehost/pkg/pipeline/model"
)

func TestNewStepDefaults(t *testing.T) {
	t.Parallel()

	step := newStep[int](model.NormalStepType, "filter", StepConcurrency[int](0))
	assert.Equal(t, 1, step.Details.Concurrent)
	assert.Equal(t, 0, cap(step.Output))
	assert.False(t, step.KeepOpen)

	step = newStep[int](model.RootStepType, "align", StepConcurrency[int](4), StepBufferSize[int](16), StepKeepOpen[int]())
	assert.Equal(t, &model.StepInfo{Type: model.RootStepType, Name: "align", Concurrent: 4, BufferSize: 16}, step.Details)
	assert.Equal(t, 16, cap(step.Output))
	assert.True(t, step.KeepOpen)
}

func TestRunDropsElements(t *testing.T) {
	t.Parallel()

	tcs := map[string]struct {
		concurrent int
	}{
		"sequential":   {concurrent: 1},
		"concurrent 3": {concurrent: 3},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			pipe, err := New(t.Context())
			require.NoError(t, err)

			input := &model.Step[int]{Output: make(chan int)}
			go func() {
				defer close(input.Output)
				for i := range 20 {
					input.Output <- i
				}
			}()

			output := newStep[int](model.NormalStepType, "even", StepConcurrency[int](tc.concurrent))
			got := make(chan []int, 1)
			go func() {
				var res []int
				for out := range output.Output {
					res = append(res, out)
				}
				got <- res
			}()

			err = run(t.Context(), pipe, input, output, func(_ context.Context, in int) (int, bool, error) {
				return in, in%2 == 0, nil
			})
			close(output.Output)
			require.NoError(t, err)
			assert.ElementsMatch(t, []int{0, 2, 4, 6, 8, 10, 12, 14, 16, 18}, <-got)
		})
	}
}

func TestRunCancelOutput(t *testing.T) {
	t.Parallel()

	pipe, err := New(t.Context())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(t.Context())
	input := &model.Step[int]{Output: make(chan int, 1)}
	input.Output <- 1
	// nobody reads the output
	output := newStep[int](model.NormalStepType, "blocked")

	cancel()
	err = run(ctx, pipe, input, output, func(_ context.Context, in int) (int, bool, error) {
		return in, true, nil
	})
	require.ErrorIs(t, err, context.Canceled)
}
