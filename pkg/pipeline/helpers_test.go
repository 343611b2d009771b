package pipeline_test

import (
	"context"
	"testing"

	"github.com/askiada/go-dehost/pkg/pipeline/model"
)

// samLines returns total alignment lines, flagged unmapped on odd indexes.
func samLines(total int) []string {
	lines := make([]string, total)
	for i := range total {
		flag := "0"
		if i%2 == 1 {
			flag = "4"
		}
		lines[i] = "read" + string(rune('a'+i%26)) + "\t" + flag + "\t*\t0\t0\t*\t*\t0\t0\tACGT\tIIII"
	}

	return lines
}

func inputStep[T any](t *testing.T, ctx context.Context, values []T) *model.Step[T] {
	t.Helper()

	inputChan := make(chan T)
	go func() {
		defer close(inputChan)
		for _, v := range values {
			select {
			case <-ctx.Done():
				return
			case inputChan <- v:
			}
		}
	}()

	return &model.Step[T]{Output: inputChan}
}

func intRange(total int) []int {
	values := make([]int, total)
	for i := range total {
		values[i] = i
	}

	return values
}

func collect[T any](t *testing.T, output <-chan T) <-chan []T {
	t.Helper()

	done := make(chan []T, 1)
	go func() {
		var res []T
		for out := range output {
			res = append(res, out)
		}
		done <- res
	}()

	return done
}
