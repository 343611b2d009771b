package executor

import (
	"context"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/askiada/go-dehost/pkg/compiler"
)

var ErrInvalidCount = errors.New("invalid count file")

// Counts are the read counts written by the count stages of a pipeline.
type Counts struct {
	ReadsIn  int64
	ReadsOut int64
}

// Map returns the counts keyed by their report name.
func (c Counts) Map() map[string]int64 {
	return map[string]int64{
		"reads_in":  c.ReadsIn,
		"reads_out": c.ReadsOut,
	}
}

// ReadCounts reads the count files of outputs.
func ReadCounts(outputs compiler.Outputs) (Counts, error) {
	readsIn, err := readCount(outputs.ReadsIn)
	if err != nil {
		return Counts{}, err
	}

	readsOut, err := readCount(outputs.ReadsOut)
	if err != nil {
		return Counts{}, err
	}

	return Counts{ReadsIn: readsIn, ReadsOut: readsOut}, nil
}

func readCount(path string) (int64, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return 0, errors.Wrapf(err, "unable to read %s", path)
	}

	count, err := strconv.ParseInt(strings.TrimSpace(string(content)), 10, 64)
	if err != nil || count < 0 {
		return 0, errors.Wrapf(ErrInvalidCount, "%s: %q", path, content)
	}

	return count, nil
}

// writeCount writes count the way samtools view -c does.
func writeCount(path string, count int64) error {
	err := os.WriteFile(path, []byte(strconv.FormatInt(count, 10)+"\n"), 0o644)

	return errors.Wrapf(err, "unable to write %s", path)
}

// countWritten reports whether path holds a complete count line.
func countWritten(path string) bool {
	content, err := os.ReadFile(path)
	if err != nil || !strings.HasSuffix(string(content), "\n") {
		return false
	}

	_, err = readCount(path)

	return err == nil
}

// awaitCounts waits until both count files are complete. bash does not wait for process
// substitutions, so the taps of a shell pipeline may still be writing when it exits.
func awaitCounts(ctx context.Context, outputs compiler.Outputs, timeout, interval time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if countWritten(outputs.ReadsIn) && countWritten(outputs.ReadsOut) {
			return nil
		}

		select {
		case <-ctx.Done():
			return errors.Wrapf(ctx.Err(), "waiting for %s and %s", outputs.ReadsIn, outputs.ReadsOut)
		case <-ticker.C:
		}
	}
}
