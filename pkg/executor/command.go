package executor

import (
	"bufio"
	"context"
	"io"
	"os/exec"
	"strings"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

const pipeBufferSize = 64 << 10

// runCommand runs argv, writing the lines of in to its stdin when in is set and sending the
// lines of its stdout to out when out is set.
func runCommand(ctx context.Context, stage string, argv []string, in <-chan string, out chan<- string) error {
	if len(argv) == 0 {
		return errors.Wrapf(ErrEmptyCommand, "%s", stage)
	}

	cmdCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	stderr := newTailBuffer(stderrTailSize)
	cmd := exec.CommandContext(cmdCtx, argv[0], argv[1:]...)
	cmd.Stderr = stderr

	var (
		stdin  io.WriteCloser
		stdout io.ReadCloser
		err    error
	)
	if in != nil {
		stdin, err = cmd.StdinPipe()
		if err != nil {
			return errors.Wrapf(err, "%s stdin", stage)
		}
	}
	if out != nil {
		stdout, err = cmd.StdoutPipe()
		if err != nil {
			return errors.Wrapf(err, "%s stdout", stage)
		}
	}

	err = cmd.Start()
	if err != nil {
		return &StageError{Stage: stage, Err: err}
	}

	errGrp, gCtx := errgroup.WithContext(cmdCtx)
	if in != nil {
		errGrp.Go(func() error {
			return feedLines(gCtx, in, stdin)
		})
	}
	if out != nil {
		errGrp.Go(func() error {
			return readLines(gCtx, stdout, out)
		})
	}

	streamErr := errGrp.Wait()
	if streamErr != nil {
		// the process may be blocked on a pipe nobody serves anymore
		cancel()
	}

	waitErr := cmd.Wait()
	if waitErr != nil && ctx.Err() == nil {
		return &StageError{Stage: stage, Err: waitErr, Stderr: stderr.String()}
	}
	if streamErr != nil {
		return errors.Wrapf(streamErr, "%s", stage)
	}

	return ctx.Err()
}

func feedLines(ctx context.Context, in <-chan string, stdin io.WriteCloser) error {
	defer stdin.Close()

	writer := bufio.NewWriterSize(stdin, pipeBufferSize)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case line, ok := <-in:
			if !ok {
				return errors.Wrap(writer.Flush(), "unable to flush stdin")
			}
			_, err := writer.WriteString(line)
			if err == nil {
				err = writer.WriteByte('\n')
			}
			if err != nil {
				return errors.Wrap(err, "unable to write stdin")
			}
		}
	}
}

func readLines(ctx context.Context, stdout io.Reader, out chan<- string) error {
	reader := bufio.NewReaderSize(stdout, pipeBufferSize)
	for {
		line, err := reader.ReadString('\n')
		if line != "" {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case out <- strings.TrimSuffix(line, "\n"):
			}
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return errors.Wrap(err, "unable to read stdout")
		}
	}
}
