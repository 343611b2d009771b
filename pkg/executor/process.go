package executor

import (
	"context"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"sync"

	"github.com/grailbio/base/log"
	"github.com/pkg/errors"
)

var ErrEmptyCommand = errors.New("empty command")

// stderrTailSize is how much of the end of stderr is kept in a StageError.
const stderrTailSize = 4 << 10

// StageError is returned when an external command fails.
type StageError struct {
	Stage string
	Err   error
	// Stderr holds the end of the command stderr.
	Stderr string
}

func (e *StageError) Error() string {
	if e.Stderr == "" {
		return fmt.Sprintf("%s: %v", e.Stage, e.Err)
	}

	return fmt.Sprintf("%s: %v: %s", e.Stage, e.Err, e.Stderr)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// tailBuffer keeps the last limit bytes written to it.
type tailBuffer struct {
	mu    sync.Mutex
	buf   []byte
	limit int
}

func newTailBuffer(limit int) *tailBuffer {
	return &tailBuffer{limit: limit}
}

func (t *tailBuffer) Write(p []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.buf = append(t.buf, p...)
	if over := len(t.buf) - t.limit; over > 0 {
		t.buf = append(t.buf[:0], t.buf[over:]...)
	}

	return len(p), nil
}

func (t *tailBuffer) String() string {
	t.mu.Lock()
	defer t.mu.Unlock()

	return strings.TrimSpace(string(t.buf))
}

// Process runs commands as child processes.
type Process struct {
	// Stdout receives the command output, discarded when nil.
	Stdout io.Writer
}

// Run runs argv in dir and waits for it to exit.
func (p Process) Run(ctx context.Context, argv []string, dir string) error {
	if len(argv) == 0 {
		return ErrEmptyCommand
	}

	stderr := newTailBuffer(stderrTailSize)
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Dir = dir
	cmd.Stdout = p.Stdout
	cmd.Stderr = stderr

	log.Debug.Printf("running %q", argv)

	err := cmd.Run()
	if err != nil {
		return &StageError{Stage: argv[0], Err: err, Stderr: stderr.String()}
	}

	return nil
}
