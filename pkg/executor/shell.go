package executor

import (
	"context"
	"os"
	"time"

	"github.com/grailbio/base/log"
	"github.com/pkg/errors"

	"github.com/askiada/go-dehost/pkg/compiler"
)

const (
	defaultCountTimeout = 30 * time.Second
	countPollInterval   = 20 * time.Millisecond
)

// Shell runs the rendered script with bash -o pipefail, so the failure of any stage fails
// the pipeline.
type Shell struct {
	// Bash is the bash binary, "bash" when empty.
	Bash string
	// Dir is the working directory of the script.
	Dir string
	// CountTimeout bounds the wait for the count files once the script has exited.
	CountTimeout time.Duration
}

// Execute runs c.Script.
func (s Shell) Execute(ctx context.Context, c *compiler.Compiled) error {
	bash := s.Bash
	if bash == "" {
		bash = "bash"
	}
	timeout := s.CountTimeout
	if timeout == 0 {
		timeout = defaultCountTimeout
	}

	// stale counts of a forced run would satisfy awaitCounts
	for _, path := range []string{c.Outputs.ReadsIn, c.Outputs.ReadsOut} {
		err := os.Remove(path)
		if err != nil && !os.IsNotExist(err) {
			return errors.Wrapf(err, "unable to remove %s", path)
		}
	}

	log.Debug.Printf("pipeline: %s", c.Script)

	err := Process{}.Run(ctx, []string{bash, "-o", "pipefail", "-c", c.Script}, s.Dir)
	if err != nil {
		return err
	}

	return awaitCounts(ctx, c.Outputs, timeout, countPollInterval)
}
