// Package executor runs compiled host read removal pipelines.
//
// Shell hands the rendered script to bash. Native runs the external stages (alignment,
// name sort, FASTQ writing) as subprocesses and does the rest in process: the count taps,
// the flag filter and the read renaming run as steps of a pipeline.Pipeline fed with the
// SAM lines of the aligner.
package executor

import (
	"context"

	"github.com/askiada/go-dehost/pkg/compiler"
)

// Executor runs a compiled pipeline to completion. Once Execute returns without error every
// output of the pipeline is written.
type Executor interface {
	Execute(ctx context.Context, c *compiler.Compiled) error
}

var (
	_ Executor = Shell{}
	_ Executor = Native{}
)
