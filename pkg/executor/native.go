package executor

import (
	"context"
	"sort"

	"github.com/grailbio/base/log"
	"github.com/pkg/errors"

	"github.com/askiada/go-dehost/pkg/compiler"
	"github.com/askiada/go-dehost/pkg/pipeline"
	"github.com/askiada/go-dehost/pkg/pipeline/drawer"
	"github.com/askiada/go-dehost/pkg/pipeline/measure"
	"github.com/askiada/go-dehost/pkg/pipeline/model"
)

var ErrUnknownStage = errors.New("unknown stage")

const defaultBufferSize = 1024

// Native runs the pipeline without a shell. External stages are subprocesses connected by
// channels of SAM lines; the count, filter and rename stages run in process.
type Native struct {
	// Measure logs the time spent in each stage once the pipeline is done.
	Measure bool
	// DOTFile receives the graph of the run, labelled with the stage timings.
	DOTFile string
	// BufferSize is the capacity of the channels between stages.
	BufferSize int
}

// Execute runs the stages of c.
func (n Native) Execute(ctx context.Context, c *compiler.Compiled) error {
	var (
		opts []model.PipelineOption
		msr  *measure.DefaultMeasure
	)
	if n.Measure || n.DOTFile != "" {
		msr = measure.NewDefaultMeasure()
		opts = append(opts, measure.PipelineMeasure(msr))
	}
	if n.DOTFile != "" {
		opts = append(opts, drawer.PipelineDrawer(drawer.NewDOTDrawer(n.DOTFile), msr))
	}

	pipe, err := pipeline.New(ctx, opts...)
	if err != nil {
		return err
	}

	b := newNativeBuilder(pipe, c.Stages, n.BufferSize)
	for _, stage := range c.Stages {
		err := b.add(stage)
		if err != nil {
			return errors.Wrapf(err, "unable to add stage %s", stage.Name)
		}
	}

	err = pipe.Run()
	if err != nil {
		return err
	}

	if n.Measure {
		logMeasure(msr)
	}

	return nil
}

type nativeBuilder struct {
	pipe       *pipeline.Pipeline
	bufferSize int
	children   map[string]int
	outputs    map[string]*model.Step[string]
	splitters  map[string]*pipeline.Splitter[string]
}

func newNativeBuilder(pipe *pipeline.Pipeline, stages []compiler.Stage, bufferSize int) *nativeBuilder {
	if bufferSize <= 0 {
		bufferSize = defaultBufferSize
	}
	b := &nativeBuilder{
		pipe:       pipe,
		bufferSize: bufferSize,
		children:   make(map[string]int),
		outputs:    make(map[string]*model.Step[string]),
		splitters:  make(map[string]*pipeline.Splitter[string]),
	}
	for _, stage := range stages {
		if stage.Parent != "" {
			b.children[stage.Parent]++
		}
	}

	return b
}

// input returns the stream a stage reads. Parents with several children are split so that
// every child sees every line.
func (b *nativeBuilder) input(parent string) (*model.Step[string], error) {
	output, ok := b.outputs[parent]
	if !ok {
		return nil, errors.Wrapf(ErrUnknownStage, "%q", parent)
	}
	if b.children[parent] < 2 {
		return output, nil
	}

	splitter, ok := b.splitters[parent]
	if !ok {
		var err error
		splitter, err = pipeline.AddSplitter(b.pipe, "tee "+parent, output, b.children[parent],
			pipeline.SplitterBufferSize[string](b.bufferSize))
		if err != nil {
			return nil, err
		}
		b.splitters[parent] = splitter
	}

	step, ok := splitter.Get()
	if !ok {
		return nil, errors.Wrapf(ErrUnknownStage, "no output left on %q", parent)
	}

	return step, nil
}

func (b *nativeBuilder) add(stage compiler.Stage) error {
	bufferSize := pipeline.StepBufferSize[string](b.bufferSize)

	if stage.Kind == compiler.AlignKind {
		output, err := pipeline.AddRootStep(b.pipe, stage.Name, func(ctx context.Context, rootChan chan<- string) error {
			return runCommand(ctx, stage.Name, stage.Argv, nil, rootChan)
		}, bufferSize)
		b.outputs[stage.Name] = output

		return err
	}

	input, err := b.input(stage.Parent)
	if err != nil {
		return err
	}

	var output *model.Step[string]
	switch stage.Kind {
	case compiler.CountKind:
		return pipeline.AddSinkFromChan(b.pipe, stage.Name, input, countFn(stage))
	case compiler.WriteKind:
		return pipeline.AddSinkFromChan(b.pipe, stage.Name, input, func(ctx context.Context, in <-chan string) error {
			return runCommand(ctx, stage.Name, stage.Argv, in, nil)
		})
	case compiler.FilterKind:
		output, err = pipeline.AddStepOneToOneOrZero(b.pipe, stage.Name, input, filterFn(stage.Filter), bufferSize)
	case compiler.SortKind:
		output, err = pipeline.AddStepFromChan(b.pipe, stage.Name, input,
			func(ctx context.Context, in <-chan string, out chan<- string) error {
				return runCommand(ctx, stage.Name, stage.Argv, in, out)
			}, bufferSize)
	case compiler.RenameKind:
		// Renamer numbers records in order, the step must stay sequential.
		renamer := compiler.NewRenamer(stage.Rename)
		output, err = pipeline.AddStepOneToOneOrZero(b.pipe, stage.Name, input,
			func(_ context.Context, line string) (string, bool, error) {
				renamed, ok := renamer.Rename(line)

				return renamed, ok, nil
			}, bufferSize, pipeline.StepConcurrency[string](1))
	default:
		return errors.Wrapf(ErrUnknownStage, "kind %q", stage.Kind)
	}
	if err != nil {
		return err
	}
	b.outputs[stage.Name] = output

	return nil
}

// filterFn keeps the records matching filter. Header lines are dropped, like samtools view
// does without -h.
func filterFn(filter compiler.FlagFilter) func(context.Context, string) (string, bool, error) {
	return func(_ context.Context, line string) (string, bool, error) {
		if compiler.IsHeader(line) {
			return "", false, nil
		}

		flags, err := compiler.RecordFlags(line)
		if err != nil {
			return "", false, err
		}

		return line, filter.Match(flags), nil
	}
}

// countFn counts the records matching the stage filter and writes the total to the stage
// output once the stream is done.
func countFn(stage compiler.Stage) func(context.Context, <-chan string) error {
	return func(ctx context.Context, in <-chan string) error {
		var count int64
		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case line, ok := <-in:
				if !ok {
					return writeCount(stage.Output, count)
				}
				if compiler.IsHeader(line) {
					continue
				}
				flags, err := compiler.RecordFlags(line)
				if err != nil {
					return err
				}
				if stage.Filter.Match(flags) {
					count++
				}
			}
		}
	}
}

func logMeasure(msr measure.Measure) {
	metrics := msr.AllMetrics()
	names := make([]string, 0, len(metrics))
	for name := range metrics {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		mt := metrics[name]
		if mt.Total() == 0 {
			continue
		}
		log.Printf("%s: %d lines, %s per line, done after %s", name, mt.Total(), mt.AVGDuration(), mt.GetTotalDuration())
	}
}
