package model

type StepType string

const (
	RootStepType     StepType = "root"
	NormalStepType   StepType = "step"
	SplitterStepType StepType = "splitter"
	SinkStepType     StepType = "sink"
)

// StepInfo describes a step to pipeline options.
type StepInfo struct {
	Type       StepType
	Name       string
	Concurrent int
	BufferSize int
}

var (
	StartStep = &Step[any]{Details: &StepInfo{Name: "start"}}
	EndStep   = &Step[any]{Details: &StepInfo{Name: "end"}}
)

// Step is the output of a pipeline step. Output is closed once the step is done, unless
// KeepOpen is set.
type Step[O any] struct {
	Output   chan O
	KeepOpen bool
	Details  *StepInfo
}
