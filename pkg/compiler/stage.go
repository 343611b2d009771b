package compiler

import (
	"io"

	"github.com/dominikbraun/graph"
	"github.com/pkg/errors"

	"github.com/askiada/go-dehost/pkg/pipeline/drawer"
)

// StageKind is what a stage does to the stream.
type StageKind string

const (
	AlignKind  StageKind = "align"
	CountKind  StageKind = "count"
	FilterKind StageKind = "filter"
	SortKind   StageKind = "sort"
	RenameKind StageKind = "rename"
	WriteKind  StageKind = "write"
)

// Connection is how a stage reads the output of its parent.
type Connection string

const (
	// Main stages consume the stream.
	Main Connection = "main"
	// Tap stages observe a copy of the stream.
	Tap Connection = "tap"
)

// Stage names.
const (
	AlignStageName    = "align"
	CountInStageName  = "count reads in"
	FilterStageName   = "filter unmapped"
	CountOutStageName = "count reads out"
	SortStageName     = "sort by name"
	RenameStageName   = "rename reads"
	WriteStageName    = "write fastq"
)

var ErrInvalidPipeline = errors.New("invalid pipeline")

// Stage is a node of a compiled pipeline.
type Stage struct {
	Name       string
	Kind       StageKind
	Parent     string
	Connection Connection
	// Argv is the external command run by the stage.
	Argv []string
	// Filter is set on count and filter stages.
	Filter FlagFilter
	// Rename is set on rename stages.
	Rename RenameMode
	// Output is the file written by count stages.
	Output string
}

func stageHash(s Stage) string {
	return s.Name
}

// Graph returns the stages as a directed acyclic graph. Edges carry their Connection in the
// "connection" attribute.
func (c *Compiled) Graph() (graph.Graph[string, Stage], error) {
	gra := graph.New(stageHash, graph.Directed(), graph.Acyclic(), graph.PreventCycles())

	for _, stage := range c.Stages {
		err := gra.AddVertex(stage, graph.VertexAttribute("kind", string(stage.Kind)))
		if err != nil {
			return nil, errors.Wrapf(err, "unable to add stage %s", stage.Name)
		}
	}

	for _, stage := range c.Stages {
		if stage.Parent == "" {
			continue
		}
		err := gra.AddEdge(stage.Parent, stage.Name,
			graph.EdgeAttribute("connection", string(stage.Connection)),
			graph.EdgeData(stage.Connection),
		)
		if err != nil {
			return nil, errors.Wrapf(err, "unable to link %s to %s", stage.Parent, stage.Name)
		}
	}

	return gra, nil
}

// validate checks the shape of the stage graph: a single source, taps are leaves, and every
// other stage but the last one feeds exactly one main stage.
func validate(gra graph.Graph[string, Stage]) error {
	adjacency, err := gra.AdjacencyMap()
	if err != nil {
		return errors.Wrap(err, "unable to get adjacency map")
	}

	predecessors, err := gra.PredecessorMap()
	if err != nil {
		return errors.Wrap(err, "unable to get predecessor map")
	}

	sources := 0
	sinks := 0
	for name, children := range adjacency {
		stage, err := gra.Vertex(name)
		if err != nil {
			return errors.Wrapf(err, "unable to get stage %s", name)
		}

		if len(predecessors[name]) == 0 {
			sources++
		}

		mains := 0
		for _, edge := range children {
			if edge.Properties.Data == Main {
				mains++
			}
		}

		switch {
		case stage.Connection == Tap && len(children) > 0:
			return errors.Wrapf(ErrInvalidPipeline, "tap %q has children", name)
		case stage.Kind == WriteKind && len(children) > 0:
			return errors.Wrapf(ErrInvalidPipeline, "%q must be last", name)
		case stage.Kind == WriteKind:
			sinks++
		case stage.Connection != Tap && mains != 1:
			return errors.Wrapf(ErrInvalidPipeline, "%q feeds %d main stages", name, mains)
		}
	}

	if sources != 1 || sinks != 1 {
		return errors.Wrapf(ErrInvalidPipeline, "%d sources and %d sinks", sources, sinks)
	}

	return nil
}

// WriteDOT writes the stage graph in the DOT language, tap edges dashed.
func (c *Compiled) WriteDOT(w io.Writer) error {
	gra, err := c.Graph()
	if err != nil {
		return err
	}

	for _, stage := range c.Stages {
		if stage.Connection != Tap {
			continue
		}
		err = gra.UpdateEdge(stage.Parent, stage.Name, graph.EdgeAttribute("style", "dashed"))
		if err != nil {
			return errors.Wrapf(err, "unable to update edge to %s", stage.Name)
		}
	}

	return drawer.WriteDOT(gra, w, drawer.GraphAttribute("rankdir", "LR"))
}
