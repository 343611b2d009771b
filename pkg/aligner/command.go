package aligner

import (
	"os/exec"
	"strconv"

	"github.com/biogo/external"
	"github.com/pkg/errors"
)

var ErrMissingRequired = errors.New("missing required argument")

// Params are the per-call values substituted into an alignment command.
type Params struct {
	// Index is the multi-file index prefix, used by backends aligning against an index.
	Index string
	// Reference is the packed reference, used by backends aligning against a reference.
	Reference string
	Reads1    string
	// Reads2 is set for paired-end input.
	Reads2  string
	Args    []string
	Threads int
}

// Paired reports whether p describes paired-end input.
func (p Params) Paired() bool {
	return p.Reads2 != ""
}

type bowtie2Command struct {
	Bin           string   `buildarg:"{{.}}"`
	Index         string   `buildarg:"-x{{split}}{{.}}"`
	Unpaired      string   `buildarg:"{{if .}}-U{{split}}{{.}}{{end}}"`
	Mate1         string   `buildarg:"{{if .}}-1{{split}}{{.}}{{end}}"`
	Mate2         string   `buildarg:"{{if .}}-2{{split}}{{.}}{{end}}"`
	MaxAlignments int      `buildarg:"{{if .}}-k{{split}}{{.}}{{end}}"`
	MemoryMapped  bool     `buildarg:"{{if .}}--mm{{end}}"`
	Threads       string   `buildarg:"-p{{split}}{{.}}"`
	Args          []string `buildarg:"{{range $i, $a := .}}{{if $i}}{{split}}{{end}}{{$a}}{{end}}"`
}

func (c bowtie2Command) BuildCommand() (*exec.Cmd, error) {
	if c.Index == "" || (c.Unpaired == "" && c.Mate1 == "") {
		return nil, ErrMissingRequired
	}

	argv, err := build(c)
	if err != nil {
		return nil, err
	}

	return exec.Command(argv[0], argv[1:]...), nil
}

type minimap2Command struct {
	Bin           string   `buildarg:"{{.}}"`
	Preset        string   `buildarg:"-ax{{split}}{{.}}"`
	MinChainScore int      `buildarg:"{{if .}}-m{{split}}{{.}}{{end}}"`
	Secondary     bool     `buildarg:"--secondary{{split}}{{if .}}yes{{else}}no{{end}}"`
	Threads       string   `buildarg:"-t{{split}}{{.}}"`
	Args          []string `buildarg:"{{range $i, $a := .}}{{if $i}}{{split}}{{end}}{{$a}}{{end}}"`
	Reference     string   `buildarg:"{{.}}"`
	Reads1        string   `buildarg:"{{.}}"`
	Reads2        string   `buildarg:"{{if .}}{{.}}{{end}}"`
}

func (c minimap2Command) BuildCommand() (*exec.Cmd, error) {
	if c.Reference == "" || c.Reads1 == "" {
		return nil, ErrMissingRequired
	}

	argv, err := build(c)
	if err != nil {
		return nil, err
	}

	return exec.Command(argv[0], argv[1:]...), nil
}

// build renders cb and drops the empty arguments left by unset optional fields.
func build(cb external.CommandBuilder) ([]string, error) {
	args, err := external.Build(cb)
	if err != nil {
		return nil, errors.Wrap(err, "unable to build command")
	}

	argv := args[:0]
	for _, arg := range args {
		if arg == "" {
			continue
		}
		argv = append(argv, arg)
	}

	return argv, nil
}

func (d *Descriptor) builder(p Params) (external.CommandBuilder, error) {
	threads := strconv.Itoa(p.Threads)

	switch d.Kind {
	case Bowtie2:
		cmd := bowtie2Command{
			Bin:           d.BinPath,
			Index:         p.Index,
			MaxAlignments: 1,
			MemoryMapped:  true,
			Threads:       threads,
			Args:          p.Args,
		}
		if p.Paired() {
			cmd.Mate1, cmd.Mate2 = p.Reads1, p.Reads2
		} else {
			cmd.Unpaired = p.Reads1
		}

		return cmd, nil
	case Minimap2:
		preset := "map-ont"
		if p.Paired() {
			preset = "sr"
		}

		return minimap2Command{
			Bin:           d.BinPath,
			Preset:        preset,
			MinChainScore: 40,
			Threads:       threads,
			Args:          p.Args,
			Reference:     p.Reference,
			Reads1:        p.Reads1,
			Reads2:        p.Reads2,
		}, nil
	}

	return nil, errors.Wrapf(ErrUnknownAligner, "%q", d.Kind)
}

// Command renders the alignment argv for p. The command streams SAM records to stdout.
func (d *Descriptor) Command(p Params) ([]string, error) {
	cb, err := d.builder(p)
	if err != nil {
		return nil, err
	}

	cmd, err := cb.BuildCommand()
	if err != nil {
		return nil, errors.Wrapf(err, "%s", d.Name)
	}

	return cmd.Args, nil
}
