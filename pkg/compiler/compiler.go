package compiler

import (
	"os"
	"path/filepath"
	"strconv"

	"github.com/grailbio/base/log"
	"github.com/pkg/errors"

	"github.com/askiada/go-dehost/internal/platform"
	"github.com/askiada/go-dehost/pkg/aligner"
)

var (
	ErrMissingReads  = errors.New("missing input reads")
	ErrOutputExists  = errors.New("output file already exists, use force to overwrite")
	ErrOutDirMissing = errors.New("output dir must be set")
)

// Fixed resources of the explicit name-sort stage.
const (
	sortThreads = 6
	sortMemory  = "1G"
	// fastqCompression is the gzip level of cleaned reads.
	fastqCompression = 6
)

// Request holds the per-sample parameters of a compilation.
type Request struct {
	Reads1 string
	// Reads2 is set for paired-end samples.
	Reads2 string
	OutDir string
	// Index overrides the backend's default index or reference for this request only.
	Index       string
	Rename      bool
	Reorder     bool
	AlignerArgs []string
	// Threads is passed verbatim to the alignment and write stages.
	Threads int
	Force   bool
}

// Outputs are the files a compiled pipeline writes.
type Outputs struct {
	Clean1 string
	// Clean2 is only set for paired-end samples.
	Clean2   string
	ReadsIn  string
	ReadsOut string
}

// CleanFiles returns the cleaned read files.
func (o Outputs) CleanFiles() []string {
	if o.Clean2 == "" {
		return []string{o.Clean1}
	}

	return []string{o.Clean1, o.Clean2}
}

// Compiled is a fully specified pipeline. It is never modified after Compile returns.
type Compiled struct {
	Aligner aligner.Kind
	Paired  bool
	// Index is the index or reference the pipeline aligns against.
	Index   string
	Reorder ReorderPolicy
	Stages  []Stage
	Outputs Outputs
	// Script is the pipeline rendered for bash.
	Script string
}

// Compiler compiles requests into pipelines. It holds no per-request state and can be
// shared between goroutines.
type Compiler struct {
	platform platform.Family
	samtools string
	awk      string
}

// Option configures a Compiler.
type Option func(c *Compiler)

// WithPlatform compiles for family instead of the running platform.
func WithPlatform(family platform.Family) Option {
	return func(c *Compiler) {
		c.platform = family
	}
}

// WithSamtools sets the samtools binary.
func WithSamtools(bin string) Option {
	return func(c *Compiler) {
		c.samtools = bin
	}
}

// WithAwk sets the awk binary.
func WithAwk(bin string) Option {
	return func(c *Compiler) {
		c.awk = bin
	}
}

// New returns a Compiler.
func New(opts ...Option) *Compiler {
	c := &Compiler{
		platform: platform.Current(),
		samtools: "samtools",
		awk:      "awk",
	}
	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Compile compiles req against desc, paired-end when req.Reads2 is set.
func (c *Compiler) Compile(desc *aligner.Descriptor, req Request) (*Compiled, error) {
	if req.Reads2 != "" {
		return c.CompilePaired(desc, req)
	}

	return c.CompileSingle(desc, req)
}

// CompileSingle compiles a single-end request.
func (c *Compiler) CompileSingle(desc *aligner.Descriptor, req Request) (*Compiled, error) {
	if req.Reads1 == "" {
		return nil, ErrMissingReads
	}

	stem := Stem(req.Reads1)
	outputs := Outputs{
		Clean1:   filepath.Join(req.OutDir, stem+".clean.fastq.gz"),
		ReadsIn:  filepath.Join(req.OutDir, stem+".reads_in.txt"),
		ReadsOut: filepath.Join(req.OutDir, stem+".reads_out.txt"),
	}

	return c.compile(desc, req, false, outputs)
}

// CompilePaired compiles a paired-end request. Outputs are named after the first file.
func (c *Compiler) CompilePaired(desc *aligner.Descriptor, req Request) (*Compiled, error) {
	if req.Reads1 == "" || req.Reads2 == "" {
		return nil, ErrMissingReads
	}

	stem := Stem(req.Reads1)
	outputs := Outputs{
		Clean1:   filepath.Join(req.OutDir, stem+".clean_1.fastq.gz"),
		Clean2:   filepath.Join(req.OutDir, stem+".clean_2.fastq.gz"),
		ReadsIn:  filepath.Join(req.OutDir, stem+".reads_in.txt"),
		ReadsOut: filepath.Join(req.OutDir, stem+".reads_out.txt"),
	}

	return c.compile(desc, req, true, outputs)
}

func (c *Compiler) compile(desc *aligner.Descriptor, req Request, paired bool, outputs Outputs) (*Compiled, error) {
	if req.OutDir == "" {
		return nil, ErrOutDirMissing
	}

	err := os.MkdirAll(req.OutDir, 0o755)
	if err != nil {
		return nil, errors.Wrapf(err, "unable to create output dir %s", req.OutDir)
	}

	if !req.Force {
		for _, path := range outputs.CleanFiles() {
			if _, err := os.Stat(path); err == nil {
				return nil, errors.Wrapf(ErrOutputExists, "%s", path)
			}
		}
	}

	// The effective index is request scoped, desc stays untouched.
	params := aligner.Params{
		Index:     desc.IndexPath,
		Reference: desc.RefArchivePath,
		Reads1:    req.Reads1,
		Reads2:    req.Reads2,
		Args:      append([]string(nil), req.AlignerArgs...),
		Threads:   req.Threads,
	}
	if req.Index != "" {
		params.Index, params.Reference = req.Index, req.Index
		log.Printf("Using custom index (%s)", req.Index)
	}

	policy := PolicyFor(desc, c.platform, paired, req.Reorder)
	if policy == NativeArg {
		params.Args = append(params.Args, desc.NativeReorderArg)
	}

	alignArgv, err := desc.Command(params)
	if err != nil {
		return nil, err
	}

	compiled := &Compiled{
		Aligner: desc.Kind,
		Paired:  paired,
		Index:   desc.DefaultIndex(),
		Reorder: policy,
		Outputs: outputs,
		Stages:  c.stages(alignArgv, req, paired, policy, outputs),
	}
	if req.Index != "" {
		compiled.Index = req.Index
	}

	gra, err := compiled.Graph()
	if err != nil {
		return nil, err
	}

	err = validate(gra)
	if err != nil {
		return nil, err
	}

	compiled.Script, err = render(compiled.Stages)
	if err != nil {
		return nil, err
	}

	log.Debug.Printf("compiled %s pipeline: %s", desc.Name, compiled.Script)

	return compiled, nil
}

func (c *Compiler) stages(alignArgv []string, req Request, paired bool, policy ReorderPolicy, outputs Outputs) []Stage {
	keep := FlagFilter{Require: SingleRequire}
	rename := RenameSingle
	if paired {
		keep = FlagFilter{Require: PairedRequire}
		rename = RenamePaired
	}
	countIn := FlagFilter{Exclude: CountInExclude}
	countOut := FlagFilter{Exclude: CountOutExclude}

	stages := []Stage{
		{Name: AlignStageName, Kind: AlignKind, Argv: alignArgv},
		{
			Name: CountInStageName, Kind: CountKind, Parent: AlignStageName, Connection: Tap,
			Argv: c.view(countIn, "-c"), Filter: countIn, Output: outputs.ReadsIn,
		},
		{
			Name: FilterStageName, Kind: FilterKind, Parent: AlignStageName, Connection: Main,
			Argv: c.view(keep), Filter: keep,
		},
		{
			Name: CountOutStageName, Kind: CountKind, Parent: FilterStageName, Connection: Tap,
			Argv: c.view(countOut, "-c"), Filter: countOut, Output: outputs.ReadsOut,
		},
	}

	last := FilterStageName
	if policy == SortStage {
		stages = append(stages, Stage{
			Name: SortStageName, Kind: SortKind, Parent: last, Connection: Main,
			Argv: []string{
				c.samtools, "sort", "-n", "-O", "sam",
				"-@", strconv.Itoa(sortThreads), "-m", sortMemory,
			},
		})
		last = SortStageName
	}

	if req.Rename {
		stages = append(stages, Stage{
			Name: RenameStageName, Kind: RenameKind, Parent: last, Connection: Main,
			Argv: []string{c.awk, rename.AwkProgram()}, Rename: rename,
		})
		last = RenameStageName
	}

	write := []string{
		c.samtools, "fastq", "--threads", strconv.Itoa(req.Threads),
		"-c", strconv.Itoa(fastqCompression),
	}
	if paired {
		write = append(write, "-N", "-1", outputs.Clean1, "-2", outputs.Clean2)
	} else {
		write = append(write, "-0", outputs.Clean1)
	}

	return append(stages, Stage{Name: WriteStageName, Kind: WriteKind, Parent: last, Connection: Main, Argv: write})
}

func (c *Compiler) view(filter FlagFilter, extra ...string) []string {
	argv := append([]string{c.samtools, "view"}, filter.Args()...)
	argv = append(argv, extra...)

	return append(argv, "-")
}
