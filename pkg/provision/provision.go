// Package provision makes sure an alignment backend can run before any pipeline starts: its
// binary answers a version probe and, unless a custom index is used, its default reference
// data is cached locally.
//
// Fetched data is cached forever. A Provisioner never refreshes files that are already
// present; delete them to force a new download.
package provision

import (
	"context"
	"os"
	"sync"

	"github.com/grailbio/base/log"
	"github.com/pkg/errors"

	"github.com/askiada/go-dehost/pkg/aligner"
	"github.com/askiada/go-dehost/pkg/executor"
	"github.com/askiada/go-dehost/pkg/provision/archive"
	"github.com/askiada/go-dehost/pkg/provision/fetch"
)

var (
	ErrBinaryNotExecutable = errors.New("failed to execute")
	ErrIndexIncomplete     = errors.New("index incomplete after extraction")
)

// Runner runs a command to completion.
type Runner interface {
	Run(ctx context.Context, argv []string, dir string) error
}

// State is the provisioning state of the default reference data.
type State int

const (
	Missing State = iota
	Fetching
	Present
	Failed
)

func (s State) String() string {
	switch s {
	case Missing:
		return "missing"
	case Fetching:
		return "fetching"
	case Present:
		return "present"
	case Failed:
		return "failed"
	}

	return "unknown"
}

// Provisioner checks and fetches the data of a single backend.
type Provisioner struct {
	desc      *aligner.Descriptor
	fetcher   fetch.Fetcher
	extractor archive.Extractor
	runner    Runner

	mu    sync.Mutex
	state State
}

// Option configures a Provisioner.
type Option func(p *Provisioner)

// WithFetcher replaces the default scheme-routing fetcher.
func WithFetcher(fetcher fetch.Fetcher) Option {
	return func(p *Provisioner) {
		p.fetcher = fetcher
	}
}

// WithExtractor replaces the default tar extractor.
func WithExtractor(extractor archive.Extractor) Option {
	return func(p *Provisioner) {
		p.extractor = extractor
	}
}

// WithRunner replaces the process runner used for the version probe.
func WithRunner(runner Runner) Option {
	return func(p *Provisioner) {
		p.runner = runner
	}
}

// New returns a Provisioner for desc.
func New(desc *aligner.Descriptor, opts ...Option) *Provisioner {
	p := &Provisioner{
		desc:      desc,
		fetcher:   fetch.NewMux(),
		extractor: archive.Tar{},
		runner:    executor.Process{},
	}
	for _, opt := range opts {
		opt(p)
	}

	return p
}

// State returns the state reached by the last Check or FetchDefault.
func (p *Provisioner) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.state
}

func (p *Provisioner) setState(state State) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.state = state
}

// Present reports whether the default reference data is cached.
func (p *Provisioner) Present() bool {
	if p.desc.UsesMultiFileIndex() {
		for _, path := range p.desc.IndexFilePaths() {
			if !exists(path) {
				return false
			}
		}

		return true
	}

	return exists(p.desc.RefArchivePath)
}

// Check fetches the default reference data if needed, then probes the backend binary. The
// default data is not looked at when usingCustomIndex is set.
func (p *Provisioner) Check(ctx context.Context, usingCustomIndex bool) error {
	if !usingCustomIndex {
		if p.Present() {
			p.setState(Present)
			log.Printf("Found cached %s (%s)", p.dataKind(), p.desc.DefaultIndex())
		} else {
			err := p.FetchDefault(ctx)
			if err != nil {
				return err
			}
		}
	}

	err := p.runner.Run(ctx, p.desc.VersionArgs(), p.desc.DataDir)
	if err != nil {
		log.Error.Printf("Failed to execute %s", p.desc.BinPath)

		return errors.Wrapf(ErrBinaryNotExecutable, "%s %s: %v", p.desc.Name, p.desc.BinPath, err)
	}

	return nil
}

// FetchDefault downloads the default reference data of the backend into its data dir.
func (p *Provisioner) FetchDefault(ctx context.Context) error {
	p.setState(Fetching)

	err := p.fetch(ctx)
	if err != nil {
		p.setState(Failed)

		return errors.Wrapf(err, "%s", p.desc.Name)
	}

	p.setState(Present)

	return nil
}

func (p *Provisioner) fetch(ctx context.Context) error {
	err := os.MkdirAll(p.desc.DataDir, 0o755)
	if err != nil {
		return errors.Wrapf(err, "unable to create %s", p.desc.DataDir)
	}

	// Same directory as the destination so the final move is a rename.
	tmp, err := os.CreateTemp(p.desc.DataDir, "."+p.desc.ShortName+"-*.part")
	if err != nil {
		return errors.Wrap(err, "unable to create temporary file")
	}
	tmpPath := tmp.Name()
	tmp.Close()
	defer os.Remove(tmpPath)

	if p.desc.UsesMultiFileIndex() {
		return p.fetchIndex(ctx, tmpPath)
	}

	return p.fetchReference(ctx, tmpPath)
}

func (p *Provisioner) fetchIndex(ctx context.Context, tmpPath string) error {
	log.Printf("Fetching human index (%s)", p.desc.IndexArchiveURL)

	err := p.fetcher.Download(ctx, p.desc.IndexArchiveURL, tmpPath)
	if err != nil {
		return err
	}

	log.Printf("Extracting index…")

	err = p.extractor.Extract(ctx, tmpPath, p.desc.DataDir)
	if err != nil {
		return err
	}

	if !p.Present() {
		return errors.Wrapf(ErrIndexIncomplete, "%s", p.desc.IndexArchiveURL)
	}

	log.Printf("Saved human index (%s)", p.desc.IndexPath)

	return nil
}

func (p *Provisioner) fetchReference(ctx context.Context, tmpPath string) error {
	log.Printf("Fetching human reference (%s)", p.desc.RefArchiveURL)

	err := p.fetcher.Download(ctx, p.desc.RefArchiveURL, tmpPath)
	if err != nil {
		return err
	}

	err = os.Rename(tmpPath, p.desc.RefArchivePath)
	if err != nil {
		return errors.Wrapf(err, "unable to move reference to %s", p.desc.RefArchivePath)
	}

	log.Printf("Saved human reference (%s)", p.desc.RefArchivePath)

	return nil
}

func (p *Provisioner) dataKind() string {
	if p.desc.UsesMultiFileIndex() {
		return "index"
	}

	return "genome"
}

func exists(path string) bool {
	_, err := os.Stat(path)

	return err == nil
}
