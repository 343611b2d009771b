package aligner

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
)

// Kind identifies an alignment backend.
type Kind string

const (
	// Bowtie2 aligns short reads against a multi-file index.
	Bowtie2 Kind = "bowtie2"
	// Minimap2 aligns reads against a single packed reference.
	Minimap2 Kind = "minimap2"
)

// DefaultCDNBaseURL hosts the default human references.
const DefaultCDNBaseURL = "https://objectstorage.uk-london-1.oraclecloud.com/n/lrbvkel2wjot/b/human-genome-bucket/o"

const defaultIndexName = "human-t2t-hla"

var (
	ErrUnknownAligner   = errors.New("unknown aligner")
	ErrDataDirMustBeSet = errors.New("data dir must be set")
)

// ParseKind returns the Kind named by s, case-insensitively.
func ParseKind(s string) (Kind, error) {
	switch Kind(strings.ToLower(strings.TrimSpace(s))) {
	case Bowtie2:
		return Bowtie2, nil
	case Minimap2:
		return Minimap2, nil
	}

	return "", errors.Wrapf(ErrUnknownAligner, "%q", s)
}

// Descriptor is the per-backend configuration. It must not be modified after New returns.
type Descriptor struct {
	Kind       Kind
	Name       string
	ShortName  string
	BinPath    string
	CDNBaseURL string
	DataDir    string

	IndexArchiveFilename string
	RefArchiveFilename   string
	IndexName            string
	// IndexFiles are the files making up the default index, relative to DataDir.
	IndexFiles []string
	// NativeReorderArg makes the backend emit paired records in input order. Empty when the
	// backend cannot do it.
	NativeReorderArg string

	IndexArchiveURL  string
	RefArchiveURL    string
	IndexArchivePath string
	RefArchivePath   string
	IndexPath        string
}

// Option configures a Descriptor before its derived fields are computed.
type Option func(d *Descriptor)

// WithBinPath overrides the backend binary.
func WithBinPath(binPath string) Option {
	return func(d *Descriptor) {
		d.BinPath = binPath
	}
}

// WithDataDir sets the local cache directory for default references.
func WithDataDir(dataDir string) Option {
	return func(d *Descriptor) {
		d.DataDir = dataDir
	}
}

// WithCDNBaseURL overrides where default references are fetched from.
func WithCDNBaseURL(baseURL string) Option {
	return func(d *Descriptor) {
		d.CDNBaseURL = strings.TrimRight(baseURL, "/")
	}
}

func defaults(kind Kind) (*Descriptor, error) {
	switch kind {
	case Bowtie2:
		return &Descriptor{
			Kind:                 Bowtie2,
			Name:                 "Bowtie2",
			ShortName:            "bt2",
			BinPath:              "bowtie2",
			CDNBaseURL:           DefaultCDNBaseURL,
			IndexArchiveFilename: defaultIndexName + ".tar",
			IndexName:            defaultIndexName,
			IndexFiles: []string{
				defaultIndexName + ".1.bt2",
				defaultIndexName + ".2.bt2",
				defaultIndexName + ".3.bt2",
				defaultIndexName + ".4.bt2",
				defaultIndexName + ".rev.1.bt2",
				defaultIndexName + ".rev.2.bt2",
			},
			NativeReorderArg: "--reorder",
		}, nil
	case Minimap2:
		return &Descriptor{
			Kind:               Minimap2,
			Name:               "Minimap2",
			ShortName:          "mm2",
			BinPath:            "minimap2",
			CDNBaseURL:         DefaultCDNBaseURL,
			RefArchiveFilename: defaultIndexName + ".fa.gz",
		}, nil
	}

	return nil, errors.Wrapf(ErrUnknownAligner, "%q", kind)
}

// New builds the descriptor of kind and creates its data directory.
func New(kind Kind, opts ...Option) (*Descriptor, error) {
	desc, err := defaults(kind)
	if err != nil {
		return nil, err
	}

	for _, opt := range opts {
		opt(desc)
	}

	if desc.DataDir == "" {
		return nil, ErrDataDirMustBeSet
	}

	if desc.IndexArchiveFilename != "" {
		desc.IndexArchiveURL = desc.CDNBaseURL + "/" + desc.IndexArchiveFilename
		desc.IndexArchivePath = filepath.Join(desc.DataDir, desc.IndexArchiveFilename)
	}

	if desc.RefArchiveFilename != "" {
		desc.RefArchiveURL = desc.CDNBaseURL + "/" + desc.RefArchiveFilename
		desc.RefArchivePath = filepath.Join(desc.DataDir, desc.RefArchiveFilename)
	}

	if desc.IndexName != "" {
		desc.IndexPath = filepath.Join(desc.DataDir, desc.IndexName)
	}

	err = os.MkdirAll(desc.DataDir, 0o755)
	if err != nil {
		return nil, errors.Wrapf(err, "unable to create data dir for %s", desc.Name)
	}

	return desc, nil
}

// IndexFilePaths returns the absolute paths of the default index files.
func (d *Descriptor) IndexFilePaths() []string {
	paths := make([]string, len(d.IndexFiles))
	for i, name := range d.IndexFiles {
		paths[i] = filepath.Join(d.DataDir, name)
	}

	return paths
}

// UsesMultiFileIndex reports whether the default data is an index made of several files
// rather than a single reference.
func (d *Descriptor) UsesMultiFileIndex() bool {
	return len(d.IndexFiles) > 0
}

// DefaultIndex returns the path the backend aligns against when no custom index is given.
func (d *Descriptor) DefaultIndex() string {
	if d.UsesMultiFileIndex() {
		return d.IndexPath
	}

	return d.RefArchivePath
}

// VersionArgs returns the argv probing that the binary runs.
func (d *Descriptor) VersionArgs() []string {
	return []string{d.BinPath, "--version"}
}
