package dehost

import (
	"os"
	"path/filepath"

	"github.com/pkg/errors"

	"github.com/askiada/go-dehost/pkg/aligner"
	"github.com/askiada/go-dehost/pkg/provision/fetch"
)

// Environment variables read by ConfigFromEnv.
const (
	CacheDirEnv   = "DEHOST_CACHE_DIR"
	CDNBaseURLEnv = "DEHOST_CDN_BASE_URL"
)

// Config holds the settings of a run.
type Config struct {
	Aligner aligner.Kind
	// DataDir caches the default index and reference of every backend.
	DataDir    string
	CDNBaseURL string
	// BinPath overrides the backend binary.
	BinPath  string
	Samtools string
	Awk      string
	// Index is a custom index or reference, used instead of the default one.
	Index       string
	Rename      bool
	Reorder     bool
	AlignerArgs []string
	// Threads is passed to the aligner and samtools, 0 means one per CPU.
	Threads int
	OutDir  string
	Force   bool
	// Native runs the pipeline with the in-process executor instead of bash.
	Native bool
	// Measure logs the time spent in each stage, native executor only.
	Measure bool
	// DOTFile receives the pipeline graph.
	DOTFile string
	// Fetcher downloads the default index, a fetch.Mux when nil.
	Fetcher fetch.Fetcher
}

// DefaultDataDir returns $DEHOST_CACHE_DIR, or dehost under the user cache dir.
func DefaultDataDir() (string, error) {
	if dir := os.Getenv(CacheDirEnv); dir != "" {
		return dir, nil
	}

	cacheDir, err := os.UserCacheDir()
	if err != nil {
		return "", errors.Wrapf(err, "unable to find the user cache dir, set %s", CacheDirEnv)
	}

	return filepath.Join(cacheDir, "dehost"), nil
}

// ConfigFromEnv returns the default configuration: bowtie2, data cached in DefaultDataDir,
// outputs written to the working directory.
func ConfigFromEnv() (Config, error) {
	dataDir, err := DefaultDataDir()
	if err != nil {
		return Config{}, err
	}

	cdn := os.Getenv(CDNBaseURLEnv)
	if cdn == "" {
		cdn = aligner.DefaultCDNBaseURL
	}

	return Config{
		Aligner:    aligner.Bowtie2,
		DataDir:    dataDir,
		CDNBaseURL: cdn,
		OutDir:     ".",
	}, nil
}
