package dehost_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/askiada/go-dehost/internal/faketools"
	"github.com/askiada/go-dehost/pkg/aligner"
	"github.com/askiada/go-dehost/pkg/compiler"
	"github.com/askiada/go-dehost/pkg/dehost"
	"github.com/askiada/go-dehost/pkg/provision"
)

type fakeFetcher struct {
	mu   sync.Mutex
	urls []string
}

func (f *fakeFetcher) Download(_ context.Context, rawURL, dst string) error {
	f.mu.Lock()
	f.urls = append(f.urls, rawURL)
	f.mu.Unlock()

	return os.WriteFile(dst, []byte(">chr1\nACGT\n"), 0o600)
}

func config(t *testing.T, kind aligner.Kind, sam []string) dehost.Config {
	t.Helper()

	dir := t.TempDir()

	return dehost.Config{
		Aligner:  kind,
		DataDir:  filepath.Join(dir, "data"),
		BinPath:  faketools.Aligner(t, dir, string(kind), sam),
		Samtools: faketools.Samtools(t, dir),
		Index:    filepath.Join(dir, "custom"),
		Threads:  2,
		OutDir:   filepath.Join(dir, "out"),
	}
}

func TestClean(t *testing.T) {
	t.Parallel()

	faketools.Skip(t)

	tcs := map[string]struct {
		paired           bool
		native           bool
		rename           bool
		expectedIn       int64
		expectedOut      int64
		expectedRemoved  float64
		expectedClean1   string
		expectedHasMate2 bool
	}{
		"single shell": {
			expectedIn:      3,
			expectedOut:     2,
			expectedRemoved: 0.33333,
			expectedClean1:  "sample.clean.fastq.gz",
		},
		"single native renamed": {
			native:          true,
			rename:          true,
			expectedIn:      3,
			expectedOut:     2,
			expectedRemoved: 0.33333,
			expectedClean1:  "sample.clean.fastq.gz",
		},
		"paired shell": {
			paired:           true,
			expectedIn:       6,
			expectedOut:      2,
			expectedRemoved:  0.66667,
			expectedClean1:   "sample_1.clean_1.fastq.gz",
			expectedHasMate2: true,
		},
		"paired native": {
			paired:           true,
			native:           true,
			expectedIn:       6,
			expectedOut:      2,
			expectedRemoved:  0.66667,
			expectedClean1:   "sample_1.clean_1.fastq.gz",
			expectedHasMate2: true,
		},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			if !tc.native {
				faketools.Skip(t, "bash")
			}

			sam := faketools.SingleSAM
			if tc.paired {
				sam = faketools.PairedSAM
			}
			cfg := config(t, aligner.Bowtie2, sam)
			cfg.Native = tc.native
			cfg.Rename = tc.rename

			reads1, reads2 := filepath.Join(t.TempDir(), "sample.fastq.gz"), ""
			if tc.paired {
				reads1 = filepath.Join(t.TempDir(), "sample_1.fastq.gz")
				reads2 = filepath.Join(filepath.Dir(reads1), "sample_2.fastq.gz")
			}

			report, err := dehost.Clean(context.Background(), cfg, reads1, reads2)
			require.NoError(t, err)

			assert.Equal(t, "bowtie2", report.Aligner)
			assert.Equal(t, cfg.Index, report.Index)
			assert.Equal(t, reads1, report.Reads1In)
			assert.Equal(t, reads2, report.Reads2In)
			assert.Equal(t, tc.expectedIn, report.ReadsIn)
			assert.Equal(t, tc.expectedOut, report.ReadsOut)
			assert.Equal(t, tc.expectedIn-tc.expectedOut, report.ReadsRemoved)
			assert.InDelta(t, tc.expectedRemoved, report.ReadsRemovedProportion, 1e-9)
			assert.Equal(t, filepath.Join(cfg.OutDir, tc.expectedClean1), report.Reads1Out)
			assert.FileExists(t, report.Reads1Out)
			if tc.expectedHasMate2 {
				assert.FileExists(t, report.Reads2Out)
			} else {
				assert.Empty(t, report.Reads2Out)
			}

			if tc.rename {
				content, err := os.ReadFile(report.Reads1Out)
				require.NoError(t, err)
				assert.True(t, strings.HasPrefix(string(content), "@1 "), string(content))
			}
		})
	}
}

func TestCleanFetchesDefaultReference(t *testing.T) {
	t.Parallel()

	faketools.Skip(t)

	fetcher := &fakeFetcher{}
	cfg := config(t, aligner.Minimap2, faketools.SingleSAM)
	cfg.Index = ""
	cfg.CDNBaseURL = "https://mirror.example.com/refs/"
	cfg.Native = true
	cfg.Fetcher = fetcher

	report, err := dehost.Clean(context.Background(), cfg, filepath.Join(t.TempDir(), "sample.fastq"), "")
	require.NoError(t, err)

	assert.Equal(t, []string{"https://mirror.example.com/refs/human-t2t-hla.fa.gz"}, fetcher.urls)
	assert.Equal(t, filepath.Join(cfg.DataDir, "human-t2t-hla.fa.gz"), report.Index)
	assert.FileExists(t, report.Index)
	assert.Equal(t, int64(3), report.ReadsIn)

	// cached now
	_, err = dehost.Clean(context.Background(), cfg, filepath.Join(t.TempDir(), "other.fastq"), "")
	require.NoError(t, err)
	assert.Len(t, fetcher.urls, 1)
}

func TestCleanDOTFile(t *testing.T) {
	t.Parallel()

	faketools.Skip(t)

	tcs := map[string]struct {
		native bool
	}{
		"shell":  {},
		"native": {native: true},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			if !tc.native {
				faketools.Skip(t, "bash")
			}

			cfg := config(t, aligner.Bowtie2, faketools.SingleSAM)
			cfg.Native = tc.native
			cfg.DOTFile = filepath.Join(t.TempDir(), "pipeline.dot")

			_, err := dehost.Clean(context.Background(), cfg, "sample.fastq.gz", "")
			require.NoError(t, err)

			content, err := os.ReadFile(cfg.DOTFile)
			require.NoError(t, err)
			assert.True(t, strings.HasPrefix(string(content), "strict digraph"), string(content))
			assert.Contains(t, string(content), `"filter unmapped"`)
		})
	}
}

func TestCleanErrors(t *testing.T) {
	t.Parallel()

	faketools.Skip(t)

	t.Run("existing output", func(t *testing.T) {
		t.Parallel()

		cfg := config(t, aligner.Bowtie2, faketools.SingleSAM)
		cfg.Native = true
		require.NoError(t, os.MkdirAll(cfg.OutDir, 0o755))
		clean := filepath.Join(cfg.OutDir, "sample.clean.fastq.gz")
		require.NoError(t, os.WriteFile(clean, []byte("previous"), 0o600))

		_, err := dehost.Clean(context.Background(), cfg, "sample.fastq.gz", "")
		require.ErrorIs(t, err, compiler.ErrOutputExists)

		content, err := os.ReadFile(clean)
		require.NoError(t, err)
		assert.Equal(t, "previous", string(content))
	})

	t.Run("aligner not executable", func(t *testing.T) {
		t.Parallel()

		cfg := config(t, aligner.Bowtie2, faketools.SingleSAM)
		cfg.Native = true
		cfg.BinPath = faketools.FailingAligner(t, t.TempDir(), "bowtie2", "broken")

		_, err := dehost.Clean(context.Background(), cfg, "sample.fastq.gz", "")
		require.ErrorIs(t, err, provision.ErrBinaryNotExecutable)
	})

	t.Run("unknown aligner", func(t *testing.T) {
		t.Parallel()

		cfg := config(t, aligner.Bowtie2, faketools.SingleSAM)
		cfg.Aligner = "bwa"

		_, err := dehost.Clean(context.Background(), cfg, "sample.fastq.gz", "")
		require.ErrorIs(t, err, aligner.ErrUnknownAligner)
	})

	t.Run("failed run removes outputs", func(t *testing.T) {
		t.Parallel()

		cfg := config(t, aligner.Bowtie2, faketools.SingleSAM)
		cfg.Native = true
		// answers the version probe, fails to align
		cfg.BinPath = filepath.Join(t.TempDir(), "bowtie2")
		script := "#!/bin/sh\nif [ \"$1\" = --version ]; then exit 0; fi\necho 'index not found' >&2\nexit 1\n"
		require.NoError(t, os.WriteFile(cfg.BinPath, []byte(script), 0o755))

		_, err := dehost.Clean(context.Background(), cfg, "sample.fastq.gz", "")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "index not found")
		assert.NotErrorIs(t, err, compiler.ErrOutputExists)

		for _, name := range []string{"sample.clean.fastq.gz", "sample.reads_in.txt", "sample.reads_out.txt"} {
			assert.NoFileExists(t, filepath.Join(cfg.OutDir, name))
		}
	})
}

func TestConfigFromEnv(t *testing.T) {
	dir := t.TempDir()
	t.Setenv(dehost.CacheDirEnv, dir)
	t.Setenv(dehost.CDNBaseURLEnv, "")

	cfg, err := dehost.ConfigFromEnv()
	require.NoError(t, err)

	assert.Equal(t, aligner.Bowtie2, cfg.Aligner)
	assert.Equal(t, dir, cfg.DataDir)
	assert.Equal(t, aligner.DefaultCDNBaseURL, cfg.CDNBaseURL)
	assert.Equal(t, ".", cfg.OutDir)
	assert.Zero(t, cfg.Threads)

	t.Setenv(dehost.CDNBaseURLEnv, "https://mirror.example.com")
	cfg, err = dehost.ConfigFromEnv()
	require.NoError(t, err)
	assert.Equal(t, "https://mirror.example.com", cfg.CDNBaseURL)
}

func TestDefaultDataDir(t *testing.T) {
	t.Setenv(dehost.CacheDirEnv, "")

	cacheDir, err := os.UserCacheDir()
	if err != nil {
		t.Skip("no user cache dir")
	}

	dir, err := dehost.DefaultDataDir()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(cacheDir, "dehost"), dir)
}
