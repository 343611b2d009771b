package aligner_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/askiada/go-dehost/pkg/aligner"
)

func TestParseKind(t *testing.T) {
	t.Parallel()

	tcs := map[string]struct {
		input    string
		expected aligner.Kind
		err      error
	}{
		"bowtie2":        {input: "bowtie2", expected: aligner.Bowtie2},
		"minimap2 upper": {input: " Minimap2 ", expected: aligner.Minimap2},
		"unknown":        {input: "bwa", err: aligner.ErrUnknownAligner},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			got, err := aligner.ParseKind(tc.input)
			if tc.err != nil {
				assert.True(t, errors.Is(err, tc.err))

				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.expected, got)
		})
	}
}

func TestNewCreatesDataDir(t *testing.T) {
	t.Parallel()

	dataDir := filepath.Join(t.TempDir(), "nested", "cache")
	desc, err := aligner.New(aligner.Bowtie2, aligner.WithDataDir(dataDir))
	require.NoError(t, err)

	info, err := os.Stat(dataDir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
	assert.Equal(t, dataDir, desc.DataDir)
}

func TestNewWithoutDataDir(t *testing.T) {
	t.Parallel()

	_, err := aligner.New(aligner.Minimap2)
	assert.ErrorIs(t, err, aligner.ErrDataDirMustBeSet)
}

func TestNewUnknown(t *testing.T) {
	t.Parallel()

	_, err := aligner.New(aligner.Kind("bwa"), aligner.WithDataDir(t.TempDir()))
	assert.True(t, errors.Is(err, aligner.ErrUnknownAligner))
}

func TestBowtie2Derived(t *testing.T) {
	t.Parallel()

	dataDir := t.TempDir()
	desc, err := aligner.New(aligner.Bowtie2, aligner.WithDataDir(dataDir), aligner.WithCDNBaseURL("https://cdn.example.org/o/"))
	require.NoError(t, err)

	assert.Equal(t, "https://cdn.example.org/o/human-t2t-hla.tar", desc.IndexArchiveURL)
	assert.Equal(t, filepath.Join(dataDir, "human-t2t-hla.tar"), desc.IndexArchivePath)
	assert.Equal(t, filepath.Join(dataDir, "human-t2t-hla"), desc.IndexPath)
	assert.Equal(t, desc.IndexPath, desc.DefaultIndex())
	assert.True(t, desc.UsesMultiFileIndex())
	assert.Equal(t, "--reorder", desc.NativeReorderArg)

	paths := desc.IndexFilePaths()
	require.Len(t, paths, 6)
	assert.Equal(t, filepath.Join(dataDir, "human-t2t-hla.1.bt2"), paths[0])
	assert.Equal(t, filepath.Join(dataDir, "human-t2t-hla.rev.2.bt2"), paths[5])
}

func TestMinimap2Derived(t *testing.T) {
	t.Parallel()

	dataDir := t.TempDir()
	desc, err := aligner.New(aligner.Minimap2, aligner.WithDataDir(dataDir), aligner.WithBinPath("/opt/bin/minimap2"))
	require.NoError(t, err)

	assert.Equal(t, aligner.DefaultCDNBaseURL+"/human-t2t-hla.fa.gz", desc.RefArchiveURL)
	assert.Equal(t, filepath.Join(dataDir, "human-t2t-hla.fa.gz"), desc.RefArchivePath)
	assert.Equal(t, desc.RefArchivePath, desc.DefaultIndex())
	assert.False(t, desc.UsesMultiFileIndex())
	assert.Empty(t, desc.NativeReorderArg)
	assert.Equal(t, []string{"/opt/bin/minimap2", "--version"}, desc.VersionArgs())
}
