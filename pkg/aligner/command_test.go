package aligner_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/askiada/go-dehost/pkg/aligner"
)

func TestCommand(t *testing.T) {
	t.Parallel()

	tcs := map[string]struct {
		kind     aligner.Kind
		params   aligner.Params
		expected []string
	}{
		"bowtie2 single": {
			kind:   aligner.Bowtie2,
			params: aligner.Params{Index: "/data/idx", Reads1: "/in/a.fastq.gz", Threads: 4},
			expected: []string{
				"bowtie2", "-x", "/data/idx", "-U", "/in/a.fastq.gz", "-k", "1", "--mm", "-p", "4",
			},
		},
		"bowtie2 paired with args": {
			kind: aligner.Bowtie2,
			params: aligner.Params{
				Index: "/data/idx", Reads1: "/in/a_1.fq", Reads2: "/in/a_2.fq",
				Args: []string{"--very-sensitive", "--reorder"}, Threads: 8,
			},
			expected: []string{
				"bowtie2", "-x", "/data/idx", "-1", "/in/a_1.fq", "-2", "/in/a_2.fq",
				"-k", "1", "--mm", "-p", "8", "--very-sensitive", "--reorder",
			},
		},
		"minimap2 single": {
			kind:   aligner.Minimap2,
			params: aligner.Params{Reference: "/data/ref.fa.gz", Reads1: "/in/a.fastq.gz", Threads: 2},
			expected: []string{
				"minimap2", "-ax", "map-ont", "-m", "40", "--secondary", "no", "-t", "2",
				"/data/ref.fa.gz", "/in/a.fastq.gz",
			},
		},
		"minimap2 paired": {
			kind: aligner.Minimap2,
			params: aligner.Params{
				Reference: "/data/my ref.fa", Reads1: "/in/a_1.fq", Reads2: "/in/a_2.fq",
				Args: []string{"-k", "15"}, Threads: 1,
			},
			expected: []string{
				"minimap2", "-ax", "sr", "-m", "40", "--secondary", "no", "-t", "1", "-k", "15",
				"/data/my ref.fa", "/in/a_1.fq", "/in/a_2.fq",
			},
		},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			desc, err := aligner.New(tc.kind, aligner.WithDataDir(t.TempDir()))
			require.NoError(t, err)

			got, err := desc.Command(tc.params)
			require.NoError(t, err)
			assert.Equal(t, tc.expected, got)
		})
	}
}

func TestCommandMissingRequired(t *testing.T) {
	t.Parallel()

	tcs := map[string]struct {
		kind   aligner.Kind
		params aligner.Params
	}{
		"bowtie2 without index":  {kind: aligner.Bowtie2, params: aligner.Params{Reads1: "a.fq"}},
		"bowtie2 without reads":  {kind: aligner.Bowtie2, params: aligner.Params{Index: "idx"}},
		"minimap2 without ref":   {kind: aligner.Minimap2, params: aligner.Params{Reads1: "a.fq"}},
		"minimap2 without reads": {kind: aligner.Minimap2, params: aligner.Params{Reference: "ref.fa"}},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			desc, err := aligner.New(tc.kind, aligner.WithDataDir(t.TempDir()))
			require.NoError(t, err)

			_, err = desc.Command(tc.params)
			assert.ErrorIs(t, err, aligner.ErrMissingRequired)
		})
	}
}
