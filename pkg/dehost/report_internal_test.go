package dehost

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/askiada/go-dehost/pkg/compiler"
	"github.com/askiada/go-dehost/pkg/executor"
)

func TestNewReport(t *testing.T) {
	t.Parallel()

	compiled := &compiler.Compiled{
		Aligner: "bowtie2",
		Index:   "/data/human-t2t-hla",
		Outputs: compiler.Outputs{Clean1: "out/a.clean.fastq.gz"},
	}

	tcs := map[string]struct {
		counts             executor.Counts
		expectedRemoved    int64
		expectedProportion float64
	}{
		"no reads": {
			counts: executor.Counts{},
		},
		"nothing removed": {
			counts: executor.Counts{ReadsIn: 10, ReadsOut: 10},
		},
		"rounded": {
			counts:             executor.Counts{ReadsIn: 3, ReadsOut: 1},
			expectedRemoved:    2,
			expectedProportion: 0.66667,
		},
		"everything removed": {
			counts:             executor.Counts{ReadsIn: 4},
			expectedRemoved:    4,
			expectedProportion: 1,
		},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			report := newReport(compiled, "a.fastq.gz", "", tc.counts)
			assert.Equal(t, tc.expectedRemoved, report.ReadsRemoved)
			assert.InDelta(t, tc.expectedProportion, report.ReadsRemovedProportion, 1e-9)
			assert.Equal(t, map[string]int64{
				"reads_in":      tc.counts.ReadsIn,
				"reads_out":     tc.counts.ReadsOut,
				"reads_removed": tc.expectedRemoved,
			}, report.Counts())
			assert.Equal(t, "bowtie2", report.Aligner)
			assert.Equal(t, "out/a.clean.fastq.gz", report.Reads1Out)
			assert.Empty(t, report.Reads2Out)
		})
	}
}
