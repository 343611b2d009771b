package dehost

import (
	"math"

	"github.com/askiada/go-dehost/pkg/compiler"
	"github.com/askiada/go-dehost/pkg/executor"
)

// Report is the result of cleaning a sample.
type Report struct {
	Aligner   string `json:"aligner"`
	Index     string `json:"index"`
	Reads1In  string `json:"fastq1_in_path"`
	Reads2In  string `json:"fastq2_in_path,omitempty"`
	Reads1Out string `json:"fastq1_out_path"`
	Reads2Out string `json:"fastq2_out_path,omitempty"`
	ReadsIn   int64  `json:"reads_in"`
	ReadsOut  int64  `json:"reads_out"`
	// ReadsRemoved is ReadsIn minus ReadsOut.
	ReadsRemoved           int64   `json:"reads_removed"`
	ReadsRemovedProportion float64 `json:"reads_removed_proportion"`
}

// Counts returns the read counts keyed by name.
func (r Report) Counts() map[string]int64 {
	return map[string]int64{
		"reads_in":      r.ReadsIn,
		"reads_out":     r.ReadsOut,
		"reads_removed": r.ReadsRemoved,
	}
}

func newReport(compiled *compiler.Compiled, reads1, reads2 string, counts executor.Counts) *Report {
	report := &Report{
		Aligner:      string(compiled.Aligner),
		Index:        compiled.Index,
		Reads1In:     reads1,
		Reads2In:     reads2,
		Reads1Out:    compiled.Outputs.Clean1,
		Reads2Out:    compiled.Outputs.Clean2,
		ReadsIn:      counts.ReadsIn,
		ReadsOut:     counts.ReadsOut,
		ReadsRemoved: counts.ReadsIn - counts.ReadsOut,
	}
	if counts.ReadsIn > 0 {
		proportion := float64(report.ReadsRemoved) / float64(counts.ReadsIn)
		report.ReadsRemovedProportion = math.Round(proportion*1e5) / 1e5
	}

	return report
}
