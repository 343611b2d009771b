package compiler

import (
	"path/filepath"
	"strings"
)

var (
	compressionSuffixes = []string{".gz", ".bz2", ".xz", ".zst"}
	formatSuffixes      = []string{".fastq", ".fq", ".fasta", ".fa", ".sam", ".bam"}
)

// Stem returns the sample identifier of a read file: its base name without compression
// and format extensions, matched case-insensitively.
func Stem(path string) string {
	name := filepath.Base(path)
	name = trimSuffixFold(name, compressionSuffixes)

	return trimSuffixFold(name, formatSuffixes)
}

func trimSuffixFold(name string, suffixes []string) string {
	lower := strings.ToLower(name)
	for _, suffix := range suffixes {
		if strings.HasSuffix(lower, suffix) && len(name) > len(suffix) {
			return name[:len(name)-len(suffix)]
		}
	}

	return name
}
