package compiler

import (
	"strconv"
	"strings"

	"github.com/biogo/hts/sam"
	"github.com/pkg/errors"
)

// Masks applied by the pipeline stages.
const (
	// CountInExclude drops secondary and supplementary alignments so each input read is
	// counted once (2304).
	CountInExclude = sam.Secondary | sam.Supplementary
	// SingleRequire keeps unmapped reads (4).
	SingleRequire = sam.Unmapped
	// PairedRequire keeps reads whose mate is unmapped too (12).
	PairedRequire = sam.Unmapped | sam.MateUnmapped
	// CountOutExclude drops secondary alignments (256).
	CountOutExclude = sam.Secondary
)

var ErrMalformedRecord = errors.New("malformed sam record")

// FlagFilter selects SAM records by their FLAG field, like samtools view -f and -F.
type FlagFilter struct {
	// Require bits must all be set.
	Require sam.Flags
	// Exclude bits must all be unset.
	Exclude sam.Flags
}

// Match reports whether flags pass the filter.
func (f FlagFilter) Match(flags sam.Flags) bool {
	return flags&f.Require == f.Require && flags&f.Exclude == 0
}

// Args returns the samtools view arguments implementing the filter.
func (f FlagFilter) Args() []string {
	var args []string
	if f.Require != 0 {
		args = append(args, "-f", strconv.Itoa(int(f.Require)))
	}
	if f.Exclude != 0 {
		args = append(args, "-F", strconv.Itoa(int(f.Exclude)))
	}

	return args
}

// IsHeader reports whether line is a SAM header line.
func IsHeader(line string) bool {
	return strings.HasPrefix(line, "@")
}

// RecordFlags returns the FLAG field of a SAM alignment line.
func RecordFlags(line string) (sam.Flags, error) {
	_, rest, ok := strings.Cut(line, "\t")
	if !ok {
		return 0, errors.Wrapf(ErrMalformedRecord, "no flag field: %.40q", line)
	}

	field, _, _ := strings.Cut(rest, "\t")
	flags, err := strconv.ParseUint(field, 10, 16)
	if err != nil {
		return 0, errors.Wrapf(ErrMalformedRecord, "flag %q", field)
	}

	return sam.Flags(flags), nil
}
