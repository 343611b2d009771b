package compiler

import (
	"strconv"
	"strings"
)

// RenameMode selects how read identifiers are numbered.
type RenameMode string

const (
	// RenameSingle numbers records 1, 2, 3...
	RenameSingle RenameMode = "single"
	// RenamePaired gives both mates of a pair the same number: 1, 1, 2, 2...
	RenamePaired RenameMode = "paired"
)

const (
	singleRenameProgram = `BEGIN { FS=OFS="\t"; line_count=0 } /^@/ { next }` +
		` { $1=int(line_count+1)" "; print $0; line_count++ }`
	pairedRenameProgram = `BEGIN { FS=OFS="\t"; start=0; line_count=1 } /^@/ { next }` +
		` !start && !/^@/ { start=1 } start { $1=int((line_count+1)/2)" "; print $0; line_count++ }`
)

// AwkProgram returns the awk program renaming a SAM stream the same way as Renamer.
func (m RenameMode) AwkProgram() string {
	if m == RenamePaired {
		return pairedRenameProgram
	}

	return singleRenameProgram
}

// Renamer replaces the read name of SAM records with an increasing integer. Header lines
// are dropped and never advance the counter. A Renamer is not safe for concurrent use.
type Renamer struct {
	mode  RenameMode
	count int
}

// NewRenamer returns a Renamer numbering records according to mode.
func NewRenamer(mode RenameMode) *Renamer {
	r := &Renamer{mode: mode}
	if mode == RenamePaired {
		r.count = 1
	}

	return r
}

// Next returns the identifier of the next record.
func (r *Renamer) Next() int {
	var id int
	if r.mode == RenamePaired {
		id = (r.count + 1) / 2
	} else {
		id = r.count + 1
	}
	r.count++

	return id
}

// Rename returns line with its first field replaced. ok is false for header lines, which
// must be dropped from the stream.
func (r *Renamer) Rename(line string) (string, bool) {
	if IsHeader(line) {
		return "", false
	}

	id := strconv.Itoa(r.Next()) + " "

	_, rest, found := strings.Cut(line, "\t")
	if !found {
		return id, true
	}

	return id + "\t" + rest, true
}
