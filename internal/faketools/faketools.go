// Package faketools installs stand-ins for the external tools of a host read removal
// pipeline, so pipelines can run in tests without the real aligners or samtools.
//
// The fake aligner prints a fixed SAM stream whatever its arguments are. The fake samtools
// implements the subcommands the pipeline uses on SAM text: view with -f, -F and -c, sort
// -n, and fastq writing one record per mate file.
package faketools

import (
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
)

// SingleSAM is the output of the fake aligner for single-end reads: two unmapped reads, a
// mapped one and a secondary alignment. 3 reads in, 2 reads out.
var SingleSAM = []string{
	"@HD\tVN:1.6\tSO:unsorted",
	"@SQ\tSN:chr1\tLN:1000",
	"s2\t4\t*\t0\t0\t*\t*\t0\t0\tACGT\tIIII",
	"s1\t0\tchr1\t100\t60\t4M\t*\t0\t0\tGGGG\tIIII",
	"s3\t4\t*\t0\t0\t*\t*\t0\t0\tTTTT\tIIII",
	"s1\t256\tchr1\t300\t0\t4M\t*\t0\t0\tGGGG\tIIII",
}

// PairedSAM is the output of the fake aligner for paired-end reads: one pair with both mates
// unmapped, one mapped pair, one pair with a single mate unmapped and a secondary alignment.
// 6 reads in, 2 reads out.
var PairedSAM = []string{
	"@HD\tVN:1.6\tSO:unsorted",
	"@SQ\tSN:chr1\tLN:1000",
	"p2\t77\t*\t0\t0\t*\t*\t0\t0\tACGT\tIIII",
	"p2\t141\t*\t0\t0\t*\t*\t0\t0\tTTGA\tIIII",
	"p1\t65\tchr1\t100\t60\t4M\t=\t200\t0\tACGT\tIIII",
	"p1\t129\tchr1\t200\t60\t4M\t=\t100\t0\tACGT\tIIII",
	"p3\t73\tchr1\t100\t60\t4M\t=\t100\t0\tGGCC\tIIII",
	"p3\t133\tchr1\t100\t0\t*\t=\t100\t0\tAATT\tIIII",
	"p1\t321\tchr1\t300\t0\t4M\t=\t200\t0\tACGT\tIIII",
}

// Available reports whether the tools the fakes are written with are on PATH.
func Available(tools ...string) bool {
	for _, tool := range append([]string{"sh", "awk", "sort", "cat"}, tools...) {
		if _, err := exec.LookPath(tool); err != nil {
			return false
		}
	}

	return true
}

// Skip skips the test when the fakes cannot run.
func Skip(t *testing.T, tools ...string) {
	t.Helper()

	if !Available(tools...) {
		t.Skip("shell tools not available")
	}
}

// Aligner writes an executable printing lines to dir/name and returns its path.
func Aligner(t *testing.T, dir, name string, lines []string) string {
	t.Helper()

	script := "#!/bin/sh\ncat <<'SAM'\n" + strings.Join(lines, "\n") + "\nSAM\n"

	return write(t, dir, name, script)
}

// FailingAligner writes an executable printing message to stderr and exiting with status 3.
func FailingAligner(t *testing.T, dir, name, message string) string {
	t.Helper()

	return write(t, dir, name, "#!/bin/sh\necho '"+message+"' >&2\nexit 3\n")
}

const samtoolsScript = `#!/bin/sh
flagAwk='
function has(f, m,   b) { for (b = 1; b <= m; b *= 2) if (int(m / b) % 2 == 1 && int(f / b) % 2 == 0) return 0; return 1 }
function none(f, m,   b) { for (b = 1; b <= m; b *= 2) if (int(m / b) % 2 == 1 && int(f / b) % 2 == 1) return 0; return 1 }
'
cmd=$1
shift
case "$cmd" in
view)
	req=0; exc=0; count=0
	while [ $# -gt 0 ]; do
		case "$1" in
		-f) req=$2; shift ;;
		-F) exc=$2; shift ;;
		-c) count=1 ;;
		esac
		shift
	done
	exec awk -F '\t' -v req="$req" -v exc="$exc" -v count="$count" "$flagAwk"'
/^@/ { next }
has($2, req) && none($2, exc) { n++; if (!count) print }
END { if (count) print n + 0 }'
	;;
sort)
	LC_ALL=C
	export LC_ALL
	exec sort -s -t "$(printf '\t')" -k1,1
	;;
fastq)
	o0=/dev/null; o1=/dev/null; o2=/dev/null
	while [ $# -gt 0 ]; do
		case "$1" in
		-0) o0=$2; shift ;;
		-1) o1=$2; shift ;;
		-2) o2=$2; shift ;;
		--threads|-c) shift ;;
		esac
		shift
	done
	exec awk -F '\t' -v o0="$o0" -v o1="$o1" -v o2="$o2" "$flagAwk"'
BEGIN { printf "" > o0; printf "" > o1; printf "" > o2 }
/^@/ { next }
{ out = o0; if (has($2, 64)) out = o1; if (has($2, 128)) out = o2; printf "@%s\n%s\n+\n%s\n", $1, $10, $11 > out }'
	;;
*)
	echo "unsupported samtools command $cmd" >&2
	exit 1
	;;
esac
`

// Samtools writes the fake samtools to dir and returns its path.
func Samtools(t *testing.T, dir string) string {
	t.Helper()

	return write(t, dir, "samtools", samtoolsScript)
}

func write(t *testing.T, dir, name, script string) string {
	t.Helper()

	path := filepath.Join(dir, name)
	err := os.WriteFile(path, []byte(script), 0o755)
	if err != nil {
		t.Fatalf("unable to write %s: %v", path, err)
	}

	return path
}
