// Package compiler turns a dehosting request into a streaming pipeline description.
//
// A compiled pipeline is an ordered list of stages. Every stage but the first reads the
// output of a parent stage, either as the main stream or through a tap. Taps only observe
// the stream to count records and never alter it:
//
//	align ─┬─ count reads in (tap)
//	       └─ filter unmapped ─┬─ count reads out (tap)
//	                           └─ [sort by name] ─ [rename] ─ write fastq
//
// The same description renders to a bash script, a DOT graph, or drives the native
// executor. Compilation is deterministic and has no side effect besides creating the
// output directory.
package compiler
