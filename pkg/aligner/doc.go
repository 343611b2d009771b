// Package aligner describes the alignment backends used to separate host reads from the rest
// of a sample.
//
// A Descriptor is immutable once built by New: it holds the binary to run, the local cache
// directory for default references and the derived archive URLs and paths. Commands are
// rendered from a typed Params value so that every argument is substituted exactly once and
// per-call values, such as a custom index, never leak into the shared descriptor.
package aligner
