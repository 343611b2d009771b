package compiler

import (
	"github.com/askiada/go-dehost/internal/platform"
	"github.com/askiada/go-dehost/pkg/aligner"
)

// ReorderPolicy is how records are put back in name order when reordering is requested.
type ReorderPolicy string

const (
	NoReorder ReorderPolicy = "none"
	// SortStage adds an explicit name-sort stage after filtering.
	SortStage ReorderPolicy = "sort"
	// NativeArg asks the backend itself to keep input order.
	NativeArg ReorderPolicy = "native"
)

// slowNativeReorder lists the platforms where the backends' own reordering is too slow to
// be usable.
var slowNativeReorder = map[platform.Family]bool{
	platform.Darwin: true,
}

// PolicyFor picks exactly one reordering mechanism, or none when reorder is false. Native
// reordering is only used for paired input, on platforms where it is fast, and with a
// backend that supports it.
func PolicyFor(desc *aligner.Descriptor, family platform.Family, paired, reorder bool) ReorderPolicy {
	if !reorder {
		return NoReorder
	}

	if paired && desc.NativeReorderArg != "" && !slowNativeReorder[family] {
		return NativeArg
	}

	return SortStage
}
