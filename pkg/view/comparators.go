package view

import (
	"cmp"

	"github.com/hsnlab/matview/pkg/order"
)

// Comparators bundles the two single-key total orders a Stage needs. The
// composite (TK, SK) and (SK, TK) orders used by the instruction executors
// are built from these inline at each call site via pkg/order.Then, rather
// than duplicated as bespoke per-type structs; executor_mappings.go
// additionally layers pkg/order.Tiebreak on top of its (SK, TK) order for
// its "instructions precede existing rows at an identical key" rule.
type Comparators[SK, TK any] struct {
	SourceKey order.Comparator[SK]
	TargetKey order.Comparator[TK]
}

// DefaultComparators returns the natural order on both key types, the
// default a Stage falls back to when the caller supplies none.
func DefaultComparators[SK cmp.Ordered, TK cmp.Ordered]() Comparators[SK, TK] {
	return Comparators[SK, TK]{
		SourceKey: order.Natural[SK](),
		TargetKey: order.Natural[TK](),
	}
}
