package view

import (
	"github.com/hsnlab/matview/pkg/cursor"
	"github.com/hsnlab/matview/pkg/order"
)

// ValueSeq is the single-use, bounded sequence of values passed to a
// ProduceFunc for one source key. It is a plain cursor.Cursor; the
// "single-use" and "bounded" properties come from how boundedSeq is
// constructed and consumed below, not from the interface shape.
type ValueSeq[V any] = cursor.Cursor[V]

// boundedSeq exposes the Value of one outer SourceUpdate cursor and every
// immediately following update whose Key compares equal, stopping at the
// first strictly-greater key or end of stream. It is a thin view over the
// outer cursor: advancing it advances the outer cursor too, so the
// instruction generator can resume scanning exactly where Produce left off.
// Modeled as a small finite-state object rather than a lazy view that
// outlives the call.
type boundedSeq[K, V any] struct {
	outer cursor.Cursor[SourceUpdate[K, V]]
	key   K
	cmp   order.Comparator[K]
}

func newBoundedSeq[K, V any](outer cursor.Cursor[SourceUpdate[K, V]], key K, cmp order.Comparator[K]) *boundedSeq[K, V] {
	return &boundedSeq[K, V]{outer: outer, key: key, cmp: cmp}
}

func (b *boundedSeq[K, V]) Valid() bool {
	return b.outer.Valid() && b.cmp(b.outer.Value().Key, b.key) == 0
}

func (b *boundedSeq[K, V]) Value() V { return b.outer.Value().Value }

func (b *boundedSeq[K, V]) Next() error { return b.outer.Next() }

// Close is a no-op: the outer cursor is owned by the instruction generator,
// not by boundedSeq, and must keep living after this bounded view is
// discarded.
func (b *boundedSeq[K, V]) Close() error { return nil }

// exhausted reports whether the bounded sequence has been fully consumed,
// i.e. whether it is safe to conclude Produce did not under-consume its
// input.
func (b *boundedSeq[K, V]) exhausted() bool { return !b.Valid() }
