package extsort

import (
	"container/heap"

	"github.com/hsnlab/matview/pkg/cursor"
	"github.com/hsnlab/matview/pkg/order"
)

// heapItem pairs a live cursor with the batch it came from, for the k-way
// merge priority queue. No third-party priority-queue library appears
// anywhere in the example pack (grep turned up only stdlib container/heap
// usages), so the k-way merge is built directly on it, as Go code doing
// this kind of merge idiomatically does.
type heapItem[T any] struct {
	cur   cursor.Cursor[T]
	batch int
}

type mergeHeap[T any] struct {
	items []heapItem[T]
	cmp   order.Comparator[T]
}

func (h *mergeHeap[T]) Len() int { return len(h.items) }

func (h *mergeHeap[T]) Less(i, j int) bool {
	c := h.cmp(h.items[i].cur.Value(), h.items[j].cur.Value())
	if c != 0 {
		return c < 0
	}
	// Stable tiebreak on batch index: records that sorted equal within
	// their own batch, or equal across batches, keep the relative order in
	// which their batches were flushed.
	return h.items[i].batch < h.items[j].batch
}

func (h *mergeHeap[T]) Swap(i, j int) { h.items[i], h.items[j] = h.items[j], h.items[i] }

func (h *mergeHeap[T]) Push(x any) { h.items = append(h.items, x.(heapItem[T])) }

func (h *mergeHeap[T]) Pop() any {
	n := len(h.items)
	item := h.items[n-1]
	h.items = h.items[:n-1]
	return item
}

// Merge returns a Cursor that yields every element of every batch cursor in
// cmp order, preserving input-batch order among equal elements. Exported so
// the multi-source merger can k-way merge feeders' streams directly, the
// same way Sorter.Read merges its own spilled batches.
func Merge[T any](batches []cursor.Cursor[T], cmp order.Comparator[T]) (cursor.Cursor[T], error) {
	return kWayMerge(batches, cmp)
}

// kWayMerge returns a Cursor that yields every element of every batch
// cursor in cmp order, preserving input-batch order among equal elements.
func kWayMerge[T any](batches []cursor.Cursor[T], cmp order.Comparator[T]) (cursor.Cursor[T], error) {
	h := &mergeHeap[T]{cmp: cmp}
	for i, c := range batches {
		if c.Valid() {
			h.items = append(h.items, heapItem[T]{cur: c, batch: i})
		}
	}
	heap.Init(h)

	m := &mergeCursor[T]{heap: h, all: batches}
	if err := m.advance(); err != nil {
		return nil, err
	}
	return m, nil
}

// mergeCursor implements cursor.Cursor[T] by repeatedly popping the
// smallest head-of-batch element from the heap.
type mergeCursor[T any] struct {
	heap    *mergeHeap[T]
	all     []cursor.Cursor[T]
	current T
	valid   bool
}

func (m *mergeCursor[T]) advance() error {
	if m.heap.Len() == 0 {
		m.valid = false
		return nil
	}
	top := heap.Pop(m.heap).(heapItem[T])
	m.current = top.cur.Value()
	m.valid = true

	if err := top.cur.Next(); err != nil {
		return err
	}
	if top.cur.Valid() {
		heap.Push(m.heap, top)
	}
	return nil
}

func (m *mergeCursor[T]) Valid() bool { return m.valid }

func (m *mergeCursor[T]) Value() T { return m.current }

func (m *mergeCursor[T]) Next() error { return m.advance() }

func (m *mergeCursor[T]) Close() error {
	var firstErr error
	for _, c := range m.all {
		if err := c.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
