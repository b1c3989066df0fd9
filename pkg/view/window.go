package view

import "github.com/hsnlab/matview/pkg/order"

// twoSlotWindow is the rolling window of size two used by the content
// executor: two slots only, writing behaves like "shift left on distinct
// new key, update in place on a key already in the window". It backs both
// the InstructionTargetKeys window and the PreserveKeyValues exemplar
// cache.
type twoSlotWindow[K, V any] struct {
	cmp  order.Comparator[K]
	keys [2]K
	vals [2]V
	n    int
}

func newTwoSlotWindow[K, V any](cmp order.Comparator[K]) *twoSlotWindow[K, V] {
	return &twoSlotWindow[K, V]{cmp: cmp}
}

// Push records that k was just seen with value v. If k matches a key
// already in the window, its value is refreshed in place; otherwise the
// window shifts and k becomes the newest (slot 0) entry.
func (w *twoSlotWindow[K, V]) Push(k K, v V) {
	for i := 0; i < w.n; i++ {
		if w.cmp(w.keys[i], k) == 0 {
			w.vals[i] = v
			return
		}
	}
	w.keys[1], w.vals[1] = w.keys[0], w.vals[0]
	w.keys[0], w.vals[0] = k, v
	if w.n < 2 {
		w.n++
	}
}

// Lookup reports the most recently pushed value for k, if k is still within
// the window.
func (w *twoSlotWindow[K, V]) Lookup(k K) (V, bool) {
	for i := 0; i < w.n; i++ {
		if w.cmp(w.keys[i], k) == 0 {
			return w.vals[i], true
		}
	}
	var zero V
	return zero, false
}

// Contains reports whether k is within the window, ignoring its value.
func (w *twoSlotWindow[K, V]) Contains(k K) bool {
	_, ok := w.Lookup(k)
	return ok
}
