// Package order implements composable total-order comparators.
//
// The engine never requires equality on keys or values, only a total order
// on keys: every sorter, cursor and merge in pkg/extsort and pkg/view takes
// a Comparator[K] and never reaches for ==, map keys, or hashing.
package order

import "cmp"

// Comparator returns a negative number if a sorts before b, zero if they are
// equivalent under this order, and a positive number if a sorts after b.
type Comparator[K any] func(a, b K) int

// Natural returns the comparator induced by cmp.Compare for any cmp.Ordered
// type. It is the default comparator a Stage uses on a key type when the
// caller supplies none.
func Natural[K cmp.Ordered]() Comparator[K] {
	return func(a, b K) int { return cmp.Compare(a, b) }
}

// Reverse flips a comparator, e.g. to get a descending order on a count
// column.
func Reverse[K any](cmp Comparator[K]) Comparator[K] {
	return func(a, b K) int { return -cmp(a, b) }
}

// Then builds a lexicographic comparator over a pair: compare the primary
// component first, and only consult the secondary comparator when the
// primary components are equivalent. This is how the engine builds its
// composite (TargetKey, SourceKey) and (SourceKey, TargetKey) orders out of
// the two single-key comparators a Stage is given.
func Then[A, B any](primary Comparator[A], secondary Comparator[B]) func(aKey A, aSub B, bKey A, bSub B) int {
	return func(aKey A, aSub B, bKey A, bSub B) int {
		if c := primary(aKey, bKey); c != 0 {
			return c
		}
		return secondary(aSub, bSub)
	}
}

// Tiebreak wraps a comparator with a synthetic boolean tiebreak that is
// consulted only when the wrapped comparator reports equivalence. The key
// mappings executor uses this for its "instructions precede existing rows
// at identical keys" rule: the caller passes `less(a, b) = a is an
// instruction and b is not` and ties resolve in favor of the side for
// which less returns true.
func Tiebreak[T any](eq Comparator[T], less func(a, b T) bool) Comparator[T] {
	return func(a, b T) int {
		if c := eq(a, b); c != 0 {
			return c
		}
		switch {
		case less(a, b):
			return -1
		case less(b, a):
			return 1
		default:
			return 0
		}
	}
}
