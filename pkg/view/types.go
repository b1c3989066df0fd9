// Package view implements the single-stage incremental update algorithm and
// its companion multi-source merge: the core subject of this module. A
// Stage owns three persisted, versioned streams (Content, KeyMappings,
// Updates) and republishes every change it makes as a delta stream so that
// downstream stages can update incrementally instead of re-scanning
// unchanged data.
package view

// UpdateType distinguishes the three kinds of row that can appear in a
// SourceUpdate or in an Updates stream.
type UpdateType int

const (
	Add UpdateType = iota
	Update
	Delete
)

func (t UpdateType) String() string {
	switch t {
	case Add:
		return "Add"
	case Update:
		return "Update"
	case Delete:
		return "Delete"
	default:
		return "Unknown"
	}
}

// SourceUpdate is an externally supplied (or downstream-reconstructed)
// change to one key. Value is meaningless when Type is Delete. The stream
// of SourceUpdate values a Stage consumes must be sorted by Key under the
// stage's source-key comparator, and for any one key must contain either
// exactly one Delete or one-or-more non-delete rows, never a mix.
type SourceUpdate[K, V any] struct {
	Type  UpdateType
	Key   K
	Value V
}

// TargetPair is one (TK, TV) pair yielded by a user Produce function for a
// given source key.
type TargetPair[TK, TV any] struct {
	Key   TK
	Value TV
}

// ContentRecord is one row of a stage's persisted view: the result of
// producing some SourceKey into a (TargetKey, TargetValue) pair.
// Uniqueness of (TargetKey, SourceKey, Value) triples is not required, so
// duplicates emitted by Produce survive.
type ContentRecord[TK, SK, TV any] struct {
	TargetKey TK
	SourceKey SK
	Value     TV
}

// KeyMapping is one row of a stage's (SourceKey, TargetKey) index: one row
// for every row of Content, so that the multiset of (SK, TK) pairs in
// KeyMappings always equals the multiset of (SK, TK) projections of
// Content.
type KeyMapping[SK, TK any] struct {
	SourceKey SK
	TargetKey TK
}

// contentInstruction is an internal, ephemeral instruction to add or delete
// one Content row, sorted by (TargetKey, SourceKey) with deletions and
// additions interleaved within equal keys.
type contentInstruction[TK, SK, TV any] struct {
	TargetKey TK
	SourceKey SK
	Value     TV
	Deletion  bool
}

// keyMappingInstruction is the KeyMappings analogue of contentInstruction,
// sorted by (SourceKey, TargetKey).
type keyMappingInstruction[SK, TK any] struct {
	SourceKey SK
	TargetKey TK
	Deletion  bool
}

// ProduceFunc is the user-supplied transformation at the heart of a Stage.
// It must fully consume values before returning, since anything left
// unconsumed triggers ProducerUnderconsumed, and may return target pairs in
// any order (the engine's sorters normalize the order away). It must not
// retain a reference to values past return.
type ProduceFunc[SK, SV, TK, TV any] func(key SK, values ValueSeq[SV]) ([]TargetPair[TK, TV], error)
