package view

import (
	"context"
	"fmt"

	"github.com/hsnlab/matview/pkg/cursor"
	"github.com/hsnlab/matview/pkg/extsort"
)

// generateInstructions performs a single simultaneous forward scan of prior
// KeyMappings (sorted by SourceKey) against incoming source updates (sorted
// by Key), invoking produce once per source key and writing typed
// add/delete instructions into the two supplied sorters.
//
// priorMappings and sourceUpdates are owned by the caller, which is
// responsible for closing them; generateInstructions only reads from them.
func generateInstructions[SK, SV, TK, TV any](
	ctx context.Context,
	cmp Comparators[SK, TK],
	priorMappings cursor.Cursor[KeyMapping[SK, TK]],
	sourceUpdates cursor.Cursor[SourceUpdate[SK, SV]],
	produce ProduceFunc[SK, SV, TK, TV],
	contentInstructions *extsort.Sorter[contentInstruction[TK, SK, TV]],
	mappingInstructions *extsort.Sorter[keyMappingInstruction[SK, TK]],
) error {
	emitDelete := func(m KeyMapping[SK, TK]) error {
		if err := contentInstructions.Add(ctx, contentInstruction[TK, SK, TV]{
			TargetKey: m.TargetKey, SourceKey: m.SourceKey, Deletion: true,
		}); err != nil {
			return err
		}
		return mappingInstructions.Add(ctx, keyMappingInstruction[SK, TK]{
			SourceKey: m.SourceKey, TargetKey: m.TargetKey, Deletion: true,
		})
	}

	emitAdd := func(sk SK, pair TargetPair[TK, TV]) error {
		if err := contentInstructions.Add(ctx, contentInstruction[TK, SK, TV]{
			TargetKey: pair.Key, SourceKey: sk, Value: pair.Value,
		}); err != nil {
			return err
		}
		return mappingInstructions.Add(ctx, keyMappingInstruction[SK, TK]{
			SourceKey: sk, TargetKey: pair.Key,
		})
	}

	for sourceUpdates.Valid() {
		u := sourceUpdates.Value()

		// Step 1: fast-forward past and then delete every prior mapping
		// for this source key.
		for priorMappings.Valid() && cmp.SourceKey(priorMappings.Value().SourceKey, u.Key) < 0 {
			if err := priorMappings.Next(); err != nil {
				return err
			}
		}
		for priorMappings.Valid() && cmp.SourceKey(priorMappings.Value().SourceKey, u.Key) == 0 {
			if err := emitDelete(priorMappings.Value()); err != nil {
				return err
			}
			if err := priorMappings.Next(); err != nil {
				return err
			}
		}

		switch u.Type {
		case Delete:
			// Step 2: consume just this row.
			if err := sourceUpdates.Next(); err != nil {
				return err
			}
		default:
			// Step 3: bound the value sequence to this key, run Produce,
			// then require full consumption.
			bs := newBoundedSeq[SK, SV](sourceUpdates, u.Key, cmp.SourceKey)
			pairs, err := produce(u.Key, bs)
			if err != nil {
				return err
			}
			for _, p := range pairs {
				if err := emitAdd(u.Key, p); err != nil {
					return err
				}
			}
			if !bs.exhausted() {
				return NewProducerUnderconsumedError(u.Key)
			}
		}

		// Either branch leaves sourceUpdates positioned just past every
		// row sharing u.Key; the next pending row, if any, must sort
		// strictly after u.Key or the input violated its per-key/ordering
		// invariant.
		if sourceUpdates.Valid() {
			next := sourceUpdates.Value()
			if cmp.SourceKey(next.Key, u.Key) <= 0 {
				return NewOrderingError(fmt.Sprintf(
					"source update key %v does not strictly follow key %v", next.Key, u.Key))
			}
		}
	}

	return nil
}
