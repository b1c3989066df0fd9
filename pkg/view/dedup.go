package view

import (
	"context"

	"github.com/hsnlab/matview/pkg/cursor"
	"github.com/hsnlab/matview/pkg/order"
	"github.com/hsnlab/matview/pkg/rowstream"
)

// dedupAdjacentKeys collapses runs of equal, already-sorted keys into a
// single occurrence each. It backs the multi-source merger's affected-keys
// set: the k-way merge of every feeder's Updates keys can repeat a key once
// per feeder, and only the distinct set matters downstream.
func dedupAdjacentKeys[K any](
	ctx context.Context,
	cmp order.Comparator[K],
	in cursor.Cursor[K],
	out *rowstream.BatchWriter[K],
) error {
	var last K
	hasLast := false
	for in.Valid() {
		k := in.Value()
		if !hasLast || cmp(k, last) != 0 {
			if err := out.Append(ctx, k); err != nil {
				return err
			}
			last, hasLast = k, true
		}
		if err := in.Next(); err != nil {
			return err
		}
	}
	return nil
}

// dedupDeltas applies the merger's delta deduplication rule: within a group
// of equal keys, if any non-delete row exists, every non-delete row is
// emitted and deletes in the group are suppressed; if the group is
// all-deletes, exactly one Delete survives. in must already be sorted by
// Key under cmp.
func dedupDeltas[K, V any](
	ctx context.Context,
	cmp order.Comparator[K],
	in cursor.Cursor[SourceUpdate[K, V]],
	out *rowstream.BatchWriter[SourceUpdate[K, V]],
) error {
	for in.Valid() {
		key := in.Value().Key
		var nonDeletes []SourceUpdate[K, V]
		var oneDelete SourceUpdate[K, V]
		sawDelete := false

		for in.Valid() && cmp(in.Value().Key, key) == 0 {
			row := in.Value()
			if row.Type == Delete {
				sawDelete, oneDelete = true, row
			} else {
				nonDeletes = append(nonDeletes, row)
			}
			if err := in.Next(); err != nil {
				return err
			}
		}

		if len(nonDeletes) > 0 {
			for _, row := range nonDeletes {
				if err := out.Append(ctx, row); err != nil {
					return err
				}
			}
		} else if sawDelete {
			if err := out.Append(ctx, oneDelete); err != nil {
				return err
			}
		}
	}
	return nil
}
