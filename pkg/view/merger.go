package view

import (
	"context"
	"io"

	"github.com/hsnlab/matview/pkg/cursor"
	"github.com/hsnlab/matview/pkg/extsort"
	"github.com/hsnlab/matview/pkg/order"
	"github.com/hsnlab/matview/pkg/rowstream"
)

// Feeder is one upstream stage as seen by the multi-source merger: its
// Updates stream and its Content, reshaped to (Key, Value) pairs under the
// downstream stage's source-key order. Both factories must open a fresh,
// independent cursor each time they're called, since the merger needs two
// unsynchronized passes over Updates (once to build the affected-keys set,
// once per feeder to augment it) and one pass over Content.
type Feeder[SK, SV any] struct {
	Name        string
	OpenUpdates func() (cursor.Cursor[SourceUpdate[SK, SV]], error)
	OpenContent func() (cursor.Cursor[TargetPair[SK, SV]], error)
}

// mergeConfig bundles the plumbing the merger needs to spill intermediate
// results to temporary streams, allowing a second pass over the same data.
type mergeConfig[SK, SV any] struct {
	temp        rowstream.TempFactory
	keyCodec    rowstream.Codec[SK]
	updateCodec rowstream.Codec[SourceUpdate[SK, SV]]
	groupSize   int
}

// MergeSources runs the merger's three layers and returns a single ordered
// SourceUpdate stream satisfying Update's single-stage input invariants,
// ready to feed a downstream Stage's Update.
func MergeSources[SK, SV any](
	ctx context.Context,
	cmp order.Comparator[SK],
	feeders []Feeder[SK, SV],
	temp rowstream.TempFactory,
	keyCodec rowstream.Codec[SK],
	updateCodec rowstream.Codec[SourceUpdate[SK, SV]],
	groupSize int,
) (cursor.Cursor[SourceUpdate[SK, SV]], error) {
	cfg := mergeConfig[SK, SV]{temp: temp, keyCodec: keyCodec, updateCodec: updateCodec, groupSize: groupSize}

	affectedStream, affectedCloser, err := buildAffectedKeys(ctx, cmp, feeders, cfg)
	if err != nil {
		return nil, err // buildAffectedKeys already wraps with feeder/stage context
	}
	defer affectedCloser.Close()

	var augmented []cursor.Cursor[SourceUpdate[SK, SV]]
	var closers []io.Closer
	closeAll := func() {
		for _, c := range closers {
			c.Close()
		}
	}

	for _, f := range feeders {
		if _, err := affectedStream.Seek(0, io.SeekStart); err != nil {
			closeAll()
			return nil, NewMergeError(f.Name, rowstream.NewIOError(f.Name, err))
		}
		affectedKeys, err := rowstream.Read[SK]("affected-keys", affectedStream, keyCodec)
		if err != nil {
			closeAll()
			return nil, NewMergeError(f.Name, err)
		}

		c, closer, err := augmentFeeder(ctx, cmp, f, affectedKeys, cfg)
		if err != nil {
			closeAll()
			return nil, err // already a MergeError, wrapped by augmentFeeder
		}
		augmented = append(augmented, c)
		closers = append(closers, closer)
	}
	defer closeAll()

	mergedCursor := make([]cursor.Cursor[SourceUpdate[SK, SV]], 0, len(augmented))
	mergedCursor = append(mergedCursor, augmented...)
	merged, err := extsort.Merge(mergedCursor, sourceUpdateKeyOrder[SK, SV](cmp))
	if err != nil {
		return nil, NewMergeError("merged-deduped", err)
	}

	outStream, outCloser, err := temp.New("merged-deduped")
	if err != nil {
		return nil, NewMergeError("merged-deduped", err)
	}
	out := rowstream.NewBatchWriter(rowstream.NewWriter("merged-deduped", outStream, updateCodec), cfg.groupSize)
	if err := dedupDeltas(ctx, cmp, merged, out); err != nil {
		outCloser.Close()
		return nil, NewMergeError("merged-deduped", err)
	}
	if err := out.Close(ctx); err != nil {
		outCloser.Close()
		return nil, NewMergeError("merged-deduped", err)
	}
	if _, err := outStream.Seek(0, io.SeekStart); err != nil {
		outCloser.Close()
		return nil, NewMergeError("merged-deduped", rowstream.NewIOError("merged-deduped", err))
	}

	result, err := rowstream.Read[SourceUpdate[SK, SV]]("merged-deduped", outStream, updateCodec)
	if err != nil {
		outCloser.Close()
		return nil, NewMergeError("merged-deduped", err)
	}
	return &closingCursor[SourceUpdate[SK, SV]]{Cursor: result, closer: outCloser}, nil
}

// sourceUpdateKeyOrder lifts a key comparator to SourceUpdate values.
func sourceUpdateKeyOrder[SK, SV any](cmp order.Comparator[SK]) order.Comparator[SourceUpdate[SK, SV]] {
	return func(a, b SourceUpdate[SK, SV]) int { return cmp(a.Key, b.Key) }
}

// buildAffectedKeys k-way merges every feeder's Updates keys, collapses
// adjacent duplicates, and persists the result so every feeder can re-read
// it during augmentation.
func buildAffectedKeys[SK, SV any](
	ctx context.Context,
	cmp order.Comparator[SK],
	feeders []Feeder[SK, SV],
	cfg mergeConfig[SK, SV],
) (rowstream.Stream, io.Closer, error) {
	keyCursors := make([]cursor.Cursor[SK], 0, len(feeders))
	for _, f := range feeders {
		u, err := f.OpenUpdates()
		if err != nil {
			return nil, nil, NewMergeError(f.Name, err)
		}
		keyCursors = append(keyCursors, cursor.Map(u, func(su SourceUpdate[SK, SV]) SK { return su.Key }))
	}

	merged, err := extsort.Merge(keyCursors, cmp)
	if err != nil {
		return nil, nil, NewMergeError("affected-keys", err)
	}

	stream, closer, err := cfg.temp.New("affected-keys")
	if err != nil {
		return nil, nil, NewMergeError("affected-keys", err)
	}
	out := rowstream.NewBatchWriter(rowstream.NewWriter[SK]("affected-keys", stream, cfg.keyCodec), cfg.groupSize)
	dedupErr := dedupAdjacentKeys(ctx, cmp, merged, out)
	closeErr := merged.Close()
	if dedupErr != nil {
		closer.Close()
		return nil, nil, NewMergeError("affected-keys", dedupErr)
	}
	if closeErr != nil {
		closer.Close()
		return nil, nil, NewMergeError("affected-keys", closeErr)
	}
	if err := out.Close(ctx); err != nil {
		closer.Close()
		return nil, nil, NewMergeError("affected-keys", err)
	}
	return stream, closer, nil
}

// augmentFeeder reconciles a single feeder: walk the affected-keys stream,
// yielding the feeder's own Updates rows verbatim for a touched key, or its
// Content rows (reshaped into Adds) for an untouched but affected key.
func augmentFeeder[SK, SV any](
	ctx context.Context,
	cmp order.Comparator[SK],
	f Feeder[SK, SV],
	affectedKeys cursor.Cursor[SK],
	cfg mergeConfig[SK, SV],
) (cursor.Cursor[SourceUpdate[SK, SV]], io.Closer, error) {
	// Every failure in this function is about reconciling f specifically,
	// so every return below wraps with NewMergeError(f.Name, ...).
	updates, err := f.OpenUpdates()
	if err != nil {
		return nil, nil, NewMergeError(f.Name, err)
	}
	content, err := f.OpenContent()
	if err != nil {
		return nil, nil, NewMergeError(f.Name, err)
	}

	stream, closer, err := cfg.temp.New("augmented-" + f.Name)
	if err != nil {
		return nil, nil, NewMergeError(f.Name, err)
	}
	out := rowstream.NewBatchWriter(rowstream.NewWriter[SourceUpdate[SK, SV]]("augmented-"+f.Name, stream, cfg.updateCodec), cfg.groupSize)

	for affectedKeys.Valid() {
		k := affectedKeys.Value()

		for updates.Valid() && cmp(updates.Value().Key, k) < 0 {
			if err := updates.Next(); err != nil {
				closer.Close()
				return nil, nil, NewMergeError(f.Name, err)
			}
		}
		touched := updates.Valid() && cmp(updates.Value().Key, k) == 0

		if touched {
			for updates.Valid() && cmp(updates.Value().Key, k) == 0 {
				if err := out.Append(ctx, updates.Value()); err != nil {
					closer.Close()
					return nil, nil, NewMergeError(f.Name, err)
				}
				if err := updates.Next(); err != nil {
					closer.Close()
					return nil, nil, NewMergeError(f.Name, err)
				}
			}
		} else {
			for content.Valid() && cmp(content.Value().Key, k) < 0 {
				if err := content.Next(); err != nil {
					closer.Close()
					return nil, nil, NewMergeError(f.Name, err)
				}
			}
			for content.Valid() && cmp(content.Value().Key, k) == 0 {
				pair := content.Value()
				if err := out.Append(ctx, SourceUpdate[SK, SV]{Type: Add, Key: pair.Key, Value: pair.Value}); err != nil {
					closer.Close()
					return nil, nil, NewMergeError(f.Name, err)
				}
				if err := content.Next(); err != nil {
					closer.Close()
					return nil, nil, NewMergeError(f.Name, err)
				}
			}
		}

		if err := affectedKeys.Next(); err != nil {
			closer.Close()
			return nil, nil, NewMergeError(f.Name, err)
		}
	}

	updates.Close()
	content.Close()

	if err := out.Close(ctx); err != nil {
		closer.Close()
		return nil, nil, NewMergeError(f.Name, err)
	}
	if _, err := stream.Seek(0, io.SeekStart); err != nil {
		closer.Close()
		return nil, nil, NewMergeError(f.Name, rowstream.NewIOError(f.Name, err))
	}
	result, err := rowstream.Read[SourceUpdate[SK, SV]]("augmented-"+f.Name, stream, cfg.updateCodec)
	if err != nil {
		closer.Close()
		return nil, nil, NewMergeError(f.Name, err)
	}
	return result, closer, nil
}

// closingCursor wraps a Cursor with an extra io.Closer that must run once
// the cursor itself is closed: here, the final temporary stream's release.
type closingCursor[T any] struct {
	cursor.Cursor[T]
	closer io.Closer
}

func (c *closingCursor[T]) Close() error {
	err := c.Cursor.Close()
	if cerr := c.closer.Close(); cerr != nil && err == nil {
		err = cerr
	}
	return err
}
