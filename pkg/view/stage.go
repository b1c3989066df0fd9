package view

import (
	"context"
	"io"

	"github.com/go-logr/logr"

	"github.com/hsnlab/matview/pkg/cursor"
	"github.com/hsnlab/matview/pkg/extsort"
	"github.com/hsnlab/matview/pkg/order"
	"github.com/hsnlab/matview/pkg/rowstream"
	"github.com/hsnlab/matview/pkg/storage"
)

// Stage owns one materialized view's identity, persistence, and production
// logic. SK/SV are its source key/value types, TK/TV its target key/value
// types; the TK/TV pair also doubles as the SK/SV a downstream Stage sees
// through this Stage's Updates and Content.
type Stage[SK, SV, TK, TV any] struct {
	Name        string
	Adapter     storage.Adapter
	Produce     ProduceFunc[SK, SV, TK, TV]
	Comparators Comparators[SK, TK]
	Temp        rowstream.TempFactory
	Config      Config

	ContentCodec rowstream.Codec[ContentRecord[TK, SK, TV]]
	MappingCodec rowstream.Codec[KeyMapping[SK, TK]]
	UpdateCodec  rowstream.Codec[SourceUpdate[TK, TV]]

	// Preserve, when set, lets this stage carry a representative value
	// across a TargetKey whose owning row was replaced.
	Preserve PreserveKeyValues[TV]

	// Log receives diagnostic events around each production. The zero
	// value is silently treated as logr.Discard(), the same convention
	// the teacher's pkg/pipeline uses for its own log field.
	Log logr.Logger
}

func (s *Stage[SK, SV, TK, TV]) logger() logr.Logger {
	if s.Log.GetSink() == nil {
		return logr.Discard()
	}
	return s.Log
}

func contentInstructionOrder[TK, SK, TV any](cmp Comparators[SK, TK]) order.Comparator[contentInstruction[TK, SK, TV]] {
	pairOrder := order.Then(cmp.TargetKey, cmp.SourceKey)
	return func(a, b contentInstruction[TK, SK, TV]) int {
		return pairOrder(a.TargetKey, a.SourceKey, b.TargetKey, b.SourceKey)
	}
}

func keyMappingInstructionOrder[SK, TK any](cmp Comparators[SK, TK]) order.Comparator[keyMappingInstruction[SK, TK]] {
	pairOrder := order.Then(cmp.SourceKey, cmp.TargetKey)
	return func(a, b keyMappingInstruction[SK, TK]) int {
		return pairOrder(a.SourceKey, a.TargetKey, b.SourceKey, b.TargetKey)
	}
}

// closeStream releases a persisted stream if it carries a Close method;
// rowstream.Stream itself does not require one (temporary streams use a
// separate io.Closer), but persisted ones returned by storage.Adapter often
// wrap an *os.File.
func closeStream(s rowstream.Stream) {
	if c, ok := s.(io.Closer); ok {
		c.Close()
	}
}

// openVersioned opens one of a stage's three persisted streams at version,
// returning an empty cursor when the version is missing.
func openVersioned[T any](
	ctx context.Context,
	adapter storage.Adapter,
	name string,
	kind storage.StreamType,
	version uint64,
	codec rowstream.Codec[T],
) (cursor.Cursor[T], rowstream.Stream, error) {
	stream, ok, err := adapter.OpenForRead(ctx, name, kind, version)
	if err != nil {
		return nil, nil, err
	}
	if !ok {
		return cursor.Empty[T](), nil, nil
	}
	c, err := rowstream.Read(name, stream, codec)
	if err != nil {
		closeStream(stream)
		return nil, nil, err
	}
	return c, stream, nil
}

// Update is the pure single-stage transition: given the state at
// basedOnVersion and a stream of source updates, it produces and persists
// version basedOnVersion+1 and returns that new version number.
func (s *Stage[SK, SV, TK, TV]) Update(
	ctx context.Context,
	sourceUpdates cursor.Cursor[SourceUpdate[SK, SV]],
	basedOnVersion uint64,
) (uint64, error) {
	newVersion := basedOnVersion + 1
	log := s.logger().WithValues("stage", s.Name, "basedOnVersion", basedOnVersion, "newVersion", newVersion)
	log.V(1).Info("starting production")

	// The instruction generator and the KeyMappings executor each need
	// their own full pass over prior KeyMappings.
	genMappings, genStream, err := openVersioned[KeyMapping[SK, TK]](ctx, s.Adapter, s.Name, storage.KeyMappings, basedOnVersion, s.MappingCodec)
	if err != nil {
		return 0, err
	}
	defer closeStream(genStream)

	execMappings, execMapStream, err := openVersioned[KeyMapping[SK, TK]](ctx, s.Adapter, s.Name, storage.KeyMappings, basedOnVersion, s.MappingCodec)
	if err != nil {
		return 0, err
	}
	defer closeStream(execMapStream)

	priorContent, contentStream, err := openVersioned[ContentRecord[TK, SK, TV]](ctx, s.Adapter, s.Name, storage.Content, basedOnVersion, s.ContentCodec)
	if err != nil {
		return 0, err
	}
	defer closeStream(contentStream)

	contentInstructions := extsort.New[contentInstruction[TK, SK, TV]](
		s.Name+"-content-instructions", contentInstructionOrder[TK, SK, TV](s.Comparators),
		rowstream.JSONCodec[contentInstruction[TK, SK, TV]]{}, s.Temp, s.Config.RowsPerGroup, s.Config.GroupsPerBatch)
	defer contentInstructions.Close()

	mappingInstructions := extsort.New[keyMappingInstruction[SK, TK]](
		s.Name+"-mapping-instructions", keyMappingInstructionOrder[SK, TK](s.Comparators),
		rowstream.JSONCodec[keyMappingInstruction[SK, TK]]{}, s.Temp, s.Config.RowsPerGroup, s.Config.GroupsPerBatch)
	defer mappingInstructions.Close()

	if err := generateInstructions(ctx, s.Comparators, genMappings, sourceUpdates, s.Produce, contentInstructions, mappingInstructions); err != nil {
		return 0, err
	}
	if err := contentInstructions.Finish(ctx); err != nil {
		return 0, err
	}
	if err := mappingInstructions.Finish(ctx); err != nil {
		return 0, err
	}

	contentInsCursor, err := contentInstructions.Read(ctx)
	if err != nil {
		return 0, err
	}
	mappingInsCursor, err := mappingInstructions.Read(ctx)
	if err != nil {
		return 0, err
	}

	contentStreamOut, contentCloser, err := s.Temp.New(s.Name + "-content")
	if err != nil {
		return 0, err
	}
	defer contentCloser.Close()
	mappingStreamOut, mappingCloser, err := s.Temp.New(s.Name + "-keymappings")
	if err != nil {
		return 0, err
	}
	defer mappingCloser.Close()
	updatesStreamOut, updatesCloser, err := s.Temp.New(s.Name + "-updates")
	if err != nil {
		return 0, err
	}
	defer updatesCloser.Close()

	contentOut := rowstream.NewBatchWriter(rowstream.NewWriter(s.Name+"-content", contentStreamOut, s.ContentCodec), s.Config.RowsPerGroup)
	mappingOut := rowstream.NewBatchWriter(rowstream.NewWriter(s.Name+"-keymappings", mappingStreamOut, s.MappingCodec), s.Config.RowsPerGroup)
	updatesOut := rowstream.NewBatchWriter(rowstream.NewWriter(s.Name+"-updates", updatesStreamOut, s.UpdateCodec), s.Config.RowsPerGroup)

	if err := executeMappings(ctx, s.Comparators, execMappings, mappingInsCursor, mappingOut); err != nil {
		return 0, err
	}
	if err := executeContent(ctx, s.Comparators, priorContent, contentInsCursor, s.Preserve, contentOut, updatesOut); err != nil {
		return 0, err
	}

	if err := mappingOut.Close(ctx); err != nil {
		return 0, err
	}
	if err := contentOut.Close(ctx); err != nil {
		return 0, err
	}
	if err := updatesOut.Close(ctx); err != nil {
		return 0, err
	}

	if err := s.Adapter.Save(ctx, s.Name, storage.KeyMappings, newVersion, mappingStreamOut); err != nil {
		return 0, err
	}
	if err := s.Adapter.Save(ctx, s.Name, storage.Content, newVersion, contentStreamOut); err != nil {
		return 0, err
	}
	if err := s.Adapter.Save(ctx, s.Name, storage.Updates, newVersion, updatesStreamOut); err != nil {
		return 0, err
	}

	log.V(1).Info("production complete")
	return newVersion, nil
}

// UpdateFromSources implements the downstream half of production: run the
// multi-source merger over feeders to obtain one ordered SourceUpdate stream
// satisfying Update's single-stage input invariants, then feed it to Update.
// Registry.Sort gives the order in which a caller should invoke this across
// a DAG of stages.
func (s *Stage[SK, SV, TK, TV]) UpdateFromSources(
	ctx context.Context,
	feeders []Feeder[SK, SV],
	basedOnVersion uint64,
	keyCodec rowstream.Codec[SK],
	updateCodec rowstream.Codec[SourceUpdate[SK, SV]],
) (uint64, error) {
	s.logger().V(1).Info("merging feeders", "stage", s.Name, "feeders", len(feeders))
	merged, err := MergeSources(ctx, s.Comparators.SourceKey, feeders, s.Temp, keyCodec, updateCodec, s.Config.RowsPerGroup)
	if err != nil {
		return 0, err
	}
	defer merged.Close()
	return s.Update(ctx, merged, basedOnVersion)
}

// ReadUpdates streams this stage's Updates at version for downstream
// consumption.
func (s *Stage[SK, SV, TK, TV]) ReadUpdates(ctx context.Context, version uint64) (cursor.Cursor[SourceUpdate[TK, TV]], error) {
	c, _, err := openVersioned[SourceUpdate[TK, TV]](ctx, s.Adapter, s.Name, storage.Updates, version, s.UpdateCodec)
	return c, err
}

// ReadContent streams this stage's Content at version, reshaped to (TK,
// TV) pairs as a downstream feeder needs it.
func (s *Stage[SK, SV, TK, TV]) ReadContent(ctx context.Context, version uint64) (cursor.Cursor[TargetPair[TK, TV]], error) {
	c, _, err := openVersioned[ContentRecord[TK, SK, TV]](ctx, s.Adapter, s.Name, storage.Content, version, s.ContentCodec)
	if err != nil {
		return nil, err
	}
	return cursor.Map(c, func(r ContentRecord[TK, SK, TV]) TargetPair[TK, TV] {
		return TargetPair[TK, TV]{Key: r.TargetKey, Value: r.Value}
	}), nil
}
