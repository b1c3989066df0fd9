// Package extsort implements an external merge-sorter: an unbounded
// Add/Finish/Read buffer that spills to temporary streams once it outgrows
// its in-memory capacity, and merges everything back into one sorted
// Cursor on read.
package extsort

import (
	"context"
	"io"
	"sort"

	"github.com/hsnlab/matview/pkg/cursor"
	"github.com/hsnlab/matview/pkg/order"
	"github.com/hsnlab/matview/pkg/rowstream"
)

// Sorter buffers records, spilling sorted batches to temporary streams once
// the buffer reaches RowsPerGroup*GroupsPerBatch records, and performs a
// k-way merge of everything flushed (plus any residual in-memory tail) on
// Read. It is the only unbounded in-memory structure in the engine.
type Sorter[T any] struct {
	name  string
	cmp   order.Comparator[T]
	codec rowstream.Codec[T]
	temp  rowstream.TempFactory

	rowsPerGroup int
	capacity     int

	buf      []T
	finished bool

	spilled []spilledBatch[T]
}

type spilledBatch[T any] struct {
	stream rowstream.Stream
	closer io.Closer
}

// New creates a Sorter that flushes to temp-factory-provided streams once
// its buffer reaches rowsPerGroup*groupsPerBatch records. The engine's
// defaults are 100,000 and 20, i.e. a 2,000,000-row buffer.
func New[T any](name string, cmp order.Comparator[T], codec rowstream.Codec[T], temp rowstream.TempFactory, rowsPerGroup, groupsPerBatch int) *Sorter[T] {
	return &Sorter[T]{
		name:         name,
		cmp:          cmp,
		codec:        codec,
		temp:         temp,
		rowsPerGroup: rowsPerGroup,
		capacity:     rowsPerGroup * groupsPerBatch,
	}
}

// Add buffers one record, flushing the buffer to a new temporary batch
// stream if it has reached capacity.
func (s *Sorter[T]) Add(ctx context.Context, record T) error {
	if err := ctx.Err(); err != nil {
		return rowstream.NewCancelledError(err)
	}
	s.buf = append(s.buf, record)
	if len(s.buf) >= s.capacity {
		return s.flush(ctx)
	}
	return nil
}

// flush sorts the in-memory buffer and writes it to a fresh temporary
// stream as a sequence of rowsPerGroup-sized row groups.
func (s *Sorter[T]) flush(ctx context.Context) error {
	if len(s.buf) == 0 {
		return nil
	}
	sort.SliceStable(s.buf, func(i, j int) bool { return s.cmp(s.buf[i], s.buf[j]) < 0 })

	stream, closer, err := s.temp.New(s.name)
	if err != nil {
		return err
	}

	w := rowstream.NewWriter[T](s.name, stream, s.codec)
	for start := 0; start < len(s.buf); start += s.rowsPerGroup {
		end := min(start+s.rowsPerGroup, len(s.buf))
		if err := w.Add(ctx, s.buf[start:end]); err != nil {
			_ = closer.Close()
			return err
		}
	}
	if err := w.Finish(ctx); err != nil {
		_ = closer.Close()
		return err
	}

	s.spilled = append(s.spilled, spilledBatch[T]{stream: stream, closer: closer})
	s.buf = nil
	return nil
}

// Finish marks the Sorter closed to further Add calls. It performs no I/O
// by itself; the residual in-memory buffer, if any, participates in Read as
// one more (already-sorted, unspilled) batch.
func (s *Sorter[T]) Finish(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return rowstream.NewCancelledError(err)
	}
	if len(s.buf) > 0 {
		sort.SliceStable(s.buf, func(i, j int) bool { return s.cmp(s.buf[i], s.buf[j]) < 0 })
	}
	s.finished = true
	return nil
}

// Read performs the k-way merge across every flushed batch plus the
// residual buffer: zero batches yields an empty cursor, one batch is
// streamed directly, otherwise a heap-based merge is used.
func (s *Sorter[T]) Read(ctx context.Context) (cursor.Cursor[T], error) {
	if err := ctx.Err(); err != nil {
		return nil, rowstream.NewCancelledError(err)
	}

	var batches []cursor.Cursor[T]
	for _, sp := range s.spilled {
		if _, err := sp.stream.Seek(0, io.SeekStart); err != nil {
			return nil, rowstream.NewIOError(s.name, err)
		}
		c, err := rowstream.Read[T](s.name, sp.stream, s.codec)
		if err != nil {
			return nil, err
		}
		batches = append(batches, c)
	}
	if len(s.buf) > 0 {
		batches = append(batches, cursor.NewSlice(s.buf))
	}

	switch len(batches) {
	case 0:
		return cursor.Empty[T](), nil
	case 1:
		return batches[0], nil
	default:
		return kWayMerge(batches, s.cmp)
	}
}

// Close releases every temporary stream the Sorter spilled to, regardless
// of whether Read was ever called.
func (s *Sorter[T]) Close() error {
	var firstErr error
	for _, sp := range s.spilled {
		if err := sp.closer.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
