package rowstream

import "context"

// BatchWriter accumulates individual records into row groups of size
// GroupSize before handing them to a Writer, so callers that naturally
// produce one row at a time, like the instruction executors, don't end up
// writing a degenerate one-row-per-group stream.
type BatchWriter[T any] struct {
	w         *Writer[T]
	groupSize int
	buf       []T
}

// NewBatchWriter wraps w, flushing every groupSize records.
func NewBatchWriter[T any](w *Writer[T], groupSize int) *BatchWriter[T] {
	if groupSize <= 0 {
		groupSize = 1
	}
	return &BatchWriter[T]{w: w, groupSize: groupSize}
}

// Append buffers one record, flushing a full row group if the buffer has
// reached groupSize.
func (b *BatchWriter[T]) Append(ctx context.Context, record T) error {
	b.buf = append(b.buf, record)
	if len(b.buf) >= b.groupSize {
		return b.Flush(ctx)
	}
	return nil
}

// Flush writes any buffered records as one (possibly short) row group.
func (b *BatchWriter[T]) Flush(ctx context.Context) error {
	if len(b.buf) == 0 {
		return nil
	}
	if err := b.w.Add(ctx, b.buf); err != nil {
		return err
	}
	b.buf = b.buf[:0]
	return nil
}

// Close flushes any remainder and finishes the underlying Writer.
func (b *BatchWriter[T]) Close(ctx context.Context) error {
	if err := b.Flush(ctx); err != nil {
		return err
	}
	return b.w.Finish(ctx)
}
