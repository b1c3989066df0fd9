package rowstream

import (
	"context"
	"encoding/binary"
	"encoding/json"
)

// Writer appends row groups to a Stream. Add is called once per row group
// (the caller, typically pkg/extsort, decides how many records make up a
// group); Finish closes the logical stream and repositions it to the start
// so the same Stream can be handed to a Reader without a separate open
// call.
type Writer[T any] struct {
	stream Stream
	codec  Codec[T]
	name   string
	meta   map[string]string
	wrote  bool
}

// NewWriter wraps stream for writing row groups of T using codec. name is
// used only in error messages.
func NewWriter[T any](name string, stream Stream, codec Codec[T]) *Writer[T] {
	return &Writer[T]{stream: stream, codec: codec, name: name, meta: map[string]string{}}
}

// SetMetadata attaches free-form metadata to the stream, written once ahead
// of the first row group. Must be called before the first Add.
func (w *Writer[T]) SetMetadata(meta map[string]string) {
	w.meta = meta
}

// Add writes one row group. ctx is checked before any I/O so that a
// cancelled production never performs a partial write.
func (w *Writer[T]) Add(ctx context.Context, batch []T) error {
	if err := ctx.Err(); err != nil {
		return NewCancelledError(err)
	}
	if err := w.ensureHeader(); err != nil {
		return err
	}

	data, err := w.codec.Marshal(batch)
	if err != nil {
		return err
	}
	return w.writeFrame(data)
}

func (w *Writer[T]) ensureHeader() error {
	if w.wrote {
		return nil
	}
	header, err := json.Marshal(w.meta)
	if err != nil {
		return NewSerializationError("header", err)
	}
	if err := w.writeFrame(header); err != nil {
		return err
	}
	w.wrote = true
	return nil
}

func (w *Writer[T]) writeFrame(data []byte) error {
	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], uint32(len(data)))
	if _, err := w.stream.Write(lenBuf[:]); err != nil {
		return NewIOError(w.name, err)
	}
	if _, err := w.stream.Write(data); err != nil {
		return NewIOError(w.name, err)
	}
	return nil
}

// Finish closes the logical stream. If no row group was ever added, the
// stream is left at length zero so the persistence adapter's Save treats
// it as "object does not exist" on the next read; no header is written in
// that case. Otherwise the stream is repositioned to offset 0 for
// immediate re-reading.
func (w *Writer[T]) Finish(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return NewCancelledError(err)
	}
	if !w.wrote {
		return nil
	}
	if _, err := w.stream.Seek(0, 0); err != nil {
		return NewIOError(w.name, err)
	}
	return nil
}
