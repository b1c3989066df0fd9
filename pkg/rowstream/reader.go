package rowstream

import (
	"encoding/binary"
	"encoding/json"
	"io"

	"github.com/hsnlab/matview/pkg/cursor"
)

// Read opens stream for reading and returns a lazy cursor over its records
// in on-disk order. A zero-length stream yields an already-exhausted
// cursor, matching the persistence adapter's convention that a missing
// object reads back as an empty stream.
func Read[T any](name string, stream Stream, codec Codec[T]) (cursor.Cursor[T], error) {
	length, err := Len(stream)
	if err != nil {
		return nil, NewIOError(name, err)
	}
	if length == 0 {
		return cursor.Empty[T](), nil
	}

	r := &streamCursor[T]{name: name, stream: stream, codec: codec}
	if _, err := r.readFrame(); err != nil { // discard header frame
		return nil, err
	}
	if err := r.loadGroup(); err != nil {
		return nil, err
	}
	return r, nil
}

// ReadMetadata reads only the header frame of stream. It rewinds to offset
// 0 first and leaves the stream positioned right after the header; since
// Read treats the frame at the current position as the header, a Read
// from that position skips the first row group.
func ReadMetadata(name string, stream Stream) (map[string]string, error) {
	if _, err := stream.Seek(0, io.SeekStart); err != nil {
		return nil, NewIOError(name, err)
	}
	length, err := Len(stream)
	if err != nil {
		return nil, NewIOError(name, err)
	}
	if length == 0 {
		return nil, nil
	}
	r := &streamCursor[byte]{name: name, stream: stream}
	data, err := r.readFrame()
	if err != nil {
		return nil, err
	}
	meta := map[string]string{}
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, NewSerializationError("header", err)
	}
	return meta, nil
}

// streamCursor implements cursor.Cursor[T] over a sequence of row groups.
type streamCursor[T any] struct {
	name   string
	stream Stream
	codec  Codec[T]

	group []T
	pos   int
	done  bool
}

func (r *streamCursor[T]) readFrame() ([]byte, error) {
	var lenBuf [4]byte
	if _, err := io.ReadFull(r.stream, lenBuf[:]); err != nil {
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return nil, io.EOF
		}
		return nil, NewIOError(r.name, err)
	}
	size := binary.BigEndian.Uint32(lenBuf[:])
	data := make([]byte, size)
	if _, err := io.ReadFull(r.stream, data); err != nil {
		return nil, NewIOError(r.name, err)
	}
	return data, nil
}

// loadGroup advances past empty row groups until it finds one with at
// least one record, or reaches end of stream.
func (r *streamCursor[T]) loadGroup() error {
	for {
		data, err := r.readFrame()
		if err == io.EOF {
			r.done = true
			r.group, r.pos = nil, 0
			return nil
		}
		if err != nil {
			return err
		}
		batch, err := r.codec.Unmarshal(data)
		if err != nil {
			return err
		}
		if len(batch) > 0 {
			r.group, r.pos = batch, 0
			return nil
		}
		// Empty row group: keep scanning for the next non-empty one.
	}
}

func (r *streamCursor[T]) Valid() bool { return !r.done }

func (r *streamCursor[T]) Value() T { return r.group[r.pos] }

func (r *streamCursor[T]) Next() error {
	r.pos++
	if r.pos < len(r.group) {
		return nil
	}
	return r.loadGroup()
}

func (r *streamCursor[T]) Close() error { return nil }
