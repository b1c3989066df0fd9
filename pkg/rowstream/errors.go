package rowstream

import "fmt"

// ErrSerialization is returned when a codec fails to marshal or unmarshal a
// row group.
type ErrSerialization = error

// NewSerializationError wraps a codec failure.
func NewSerializationError(codec string, err error) ErrSerialization {
	return fmt.Errorf("serialization error in codec %q: %w", codec, err)
}

// ErrIO is returned when the underlying stream fails to read, write, seek or
// truncate.
type ErrIO = error

// NewIOError wraps an I/O failure against a named stream.
func NewIOError(stream string, err error) ErrIO {
	return fmt.Errorf("i/o error on stream %q: %w", stream, err)
}

// ErrCancelled is returned whenever a caller-supplied context is done,
// propagated from wherever the engine last checked ctx.Err.
type ErrCancelled = error

// NewCancelledError wraps a context cancellation or deadline error.
func NewCancelledError(err error) ErrCancelled {
	return fmt.Errorf("cancelled: %w", err)
}
