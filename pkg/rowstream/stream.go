package rowstream

import (
	"io"
	"os"
)

// Stream is the minimal capability the serialization façade needs from a
// persisted or temporary object: seekable, read-write, truncatable. It is
// deliberately narrow, keeping the concrete file format and the
// persistence backend as external collaborators behind this single
// interface.
type Stream interface {
	io.ReadWriteSeeker
	Truncate(size int64) error
}

// Len returns the current length of a Stream without disturbing its
// position.
func Len(s Stream) (int64, error) {
	pos, err := s.Seek(0, io.SeekCurrent)
	if err != nil {
		return 0, err
	}
	end, err := s.Seek(0, io.SeekEnd)
	if err != nil {
		return 0, err
	}
	if _, err := s.Seek(pos, io.SeekStart); err != nil {
		return 0, err
	}
	return end, nil
}

// memStream is a Stream backed by an in-memory buffer. Used by tests and by
// any temporary-stream factory that chooses not to spill to disk.
type memStream struct {
	buf []byte
	pos int64
}

// NewMemStream returns an empty in-memory Stream.
func NewMemStream() Stream { return &memStream{} }

func (m *memStream) Read(p []byte) (int, error) {
	if m.pos >= int64(len(m.buf)) {
		return 0, io.EOF
	}
	n := copy(p, m.buf[m.pos:])
	m.pos += int64(n)
	return n, nil
}

func (m *memStream) Write(p []byte) (int, error) {
	end := m.pos + int64(len(p))
	if end > int64(len(m.buf)) {
		grown := make([]byte, end)
		copy(grown, m.buf)
		m.buf = grown
	}
	n := copy(m.buf[m.pos:end], p)
	m.pos = end
	return n, nil
}

func (m *memStream) Seek(offset int64, whence int) (int64, error) {
	var base int64
	switch whence {
	case io.SeekStart:
		base = 0
	case io.SeekCurrent:
		base = m.pos
	case io.SeekEnd:
		base = int64(len(m.buf))
	}
	m.pos = base + offset
	if m.pos < 0 {
		m.pos = 0
	}
	return m.pos, nil
}

func (m *memStream) Truncate(size int64) error {
	switch {
	case size <= int64(len(m.buf)):
		m.buf = m.buf[:size]
	default:
		grown := make([]byte, size)
		copy(grown, m.buf)
		m.buf = grown
	}
	if m.pos > size {
		m.pos = size
	}
	return nil
}

// fileStream is a Stream backed by an *os.File, removed from disk on Close.
type fileStream struct {
	*os.File
}

func (f *fileStream) Close() error {
	name := f.File.Name()
	err := f.File.Close()
	_ = os.Remove(name)
	return err
}

// TempFactory produces seekable, read-write, truncatable streams of
// unbounded size, scoped to a single production. Labels are diagnostic
// only.
type TempFactory interface {
	New(label string) (Stream, io.Closer, error)
}

// MemTempFactory creates in-memory temporary streams. Suitable for small
// productions and tests; unbounded productions should use FileTempFactory.
type MemTempFactory struct{}

func (MemTempFactory) New(_ string) (Stream, io.Closer, error) {
	return NewMemStream(), noopCloser{}, nil
}

type noopCloser struct{}

func (noopCloser) Close() error { return nil }

// FileTempFactory creates temporary streams backed by files under Dir (the
// OS default temp directory when empty). Each returned io.Closer removes
// its backing file on Close, so every exit path of a production, whether
// success, error or cancellation, releases the file.
type FileTempFactory struct {
	Dir string
}

func (f FileTempFactory) New(label string) (Stream, io.Closer, error) {
	file, err := os.CreateTemp(f.Dir, "matview-"+label+"-*.tmp")
	if err != nil {
		return nil, nil, NewIOError(label, err)
	}
	fs := &fileStream{File: file}
	return fs, fs, nil
}
