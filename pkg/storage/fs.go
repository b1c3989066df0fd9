package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/hsnlab/matview/pkg/rowstream"
)

// FS is a local-filesystem Adapter: each (stage, kind, version) triple maps
// to one file under Dir, named "<stage>/<kind>-<version>.bin". Writes go to
// a sibling temp file first and are renamed into place, so a reader never
// observes a partially written version.
type FS struct {
	Dir string
}

func (f FS) path(stage string, kind StreamType, version uint64) string {
	return filepath.Join(f.Dir, stage, fmt.Sprintf("%s-%d.bin", kind, version))
}

func (f FS) OpenForRead(_ context.Context, stage string, kind StreamType, version uint64) (rowstream.Stream, bool, error) {
	file, err := os.Open(f.path(stage, kind, version))
	if os.IsNotExist(err) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, rowstream.NewIOError(stage, err)
	}
	return &readOnlyFile{file}, true, nil
}

func (f FS) Save(_ context.Context, stage string, kind StreamType, version uint64, src rowstream.Stream) error {
	n, err := rowstream.Len(src)
	if err != nil {
		return rowstream.NewIOError(stage, err)
	}
	if n == 0 {
		if err := os.Remove(f.path(stage, kind, version)); err != nil && !os.IsNotExist(err) {
			return rowstream.NewIOError(stage, err)
		}
		return nil
	}

	dir := filepath.Join(f.Dir, stage)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return rowstream.NewIOError(stage, err)
	}

	tmp, err := os.CreateTemp(dir, fmt.Sprintf(".%s-%d-*.tmp", kind, version))
	if err != nil {
		return rowstream.NewIOError(stage, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, src); err != nil {
		tmp.Close()
		return rowstream.NewIOError(stage, err)
	}
	if err := tmp.Close(); err != nil {
		return rowstream.NewIOError(stage, err)
	}
	if err := os.Rename(tmp.Name(), f.path(stage, kind, version)); err != nil {
		return rowstream.NewIOError(stage, err)
	}
	return nil
}

// readOnlyFile adapts an *os.File opened for reading to rowstream.Stream.
// Unlike the temporary-stream façade's fileStream, closing it never removes
// the file, since this data is durable, not temporary.
type readOnlyFile struct {
	*os.File
}

func (r *readOnlyFile) Truncate(int64) error {
	return fmt.Errorf("storage: persisted stream %s is read-only", r.Name())
}
