package view

import (
	"context"
	"fmt"
	"io"

	"github.com/hsnlab/matview/pkg/rowstream"
	"github.com/hsnlab/matview/pkg/storage"
)

// memAdapter is a minimal in-memory storage.Adapter for tests: no
// filesystem, no bbolt, just a map keyed by (stage, kind, version). Both
// reference adapters (pkg/storage) already carry their own contract tests;
// this one exists purely so pkg/view's tests don't depend on the OS.
type memAdapter struct {
	data map[string][]byte
}

func newMemAdapter() *memAdapter {
	return &memAdapter{data: map[string][]byte{}}
}

func (m *memAdapter) key(stage string, kind storage.StreamType, version uint64) string {
	return fmt.Sprintf("%s/%d/%d", stage, kind, version)
}

func (m *memAdapter) OpenForRead(_ context.Context, stage string, kind storage.StreamType, version uint64) (rowstream.Stream, bool, error) {
	data, ok := m.data[m.key(stage, kind, version)]
	if !ok {
		return nil, false, nil
	}
	s := rowstream.NewMemStream()
	if _, err := s.Write(data); err != nil {
		return nil, false, err
	}
	if _, err := s.Seek(0, io.SeekStart); err != nil {
		return nil, false, err
	}
	return s, true, nil
}

func (m *memAdapter) Save(_ context.Context, stage string, kind storage.StreamType, version uint64, src rowstream.Stream) error {
	data, err := io.ReadAll(src)
	if err != nil {
		return err
	}
	m.data[m.key(stage, kind, version)] = data
	return nil
}

func testConfig() Config {
	return Config{RowsPerGroup: 4, GroupsPerBatch: 2}
}
