package storage

import (
	"context"
	"fmt"
	"io"

	"go.etcd.io/bbolt"

	"github.com/hsnlab/matview/pkg/rowstream"
)

// Bolt is a bbolt-backed Adapter: one bucket per stage, keyed by
// "<kind>-<version>", grounded on weaviate-weaviate's
// adapters/repos/schema/store.go (one bucket per schema class) and on
// tymbaca-mapreduce-go's mapreduce/storage/bbolt package, both of which use
// a single bbolt file as the durable store for versioned blobs.
type Bolt struct {
	DB *bbolt.DB
}

// OpenBolt opens (creating if necessary) a bbolt database at path.
func OpenBolt(path string) (*Bolt, error) {
	db, err := bbolt.Open(path, 0o600, nil)
	if err != nil {
		return nil, rowstream.NewIOError(path, err)
	}
	return &Bolt{DB: db}, nil
}

func (b *Bolt) Close() error {
	return b.DB.Close()
}

func boltKey(kind StreamType, version uint64) []byte {
	return []byte(fmt.Sprintf("%s-%d", kind, version))
}

func (b *Bolt) OpenForRead(_ context.Context, stage string, kind StreamType, version uint64) (rowstream.Stream, bool, error) {
	var data []byte
	err := b.DB.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(stage))
		if bucket == nil {
			return nil
		}
		v := bucket.Get(boltKey(kind, version))
		if v == nil {
			return nil
		}
		data = append([]byte(nil), v...)
		return nil
	})
	if err != nil {
		return nil, false, rowstream.NewIOError(stage, err)
	}
	if data == nil {
		return nil, false, nil
	}
	return &memoryReadStream{data: data}, true, nil
}

func (b *Bolt) Save(_ context.Context, stage string, kind StreamType, version uint64, src rowstream.Stream) error {
	data, err := io.ReadAll(src)
	if err != nil {
		return rowstream.NewIOError(stage, err)
	}
	if len(data) == 0 {
		return b.DB.Update(func(tx *bbolt.Tx) error {
			bucket := tx.Bucket([]byte(stage))
			if bucket == nil {
				return nil
			}
			return bucket.Delete(boltKey(kind, version))
		})
	}
	return b.DB.Update(func(tx *bbolt.Tx) error {
		bucket, err := tx.CreateBucketIfNotExists([]byte(stage))
		if err != nil {
			return err
		}
		return bucket.Put(boltKey(kind, version), data)
	})
}

// memoryReadStream is a read-only rowstream.Stream over an in-memory
// snapshot of a bbolt value.
type memoryReadStream struct {
	data []byte
	pos  int64
}

func (m *memoryReadStream) Read(p []byte) (int, error) {
	if m.pos >= int64(len(m.data)) {
		return 0, io.EOF
	}
	n := copy(p, m.data[m.pos:])
	m.pos += int64(n)
	return n, nil
}

func (m *memoryReadStream) Write([]byte) (int, error) {
	return 0, fmt.Errorf("storage: persisted stream is read-only")
}

func (m *memoryReadStream) Seek(offset int64, whence int) (int64, error) {
	var base int64
	switch whence {
	case io.SeekStart:
		base = 0
	case io.SeekCurrent:
		base = m.pos
	case io.SeekEnd:
		base = int64(len(m.data))
	}
	m.pos = base + offset
	if m.pos < 0 {
		m.pos = 0
	}
	return m.pos, nil
}

func (m *memoryReadStream) Truncate(int64) error {
	return fmt.Errorf("storage: persisted stream is read-only")
}
