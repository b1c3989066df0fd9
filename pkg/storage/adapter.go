// Package storage provides persistence adapters for a stage's three
// versioned streams: filesystem-backed and bbolt-backed reference
// implementations of the narrow contract the core algorithm needs from
// durable storage.
package storage

import (
	"context"

	"github.com/hsnlab/matview/pkg/rowstream"
)

// StreamType names one of the three streams a Stage persists per version.
type StreamType int

const (
	Content StreamType = iota
	KeyMappings
	Updates
)

func (t StreamType) String() string {
	switch t {
	case Content:
		return "content"
	case KeyMappings:
		return "keymappings"
	case Updates:
		return "updates"
	default:
		return "unknown"
	}
}

// Adapter is the persistence contract a Stage needs: open an existing
// version for reading, or durably save a fully-built one. A missing
// (stage, kind, version) triple is not an error: OpenForRead reports it
// via ok=false, and the Stage treats it as an empty stream.
type Adapter interface {
	OpenForRead(ctx context.Context, stage string, kind StreamType, version uint64) (rowstream.Stream, bool, error)

	// Save durably stores the full contents of src as (stage, kind,
	// version), becoming visible to OpenForRead only once Save returns
	// without error. src must already be positioned at the start of the
	// data to persist, which is how Writer.Finish leaves a stream.
	Save(ctx context.Context, stage string, kind StreamType, version uint64, src rowstream.Stream) error
}
