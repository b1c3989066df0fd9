package view

import (
	"context"

	"github.com/hsnlab/matview/pkg/cursor"
	"github.com/hsnlab/matview/pkg/rowstream"
)

// VersionLookup resolves a registered stage name to its most recently
// produced version, as tracked by whichever UpdateTargets call is driving
// the DAG. A StageRunner consults it to find the versions of its own
// upstreams.
type VersionLookup func(stage string) uint64

// StageRunner is the type-erased per-stage driver a Registry invokes in
// topological order, one call per transitive downstream stage, each
// invoking that stage's UpdateFromSources. Registry cannot hold a
// *Stage[SK, SV, TK, TV] directly, since each stage instantiates different
// type parameters, so a Stage instead hands the Registry one of these
// closures via Registry.SetRunner.
type StageRunner func(ctx context.Context, basedOnVersion uint64, upstream VersionLookup) (uint64, error)

// UpstreamFeeder names one upstream a Runner-built Stage reads from, plus
// the closure that opens the Feeder for it at a given version. Build
// typically wraps FeederFrom around the upstream *Stage.
type UpstreamFeeder[SK, SV any] struct {
	Name  string
	Build func(ctx context.Context, version uint64) Feeder[SK, SV]
}

// FeederFrom builds the Feeder a downstream stage needs from one upstream
// Stage whose target key/value types equal the downstream's source
// key/value types, the general shape of the per-pair feeder builders a
// hand-sequenced pipeline would otherwise write out once per edge.
func FeederFrom[SK, SV, TK, TV any](upstream *Stage[SK, SV, TK, TV]) UpstreamFeeder[TK, TV] {
	return UpstreamFeeder[TK, TV]{
		Name: upstream.Name,
		Build: func(ctx context.Context, version uint64) Feeder[TK, TV] {
			return Feeder[TK, TV]{
				Name: upstream.Name,
				OpenUpdates: func() (cursor.Cursor[SourceUpdate[TK, TV]], error) {
					return upstream.ReadUpdates(ctx, version)
				},
				OpenContent: func() (cursor.Cursor[TargetPair[TK, TV]], error) {
					return upstream.ReadContent(ctx, version)
				},
			}
		},
	}
}

// Runner builds the StageRunner a Registry drives for this stage: on each
// invocation it resolves every named upstream's current version through
// upstream, opens a fresh Feeder for each, and calls UpdateFromSources.
func (s *Stage[SK, SV, TK, TV]) Runner(
	upstreams []UpstreamFeeder[SK, SV],
	keyCodec rowstream.Codec[SK],
	updateCodec rowstream.Codec[SourceUpdate[SK, SV]],
) StageRunner {
	return func(ctx context.Context, basedOnVersion uint64, upstream VersionLookup) (uint64, error) {
		feeders := make([]Feeder[SK, SV], len(upstreams))
		for i, u := range upstreams {
			feeders[i] = u.Build(ctx, upstream(u.Name))
		}
		return s.UpdateFromSources(ctx, feeders, basedOnVersion, keyCodec, updateCodec)
	}
}
