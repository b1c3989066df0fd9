package view

import (
	"context"
	"fmt"

	"github.com/go-logr/logr"

	"github.com/hsnlab/matview/internal/dag"
	"github.com/hsnlab/matview/pkg/visualize"
)

// Registry assembles stages into a DAG: a duplicate registration under an
// already-used name is rejected, and Sort returns a topological order
// suitable for UpdateTargets. It tracks stage identity, upstream edges,
// and, once a caller attaches one via SetRunner, each stage's type-erased
// StageRunner, not the stages' generic Produce/SK/SV/TK/TV instantiations,
// which differ per stage and are owned by the caller.
type Registry struct {
	graph   *dag.Graph
	runners map[string]StageRunner

	// Log receives diagnostic events around registration and sorting. The
	// zero value is silently treated as logr.Discard(), the same
	// convention Stage.Log uses.
	Log logr.Logger
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{graph: dag.New(), runners: map[string]StageRunner{}}
}

func (r *Registry) logger() logr.Logger {
	if r.Log.GetSink() == nil {
		return logr.Discard()
	}
	return r.Log
}

// Register adds a stage named name, depending on the given (already
// registered) upstream names. It fails if name is already registered.
func (r *Registry) Register(name string, upstreams ...string) error {
	if !r.graph.AddNode(name) {
		return NewRegistrationError(name)
	}
	for _, u := range upstreams {
		r.graph.AddNode(u) // idempotent if u is already present
		r.graph.AddEdge(u, name)
	}
	r.logger().V(1).Info("registered stage", "name", name, "upstreams", upstreams)
	return nil
}

// Roots returns the stages with no upstream dependency.
func (r *Registry) Roots() []string {
	return r.graph.Roots()
}

// Sort returns every registered stage in topological order: a stage never
// precedes one of its own upstreams. This is the order UpdateTargets walks.
func (r *Registry) Sort() []string {
	order := r.graph.Sort()
	r.logger().V(1).Info("sorted registry", "order", order)
	return order
}

// SetRunner attaches run as the stage named name's driver for
// UpdateTargets. name must already be registered; calling it again for the
// same name replaces the previous runner. Root stages (no upstream) have no
// need of one, since a caller updates them directly with Stage.Update.
func (r *Registry) SetRunner(name string, run StageRunner) error {
	if !r.graph.HasNode(name) {
		return fmt.Errorf("stage %q is not registered", name)
	}
	r.runners[name] = run
	return nil
}

// UpdateTargets drives every transitive downstream stage in topological
// order, invoking its UpdateFromSources against its upstreams' most
// recently produced versions. versions seeds the starting version of every
// stage, at minimum every root, since UpdateTargets never drives a stage
// with no registered runner, and is both read and updated in place as each
// stage advances, so the caller can inspect the final version of every
// stage once UpdateTargets returns.
func (r *Registry) UpdateTargets(ctx context.Context, versions map[string]uint64) error {
	lookup := func(stage string) uint64 { return versions[stage] }
	for _, name := range r.Sort() {
		run, ok := r.runners[name]
		if !ok {
			continue // a root, or a stage the caller updates some other way
		}
		newVersion, err := run(ctx, versions[name], lookup)
		if err != nil {
			return err
		}
		r.logger().V(1).Info("updated stage", "name", name, "version", newVersion)
		versions[name] = newVersion
	}
	return nil
}

// Visualize renders the registry's DAG via g, one of
// &visualize.DotGenerator{} or &visualize.MermaidGenerator{}.
func (r *Registry) Visualize(title string, g interface{ Generate(*visualize.Graph) string }) string {
	graph := &visualize.Graph{Title: title, Nodes: append([]string(nil), r.graph.Nodes...)}
	for _, upstream := range r.graph.Nodes {
		for _, downstream := range r.graph.Edges(upstream) {
			graph.Edges = append(graph.Edges, visualize.Edge{From: upstream, To: downstream})
		}
	}
	return g.Generate(graph)
}
