// Copyright 2022 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package dag implements the directed acyclic graph of stage dependencies
// that pkg/view.Registry assembles: one node per registered stage name, one
// edge from each upstream stage to each of its declared downstream stages.
// Sort (sort.go) walks the graph to produce the order UpdateTargets drives
// stages in; Roots (util.go) picks out the stages with no upstream, which a
// caller updates directly rather than through the merger.
package dag

import (
	"sort"
)

// Graph is a DAG of stage names.
type Graph struct {
	Nodes   []string
	byLabel map[string]int
	edges   map[string]map[string]bool
}

// AddNode registers a stage name as a node, reporting false if it is
// already present. Registry.Register uses the false case to reject
// duplicate stage registrations.
func (g *Graph) AddNode(label string) bool {
	if _, ok := g.byLabel[label]; ok {
		return false
	}
	g.byLabel[label] = len(g.Nodes)
	g.Nodes = append(g.Nodes, label)
	g.edges[label] = map[string]bool{}
	return true
}

// HasNode reports whether label has already been registered.
func (g *Graph) HasNode(label string) bool {
	_, ok := g.byLabel[label]
	return ok
}

// AddEdge records that the stage named from feeds the stage named to: from
// must precede to in any topological Sort.
func (g *Graph) AddEdge(from, to string) {
	g.edges[from][to] = true
}

// HasEdge reports whether from is a recorded upstream of to.
func (g *Graph) HasEdge(from, to string) bool {
	return g.edges[from] != nil && g.edges[from][to]
}

// Edges returns the stages that depend directly on from, ordered by
// registration order so Sort and Registry.Visualize produce stable output.
func (g *Graph) Edges(from string) []string {
	edges := make([]string, 0, 16)
	for k := range g.edges[from] {
		edges = append(edges, k)
	}
	sort.Slice(edges, func(i, j int) bool { return g.byLabel[edges[i]] < g.byLabel[edges[j]] })
	return edges
}
