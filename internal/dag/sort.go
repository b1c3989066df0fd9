// Copyright 2024 rg0now. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package dag

// Sort returns the nodes in topological order: for every edge from->to, from
// appears before to. The walk visits nodes and edges in AddNode order and
// reverses the postorder, so the result is stable across calls on the same
// graph; nodes with no ordering relation between them are not listed in
// AddNode order (with no edges at all, the result is AddNode order
// reversed).
func (g *Graph) Sort() []string {
	visited := map[string]bool{}
	order := make([]string, 0, len(g.Nodes))

	var visit func(string)
	visit = func(n string) {
		if visited[n] {
			return
		}
		visited[n] = true
		for _, m := range g.Edges(n) {
			visit(m)
		}
		order = append(order, n)
	}

	for _, n := range g.Nodes {
		visit(n)
	}

	for i, j := 0, len(order)-1; i < j; i, j = i+1, j-1 {
		order[i], order[j] = order[j], order[i]
	}
	return order
}
