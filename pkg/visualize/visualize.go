// Package visualize renders a Registry's stage DAG as a diagram, via
// github.com/emicklei/dot.
package visualize

import "github.com/emicklei/dot"

// Edge is one dependency edge in a stage DAG: From is upstream of To.
type Edge struct {
	From string
	To   string
}

// Graph is the visualization input: every registered stage plus the
// upstream/downstream edges between them.
type Graph struct {
	Title string
	Nodes []string
	Edges []Edge
}

// BuildDotGraph turns a Graph into a dot.Graph, shared by both the DOT and
// the Mermaid generator so the two renderings never drift apart.
func BuildDotGraph(g *Graph) *dot.Graph {
	graph := dot.NewGraph(dot.Directed)
	graph.Attr("rankdir", "LR")
	graph.Attr("label", g.Title)
	graph.Attr("labelloc", "t")
	graph.Attr("fontsize", "16")

	nodes := make(map[string]dot.Node, len(g.Nodes))
	for _, n := range g.Nodes {
		nodes[n] = graph.Node(n).
			Attr("shape", "box").
			Attr("style", "filled,rounded").
			Attr("fillcolor", "lightblue").
			Attr("color", "darkblue").
			Attr("fontname", "helvetica")
	}

	for _, e := range g.Edges {
		from, ok1 := nodes[e.From]
		to, ok2 := nodes[e.To]
		if ok1 && ok2 {
			graph.Edge(from, to).Attr("fontname", "helvetica")
		}
	}

	return graph
}
