package visualize

// DotGenerator renders a stage DAG as a Graphviz DOT diagram.
type DotGenerator struct{}

// Generate creates a Graphviz DOT diagram from the stage DAG.
func (d *DotGenerator) Generate(g *Graph) string {
	dotGraph := BuildDotGraph(g)
	return dotGraph.String()
}
