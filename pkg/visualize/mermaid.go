package visualize

import (
	"fmt"

	"github.com/emicklei/dot"
)

// MermaidGenerator renders a stage DAG as a Mermaid flowchart, embeddable
// directly in a markdown runbook or README.
type MermaidGenerator struct{}

// Generate creates a Mermaid flowchart from the stage DAG using the dot
// library's own Mermaid backend, so it never drifts from the DOT rendering.
func (m *MermaidGenerator) Generate(g *Graph) string {
	dotGraph := BuildDotGraph(g)

	// Stage chains read top-to-bottom in most pipelines' prose; left-to-right
	// keeps the flowchart from growing taller than the surrounding page.
	mermaid := dot.MermaidFlowchart(dotGraph, dot.MermaidLeftToRight)

	return fmt.Sprintf("```mermaid\n%s\n```\n", mermaid)
}
