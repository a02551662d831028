// Package viz renders a compiled function's dependency graph for debugging.
// DOT output is plain text; SVG rendering goes through Graphviz.
package viz

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/goccy/go-graphviz"

	"github.com/vk/nodefn/internal/compile"
	"github.com/vk/nodefn/internal/graph"
)

// ToDOT converts a dependency graph to Graphviz DOT. Interface nodes are
// drawn as ellipses, required nodes as boxes; nodes outside the dependency
// graph (never feeding a formal output) are greyed out.
func ToDOT(dg *compile.DepGraph) string {
	var buf bytes.Buffer
	buf.WriteString("digraph G {\n")
	buf.WriteString("  rankdir=LR;\n")
	buf.WriteString("  node [shape=box, style=\"rounded,filled\", fillcolor=white];\n")
	buf.WriteString("\n")

	frozen := dg.Frozen()
	required := make(map[graph.NodeID]bool, len(dg.RequiredNodes()))
	for _, id := range dg.RequiredNodes() {
		required[id] = true
	}

	for id := 0; id < frozen.NodeCount(); id++ {
		n := frozen.Node(graph.NodeID(id))
		attrs := []string{fmt.Sprintf("label=%q", nodeLabel(n))}
		switch {
		case n.Kind == graph.KindFunctionInput || n.Kind == graph.KindFunctionOutput:
			attrs = append(attrs, "shape=ellipse")
		case !required[graph.NodeID(id)]:
			attrs = append(attrs, "fillcolor=lightgrey", "fontcolor=grey30")
		}
		fmt.Fprintf(&buf, "  n%d [%s];\n", id, strings.Join(attrs, ", "))
	}

	buf.WriteString("\n")
	for _, l := range frozen.Links() {
		fmt.Fprintf(&buf, "  n%d -> n%d [label=%q];\n",
			l.FromNode, l.ToNode, l.FromSocket+" to "+l.ToSocket)
	}

	buf.WriteString("}\n")
	return buf.String()
}

func nodeLabel(n *graph.Node) string {
	if n.Kind == graph.KindFunctionInput || n.Kind == graph.KindFunctionOutput {
		return n.Name
	}
	return n.Name + "\n" + n.Kind
}

// RenderSVG renders a DOT graph to SVG using Graphviz.
func RenderSVG(ctx context.Context, dot string) ([]byte, error) {
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, fmt.Errorf("parse DOT: %w", err)
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, graphviz.SVG, &buf); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	return buf.Bytes(), nil
}
