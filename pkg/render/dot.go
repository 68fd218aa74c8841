// Package render turns a catalog graph into Graphviz visualizations:
// packs as boxes, pages as ellipses, dependency edges solid and
// containment edges dashed.
package render

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/goccy/go-graphviz"

	"github.com/packhouse/packhouse/pkg/catalog"
)

// Options configures catalog graph rendering.
type Options struct {
	// Pages includes page nodes and containment edges. When false, only
	// packs and their dependency edges are drawn.
	Pages bool

	// Versions appends each pack's version to its label.
	Versions bool
}

// ToDOT converts a catalog graph to Graphviz DOT format. The resulting
// DOT string can be rendered with [RenderSVG] or [RenderPNG].
func ToDOT(g *catalog.Graph, opts Options) string {
	var buf bytes.Buffer
	buf.WriteString("digraph catalog {\n")
	buf.WriteString("  rankdir=TB;\n")
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  node [shape=box, style=\"rounded,filled\", fillcolor=white, fontsize=14, margin=\"0.2,0.1\"];\n")
	buf.WriteString("  ranksep=0.5;\n")
	buf.WriteString("  nodesep=0.3;\n")
	buf.WriteString("\n")

	for _, id := range g.PackIDs() {
		fmt.Fprintf(&buf, "  %q [%s];\n", packNode(id), strings.Join(packAttrs(g, id, opts), ", "))
	}

	if opts.Pages {
		seen := make(map[string]bool)
		for _, e := range g.ContainsEdges {
			if seen[e.Page] {
				continue
			}
			seen[e.Page] = true
			fmt.Fprintf(&buf, "  %q [label=%q, shape=ellipse, style=filled, fillcolor=lightyellow];\n",
				pageNode(e.Page), e.Page)
		}
	}

	buf.WriteString("\n")
	for _, e := range g.DependsEdges {
		fmt.Fprintf(&buf, "  %q -> %q;\n", packNode(e.From), packNode(e.To))
	}
	if opts.Pages {
		for _, e := range g.ContainsEdges {
			fmt.Fprintf(&buf, "  %q -> %q [style=dashed, arrowhead=open];\n", packNode(e.Pack), pageNode(e.Page))
		}
	}

	buf.WriteString("}\n")
	return buf.String()
}

func packNode(id string) string { return "pack:" + id }

func pageNode(name string) string { return "page:" + name }

func packAttrs(g *catalog.Graph, id string, opts Options) []string {
	label := id
	if opts.Versions {
		if def := g.Pack(id); def != nil && def.Version != "" {
			label = fmt.Sprintf("%s\nv%s", id, def.Version)
		}
	}

	attrs := []string{fmt.Sprintf("label=%q", label)}
	if g.IsRoot(id) {
		attrs = append(attrs, "fillcolor=lightblue")
	}
	return attrs
}

// RenderSVG renders a DOT graph to SVG using Graphviz.
func RenderSVG(dot string) ([]byte, error) {
	return renderFormat(dot, graphviz.SVG)
}

// RenderPNG renders a DOT graph to PNG using Graphviz.
func RenderPNG(dot string) ([]byte, error) {
	return renderFormat(dot, graphviz.PNG)
}

func renderFormat(dot string, format graphviz.Format) ([]byte, error) {
	ctx := context.Background()
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
	if err := gv.Render(ctx, g, format, &buf); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	return buf.Bytes(), nil
}
