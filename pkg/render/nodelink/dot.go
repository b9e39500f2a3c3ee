package nodelink

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/goccy/go-graphviz"

	"github.com/etftools/etf/pkg/taxonomy"
)

// Options configures node-link diagram rendering.
type Options struct {
	// Detailed includes the uid, variable count and grid marker in node
	// labels. When false, only the full name is shown.
	Detailed bool

	// MaxDepth limits how many levels below each root are drawn.
	// Zero draws the whole subtree.
	MaxDepth int
}

// ToDOT converts the subtrees rooted at roots to Graphviz DOT format.
// The resulting DOT string can be rendered using [RenderSVG] or [RenderPNG].
// Roots are drawn bold; a node reachable from several roots appears once.
func ToDOT(tax *taxonomy.Taxonomy, roots []taxonomy.ID, opts Options) string {
	var buf bytes.Buffer
	buf.WriteString("digraph G {\n")
	buf.WriteString("  rankdir=TB;\n")
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  node [shape=box, style=\"rounded,filled\", fillcolor=white, fontsize=24, margin=\"0.2,0.1\"];\n")
	buf.WriteString("  ranksep=0.5;\n")
	buf.WriteString("  nodesep=0.3;\n")
	buf.WriteString("\n")

	isRoot := make(map[taxonomy.ID]bool, len(roots))
	for _, r := range roots {
		isRoot[r] = true
	}
	seen := make(map[taxonomy.ID]bool)
	var edges [][2]string

	var visit func(id taxonomy.ID, depth int)
	visit = func(id taxonomy.ID, depth int) {
		if seen[id] {
			return
		}
		seen[id] = true
		n := tax.Node(id)
		fmt.Fprintf(&buf, "  %q [%s];\n", n.UID, strings.Join(fmtAttrs(tax, n, isRoot[id], opts.Detailed), ", "))
		if opts.MaxDepth > 0 && depth >= opts.MaxDepth {
			return
		}
		for _, c := range n.Children {
			edges = append(edges, [2]string{n.UID, tax.Node(c).UID})
			visit(c, depth+1)
		}
	}
	for _, r := range roots {
		if tax.Node(r) != nil {
			visit(r, 0)
		}
	}

	buf.WriteString("\n")
	for _, e := range edges {
		fmt.Fprintf(&buf, "  %q -> %q;\n", e[0], e[1])
	}

	buf.WriteString("}\n")
	return buf.String()
}

func fmtLabel(tax *taxonomy.Taxonomy, n *taxonomy.Node, detailed bool) string {
	label := n.FullName()
	if !detailed {
		return label
	}

	id, _ := tax.FindByUID(n.UID)
	parts := []string{
		"uid: " + n.UID,
		fmt.Sprintf("variables: %d", len(tax.VariablesOf([]taxonomy.ID{id}))),
	}
	if _, ok := tax.Grid(n.UID); ok {
		parts = append(parts, "grid")
	}
	return label + "\n" + strings.Join(parts, "\n")
}

func fmtAttrs(tax *taxonomy.Taxonomy, n *taxonomy.Node, root, detailed bool) []string {
	attrs := []string{fmt.Sprintf("label=%q", fmtLabel(tax, n, detailed))}
	switch {
	case root:
		attrs = append(attrs, "penwidth=3")
	case n.Prefix == "":
		attrs = append(attrs, "style=\"rounded,filled,dashed\"", "fillcolor=lightgrey", "fontcolor=black")
	}
	return attrs
}

// RenderSVG renders a DOT graph to SVG using Graphviz.
func RenderSVG(dot string) ([]byte, error) {
	out, err := render(dot, graphviz.SVG)
	if err != nil {
		return nil, err
	}
	return normalizeViewBox(out), nil
}

// RenderPNG renders a DOT graph to PNG using Graphviz.
func RenderPNG(dot string) ([]byte, error) {
	return render(dot, graphviz.PNG)
}

func render(dot string, format graphviz.Format) ([]byte, error) {
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

var (
	svgTagRe  = regexp.MustCompile(`<svg[^>]*>`)
	viewBoxRe = regexp.MustCompile(`viewBox="([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)"`)
)

// normalizeViewBox replaces the Graphviz svg tag, whose point-based size
// and translated viewBox scale badly in browsers, with a plain one.
func normalizeViewBox(svg []byte) []byte {
	match := viewBoxRe.FindSubmatch(svg)
	if match == nil {
		return svg
	}

	w, _ := strconv.ParseFloat(string(match[3]), 64)
	h, _ := strconv.ParseFloat(string(match[4]), 64)
	if w == 0 || h == 0 {
		return svg
	}

	newSvg := fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %.2f %.2f" width="%.0f" height="%.0f">`,
		w, h, w, h)

	return svgTagRe.ReplaceAll(svg, []byte(newSvg))
}
