// Package render draws parts of the reporting taxonomy.
//
// The [nodelink] subpackage converts a taxonomy subtree into Graphviz DOT
// and renders it in-process to SVG or PNG:
//
//	dot := nodelink.ToDOT(tax, []taxonomy.ID{id}, nodelink.Options{})
//	svg, err := nodelink.RenderSVG(dot)
//
// [nodelink]: github.com/etftools/etf/pkg/render/nodelink
package render
