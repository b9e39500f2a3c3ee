// Package nodelink renders taxonomy subtrees as node-link diagrams.
//
// # Overview
//
// Each category becomes a rounded box labelled with its full name, and
// arrows run from a category to its subcategories in taxonomy order.
// Categories without a numbering prefix, such as template nodes and the
// totals node, are drawn dashed and grey.
//
// # Usage
//
//	dot := nodelink.ToDOT(tax, roots, nodelink.Options{Detailed: true})
//	svg, err := nodelink.RenderSVG(dot)
//	png, err := nodelink.RenderPNG(dot)
//
// # Options
//
//   - Detailed: adds the uid, variable count and grid marker to labels
//   - MaxDepth: limits the levels drawn below each root (0 draws all)
//
// # Dependencies
//
// This package uses [github.com/goccy/go-graphviz], which embeds Graphviz
// as WebAssembly, so no system installation is needed.
package nodelink
