// Package crt reads and rewrites CRT data exchange files.
//
// A data exchange file is the JSON document a party's reporting tool
// exports: a country_specific_data section with the country-specific
// nodes, variables, grids and line descriptions, and a data section with
// the reported values per inventory year. [Document] keeps the file as
// generic JSON so that fields unknown to this package survive a rewrite.
//
// [BuildTree] indexes the country-specific node forest as a [Tree] and
// anchors each node in the reference [taxonomy.Taxonomy]. Structural edits
// (pruning, reparenting) go through the tree, which writes the result back
// into the document.
package crt
