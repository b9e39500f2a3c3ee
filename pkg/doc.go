// Package pkg provides the core libraries of etf, a toolkit for the data
// exchange files of greenhouse gas inventory reporting.
//
// # Overview
//
// A data exchange file carries the country-specific part of an inventory:
// the nodes a country added to the reporting tree, their variables and
// grids, and the values reported per inventory year. Every such node hangs
// off a category of the reference taxonomy published as the reporting
// tool's metadata. The libraries below load that taxonomy, resolve
// human queries against it, and reshape data files so the tool accepts
// them.
//
// # Architecture
//
//	metadata.json ──► [taxonomy] ──► [resolve] ──┐
//	                                            ├─► [filter]  sector subset
//	data.json ─────► [crt] (Document, Tree) ────┼─► [fix]     PARENTS, GRIDS
//	                                            └─► [stats]   object counts
//
// # Quick Start
//
// Reduce a data file to the energy sector:
//
//	tax, _ := taxonomy.Default()
//	doc, _ := crt.ReadFile("data.json")
//
//	res, err := filter.BySector(doc, resolve.New(tax), "energy", nil)
//	if err != nil {
//	    return err
//	}
//	_ = doc.WriteFile("energy.json")
//
// # Main Packages
//
// [taxonomy] - The reference category tree with its variables, grids and
// navigation entries. Loaded from the metadata document or from a cached
// snapshot.
//
// [resolve] - Maps codes, uids, aliases and names to taxonomy nodes.
//
// [crt] - The data exchange document and its tree of country-specific
// nodes, each anchored in the taxonomy.
//
// [filter], [fix], [stats] - The operations on data files.
//
// ## Supporting Packages
//
// [cache] - Snapshot storage backends (file, Redis, null).
//
// [render/nodelink] - Graphviz drawings of taxonomy subtrees.
//
// [errors] - Coded errors and the exit codes derived from them.
//
// [io] - JSON import and export with compression detection.
//
// [arena] - Index-addressed node storage shared by both trees.
//
// [observability] - Optional hooks for metrics and tracing.
//
// [buildinfo] - Version information set at link time.
//
// [taxonomy]: github.com/etftools/etf/pkg/taxonomy
// [resolve]: github.com/etftools/etf/pkg/resolve
// [crt]: github.com/etftools/etf/pkg/crt
// [filter]: github.com/etftools/etf/pkg/filter
// [fix]: github.com/etftools/etf/pkg/fix
// [stats]: github.com/etftools/etf/pkg/stats
// [cache]: github.com/etftools/etf/pkg/cache
// [render/nodelink]: github.com/etftools/etf/pkg/render/nodelink
// [errors]: github.com/etftools/etf/pkg/errors
// [io]: github.com/etftools/etf/pkg/io
// [arena]: github.com/etftools/etf/pkg/arena
// [observability]: github.com/etftools/etf/pkg/observability
// [buildinfo]: github.com/etftools/etf/pkg/buildinfo
package pkg
