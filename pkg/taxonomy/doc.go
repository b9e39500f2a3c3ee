// Package taxonomy holds the fixed sector/category hierarchy of the ETF
// reference metadata.
//
// # Overview
//
// The ETF metadata document lists every reporting category as a node with a
// uid, a code prefix (such as "3.F.1.b.") and a name (such as "Barley").
// Nodes nest through "node" arrays, and top-level nodes may also point at
// their parent through "parent_uid". Alongside the nodes the document
// carries the reporting variables of each category, the template grids the
// import step expects for each category, and the navigation dimension.
//
// [Load] reads such a document into a [Taxonomy]: an arena of [Node] values
// addressed by [ID], with uid and code indices and a depth-first order used
// for deterministic query results. A Taxonomy is immutable once built and is
// safe to share between goroutines.
//
// # Codes
//
// A node's code is its name prefix without the trailing dot ("3.F.1.b").
// Nodes without a prefix use their uid as code. Codes and uids must both be
// unique; [Load] rejects duplicates, unknown parents and parent cycles with a
// TAXONOMY_LOAD error.
//
// # Bundled metadata
//
// [Default] returns the taxonomy built from the metadata bundled into the
// binary. Callers that work with a newer metadata release pass their own
// file to [LoadFile].
//
// # Snapshots
//
// [Taxonomy.Snapshot] produces a compact msgpack encoding of the indexed
// taxonomy, and [FromSnapshot] rebuilds it. The CLI caches snapshots keyed
// by the metadata content hash, because decoding a full metadata release is
// much slower than decoding its snapshot.
package taxonomy
