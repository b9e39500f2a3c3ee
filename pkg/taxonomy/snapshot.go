package taxonomy

import (
	"fmt"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/etftools/etf/pkg/errors"
)

// SnapshotSchema versions the snapshot encoding. Cache keys include it so
// that stale snapshots are never decoded by a newer binary.
const SnapshotSchema = 1

type snapshot struct {
	Schema     int               `msgpack:"schema"`
	Version    Version           `msgpack:"version"`
	Nodes      []snapshotNode    `msgpack:"nodes"`
	Roots      []ID              `msgpack:"roots"`
	Variables  []Variable        `msgpack:"variables"`
	Grids      map[string][]byte `msgpack:"grids"`
	Navigation []Navigation      `msgpack:"navigation"`
}

type snapshotNode struct {
	UID         string `msgpack:"u"`
	Prefix      string `msgpack:"p,omitempty"`
	Name        string `msgpack:"n,omitempty"`
	TemplateUID string `msgpack:"t,omitempty"`
	Children    []ID   `msgpack:"c,omitempty"`
}

// Snapshot encodes the taxonomy in its compact msgpack form.
func (t *Taxonomy) Snapshot() ([]byte, error) {
	s := snapshot{
		Schema:     SnapshotSchema,
		Version:    t.version,
		Nodes:      make([]snapshotNode, 0, t.nodes.Len()),
		Roots:      t.roots,
		Variables:  t.variables,
		Grids:      t.grids,
		Navigation: t.navigation,
	}
	for _, n := range t.nodes.Slice() {
		s.Nodes = append(s.Nodes, snapshotNode{
			UID:         n.UID,
			Prefix:      n.Prefix,
			Name:        n.Name,
			TemplateUID: n.TemplateUID,
			Children:    n.Children,
		})
	}
	data, err := msgpack.Marshal(&s)
	if err != nil {
		return nil, fmt.Errorf("encode snapshot: %w", err)
	}
	return data, nil
}

// FromSnapshot rebuilds a taxonomy from [Taxonomy.Snapshot] output. The
// rebuilt taxonomy passes the same validation as [Load].
func FromSnapshot(data []byte) (*Taxonomy, error) {
	var s snapshot
	if err := msgpack.Unmarshal(data, &s); err != nil {
		return nil, errors.TaxonomyLoad(err, "decode snapshot")
	}
	if s.Schema != SnapshotSchema {
		return nil, errors.TaxonomyLoad(nil, "snapshot schema %d, want %d", s.Schema, SnapshotSchema)
	}

	b := newBuilder(len(s.Nodes))
	for i, n := range s.Nodes {
		id := b.nodes.Allocate(Node{
			UID:         n.UID,
			Code:        codeOf(n.Prefix, n.UID),
			Prefix:      n.Prefix,
			Name:        n.Name,
			TemplateUID: n.TemplateUID,
			Children:    n.Children,
		})
		b.paths[id] = fmt.Sprintf("snapshot node %d", i)
	}
	for _, id := range b.nodes.IDs() {
		for _, c := range b.nodes.Get(id).Children {
			child := b.nodes.Get(c)
			if child == nil {
				return nil, errors.TaxonomyLoad(nil, "snapshot child %d out of range", c)
			}
			child.Parent = id
		}
	}
	for _, r := range s.Roots {
		if b.nodes.Get(r) == nil {
			return nil, errors.TaxonomyLoad(nil, "snapshot root %d out of range", r)
		}
	}
	b.roots = s.Roots
	b.variables = s.Variables
	if s.Grids != nil {
		b.grids = s.Grids
	}
	b.navigation = s.Navigation
	b.version = s.Version

	t, err := b.build()
	if err != nil {
		return nil, errors.TaxonomyLoad(err, "rebuild snapshot")
	}
	return t, nil
}
