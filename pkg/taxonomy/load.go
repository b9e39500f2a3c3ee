package taxonomy

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/etftools/etf/pkg/arena"
	"github.com/etftools/etf/pkg/errors"
	pkgio "github.com/etftools/etf/pkg/io"
)

// navigationDimension is the dimension whose instances form the sector menu.
const navigationDimension = "NAVIGATION"

type rawDocument struct {
	Metadata []rawMetadata `json:"Metadata"`
}

type rawMetadata struct {
	Version           map[string]any     `json:"version"`
	Node              []rawNode          `json:"node"`
	Variable          []rawVariable      `json:"variable"`
	Grid              []json.RawMessage  `json:"grid"`
	Dimension         []rawDimension     `json:"dimension"`
	DimensionInstance []rawDimensionInst `json:"dimension_instance"`
}

type rawNode struct {
	UID             string    `json:"uid"`
	NamePrefix      string    `json:"name_prefix"`
	Name            string    `json:"name"`
	TemplateNodeUID string    `json:"template_node_uid"`
	ParentUID       string    `json:"parent_uid"`
	Node            []rawNode `json:"node"`
}

type rawVariable struct {
	UID     string `json:"uid"`
	NodeUID string `json:"node_uid"`
	Name    string `json:"name"`
}

type rawGridKey struct {
	NodeUID string `json:"node_uid"`
}

type rawDimension struct {
	ID   json.Number `json:"id"`
	Name string      `json:"name"`
}

type rawDimensionInst struct {
	ID          json.Number        `json:"id"`
	UID         string             `json:"uid"`
	DimensionID json.Number        `json:"dimension_id"`
	Name        string             `json:"name"`
	Children    []rawDimensionInst `json:"children"`
}

// LoadFile reads the metadata document at path. Compressed files are
// accepted.
func LoadFile(path string) (*Taxonomy, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.TaxonomyLoad(err, "open metadata %s", path)
	}
	defer f.Close()
	return Load(f)
}

// Load reads an ETF metadata document from r and builds the taxonomy.
// All failures carry the TAXONOMY_LOAD code.
func Load(r io.Reader) (*Taxonomy, error) {
	var doc rawDocument
	if err := pkgio.ReadJSON(r, &doc); err != nil {
		return nil, errors.TaxonomyLoad(err, "decode metadata")
	}
	if len(doc.Metadata) == 0 {
		return nil, errors.TaxonomyLoad(nil, "metadata document has no \"Metadata\" entry")
	}
	md := doc.Metadata[0]
	if md.Node == nil {
		return nil, errors.TaxonomyLoad(nil, "metadata has no \"node\" list")
	}

	b := newBuilder(len(md.Node))
	for i := range md.Node {
		b.addTree(&md.Node[i], arena.None, fmt.Sprintf(".Metadata[0].node[%d]", i))
	}
	for _, v := range md.Variable {
		b.variables = append(b.variables, Variable{UID: v.UID, NodeUID: v.NodeUID, Name: v.Name})
	}
	for i, raw := range md.Grid {
		var key rawGridKey
		if err := json.Unmarshal(raw, &key); err != nil {
			return nil, errors.TaxonomyLoad(err, "grid %d", i)
		}
		if _, dup := b.grids[key.NodeUID]; !dup {
			b.grids[key.NodeUID] = raw
		}
	}
	b.navigation = navigationInstances(md)
	b.version = parseVersion(md.Version)

	t, err := b.build()
	if err != nil {
		return nil, errors.TaxonomyLoad(err, "build taxonomy")
	}
	return t, nil
}

func parseVersion(v map[string]any) Version {
	str := func(key string) string {
		if x, ok := v[key]; ok && x != nil {
			return fmt.Sprint(x)
		}
		return ""
	}
	return Version{Name: str("name"), ID: str("version"), Published: str("publication_date")}
}

func navigationInstances(md rawMetadata) []Navigation {
	var dimID json.Number
	found := false
	for _, d := range md.Dimension {
		if d.Name == navigationDimension {
			dimID, found = d.ID, true
			break
		}
	}
	if !found {
		return nil
	}

	var out []Navigation
	var walk func(inst *rawDimensionInst, path string)
	walk = func(inst *rawDimensionInst, path string) {
		if inst.UID != "" {
			out = append(out, Navigation{UID: inst.UID, Name: inst.Name, Path: path})
		}
		for i := range inst.Children {
			walk(&inst.Children[i], fmt.Sprintf("%s.children[%d]", path, i))
		}
	}
	for i := range md.DimensionInstance {
		inst := &md.DimensionInstance[i]
		if inst.DimensionID == dimID {
			walk(inst, fmt.Sprintf(".Metadata[0].dimension_instance[%d]", i))
		}
	}
	return out
}

// codeOf derives the node code from its name prefix.
func codeOf(prefix, uid string) string {
	code := strings.TrimSuffix(strings.TrimSpace(prefix), ".")
	if code == "" {
		return uid
	}
	return code
}

// pendingLink records a top-level node attached through parent_uid.
type pendingLink struct {
	child     ID
	parentUID string
	path      string
}

type builder struct {
	nodes      *arena.Arena[Node]
	roots      []ID
	paths      map[ID]string
	links      []pendingLink
	variables  []Variable
	grids      map[string][]byte
	navigation []Navigation
	version    Version
}

func newBuilder(capHint int) *builder {
	return &builder{
		nodes: arena.New[Node](capHint),
		paths: make(map[ID]string),
		grids: make(map[string][]byte),
	}
}

// addTree allocates n and its nested children. Top-level nodes that name a
// parent_uid are linked after all nodes are known.
func (b *builder) addTree(n *rawNode, parent ID, path string) ID {
	id := b.nodes.Allocate(Node{
		UID:         n.UID,
		Code:        codeOf(n.NamePrefix, n.UID),
		Prefix:      strings.TrimSpace(n.NamePrefix),
		Name:        n.Name,
		TemplateUID: n.TemplateNodeUID,
		Parent:      parent,
	})
	b.paths[id] = path

	switch {
	case parent.Valid():
		p := b.nodes.Get(parent)
		p.Children = append(p.Children, id)
	case n.ParentUID != "":
		b.links = append(b.links, pendingLink{child: id, parentUID: n.ParentUID, path: path})
	default:
		b.roots = append(b.roots, id)
	}

	for i := range n.Node {
		b.addTree(&n.Node[i], id, fmt.Sprintf("%s.node[%d]", path, i))
	}
	return id
}

// build validates the collected nodes and computes the indices.
func (b *builder) build() (*Taxonomy, error) {
	t := &Taxonomy{
		nodes:      b.nodes,
		byUID:      make(map[string]ID, b.nodes.Len()),
		byCode:     make(map[string]ID, b.nodes.Len()),
		variables:  b.variables,
		varByUID:   make(map[string]int, len(b.variables)),
		varsByNode: make(map[string][]int),
		grids:      b.grids,
		navigation: b.navigation,
		version:    b.version,
	}

	for _, id := range b.nodes.IDs() {
		n := b.nodes.Get(id)
		if n.UID == "" {
			return nil, fmt.Errorf("node without uid at %s", b.paths[id])
		}
		if prev, dup := t.byUID[n.UID]; dup {
			return nil, fmt.Errorf("duplicate uid %q at %s and %s", n.UID, b.paths[prev], b.paths[id])
		}
		t.byUID[n.UID] = id
		if prev, dup := t.byCode[n.Code]; dup {
			return nil, fmt.Errorf("duplicate code %q at %s and %s", n.Code, b.paths[prev], b.paths[id])
		}
		t.byCode[n.Code] = id
	}

	for _, l := range b.links {
		parent, ok := t.byUID[l.parentUID]
		if !ok {
			return nil, fmt.Errorf("unknown parent_uid %q at %s", l.parentUID, l.path)
		}
		b.nodes.Get(l.child).Parent = parent
		p := b.nodes.Get(parent)
		p.Children = append(p.Children, l.child)
	}
	t.roots = b.roots

	if err := t.index(); err != nil {
		return nil, err
	}

	for i, v := range t.variables {
		t.varByUID[v.UID] = i
		t.varsByNode[v.NodeUID] = append(t.varsByNode[v.NodeUID], i)
	}
	return t, nil
}

// index computes preorder positions and depths. Nodes unreachable from the
// root set sit on a parent cycle.
func (t *Taxonomy) index() error {
	total := t.nodes.Len()
	t.order = make([]ID, 0, total)
	t.enter = make([]int, total)
	t.exit = make([]int, total)
	visited := make([]bool, total)

	var visit func(id ID, depth int) error
	visit = func(id ID, depth int) error {
		if visited[id-1] {
			return fmt.Errorf("node %q reached twice", t.nodes.Get(id).UID)
		}
		visited[id-1] = true
		n := t.nodes.Get(id)
		n.Depth = depth
		t.enter[id-1] = len(t.order)
		t.order = append(t.order, id)
		for _, c := range n.Children {
			if err := visit(c, depth+1); err != nil {
				return err
			}
		}
		t.exit[id-1] = len(t.order)
		return nil
	}
	for _, r := range t.roots {
		if err := visit(r, 0); err != nil {
			return err
		}
	}

	if len(t.order) != total {
		for _, id := range t.nodes.IDs() {
			if !visited[id-1] {
				return fmt.Errorf("parent cycle through node %q", t.nodes.Get(id).UID)
			}
		}
	}
	return nil
}
