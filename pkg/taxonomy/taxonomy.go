package taxonomy

import (
	"iter"
	"strings"

	"github.com/etftools/etf/pkg/arena"
)

// ID addresses a node of a [Taxonomy]. The zero ID means "no node".
type ID = arena.ID

// Node is one category of the reporting hierarchy.
type Node struct {
	UID         string // metadata uid, unique
	Code        string // name prefix without trailing dot, or UID; unique
	Prefix      string // raw name_prefix as published ("3.F.1.b.")
	Name        string // human-readable label, not unique ("Barley")
	TemplateUID string // uid of the template node, if any

	Parent   ID   // containing node, None for roots
	Children []ID // taxonomy-defined order
	Depth    int  // 0 for roots
}

// FullName returns the prefixed label, e.g. "3.F.1.b. Barley".
func (n *Node) FullName() string {
	if n.Prefix == "" {
		return n.Name
	}
	if n.Name == "" {
		return n.Prefix
	}
	return n.Prefix + " " + n.Name
}

// Variable is a reporting variable attached to a category.
type Variable struct {
	UID     string `msgpack:"uid"`
	NodeUID string `msgpack:"node_uid"`
	Name    string `msgpack:"name"`
}

// Navigation is an instance of the NAVIGATION dimension, the menu tree
// the reporting tool shows for sectors and tables.
type Navigation struct {
	UID  string `msgpack:"uid"`
	Name string `msgpack:"name"`
	Path string `msgpack:"path"` // JSON path inside the metadata document
}

// Version describes the metadata release.
type Version struct {
	Name      string `msgpack:"name"`
	ID        string `msgpack:"id"`
	Published string `msgpack:"published"`
}

// Taxonomy is the indexed, read-only reference hierarchy.
type Taxonomy struct {
	nodes      *arena.Arena[Node]
	roots      []ID
	byUID      map[string]ID
	byCode     map[string]ID
	order      []ID // depth-first preorder over roots
	enter      []int
	exit       []int
	variables  []Variable
	varByUID   map[string]int
	varsByNode map[string][]int
	grids      map[string][]byte // node uid -> raw template grid JSON
	navigation []Navigation
	version    Version
}

// Len returns the number of nodes.
func (t *Taxonomy) Len() int { return t.nodes.Len() }

// Version returns the metadata release information.
func (t *Taxonomy) Version() Version { return t.version }

// Node returns the node with the given ID, or nil.
func (t *Taxonomy) Node(id ID) *Node { return t.nodes.Get(id) }

// Roots returns the root set in taxonomy order.
func (t *Taxonomy) Roots() []ID { return t.roots }

// Children returns the children of id in taxonomy order.
func (t *Taxonomy) Children(id ID) []ID {
	if n := t.nodes.Get(id); n != nil {
		return n.Children
	}
	return nil
}

// Parent returns the parent of id, or None for roots and unknown IDs.
func (t *Taxonomy) Parent(id ID) ID {
	if n := t.nodes.Get(id); n != nil {
		return n.Parent
	}
	return arena.None
}

// FindByCode returns the node with the given code (case-sensitive).
func (t *Taxonomy) FindByCode(code string) (ID, bool) {
	id, ok := t.byCode[code]
	return id, ok
}

// FindByUID returns the node with the given metadata uid.
func (t *Taxonomy) FindByUID(uid string) (ID, bool) {
	id, ok := t.byUID[uid]
	return id, ok
}

// HasUID reports whether uid names a taxonomy node.
func (t *Taxonomy) HasUID(uid string) bool {
	_, ok := t.byUID[uid]
	return ok
}

// Ancestors returns the chain from the root down to the parent of id.
func (t *Taxonomy) Ancestors(id ID) []ID {
	var chain []ID
	for p := t.Parent(id); p.Valid(); p = t.Parent(p) {
		chain = append(chain, p)
	}
	for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
		chain[i], chain[j] = chain[j], chain[i]
	}
	return chain
}

// IsDescendantOrSelf reports whether id lies in the subtree rooted at
// ancestor.
func (t *Taxonomy) IsDescendantOrSelf(id, ancestor ID) bool {
	if !id.Valid() || !ancestor.Valid() || int(id) > len(t.enter) || int(ancestor) > len(t.enter) {
		return false
	}
	return t.enter[ancestor-1] <= t.enter[id-1] && t.exit[id-1] <= t.exit[ancestor-1]
}

// All yields every node in depth-first preorder, roots in taxonomy order.
func (t *Taxonomy) All() iter.Seq2[ID, *Node] {
	return func(yield func(ID, *Node) bool) {
		for _, id := range t.order {
			if !yield(id, t.nodes.Get(id)) {
				return
			}
		}
	}
}

// Walk calls fn for every node in depth-first preorder until fn returns
// false.
func (t *Taxonomy) Walk(fn func(ID, *Node) bool) {
	for id, n := range t.All() {
		if !fn(id, n) {
			return
		}
	}
}

// Subtree returns id and all its descendants in preorder.
func (t *Taxonomy) Subtree(id ID) []ID {
	if !id.Valid() || int(id) > len(t.enter) {
		return nil
	}
	start, end := t.enter[id-1], t.exit[id-1]
	return t.order[start:end]
}

// Order returns the preorder position of id, used to sort query results.
func (t *Taxonomy) Order(id ID) int {
	if !id.Valid() || int(id) > len(t.enter) {
		return -1
	}
	return t.enter[id-1]
}

// Path returns the full names from the root down to id, joined by " / ".
func (t *Taxonomy) Path(id ID) string {
	var parts []string
	for _, a := range t.Ancestors(id) {
		parts = append(parts, t.Node(a).FullName())
	}
	if n := t.Node(id); n != nil {
		parts = append(parts, n.FullName())
	}
	return strings.Join(parts, " / ")
}

// Variable returns the variable with the given uid.
func (t *Taxonomy) Variable(uid string) (Variable, bool) {
	i, ok := t.varByUID[uid]
	if !ok {
		return Variable{}, false
	}
	return t.variables[i], true
}

// VariableNode returns the node owning the variable with the given uid.
func (t *Taxonomy) VariableNode(uid string) (ID, bool) {
	v, ok := t.Variable(uid)
	if !ok {
		return arena.None, false
	}
	return t.FindByUID(v.NodeUID)
}

// VariablesOf returns the uids of all variables attached to the given
// nodes, in metadata order.
func (t *Taxonomy) VariablesOf(ids []ID) []string {
	var uids []string
	for _, id := range ids {
		n := t.Node(id)
		if n == nil {
			continue
		}
		for _, i := range t.varsByNode[n.UID] {
			uids = append(uids, t.variables[i].UID)
		}
	}
	return uids
}

// Grid returns the raw JSON of the template grid for the node uid.
// Each call returns a fresh copy the caller may decode and modify.
func (t *Taxonomy) Grid(nodeUID string) ([]byte, bool) {
	raw, ok := t.grids[nodeUID]
	if !ok {
		return nil, false
	}
	return append([]byte(nil), raw...), true
}

// Navigation returns the navigation dimension instances in document order.
func (t *Taxonomy) Navigation() []Navigation { return t.navigation }
