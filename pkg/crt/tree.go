package crt

import (
	"fmt"
	"iter"

	"github.com/etftools/etf/pkg/arena"
	"github.com/etftools/etf/pkg/errors"
	"github.com/etftools/etf/pkg/taxonomy"
)

// ID addresses a node of a [Tree].
type ID = arena.ID

// Node is one object of the country_specific_data.nodes forest.
type Node struct {
	Object   Object
	UID      string
	Parent   ID   // containing node, None at the top level
	Children []ID // order of the nested "node" array
	Anchor   taxonomy.ID

	hasList bool // object carried a "node" array when read
}

// ParentUID returns the parent_uid field, if any.
func (n *Node) ParentUID() string { return String(n.Object, KeyParentUID) }

// TemplateUID returns the template_node_uid field, if any.
func (n *Node) TemplateUID() string { return String(n.Object, KeyTemplateNodeUID) }

// Tree indexes the node forest of a [Document] and anchors every node in
// the taxonomy. Mutations go through the tree and are written back to the
// document immediately.
type Tree struct {
	doc   *Document
	tax   *taxonomy.Taxonomy
	nodes *arena.Arena[Node]
	roots []ID
	byUID map[string]ID
	size  int
}

// BuildTree indexes the nodes of doc.
//
// Every node must correspond to a taxonomy node. The anchor is found by the
// first rule that applies:
//  1. the node's own uid is a taxonomy uid;
//  2. its parent_uid is a taxonomy uid;
//  3. it is nested in, or its parent_uid names, another data node, whose
//     anchor it shares;
//  4. its template_node_uid is a taxonomy uid.
//
// Nodes without an anchor, without a uid, or with a duplicate uid make the
// document malformed. BuildTree does not modify doc.
func BuildTree(doc *Document, tax *taxonomy.Taxonomy) (*Tree, error) {
	top, err := doc.Objects(KeyNodes)
	if err != nil {
		return nil, err
	}
	t := &Tree{
		doc:   doc,
		tax:   tax,
		nodes: arena.New[Node](len(top)),
		byUID: make(map[string]ID, len(top)),
	}
	base := fmt.Sprintf(".%s.%s", KeyCountrySpecific, KeyNodes)
	for i, obj := range top {
		if _, err := t.add(obj, arena.None, fmt.Sprintf("%s[%d]", base, i)); err != nil {
			return nil, err
		}
	}
	t.size = t.nodes.Len()

	if err := t.anchor(); err != nil {
		return nil, err
	}
	return t, nil
}

func (t *Tree) add(obj Object, parent ID, path string) (ID, error) {
	uid := String(obj, KeyUID)
	if uid == "" {
		return arena.None, errors.MalformedData(path, "node without uid")
	}
	if prev, dup := t.byUID[uid]; dup {
		return arena.None, errors.MalformedData(path, "duplicate node uid %q, first seen at %s", uid, t.Path(prev))
	}
	nested, err := objectList(obj[KeyNode], path+"."+KeyNode)
	if err != nil {
		return arena.None, err
	}

	id := t.nodes.Allocate(Node{
		Object:  obj,
		UID:     uid,
		Parent:  parent,
		hasList: Has(obj, KeyNode),
	})
	t.byUID[uid] = id
	if parent.Valid() {
		p := t.nodes.Get(parent)
		p.Children = append(p.Children, id)
	} else {
		t.roots = append(t.roots, id)
	}
	for i, child := range nested {
		if _, err := t.add(child, id, fmt.Sprintf("%s.%s[%d]", path, KeyNode, i)); err != nil {
			return arena.None, err
		}
	}
	return id, nil
}

func (t *Tree) anchor() error {
	const (
		pending = iota
		visiting
		done
	)
	state := make([]uint8, t.nodes.Len())

	var resolve func(id ID) (taxonomy.ID, error)
	resolve = func(id ID) (taxonomy.ID, error) {
		n := t.nodes.Get(id)
		switch state[id-1] {
		case done:
			return n.Anchor, nil
		case visiting:
			return arena.None, errors.MalformedData(t.Path(id), "node %q is part of a parent_uid cycle", n.UID)
		}
		state[id-1] = visiting

		a, err := t.anchorOf(id, n, resolve)
		if err != nil {
			return arena.None, err
		}
		n.Anchor = a
		state[id-1] = done
		return a, nil
	}

	for _, id := range t.nodes.IDs() {
		if _, err := resolve(id); err != nil {
			return err
		}
	}
	return nil
}

func (t *Tree) anchorOf(id ID, n *Node, resolve func(ID) (taxonomy.ID, error)) (taxonomy.ID, error) {
	if a, ok := t.tax.FindByUID(n.UID); ok {
		return a, nil
	}
	parentUID := n.ParentUID()
	if a, ok := t.tax.FindByUID(parentUID); ok {
		return a, nil
	}
	if n.Parent.Valid() {
		return resolve(n.Parent)
	}
	if p, ok := t.byUID[parentUID]; ok && p != id {
		return resolve(p)
	}
	if a, ok := t.tax.FindByUID(n.TemplateUID()); ok {
		return a, nil
	}
	return arena.None, errors.MalformedData(t.Path(id), "node %q does not correspond to any taxonomy node", n.UID)
}

// Len returns the number of nodes in the tree.
func (t *Tree) Len() int { return t.size }

// Taxonomy returns the taxonomy the nodes are anchored in.
func (t *Tree) Taxonomy() *taxonomy.Taxonomy { return t.tax }

// Node returns the node with the given ID, or nil.
func (t *Tree) Node(id ID) *Node { return t.nodes.Get(id) }

// Roots returns the top-level nodes in document order.
func (t *Tree) Roots() []ID { return t.roots }

// Children returns the nested nodes of id in document order.
func (t *Tree) Children(id ID) []ID {
	if n := t.nodes.Get(id); n != nil {
		return n.Children
	}
	return nil
}

// FindByUID returns the node with the given uid.
func (t *Tree) FindByUID(uid string) (ID, bool) {
	id, ok := t.byUID[uid]
	return id, ok
}

// All yields the nodes in depth-first preorder.
func (t *Tree) All() iter.Seq2[ID, *Node] {
	return func(yield func(ID, *Node) bool) {
		var walk func(ids []ID) bool
		walk = func(ids []ID) bool {
			for _, id := range ids {
				n := t.nodes.Get(id)
				if !yield(id, n) || !walk(n.Children) {
					return false
				}
			}
			return true
		}
		walk(t.roots)
	}
}

// Ancestors returns the containing nodes of id, outermost first.
func (t *Tree) Ancestors(id ID) []ID {
	var chain []ID
	for n := t.nodes.Get(id); n != nil && n.Parent.Valid(); n = t.nodes.Get(n.Parent) {
		chain = append([]ID{n.Parent}, chain...)
	}
	return chain
}

// IsDescendantOrSelf reports whether id is nested, at any depth, in
// ancestor or is ancestor itself.
func (t *Tree) IsDescendantOrSelf(id, ancestor ID) bool {
	for id.Valid() {
		if id == ancestor {
			return true
		}
		n := t.nodes.Get(id)
		if n == nil {
			return false
		}
		id = n.Parent
	}
	return false
}

// Path returns the JSON path of id, such as
// ".country_specific_data.nodes[2].node[0]".
func (t *Tree) Path(id ID) string {
	n := t.nodes.Get(id)
	if n == nil {
		return ""
	}
	if !n.Parent.Valid() {
		return fmt.Sprintf(".%s.%s[%d]", KeyCountrySpecific, KeyNodes, indexOf(t.roots, id))
	}
	return fmt.Sprintf("%s.%s[%d]", t.Path(n.Parent), KeyNode, indexOf(t.nodes.Get(n.Parent).Children, id))
}

// Retain drops every node for which keep returns false, together with its
// nested nodes, and returns the number of nodes dropped. Sibling order is
// unchanged. A node is only visited when its container was kept.
func (t *Tree) Retain(keep func(ID) bool) int {
	before := t.size
	var filter func(ids []ID) []ID
	filter = func(ids []ID) []ID {
		out := ids[:0:0]
		for _, id := range ids {
			if !keep(id) {
				t.detach(id)
				continue
			}
			n := t.nodes.Get(id)
			n.Children = filter(n.Children)
			out = append(out, id)
		}
		return out
	}
	t.roots = filter(t.roots)
	t.sync()
	return before - t.size
}

func (t *Tree) detach(id ID) {
	n := t.nodes.Get(id)
	delete(t.byUID, n.UID)
	t.size--
	for _, c := range n.Children {
		t.detach(c)
	}
}

// Reparent moves the top-level node child into the nested list of parent
// and removes its parent_uid field.
func (t *Tree) Reparent(child, parent ID) error {
	c, p := t.nodes.Get(child), t.nodes.Get(parent)
	if c == nil || p == nil {
		return fmt.Errorf("reparent: unknown node")
	}
	if c.Parent.Valid() {
		return fmt.Errorf("reparent %q: node is already nested", c.UID)
	}
	if t.IsDescendantOrSelf(parent, child) {
		return fmt.Errorf("reparent %q under %q: would create a cycle", c.UID, p.UID)
	}

	i := indexOf(t.roots, child)
	if i < 0 {
		return fmt.Errorf("reparent %q: node is not in the tree", c.UID)
	}
	t.roots = append(t.roots[:i:i], t.roots[i+1:]...)
	c.Parent = parent
	p.Children = append(p.Children, child)
	p.hasList = true
	delete(c.Object, KeyParentUID)
	t.sync()
	return nil
}

// sync writes the node structure back into the document.
func (t *Tree) sync() {
	var objects func(ids []ID) []Object
	objects = func(ids []ID) []Object {
		out := make([]Object, len(ids))
		for i, id := range ids {
			n := t.nodes.Get(id)
			if n.hasList || len(n.Children) > 0 {
				n.Object[KeyNode] = toList(objects(n.Children))
			}
			out[i] = n.Object
		}
		return out
	}
	sec, err := t.doc.Section()
	if err != nil {
		return
	}
	if Has(sec, KeyNodes) || len(t.roots) > 0 {
		sec[KeyNodes] = toList(objects(t.roots))
	}
}

func indexOf(ids []ID, id ID) int {
	for i, x := range ids {
		if x == id {
			return i
		}
	}
	return -1
}
