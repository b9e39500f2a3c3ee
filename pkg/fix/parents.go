package fix

import (
	"github.com/etftools/etf/pkg/crt"
	"github.com/etftools/etf/pkg/resolve"
)

// RuleParents nests flat country-specific nodes under their parents.
const RuleParents = "PARENTS"

// parentsRule moves top-level template-derived nodes whose parent_uid names
// another country-specific node into that node's "node" list. Parents that
// are metadata categories stay referenced by uid, which the reporting tool
// accepts.
type parentsRule struct{}

func (parentsRule) Name() string { return RuleParents }

func (parentsRule) Detect(s *Session) ([]Location, error) {
	tree, err := s.Tree()
	if err != nil {
		return nil, err
	}

	var locs []Location
	for _, id := range tree.Roots() {
		n := tree.Node(id)
		parentUID := n.ParentUID()
		if parentUID == "" || !crt.Has(n.Object, crt.KeyTemplateNodeUID) {
			continue
		}
		if resolve.IsUUID(n.UID) || resolve.IsUUID(parentUID) || s.Tax.HasUID(parentUID) {
			continue
		}
		if _, ok := tree.FindByUID(parentUID); !ok {
			s.Logger.Error("node refers to missing parent node", "uid", n.UID, "parent", parentUID)
			continue
		}
		locs = append(locs, Location{UID: n.UID, Path: tree.Path(id), Target: parentUID})
	}
	return locs, nil
}

func (parentsRule) Apply(s *Session, loc Location) error {
	tree, err := s.Tree()
	if err != nil {
		return err
	}
	child, ok := tree.FindByUID(loc.UID)
	if !ok || tree.Node(child).Parent.Valid() {
		return errSkipped
	}
	parent, ok := tree.FindByUID(loc.Target)
	if !ok {
		return errSkipped
	}
	if err := tree.Reparent(child, parent); err != nil {
		s.Logger.Warn("cannot move node", "uid", loc.UID, "parent", loc.Target, "err", err)
		return errSkipped
	}
	s.Logger.Debug("moved child node under parent node", "uid", loc.UID, "parent", loc.Target)
	return nil
}
