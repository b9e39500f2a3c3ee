package fix

import (
	"bytes"
	"maps"
	"slices"

	"github.com/etftools/etf/pkg/crt"
	"github.com/etftools/etf/pkg/errors"
	pkgio "github.com/etftools/etf/pkg/io"
)

// RuleGrids adds the template grid every template-derived node requires.
const RuleGrids = "GRIDS"

type varKey struct {
	nodeUID     string
	templateVar string
}

// index locates the grids and template-derived variables of a document.
type index struct {
	grids map[string]crt.Object // node uid -> first grid
	vars  map[varKey]string     // (node uid, template var uid) -> variable uid
}

func (s *Session) gridIndex() (*index, error) {
	if s.index != nil {
		return s.index, nil
	}
	grids, err := s.Doc.Objects(crt.KeyGrids)
	if err != nil {
		return nil, err
	}
	vars, err := s.Doc.Objects(crt.KeyVariables)
	if err != nil {
		return nil, err
	}

	idx := &index{
		grids: make(map[string]crt.Object, len(grids)),
		vars:  make(map[varKey]string, len(vars)),
	}
	for _, g := range grids {
		if uid := crt.String(g, crt.KeyNodeUID); uid != "" {
			if _, dup := idx.grids[uid]; !dup {
				idx.grids[uid] = g
			}
		}
	}
	for _, v := range vars {
		key := varKey{crt.String(v, crt.KeyNodeUID), crt.String(v, crt.KeyTemplateVarUID)}
		if key.templateVar == "" {
			continue
		}
		if _, dup := idx.vars[key]; !dup {
			idx.vars[key] = crt.String(v, crt.KeyUID)
		}
	}
	s.index = idx
	return idx, nil
}

// templateGrid returns a private copy of the grid of the template node.
// Country-specific templates take precedence over the metadata.
func (s *Session) templateGrid(templateUID string) (crt.Object, bool, error) {
	idx, err := s.gridIndex()
	if err != nil {
		return nil, false, err
	}
	if g, ok := idx.grids[templateUID]; ok {
		return crt.CloneObject(g), true, nil
	}
	raw, ok := s.Tax.Grid(templateUID)
	if !ok {
		return nil, false, nil
	}
	var grid crt.Object
	if err := pkgio.ReadJSON(bytes.NewReader(raw), &grid); err != nil {
		return nil, false, errors.Wrap(errors.ErrCodeTaxonomyLoad, err, "template grid of %s", templateUID)
	}
	return grid, true, nil
}

// gridsRule clones the template grid for every node that has a
// template_node_uid but no grid of its own.
type gridsRule struct{}

func (gridsRule) Name() string { return RuleGrids }

func (gridsRule) Detect(s *Session) ([]Location, error) {
	tree, err := s.Tree()
	if err != nil {
		return nil, err
	}
	idx, err := s.gridIndex()
	if err != nil {
		return nil, err
	}

	var locs []Location
	for id, n := range tree.All() {
		tpl := n.TemplateUID()
		if tpl == "" || tpl == n.UID {
			continue
		}
		if _, ok := idx.grids[n.UID]; ok {
			continue
		}
		if _, ok := idx.grids[tpl]; !ok && !hasTaxonomyGrid(s, tpl) {
			s.Logger.Debug("template has no grid", "uid", n.UID, "template", tpl)
			continue
		}
		path := tree.Path(id)
		s.Logger.Debug("detected country specific node without grid", "uid", n.UID, "path", path)
		locs = append(locs, Location{UID: n.UID, Path: path, Target: tpl})
	}
	return locs, nil
}

func hasTaxonomyGrid(s *Session, uid string) bool {
	_, ok := s.Tax.Grid(uid)
	return ok
}

func (gridsRule) Apply(s *Session, loc Location) error {
	idx, err := s.gridIndex()
	if err != nil {
		return err
	}
	if _, ok := idx.grids[loc.UID]; ok {
		return nil
	}
	grid, ok, err := s.templateGrid(loc.Target)
	if err != nil {
		return err
	}
	if !ok {
		return errors.New(errors.ErrCodeInternal, "template grid of %s disappeared", loc.Target)
	}

	grid[crt.KeyNodeUID] = loc.UID
	var walkErr error
	eachObject(grid[crt.KeyGroup], func(group crt.Object) {
		if walkErr != nil || !crt.Has(group, crt.KeyUID) || !crt.Has(group, crt.KeyVariableUID) {
			return
		}
		group[crt.KeyTemplateGroupUID] = group[crt.KeyUID]
		group[crt.KeyUID] = s.NewUID()
		if group[crt.KeyVariableUID] == nil {
			return
		}
		uid, err := s.variableFor(idx, loc, crt.String(group, crt.KeyVariableUID))
		if err != nil {
			walkErr = err
			return
		}
		group[crt.KeyVariableUID] = uid
	})
	if walkErr != nil {
		return walkErr
	}

	if err := s.Doc.AppendObject(crt.KeyGrids, grid); err != nil {
		return err
	}
	idx.grids[loc.UID] = grid
	s.Logger.Debug("added template grid", "uid", loc.UID, "template", loc.Target)
	return nil
}

// variableFor returns the node's variable derived from templateVar,
// creating it when the document lacks it.
func (s *Session) variableFor(idx *index, loc Location, templateVar string) (string, error) {
	key := varKey{loc.UID, templateVar}
	if uid, ok := idx.vars[key]; ok {
		return uid, nil
	}
	v := crt.Object{
		crt.KeyUID:            s.NewUID(),
		crt.KeyNodeUID:        loc.UID,
		crt.KeyTemplateVarUID: templateVar,
	}
	if err := s.Doc.AppendObject(crt.KeyVariables, v); err != nil {
		return "", err
	}
	uid := v[crt.KeyUID].(string)
	idx.vars[key] = uid
	s.Logger.Debug("adding missing variable required by grid",
		"node", loc.UID, "template_var", templateVar, "template", loc.Target)
	return uid, nil
}

// eachObject calls fn for every object in v, parents before children and
// siblings in document order.
func eachObject(v any, fn func(crt.Object)) {
	switch x := v.(type) {
	case crt.Object:
		fn(x)
		for _, k := range slices.Sorted(maps.Keys(x)) {
			eachObject(x[k], fn)
		}
	case []any:
		for _, item := range x {
			eachObject(item, fn)
		}
	}
}
