// Package filter reduces a data exchange file to the subtree of one sector.
//
// Filtering keeps the data nodes anchored at or below the resolved sector
// nodes and the containers needed to reach them, then drops every variable,
// grid, line description and reported value that no longer belongs to a
// kept node. The document is only modified after the sector has been
// resolved and every node anchored, so a failing filter leaves it intact.
package filter

import (
	"github.com/charmbracelet/log"

	"github.com/etftools/etf/pkg/crt"
	"github.com/etftools/etf/pkg/resolve"
	"github.com/etftools/etf/pkg/taxonomy"
)

// Removed counts the objects dropped per collection.
type Removed struct {
	Nodes            int
	Variables        int
	Grids            int
	LineDescriptions int
	Values           int
}

// Result describes a completed filter run.
type Result struct {
	Sector      string
	Targets     []taxonomy.ID
	Kept        int // data nodes inside the sector
	Scaffolding int // containers kept only to reach them
	Removed     Removed
}

// BySector filters doc in place down to sector.
//
// It fails with SECTOR_NOT_FOUND when the query resolves to no taxonomy
// node and with MALFORMED_DATA when a data node cannot be anchored.
func BySector(doc *crt.Document, r *resolve.Resolver, sector string, logger *log.Logger) (*Result, error) {
	if logger == nil {
		logger = log.Default()
	}
	tax := r.Taxonomy()

	targets, err := r.ResolveSector(sector)
	if err != nil {
		return nil, err
	}
	for _, id := range targets {
		logger.Debug("sector node", "code", tax.Node(id).Code, "path", tax.Path(id))
	}

	tree, err := crt.BuildTree(doc, tax)
	if err != nil {
		return nil, err
	}
	variables, err := doc.Objects(crt.KeyVariables)
	if err != nil {
		return nil, err
	}
	grids, err := doc.Objects(crt.KeyGrids)
	if err != nil {
		return nil, err
	}
	lines, err := doc.Objects(crt.KeyLineDescription)
	if err != nil {
		return nil, err
	}
	inventories, err := doc.Inventories()
	if err != nil {
		return nil, err
	}
	sec, err := doc.Section()
	if err != nil {
		return nil, err
	}

	// Taxonomy side: every category under the targets and its variables.
	sectorNodes := make(map[string]bool)
	var subtree []taxonomy.ID
	for _, id := range targets {
		for _, d := range tax.Subtree(id) {
			if uid := tax.Node(d).UID; !sectorNodes[uid] {
				sectorNodes[uid] = true
				subtree = append(subtree, d)
			}
		}
	}
	sectorVars := make(map[string]bool)
	for _, uid := range tax.VariablesOf(subtree) {
		sectorVars[uid] = true
	}
	logger.Debug("collected sector uids", "nodes", len(sectorNodes), "variables", len(sectorVars))

	// Data side: nodes anchored inside the sector, plus their containers.
	inSector := func(a taxonomy.ID) bool {
		for _, t := range targets {
			if tax.IsDescendantOrSelf(a, t) {
				return true
			}
		}
		return false
	}
	kept := make(map[crt.ID]bool)
	scaffold := make(map[crt.ID]bool)
	keptUIDs := make(map[string]bool)
	for id, n := range tree.All() {
		if !inSector(n.Anchor) {
			continue
		}
		kept[id] = true
		keptUIDs[n.UID] = true
		for _, a := range tree.Ancestors(id) {
			scaffold[a] = true
		}
	}
	res := &Result{Sector: sector, Targets: targets, Kept: len(kept)}
	for id := range scaffold {
		if !kept[id] {
			res.Scaffolding++
		}
	}

	// Decide everything before touching the document.
	keepNodeUID := func(uid string) bool { return keptUIDs[uid] || sectorNodes[uid] }
	keptVars := make(map[string]bool, len(sectorVars))
	for uid := range sectorVars {
		keptVars[uid] = true
	}
	variables, res.Removed.Variables = retain(variables, func(v crt.Object) bool {
		uid := crt.String(v, crt.KeyUID)
		if sectorVars[uid] || keepNodeUID(crt.String(v, crt.KeyNodeUID)) {
			keptVars[uid] = true
			return true
		}
		return false
	})
	grids, res.Removed.Grids = retain(grids, func(g crt.Object) bool {
		return keepNodeUID(crt.String(g, crt.KeyNodeUID))
	})
	byVariable := func(o crt.Object) bool { return keptVars[crt.String(o, crt.KeyVariableUID)] }
	lines, res.Removed.LineDescriptions = retain(lines, byVariable)

	res.Removed.Nodes = tree.Retain(func(id crt.ID) bool { return kept[id] || scaffold[id] })
	logger.Info("filtered out nodes", "removed", res.Removed.Nodes, "sector", sector)

	if crt.Has(sec, crt.KeyVariables) {
		crt.SetList(sec, crt.KeyVariables, variables)
	}
	logger.Info("filtered out variables", "removed", res.Removed.Variables, "sector", sector)
	if crt.Has(sec, crt.KeyGrids) {
		crt.SetList(sec, crt.KeyGrids, grids)
	}
	logger.Info("filtered out grids", "removed", res.Removed.Grids, "sector", sector)
	if crt.Has(sec, crt.KeyLineDescription) {
		crt.SetList(sec, crt.KeyLineDescription, lines)
	}
	logger.Info("filtered out line descriptions", "removed", res.Removed.LineDescriptions, "sector", sector)

	for i := range inventories {
		inv := &inventories[i]
		values, removed := retain(inv.Values, byVariable)
		if crt.Has(inv.Object, crt.KeyValues) {
			inv.SetValues(values)
		}
		res.Removed.Values += removed
		logger.Info("filtered out data values", "removed", removed, "year", inv.Year, "sector", sector)
	}
	return res, nil
}

// retain returns the items for which keep reports true, in order, and the
// number dropped.
func retain(items []crt.Object, keep func(crt.Object) bool) ([]crt.Object, int) {
	out := make([]crt.Object, 0, len(items))
	for _, item := range items {
		if keep(item) {
			out = append(out, item)
		}
	}
	return out, len(items) - len(out)
}
