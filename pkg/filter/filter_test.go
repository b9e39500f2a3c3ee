package filter

import (
	"maps"
	"slices"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/etftools/etf/pkg/crt"
	"github.com/etftools/etf/pkg/errors"
	"github.com/etftools/etf/pkg/resolve"
	"github.com/etftools/etf/pkg/taxonomy"
)

const (
	energy        = "3665c27e-d055-47d7-8393-5f934f3ced9d"
	fuelComb      = "41902d77-45cb-451e-9e11-65c60e56ecf8"
	publicElec    = "7513bda5-dd0f-48a0-9053-383ac7ec2c92"
	barley        = "c0b2ebc7-9b5d-45e8-b8e1-f590ed886e9e"
	cattle        = "a3e85cc2-e5c9-4106-a055-5e7dcc32bf8b"
	naturalGas    = "5f0e6c1a2b3c4d5e6f708192"
	naturalGasSub = "6a7b8c9d0e1f2a3b4c5d6e7f"
	rye           = "7d8e9f0a1b2c3d4e5f607182"

	varPublicCO2 = "f5d1402d-8c35-4468-9653-0aa4083efb59"
	varBarleyCH4 = "1440af79-0ed3-460d-9088-8c0818e96c55"
	varGas       = "0a1b2c3d4e5f60718293a4b5"
	varRye       = "1b2c3d4e5f60718293a4b5c6"
)

func setup(t *testing.T) (*crt.Document, *resolve.Resolver) {
	t.Helper()
	tax, err := taxonomy.Default()
	if err != nil {
		t.Fatal(err)
	}
	doc, err := crt.ReadFile("testdata/data.json")
	if err != nil {
		t.Fatal(err)
	}
	return doc, resolve.New(tax)
}

func uidsOf(objs []crt.Object, key string) []string {
	out := []string{}
	for _, o := range objs {
		out = append(out, crt.String(o, key))
	}
	return out
}

func objects(t *testing.T, doc *crt.Document, key string) []crt.Object {
	t.Helper()
	objs, err := doc.Objects(key)
	if err != nil {
		t.Fatal(err)
	}
	return objs
}

func nested(obj crt.Object) []crt.Object {
	var out []crt.Object
	list, _ := obj[crt.KeyNode].([]any)
	for _, item := range list {
		out = append(out, item.(crt.Object))
	}
	return out
}

func valueUIDs(t *testing.T, doc *crt.Document) [][]string {
	t.Helper()
	invs, err := doc.Inventories()
	if err != nil {
		t.Fatal(err)
	}
	var out [][]string
	for _, inv := range invs {
		out = append(out, uidsOf(inv.Values, crt.KeyVariableUID))
	}
	return out
}

func TestBySectorEnergy(t *testing.T) {
	doc, r := setup(t)

	res, err := BySector(doc, r, "energy", nil)
	if err != nil {
		t.Fatalf("BySector: %v", err)
	}

	want := Removed{Nodes: 3, Variables: 1, Grids: 1, LineDescriptions: 1, Values: 4}
	if diff := cmp.Diff(want, res.Removed); diff != "" {
		t.Errorf("Removed mismatch (-want +got):\n%s", diff)
	}
	if res.Kept != 6 || res.Scaffolding != 0 {
		t.Errorf("Kept = %d, Scaffolding = %d, want 6, 0", res.Kept, res.Scaffolding)
	}

	nodes := objects(t, doc, crt.KeyNodes)
	if diff := cmp.Diff([]string{energy, naturalGas, naturalGasSub}, uidsOf(nodes, crt.KeyUID)); diff != "" {
		t.Errorf("nodes mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{fuelComb, "ecb1488c-d9cf-4d3c-bb5f-dd8e9365339d"}, uidsOf(nested(nodes[0]), crt.KeyUID)); diff != "" {
		t.Errorf("energy children mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{varGas}, uidsOf(objects(t, doc, crt.KeyVariables), crt.KeyUID)); diff != "" {
		t.Errorf("variables mismatch (-want +got):\n%s", diff)
	}
	if got := objects(t, doc, crt.KeyGrids); len(got) != 0 {
		t.Errorf("grids = %v, want none", got)
	}
	wantValues := [][]string{{varPublicCO2, varGas}, {varPublicCO2}}
	if diff := cmp.Diff(wantValues, valueUIDs(t, doc)); diff != "" {
		t.Errorf("values mismatch (-want +got):\n%s", diff)
	}
}

func TestBySectorKeepsScaffolding(t *testing.T) {
	doc, r := setup(t)

	res, err := BySector(doc, r, "1.A.1.a", nil)
	if err != nil {
		t.Fatalf("BySector: %v", err)
	}
	if res.Kept != 1 || res.Scaffolding != 2 {
		t.Errorf("Kept = %d, Scaffolding = %d, want 1, 2", res.Kept, res.Scaffolding)
	}
	if res.Removed.Nodes != 6 {
		t.Errorf("Removed.Nodes = %d, want 6", res.Removed.Nodes)
	}

	nodes := objects(t, doc, crt.KeyNodes)
	if len(nodes) != 1 {
		t.Fatalf("top-level nodes = %v, want only Energy", uidsOf(nodes, crt.KeyUID))
	}
	chain := []string{crt.String(nodes[0], crt.KeyUID)}
	for n := nodes[0]; len(nested(n)) > 0; n = nested(n)[0] {
		if len(nested(n)) != 1 {
			t.Fatalf("scaffolding node %s kept %d children", crt.String(n, crt.KeyUID), len(nested(n)))
		}
		chain = append(chain, crt.String(nested(n)[0], crt.KeyUID))
	}
	if diff := cmp.Diff([]string{energy, fuelComb, publicElec}, chain); diff != "" {
		t.Errorf("kept chain mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([][]string{{varPublicCO2}, {varPublicCO2}}, valueUIDs(t, doc)); diff != "" {
		t.Errorf("values mismatch (-want +got):\n%s", diff)
	}
}

func TestBySectorBarley(t *testing.T) {
	doc, r := setup(t)

	if _, err := BySector(doc, r, "3.F.1.b. Barley", nil); err != nil {
		t.Fatalf("BySector: %v", err)
	}
	if diff := cmp.Diff([]string{barley}, uidsOf(objects(t, doc, crt.KeyNodes), crt.KeyUID)); diff != "" {
		t.Errorf("nodes mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([][]string{{varBarleyCH4}, {varBarleyCH4}}, valueUIDs(t, doc)); diff != "" {
		t.Errorf("values mismatch (-want +got):\n%s", diff)
	}
}

func TestBySectorPreservesOrder(t *testing.T) {
	doc, r := setup(t)

	if _, err := BySector(doc, r, "3", nil); err != nil {
		t.Fatalf("BySector: %v", err)
	}
	if diff := cmp.Diff([]string{barley, rye, cattle}, uidsOf(objects(t, doc, crt.KeyNodes), crt.KeyUID)); diff != "" {
		t.Errorf("nodes mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{varRye}, uidsOf(objects(t, doc, crt.KeyVariables), crt.KeyUID)); diff != "" {
		t.Errorf("variables mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{rye}, uidsOf(objects(t, doc, crt.KeyGrids), crt.KeyNodeUID)); diff != "" {
		t.Errorf("grids mismatch (-want +got):\n%s", diff)
	}
	want := [][]string{{varBarleyCH4, "849cd165-75ad-4d99-85fa-a47ab55caecb", varRye}, {varBarleyCH4}}
	if diff := cmp.Diff(want, valueUIDs(t, doc)); diff != "" {
		t.Errorf("values mismatch (-want +got):\n%s", diff)
	}
}

func TestBySectorOutputIsSubtree(t *testing.T) {
	sectors := []string{"energy", "1.A", "1.A.1", "Barley", "cereal", "agriculture", "waste"}

	for _, sector := range sectors {
		t.Run(sector, func(t *testing.T) {
			doc, r := setup(t)
			res, err := BySector(doc, r, sector, nil)
			if err != nil {
				t.Fatalf("BySector: %v", err)
			}

			tree, err := crt.BuildTree(doc, r.Taxonomy())
			if err != nil {
				t.Fatalf("filtered document no longer builds: %v", err)
			}
			inSector := func(id crt.ID) bool {
				for _, target := range res.Targets {
					if r.Taxonomy().IsDescendantOrSelf(tree.Node(id).Anchor, target) {
						return true
					}
				}
				return false
			}
			for id, n := range tree.All() {
				if inSector(id) {
					continue
				}
				hasKeptDescendant := false
				for d := range tree.All() {
					if d != id && tree.IsDescendantOrSelf(d, id) && inSector(d) {
						hasKeptDescendant = true
						break
					}
				}
				if !hasKeptDescendant {
					t.Errorf("node %s is neither in the sector nor a container", n.UID)
				}
			}
		})
	}
}

func TestBySectorAddsNoFields(t *testing.T) {
	input := `{
		"country_specific_data": {"nodes": [{"uid": "` + barley + `"}, {"uid": "` + cattle + `"}]},
		"data": {"values": [{"inventory_year": 1990}]}
	}`
	doc, err := crt.Read(strings.NewReader(input))
	if err != nil {
		t.Fatal(err)
	}
	_, r := setup(t)

	if _, err := BySector(doc, r, "Barley", nil); err != nil {
		t.Fatalf("BySector: %v", err)
	}
	sec, _ := doc.Section()
	if got := slices.Sorted(maps.Keys(sec)); !slices.Equal(got, []string{crt.KeyNodes}) {
		t.Errorf("section keys = %v, want only nodes", got)
	}
	invs, _ := doc.Inventories()
	if crt.Has(invs[0].Object, crt.KeyValues) {
		t.Error("filter added a values list to an inventory")
	}
	if nodes := objects(t, doc, crt.KeyNodes); len(nodes) != 1 || crt.Has(nodes[0], crt.KeyNode) {
		t.Errorf("nodes = %v", nodes)
	}
}

func TestBySectorErrorsLeaveDocument(t *testing.T) {
	tests := []struct {
		name   string
		sector string
		edit   func(*crt.Document)
		code   errors.Code
	}{
		{
			name:   "unknown sector",
			sector: "nonexistent",
			code:   errors.ErrCodeSectorNotFound,
		},
		{
			name:   "orphan node",
			sector: "energy",
			edit: func(d *crt.Document) {
				_ = d.AppendObject(crt.KeyNodes, crt.Object{crt.KeyUID: "ffffffffffffffffffffffff"})
			},
			code: errors.ErrCodeMalformedData,
		},
		{
			name:   "line descriptions not a list",
			sector: "energy",
			edit: func(d *crt.Document) {
				sec, _ := d.Section()
				sec[crt.KeyLineDescription] = "none"
			},
			code: errors.ErrCodeMalformedData,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, r := setup(t)
			if tt.edit != nil {
				tt.edit(doc)
			}
			before := doc.Clone()

			_, err := BySector(doc, r, tt.sector, nil)
			if !errors.Is(err, tt.code) {
				t.Fatalf("BySector() error = %v, want %s", err, tt.code)
			}
			if diff := cmp.Diff(before.Root(), doc.Root()); diff != "" {
				t.Errorf("document modified on error (-before +after):\n%s", diff)
			}
		})
	}
}
