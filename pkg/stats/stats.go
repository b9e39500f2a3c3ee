// Package stats summarizes the size of a data exchange file per section.
package stats

import (
	"encoding/json"
	"fmt"

	"github.com/ohler55/ojg/jp"

	"github.com/etftools/etf/pkg/crt"
)

// Point is a part of the document that is counted.
type Point struct {
	Label string
	Path  string // JSONPath
}

// Points are the parts [Summarize] reports, in output order.
var Points = []Point{
	{"Country specific dimension instances", "$.country_specific_data.dimension_instances"},
	{"Country specific nodes", "$.country_specific_data.nodes"},
	{"Country specific variables", "$.country_specific_data.variables"},
	{"Country specific grids", "$.country_specific_data.grids"},
	{"Country specific drop-downs", "$.country_specific_data.drop_downs"},
	{"Country specific line descriptions", "$.country_specific_data.line_description"},
	{"Country specific (meta)data", "$.country_specific_data"},
	{"Country data", "$.data"},
}

// Stat is the count for one [Point].
type Stat struct {
	Label   string
	Present bool  // the path exists in the document
	Flat    int   // direct elements when the value is an array
	Nested  int   // JSON objects at any depth, including the value itself
	Size    int64 // encoded JSON bytes
}

// Summarize counts every [Point] of doc. Missing parts count as zero.
func Summarize(doc *crt.Document) ([]Stat, error) {
	out := make([]Stat, 0, len(Points))
	for _, p := range Points {
		x, err := jp.ParseString(p.Path)
		if err != nil {
			return nil, fmt.Errorf("stat %q: %w", p.Label, err)
		}
		st := Stat{Label: p.Label}
		if found := x.Get(doc.Root()); len(found) > 0 && found[0] != nil {
			v := found[0]
			st.Present = true
			if list, ok := v.([]any); ok {
				st.Flat = len(list)
			}
			st.Nested = countObjects(v)
			data, err := json.Marshal(v)
			if err != nil {
				return nil, fmt.Errorf("stat %q: %w", p.Label, err)
			}
			st.Size = int64(len(data))
		}
		out = append(out, st)
	}
	return out, nil
}

// Counts maps each label to its nested object count.
func Counts(stats []Stat) map[string]int {
	m := make(map[string]int, len(stats))
	for _, s := range stats {
		m[s.Label] = s.Nested
	}
	return m
}

func countObjects(v any) int {
	switch x := v.(type) {
	case map[string]any:
		n := 1
		for _, child := range x {
			n += countObjects(child)
		}
		return n
	case []any:
		n := 0
		for _, child := range x {
			n += countObjects(child)
		}
		return n
	}
	return 0
}

// FormatSize renders a byte count with a binary M or k suffix, truncating:
// 12582912 is "12M", 3072 is "3k", 512 stays "512".
func FormatSize(size int64) string {
	switch {
	case size >= 1<<20:
		return fmt.Sprintf("%dM", size>>20)
	case size >= 1<<10:
		return fmt.Sprintf("%dk", size>>10)
	}
	return fmt.Sprintf("%d", size)
}
