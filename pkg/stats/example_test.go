package stats_test

import (
	"fmt"
	"strings"

	"github.com/etftools/etf/pkg/crt"
	"github.com/etftools/etf/pkg/stats"
)

func ExampleSummarize() {
	doc, _ := crt.Read(strings.NewReader(`{
		"country_specific_data": {"nodes": [{"uid": "a", "node": [{"uid": "b"}]}]},
		"data": {"values": []}
	}`))

	all, _ := stats.Summarize(doc)
	for _, s := range all[1:2] {
		fmt.Printf("%s: %d direct children, %d objects, %s bytes\n", s.Label, s.Flat, s.Nested, stats.FormatSize(s.Size))
	}
	// Output:
	// Country specific nodes: 1 direct children, 2 objects, 34 bytes
}
