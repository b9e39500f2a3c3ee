// Package fix repairs structural omissions in data exchange files.
//
// The reporting tool refuses to import files whose country-specific nodes
// are listed flat instead of nested under their parents, or whose
// template-derived nodes lack the grid their template prescribes. Each
// such requirement is a [Rule]; [Engine.Fix] runs the selected rules in
// registration order.
//
// Rules are idempotent: running a rule on its own output changes nothing.
package fix

import (
	"context"
	"slices"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/etftools/etf/pkg/crt"
	"github.com/etftools/etf/pkg/errors"
	"github.com/etftools/etf/pkg/observability"
	"github.com/etftools/etf/pkg/taxonomy"
)

// All selects every registered rule.
const All = "ALL"

// Location identifies one defect a rule found.
type Location struct {
	UID    string // data node uid
	Path   string // JSON path of the node when detected
	Target string // parent uid for PARENTS, template uid for GRIDS
}

// errSkipped is returned by Rule.Apply for a location it left unchanged.
// The location is not reported.
var errSkipped = errors.New(errors.ErrCodeInternal, "location skipped")

// Rule detects and repairs one import requirement.
type Rule interface {
	Name() string
	Detect(s *Session) ([]Location, error)
	Apply(s *Session, loc Location) error
}

// registry holds the rules in the order they run.
var registry = []Rule{
	parentsRule{},
	gridsRule{},
}

// Rules returns the registered rule names in run order.
func Rules() []string {
	names := make([]string, len(registry))
	for i, r := range registry {
		names[i] = r.Name()
	}
	return names
}

// Select validates names and returns the rules they select, in
// registration order. Names are case-insensitive; [All] selects every rule
// and no names select every rule too.
func Select(names ...string) ([]Rule, error) {
	if len(names) == 0 {
		return slices.Clone(registry), nil
	}
	want := make(map[string]bool, len(names))
	for _, name := range names {
		if err := errors.ValidateRuleName(name); err != nil {
			return nil, err
		}
		upper := strings.ToUpper(name)
		if upper == All {
			return slices.Clone(registry), nil
		}
		if !slices.Contains(Rules(), upper) {
			return nil, errors.UnknownRule(name, append(Rules(), All))
		}
		want[upper] = true
	}

	var rules []Rule
	for _, r := range registry {
		if want[r.Name()] {
			rules = append(rules, r)
		}
	}
	return rules, nil
}

// Session is the state shared by the rules of one fix run.
type Session struct {
	Doc    *crt.Document
	Tax    *taxonomy.Taxonomy
	Logger *log.Logger
	NewUID func() string

	tree  *crt.Tree
	index *index
}

// Tree returns the node tree of the document, building it on first use.
func (s *Session) Tree() (*crt.Tree, error) {
	if s.tree == nil {
		t, err := crt.BuildTree(s.Doc, s.Tax)
		if err != nil {
			return nil, err
		}
		s.tree = t
	}
	return s.tree, nil
}

func (s *Session) reset() {
	s.tree = nil
	s.index = nil
}

// Applied lists what one rule repaired.
type Applied struct {
	Rule      string
	Locations []Location
}

// Report lists the repairs of a fix run, per rule in run order.
type Report struct {
	Applied []Applied
}

// Count returns the number of repairs made by the named rule.
func (r *Report) Count(rule string) int {
	for _, a := range r.Applied {
		if a.Rule == rule {
			return len(a.Locations)
		}
	}
	return 0
}

// Total returns the number of repairs over all rules.
func (r *Report) Total() int {
	n := 0
	for _, a := range r.Applied {
		n += len(a.Locations)
	}
	return n
}

// Engine runs rules against data documents.
type Engine struct {
	Tax    *taxonomy.Taxonomy
	Logger *log.Logger
	NewUID func() string
}

// New creates an engine for documents conforming to tax.
func New(tax *taxonomy.Taxonomy, logger *log.Logger) *Engine {
	if logger == nil {
		logger = log.Default()
	}
	return &Engine{Tax: tax, Logger: logger, NewUID: crt.NewUID}
}

// Fix applies the named rules to doc in place.
//
// All names are validated before doc is touched; an unknown name fails
// with UNKNOWN_RULE. Each rule detects its defects afresh, after the rules
// before it have been applied.
func (e *Engine) Fix(doc *crt.Document, names ...string) (*Report, error) {
	return e.FixContext(context.Background(), doc, names...)
}

// FixContext is like Fix and reports every rule to the pipeline hooks.
// It stops between rules once ctx is done.
//
// The rules run on a copy of doc, which replaces doc only when every rule
// succeeded; on error doc is left as it was.
func (e *Engine) FixContext(ctx context.Context, doc *crt.Document, names ...string) (*Report, error) {
	rules, err := Select(names...)
	if err != nil {
		return nil, err
	}
	work := doc.Clone()
	s := &Session{Doc: work, Tax: e.Tax, Logger: e.Logger, NewUID: e.NewUID}
	if s.NewUID == nil {
		s.NewUID = crt.NewUID
	}

	report := &Report{}
	for _, rule := range rules {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		start := time.Now()
		applied, err := runRule(s, rule)
		observability.Pipeline().OnFixRule(ctx, rule.Name(), len(applied.Locations), time.Since(start), err)
		if err != nil {
			return nil, err
		}
		report.Applied = append(report.Applied, applied)
	}
	doc.ReplaceWith(work)
	return report, nil
}

func runRule(s *Session, rule Rule) (Applied, error) {
	s.reset()
	applied := Applied{Rule: rule.Name()}
	locs, err := rule.Detect(s)
	if err != nil {
		return applied, err
	}
	s.Logger.Info("applying rule", "rule", rule.Name(), "locations", len(locs))

	for _, loc := range locs {
		if err := rule.Apply(s, loc); err == errSkipped {
			continue
		} else if err != nil {
			return applied, err
		}
		applied.Locations = append(applied.Locations, loc)
	}
	return applied, nil
}

// Fix applies the named rules to doc with a default engine.
func Fix(doc *crt.Document, tax *taxonomy.Taxonomy, names ...string) (*Report, error) {
	return New(tax, nil).Fix(doc, names...)
}
