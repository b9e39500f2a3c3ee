// Package resolve maps user queries to taxonomy nodes.
//
// A query is a category code ("1.A"), a metadata uid, a sector alias
// ("energy"), an exact category name ("Barley" or "3.F.1.b. Barley") or a
// fragment of a name. [Resolver.Resolve] tries these interpretations in
// that order and returns the matches of the first one that yields any,
// always in taxonomy depth-first order.
package resolve

import (
	"sort"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"golang.org/x/text/cases"

	"github.com/etftools/etf/pkg/errors"
	"github.com/etftools/etf/pkg/taxonomy"
)

// DefaultAliases are the sector shortcuts understood by the reporting
// tool's own command line. Values are metadata uids.
var DefaultAliases = map[string]string{
	"energy":      "3665c27e-d055-47d7-8393-5f934f3ced9d",
	"ippu":        "fed65b84-cdad-4e38-8848-ea6af3c391bc",
	"lulucf":      "db7b9be0-76bc-497e-a4ee-9334ec2429d2",
	"agriculture": "43bc1534-201c-416b-a348-e5866d69dddb",
	"waste":       "b1e41219-79a2-493d-ba97-de0e4d7f9d0f",
	"docbox":      "bd942384-e7cd-4280-bf40-a010a549f245",
	"other":       "b5cf62a9-7dff-4330-bbb1-619f1aeddfb4",
	"totals":      "711ab9da-13cd-44d8-b8f4-33a954171186",
}

// Step identifies the interpretation that produced a result.
type Step int

const (
	StepNone Step = iota
	StepCode
	StepAlias
	StepName
	StepSubstring
)

func (s Step) String() string {
	switch s {
	case StepCode:
		return "code"
	case StepAlias:
		return "alias"
	case StepName:
		return "name"
	case StepSubstring:
		return "substring"
	}
	return "none"
}

type entry struct {
	id   taxonomy.ID
	name string // case-folded Name
	full string // case-folded FullName
}

// Resolver answers queries against one taxonomy. It is read-only after
// construction and may be shared.
type Resolver struct {
	tax     *taxonomy.Taxonomy
	aliases map[string]string
	entries []entry
	logger  *log.Logger
}

// Option configures a [Resolver].
type Option func(*Resolver)

// WithAliases adds sector aliases, replacing defaults of the same name.
// Targets may be uids or codes.
func WithAliases(aliases map[string]string) Option {
	return func(r *Resolver) {
		for k, v := range aliases {
			r.aliases[fold(k)] = v
		}
	}
}

// WithLogger sets the logger for debug output.
func WithLogger(l *log.Logger) Option {
	return func(r *Resolver) {
		if l != nil {
			r.logger = l
		}
	}
}

// New builds a resolver over tax with [DefaultAliases].
func New(tax *taxonomy.Taxonomy, opts ...Option) *Resolver {
	r := &Resolver{
		tax:     tax,
		aliases: make(map[string]string, len(DefaultAliases)),
		entries: make([]entry, 0, tax.Len()),
		logger:  log.Default(),
	}
	for k, v := range DefaultAliases {
		r.aliases[k] = v
	}
	for _, opt := range opts {
		opt(r)
	}
	for id, n := range tax.All() {
		r.entries = append(r.entries, entry{id: id, name: fold(n.Name), full: fold(n.FullName())})
	}
	return r
}

// Taxonomy returns the taxonomy the resolver queries.
func (r *Resolver) Taxonomy() *taxonomy.Taxonomy { return r.tax }

// Resolve returns the nodes matching query. An unmatched query yields an
// empty result, not an error.
func (r *Resolver) Resolve(query string) []taxonomy.ID {
	ids, _ := r.ResolveStep(query)
	return ids
}

// ResolveStep is [Resolver.Resolve] that also reports which
// interpretation matched.
func (r *Resolver) ResolveStep(query string) ([]taxonomy.ID, Step) {
	q := strings.TrimSpace(query)
	if q == "" {
		return nil, StepNone
	}

	if ids := r.byKey(q); len(ids) > 0 {
		return ids, StepCode
	}

	folded := fold(q)
	if target, ok := r.aliases[folded]; ok {
		if ids := r.byKey(target); len(ids) > 0 {
			r.logger.Debug("sector alias translated", "alias", q, "target", target)
			return ids, StepAlias
		}
		r.logger.Warn("sector alias points to unknown node", "alias", q, "target", target)
	}

	var exact, partial []taxonomy.ID
	for _, e := range r.entries {
		switch {
		case e.name == folded || e.full == folded:
			exact = append(exact, e.id)
		case strings.Contains(e.name, folded) || strings.Contains(e.full, folded):
			partial = append(partial, e.id)
		}
	}
	if len(exact) > 0 {
		return exact, StepName
	}
	if len(partial) > 0 {
		return partial, StepSubstring
	}
	return nil, StepNone
}

// ResolveSector resolves query and fails with a SECTOR_NOT_FOUND error
// when nothing matches.
func (r *Resolver) ResolveSector(query string) ([]taxonomy.ID, error) {
	ids, step := r.ResolveStep(query)
	if len(ids) == 0 {
		return nil, errors.SectorNotFound(query)
	}
	r.logger.Debug("resolved sector", "query", query, "by", step, "nodes", len(ids))
	return ids, nil
}

// FindNavigation returns the navigation dimension instances whose uid
// equals query (directly or through an alias) or whose name equals query,
// ignoring case.
func (r *Resolver) FindNavigation(query string) []taxonomy.Navigation {
	q := strings.TrimSpace(query)
	if q == "" {
		return nil
	}
	folded := fold(q)
	uid := q
	if target, ok := r.aliases[folded]; ok {
		uid = target
	}

	var out []taxonomy.Navigation
	for _, nav := range r.tax.Navigation() {
		if nav.UID == uid || fold(nav.Name) == folded {
			out = append(out, nav)
		}
	}
	return out
}

// byKey matches a code or a metadata uid exactly.
func (r *Resolver) byKey(key string) []taxonomy.ID {
	var ids []taxonomy.ID
	if id, ok := r.tax.FindByCode(key); ok {
		ids = append(ids, id)
	}
	if IsUUID(key) {
		if id, ok := r.tax.FindByUID(key); ok && (len(ids) == 0 || ids[0] != id) {
			ids = append(ids, id)
		}
	}
	if len(ids) > 1 {
		sort.Slice(ids, func(i, j int) bool { return r.tax.Order(ids[i]) < r.tax.Order(ids[j]) })
	}
	return ids
}

// IsUUID reports whether s is a canonical hyphenated UUID, the form of
// metadata uids. Country-specific uids are plain hex and do not qualify.
func IsUUID(s string) bool {
	if len(s) != 36 {
		return false
	}
	_, err := uuid.Parse(s)
	return err == nil
}

func fold(s string) string {
	return cases.Fold().String(s)
}
