package county

import (
	"slices"
	"strings"
)

// Match is one canonical id a label resolved to. SplitGroup is 0 unless the label named several entities.
type Match struct {
	ID         int
	SplitGroup int
}

// Alias records how a source spelled an entity. Aliases live only as long as their Matcher.
type Alias struct {
	Label      string
	State      string
	ID         int
	SplitGroup int
}

// Combinator splits a merged label ("Albemarle + Charlottesville"). TailSuffix is appended to the last
// part when it carries no administrative suffix of its own (merged county + independent city rows).
type Combinator struct {
	Token      string
	TailSuffix string
}

// Correction is a substring replacement applied to a label before splitting and matching.
type Correction struct {
	Old string
	New string
}

// DefaultSuffix completes a bare part ("Albemarle" -> "Albemarle County").
const DefaultSuffix = "County"

// AdminSuffixes are the words that mark a label as already carrying its administrative unit.
var AdminSuffixes = []string{"county", "city", "borough", "area", "parish", "municipality"}

// Matcher resolves one source's labels against the registry. Build one per source pass.
type Matcher struct {
	reg    *Registry
	source string

	combinators []Combinator
	corrections []Correction

	defaultSuffix string
	suffixes      []string

	nextGroup int
	aliases   []Alias
	cache     map[nameKey][]Match
}

type MatcherOpt func(m *Matcher) error

func NewMatcher(reg *Registry, opts ...MatcherOpt) (*Matcher, error) {
	if reg == nil {
		return nil, configErr("", "", "nil registry to NewMatcher")
	}

	m := &Matcher{
		reg:           reg,
		defaultSuffix: DefaultSuffix,
		suffixes:      AdminSuffixes,
		cache:         make(map[nameKey][]Match),
	}

	for _, opt := range opts {
		if e := opt(m); e != nil {
			return nil, e
		}
	}

	return m, nil
}

// ***************** Matcher - Options *****************

func MatcherSource(name string) MatcherOpt {
	return func(m *Matcher) error {
		m.source = name
		return nil
	}
}

// MatcherCombinators sets the split tokens. The first token found in a label is the outermost split.
func MatcherCombinators(combs ...Combinator) MatcherOpt {
	return func(m *Matcher) error {
		for _, c := range combs {
			if c.Token == "" {
				return configErr(m.source, "", "empty combinator token")
			}
		}

		m.combinators = combs

		return nil
	}
}

func MatcherCorrections(corrs ...Correction) MatcherOpt {
	return func(m *Matcher) error {
		for _, c := range corrs {
			if c.Old == "" {
				return configErr(m.source, "", "empty correction")
			}
		}

		m.corrections = corrs

		return nil
	}
}

// MatcherSuffixes replaces the default completion suffix and, if given, the known administrative suffixes.
// An empty defaultSuffix turns completion off.
func MatcherSuffixes(defaultSuffix string, known ...string) MatcherOpt {
	return func(m *Matcher) error {
		m.defaultSuffix = strings.TrimSpace(defaultSuffix)
		if known != nil {
			m.suffixes = nil
			for _, k := range known {
				m.suffixes = append(m.suffixes, strings.ToLower(strings.TrimSpace(k)))
			}
		}

		return nil
	}
}

// ***************** Matcher - Methods *****************

// Resolve maps a source label to canonical ids. A label naming a dropped entity resolves to nothing, without error.
func (m *Matcher) Resolve(label, state string) ([]Match, error) {
	key := nameKey{state: normalizeState(state), name: NormalizeName(label)}
	if cached, ok := m.cache[key]; ok {
		return slices.Clone(cached), nil
	}

	var (
		matches []Match
		e       error
	)
	if matches, e = m.resolve(label, state); e != nil {
		return nil, e
	}

	m.cache[key] = matches
	for _, mt := range matches {
		m.aliases = append(m.aliases, Alias{Label: label, State: state, ID: mt.ID, SplitGroup: mt.SplitGroup})
	}

	return slices.Clone(matches), nil
}

// ResolveCode maps a numeric code, possibly outdated, to its canonical id.
func (m *Matcher) ResolveCode(code int) ([]Match, error) {
	if id, ok := m.reg.Canonical(code); ok {
		return []Match{{ID: id}}, nil
	}

	if m.reg.Dropped(code) {
		return nil, nil
	}

	return nil, unresolved(m.source, FormatID(code), "")
}

// Aliases returns the alias table built so far.
func (m *Matcher) Aliases() []Alias {
	return slices.Clone(m.aliases)
}

func (m *Matcher) resolve(label, state string) ([]Match, error) {
	id, st, e := m.lookup(label, label, state)
	if e != nil {
		return nil, e
	}

	switch st {
	case hit:
		return []Match{{ID: id}}, nil
	case dropped:
		return nil, nil
	}

	corrected := m.correct(label)
	if comb, ok := m.combinator(corrected, nil); ok {
		m.nextGroup++

		var matches []Match
		if ex := m.split(label, corrected, state, comb, m.nextGroup, &matches); ex != nil {
			return nil, ex
		}

		return matches, nil
	}

	return m.part(label, corrected, state, 0)
}

func (m *Matcher) split(label, corrected, state string, comb Combinator, group int, matches *[]Match) error {
	parts := strings.Split(corrected, comb.Token)
	for ind, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			return unresolved(m.source, label, state)
		}

		if ind == len(parts)-1 && comb.TailSuffix != "" && !m.hasSuffix(p) {
			p = p + " " + strings.TrimSpace(comb.TailSuffix)
		}

		if inner, ok := m.combinator(p, &comb); ok {
			if e := m.split(label, p, state, inner, group, matches); e != nil {
				return e
			}

			continue
		}

		var (
			pm []Match
			e  error
		)
		if pm, e = m.part(label, p, state, group); e != nil {
			return e
		}

		for _, x := range pm {
			if slices.ContainsFunc(*matches, func(y Match) bool { return y.ID == x.ID }) {
				return ambiguous(m.source, label, state, []int{x.ID})
			}

			*matches = append(*matches, x)
		}
	}

	return nil
}

// part resolves one name: as given, then completed with the default suffix.
func (m *Matcher) part(label, name, state string, group int) ([]Match, error) {
	candidates := []string{name}
	if m.defaultSuffix != "" && !m.hasSuffix(name) {
		candidates = append(candidates, name+" "+m.defaultSuffix)
	}

	for _, c := range candidates {
		id, st, e := m.lookup(label, c, state)
		if e != nil {
			return nil, e
		}

		switch st {
		case hit:
			return []Match{{ID: id, SplitGroup: group}}, nil
		case dropped:
			return nil, nil
		}
	}

	return nil, unresolved(m.source, label, state)
}

type lookupStatus int

const (
	miss lookupStatus = iota
	hit
	dropped
)

// lookup finds name; errors name the source label it came from.
func (m *Matcher) lookup(label, name, state string) (int, lookupStatus, error) {
	if strings.TrimSpace(state) != "" {
		id, found := m.reg.find(state, name)
		switch {
		case !found:
			return 0, miss, nil
		case m.reg.dropped[id]:
			return id, dropped, nil
		}

		return id, hit, nil
	}

	all := m.reg.byBare[NormalizeName(name)]

	var live []int
	for _, id := range all {
		if !m.reg.dropped[id] {
			live = append(live, id)
		}
	}

	switch len(live) {
	case 0:
		if len(all) > 0 {
			return all[0], dropped, nil
		}

		return 0, miss, nil
	case 1:
		return live[0], hit, nil
	}

	slices.Sort(live)

	return 0, miss, ambiguous(m.source, label, state, live)
}

func (m *Matcher) correct(label string) string {
	for _, c := range m.corrections {
		label = strings.ReplaceAll(label, c.Old, c.New)
	}

	return strings.TrimSpace(label)
}

// combinator finds the first combinator present in label, other than skip.
func (m *Matcher) combinator(label string, skip *Combinator) (Combinator, bool) {
	for _, c := range m.combinators {
		if skip != nil && c.Token == skip.Token {
			continue
		}

		if strings.Contains(label, c.Token) {
			return c, true
		}
	}

	return Combinator{}, false
}

func (m *Matcher) hasSuffix(name string) bool {
	for _, w := range strings.Fields(NormalizeName(name)) {
		if slices.Contains(m.suffixes, w) {
			return true
		}
	}

	return false
}
