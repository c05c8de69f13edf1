package county

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// MaxID is the largest 5-digit state+county code.
const MaxID = 99999

// Entity is one canonical geographic entity (a county or county equivalent). Identity is ID.
type Entity struct {
	ID     int
	State  string
	Name   string
	Weight float64
}

// RegistryRow is one row of the authoritative code table, already joined with its weight (population).
type RegistryRow struct {
	State  string
	Name   string
	Code   int
	Weight float64
}

// LegacyOverride is what an outdated code maps to. Empty State or Name keep the row's own.
type LegacyOverride struct {
	Code  int
	State string
	Name  string
}

// Overrides is keyed by the outdated code.
type Overrides map[int]LegacyOverride

type nameKey struct {
	state string
	name  string
}

// Registry is the authoritative entity set for a run. It is read-only after Build except for Drop.
type Registry struct {
	entities map[int]Entity
	byName   map[nameKey]int
	byBare   map[string][]int
	aliases  map[int]int
	dropped  map[int]bool
}

// ***************** Registry - Create *****************

// Build indexes rows after applying the legacy overrides, so nothing downstream ever sees an outdated code.
func Build(rows []RegistryRow, overrides Overrides) (*Registry, error) {
	r := &Registry{
		entities: make(map[int]Entity),
		byName:   make(map[nameKey]int),
		byBare:   make(map[string][]int),
		aliases:  make(map[int]int),
		dropped:  make(map[int]bool),
	}

	for old, ov := range overrides {
		if !validID(old) || !validID(ov.Code) {
			return nil, configErr("registry", "", "invalid legacy override %d -> %d", old, ov.Code)
		}

		if old != ov.Code {
			r.aliases[old] = ov.Code
		}
	}

	for _, row := range rows {
		ent := Entity{ID: row.Code, State: strings.TrimSpace(row.State), Name: strings.TrimSpace(row.Name), Weight: row.Weight}
		if ov, ok := overrides[row.Code]; ok {
			ent.ID = ov.Code
			if ov.State != "" {
				ent.State = ov.State
			}

			if ov.Name != "" {
				ent.Name = ov.Name
			}
		}

		if e := r.add(ent); e != nil {
			return nil, e
		}
	}

	return r, nil
}

func (r *Registry) add(ent Entity) error {
	if !validID(ent.ID) {
		return configErr("registry", "", "code %d out of range", ent.ID)
	}

	if ent.State == "" || ent.Name == "" {
		return configErr("registry", "", "code %s has no state or name", FormatID(ent.ID))
	}

	if math.IsNaN(ent.Weight) || ent.Weight < 0 {
		return configErr("registry", "", "code %s has invalid weight %v", FormatID(ent.ID), ent.Weight)
	}

	key := nameKey{state: normalizeState(ent.State), name: NormalizeName(ent.Name)}
	if prior, ok := r.entities[ent.ID]; ok {
		// the same entity listed under its legacy and current codes
		if id, ok := r.byName[key]; ok && id == prior.ID {
			return nil
		}

		return configErr("registry", "", "duplicate code %s (%s, %s)", FormatID(ent.ID), ent.State, ent.Name)
	}

	if id, ok := r.byName[key]; ok {
		return configErr("registry", "", "%s, %s is both %s and %s", ent.Name, ent.State, FormatID(id), FormatID(ent.ID))
	}

	r.entities[ent.ID] = ent
	r.byName[key] = ent.ID
	r.byBare[key.name] = append(r.byBare[key.name], ent.ID)

	return nil
}

// ***************** Registry - Methods *****************

// Canonical maps a code, possibly outdated, to the live canonical id.
func (r *Registry) Canonical(id int) (int, bool) {
	if cur, ok := r.aliases[id]; ok {
		id = cur
	}

	if _, ok := r.entities[id]; !ok || r.dropped[id] {
		return 0, false
	}

	return id, true
}

// Drop removes an entity for the rest of the run. Joins omit it silently afterward.
func (r *Registry) Drop(id int) error {
	if cur, ok := r.aliases[id]; ok {
		id = cur
	}

	if _, ok := r.entities[id]; !ok {
		return configErr("registry", "", "cannot drop unknown code %s", FormatID(id))
	}

	r.dropped[id] = true

	return nil
}

// Dropped reports whether id (or the code it aliases) was dropped.
func (r *Registry) Dropped(id int) bool {
	if cur, ok := r.aliases[id]; ok {
		id = cur
	}

	return r.dropped[id]
}

// Entities returns the live entities in ascending id order.
func (r *Registry) Entities() []Entity {
	var ents []Entity
	for id, ent := range r.entities {
		if !r.dropped[id] {
			ents = append(ents, ent)
		}
	}

	sort.Slice(ents, func(i, j int) bool { return ents[i].ID < ents[j].ID })

	return ents
}

// Len is the live entity count.
func (r *Registry) Len() int {
	return len(r.entities) - len(r.dropped)
}

func (r *Registry) Lookup(id int) (Entity, bool) {
	var ok bool
	if id, ok = r.Canonical(id); !ok {
		return Entity{}, false
	}

	return r.entities[id], true
}

func (r *Registry) LookupByName(state, name string) (Entity, bool) {
	id, found := r.find(state, name)
	if !found || r.dropped[id] {
		return Entity{}, false
	}

	return r.entities[id], true
}

// ByName returns the live entities called name in any state.
func (r *Registry) ByName(name string) []Entity {
	var ents []Entity
	for _, id := range r.byBare[NormalizeName(name)] {
		if !r.dropped[id] {
			ents = append(ents, r.entities[id])
		}
	}

	sort.Slice(ents, func(i, j int) bool { return ents[i].ID < ents[j].ID })

	return ents
}

// States lists the state codes of live entities, sorted.
func (r *Registry) States() []string {
	seen := make(map[string]bool)
	var states []string
	for _, ent := range r.Entities() {
		if !seen[ent.State] {
			seen[ent.State] = true
			states = append(states, ent.State)
		}
	}

	sort.Strings(states)

	return states
}

// StateCode is the 2-digit numeric prefix the state's entities share.
func (r *Registry) StateCode(state string) (int, bool) {
	state = normalizeState(state)
	for _, ent := range r.entities {
		if normalizeState(ent.State) == state {
			return ent.ID / 1000, true
		}
	}

	return 0, false
}

// Weights maps each live id to its weight.
func (r *Registry) Weights() map[int]float64 {
	w := make(map[int]float64, r.Len())
	for id, ent := range r.entities {
		if !r.dropped[id] {
			w[id] = ent.Weight
		}
	}

	return w
}

// find looks a name up without regard to drops.
func (r *Registry) find(state, name string) (int, bool) {
	id, ok := r.byName[nameKey{state: normalizeState(state), name: NormalizeName(name)}]
	return id, ok
}

// *********** names & codes ***********

// NormalizeName folds case, diacritics and runs of whitespace: "Doña  Ana County" -> "dona ana county".
func NormalizeName(name string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

	folded, _, e := transform.String(t, name)
	if e != nil {
		folded = name
	}

	return strings.Join(strings.Fields(strings.ToLower(folded)), " ")
}

func normalizeState(state string) string {
	return strings.ToUpper(strings.TrimSpace(state))
}

func validID(id int) bool {
	return id >= 0 && id <= MaxID
}

// FormatID renders the 5-digit code, e.g. 2158 -> "02158".
func FormatID(id int) string {
	return fmt.Sprintf("%05d", id)
}

// ParseID parses a code assembled from state and county digits. Quotes and blanks are ignored.
func ParseID(s string) (int, error) {
	s = strings.Trim(strings.TrimSpace(s), `"`)

	var (
		id int
		e  error
	)
	if id, e = strconv.Atoi(strings.TrimSpace(s)); e != nil {
		return 0, fmt.Errorf("invalid code %q: %w", s, e)
	}

	if !validID(id) {
		return 0, fmt.Errorf("code %q out of range", s)
	}

	return id, nil
}
