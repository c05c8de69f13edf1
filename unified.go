package county

import (
	"fmt"
	"maps"
	"slices"
)

// Built-in attribute columns every unified row carries.
const (
	ColFIPS   = "fips"
	ColState  = "state"
	ColName   = "name"
	ColWeight = "weight"
)

var builtins = []string{ColFIPS, ColState, ColName, ColWeight}

// Row is one entity of the unified table.
type Row struct {
	Entity

	values map[string]Value
	labels map[string]string
}

// Value returns Missing for a column the row has no value for.
func (r Row) Value(col string) Value {
	if v, ok := r.values[col]; ok {
		return v
	}

	return Missing
}

func (r Row) Label(col string) string {
	return r.labels[col]
}

// Attr returns a text attribute: state, name or any label column.
func (r Row) Attr(key string) (string, bool) {
	switch key {
	case ColState:
		return r.State, true
	case ColName:
		return r.Name, true
	case ColFIPS:
		return FormatID(r.ID), true
	}

	s, ok := r.labels[key]

	return s, ok
}

// Unified is the merged, canonical-key-indexed table: one row per live registry entity.
type Unified struct {
	columns []string
	labels  []string
	family  map[string]string

	rows  []*Row
	index map[int]int

	dropped map[string][]int
}

func newUnified(reg *Registry) *Unified {
	u := &Unified{
		family:  make(map[string]string),
		index:   make(map[int]int),
		dropped: make(map[string][]int),
	}

	for ind, ent := range reg.Entities() {
		u.rows = append(u.rows, &Row{Entity: ent, values: make(map[string]Value), labels: make(map[string]string)})
		u.index[ent.ID] = ind
	}

	return u
}

// ***************** Unified - Methods *****************

func (u *Unified) Len() int {
	return len(u.rows)
}

// Columns lists value columns: joined ones in merge order, then derived ones.
func (u *Unified) Columns() []string {
	return slices.Clone(u.columns)
}

// Header is the layout a saved table has: the built-in columns, the label columns, then the value columns.
func (u *Unified) Header() []string {
	return slices.Concat(builtins, u.labels, u.columns)
}

func (u *Unified) LabelColumns() []string {
	return slices.Clone(u.labels)
}

// Family is the source a column came from; derived columns report "derived".
func (u *Unified) Family(col string) string {
	return u.family[col]
}

func (u *Unified) IDs() []int {
	ids := make([]int, len(u.rows))
	for ind, r := range u.rows {
		ids[ind] = r.ID
	}

	return ids
}

// Rows returns copies of the rows in ascending id order.
func (u *Unified) Rows() []Row {
	out := make([]Row, len(u.rows))
	for ind, r := range u.rows {
		out[ind] = r.clone()
	}

	return out
}

func (u *Unified) Row(id int) (Row, bool) {
	ind, ok := u.index[id]
	if !ok {
		return Row{}, false
	}

	return u.rows[ind].clone(), true
}

func (u *Unified) Value(id int, col string) (Value, error) {
	if !u.HasColumn(col) {
		return Missing, fmt.Errorf("column %s not found", col)
	}

	ind, ok := u.index[id]
	if !ok {
		return Missing, fmt.Errorf("code %s not in table", FormatID(id))
	}

	return u.rows[ind].Value(col), nil
}

func (u *Unified) Label(id int, col string) (string, error) {
	if !slices.Contains(u.labels, col) {
		return "", fmt.Errorf("label column %s not found", col)
	}

	ind, ok := u.index[id]
	if !ok {
		return "", fmt.Errorf("code %s not in table", FormatID(id))
	}

	return u.rows[ind].Label(col), nil
}

// Column returns a value column in row order.
func (u *Unified) Column(col string) ([]Value, error) {
	if !u.HasColumn(col) {
		return nil, fmt.Errorf("column %s not found", col)
	}

	vals := make([]Value, len(u.rows))
	for ind, r := range u.rows {
		vals[ind] = r.Value(col)
	}

	return vals, nil
}

func (u *Unified) HasColumn(col string) bool {
	return slices.Contains(u.columns, col)
}

// HasMissing reports whether any row lacks a value for col.
func (u *Unified) HasMissing(col string) bool {
	for _, r := range u.rows {
		if r.Value(col).IsMissing() {
			return true
		}
	}

	return false
}

// Set overwrites one cell. Fallback policies fill through it.
func (u *Unified) Set(id int, col string, v Value) error {
	if !u.HasColumn(col) {
		return fmt.Errorf("column %s not found", col)
	}

	ind, ok := u.index[id]
	if !ok {
		return fmt.Errorf("code %s not in table", FormatID(id))
	}

	u.rows[ind].values[col] = v

	return nil
}

// Dropped lists the ids a source reported that matched no live entity.
func (u *Unified) Dropped(source string) []int {
	return slices.Clone(u.dropped[source])
}

// Derive appends a column computed from each (fully joined) row.
func (u *Unified) Derive(name string, fn DeriveFunc) error {
	if e := validName(name); e != nil {
		return configErr("derived", name, "%v", e)
	}

	if u.taken(name) {
		return configErr("derived", name, "column already exists")
	}

	if fn == nil {
		return configErr("derived", name, "nil derive function")
	}

	vals := make([]Value, len(u.rows))
	for ind, r := range u.rows {
		vals[ind] = fn(*r)
	}

	u.addColumn(name, "derived", false)
	for ind, r := range u.rows {
		r.values[name] = vals[ind]
	}

	return nil
}

func (u *Unified) DropColumns(cols ...string) error {
	for _, col := range cols {
		switch {
		case slices.Contains(u.columns, col):
			u.columns = slices.DeleteFunc(u.columns, func(c string) bool { return c == col })
			for _, r := range u.rows {
				delete(r.values, col)
			}
		case slices.Contains(u.labels, col):
			u.labels = slices.DeleteFunc(u.labels, func(c string) bool { return c == col })
			for _, r := range u.rows {
				delete(r.labels, col)
			}
		default:
			return fmt.Errorf("column %s not found", col)
		}

		delete(u.family, col)
	}

	return nil
}

func (u *Unified) taken(name string) bool {
	return slices.Contains(builtins, name) || slices.Contains(u.columns, name) || slices.Contains(u.labels, name)
}

func (u *Unified) addColumn(name, family string, label bool) {
	if label {
		u.labels = append(u.labels, name)
	} else {
		u.columns = append(u.columns, name)
	}

	u.family[name] = family
}

func (r *Row) clone() Row {
	return Row{Entity: r.Entity, values: maps.Clone(r.values), labels: maps.Clone(r.labels)}
}
