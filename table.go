package county

import (
	"slices"
	"sort"
)

// Table is one source's normalized output: canonical id -> column -> value. Label columns hold text
// attributes (e.g. a region name) that group-mean policies can key on.
type Table struct {
	name string

	columns []string
	labels  []string

	values map[int]map[string]Value
	text   map[int]map[string]string
}

type TableOpt func(t *Table) error

func NewTable(name string, opts ...TableOpt) (*Table, error) {
	if name == "" {
		return nil, configErr("", "", "table has no name")
	}

	t := &Table{
		name:   name,
		values: make(map[int]map[string]Value),
		text:   make(map[int]map[string]string),
	}

	for _, opt := range opts {
		if e := opt(t); e != nil {
			return nil, e
		}
	}

	return t, nil
}

// FromRecords builds a table from per-entity records. Two records for the same (id, field) are an error;
// aggregate them explicitly with SumRecords first if that is intended.
func FromRecords(name string, recs []Record, opts ...TableOpt) (*Table, error) {
	var (
		t *Table
		e error
	)
	if t, e = NewTable(name, opts...); e != nil {
		return nil, e
	}

	if e := t.Add(recs...); e != nil {
		return nil, e
	}

	return t, nil
}

// SumRecords collapses records sharing (id, field) into one by summing. Missing values are skipped;
// a key with only missing values stays missing.
func SumRecords(recs []Record) []Record {
	type key struct {
		id    int
		field string
	}

	var order []key
	sums := make(map[key]Value)
	for _, r := range recs {
		k := key{r.ID, r.Field}
		cur, ok := sums[k]
		if !ok {
			order = append(order, k)
		}

		switch {
		case !ok || cur.IsMissing():
			sums[k] = r.Value
		case !r.Value.IsMissing():
			sums[k] = cur.Add(r.Value)
		}
	}

	out := make([]Record, len(order))
	for ind, k := range order {
		out[ind] = Record{ID: k.id, Field: k.field, Value: sums[k]}
	}

	return out
}

// ***************** Table - Options *****************

// TableColumns declares value columns up front, fixing their order.
func TableColumns(cols ...string) TableOpt {
	return func(t *Table) error {
		for _, c := range cols {
			if e := t.declare(c, false); e != nil {
				return e
			}
		}

		return nil
	}
}

// TableLabels declares text columns.
func TableLabels(cols ...string) TableOpt {
	return func(t *Table) error {
		for _, c := range cols {
			if e := t.declare(c, true); e != nil {
				return e
			}
		}

		return nil
	}
}

// ***************** Table - Methods *****************

func (t *Table) Name() string {
	return t.name
}

// Add inserts records, rejecting any (id, field) already present.
func (t *Table) Add(recs ...Record) error {
	for _, r := range recs {
		if _, ok := t.Get(r.ID, r.Field); ok {
			return configErr(t.name, r.Field, "duplicate record for %s", FormatID(r.ID))
		}

		if e := t.Set(r.ID, r.Field, r.Value); e != nil {
			return e
		}
	}

	return nil
}

// Set stores a value, declaring the column on first use.
func (t *Table) Set(id int, col string, v Value) error {
	if slices.Contains(t.labels, col) {
		return configErr(t.name, col, "column is a label column")
	}

	if !slices.Contains(t.columns, col) {
		if e := t.declare(col, false); e != nil {
			return e
		}
	}

	if t.values[id] == nil {
		t.values[id] = make(map[string]Value)
	}

	t.values[id][col] = v

	return nil
}

func (t *Table) SetLabel(id int, col, label string) error {
	if slices.Contains(t.columns, col) {
		return configErr(t.name, col, "column is a value column")
	}

	if !slices.Contains(t.labels, col) {
		if e := t.declare(col, true); e != nil {
			return e
		}
	}

	if t.text[id] == nil {
		t.text[id] = make(map[string]string)
	}

	t.text[id][col] = label

	return nil
}

func (t *Table) Get(id int, col string) (Value, bool) {
	v, ok := t.values[id][col]
	return v, ok
}

func (t *Table) Label(id int, col string) (string, bool) {
	s, ok := t.text[id][col]
	return s, ok
}

// Rename renames a column. It is how merge order pre-empts collisions.
func (t *Table) Rename(oldName, newName string) error {
	if e := validName(newName); e != nil {
		return configErr(t.name, newName, "%v", e)
	}

	if slices.Contains(t.columns, newName) || slices.Contains(t.labels, newName) {
		return configErr(t.name, newName, "column already exists, cannot rename %s", oldName)
	}

	switch {
	case slices.Contains(t.columns, oldName):
		t.columns[slices.Index(t.columns, oldName)] = newName
		for _, vals := range t.values {
			if v, ok := vals[oldName]; ok {
				vals[newName] = v
				delete(vals, oldName)
			}
		}
	case slices.Contains(t.labels, oldName):
		t.labels[slices.Index(t.labels, oldName)] = newName
		for _, txt := range t.text {
			if s, ok := txt[oldName]; ok {
				txt[newName] = s
				delete(txt, oldName)
			}
		}
	default:
		return configErr(t.name, oldName, "column not found")
	}

	return nil
}

func (t *Table) Columns() []string {
	return slices.Clone(t.columns)
}

func (t *Table) LabelColumns() []string {
	return slices.Clone(t.labels)
}

// IDs lists every id with at least one value or label, ascending.
func (t *Table) IDs() []int {
	seen := make(map[int]bool)
	var ids []int
	for id := range t.values {
		seen[id] = true
		ids = append(ids, id)
	}

	for id := range t.text {
		if !seen[id] {
			ids = append(ids, id)
		}
	}

	sort.Ints(ids)

	return ids
}

func (t *Table) Len() int {
	return len(t.IDs())
}

func (t *Table) declare(col string, label bool) error {
	if e := validName(col); e != nil {
		return configErr(t.name, col, "%v", e)
	}

	if slices.Contains(t.columns, col) || slices.Contains(t.labels, col) {
		return configErr(t.name, col, "column declared twice")
	}

	if label {
		t.labels = append(t.labels, col)
		return nil
	}

	t.columns = append(t.columns, col)

	return nil
}
