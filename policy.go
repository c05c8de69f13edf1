package county

import (
	"fmt"
	"slices"
	"strings"

	"gonum.org/v1/gonum/stat"
)

// Policy fills the missing cells of one joined column. Policies run only after every source is joined.
type Policy interface {
	Name() string
	Fill(u *Unified, col string) error
}

// None leaves missing values missing.
func None() Policy {
	return nonePolicy{}
}

// Constant fills missing values with x.
func Constant(x float64) Policy {
	return constPolicy{name: fmt.Sprintf("constant(%v)", x), x: x}
}

// DefaultValue fills with x where no value exists for a sub-entity (e.g. no contest held there).
// It behaves like Constant; the distinct name keeps the intent visible in reports.
func DefaultValue(x float64) Policy {
	return constPolicy{name: fmt.Sprintf("default_value(%v)", x), x: x}
}

// GroupMean fills with the mean of the non-missing values sharing the row's key attribute
// (state, name or a label column). A group with no values stays missing.
func GroupMean(key string) Policy {
	return groupMeanPolicy{key: key}
}

// Sibling fills from another column of the same row.
func Sibling(col string) Policy {
	return siblingPolicy{from: col}
}

// Chain applies policies in order; later ones see what earlier ones filled.
func Chain(policies ...Policy) Policy {
	return chainPolicy{policies: policies}
}

// *********** none ***********

type nonePolicy struct{}

func (nonePolicy) Name() string { return "none" }

func (nonePolicy) Fill(*Unified, string) error { return nil }

// *********** constant ***********

type constPolicy struct {
	name string
	x    float64
}

func (p constPolicy) Name() string { return p.name }

func (p constPolicy) Fill(u *Unified, col string) error {
	if !u.HasColumn(col) {
		return configErr("", col, "%s: column not found", p.name)
	}

	for _, r := range u.rows {
		if r.Value(col).IsMissing() {
			r.values[col] = Known(p.x)
		}
	}

	return nil
}

// *********** group mean ***********

type groupMeanPolicy struct {
	key string
}

func (p groupMeanPolicy) Name() string { return "group_mean(" + p.key + ")" }

func (p groupMeanPolicy) Fill(u *Unified, col string) error {
	if !u.HasColumn(col) {
		return configErr("", col, "%s: column not found", p.Name())
	}

	if p.key != ColState && p.key != ColName && p.key != ColFIPS && !slices.Contains(u.labels, p.key) {
		return configErr("", col, "%s: unknown group key", p.Name())
	}

	groups := make(map[string][]float64)
	for _, r := range u.rows {
		k, _ := r.Attr(p.key)
		if v := r.Value(col); !v.IsMissing() {
			groups[k] = append(groups[k], v.F)
		}
	}

	means := make(map[string]float64, len(groups))
	for k, xs := range groups {
		means[k] = stat.Mean(xs, nil)
	}

	for _, r := range u.rows {
		if !r.Value(col).IsMissing() {
			continue
		}

		k, _ := r.Attr(p.key)
		if m, ok := means[k]; ok && k != "" {
			r.values[col] = Known(m)
		}
	}

	return nil
}

// *********** sibling ***********

type siblingPolicy struct {
	from string
}

func (p siblingPolicy) Name() string { return "sibling(" + p.from + ")" }

func (p siblingPolicy) Fill(u *Unified, col string) error {
	if !u.HasColumn(col) || !u.HasColumn(p.from) {
		return configErr("", col, "%s: column not found", p.Name())
	}

	for _, r := range u.rows {
		if r.Value(col).IsMissing() {
			r.values[col] = r.Value(p.from)
		}
	}

	return nil
}

// *********** chain ***********

type chainPolicy struct {
	policies []Policy
}

func (p chainPolicy) Name() string {
	var names []string
	for _, x := range p.policies {
		names = append(names, x.Name())
	}

	return "chain(" + strings.Join(names, ",") + ")"
}

func (p chainPolicy) Fill(u *Unified, col string) error {
	for _, x := range p.policies {
		if x == nil {
			return configErr("", col, "nil policy in chain")
		}

		if e := x.Fill(u, col); e != nil {
			return e
		}
	}

	return nil
}
