package county

import (
	"slices"

	"go.uber.org/zap"
)

// Source is one processed table and the fallback rules for its columns. ColumnPolicies override Policy
// column by column. A nil policy is only allowed for columns that end up with no missing values.
type Source struct {
	Table          *Table
	Policy         Policy
	ColumnPolicies map[string]Policy
}

func (s Source) policy(col string) Policy {
	if p, ok := s.ColumnPolicies[col]; ok {
		return p
	}

	return s.Policy
}

type mergeConfig struct {
	logger *zap.Logger
}

type MergeOpt func(c *mergeConfig)

func MergeLogger(logger *zap.Logger) MergeOpt {
	return func(c *mergeConfig) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// Merge left-joins each source onto the live registry, in order, then applies the fallback policies.
//   - a registry entity absent from a source gets Missing for that source's columns
//   - source rows that match no live entity are dropped and logged; rows for dropped entities are omitted silently
//   - outdated codes are joined through their aliases; a row under the current code wins over its legacy twin
//   - a column name used twice (or a built-in name) is a ConfigError, as is a nil policy over missing data
func Merge(reg *Registry, sources []Source, opts ...MergeOpt) (*Unified, error) {
	cfg := &mergeConfig{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(cfg)
	}

	if reg == nil {
		return nil, configErr("", "", "nil registry to Merge")
	}

	u := newUnified(reg)

	var names []string
	for _, src := range sources {
		if src.Table == nil {
			return nil, configErr("", "", "source with nil table")
		}

		name := src.Table.Name()
		if slices.Contains(names, name) {
			return nil, configErr(name, "", "source listed twice")
		}

		names = append(names, name)

		if e := join(u, reg, src, cfg.logger); e != nil {
			return nil, e
		}
	}

	for _, src := range sources {
		for _, col := range src.Table.Columns() {
			p := src.policy(col)
			if p == nil {
				if u.HasMissing(col) {
					return nil, configErr(src.Table.Name(), col, "missing values and no fallback policy")
				}

				continue
			}

			if e := p.Fill(u, col); e != nil {
				return nil, e
			}
		}
	}

	return u, nil
}

func join(u *Unified, reg *Registry, src Source, logger *zap.Logger) error {
	t := src.Table
	name := t.Name()

	for _, col := range t.Columns() {
		if u.taken(col) {
			return configErr(name, col, "column collides with %s", u.familyOf(col))
		}
	}

	for _, col := range t.LabelColumns() {
		if u.taken(col) {
			return configErr(name, col, "column collides with %s", u.familyOf(col))
		}
	}

	for col := range src.ColumnPolicies {
		if !slices.Contains(t.Columns(), col) {
			return configErr(name, col, "policy for a column the source does not have")
		}
	}

	for _, col := range t.Columns() {
		u.addColumn(col, name, false)
	}

	for _, col := range t.LabelColumns() {
		u.addColumn(col, name, true)
	}

	log := logger.With(zap.String("source", name))
	assigned := make(map[int]int)
	for _, id := range t.IDs() {
		cid, ok := reg.Canonical(id)
		if !ok {
			if reg.Dropped(id) {
				log.Debug("row for excluded entity omitted", zap.String("fips", FormatID(id)))
				continue
			}

			log.Warn("row matches no registry entity, dropped", zap.String("fips", FormatID(id)))
			u.dropped[name] = append(u.dropped[name], id)

			continue
		}

		if prior, ok := assigned[cid]; ok {
			// ids come ascending, so a legacy twin may arrive after the current code or before it
			if prior == cid || id != cid {
				log.Warn("legacy code duplicates current code, dropped",
					zap.String("fips", FormatID(id)), zap.String("canonical", FormatID(cid)))
				u.dropped[name] = append(u.dropped[name], id)

				continue
			}

			log.Warn("legacy code duplicates current code, dropped",
				zap.String("fips", FormatID(prior)), zap.String("canonical", FormatID(cid)))
			u.dropped[name] = append(u.dropped[name], prior)
		}

		assigned[cid] = id
		row := u.rows[u.index[cid]]
		for _, col := range t.Columns() {
			if v, ok := t.Get(id, col); ok {
				row.values[col] = v
			} else {
				delete(row.values, col)
			}
		}

		for _, col := range t.LabelColumns() {
			if s, ok := t.Label(id, col); ok {
				row.labels[col] = s
			} else {
				delete(row.labels, col)
			}
		}
	}

	if n := len(u.dropped[name]); n > 0 {
		log.Info("source rows dropped", zap.Int("count", n))
	}

	return nil
}

func (u *Unified) familyOf(col string) string {
	if slices.Contains(builtins, col) {
		return "built-in column"
	}

	return "source " + u.family[col]
}
