package sources

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	county "github.com/khslmr/covid-county-corr"
)

// *********** legislature ***********

// LegislatureRow is one state of the NCSL partisan composition table.
type LegislatureRow struct {
	State        string
	Legis        string
	Gov          string
	StateControl string
}

// PartyCodes encode control: Dem 1, Rep 0, and 2 for divided or nonpartisan (null) control.
var PartyCodes = map[string]float64{
	"dem":     1,
	"rep":     0,
	"divided": 2,
	"null":    2,
	"n/a":     2,
}

// Legislature gives every entity in a state that state's party control.
func Legislature(reg *county.Registry, rows []LegislatureRow) (county.Source, *Report, error) {
	rep := newReport("legislature")

	cols := []string{"dem_legis", "dem_gov", "dem_state"}
	tbl, e := county.NewTable(rep.Source, county.TableColumns(cols...))
	if e != nil {
		return county.Source{}, nil, e
	}

	members := stateMembers(reg)
	for _, r := range rows {
		rep.Records++

		abbr, ok := StateAbbr(r.State)
		if !ok {
			rep.skip(r.State)
			continue
		}

		group := members[abbr]
		if len(group) == 0 {
			rep.skip(r.State)
			continue
		}

		for ind, raw := range []string{r.Legis, r.Gov, r.StateControl} {
			code, ok := PartyCodes[strings.ToLower(strings.TrimSpace(raw))]
			if !ok {
				rep.fail(fmt.Errorf("%s: %s: unknown party %q for %s", rep.Source, abbr, raw, cols[ind]))
				continue
			}

			recs, ex := county.Broadcast(county.AggregateRecord{Group: group, Field: cols[ind], Value: county.Known(code)})
			if ex != nil {
				return county.Source{}, nil, ex
			}

			for _, rec := range recs {
				put(tbl, rep, rec.ID, rec.Field, rec.Value)
			}
		}
	}

	return county.Source{Table: tbl, Policy: county.None()}, rep, nil
}

func stateMembers(reg *county.Registry) map[string][]int {
	members := make(map[string][]int)
	for _, ent := range reg.Entities() {
		members[ent.State] = append(members[ent.State], ent.ID)
	}

	return members
}

// *********** election ***********

// Race is one race of the 2020 results feed. Only presidential general races ("xx-G-P-...") are used.
type Race struct {
	ID       string       `json:"race_id"`
	Counties []RaceCounty `json:"counties"`
}

type RaceCounty struct {
	FIPS   string   `json:"fips"`
	Margin *float64 `json:"margin2020"`
}

// AlaskaMargins are estimates for the five most populous Alaska boroughs, whose election districts
// do not line up with them.
var AlaskaMargins = map[string]float64{
	"02020": 3.13,
	"02090": -14.76,
	"02122": -28.41,
	"02170": -46.57,
	"02110": 41.76,
}

// Election reports the 2020 presidential margin. An override replaces the feed's value for its code.
// Entities the feed does not cover (the remaining Alaska boroughs) are filled with 0 by the returned policy.
func Election(reg *county.Registry, races []Race, overrides map[string]float64) (county.Source, *Report, error) {
	rep := newReport("election")

	m, e := newMatcher(reg, rep.Source)
	if e != nil {
		return county.Source{}, nil, e
	}

	var tbl *county.Table
	if tbl, e = county.NewTable(rep.Source, county.TableColumns("biden_margin_2020")); e != nil {
		return county.Source{}, nil, e
	}

	record := func(fips string, v county.Value) {
		rep.Records++

		code, ex := county.ParseID(fips)
		if ex != nil {
			rep.fail(fmt.Errorf("%s: %w", rep.Source, ex))
			return
		}

		if id, ok := resolveCode(m, rep, code); ok {
			put(tbl, rep, id, "biden_margin_2020", v)
		}
	}

	for _, race := range races {
		if len(race.ID) < 6 || race.ID[2:6] != "-G-P" {
			continue
		}

		for _, c := range race.Counties {
			if _, ok := overrides[c.FIPS]; ok {
				continue
			}

			v := county.Missing
			if c.Margin != nil {
				v = county.KnownOrMissing(*c.Margin)
			}

			record(c.FIPS, v)
		}
	}

	for _, fips := range slices.Sorted(maps.Keys(overrides)) {
		record(fips, county.Known(overrides[fips]))
	}

	return county.Source{Table: tbl, Policy: county.DefaultValue(0)}, rep, nil
}

// *********** regions ***********

// Regions labels every entity with the first rule covering its state. A state no rule covers is a record error.
func Regions(reg *county.Registry, rules []RegionRule) (county.Source, *Report, error) {
	rep := newReport("regions")

	tbl, e := county.NewTable(rep.Source, county.TableLabels("region"))
	if e != nil {
		return county.Source{}, nil, e
	}

	members := stateMembers(reg)
	for _, st := range reg.States() {
		rep.Records++

		region := ""
		for _, rule := range rules {
			if containsFold(rule.States, st) {
				region = rule.Region
				break
			}
		}

		if region == "" {
			rep.fail(fmt.Errorf("%s: state %s was not recognized", rep.Source, st))
			continue
		}

		for _, id := range members[st] {
			if ex := tbl.SetLabel(id, "region", region); ex != nil {
				return county.Source{}, nil, ex
			}
		}
	}

	return county.Source{Table: tbl}, rep, nil
}

func containsFold(xs []string, s string) bool {
	for _, x := range xs {
		if strings.EqualFold(x, s) {
			return true
		}
	}

	return false
}
