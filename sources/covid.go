package sources

import (
	"fmt"
	"time"

	county "github.com/khslmr/covid-county-corr"
)

// CovidSeries is a USAFacts wide file: one row per county, one cumulative count per date.
type CovidSeries struct {
	Dates []time.Time
	Rows  []CovidRow
}

type CovidRow struct {
	CountyFIPS string
	County     string
	State      string
	Counts     []string
}

// Bin boundaries roughly match the three 2020 peaks; death bins trail case bins by about three weeks.
var (
	CaseBoundaries = []time.Time{
		time.Date(2020, 6, 7, 0, 0, 0, 0, time.UTC),
		time.Date(2020, 10, 1, 0, 0, 0, 0, time.UTC),
	}

	DeathBoundaries = []time.Time{
		time.Date(2020, 6, 30, 0, 0, 0, 0, time.UTC),
		time.Date(2020, 10, 22, 0, 0, 0, 0, time.UTC),
	}
)

// Covid bins the cumulative case and death series into per-period counts plus totals
// (cases_1..k, cases_tot, deaths_1..k, deaths_tot). The statewide unallocated rows (county code 0) are skipped.
func Covid(reg *county.Registry, cases, deaths CovidSeries, caseBounds, deathBounds []time.Time) (county.Source, *Report, error) {
	rep := newReport("covid")

	m, e := newMatcher(reg, rep.Source)
	if e != nil {
		return county.Source{}, nil, e
	}

	var caseBinner, deathBinner *county.Binner
	if caseBinner, e = county.NewBinner("cases", caseBounds...); e != nil {
		return county.Source{}, nil, e
	}

	if deathBinner, e = county.NewBinner("deaths", deathBounds...); e != nil {
		return county.Source{}, nil, e
	}

	var tbl *county.Table
	cols := append(caseBinner.Columns(), deathBinner.Columns()...)
	if tbl, e = county.NewTable(rep.Source, county.TableColumns(cols...)); e != nil {
		return county.Source{}, nil, e
	}

	for _, fam := range []struct {
		b  *county.Binner
		cs CovidSeries
	}{{caseBinner, cases}, {deathBinner, deaths}} {
		var (
			recs []county.Record
			ex   error
		)
		if recs, ex = fam.b.Records(points(m, rep, fam.cs)); ex != nil {
			return county.Source{}, nil, ex
		}

		for _, r := range recs {
			put(tbl, rep, r.ID, r.Field, r.Value)
		}
	}

	return county.Source{Table: tbl, Policy: county.None()}, rep, nil
}

// points converts a wide series to time points keyed by canonical id. Blank counts are not observations.
// Rows whose codes share a canonical id (a legacy code next to its current one) keep one row: the one
// reported under the current code, else the first; the others are record errors.
func points(m *county.Matcher, rep *Report, cs CovidSeries) []county.TimePoint {
	type placed struct {
		row  CovidRow
		code int
	}

	var ids []int
	kept := make(map[int]placed)
	for _, r := range cs.Rows {
		rep.Records++

		if len(r.Counts) != len(cs.Dates) {
			rep.fail(fmt.Errorf("%s: %s, %s: %d counts for %d dates", rep.Source, r.County, r.State, len(r.Counts), len(cs.Dates)))
			continue
		}

		code, ex := county.ParseID(r.CountyFIPS)
		if ex != nil {
			rep.fail(fmt.Errorf("%s: %w", rep.Source, ex))
			continue
		}

		if code == 0 {
			rep.skip(r.County + ", " + r.State)
			continue
		}

		id, ok := resolveCode(m, rep, code)
		if !ok {
			continue
		}

		prior, seen := kept[id]
		if !seen {
			ids = append(ids, id)
			kept[id] = placed{row: r, code: code}
			continue
		}

		dup := code
		if code == id && prior.code != id {
			dup = prior.code
			kept[id] = placed{row: r, code: code}
		}

		rep.fail(fmt.Errorf("%s: second series for %s under code %s, dropped", rep.Source, county.FormatID(id), county.FormatID(dup)))
	}

	var tps []county.TimePoint
	for _, id := range ids {
		for ind, s := range kept[id].row.Counts {
			if v := county.ParseValue(s); !v.IsMissing() {
				tps = append(tps, county.TimePoint{ID: id, Date: cs.Dates[ind], Cumulative: v.F})
			}
		}
	}

	return tps
}
