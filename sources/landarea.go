package sources

import (
	county "github.com/khslmr/covid-county-corr"
)

// LandAreaRow is one row of the census land area file (STCOU and LND110210D, square miles).
type LandAreaRow struct {
	Code string
	Area string
}

func LandArea(reg *county.Registry, rows []LandAreaRow) (county.Source, *Report, error) {
	rep := newReport("land_area")

	m, e := newMatcher(reg, rep.Source)
	if e != nil {
		return county.Source{}, nil, e
	}

	var tbl *county.Table
	if tbl, e = county.NewTable(rep.Source, county.TableColumns("land_area")); e != nil {
		return county.Source{}, nil, e
	}

	for _, r := range rows {
		rep.Records++

		code, ex := county.ParseID(r.Code)
		if ex != nil {
			rep.fail(ex)
			continue
		}

		if code%1000 == 0 {
			rep.skip(r.Code)
			continue
		}

		if id, ok := resolveCode(m, rep, code); ok {
			put(tbl, rep, id, "land_area", county.ParseValue(r.Area))
		}
	}

	return county.Source{Table: tbl, Policy: county.None()}, rep, nil
}
