package sources

import (
	"fmt"
	"strings"

	county "github.com/khslmr/covid-county-corr"
)

// EducationRow is one county of ACS table S1501 (educational attainment), estimates only.
type EducationRow struct {
	GeoID string

	Pop18To24        string // S1501_C01_001E
	HighSchool18To24 string // S1501_C01_003E
	Bachelor18To24   string // S1501_C01_005E
	Pop25Plus        string // S1501_C01_006E
	HighSchool25Plus string // S1501_C01_009E
	Bachelor25Plus   string // S1501_C01_015E
}

// Education computes high school and bachelor's graduation rates over the population 18 and over.
func Education(reg *county.Registry, rows []EducationRow) (county.Source, *Report, error) {
	rep := newReport("education")

	m, e := newMatcher(reg, rep.Source)
	if e != nil {
		return county.Source{}, nil, e
	}

	var tbl *county.Table
	if tbl, e = county.NewTable(rep.Source, county.TableColumns("high_sch_grad_rate", "college_grad_rate")); e != nil {
		return county.Source{}, nil, e
	}

	for _, r := range rows {
		rep.Records++

		// GEO_ID looks like 0500000US01001
		geo := r.GeoID
		if ind := strings.LastIndex(geo, "US"); ind >= 0 {
			geo = geo[ind+2:]
		}

		code, ex := county.ParseID(geo)
		if ex != nil {
			rep.fail(fmt.Errorf("%s: %w", rep.Source, ex))
			continue
		}

		id, ok := resolveCode(m, rep, code)
		if !ok {
			continue
		}

		adults := county.ParseValue(r.Pop18To24).Add(county.ParseValue(r.Pop25Plus))
		hs := county.ParseValue(r.HighSchool18To24).Add(county.ParseValue(r.HighSchool25Plus))
		ba := county.ParseValue(r.Bachelor18To24).Add(county.ParseValue(r.Bachelor25Plus))

		put(tbl, rep, id, "high_sch_grad_rate", hs.Div(adults))
		put(tbl, rep, id, "college_grad_rate", ba.Div(adults))
	}

	return county.Source{Table: tbl, Policy: county.None()}, rep, nil
}
