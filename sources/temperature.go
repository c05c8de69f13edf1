package sources

import (
	"fmt"
	"strings"

	county "github.com/khslmr/covid-county-corr"
	"gonum.org/v1/gonum/stat"
)

// TmaxRow is one line of the NOAA climdiv county maximum temperature file: the 11-character
// code (state, county, element, year) and twelve monthly values.
type TmaxRow struct {
	Code   string
	Months []string
}

// LocationRow is one line of the NOAA county time series export used for AK, DC and HI ("AK-013", value).
type LocationRow struct {
	LocationID string
	Value      string
}

// LocationPrefixes map the location-id prefix to the state code.
var LocationPrefixes = map[string]string{
	"AK-": "02",
	"DC-": "11",
	"HI-": "15",
}

// NOAAMissing is the climdiv missing-value marker.
const NOAAMissing = -99.9

// Column names of the temperature source. TmaxAlt only exists to fill TmaxAvg.
const (
	TmaxAvg = "tmax_avg"
	TmaxAlt = "tmax_avg_alt"
)

// Temperature averages the monthly maxima of year for the contiguous states and takes AK, DC and HI
// from the location export. Gaps are filled from the alternate column, then with the state mean.
func Temperature(reg *county.Registry, tmax []TmaxRow, locations []LocationRow, year string) (county.Source, *Report, error) {
	rep := newReport("temperature")

	m, e := newMatcher(reg, rep.Source)
	if e != nil {
		return county.Source{}, nil, e
	}

	var tbl *county.Table
	if tbl, e = county.NewTable(rep.Source, county.TableColumns(TmaxAvg, TmaxAlt)); e != nil {
		return county.Source{}, nil, e
	}

	for _, r := range tmax {
		code := strings.TrimSpace(r.Code)
		if len(code) < 11 || code[7:11] != year {
			continue
		}

		rep.Records++

		abbr, ok := NOAAStates[code[:2]]
		if !ok {
			rep.fail(fmt.Errorf("%s: unknown NOAA state code %s", rep.Source, code[:2]))
			continue
		}

		st, ok := reg.StateCode(abbr)
		if !ok {
			rep.skip(code)
			continue
		}

		id, ex := county.ParseID(fmt.Sprintf("%02d%s", st, code[2:5]))
		if ex != nil {
			rep.fail(fmt.Errorf("%s: %w", rep.Source, ex))
			continue
		}

		var xs []float64
		for _, s := range r.Months {
			if v := county.ParseValue(s); !v.IsMissing() && v.F > NOAAMissing+1e-6 {
				xs = append(xs, v.F)
			}
		}

		avg := county.Missing
		if len(xs) > 0 {
			avg = county.Known(stat.Mean(xs, nil))
		}

		if cid, ok := resolveCode(m, rep, id); ok {
			put(tbl, rep, cid, TmaxAvg, avg)
		}
	}

	for _, r := range locations {
		rep.Records++

		loc := strings.TrimSpace(r.LocationID)
		prefix, ok := "", false
		for p := range LocationPrefixes {
			if strings.HasPrefix(loc, p) {
				prefix, ok = p, true
				break
			}
		}

		if !ok {
			rep.skip(loc)
			continue
		}

		id, ex := county.ParseID(LocationPrefixes[prefix] + loc[len(prefix):])
		if ex != nil {
			rep.fail(fmt.Errorf("%s: %w", rep.Source, ex))
			continue
		}

		if cid, ok := resolveCode(m, rep, id); ok {
			put(tbl, rep, cid, TmaxAlt, county.ParseValue(r.Value))
		}
	}

	src := county.Source{
		Table: tbl,
		ColumnPolicies: map[string]county.Policy{
			TmaxAvg: county.Chain(county.Sibling(TmaxAlt), county.GroupMean(county.ColState)),
			TmaxAlt: county.None(),
		},
	}

	return src, rep, nil
}
