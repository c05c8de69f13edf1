package sources

import (
	"errors"
	"fmt"
	"strings"

	county "github.com/khslmr/covid-county-corr"
)

// GDPRow is one row of the BEA county GDP table (CAGDP1). Values are in thousands of dollars.
type GDPRow struct {
	GeoFIPS  string
	GeoName  string
	LineCode string
	Y2018    string
	Y2019    string
}

// GDPLineCode selects current-dollar GDP (not real GDP or the quantity index).
const GDPLineCode = "3"

// GDPCorrections bring BEA spellings in line with the code table before merged labels are split.
var GDPCorrections = []county.Correction{
	{Old: "(Independent City)", New: "city"},
	{Old: "Fairfax City", New: "Fairfax"},
	{Old: "Kalawao", New: "Kalawao County"},
	{Old: "Petersburg Borough", New: "Petersburg Census Area"},
}

// GDPCombinators split BEA's merged rows: Virginia counties reported with their independent cities
// ("Albemarle + Charlottesville", "Southampton + Franklin") and lists ("Fairfax, Fairfax City + Falls Church").
var GDPCombinators = []county.Combinator{
	{Token: " + ", TailSuffix: "city"},
	{Token: ", ", TailSuffix: "city"},
}

// GDP apportions each row's 2019 GDP across the entities it covers by population and gives every one of them
// the row's 2018-2019 percent change. Rows that do not name a county in a state (national, state and regional
// totals) are listed in Skipped. A label that cannot be matched falls back to the row's own code.
func GDP(reg *county.Registry, rows []GDPRow) (county.Source, *Report, error) {
	rep := newReport("gdp")

	m, e := newMatcher(reg, rep.Source,
		county.MatcherCorrections(GDPCorrections...),
		county.MatcherCombinators(GDPCombinators...))
	if e != nil {
		return county.Source{}, nil, e
	}

	var tbl *county.Table
	if tbl, e = county.NewTable(rep.Source, county.TableColumns("gdp", "prcnt_chng_gdp")); e != nil {
		return county.Source{}, nil, e
	}

	weights := reg.Weights()
	for _, r := range rows {
		if strings.TrimSpace(r.LineCode) != GDPLineCode {
			continue
		}

		rep.Records++

		// "Albemarle + Charlottesville, VA*" -> ("Albemarle + Charlottesville", "VA")
		ind := strings.LastIndex(r.GeoName, ", ")
		if ind < 0 {
			rep.skip(r.GeoName)
			continue
		}

		label, state := r.GeoName[:ind], r.GeoName[ind+2:]
		if len(state) > 2 {
			state = state[:2]
		}

		if _, ok := StateAbbr(state); !ok {
			rep.skip(r.GeoName)
			continue
		}

		matches, ex := m.Resolve(label, state)
		if ex != nil {
			if matches, ex = gdpFallback(m, r.GeoFIPS, ex); ex != nil {
				rep.fail(ex)
				continue
			}
		}

		if len(matches) == 0 {
			continue
		}

		group := make([]int, len(matches))
		for i, mt := range matches {
			group[i] = mt.ID
		}

		y18, y19 := county.ParseValue(r.Y2018), county.ParseValue(r.Y2019)
		gdp := county.AggregateRecord{Group: group, Field: "gdp", Value: y19.Mul(county.Known(1e3))}
		chng := county.AggregateRecord{Group: group, Field: "prcnt_chng_gdp", Value: y19.Sub(y18).Div(y18)}

		shares, ex := county.Apportion(gdp, weights)
		if ex != nil {
			var ge *county.GroupError
			if errors.As(ex, &ge) {
				ge.Source = rep.Source
			}

			rep.fail(ex)
			continue
		}

		var rates []county.Record
		if rates, ex = county.Broadcast(chng); ex != nil {
			rep.fail(ex)
			continue
		}

		for _, rec := range append(shares, rates...) {
			put(tbl, rep, rec.ID, rec.Field, rec.Value)
		}
	}

	return county.Source{Table: tbl, Policy: county.None()}, rep, nil
}

// gdpFallback resolves the row by its own code when its label does not match; the label error is kept otherwise.
func gdpFallback(m *county.Matcher, geoFIPS string, labelErr error) ([]county.Match, error) {
	code, e := county.ParseID(geoFIPS)
	if e != nil {
		return nil, labelErr
	}

	matches, e := m.ResolveCode(code)
	if e != nil {
		return nil, fmt.Errorf("%w (code fallback: %v)", labelErr, e)
	}

	return matches, nil
}
