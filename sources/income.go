package sources

import (
	"fmt"

	county "github.com/khslmr/covid-county-corr"
)

// IncomeRow is one row of the SAIPE income and poverty estimates.
type IncomeRow struct {
	StateFIPS    string
	CountyFIPS   string
	Poverty      string
	MedianIncome string
}

// Income reports the poverty count and median household income in thousands of dollars.
func Income(reg *county.Registry, rows []IncomeRow) (county.Source, *Report, error) {
	rep := newReport("income")

	m, e := newMatcher(reg, rep.Source)
	if e != nil {
		return county.Source{}, nil, e
	}

	var tbl *county.Table
	if tbl, e = county.NewTable(rep.Source, county.TableColumns("n_poverty", "med_income")); e != nil {
		return county.Source{}, nil, e
	}

	for _, r := range rows {
		rep.Records++

		code, aggregate, ex := stateCounty(r.StateFIPS, r.CountyFIPS)
		if ex != nil {
			rep.fail(fmt.Errorf("%s: %w", rep.Source, ex))
			continue
		}

		if aggregate {
			rep.skip(county.FormatID(code))
			continue
		}

		if id, ok := resolveCode(m, rep, code); ok {
			put(tbl, rep, id, "n_poverty", county.ParseValue(r.Poverty))
			put(tbl, rep, id, "med_income", county.ParseValue(r.MedianIncome).Div(county.Known(1e3)))
		}
	}

	return county.Source{Table: tbl, Policy: county.None()}, rep, nil
}
