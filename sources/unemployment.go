package sources

import (
	"fmt"
	"slices"
	"strings"

	county "github.com/khslmr/covid-county-corr"
	"gonum.org/v1/gonum/stat"
)

// UnemploymentRow is one county-month of the BLS local area unemployment file.
type UnemploymentRow struct {
	StateFIPS  string
	CountyFIPS string
	Period     string
	Rate       string
}

// Periods picks the months averaged into unempl_rate and the two months whose difference is unempl_rate_chng.
type Periods struct {
	Mean []string `yaml:"mean"`
	From string   `yaml:"from"`
	To   string   `yaml:"to"`
}

// DefaultPeriods cover the pandemic through the latest (preliminary) month, and the year-on-year October change.
var DefaultPeriods = Periods{
	Mean: []string{"Mar-20", "Apr-20", "May-20", "Jun-20", "Jul-20", "Aug-20", "Sep-20", "Oct-20", "Nov-20(p)"},
	From: "Oct-19",
	To:   "Oct-20",
}

func (p Periods) Validate() error {
	if len(p.Mean) == 0 {
		return fmt.Errorf("no unemployment periods to average")
	}

	if p.From == "" || p.To == "" || p.From == p.To {
		return fmt.Errorf("invalid unemployment change periods %q -> %q", p.From, p.To)
	}

	return nil
}

// Unemployment averages the rate over p.Mean (missing months are skipped) and takes the change from p.From to p.To.
func Unemployment(reg *county.Registry, rows []UnemploymentRow, p Periods) (county.Source, *Report, error) {
	rep := newReport("unemployment")
	if e := p.Validate(); e != nil {
		return county.Source{}, nil, &county.ConfigError{Source: rep.Source, Reason: e.Error()}
	}

	m, e := newMatcher(reg, rep.Source)
	if e != nil {
		return county.Source{}, nil, e
	}

	var tbl *county.Table
	if tbl, e = county.NewTable(rep.Source, county.TableColumns("unempl_rate", "unempl_rate_chng")); e != nil {
		return county.Source{}, nil, e
	}

	type acc struct {
		rates    []float64
		from, to county.Value
	}

	var ids []int
	byID := make(map[int]*acc)
	for _, r := range rows {
		period := strings.TrimSpace(r.Period)
		if !slices.Contains(p.Mean, period) && period != p.From && period != p.To {
			continue
		}

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

		id, ok := resolveCode(m, rep, code)
		if !ok {
			continue
		}

		a := byID[id]
		if a == nil {
			a = &acc{}
			byID[id] = a
			ids = append(ids, id)
		}

		rate := county.ParseValue(r.Rate)
		if slices.Contains(p.Mean, period) && !rate.IsMissing() {
			a.rates = append(a.rates, rate.F)
		}

		switch period {
		case p.From:
			a.from = rate
		case p.To:
			a.to = rate
		}
	}

	for _, id := range ids {
		a := byID[id]

		mean := county.Missing
		if len(a.rates) > 0 {
			mean = county.Known(stat.Mean(a.rates, nil))
		}

		put(tbl, rep, id, "unempl_rate", mean)
		put(tbl, rep, id, "unempl_rate_chng", a.to.Sub(a.from))
	}

	return county.Source{Table: tbl, Policy: county.None()}, rep, nil
}
