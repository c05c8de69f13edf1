package sources

import (
	"fmt"
	"slices"

	county "github.com/khslmr/covid-county-corr"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// PopulationRow is one (county, year, age group) row of the census population estimates.
type PopulationRow struct {
	State    string
	County   string
	Year     int
	AgeGroup int

	Total    float64
	White    float64
	Black    float64
	Asian    float64
	Hispanic float64
}

// PopulationYear selects the July 2020 estimate in the census year coding.
const PopulationYear = 12

// AgeGroupMidpoints maps census age groups to representative ages. Group 0 is the all-ages total.
var AgeGroupMidpoints = map[int]float64{
	0: 0, 1: 2.5, 2: 7.5, 3: 12.5, 4: 17.5, 5: 22.5, 6: 27.5, 7: 32.5, 8: 37.5, 9: 42.5,
	10: 47.5, 11: 52.5, 12: 57.5, 13: 62.5, 14: 67.5, 15: 72.5, 16: 77.5, 17: 82.5, 18: 90,
}

// PopulationCorrections are census spellings that differ from the code table.
var PopulationCorrections = []county.Correction{
	{Old: "LaSalle Parish", New: "La Salle Parish"},
	{Old: "Doña Ana County", New: "Dona Ana County"},
	{Old: "Petersburg Borough", New: "Petersburg Census Area"},
}

// ColPopulation is the registry weight column.
const ColPopulation = "popl"

var (
	popGroups  = []string{"white", "black", "asian", "hispanic"}
	popColumns = []string{ColPopulation, "prcnt_white", "prcnt_black", "prcnt_asian", "prcnt_hispanic"}
	ageColumns = []string{"avg_age", "avg_age_white", "avg_age_black", "avg_age_asian", "avg_age_hispanic"}
)

type popKey struct {
	state  string
	county string
}

type popAcc struct {
	ages   []float64
	counts [5][]float64
}

// Population sums the age groups of year PopulationYear per county: total population, each group's share,
// and population-weighted average ages overall and per group.
func Population(reg *county.Registry, rows []PopulationRow) (county.Source, *Report, error) {
	rep := newReport("population")

	m, e := newMatcher(reg, rep.Source, county.MatcherCorrections(PopulationCorrections...))
	if e != nil {
		return county.Source{}, nil, e
	}

	var (
		order []popKey
		tbl   *county.Table
	)
	acc := make(map[popKey]*popAcc)
	for _, r := range rows {
		if r.Year != PopulationYear || r.AgeGroup <= 0 {
			continue
		}

		age, ok := AgeGroupMidpoints[r.AgeGroup]
		if !ok {
			rep.fail(fmt.Errorf("%s: unknown age group %d for %s", rep.Source, r.AgeGroup, r.County))
			continue
		}

		k := popKey{state: r.State, county: r.County}
		a, ok := acc[k]
		if !ok {
			a = &popAcc{}
			acc[k] = a
			order = append(order, k)
		}

		a.ages = append(a.ages, age)
		for ind, x := range []float64{r.Total, r.White, r.Black, r.Asian, r.Hispanic} {
			a.counts[ind] = append(a.counts[ind], x)
		}
	}

	if tbl, e = county.NewTable(rep.Source, county.TableColumns(slices.Concat(popColumns, ageColumns)...)); e != nil {
		return county.Source{}, nil, e
	}

	for _, k := range order {
		rep.Records++

		abbr, ok := StateAbbr(k.state)
		if !ok {
			rep.fail(fmt.Errorf("%s: unknown state %q", rep.Source, k.state))
			continue
		}

		matches, ex := m.Resolve(k.county, abbr)
		if ex != nil {
			rep.fail(ex)
			continue
		}

		// a dropped entity resolves to nothing; a split label is not expected here
		if len(matches) != 1 {
			continue
		}

		id := matches[0].ID
		a := acc[k]
		total := floats.Sum(a.counts[0])
		put(tbl, rep, id, ColPopulation, county.Known(total))
		for ind, g := range popGroups {
			put(tbl, rep, id, "prcnt_"+g, county.KnownOrMissing(floats.Sum(a.counts[ind+1])/total))
		}

		for ind, col := range ageColumns {
			put(tbl, rep, id, col, weightedMean(a.ages, a.counts[ind]))
		}
	}

	return county.Source{Table: tbl, Policy: county.None()}, rep, nil
}

func weightedMean(xs, w []float64) county.Value {
	if floats.Sum(w) == 0 {
		return county.Missing
	}

	return county.KnownOrMissing(stat.Mean(xs, w))
}
