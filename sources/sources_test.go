package sources

import (
	"errors"
	"testing"
	"time"

	county "github.com/khslmr/covid-county-corr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testFIPS() []FIPSRow {
	return []FIPSRow{
		{"AK", "02", "020", "Anchorage Municipality"},
		{"AK", "02", "270", "Wade Hampton Census Area"},
		{"HI", "15", "005", "Kalawao County"},
		{"HI", "15", "009", "Maui County"},
		{"LA", "22", "059", "La Salle Parish"},
		{"NM", "35", "013", "Dona Ana County"},
		{"TX", "48", "423", "Smith County"},
		{"TX", "48", "453", "Travis County"},
		{"VA", "51", "003", "Albemarle County"},
		{"VA", "51", "059", "Fairfax County"},
		{"VA", "51", "540", "Charlottesville city"},
		{"VA", "51", "600", "Fairfax city"},
		{"VA", "51", "610", "Falls Church city"},
	}
}

var testPopl = map[int]float64{
	2020: 290000, 2158: 8000, 15005: 80, 15009: 167000, 22059: 15000, 35013: 218000,
	48423: 232000, 48453: 1290000, 51003: 100000, 51059: 1150000, 51540: 50000, 51600: 24000, 51610: 15000,
}

// testRegistry is weighted by testPopl, with the excluded entities dropped.
func testRegistry(t *testing.T) *county.Registry {
	rows, e := FIPS(testFIPS())
	require.Nil(t, e)

	tbl, e := county.NewTable("population")
	require.Nil(t, e)
	for id, p := range testPopl {
		require.Nil(t, tbl.Set(id, ColPopulation, county.Known(p)))
	}

	reg, e := county.Build(Weighted(rows, LegacyOverrides, tbl, ColPopulation), LegacyOverrides)
	require.Nil(t, e)

	for _, id := range DroppedEntities {
		require.Nil(t, reg.Drop(id))
	}

	return reg
}

func value(t *testing.T, src county.Source, id int, col string) county.Value {
	v, ok := src.Table.Get(id, col)
	require.True(t, ok, "no %s for %s", col, county.FormatID(id))

	return v
}

func TestFIPS(t *testing.T) {
	rows, e := FIPS(testFIPS())
	require.Nil(t, e)
	assert.Len(t, rows, 13)
	assert.Equal(t, county.RegistryRow{State: "AK", Name: "Anchorage Municipality", Code: 2020}, rows[0])

	_, e = FIPS([]FIPSRow{{"XX", "02", "020", "Somewhere"}})
	assert.NotNil(t, e)

	_, e = FIPS([]FIPSRow{{"AK", "0x", "020", "Somewhere"}})
	assert.NotNil(t, e)

	reg := testRegistry(t)
	ent, ok := reg.Lookup(2270)
	require.True(t, ok)
	assert.Equal(t, 2158, ent.ID)
	assert.Equal(t, 8000.0, ent.Weight)
	assert.Equal(t, 12, reg.Len())
}

func TestPopulation(t *testing.T) {
	rows, _ := FIPS(testFIPS())
	reg, e := county.Build(rows, LegacyOverrides)
	require.Nil(t, e)

	pop := []PopulationRow{
		{State: "Texas", County: "Travis County", Year: 12, AgeGroup: 0, Total: 999},
		{State: "Texas", County: "Travis County", Year: 11, AgeGroup: 1, Total: 999},
		{State: "Texas", County: "Travis County", Year: 12, AgeGroup: 1, Total: 100, White: 50, Black: 20, Asian: 10, Hispanic: 40},
		{State: "Texas", County: "Travis County", Year: 12, AgeGroup: 18, Total: 300, White: 150, Black: 0, Asian: 30, Hispanic: 20},
		{State: "New Mexico", County: "Doña Ana County", Year: 12, AgeGroup: 5, Total: 10},
		{State: "Louisiana", County: "LaSalle Parish", Year: 12, AgeGroup: 5, Total: 20},
		{State: "Alaska", County: "Kusilvak Census Area", Year: 12, AgeGroup: 5, Total: 30},
		{State: "Texas", County: "Nowhere County", Year: 12, AgeGroup: 5, Total: 30},
	}

	src, rep, e := Population(reg, pop)
	require.Nil(t, e)

	assert.Equal(t, 5, rep.Records)
	require.Len(t, rep.Errors, 1)
	assert.True(t, errors.Is(rep.Err(), county.ErrUnresolvedEntity))

	assert.Equal(t, county.Known(400), value(t, src, 48453, "popl"))
	assert.InDelta(t, 0.5, value(t, src, 48453, "prcnt_white").F, 1e-12)
	assert.InDelta(t, 0.05, value(t, src, 48453, "prcnt_black").F, 1e-12)
	assert.InDelta(t, (2.5*100+90*300)/400, value(t, src, 48453, "avg_age").F, 1e-12)
	assert.InDelta(t, 2.5, value(t, src, 48453, "avg_age_black").F, 1e-12)
	assert.InDelta(t, (2.5*40+90*20)/60.0, value(t, src, 48453, "avg_age_hispanic").F, 1e-12)

	assert.Equal(t, county.Known(10), value(t, src, 35013, "popl"))
	assert.Equal(t, county.Known(20), value(t, src, 22059, "popl"))
	assert.Equal(t, county.Known(30), value(t, src, 2158, "popl"))

	// no members of a group: the group's average age is missing
	assert.True(t, value(t, src, 35013, "avg_age_white").IsMissing())
}

func TestLandArea(t *testing.T) {
	reg := testRegistry(t)

	src, rep, e := LandArea(reg, []LandAreaRow{
		{Code: "00000", Area: "3531905"},
		{Code: "02270", Area: "17081"},
		{Code: "48453", Area: "990"},
		{Code: "15005", Area: "12"},
		{Code: "99001", Area: "1"},
	})
	require.Nil(t, e)

	assert.Equal(t, county.Known(17081), value(t, src, 2158, "land_area"))
	assert.Equal(t, county.Known(990), value(t, src, 48453, "land_area"))
	assert.Equal(t, []string{"00000"}, rep.Skipped)
	assert.Len(t, rep.Errors, 1)
	assert.Equal(t, 2, src.Table.Len())
}

func TestUnemployment(t *testing.T) {
	reg := testRegistry(t)

	var rows []UnemploymentRow
	for ind, p := range DefaultPeriods.Mean {
		rows = append(rows, UnemploymentRow{StateFIPS: " 48", CountyFIPS: "453 ", Period: "   " + p + "  ", Rate: []string{"4", "10", "8", "6", "6", "5", "4", "3", "-"}[ind]})
	}

	rows = append(rows,
		UnemploymentRow{StateFIPS: "48", CountyFIPS: "453", Period: "Oct-19", Rate: "2.5"},
		UnemploymentRow{StateFIPS: "48", CountyFIPS: "453", Period: "Jan-20", Rate: "99"},
		UnemploymentRow{StateFIPS: "48", CountyFIPS: "423", Period: "Oct-20", Rate: "5.5"},
		UnemploymentRow{StateFIPS: "48", CountyFIPS: "000", Period: "Oct-20", Rate: "5.5"},
	)

	src, rep, e := Unemployment(reg, rows, DefaultPeriods)
	require.Nil(t, e)
	assert.Empty(t, rep.Errors)
	assert.Len(t, rep.Skipped, 1)

	assert.InDelta(t, 46.0/8, value(t, src, 48453, "unempl_rate").F, 1e-12)
	assert.InDelta(t, 0.5, value(t, src, 48453, "unempl_rate_chng").F, 1e-12)
	assert.Equal(t, county.Known(5.5), value(t, src, 48423, "unempl_rate"))
	assert.True(t, value(t, src, 48423, "unempl_rate_chng").IsMissing())

	_, _, e = Unemployment(reg, rows, Periods{})
	assert.True(t, errors.Is(e, county.ErrConfiguration))
}

func TestIncome(t *testing.T) {
	reg := testRegistry(t)

	src, rep, e := Income(reg, []IncomeRow{
		{StateFIPS: "00", CountyFIPS: "000", Poverty: "38,371,394", MedianIncome: "65,712"},
		{StateFIPS: "48", CountyFIPS: "453", Poverty: "125,000", MedianIncome: "80,668"},
		{StateFIPS: "48", CountyFIPS: "423", Poverty: ".", MedianIncome: "55,000"},
	})
	require.Nil(t, e)

	assert.Len(t, rep.Skipped, 1)
	assert.Equal(t, county.Known(125000), value(t, src, 48453, "n_poverty"))
	assert.InDelta(t, 80.668, value(t, src, 48453, "med_income").F, 1e-12)
	assert.True(t, value(t, src, 48423, "n_poverty").IsMissing())
}

func TestEducation(t *testing.T) {
	reg := testRegistry(t)

	src, rep, e := Education(reg, []EducationRow{{
		GeoID:            "0500000US48453",
		Pop18To24:        "100",
		HighSchool18To24: "30",
		Bachelor18To24:   "10",
		Pop25Plus:        "300",
		HighSchool25Plus: "90",
		Bachelor25Plus:   "150",
	}})
	require.Nil(t, e)
	assert.Empty(t, rep.Errors)

	assert.InDelta(t, 0.3, value(t, src, 48453, "high_sch_grad_rate").F, 1e-12)
	assert.InDelta(t, 0.4, value(t, src, 48453, "college_grad_rate").F, 1e-12)
}

func TestGDP(t *testing.T) {
	reg := testRegistry(t)

	rows := []GDPRow{
		{GeoFIPS: `"00000"`, GeoName: "United States", LineCode: "3", Y2018: "1", Y2019: "2"},
		{GeoFIPS: `"51901"`, GeoName: "Albemarle + Charlottesville, VA*", LineCode: "3", Y2018: "1000", Y2019: "1500"},
		{GeoFIPS: `"51901"`, GeoName: "Albemarle + Charlottesville, VA*", LineCode: "1", Y2018: "1", Y2019: "1"},
		{GeoFIPS: `"51919"`, GeoName: "Fairfax, Fairfax City + Falls Church, VA*", LineCode: "3", Y2018: "100", Y2019: "100"},
		{GeoFIPS: `"15901"`, GeoName: "Maui + Kalawao, HI*", LineCode: "3", Y2018: "(NA)", Y2019: "800"},
		{GeoFIPS: `"48453"`, GeoName: "Travis County (formerly), TX", LineCode: "3", Y2018: "10", Y2019: "11"},
		{GeoFIPS: `"48999"`, GeoName: "Nowhere, TX", LineCode: "3", Y2018: "10", Y2019: "11"},
	}

	src, rep, e := GDP(reg, rows)
	require.Nil(t, e)

	assert.Equal(t, 6, rep.Records)
	assert.Equal(t, []string{"United States"}, rep.Skipped)
	require.Len(t, rep.Errors, 1)
	assert.True(t, errors.Is(rep.Errors[0], county.ErrUnresolvedEntity))

	// 1.5e6 split 2:1 by population
	assert.InDelta(t, 1e6, value(t, src, 51003, "gdp").F, 1e-6)
	assert.InDelta(t, 0.5e6, value(t, src, 51540, "gdp").F, 1e-6)
	assert.Equal(t, county.Known(0.5), value(t, src, 51003, "prcnt_chng_gdp"))
	assert.Equal(t, county.Known(0.5), value(t, src, 51540, "prcnt_chng_gdp"))

	var total float64
	for _, id := range []int{51059, 51600, 51610} {
		total += value(t, src, id, "gdp").F
	}

	assert.InDelta(t, 1e5, total, 1e-6)
	assert.InDelta(t, 1e5*1150.0/1189, value(t, src, 51059, "gdp").F, 1e-6)

	assert.Equal(t, county.Known(8e5), value(t, src, 15009, "gdp"))
	assert.True(t, value(t, src, 15009, "prcnt_chng_gdp").IsMissing())
	_, ok := src.Table.Get(15005, "gdp")
	assert.False(t, ok)

	// label does not match; the row's own code does
	assert.Equal(t, county.Known(11e3), value(t, src, 48453, "gdp"))
}

func TestLegislature(t *testing.T) {
	reg := testRegistry(t)

	src, rep, e := Legislature(reg, []LegislatureRow{
		{State: "Texas", Legis: "Rep", Gov: "Rep", StateControl: "Rep"},
		{State: "Virginia", Legis: " Dem ", Gov: "Dem", StateControl: "Dem"},
		{State: "Alaska", Legis: "Divided", Gov: "Rep", StateControl: "Divided"},
		{State: "Louisiana", Legis: "Rep", Gov: "Whig", StateControl: "Divided"},
		{State: "Total States", Legis: "1", Gov: "1", StateControl: "1"},
		{State: "Ohio", Legis: "Rep", Gov: "Rep", StateControl: "Rep"},
	})
	require.Nil(t, e)

	assert.Equal(t, []string{"Total States", "Ohio"}, rep.Skipped)
	assert.Len(t, rep.Errors, 1)

	assert.Equal(t, county.Known(0), value(t, src, 48453, "dem_gov"))
	assert.Equal(t, county.Known(1), value(t, src, 51610, "dem_state"))
	assert.Equal(t, county.Known(2), value(t, src, 2158, "dem_legis"))
	assert.Equal(t, county.Known(0), value(t, src, 2020, "dem_gov"))
	assert.Equal(t, county.Known(2), value(t, src, 22059, "dem_state"))
	_, ok := src.Table.Get(22059, "dem_gov")
	assert.False(t, ok)
}

func TestElectionAndMerge(t *testing.T) {
	reg := testRegistry(t)

	margin := func(x float64) *float64 { return &x }
	races := []Race{
		{ID: "TX-G-P-2020-11-03", Counties: []RaceCounty{{FIPS: "48453", Margin: margin(45.3)}, {FIPS: "48423", Margin: nil}}},
		{ID: "TX-G-S-2020-11-03", Counties: []RaceCounty{{FIPS: "48423", Margin: margin(-50)}}},
		{ID: "AK-G-P-2020-11-03", Counties: []RaceCounty{{FIPS: "02801", Margin: margin(1)}, {FIPS: "02020", Margin: margin(9)}}},
	}

	src, rep, e := Election(reg, races, AlaskaMargins)
	require.Nil(t, e)

	// 02801 is an election district, four of the overrides are not in the registry here
	assert.Len(t, rep.Errors, 5)
	assert.Equal(t, county.Known(3.13), value(t, src, 2020, "biden_margin_2020"))
	assert.True(t, value(t, src, 48423, "biden_margin_2020").IsMissing())

	u, e := county.Merge(reg, []county.Source{src})
	require.Nil(t, e)

	v, _ := u.Value(48423, "biden_margin_2020")
	assert.Equal(t, county.Known(0), v)

	v, _ = u.Value(2158, "biden_margin_2020")
	assert.Equal(t, county.Known(0), v)

	v, _ = u.Value(48453, "biden_margin_2020")
	assert.Equal(t, county.Known(45.3), v)
}

func TestRegions(t *testing.T) {
	reg := testRegistry(t)

	src, rep, e := Regions(reg, DefaultRegions)
	require.Nil(t, e)
	assert.Empty(t, rep.Errors)

	s, _ := src.Table.Label(51003, "region")
	assert.Equal(t, "Northeast", s)
	s, _ = src.Table.Label(2158, "region")
	assert.Equal(t, "West", s)

	_, rep, e = Regions(reg, DefaultRegions[:1])
	require.Nil(t, e)
	assert.Len(t, rep.Errors, 4)

	// MI is covered by two rules
	mi, _ := county.Build([]county.RegistryRow{{State: "MI", Name: "Wayne County", Code: 26163}}, nil)
	src, _, _ = Regions(mi, DefaultRegions)
	s, _ = src.Table.Label(26163, "region")
	assert.Equal(t, "Midwest", s)
}

func TestTemperature(t *testing.T) {
	reg := testRegistry(t)

	months := func(x string) []string {
		out := make([]string, 12)
		for ind := range out {
			out[ind] = x
		}

		return out
	}

	tx := months("80")
	tx[11] = "-99.90"
	tmax := []TmaxRow{
		{Code: "41453272020", Months: tx},
		{Code: "41453272019", Months: months("10")},
		{Code: "41423272020", Months: months("")},
		{Code: "44003272020", Months: months("70")},
		{Code: "99001272020", Months: months("70")},
	}

	locs := []LocationRow{
		{LocationID: "AK-020", Value: "44.5"},
		{LocationID: "HI-009", Value: "83.1"},
		{LocationID: "PR-001", Value: "90"},
	}

	src, rep, e := Temperature(reg, tmax, locs, "2020")
	require.Nil(t, e)
	assert.Len(t, rep.Errors, 1)
	assert.Equal(t, []string{"PR-001"}, rep.Skipped)

	assert.Equal(t, county.Known(80), value(t, src, 48453, TmaxAvg))
	assert.True(t, value(t, src, 48423, TmaxAvg).IsMissing())
	assert.Equal(t, county.Known(44.5), value(t, src, 2020, TmaxAlt))

	u, e := county.Merge(reg, []county.Source{src})
	require.Nil(t, e)

	v, _ := u.Value(48423, TmaxAvg)
	assert.Equal(t, county.Known(80), v)

	v, _ = u.Value(15009, TmaxAvg)
	assert.Equal(t, county.Known(83.1), v)

	v, _ = u.Value(2158, TmaxAvg)
	assert.Equal(t, county.Known(44.5), v)

	v, _ = u.Value(51540, TmaxAvg)
	assert.Equal(t, county.Known(70), v)

	v, _ = u.Value(35013, TmaxAvg)
	assert.True(t, v.IsMissing())
}

func TestCovid(t *testing.T) {
	reg := testRegistry(t)

	dates := []time.Time{
		time.Date(2020, 5, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2020, 6, 7, 0, 0, 0, 0, time.UTC),
		time.Date(2020, 8, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2020, 10, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2020, 12, 31, 0, 0, 0, 0, time.UTC),
	}

	cases := CovidSeries{Dates: dates, Rows: []CovidRow{
		{CountyFIPS: "0", County: "Statewide Unallocated", State: "TX", Counts: []string{"1", "1", "1", "1", "1"}},
		{CountyFIPS: "48453", County: "Travis County", State: "TX", Counts: []string{"5", "5", "12", "12", "20"}},
		{CountyFIPS: "48423", County: "Smith County", State: "TX", Counts: []string{"1", "2"}},
	}}

	deaths := CovidSeries{Dates: dates, Rows: []CovidRow{
		{CountyFIPS: "48453", County: "Travis County", State: "TX", Counts: []string{"0", "1", "2", "", "9"}},
	}}

	src, rep, e := Covid(reg, cases, deaths, CaseBoundaries, DeathBoundaries)
	require.Nil(t, e)
	assert.Len(t, rep.Skipped, 1)
	assert.Len(t, rep.Errors, 1)

	assert.Equal(t, []string{"cases_1", "cases_2", "cases_3", "cases_tot", "deaths_1", "deaths_2", "deaths_3", "deaths_tot"},
		src.Table.Columns())

	assert.Equal(t, county.Known(5), value(t, src, 48453, "cases_1"))
	assert.Equal(t, county.Known(7), value(t, src, 48453, "cases_2"))
	assert.Equal(t, county.Known(8), value(t, src, 48453, "cases_3"))
	assert.Equal(t, county.Known(20), value(t, src, 48453, "cases_tot"))

	// 2020-08-01 is the last death observation before 2020-10-22
	assert.Equal(t, county.Known(1), value(t, src, 48453, "deaths_1"))
	assert.Equal(t, county.Known(1), value(t, src, 48453, "deaths_2"))
	assert.Equal(t, county.Known(7), value(t, src, 48453, "deaths_3"))
	assert.Equal(t, county.Known(9), value(t, src, 48453, "deaths_tot"))

	_, _, e = Covid(reg, cases, deaths, nil, DeathBoundaries)
	assert.True(t, errors.Is(e, county.ErrConfiguration))
}

func TestCovid_LegacyCodes(t *testing.T) {
	reg := testRegistry(t)

	dates := []time.Time{
		time.Date(2020, 5, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2020, 6, 7, 0, 0, 0, 0, time.UTC),
		time.Date(2020, 8, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2020, 10, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2020, 12, 31, 0, 0, 0, 0, time.UTC),
	}

	// the same borough under its legacy and current codes; the current code wins wherever it is listed
	cases := CovidSeries{Dates: dates, Rows: []CovidRow{
		{CountyFIPS: "2270", County: "Wade Hampton Census Area", State: "AK", Counts: []string{"1", "2", "3", "4", "5"}},
		{CountyFIPS: "02158", County: "Kusilvak Census Area", State: "AK", Counts: []string{"2", "4", "6", "8", "10"}},
		{CountyFIPS: "48423", County: "Smith County", State: "TX", Counts: []string{"1", "1", "2", "2", "3"}},
	}}

	// a legacy code alone lands on the current entity
	deaths := CovidSeries{Dates: dates, Rows: []CovidRow{
		{CountyFIPS: "2270", County: "Wade Hampton Census Area", State: "AK", Counts: []string{"0", "1", "2", "2", "3"}},
	}}

	src, rep, e := Covid(reg, cases, deaths, CaseBoundaries, DeathBoundaries)
	require.Nil(t, e)
	require.Len(t, rep.Errors, 1)
	assert.Contains(t, rep.Errors[0].Error(), "02270")
	assert.Equal(t, 4, rep.Records)

	assert.Equal(t, county.Known(4), value(t, src, 2158, "cases_1"))
	assert.Equal(t, county.Known(4), value(t, src, 2158, "cases_2"))
	assert.Equal(t, county.Known(2), value(t, src, 2158, "cases_3"))
	assert.Equal(t, county.Known(10), value(t, src, 2158, "cases_tot"))

	assert.Equal(t, county.Known(1), value(t, src, 48423, "cases_1"))
	assert.Equal(t, county.Known(3), value(t, src, 48423, "cases_tot"))

	assert.Equal(t, county.Known(1), value(t, src, 2158, "deaths_1"))
	assert.Equal(t, county.Known(1), value(t, src, 2158, "deaths_2"))
	assert.Equal(t, county.Known(1), value(t, src, 2158, "deaths_3"))
	assert.Equal(t, county.Known(3), value(t, src, 2158, "deaths_tot"))

	_, ok := src.Table.Get(2270, "cases_tot")
	assert.False(t, ok)

	// listed the other way round, the second row is the one reported
	cases.Rows[0], cases.Rows[1] = cases.Rows[1], cases.Rows[0]
	src, rep, e = Covid(reg, cases, deaths, CaseBoundaries, DeathBoundaries)
	require.Nil(t, e)
	require.Len(t, rep.Errors, 1)
	assert.Contains(t, rep.Errors[0].Error(), "02270")
	assert.Equal(t, county.Known(10), value(t, src, 2158, "cases_tot"))
}

func TestStateAbbr(t *testing.T) {
	abbr, ok := StateAbbr("district of columbia")
	assert.True(t, ok)
	assert.Equal(t, "DC", abbr)

	abbr, ok = StateAbbr(" tx")
	assert.True(t, ok)
	assert.Equal(t, "TX", abbr)

	_, ok = StateAbbr("Puerto Rico")
	assert.False(t, ok)
}
