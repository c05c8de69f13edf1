package testing

import (
	"context"
	"os"
	"strconv"
	"time"

	county "github.com/khslmr/covid-county-corr"
	"github.com/khslmr/covid-county-corr/pipeline"
	"github.com/khslmr/covid-county-corr/sources"
	s "github.com/khslmr/covid-county-corr/sql"
)

const (
	outTableCH   = "testing.county"
	outTablePG   = "public.county"
	outTableDuck = "county"

	pg   = s.PG
	ch   = s.CH
	duck = s.Duck
)

// environment variables:
//   - host ClickHouse and Postgres IP address
//   - user database user
//   - password: database password
//   - db: Postgres database
//
// DuckDB runs in memory and is always tested; the others only when host is set.
func pkgs() []string {
	if os.Getenv("host") == "" {
		return []string{duck}
	}

	return []string{duck, pg, ch}
}

func outTable(pkg string) string {
	switch pkg {
	case ch:
		return outTableCH
	case pg:
		return outTablePG
	}

	return outTableDuck
}

// connect opens the backend named by pkg.
func connect(pkg string) *s.Dialect {
	c := s.Connection{
		Dialect:  pkg,
		Host:     os.Getenv("host"),
		User:     os.Getenv("user"),
		Password: os.Getenv("password"),
		Database: os.Getenv("db"),
	}

	if pkg == ch {
		c.Database = ""
	}

	if port := os.Getenv("port"); port != "" {
		c.Port, _ = strconv.Atoi(port)
	}

	var (
		dlct *s.Dialect
		e    error
	)
	if dlct, e = s.Connect(c); e != nil {
		panic(e)
	}

	return dlct
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func inputs() *pipeline.Inputs {
	return &pipeline.Inputs{
		FIPS: []sources.FIPSRow{
			{State: "AK", StateCode: "02", CountyCode: "270", County: "Wade Hampton Census Area"},
			{State: "HI", StateCode: "15", CountyCode: "005", County: "Kalawao County"},
			{State: "HI", StateCode: "15", CountyCode: "009", County: "Maui County"},
			{State: "IA", StateCode: "19", CountyCode: "141", County: "O'Brien County"},
			{State: "TX", StateCode: "48", CountyCode: "423", County: "Smith County"},
			{State: "TX", StateCode: "48", CountyCode: "453", County: "Travis County"},
		},
		Population: []sources.PopulationRow{
			{State: "Alaska", County: "Kusilvak Census Area", Year: 12, AgeGroup: 4, Total: 8000, White: 800},
			{State: "Hawaii", County: "Kalawao County", Year: 12, AgeGroup: 10, Total: 80},
			{State: "Hawaii", County: "Maui County", Year: 12, AgeGroup: 10, Total: 167000, Asian: 50000},
			{State: "Iowa", County: "O'Brien County", Year: 12, AgeGroup: 12, Total: 14000, White: 13000},
			{State: "Texas", County: "Smith County", Year: 12, AgeGroup: 8, Total: 232000, Black: 40000},
			{State: "Texas", County: "Travis County", Year: 12, AgeGroup: 7, Total: 1290000, Hispanic: 430000},
		},
		LandArea: []sources.LandAreaRow{
			{Code: "02270", Area: "17081"},
			{Code: "15009", Area: "1162"},
			{Code: "19141", Area: "573"},
			{Code: "48423", Area: "928"},
			{Code: "48453", Area: "994"},
		},
		Income: []sources.IncomeRow{
			{StateFIPS: "48", CountyFIPS: "423", Poverty: "32,000", MedianIncome: "56,000"},
			{StateFIPS: "48", CountyFIPS: "453", Poverty: "140,000", MedianIncome: "80,000"},
			{StateFIPS: "19", CountyFIPS: "141", Poverty: "(NA)", MedianIncome: "58,000"},
		},
		Cases: sources.CovidSeries{
			Dates: []time.Time{day(2020, 5, 1), day(2020, 7, 1), day(2020, 11, 1)},
			Rows: []sources.CovidRow{
				{CountyFIPS: "48423", County: "Smith County", State: "TX", Counts: []string{"10", "300", "6000"}},
				{CountyFIPS: "48453", County: "Travis County", State: "TX", Counts: []string{"90", "2000", "40000"}},
			},
		},
	}
}

// loadData runs the pipeline over the fixture inputs.
func loadData() *county.Unified {
	cfg := pipeline.DefaultConfig()
	cfg.Election.Overrides = nil

	var (
		res *pipeline.Result
		e   error
	)
	if res, e = pipeline.Run(context.Background(), cfg, inputs()); e != nil {
		panic(e)
	}

	return res.Unified
}
