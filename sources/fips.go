package sources

import (
	"fmt"

	county "github.com/khslmr/covid-county-corr"
)

// FIPSRow is one row of the authoritative state/county code table.
type FIPSRow struct {
	State      string
	StateCode  string
	CountyCode string
	County     string
}

// LegacyOverrides are codes retired since the older sources were published.
var LegacyOverrides = county.Overrides{
	2270:  {Code: 2158, State: "AK", Name: "Kusilvak Census Area"},
	46113: {Code: 46102, State: "SD", Name: "Oglala Lakota County"},
}

// DroppedEntities are left out of every output. Kalawao County, HI (population ~80) has no
// separate figures in most sources.
var DroppedEntities = []int{15005}

// FIPS converts the code table into registry rows with zero weights.
func FIPS(rows []FIPSRow) ([]county.RegistryRow, error) {
	out := make([]county.RegistryRow, 0, len(rows))
	for ind, r := range rows {
		var (
			code int
			e    error
		)
		if code, e = county.ParseID(r.StateCode + r.CountyCode); e != nil {
			return nil, fmt.Errorf("fips row %d: %w", ind, e)
		}

		abbr, ok := StateAbbr(r.State)
		if !ok {
			return nil, fmt.Errorf("fips row %d: unknown state %q", ind, r.State)
		}

		out = append(out, county.RegistryRow{State: abbr, Name: r.County, Code: code})
	}

	return out, nil
}

// Weighted sets each registry row's weight from col of tbl, keyed by the row's canonical code.
// Rows with no value keep weight 0.
func Weighted(rows []county.RegistryRow, overrides county.Overrides, tbl *county.Table, col string) []county.RegistryRow {
	out := make([]county.RegistryRow, len(rows))
	for ind, r := range rows {
		out[ind] = r

		code := r.Code
		if ov, ok := overrides[code]; ok {
			code = ov.Code
		}

		if v, ok := tbl.Get(code, col); ok && !v.IsMissing() {
			out[ind].Weight = v.F
		}
	}

	return out
}
