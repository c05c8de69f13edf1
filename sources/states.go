package sources

import (
	"strings"
)

type State struct {
	Abbr string
	Name string
}

// States are the 50 states plus DC, the universe every adapter maps into.
var States = []State{
	{"DC", "District of Columbia"}, {"AL", "Alabama"}, {"AK", "Alaska"}, {"AZ", "Arizona"},
	{"AR", "Arkansas"}, {"CA", "California"}, {"CO", "Colorado"}, {"CT", "Connecticut"},
	{"DE", "Delaware"}, {"FL", "Florida"}, {"GA", "Georgia"}, {"HI", "Hawaii"},
	{"ID", "Idaho"}, {"IL", "Illinois"}, {"IN", "Indiana"}, {"IA", "Iowa"},
	{"KS", "Kansas"}, {"KY", "Kentucky"}, {"LA", "Louisiana"}, {"ME", "Maine"},
	{"MD", "Maryland"}, {"MA", "Massachusetts"}, {"MI", "Michigan"}, {"MN", "Minnesota"},
	{"MS", "Mississippi"}, {"MO", "Missouri"}, {"MT", "Montana"}, {"NE", "Nebraska"},
	{"NV", "Nevada"}, {"NH", "New Hampshire"}, {"NJ", "New Jersey"}, {"NM", "New Mexico"},
	{"NY", "New York"}, {"NC", "North Carolina"}, {"ND", "North Dakota"}, {"OH", "Ohio"},
	{"OK", "Oklahoma"}, {"OR", "Oregon"}, {"PA", "Pennsylvania"}, {"RI", "Rhode Island"},
	{"SC", "South Carolina"}, {"SD", "South Dakota"}, {"TN", "Tennessee"}, {"TX", "Texas"},
	{"UT", "Utah"}, {"VT", "Vermont"}, {"VA", "Virginia"}, {"WA", "Washington"},
	{"WV", "West Virginia"}, {"WI", "Wisconsin"}, {"WY", "Wyoming"},
}

// StateAbbr maps a state name or abbreviation, in any case, to its abbreviation.
func StateAbbr(s string) (string, bool) {
	s = strings.TrimSpace(s)
	for _, st := range States {
		if strings.EqualFold(s, st.Abbr) || strings.EqualFold(s, st.Name) {
			return st.Abbr, true
		}
	}

	return "", false
}

// NOAAStates maps the 2-digit state codes of the NOAA climate-division files (contiguous states only).
var NOAAStates = map[string]string{
	"01": "AL", "02": "AZ", "03": "AR", "04": "CA", "05": "CO", "06": "CT", "07": "DE", "08": "FL",
	"09": "GA", "10": "ID", "11": "IL", "12": "IN", "13": "IA", "14": "KS", "15": "KY", "16": "LA",
	"17": "ME", "18": "MD", "19": "MA", "20": "MI", "21": "MN", "22": "MS", "23": "MO", "24": "MT",
	"25": "NE", "26": "NV", "27": "NH", "28": "NJ", "29": "NM", "30": "NY", "31": "NC", "32": "ND",
	"33": "OH", "34": "OK", "35": "OR", "36": "PA", "37": "RI", "38": "SC", "39": "SD", "40": "TN",
	"41": "TX", "42": "UT", "43": "VT", "44": "VA", "45": "WA", "46": "WV", "47": "WI", "48": "WY",
}

// RegionRule assigns Region to the listed states. Rules are tried in order and the first match wins.
type RegionRule struct {
	Region string
	States []string
}

// DefaultRegions is a rough climate and commerce grouping. MI is listed twice; Midwest wins.
var DefaultRegions = []RegionRule{
	{"West", []string{"AK", "CA", "HI", "OR", "WA"}},
	{"Southwest", []string{"AZ", "CO", "ID", "NM", "NV", "UT"}},
	{"Central", []string{"KS", "MT", "ND", "NE", "SD", "WY"}},
	{"Midwest", []string{"KY", "IA", "IL", "IN", "MI", "MN", "MO", "OH", "WI"}},
	{"Southeast", []string{"AL", "AR", "GA", "FL", "LA", "MI", "MS", "NC", "OK", "SC", "TN", "TX"}},
	{"Northeast", []string{"CT", "DC", "DE", "MA", "ME", "MD", "NH", "NJ", "NY", "PA", "RI", "VA", "VT", "WV"}},
}
