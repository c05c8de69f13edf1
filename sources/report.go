package sources

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	county "github.com/khslmr/covid-county-corr"
)

// Report is what one adapter pass saw. Record errors never abort a source; the caller decides what to do with them.
type Report struct {
	Source string

	// Records counts input rows considered (after the adapter's own row filter).
	Records int

	// Errors holds one error per record that could not be placed, typically a *county.EntityError.
	Errors []error

	// Skipped lists labels the adapter excluded by rule, e.g. state and national aggregates.
	Skipped []string
}

func newReport(source string) *Report {
	return &Report{Source: source}
}

// Err joins the record errors, or is nil.
func (r *Report) Err() error {
	return errors.Join(r.Errors...)
}

func (r *Report) fail(e error) {
	r.Errors = append(r.Errors, e)
}

func (r *Report) skip(label string) {
	r.Skipped = append(r.Skipped, label)
}

func (r *Report) String() string {
	return fmt.Sprintf("%s: %d records, %d errors, %d skipped", r.Source, r.Records, len(r.Errors), len(r.Skipped))
}

// *********** shared helpers ***********

// stateCounty assembles a code from separate state and county digit fields. A county part of 0 marks a state
// or national aggregate row, reported as aggregate = true.
func stateCounty(state, cnty string) (code int, aggregate bool, err error) {
	var st, ct int
	if st, err = strconv.Atoi(strings.TrimSpace(state)); err != nil {
		return 0, false, fmt.Errorf("invalid state code %q", state)
	}

	if ct, err = strconv.Atoi(strings.TrimSpace(cnty)); err != nil {
		return 0, false, fmt.Errorf("invalid county code %q", cnty)
	}

	if st < 0 || st > 99 || ct < 0 || ct > 999 {
		return 0, false, fmt.Errorf("code %q/%q out of range", state, cnty)
	}

	return st*1000 + ct, ct == 0, nil
}

// resolveCode maps a reported code to a canonical id. ok is false when the record is to be left out,
// either because its entity was dropped or because the failure was reported.
func resolveCode(m *county.Matcher, rep *Report, code int) (id int, ok bool) {
	matches, e := m.ResolveCode(code)
	if e != nil {
		rep.fail(e)
		return 0, false
	}

	if len(matches) == 0 {
		return 0, false
	}

	return matches[0].ID, true
}

// put stores one value, reporting a second value for the same entity and field instead of failing the source.
func put(t *county.Table, rep *Report, id int, field string, v county.Value) {
	if _, ok := t.Get(id, field); ok {
		rep.fail(fmt.Errorf("%s: second %s value for %s", rep.Source, field, county.FormatID(id)))
		return
	}

	if e := t.Set(id, field, v); e != nil {
		rep.fail(e)
	}
}

func newMatcher(reg *county.Registry, source string, opts ...county.MatcherOpt) (*county.Matcher, error) {
	return county.NewMatcher(reg, append([]county.MatcherOpt{county.MatcherSource(source)}, opts...)...)
}
