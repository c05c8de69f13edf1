package county

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// MissingLabel is how a missing Value prints.
const MissingLabel = "NA"

// Value is a float that may be missing. Missing is a state of its own: it is neither zero nor NaN.
type Value struct {
	F     float64
	Valid bool
}

// Missing is the missing Value.
var Missing = Value{}

func Known(f float64) Value {
	return Value{F: f, Valid: true}
}

// KnownOrMissing treats NaN and +/-Inf as missing. Adapters use it when coercing upstream numbers.
func KnownOrMissing(f float64) Value {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return Missing
	}

	return Known(f)
}

// ParseValue coerces a raw field to a Value. Anything that is not a number (blank, "(NA)", "-") is missing.
func ParseValue(s string) Value {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	if s == "" {
		return Missing
	}

	var (
		f float64
		e error
	)
	if f, e = strconv.ParseFloat(s, 64); e != nil {
		return Missing
	}

	return KnownOrMissing(f)
}

func (v Value) IsMissing() bool {
	return !v.Valid
}

// Or returns v, or x if v is missing.
func (v Value) Or(x float64) float64 {
	if v.Valid {
		return v.F
	}

	return x
}

func (v Value) String() string {
	if !v.Valid {
		return MissingLabel
	}

	return fmt.Sprintf("%v", v.F)
}

// *********** arithmetic ***********
// Each operation propagates Missing; an undefined result (division by zero, log of a non-positive) is Missing.

func (v Value) Add(w Value) Value {
	if !v.Valid || !w.Valid {
		return Missing
	}

	return KnownOrMissing(v.F + w.F)
}

func (v Value) Sub(w Value) Value {
	if !v.Valid || !w.Valid {
		return Missing
	}

	return KnownOrMissing(v.F - w.F)
}

func (v Value) Mul(w Value) Value {
	if !v.Valid || !w.Valid {
		return Missing
	}

	return KnownOrMissing(v.F * w.F)
}

func (v Value) Div(w Value) Value {
	if !v.Valid || !w.Valid || w.F == 0 {
		return Missing
	}

	return KnownOrMissing(v.F / w.F)
}

func (v Value) Log10() Value {
	if !v.Valid || v.F <= 0 {
		return Missing
	}

	return Known(math.Log10(v.F))
}
