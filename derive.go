package county

// DeriveFunc computes a derived column from an already joined row.
type DeriveFunc func(r Row) Value

// Div is a/b.
func Div(a, b string) DeriveFunc {
	return func(r Row) Value { return r.Value(a).Div(r.Value(b)) }
}

// Log10Div is log10(a/b), e.g. population density from population and land area.
func Log10Div(a, b string) DeriveFunc {
	return func(r Row) Value { return r.Value(a).Div(r.Value(b)).Log10() }
}

func Sub(a, b string) DeriveFunc {
	return func(r Row) Value { return r.Value(a).Sub(r.Value(b)) }
}

func Scale(col string, k float64) DeriveFunc {
	return func(r Row) Value { return r.Value(col).Mul(Known(k)) }
}

// PerWeight divides col by the row's registry weight.
func PerWeight(col string) DeriveFunc {
	return func(r Row) Value { return r.Value(col).Div(Known(r.Weight)) }
}
