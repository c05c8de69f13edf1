package county

import (
	"math"
	"slices"

	"gonum.org/v1/gonum/floats"
)

// AggregateRecord is one reported number covering every entity in Group.
type AggregateRecord struct {
	Group []int
	Value Value
	Field string
}

// Record is the per-entity unit the merge consumes.
type Record struct {
	ID    int
	Field string
	Value Value
}

// Apportion splits agg.Value across the group in proportion to weights: member i receives V*wi/Σw.
// An id absent from weights has weight 0. The rounding residual goes to the largest-weight member
// so the shares add back to V.
func Apportion(agg AggregateRecord, weights map[int]float64) ([]Record, error) {
	var (
		w []float64
		e error
	)
	if w, e = groupWeights(agg, weights); e != nil {
		return nil, e
	}

	recs := make([]Record, len(agg.Group))
	if agg.Value.IsMissing() {
		for ind, id := range agg.Group {
			recs[ind] = Record{ID: id, Field: agg.Field, Value: Missing}
		}

		return recs, nil
	}

	total := floats.Sum(w)
	if total == 0 {
		return nil, &GroupError{Field: agg.Field, Group: slices.Clone(agg.Group), Err: ErrZeroWeightGroup}
	}

	shares := make([]float64, len(w))
	for ind := range w {
		shares[ind] = agg.Value.F * w[ind] / total
	}

	big := floats.MaxIdx(w)
	shares[big] += agg.Value.F - floats.Sum(shares)

	for ind, id := range agg.Group {
		recs[ind] = Record{ID: id, Field: agg.Field, Value: Known(shares[ind])}
	}

	return recs, nil
}

// Broadcast gives every member the aggregate value unchanged. It is for rates and other non-additive fields.
func Broadcast(agg AggregateRecord) ([]Record, error) {
	if _, e := groupWeights(agg, nil); e != nil {
		return nil, e
	}

	recs := make([]Record, len(agg.Group))
	for ind, id := range agg.Group {
		recs[ind] = Record{ID: id, Field: agg.Field, Value: agg.Value}
	}

	return recs, nil
}

func groupWeights(agg AggregateRecord, weights map[int]float64) ([]float64, error) {
	if len(agg.Group) == 0 {
		return nil, configErr("", agg.Field, "empty apportionment group")
	}

	if agg.Field == "" {
		return nil, configErr("", "", "aggregate record has no field name")
	}

	seen := make(map[int]bool, len(agg.Group))
	w := make([]float64, len(agg.Group))
	for ind, id := range agg.Group {
		if seen[id] {
			return nil, configErr("", agg.Field, "code %s repeated in group", FormatID(id))
		}

		seen[id] = true

		x := weights[id]
		if math.IsNaN(x) || math.IsInf(x, 0) || x < 0 {
			return nil, configErr("", agg.Field, "invalid weight %v for %s", x, FormatID(id))
		}

		w[ind] = x
	}

	return w, nil
}
