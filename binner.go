package county

import (
	"fmt"
	"slices"
	"time"
)

// TotalSuffix labels the sum of all bin deltas.
const TotalSuffix = "tot"

// TimePoint is one observation of a cumulative series.
type TimePoint struct {
	ID         int
	Date       time.Time
	Cumulative float64
}

// Bin is the interval (Lower, Upper]. The first bin has a zero Lower, the last a zero Upper.
type Bin struct {
	Index int
	Lower time.Time
	Upper time.Time
	Label string
}

func (b Bin) Contains(t time.Time) bool {
	if !b.Lower.IsZero() && !t.After(b.Lower) {
		return false
	}

	if !b.Upper.IsZero() && t.After(b.Upper) {
		return false
	}

	return true
}

// Binner turns cumulative series into per-bin deltas. Each source family has its own boundaries.
type Binner struct {
	field      string
	boundaries []time.Time
	bins       []Bin
}

// NewBinner partitions time into len(boundaries)+1 bins: date <= b[0], b[0] < date <= b[1], ..., date > b[k-1].
func NewBinner(field string, boundaries ...time.Time) (*Binner, error) {
	if field == "" {
		return nil, configErr("", "", "binner has no field name")
	}

	if len(boundaries) == 0 {
		return nil, configErr("", field, "no bin boundaries")
	}

	for ind := 1; ind < len(boundaries); ind++ {
		if !boundaries[ind].After(boundaries[ind-1]) {
			return nil, configErr("", field, "bin boundaries not strictly ascending at %s", boundaries[ind].Format(time.DateOnly))
		}
	}

	b := &Binner{field: field, boundaries: slices.Clone(boundaries)}

	var lower time.Time
	for ind := 0; ind <= len(boundaries); ind++ {
		var upper time.Time
		if ind < len(boundaries) {
			upper = boundaries[ind]
		}

		b.bins = append(b.bins, Bin{Index: ind + 1, Lower: lower, Upper: upper, Label: fmt.Sprintf("%s_%d", field, ind+1)})
		lower = upper
	}

	return b, nil
}

func (b *Binner) Field() string {
	return b.field
}

func (b *Binner) Bins() []Bin {
	return slices.Clone(b.bins)
}

// TotalLabel is the field name of the summed deltas.
func (b *Binner) TotalLabel() string {
	return b.field + "_" + TotalSuffix
}

// Columns lists the bin labels followed by the total label.
func (b *Binner) Columns() []string {
	var cols []string
	for _, bn := range b.bins {
		cols = append(cols, bn.Label)
	}

	return append(cols, b.TotalLabel())
}

// binOf returns the 0-based bin of t.
func (b *Binner) binOf(t time.Time) int {
	ind, _ := slices.BinarySearchFunc(b.boundaries, t, func(bound, target time.Time) int {
		return bound.Compare(target)
	})

	return ind
}

// Deltas bins one entity's series (ascending dates). The map is keyed by bin index (1..k+1); total is the sum.
// Bin 1 is the last cumulative value in it; later bins are the change in the last cumulative value.
// A bin without observations carries the prior cumulative value, so its delta is 0.
func (b *Binner) Deltas(series []TimePoint) (deltas map[int]float64, total float64, err error) {
	if e := b.checkSeries(series, true); e != nil {
		return nil, 0, e
	}

	last := make([]float64, len(b.bins))
	seen := make([]bool, len(b.bins))
	for _, tp := range series {
		bn := b.binOf(tp.Date)
		last[bn] = tp.Cumulative
		seen[bn] = true
	}

	deltas = make(map[int]float64, len(b.bins))
	prior := 0.0
	for ind := range b.bins {
		if !seen[ind] {
			last[ind] = prior
		}

		deltas[ind+1] = last[ind] - prior
		total += deltas[ind+1]
		prior = last[ind]
	}

	return deltas, total, nil
}

// Records bins a multi-entity series. Points are grouped by id; within an id dates must ascend.
func (b *Binner) Records(series []TimePoint) ([]Record, error) {
	if e := b.checkSeries(series, false); e != nil {
		return nil, e
	}

	var ids []int
	byID := make(map[int][]TimePoint)
	for _, tp := range series {
		if _, ok := byID[tp.ID]; !ok {
			ids = append(ids, tp.ID)
		}

		byID[tp.ID] = append(byID[tp.ID], tp)
	}

	slices.Sort(ids)

	var recs []Record
	for _, id := range ids {
		deltas, total, e := b.Deltas(byID[id])
		if e != nil {
			return nil, e
		}

		for _, bn := range b.bins {
			recs = append(recs, Record{ID: id, Field: bn.Label, Value: Known(deltas[bn.Index])})
		}

		recs = append(recs, Record{ID: id, Field: b.TotalLabel(), Value: Known(total)})
	}

	return recs, nil
}

func (b *Binner) checkSeries(series []TimePoint, oneID bool) error {
	prior := make(map[int]time.Time)
	for ind, tp := range series {
		if oneID && ind > 0 && tp.ID != series[0].ID {
			return configErr("", b.field, "series mixes codes %s and %s", FormatID(series[0].ID), FormatID(tp.ID))
		}

		if p, ok := prior[tp.ID]; ok && tp.Date.Before(p) {
			return configErr("", b.field, "series for %s not in date order at %s", FormatID(tp.ID), tp.Date.Format(time.DateOnly))
		}

		prior[tp.ID] = tp.Date
	}

	return nil
}
