package dataset

import (
	"fmt"
	"sort"
	"time"
)

// Series is a labeled, time-indexed sequence of float64 samples.
// Times and Values are parallel slices; a valid Series keeps them the same
// length with Times sorted ascending.
type Series struct {
	Name   string
	Unit   string
	Times  []time.Time
	Values []float64
}

// Validate checks the parallel-slice invariant and time ordering.
func (s Series) Validate() error {
	if len(s.Times) != len(s.Values) {
		return fmt.Errorf("series %q: %d timestamps but %d values", s.Name, len(s.Times), len(s.Values))
	}
	for i := 1; i < len(s.Times); i++ {
		if s.Times[i].Before(s.Times[i-1]) {
			return fmt.Errorf("series %q: timestamps not sorted at index %d", s.Name, i)
		}
	}
	return nil
}

// Len returns the number of samples.
func (s Series) Len() int { return len(s.Times) }

// SortByTime returns a copy of the series with samples ordered by timestamp.
// The sort is stable so duplicate timestamps keep their relative order.
func (s Series) SortByTime() Series {
	out := s.clone()
	idx := make([]int, len(out.Times))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return s.Times[idx[a]].Before(s.Times[idx[b]])
	})
	for i, j := range idx {
		out.Times[i] = s.Times[j]
		out.Values[i] = s.Values[j]
	}
	return out
}

// SliceTime returns the samples whose timestamps fall within [start, end],
// inclusive of both bounds.
func (s Series) SliceTime(start, end time.Time) Series {
	out := Series{Name: s.Name, Unit: s.Unit}
	for i, t := range s.Times {
		if t.Before(start) || t.After(end) {
			continue
		}
		out.Times = append(out.Times, t)
		out.Values = append(out.Values, s.Values[i])
	}
	return out
}

// Concat appends other's samples to s and re-sorts by time. Units must match.
func (s Series) Concat(other Series) (Series, error) {
	if s.Unit != "" && other.Unit != "" && s.Unit != other.Unit {
		return Series{}, fmt.Errorf("concat %q: unit mismatch %q vs %q", s.Name, s.Unit, other.Unit)
	}
	out := s.clone()
	if out.Unit == "" {
		out.Unit = other.Unit
	}
	out.Times = append(out.Times, other.Times...)
	out.Values = append(out.Values, other.Values...)
	return out.SortByTime(), nil
}

func (s Series) clone() Series {
	out := Series{Name: s.Name, Unit: s.Unit}
	out.Times = append(out.Times, s.Times...)
	out.Values = append(out.Values, s.Values...)
	return out
}
