package dataset

import (
	"math"
	"time"

	"gonum.org/v1/gonum/stat"
)

// MonthlyMean aggregates a series to one mean value per calendar month,
// labeled at the first instant of the month in UTC. Every calendar month
// between the first and last sample produces exactly one output point, with
// no interior month skipped. NaN samples are ignored, and a month with no
// finite samples yields NaN.
func MonthlyMean(s Series) Series {
	out := Series{Name: s.Name, Unit: s.Unit}
	if s.Len() == 0 {
		return out
	}

	sorted := s.SortByTime()
	last := monthStart(sorted.Times[sorted.Len()-1])

	i := 0
	for m := monthStart(sorted.Times[0]); !m.After(last); m = m.AddDate(0, 1, 0) {
		next := m.AddDate(0, 1, 0)
		var bucket []float64
		for i < sorted.Len() && sorted.Times[i].Before(next) {
			bucket = append(bucket, sorted.Values[i])
			i++
		}
		out.Times = append(out.Times, m)
		out.Values = append(out.Values, meanIgnoringNaN(bucket))
	}
	return out
}

func monthStart(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

func meanIgnoringNaN(vals []float64) float64 {
	kept := make([]float64, 0, len(vals))
	for _, v := range vals {
		if !math.IsNaN(v) {
			kept = append(kept, v)
		}
	}
	if len(kept) == 0 {
		return math.NaN()
	}
	return stat.Mean(kept, nil)
}
