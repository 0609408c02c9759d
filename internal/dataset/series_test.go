package dataset

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(yyyy int, mm time.Month, dd int) time.Time {
	return time.Date(yyyy, mm, dd, 0, 0, 0, 0, time.UTC)
}

func TestSeriesValidate(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		s := Series{
			Name:   "tas",
			Times:  []time.Time{day(2013, 1, 1), day(2013, 1, 2)},
			Values: []float64{280.1, 281.2},
		}
		assert.NoError(t, s.Validate())
	})

	t.Run("length mismatch", func(t *testing.T) {
		s := Series{Times: []time.Time{day(2013, 1, 1)}, Values: []float64{1, 2}}
		assert.Error(t, s.Validate())
	})

	t.Run("unsorted", func(t *testing.T) {
		s := Series{
			Times:  []time.Time{day(2013, 1, 2), day(2013, 1, 1)},
			Values: []float64{1, 2},
		}
		assert.Error(t, s.Validate())
	})
}

func TestSeriesSortByTime(t *testing.T) {
	s := Series{
		Times:  []time.Time{day(2013, 3, 1), day(2013, 1, 1), day(2013, 2, 1)},
		Values: []float64{3, 1, 2},
	}

	sorted := s.SortByTime()

	assert.Equal(t, []float64{1, 2, 3}, sorted.Values)
	assert.NoError(t, sorted.Validate())
	// Input untouched.
	assert.Equal(t, []float64{3, 1, 2}, s.Values)
}

func TestSeriesSliceTime(t *testing.T) {
	s := Series{
		Times: []time.Time{
			day(2012, 12, 31), day(2013, 1, 1), day(2013, 6, 15),
			day(2014, 12, 31), day(2015, 1, 1),
		},
		Values: []float64{0, 1, 2, 3, 4},
	}

	t.Run("both bounds inclusive", func(t *testing.T) {
		out := s.SliceTime(day(2013, 1, 1), day(2014, 12, 31))
		assert.Equal(t, []float64{1, 2, 3}, out.Values)
	})

	t.Run("empty window", func(t *testing.T) {
		out := s.SliceTime(day(2020, 1, 1), day(2020, 12, 31))
		assert.Zero(t, out.Len())
	})

	t.Run("single instant", func(t *testing.T) {
		out := s.SliceTime(day(2013, 6, 15), day(2013, 6, 15))
		assert.Equal(t, []float64{2}, out.Values)
	})
}

func TestSeriesConcat(t *testing.T) {
	t.Run("interleaved files sort into one series", func(t *testing.T) {
		a := Series{Unit: "K", Times: []time.Time{day(2013, 2, 1)}, Values: []float64{2}}
		b := Series{Unit: "K", Times: []time.Time{day(2013, 1, 1), day(2013, 3, 1)}, Values: []float64{1, 3}}

		out, err := a.Concat(b)
		require.NoError(t, err)
		assert.Equal(t, []float64{1, 2, 3}, out.Values)
		assert.Equal(t, "K", out.Unit)
	})

	t.Run("unit mismatch", func(t *testing.T) {
		a := Series{Unit: "K", Times: []time.Time{day(2013, 1, 1)}, Values: []float64{1}}
		b := Series{Unit: "degC", Times: []time.Time{day(2013, 2, 1)}, Values: []float64{2}}

		_, err := a.Concat(b)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unit mismatch")
	})

	t.Run("zero series adopts other's unit", func(t *testing.T) {
		var empty Series
		b := Series{Unit: "degC", Times: []time.Time{day(2013, 1, 1)}, Values: []float64{5}}

		out, err := empty.Concat(b)
		require.NoError(t, err)
		assert.Equal(t, "degC", out.Unit)
		assert.Equal(t, 1, out.Len())
	})
}
