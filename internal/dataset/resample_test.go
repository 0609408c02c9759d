package dataset

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMonthlyMean(t *testing.T) {
	t.Run("one point per calendar month", func(t *testing.T) {
		s := Series{
			Name: "tas",
			Unit: "K",
			Times: []time.Time{
				day(2013, 1, 1), day(2013, 1, 15), day(2013, 1, 31),
				day(2013, 2, 1), day(2013, 2, 28),
			},
			Values: []float64{270, 272, 274, 280, 282},
		}

		out := MonthlyMean(s)

		require.Equal(t, 2, out.Len())
		assert.Equal(t, day(2013, 1, 1), out.Times[0])
		assert.Equal(t, day(2013, 2, 1), out.Times[1])
		assert.InDelta(t, 272, out.Values[0], 1e-9)
		assert.InDelta(t, 281, out.Values[1], 1e-9)
		assert.Equal(t, "K", out.Unit)
	})

	t.Run("unsorted input", func(t *testing.T) {
		s := Series{
			Times:  []time.Time{day(2013, 2, 1), day(2013, 1, 1), day(2013, 2, 10)},
			Values: []float64{4, 1, 6},
		}

		out := MonthlyMean(s)

		require.Equal(t, 2, out.Len())
		assert.InDelta(t, 1, out.Values[0], 1e-9)
		assert.InDelta(t, 5, out.Values[1], 1e-9)
	})

	t.Run("interior month without samples yields NaN", func(t *testing.T) {
		s := Series{
			Times:  []time.Time{day(2013, 1, 1), day(2013, 3, 1)},
			Values: []float64{1, 3},
		}

		out := MonthlyMean(s)

		require.Equal(t, 3, out.Len())
		assert.Equal(t, day(2013, 1, 1), out.Times[0])
		assert.Equal(t, day(2013, 2, 1), out.Times[1])
		assert.Equal(t, day(2013, 3, 1), out.Times[2])
		assert.InDelta(t, 1, out.Values[0], 1e-9)
		assert.True(t, math.IsNaN(out.Values[1]))
		assert.InDelta(t, 3, out.Values[2], 1e-9)
	})

	t.Run("no month skipped across a year boundary", func(t *testing.T) {
		s := Series{
			Times:  []time.Time{day(2012, 12, 10), day(2013, 2, 10)},
			Values: []float64{5, 7},
		}

		out := MonthlyMean(s)

		require.Equal(t, 3, out.Len())
		assert.Equal(t, day(2013, 1, 1), out.Times[1])
		assert.True(t, math.IsNaN(out.Values[1]))
	})

	t.Run("NaN samples are ignored", func(t *testing.T) {
		s := Series{
			Times:  []time.Time{day(2013, 1, 1), day(2013, 1, 2), day(2013, 1, 3)},
			Values: []float64{10, math.NaN(), 20},
		}

		out := MonthlyMean(s)

		require.Equal(t, 1, out.Len())
		assert.InDelta(t, 15, out.Values[0], 1e-9)
	})

	t.Run("all-NaN month yields NaN", func(t *testing.T) {
		s := Series{
			Times:  []time.Time{day(2013, 1, 1), day(2013, 1, 2)},
			Values: []float64{math.NaN(), math.NaN()},
		}

		out := MonthlyMean(s)

		require.Equal(t, 1, out.Len())
		assert.True(t, math.IsNaN(out.Values[0]))
	})

	t.Run("empty series", func(t *testing.T) {
		out := MonthlyMean(Series{Name: "tas", Unit: "K"})
		assert.Zero(t, out.Len())
		assert.Equal(t, "K", out.Unit)
	})

	t.Run("sub-daily timestamps collapse to month start", func(t *testing.T) {
		s := Series{
			Times: []time.Time{
				time.Date(2013, 1, 5, 13, 30, 0, 0, time.UTC),
				time.Date(2013, 1, 20, 1, 0, 0, 0, time.UTC),
			},
			Values: []float64{2, 4},
		}

		out := MonthlyMean(s)

		require.Equal(t, 1, out.Len())
		assert.Equal(t, day(2013, 1, 1), out.Times[0])
		assert.InDelta(t, 3, out.Values[0], 1e-9)
	})
}
