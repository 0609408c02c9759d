package dataset

import (
	"context"
	"fmt"
	"time"
)

// Grid describes a (time, lat, lon) model field without holding its values.
// Lons is the normalized [-180, 180) axis sorted ascending; LonPerm maps an
// index on that axis back to the storage index in the underlying file, which
// keeps the original [0, 360) order.
type Grid struct {
	Variable string
	Unit     string
	Times    []time.Time
	Lats     []float64
	Lons     []float64
	LonPerm  []int
}

// ColumnReader reads the values of a single grid cell for a half-open range
// of time indices [t0, t1). Indices are storage indices, so longitude lookups
// on the normalized axis must be translated through Grid.LonPerm first.
type ColumnReader interface {
	ReadColumn(ctx context.Context, t0, t1, latIdx, lonIdx int) ([]float64, error)
}

// GridHandle couples a grid description with lazy access to its values.
type GridHandle interface {
	Grid() Grid
	ColumnReader
	Close()
}

// NearestCell locates the grid cell closest to (lat, lon) and returns the
// storage indices to read. Longitude is matched on the normalized axis.
func (g Grid) NearestCell(lat, lon float64) (latIdx, lonIdx int, err error) {
	if len(g.Lats) == 0 || len(g.Lons) == 0 {
		return 0, 0, fmt.Errorf("grid %q has an empty spatial axis", g.Variable)
	}
	latIdx = NearestIndex(g.Lats, lat)
	li := NearestIndex(g.Lons, WrapLon(lon))
	lonIdx = li
	if len(g.LonPerm) == len(g.Lons) {
		lonIdx = g.LonPerm[li]
	}
	return latIdx, lonIdx, nil
}
