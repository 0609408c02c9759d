package dataset

import (
	"math"
	"sort"
)

// WrapLon maps a degree longitude into the [-180, 180) convention.
// CMIP6 model grids are published on a [0, 360) axis; ground sites are
// conventionally located with signed longitudes.
func WrapLon(lon float64) float64 {
	wrapped := math.Mod(lon+180.0, 360.0)
	if wrapped < 0 {
		wrapped += 360.0
	}
	return wrapped - 180.0
}

// NormalizeLonAxis remaps every longitude with WrapLon and returns the axis
// sorted ascending together with a permutation: perm[i] is the index in the
// original axis of the i-th sorted coordinate. Callers use the permutation to
// translate a lookup on the normalized axis back into a read index on the
// underlying storage, which stays in file order.
func NormalizeLonAxis(lons []float64) (sorted []float64, perm []int) {
	sorted = make([]float64, len(lons))
	perm = make([]int, len(lons))
	for i, lon := range lons {
		sorted[i] = WrapLon(lon)
		perm[i] = i
	}
	sort.SliceStable(perm, func(a, b int) bool {
		return WrapLon(lons[perm[a]]) < WrapLon(lons[perm[b]])
	})
	sort.Float64s(sorted)
	return sorted, perm
}

// NearestIndex returns the index of the coordinate closest to target.
// Coordinates must be sorted ascending. Ties break toward the lower index.
func NearestIndex(coords []float64, target float64) int {
	if len(coords) == 0 {
		return -1
	}
	i := sort.SearchFloat64s(coords, target)
	if i == 0 {
		return 0
	}
	if i == len(coords) {
		return len(coords) - 1
	}
	if math.Abs(coords[i-1]-target) <= math.Abs(coords[i]-target) {
		return i - 1
	}
	return i
}
