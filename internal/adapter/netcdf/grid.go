// Package netcdf adapts CF-conventional NetCDF granules, read through the
// pure-Go reader, to the dataset types. The data variable is never
// materialized whole: GridFile satisfies dataset.GridHandle and reads
// per-cell chunks on demand.
package netcdf

import (
	"context"
	"fmt"
	"math"
	"time"

	gonetcdf "github.com/batchatco/go-native-netcdf/netcdf"
	"github.com/batchatco/go-native-netcdf/netcdf/api"

	"github.com/tallgrasslabs/climatecompare/internal/dataset"
	"github.com/tallgrasslabs/climatecompare/internal/observability"
)

// GridFile is a lazy handle on a (time, lat, lon) model field.
type GridFile struct {
	group   api.Group
	field   api.VarGetter
	grid    dataset.Grid
	packing packing
	metrics *observability.Metrics
}

// packing holds CF packed-data attributes: stored = (physical - offset)/scale.
type packing struct {
	scale   float64
	offset  float64
	fill    float64
	hasFill bool
}

func (p packing) unpack(v float64) float64 {
	if p.hasFill && v == p.fill {
		return math.NaN()
	}
	return v*p.scale + p.offset
}

// OpenGrid opens a granule file and binds its named data variable.
func OpenGrid(path, variable string, metrics *observability.Metrics) (*GridFile, error) {
	group, err := gonetcdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open granule %s: %w", path, err)
	}
	gf, err := NewGridFile(group, variable, metrics)
	if err != nil {
		group.Close()
		return nil, fmt.Errorf("granule %s: %w", path, err)
	}
	return gf, nil
}

// NewGridFile binds a data variable inside an already-open group. Split from
// OpenGrid so tests can feed in an in-memory api.Group.
func NewGridFile(group api.Group, variable string, metrics *observability.Metrics) (*GridFile, error) {
	field, err := group.GetVarGetter(variable)
	if err != nil {
		return nil, fmt.Errorf("variable %q: %w", variable, err)
	}

	dims := field.Dimensions()
	if len(dims) != 3 {
		return nil, fmt.Errorf("variable %q has dimensions %v, want (time, lat, lon)", variable, dims)
	}

	times, err := readTimeAxis(group, dims[0])
	if err != nil {
		return nil, err
	}
	lats, err := readCoordAxis(group, dims[1])
	if err != nil {
		return nil, err
	}
	lons, err := readCoordAxis(group, dims[2])
	if err != nil {
		return nil, err
	}

	normalized, perm := dataset.NormalizeLonAxis(lons)

	return &GridFile{
		group:   group,
		field:   field,
		metrics: metrics,
		grid: dataset.Grid{
			Variable: variable,
			Unit:     attrString(field.Attributes(), "units"),
			Times:    times,
			Lats:     lats,
			Lons:     normalized,
			LonPerm:  perm,
		},
		packing: readPacking(field.Attributes()),
	}, nil
}

// Grid returns the field description with the normalized longitude axis.
func (f *GridFile) Grid() dataset.Grid { return f.grid }

// ReadColumn reads one grid cell for time indices [t0, t1). The underlying
// slice read covers the whole (lat, lon) plane per timestep, which is the
// finest granularity the storage layout offers; only the requested cell is
// kept.
func (f *GridFile) ReadColumn(ctx context.Context, t0, t1, latIdx, lonIdx int) ([]float64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if t0 < 0 || t1 > len(f.grid.Times) || t0 >= t1 {
		return nil, fmt.Errorf("chunk [%d,%d) out of range [0,%d)", t0, t1, len(f.grid.Times))
	}

	raw, err := f.field.GetSlice(int64(t0), int64(t1))
	if err != nil {
		return nil, fmt.Errorf("read %q slice [%d,%d): %w", f.grid.Variable, t0, t1, err)
	}
	if f.metrics != nil {
		f.metrics.ChunkReads.Inc()
	}

	vals, err := cellAt(raw, latIdx, lonIdx)
	if err != nil {
		return nil, err
	}
	for i, v := range vals {
		vals[i] = f.packing.unpack(v)
	}
	return vals, nil
}

// Close releases the underlying file.
func (f *GridFile) Close() { f.group.Close() }

func readTimeAxis(group api.Group, name string) ([]time.Time, error) {
	vg, err := group.GetVarGetter(name)
	if err != nil {
		return nil, fmt.Errorf("time axis %q: %w", name, err)
	}
	raw, err := vg.Values()
	if err != nil {
		return nil, fmt.Errorf("time axis %q: %w", name, err)
	}
	offsets, err := toFloat64s(raw)
	if err != nil {
		return nil, fmt.Errorf("time axis %q: %w", name, err)
	}

	attrs := vg.Attributes()
	codec, err := newTimeCodec(attrString(attrs, "units"), attrString(attrs, "calendar"))
	if err != nil {
		return nil, fmt.Errorf("time axis %q: %w", name, err)
	}
	return codec.Decode(offsets), nil
}

func readCoordAxis(group api.Group, name string) ([]float64, error) {
	vg, err := group.GetVarGetter(name)
	if err != nil {
		return nil, fmt.Errorf("coordinate axis %q: %w", name, err)
	}
	raw, err := vg.Values()
	if err != nil {
		return nil, fmt.Errorf("coordinate axis %q: %w", name, err)
	}
	vals, err := toFloat64s(raw)
	if err != nil {
		return nil, fmt.Errorf("coordinate axis %q: %w", name, err)
	}
	return vals, nil
}

func readPacking(attrs api.AttributeMap) packing {
	p := packing{scale: 1}
	if v, ok := attrFloat(attrs, "scale_factor"); ok {
		p.scale = v
	}
	if v, ok := attrFloat(attrs, "add_offset"); ok {
		p.offset = v
	}
	if v, ok := attrFloat(attrs, "_FillValue"); ok {
		p.fill, p.hasFill = v, true
	} else if v, ok := attrFloat(attrs, "missing_value"); ok {
		p.fill, p.hasFill = v, true
	}
	return p
}
