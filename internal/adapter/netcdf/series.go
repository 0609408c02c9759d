package netcdf

import (
	"fmt"

	gonetcdf "github.com/batchatco/go-native-netcdf/netcdf"
	"github.com/batchatco/go-native-netcdf/netcdf/api"

	"github.com/tallgrasslabs/climatecompare/internal/dataset"
)

// OpenSeries reads a 1-D time-indexed variable from an observational granule.
// Observation files are small enough to materialize whole, unlike model
// grids.
func OpenSeries(path, variable string) (dataset.Series, error) {
	group, err := gonetcdf.Open(path)
	if err != nil {
		return dataset.Series{}, fmt.Errorf("open granule %s: %w", path, err)
	}
	defer group.Close()

	s, err := NewSeriesFromGroup(group, variable)
	if err != nil {
		return dataset.Series{}, fmt.Errorf("granule %s: %w", path, err)
	}
	return s, nil
}

// NewSeriesFromGroup reads the variable out of an already-open group. Split
// from OpenSeries so tests can feed in an in-memory api.Group.
func NewSeriesFromGroup(group api.Group, variable string) (dataset.Series, error) {
	vg, err := group.GetVarGetter(variable)
	if err != nil {
		return dataset.Series{}, fmt.Errorf("variable %q: %w", variable, err)
	}

	dims := vg.Dimensions()
	if len(dims) != 1 {
		return dataset.Series{}, fmt.Errorf("variable %q has dimensions %v, want (time)", variable, dims)
	}

	times, err := readTimeAxis(group, dims[0])
	if err != nil {
		return dataset.Series{}, err
	}

	raw, err := vg.Values()
	if err != nil {
		return dataset.Series{}, fmt.Errorf("variable %q: %w", variable, err)
	}
	values, err := toFloat64s(raw)
	if err != nil {
		return dataset.Series{}, fmt.Errorf("variable %q: %w", variable, err)
	}
	if len(values) != len(times) {
		return dataset.Series{}, fmt.Errorf("variable %q: %d values but %d timestamps", variable, len(values), len(times))
	}

	p := readPacking(vg.Attributes())
	for i, v := range values {
		values[i] = p.unpack(v)
	}

	return dataset.Series{
		Name:   variable,
		Unit:   attrString(vg.Attributes(), "units"),
		Times:  times,
		Values: values,
	}, nil
}
