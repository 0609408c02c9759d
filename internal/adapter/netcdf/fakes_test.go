package netcdf

import (
	"fmt"

	"github.com/batchatco/go-native-netcdf/netcdf/api"
)

// In-memory stand-ins for the pure-Go reader's interfaces so the adapter can
// be tested without writing NetCDF bytes to disk.

type fakeAttrs map[string]interface{}

func (a fakeAttrs) Keys() []string {
	keys := make([]string, 0, len(a))
	for k := range a {
		keys = append(keys, k)
	}
	return keys
}

func (a fakeAttrs) Get(key string) (interface{}, bool) {
	v, ok := a[key]
	return v, ok
}

func (a fakeAttrs) GetType(string) (string, bool)   { return "", false }
func (a fakeAttrs) GetGoType(string) (string, bool) { return "", false }

type fakeVar struct {
	values interface{}
	dims   []string
	attrs  fakeAttrs
	err    error
}

func (v *fakeVar) Len() int64 {
	switch vals := v.values.(type) {
	case []float64:
		return int64(len(vals))
	case []float32:
		return int64(len(vals))
	case [][][]float32:
		return int64(len(vals))
	default:
		return 1
	}
}

func (v *fakeVar) Values() (interface{}, error) {
	if v.err != nil {
		return nil, v.err
	}
	return v.values, nil
}

func (v *fakeVar) GetSlice(begin, end int64) (interface{}, error) {
	if v.err != nil {
		return nil, v.err
	}
	switch vals := v.values.(type) {
	case [][][]float32:
		return vals[begin:end], nil
	case []float64:
		return vals[begin:end], nil
	default:
		return nil, fmt.Errorf("fake GetSlice: unsupported type %T", v.values)
	}
}

func (v *fakeVar) Dimensions() []string         { return v.dims }
func (v *fakeVar) Attributes() api.AttributeMap { return v.attrs }
func (v *fakeVar) Type() string                 { return "" }
func (v *fakeVar) GoType() string               { return "" }

type fakeGroup struct {
	vars   map[string]*fakeVar
	closed bool
}

func (g *fakeGroup) Close()                      { g.closed = true }
func (g *fakeGroup) Attributes() api.AttributeMap { return fakeAttrs{} }

func (g *fakeGroup) ListVariables() []string {
	names := make([]string, 0, len(g.vars))
	for name := range g.vars {
		names = append(names, name)
	}
	return names
}

func (g *fakeGroup) GetVariable(name string) (*api.Variable, error) {
	v, err := g.GetVarGetter(name)
	if err != nil {
		return nil, err
	}
	values, err := v.Values()
	if err != nil {
		return nil, err
	}
	return &api.Variable{Values: values, Dimensions: v.Dimensions(), Attributes: v.Attributes()}, nil
}

func (g *fakeGroup) GetVarGetter(name string) (api.VarGetter, error) {
	v, ok := g.vars[name]
	if !ok {
		return nil, fmt.Errorf("no variable %q", name)
	}
	return v, nil
}

func (g *fakeGroup) ListSubgroups() []string            { return nil }
func (g *fakeGroup) ListDimensions() []string           { return nil }
func (g *fakeGroup) GetDimension(string) (uint64, bool) { return 0, false }
func (g *fakeGroup) GetGroup(string) (api.Group, error) { return nil, fmt.Errorf("no subgroups") }
func (g *fakeGroup) ListTypes() []string                { return nil }
func (g *fakeGroup) GetType(string) (string, bool)      { return "", false }
func (g *fakeGroup) GetGoType(string) (string, bool)    { return "", false }
