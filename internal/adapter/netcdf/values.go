package netcdf

import (
	"fmt"

	"github.com/batchatco/go-native-netcdf/netcdf/api"
)

// The pure-Go reader hands back values as typed slices matching the on-disk
// storage type. These helpers coerce the storage types that appear in CMIP6
// and ARM granules to float64.

func toFloat64s(v interface{}) ([]float64, error) {
	switch vals := v.(type) {
	case []float64:
		return vals, nil
	case []float32:
		out := make([]float64, len(vals))
		for i, x := range vals {
			out[i] = float64(x)
		}
		return out, nil
	case []int64:
		out := make([]float64, len(vals))
		for i, x := range vals {
			out[i] = float64(x)
		}
		return out, nil
	case []int32:
		out := make([]float64, len(vals))
		for i, x := range vals {
			out[i] = float64(x)
		}
		return out, nil
	case []int16:
		out := make([]float64, len(vals))
		for i, x := range vals {
			out[i] = float64(x)
		}
		return out, nil
	case []int8:
		out := make([]float64, len(vals))
		for i, x := range vals {
			out[i] = float64(x)
		}
		return out, nil
	case []uint8:
		out := make([]float64, len(vals))
		for i, x := range vals {
			out[i] = float64(x)
		}
		return out, nil
	case float64:
		return []float64{vals}, nil
	case float32:
		return []float64{float64(vals)}, nil
	case int32:
		return []float64{float64(vals)}, nil
	default:
		return nil, fmt.Errorf("unsupported storage type %T", v)
	}
}

// cellAt extracts value[t][latIdx][lonIdx] for every timestep of a 3-D chunk.
func cellAt(v interface{}, latIdx, lonIdx int) ([]float64, error) {
	switch vals := v.(type) {
	case [][][]float64:
		out := make([]float64, len(vals))
		for t := range vals {
			out[t] = vals[t][latIdx][lonIdx]
		}
		return out, nil
	case [][][]float32:
		out := make([]float64, len(vals))
		for t := range vals {
			out[t] = float64(vals[t][latIdx][lonIdx])
		}
		return out, nil
	case [][][]int32:
		out := make([]float64, len(vals))
		for t := range vals {
			out[t] = float64(vals[t][latIdx][lonIdx])
		}
		return out, nil
	case [][][]int16:
		out := make([]float64, len(vals))
		for t := range vals {
			out[t] = float64(vals[t][latIdx][lonIdx])
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unsupported field storage type %T", v)
	}
}

func attrString(am api.AttributeMap, key string) string {
	if am == nil {
		return ""
	}
	v, ok := am.Get(key)
	if !ok {
		return ""
	}
	switch s := v.(type) {
	case string:
		return s
	case []string:
		if len(s) > 0 {
			return s[0]
		}
	}
	return ""
}

func attrFloat(am api.AttributeMap, key string) (float64, bool) {
	if am == nil {
		return 0, false
	}
	v, ok := am.Get(key)
	if !ok {
		return 0, false
	}
	vals, err := toFloat64s(v)
	if err != nil || len(vals) == 0 {
		return 0, false
	}
	return vals[0], true
}
