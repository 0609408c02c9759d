package dataset

import (
	"fmt"
	"strings"
)

// affine is a unit conversion of the form y = scale*x + offset.
type affine struct {
	scale  float64
	offset float64
}

// conversions maps (from, to) canonical unit pairs to their affine transform.
var conversions = map[[2]string]affine{
	{"K", "degC"}:    {1, -273.15},
	{"degC", "K"}:    {1, 273.15},
	{"K", "degF"}:    {1.8, -459.67},
	{"degF", "K"}:    {1.0 / 1.8, 255.372222},
	{"degC", "degF"}: {1.8, 32},
	{"degF", "degC"}: {1.0 / 1.8, -17.777778},
	{"Pa", "hPa"}:    {0.01, 0},
	{"hPa", "Pa"}:    {100, 0},
}

// unitAliases folds the spellings that appear in CF metadata onto canonical
// names: CMIP6 writes "K", ARM writes "degC" or "C", humans write "Celsius".
var unitAliases = map[string]string{
	"k":                  "K",
	"kelvin":             "K",
	"degc":               "degC",
	"deg_c":              "degC",
	"c":                  "degC",
	"celsius":            "degC",
	"degree_celsius":     "degC",
	"degrees_celsius":    "degC",
	"degf":               "degF",
	"f":                  "degF",
	"fahrenheit":         "degF",
	"degree_fahrenheit":  "degF",
	"degrees_fahrenheit": "degF",
	"pa":                 "Pa",
	"pascal":             "Pa",
	"hpa":                "hPa",
	"millibar":           "hPa",
	"mb":                 "hPa",
}

// CanonicalUnit normalizes a unit spelling, returning the input unchanged
// when it is not a known alias.
func CanonicalUnit(unit string) string {
	if c, ok := unitAliases[strings.ToLower(strings.TrimSpace(unit))]; ok {
		return c
	}
	return strings.TrimSpace(unit)
}

// ConvertUnit converts every sample of the series to the target unit.
// Converting a series already in the target unit is a no-op, which makes the
// operation idempotent. An unregistered unit pair is an error.
func ConvertUnit(s Series, target string) (Series, error) {
	from := CanonicalUnit(s.Unit)
	to := CanonicalUnit(target)
	if from == to {
		return s, nil
	}

	conv, ok := conversions[[2]string{from, to}]
	if !ok {
		return Series{}, fmt.Errorf("no registered conversion from %q to %q", s.Unit, target)
	}

	out := s.clone()
	out.Unit = to
	for i, v := range out.Values {
		out.Values[i] = conv.scale*v + conv.offset
	}
	return out, nil
}
