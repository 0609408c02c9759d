package netcdf

import (
	"fmt"
	"math"
	"regexp"
	"strings"
	"time"
)

// CF time axes encode timestamps as numeric offsets from a reference epoch,
// e.g. units "days since 1850-01-01" under a model calendar. CMIP6 models
// publish on real-world calendars as well as idealized ones: "noleap"
// (365-day years) and "360_day" (twelve 30-day months). Idealized-calendar
// dates are projected onto time.Time for alignment purposes; this keeps the
// month labels correct, which is all monthly resampling needs.

var unitsRe = regexp.MustCompile(`^\s*(\w+)\s+since\s+(.+?)\s*$`)

var unitSeconds = map[string]float64{
	"second":  1,
	"seconds": 1,
	"sec":     1,
	"secs":    1,
	"s":       1,
	"minute":  60,
	"minutes": 60,
	"min":     60,
	"mins":    60,
	"hour":    3600,
	"hours":   3600,
	"hr":      3600,
	"hrs":     3600,
	"h":       3600,
	"day":     86400,
	"days":    86400,
	"d":       86400,
}

var baseLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	// ARM writes unpadded reference dates like "seconds since 1970-1-1 0:00:00".
	"2006-1-2 15:4:5",
	"2006-1-2 15:4",
	"2006-1-2",
}

// timeCodec decodes CF numeric time offsets into time.Time values.
type timeCodec struct {
	stepSeconds float64
	base        time.Time
	calendar    string
}

// newTimeCodec parses a CF units string ("days since 1850-01-01 00:00:00")
// and calendar attribute into a decoder. An empty calendar means "standard".
func newTimeCodec(units, calendar string) (*timeCodec, error) {
	m := unitsRe.FindStringSubmatch(units)
	if m == nil {
		return nil, fmt.Errorf("unparseable time units %q", units)
	}

	step, ok := unitSeconds[strings.ToLower(m[1])]
	if !ok {
		return nil, fmt.Errorf("unsupported time unit %q", m[1])
	}

	base, err := parseBaseTime(m[2])
	if err != nil {
		return nil, err
	}

	cal := strings.ToLower(strings.TrimSpace(calendar))
	switch cal {
	case "", "standard", "gregorian", "proleptic_gregorian", "julian":
		cal = "standard"
	case "noleap", "365_day":
		cal = "noleap"
	case "all_leap", "366_day":
		cal = "all_leap"
	case "360_day":
		cal = "360_day"
	default:
		return nil, fmt.Errorf("unsupported calendar %q", calendar)
	}

	return &timeCodec{stepSeconds: step, base: base, calendar: cal}, nil
}

// parseBaseTime parses the reference date, tolerating a trailing timezone
// token like "0:00" or "UTC" that some archives append.
func parseBaseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	candidates := []string{s}
	if i := strings.LastIndex(s, " "); i > 0 {
		candidates = append(candidates, strings.TrimSpace(s[:i]))
	}
	for _, c := range candidates {
		for _, layout := range baseLayouts {
			if t, err := time.Parse(layout, c); err == nil {
				return t.UTC(), nil
			}
		}
	}
	return time.Time{}, fmt.Errorf("unparseable reference time %q", s)
}

// Decode converts every offset to a timestamp.
func (c *timeCodec) Decode(offsets []float64) []time.Time {
	out := make([]time.Time, len(offsets))
	for i, off := range offsets {
		out[i] = c.decodeOne(off)
	}
	return out
}

func (c *timeCodec) decodeOne(offset float64) time.Time {
	seconds := offset * c.stepSeconds
	switch c.calendar {
	case "standard":
		whole, frac := math.Modf(seconds)
		return c.base.Add(time.Duration(whole)*time.Second + time.Duration(frac*float64(time.Second)))
	case "noleap":
		return addFixedYearDays(c.base, seconds, cumDays365[:], 365)
	case "all_leap":
		return addFixedYearDays(c.base, seconds, cumDays366[:], 366)
	default: // 360_day
		return add360Days(c.base, seconds)
	}
}

var cumDays365 = [13]int{0, 31, 59, 90, 120, 151, 181, 212, 243, 273, 304, 334, 365}
var cumDays366 = [13]int{0, 31, 60, 91, 121, 152, 182, 213, 244, 274, 305, 335, 366}

// addFixedYearDays advances a date in a calendar where every year has the
// same length (noleap/all_leap). Dates are counted ordinally from year 0 so
// offsets spanning many model years stay exact.
func addFixedYearDays(base time.Time, seconds float64, cum []int, yearLen int) time.Time {
	days := int(math.Floor(seconds / 86400))
	rem := seconds - float64(days)*86400

	y, mo, d := base.Date()
	ordinal := y*yearLen + cum[int(mo)-1] + (d - 1) + days

	year := ordinal / yearLen
	doy := ordinal % yearLen
	if doy < 0 {
		doy += yearLen
		year--
	}
	month := 1
	for doy >= cum[month] {
		month++
	}
	day := doy - cum[month-1] + 1

	secOfDay := base.Hour()*3600 + base.Minute()*60 + base.Second() + int(rem)
	return time.Date(year, time.Month(month), day, 0, 0, secOfDay, 0, time.UTC)
}

// add360Days advances a date in the 360_day calendar (twelve 30-day months).
func add360Days(base time.Time, seconds float64) time.Time {
	days := int(math.Floor(seconds / 86400))
	rem := seconds - float64(days)*86400

	y, mo, d := base.Date()
	day := d
	if day > 30 {
		day = 30
	}
	ordinal := y*360 + (int(mo)-1)*30 + (day - 1) + days

	year := ordinal / 360
	doy := ordinal % 360
	if doy < 0 {
		doy += 360
		year--
	}
	month := doy/30 + 1
	dayOut := doy%30 + 1

	secOfDay := base.Hour()*3600 + base.Minute()*60 + base.Second() + int(rem)
	return time.Date(year, time.Month(month), dayOut, 0, 0, secOfDay, 0, time.UTC)
}
