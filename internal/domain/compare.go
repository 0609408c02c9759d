package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/tallgrasslabs/climatecompare/internal/dataset"
)

// ComparisonMeta carries the provenance fields of a comparison that do not
// come from the series themselves.
type ComparisonMeta struct {
	Site        Site
	Variable    string
	ModelLabel  string
	ObsLabel    string
	PeriodStart time.Time
	PeriodEnd   time.Time
}

// BuildComparison joins two monthly series on their month labels. Months
// present on only one side keep a nil value on the other, so the output spans
// the union of both series. NaN samples are treated as missing. The two
// series must share a unit; alignment across units is a caller bug, not a
// data condition.
func BuildComparison(model, obs dataset.Series, meta ComparisonMeta) (Comparison, error) {
	mu, ou := dataset.CanonicalUnit(model.Unit), dataset.CanonicalUnit(obs.Unit)
	if mu != ou {
		return Comparison{}, fmt.Errorf("unit mismatch: model %q vs obs %q", model.Unit, obs.Unit)
	}

	byMonth := map[time.Time]*MonthlyPoint{}
	for i, t := range model.Times {
		p := pointAt(byMonth, t)
		p.Model = finiteOrNil(model.Values[i])
	}
	for i, t := range obs.Times {
		p := pointAt(byMonth, t)
		p.Obs = finiteOrNil(obs.Values[i])
	}

	points := make([]MonthlyPoint, 0, len(byMonth))
	for _, p := range byMonth {
		points = append(points, *p)
	}
	sort.Slice(points, func(a, b int) bool { return points[a].Month.Before(points[b].Month) })

	return Comparison{
		ID:          generateID(meta),
		Site:        meta.Site,
		Variable:    meta.Variable,
		Unit:        mu,
		ModelLabel:  meta.ModelLabel,
		ObsLabel:    meta.ObsLabel,
		PeriodStart: meta.PeriodStart,
		PeriodEnd:   meta.PeriodEnd,
		Points:      points,
		GeneratedAt: clock.Now().UTC(),
	}, nil
}

func pointAt(byMonth map[time.Time]*MonthlyPoint, t time.Time) *MonthlyPoint {
	month := t.UTC()
	if p, ok := byMonth[month]; ok {
		return p
	}
	p := &MonthlyPoint{Month: month}
	byMonth[month] = p
	return p
}

func finiteOrNil(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

// generateID produces a deterministic ID from the comparison's provenance.
// Re-running the same configuration yields the same ID, enabling idempotent
// upserts downstream.
func generateID(meta ComparisonMeta) string {
	input := fmt.Sprintf("%s|%s|%s|%s|%s",
		meta.ModelLabel, meta.Variable, meta.ObsLabel,
		meta.PeriodStart.UTC().Format("2006-01-02"), meta.PeriodEnd.UTC().Format("2006-01-02"))
	hash := sha256.Sum256([]byte(input))
	return "cmp-" + hex.EncodeToString(hash[:8])
}
