package domain

import (
	"fmt"
	"strings"
	"time"
)

// Site is a ground observation location.
type Site struct {
	Name string  `json:"name"`
	Lat  float64 `json:"lat"`
	Lon  float64 `json:"lon"`
}

// CatalogQuery selects CMIP6 granules from a federated search node.
// Zero-valued fields are omitted from the search constraints.
type CatalogQuery struct {
	Project      string
	SourceID     string
	ExperimentID string
	VariableID   string
	Frequency    string
	VariantLabel string
	Latest       bool
	Replica      *bool
}

// Key returns a canonical representation of the query, used as a cache key.
func (q CatalogQuery) Key() string {
	replica := "any"
	if q.Replica != nil {
		replica = fmt.Sprintf("%t", *q.Replica)
	}
	return strings.Join([]string{
		q.Project, q.SourceID, q.ExperimentID, q.VariableID,
		q.Frequency, q.VariantLabel, fmt.Sprintf("%t", q.Latest), replica,
	}, "|")
}

// GranuleRecord is one file-level hit from a catalog search.
type GranuleRecord struct {
	ID         string
	Title      string
	DatasetID  string
	Variable   string
	Size       int64
	Checksum   string
	AccessURLs map[string]string // service name (e.g. "HTTPServer", "OPENDAP") → URL
}

// URLFor returns the access URL for a service, or "" when the granule does
// not advertise it.
func (g GranuleRecord) URLFor(service string) string {
	return g.AccessURLs[service]
}

// MonthlyPoint is one joined month of the comparison. A nil value means that
// side had no samples for the month.
type MonthlyPoint struct {
	Month time.Time `json:"month"`
	Model *float64  `json:"model,omitempty"`
	Obs   *float64  `json:"obs,omitempty"`
}

// Comparison is the aligned monthly model-vs-observation result.
type Comparison struct {
	ID          string         `json:"id"`
	Site        Site           `json:"site"`
	Variable    string         `json:"variable"`
	Unit        string         `json:"unit"`
	ModelLabel  string         `json:"model_label"`  // e.g. "CESM2 historical r1i1p1f1"
	ObsLabel    string         `json:"obs_label"`    // ARM datastream, e.g. "sgpmetE13.b1"
	PeriodStart time.Time      `json:"period_start"`
	PeriodEnd   time.Time      `json:"period_end"`
	Points      []MonthlyPoint `json:"points"`
	GeneratedAt time.Time      `json:"generated_at"`
}
