// Package integration wires the real adapters together against in-process
// HTTP fakes of the ESGF and ARM archives, leaving only NetCDF decoding
// stubbed out.
package integration

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tallgrasslabs/climatecompare/internal/adapter/arm"
	"github.com/tallgrasslabs/climatecompare/internal/adapter/chart"
	"github.com/tallgrasslabs/climatecompare/internal/adapter/download"
	"github.com/tallgrasslabs/climatecompare/internal/adapter/esgf"
	httpadapter "github.com/tallgrasslabs/climatecompare/internal/adapter/http"
	"github.com/tallgrasslabs/climatecompare/internal/dataset"
	"github.com/tallgrasslabs/climatecompare/internal/domain"
	"github.com/tallgrasslabs/climatecompare/internal/observability"
	"github.com/tallgrasslabs/climatecompare/internal/pipeline"
)

const granuleTitle = "tas_day_CESM2_historical_r1i1p1f1_gn_20130101-20141231.nc"

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeArchives serves an ESGF search endpoint, an ESGF data node, and an ARM
// Live endpoint from one httptest server.
func fakeArchives(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()

	var srvURL string
	mux.HandleFunc("/esg-search/search", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "File", r.URL.Query().Get("type"))
		fmt.Fprintf(w, `{"response":{"numFound":1,"docs":[{
			"id": "%s|data.example.org",
			"title": "%s",
			"variable_id": ["tas"],
			"url": ["%s/thredds/fileServer/%s|application/netcdf|HTTPServer"]
		}]}}`, granuleTitle, granuleTitle, srvURL, granuleTitle)
	})
	mux.HandleFunc("/thredds/fileServer/", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, "model-granule-bytes")
	})
	mux.HandleFunc("/armlive/data/query", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "alice:tok-123", r.URL.Query().Get("user"))
		fmt.Fprint(w, `{"status":"success","files":["sgpmetE13.b1.20130115.000000.cdf"]}`)
	})
	mux.HandleFunc("/armlive/data/saveData", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, "obs-granule-bytes")
	})

	srv := httptest.NewServer(mux)
	srvURL = srv.URL
	t.Cleanup(srv.Close)
	return srv
}

// stubGridHandle serves a constant K field over daily steps for 2013-2014.
type stubGridHandle struct {
	grid dataset.Grid
}

func newStubGridHandle() *stubGridHandle {
	var times []time.Time
	for t := time.Date(2013, 1, 1, 0, 0, 0, 0, time.UTC); t.Year() < 2015; t = t.AddDate(0, 0, 1) {
		times = append(times, t)
	}
	return &stubGridHandle{grid: dataset.Grid{
		Variable: "tas",
		Unit:     "K",
		Times:    times,
		Lats:     []float64{36.0},
		Lons:     []float64{-97.0},
		LonPerm:  []int{0},
	}}
}

func (s *stubGridHandle) Grid() dataset.Grid { return s.grid }

func (s *stubGridHandle) ReadColumn(_ context.Context, t0, t1, _, _ int) ([]float64, error) {
	vals := make([]float64, t1-t0)
	for i := range vals {
		vals[i] = 280.65
	}
	return vals, nil
}

func (s *stubGridHandle) Close() {}

func TestComparisonEndToEnd(t *testing.T) {
	archives := fakeArchives(t)
	dataDir := t.TempDir()
	outputPath := filepath.Join(t.TempDir(), "comparison.html")
	logger := testLogger()
	metrics := observability.NewMetricsForTesting()

	periodStart := time.Date(2013, 1, 1, 0, 0, 0, 0, time.UTC)
	periodEnd := time.Date(2014, 12, 31, 0, 0, 0, 0, time.UTC)
	site := domain.Site{Name: "SGP E13", Lat: 36.605, Lon: -97.485}

	searcher := esgf.NewCachedSearcher(
		esgf.NewClient(archives.URL+"/esg-search/search", 100, 5*time.Second, metrics, logger),
		10,
		metrics,
	)

	model := pipeline.NewModelSource(
		searcher,
		download.NewManager("esgf", 2, 5*time.Second, metrics, logger),
		func(path, variable string) (dataset.GridHandle, error) {
			assert.Equal(t, "tas", variable)
			assert.FileExists(t, path)
			return newStubGridHandle(), nil
		},
		pipeline.ModelSourceConfig{
			Query:       domain.CatalogQuery{SourceID: "CESM2", VariableID: "tas", Latest: true},
			Site:        site,
			PeriodStart: periodStart,
			PeriodEnd:   periodEnd,
			TargetUnit:  "degC",
			DataDir:     dataDir,
			ChunkLen:    120,
			Workers:     2,
		},
		logger,
	)

	obs := pipeline.NewObsSource(
		arm.NewClient(archives.URL+"/armlive/data", "alice", "tok-123", 5*time.Second, logger),
		download.NewManager("arm", 2, 5*time.Second, metrics, logger),
		func(path, variable string) (dataset.Series, error) {
			assert.Equal(t, "temp_mean", variable)
			assert.FileExists(t, path)
			s := dataset.Series{Name: "temp_mean", Unit: "degC"}
			base := time.Date(2013, 1, 15, 0, 0, 0, 0, time.UTC)
			for h := 0; h < 24; h++ {
				s.Times = append(s.Times, base.Add(time.Duration(h)*time.Hour))
				s.Values = append(s.Values, -2.5)
			}
			return s, nil
		},
		pipeline.ObsSourceConfig{
			Datastream:  "sgpmetE13.b1",
			Variable:    "temp_mean",
			PeriodStart: periodStart,
			PeriodEnd:   periodEnd,
			TargetUnit:  "degC",
			DataDir:     dataDir,
		},
		logger,
	)

	p := pipeline.New(model, obs, chart.NewRenderer(outputPath, logger), nil, domain.ComparisonMeta{
		Site:        site,
		Variable:    "tas",
		ModelLabel:  "CESM2 historical",
		ObsLabel:    "sgpmetE13.b1",
		PeriodStart: periodStart,
		PeriodEnd:   periodEnd,
	}, logger, metrics)

	srv := httpadapter.NewServer(":0", p, p, logger)

	// Not ready before the first run.
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	cmp, err := p.Run(context.Background())
	require.NoError(t, err)

	// 24 model months, obs only January 2013.
	require.Len(t, cmp.Points, 24)
	assert.Equal(t, "degC", cmp.Unit)
	require.NotNil(t, cmp.Points[0].Model)
	assert.InDelta(t, 7.5, *cmp.Points[0].Model, 1e-9)
	require.NotNil(t, cmp.Points[0].Obs)
	assert.InDelta(t, -2.5, *cmp.Points[0].Obs, 1e-9)
	assert.Nil(t, cmp.Points[1].Obs)

	// Granules landed under the data directory.
	assert.FileExists(t, filepath.Join(dataDir, "model", granuleTitle))
	assert.FileExists(t, filepath.Join(dataDir, "obs", "sgpmetE13.b1.20130115.000000.cdf"))

	// Chart artifact rendered.
	html, err := os.ReadFile(outputPath)
	require.NoError(t, err)
	assert.Contains(t, string(html), "sgpmetE13.b1")

	// Ready after a successful run; status reflects it.
	rec = httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/status", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"points":24`)

	// A second run reuses cached search results and cached granules.
	_, err = p.Run(context.Background())
	require.NoError(t, err)
}
