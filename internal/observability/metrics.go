package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the
// comparison pipeline.
type Metrics struct {
	RunsTotal     *prometheus.CounterVec // labels: outcome={success,error}
	RunDuration   prometheus.Histogram
	StageDuration *prometheus.HistogramVec // labels: stage={search,model,obs,align,render,publish}
	PipelineReady prometheus.Gauge

	// Catalog search metrics.
	SearchRequests *prometheus.CounterVec // labels: outcome={success,error,empty}
	SearchCache    *prometheus.CounterVec // labels: result={hit,miss}

	// Granule transfer metrics.
	Downloads        *prometheus.CounterVec // labels: source={esgf,arm}, outcome={success,error,cached}
	DownloadBytes    *prometheus.CounterVec // labels: source={esgf,arm}
	DownloadDuration *prometheus.HistogramVec

	// Lazy-read metrics.
	ChunkReads prometheus.Counter

	// Output metrics.
	ComparisonPoints prometheus.Gauge
	PointsPublished  prometheus.Counter
}

// NewMetrics creates and registers all pipeline metrics with the default
// Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.RunsTotal,
		m.RunDuration,
		m.StageDuration,
		m.PipelineReady,
		m.SearchRequests,
		m.SearchCache,
		m.Downloads,
		m.DownloadBytes,
		m.DownloadDuration,
		m.ChunkReads,
		m.ComparisonPoints,
		m.PointsPublished,
	)
	return m
}

// NewMetricsForTesting creates Metrics without registering them, avoiding
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		RunsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "climatecompare",
			Name:      "runs_total",
			Help:      "Comparison runs by outcome.",
		}, []string{"outcome"}),
		RunDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "climatecompare",
			Name:      "run_duration_seconds",
			Help:      "Duration of a complete comparison run.",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600, 1800},
		}),
		StageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "climatecompare",
			Name:      "stage_duration_seconds",
			Help:      "Duration of each pipeline stage.",
			Buckets:   []float64{0.1, 0.5, 1, 5, 15, 30, 60, 120, 300},
		}, []string{"stage"}),
		PipelineReady: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "climatecompare",
			Name:      "pipeline_ready",
			Help:      "1 after the first successful comparison run.",
		}),
		SearchRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "climatecompare",
			Name:      "search_requests_total",
			Help:      "Federated search requests by outcome.",
		}, []string{"outcome"}),
		SearchCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "climatecompare",
			Name:      "search_cache_total",
			Help:      "Search cache lookups by result.",
		}, []string{"result"}),
		Downloads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "climatecompare",
			Name:      "downloads_total",
			Help:      "Granule downloads by source and outcome.",
		}, []string{"source", "outcome"}),
		DownloadBytes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "climatecompare",
			Name:      "download_bytes_total",
			Help:      "Bytes downloaded per source.",
		}, []string{"source"}),
		DownloadDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "climatecompare",
			Name:      "download_duration_seconds",
			Help:      "Duration of individual granule downloads.",
			Buckets:   []float64{0.5, 1, 5, 15, 30, 60, 120, 300},
		}, []string{"source"}),
		ChunkReads: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "climatecompare",
			Name:      "chunk_reads_total",
			Help:      "Lazy chunk reads triggered against NetCDF granules.",
		}),
		ComparisonPoints: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "climatecompare",
			Name:      "comparison_points",
			Help:      "Number of monthly points in the last comparison.",
		}),
		PointsPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "climatecompare",
			Name:      "points_published_total",
			Help:      "Monthly comparison points published to the Kafka sink.",
		}),
	}
}
