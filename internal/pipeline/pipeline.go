// Package pipeline orchestrates one comparison run: fetch the model series,
// fetch the observation series, align them, render the chart, and optionally
// publish the result.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/tallgrasslabs/climatecompare/internal/dataset"
	"github.com/tallgrasslabs/climatecompare/internal/domain"
	"github.com/tallgrasslabs/climatecompare/internal/observability"
)

// SeriesSource produces one side of the comparison as a monthly series in
// the target unit.
type SeriesSource interface {
	Fetch(ctx context.Context) (dataset.Series, error)
}

// Renderer writes the comparison artifact.
type Renderer interface {
	Render(cmp domain.Comparison) error
}

// Publisher delivers the comparison to downstream consumers.
type Publisher interface {
	PublishComparison(ctx context.Context, cmp domain.Comparison) error
}

// RunStatus summarizes the most recent run for the ops surface.
type RunStatus struct {
	LastRun      time.Time `json:"last_run,omitzero"`
	LastError    string    `json:"last_error,omitempty"`
	LastDuration string    `json:"last_duration,omitempty"`
	Points       int       `json:"points"`
}

// Pipeline runs the compare-render-publish sequence.
type Pipeline struct {
	model     SeriesSource
	obs       SeriesSource
	renderer  Renderer
	publisher Publisher // nil disables publishing
	meta      domain.ComparisonMeta
	logger    *slog.Logger
	metrics   *observability.Metrics

	ready  atomic.Bool
	mu     sync.Mutex
	status RunStatus
}

// New creates a Pipeline. Pass a nil publisher to disable the Kafka sink.
func New(model, obs SeriesSource, renderer Renderer, publisher Publisher, meta domain.ComparisonMeta, logger *slog.Logger, metrics *observability.Metrics) *Pipeline {
	return &Pipeline{
		model:     model,
		obs:       obs,
		renderer:  renderer,
		publisher: publisher,
		meta:      meta,
		logger:    logger,
		metrics:   metrics,
	}
}

// CheckReadiness returns nil once a comparison run has completed
// successfully, or an error describing why the service is not yet ready.
func (p *Pipeline) CheckReadiness(_ context.Context) error {
	if !p.ready.Load() {
		return errors.New("no comparison run has completed yet")
	}
	return nil
}

// Status returns a snapshot of the last run.
func (p *Pipeline) Status() RunStatus {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.status
}

// Run executes one full comparison. Any stage failure aborts the run and is
// returned to the caller; there is no partial output beyond granules already
// cached on disk.
func (p *Pipeline) Run(ctx context.Context) (domain.Comparison, error) {
	start := time.Now()

	cmp, err := p.run(ctx)

	elapsed := time.Since(start)
	p.mu.Lock()
	p.status = RunStatus{
		LastRun:      start.UTC(),
		LastDuration: elapsed.Round(time.Millisecond).String(),
		Points:       len(cmp.Points),
	}
	if err != nil {
		p.status.LastError = err.Error()
	}
	p.mu.Unlock()

	if err != nil {
		p.metrics.RunsTotal.WithLabelValues("error").Inc()
		return domain.Comparison{}, err
	}

	p.metrics.RunsTotal.WithLabelValues("success").Inc()
	p.metrics.RunDuration.Observe(elapsed.Seconds())
	p.ready.Store(true)
	p.metrics.PipelineReady.Set(1)
	p.logger.Info("comparison run complete", "id", cmp.ID, "points", len(cmp.Points), "duration", elapsed.Round(time.Millisecond))
	return cmp, nil
}

func (p *Pipeline) run(ctx context.Context) (domain.Comparison, error) {
	model, err := p.timedFetch(ctx, "model", p.model)
	if err != nil {
		return domain.Comparison{}, fmt.Errorf("model series: %w", err)
	}

	obs, err := p.timedFetch(ctx, "obs", p.obs)
	if err != nil {
		return domain.Comparison{}, fmt.Errorf("observation series: %w", err)
	}

	alignStart := time.Now()
	cmp, err := domain.BuildComparison(model, obs, p.meta)
	if err != nil {
		return domain.Comparison{}, fmt.Errorf("align series: %w", err)
	}
	p.metrics.StageDuration.WithLabelValues("align").Observe(time.Since(alignStart).Seconds())
	p.metrics.ComparisonPoints.Set(float64(len(cmp.Points)))

	renderStart := time.Now()
	if err := p.renderer.Render(cmp); err != nil {
		return domain.Comparison{}, fmt.Errorf("render: %w", err)
	}
	p.metrics.StageDuration.WithLabelValues("render").Observe(time.Since(renderStart).Seconds())

	if p.publisher != nil {
		publishStart := time.Now()
		if err := p.publisher.PublishComparison(ctx, cmp); err != nil {
			return domain.Comparison{}, fmt.Errorf("publish: %w", err)
		}
		p.metrics.StageDuration.WithLabelValues("publish").Observe(time.Since(publishStart).Seconds())
		p.metrics.PointsPublished.Add(float64(len(cmp.Points)))
	}

	return cmp, nil
}

func (p *Pipeline) timedFetch(ctx context.Context, stage string, src SeriesSource) (dataset.Series, error) {
	start := time.Now()
	s, err := src.Fetch(ctx)
	if err != nil {
		return dataset.Series{}, err
	}
	p.metrics.StageDuration.WithLabelValues(stage).Observe(time.Since(start).Seconds())
	return s, nil
}
