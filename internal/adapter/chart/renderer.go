// Package chart renders a comparison as an interactive HTML line chart.
package chart

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/tallgrasslabs/climatecompare/internal/domain"
)

// Renderer writes the model-vs-observation overlay to an HTML file.
// It implements pipeline.Renderer.
type Renderer struct {
	outputPath string
	logger     *slog.Logger
}

// NewRenderer creates a renderer targeting the given output path.
func NewRenderer(outputPath string, logger *slog.Logger) *Renderer {
	return &Renderer{outputPath: outputPath, logger: logger}
}

// Render writes the chart, replacing any previous artifact atomically.
func (r *Renderer) Render(cmp domain.Comparison) error {
	tmp, err := os.CreateTemp(filepath.Dir(r.outputPath), filepath.Base(r.outputPath)+".tmp-*")
	if err != nil {
		return fmt.Errorf("render chart: %w", err)
	}
	defer os.Remove(tmp.Name())

	err = WriteChart(cmp, tmp)
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return fmt.Errorf("render chart: %w", err)
	}
	if err := os.Rename(tmp.Name(), r.outputPath); err != nil {
		return fmt.Errorf("render chart: %w", err)
	}

	r.logger.Info("chart rendered", "path", r.outputPath, "points", len(cmp.Points))
	return nil
}

// WriteChart renders the overlay chart to any writer.
func WriteChart(cmp domain.Comparison, w io.Writer) error {
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{
			Title:    fmt.Sprintf("%s at %s", cmp.Variable, cmp.Site.Name),
			Subtitle: fmt.Sprintf("%s vs %s, monthly mean (%s)", cmp.ModelLabel, cmp.ObsLabel, cmp.Unit),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true), Bottom: "0"}),
		charts.WithDataZoomOpts(opts.DataZoom{Type: "slider"}),
	)

	months := make([]string, len(cmp.Points))
	modelData := make([]opts.LineData, len(cmp.Points))
	obsData := make([]opts.LineData, len(cmp.Points))
	for i, p := range cmp.Points {
		months[i] = p.Month.UTC().Format("2006-01")
		modelData[i] = lineValue(p.Model)
		obsData[i] = lineValue(p.Obs)
	}

	line.SetXAxis(months).
		AddSeries(cmp.ModelLabel, modelData).
		AddSeries(cmp.ObsLabel, obsData)

	return line.Render(w)
}

// lineValue maps a missing month to "-", the echarts convention for a gap in
// the line.
func lineValue(v *float64) opts.LineData {
	if v == nil {
		return opts.LineData{Value: "-"}
	}
	return opts.LineData{Value: *v}
}
