package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/tallgrasslabs/climatecompare/internal/adapter/download"
	"github.com/tallgrasslabs/climatecompare/internal/dataset"
)

// ObsLister enumerates observational granules and builds their download URLs.
type ObsLister interface {
	ListFiles(ctx context.Context, datastream string, start, end time.Time) ([]string, error)
	FileURL(name string) string
}

// SeriesOpener reads a 1-D variable out of a local granule.
type SeriesOpener func(path, variable string) (dataset.Series, error)

// ObsSourceConfig carries the settings an ObsSource needs.
type ObsSourceConfig struct {
	Datastream  string
	Variable    string
	PeriodStart time.Time
	PeriodEnd   time.Time
	TargetUnit  string
	DataDir     string
}

// ObsSource fetches the ARM side: list the datastream's files for the
// period, download them, concatenate the per-file series, and reduce to a
// monthly series in the target unit.
type ObsSource struct {
	lister     ObsLister
	downloader Downloader
	openSeries SeriesOpener
	cfg        ObsSourceConfig
	logger     *slog.Logger
}

// NewObsSource wires an observation fetcher from its collaborators.
func NewObsSource(lister ObsLister, downloader Downloader, openSeries SeriesOpener, cfg ObsSourceConfig, logger *slog.Logger) *ObsSource {
	return &ObsSource{
		lister:     lister,
		downloader: downloader,
		openSeries: openSeries,
		cfg:        cfg,
		logger:     logger,
	}
}

// Fetch implements SeriesSource.
func (s *ObsSource) Fetch(ctx context.Context) (dataset.Series, error) {
	names, err := s.lister.ListFiles(ctx, s.cfg.Datastream, s.cfg.PeriodStart, s.cfg.PeriodEnd)
	if err != nil {
		return dataset.Series{}, err
	}

	reqs := make([]download.Request, len(names))
	for i, name := range names {
		reqs[i] = download.Request{
			URL:  s.lister.FileURL(name),
			Dest: filepath.Join(s.cfg.DataDir, "obs", name),
		}
	}

	paths, err := s.downloader.Fetch(ctx, reqs)
	if err != nil {
		return dataset.Series{}, err
	}

	var combined dataset.Series
	for _, path := range paths {
		part, err := s.openSeries(path, s.cfg.Variable)
		if err != nil {
			return dataset.Series{}, err
		}
		combined, err = combined.Concat(part)
		if err != nil {
			return dataset.Series{}, err
		}
	}

	sliced := combined.SliceTime(s.cfg.PeriodStart, endOfDay(s.cfg.PeriodEnd))
	if sliced.Len() == 0 {
		return dataset.Series{}, fmt.Errorf("observation series empty after slicing to %s..%s",
			s.cfg.PeriodStart.Format("2006-01-02"), s.cfg.PeriodEnd.Format("2006-01-02"))
	}

	monthly := dataset.MonthlyMean(sliced)
	converted, err := dataset.ConvertUnit(monthly, s.cfg.TargetUnit)
	if err != nil {
		return dataset.Series{}, err
	}

	s.logger.Info("observation series ready",
		"datastream", s.cfg.Datastream,
		"files", len(paths),
		"samples", sliced.Len(),
		"months", converted.Len(),
		"unit", converted.Unit,
	)
	return converted, nil
}
