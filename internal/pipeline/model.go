package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"regexp"
	"time"

	"github.com/tallgrasslabs/climatecompare/internal/adapter/download"
	"github.com/tallgrasslabs/climatecompare/internal/dataset"
	"github.com/tallgrasslabs/climatecompare/internal/domain"
)

// CatalogSearcher finds granule records for a query.
type CatalogSearcher interface {
	Search(ctx context.Context, q domain.CatalogQuery) ([]domain.GranuleRecord, error)
}

// Downloader fetches remote granules to local paths.
type Downloader interface {
	Fetch(ctx context.Context, reqs []download.Request) ([]string, error)
}

// GridOpener opens a local granule as a lazy grid handle.
type GridOpener func(path, variable string) (dataset.GridHandle, error)

// ModelSourceConfig carries the settings a ModelSource needs.
type ModelSourceConfig struct {
	Query       domain.CatalogQuery
	Site        domain.Site
	PeriodStart time.Time
	PeriodEnd   time.Time
	TargetUnit  string
	DataDir     string
	ChunkLen    int
	Workers     int
}

// ModelSource fetches the CMIP6 side: search the federation, download the
// granules covering the period, extract the site's grid cell lazily, and
// reduce to a monthly series in the target unit.
type ModelSource struct {
	searcher   CatalogSearcher
	downloader Downloader
	openGrid   GridOpener
	cfg        ModelSourceConfig
	logger     *slog.Logger
}

// NewModelSource wires a model fetcher from its collaborators.
func NewModelSource(searcher CatalogSearcher, downloader Downloader, openGrid GridOpener, cfg ModelSourceConfig, logger *slog.Logger) *ModelSource {
	return &ModelSource{
		searcher:   searcher,
		downloader: downloader,
		openGrid:   openGrid,
		cfg:        cfg,
		logger:     logger,
	}
}

// Fetch implements SeriesSource.
func (s *ModelSource) Fetch(ctx context.Context) (dataset.Series, error) {
	records, err := s.searcher.Search(ctx, s.cfg.Query)
	if err != nil {
		return dataset.Series{}, err
	}

	records = filterByPeriod(records, s.cfg.PeriodStart, s.cfg.PeriodEnd)
	if len(records) == 0 {
		return dataset.Series{}, fmt.Errorf("no granules overlap %s..%s",
			s.cfg.PeriodStart.Format("2006-01-02"), s.cfg.PeriodEnd.Format("2006-01-02"))
	}

	reqs := make([]download.Request, 0, len(records))
	for _, rec := range records {
		u := rec.URLFor("HTTPServer")
		if u == "" {
			return dataset.Series{}, fmt.Errorf("granule %s has no HTTPServer access URL", rec.Title)
		}
		reqs = append(reqs, download.Request{
			URL:  u,
			Dest: filepath.Join(s.cfg.DataDir, "model", rec.Title),
		})
	}

	paths, err := s.downloader.Fetch(ctx, reqs)
	if err != nil {
		return dataset.Series{}, err
	}

	var combined dataset.Series
	for _, path := range paths {
		part, err := s.extractGranule(ctx, path)
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
		return dataset.Series{}, fmt.Errorf("model series empty after slicing to %s..%s",
			s.cfg.PeriodStart.Format("2006-01-02"), s.cfg.PeriodEnd.Format("2006-01-02"))
	}

	monthly := dataset.MonthlyMean(sliced)
	converted, err := dataset.ConvertUnit(monthly, s.cfg.TargetUnit)
	if err != nil {
		return dataset.Series{}, err
	}

	s.logger.Info("model series ready",
		"granules", len(paths),
		"samples", sliced.Len(),
		"months", converted.Len(),
		"unit", converted.Unit,
	)
	return converted, nil
}

func (s *ModelSource) extractGranule(ctx context.Context, path string) (dataset.Series, error) {
	h, err := s.openGrid(path, s.cfg.Query.VariableID)
	if err != nil {
		return dataset.Series{}, err
	}
	defer h.Close()

	return dataset.ExtractCell(ctx, h, s.cfg.Site.Lat, s.cfg.Site.Lon, s.cfg.ChunkLen, s.cfg.Workers)
}

// granulePeriodRe matches the YYYYMMDD-YYYYMMDD coverage suffix of CMIP6
// file names, e.g. "tas_day_CESM2_historical_r1i1p1f1_gn_20100101-20141231.nc".
var granulePeriodRe = regexp.MustCompile(`_(\d{8})-(\d{8})\.nc$`)

// filterByPeriod drops granules whose file-name coverage lies entirely
// outside [start, end]. Granules without a parseable coverage suffix are
// kept; the time slice after extraction makes the final cut.
func filterByPeriod(records []domain.GranuleRecord, start, end time.Time) []domain.GranuleRecord {
	kept := records[:0:0]
	for _, rec := range records {
		gs, ge, ok := granulePeriod(rec.Title)
		if ok && (ge.Before(start) || gs.After(end)) {
			continue
		}
		kept = append(kept, rec)
	}
	return kept
}

func granulePeriod(title string) (start, end time.Time, ok bool) {
	m := granulePeriodRe.FindStringSubmatch(title)
	if m == nil {
		return time.Time{}, time.Time{}, false
	}
	start, err1 := time.Parse("20060102", m[1])
	end, err2 := time.Parse("20060102", m[2])
	if err1 != nil || err2 != nil {
		return time.Time{}, time.Time{}, false
	}
	return start, endOfDay(end), true
}

func endOfDay(t time.Time) time.Time {
	return t.Add(24*time.Hour - time.Nanosecond)
}
