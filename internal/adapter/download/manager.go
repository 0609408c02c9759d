// Package download fetches remote granules into a local data directory with
// a bounded worker pool.
package download

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/tallgrasslabs/climatecompare/internal/observability"
)

// Request names one remote file and its destination path.
type Request struct {
	URL  string
	Dest string
}

// Manager downloads granules concurrently. Files already present on disk are
// reused, so repeated runs over the same date range hit the network only for
// what is missing.
type Manager struct {
	httpClient *http.Client
	workers    int
	source     string // metric label: "esgf" or "arm"
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// NewManager creates a download manager for one granule source.
func NewManager(source string, workers int, timeout time.Duration, metrics *observability.Metrics, logger *slog.Logger) *Manager {
	if workers <= 0 {
		workers = 1
	}
	return &Manager{
		httpClient: &http.Client{Timeout: timeout},
		workers:    workers,
		source:     source,
		metrics:    metrics,
		logger:     logger,
	}
}

// Fetch downloads every request, fanning out across the worker pool, and
// returns the destination paths in request order. The first failure cancels
// the remaining downloads.
func (m *Manager) Fetch(ctx context.Context, reqs []Request) ([]string, error) {
	if len(reqs) == 0 {
		return nil, nil
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	work := make(chan Request)
	var (
		wg       sync.WaitGroup
		errOnce  sync.Once
		firstErr error
	)
	fail := func(err error) {
		errOnce.Do(func() {
			firstErr = err
			cancel()
		})
	}

	for range m.workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for req := range work {
				if err := m.fetchOne(ctx, req); err != nil {
					fail(err)
					return
				}
			}
		}()
	}

feed:
	for _, req := range reqs {
		select {
		case work <- req:
		case <-ctx.Done():
			break feed
		}
	}
	close(work)
	wg.Wait()

	if firstErr != nil {
		return nil, firstErr
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	paths := make([]string, len(reqs))
	for i, req := range reqs {
		paths[i] = req.Dest
	}
	return paths, nil
}

func (m *Manager) fetchOne(ctx context.Context, req Request) error {
	if info, err := os.Stat(req.Dest); err == nil && info.Size() > 0 {
		m.metrics.Downloads.WithLabelValues(m.source, "cached").Inc()
		return nil
	}

	start := time.Now()
	if err := m.downloadTo(ctx, req.URL, req.Dest); err != nil {
		m.metrics.Downloads.WithLabelValues(m.source, "error").Inc()
		return fmt.Errorf("download %s: %w", filepath.Base(req.Dest), err)
	}
	m.metrics.Downloads.WithLabelValues(m.source, "success").Inc()
	m.metrics.DownloadDuration.WithLabelValues(m.source).Observe(time.Since(start).Seconds())
	return nil
}

// downloadTo streams the response into a temp file and renames it into place
// so a partial download never masquerades as a complete granule.
func (m *Manager) downloadTo(ctx context.Context, rawURL, dest string) error {
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return err
	}

	resp, err := m.httpClient.Do(httpReq)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	tmp, err := os.CreateTemp(filepath.Dir(dest), filepath.Base(dest)+".part-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	n, err := io.Copy(tmp, resp.Body)
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return err
	}

	m.metrics.DownloadBytes.WithLabelValues(m.source).Add(float64(n))
	m.logger.Debug("granule downloaded", "dest", dest, "bytes", n)

	return os.Rename(tmp.Name(), dest)
}
