package dataset

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// ExtractCell reads the full time series of one grid cell through the lazy
// reader, fanning chunked reads out across a bounded worker pool. Chunks are
// written into disjoint ranges of a preallocated result slice, so workers
// never contend on shared state. The first read error cancels the remaining
// chunks.
func ExtractCell(ctx context.Context, h GridHandle, lat, lon float64, chunkLen, workers int) (Series, error) {
	g := h.Grid()
	if len(g.Times) == 0 {
		return Series{}, fmt.Errorf("grid %q has no time steps", g.Variable)
	}
	if chunkLen <= 0 {
		chunkLen = len(g.Times)
	}
	if workers <= 0 {
		workers = 1
	}

	latIdx, lonIdx, err := g.NearestCell(lat, lon)
	if err != nil {
		return Series{}, err
	}

	values := make([]float64, len(g.Times))

	type chunk struct{ t0, t1 int }
	chunks := make(chan chunk)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

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

	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for c := range chunks {
				vals, err := h.ReadColumn(ctx, c.t0, c.t1, latIdx, lonIdx)
				if err != nil {
					fail(fmt.Errorf("read chunk [%d,%d): %w", c.t0, c.t1, err))
					return
				}
				if len(vals) != c.t1-c.t0 {
					fail(fmt.Errorf("read chunk [%d,%d): got %d values", c.t0, c.t1, len(vals)))
					return
				}
				copy(values[c.t0:c.t1], vals)
			}
		}()
	}

feed:
	for t0 := 0; t0 < len(g.Times); t0 += chunkLen {
		t1 := min(t0+chunkLen, len(g.Times))
		select {
		case chunks <- chunk{t0, t1}:
		case <-ctx.Done():
			break feed
		}
	}
	close(chunks)
	wg.Wait()

	if firstErr != nil {
		return Series{}, firstErr
	}
	if err := ctx.Err(); err != nil {
		return Series{}, err
	}

	return Series{
		Name:   g.Variable,
		Unit:   g.Unit,
		Times:  append([]time.Time(nil), g.Times...),
		Values: values,
	}, nil
}
