package download

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tallgrasslabs/climatecompare/internal/observability"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestManager(workers int) *Manager {
	return NewManager("esgf", workers, 5*time.Second, observability.NewMetricsForTesting(), testLogger())
}

func TestManagerFetch(t *testing.T) {
	t.Run("downloads to destination paths in request order", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, "payload for "+r.URL.Path)
		}))
		defer srv.Close()

		dir := t.TempDir()
		reqs := []Request{
			{URL: srv.URL + "/a.nc", Dest: filepath.Join(dir, "a.nc")},
			{URL: srv.URL + "/b.nc", Dest: filepath.Join(dir, "b.nc")},
			{URL: srv.URL + "/c.nc", Dest: filepath.Join(dir, "c.nc")},
		}

		paths, err := newTestManager(2).Fetch(context.Background(), reqs)

		require.NoError(t, err)
		require.Len(t, paths, 3)
		for i, p := range paths {
			assert.Equal(t, reqs[i].Dest, p)
			data, readErr := os.ReadFile(p)
			require.NoError(t, readErr)
			assert.Contains(t, string(data), "payload for")
		}
	})

	t.Run("existing non-empty file is reused", func(t *testing.T) {
		var hits atomic.Int64
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			hits.Add(1)
			fmt.Fprint(w, "fresh")
		}))
		defer srv.Close()

		dir := t.TempDir()
		dest := filepath.Join(dir, "a.nc")
		require.NoError(t, os.WriteFile(dest, []byte("already here"), 0o644))

		paths, err := newTestManager(1).Fetch(context.Background(), []Request{{URL: srv.URL, Dest: dest}})

		require.NoError(t, err)
		require.Len(t, paths, 1)
		assert.EqualValues(t, 0, hits.Load())
		data, err := os.ReadFile(dest)
		require.NoError(t, err)
		assert.Equal(t, "already here", string(data))
	})

	t.Run("creates nested directories", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			fmt.Fprint(w, "x")
		}))
		defer srv.Close()

		dest := filepath.Join(t.TempDir(), "model", "deep", "a.nc")
		_, err := newTestManager(1).Fetch(context.Background(), []Request{{URL: srv.URL, Dest: dest}})

		require.NoError(t, err)
		assert.FileExists(t, dest)
	})

	t.Run("http error leaves no partial file", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		}))
		defer srv.Close()

		dest := filepath.Join(t.TempDir(), "a.nc")
		_, err := newTestManager(1).Fetch(context.Background(), []Request{{URL: srv.URL, Dest: dest}})

		require.Error(t, err)
		assert.Contains(t, err.Error(), "unexpected status 404")
		assert.NoFileExists(t, dest)
	})

	t.Run("first failure cancels the batch", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/bad.nc" {
				w.WriteHeader(http.StatusInternalServerError)
				return
			}
			fmt.Fprint(w, "ok")
		}))
		defer srv.Close()

		dir := t.TempDir()
		reqs := []Request{
			{URL: srv.URL + "/bad.nc", Dest: filepath.Join(dir, "bad.nc")},
			{URL: srv.URL + "/ok.nc", Dest: filepath.Join(dir, "ok.nc")},
		}

		_, err := newTestManager(1).Fetch(context.Background(), reqs)
		require.Error(t, err)
	})

	t.Run("empty request list", func(t *testing.T) {
		paths, err := newTestManager(2).Fetch(context.Background(), nil)
		require.NoError(t, err)
		assert.Empty(t, paths)
	})

	t.Run("cancelled context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			fmt.Fprint(w, "x")
		}))
		defer srv.Close()

		_, err := newTestManager(1).Fetch(ctx, []Request{
			{URL: srv.URL, Dest: filepath.Join(t.TempDir(), "a.nc")},
		})
		require.Error(t, err)
	})
}
