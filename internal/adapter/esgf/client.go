// Package esgf queries an Earth System Grid Federation search node for CMIP6
// file records.
package esgf

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sony/gobreaker"

	"github.com/tallgrasslabs/climatecompare/internal/adapter/httpclient"
	"github.com/tallgrasslabs/climatecompare/internal/domain"
	"github.com/tallgrasslabs/climatecompare/internal/observability"
)

// Client talks to an ESGF search node's Solr JSON facade.
type Client struct {
	baseURL  string
	pageSize int
	httpCfg  httpclient.Config
	circuit  *gobreaker.CircuitBreaker
	metrics  *observability.Metrics
	logger   *slog.Logger
}

// NewClient creates a federated search client.
func NewClient(baseURL string, pageSize int, timeout time.Duration, metrics *observability.Metrics, logger *slog.Logger) *Client {
	return &Client{
		baseURL:  baseURL,
		pageSize: pageSize,
		httpCfg: httpclient.Config{
			Client:  &http.Client{Timeout: timeout},
			Backoff: httpclient.DefaultBackoff,
		},
		circuit: httpclient.NewBreaker("esgf-search"),
		metrics: metrics,
		logger:  logger,
	}
}

// Search runs a file-level query, following Solr pagination until every
// matching record has been collected.
func (c *Client) Search(ctx context.Context, q domain.CatalogQuery) ([]domain.GranuleRecord, error) {
	start := time.Now()
	var records []domain.GranuleRecord

	offset := 0
	for {
		page, numFound, err := c.searchPage(ctx, q, offset)
		if err != nil {
			c.metrics.SearchRequests.WithLabelValues("error").Inc()
			return nil, err
		}
		records = append(records, page...)
		offset += len(page)
		if offset >= numFound || len(page) == 0 {
			break
		}
	}

	if len(records) == 0 {
		c.metrics.SearchRequests.WithLabelValues("empty").Inc()
		return nil, fmt.Errorf("no granules found for %s/%s/%s", q.SourceID, q.ExperimentID, q.VariableID)
	}

	c.metrics.SearchRequests.WithLabelValues("success").Inc()
	c.metrics.StageDuration.WithLabelValues("search").Observe(time.Since(start).Seconds())
	c.logger.Info("catalog search complete",
		"source_id", q.SourceID,
		"experiment_id", q.ExperimentID,
		"variable_id", q.VariableID,
		"granules", len(records),
	)
	return records, nil
}

func (c *Client) searchPage(ctx context.Context, q domain.CatalogQuery, offset int) ([]domain.GranuleRecord, int, error) {
	buildRequest := func() (*http.Request, error) {
		params := url.Values{
			"type":    {"File"},
			"format":  {"application/solr+json"},
			"distrib": {"true"},
			"offset":  {strconv.Itoa(offset)},
			"limit":   {strconv.Itoa(c.pageSize)},
		}
		setNonEmpty(params, "project", q.Project)
		setNonEmpty(params, "source_id", q.SourceID)
		setNonEmpty(params, "experiment_id", q.ExperimentID)
		setNonEmpty(params, "variable_id", q.VariableID)
		setNonEmpty(params, "frequency", q.Frequency)
		setNonEmpty(params, "variant_label", q.VariantLabel)
		if q.Latest {
			params.Set("latest", "true")
		}
		if q.Replica != nil {
			params.Set("replica", strconv.FormatBool(*q.Replica))
		}

		return http.NewRequest(http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	}

	resp, err := httpclient.Do(ctx, c.httpCfg, c.circuit, buildRequest)
	if err != nil {
		return nil, 0, fmt.Errorf("esgf search: %w", err)
	}
	defer resp.Body.Close()

	var solr solrResponse
	if err := json.NewDecoder(resp.Body).Decode(&solr); err != nil {
		return nil, 0, fmt.Errorf("decode esgf response: %w", err)
	}

	records := make([]domain.GranuleRecord, 0, len(solr.Response.Docs))
	for _, doc := range solr.Response.Docs {
		records = append(records, doc.toRecord())
	}
	return records, solr.Response.NumFound, nil
}

func setNonEmpty(params url.Values, key, value string) {
	if value != "" {
		params.Set(key, value)
	}
}

// Solr facade response types. ESGF flattens most document fields into
// single-element arrays.

type solrResponse struct {
	Response struct {
		NumFound int       `json:"numFound"`
		Docs     []solrDoc `json:"docs"`
	} `json:"response"`
}

type solrDoc struct {
	ID           string   `json:"id"`
	Title        string   `json:"title"`
	DatasetID    string   `json:"dataset_id"`
	VariableID   []string `json:"variable_id"`
	Size         int64    `json:"size"`
	Checksum     []string `json:"checksum"`
	ChecksumType []string `json:"checksum_type"`
	URL          []string `json:"url"`
}

func (d solrDoc) toRecord() domain.GranuleRecord {
	rec := domain.GranuleRecord{
		ID:         d.ID,
		Title:      d.Title,
		DatasetID:  d.DatasetID,
		Size:       d.Size,
		AccessURLs: make(map[string]string, len(d.URL)),
	}
	if len(d.VariableID) > 0 {
		rec.Variable = d.VariableID[0]
	}
	if len(d.Checksum) > 0 {
		rec.Checksum = d.Checksum[0]
	}
	// Each url entry is "href|mime|serviceName".
	for _, entry := range d.URL {
		parts := strings.Split(entry, "|")
		if len(parts) != 3 {
			continue
		}
		rec.AccessURLs[parts[2]] = parts[0]
	}
	return rec
}
