// Package arm lists and downloads observational granules from the ARM Live
// Data Web Service.
package arm

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/sony/gobreaker"

	"github.com/tallgrasslabs/climatecompare/internal/adapter/httpclient"
)

// Client talks to the ARM Live Data Web Service. Every request carries the
// user:token credential pair as a query parameter, per the service contract.
type Client struct {
	baseURL string
	user    string
	token   string
	httpCfg httpclient.Config
	circuit *gobreaker.CircuitBreaker
	logger  *slog.Logger
}

// NewClient creates an ARM Live client.
func NewClient(baseURL, user, token string, timeout time.Duration, logger *slog.Logger) *Client {
	return &Client{
		baseURL: baseURL,
		user:    user,
		token:   token,
		httpCfg: httpclient.Config{
			Client:  &http.Client{Timeout: timeout},
			Backoff: httpclient.DefaultBackoff,
		},
		circuit: httpclient.NewBreaker("arm-live"),
		logger:  logger,
	}
}

// ListFiles returns the names of the datastream's files whose coverage falls
// within [start, end]. The service matches on the date encoded in each file
// name, so both bounds are passed as dates.
func (c *Client) ListFiles(ctx context.Context, datastream string, start, end time.Time) ([]string, error) {
	buildRequest := func() (*http.Request, error) {
		params := url.Values{
			"user":  {c.credential()},
			"ds":    {datastream},
			"start": {start.UTC().Format("2006-01-02")},
			"end":   {end.UTC().Format("2006-01-02")},
			"wt":    {"json"},
		}
		return http.NewRequest(http.MethodGet, c.baseURL+"/query?"+params.Encode(), nil)
	}

	resp, err := httpclient.Do(ctx, c.httpCfg, c.circuit, buildRequest)
	if err != nil {
		return nil, fmt.Errorf("arm query: %w", err)
	}
	defer resp.Body.Close()

	var payload queryResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode arm response: %w", err)
	}
	if payload.Status != "success" {
		return nil, fmt.Errorf("arm query failed: status %q", payload.Status)
	}
	if len(payload.Files) == 0 {
		return nil, fmt.Errorf("no %s files between %s and %s",
			datastream, start.Format("2006-01-02"), end.Format("2006-01-02"))
	}

	c.logger.Info("arm file listing complete", "datastream", datastream, "files", len(payload.Files))
	return payload.Files, nil
}

// FileURL builds the authenticated download URL for a file name returned by
// ListFiles.
func (c *Client) FileURL(name string) string {
	params := url.Values{
		"user": {c.credential()},
		"file": {name},
	}
	return c.baseURL + "/saveData?" + params.Encode()
}

func (c *Client) credential() string {
	return c.user + ":" + c.token
}

type queryResponse struct {
	Status string   `json:"status"`
	Files  []string `json:"files"`
}
