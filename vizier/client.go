// Package vizier queries the VizieR service of the CDS for the sources of a
// catalogue within a circular region of the sky.
package vizier

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/go-gota/gota/dataframe"

	"astrocat/metrics"
)

const DefaultURL = "https://vizier.cds.unistra.fr/viz-bin/asu-tsv"

// ErrQueryFailed wraps every failure of a remote query:
// transport errors, error statuses, unreadable responses and empty results
var ErrQueryFailed = errors.New("VizieR query failed")

// HTTPError is returned when VizieR answers with a status code >= 400
type HTTPError struct {
	StatusCode int
	Message    string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Message)
}

// Client for the ASU-TSV endpoint of VizieR
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
	// Number of attempts per query, retries use an exponential backoff starting at Delay
	Attempts uint
	Delay    time.Duration
	// Optional
	Metrics *metrics.Collector
}

// NewClient returns a client for VIZIER_URL, or DefaultURL when unset
func NewClient(collector *metrics.Collector) *Client {
	baseURL := os.Getenv("VIZIER_URL")
	if baseURL == "" {
		baseURL = DefaultURL
	}

	return &Client{
		BaseURL:    baseURL,
		HTTPClient: &http.Client{Timeout: 5 * time.Minute},
		Attempts:   4,
		Delay:      2 * time.Second,
		Metrics:    collector,
	}
}

// QueryRegion runs a cone search and returns the first table of the answer
func (c *Client) QueryRegion(ctx context.Context, q Query) (dataframe.DataFrame, error) {
	if err := q.validate(); err != nil {
		return dataframe.DataFrame{}, fmt.Errorf("%w: %w", ErrQueryFailed, err)
	}

	attempts := max(c.Attempts, 1)
	start := time.Now()
	df, err := retry.DoWithData(
		func() (dataframe.DataFrame, error) {
			return c.do(ctx, q)
		},
		retry.Context(ctx),
		retry.Attempts(attempts),
		retry.Delay(c.Delay),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(retryable),
		retry.OnRetry(func(n uint, err error) {
			if n+1 < attempts {
				c.Metrics.ObserveRetry(q.Catalog)
				slog.Warn(fmt.Sprintf("%s: attempt %d failed, retrying: %s", q.Catalog, n+1, err))
			}
		}),
	)
	if err != nil {
		c.Metrics.ObserveQuery(q.Catalog, metrics.OutcomeError, time.Since(start), 0)
		return dataframe.DataFrame{}, fmt.Errorf("%w: %s: %w", ErrQueryFailed, q.Catalog, err)
	}

	c.Metrics.ObserveQuery(q.Catalog, metrics.OutcomeOK, time.Since(start), df.Nrow())
	slog.Debug(fmt.Sprintf("%s: %d rows in %v", q.Catalog, df.Nrow(), time.Since(start).Round(time.Millisecond)))
	return df, nil
}

func (c *Client) do(ctx context.Context, q Query) (dataframe.DataFrame, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL, nil)
	if err != nil {
		return dataframe.DataFrame{}, retry.Unrecoverable(err)
	}
	req.URL.RawQuery = q.Values().Encode()

	client := c.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}

	resp, err := client.Do(req)
	if err != nil {
		return dataframe.DataFrame{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return dataframe.DataFrame{}, &HTTPError{StatusCode: resp.StatusCode, Message: string(msg)}
	}

	return ParseTSV(resp.Body)
}

// Client errors and missing tables are not transient, server errors and transport errors may be
func retryable(err error) bool {
	if !retry.IsRecoverable(err) {
		return false
	}
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.StatusCode >= 500 || httpErr.StatusCode == http.StatusTooManyRequests
	}
	if errors.Is(err, ErrNoTable) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	return true
}
