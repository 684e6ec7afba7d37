package sqlapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/joeblew999/plat-overlay/internal/metrics"
)

type Option func(*Client)

func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

func WithCacheMaxAge(d time.Duration) Option {
	return func(c *Client) { c.maxAge = d }
}

// Client talks to the hosted SQL API:
// GET {base}/v3/sql/{connection}/query?q=...
type Client struct {
	baseURL    string
	token      string
	connection string
	maxAge     time.Duration
	http       *http.Client
}

// NewClient returns a client for the given API base URL and connection.
func NewClient(baseURL, token, connection string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		connection: connection,
		maxAge:     300 * time.Second,
		http:       &http.Client{Timeout: 15 * time.Second},
	}
	for _, f := range opts {
		f(c)
	}
	return c
}

type queryResponse struct {
	Rows []map[string]any `json:"rows"`
}

// Query runs q and returns its rows. Errors wrap ErrFetch, ErrNotJSON or
// ErrNoRows.
func (c *Client) Query(ctx context.Context, q string) ([]map[string]any, error) {
	u := fmt.Sprintf("%s/v3/sql/%s/query?q=%s", c.baseURL, url.PathEscape(c.connection), url.QueryEscape(q))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %v", ErrFetch, err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Cache-Control", fmt.Sprintf("max-age=%d", int(c.maxAge.Seconds())))
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFetch, err)
	}
	defer resp.Body.Close()

	if ct := resp.Header.Get("Content-Type"); ct != "" && !strings.Contains(ct, "application/json") {
		return nil, fmt.Errorf("%w: content type %q", ErrNotJSON, ct)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: status %d", ErrFetch, resp.StatusCode)
	}

	var body queryResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("%w: decode: %v", ErrNotJSON, err)
	}
	if len(body.Rows) == 0 {
		return nil, ErrNoRows
	}
	return body.Rows, nil
}

// Distinct implements Fetcher.
func (c *Client) Distinct(ctx context.Context, column, table string) ([]string, error) {
	start := time.Now()
	q := fmt.Sprintf("SELECT DISTINCT %s FROM %s", backtick(column), backtick(table))

	rows, err := c.Query(ctx, q)
	if err != nil {
		metrics.ObserveCategoryFetch("sqlapi", "error", time.Since(start).Seconds())
		return nil, fmt.Errorf("distinct %s: %w", column, err)
	}

	values := make([]any, 0, len(rows))
	for _, r := range rows {
		values = append(values, r[column])
	}
	out := collect(values)
	if len(out) == 0 {
		metrics.ObserveCategoryFetch("sqlapi", "error", time.Since(start).Seconds())
		return nil, fmt.Errorf("distinct %s: %w", column, ErrNoRows)
	}
	metrics.ObserveCategoryFetch("sqlapi", "ok", time.Since(start).Seconds())
	return out, nil
}

// backtick quotes a warehouse identifier; dots stay inside the quotes as the
// warehouse expects for project.dataset.table names.
func backtick(ident string) string {
	return "`" + strings.ReplaceAll(ident, "`", "") + "`"
}
