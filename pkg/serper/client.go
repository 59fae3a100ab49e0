// Package serper provides a client for the Serper.dev Google search API.
package serper

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/rcliao/companyscout/internal/resilience"
)

const defaultBaseURL = "https://google.serper.dev"

// Recency restricts results to a trailing window, mapped to Google's
// qdr operator.
type Recency string

const (
	RecencyAny   Recency = ""
	RecencyHour  Recency = "h"
	RecencyDay   Recency = "d"
	RecencyWeek  Recency = "w"
	RecencyMonth Recency = "m"
	RecencyYear  Recency = "y"
)

// Client performs web searches.
type Client interface {
	Search(ctx context.Context, query string, opts ...SearchOption) ([]Result, error)
}

// Result is a single organic search result.
type Result struct {
	Title   string `json:"title"`
	Link    string `json:"link"`
	Snippet string `json:"snippet"`
	Date    string `json:"date,omitempty"`
}

// SearchOption configures a search request.
type SearchOption func(*SearchOptions)

// SearchOptions is the resolved form of a request's options.
type SearchOptions struct {
	Recency    Recency
	MaxResults int
}

// BuildSearchOptions applies opts over zero-valued defaults.
func BuildSearchOptions(opts ...SearchOption) SearchOptions {
	var o SearchOptions
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// WithRecency restricts results to a trailing time window.
func WithRecency(r Recency) SearchOption {
	return func(o *SearchOptions) {
		o.Recency = r
	}
}

// WithMaxResults caps the number of results requested.
func WithMaxResults(n int) SearchOption {
	return func(o *SearchOptions) {
		o.MaxResults = n
	}
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL overrides the default API base URL.
func WithBaseURL(url string) Option {
	return func(c *httpClient) {
		c.baseURL = url
	}
}

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

// WithRateLimit caps outgoing requests per second.
func WithRateLimit(perSec float64) Option {
	return func(c *httpClient) {
		if perSec > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(perSec), 1)
		}
	}
}

type httpClient struct {
	apiKey  string
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
}

// NewClient creates a Serper search client.
func NewClient(apiKey string, opts ...Option) Client {
	c := &httpClient{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		http: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

type searchRequest struct {
	Q   string `json:"q"`
	Num int    `json:"num,omitempty"`
	Tbs string `json:"tbs,omitempty"`
}

type searchResponse struct {
	Organic []Result `json:"organic"`
}

// retryDo executes an HTTP request with exponential backoff retries on
// transient failures. The request body is re-supplied on each attempt.
func (c *httpClient) retryDo(ctx context.Context, method, url string, payload []byte) ([]byte, int, error) {
	type response struct {
		body   []byte
		status int
	}

	cfg := resilience.DefaultRetryConfig()
	cfg.OnRetry = func(attempt int, err error) {
		zap.L().Warn("serper retry",
			zap.Int("attempt", attempt),
			zap.Error(err),
		)
	}

	resp, err := resilience.DoVal(ctx, cfg, func(ctx context.Context) (response, error) {
		req, err := http.NewRequestWithContext(ctx, method, url, bytes.NewReader(payload))
		if err != nil {
			return response{}, eris.Wrap(err, "serper: create request")
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-API-KEY", c.apiKey)

		res, err := c.http.Do(req)
		if err != nil {
			return response{}, eris.Wrap(err, "serper: do request")
		}
		defer res.Body.Close()

		body, err := io.ReadAll(res.Body)
		if err != nil {
			return response{}, eris.Wrap(err, "serper: read response body")
		}

		if resilience.TransientStatus(res.StatusCode) {
			return response{}, resilience.NewTransientError(
				eris.Errorf("serper: status %d: %s", res.StatusCode, string(body)),
				res.StatusCode,
			)
		}
		return response{body: body, status: res.StatusCode}, nil
	})
	if err != nil {
		return nil, 0, err
	}
	return resp.body, resp.status, nil
}

func (c *httpClient) Search(ctx context.Context, query string, opts ...SearchOption) ([]Result, error) {
	so := BuildSearchOptions(opts...)

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, eris.Wrap(err, "serper: rate limit wait")
		}
	}

	reqBody := searchRequest{Q: query, Num: so.MaxResults}
	if so.Recency != RecencyAny {
		reqBody.Tbs = "qdr:" + string(so.Recency)
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, eris.Wrap(err, "serper: marshal request")
	}

	body, statusCode, err := c.retryDo(ctx, http.MethodPost, c.baseURL+"/search", payload)
	if err != nil {
		return nil, eris.Wrap(err, "serper: search request failed")
	}

	if statusCode != http.StatusOK {
		return nil, eris.Errorf("serper: unexpected status %d: %s", statusCode, string(body))
	}

	var result searchResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, eris.Wrap(err, "serper: unmarshal response")
	}

	return result.Organic, nil
}
