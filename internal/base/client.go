// Package base provides the PagerDuty REST API v2 client shared by the
// resource packages: single-object fetches and auto-paginated listings.
package base

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/pagerduty-mcp/pagerduty-mcp-server/internal/config"
	apierrors "github.com/pagerduty-mcp/pagerduty-mcp-server/internal/errors"
	"github.com/pagerduty-mcp/pagerduty-mcp-server/internal/infra"
	"github.com/pagerduty-mcp/pagerduty-mcp-server/metrics"
	"github.com/pagerduty-mcp/pagerduty-mcp-server/tracing"
)

const (
	// DefaultPageSize is requested per page when the caller sets no limit
	DefaultPageSize = 100

	// AcceptHeader selects REST API v2
	AcceptHeader = "application/vnd.pagerduty+json;version=2"

	// maxBodySize caps how much of a response body is read
	maxBodySize = 10 << 20
)

// Client performs authenticated GET requests against the PagerDuty API.
// Requests are throttled and guarded by a circuit breaker but never retried.
type Client struct {
	HTTPClient     *http.Client
	Logger         *slog.Logger
	CircuitBreaker *infra.CircuitBreaker
	Limiter        *rate.Limiter

	baseURL   string
	apiKey    string
	fromEmail string
	userAgent string
}

// ClientOption configures the Client
type ClientOption func(*Client)

// WithHTTPClient sets a custom HTTP client
func WithHTTPClient(c *http.Client) ClientOption {
	return func(client *Client) {
		client.HTTPClient = c
	}
}

// WithLogger sets a custom logger
func WithLogger(l *slog.Logger) ClientOption {
	return func(client *Client) {
		client.Logger = l
	}
}

// WithBaseURL points the client at a different API host (tests, EU region)
func WithBaseURL(u string) ClientOption {
	return func(client *Client) {
		client.baseURL = strings.TrimRight(u, "/")
	}
}

// WithRateLimiter replaces the outbound rate limiter
func WithRateLimiter(l *rate.Limiter) ClientOption {
	return func(client *Client) {
		client.Limiter = l
	}
}

// WithCircuitBreaker replaces the circuit breaker
func WithCircuitBreaker(cb *infra.CircuitBreaker) ClientOption {
	return func(client *Client) {
		client.CircuitBreaker = cb
	}
}

// NewClient creates a PagerDuty client from cfg
func NewClient(cfg *config.Config, opts ...ClientOption) *Client {
	if cfg == nil {
		cfg = config.Default()
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = config.DefaultTimeout
	}
	rps := cfg.RateLimit
	if rps <= 0 {
		rps = config.DefaultRateLimit
	}
	userAgent := cfg.UserAgent
	if userAgent == "" {
		userAgent = config.DefaultUserAgent
	}
	baseURL := cfg.APIHost
	if baseURL == "" {
		baseURL = config.DefaultAPIHost
	}

	c := &Client{
		HTTPClient:     newHTTPClient(timeout),
		Logger:         slog.Default(),
		CircuitBreaker: infra.NewCircuitBreaker(infra.DefaultBreakerConfig()),
		Limiter:        rate.NewLimiter(rate.Limit(rps), int(rps)+1),
		baseURL:        strings.TrimRight(baseURL, "/"),
		apiKey:         cfg.APIKey,
		fromEmail:      cfg.FromEmail,
		userAgent:      userAgent,
	}

	for _, opt := range opts {
		opt(c)
	}

	c.CircuitBreaker.OnStateChange(func(s infra.CircuitState) {
		metrics.SetCircuitState(int(s))
	})

	return c
}

// BaseURL returns the API host the client talks to
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Get fetches a single JSON object, e.g. GET /services/{id}. The top-level
// keys are returned undecoded so callers can check for the field they need.
func (c *Client) Get(ctx context.Context, path string) (map[string]json.RawMessage, error) {
	body, err := c.do(ctx, path, nil)
	if err != nil {
		return nil, err
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal(body, &obj); err != nil {
		return nil, fmt.Errorf("failed to parse response from %s: %w", path, err)
	}
	if obj == nil {
		obj = map[string]json.RawMessage{}
	}
	return obj, nil
}

// listPage is one page of a classic offset-paginated listing
type listPage struct {
	More   bool `json:"more"`
	Offset int  `json:"offset"`
	Limit  int  `json:"limit"`
}

// ListAll fetches every page of a listing such as GET /services and returns
// the records flattened in API order. The records live under the key named
// by the last path segment. params is not modified.
func (c *Client) ListAll(ctx context.Context, path string, params url.Values) ([]json.RawMessage, error) {
	key := entityKey(path)

	query := url.Values{}
	for k, v := range params {
		query[k] = append([]string(nil), v...)
	}
	if query.Get("limit") == "" {
		query.Set("limit", strconv.Itoa(DefaultPageSize))
	}

	records := make([]json.RawMessage, 0)
	offset := 0
	for {
		query.Set("offset", strconv.Itoa(offset))

		body, err := c.do(ctx, path, query)
		if err != nil {
			return nil, err
		}

		var raw map[string]json.RawMessage
		if err := json.Unmarshal(body, &raw); err != nil {
			return nil, fmt.Errorf("failed to parse %s page at offset %d: %w", key, offset, err)
		}
		items, ok := raw[key]
		if !ok {
			return nil, apierrors.NewContractError(key, "", key)
		}

		var page []json.RawMessage
		if err := json.Unmarshal(items, &page); err != nil {
			return nil, fmt.Errorf("failed to parse %s at offset %d: %w", key, offset, err)
		}
		var meta listPage
		if err := json.Unmarshal(body, &meta); err != nil {
			return nil, fmt.Errorf("failed to parse pagination of %s: %w", key, err)
		}

		metrics.PagesFetched.WithLabelValues(key).Inc()
		records = append(records, page...)

		if !meta.More || len(page) == 0 {
			break
		}
		offset += len(page)
	}

	c.Logger.Debug("PagerDuty listing fetched", "path", path, "records", len(records))
	return records, nil
}

// do performs one GET request and returns the body of a 2xx response
func (c *Client) do(ctx context.Context, path string, query url.Values) ([]byte, error) {
	resource := entityKey(path)

	ctx, span := tracing.StartSpan(ctx, "pagerduty.get "+resource)
	defer span.End()
	tracing.AddAPIAttributes(span, http.MethodGet, path, resource)

	// Allow comes last: a half-open probe slot is only returned by Success
	// or Failure.
	if err := c.wait(ctx); err != nil {
		tracing.RecordError(span, err)
		return nil, err
	}

	reqURL := c.baseURL + path
	if len(query) > 0 {
		reqURL += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		tracing.RecordError(span, err)
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", AcceptHeader)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Token token="+c.apiKey)
	req.Header.Set("User-Agent", c.userAgent)
	if c.fromEmail != "" {
		req.Header.Set("From", c.fromEmail)
	}

	if err := c.CircuitBreaker.Allow(); err != nil {
		tracing.RecordError(span, err)
		return nil, err
	}

	start := time.Now()
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		metrics.RecordAPICall(resource, time.Since(start).Seconds(), 0)
		c.CircuitBreaker.Failure()
		tracing.RecordError(span, err)
		return nil, fmt.Errorf("request to %s failed: %w", path, err)
	}

	body, readErr := readAndClose(resp)
	metrics.RecordAPICall(resource, time.Since(start).Seconds(), resp.StatusCode)
	if readErr != nil {
		c.CircuitBreaker.Failure()
		tracing.RecordError(span, readErr)
		return nil, fmt.Errorf("failed to read response from %s: %w", path, readErr)
	}

	if resp.StatusCode >= 300 {
		httpErr := newHTTPError(http.MethodGet, path, resp.StatusCode, body)
		// Client errors don't indicate service issues
		if resp.StatusCode >= 500 {
			c.CircuitBreaker.Failure()
		} else {
			c.CircuitBreaker.Success()
		}
		tracing.RecordError(span, httpErr)
		return nil, httpErr
	}

	c.CircuitBreaker.Success()
	return body, nil
}

// wait blocks until the rate limiter admits the request
func (c *Client) wait(ctx context.Context) error {
	if c.Limiter == nil || c.Limiter.Allow() {
		return nil
	}
	metrics.RateLimitWaits.Inc()
	if err := c.Limiter.Wait(ctx); err != nil {
		return fmt.Errorf("waiting for rate limiter: %w", err)
	}
	return nil
}

// entityKey names the collection a path belongs to. It is the listing key
// for collection paths and the metric label for everything else:
//
//	/services          -> services
//	/services/PX1      -> services
//	/teams/T1/members  -> members
func entityKey(path string) string {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	switch {
	case parts[0] == "":
		return "unknown"
	case len(parts) <= 2:
		return parts[0]
	default:
		return parts[len(parts)-1]
	}
}

// readAndClose reads the response body and closes it
func readAndClose(resp *http.Response) ([]byte, error) {
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	_ = resp.Body.Close()
	return body, err
}

// newHTTPClient creates an HTTP client with pooled transport settings
func newHTTPClient(timeout time.Duration) *http.Client {
	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		MaxIdleConns:          20,
		MaxIdleConnsPerHost:   10,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: timeout,
		ForceAttemptHTTP2:     true,
	}

	return &http.Client{
		Timeout:   timeout,
		Transport: transport,
	}
}
