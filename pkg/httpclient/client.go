// Package httpclient performs outbound fetches with rate limiting and
// retry. Every source adapter goes through it.
package httpclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	neturl "net/url"
	"strconv"
	"time"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/baobab/pkg/metrics"
)

const (
	// DefaultTimeout is the default request timeout
	DefaultTimeout = 30 * time.Second

	// MaxResponseSize is the maximum response body size (10MB)
	MaxResponseSize = 10 * 1024 * 1024
)

// Config holds HTTP client configuration
type Config struct {
	Timeout         time.Duration
	UserAgent       string
	MaxIdleConns    int
	IdleConnTimeout time.Duration
}

// DefaultConfig returns default HTTP client configuration
func DefaultConfig() Config {
	return Config{
		Timeout:         DefaultTimeout,
		UserAgent:       "baobab-ingest/1.0",
		MaxIdleConns:    100,
		IdleConnTimeout: 90 * time.Second,
	}
}

// Limiter paces outbound requests across instances. BlockFor records a
// server-imposed backoff window for the key.
type Limiter interface {
	Wait(ctx context.Context, key string) error
	BlockFor(ctx context.Context, key string, d time.Duration) error
}

// Client wraps the HTTP client with rate limiting, retry, and size
// limits. Safe for concurrent use; retry state is per call.
type Client struct {
	client    *http.Client
	policy    RetryPolicy
	userAgent string
	limiter   Limiter
	logger    ectologger.Logger
}

// NewClient creates a new fetch client
func NewClient(cfg Config, policy RetryPolicy, logger ectologger.Logger) *Client {
	transport := &http.Transport{
		MaxIdleConns:    cfg.MaxIdleConns,
		IdleConnTimeout: cfg.IdleConnTimeout,
	}

	return &Client{
		client: &http.Client{
			Transport: transport,
			Timeout:   cfg.Timeout,
		},
		policy:    policy,
		userAgent: cfg.UserAgent,
		logger:    logger,
	}
}

// Response represents a fetched HTTP response
type Response struct {
	StatusCode    int               `json:"status_code"`
	Headers       map[string]string `json:"headers"`
	Body          []byte            `json:"-"`
	ContentType   string            `json:"content_type"`
	ContentLength int64             `json:"content_length"`
	Duration      time.Duration     `json:"duration_ms"`
}

// Fetch performs one logical request: rate limit delay before each
// attempt, retry on transient failure with exponential backoff, no
// retry on 404. Exhausting retries surfaces the last error.
func (c *Client) Fetch(ctx context.Context, method, url string, headers map[string]string) (*Response, error) {
	log := c.logger.WithContext(ctx).WithFields(map[string]interface{}{
		"method": method,
		"url":    url,
	})

	key := rateKey(url)

	var lastErr error
	for attempt := 0; attempt < c.policy.MaxRetries; attempt++ {
		if attempt > 0 {
			delay := c.policy.backoffDelay(attempt - 1)
			log.WithField("attempt", attempt).Debugf("Retrying in %s", delay)
			if err := sleep(ctx, delay); err != nil {
				return nil, err
			}
		}
		if err := c.pace(ctx, key); err != nil {
			return nil, err
		}

		resp, err := c.do(ctx, method, url, headers)
		if err == nil {
			return resp, nil
		}
		lastErr = err
		if !IsRetryable(err) {
			log.WithError(err).Debug("Fetch failed with terminal error")
			return nil, err
		}

		var httpErr *HTTPError
		if c.limiter != nil && errors.As(err, &httpErr) &&
			httpErr.StatusCode == http.StatusTooManyRequests && httpErr.RetryAfter > 0 {
			if blockErr := c.limiter.BlockFor(ctx, key, httpErr.RetryAfter); blockErr != nil {
				log.WithError(blockErr).Warn("Failed to record upstream backoff")
			}
		}
		log.WithError(err).WithField("attempt", attempt).Warn("Fetch attempt failed")
	}

	log.WithError(lastErr).Errorf("Fetch failed after %d attempts", c.policy.MaxRetries)
	return nil, lastErr
}

// SetLimiter attaches a shared limiter. Without one the client paces
// itself with the policy's fixed delay.
func (c *Client) SetLimiter(limiter Limiter) {
	c.limiter = limiter
}

// pace blocks until the next request to this key may go out.
func (c *Client) pace(ctx context.Context, key string) error {
	if c.limiter == nil {
		return sleep(ctx, c.policy.RateLimitDelay)
	}
	return c.limiter.Wait(ctx, key)
}

// rateKey scopes rate limiting to the upstream host.
func rateKey(rawURL string) string {
	if u, err := neturl.Parse(rawURL); err == nil && u.Host != "" {
		return u.Host
	}
	return rawURL
}

// Get performs a GET fetch
func (c *Client) Get(ctx context.Context, url string, headers map[string]string) (*Response, error) {
	return c.Fetch(ctx, http.MethodGet, url, headers)
}

// GetJSON performs a GET fetch and unmarshals the body into out
func (c *Client) GetJSON(ctx context.Context, url string, out any) error {
	resp, err := c.Get(ctx, url, map[string]string{"Accept": "application/json"})
	if err != nil {
		return err
	}
	return json.Unmarshal(resp.Body, out)
}

// do executes exactly one attempt
func (c *Client) do(ctx context.Context, method, url string, headers map[string]string) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	for key, value := range headers {
		req.Header.Set(key, value)
	}

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		metrics.FetchRequestsTotal.WithLabelValues(rateKey(url), "network_error").Inc()
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &NetworkError{URL: url, Err: err}
	}
	defer resp.Body.Close()

	duration := time.Since(start)
	metrics.FetchRequestsTotal.WithLabelValues(rateKey(url), strconv.Itoa(resp.StatusCode)).Inc()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		httpErr := &HTTPError{URL: url, StatusCode: resp.StatusCode}
		if resp.StatusCode == http.StatusTooManyRequests {
			httpErr.RetryAfter = parseRetryAfter(resp.Header.Get("Retry-After"))
		}
		return nil, httpErr
	}

	limitedReader := io.LimitReader(resp.Body, MaxResponseSize+1)
	body, err := io.ReadAll(limitedReader)
	if err != nil {
		return nil, &NetworkError{URL: url, Err: err}
	}
	if len(body) > MaxResponseSize {
		return nil, fmt.Errorf("response body too large: %d bytes (max %d)", len(body), MaxResponseSize)
	}

	respHeaders := make(map[string]string)
	for key, values := range resp.Header {
		if len(values) > 0 {
			respHeaders[key] = values[0]
		}
	}

	c.logger.WithContext(ctx).Debugf("HTTP %s %s -> %d (%s)", method, url, resp.StatusCode, duration)

	return &Response{
		StatusCode:    resp.StatusCode,
		Headers:       respHeaders,
		Body:          body,
		ContentType:   resp.Header.Get("Content-Type"),
		ContentLength: int64(len(body)),
		Duration:      duration,
	}, nil
}

// parseRetryAfter handles both delta-seconds and HTTP-date forms.
func parseRetryAfter(value string) time.Duration {
	if value == "" {
		return 0
	}
	if seconds, err := strconv.Atoi(value); err == nil {
		if seconds < 0 {
			return 0
		}
		return time.Duration(seconds) * time.Second
	}
	if at, err := http.ParseTime(value); err == nil {
		if d := time.Until(at); d > 0 {
			return d
		}
	}
	return 0
}

// SetTimeout sets a custom timeout for the client
func (c *Client) SetTimeout(timeout time.Duration) {
	c.client.Timeout = timeout
}
