package transport

import (
	"context"
	"crypto/tls"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	defaultTimeout = 30 * time.Second

	// maxResponseBytes bounds how much of a response body is read; service
	// configuration documents are at most a few megabytes.
	maxResponseBytes = 10 << 20
)

// Response captures the parts of an HTTP exchange the fetch pipeline inspects.
type Response struct {
	StatusCode int
	Reason     string
	Body       []byte
}

// Doer issues HTTP requests on behalf of the fetch pipeline. Implementations
// own timeouts, TLS trust, and request pacing; callers only see status,
// reason, and body.
type Doer interface {
	Get(ctx context.Context, rawURL string, headers map[string]string) (*Response, error)
	PostForm(ctx context.Context, rawURL string, headers map[string]string, form url.Values) (*Response, error)
}

// Client implements Doer over net/http.
type Client struct {
	httpClient *http.Client
	limiter    requestLimiter
}

// Option configures Client behaviour.
type Option func(*Client)

// WithTimeout overrides the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.httpClient.Timeout = d
		}
	}
}

// WithRateLimit paces outbound requests with a token bucket. A non-positive
// rate disables pacing.
func WithRateLimit(ratePerSecond float64, burst int) Option {
	return func(c *Client) {
		c.limiter = newTokenBucketLimiter(ratePerSecond, burst)
	}
}

// WithHTTPClient replaces the underlying HTTP client (primarily for tests).
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		if httpClient != nil {
			c.httpClient = httpClient
		}
	}
}

// New constructs a Client trusting the system certificate pool.
func New(opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{
			Timeout: defaultTimeout,
			Transport: &http.Transport{
				TLSClientConfig: &tls.Config{MinVersion: tls.VersionTLS12},
			},
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get issues a single GET and returns the status, reason, and body.
func (c *Client) Get(ctx context.Context, rawURL string, headers map[string]string) (*Response, error) {
	return c.do(ctx, http.MethodGet, rawURL, headers, "", nil)
}

// PostForm issues a single form-encoded POST. It exists for the token
// exchange; everything else in the pipeline is a GET.
func (c *Client) PostForm(ctx context.Context, rawURL string, headers map[string]string, form url.Values) (*Response, error) {
	return c.do(ctx, http.MethodPost, rawURL, headers, "application/x-www-form-urlencoded", strings.NewReader(form.Encode()))
}

func (c *Client) do(ctx context.Context, method, rawURL string, headers map[string]string, contentType string, body io.Reader) (*Response, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, rawURL, body)
	if err != nil {
		return nil, err
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	for key, value := range headers {
		req.Header.Set(key, value)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, err
	}

	return &Response{
		StatusCode: resp.StatusCode,
		Reason:     http.StatusText(resp.StatusCode),
		Body:       data,
	}, nil
}
