// Package httpx provides the rate-limit/retry-aware HTTP client shared by
// every provider adapter and the TMDB job. It generalizes
// kasuboski-mediaz's RateLimitedClient: same Retry-After-aware backoff
// and functional-option construction, extended with the 20s/30s timeout
// split spec §5 requires between interactive adapter calls and scheduled
// jobs.
package httpx

import (
	"fmt"
	"net/http"
	"strconv"
	"time"
)

const (
	DefaultMaxRetries     = 3
	DefaultBaseBackoff    = 500 * time.Millisecond
	DefaultAdapterTimeout = 20 * time.Second
	DefaultJobTimeout     = 30 * time.Second
)

// HTTPClient is satisfied by *http.Client; tests substitute a fake.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client wraps an HTTPClient, retrying on HTTP 429 with exponential
// backoff (or the server's Retry-After value when present).
type Client struct {
	client      HTTPClient
	baseBackoff time.Duration
	maxRetries  int
}

type Option func(*Client)

// NewClient constructs a Client with the given timeout and options.
func NewClient(timeout time.Duration, opts ...Option) *Client {
	c := &Client{
		client:      &http.Client{Timeout: timeout},
		maxRetries:  DefaultMaxRetries,
		baseBackoff: DefaultBaseBackoff,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

func WithMaxRetries(n int) Option {
	return func(c *Client) { c.maxRetries = n }
}

func WithBaseBackoff(d time.Duration) Option {
	return func(c *Client) { c.baseBackoff = d }
}

func WithHTTPClient(hc HTTPClient) Option {
	return func(c *Client) { c.client = hc }
}

// Do executes req, making up to maxRetries attempts in total while the
// server answers 429. On exhaustion it returns the last 429 response,
// whose body is already closed, with a non-nil error.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	var resp *http.Response
	var err error

	for attempt := 0; attempt < c.maxRetries; attempt++ {
		resp, err = c.client.Do(req)
		if err != nil {
			return nil, err
		}

		if resp.StatusCode != http.StatusTooManyRequests {
			return resp, nil
		}

		wait := c.retryAfter(resp, attempt)
		resp.Body.Close()
		time.Sleep(wait)
	}

	return resp, fmt.Errorf("httpx: rate limit exceeded after %d retries", c.maxRetries)
}

func (c *Client) retryAfter(resp *http.Response, attempt int) time.Duration {
	if h := resp.Header.Get("Retry-After"); h != "" {
		if seconds, err := strconv.Atoi(h); err == nil {
			return time.Duration(seconds) * time.Second
		}
	}
	return time.Duration(1<<attempt) * c.baseBackoff
}
