package proxy

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// StatusError is returned when the rendering proxy answers with a
// non-success status. The job orchestrator owns retry policy; the
// client only classifies.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("proxy returned status %d", e.Code)
}

// Retryable reports whether the failure is likely transient.
func (e *StatusError) Retryable() bool {
	return e.Code == http.StatusTooManyRequests || e.Code >= 500
}

type Options struct {
	BaseURL string
	// APIKey is a fixed key. When empty, KeySource is consulted on
	// every request, so a key stored while the engine is running takes
	// effect on the next fetch without a restart.
	APIKey    string
	KeySource func() (string, error)
	Country   string // optional origin-country hint, e.g. "us"
	Premium   bool
	Render    bool
	Timeout   time.Duration
}

// Client fetches rendered HTML through a third-party scraping proxy.
// It is stateless apart from the shared rate limiter.
type Client struct {
	opts    Options
	hc      *http.Client
	limiter *HostLimiter
}

func New(opts Options, limiter *HostLimiter) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	return &Client{
		opts:    opts,
		hc:      &http.Client{Timeout: opts.Timeout},
		limiter: limiter,
	}
}

// FetchRenderedHTML asks the proxy to load targetURL in a real browser
// and returns the rendered document body as text.
func (c *Client) FetchRenderedHTML(ctx context.Context, targetURL string) (string, error) {
	endpoint, err := c.buildURL(targetURL)
	if err != nil {
		return "", err
	}

	if c.limiter != nil {
		if err := c.limiter.WaitURL(ctx, c.opts.BaseURL); err != nil {
			return "", err
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", fmt.Errorf("build proxy request: %w", err)
	}
	req.Header.Set("User-Agent", "leadgen-engine/1.0 (+local)")

	res, err := c.hc.Do(req)
	if err != nil {
		return "", fmt.Errorf("proxy request: %w", err)
	}
	defer res.Body.Close()

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return "", fmt.Errorf("read proxy response: %w", err)
	}

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return "", &StatusError{Code: res.StatusCode, Body: string(body)}
	}

	return string(body), nil
}

func (c *Client) buildURL(targetURL string) (string, error) {
	base, err := url.Parse(c.opts.BaseURL)
	if err != nil {
		return "", fmt.Errorf("invalid proxy base url: %w", err)
	}

	key, err := c.apiKey()
	if err != nil {
		return "", err
	}

	q := url.Values{}
	q.Set("api_key", key)
	q.Set("url", targetURL)
	if c.opts.Premium {
		q.Set("premium", "true")
	}
	if c.opts.Render {
		q.Set("render", "true")
	}
	if c.opts.Country != "" {
		q.Set("country", c.opts.Country)
	}

	base.Path = "/scrape"
	base.RawQuery = q.Encode()
	return base.String(), nil
}

func (c *Client) apiKey() (string, error) {
	if c.opts.APIKey != "" {
		return c.opts.APIKey, nil
	}
	if c.opts.KeySource != nil {
		key, err := c.opts.KeySource()
		if err != nil {
			return "", err
		}
		if key != "" {
			return key, nil
		}
	}
	return "", fmt.Errorf("scrape proxy API key not configured")
}
