// internal/scraper/client.go
package scraper

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"

	"github.com/valpere/MarktScout/internal/config"
	"github.com/valpere/MarktScout/internal/proxy"
)

// Client performs HTTP GET requests with retry logic and optional
// per-client proxying. Each worker task gets its own Client so proxy
// assignment needs no shared state.
type Client struct {
	httpClient    *http.Client
	userAgent     string
	limiter       *rate.Limiter
	retryAttempts int
	retryDelay    time.Duration
}

// ClientConfig defines configuration options for the HTTP client.
type ClientConfig struct {
	Timeout       time.Duration
	RetryAttempts int
	RetryDelay    time.Duration
	UserAgent     string
	Proxy         *proxy.Config // nil means direct connection

	// Limiter is a shared rate limiter; when set it takes precedence over
	// RateLimit. The engine passes one limiter to every worker client so
	// the ceiling applies across the whole run.
	Limiter *rate.Limiter

	// RateLimit is the requests-per-second ceiling for a standalone
	// client. 0 applies the default ceiling; negative disables limiting.
	RateLimit float64
	RateBurst int
}

// NewClient creates a new HTTP client with the specified configuration.
func NewClient(cfg ClientConfig) *Client {
	if cfg.Timeout == 0 {
		if cfg.Proxy != nil {
			cfg.Timeout = config.DefaultProxyTimeout
		} else {
			cfg.Timeout = config.DefaultRequestTimeout
		}
	}
	if cfg.RetryAttempts == 0 {
		cfg.RetryAttempts = config.DefaultRetryAttempts
	}
	if cfg.RetryDelay == 0 {
		cfg.RetryDelay = config.DefaultRetryDelay
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = config.DefaultUserAgent
	}

	transport := &http.Transport{
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
	}
	if cfg.Proxy != nil {
		proxyURL := cfg.Proxy.URL()
		transport.Proxy = func(*http.Request) (*url.URL, error) {
			return proxyURL, nil
		}
	}

	limiter := cfg.Limiter
	if limiter == nil {
		rateLimit := cfg.RateLimit
		if rateLimit == 0 {
			rateLimit = config.DefaultRateLimit
		}
		if rateLimit > 0 {
			burst := cfg.RateBurst
			if burst < 1 {
				burst = config.DefaultRateBurst
			}
			limiter = rate.NewLimiter(rate.Limit(rateLimit), burst)
		}
	}

	return &Client{
		httpClient: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: transport,
		},
		userAgent:     cfg.UserAgent,
		limiter:       limiter,
		retryAttempts: cfg.RetryAttempts,
		retryDelay:    cfg.RetryDelay,
	}
}

// Fetch retrieves the page body at targetURL, retrying on failure with a
// fixed backoff between attempts. Non-2xx responses count as failures.
func (c *Client) Fetch(ctx context.Context, targetURL string) (string, error) {
	if _, err := url.Parse(targetURL); err != nil {
		return "", fmt.Errorf("invalid URL: %w", err)
	}

	var lastErr error
	for attempt := 1; attempt <= c.retryAttempts; attempt++ {
		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return "", fmt.Errorf("rate limiter wait: %w", err)
			}
		}

		body, err := c.fetchOnce(ctx, targetURL)
		if err == nil {
			return body, nil
		}
		lastErr = fmt.Errorf("attempt %d/%d: %w", attempt, c.retryAttempts, err)

		if attempt < c.retryAttempts {
			select {
			case <-time.After(c.retryDelay):
			case <-ctx.Done():
				return "", ctx.Err()
			}
		}
	}

	return "", fmt.Errorf("fetch %s failed: %w", targetURL, lastErr)
}

func (c *Client) fetchOnce(ctx context.Context, targetURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, targetURL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	req.Header.Set("Connection", "keep-alive")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		io.Copy(io.Discard, resp.Body)
		return "", fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response body: %w", err)
	}

	return string(body), nil
}
