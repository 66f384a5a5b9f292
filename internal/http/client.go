package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/finn-wa/grocy-trolley-sub000/internal/http/ratelimit"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// StatusError is returned for non-retryable HTTP error responses
type StatusError struct {
	Method string
	URL    string
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s: HTTP %d: %s", e.Method, e.URL, e.Status, strings.TrimSpace(e.Body))
}

// Client is a JSON API client with rate limiting and retry logic
type Client struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	config     ratelimit.Config
	headers    http.Header
	logger     zerolog.Logger
}

// Option configures a Client
type Option func(*Client)

// WithHeader sets a header on every request
func WithHeader(key, value string) Option {
	return func(c *Client) {
		c.headers.Set(key, value)
	}
}

// WithLogger sets the client logger
func WithLogger(logger zerolog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// NewClient creates a new client for the API rooted at baseURL
func NewClient(baseURL string, config ratelimit.Config, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		limiter: ratelimit.NewLimiter(config),
		config:  config,
		headers: make(http.Header),
		logger:  zerolog.Nop(),
	}
	c.headers.Set("User-Agent", "grocy-trolley/1.0")
	c.headers.Set("Accept", "application/json")
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// URL resolves a path against the base URL
func (c *Client) URL(path string, query url.Values) string {
	u := c.baseURL + "/" + strings.TrimLeft(path, "/")
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	return u
}

// Do performs an HTTP request with rate limiting and retry logic. Only
// idempotent methods are retried. The caller must close the response body.
func (c *Client) Do(ctx context.Context, method, rawURL string, body []byte) (*http.Response, error) {
	var lastStatus int
	var lastErr error

	maxRetries := c.config.MaxRetries
	if !ratelimit.IsIdempotent(method) {
		maxRetries = 0
	}

	for attempt := 0; attempt <= maxRetries; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter: %w", err)
		}

		var reader io.Reader
		if body != nil {
			reader = bytes.NewReader(body)
		}
		req, err := http.NewRequestWithContext(ctx, method, rawURL, reader)
		if err != nil {
			return nil, fmt.Errorf("build request: %w", err)
		}
		for k, v := range c.headers {
			req.Header[k] = v
		}
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = err
			if attempt < maxRetries && ctx.Err() == nil {
				c.logger.Debug().Err(err).Str("url", rawURL).Int("attempt", attempt+1).Msg("Request failed, retrying")
				if err := ratelimit.Sleep(ctx, ratelimit.CalculateBackoff(attempt, c.config)); err != nil {
					return nil, err
				}
				continue
			}
			break
		}

		lastStatus = resp.StatusCode
		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			return resp, nil
		}

		if !ratelimit.IsRetryableStatus(resp.StatusCode) || attempt == maxRetries {
			data, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
			resp.Body.Close()
			if ratelimit.IsRetryableStatus(resp.StatusCode) && maxRetries > 0 {
				return nil, &ratelimit.FetchRetryError{
					Method:     method,
					URL:        rawURL,
					Attempts:   attempt + 1,
					LastStatus: resp.StatusCode,
					LastError:  &StatusError{Method: method, URL: rawURL, Status: resp.StatusCode, Body: string(data)},
				}
			}
			return nil, &StatusError{Method: method, URL: rawURL, Status: resp.StatusCode, Body: string(data)}
		}

		var backoff time.Duration
		if resp.StatusCode == http.StatusTooManyRequests {
			backoff = ratelimit.CalculateRateLimitBackoff(attempt, c.config, resp.Header.Get("Retry-After"))
		} else {
			backoff = ratelimit.CalculateBackoff(attempt, c.config)
		}
		resp.Body.Close()
		c.logger.Debug().Int("status", resp.StatusCode).Str("url", rawURL).Dur("backoff", backoff).Msg("Retryable status")
		if err := ratelimit.Sleep(ctx, backoff); err != nil {
			return nil, err
		}
	}

	return nil, &ratelimit.FetchRetryError{
		Method:     method,
		URL:        rawURL,
		Attempts:   maxRetries + 1,
		LastStatus: lastStatus,
		LastError:  lastErr,
	}
}

// GetJSON performs a GET request and decodes the JSON response into out
func (c *Client) GetJSON(ctx context.Context, path string, query url.Values, out any) error {
	return c.SendJSON(ctx, http.MethodGet, c.URL(path, query), nil, out)
}

// SendJSON encodes in as the request body (when non-nil) and decodes the
// response into out (when non-nil)
func (c *Client) SendJSON(ctx context.Context, method, rawURL string, in, out any) error {
	var body []byte
	if in != nil {
		var err error
		body, err = json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request body: %w", err)
		}
	}

	resp, err := c.Do(ctx, method, rawURL, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if out == nil || resp.StatusCode == http.StatusNoContent {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil && err != io.EOF {
		return fmt.Errorf("decode %s %s response: %w", method, rawURL, err)
	}
	return nil
}
