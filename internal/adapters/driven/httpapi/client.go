// Package httpapi sends JSON requests to model provider APIs and maps
// their failures onto the domain errors.
//
// Every failure it reports wraps domain.ErrProviderUnavailable. Failures
// worth another attempt (connection errors, rate limits and server errors)
// are additionally marked with retry.Transient.
package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/custodia-labs/sercha-rag/internal/adapters/driven/ratelimit"
	"github.com/custodia-labs/sercha-rag/internal/adapters/driven/retry"
	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

// Client talks to one provider API.
type Client struct {
	provider string
	baseURL  string
	http     *http.Client
	header   http.Header
	limiter  *ratelimit.Limiter
}

// Option configures a Client.
type Option func(*Client)

// WithHeader sets a header sent with every request.
func WithHeader(key, value string) Option {
	return func(c *Client) {
		c.header.Set(key, value)
	}
}

// WithBearer sets the Authorization header to a bearer token.
func WithBearer(token string) Option {
	return WithHeader("Authorization", "Bearer "+token)
}

// WithLimiter paces requests through l. A nil limiter does not wait.
func WithLimiter(l *ratelimit.Limiter) Option {
	return func(c *Client) {
		c.limiter = l
	}
}

// WithTimeout bounds each request, body included.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.http.Timeout = d
	}
}

// New creates a client for provider rooted at baseURL.
func New(provider, baseURL string, opts ...Option) *Client {
	c := &Client{
		provider: provider,
		baseURL:  strings.TrimSuffix(baseURL, "/"),
		http:     &http.Client{},
		header:   make(http.Header),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Provider returns the provider name used in error messages.
func (c *Client) Provider() string {
	return c.provider
}

// BaseURL returns the API root.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Response is a fully read HTTP response.
type Response struct {
	StatusCode int
	Body       []byte
	RetryAfter time.Duration
}

// OK reports a 2xx status.
func (r *Response) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// Do sends payload as JSON, or no body when payload is nil, and reads the
// response. Only transport failures are returned as errors; callers
// inspect the status themselves.
func (c *Client) Do(ctx context.Context, method, path string, payload any) (*Response, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%s: rate limit wait: %w: %w", c.provider, domain.ErrProviderUnavailable, err)
	}

	var body io.Reader = http.NoBody
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("%s: marshal request: %w", c.provider, err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("%s: create request: %w", c.provider, err)
	}
	for key, values := range c.header {
		req.Header[key] = values
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		err = fmt.Errorf("%s: send request: %w: %w", c.provider, domain.ErrProviderUnavailable, err)
		if ctx.Err() != nil {
			return nil, err
		}
		return nil, retry.Transient(err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, retry.Transient(fmt.Errorf("%s: read response: %w: %w", c.provider, domain.ErrProviderUnavailable, err))
	}

	return &Response{
		StatusCode: resp.StatusCode,
		Body:       data,
		RetryAfter: ratelimit.RetryAfter(resp),
	}, nil
}

// StatusError describes a non-2xx response. msg is the provider's own
// error message; when empty the body is used. A 429 also starts the
// limiter's backoff.
func (c *Client) StatusError(resp *Response, msg string) error {
	if msg == "" {
		msg = strings.TrimSpace(string(resp.Body))
	}
	err := fmt.Errorf("%s: %w (status %d): %s", c.provider, domain.ErrProviderUnavailable, resp.StatusCode, msg)

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		c.limiter.RecordRateLimitError(resp.RetryAfter)
		return retry.Transient(fmt.Errorf("%w: %w", domain.ErrRateLimited, err))
	case resp.StatusCode >= http.StatusInternalServerError:
		return retry.Transient(err)
	default:
		return err
	}
}

// Decode unmarshals the response body into v.
func (c *Client) Decode(resp *Response, v any) error {
	if err := json.Unmarshal(resp.Body, v); err != nil {
		return c.Malformed("decode response: %v", err)
	}
	return nil
}

// Malformed reports a response that does not have the expected shape.
func (c *Client) Malformed(format string, args ...any) error {
	return fmt.Errorf("%s: %w: %w: %s", c.provider, domain.ErrProviderUnavailable, domain.ErrMalformedResponse,
		fmt.Sprintf(format, args...))
}

// Unavailable reports a provider-side failure that is not tied to a status.
func (c *Client) Unavailable(format string, args ...any) error {
	return fmt.Errorf("%s: %w: %s", c.provider, domain.ErrProviderUnavailable, fmt.Sprintf(format, args...))
}

// Ping sends a GET to path and expects a 2xx answer. It returns the
// response so callers can inspect the body.
func (c *Client) Ping(ctx context.Context, path string) (*Response, error) {
	resp, err := c.Do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, fmt.Errorf("%s: ping failed: %w", c.provider, err)
	}
	if !resp.OK() {
		return resp, fmt.Errorf("%s: ping failed: %w", c.provider, c.StatusError(resp, ""))
	}
	return resp, nil
}

// Bounded runs fn under a deadline of timeout. When the deadline, and not
// the caller, ends the call, the error is reported as a timeout of the
// provider.
func Bounded[T any](ctx context.Context, provider string, timeout time.Duration, fn func(context.Context) (T, error)) (T, error) {
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	v, err := fn(callCtx)
	if err != nil && ctx.Err() == nil && errors.Is(callCtx.Err(), context.DeadlineExceeded) {
		var zero T
		return zero, fmt.Errorf("%s: timed out after %s: %w", provider, timeout, domain.ErrProviderUnavailable)
	}
	return v, err
}
