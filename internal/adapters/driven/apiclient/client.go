// Package apiclient sends JSON requests to hosted and local AI providers.
// Adapters map their own wire types; Client owns the HTTP plumbing and the
// classification of provider errors.
package apiclient

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

	"github.com/custodia-labs/recall/internal/adapters/driven/ratelimit"
)

// maxErrorBody caps how much of a failed reply is kept in a StatusError.
const maxErrorBody = 4 << 10

// Options configures a Client.
type Options struct {
	// Provider prefixes every error, e.g. "openai".
	Provider string

	// BaseURL is joined with each request path. A trailing slash is dropped.
	BaseURL string

	// Header is sent with every request.
	Header http.Header

	// Timeout bounds each request including reading the reply.
	Timeout time.Duration

	// RateLimit throttles POST requests.
	RateLimit ratelimit.Config

	// Unavailable is wrapped around transport failures and replies that
	// mean the provider is down or throttling (429 and 5xx).
	Unavailable error
}

// Client is a JSON client for one provider.
type Client struct {
	provider    string
	baseURL     string
	header      http.Header
	unavailable error
	http        *http.Client
	limiter     *ratelimit.Limiter
}

// New creates a client.
func New(opts Options) *Client {
	return &Client{
		provider:    opts.Provider,
		baseURL:     strings.TrimSuffix(opts.BaseURL, "/"),
		header:      opts.Header.Clone(),
		unavailable: opts.Unavailable,
		http:        &http.Client{Timeout: opts.Timeout},
		limiter:     ratelimit.New(opts.RateLimit),
	}
}

// Bearer returns a header carrying a bearer token.
func Bearer(token string) http.Header {
	h := http.Header{}
	h.Set("Authorization", "Bearer "+token)
	return h
}

// Provider returns the name used in errors.
func (c *Client) Provider() string {
	return c.provider
}

// StatusError is a reply outside the 2xx range.
type StatusError struct {
	Provider   string
	StatusCode int
	// Message is the provider's error message, or the raw body when the
	// reply carries no recognisable error envelope.
	Message string

	cause error
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s: status %d", e.Provider, e.StatusCode)
	}
	return fmt.Sprintf("%s: status %d: %s", e.Provider, e.StatusCode, e.Message)
}

// Unwrap exposes the unavailable sentinel for throttled and server errors.
func (e *StatusError) Unwrap() error {
	return e.cause
}

// IsStatus reports whether err is a StatusError with the given code.
func IsStatus(err error, code int) bool {
	var se *StatusError
	return errors.As(err, &se) && se.StatusCode == code
}

// Post sends in as JSON to path and decodes the reply into out. It waits
// for the rate limiter first and records throttling replies.
func (c *Client) Post(ctx context.Context, path string, in, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("%s: marshal request: %w", c.provider, err)
	}
	return c.do(ctx, http.MethodPost, path, bytes.NewReader(body), out)
}

// Get fetches path and decodes the reply into out, which may be nil.
// It is not rate limited.
func (c *Client) Get(ctx context.Context, path string, out any) error {
	return c.do(ctx, http.MethodGet, path, http.NoBody, out)
}

// Probe fetches path and returns the status code without judging it.
// Only transport failures are errors.
func (c *Client) Probe(ctx context.Context, path string) (int, error) {
	resp, err := c.send(ctx, http.MethodGet, path, http.NoBody)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	return resp.StatusCode, nil
}

func (c *Client) do(ctx context.Context, method, path string, body io.Reader, out any) error {
	resp, err := c.send(ctx, method, path, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return c.statusError(resp)
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s: decode response: %w", c.provider, err)
	}
	return nil
}

func (c *Client) send(ctx context.Context, method, path string, body io.Reader) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("%s: create request: %w", c.provider, err)
	}
	for k, v := range c.header {
		req.Header[k] = v
	}
	if method == http.MethodPost {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, c.wrapUnavailable(err)
	}
	c.limiter.Observe(resp)
	return resp, nil
}

func (c *Client) wrapUnavailable(err error) error {
	if c.unavailable == nil {
		return fmt.Errorf("%s: %w", c.provider, err)
	}
	return fmt.Errorf("%w: %s: %w", c.unavailable, c.provider, err)
}

func (c *Client) statusError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	se := &StatusError{
		Provider:   c.provider,
		StatusCode: resp.StatusCode,
		Message:    errorMessage(raw),
	}
	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= http.StatusInternalServerError {
		se.cause = c.unavailable
	}
	return se
}

// errorMessage pulls the message out of the common error envelopes:
// {"error": "text"} and {"error": {"message": "text"}}. Anything else is
// returned trimmed.
func errorMessage(raw []byte) string {
	var envelope struct {
		Error json.RawMessage `json:"error"`
	}
	if json.Unmarshal(raw, &envelope) == nil && len(envelope.Error) > 0 {
		var text string
		if json.Unmarshal(envelope.Error, &text) == nil && text != "" {
			return text
		}
		var detail struct {
			Message string `json:"message"`
		}
		if json.Unmarshal(envelope.Error, &detail) == nil && detail.Message != "" {
			return detail.Message
		}
	}
	return strings.TrimSpace(string(raw))
}
