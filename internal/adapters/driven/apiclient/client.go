// Package apiclient is the JSON-over-HTTP client shared by the LLM and
// embedding adapters. Responses are returned as gjson results so each
// adapter reads only the paths it needs.
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

	"github.com/tidwall/gjson"
)

// maxResponseBytes caps how much of a response body is read.
const maxResponseBytes = 32 << 20

// maxErrorMessage caps the raw body echoed in a StatusError.
const maxErrorMessage = 300

// ErrInvalidJSON is returned when a 2xx response body is not JSON.
var ErrInvalidJSON = errors.New("response is not valid JSON")

// StatusError reports a non-2xx response.
type StatusError struct {
	Provider string
	Code     int
	Message  string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: API returned status %d: %s", e.Provider, e.Code, e.Message)
}

// Client sends JSON requests to one provider.
type Client struct {
	provider string
	baseURL  string
	header   http.Header
	http     *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithHeader sets a header sent on every request.
func WithHeader(key, value string) Option {
	return func(c *Client) {
		c.header.Set(key, value)
	}
}

// WithBearer sets an Authorization: Bearer header.
func WithBearer(token string) Option {
	return WithHeader("Authorization", "Bearer "+token)
}

// WithHTTPClient replaces the underlying http.Client. The timeout passed to
// New is ignored.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.http = hc
	}
}

// New creates a client for provider rooted at baseURL.
func New(provider, baseURL string, timeout time.Duration, opts ...Option) *Client {
	c := &Client{
		provider: provider,
		baseURL:  strings.TrimRight(baseURL, "/"),
		header:   make(http.Header),
		http:     &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the URL requests are resolved against.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Timeout returns the per-request timeout.
func (c *Client) Timeout() time.Duration {
	return c.http.Timeout
}

// Post sends body as JSON to path and returns the parsed response.
func (c *Client) Post(ctx context.Context, path string, body any) (gjson.Result, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return gjson.Result{}, fmt.Errorf("marshal request: %w", err)
	}
	return c.do(ctx, http.MethodPost, path, bytes.NewReader(payload))
}

// Get fetches path and returns the parsed response.
func (c *Client) Get(ctx context.Context, path string) (gjson.Result, error) {
	return c.do(ctx, http.MethodGet, path, http.NoBody)
}

// Check fetches path and discards the body. Used for reachability probes
// where the endpoint may not answer with JSON.
func (c *Client) Check(ctx context.Context, path string) error {
	_, err := c.send(ctx, http.MethodGet, path, http.NoBody)
	return err
}

func (c *Client) do(ctx context.Context, method, path string, body io.Reader) (gjson.Result, error) {
	raw, err := c.send(ctx, method, path, body)
	if err != nil {
		return gjson.Result{}, err
	}
	if !gjson.ValidBytes(raw) {
		return gjson.Result{}, fmt.Errorf("decode response: %w", ErrInvalidJSON)
	}
	return gjson.ParseBytes(raw), nil
}

func (c *Client) send(ctx context.Context, method, path string, body io.Reader) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	for key, values := range c.header {
		req.Header[key] = values
	}
	if method != http.MethodGet {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{Provider: c.provider, Code: resp.StatusCode, Message: errorMessage(raw)}
	}
	return raw, nil
}

// errorMessage pulls the provider's error text out of a failed response.
// OpenAI and Anthropic use error.message, Ollama uses a bare error string.
func errorMessage(raw []byte) string {
	if gjson.ValidBytes(raw) {
		for _, path := range []string{"error.message", "error"} {
			if v := gjson.GetBytes(raw, path); v.Type == gjson.String && v.Str != "" {
				return v.Str
			}
		}
	}
	msg := strings.TrimSpace(string(raw))
	if len(msg) > maxErrorMessage {
		msg = msg[:maxErrorMessage] + "..."
	}
	if msg == "" {
		return "empty response body"
	}
	return msg
}
