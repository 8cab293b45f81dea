// Package client provides a thin HTTP client for the storefront proxy API
// and the storefront-side fallback that calls the marketplace directly when
// the proxy is blocked or down.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// ErrUnreachable wraps transport failures reaching the proxy.
var ErrUnreachable = errors.New("proxy unreachable")

// HTTPError is a non-2xx proxy response.
type HTTPError struct {
	Status int
	// Data is the mirrored marketplace body, when the proxy forwarded one.
	Data any
	// Message is the proxy's own error text, if any.
	Message string
}

func (e *HTTPError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("API error (HTTP %d): %s", e.Status, e.Message)
	}
	return fmt.Sprintf("API error (HTTP %d)", e.Status)
}

// Client is a thin HTTP client for the storefront proxy API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New creates a new API client targeting the given base URL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: http.DefaultClient,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Option configures the Client.
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// BaseURL returns the proxy address the client targets.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// errorEnvelope covers the failure fields of every proxy response shape.
type errorEnvelope struct {
	Status int    `json:"status"`
	Data   any    `json:"data"`
	Error  string `json:"error"`
	Detail string `json:"detail"`
}

func (c *Client) get(ctx context.Context, path string, dst any) error {
	return c.do(ctx, http.MethodGet, path, nil, dst)
}

func (c *Client) post(ctx context.Context, path string, body, dst any) error {
	return c.do(ctx, http.MethodPost, path, body, dst)
}

func (c *Client) do(ctx context.Context, method, path string, body, dst any) error {
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshaling request body: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("%w at %s: %w", ErrUnreachable, c.baseURL, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: reading response body: %w", ErrUnreachable, err)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		return decodeError(resp.StatusCode, respBody)
	}

	if dst != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, dst); err != nil {
			return fmt.Errorf("decoding response: %w", err)
		}
	}

	return nil
}

func decodeError(status int, body []byte) *HTTPError {
	herr := &HTTPError{Status: status}

	var env errorEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		herr.Message = strings.TrimSpace(string(body))
		return herr
	}

	herr.Data = env.Data
	herr.Message = env.Error
	if herr.Message == "" {
		herr.Message = env.Detail
	}
	return herr
}
