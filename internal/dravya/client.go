// Package dravya is the HTTP client for the identification backend.
package dravya

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// DefaultBaseURL is used when no backend origin is configured.
const DefaultBaseURL = "http://127.0.0.1:8000"

// maxErrorBody caps how much of an error response is read for the detail message
const maxErrorBody = 64 << 10

// Client talks to the identification backend
type Client struct {
	httpClient *http.Client
	baseURL    string
}

// Option customizes a Client
type Option func(*Client)

// WithHTTPClient replaces the underlying http.Client (tests, custom transports).
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// NewClient creates a client for the backend at baseURL.
// An empty baseURL falls back to DefaultBaseURL.
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid backend URL %q: %w", baseURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid backend URL %q: scheme must be http or https", baseURL)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("invalid backend URL %q: missing host", baseURL)
	}

	// No client timeout: callers bound a call through its context.
	c := &Client{
		httpClient: &http.Client{},
		baseURL:    strings.TrimRight(u.String(), "/"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// BaseURL returns the backend origin requests are sent to
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Identify classifies a set of sensor readings.
// POST /identify
func (c *Client) Identify(ctx context.Context, req IdentifyRequest) (*IdentifyResult, error) {
	var result IdentifyResult
	if err := c.do(ctx, "identify", http.MethodPost, "/identify", nil, req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Search looks a dravya up by name.
// GET /search?name=...
func (c *Client) Search(ctx context.Context, name string) (*IdentifyResult, error) {
	var result IdentifyResult
	query := url.Values{"name": []string{name}}
	if err := c.do(ctx, "search", http.MethodGet, "/search", query, nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Research asks a free-text question about a dravya.
// POST /research
func (c *Client) Research(ctx context.Context, dravya, query string) (*ResearchAnswer, error) {
	var answer ResearchAnswer
	body := ResearchRequest{Dravya: dravya, Query: query}
	if err := c.do(ctx, "research", http.MethodPost, "/research", nil, body, &answer); err != nil {
		return nil, err
	}
	return &answer, nil
}

// Health reports backend liveness.
// GET /health
func (c *Client) Health(ctx context.Context) (*Health, error) {
	var h Health
	if err := c.do(ctx, "health", http.MethodGet, "/health", nil, nil, &h); err != nil {
		return nil, err
	}
	return &h, nil
}

// do performs one round trip and decodes a 2xx JSON reply into result.
// Every failure comes back as *Error.
func (c *Client) do(ctx context.Context, op, method, path string, query url.Values, body, result interface{}) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return clientError(op, fmt.Errorf("encode request: %w", err))
		}
		reader = bytes.NewReader(data)
	}

	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return clientError(op, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return networkError(op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return serverError(op, resp.StatusCode, respBody)
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return clientError(op, fmt.Errorf("decode response: %w", err))
	}
	return nil
}
