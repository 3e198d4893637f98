// Package client talks JSON to a running analysis server or any service
// with a similar JSON API.
package client

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

	"github.com/imyousuf/rubyagent/internal/api"
)

// DefaultTimeout applies when New is given a zero timeout.
const DefaultTimeout = 30 * time.Second

// HTTPError is returned for non-2xx responses.
type HTTPError struct {
	Status int
	Body   string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP %d %s: %s", e.Status, http.StatusText(e.Status), e.Body)
}

// Client sends JSON requests relative to a base URL.
type Client struct {
	baseURL string
	http    *http.Client
}

// New creates a client. Trailing slashes on baseURL are ignored.
func New(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

// BaseURL returns the normalized base URL.
func (c *Client) BaseURL() string { return c.baseURL }

// Get sends a GET with optional query parameters.
func (c *Client) Get(ctx context.Context, endpoint string, params url.Values) (map[string]any, error) {
	var out map[string]any
	err := c.do(ctx, http.MethodGet, endpoint, params, nil, &out)
	return orEmpty(out), err
}

// Post sends body as JSON. A nil body sends no content.
func (c *Client) Post(ctx context.Context, endpoint string, body any) (map[string]any, error) {
	var out map[string]any
	err := c.do(ctx, http.MethodPost, endpoint, nil, body, &out)
	return orEmpty(out), err
}

// Put sends body as JSON.
func (c *Client) Put(ctx context.Context, endpoint string, body any) (map[string]any, error) {
	var out map[string]any
	err := c.do(ctx, http.MethodPut, endpoint, nil, body, &out)
	return orEmpty(out), err
}

// Delete sends a DELETE.
func (c *Client) Delete(ctx context.Context, endpoint string) (map[string]any, error) {
	var out map[string]any
	err := c.do(ctx, http.MethodDelete, endpoint, nil, nil, &out)
	return orEmpty(out), err
}

// Health calls the server health endpoint.
func (c *Client) Health(ctx context.Context) (*api.HealthResponse, error) {
	var out api.HealthResponse
	if err := c.do(ctx, http.MethodGet, api.PathHealth, nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Analyze asks the server to analyze root and write output. A response
// with Success false is returned without error; transport failures and
// non-2xx statuses are errors.
func (c *Client) Analyze(ctx context.Context, root, output string) (*api.AnalyzeResponse, error) {
	var out api.AnalyzeResponse
	req := api.AnalyzeRequest{Root: root, Output: output}
	if err := c.do(ctx, http.MethodPost, api.PathAnalyze, nil, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func orEmpty(m map[string]any) map[string]any {
	if m == nil {
		return map[string]any{}
	}
	return m
}

func (c *Client) do(ctx context.Context, method, endpoint string, params url.Values, body, out any) error {
	u := c.baseURL + endpoint
	if len(params) > 0 {
		u += "?" + params.Encode()
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, u, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response body: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &HTTPError{Status: resp.StatusCode, Body: strings.TrimSpace(string(respBody))}
	}
	if len(bytes.TrimSpace(respBody)) == 0 {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
