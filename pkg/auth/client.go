package auth

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

// HTTPResponse is the subset of an HTTP response the SDK consumes.
type HTTPResponse struct {
	Status     int
	StatusText string
	Body       []byte
	Headers    http.Header
}

// OK reports whether the status is a 2xx.
func (r *HTTPResponse) OK() bool {
	return r.Status >= 200 && r.Status < 300
}

// HTTPClient is the transport port used by the refresh coordinator and the
// profile fetch. It exists so coordinator tests can stub the platform.
type HTTPClient interface {
	Get(ctx context.Context, url string, headers map[string]string) (*HTTPResponse, error)
	Post(ctx context.Context, url string, body []byte, headers map[string]string) (*HTTPResponse, error)
}

// httpClient is the production HTTPClient over net/http.
type httpClient struct {
	client    *http.Client
	userAgent string
}

// NewHTTPClient creates the default HTTP client with the given per-request
// timeout.
func NewHTTPClient(timeout time.Duration, userAgent string) HTTPClient {
	return &httpClient{
		client:    &http.Client{Timeout: timeout},
		userAgent: userAgent,
	}
}

func (c *httpClient) Get(ctx context.Context, url string, headers map[string]string) (*HTTPResponse, error) {
	return c.do(ctx, http.MethodGet, url, nil, headers)
}

func (c *httpClient) Post(ctx context.Context, url string, body []byte, headers map[string]string) (*HTTPResponse, error) {
	return c.do(ctx, http.MethodPost, url, body, headers)
}

func (c *httpClient) do(ctx context.Context, method, url string, body []byte, headers map[string]string) (*HTTPResponse, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}

	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for name, value := range headers {
		req.Header.Set(name, value)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	return &HTTPResponse{
		Status:     resp.StatusCode,
		StatusText: resp.Status,
		Body:       data,
		Headers:    resp.Header,
	}, nil
}
