package auth

import (
	"context"
	"errors"
	"sync"
)

// stubHTTPClient scripts the platform's API for orchestrator and refresh
// coordinator tests.
type stubHTTPClient struct {
	mu       sync.Mutex
	getResp  *HTTPResponse
	getErr   error
	postResp *HTTPResponse
	postErr  error

	getCalls  []string
	postCalls []string
	postBody  []byte

	// postBlock, when set, makes Post wait until the channel is closed.
	// Used to hold a refresh in flight while callers pile up.
	postBlock chan struct{}
}

func (c *stubHTTPClient) Get(ctx context.Context, url string, headers map[string]string) (*HTTPResponse, error) {
	c.mu.Lock()
	c.getCalls = append(c.getCalls, url)
	resp, err := c.getResp, c.getErr
	c.mu.Unlock()

	if err != nil {
		return nil, err
	}
	if resp == nil {
		return nil, errors.New("no GET response scripted")
	}
	return resp, nil
}

func (c *stubHTTPClient) Post(ctx context.Context, url string, body []byte, headers map[string]string) (*HTTPResponse, error) {
	c.mu.Lock()
	c.postCalls = append(c.postCalls, url)
	c.postBody = body
	resp, err, block := c.postResp, c.postErr, c.postBlock
	c.mu.Unlock()

	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	if err != nil {
		return nil, err
	}
	if resp == nil {
		return nil, errors.New("no POST response scripted")
	}
	return resp, nil
}

func (c *stubHTTPClient) postCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.postCalls)
}
