package origin

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cwygoda/get/internal/domain"
)

// Options configures every client the pool creates.
type Options struct {
	// Timeout bounds a whole request, body included.
	// Default: 30s
	Timeout time.Duration

	// MaxIdleConnsPerHost sets the idle connections kept per origin.
	// Default: 8
	MaxIdleConnsPerHost int

	// UserAgent is sent with every request when set.
	UserAgent string

	// Header is added to every request, e.g. API keys.
	Header http.Header
}

// DefaultOptions returns options with sensible defaults.
func DefaultOptions() Options {
	return Options{
		Timeout:             30 * time.Second,
		MaxIdleConnsPerHost: 8,
		UserAgent:           "get/0",
	}
}

// StatusError is a non-2xx response. It unwraps to domain.ErrRemoteUnavailable
// for statuses worth retrying and to domain.ErrProtocol otherwise.
type StatusError struct {
	Method string
	URL    string
	Code   int
	Body   string
}

func (e *StatusError) Error() string {
	msg := fmt.Sprintf("%s %s: status %d", e.Method, e.URL, e.Code)
	if e.Body != "" {
		msg += ": " + e.Body
	}
	return msg
}

func (e *StatusError) Unwrap() error {
	return classify(e.Code)
}

func classify(code int) error {
	switch {
	case code >= 500, code == http.StatusTooManyRequests, code == http.StatusRequestTimeout:
		return domain.ErrRemoteUnavailable
	default:
		return domain.ErrProtocol
	}
}

// Client is bound to one origin and reuses its connections.
type Client struct {
	origin string
	client *http.Client
	opts   Options
}

func newClient(origin string, opts Options) *Client {
	transport := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConnsPerHost: opts.MaxIdleConnsPerHost,
		MaxIdleConns:        opts.MaxIdleConnsPerHost,
		IdleConnTimeout:     90 * time.Second,
	}
	return &Client{
		origin: origin,
		client: &http.Client{
			Transport: transport,
			Timeout:   opts.Timeout,
		},
		opts: opts,
	}
}

// Origin returns the scheme://host this client talks to.
func (c *Client) Origin() string {
	return c.origin
}

// Fetch returns the whole body of GET origin+path.
func (c *Client) Fetch(ctx context.Context, path string) ([]byte, error) {
	return c.Do(ctx, http.MethodGet, path, nil)
}

// GetJSON decodes the body of GET origin+path into v. A body that does not
// decode is a protocol violation.
func (c *Client) GetJSON(ctx context.Context, path string, v any) error {
	return c.DoJSON(ctx, http.MethodGet, path, nil, v)
}

// DoJSON sends in as a JSON body (when non-nil) and decodes the reply into out
// (when non-nil).
func (c *Client) DoJSON(ctx context.Context, method, path string, in, out any) error {
	var body []byte
	if in != nil {
		var err error
		if body, err = json.Marshal(in); err != nil {
			return fmt.Errorf("encode %s %s: %w", method, path, err)
		}
	}
	data, err := c.Do(ctx, method, path, body)
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%w: decode %s %s%s: %v", domain.ErrProtocol, method, c.origin, path, err)
	}
	return nil
}

// Do performs one request and returns the whole response body.
func (c *Client) Do(ctx context.Context, method, path string, body []byte) ([]byte, error) {
	url := c.origin + path

	var rd io.Reader
	if body != nil {
		rd = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, rd)
	if err != nil {
		return nil, fmt.Errorf("%w: create request: %v", domain.ErrProtocol, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.opts.UserAgent != "" {
		req.Header.Set("User-Agent", c.opts.UserAgent)
	}
	for k, vs := range c.opts.Header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	resp, err := c.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: %s %s: %v", domain.ErrRemoteUnavailable, method, url, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: read %s: %v", domain.ErrRemoteUnavailable, url, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &StatusError{
			Method: method,
			URL:    url,
			Code:   resp.StatusCode,
			Body:   truncate(string(data), 200),
		}
	}
	return data, nil
}

func (c *Client) close() {
	c.client.CloseIdleConnections()
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
