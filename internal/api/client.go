// Package api implements the gateway to the Plume remote service. It is the
// only package performing network I/O: stateless request/response mapping
// with no caching or retry logic. Response envelopes vary across endpoints
// ({"data": ...}, {"posts": ...}, bare objects, and object-keyed lists);
// everything is normalized here before it reaches callers.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"time"
)

// DefaultTimeout bounds every request issued by the gateway. Unresponsive
// requests eventually fail and surface as ErrRemote.
const DefaultTimeout = 15 * time.Second

// Client is a typed HTTP client for the Plume service.
type Client struct {
	baseURL string
	http    *http.Client
}

// Option customises a Client.
type Option func(*Client)

// WithHTTPClient substitutes the underlying HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		if h != nil {
			c.http = h
		}
	}
}

// WithTimeout overrides the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.http.Timeout = d
		}
	}
}

// New constructs a gateway client rooted at the provided base URL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		http:    &http.Client{Timeout: DefaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// request performs one HTTP round trip and returns the status code and raw
// body. Transport failures are reported as ErrRemote; status mapping is left
// to the caller.
func (c *Client) request(ctx context.Context, method, path, token string, body any) (int, []byte, error) {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return 0, nil, fmt.Errorf("encode %s %s body: %w", method, path, err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return 0, nil, fmt.Errorf("build %s %s: %w", method, path, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("%s %s: %w: %v", method, path, ErrRemote, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, fmt.Errorf("%s %s: read body: %w: %v", method, path, ErrRemote, err)
	}

	return resp.StatusCode, data, nil
}

// call performs a round trip and applies the default status mapping:
// 401/403 to ErrUnauthenticated, 404 to ErrNotFound, any other non-2xx to
// ErrRemote.
func (c *Client) call(ctx context.Context, method, path, token string, body any) ([]byte, error) {
	status, data, err := c.request(ctx, method, path, token, body)
	if err != nil {
		return nil, err
	}
	if err := classify(status, data, method, path); err != nil {
		return nil, err
	}
	return data, nil
}

func classify(status int, data []byte, method, path string) error {
	switch {
	case status >= 200 && status < 300:
		return nil
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return fmt.Errorf("%s %s: %w", method, path, ErrUnauthenticated)
	case status == http.StatusNotFound:
		return fmt.Errorf("%s %s: %w", method, path, ErrNotFound)
	default:
		if msg := errMessage(data); msg != "" {
			return fmt.Errorf("%s %s: %w: status %d: %s", method, path, ErrRemote, status, msg)
		}
		return fmt.Errorf("%s %s: %w: status %d", method, path, ErrRemote, status)
	}
}

// errMessage extracts a human-readable message from an error body, if present.
func errMessage(data []byte) string {
	var body struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(data, &body); err != nil {
		return ""
	}
	if body.Message != "" {
		return body.Message
	}
	return body.Error
}

// payload unwraps nested envelope keys until none of them match, returning
// the innermost raw value. A bare payload passes through unchanged.
func payload(raw []byte, keys ...string) json.RawMessage {
	cur := json.RawMessage(raw)
	for {
		var obj map[string]json.RawMessage
		if err := json.Unmarshal(cur, &obj); err != nil {
			return cur
		}
		descended := false
		for _, key := range keys {
			if v, ok := obj[key]; ok && !isNull(v) {
				cur = v
				descended = true
				break
			}
		}
		if !descended {
			return cur
		}
	}
}

func isNull(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}

// decodeList accepts either a JSON array or an object whose values form the
// list (the service returns both shapes). Object keys are sorted so the
// result is deterministic.
func decodeList[T any](raw json.RawMessage) ([]T, error) {
	if isNull(raw) {
		return nil, nil
	}
	var list []T
	if err := json.Unmarshal(raw, &list); err == nil {
		return list, nil
	}
	var keyed map[string]T
	if err := json.Unmarshal(raw, &keyed); err != nil {
		return nil, fmt.Errorf("decode list: %w", err)
	}
	out := make([]T, 0, len(keyed))
	for _, key := range slices.Sorted(maps.Keys(keyed)) {
		out = append(out, keyed[key])
	}
	return out, nil
}

func decodeOne[T any](raw json.RawMessage, keys ...string) (T, error) {
	var value T
	if err := json.Unmarshal(payload(raw, keys...), &value); err != nil {
		return value, fmt.Errorf("decode response: %w", err)
	}
	return value, nil
}

func searchPath(base, query string) string {
	return base + "?q=" + url.QueryEscape(query)
}
