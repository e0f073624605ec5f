package httpc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var (
	// ErrUnauthorized is returned when a request fails authorization and the
	// single refresh-and-retry attempt did not recover it.
	ErrUnauthorized = errors.New("httpc: unauthorized")
	// ErrNetwork wraps transport-level failures. Never retried by this layer.
	ErrNetwork = errors.New("httpc: network failure")
)

// StatusError is returned for non-2xx replies that are not authorization
// failures.
type StatusError struct {
	Status int
	Body   []byte
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("httpc: unexpected status %d", e.Status)
}

// TokenSource supplies the bearer token and the refresh recovery used when a
// request fails authorization.
type TokenSource interface {
	AccessToken() string
	Refresh(ctx context.Context) (string, error)
}

// Config wires a [Client].
type Config struct {
	Transport Transport
	Tokens    TokenSource
	// ExemptPaths never carry a bearer token and are never refresh-retried.
	ExemptPaths []string
	// RetryHook fires when a request is retried after a successful refresh.
	RetryHook func()
	Warn      func(format string, args ...any)
}

// Client issues JSON requests with bearer authentication. Requests to
// auth-exempt paths (login, registration, refresh) carry no token and are
// never refresh-retried.
type Client struct {
	transport Transport
	tokens    TokenSource
	exempt    map[string]struct{}
	retryHook func()
	warn      func(format string, args ...any)
}

// NewClient wires the transport, the token source, and the set of
// auth-exempt paths.
func NewClient(cfg Config) *Client {
	exempt := make(map[string]struct{}, len(cfg.ExemptPaths))
	for _, p := range cfg.ExemptPaths {
		exempt[p] = struct{}{}
	}
	return &Client{
		transport: cfg.Transport,
		tokens:    cfg.Tokens,
		exempt:    exempt,
		retryHook: cfg.RetryHook,
		warn:      cfg.Warn,
	}
}

// Get issues a GET and decodes the JSON reply into out (ignored when nil).
func (c *Client) Get(ctx context.Context, path string, out any) error {
	return c.Do(ctx, http.MethodGet, path, nil, out)
}

// Post issues a POST with a JSON body.
func (c *Client) Post(ctx context.Context, path string, body, out any) error {
	return c.Do(ctx, http.MethodPost, path, body, out)
}

// Put issues a PUT with a JSON body.
func (c *Client) Put(ctx context.Context, path string, body, out any) error {
	return c.Do(ctx, http.MethodPut, path, body, out)
}

// Delete issues a DELETE.
func (c *Client) Delete(ctx context.Context, path string, out any) error {
	return c.Do(ctx, http.MethodDelete, path, nil, out)
}

// Do issues one request. On an authorization failure for a non-exempt path it
// performs exactly one token refresh and one retry before surfacing
// [ErrUnauthorized].
func (c *Client) Do(ctx context.Context, method, path string, body, out any) error {
	var payload []byte
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("httpc: encode %s %s: %w", method, path, err)
		}
		payload = encoded
	}

	exempt := c.isExempt(path)
	resp, err := c.request(ctx, method, path, payload, exempt, "")
	if err != nil {
		return err
	}

	if authFailure(resp) && !exempt && c.tokens != nil {
		fresh, refreshErr := c.tokens.Refresh(ctx)
		if refreshErr != nil {
			// Keep the store's sentinel in the chain so callers can tell a
			// rejected refresh from a plain authorization failure.
			return fmt.Errorf("%w: %w", ErrUnauthorized, refreshErr)
		}
		if c.retryHook != nil {
			c.retryHook()
		}
		resp, err = c.request(ctx, method, path, payload, true, fresh)
		if err != nil {
			return err
		}
		if authFailure(resp) {
			return ErrUnauthorized
		}
	} else if authFailure(resp) {
		return ErrUnauthorized
	}

	if resp.Status < 200 || resp.Status > 299 {
		return &StatusError{Status: resp.Status, Body: resp.Body}
	}
	if out == nil || len(resp.Body) == 0 {
		return nil
	}
	if err := json.Unmarshal(resp.Body, out); err != nil {
		return fmt.Errorf("httpc: decode %s %s: %w", method, path, err)
	}
	return nil
}

// request performs one transport round trip. forceToken overrides the token
// source read after a refresh so the retry cannot race a concurrent rotation.
func (c *Client) request(ctx context.Context, method, path string, payload []byte, skipSource bool, forceToken string) (*Response, error) {
	headers := map[string]string{}
	if locale := LocaleFromContext(ctx); locale != "" {
		headers["Accept-Language"] = locale
	}
	if deviceID := DeviceIDFromContext(ctx); deviceID != "" {
		headers["X-Device-ID"] = deviceID
	}
	switch {
	case forceToken != "":
		headers["Authorization"] = "Bearer " + forceToken
	case !skipSource && c.tokens != nil:
		if access := c.tokens.AccessToken(); access != "" {
			headers["Authorization"] = "Bearer " + access
		}
	}

	resp, err := c.transport.Request(ctx, method, path, payload, headers)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNetwork, err)
	}
	return resp, nil
}

func (c *Client) isExempt(path string) bool {
	if _, ok := c.exempt[path]; ok {
		return true
	}
	// Query strings never change exemption.
	if i := strings.IndexByte(path, '?'); i >= 0 {
		_, ok := c.exempt[path[:i]]
		return ok
	}
	return false
}

// authFailure reports whether the reply is a 401-equivalent. Some backends
// answer 403 with a token_expired body for expired bearers.
func authFailure(resp *Response) bool {
	if resp.Status == http.StatusUnauthorized {
		return true
	}
	return resp.Status == http.StatusForbidden && strings.Contains(string(resp.Body), "token_expired")
}
