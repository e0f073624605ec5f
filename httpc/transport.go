package httpc

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// Response is the transport-level reply. Status carries the HTTP status code;
// Body is the raw payload.
type Response struct {
	Status int
	Body   []byte
}

// Transport is the outbound network collaborator. Implementations own
// timeouts and connection management.
type Transport interface {
	Request(ctx context.Context, method, path string, body []byte, headers map[string]string) (*Response, error)
}

// HTTPTransport is the default [Transport] over net/http.
type HTTPTransport struct {
	baseURL string
	client  *http.Client
}

// NewHTTPTransport binds a base URL. A nil client uses [http.DefaultClient];
// callers are expected to set their own timeout policy on the client.
func NewHTTPTransport(baseURL string, client *http.Client) *HTTPTransport {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPTransport{baseURL: strings.TrimRight(baseURL, "/"), client: client}
}

func (t *HTTPTransport) Request(ctx context.Context, method, path string, body []byte, headers map[string]string) (*Response, error) {
	var reader io.Reader
	if len(body) > 0 {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, t.baseURL+path, reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("httpc: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("httpc: read %s %s: %w", method, path, err)
	}
	return &Response{Status: resp.StatusCode, Body: payload}, nil
}
