package httpc

import (
	"context"
	"errors"
	"net/http"
	"testing"
)

type scriptedTransport struct {
	responses []*Response
	errs      []error
	requests  []recordedRequest
}

type recordedRequest struct {
	method  string
	path    string
	headers map[string]string
}

func (s *scriptedTransport) Request(_ context.Context, method, path string, _ []byte, headers map[string]string) (*Response, error) {
	s.requests = append(s.requests, recordedRequest{method: method, path: path, headers: headers})
	i := len(s.requests) - 1
	if i < len(s.errs) && s.errs[i] != nil {
		return nil, s.errs[i]
	}
	if i >= len(s.responses) {
		return &Response{Status: http.StatusOK}, nil
	}
	return s.responses[i], nil
}

type stubTokens struct {
	access     string
	refreshed  string
	refreshErr error
	calls      int
}

func (s *stubTokens) AccessToken() string { return s.access }

func (s *stubTokens) Refresh(context.Context) (string, error) {
	s.calls++
	if s.refreshErr != nil {
		return "", s.refreshErr
	}
	s.access = s.refreshed
	return s.refreshed, nil
}

func TestDoAttachesBearerToken(t *testing.T) {
	transport := &scriptedTransport{responses: []*Response{{Status: 200, Body: []byte(`{"ok":true}`)}}}
	client := NewClient(Config{Transport: transport, Tokens: &stubTokens{access: "tok-1"}})

	var out struct {
		OK bool `json:"ok"`
	}
	if err := client.Get(context.Background(), "/learning/daily", &out); err != nil {
		t.Fatalf("get: %v", err)
	}
	if !out.OK {
		t.Fatal("response not decoded")
	}
	if got := transport.requests[0].headers["Authorization"]; got != "Bearer tok-1" {
		t.Fatalf("Authorization = %q, want Bearer tok-1", got)
	}
}

func TestDoExpiredTokenRefreshesOnceAndRetries(t *testing.T) {
	transport := &scriptedTransport{responses: []*Response{
		{Status: http.StatusUnauthorized},
		{Status: 200, Body: []byte(`{}`)},
	}}
	tokens := &stubTokens{access: "stale", refreshed: "fresh"}
	retried := 0
	client := NewClient(Config{
		Transport: transport,
		Tokens:    tokens,
		RetryHook: func() { retried++ },
	})

	if err := client.Get(context.Background(), "/learning/daily", nil); err != nil {
		t.Fatalf("get: %v", err)
	}
	if tokens.calls != 1 {
		t.Fatalf("refresh called %d times, want 1", tokens.calls)
	}
	if len(transport.requests) != 2 {
		t.Fatalf("%d transport calls, want 2 (original + retry)", len(transport.requests))
	}
	if got := transport.requests[1].headers["Authorization"]; got != "Bearer fresh" {
		t.Fatalf("retry Authorization = %q, want the refreshed token", got)
	}
	if retried != 1 {
		t.Fatalf("retry hook fired %d times, want 1", retried)
	}
}

func TestDo403TokenExpiredBodyTreatedAsAuthFailure(t *testing.T) {
	transport := &scriptedTransport{responses: []*Response{
		{Status: http.StatusForbidden, Body: []byte(`{"error":"token_expired"}`)},
		{Status: 200},
	}}
	tokens := &stubTokens{access: "stale", refreshed: "fresh"}
	client := NewClient(Config{Transport: transport, Tokens: tokens})

	if err := client.Get(context.Background(), "/learning/daily", nil); err != nil {
		t.Fatalf("get: %v", err)
	}
	if tokens.calls != 1 {
		t.Fatalf("refresh called %d times, want 1", tokens.calls)
	}
}

func TestDoFailedRefreshSurfacesUnauthorizedWithoutRetry(t *testing.T) {
	transport := &scriptedTransport{responses: []*Response{{Status: http.StatusUnauthorized}}}
	tokens := &stubTokens{access: "stale", refreshErr: errors.New("invalid_grant")}
	client := NewClient(Config{Transport: transport, Tokens: tokens})

	err := client.Get(context.Background(), "/learning/daily", nil)
	if !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("error = %v, want ErrUnauthorized", err)
	}
	if len(transport.requests) != 1 {
		t.Fatalf("%d transport calls after failed refresh, want 1", len(transport.requests))
	}
}

func TestDoRetryThatFailsAgainStopsAtOne(t *testing.T) {
	transport := &scriptedTransport{responses: []*Response{
		{Status: http.StatusUnauthorized},
		{Status: http.StatusUnauthorized},
	}}
	tokens := &stubTokens{access: "stale", refreshed: "fresh"}
	client := NewClient(Config{Transport: transport, Tokens: tokens})

	err := client.Get(context.Background(), "/learning/daily", nil)
	if !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("error = %v, want ErrUnauthorized", err)
	}
	if tokens.calls != 1 {
		t.Fatalf("refresh called %d times, want exactly 1", tokens.calls)
	}
	if len(transport.requests) != 2 {
		t.Fatalf("%d transport calls, want 2", len(transport.requests))
	}
}

func TestDoExemptPathSkipsTokenAndRetry(t *testing.T) {
	transport := &scriptedTransport{responses: []*Response{{Status: http.StatusUnauthorized}}}
	tokens := &stubTokens{access: "tok"}
	client := NewClient(Config{
		Transport:   transport,
		Tokens:      tokens,
		ExemptPaths: []string{"/auth/login"},
	})

	err := client.Post(context.Background(), "/auth/login", map[string]string{"username": "u"}, nil)
	if !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("error = %v, want ErrUnauthorized", err)
	}
	if tokens.calls != 0 {
		t.Fatal("exempt path triggered a refresh")
	}
	if _, ok := transport.requests[0].headers["Authorization"]; ok {
		t.Fatal("exempt path carried a bearer token")
	}
}

func TestDoExemptMatchIgnoresQueryString(t *testing.T) {
	transport := &scriptedTransport{responses: []*Response{{Status: 200}}}
	client := NewClient(Config{
		Transport:   transport,
		Tokens:      &stubTokens{access: "tok"},
		ExemptPaths: []string{"/auth/login"},
	})

	if err := client.Post(context.Background(), "/auth/login?retry=1", nil, nil); err != nil {
		t.Fatalf("post: %v", err)
	}
	if _, ok := transport.requests[0].headers["Authorization"]; ok {
		t.Fatal("exempt path with query string carried a bearer token")
	}
}

func TestDoNonAuthStatusReturnsStatusError(t *testing.T) {
	transport := &scriptedTransport{responses: []*Response{
		{Status: http.StatusConflict, Body: []byte(`{"error":"duplicate"}`)},
	}}
	client := NewClient(Config{Transport: transport, Tokens: &stubTokens{access: "tok"}})

	err := client.Post(context.Background(), "/auth/register", nil, nil)
	var statusErr *StatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("error = %v, want *StatusError", err)
	}
	if statusErr.Status != http.StatusConflict {
		t.Fatalf("status = %d, want 409", statusErr.Status)
	}
}

func TestDoTransportFailureWrapsErrNetwork(t *testing.T) {
	transport := &scriptedTransport{errs: []error{errors.New("connection refused")}}
	client := NewClient(Config{Transport: transport, Tokens: &stubTokens{}})

	err := client.Get(context.Background(), "/learning/daily", nil)
	if !errors.Is(err, ErrNetwork) {
		t.Fatalf("error = %v, want ErrNetwork", err)
	}
}

func TestDoContextHeadersForwarded(t *testing.T) {
	transport := &scriptedTransport{responses: []*Response{{Status: 200}}}
	client := NewClient(Config{Transport: transport, Tokens: &stubTokens{access: "tok"}})

	ctx := WithLocale(WithDeviceID(context.Background(), "device-9"), "ko-KR")
	if err := client.Get(ctx, "/learning/daily", nil); err != nil {
		t.Fatalf("get: %v", err)
	}
	headers := transport.requests[0].headers
	if headers["Accept-Language"] != "ko-KR" {
		t.Fatalf("Accept-Language = %q, want ko-KR", headers["Accept-Language"])
	}
	if headers["X-Device-ID"] != "device-9" {
		t.Fatalf("X-Device-ID = %q, want device-9", headers["X-Device-ID"])
	}
}
