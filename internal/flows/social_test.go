package flows

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
)

func socialDeps(rec *persistRecorder, status string) SocialDeps {
	return SocialDeps{
		ExchangePath: "/auth/social/exchange",
		Scope:        "profile",
		IsInstalled:  func(context.Context) (bool, error) { return true, nil },
		Authorize:    func(context.Context, string, string) (string, error) { return "sdk-code", nil },
		NewState:     func() string { return "state-1" },
		Post: func(_ context.Context, _ string, body, out any) error {
			data, _ := json.Marshal(authResponse{
				User:         wireUser{ID: "user-1", Username: "alice"},
				AccessToken:  "a.b.c",
				RefreshToken: "d.e.f",
				Status:       status,
			})
			return json.Unmarshal(data, out)
		},
		Persist: rec.persist,
		Now:     staticNow,
	}
}

func TestSocialExchangeSDKDriven(t *testing.T) {
	rec := &persistRecorder{}
	deps := socialDeps(rec, "login")

	var sentCode, sentState string
	inner := deps.Post
	deps.Post = func(ctx context.Context, path string, body, out any) error {
		req := body.(socialExchangeRequest)
		sentCode, sentState = req.Code, req.State
		return inner(ctx, path, body, out)
	}

	result := RunSocialExchange(context.Background(), "", deps)
	if result.Failure != SocialFailureNone {
		t.Fatalf("failure = %v: %v", result.Failure, result.Err)
	}
	if sentCode != "sdk-code" || sentState != "state-1" {
		t.Fatalf("exchanged (%q, %q), want SDK code and minted state", sentCode, sentState)
	}
	if result.Registered {
		t.Fatal("login status reported as registration")
	}
	if rec.calls != 1 {
		t.Fatal("persist not called")
	}
}

func TestSocialExchangeDirectCodeSkipsSDK(t *testing.T) {
	rec := &persistRecorder{}
	deps := socialDeps(rec, "login")
	deps.IsInstalled = func(context.Context) (bool, error) {
		t.Fatal("SDK availability checked despite a direct code")
		return false, nil
	}

	result := RunSocialExchange(context.Background(), "host-code", deps)
	if result.Failure != SocialFailureNone {
		t.Fatalf("failure = %v: %v", result.Failure, result.Err)
	}
}

func TestSocialExchangeRegisterStatusSetsDiscriminator(t *testing.T) {
	rec := &persistRecorder{}
	result := RunSocialExchange(context.Background(), "host-code", socialDeps(rec, "register"))
	if result.Failure != SocialFailureNone {
		t.Fatalf("failure = %v", result.Failure)
	}
	if !result.Registered {
		t.Fatal("register status not reported; caller cannot route to onboarding")
	}
}

func TestSocialExchangeProviderNotInstalled(t *testing.T) {
	deps := socialDeps(&persistRecorder{}, "login")
	deps.IsInstalled = func(context.Context) (bool, error) { return false, nil }

	result := RunSocialExchange(context.Background(), "", deps)
	if result.Failure != SocialFailureUnavailable {
		t.Fatalf("failure = %v, want unavailable", result.Failure)
	}
}

func TestSocialExchangeAuthorizeDenied(t *testing.T) {
	deps := socialDeps(&persistRecorder{}, "login")
	deps.Authorize = func(context.Context, string, string) (string, error) {
		return "", errors.New("user cancelled")
	}

	result := RunSocialExchange(context.Background(), "", deps)
	if result.Failure != SocialFailureAuthorize {
		t.Fatalf("failure = %v, want authorize", result.Failure)
	}
}

func TestSocialExchangeBackendRejection(t *testing.T) {
	deps := socialDeps(&persistRecorder{}, "login")
	deps.Post = postFailing(errRejected)
	deps.IsRejected = func(err error) bool { return errors.Is(err, errRejected) }

	result := RunSocialExchange(context.Background(), "host-code", deps)
	if result.Failure != SocialFailureRejected {
		t.Fatalf("failure = %v, want rejected", result.Failure)
	}
}
