package flows

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
)

func TestPasswordResetRequestReturnsChallenge(t *testing.T) {
	deps := ResetDeps{
		RequestPath: "/auth/password-reset/request",
		Post: func(_ context.Context, _ string, body, out any) error {
			req := body.(resetRequestBody)
			if req.PhoneNumber != "+821012345678" {
				t.Fatalf("posted phone %q", req.PhoneNumber)
			}
			data, _ := json.Marshal(resetRequestResponse{ChallengeID: "ch-1"})
			return json.Unmarshal(data, out)
		},
	}

	result := RunPasswordResetRequest(context.Background(), "+821012345678", deps)
	if result.Failure != ResetFailureNone {
		t.Fatalf("failure = %v: %v", result.Failure, result.Err)
	}
	if result.ChallengeID != "ch-1" {
		t.Fatalf("challenge = %q", result.ChallengeID)
	}
}

func TestPasswordResetRequestRateLimited(t *testing.T) {
	deps := ResetDeps{
		Post:  func(context.Context, string, any, any) error { t.Fatal("network reached"); return nil },
		Allow: func(string) bool { return false },
	}
	result := RunPasswordResetRequest(context.Background(), "+82", deps)
	if result.Failure != ResetFailureRateLimited {
		t.Fatalf("failure = %v, want rate limited", result.Failure)
	}
}

func TestPasswordResetConfirmLogsUserIn(t *testing.T) {
	rec := &persistRecorder{}
	deps := ResetDeps{
		ConfirmPath: "/auth/password-reset/confirm",
		Post: func(_ context.Context, _ string, body, out any) error {
			req := body.(ResetConfirmRequest)
			if req.Code != "123456" || req.ChallengeID != "ch-1" {
				t.Fatalf("posted %+v", req)
			}
			data, _ := json.Marshal(authResponse{
				User:         wireUser{ID: "user-1"},
				AccessToken:  "a.b.c",
				RefreshToken: "d.e.f",
			})
			return json.Unmarshal(data, out)
		},
		Persist: rec.persist,
		Now:     staticNow,
	}

	result := RunPasswordResetConfirm(context.Background(), ResetConfirmRequest{
		PhoneNumber: "+82",
		ChallengeID: "ch-1",
		Code:        "123456",
		NewPassword: "new-pw",
	}, deps)
	if result.Failure != ResetFailureNone {
		t.Fatalf("failure = %v: %v", result.Failure, result.Err)
	}
	if rec.calls != 1 || rec.access != "a.b.c" {
		t.Fatal("confirmed reset did not persist the session")
	}
	if result.User.ID != "user-1" {
		t.Fatalf("user = %+v", result.User)
	}
}

func TestPasswordResetConfirmInvalidCode(t *testing.T) {
	deps := ResetDeps{
		Post:       postFailing(errRejected),
		IsRejected: func(err error) bool { return errors.Is(err, errRejected) },
	}
	result := RunPasswordResetConfirm(context.Background(), ResetConfirmRequest{Code: "000000"}, deps)
	if result.Failure != ResetFailureRejected {
		t.Fatalf("failure = %v, want rejected", result.Failure)
	}
}
