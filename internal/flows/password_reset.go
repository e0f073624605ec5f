package flows

import (
	"context"
	"time"

	"github.com/loqui-app/sessionkit/internal/stores"
)

// ResetFailureKind classifies password-reset failures.
type ResetFailureKind int

const (
	ResetFailureNone ResetFailureKind = iota
	ResetFailureRateLimited
	ResetFailureTransport
	ResetFailureRejected
	ResetFailurePersist
)

// ResetDeps captures password-reset flow dependencies.
type ResetDeps struct {
	RequestPath string
	ConfirmPath string
	Post        PostFunc
	Persist     PersistFunc
	Allow       func(identifier string) bool
	IsRejected  func(error) bool
	Now         func() time.Time
	Warn        func(string, ...any)
}

// ResetRequestResult carries the server-issued challenge handle.
type ResetRequestResult struct {
	Failure     ResetFailureKind
	Err         error
	ChallengeID string
}

// ResetConfirmRequest carries the one-time code and replacement password.
type ResetConfirmRequest struct {
	PhoneNumber string `json:"phone_number"`
	ChallengeID string `json:"challenge_id"`
	Code        string `json:"code"`
	NewPassword string `json:"new_password"`
}

type resetRequestBody struct {
	PhoneNumber string `json:"phone_number"`
}

type resetRequestResponse struct {
	ChallengeID string `json:"challenge_id"`
}

// RunPasswordResetRequest asks the backend to issue a one-time code.
func RunPasswordResetRequest(ctx context.Context, phoneNumber string, deps ResetDeps) ResetRequestResult {
	if deps.Allow != nil && !deps.Allow(phoneNumber) {
		return ResetRequestResult{Failure: ResetFailureRateLimited}
	}

	var resp resetRequestResponse
	if err := deps.Post(ctx, deps.RequestPath, resetRequestBody{PhoneNumber: phoneNumber}, &resp); err != nil {
		if deps.IsRejected != nil && deps.IsRejected(err) {
			return ResetRequestResult{Failure: ResetFailureRejected, Err: err}
		}
		return ResetRequestResult{Failure: ResetFailureTransport, Err: err}
	}
	return ResetRequestResult{ChallengeID: resp.ChallengeID}
}

// ResetConfirmResult carries the authenticated pair after a redeemed code.
type ResetConfirmResult struct {
	Failure      ResetFailureKind
	Err          error
	User         *stores.Profile
	AccessToken  string
	RefreshToken string
}

// RunPasswordResetConfirm redeems the one-time code. Success logs the user
// in: profile and token pair are persisted and returned like any other flow.
func RunPasswordResetConfirm(ctx context.Context, req ResetConfirmRequest, deps ResetDeps) ResetConfirmResult {
	if deps.Allow != nil && !deps.Allow(req.PhoneNumber) {
		return ResetConfirmResult{Failure: ResetFailureRateLimited}
	}

	var resp authResponse
	if err := deps.Post(ctx, deps.ConfirmPath, req, &resp); err != nil {
		if deps.IsRejected != nil && deps.IsRejected(err) {
			return ResetConfirmResult{Failure: ResetFailureRejected, Err: err}
		}
		return ResetConfirmResult{Failure: ResetFailureTransport, Err: err}
	}

	user := resp.profile(deps.Now)
	if err := deps.Persist(ctx, user, resp.AccessToken, resp.RefreshToken); err != nil {
		if deps.Warn != nil {
			deps.Warn("flows: persisting session after reset confirm failed: %v", err)
		}
		return ResetConfirmResult{Failure: ResetFailurePersist, Err: err}
	}

	return ResetConfirmResult{
		User:         user,
		AccessToken:  resp.AccessToken,
		RefreshToken: resp.RefreshToken,
	}
}
