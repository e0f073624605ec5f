package sessionkit

import "errors"

var (
	// ErrUnauthenticated reports that no valid credential is available. It
	// triggers the redirect flow.
	ErrUnauthenticated = errors.New("unauthenticated")
	// ErrTokenRefreshFailed reports that the refresh token itself was
	// rejected by the server. It forces a full logout.
	ErrTokenRefreshFailed = errors.New("token refresh failed")
	// ErrStorageCorrupt reports a persisted entry that failed to decrypt or
	// parse. The entry has been deleted; the condition is never fatal.
	ErrStorageCorrupt = errors.New("storage corrupt")
	// ErrNetwork reports a transport-level failure. Not retried by this
	// core.
	ErrNetwork = errors.New("network failure")
	// ErrAccountMismatch reports that the restored token's subject does not
	// match the restored user profile. Forces logout rather than trusting
	// either value alone.
	ErrAccountMismatch = errors.New("account mismatch")
	// ErrInvalidCredentials reports a rejected login or registration.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrLoginRateLimited reports a locally throttled submission.
	ErrLoginRateLimited = errors.New("login rate limited")
	// ErrSocialUnavailable reports that the social provider is not
	// installed or not reachable on this device.
	ErrSocialUnavailable = errors.New("social provider unavailable")
	// ErrPasswordResetInvalid reports a rejected one-time code.
	ErrPasswordResetInvalid = errors.New("password reset challenge invalid")
	// ErrPolicyNotAccepted reports that startup is gated on the policy
	// consent flag.
	ErrPolicyNotAccepted = errors.New("policy not accepted")
	// ErrCoordinatorNotReady reports use before [Builder.Build] completed.
	ErrCoordinatorNotReady = errors.New("coordinator not initialized")
)
