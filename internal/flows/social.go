package flows

import (
	"context"
	"errors"
	"time"

	"github.com/loqui-app/sessionkit/internal/stores"
)

// SocialFailureKind classifies social-login failures.
type SocialFailureKind int

const (
	SocialFailureNone SocialFailureKind = iota
	SocialFailureUnavailable
	SocialFailureAuthorize
	SocialFailureTransport
	SocialFailureRejected
	SocialFailurePersist
)

// statusRegister is the exchange discriminator for a newly created account.
// Anything else routes as an existing login.
const statusRegister = "register"

// SocialDeps captures social-exchange flow dependencies.
type SocialDeps struct {
	ExchangePath string
	Scope        string
	// IsInstalled and Authorize front the provider SDK.
	IsInstalled func(ctx context.Context) (bool, error)
	Authorize   func(ctx context.Context, scope, state string) (code string, err error)
	// NewState mints the opaque state parameter passed to the provider and
	// forwarded with the exchange. The backend, which sees both legs,
	// verifies the echo; the client never holds the provider's reply.
	NewState   func() string
	Post       PostFunc
	Persist    PersistFunc
	IsRejected func(error) bool
	Now        func() time.Time
	Warn       func(string, ...any)
}

// SocialResult carries the authenticated pair plus the onboarding
// discriminator: Registered is true when the backend created the account
// during this exchange and the caller should route to onboarding.
type SocialResult struct {
	Failure      SocialFailureKind
	Err          error
	Registered   bool
	User         *stores.Profile
	AccessToken  string
	RefreshToken string
}

type socialExchangeRequest struct {
	Code  string `json:"code"`
	State string `json:"state,omitempty"`
}

// RunSocialExchange executes the social login flow. When code is empty the
// provider SDK is driven first (availability check, then authorize);
// otherwise the given code is exchanged directly.
func RunSocialExchange(ctx context.Context, code string, deps SocialDeps) SocialResult {
	state := ""
	if code == "" {
		installed, err := deps.IsInstalled(ctx)
		if err != nil || !installed {
			if err == nil {
				err = errors.New("provider not installed")
			}
			return SocialResult{Failure: SocialFailureUnavailable, Err: err}
		}

		state = deps.NewState()
		authorized, err := deps.Authorize(ctx, deps.Scope, state)
		if err != nil {
			return SocialResult{Failure: SocialFailureAuthorize, Err: err}
		}
		code = authorized
	}

	var resp authResponse
	if err := deps.Post(ctx, deps.ExchangePath, socialExchangeRequest{Code: code, State: state}, &resp); err != nil {
		if deps.IsRejected != nil && deps.IsRejected(err) {
			return SocialResult{Failure: SocialFailureRejected, Err: err}
		}
		return SocialResult{Failure: SocialFailureTransport, Err: err}
	}

	user := resp.profile(deps.Now)
	if err := deps.Persist(ctx, user, resp.AccessToken, resp.RefreshToken); err != nil {
		if deps.Warn != nil {
			deps.Warn("flows: persisting session after social exchange failed: %v", err)
		}
		return SocialResult{Failure: SocialFailurePersist, Err: err}
	}

	return SocialResult{
		Registered:   resp.Status == statusRegister,
		User:         user,
		AccessToken:  resp.AccessToken,
		RefreshToken: resp.RefreshToken,
	}
}
