package flows

import (
	"context"
	"time"

	"github.com/loqui-app/sessionkit/internal/stores"
)

// LoginFailureKind classifies login and registration failures for root-level
// mapping.
type LoginFailureKind int

const (
	LoginFailureNone LoginFailureKind = iota
	LoginFailureRateLimited
	LoginFailureTransport
	LoginFailureRejected
	LoginFailurePersist
)

// LoginRequest carries username/password credentials.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// RegisterRequest carries the registration form.
type RegisterRequest struct {
	Username    string `json:"username"`
	PhoneNumber string `json:"phone_number"`
	Password    string `json:"password"`
}

// LoginDeps captures login/registration flow dependencies.
type LoginDeps struct {
	LoginPath    string
	RegisterPath string
	Post         PostFunc
	Persist      PersistFunc
	// Allow gates submission bursts per identifier; nil disables limiting.
	Allow func(identifier string) bool
	// IsRejected distinguishes a server rejection from a transport failure.
	IsRejected func(error) bool
	Now        func() time.Time
	Warn       func(string, ...any)
}

// LoginResult carries either the authenticated pair or failure metadata.
type LoginResult struct {
	Failure      LoginFailureKind
	Err          error
	User         *stores.Profile
	AccessToken  string
	RefreshToken string
}

// RunLogin executes the username/password login flow.
func RunLogin(ctx context.Context, req LoginRequest, deps LoginDeps) LoginResult {
	return runCredentialFlow(ctx, deps.LoginPath, req.Username, req, deps)
}

// RunRegister executes the registration flow. Success semantics match login:
// the new account is persisted and returned logged in.
func RunRegister(ctx context.Context, req RegisterRequest, deps LoginDeps) LoginResult {
	return runCredentialFlow(ctx, deps.RegisterPath, req.Username, req, deps)
}

func runCredentialFlow(ctx context.Context, path, identifier string, body any, deps LoginDeps) LoginResult {
	if deps.Allow != nil && !deps.Allow(identifier) {
		return LoginResult{Failure: LoginFailureRateLimited}
	}

	var resp authResponse
	if err := deps.Post(ctx, path, body, &resp); err != nil {
		if deps.IsRejected != nil && deps.IsRejected(err) {
			return LoginResult{Failure: LoginFailureRejected, Err: err}
		}
		return LoginResult{Failure: LoginFailureTransport, Err: err}
	}

	user := resp.profile(deps.Now)
	if err := deps.Persist(ctx, user, resp.AccessToken, resp.RefreshToken); err != nil {
		if deps.Warn != nil {
			deps.Warn("flows: persisting session after %s failed: %v", path, err)
		}
		return LoginResult{Failure: LoginFailurePersist, Err: err}
	}

	return LoginResult{
		User:         user,
		AccessToken:  resp.AccessToken,
		RefreshToken: resp.RefreshToken,
	}
}
