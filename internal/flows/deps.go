package flows

import (
	"context"
	"time"

	"github.com/loqui-app/sessionkit/internal/stores"
)

// Deps groups flow dependency sets. The root coordinator builds this once
// and delegates public methods to the matching runner.
type Deps struct {
	Login  LoginDeps
	Social SocialDeps
	Reset  ResetDeps
}

// wireUser is the account payload shape shared by all auth endpoints.
type wireUser struct {
	ID          string    `json:"id"`
	Username    string    `json:"username"`
	PhoneNumber string    `json:"phone_number"`
	CreatedAt   time.Time `json:"created_at"`
	LastLoginAt time.Time `json:"last_login_at"`
}

// authResponse is the success payload shared by all auth endpoints. Status
// is present only on the social exchange.
type authResponse struct {
	User         wireUser `json:"user"`
	AccessToken  string   `json:"access_token"`
	RefreshToken string   `json:"refresh_token"`
	Status       string   `json:"status,omitempty"`
}

func (r *authResponse) profile(now func() time.Time) *stores.Profile {
	p := &stores.Profile{
		ID:          r.User.ID,
		Username:    r.User.Username,
		PhoneNumber: r.User.PhoneNumber,
		CreatedAt:   r.User.CreatedAt,
		LastLoginAt: r.User.LastLoginAt,
	}
	if p.LastLoginAt.IsZero() && now != nil {
		p.LastLoginAt = now()
	}
	return p
}

// PersistFunc commits a successful flow: purge any previous account's cached
// state, save the profile, persist the token pair. Must complete before the
// runner reports success.
type PersistFunc func(ctx context.Context, user *stores.Profile, access, refresh string) error

// PostFunc issues a JSON POST through the session client.
type PostFunc func(ctx context.Context, path string, body, out any) error
