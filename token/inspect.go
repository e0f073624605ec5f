package token

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrNotAToken is returned by [Inspect] for values that are not structurally
// valid JWTs.
var ErrNotAToken = errors.New("token: value is not a structurally valid JWT")

// Claims is the subset of JWT claims sessionkit inspects. Signatures are not
// verified; the values are used only for local reconciliation, never as a
// security decision.
type Claims struct {
	Subject   string
	ExpiresAt time.Time
}

// WellFormed reports whether value has the three dot-separated segments of a
// JWT. A refresh token failing this check must never be sent to the refresh
// endpoint.
func WellFormed(value string) bool {
	parts := strings.Split(value, ".")
	if len(parts) != 3 {
		return false
	}
	for _, p := range parts {
		if p == "" {
			return false
		}
	}
	return true
}

// Inspect decodes the claims of a structurally valid JWT without verifying
// its signature.
func Inspect(value string) (Claims, error) {
	if !WellFormed(value) {
		return Claims{}, ErrNotAToken
	}
	parsed, _, err := jwt.NewParser().ParseUnverified(value, jwt.MapClaims{})
	if err != nil {
		return Claims{}, ErrNotAToken
	}
	var out Claims
	if sub, err := parsed.Claims.GetSubject(); err == nil {
		out.Subject = sub
	}
	if exp, err := parsed.Claims.GetExpirationTime(); err == nil && exp != nil {
		out.ExpiresAt = exp.Time
	}
	return out, nil
}
