package token

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"testing"
	"time"
)

func buildJWT(t *testing.T, claims map[string]any) string {
	t.Helper()
	encode := func(v any) string {
		raw, err := json.Marshal(v)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		return base64.RawURLEncoding.EncodeToString(raw)
	}
	header := encode(map[string]any{"alg": "none", "typ": "JWT"})
	return header + "." + encode(claims) + ".unverified"
}

func TestWellFormed(t *testing.T) {
	cases := []struct {
		value string
		want  bool
	}{
		{"a.b.c", true},
		{"header.claims.signature", true},
		{"", false},
		{"a.b", false},
		{"a.b.c.d", false},
		{"a..c", false},
		{".b.c", false},
		{"a.b.", false},
	}
	for _, tc := range cases {
		if got := WellFormed(tc.value); got != tc.want {
			t.Fatalf("WellFormed(%q) = %v, want %v", tc.value, got, tc.want)
		}
	}
}

func TestInspectReadsSubjectAndExpiry(t *testing.T) {
	exp := time.Now().Add(time.Hour).Truncate(time.Second)
	value := buildJWT(t, map[string]any{
		"sub": "user-42",
		"exp": exp.Unix(),
	})

	claims, err := Inspect(value)
	if err != nil {
		t.Fatalf("inspect: %v", err)
	}
	if claims.Subject != "user-42" {
		t.Fatalf("subject = %q, want user-42", claims.Subject)
	}
	if !claims.ExpiresAt.Equal(exp) {
		t.Fatalf("expiry = %v, want %v", claims.ExpiresAt, exp)
	}
}

func TestInspectMissingClaimsAreZero(t *testing.T) {
	claims, err := Inspect(buildJWT(t, map[string]any{"aud": "app"}))
	if err != nil {
		t.Fatalf("inspect: %v", err)
	}
	if claims.Subject != "" || !claims.ExpiresAt.IsZero() {
		t.Fatalf("claims = %+v, want zero values", claims)
	}
}

func TestInspectRejectsNonTokens(t *testing.T) {
	for _, value := range []string{"", "opaque-session-id", "a.b", "not base64.x.y"} {
		if _, err := Inspect(value); !errors.Is(err, ErrNotAToken) {
			t.Fatalf("Inspect(%q) = %v, want ErrNotAToken", value, err)
		}
	}
}
