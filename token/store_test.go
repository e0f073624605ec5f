package token

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/loqui-app/sessionkit/kv"
)

const testAccess = "header.access-claims.sig"
const testRefresh = "header.refresh-claims.sig"

func newTestStore(t *testing.T, refresh RefreshFunc) (*Store, *kv.Memory) {
	t.Helper()
	mem := kv.NewMemory()
	s, err := NewStore(mem, Config{
		AccessTokenKey:  "auth_access_token",
		RefreshTokenKey: "auth_refresh_token",
		EncryptionKey:   []byte("0123456789abcdef0123456789abcdef"),
		Refresh:         refresh,
	})
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	return s, mem
}

func TestSetTokensRoundTripViaRestore(t *testing.T) {
	ctx := context.Background()
	s, mem := newTestStore(t, nil)

	if err := s.SetTokens(ctx, testAccess, testRefresh); err != nil {
		t.Fatalf("set tokens: %v", err)
	}

	// The persisted refresh entry must not contain the plaintext token.
	blob, err := mem.GetItem(ctx, "auth_refresh_token")
	if err != nil {
		t.Fatalf("get persisted refresh: %v", err)
	}
	if blob == testRefresh {
		t.Fatal("refresh token persisted in plaintext")
	}

	// A fresh store over the same persistence restores both.
	s2, err := NewStore(mem, Config{
		AccessTokenKey:  "auth_access_token",
		RefreshTokenKey: "auth_refresh_token",
		EncryptionKey:   []byte("0123456789abcdef0123456789abcdef"),
	})
	if err != nil {
		t.Fatalf("second store: %v", err)
	}
	if err := s2.Restore(ctx); err != nil {
		t.Fatalf("restore: %v", err)
	}
	if got := s2.AccessToken(); got != testAccess {
		t.Fatalf("access after restore = %q, want %q", got, testAccess)
	}
	if got := s2.RefreshToken(); got != testRefresh {
		t.Fatalf("refresh after restore = %q, want %q", got, testRefresh)
	}
}

func TestRestoreWrongKeyHealsEntry(t *testing.T) {
	ctx := context.Background()
	s, mem := newTestStore(t, nil)
	if err := s.SetTokens(ctx, testAccess, testRefresh); err != nil {
		t.Fatalf("set tokens: %v", err)
	}

	healed := ""
	other, err := NewStore(mem, Config{
		AccessTokenKey:  "auth_access_token",
		RefreshTokenKey: "auth_refresh_token",
		EncryptionKey:   []byte("a completely different app key!!"),
		Hooks:           Hooks{CorruptHealed: func(key string) { healed = key }},
	})
	if err != nil {
		t.Fatalf("new store: %v", err)
	}

	if err := other.Restore(ctx); err != nil {
		t.Fatalf("restore returned error for undecodable entry: %v", err)
	}
	if got := other.RefreshToken(); got != "" {
		t.Fatalf("refresh after failed decrypt = %q, want empty", got)
	}
	if healed != "auth_refresh_token" {
		t.Fatalf("healed key = %q, want auth_refresh_token", healed)
	}
	if _, err := mem.GetItem(ctx, "auth_refresh_token"); !errors.Is(err, kv.ErrNotFound) {
		t.Fatalf("undecodable entry not removed: %v", err)
	}
}

func TestRestoreGarbageBlobHeals(t *testing.T) {
	ctx := context.Background()
	s, mem := newTestStore(t, nil)

	if err := mem.SetItem(ctx, "auth_refresh_token", "not-base64!!"); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if err := s.Restore(ctx); err != nil {
		t.Fatalf("restore: %v", err)
	}
	if got := s.RefreshToken(); got != "" {
		t.Fatalf("refresh = %q, want empty", got)
	}
}

func TestRefreshNoTokenAvailable(t *testing.T) {
	called := atomic.Int32{}
	s, _ := newTestStore(t, func(context.Context, string) (string, string, error) {
		called.Add(1)
		return "", "", nil
	})

	if _, err := s.Refresh(context.Background()); !errors.Is(err, ErrNoRefreshToken) {
		t.Fatalf("refresh with no token: %v, want ErrNoRefreshToken", err)
	}
	if called.Load() != 0 {
		t.Fatal("refresh endpoint called without a refresh token")
	}
}

func TestRefreshMalformedTokenNeverReachesNetwork(t *testing.T) {
	ctx := context.Background()
	called := atomic.Int32{}
	s, mem := newTestStore(t, func(context.Context, string) (string, string, error) {
		called.Add(1)
		return "", "", nil
	})

	// Two segments, not a structurally valid JWT.
	if err := s.SetTokens(ctx, testAccess, "only.twoparts"); err != nil {
		t.Fatalf("set tokens: %v", err)
	}

	if _, err := s.Refresh(ctx); !errors.Is(err, ErrNoRefreshToken) {
		t.Fatalf("refresh with malformed token: %v, want ErrNoRefreshToken", err)
	}
	if called.Load() != 0 {
		t.Fatal("malformed refresh token was sent to the refresh endpoint")
	}
	if got := s.RefreshToken(); got != "" {
		t.Fatalf("malformed token kept in memory: %q", got)
	}
	if _, err := mem.GetItem(ctx, "auth_refresh_token"); !errors.Is(err, kv.ErrNotFound) {
		t.Fatal("malformed token kept in storage")
	}
}

func TestRefreshSuccessRotatesPair(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t, func(_ context.Context, rt string) (string, string, error) {
		if rt != testRefresh {
			return "", "", errors.New("unexpected refresh token")
		}
		return "new.access.tok", "new.refresh.tok", nil
	})
	if err := s.SetTokens(ctx, testAccess, testRefresh); err != nil {
		t.Fatalf("set tokens: %v", err)
	}

	access, err := s.Refresh(ctx)
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if access != "new.access.tok" {
		t.Fatalf("access = %q, want new.access.tok", access)
	}
	if got := s.RefreshToken(); got != "new.refresh.tok" {
		t.Fatalf("refresh = %q, want new.refresh.tok", got)
	}
}

func TestRefreshRejectionClearsEverything(t *testing.T) {
	ctx := context.Background()
	s, mem := newTestStore(t, func(context.Context, string) (string, string, error) {
		return "", "", errors.New("invalid_grant")
	})
	rejected := 0
	s.cfg.Hooks.RefreshRejected = func() {
		rejected++
		// The hook runs after the store has already cleared itself.
		if s.AccessToken() != "" || s.RefreshToken() != "" {
			t.Error("hook observed surviving credentials")
		}
	}
	if err := s.SetTokens(ctx, testAccess, testRefresh); err != nil {
		t.Fatalf("set tokens: %v", err)
	}

	if _, err := s.Refresh(ctx); !errors.Is(err, ErrRefreshRejected) {
		t.Fatalf("refresh: %v, want ErrRefreshRejected", err)
	}
	if s.AccessToken() != "" || s.RefreshToken() != "" {
		t.Fatal("credentials survived a rejected refresh")
	}
	if _, err := mem.GetItem(ctx, "auth_access_token"); !errors.Is(err, kv.ErrNotFound) {
		t.Fatal("persisted access token survived a rejected refresh")
	}
	if _, err := mem.GetItem(ctx, "auth_refresh_token"); !errors.Is(err, kv.ErrNotFound) {
		t.Fatal("persisted refresh token survived a rejected refresh")
	}
	if rejected != 1 {
		t.Fatalf("rejection hook fired %d times, want 1", rejected)
	}
}

func TestRefreshConcurrentCallersSingleNetworkCall(t *testing.T) {
	ctx := context.Background()
	calls := atomic.Int32{}
	release := make(chan struct{})
	s, _ := newTestStore(t, func(context.Context, string) (string, string, error) {
		calls.Add(1)
		<-release
		return "shared.access.tok", "next.refresh.tok", nil
	})
	if err := s.SetTokens(ctx, testAccess, testRefresh); err != nil {
		t.Fatalf("set tokens: %v", err)
	}

	coalesced := atomic.Int32{}
	s.cfg.Hooks.RefreshCoalesced = func() { coalesced.Add(1) }

	const n = 16
	var wg sync.WaitGroup
	wg.Add(n)
	results := make(chan string, n)
	for i := 0; i < n; i++ {
		go func() {
			defer wg.Done()
			access, err := s.Refresh(ctx)
			if err != nil {
				t.Errorf("refresh: %v", err)
				return
			}
			results <- access
		}()
	}
	// The winner is parked in the refresh func; every other caller must
	// attach to it before the network call is allowed to complete.
	for coalesced.Load() != n-1 {
		time.Sleep(time.Millisecond)
	}
	close(release)
	wg.Wait()
	close(results)

	if got := calls.Load(); got != 1 {
		t.Fatalf("refresh endpoint called %d times, want 1", got)
	}
	for access := range results {
		if access != "shared.access.tok" {
			t.Fatalf("caller received %q, want shared result", access)
		}
	}
}

func TestRefreshWaiterHonorsContextCancel(t *testing.T) {
	ctx := context.Background()
	block := make(chan struct{})
	s, _ := newTestStore(t, func(context.Context, string) (string, string, error) {
		<-block
		return "a.b.c", "d.e.f", nil
	})
	if err := s.SetTokens(ctx, testAccess, testRefresh); err != nil {
		t.Fatalf("set tokens: %v", err)
	}

	inFlight := make(chan struct{})
	go func() {
		close(inFlight)
		_, _ = s.Refresh(ctx)
	}()
	<-inFlight

	// Wait until the winner has registered its in-flight call.
	for {
		s.mu.Lock()
		registered := s.inflight != nil
		s.mu.Unlock()
		if registered {
			break
		}
		time.Sleep(time.Millisecond)
	}

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	if _, err := s.Refresh(cancelled); !errors.Is(err, context.Canceled) {
		t.Fatalf("waiter error = %v, want context.Canceled", err)
	}
	close(block)
}
