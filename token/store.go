package token

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/loqui-app/sessionkit/kv"
)

var (
	// ErrNoRefreshToken is returned by [Store.Refresh] when no refresh token
	// is available (absent, malformed, or previously cleared).
	ErrNoRefreshToken = errors.New("token: no refresh token available")
	// ErrRefreshRejected is returned when the refresh endpoint rejects the
	// refresh token. The store clears all credentials before returning it.
	ErrRefreshRejected = errors.New("token: refresh token rejected")
)

// RefreshFunc exchanges a refresh token for a new token pair at the backend.
// The store guarantees at most one outstanding call at a time.
type RefreshFunc func(ctx context.Context, refreshToken string) (access, refresh string, err error)

// Hooks receives store-internal observations. All fields are optional.
type Hooks struct {
	// RefreshCoalesced fires when a Refresh caller attaches to an already
	// in-flight refresh instead of starting its own.
	RefreshCoalesced func()
	// RefreshRejected fires after a rejected refresh has cleared all
	// credentials. The session cannot recover without a new login.
	RefreshRejected func()
	// CorruptHealed fires when an undecodable persisted entry is deleted.
	CorruptHealed func(key string)
}

// Config wires a [Store].
type Config struct {
	// AccessTokenKey and RefreshTokenKey are the persistence keys for the
	// two credentials.
	AccessTokenKey  string
	RefreshTokenKey string
	// EncryptionKey is the fixed application key the refresh-token sealing
	// key is derived from. Minimum 16 bytes.
	EncryptionKey []byte
	// Refresh performs the network exchange. Required for [Store.Refresh].
	Refresh RefreshFunc
	// Warn, when set, receives recoverable anomalies.
	Warn  func(format string, args ...any)
	Hooks Hooks
}

// refreshCall is the shared in-flight refresh handle. Waiters block on done
// and then read access/err; both are written exactly once before close.
type refreshCall struct {
	done   chan struct{}
	access string
	err    error
}

// Store persists and refreshes the credential pair. Safe for concurrent use.
type Store struct {
	store kv.Store
	box   *cipherBox
	cfg   Config

	mu       sync.Mutex
	access   string
	refresh  string
	inflight *refreshCall
}

// NewStore creates a credential store over the given persistence layer.
func NewStore(store kv.Store, cfg Config) (*Store, error) {
	if store == nil {
		return nil, errors.New("token: kv store required")
	}
	if cfg.AccessTokenKey == "" || cfg.RefreshTokenKey == "" {
		return nil, errors.New("token: storage keys required")
	}
	box, err := newCipherBox(cfg.EncryptionKey)
	if err != nil {
		return nil, err
	}
	return &Store{store: store, box: box, cfg: cfg}, nil
}

// SetTokens persists the pair and updates the in-memory copies. The access
// token is written plaintext; the refresh token is sealed first. An empty
// refresh token removes the persisted entry.
func (s *Store) SetTokens(ctx context.Context, access, refresh string) error {
	if err := s.store.SetItem(ctx, s.cfg.AccessTokenKey, access); err != nil {
		return err
	}
	if refresh == "" {
		if err := s.store.RemoveItem(ctx, s.cfg.RefreshTokenKey); err != nil {
			return err
		}
	} else {
		blob, err := s.box.seal(refresh)
		if err != nil {
			return err
		}
		if err := s.store.SetItem(ctx, s.cfg.RefreshTokenKey, blob); err != nil {
			return err
		}
	}

	s.mu.Lock()
	s.access = access
	s.refresh = refresh
	s.mu.Unlock()
	return nil
}

// AccessToken returns the in-memory access token without touching
// persistence. Empty when unauthenticated.
func (s *Store) AccessToken() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.access
}

// RefreshToken returns the in-memory (decrypted) refresh token. Empty when
// absent.
func (s *Store) RefreshToken() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.refresh
}

// Restore populates in-memory state from persistence. Undecodable or
// structurally invalid entries are deleted and read as absent; only
// persistence-transport failures are returned.
func (s *Store) Restore(ctx context.Context) error {
	access, err := s.store.GetItem(ctx, s.cfg.AccessTokenKey)
	if err != nil && !errors.Is(err, kv.ErrNotFound) {
		return err
	}

	refresh := ""
	blob, err := s.store.GetItem(ctx, s.cfg.RefreshTokenKey)
	switch {
	case errors.Is(err, kv.ErrNotFound):
	case err != nil:
		return err
	default:
		value, ok := s.box.open(blob)
		if ok && WellFormed(value) {
			refresh = value
		} else {
			s.heal(ctx, s.cfg.RefreshTokenKey)
		}
	}

	s.mu.Lock()
	s.access = access
	s.refresh = refresh
	s.mu.Unlock()
	return nil
}

// Refresh exchanges the stored refresh token for a new pair. Concurrent
// callers share a single network call and receive the same result. On
// rejection all credentials are cleared and [ErrRefreshRejected] is returned.
func (s *Store) Refresh(ctx context.Context) (string, error) {
	s.mu.Lock()
	if c := s.inflight; c != nil {
		s.mu.Unlock()
		if s.cfg.Hooks.RefreshCoalesced != nil {
			s.cfg.Hooks.RefreshCoalesced()
		}
		select {
		case <-c.done:
			return c.access, c.err
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}

	refresh := s.refresh
	if refresh == "" {
		s.mu.Unlock()
		return "", ErrNoRefreshToken
	}
	if !WellFormed(refresh) {
		// Never send malformed input to the refresh endpoint.
		s.refresh = ""
		s.mu.Unlock()
		_ = s.store.RemoveItem(ctx, s.cfg.RefreshTokenKey)
		s.warn("token: discarding malformed refresh token")
		return "", ErrNoRefreshToken
	}
	if s.cfg.Refresh == nil {
		s.mu.Unlock()
		return "", errors.New("token: refresh func not configured")
	}

	c := &refreshCall{done: make(chan struct{})}
	s.inflight = c
	s.mu.Unlock()

	c.access, c.err = s.runRefresh(ctx, refresh)

	// Release before waking waiters so a later, independent refresh can start.
	s.mu.Lock()
	s.inflight = nil
	s.mu.Unlock()
	close(c.done)

	return c.access, c.err
}

func (s *Store) runRefresh(ctx context.Context, refresh string) (string, error) {
	access, next, err := s.cfg.Refresh(ctx, refresh)
	if err != nil {
		if clearErr := s.Clear(ctx); clearErr != nil {
			s.warn("token: clearing credentials after rejected refresh failed: %v", clearErr)
		}
		if s.cfg.Hooks.RefreshRejected != nil {
			s.cfg.Hooks.RefreshRejected()
		}
		return "", fmt.Errorf("%w: %v", ErrRefreshRejected, err)
	}
	if err := s.SetTokens(ctx, access, next); err != nil {
		return "", err
	}
	return access, nil
}

// Clear removes both persisted entries and resets in-memory state.
func (s *Store) Clear(ctx context.Context) error {
	err := s.store.RemoveItem(ctx, s.cfg.AccessTokenKey)
	if rerr := s.store.RemoveItem(ctx, s.cfg.RefreshTokenKey); err == nil {
		err = rerr
	}

	s.mu.Lock()
	s.access = ""
	s.refresh = ""
	s.mu.Unlock()
	return err
}

func (s *Store) heal(ctx context.Context, key string) {
	_ = s.store.RemoveItem(ctx, key)
	s.warn("token: removed undecodable entry %q", key)
	if s.cfg.Hooks.CorruptHealed != nil {
		s.cfg.Hooks.CorruptHealed(key)
	}
}

func (s *Store) warn(format string, args ...any) {
	if s.cfg.Warn != nil {
		s.cfg.Warn(format, args...)
	}
}
