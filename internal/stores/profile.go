package stores

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/loqui-app/sessionkit/kv"
)

// ErrProfileCorrupt reports a persisted profile that failed to decode. The
// offending entry has already been removed when this is returned; callers
// treat the profile as absent.
var ErrProfileCorrupt = errors.New("stores: persisted profile corrupt")

// Profile is the persisted user record owned by the coordinator.
type Profile struct {
	ID          string    `json:"id"`
	Username    string    `json:"username"`
	PhoneNumber string    `json:"phone_number"`
	CreatedAt   time.Time `json:"created_at"`
	LastLoginAt time.Time `json:"last_login_at"`
}

// ProfileStore persists the logged-in user's profile as plaintext JSON under
// a single key.
type ProfileStore struct {
	store kv.Store
	key   string
	warn  func(format string, args ...any)
}

// NewProfileStore wires a profile store. warn may be nil.
func NewProfileStore(store kv.Store, key string, warn func(string, ...any)) *ProfileStore {
	return &ProfileStore{store: store, key: key, warn: warn}
}

// Save writes the profile, replacing any previous record.
func (s *ProfileStore) Save(ctx context.Context, p *Profile) error {
	data, err := json.Marshal(p)
	if err != nil {
		return err
	}
	return s.store.SetItem(ctx, s.key, string(data))
}

// Load returns the persisted profile, (nil, nil) when absent, or
// (nil, ErrProfileCorrupt) after purging an undecodable record.
func (s *ProfileStore) Load(ctx context.Context) (*Profile, error) {
	raw, err := s.store.GetItem(ctx, s.key)
	if errors.Is(err, kv.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var p Profile
	if err := json.Unmarshal([]byte(raw), &p); err != nil || p.ID == "" {
		_ = s.store.RemoveItem(ctx, s.key)
		if s.warn != nil {
			s.warn("stores: purged corrupt profile record")
		}
		return nil, ErrProfileCorrupt
	}
	return &p, nil
}

// Clear removes the persisted profile.
func (s *ProfileStore) Clear(ctx context.Context) error {
	return s.store.RemoveItem(ctx, s.key)
}
