package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/loqui-app/sessionkit/kv"
)

// dateLayout is the string-exact calendar-day stamp carried by daily items.
const dateLayout = "2006-01-02"

var (
	// ErrNoUser is returned when a repository operation runs without a
	// logged-in user to namespace by.
	ErrNoUser = errors.New("cache: no current user")
	// ErrNotCached is returned by lookups that matched nothing.
	ErrNotCached = errors.New("cache: entry not cached")
)

// Log is one daily learning item.
type Log struct {
	ID        string `json:"id"`
	UserID    string `json:"user_id"`
	Date      string `json:"date"` // local calendar day, "2006-01-02"
	Title     string `json:"title"`
	Body      string `json:"body,omitempty"`
	WordCount int    `json:"word_count,omitempty"`
}

// AdditionalInfo carries the snapshot's summary metadata.
type AdditionalInfo struct {
	WordBookID     string `json:"word_book_id,omitempty"`
	GoalCount      int    `json:"goal_count"`
	CompletedCount int    `json:"completed_count"`
}

// Snapshot is the cached daily-content document.
type Snapshot struct {
	Logs           []Log          `json:"logs"`
	AdditionalInfo AdditionalInfo `json:"additional_info"`
}

// Getter issues the authenticated fetch when the cache misses.
type Getter interface {
	Get(ctx context.Context, path string, out any) error
}

// Hooks receives repository observations. All fields optional.
type Hooks struct {
	Hit            func()
	Miss           func()
	Stale          func()
	Purged         func()
	CorruptSkipped func()
}

// Config wires a [Repository].
type Config struct {
	Store  kv.Store
	Client Getter
	// Path is the daily-content endpoint.
	Path string
	// UserID returns the current user's ID, empty when logged out.
	UserID func() string
	// Prefix and LastFetchedPrefix namespace the persisted keys; the user ID
	// is appended.
	Prefix            string
	LastFetchedPrefix string
	Now               func() time.Time
	Warn              func(format string, args ...any)
	Hooks             Hooks
}

// Repository is the per-user daily-content cache. Safe for concurrent use to
// the extent the underlying [kv.Store] is; writes are whole-document.
type Repository struct {
	cfg Config
}

// NewRepository validates wiring and returns a repository.
func NewRepository(cfg Config) (*Repository, error) {
	if cfg.Store == nil {
		return nil, errors.New("cache: kv store required")
	}
	if cfg.Client == nil {
		return nil, errors.New("cache: http client required")
	}
	if cfg.UserID == nil {
		return nil, errors.New("cache: user id source required")
	}
	if cfg.Path == "" {
		cfg.Path = "/learning/daily"
	}
	if cfg.Prefix == "" {
		cfg.Prefix = "daily_logs:"
	}
	if cfg.LastFetchedPrefix == "" {
		cfg.LastFetchedPrefix = "daily_logs_fetched_at:"
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Repository{cfg: cfg}, nil
}

// FetchDailyLogs returns today's snapshot, serving the cache when it is
// valid and fetching through otherwise. When force is true the cache check
// is skipped. A fetch failure degrades to the cached snapshot if one exists
// (even stale), otherwise the empty snapshot and the error are returned.
func (r *Repository) FetchDailyLogs(ctx context.Context, force bool) (Snapshot, error) {
	userID := r.cfg.UserID()
	if userID == "" {
		return Snapshot{}, ErrNoUser
	}

	cached, haveCached := r.load(ctx, userID)
	if !force && haveCached && r.validFor(cached) {
		r.hook(r.cfg.Hooks.Hit)
		return cached, nil
	}
	if haveCached {
		r.hook(r.cfg.Hooks.Stale)
	} else {
		r.hook(r.cfg.Hooks.Miss)
	}

	var fresh Snapshot
	if err := r.cfg.Client.Get(ctx, r.cfg.Path, &fresh); err != nil {
		if haveCached {
			r.warn("cache: daily fetch failed, serving cached snapshot: %v", err)
			return cached, nil
		}
		return Snapshot{}, err
	}

	if err := r.Put(ctx, fresh); err != nil {
		// The snapshot is still good for this call; next call re-fetches.
		r.warn("cache: write-through failed: %v", err)
	}
	return fresh, nil
}

// IsValid reports whether the current user's cached snapshot exists and
// contains at least one item stamped with today's local calendar date.
func (r *Repository) IsValid(ctx context.Context) (bool, error) {
	userID := r.cfg.UserID()
	if userID == "" {
		return false, ErrNoUser
	}
	cached, ok := r.load(ctx, userID)
	return ok && r.validFor(cached), nil
}

// Put writes the snapshot through for the current user and stamps the
// last-fetched timestamp.
func (r *Repository) Put(ctx context.Context, snap Snapshot) error {
	userID := r.cfg.UserID()
	if userID == "" {
		return ErrNoUser
	}
	data, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	if err := r.cfg.Store.SetItem(ctx, r.cfg.Prefix+userID, string(data)); err != nil {
		return err
	}
	return r.cfg.Store.SetItem(ctx, r.cfg.LastFetchedPrefix+userID,
		r.cfg.Now().Format(time.RFC3339))
}

// Clear purges the current user's snapshot and timestamp.
func (r *Repository) Clear(ctx context.Context) error {
	userID := r.cfg.UserID()
	if userID == "" {
		return ErrNoUser
	}
	return r.ClearUser(ctx, userID)
}

// ClearUser purges one user's partition. Used on logout and account switch,
// before any new login's writes occur.
func (r *Repository) ClearUser(ctx context.Context, userID string) error {
	err := r.cfg.Store.RemoveItem(ctx, r.cfg.Prefix+userID)
	if rerr := r.cfg.Store.RemoveItem(ctx, r.cfg.LastFetchedPrefix+userID); err == nil {
		err = rerr
	}
	if err == nil {
		r.hook(r.cfg.Hooks.Purged)
	}
	return err
}

// LastFetched returns the current user's write-through timestamp.
func (r *Repository) LastFetched(ctx context.Context) (time.Time, bool) {
	userID := r.cfg.UserID()
	if userID == "" {
		return time.Time{}, false
	}
	raw, err := r.cfg.Store.GetItem(ctx, r.cfg.LastFetchedPrefix+userID)
	if err != nil {
		return time.Time{}, false
	}
	ts, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, false
	}
	return ts, true
}

// LookupByID scans all per-user partitions for one item. Corrupt partitions
// are skipped and counted, never surfaced.
func (r *Repository) LookupByID(ctx context.Context, logID string) (*Log, error) {
	var found *Log
	err := r.scan(ctx, func(snap Snapshot) bool {
		for i := range snap.Logs {
			if snap.Logs[i].ID == logID {
				found = &snap.Logs[i]
				return true
			}
		}
		return false
	})
	if err != nil {
		return nil, err
	}
	if found == nil {
		return nil, ErrNotCached
	}
	return found, nil
}

// LookupByDate collects items stamped with the given calendar date across
// all partitions.
func (r *Repository) LookupByDate(ctx context.Context, date string) ([]Log, error) {
	var matched []Log
	err := r.scan(ctx, func(snap Snapshot) bool {
		for _, l := range snap.Logs {
			if l.Date == date {
				matched = append(matched, l)
			}
		}
		return false
	})
	if err != nil {
		return nil, err
	}
	return matched, nil
}

func (r *Repository) scan(ctx context.Context, visit func(Snapshot) bool) error {
	keys, err := r.cfg.Store.Keys(ctx, r.cfg.Prefix)
	if err != nil {
		return err
	}
	for _, key := range keys {
		raw, err := r.cfg.Store.GetItem(ctx, key)
		if err != nil {
			continue
		}
		var snap Snapshot
		if err := json.Unmarshal([]byte(raw), &snap); err != nil {
			r.hook(r.cfg.Hooks.CorruptSkipped)
			r.warn("cache: skipping corrupt partition %q: %v", key, err)
			continue
		}
		if visit(snap) {
			return nil
		}
	}
	return nil
}

func (r *Repository) load(ctx context.Context, userID string) (Snapshot, bool) {
	raw, err := r.cfg.Store.GetItem(ctx, r.cfg.Prefix+userID)
	if err != nil {
		return Snapshot{}, false
	}
	var snap Snapshot
	if err := json.Unmarshal([]byte(raw), &snap); err != nil {
		r.hook(r.cfg.Hooks.CorruptSkipped)
		r.warn("cache: purging corrupt snapshot for current user: %v", err)
		_ = r.ClearUser(ctx, userID)
		return Snapshot{}, false
	}
	return snap, true
}

// validFor applies the staleness-by-date rule: at least one item dated with
// the current local calendar day.
func (r *Repository) validFor(snap Snapshot) bool {
	today := r.cfg.Now().Format(dateLayout)
	for _, l := range snap.Logs {
		if l.Date == today {
			return true
		}
	}
	return false
}

func (r *Repository) warn(format string, args ...any) {
	if r.cfg.Warn != nil {
		r.cfg.Warn(format, args...)
	}
}

func (r *Repository) hook(fn func()) {
	if fn != nil {
		fn()
	}
}
