package metrics

import "sync/atomic"

// MetricID identifies one counter slot.
type MetricID uint16

const (
	MetricLoginSuccess MetricID = iota
	MetricLoginFailure
	MetricLoginRateLimited
	MetricRegisterSuccess
	MetricRegisterFailure
	MetricSocialLoginSuccess
	MetricSocialLoginFailure
	MetricSocialProviderUnavailable
	MetricPasswordResetRequest
	MetricPasswordResetConfirm
	MetricRefreshSuccess
	MetricRefreshFailure
	MetricRefreshCoalesced
	MetricRetryAfterRefresh
	MetricCacheHit
	MetricCacheMiss
	MetricCacheStale
	MetricCachePurged
	MetricCacheCorruptSkipped
	MetricRedirectArmed
	MetricRedirectCancelled
	MetricRedirectCommitted
	MetricReconcileDebounced
	MetricAccountMismatch
	MetricStorageCorruptHealed
	MetricLogout

	// MetricIDCount is the number of defined counters, not a counter itself.
	MetricIDCount
)

// Config controls whether metric writes are recorded.
type Config struct {
	Enabled bool
}

// slot pads each counter to its own cache line to avoid false sharing on the
// increment path.
type slot struct {
	value atomic.Uint64
	_     [56]byte
}

// Metrics holds atomic counters. A nil or disabled Metrics is a no-op.
type Metrics struct {
	enabled bool
	slots   [MetricIDCount]slot
}

// Snapshot is a point-in-time copy of all counters.
type Snapshot struct {
	Counters map[MetricID]uint64
}

// New creates a Metrics instance. When cfg.Enabled is false all operations
// are no-ops.
func New(cfg Config) *Metrics {
	return &Metrics{enabled: cfg.Enabled}
}

// Inc increments one counter.
func (m *Metrics) Inc(id MetricID) {
	if m == nil || !m.enabled || id >= MetricIDCount {
		return
	}
	m.slots[id].value.Add(1)
}

// Value reads one counter.
func (m *Metrics) Value(id MetricID) uint64 {
	if m == nil || !m.enabled || id >= MetricIDCount {
		return 0
	}
	return m.slots[id].value.Load()
}

// Snapshot deep copies all counters.
func (m *Metrics) Snapshot() Snapshot {
	snap := Snapshot{Counters: make(map[MetricID]uint64, MetricIDCount)}
	if m == nil || !m.enabled {
		return snap
	}
	for id := MetricID(0); id < MetricIDCount; id++ {
		snap.Counters[id] = m.slots[id].value.Load()
	}
	return snap
}
