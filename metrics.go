package sessionkit

import internalmetrics "github.com/loqui-app/sessionkit/internal/metrics"

// MetricID identifies a specific counter in the in-process metrics system.
type MetricID = internalmetrics.MetricID

const (
	// MetricLoginSuccess counts successful username/password logins.
	MetricLoginSuccess = internalmetrics.MetricLoginSuccess
	// MetricLoginFailure counts rejected or failed logins.
	MetricLoginFailure = internalmetrics.MetricLoginFailure
	// MetricLoginRateLimited counts locally throttled submissions.
	MetricLoginRateLimited = internalmetrics.MetricLoginRateLimited
	// MetricRegisterSuccess counts successful registrations.
	MetricRegisterSuccess = internalmetrics.MetricRegisterSuccess
	// MetricRegisterFailure counts failed registrations.
	MetricRegisterFailure = internalmetrics.MetricRegisterFailure
	// MetricSocialLoginSuccess counts completed social exchanges.
	MetricSocialLoginSuccess = internalmetrics.MetricSocialLoginSuccess
	// MetricSocialLoginFailure counts failed social exchanges.
	MetricSocialLoginFailure = internalmetrics.MetricSocialLoginFailure
	// MetricSocialProviderUnavailable counts availability-check failures.
	MetricSocialProviderUnavailable = internalmetrics.MetricSocialProviderUnavailable
	// MetricPasswordResetRequest counts issued reset challenges.
	MetricPasswordResetRequest = internalmetrics.MetricPasswordResetRequest
	// MetricPasswordResetConfirm counts redeemed reset codes.
	MetricPasswordResetConfirm = internalmetrics.MetricPasswordResetConfirm
	// MetricRefreshSuccess counts completed token refreshes.
	MetricRefreshSuccess = internalmetrics.MetricRefreshSuccess
	// MetricRefreshFailure counts rejected token refreshes.
	MetricRefreshFailure = internalmetrics.MetricRefreshFailure
	// MetricRefreshCoalesced counts refresh callers that attached to an
	// already in-flight refresh.
	MetricRefreshCoalesced = internalmetrics.MetricRefreshCoalesced
	// MetricRetryAfterRefresh counts requests retried once after a refresh.
	MetricRetryAfterRefresh = internalmetrics.MetricRetryAfterRefresh
	// MetricCacheHit counts daily-content reads served from cache.
	MetricCacheHit = internalmetrics.MetricCacheHit
	// MetricCacheMiss counts reads with no cached snapshot.
	MetricCacheMiss = internalmetrics.MetricCacheMiss
	// MetricCacheStale counts reads whose snapshot failed the calendar-day
	// check.
	MetricCacheStale = internalmetrics.MetricCacheStale
	// MetricCachePurged counts partition purges.
	MetricCachePurged = internalmetrics.MetricCachePurged
	// MetricCacheCorruptSkipped counts corrupt partitions skipped by scans.
	MetricCacheCorruptSkipped = internalmetrics.MetricCacheCorruptSkipped
	// MetricRedirectArmed counts armed redirect grace timers.
	MetricRedirectArmed = internalmetrics.MetricRedirectArmed
	// MetricRedirectCancelled counts redirects cancelled before commit.
	MetricRedirectCancelled = internalmetrics.MetricRedirectCancelled
	// MetricRedirectCommitted counts committed unauthenticated redirects.
	MetricRedirectCommitted = internalmetrics.MetricRedirectCommitted
	// MetricReconcileDebounced counts reconciliation passes skipped inside
	// the debounce window.
	MetricReconcileDebounced = internalmetrics.MetricReconcileDebounced
	// MetricAccountMismatch counts restored token/profile subject
	// mismatches.
	MetricAccountMismatch = internalmetrics.MetricAccountMismatch
	// MetricStorageCorruptHealed counts deleted undecodable entries.
	MetricStorageCorruptHealed = internalmetrics.MetricStorageCorruptHealed
	// MetricLogout counts explicit logouts.
	MetricLogout = internalmetrics.MetricLogout
)

// Metrics holds atomic counters.
type Metrics = internalmetrics.Metrics

// MetricsSnapshot is a point-in-time deep copy of all counters.
type MetricsSnapshot = internalmetrics.Snapshot

// NewMetrics creates a new [Metrics] instance configured by the given
// [MetricsConfig]. When Enabled is false, all operations are no-ops.
func NewMetrics(cfg MetricsConfig) *Metrics {
	return internalmetrics.New(internalmetrics.Config{Enabled: cfg.Enabled})
}
