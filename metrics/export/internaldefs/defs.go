package internaldefs

import (
	sessionkit "github.com/loqui-app/sessionkit"
)

// CounterDef binds one coordinator counter to its exported name.
type CounterDef struct {
	ID   sessionkit.MetricID
	Name string
	Help string
}

// CounterDefs lists every exported counter in a stable order.
var CounterDefs = []CounterDef{
	{ID: sessionkit.MetricLoginSuccess, Name: "sessionkit_login_success_total", Help: "Successful login attempts."},
	{ID: sessionkit.MetricLoginFailure, Name: "sessionkit_login_failure_total", Help: "Failed login attempts."},
	{ID: sessionkit.MetricLoginRateLimited, Name: "sessionkit_login_rate_limited_total", Help: "Rate-limited login attempts."},
	{ID: sessionkit.MetricRegisterSuccess, Name: "sessionkit_register_success_total", Help: "Successful registrations."},
	{ID: sessionkit.MetricRegisterFailure, Name: "sessionkit_register_failure_total", Help: "Failed registrations."},
	{ID: sessionkit.MetricSocialLoginSuccess, Name: "sessionkit_social_login_success_total", Help: "Successful social exchanges."},
	{ID: sessionkit.MetricSocialLoginFailure, Name: "sessionkit_social_login_failure_total", Help: "Failed social exchanges."},
	{ID: sessionkit.MetricSocialProviderUnavailable, Name: "sessionkit_social_provider_unavailable_total", Help: "Social logins aborted because the provider SDK was unavailable."},
	{ID: sessionkit.MetricPasswordResetRequest, Name: "sessionkit_password_reset_request_total", Help: "Password reset requests."},
	{ID: sessionkit.MetricPasswordResetConfirm, Name: "sessionkit_password_reset_confirm_total", Help: "Successful password reset confirmations."},
	{ID: sessionkit.MetricRefreshSuccess, Name: "sessionkit_refresh_success_total", Help: "Successful token refreshes."},
	{ID: sessionkit.MetricRefreshFailure, Name: "sessionkit_refresh_failure_total", Help: "Failed token refreshes."},
	{ID: sessionkit.MetricRefreshCoalesced, Name: "sessionkit_refresh_coalesced_total", Help: "Refresh callers that attached to an in-flight refresh."},
	{ID: sessionkit.MetricRetryAfterRefresh, Name: "sessionkit_retry_after_refresh_total", Help: "Requests retried after a successful refresh."},
	{ID: sessionkit.MetricCacheHit, Name: "sessionkit_cache_hit_total", Help: "Daily-content reads served from cache."},
	{ID: sessionkit.MetricCacheMiss, Name: "sessionkit_cache_miss_total", Help: "Daily-content reads that fetched through."},
	{ID: sessionkit.MetricCacheStale, Name: "sessionkit_cache_stale_total", Help: "Cached snapshots rejected as stale."},
	{ID: sessionkit.MetricCachePurged, Name: "sessionkit_cache_purged_total", Help: "Per-user cache partition purges."},
	{ID: sessionkit.MetricCacheCorruptSkipped, Name: "sessionkit_cache_corrupt_skipped_total", Help: "Undecodable cache partitions skipped during scans."},
	{ID: sessionkit.MetricRedirectArmed, Name: "sessionkit_redirect_armed_total", Help: "Armed redirect grace timers."},
	{ID: sessionkit.MetricRedirectCancelled, Name: "sessionkit_redirect_cancelled_total", Help: "Redirect grace timers cancelled before firing."},
	{ID: sessionkit.MetricRedirectCommitted, Name: "sessionkit_redirect_committed_total", Help: "Committed unauthenticated redirects."},
	{ID: sessionkit.MetricReconcileDebounced, Name: "sessionkit_reconcile_debounced_total", Help: "Reconciliation passes skipped by the debounce window."},
	{ID: sessionkit.MetricAccountMismatch, Name: "sessionkit_account_mismatch_total", Help: "Sessions purged due to token/profile subject mismatch."},
	{ID: sessionkit.MetricStorageCorruptHealed, Name: "sessionkit_storage_corrupt_healed_total", Help: "Deleted undecodable persisted entries."},
	{ID: sessionkit.MetricLogout, Name: "sessionkit_logout_total", Help: "Explicit logouts."},
}
