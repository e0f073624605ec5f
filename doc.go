// Package sessionkit is the session and data-freshness core for the Loqui
// language-learning clients: credential persistence with an encrypted-at-rest
// refresh token, transparent single-winner token refresh, a debounced and
// timer-gated authentication state machine, and a per-user date-scoped cache
// of daily learning content.
//
// The package is designed for interleaved async workloads: Coordinator
// methods are safe to call from multiple goroutines after initialization
// through [Builder.Build].
//
// # Architecture boundaries
//
// sessionkit is the public surface. It exposes [Coordinator], [Builder],
// [Config], and value types (UserProfile, Credential, SessionPhase, etc.).
// Flow orchestration, profile codecs, event dispatch, and metric storage
// live under internal/ and are never exported. Credential storage, the
// authenticated request layer, the daily cache, and the persistence boundary
// are the public subpackages token, httpc, cache, and kv.
//
// # What this package must NOT do
//
//   - Render screens or own UI state. It reports session phase; hosts route.
//   - Implement the network transport. That sits behind [httpc.Transport].
//   - Talk to social-login provider SDKs directly. They sit behind
//     [SocialProvider].
package sessionkit
