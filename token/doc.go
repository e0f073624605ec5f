// Package token owns credential persistence for sessionkit: the short-lived
// access token (plaintext at rest), the long-lived refresh token (encrypted
// at rest), and the single-winner refresh critical section.
//
// # Design
//
// [Store] keeps both tokens in memory for synchronous reads and mirrors them
// into a [kv.Store]. The refresh token is sealed with ChaCha20-Poly1305 under
// a key derived from the application key via HKDF-SHA256; unsealing never
// returns an error, a failed decode reads as "absent" and deletes the corrupt
// entry. Concurrent [Store.Refresh] callers collapse into one outbound
// refresh call and all receive the same resolved pair or the same rejection.
//
// # What this package must NOT do
//
//   - Decide routing or session phase. That belongs to the root coordinator.
//   - Verify token signatures. Structural inspection only; the server is the
//     trust boundary.
//   - Import sessionkit (the root package imports token, never the reverse).
package token
