// Package kv defines the key-value persistence boundary used by sessionkit
// for tokens, the cached user profile, and per-user daily content snapshots.
//
// # Architecture boundaries
//
// This package owns the [Store] interface and the built-in adapters
// ([Memory], [Redis], [SQLite]). Hosts that already have a native key-value
// layer (mobile secure storage, browser storage bridges) implement [Store]
// themselves and pass it to the root builder.
//
// # What this package must NOT do
//
//   - Interpret stored values. Everything is an opaque string; encoding and
//     encryption belong to the callers.
//   - Import sessionkit or any sibling package.
package kv
