// Package stores contains the persisted record codecs shared by the root
// coordinator: the user profile and its fail-soft JSON handling.
//
// # What this package must NOT do
//
//   - Import the root package or decide session phase.
//   - Throw on corrupt data: undecodable records are deleted and reported
//     through the returned sentinel so callers treat them as absent.
package stores
