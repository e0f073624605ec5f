// Package httpc is sessionkit's authenticated request layer. It attaches the
// bearer access token to outbound calls, detects authorization failures, and
// drives the one-refresh-one-retry recovery against the token store.
//
// # Architecture boundaries
//
// The wire itself lives behind [Transport]; [NewHTTPTransport] is the default
// net/http binding but hosts may substitute their own. httpc never retries
// network or timeout failures; that policy belongs to callers.
//
// # What this package must NOT do
//
//   - Persist anything. Token state is owned by the token package.
//   - Retry an authorization failure more than once per request.
package httpc
