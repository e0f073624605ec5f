// Package flows contains the auth flow runners: username/password login,
// registration, social-code exchange, and password reset. Each runner is a
// free function taking a dependency struct of function values wired once by
// the root coordinator, and returns a result value carrying either the
// authenticated (profile, token pair) or failure metadata for root-level
// error mapping.
//
// # What this package must NOT do
//
//   - Import the root package (the root wires deps into it, never the
//     reverse).
//   - Decide navigation. Runners report outcomes; the coordinator routes.
package flows
