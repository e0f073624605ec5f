// Package rate provides the client-side submission limiter guarding login,
// registration, and password-reset attempts against runaway UI loops.
package rate
