// Package events implements sessionkit's asynchronous session-event pipeline:
// phase transitions, auth flow outcomes, cache purges, and storage self-heals
// are emitted as [Event] values and forwarded to a caller-supplied [Sink] by
// a buffered [Dispatcher].
//
// # Architecture boundaries
//
// The dispatcher owns buffering, backpressure, and drain-on-close. Sinks own
// delivery; slow sinks either block emitters (default) or cause drops when
// DropIfFull is set.
//
// # What this package must NOT do
//
//   - Block a session operation indefinitely when DropIfFull is set.
//   - Import the root package or any sibling package.
package events
