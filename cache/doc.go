// Package cache maintains the per-user, date-scoped snapshot of daily
// learning content.
//
// # Design
//
// Staleness is measured by calendar day, not elapsed time: a snapshot is
// valid only while it contains at least one item stamped with today's local
// date, because content is generated once per day. Writes are whole-document
// replacements, so a crash between fetch and write-through only forces a
// re-fetch. Cache keys are namespaced by user ID; switching accounts never
// surfaces another user's content.
//
// # What this package must NOT do
//
//   - Propagate decode failures from lookups. Corrupt partitions are skipped
//     and counted, never thrown.
//   - Refresh tokens or decide session phase.
package cache
