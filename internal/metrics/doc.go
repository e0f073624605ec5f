// Package metrics provides lock-free counters for sessionkit observability.
//
// # Design
//
// Counters are stored in cache-line-padded uint64 slots and incremented
// atomically. The write path is allocation-free; [Metrics.Snapshot] deep
// copies current values for exporters.
//
// # Architecture boundaries
//
// This package owns metric storage and snapshot creation. Export (Prometheus
// text exposition, OTel instruments) lives in metrics/export/ and reads
// Snapshot values.
//
// # What this package must NOT do
//
//   - Perform I/O or network calls.
//   - Import the root package or any sibling package.
//   - Expose global metric registries.
package metrics
