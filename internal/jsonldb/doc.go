// Package jsonldb provides a generic, concurrent-safe, JSONL-backed data store.
//
// # Overview
//
// The package centers around [Table], a generic container that stores rows in a
// JSONL (JSON Lines) file with full in-memory caching for fast reads. Tables are
// safe for concurrent use by multiple goroutines.
//
// # Concurrency: Pessimistic Locking
//
// Table uses pessimistic locking: [Table.Modify] and [Batch.Commit] hold the
// write lock for the entire read-modify-write operation. This guarantees
// success without retries, unlike optimistic CAS which requires retry loops
// when concurrent writes collide. The tradeoff is lower throughput under high
// contention, but this is acceptable for local file storage with low
// concurrency.
//
// # Batches
//
// [Batch] groups multiple row mutations into a single atomic commit: all ops
// are applied in memory first, then the file is rewritten once and
// subscribers are notified once. A batch is limited to [MaxBatchOps]
// operations; larger multi-row mutations must be chunked by the caller.
//
// [CommitPair] commits two batches against two tables of the same row type
// as one unit, holding both locks across both file writes. Moving a row
// between tables (archival, restore) goes through it so no failure can
// leave the row in both tables or in neither.
//
// # Subscriptions
//
// [Table.Subscribe] returns a cancellable handle whose channel receives a
// full snapshot of the table after every committed mutation. Snapshots are
// complete row sets, not diffs: consumers that need deltas must diff
// consecutive snapshots themselves. Delivery is coalescing (latest snapshot
// wins) and never blocks writers.
//
// # Secondary Indexes
//
// [Index] provides O(1) lookups by arbitrary keys, staying synchronized with
// table mutations via [TableObserver].
//
// # File Format
//
// JSONL files with one JSON row per line. Rows are sorted by ID on load if
// out of order (handles clock drift and manual edits).
package jsonldb
