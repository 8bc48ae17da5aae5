// Package store provides SQLite-backed history of compliance runs.
//
// The store is append-only:
//   - Runs: one row per execution of the catalog (id, profile, device,
//     counts, digest of the outcome vector)
//   - Outcomes: one row per case of a run, keyed by (run_id, idx)
//
// # Ordering
//
// Runs are ordered by seq, the insertion order, never by timestamps. Outcomes
// are ordered by their catalog index.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
//
// Failure lists are stored as RFC 8785 canonical JSON produced by
// internal/report, the same encoding the run digest is computed over.
package store
