// Package store provides SQLite-backed persistence for bundles.
//
// A bundle is stored as a header row and an append-only list of ops keyed
// by (bundle_id, seq). Module sources live in a content-addressed table
// keyed by ir.SourceHash, so identical files shared by several bundles or
// several installed copies of a package are stored once.
//
// # Ordering
//
// Ops are read back ORDER BY seq ASC, the logical clock stamped at build
// time. Wall-clock time is never stored.
//
// # Integrity
//
// Each bundle row carries its ir.Bundle hash. ReadBundle recomputes the
// hash after loading and fails on mismatch.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store
