// Package core provides the record store behind a dataset.
//
// A store is a single SQLite file (modernc.org/sqlite, no cgo) with one
// records table mapped through gorp. Every record has a surrogate id
// assigned in insertion order, an external id, a path relative to the
// dataset directory, a feature mapping and, for labeled stores, a pair of
// label lists. Feature and label mappings are stored as compressed blobs
// and are always read, modified in memory and written back whole.
//
// # Key Components
//
//   - SQLiteStore: open_or_create, insert, point lookup, ordered iteration and in-place updates.
//   - Tx / Batch: one commit for a whole extraction or copy pass.
//   - Coverage: roaring bitmap of the records holding a given feature.
//   - Logger: pluggable structured logging, including a log/slog bridge.
package core
