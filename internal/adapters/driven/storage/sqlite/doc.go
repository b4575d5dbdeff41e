// Package sqlite provides a SQLite-backed implementation of the run history
// and of named embedding corpora.
//
// This adapter uses modernc.org/sqlite, a pure Go SQLite implementation that requires
// no CGO, enabling easy cross-compilation. A single database connection serves:
//
//   - RunStore: Run history persistence
//   - EmbeddingStore: Corpora written by `casemap embed --store sqlite`
//
// # Schema
//
// The database schema is managed through versioned migrations stored in the
// migrations/ directory. Each migration is a pair of .up.sql and .down.sql files.
//
// # Data Location
//
// By default, the database is stored at ~/.casemap/data/casemap.db
//
// # Thread Safety
//
// All operations are thread-safe. The store uses database-level locking provided
// by SQLite in WAL mode.
package sqlite
