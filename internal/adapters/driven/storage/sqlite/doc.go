// Package sqlite provides SQLite-based implementations of driven port interfaces.
//
// This adapter uses modernc.org/sqlite, a pure Go SQLite implementation that requires
// no CGO, enabling easy cross-compilation. Two databases are managed:
//
//   - IndexStore: one snapshot per named index at <index dir>/<name>/index.db,
//     holding documents, chunks with their embeddings, and the index config
//   - Store: application state at <data dir>/state.db, exposing SchedulerStore
//
// Keeping them apart lets a rebuild delete an index directory wholesale
// without touching poller history.
//
// # Schema
//
// Each database has versioned migrations under migrations/index and
// migrations/state. Applied versions are recorded in schema_migrations.
//
// # Crash Consistency
//
// Every index mutation is written by IndexStore.ApplyChanges inside a single
// transaction, so a crash leaves either the old or the new snapshot.
//
// # Thread Safety
//
// All operations are thread-safe. The stores use database-level locking provided
// by SQLite in WAL mode.
package sqlite
