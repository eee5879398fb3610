// Package sqlite provides a unified SQLite-based implementation of the
// metadata store ports.
//
// This adapter uses modernc.org/sqlite, a pure Go SQLite implementation
// that requires no CGO, enabling easy cross-compilation. It implements
// multiple store interfaces through a single database connection:
//
//   - DocumentStore: document and indexed-field persistence
//   - TagStore: tag catalog and document/tag links
//   - TopicStore: per-document topic segments
//   - TimelineStore: transcript/OCR timeline entries
//
// The same database also hosts the exact-token FTS5 tables consumed by
// the index adapter; Store.DB exposes the shared handle for it.
//
// # Schema
//
// The database schema is managed through versioned migrations stored in
// the migrations/ directory. Each migration is a pair of .up.sql and
// .down.sql files.
//
// # Data Location
//
// By default, the database is stored at ~/.trove/data/trove.db
//
// # Thread Safety
//
// All operations are thread-safe. The store uses database-level locking
// provided by SQLite in WAL mode.
package sqlite
