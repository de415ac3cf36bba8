// Package ledger keeps an optional SQLite history of runs and of the
// per-file outcomes of every archive step.
//
// The schema is created from embedded migrations tracked in a
// schema_migrations table. Writes retry briefly when another process holds
// the database lock.
package ledger
