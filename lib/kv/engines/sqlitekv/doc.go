// Package sqlitekv implements the kv.IDocumentStore interface on top of an
// embedded SQLite database (pure-Go driver, no cgo).
//
// This is the durable substrate: the document and the lock key survive
// process restarts without explicit snapshotting, and WAL mode keeps
// concurrent readers cheap. Change subscriptions are in-process only — a
// writer in a different OS process is not observed; deployments that need
// cross-process notification route mutations through one serve process.
//
// Snapshot Save/Load is not supported (the database file is the snapshot);
// the engine reports this through its feature flags.
package sqlitekv
