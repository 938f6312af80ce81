// Package kv defines the document store abstraction the storage
// coordination layer is built on. It is the boundary described by the
// persistence substrate: a durable key-value store with get/set/delete
// semantics and a change-subscription mechanism, but no transactions.
//
// Two engines implement the interface:
//
//   - memkv: an in-memory engine built on a concurrent map, with optional
//     binary snapshot save/load for persistence across restarts.
//   - sqlitekv: a durable engine backed by an embedded SQLite database.
//
// Engines differ in feature support (e.g. only memkv implements snapshot
// Save/Load); callers query SupportsFeature before relying on an optional
// operation, and unsupported calls fail with RetCUnsupportedOperation.
//
// Change subscription is best-effort and in-process: a callback registered
// with Subscribe fires after any successful Set or Delete of the watched
// key, asynchronously, and a failed or missing listener never affects the
// mutating caller.
package kv
