// Package vault implements the storage orchestration engine: the retrying
// read-modify-write protocol over the shared storage document, the
// recency-aware deduplication merge, and best-effort change propagation.
//
// One Vault is constructed per process and passed by reference to all
// callers; there is no package-level singleton. All tunables (reserved keys,
// lock timeout, retry budget, retry delay, clock) are constructor options.
//
// The insert path is the only locked path:
//
//	acquire lock -> read document -> merge batch -> write document -> release
//
// with a bounded retry loop around lock acquisition. A store failure inside
// the critical section releases the lock and fails the operation without
// retry — only contention is retried, because only contention is expected to
// clear on its own. The lock is released on every exit from the critical
// section, so an unexpected failure can never leave it held (and even if it
// could, the staleness timeout in lockmgr recovers).
//
// RemoveRecord and ClearAll are plain document rewrites without the lock.
// This preserves a narrow race window where a concurrent insert can be
// overwritten by a concurrent clear; deletion and clear are rare,
// user-initiated operations and last-write-wins was accepted here.
//
// The vault holds no authoritative in-memory copy of the document. Every
// operation re-reads before modifying, which is what makes concurrent
// writers in other processes tolerable at all.
package vault
