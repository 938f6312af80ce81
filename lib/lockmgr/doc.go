// Package lockmgr implements the mutual-exclusion token that serializes
// writers of the shared storage document. The lock medium is the document
// store itself: a wall-clock timestamp written under a reserved key means
// "locked", and the document's syncInProgress flag mirrors the state for
// observers. The timestamped key is the actual mutex; the flag is advisory.
//
// Core behavior:
//
//   - Acquisition fails closed: if the document cannot be read, the lock is
//     not taken. If a lock timestamp exists and is younger than the
//     configured timeout, acquisition fails without modifying anything —
//     this is the contention path callers retry on.
//
//   - Staleness recovery: a timestamp older than the timeout is treated as
//     absent, regardless of the syncInProgress flag's value. A writer that
//     crashed while holding the lock therefore blocks its successors for at
//     most one timeout window.
//
//   - Release is best-effort and idempotent: failures are logged and
//     swallowed, never propagated, because failing to clean up must not mask
//     the outcome of the operation the lock protected. The staleness check
//     guarantees eventual recovery even if release never succeeds.
//
// Known limitation: the check-then-set acquisition is not an atomic
// compare-and-swap. Two writers can both observe "no lock" and both proceed.
// The merge in the vault package is written so that a lost race degrades to
// an extra retry or a re-harvest, not corruption; deployments that need a
// hard guarantee route all mutations through a single serve process.
package lockmgr
