// Package testing provides a shared conformance test suite for
// kv.IDocumentStore engines. Each engine package runs the suite against its
// own factory, so every engine is held to the same contract: read-after-write
// visibility, defensive value copies, idempotent deletes, best-effort change
// notification and (where supported) snapshot round trips.
package testing
