// Package harvest turns external record sources into batches the vault can
// ingest. A Source yields pages of flat records; the Walker drains a source
// into a single Batch, stamping missing extraction timestamps and deriving
// stable ids for records that arrive without one, so the vault's recency
// rules always have something to work with.
//
// Batches carry a ULID so overlapping harvest runs are distinguishable in
// logs, and Ingest couples a walk with a deduplicating vault insert.
//
// The built-in FileSource reads page files of JSON arrays, which is how
// exports from upstream CRM systems are dropped off. Other sources (HTTP
// APIs, message queues) implement the same two-method interface.
package harvest
