// Package memkv implements the kv.IDocumentStore interface with an
// in-memory engine built on a concurrent map.
//
// The engine is the default substrate for a single-process deployment: all
// contexts (the coordinator and the extraction agents) share one process and
// therefore one memkv instance, and the change-subscription mechanism gives
// them cross-context notifications without polling.
//
// Durability is provided by binary snapshots: Save serializes the full
// key space to a writer (with a magic header and format version), Load
// restores it. The serve command uses this to persist the store across
// restarts. Within one process, values returned by Get are always defensive
// copies, so callers can modify them freely.
package memkv
