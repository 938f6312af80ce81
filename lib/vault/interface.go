package vault

import "github.com/crmvault/crmvault/lib/records"

// IVault is the public surface of the storage engine. Both the in-process
// implementation in this package and the RPC client implement it, so callers
// are indifferent to whether the store is local or served remotely.
type IVault interface {
	// InsertWithDedup merges a harvested batch into one collection under the
	// document lock. It returns the number of net-new records (replacements
	// of existing records do not count) and a typed Error on failure:
	// FailContention once the retry budget is exhausted, FailStoreIO for
	// store failures, FailInvalidEntity for an unknown entity type.
	InsertWithDedup(entity records.EntityType, batch []records.Record) (inserted int, err error)

	// RemoveRecord deletes one record by id. It returns FailNotFound if no
	// record with that id exists in the collection.
	RemoveRecord(entity records.EntityType, id string) error

	// ClearAll resets the document to its initial empty state.
	ClearAll() error

	// Document returns the current document, defaulting to the empty
	// document if nothing has been stored yet.
	Document() (records.StorageDocument, error)

	// Status reports the lastSync timestamp and the advisory sync flag.
	Status() (lastSync int64, syncInProgress bool, err error)
}
