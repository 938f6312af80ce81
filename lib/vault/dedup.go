package vault

import "github.com/crmvault/crmvault/lib/records"

// --------------------------------------------------------------------------
// Deduplication
// --------------------------------------------------------------------------

// Merge combines an incoming batch into an existing collection by record id.
// An incoming record with a new id is appended; one whose id already exists
// replaces the stored record only if its ExtractedAt is strictly greater
// (ties keep the stored record, so re-processing the same export is a no-op).
//
// Output order is existing order first, then net-new incoming records in
// batch order. Duplicate ids inside the batch itself resolve by the same
// recency rule, as if the batch were replayed one record at a time.
//
// Merge is pure: it never mutates its arguments and touches no store.
func Merge(existing, incoming []records.Record) []records.Record {
	out := make([]records.Record, 0, len(existing)+len(incoming))
	index := make(map[string]int, len(existing))

	for _, r := range existing {
		if i, ok := index[r.ID]; ok {
			out[i] = r
			continue
		}
		index[r.ID] = len(out)
		out = append(out, r)
	}

	for _, r := range incoming {
		if i, ok := index[r.ID]; ok {
			if r.ExtractedAt > out[i].ExtractedAt {
				out[i] = r
			}
			continue
		}
		index[r.ID] = len(out)
		out = append(out, r)
	}

	return out
}
