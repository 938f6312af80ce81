package records

import (
	"encoding/json"
	"fmt"
)

// --------------------------------------------------------------------------
// Entity Types
// --------------------------------------------------------------------------

// EntityType identifies one of the three record collections.
type EntityType string

const (
	EntityContacts EntityType = "contacts"
	EntityDeals    EntityType = "deals"
	EntityTasks    EntityType = "tasks"
)

// AllEntityTypes lists every valid entity type in document order.
var AllEntityTypes = []EntityType{EntityContacts, EntityDeals, EntityTasks}

// Valid returns whether e is one of the known entity types.
func (e EntityType) Valid() bool {
	switch e {
	case EntityContacts, EntityDeals, EntityTasks:
		return true
	default:
		return false
	}
}

// ParseEntityType converts a string to an EntityType.
// It returns an error for anything but the three known collections.
func ParseEntityType(s string) (EntityType, error) {
	e := EntityType(s)
	if !e.Valid() {
		return "", fmt.Errorf("unknown entity type %q (must be one of contacts, deals, tasks)", s)
	}
	return e, nil
}

// --------------------------------------------------------------------------
// Record
// --------------------------------------------------------------------------

// Record is a single harvested item. ID and ExtractedAt are the only fields
// the storage layer interprets; everything else is carried opaquely in
// Fields and round-trips through the flattening JSON codec below.
type Record struct {
	ID          string
	ExtractedAt int64
	Fields      map[string]json.RawMessage
}

// Field returns the raw JSON value of an opaque field, if present.
func (r Record) Field(name string) (json.RawMessage, bool) {
	v, ok := r.Fields[name]
	return v, ok
}

// MarshalJSON flattens the record to a single JSON object:
// {"id": ..., "extractedAt": ..., <opaque fields>...}.
func (r Record) MarshalJSON() ([]byte, error) {
	obj := make(map[string]json.RawMessage, len(r.Fields)+2)
	for k, v := range r.Fields {
		// reserved names can never be shadowed by opaque fields
		if k == "id" || k == "extractedAt" {
			continue
		}
		obj[k] = v
	}

	id, err := json.Marshal(r.ID)
	if err != nil {
		return nil, err
	}
	ts, err := json.Marshal(r.ExtractedAt)
	if err != nil {
		return nil, err
	}
	obj["id"] = id
	obj["extractedAt"] = ts

	return json.Marshal(obj)
}

// UnmarshalJSON is the inverse of MarshalJSON: it lifts "id" and
// "extractedAt" out of the flat object and keeps the rest opaque.
func (r *Record) UnmarshalJSON(data []byte) error {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}

	if raw, ok := obj["id"]; ok {
		if err := json.Unmarshal(raw, &r.ID); err != nil {
			return fmt.Errorf("record id: %w", err)
		}
		delete(obj, "id")
	}
	if raw, ok := obj["extractedAt"]; ok {
		if err := json.Unmarshal(raw, &r.ExtractedAt); err != nil {
			return fmt.Errorf("record extractedAt: %w", err)
		}
		delete(obj, "extractedAt")
	}

	if len(obj) > 0 {
		r.Fields = obj
	} else {
		r.Fields = nil
	}
	return nil
}

// --------------------------------------------------------------------------
// Storage Document
// --------------------------------------------------------------------------

// StorageDocument is the single persisted value shared by all writers.
// Within each collection no two records share an ID; order is irrelevant for
// correctness but preserved for stable presentation.
type StorageDocument struct {
	Contacts []Record `json:"contacts"`
	Deals    []Record `json:"deals"`
	Tasks    []Record `json:"tasks"`

	// LastSync is the wall-clock timestamp (ms) of the last write that
	// inserted records. SyncInProgress mirrors the lock state for
	// observability; the timestamped lock key is the actual mutex.
	LastSync       int64 `json:"lastSync"`
	SyncInProgress bool  `json:"syncInProgress"`
}

// DefaultDocument returns the initial empty document. Collections are
// non-nil so the encoded form always contains "[]" rather than "null".
func DefaultDocument() StorageDocument {
	return StorageDocument{
		Contacts: []Record{},
		Deals:    []Record{},
		Tasks:    []Record{},
	}
}

// Collection returns the records of one entity type.
func (d *StorageDocument) Collection(e EntityType) []Record {
	switch e {
	case EntityContacts:
		return d.Contacts
	case EntityDeals:
		return d.Deals
	case EntityTasks:
		return d.Tasks
	default:
		return nil
	}
}

// SetCollection replaces the records of one entity type.
// Unknown entity types are ignored; callers validate first.
func (d *StorageDocument) SetCollection(e EntityType, recs []Record) {
	switch e {
	case EntityContacts:
		d.Contacts = recs
	case EntityDeals:
		d.Deals = recs
	case EntityTasks:
		d.Tasks = recs
	}
}

// TotalRecords returns the record count over all collections.
func (d *StorageDocument) TotalRecords() int {
	return len(d.Contacts) + len(d.Deals) + len(d.Tasks)
}

// --------------------------------------------------------------------------
// Document Codec
// --------------------------------------------------------------------------

// EncodeDocument serializes a document for storage.
func EncodeDocument(d StorageDocument) ([]byte, error) {
	if d.Contacts == nil {
		d.Contacts = []Record{}
	}
	if d.Deals == nil {
		d.Deals = []Record{}
	}
	if d.Tasks == nil {
		d.Tasks = []Record{}
	}
	return json.Marshal(d)
}

// DecodeDocument deserializes a stored document. A nil or empty value is the
// get-or-default contract: it decodes as DefaultDocument, never an error.
func DecodeDocument(data []byte) (StorageDocument, error) {
	if len(data) == 0 {
		return DefaultDocument(), nil
	}
	var d StorageDocument
	if err := json.Unmarshal(data, &d); err != nil {
		return StorageDocument{}, fmt.Errorf("corrupt storage document: %w", err)
	}
	if d.Contacts == nil {
		d.Contacts = []Record{}
	}
	if d.Deals == nil {
		d.Deals = []Record{}
	}
	if d.Tasks == nil {
		d.Tasks = []Record{}
	}
	return d, nil
}
