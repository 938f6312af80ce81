package records

import (
	"bytes"
	"encoding/json"
	"testing"
)

func TestRecordFlattening(t *testing.T) {
	in := []byte(`{"id":"c-1","extractedAt":1700000000000,"name":"Ada Lovelace","email":"ada@example.com"}`)

	var r Record
	if err := json.Unmarshal(in, &r); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if r.ID != "c-1" {
		t.Errorf("expected id c-1, got %q", r.ID)
	}
	if r.ExtractedAt != 1700000000000 {
		t.Errorf("expected extractedAt 1700000000000, got %d", r.ExtractedAt)
	}
	if _, ok := r.Field("name"); !ok {
		t.Errorf("expected opaque field name to survive")
	}
	if _, ok := r.Field("id"); ok {
		t.Errorf("id must not appear as an opaque field")
	}

	out, err := json.Marshal(r)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	// round trip must preserve all four keys at the top level
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(out, &obj); err != nil {
		t.Fatalf("unmarshal round trip: %v", err)
	}
	for _, key := range []string{"id", "extractedAt", "name", "email"} {
		if _, ok := obj[key]; !ok {
			t.Errorf("expected key %q in flattened output", key)
		}
	}
	if !bytes.Contains(out, []byte(`"ada@example.com"`)) {
		t.Errorf("opaque field value lost: %s", out)
	}
}

func TestRecordReservedFieldsNotShadowed(t *testing.T) {
	r := Record{
		ID:          "real-id",
		ExtractedAt: 42,
		Fields: map[string]json.RawMessage{
			"id":   json.RawMessage(`"fake-id"`),
			"name": json.RawMessage(`"X"`),
		},
	}

	out, err := json.Marshal(r)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var back Record
	if err := json.Unmarshal(out, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if back.ID != "real-id" {
		t.Errorf("reserved id was shadowed by an opaque field: %q", back.ID)
	}
}

func TestParseEntityType(t *testing.T) {
	for _, e := range AllEntityTypes {
		got, err := ParseEntityType(string(e))
		if err != nil || got != e {
			t.Errorf("ParseEntityType(%q) = %q, %v", e, got, err)
		}
	}

	if _, err := ParseEntityType("invoices"); err == nil {
		t.Errorf("expected error for unknown entity type")
	}
}

func TestDecodeDocumentDefaults(t *testing.T) {
	// absent document -> default empty document, never an error
	d, err := DecodeDocument(nil)
	if err != nil {
		t.Fatalf("decode absent document: %v", err)
	}
	if d.Contacts == nil || d.Deals == nil || d.Tasks == nil {
		t.Errorf("default document must have non-nil collections")
	}
	if d.TotalRecords() != 0 || d.LastSync != 0 || d.SyncInProgress {
		t.Errorf("default document not empty: %+v", d)
	}

	// corrupt document -> error
	if _, err := DecodeDocument([]byte("{not json")); err == nil {
		t.Errorf("expected error for corrupt document")
	}
}

func TestDocumentRoundTrip(t *testing.T) {
	d := DefaultDocument()
	d.SetCollection(EntityDeals, []Record{
		{ID: "d-1", ExtractedAt: 100, Fields: map[string]json.RawMessage{
			"title": json.RawMessage(`"Enterprise renewal"`),
			"value": json.RawMessage(`45000`),
		}},
	})
	d.LastSync = 1700000000000

	data, err := EncodeDocument(d)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	back, err := DecodeDocument(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(back.Deals) != 1 || back.Deals[0].ID != "d-1" {
		t.Fatalf("deals lost in round trip: %+v", back.Deals)
	}
	if back.LastSync != d.LastSync {
		t.Errorf("lastSync lost: %d", back.LastSync)
	}

	// encoded empty collections must be arrays, not null
	if bytes.Contains(data, []byte(`"contacts":null`)) {
		t.Errorf("empty collection encoded as null: %s", data)
	}
}
