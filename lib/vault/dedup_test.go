package vault

import (
	"encoding/json"
	"testing"

	"github.com/crmvault/crmvault/lib/records"
)

func rec(id string, extractedAt int64, name string) records.Record {
	r := records.Record{ID: id, ExtractedAt: extractedAt}
	if name != "" {
		r.Fields = map[string]json.RawMessage{
			"name": json.RawMessage(`"` + name + `"`),
		}
	}
	return r
}

func ids(recs []records.Record) []string {
	out := make([]string, len(recs))
	for i, r := range recs {
		out[i] = r.ID
	}
	return out
}

func assertIDs(t *testing.T, got []records.Record, want ...string) {
	t.Helper()
	gotIDs := ids(got)
	if len(gotIDs) != len(want) {
		t.Fatalf("got ids %v, want %v", gotIDs, want)
	}
	for i := range want {
		if gotIDs[i] != want[i] {
			t.Fatalf("got ids %v, want %v", gotIDs, want)
		}
	}
}

func TestMergeAppendsNewIDs(t *testing.T) {
	existing := []records.Record{rec("a", 100, "alice")}
	incoming := []records.Record{rec("b", 100, "bob"), rec("c", 100, "carol")}

	merged := Merge(existing, incoming)
	assertIDs(t, merged, "a", "b", "c")
}

func TestMergeReplacesOnlyNewer(t *testing.T) {
	existing := []records.Record{rec("a", 200, "current")}

	// older incoming must not replace
	merged := Merge(existing, []records.Record{rec("a", 100, "stale")})
	assertIDs(t, merged, "a")
	if merged[0].ExtractedAt != 200 {
		t.Errorf("older record replaced a newer one")
	}

	// equal timestamps keep the stored record, so replays are no-ops
	merged = Merge(existing, []records.Record{rec("a", 200, "replay")})
	if v, _ := merged[0].Field("name"); string(v) != `"current"` {
		t.Errorf("a timestamp tie must keep the stored record, got %s", v)
	}

	// strictly newer replaces in place
	merged = Merge(existing, []records.Record{rec("a", 300, "fresh")})
	assertIDs(t, merged, "a")
	if merged[0].ExtractedAt != 300 {
		t.Errorf("newer record did not replace")
	}
}

func TestMergeOrderIsStable(t *testing.T) {
	existing := []records.Record{rec("a", 100, ""), rec("b", 100, ""), rec("c", 100, "")}
	incoming := []records.Record{rec("d", 100, ""), rec("b", 200, ""), rec("e", 100, "")}

	merged := Merge(existing, incoming)

	// replacement stays in the existing slot, net-new appends in batch order
	assertIDs(t, merged, "a", "b", "c", "d", "e")
	if merged[1].ExtractedAt != 200 {
		t.Errorf("replacement did not land in the existing slot")
	}
}

func TestMergeDuplicateIDsWithinBatch(t *testing.T) {
	incoming := []records.Record{rec("a", 100, "first"), rec("a", 200, "second"), rec("a", 150, "third")}

	merged := Merge(nil, incoming)
	assertIDs(t, merged, "a")
	if merged[0].ExtractedAt != 200 {
		t.Errorf("duplicate ids within a batch must resolve by recency, got ts %d", merged[0].ExtractedAt)
	}
}

func TestMergeIsPure(t *testing.T) {
	existing := []records.Record{rec("a", 100, "alice"), rec("b", 100, "bob")}
	incoming := []records.Record{rec("a", 200, "newer"), rec("c", 100, "carol")}

	_ = Merge(existing, incoming)

	if existing[0].ExtractedAt != 100 {
		t.Errorf("Merge mutated its existing argument")
	}
	if len(existing) != 2 || len(incoming) != 2 {
		t.Errorf("Merge changed input lengths")
	}
}

func TestMergeEmptyInputs(t *testing.T) {
	if got := Merge(nil, nil); len(got) != 0 {
		t.Errorf("merging nothing must yield an empty collection")
	}

	existing := []records.Record{rec("a", 100, "")}
	if got := Merge(existing, nil); len(got) != 1 || got[0].ID != "a" {
		t.Errorf("an empty batch must leave the collection unchanged")
	}
	if got := Merge(nil, existing); len(got) != 1 || got[0].ID != "a" {
		t.Errorf("merging into an empty collection must keep the batch")
	}
}
