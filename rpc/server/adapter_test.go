package server

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/crmvault/crmvault/lib/kv/engines/memkv"
	"github.com/crmvault/crmvault/lib/records"
	"github.com/crmvault/crmvault/lib/vault"
	"github.com/crmvault/crmvault/rpc/common"
)

func TestStoreAdapterRoundTrip(t *testing.T) {
	adapter := NewStoreServerAdapter()
	env := ShardEnv{Store: memkv.NewMemStore()}

	// set
	resp := adapter.Handle(common.NewSetRequest("crm/records", []byte("payload")), env)
	if resp.Err != "" {
		t.Fatalf("set failed: %s", resp.Err)
	}

	// get hit
	resp = adapter.Handle(common.NewGetRequest("crm/records"), env)
	if resp.Err != "" || !resp.Ok || string(resp.Value) != "payload" {
		t.Errorf("get = (%q, %v, %q)", resp.Value, resp.Ok, resp.Err)
	}

	// has
	resp = adapter.Handle(common.NewHasRequest("crm/records"), env)
	if !resp.Ok {
		t.Errorf("has must report the key")
	}

	// delete, then miss
	if resp = adapter.Handle(common.NewDeleteRequest("crm/records"), env); resp.Err != "" {
		t.Fatalf("delete failed: %s", resp.Err)
	}
	resp = adapter.Handle(common.NewGetRequest("crm/records"), env)
	if resp.Ok {
		t.Errorf("get after delete must miss")
	}
}

func TestStoreAdapterRejectsVaultMessages(t *testing.T) {
	adapter := NewStoreServerAdapter()
	env := ShardEnv{Store: memkv.NewMemStore()}

	resp := adapter.Handle(common.NewClearRequest(), env)
	if resp.MsgType != common.MsgTError || resp.Err == "" {
		t.Errorf("vault message on a store shard must fail, got %+v", resp)
	}
}

func TestVaultAdapterInsertAndQuery(t *testing.T) {
	adapter := NewVaultServerAdapter()
	store := memkv.NewMemStore()
	env := ShardEnv{Store: store, Vault: vault.New(store, nil)}

	batch, _ := json.Marshal([]records.Record{
		{ID: "a", ExtractedAt: 100},
		{ID: "b", ExtractedAt: 100},
	})

	resp := adapter.Handle(common.NewInsertRequest("contacts", batch), env)
	if resp.Err != "" {
		t.Fatalf("insert failed: %s", resp.Err)
	}
	if resp.Count != 2 {
		t.Errorf("insert count = %d, want 2", resp.Count)
	}

	// replay is a no-op
	resp = adapter.Handle(common.NewInsertRequest("contacts", batch), env)
	if resp.Err != "" || resp.Count != 0 {
		t.Errorf("replay = (%d, %q), want (0, \"\")", resp.Count, resp.Err)
	}

	// document carries the merged records
	resp = adapter.Handle(common.NewDocumentRequest(), env)
	if resp.Err != "" {
		t.Fatalf("document failed: %s", resp.Err)
	}
	doc, err := records.DecodeDocument(resp.Value)
	if err != nil || len(doc.Contacts) != 2 {
		t.Errorf("document = %d contacts (err %v), want 2", len(doc.Contacts), err)
	}

	// status reflects the insert
	resp = adapter.Handle(common.NewStatusRequest(), env)
	if resp.Err != "" || resp.Ts == 0 || resp.Ok {
		t.Errorf("status = (ts %d, inProgress %v, err %q)", resp.Ts, resp.Ok, resp.Err)
	}
}

func TestVaultAdapterErrorsKeepTheirCodes(t *testing.T) {
	adapter := NewVaultServerAdapter()
	store := memkv.NewMemStore()
	env := ShardEnv{Store: store, Vault: vault.New(store, nil)}

	// unknown entity
	resp := adapter.Handle(common.NewInsertRequest("companies", []byte(`[]`)), env)
	if resp.Err == "" {
		t.Errorf("unknown entity must fail")
	}

	// remove miss carries the NotFound code through the message text
	resp = adapter.Handle(common.NewRemoveRequest("deals", "nope"), env)
	if !strings.Contains(resp.Err, "(code NotFound)") {
		t.Errorf("remove miss err = %q, want NotFound code", resp.Err)
	}

	// malformed batch
	resp = adapter.Handle(common.NewInsertRequest("contacts", []byte(`{`)), env)
	if resp.Err == "" {
		t.Errorf("malformed batch must fail")
	}
}

func TestVaultAdapterClear(t *testing.T) {
	adapter := NewVaultServerAdapter()
	store := memkv.NewMemStore()
	env := ShardEnv{Store: store, Vault: vault.New(store, nil)}

	batch, _ := json.Marshal([]records.Record{{ID: "t", ExtractedAt: 1}})
	if resp := adapter.Handle(common.NewInsertRequest("tasks", batch), env); resp.Err != "" {
		t.Fatalf("insert failed: %s", resp.Err)
	}

	if resp := adapter.Handle(common.NewClearRequest(), env); resp.Err != "" {
		t.Fatalf("clear failed: %s", resp.Err)
	}

	resp := adapter.Handle(common.NewDocumentRequest(), env)
	doc, _ := records.DecodeDocument(resp.Value)
	if doc.TotalRecords() != 0 {
		t.Errorf("clear left %d records", doc.TotalRecords())
	}
}
