package sqlitekv

import (
	"path/filepath"
	"strconv"
	"testing"

	"github.com/crmvault/crmvault/lib/kv"
	kvtesting "github.com/crmvault/crmvault/lib/kv/testing"
)

func Test(t *testing.T) {
	dir := t.TempDir()
	n := 0
	kvtesting.RunDocumentStoreTests(t, "SQLiteKV", func() kv.IDocumentStore {
		n++
		store, err := NewSQLiteStore(filepath.Join(dir, "store-"+strconv.Itoa(n)+".db"))
		if err != nil {
			t.Fatalf("failed to open sqlite store: %v", err)
		}
		return store
	})
}

func TestPersistenceAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "durable.db")

	store, err := NewSQLiteStore(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := store.Set("crm/records", []byte(`{"contacts":[]}`)); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	reopened, err := NewSQLiteStore(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()

	value, ok, err := reopened.Get("crm/records")
	if err != nil || !ok {
		t.Fatalf("get after reopen = ok=%v, err=%v", ok, err)
	}
	if string(value) != `{"contacts":[]}` {
		t.Errorf("value lost across reopen: %s", value)
	}
}
