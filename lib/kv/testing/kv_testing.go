package testing

import (
	"bytes"
	"testing"
	"time"

	"github.com/crmvault/crmvault/lib/kv"
)

// StoreFactory is a function that creates a fresh engine instance.
type StoreFactory func() kv.IDocumentStore

// RunDocumentStoreTests runs the conformance test suite for an engine.
func RunDocumentStoreTests(t *testing.T, name string, factory StoreFactory) {
	t.Run(name, func(t *testing.T) {
		t.Run("Set&Get", func(t *testing.T) {
			testSetGet(t, factory())
		})

		t.Run("Delete", func(t *testing.T) {
			testDelete(t, factory())
		})

		t.Run("Has", func(t *testing.T) {
			testHas(t, factory())
		})

		t.Run("Subscribe", func(t *testing.T) {
			testSubscribe(t, factory())
		})

		t.Run("Unsubscribe", func(t *testing.T) {
			testUnsubscribe(t, factory())
		})

		t.Run("SaveLoad", func(t *testing.T) {
			testSaveLoad(t, factory)
		})

		t.Run("EdgeCases", func(t *testing.T) {
			testEdgeCases(t, factory())
		})
	})
}

// --------------------------------------------------------------------------
// Helper functions
// --------------------------------------------------------------------------

// requireFeature skips the test if the engine does not support the feature.
func requireFeature(t testing.TB, store kv.IDocumentStore, feature kv.Feature) {
	if !store.SupportsFeature(feature) {
		t.Skip()
	}
}

// waitChange waits for a change notification with a timeout.
func waitChange(t *testing.T, ch <-chan string, want string) {
	t.Helper()
	select {
	case key := <-ch:
		if key != want {
			t.Errorf("expected change for key %q, got %q", want, key)
		}
	case <-time.After(2 * time.Second):
		t.Errorf("timed out waiting for change notification on %q", want)
	}
}

// --------------------------------------------------------------------------
// Test functions
// --------------------------------------------------------------------------

func testSetGet(t *testing.T, store kv.IDocumentStore) {
	defer store.Close()

	requireFeature(t, store, kv.FeatureSet|kv.FeatureGet)

	key := "test-key"
	value1 := []byte("value-one")
	value2 := []byte("value-two")

	if err := store.Set(key, value1); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	got, ok, err := store.Get(key)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if !ok {
		t.Fatalf("expected key %s to exist after Set", key)
	}
	if !bytes.Equal(got, value1) {
		t.Errorf("expected value %s, got %s", value1, got)
	}

	// overwrite
	if err := store.Set(key, value2); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	got, ok, _ = store.Get(key)
	if !ok || !bytes.Equal(got, value2) {
		t.Errorf("expected overwritten value %s, got %s (ok=%v)", value2, got, ok)
	}

	// absence is not an error
	_, ok, err = store.Get("nonexistent-key")
	if err != nil {
		t.Errorf("Get of absent key must not error: %v", err)
	}
	if ok {
		t.Errorf("expected nonexistent key to return ok=false")
	}

	// returned values must be defensive copies
	got, _, _ = store.Get(key)
	got[0] = 'X'
	again, _, _ := store.Get(key)
	if !bytes.Equal(again, value2) {
		t.Errorf("mutating a returned value corrupted the stored value")
	}
}

func testDelete(t *testing.T, store kv.IDocumentStore) {
	defer store.Close()

	requireFeature(t, store, kv.FeatureSet|kv.FeatureGet|kv.FeatureDelete)

	key := "delete-me"
	if err := store.Set(key, []byte("v")); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if err := store.Delete(key); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, ok, _ := store.Get(key); ok {
		t.Errorf("expected key to be gone after Delete")
	}

	// deleting an absent key is a no-op, not an error
	if err := store.Delete("never-existed"); err != nil {
		t.Errorf("Delete of absent key must not error: %v", err)
	}
}

func testHas(t *testing.T, store kv.IDocumentStore) {
	defer store.Close()

	requireFeature(t, store, kv.FeatureSet|kv.FeatureHas)

	if ok, err := store.Has("missing"); err != nil || ok {
		t.Errorf("Has(missing) = %v, %v; want false, nil", ok, err)
	}

	if err := store.Set("present", []byte("v")); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if ok, err := store.Has("present"); err != nil || !ok {
		t.Errorf("Has(present) = %v, %v; want true, nil", ok, err)
	}
}

func testSubscribe(t *testing.T, store kv.IDocumentStore) {
	defer store.Close()

	requireFeature(t, store, kv.FeatureSet|kv.FeatureDelete|kv.FeatureSubscribe)

	changes := make(chan string, 8)
	token, err := store.Subscribe("watched", func(key string) {
		changes <- key
	})
	if err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}
	if token == "" {
		t.Fatalf("expected a non-empty subscription token")
	}

	// a write to the watched key fires the callback
	if err := store.Set("watched", []byte("v1")); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	waitChange(t, changes, "watched")

	// a write to another key does not
	if err := store.Set("other", []byte("v")); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	select {
	case key := <-changes:
		t.Errorf("unexpected notification for key %q", key)
	case <-time.After(100 * time.Millisecond):
	}

	// a delete of the watched key fires the callback too
	if err := store.Delete("watched"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	waitChange(t, changes, "watched")

	// nil callbacks are rejected
	if _, err := store.Subscribe("watched", nil); err == nil {
		t.Errorf("expected error for nil callback")
	}
}

func testUnsubscribe(t *testing.T, store kv.IDocumentStore) {
	defer store.Close()

	requireFeature(t, store, kv.FeatureSet|kv.FeatureSubscribe)

	changes := make(chan string, 8)
	token, err := store.Subscribe("watched", func(key string) {
		changes <- key
	})
	if err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}

	if err := store.Unsubscribe(token); err != nil {
		t.Fatalf("Unsubscribe failed: %v", err)
	}
	if err := store.Set("watched", []byte("v")); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	select {
	case key := <-changes:
		t.Errorf("notification after Unsubscribe for key %q", key)
	case <-time.After(100 * time.Millisecond):
	}

	// unknown tokens are a no-op
	if err := store.Unsubscribe("no-such-token"); err != nil {
		t.Errorf("Unsubscribe of unknown token must not error: %v", err)
	}
}

func testSaveLoad(t *testing.T, factory StoreFactory) {
	src := factory()
	defer src.Close()

	requireFeature(t, src, kv.FeatureSave|kv.FeatureLoad)

	keys := map[string][]byte{
		"crm/records": []byte(`{"contacts":[],"deals":[],"tasks":[]}`),
		"crm/lock":    []byte("1700000000000"),
		"empty":       {},
	}
	for k, v := range keys {
		if err := src.Set(k, v); err != nil {
			t.Fatalf("Set failed: %v", err)
		}
	}

	var buf bytes.Buffer
	if err := src.Save(&buf); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	dst := factory()
	defer dst.Close()
	if err := dst.Load(&buf); err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	for k, want := range keys {
		got, ok, err := dst.Get(k)
		if err != nil || !ok {
			t.Fatalf("Get(%q) after Load = ok=%v, err=%v", k, ok, err)
		}
		if !bytes.Equal(got, want) {
			t.Errorf("Get(%q) after Load = %q, want %q", k, got, want)
		}
	}

	// garbage input must be rejected
	if err := dst.Load(bytes.NewReader([]byte("not a snapshot"))); err == nil {
		t.Errorf("expected error loading a corrupt snapshot")
	}
}

func testEdgeCases(t *testing.T, store kv.IDocumentStore) {
	defer store.Close()

	requireFeature(t, store, kv.FeatureSet|kv.FeatureGet)

	// empty value round trips
	if err := store.Set("empty", []byte{}); err != nil {
		t.Fatalf("Set of empty value failed: %v", err)
	}
	got, ok, err := store.Get("empty")
	if err != nil || !ok {
		t.Fatalf("Get(empty) = ok=%v, err=%v", ok, err)
	}
	if len(got) != 0 {
		t.Errorf("expected empty value, got %q", got)
	}

	// large-ish value round trips
	large := bytes.Repeat([]byte("record"), 10_000)
	if err := store.Set("large", large); err != nil {
		t.Fatalf("Set of large value failed: %v", err)
	}
	got, _, _ = store.Get("large")
	if !bytes.Equal(got, large) {
		t.Errorf("large value corrupted in round trip")
	}
}
