package vault

import (
	"sync"
	"testing"
	"time"

	"github.com/crmvault/crmvault/lib/kv"
	"github.com/crmvault/crmvault/lib/kv/engines/memkv"
	"github.com/crmvault/crmvault/lib/lockmgr"
	"github.com/crmvault/crmvault/lib/records"
)

// --------------------------------------------------------------------------
// Test Helpers
// --------------------------------------------------------------------------

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.UnixMilli(1_700_000_000_000)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// sleepRecorder captures retry pauses instead of actually sleeping.
type sleepRecorder struct {
	mu     sync.Mutex
	sleeps []time.Duration
}

func (s *sleepRecorder) Sleep(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sleeps = append(s.sleeps, d)
}

func (s *sleepRecorder) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sleeps)
}

func newTestVault(t *testing.T, store kv.IDocumentStore) (*Vault, *fakeClock, *sleepRecorder) {
	t.Helper()
	if store == nil {
		store = memkv.NewMemStore()
	}
	clock := newFakeClock()
	rec := &sleepRecorder{}
	opts := DefaultOptions()
	opts.Clock = clock
	opts.Sleep = rec.Sleep
	return New(store, opts), clock, rec
}

// flakyStore wraps a real store and fails the Nth Get/Set of the document
// key, counting from 1. Zero means never fail.
type flakyStore struct {
	kv.IDocumentStore
	docKey    string
	mu        sync.Mutex
	gets      int
	sets      int
	failGetOn int
	failSetOn int
}

func (f *flakyStore) Get(key string) ([]byte, bool, error) {
	if key == f.docKey {
		f.mu.Lock()
		f.gets++
		fail := f.failGetOn != 0 && f.gets == f.failGetOn
		f.mu.Unlock()
		if fail {
			return nil, false, kv.NewError(kv.RetCInternalError, "injected read failure")
		}
	}
	return f.IDocumentStore.Get(key)
}

func (f *flakyStore) Set(key string, value []byte) error {
	if key == f.docKey {
		f.mu.Lock()
		f.sets++
		fail := f.failSetOn != 0 && f.sets == f.failSetOn
		f.mu.Unlock()
		if fail {
			return kv.NewError(kv.RetCInternalError, "injected write failure")
		}
	}
	return f.IDocumentStore.Set(key, value)
}

// hookStore wraps a real store and runs a one-shot callback before the Nth
// Get of the document key, counting from 1.
type hookStore struct {
	kv.IDocumentStore
	docKey string
	mu     sync.Mutex
	gets   int
	hookOn int
	hook   func()
}

func (h *hookStore) Get(key string) ([]byte, bool, error) {
	if key == h.docKey {
		h.mu.Lock()
		h.gets++
		var hook func()
		if h.hook != nil && h.gets == h.hookOn {
			hook = h.hook
			h.hook = nil
		}
		h.mu.Unlock()
		if hook != nil {
			hook()
		}
	}
	return h.IDocumentStore.Get(key)
}

// --------------------------------------------------------------------------
// Insert
// --------------------------------------------------------------------------

func TestInsertIntoEmptyVault(t *testing.T) {
	v, clock, _ := newTestVault(t, nil)

	inserted, err := v.InsertWithDedup(records.EntityContacts,
		[]records.Record{rec("a", 100, "alice"), rec("b", 100, "bob")})
	if err != nil {
		t.Fatalf("insert failed: %v", err)
	}
	if inserted != 2 {
		t.Errorf("inserted = %d, want 2", inserted)
	}

	doc, err := v.Document()
	if err != nil {
		t.Fatalf("document read failed: %v", err)
	}
	assertIDs(t, doc.Contacts, "a", "b")
	if doc.LastSync != clock.Now().UnixMilli() {
		t.Errorf("lastSync = %d, want %d", doc.LastSync, clock.Now().UnixMilli())
	}
	if doc.SyncInProgress {
		t.Errorf("syncInProgress must be cleared after a successful insert")
	}
}

func TestInsertReplayIsNoOp(t *testing.T) {
	v, _, _ := newTestVault(t, nil)
	batch := []records.Record{rec("a", 100, "alice"), rec("b", 100, "bob")}

	if _, err := v.InsertWithDedup(records.EntityDeals, batch); err != nil {
		t.Fatalf("first insert failed: %v", err)
	}
	inserted, err := v.InsertWithDedup(records.EntityDeals, batch)
	if err != nil {
		t.Fatalf("replay failed: %v", err)
	}
	if inserted != 0 {
		t.Errorf("replaying the same batch inserted %d records, want 0", inserted)
	}

	doc, _ := v.Document()
	if len(doc.Deals) != 2 {
		t.Errorf("replay changed the collection size to %d", len(doc.Deals))
	}
}

func TestInsertMixedBatch(t *testing.T) {
	v, _, _ := newTestVault(t, nil)

	if _, err := v.InsertWithDedup(records.EntityTasks,
		[]records.Record{rec("a", 100, "old-a"), rec("b", 100, "old-b")}); err != nil {
		t.Fatalf("seed failed: %v", err)
	}

	// one newer replacement, one stale duplicate, one net-new
	inserted, err := v.InsertWithDedup(records.EntityTasks,
		[]records.Record{rec("a", 200, "new-a"), rec("b", 50, "stale-b"), rec("c", 100, "carol")})
	if err != nil {
		t.Fatalf("insert failed: %v", err)
	}
	if inserted != 1 {
		t.Errorf("inserted = %d, want 1 (replacements do not count)", inserted)
	}

	doc, _ := v.Document()
	assertIDs(t, doc.Tasks, "a", "b", "c")
	if doc.Tasks[0].ExtractedAt != 200 {
		t.Errorf("newer record did not replace")
	}
	if doc.Tasks[1].ExtractedAt != 100 {
		t.Errorf("stale record must not replace")
	}
}

func TestInsertCollectionsAreIndependent(t *testing.T) {
	v, _, _ := newTestVault(t, nil)

	// same id in two collections is two distinct records
	if _, err := v.InsertWithDedup(records.EntityContacts, []records.Record{rec("x", 100, "")}); err != nil {
		t.Fatalf("insert contacts: %v", err)
	}
	if _, err := v.InsertWithDedup(records.EntityDeals, []records.Record{rec("x", 100, "")}); err != nil {
		t.Fatalf("insert deals: %v", err)
	}

	doc, _ := v.Document()
	if len(doc.Contacts) != 1 || len(doc.Deals) != 1 {
		t.Errorf("collections must dedup independently")
	}
}

func TestInsertEmptyBatch(t *testing.T) {
	v, _, _ := newTestVault(t, nil)

	inserted, err := v.InsertWithDedup(records.EntityContacts, nil)
	if err != nil {
		t.Fatalf("empty insert failed: %v", err)
	}
	if inserted != 0 {
		t.Errorf("inserted = %d, want 0", inserted)
	}
}

func TestInsertRejectsUnknownEntity(t *testing.T) {
	v, _, _ := newTestVault(t, nil)

	_, err := v.InsertWithDedup(records.EntityType("companies"), []records.Record{rec("a", 1, "")})
	if CodeOf(err) != FailInvalidEntity {
		t.Errorf("err = %v, want FailInvalidEntity", err)
	}
}

// --------------------------------------------------------------------------
// Locking & Retries
// --------------------------------------------------------------------------

func TestInsertExhaustsRetryBudget(t *testing.T) {
	store := memkv.NewMemStore()
	v, clock, sleeps := newTestVault(t, store)

	// a competing holder pins the lock for the whole test
	lockOpts := lockmgr.DefaultOptions()
	lockOpts.Clock = clock
	competitor := lockmgr.NewLockManager(store, lockOpts)
	if ok, _ := competitor.AcquireLock(); !ok {
		t.Fatalf("competitor could not take the lock")
	}

	_, err := v.InsertWithDedup(records.EntityContacts, []records.Record{rec("a", 1, "")})
	if CodeOf(err) != FailContention {
		t.Fatalf("err = %v, want FailContention", err)
	}
	if sleeps.Count() != DefaultRetryBudget-1 {
		t.Errorf("slept %d times, want %d", sleeps.Count(), DefaultRetryBudget-1)
	}

	// once the competitor releases, the same vault succeeds
	competitor.ReleaseLock()
	inserted, err := v.InsertWithDedup(records.EntityContacts, []records.Record{rec("a", 1, "")})
	if err != nil || inserted != 1 {
		t.Errorf("insert after release: inserted=%d err=%v", inserted, err)
	}
}

func TestInsertRecoversStaleLock(t *testing.T) {
	store := memkv.NewMemStore()
	v, clock, sleeps := newTestVault(t, store)

	lockOpts := lockmgr.DefaultOptions()
	lockOpts.Clock = clock
	competitor := lockmgr.NewLockManager(store, lockOpts)
	if ok, _ := competitor.AcquireLock(); !ok {
		t.Fatalf("competitor could not take the lock")
	}

	// the holder crashed: no release, but the timestamp ages out
	clock.Advance(lockmgr.DefaultTimeout + time.Millisecond)

	inserted, err := v.InsertWithDedup(records.EntityContacts, []records.Record{rec("a", 1, "")})
	if err != nil || inserted != 1 {
		t.Fatalf("insert over a stale lock: inserted=%d err=%v", inserted, err)
	}
	if sleeps.Count() != 0 {
		t.Errorf("a stale lock must be taken on the first attempt")
	}
}

func TestInsertReadFailureReleasesLockWithoutRetry(t *testing.T) {
	flaky := &flakyStore{
		IDocumentStore: memkv.NewMemStore(),
		docKey:         lockmgr.DefaultDocumentKey,
		// Get #1 happens inside AcquireLock, #2 is the critical section read
		failGetOn: 2,
	}
	v, _, sleeps := newTestVault(t, flaky)

	_, err := v.InsertWithDedup(records.EntityContacts, []records.Record{rec("a", 1, "")})
	if CodeOf(err) != FailStoreIO {
		t.Fatalf("err = %v, want FailStoreIO", err)
	}
	if sleeps.Count() != 0 {
		t.Errorf("store failures must not be retried, slept %d times", sleeps.Count())
	}
	if held, _ := flaky.Has(lockmgr.DefaultLockKey); held {
		t.Errorf("lock must be released after a failed critical section")
	}

	// the vault stays usable once the store recovers
	inserted, err := v.InsertWithDedup(records.EntityContacts, []records.Record{rec("a", 1, "")})
	if err != nil || inserted != 1 {
		t.Errorf("insert after recovery: inserted=%d err=%v", inserted, err)
	}
}

func TestInsertWriteFailureReleasesLockWithoutRetry(t *testing.T) {
	flaky := &flakyStore{
		IDocumentStore: memkv.NewMemStore(),
		docKey:         lockmgr.DefaultDocumentKey,
		// Set #1 marks syncInProgress inside AcquireLock, #2 writes the
		// merged document
		failSetOn: 2,
	}
	v, _, sleeps := newTestVault(t, flaky)

	_, err := v.InsertWithDedup(records.EntityContacts, []records.Record{rec("a", 1, "")})
	if CodeOf(err) != FailStoreIO {
		t.Fatalf("err = %v, want FailStoreIO", err)
	}
	if sleeps.Count() != 0 {
		t.Errorf("store failures must not be retried, slept %d times", sleeps.Count())
	}
	if held, _ := flaky.Has(lockmgr.DefaultLockKey); held {
		t.Errorf("lock must be released after a failed write")
	}

	// the failed merge must not have partially applied
	doc, err := v.Document()
	if err != nil {
		t.Fatalf("document read failed: %v", err)
	}
	if len(doc.Contacts) != 0 {
		t.Errorf("a failed insert must not leave records behind")
	}
}

func TestReleaseWindowCannotSwallowCommittedInsert(t *testing.T) {
	store := &hookStore{
		IDocumentStore: memkv.NewMemStore(),
		docKey:         lockmgr.DefaultDocumentKey,
	}
	v, _, _ := newTestVault(t, store)
	competitor, _, _ := newTestVault(t, store)

	// Get #1 happens inside AcquireLock, #2 is the critical-section read,
	// #3 is the flag-clearing read inside ReleaseLock. A competitor firing
	// there must be held out until the lock key is actually deleted;
	// otherwise its committed merge would be overwritten by the release
	// write-back.
	var windowInserted int
	var windowErr error
	store.hookOn = 3
	store.hook = func() {
		windowInserted, windowErr = competitor.InsertWithDedup(
			records.EntityContacts, []records.Record{rec("b", 100, "bob")})
	}

	inserted, err := v.InsertWithDedup(records.EntityContacts,
		[]records.Record{rec("a", 100, "alice")})
	if err != nil || inserted != 1 {
		t.Fatalf("insert = (%d, %v), want (1, nil)", inserted, err)
	}

	// If the competing insert reported success, its record must survive.
	// It is also fine for it to bounce with contention and land on retry.
	if windowErr == nil && windowInserted == 1 {
		doc, err := v.Document()
		if err != nil {
			t.Fatalf("document read failed: %v", err)
		}
		assertIDs(t, doc.Contacts, "a", "b")
		return
	}
	if CodeOf(windowErr) != FailContention {
		t.Fatalf("window insert = (%d, %v), want contention", windowInserted, windowErr)
	}

	if _, err := competitor.InsertWithDedup(records.EntityContacts,
		[]records.Record{rec("b", 100, "bob")}); err != nil {
		t.Fatalf("retry after release failed: %v", err)
	}
	doc, err := v.Document()
	if err != nil {
		t.Fatalf("document read failed: %v", err)
	}
	assertIDs(t, doc.Contacts, "a", "b")
}

// --------------------------------------------------------------------------
// Remove / Clear / Status
// --------------------------------------------------------------------------

func TestRemoveRecord(t *testing.T) {
	v, _, _ := newTestVault(t, nil)
	if _, err := v.InsertWithDedup(records.EntityContacts,
		[]records.Record{rec("a", 100, ""), rec("b", 100, "")}); err != nil {
		t.Fatalf("seed failed: %v", err)
	}

	if err := v.RemoveRecord(records.EntityContacts, "a"); err != nil {
		t.Fatalf("remove failed: %v", err)
	}
	doc, _ := v.Document()
	assertIDs(t, doc.Contacts, "b")

	// removing it again reports not-found
	err := v.RemoveRecord(records.EntityContacts, "a")
	if CodeOf(err) != FailNotFound {
		t.Errorf("err = %v, want FailNotFound", err)
	}

	// same id in another collection is untouched and also not-found here
	err = v.RemoveRecord(records.EntityDeals, "b")
	if CodeOf(err) != FailNotFound {
		t.Errorf("err = %v, want FailNotFound for a different collection", err)
	}
}

func TestClearAll(t *testing.T) {
	v, _, _ := newTestVault(t, nil)
	if _, err := v.InsertWithDedup(records.EntityContacts, []records.Record{rec("a", 100, "")}); err != nil {
		t.Fatalf("seed failed: %v", err)
	}
	if _, err := v.InsertWithDedup(records.EntityTasks, []records.Record{rec("t", 100, "")}); err != nil {
		t.Fatalf("seed failed: %v", err)
	}

	if err := v.ClearAll(); err != nil {
		t.Fatalf("clear failed: %v", err)
	}

	doc, err := v.Document()
	if err != nil {
		t.Fatalf("document read failed: %v", err)
	}
	if doc.TotalRecords() != 0 {
		t.Errorf("clear left %d records behind", doc.TotalRecords())
	}
	if doc.LastSync != 0 || doc.SyncInProgress {
		t.Errorf("clear must reset the document to its initial state")
	}
}

func TestStatusOnEmptyVault(t *testing.T) {
	v, _, _ := newTestVault(t, nil)

	lastSync, inProgress, err := v.Status()
	if err != nil {
		t.Fatalf("status failed: %v", err)
	}
	if lastSync != 0 || inProgress {
		t.Errorf("fresh vault status = (%d, %v), want (0, false)", lastSync, inProgress)
	}
}

func TestDocumentDefaultsWhenAbsent(t *testing.T) {
	v, _, _ := newTestVault(t, nil)

	doc, err := v.Document()
	if err != nil {
		t.Fatalf("document read failed: %v", err)
	}
	if doc.Contacts == nil || doc.Deals == nil || doc.Tasks == nil {
		t.Errorf("default document must have non-nil collections")
	}
}

// --------------------------------------------------------------------------
// Change Propagation
// --------------------------------------------------------------------------

func TestWatchFiresOnInsert(t *testing.T) {
	v, _, _ := newTestVault(t, nil)

	changes := make(chan int64, 8)
	token, err := v.Watch(func(observedAt int64) { changes <- observedAt })
	if err != nil {
		t.Fatalf("watch failed: %v", err)
	}
	defer v.Unwatch(token)

	if _, err := v.InsertWithDedup(records.EntityContacts, []records.Record{rec("a", 1, "")}); err != nil {
		t.Fatalf("insert failed: %v", err)
	}

	select {
	case <-changes:
	case <-time.After(2 * time.Second):
		t.Fatalf("no change notification after insert")
	}
}

func TestWatchStopsAfterUnwatch(t *testing.T) {
	v, _, _ := newTestVault(t, nil)

	changes := make(chan int64, 8)
	token, err := v.Watch(func(observedAt int64) { changes <- observedAt })
	if err != nil {
		t.Fatalf("watch failed: %v", err)
	}
	v.Unwatch(token)

	if err := v.ClearAll(); err != nil {
		t.Fatalf("clear failed: %v", err)
	}

	select {
	case <-changes:
		t.Errorf("notification delivered after Unwatch")
	case <-time.After(100 * time.Millisecond):
	}
}
