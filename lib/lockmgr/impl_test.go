package lockmgr

import (
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/crmvault/crmvault/lib/kv"
	"github.com/crmvault/crmvault/lib/kv/engines/memkv"
	"github.com/crmvault/crmvault/lib/records"
)

// fakeClock is an adjustable Clock for staleness tests.
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

func newTestManager(t *testing.T) (ILockManager, kv.IDocumentStore, *fakeClock) {
	t.Helper()
	store := memkv.NewMemStore()
	clock := newFakeClock()
	opts := DefaultOptions()
	opts.Clock = clock
	return NewLockManager(store, opts), store, clock
}

func TestSequentialAcquireRelease(t *testing.T) {
	mgr, _, _ := newTestManager(t)

	for i := 0; i < 5; i++ {
		ok, err := mgr.AcquireLock()
		if err != nil {
			t.Fatalf("cycle %d: acquire failed: %v", i, err)
		}
		if !ok {
			t.Fatalf("cycle %d: acquisition must succeed after a release", i)
		}
		mgr.ReleaseLock()
	}
}

func TestContentionWithinTimeout(t *testing.T) {
	mgr, _, clock := newTestManager(t)

	if ok, _ := mgr.AcquireLock(); !ok {
		t.Fatalf("first acquire must succeed")
	}

	// second acquire within the timeout window fails without error
	clock.Advance(10 * time.Second)
	ok, err := mgr.AcquireLock()
	if err != nil {
		t.Fatalf("contended acquire errored: %v", err)
	}
	if ok {
		t.Errorf("second acquire within the timeout must fail")
	}
}

func TestStalenessRecovery(t *testing.T) {
	mgr, store, clock := newTestManager(t)

	if ok, _ := mgr.AcquireLock(); !ok {
		t.Fatalf("first acquire must succeed")
	}

	// simulate a crashed holder: no release, the flag stays true
	clock.Advance(DefaultTimeout + time.Millisecond)

	ok, err := mgr.AcquireLock()
	if err != nil {
		t.Fatalf("acquire after staleness errored: %v", err)
	}
	if !ok {
		t.Errorf("a stale lock must be acquirable regardless of the syncInProgress flag")
	}

	// the flag being true on its own must not block acquisition either
	mgr.ReleaseLock()
	doc := records.DefaultDocument()
	doc.SyncInProgress = true
	encoded, _ := records.EncodeDocument(doc)
	if err := store.Set(DefaultDocumentKey, encoded); err != nil {
		t.Fatalf("seed document: %v", err)
	}
	if ok, _ := mgr.AcquireLock(); !ok {
		t.Errorf("the advisory flag alone must not prevent acquisition")
	}
}

func TestAcquireSetsFlagAndTimestamp(t *testing.T) {
	mgr, store, clock := newTestManager(t)

	if ok, _ := mgr.AcquireLock(); !ok {
		t.Fatalf("acquire failed")
	}

	raw, loaded, _ := store.Get(DefaultLockKey)
	if !loaded {
		t.Fatalf("lock key missing after acquire")
	}
	ts, err := strconv.ParseInt(string(raw), 10, 64)
	if err != nil {
		t.Fatalf("lock value is not a bare integer: %q", raw)
	}
	if ts != clock.Now().UnixMilli() {
		t.Errorf("lock timestamp %d != clock %d", ts, clock.Now().UnixMilli())
	}

	docRaw, _, _ := store.Get(DefaultDocumentKey)
	doc, err := records.DecodeDocument(docRaw)
	if err != nil {
		t.Fatalf("decode document: %v", err)
	}
	if !doc.SyncInProgress {
		t.Errorf("syncInProgress must be set while the lock is held")
	}

	held, _ := mgr.Locked()
	if !held {
		t.Errorf("Locked() must report a fresh lock as held")
	}
}

func TestReleaseIsIdempotent(t *testing.T) {
	mgr, store, _ := newTestManager(t)

	// releasing a lock that was never taken must not panic or error
	mgr.ReleaseLock()
	mgr.ReleaseLock()

	if ok, _ := mgr.AcquireLock(); !ok {
		t.Fatalf("acquire failed")
	}
	mgr.ReleaseLock()
	mgr.ReleaseLock()

	if loaded, _ := store.Has(DefaultLockKey); loaded {
		t.Errorf("lock key must be gone after release")
	}
	docRaw, _, _ := store.Get(DefaultDocumentKey)
	doc, _ := records.DecodeDocument(docRaw)
	if doc.SyncInProgress {
		t.Errorf("syncInProgress must be cleared after release")
	}
}

// tracingStore records Set/Delete order and can run a one-shot hook on the
// next read of the document key.
type tracingStore struct {
	kv.IDocumentStore
	mu       sync.Mutex
	trace    []string
	onDocGet func()
}

func (s *tracingStore) Get(key string) ([]byte, bool, error) {
	if key == DefaultDocumentKey {
		s.mu.Lock()
		hook := s.onDocGet
		s.onDocGet = nil
		s.mu.Unlock()
		if hook != nil {
			hook()
		}
	}
	return s.IDocumentStore.Get(key)
}

func (s *tracingStore) Set(key string, value []byte) error {
	s.mu.Lock()
	s.trace = append(s.trace, "set "+key)
	s.mu.Unlock()
	return s.IDocumentStore.Set(key, value)
}

func (s *tracingStore) Delete(key string) error {
	s.mu.Lock()
	s.trace = append(s.trace, "delete "+key)
	s.mu.Unlock()
	return s.IDocumentStore.Delete(key)
}

func TestReleaseClearsFlagBeforeDeletingLock(t *testing.T) {
	store := &tracingStore{IDocumentStore: memkv.NewMemStore()}
	opts := DefaultOptions()
	opts.Clock = newFakeClock()
	mgr := NewLockManager(store, opts)

	if ok, _ := mgr.AcquireLock(); !ok {
		t.Fatalf("acquire failed")
	}

	store.mu.Lock()
	store.trace = nil
	store.mu.Unlock()

	mgr.ReleaseLock()

	want := []string{"set " + DefaultDocumentKey, "delete " + DefaultLockKey}
	store.mu.Lock()
	got := append([]string(nil), store.trace...)
	store.mu.Unlock()
	if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Errorf("release order = %v, want %v", got, want)
	}
}

func TestReleaseExcludesWritersWhileClearingFlag(t *testing.T) {
	store := &tracingStore{IDocumentStore: memkv.NewMemStore()}
	clock := newFakeClock()
	opts := DefaultOptions()
	opts.Clock = clock
	mgr := NewLockManager(store, opts)
	competitor := NewLockManager(store, opts)

	if ok, _ := mgr.AcquireLock(); !ok {
		t.Fatalf("acquire failed")
	}

	// While the release is mid-way through its read-modify-write of the
	// document, the lock key must still hold competitors out. Otherwise a
	// competitor could commit a merged document only for the release write
	// to put the old one back.
	var acquiredInWindow bool
	store.mu.Lock()
	store.onDocGet = func() {
		acquiredInWindow, _ = competitor.AcquireLock()
	}
	store.mu.Unlock()

	mgr.ReleaseLock()

	if acquiredInWindow {
		t.Errorf("a writer acquired the lock during the release write-back")
	}
	if ok, _ := competitor.AcquireLock(); !ok {
		t.Errorf("acquire must succeed once the release has finished")
	}
}

func TestUnparseableLockIsStale(t *testing.T) {
	mgr, store, _ := newTestManager(t)

	if err := store.Set(DefaultLockKey, []byte("garbage")); err != nil {
		t.Fatalf("seed lock key: %v", err)
	}
	ok, err := mgr.AcquireLock()
	if err != nil {
		t.Fatalf("acquire errored: %v", err)
	}
	if !ok {
		t.Errorf("a corrupted lock value must not wedge writers")
	}
}
