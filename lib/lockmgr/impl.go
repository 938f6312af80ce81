package lockmgr

import (
	"strconv"
	"time"

	"github.com/crmvault/crmvault/lib/kv"
	"github.com/crmvault/crmvault/lib/records"
	"github.com/lni/dragonboat/v4/logger"
)

var Logger = logger.GetLogger("lockmgr")

// --------------------------------------------------------------------------
// Options
// --------------------------------------------------------------------------

const (
	// DefaultTimeout is how long a lock timestamp is honored before any
	// writer may treat it as abandoned.
	DefaultTimeout = 30 * time.Second

	DefaultDocumentKey = "crm/records"
	DefaultLockKey     = "crm/lock"
)

// Options configures the lock manager.
type Options struct {
	DocumentKey string        // Key of the shared storage document
	LockKey     string        // Reserved key holding the lock timestamp
	Timeout     time.Duration // Staleness timeout (0 = DefaultTimeout)
	Clock       Clock         // Time source (nil = SystemClock)
}

// DefaultOptions returns the default lock manager options.
func DefaultOptions() *Options {
	return &Options{
		DocumentKey: DefaultDocumentKey,
		LockKey:     DefaultLockKey,
		Timeout:     DefaultTimeout,
		Clock:       SystemClock{},
	}
}

// --------------------------------------------------------------------------
// Implementation
// --------------------------------------------------------------------------

type lockMgrImpl struct {
	store   kv.IDocumentStore
	docKey  string
	lockKey string
	timeout time.Duration
	clock   Clock
}

// NewLockManager creates a lock manager over the given store. The manager
// keeps no internal state beyond its configuration, so any number of
// managers may be created on the same store and all locks still cooperate.
func NewLockManager(store kv.IDocumentStore, opts *Options) ILockManager {
	if opts == nil {
		opts = DefaultOptions()
	}
	m := &lockMgrImpl{
		store:   store,
		docKey:  opts.DocumentKey,
		lockKey: opts.LockKey,
		timeout: opts.Timeout,
		clock:   opts.Clock,
	}
	if m.docKey == "" {
		m.docKey = DefaultDocumentKey
	}
	if m.lockKey == "" {
		m.lockKey = DefaultLockKey
	}
	if m.timeout <= 0 {
		m.timeout = DefaultTimeout
	}
	if m.clock == nil {
		m.clock = SystemClock{}
	}
	return m
}

func (m *lockMgrImpl) AcquireLock() (bool, error) {
	// Fail closed if the document itself cannot be read
	docRaw, _, err := m.store.Get(m.docKey)
	if err != nil {
		return false, err
	}

	// Contention check against the stored timestamp
	held, err := m.lockHeld()
	if err != nil {
		return false, err
	}
	if held {
		return false, nil
	}

	// Take the lock: timestamp first (the mutex), flag second (advisory)
	now := m.clock.Now().UnixMilli()
	if err := m.store.Set(m.lockKey, []byte(strconv.FormatInt(now, 10))); err != nil {
		return false, err
	}

	doc, err := records.DecodeDocument(docRaw)
	if err != nil {
		// Corrupt document: back out the lock key and fail closed
		m.ReleaseLock()
		return false, err
	}
	doc.SyncInProgress = true
	encoded, err := records.EncodeDocument(doc)
	if err == nil {
		err = m.store.Set(m.docKey, encoded)
	}
	if err != nil {
		m.ReleaseLock()
		return false, err
	}

	return true, nil
}

func (m *lockMgrImpl) ReleaseLock() {
	// The flag must be cleared while the lock key still exists: the key keeps
	// lock-respecting writers out of this read-modify-write, so the write-back
	// can never overwrite a document committed by a new holder.
	m.clearSyncFlag()

	if err := m.store.Delete(m.lockKey); err != nil {
		Logger.Warningf("failed to delete lock key %q: %v", m.lockKey, err)
	}
}

// clearSyncFlag lowers the advisory flag in the document, best-effort.
func (m *lockMgrImpl) clearSyncFlag() {
	docRaw, loaded, err := m.store.Get(m.docKey)
	if err != nil {
		Logger.Warningf("failed to read document while releasing lock: %v", err)
		return
	}
	if !loaded {
		return
	}
	doc, err := records.DecodeDocument(docRaw)
	if err != nil {
		Logger.Warningf("failed to decode document while releasing lock: %v", err)
		return
	}
	if !doc.SyncInProgress {
		return
	}
	doc.SyncInProgress = false
	encoded, err := records.EncodeDocument(doc)
	if err == nil {
		err = m.store.Set(m.docKey, encoded)
	}
	if err != nil {
		Logger.Warningf("failed to clear syncInProgress flag: %v", err)
	}
}

func (m *lockMgrImpl) Locked() (bool, error) {
	return m.lockHeld()
}

// lockHeld reports whether a non-stale timestamp sits under the lock key.
// An unparseable timestamp counts as stale so a corrupted lock value can
// never wedge all writers.
func (m *lockMgrImpl) lockHeld() (bool, error) {
	raw, loaded, err := m.store.Get(m.lockKey)
	if err != nil {
		return false, err
	}
	if !loaded {
		return false, nil
	}

	lockedAt, err := strconv.ParseInt(string(raw), 10, 64)
	if err != nil {
		Logger.Warningf("unparseable lock timestamp %q, treating as stale", raw)
		return false, nil
	}

	age := m.clock.Now().UnixMilli() - lockedAt
	return age < m.timeout.Milliseconds(), nil
}
