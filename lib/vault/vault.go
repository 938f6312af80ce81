package vault

import (
	"fmt"
	"time"

	"github.com/VictoriaMetrics/metrics"
	"github.com/crmvault/crmvault/lib/kv"
	"github.com/crmvault/crmvault/lib/lockmgr"
	"github.com/crmvault/crmvault/lib/records"
	"github.com/lni/dragonboat/v4/logger"
)

var Logger = logger.GetLogger("vault")

// --------------------------------------------------------------------------
// Metrics
// --------------------------------------------------------------------------

var (
	metricInserted   = metrics.NewCounter(`crmvault_records_inserted_total`)
	metricSuperseded = metrics.NewCounter(`crmvault_records_superseded_total`)
	metricContention = metrics.NewCounter(`crmvault_lock_contention_total`)
	metricFailures   = metrics.NewCounter(`crmvault_insert_failures_total`)
)

// --------------------------------------------------------------------------
// Options
// --------------------------------------------------------------------------

const (
	// DefaultRetryBudget is how many lock acquisition attempts an insert
	// makes before giving up with FailContention.
	DefaultRetryBudget = 3

	// DefaultRetryDelay is the pause between acquisition attempts.
	DefaultRetryDelay = 1000 * time.Millisecond
)

// Options configures a Vault.
type Options struct {
	DocumentKey string        // Key of the storage document (default "crm/records")
	LockKey     string        // Key of the lock timestamp (default "crm/lock")
	LockTimeout time.Duration // Lock staleness timeout (0 = lockmgr.DefaultTimeout)
	RetryBudget int           // Lock acquisition attempts per insert (0 = DefaultRetryBudget)
	RetryDelay  time.Duration // Pause between attempts (0 = DefaultRetryDelay)
	Clock       lockmgr.Clock // Time source (nil = SystemClock)

	// Sleep pauses between retry attempts. Tests replace it to avoid real
	// waiting; nil means time.Sleep.
	Sleep func(time.Duration)
}

// DefaultOptions returns the default vault options.
func DefaultOptions() *Options {
	return &Options{
		DocumentKey: lockmgr.DefaultDocumentKey,
		LockKey:     lockmgr.DefaultLockKey,
		LockTimeout: lockmgr.DefaultTimeout,
		RetryBudget: DefaultRetryBudget,
		RetryDelay:  DefaultRetryDelay,
		Clock:       lockmgr.SystemClock{},
		Sleep:       time.Sleep,
	}
}

// --------------------------------------------------------------------------
// Vault
// --------------------------------------------------------------------------

// Vault orchestrates all access to the storage document. It owns a lock
// manager on the same store and keys, and is safe for concurrent use from
// multiple goroutines (the document lock, not the Vault, is the mutex).
type Vault struct {
	store  kv.IDocumentStore
	locks  lockmgr.ILockManager
	docKey string
	budget int
	delay  time.Duration
	clock  lockmgr.Clock
	sleep  func(time.Duration)
}

// New creates a Vault over the given store.
func New(store kv.IDocumentStore, opts *Options) *Vault {
	if opts == nil {
		opts = DefaultOptions()
	}
	v := &Vault{
		store:  store,
		docKey: opts.DocumentKey,
		budget: opts.RetryBudget,
		delay:  opts.RetryDelay,
		clock:  opts.Clock,
		sleep:  opts.Sleep,
	}
	if v.docKey == "" {
		v.docKey = lockmgr.DefaultDocumentKey
	}
	if v.budget <= 0 {
		v.budget = DefaultRetryBudget
	}
	if v.delay <= 0 {
		v.delay = DefaultRetryDelay
	}
	if v.clock == nil {
		v.clock = lockmgr.SystemClock{}
	}
	if v.sleep == nil {
		v.sleep = time.Sleep
	}

	lockOpts := lockmgr.DefaultOptions()
	lockOpts.DocumentKey = v.docKey
	lockOpts.LockKey = opts.LockKey
	lockOpts.Timeout = opts.LockTimeout
	lockOpts.Clock = v.clock
	v.locks = lockmgr.NewLockManager(store, lockOpts)

	return v
}

// InsertWithDedup implements IVault.
func (v *Vault) InsertWithDedup(entity records.EntityType, batch []records.Record) (int, error) {
	if !entity.Valid() {
		return 0, NewError(FailInvalidEntity, fmt.Sprintf("unknown entity type %q", entity))
	}
	if len(batch) == 0 {
		return 0, nil
	}

	for attempt := 1; ; attempt++ {
		ok, err := v.locks.AcquireLock()
		if err != nil {
			Logger.Warningf("lock acquisition attempt %d/%d errored: %v", attempt, v.budget, err)
		}
		if ok {
			inserted, err := v.insertLocked(entity, batch)
			if err != nil {
				metricFailures.Inc()
				return 0, err
			}
			metricInserted.Add(inserted)
			metricSuperseded.Add(len(batch) - inserted)
			return inserted, nil
		}

		metricContention.Inc()
		if attempt >= v.budget {
			metricFailures.Inc()
			return 0, NewError(FailContention,
				fmt.Sprintf("could not acquire document lock after %d attempts", v.budget))
		}
		Logger.Infof("document lock contended, retrying in %v (attempt %d/%d)",
			v.delay, attempt, v.budget)
		v.sleep(v.delay)
	}
}

// insertLocked is the critical section. The lock is released on every exit,
// including a panic in the merge.
func (v *Vault) insertLocked(entity records.EntityType, batch []records.Record) (int, error) {
	defer v.locks.ReleaseLock()

	doc, err := v.readDocument()
	if err != nil {
		return 0, err
	}

	existing := doc.Collection(entity)
	merged := Merge(existing, batch)
	inserted := len(merged) - len(existing)
	if inserted < 0 {
		inserted = 0
	}

	doc.SetCollection(entity, merged)
	doc.LastSync = v.clock.Now().UnixMilli()
	if err := v.writeDocument(doc); err != nil {
		return 0, err
	}

	Logger.Infof("merged %d %s records (%d net-new)", len(batch), entity, inserted)
	return inserted, nil
}

// RemoveRecord implements IVault. Removal is a plain unlocked rewrite; see
// the package documentation for the accepted race with concurrent inserts.
func (v *Vault) RemoveRecord(entity records.EntityType, id string) error {
	if !entity.Valid() {
		return NewError(FailInvalidEntity, fmt.Sprintf("unknown entity type %q", entity))
	}

	doc, err := v.readDocument()
	if err != nil {
		return err
	}

	existing := doc.Collection(entity)
	kept := make([]records.Record, 0, len(existing))
	for _, r := range existing {
		if r.ID != id {
			kept = append(kept, r)
		}
	}
	if len(kept) == len(existing) {
		return NewError(FailNotFound, fmt.Sprintf("no %s record with id %q", entity, id))
	}

	doc.SetCollection(entity, kept)
	return v.writeDocument(doc)
}

// ClearAll implements IVault.
func (v *Vault) ClearAll() error {
	return v.writeDocument(records.DefaultDocument())
}

// Document implements IVault.
func (v *Vault) Document() (records.StorageDocument, error) {
	return v.readDocument()
}

// Status implements IVault.
func (v *Vault) Status() (int64, bool, error) {
	doc, err := v.readDocument()
	if err != nil {
		return 0, false, err
	}
	return doc.LastSync, doc.SyncInProgress, nil
}

// --------------------------------------------------------------------------
// Change Propagation
// --------------------------------------------------------------------------

// Watch registers fn to run after every write to the storage document,
// including writes by other vaults on the same store. Delivery is
// best-effort and asynchronous; fn receives the wall-clock time (ms) at
// which the change was observed, not the document itself. Watching requires
// a store with FeatureSubscribe.
func (v *Vault) Watch(fn func(observedAt int64)) (token string, err error) {
	if fn == nil {
		return "", NewError(FailStoreIO, "watch callback must not be nil")
	}
	token, err = v.store.Subscribe(v.docKey, func(string) {
		fn(v.clock.Now().UnixMilli())
	})
	if err != nil {
		return "", NewError(FailStoreIO, fmt.Sprintf("subscribe failed: %v", err))
	}
	return token, nil
}

// Unwatch removes a Watch registration.
func (v *Vault) Unwatch(token string) {
	if err := v.store.Unsubscribe(token); err != nil {
		Logger.Warningf("unsubscribe %q failed: %v", token, err)
	}
}

// --------------------------------------------------------------------------
// Document I/O
// --------------------------------------------------------------------------

func (v *Vault) readDocument() (records.StorageDocument, error) {
	raw, _, err := v.store.Get(v.docKey)
	if err != nil {
		return records.StorageDocument{}, NewError(FailStoreIO,
			fmt.Sprintf("read %q: %v", v.docKey, err))
	}
	doc, err := records.DecodeDocument(raw)
	if err != nil {
		return records.StorageDocument{}, NewError(FailStoreIO,
			fmt.Sprintf("decode %q: %v", v.docKey, err))
	}
	return doc, nil
}

func (v *Vault) writeDocument(doc records.StorageDocument) error {
	encoded, err := records.EncodeDocument(doc)
	if err != nil {
		return NewError(FailStoreIO, fmt.Sprintf("encode %q: %v", v.docKey, err))
	}
	if err := v.store.Set(v.docKey, encoded); err != nil {
		return NewError(FailStoreIO, fmt.Sprintf("write %q: %v", v.docKey, err))
	}
	return nil
}
