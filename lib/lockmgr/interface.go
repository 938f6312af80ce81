package lockmgr

import "time"

// ILockManager defines the interface for the document lock.
type ILockManager interface {
	// AcquireLock tries to take the document lock.
	// It returns false on contention (a non-stale lock is held) and fails
	// closed with an error if the store cannot be read or written.
	AcquireLock() (ok bool, err error)

	// ReleaseLock removes the lock key and clears the advisory flag.
	// It is idempotent and never fails: cleanup errors are logged and
	// swallowed, the staleness timeout guarantees eventual recovery.
	ReleaseLock()

	// Locked reports whether a non-stale lock is currently held.
	Locked() (held bool, err error)
}

// Clock abstracts wall-clock time so lock staleness is testable.
type Clock interface {
	Now() time.Time
}

// SystemClock is the production Clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }
