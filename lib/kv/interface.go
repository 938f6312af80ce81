package kv

import (
	"fmt"
	"io"
)

// --------------------------------------------------------------------------
// Interface Definition
// --------------------------------------------------------------------------

// ChangeFunc is invoked after a watched key was successfully written or
// deleted. Delivery is asynchronous and best-effort.
type ChangeFunc func(key string)

// IDocumentStore is the generic interface for the persistence substrate.
// All write operations return only an error (nil on success), read
// operations return the requested data along with an error.
type IDocumentStore interface {
	// Set inserts or updates a key-value pair.
	Set(key string, value []byte) (err error)
	// Get returns the value for a key. The boolean return value indicates
	// whether a value for the key was found; absence is not an error.
	Get(key string) (value []byte, loaded bool, err error)
	// Delete removes a key-value pair. Deleting an absent key is a no-op.
	Delete(key string) (err error)
	// Has returns whether a key exists in the store.
	Has(key string) (loaded bool, err error)

	// Subscribe registers a change callback for a key and returns an opaque
	// subscription token for Unsubscribe.
	Subscribe(key string, fn ChangeFunc) (token string, err error)
	// Unsubscribe removes a subscription. Unknown tokens are a no-op.
	Unsubscribe(token string) (err error)

	// Save persists the current state of the store to the provided writer.
	// Only supported by engines advertising FeatureSave.
	Save(w io.Writer) (err error)
	// Load restores the store state from the provided reader.
	// Only supported by engines advertising FeatureLoad.
	Load(r io.Reader) (err error)

	// SupportsFeature checks if the engine supports the specified feature.
	// Multiple features can be checked at once using bitwise OR.
	SupportsFeature(feature Feature) (ok bool)

	// Close releases engine resources.
	Close() (err error)
}

// --------------------------------------------------------------------------
// Feature Flags
// --------------------------------------------------------------------------

// Feature represents engine capabilities as bit flags.
type Feature uint64

const (
	FeatureSet       Feature = 1 << iota // Support for Set operations
	FeatureGet                           // Support for Get operations
	FeatureDelete                        // Support for Delete operations
	FeatureHas                           // Support for Has operations
	FeatureSubscribe                     // Support for change subscriptions
	FeatureSave                          // Support for snapshot Save
	FeatureLoad                          // Support for snapshot Load
)

func (f Feature) String() string {
	switch f {
	case FeatureSet:
		return "Set"
	case FeatureGet:
		return "Get"
	case FeatureDelete:
		return "Delete"
	case FeatureHas:
		return "Has"
	case FeatureSubscribe:
		return "Subscribe"
	case FeatureSave:
		return "Save"
	case FeatureLoad:
		return "Load"
	default:
		return "Unknown"
	}
}

// --------------------------------------------------------------------------
// Custom Error Type
// --------------------------------------------------------------------------

// Error is the store-level error type wrapping a return code and a message.
type Error struct {
	Code RetCode // The return code
	Msg  string  // The error message
}

// Error implements the error interface.
func (e *Error) Error() string {
	errorCode := "Unknown"
	switch e.Code {
	case RetCInternalError:
		errorCode = "InternalError"
	case RetCUnsupportedOperation:
		errorCode = "UnsupportedOperation"
	case RetCInvalidOperation:
		errorCode = "InvalidOperation"
	}
	return fmt.Sprintf("DocumentStoreError (code %s): %s", errorCode, e.Msg)
}

// NewError creates a new store Error with the given code and message.
func NewError(code RetCode, msg string) *Error {
	return &Error{
		Code: code,
		Msg:  msg,
	}
}

// --------------------------------------------------------------------------
// Return Codes
// --------------------------------------------------------------------------

type RetCode uint64

const (
	RetCSuccess              RetCode = iota // 0: Operation executed successfully.
	RetCInternalError                       // 1: Operation failed due to an internal error.
	RetCUnsupportedOperation                // 2: Operation is not supported by the engine.
	RetCInvalidOperation                    // 3: Invalid operation.
)
