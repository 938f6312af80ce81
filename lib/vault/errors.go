package vault

import (
	"errors"
	"fmt"
)

// --------------------------------------------------------------------------
// Failure Taxonomy
// --------------------------------------------------------------------------

// FailCode classifies why a vault operation failed.
type FailCode uint64

const (
	FailNone          FailCode = iota // 0: No failure.
	FailContention                    // 1: The lock could not be acquired within the retry budget.
	FailStoreIO                       // 2: The underlying store failed to read or write.
	FailNotFound                      // 3: The operation had no effect (e.g. unknown record id).
	FailInvalidEntity                 // 4: The entity type is not one of the known collections.
)

func (c FailCode) String() string {
	switch c {
	case FailContention:
		return "Contention"
	case FailStoreIO:
		return "StoreIO"
	case FailNotFound:
		return "NotFound"
	case FailInvalidEntity:
		return "InvalidEntity"
	default:
		return "Unknown"
	}
}

// Error is the typed failure every public vault operation returns.
// It distinguishes "operation had no effect" from "operation could not be
// attempted"; no store exception ever escapes the vault unwrapped.
type Error struct {
	Code FailCode // Failure classification
	Msg  string   // Human-readable message
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("VaultError (code %s): %s", e.Code, e.Msg)
}

// NewError creates a new vault Error with the given code and message.
func NewError(code FailCode, msg string) *Error {
	return &Error{
		Code: code,
		Msg:  msg,
	}
}

// CodeOf extracts the FailCode from an error returned by a vault operation.
// Non-vault errors classify as FailStoreIO (the only unexpected kind).
func CodeOf(err error) FailCode {
	if err == nil {
		return FailNone
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return FailStoreIO
}
