package storage

import (
	"errors"
	"fmt"
)

// Sentinel errors for storage operations.
var (
	// ErrNotFound indicates the requested key does not exist.
	ErrNotFound = errors.New("storage: not found")
	// ErrLockTimeout indicates the store's file lock could not be acquired.
	ErrLockTimeout = errors.New("storage: lock timeout")
)

// StorageError wraps errors with context about the failing operation.
type StorageError struct {
	Op  string // Operation: "read", "write", "lock"
	Key string // Key involved, if any
	Err error  // Underlying error
}

func (e *StorageError) Error() string {
	if e.Key != "" {
		return fmt.Sprintf("storage %s %q: %v", e.Op, e.Key, e.Err)
	}
	return fmt.Sprintf("storage %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}
