package sharing

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound reports a missing file index row or pending deletion.
	// It is expected during normal operation and is never fatal.
	ErrNotFound = errors.New("not found")

	// ErrStillExists reports that a path was still present in the file index
	// when its post-delete event arrived, so the event was a rename or move
	// rather than a deletion. Callers treat it as a no-op.
	ErrStillExists = errors.New("path still exists after delete")

	// ErrUnsupportedItemType is returned by the fan-out resolver for items
	// other than files and folders.
	ErrUnsupportedItemType = errors.New("unsupported item type")
)

// StoreError wraps a failure of the file index or share store.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }
