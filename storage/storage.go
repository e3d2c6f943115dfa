// Package storage holds the channel dataset and the contract for persisting
// it as immutable snapshots.
package storage

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Sentinel errors for common storage conditions.
var (
	// ErrNotFound indicates the requested entity was not found.
	ErrNotFound = errors.New("storage: not found")
	// ErrAlreadyExists indicates the entity already exists in storage.
	ErrAlreadyExists = errors.New("storage: already exists")
	// ErrInvalidInput indicates invalid or malformed input was provided.
	ErrInvalidInput = errors.New("storage: invalid input")
	// ErrStorageCorrupt indicates data corruption was detected.
	ErrStorageCorrupt = errors.New("storage: data corruption detected")
	// ErrLockTimeout indicates a timeout acquiring a file lock.
	ErrLockTimeout = errors.New("storage: lock acquisition timeout")
)

// StorageError wraps storage errors with operation and entity context.
// Use errors.As() to extract this error type and get operation details:
//
//	var storErr *storage.StorageError
//	if errors.As(err, &storErr) {
//		fmt.Printf("Failed to %s %s %s: %v\n", storErr.Op, storErr.Entity, storErr.ID, storErr.Err)
//	}
type StorageError struct {
	// Op is the operation that failed ("put", "latest", "decode", "lock").
	Op string
	// Entity is the entity type ("snapshot", "file", ...).
	Entity string
	// ID is the entity name if applicable.
	ID string
	// Err is the underlying error that occurred.
	Err error
}

// Error returns a string representation of the storage error.
func (e *StorageError) Error() string {
	if e.ID != "" {
		return fmt.Sprintf("storage: %s %s %s: %v", e.Op, e.Entity, e.ID, e.Err)
	}
	return fmt.Sprintf("storage: %s %s: %v", e.Op, e.Entity, e.Err)
}

// Unwrap returns the underlying error for use with errors.Is() and errors.As().
func (e *StorageError) Unwrap() error { return e.Err }

// SnapshotSink stores immutable, named snapshot blobs.
//
// Put never replaces an existing snapshot: writing a name that is already
// taken fails with ErrAlreadyExists. Latest returns the snapshot whose name
// sorts last, or ErrNotFound when the sink is empty. Names produced by
// SnapshotName sort chronologically.
type SnapshotSink interface {
	// Put writes a new snapshot under name.
	Put(ctx context.Context, name string, data []byte) error
	// Latest returns the name and contents of the newest snapshot.
	Latest(ctx context.Context) (name string, data []byte, err error)
	// Close releases any resources held by the sink.
	Close() error
}

// SnapshotPrefix starts every snapshot name.
const SnapshotPrefix = "channels_"

// snapshotTimeLayout is fixed-width so names sort lexically in time order.
const snapshotTimeLayout = "20060102T150405.000000000Z"

// SnapshotName returns the snapshot name for a snapshot taken at t.
func SnapshotName(t time.Time) string {
	return SnapshotPrefix + t.UTC().Format(snapshotTimeLayout)
}

// ParseSnapshotName returns the time encoded in a name built by SnapshotName.
func ParseSnapshotName(name string) (time.Time, error) {
	if len(name) <= len(SnapshotPrefix) || name[:len(SnapshotPrefix)] != SnapshotPrefix {
		return time.Time{}, fmt.Errorf("%w: snapshot name %q", ErrInvalidInput, name)
	}
	t, err := time.Parse(snapshotTimeLayout, name[len(SnapshotPrefix):])
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: snapshot name %q: %v", ErrInvalidInput, name, err)
	}
	return t, nil
}
