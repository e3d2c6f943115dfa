//go:build !windows

package sink

import (
	"os"
	"syscall"
	"time"

	"ytcollect/storage"
)

// FileLock is an advisory flock(2) lock that serializes snapshot writers
// across processes sharing a directory.
type FileLock struct {
	path string
	file *os.File
}

// NewFileLock creates a lock on path + ".lock". Nothing is acquired until Lock.
func NewFileLock(path string) *FileLock {
	return &FileLock{path: path + ".lock"}
}

// Lock acquires the exclusive lock, polling until timeout.
// Returns storage.ErrLockTimeout if the lock stays held by someone else.
func (l *FileLock) Lock(timeout time.Duration) error {
	var err error
	l.file, err = os.OpenFile(l.path, os.O_CREATE|os.O_RDWR, 0600)
	if err != nil {
		return &storage.StorageError{Op: "lock", Entity: "file", ID: l.path, Err: err}
	}

	deadline := time.Now().Add(timeout)
	for {
		err = syscall.Flock(int(l.file.Fd()), syscall.LOCK_EX|syscall.LOCK_NB)
		if err == nil {
			return nil
		}
		if !time.Now().Before(deadline) {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}

	l.file.Close()
	l.file = nil
	return &storage.StorageError{Op: "lock", Entity: "file", ID: l.path, Err: storage.ErrLockTimeout}
}

// Unlock releases the lock. Unlocking an unheld lock is a no-op.
func (l *FileLock) Unlock() error {
	if l.file == nil {
		return nil
	}
	syscall.Flock(int(l.file.Fd()), syscall.LOCK_UN)
	err := l.file.Close()
	l.file = nil
	return err
}
