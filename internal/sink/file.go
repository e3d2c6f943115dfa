// Package sink implements storage.SnapshotSink over files, SQLite,
// PostgreSQL, MongoDB and Redis.
package sink

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"ytcollect/storage"
)

const (
	fileExt     = ".json"
	lockTimeout = 5 * time.Second
)

// FileSink keeps one JSON file per snapshot in a directory.
// Snapshots are written atomically and never overwritten.
type FileSink struct {
	dir  string
	lock *FileLock
}

// NewFileSink creates the directory if needed and returns a sink over it.
func NewFileSink(dir string) (*FileSink, error) {
	if dir == "" {
		return nil, &storage.StorageError{Op: "open", Entity: "snapshot_dir", Err: storage.ErrInvalidInput}
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, &storage.StorageError{Op: "open", Entity: "snapshot_dir", ID: dir, Err: err}
	}
	return &FileSink{
		dir:  dir,
		lock: NewFileLock(filepath.Join(dir, ".ytcollect")),
	}, nil
}

// Dir returns the snapshot directory.
func (s *FileSink) Dir() string { return s.dir }

// Put writes data to <dir>/<name>.json.
func (s *FileSink) Put(ctx context.Context, name string, data []byte) error {
	if err := validName(name); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := s.lock.Lock(lockTimeout); err != nil {
		return err
	}
	defer s.lock.Unlock()

	path := filepath.Join(s.dir, name+fileExt)
	if _, err := os.Stat(path); err == nil {
		return &storage.StorageError{Op: "put", Entity: "snapshot", ID: name, Err: storage.ErrAlreadyExists}
	} else if !errors.Is(err, os.ErrNotExist) {
		return &storage.StorageError{Op: "put", Entity: "snapshot", ID: name, Err: err}
	}

	writer, err := NewAtomicWriter(path)
	if err != nil {
		return &storage.StorageError{Op: "put", Entity: "snapshot", ID: name, Err: err}
	}
	if _, err := writer.Write(data); err != nil {
		writer.Abort()
		return &storage.StorageError{Op: "put", Entity: "snapshot", ID: name, Err: err}
	}
	if err := writer.Commit(); err != nil {
		return &storage.StorageError{Op: "put", Entity: "snapshot", ID: name, Err: err}
	}
	return nil
}

// Latest returns the snapshot file whose name sorts last.
func (s *FileSink) Latest(ctx context.Context) (string, []byte, error) {
	names, err := s.List(ctx)
	if err != nil {
		return "", nil, err
	}
	if len(names) == 0 {
		return "", nil, storage.ErrNotFound
	}

	name := names[len(names)-1]
	data, err := os.ReadFile(filepath.Join(s.dir, name+fileExt))
	if err != nil {
		return "", nil, &storage.StorageError{Op: "latest", Entity: "snapshot", ID: name, Err: err}
	}
	return name, data, nil
}

// List returns the snapshot names in the directory, oldest first.
func (s *FileSink) List(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, &storage.StorageError{Op: "list", Entity: "snapshot", Err: err}
	}

	var names []string
	for _, e := range entries {
		n := e.Name()
		if e.IsDir() || !strings.HasPrefix(n, storage.SnapshotPrefix) || !strings.HasSuffix(n, fileExt) {
			continue
		}
		names = append(names, strings.TrimSuffix(n, fileExt))
	}
	sort.Strings(names)
	return names, nil
}

// Close is a no-op; the lock is only held during Put.
func (s *FileSink) Close() error { return nil }

func validName(name string) error {
	if name == "" || strings.ContainsAny(name, `/\`) || name == "." || name == ".." {
		return &storage.StorageError{Op: "put", Entity: "snapshot", ID: name,
			Err: fmt.Errorf("%w: bad snapshot name", storage.ErrInvalidInput)}
	}
	return nil
}
