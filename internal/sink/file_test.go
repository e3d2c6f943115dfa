package sink

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"ytcollect/storage"
)

func TestFileSink_Contract(t *testing.T) {
	s, err := NewFileSink(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileSink() error = %v", err)
	}
	defer s.Close()
	testSinkContract(t, s)
}

func TestFileSink_IgnoresForeignFiles(t *testing.T) {
	dir := t.TempDir()
	s, err := NewFileSink(dir)
	if err != nil {
		t.Fatalf("NewFileSink() error = %v", err)
	}

	for _, name := range []string{"notes.txt", "zzz.json", ".ytcollect-123.tmp"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0644); err != nil {
			t.Fatal(err)
		}
	}

	ctx := context.Background()
	want := storage.SnapshotName(time.Now())
	if err := s.Put(ctx, want, []byte(`{}`)); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	names, err := s.List(ctx)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(names) != 1 || names[0] != want {
		t.Errorf("List() = %v, want [%s]", names, want)
	}
}

func TestFileSink_NoTempFilesLeft(t *testing.T) {
	dir := t.TempDir()
	s, err := NewFileSink(dir)
	if err != nil {
		t.Fatalf("NewFileSink() error = %v", err)
	}
	if err := s.Put(context.Background(), storage.SnapshotName(time.Now()), []byte("{}")); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), ".tmp") {
			t.Errorf("temp file left behind: %s", e.Name())
		}
	}
}

func TestNewFileSink_EmptyDir(t *testing.T) {
	if _, err := NewFileSink(""); err == nil {
		t.Error("NewFileSink(\"\") should fail")
	}
}

func TestAtomicWriter_Abort(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "target.json")

	w, err := NewAtomicWriter(path)
	if err != nil {
		t.Fatalf("NewAtomicWriter() error = %v", err)
	}
	w.Write([]byte("partial"))
	if err := w.Abort(); err != nil {
		t.Fatalf("Abort() error = %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("target exists after Abort: %v", err)
	}
}

func TestFileLock_Timeout(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lockme")

	first := NewFileLock(path)
	if err := first.Lock(time.Second); err != nil {
		t.Fatalf("first Lock() error = %v", err)
	}
	defer first.Unlock()

	second := NewFileLock(path)
	err := second.Lock(50 * time.Millisecond)
	if err == nil {
		second.Unlock()
		t.Fatal("second Lock() succeeded while first held the lock")
	}
}
