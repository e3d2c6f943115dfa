package sink

import (
	"context"
	"errors"
	"testing"
	"time"

	"ytcollect/storage"
)

// testSinkContract exercises the behavior every SnapshotSink must share.
// The sink must be empty when passed in.
func testSinkContract(t *testing.T, s storage.SnapshotSink) {
	t.Helper()
	ctx := context.Background()

	if _, _, err := s.Latest(ctx); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("Latest() on empty sink error = %v, want ErrNotFound", err)
	}

	base := time.Date(2026, 10, 19, 3, 0, 0, 0, time.UTC)
	older := storage.SnapshotName(base)
	newer := storage.SnapshotName(base.Add(time.Hour))

	// Write out of order; Latest must still pick the newest name.
	if err := s.Put(ctx, newer, []byte("second")); err != nil {
		t.Fatalf("Put(newer) error = %v", err)
	}
	if err := s.Put(ctx, older, []byte("first")); err != nil {
		t.Fatalf("Put(older) error = %v", err)
	}

	name, data, err := s.Latest(ctx)
	if err != nil {
		t.Fatalf("Latest() error = %v", err)
	}
	if name != newer || string(data) != "second" {
		t.Errorf("Latest() = (%q, %q), want (%q, %q)", name, data, newer, "second")
	}

	err = s.Put(ctx, newer, []byte("overwrite"))
	if !errors.Is(err, storage.ErrAlreadyExists) {
		t.Errorf("Put(existing) error = %v, want ErrAlreadyExists", err)
	}

	_, data, err = s.Latest(ctx)
	if err != nil {
		t.Fatalf("Latest() after rejected overwrite error = %v", err)
	}
	if string(data) != "second" {
		t.Errorf("snapshot was overwritten: got %q", data)
	}

	if err := s.Put(ctx, "../escape", []byte("x")); !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("Put(bad name) error = %v, want ErrInvalidInput", err)
	}
}
