package storage

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestDecodeSnapshot_DropsRecordsWithoutID(t *testing.T) {
	data := []byte(`{
  "version": "1",
  "taken_at": "2026-10-19T12:00:00Z",
  "channels": [
    {"channel_id": "UC1", "title": "one"},
    {"channel_id": "", "title": "broken"}
  ]
}`)
	snap, err := DecodeSnapshot(data)
	if err != nil {
		t.Fatalf("DecodeSnapshot() error = %v", err)
	}
	if len(snap.Channels) != 1 || snap.Channels[0].ChannelID != "UC1" {
		t.Errorf("Channels = %+v, want only UC1", snap.Channels)
	}
}

func TestDecodeSnapshot_Errors(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"garbage", "not json"},
		{"missing version", `{"channels": []}`},
		{"future version", `{"version": "2", "channels": []}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeSnapshot([]byte(tt.data))
			if !errors.Is(err, ErrStorageCorrupt) {
				t.Errorf("DecodeSnapshot() error = %v, want ErrStorageCorrupt", err)
			}
		})
	}
}

func TestEncodeSnapshot_EmptyDatasetHasChannelsArray(t *testing.T) {
	data, err := EncodeSnapshot("", time.Now(), nil)
	if err != nil {
		t.Fatalf("EncodeSnapshot() error = %v", err)
	}
	if !strings.Contains(string(data), `"channels": []`) {
		t.Errorf("encoded snapshot missing empty channels array: %s", data)
	}
}

func TestSnapshotName(t *testing.T) {
	t1 := time.Date(2026, 10, 19, 9, 5, 3, 120, time.UTC)
	t2 := t1.Add(time.Nanosecond)

	n1, n2 := SnapshotName(t1), SnapshotName(t2)
	if n1 >= n2 {
		t.Errorf("SnapshotName order: %q >= %q", n1, n2)
	}
	if !strings.HasPrefix(n1, SnapshotPrefix) {
		t.Errorf("SnapshotName() = %q, want prefix %q", n1, SnapshotPrefix)
	}

	parsed, err := ParseSnapshotName(n1)
	if err != nil {
		t.Fatalf("ParseSnapshotName() error = %v", err)
	}
	if !parsed.Equal(t1) {
		t.Errorf("ParseSnapshotName() = %v, want %v", parsed, t1)
	}

	local := t1.In(time.FixedZone("JST", 9*3600))
	if SnapshotName(local) != n1 {
		t.Error("SnapshotName should normalize to UTC")
	}

	if _, err := ParseSnapshotName("other_20261019"); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("ParseSnapshotName(bad) error = %v, want ErrInvalidInput", err)
	}
}
