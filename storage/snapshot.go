package storage

import (
	"encoding/json"
	"fmt"
	"time"
)

// SnapshotVersion is written into every snapshot envelope.
const SnapshotVersion = "1"

// Snapshot is the serialized form of a dataset.
type Snapshot struct {
	Version  string          `json:"version"`
	RunID    string          `json:"run_id,omitempty"`
	TakenAt  time.Time       `json:"taken_at"`
	Channels []ChannelRecord `json:"channels"`
}

// EncodeSnapshot serializes records into a snapshot envelope.
func EncodeSnapshot(runID string, takenAt time.Time, records []ChannelRecord) ([]byte, error) {
	if records == nil {
		records = []ChannelRecord{}
	}
	snap := Snapshot{
		Version:  SnapshotVersion,
		RunID:    runID,
		TakenAt:  takenAt.UTC(),
		Channels: records,
	}
	data, err := json.MarshalIndent(&snap, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode snapshot: %w", err)
	}
	return data, nil
}

// DecodeSnapshot parses a snapshot envelope. Records without a channel ID
// are dropped. Malformed JSON and unknown versions wrap ErrStorageCorrupt.
func DecodeSnapshot(data []byte) (*Snapshot, error) {
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorageCorrupt, err)
	}
	if snap.Version != SnapshotVersion {
		return nil, fmt.Errorf("%w: unsupported snapshot version %q", ErrStorageCorrupt, snap.Version)
	}

	kept := snap.Channels[:0]
	for _, r := range snap.Channels {
		if r.ChannelID != "" {
			kept = append(kept, r)
		}
	}
	snap.Channels = kept
	return &snap, nil
}
