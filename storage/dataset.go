package storage

import (
	"context"
	"errors"
	"sort"
	"sync"
)

// Dataset is the authoritative in-memory collection of channel records,
// keyed by channel ID. It is the single source of truth during a run.
type Dataset struct {
	mu      sync.RWMutex
	records map[string]ChannelRecord
}

// NewDataset returns an empty dataset.
func NewDataset() *Dataset {
	return &Dataset{records: make(map[string]ChannelRecord)}
}

// LoadDataset builds the dataset from the newest snapshot in sink.
//
// The returned dataset is always usable. An empty sink yields an empty
// dataset and a nil error. When the sink cannot be read or the snapshot
// cannot be decoded, the dataset is empty and the error says why; callers
// log it and carry on, accepting that known channels may be rediscovered.
func LoadDataset(ctx context.Context, sink SnapshotSink) (*Dataset, error) {
	d := NewDataset()

	name, data, err := sink.Latest(ctx)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return d, nil
		}
		return d, err
	}

	snap, err := DecodeSnapshot(data)
	if err != nil {
		return d, &StorageError{Op: "decode", Entity: "snapshot", ID: name, Err: err}
	}

	d.Insert(snap.Channels...)
	return d, nil
}

// KnownIDs returns a copy of the current key set.
func (d *Dataset) KnownIDs() IDSet {
	d.mu.RLock()
	defer d.mu.RUnlock()

	ids := make(IDSet, len(d.records))
	for id := range d.records {
		ids[id] = struct{}{}
	}
	return ids
}

// Insert stores records, replacing in full any record with the same
// channel ID. Records without an ID are ignored. It reports how many IDs
// were new to the dataset and how many replaced an existing record.
func (d *Dataset) Insert(records ...ChannelRecord) (added, replaced int) {
	d.mu.Lock()
	defer d.mu.Unlock()

	for _, r := range records {
		if r.ChannelID == "" {
			continue
		}
		if _, exists := d.records[r.ChannelID]; exists {
			replaced++
		} else {
			added++
		}
		d.records[r.ChannelID] = r
	}
	return added, replaced
}

// Get returns the record for id.
func (d *Dataset) Get(id string) (ChannelRecord, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	r, ok := d.records[id]
	return r, ok
}

// Len returns the number of records.
func (d *Dataset) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.records)
}

// Export returns every record, sorted by channel ID.
func (d *Dataset) Export() []ChannelRecord {
	d.mu.RLock()
	defer d.mu.RUnlock()

	out := make([]ChannelRecord, 0, len(d.records))
	for _, r := range d.records {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ChannelID < out[j].ChannelID })
	return out
}
