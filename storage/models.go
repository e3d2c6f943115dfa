package storage

import (
	"sort"
	"time"
)

// ChannelRecord is one discovered channel.
// ChannelID is the primary key of the dataset.
type ChannelRecord struct {
	// ChannelID is the YouTube channel ID (e.g., "UCxxxxxxxxxxxxxxx").
	ChannelID string `json:"channel_id"`
	// Title is the display name of the channel.
	Title string `json:"title"`
	// Description is the channel's description from YouTube.
	Description string `json:"description"`
	// Email is the first address found in the description, or the
	// extractor's sentinel when there is none.
	Email string `json:"email"`
	// SubscriberCount is zero when YouTube hides or omits it.
	SubscriberCount uint64 `json:"subscriber_count"`
	// ViewCount is the channel's total view count.
	ViewCount uint64 `json:"view_count"`
	// VideoCount is the number of public videos.
	VideoCount uint64 `json:"video_count"`
	// FetchedAt is when the detail lookup for this record completed.
	FetchedAt time.Time `json:"fetched_at"`
}

// Category is a discovery partition: a YouTube video category.
type Category struct {
	ID   string `json:"id" yaml:"id"`
	Name string `json:"name" yaml:"name"`
}

// IDSet is a set of channel IDs used for membership tests.
type IDSet map[string]struct{}

// NewIDSet returns a set holding ids.
func NewIDSet(ids ...string) IDSet {
	s := make(IDSet, len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s
}

// Has reports whether id is in the set. A nil set is empty.
func (s IDSet) Has(id string) bool {
	_, ok := s[id]
	return ok
}

// Add inserts id into the set.
func (s IDSet) Add(id string) {
	s[id] = struct{}{}
}

// Len returns the number of IDs in the set.
func (s IDSet) Len() int { return len(s) }

// Sorted returns the IDs in ascending order.
func (s IDSet) Sorted() []string {
	ids := make([]string, 0, len(s))
	for id := range s {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
