package collector

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"ytcollect/storage"
	"ytcollect/youtube"
)

// fakePage is one chart page served by fakeSource.
type fakePage struct {
	ids  []string
	next string
	err  error
}

// fakeSource serves canned chart pages per category and channel details by ID.
type fakeSource struct {
	mu sync.Mutex

	pages map[string][]fakePage
	// endless makes every page of the category carry a next token.
	endless map[string]bool
	details map[string]youtube.ChannelItem
	// failBatch fails the nth ChannelDetails call (1-based).
	failBatch map[int]bool

	pageCalls  map[string]int
	batchCalls [][]string
	quota      int
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		pages:     make(map[string][]fakePage),
		endless:   make(map[string]bool),
		details:   make(map[string]youtube.ChannelItem),
		failBatch: make(map[int]bool),
		pageCalls: make(map[string]int),
	}
}

func (f *fakeSource) PopularVideos(ctx context.Context, categoryID, pageToken string) (*youtube.PopularPage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.quota++
	n := f.pageCalls[categoryID]
	f.pageCalls[categoryID] = n + 1

	if f.endless[categoryID] {
		return &youtube.PopularPage{
			ChannelIDs:    []string{fmt.Sprintf("%s-ch%d", categoryID, n)},
			NextPageToken: fmt.Sprintf("tok%d", n+1),
		}, nil
	}

	pages := f.pages[categoryID]
	if n >= len(pages) {
		return &youtube.PopularPage{}, nil
	}
	p := pages[n]
	if p.err != nil {
		return nil, p.err
	}
	return &youtube.PopularPage{ChannelIDs: p.ids, NextPageToken: p.next}, nil
}

func (f *fakeSource) ChannelDetails(ctx context.Context, ids []string) ([]youtube.ChannelItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.quota++
	f.batchCalls = append(f.batchCalls, append([]string(nil), ids...))
	if f.failBatch[len(f.batchCalls)] {
		return nil, errors.New("backend error")
	}

	var items []youtube.ChannelItem
	for _, id := range ids {
		if item, ok := f.details[id]; ok {
			items = append(items, item)
			continue
		}
		items = append(items, youtube.ChannelItem{ID: id, Title: "title " + id})
	}
	return items, nil
}

func (f *fakeSource) QuotaUsed() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.quota
}

// memSink is an in-memory SnapshotSink.
type memSink struct {
	mu        sync.Mutex
	snapshots map[string][]byte
	putErr    error
	latestErr error
}

func newMemSink() *memSink {
	return &memSink{snapshots: make(map[string][]byte)}
}

func (s *memSink) Put(ctx context.Context, name string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.putErr != nil {
		return s.putErr
	}
	if _, ok := s.snapshots[name]; ok {
		return storage.ErrAlreadyExists
	}
	s.snapshots[name] = data
	return nil
}

func (s *memSink) Latest(ctx context.Context) (string, []byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.latestErr != nil {
		return "", nil, s.latestErr
	}
	if len(s.snapshots) == 0 {
		return "", nil, storage.ErrNotFound
	}
	names := make([]string, 0, len(s.snapshots))
	for n := range s.snapshots {
		names = append(names, n)
	}
	sort.Strings(names)
	name := names[len(names)-1]
	return name, s.snapshots[name], nil
}

func (s *memSink) Close() error { return nil }

func (s *memSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.snapshots)
}

func ids(n int, prefix string) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("%s%03d", prefix, i)
	}
	return out
}

func recordIDs(records []storage.ChannelRecord) string {
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = r.ChannelID
	}
	sort.Strings(out)
	return strings.Join(out, ",")
}
