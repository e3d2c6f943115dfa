package collector

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"

	"ytcollect/internal/metrics"
	"ytcollect/internal/sink"
	"ytcollect/notify"
	"ytcollect/storage"
	"ytcollect/youtube"
)

type recordingNotifier struct {
	calls   atomic.Int32
	summary notify.Summary
	err     error
}

func (n *recordingNotifier) Notify(ctx context.Context, s notify.Summary) error {
	n.calls.Add(1)
	n.summary = s
	return n.err
}

// steppingClock returns strictly increasing times so snapshot names differ.
func steppingClock() func() time.Time {
	t := time.Date(2026, 10, 19, 0, 0, 0, 0, time.UTC)
	return func() time.Time {
		t = t.Add(time.Second)
		return t
	}
}

func newTestCollector(t *testing.T, src *fakeSource, snapSink storage.SnapshotSink, n notify.Notifier, cats ...storage.Category) *Collector {
	t.Helper()
	c, err := New(Options{
		Categories: cats,
		Source:     src,
		Sink:       snapSink,
		Notifier:   n,
		Logger:     zerolog.Nop(),
		Now:        steppingClock(),
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return c
}

func latestDataset(t *testing.T, s storage.SnapshotSink) *storage.Dataset {
	t.Helper()
	d, err := storage.LoadDataset(context.Background(), s)
	if err != nil {
		t.Fatalf("LoadDataset() error = %v", err)
	}
	return d
}

func TestRunEndToEnd(t *testing.T) {
	src := newFakeSource()
	src.pages["A"] = []fakePage{{ids: []string{"c1", "c2"}}}
	src.pages["B"] = []fakePage{{ids: []string{"c2", "c3"}}}
	snaps := newMemSink()
	n := &recordingNotifier{}

	c := newTestCollector(t, src, snaps, n,
		storage.Category{ID: "A", Name: "Music"},
		storage.Category{ID: "B", Name: "Gaming"},
	)

	report, err := c.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if report.NewChannelCount() != 3 {
		t.Errorf("new channels = %d, want 3", report.NewChannelCount())
	}
	if got := recordIDs(report.NewChannels); got != "c1,c2,c3" {
		t.Errorf("new channel IDs = %s, want c1,c2,c3", got)
	}
	if report.TotalChannels != 3 || report.CategoriesProcessed != 2 || len(report.FailedCategories) != 0 {
		t.Errorf("report = %+v", report)
	}
	if report.RunID == "" || report.SnapshotName == "" {
		t.Errorf("report missing run ID or snapshot name: %+v", report)
	}
	// B's discovery must not re-fetch c2, which A already inserted.
	if len(src.batchCalls) != 2 || len(src.batchCalls[1]) != 1 || src.batchCalls[1][0] != "c3" {
		t.Errorf("detail batches = %v, want [[c1 c2] [c3]]", src.batchCalls)
	}
	if report.QuotaUsed != 4 {
		t.Errorf("QuotaUsed = %d, want 4", report.QuotaUsed)
	}

	d := latestDataset(t, snaps)
	if got := recordIDs(d.Export()); got != "c1,c2,c3" {
		t.Errorf("snapshot dataset = %s, want c1,c2,c3", got)
	}

	if n.calls.Load() != 1 {
		t.Fatalf("notifier calls = %d, want 1", n.calls.Load())
	}
	if n.summary.NewChannelCount != 3 || n.summary.TotalChannelCount != 3 || len(n.summary.Sample) != 3 {
		t.Errorf("summary = %+v", n.summary)
	}
}

func TestRunIsIncrementalAcrossRuns(t *testing.T) {
	dir := t.TempDir()
	snaps, err := sink.NewFileSink(dir)
	if err != nil {
		t.Fatal(err)
	}

	src := newFakeSource()
	src.pages["A"] = []fakePage{{ids: []string{"c1", "c2"}}}
	first := newTestCollector(t, src, snaps, nil, storage.Category{ID: "A"})
	if _, err := first.Run(context.Background()); err != nil {
		t.Fatalf("first Run() error = %v", err)
	}

	src2 := newFakeSource()
	src2.pages["A"] = []fakePage{{ids: []string{"c1", "c2", "c4"}}}
	second := newTestCollector(t, src2, snaps, nil, storage.Category{ID: "A"})
	second.opts.Now = func() time.Time { return time.Date(2026, 10, 20, 0, 0, 0, 0, time.UTC) }

	report, err := second.Run(context.Background())
	if err != nil {
		t.Fatalf("second Run() error = %v", err)
	}
	if got := recordIDs(report.NewChannels); got != "c4" {
		t.Errorf("second run new channels = %s, want c4", got)
	}
	if report.TotalChannels != 3 {
		t.Errorf("TotalChannels = %d, want 3", report.TotalChannels)
	}

	names, err := snaps.List(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(names) != 2 {
		t.Errorf("snapshots = %v, want 2 immutable snapshots", names)
	}
}

func TestRunCategoryIsolation(t *testing.T) {
	src := newFakeSource()
	src.pages["bad"] = []fakePage{{err: errors.New("quota exceeded")}}
	src.pages["empty"] = []fakePage{{}}
	src.pages["good"] = []fakePage{{ids: []string{"g1"}}}
	snaps := newMemSink()
	m := metrics.NewRun()

	c, err := New(Options{
		Categories: []storage.Category{{ID: "bad"}, {ID: "empty"}, {ID: "good"}},
		Source:     src,
		Sink:       snaps,
		Metrics:    m,
		Logger:     zerolog.Nop(),
		Now:        steppingClock(),
	})
	if err != nil {
		t.Fatal(err)
	}

	report, err := c.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if report.CategoriesProcessed != 3 {
		t.Errorf("CategoriesProcessed = %d, want 3", report.CategoriesProcessed)
	}
	if len(report.FailedCategories) != 1 || report.FailedCategories[0] != "bad" {
		t.Errorf("FailedCategories = %v, want [bad]", report.FailedCategories)
	}
	if got := recordIDs(report.NewChannels); got != "g1" {
		t.Errorf("new channels = %s, want g1", got)
	}
	if got := testutil.ToFloat64(m.CategoryFailures.WithLabelValues("bad")); got != 1 {
		t.Errorf("failure metric = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.DatasetChannels); got != 1 {
		t.Errorf("dataset metric = %v, want 1", got)
	}
}

func TestRunSkipsKnownChannels(t *testing.T) {
	snaps := newMemSink()
	old, err := storage.EncodeSnapshot("old", time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), []storage.ChannelRecord{
		{ChannelID: "x", SubscriberCount: 10},
	})
	if err != nil {
		t.Fatal(err)
	}
	snaps.snapshots[storage.SnapshotName(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))] = old

	// The chart lists x again; discovery skips it as known.
	src := newFakeSource()
	src.pages["A"] = []fakePage{{ids: []string{"x", "y"}}}
	c := newTestCollector(t, src, snaps, nil, storage.Category{ID: "A"})

	report, err := c.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if got := recordIDs(report.NewChannels); got != "y" {
		t.Errorf("new channels = %s, want y", got)
	}
	d := latestDataset(t, snaps)
	if d.Len() != 2 {
		t.Errorf("dataset size = %d, want 2", d.Len())
	}
	if x, _ := d.Get("x"); x.SubscriberCount != 10 {
		t.Errorf("x was modified: %+v", x)
	}
}

func TestRunNotifierFailureIsNotFatal(t *testing.T) {
	src := newFakeSource()
	src.pages["A"] = []fakePage{{ids: []string{"c1"}}}
	n := &recordingNotifier{err: errors.New("webhook down")}
	c := newTestCollector(t, src, newMemSink(), n, storage.Category{ID: "A"})

	report, err := c.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v, want nil despite notifier failure", err)
	}
	if report.NewChannelCount() != 1 || n.calls.Load() != 1 {
		t.Errorf("report = %+v, notifier calls = %d", report, n.calls.Load())
	}
}

func TestRunSnapshotWriteFailure(t *testing.T) {
	src := newFakeSource()
	src.pages["A"] = []fakePage{{ids: []string{"c1"}}}
	snaps := newMemSink()
	snaps.putErr = errors.New("disk full")
	n := &recordingNotifier{}
	c := newTestCollector(t, src, snaps, n, storage.Category{ID: "A"})

	report, err := c.Run(context.Background())
	if err == nil {
		t.Fatal("Run() error = nil, want snapshot failure")
	}
	if report == nil || report.SnapshotName != "" {
		t.Errorf("report = %+v", report)
	}
	if n.calls.Load() != 0 {
		t.Error("notifier called after failed snapshot write")
	}
}

func TestRunUnreadableSnapshotStartsEmpty(t *testing.T) {
	snaps := newMemSink()
	snaps.snapshots["channels_00000000T000000.000000000Z"] = []byte("{garbage")

	src := newFakeSource()
	src.pages["A"] = []fakePage{{ids: []string{"c1"}}}
	c := newTestCollector(t, src, snaps, nil, storage.Category{ID: "A"})

	report, err := c.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if report.TotalChannels != 1 || snaps.count() != 2 {
		t.Errorf("TotalChannels = %d, snapshots = %d", report.TotalChannels, snaps.count())
	}
}

func TestRunCanceledPersistsPartialDataset(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	src := newFakeSource()
	src.pages["A"] = []fakePage{{ids: []string{"c1"}}}
	src.pages["B"] = []fakePage{{ids: []string{"c2"}}}
	snaps := newMemSink()
	n := &recordingNotifier{}

	c := newTestCollector(t, src, snaps, n, storage.Category{ID: "A"}, storage.Category{ID: "B"})
	// Cancel once the first category's details have been fetched.
	c.fetcher.source = cancelAfterDetails{DetailSource: src, cancel: cancel}

	report, err := c.Run(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Run() error = %v, want context.Canceled", err)
	}
	if report.CategoriesProcessed != 1 {
		t.Errorf("CategoriesProcessed = %d, want 1", report.CategoriesProcessed)
	}
	if snaps.count() != 1 {
		t.Fatalf("snapshots = %d, want partial snapshot", snaps.count())
	}
	if got := recordIDs(latestDataset(t, snaps).Export()); got != "c1" {
		t.Errorf("persisted = %s, want c1", got)
	}
	if n.calls.Load() != 0 {
		t.Error("notifier called for an interrupted run")
	}
}

func TestNewRequiresCollaborators(t *testing.T) {
	if _, err := New(Options{Sink: newMemSink()}); err == nil {
		t.Error("New() without source returned nil error")
	}
	if _, err := New(Options{Source: newFakeSource()}); err == nil {
		t.Error("New() without sink returned nil error")
	}
}

type cancelAfterDetails struct {
	DetailSource
	cancel context.CancelFunc
}

func (c cancelAfterDetails) ChannelDetails(ctx context.Context, ids []string) ([]youtube.ChannelItem, error) {
	items, err := c.DetailSource.ChannelDetails(ctx, ids)
	c.cancel()
	return items, err
}
