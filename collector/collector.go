// Package collector runs one incremental collection pass: discover new
// channels per category, fetch their details, merge them into the dataset
// and publish the result as a new snapshot.
package collector

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"ytcollect/internal/metrics"
	"ytcollect/notify"
	"ytcollect/storage"
)

// DefaultQuotaCeiling covers the whole popular chart, which the API caps at
// 200 videos (4 pages of 50).
const DefaultQuotaCeiling = 4

// Source is the upstream the collector reads from.
type Source interface {
	PageSource
	DetailSource
}

// quotaReporter is implemented by sources that track their own spend.
type quotaReporter interface {
	QuotaUsed() int
}

// Options configures a Collector.
type Options struct {
	Categories []storage.Category
	// QuotaCeiling bounds discovery pages per category. Zero means
	// DefaultQuotaCeiling; a negative value disables discovery.
	QuotaCeiling int
	Source       Source
	Sink         storage.SnapshotSink
	// Notifier may be nil.
	Notifier notify.Notifier
	// SampleSize is how many new channels the summary carries.
	SampleSize int
	// Metrics may be nil.
	Metrics *metrics.Run
	Logger  zerolog.Logger
	// Now defaults to time.Now.
	Now func() time.Time
}

// Collector owns the state of a run. It is not safe for concurrent use.
type Collector struct {
	opts      Options
	paginator *Paginator
	fetcher   *DetailFetcher
}

// RunReport summarizes a run.
type RunReport struct {
	RunID               string
	CategoriesProcessed int
	FailedCategories    []string
	NewChannels         []storage.ChannelRecord
	TotalChannels       int
	SnapshotName        string
	QuotaUsed           int
	StartedAt           time.Time
	FinishedAt          time.Time
}

// NewChannelCount returns the number of channels the run added.
func (r *RunReport) NewChannelCount() int {
	return len(r.NewChannels)
}

// New creates a collector. Source and Sink are required.
func New(opts Options) (*Collector, error) {
	if opts.Source == nil {
		return nil, errors.New("collector: source required")
	}
	if opts.Sink == nil {
		return nil, errors.New("collector: snapshot sink required")
	}
	if opts.QuotaCeiling == 0 {
		opts.QuotaCeiling = DefaultQuotaCeiling
	}
	if opts.SampleSize <= 0 {
		opts.SampleSize = notify.MaxSample
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	fetcher := NewDetailFetcher(opts.Source, opts.Logger)
	fetcher.now = opts.Now

	return &Collector{
		opts:      opts,
		paginator: NewPaginator(opts.Source, opts.Logger),
		fetcher:   fetcher,
	}, nil
}

// Run performs one collection pass.
//
// Category failures are logged and counted, never returned. Run returns an
// error only when the snapshot cannot be written or ctx is canceled; in the
// latter case whatever was merged so far is still persisted.
func (c *Collector) Run(ctx context.Context) (*RunReport, error) {
	log := c.opts.Logger
	report := &RunReport{
		RunID:     uuid.NewString(),
		StartedAt: c.opts.Now().UTC(),
	}
	log = log.With().Str("run_id", report.RunID).Logger()

	dataset, err := storage.LoadDataset(ctx, c.opts.Sink)
	if err != nil {
		log.Warn().Err(err).Msg("could not load previous snapshot, starting from an empty dataset")
	}
	log.Info().
		Int("known_channels", dataset.Len()).
		Int("categories", len(c.opts.Categories)).
		Msg("run started")

	var runErr error
	for _, cat := range c.opts.Categories {
		if err := ctx.Err(); err != nil {
			runErr = err
			break
		}
		added := c.collectCategory(ctx, log, dataset, cat, report)
		report.NewChannels = append(report.NewChannels, added...)
	}

	report.FinishedAt = c.opts.Now().UTC()
	report.TotalChannels = dataset.Len()
	if q, ok := c.opts.Source.(quotaReporter); ok {
		report.QuotaUsed = q.QuotaUsed()
	}

	name, err := c.publish(context.WithoutCancel(ctx), report.RunID, report.FinishedAt, dataset)
	if err != nil {
		log.Error().Err(err).Msg("snapshot write failed")
		return report, errors.Join(runErr, err)
	}
	report.SnapshotName = name

	c.opts.Metrics.Finish(report.NewChannelCount(), report.TotalChannels, report.QuotaUsed, report.FinishedAt)

	if runErr != nil {
		log.Warn().Err(runErr).Str("snapshot", name).Msg("run interrupted, partial dataset saved")
		return report, runErr
	}

	c.notify(ctx, log, report)

	log.Info().
		Int("categories", report.CategoriesProcessed).
		Int("failed_categories", len(report.FailedCategories)).
		Int("new_channels", report.NewChannelCount()).
		Int("total_channels", report.TotalChannels).
		Int("quota_used", report.QuotaUsed).
		Str("snapshot", name).
		Dur("elapsed", report.FinishedAt.Sub(report.StartedAt)).
		Msg("run completed")
	return report, nil
}

// collectCategory runs discover, fetch and merge for one category and returns
// the records that were new to the dataset.
func (c *Collector) collectCategory(ctx context.Context, log zerolog.Logger, dataset *storage.Dataset, cat storage.Category, report *RunReport) []storage.ChannelRecord {
	log = log.With().Str("category_id", cat.ID).Str("category", cat.Name).Logger()
	report.CategoriesProcessed++

	ids, err := c.paginator.Discover(ctx, cat.ID, dataset.KnownIDs(), c.opts.QuotaCeiling)
	if err != nil {
		log.Error().Err(err).Msg("discovery failed, skipping category")
		report.FailedCategories = append(report.FailedCategories, cat.ID)
		c.opts.Metrics.CategoryDone(cat.ID, true)
		return nil
	}
	c.opts.Metrics.CategoryDone(cat.ID, false)

	if ids.Len() == 0 {
		log.Info().Msg("no new channels")
		return nil
	}

	records := c.fetcher.FetchDetails(ctx, ids.Sorted())

	var added []storage.ChannelRecord
	for _, rec := range records {
		if n, _ := dataset.Insert(rec); n == 1 {
			added = append(added, rec)
		}
	}

	log.Info().
		Int("discovered", ids.Len()).
		Int("fetched", len(records)).
		Int("new", len(added)).
		Msg("category done")
	return added
}

func (c *Collector) publish(ctx context.Context, runID string, at time.Time, dataset *storage.Dataset) (string, error) {
	data, err := storage.EncodeSnapshot(runID, at, dataset.Export())
	if err != nil {
		return "", err
	}
	name := storage.SnapshotName(at)
	if err := c.opts.Sink.Put(ctx, name, data); err != nil {
		return "", fmt.Errorf("write snapshot %s: %w", name, err)
	}
	return name, nil
}

func (c *Collector) notify(ctx context.Context, log zerolog.Logger, report *RunReport) {
	if c.opts.Notifier == nil {
		return
	}
	summary := notify.NewSummary(report.NewChannels, report.TotalChannels, c.opts.SampleSize, report.FinishedAt)
	if err := c.opts.Notifier.Notify(ctx, summary); err != nil {
		log.Warn().Err(err).Msg("notification failed")
	}
}
