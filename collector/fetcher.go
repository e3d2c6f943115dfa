package collector

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"ytcollect/storage"
	"ytcollect/youtube"
)

// BatchSize is the channels.list id limit.
const BatchSize = youtube.MaxPageSize

// DetailSource looks up channel details for at most BatchSize IDs.
// *youtube.Client implements it.
type DetailSource interface {
	ChannelDetails(ctx context.Context, ids []string) ([]youtube.ChannelItem, error)
}

// BatchError reports a failed detail batch and the IDs it covered.
type BatchError struct {
	// Batch is the 1-based batch index.
	Batch int
	First string
	Last  string
	Err   error
}

func (e *BatchError) Error() string {
	return fmt.Sprintf("detail batch %d [%s..%s]: %v", e.Batch, e.First, e.Last, e.Err)
}

func (e *BatchError) Unwrap() error {
	return e.Err
}

// DetailFetcher turns channel IDs into ChannelRecords in batches.
type DetailFetcher struct {
	source DetailSource
	logger zerolog.Logger
	now    func() time.Time
}

// NewDetailFetcher creates a fetcher over source.
func NewDetailFetcher(source DetailSource, logger zerolog.Logger) *DetailFetcher {
	return &DetailFetcher{source: source, logger: logger, now: time.Now}
}

// FetchDetails looks up ids in batches of BatchSize. A failed batch is logged
// and contributes nothing; the remaining batches are still attempted. The
// result may therefore be shorter than ids.
func (f *DetailFetcher) FetchDetails(ctx context.Context, ids []string) []storage.ChannelRecord {
	var records []storage.ChannelRecord

	for start, batch := 0, 1; start < len(ids); start, batch = start+BatchSize, batch+1 {
		end := min(start+BatchSize, len(ids))
		chunk := ids[start:end]

		items, err := f.source.ChannelDetails(ctx, chunk)
		if err != nil {
			berr := &BatchError{Batch: batch, First: chunk[0], Last: chunk[len(chunk)-1], Err: err}
			f.logger.Error().Err(berr).
				Int("batch", batch).
				Int("size", len(chunk)).
				Msg("detail batch failed, skipping")
			continue
		}

		fetchedAt := f.now().UTC()
		for _, item := range items {
			if item.ID == "" {
				f.logger.Warn().Int("batch", batch).Msg("detail item without channel id, dropping")
				continue
			}
			records = append(records, toRecord(item, fetchedAt))
		}
	}

	return records
}

func toRecord(item youtube.ChannelItem, fetchedAt time.Time) storage.ChannelRecord {
	return storage.ChannelRecord{
		ChannelID:       item.ID,
		Title:           item.Title,
		Description:     item.Description,
		Email:           ExtractEmail(item.Description),
		SubscriberCount: item.SubscriberCount,
		ViewCount:       item.ViewCount,
		VideoCount:      item.VideoCount,
		FetchedAt:       fetchedAt,
	}
}
