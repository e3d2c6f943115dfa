package collector

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"ytcollect/storage"
	"ytcollect/youtube"
)

// PageSource serves one page of a category's popular chart.
// *youtube.Client implements it.
type PageSource interface {
	PopularVideos(ctx context.Context, categoryID, pageToken string) (*youtube.PopularPage, error)
}

// DiscoveryError reports the page on which a category's discovery failed.
type DiscoveryError struct {
	CategoryID string
	// Page is the 1-based page number that failed.
	Page int
	Err  error
}

func (e *DiscoveryError) Error() string {
	return fmt.Sprintf("discover category %s: page %d: %v", e.CategoryID, e.Page, e.Err)
}

func (e *DiscoveryError) Unwrap() error {
	return e.Err
}

// Paginator walks a category's popular chart under a quota ceiling.
type Paginator struct {
	source PageSource
	logger zerolog.Logger
}

// NewPaginator creates a paginator over source.
func NewPaginator(source PageSource, logger zerolog.Logger) *Paginator {
	return &Paginator{source: source, logger: logger}
}

// Discover returns the channel IDs in categoryID's chart that are not in
// known. Every page request costs one unit and at most quotaCeiling pages
// are requested. known is only read.
//
// Any page failure discards what earlier pages produced: the result is an
// empty set and a *DiscoveryError.
func (p *Paginator) Discover(ctx context.Context, categoryID string, known storage.IDSet, quotaCeiling int) (storage.IDSet, error) {
	found := storage.NewIDSet()
	used := 0
	pageToken := ""

	for used < quotaCeiling {
		page, err := p.source.PopularVideos(ctx, categoryID, pageToken)
		used++
		if err != nil {
			return storage.NewIDSet(), &DiscoveryError{CategoryID: categoryID, Page: used, Err: err}
		}
		if page == nil {
			page = &youtube.PopularPage{}
		}

		for _, id := range page.ChannelIDs {
			if id == "" || known.Has(id) {
				continue
			}
			found.Add(id)
		}

		p.logger.Debug().
			Str("category_id", categoryID).
			Int("page", used).
			Int("items", len(page.ChannelIDs)).
			Int("new_so_far", found.Len()).
			Msg("discovery page")

		pageToken = page.NextPageToken
		if pageToken == "" {
			break
		}
	}

	if pageToken != "" {
		p.logger.Info().
			Str("category_id", categoryID).
			Int("quota_ceiling", quotaCeiling).
			Msg("quota ceiling reached with pages remaining")
	}

	return found, nil
}
