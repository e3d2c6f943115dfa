// Package youtube wraps the two YouTube Data API v3 endpoints the collector
// needs: the most-popular video chart per category and bulk channel lookup.
package youtube

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"

	ythttp "ytcollect/http"
	"ytcollect/internal/retry"
)

// MaxPageSize is the largest maxResults and id-list length the API accepts.
const MaxPageSize = 50

// DailyQuota is the default daily allowance of a Data API project.
const DailyQuota = 10000

// PopularPage is one page of the most-popular chart reduced to the owning
// channel of each video, in chart order. IDs may repeat.
type PopularPage struct {
	ChannelIDs    []string
	NextPageToken string
}

// ChannelItem is a channel as returned by channels.list. Counters the API
// omits are zero.
type ChannelItem struct {
	ID                    string
	Title                 string
	Description           string
	SubscriberCount       uint64
	ViewCount             uint64
	VideoCount            uint64
	HiddenSubscriberCount bool
}

// Client calls the Data API, waiting on a shared rate limiter before every
// attempt and retrying transient failures.
type Client struct {
	service     *youtube.Service
	region      string
	pageSize    int64
	timeout     time.Duration
	rateLimiter *ythttp.RateLimiter
	retryConfig retry.Config
	logger      zerolog.Logger

	mu        sync.Mutex
	quotaUsed int
}

type clientOptions struct {
	region      string
	endpoint    string
	httpClient  *http.Client
	pageSize    int64
	timeout     time.Duration
	rateLimiter *ythttp.RateLimiter
	retryConfig retry.Config
	logger      zerolog.Logger
}

// Option configures a Client.
type Option func(*clientOptions)

// WithRegion sets the regionCode used for the popular chart.
func WithRegion(region string) Option {
	return func(o *clientOptions) { o.region = region }
}

// WithEndpoint points the client at another base URL. Used by tests.
func WithEndpoint(endpoint string) Option {
	return func(o *clientOptions) { o.endpoint = endpoint }
}

// WithHTTPClient sets the underlying transport. The API key is still sent
// as a query parameter.
func WithHTTPClient(c *http.Client) Option {
	return func(o *clientOptions) { o.httpClient = c }
}

// WithRateLimiter sets the limiter every call waits on. Without it the client
// paces itself at ythttp.DefaultRateLimiterConfig's Data API rate.
func WithRateLimiter(rl *ythttp.RateLimiter) Option {
	return func(o *clientOptions) { o.rateLimiter = rl }
}

// WithRetryConfig overrides retry.DefaultConfig.
func WithRetryConfig(cfg retry.Config) Option {
	return func(o *clientOptions) { o.retryConfig = cfg }
}

// WithTimeout bounds each individual attempt.
func WithTimeout(d time.Duration) Option {
	return func(o *clientOptions) { o.timeout = d }
}

// WithLogger sets the logger for skipped items and quota usage.
func WithLogger(l zerolog.Logger) Option {
	return func(o *clientOptions) { o.logger = l }
}

// WithPageSize sets maxResults for the popular chart, capped at MaxPageSize.
func WithPageSize(n int) Option {
	return func(o *clientOptions) {
		if n > 0 && n <= MaxPageSize {
			o.pageSize = int64(n)
		}
	}
}

// NewClient creates a Data API client authenticated with apiKey.
func NewClient(ctx context.Context, apiKey string, opts ...Option) (*Client, error) {
	if apiKey == "" {
		return nil, ErrMissingAPIKey
	}

	o := clientOptions{
		region:      "JP",
		pageSize:    MaxPageSize,
		timeout:     30 * time.Second,
		retryConfig: retry.DefaultConfig(),
		logger:      zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.rateLimiter == nil {
		o.rateLimiter = ythttp.NewRateLimiter(ythttp.DefaultRateLimiterConfig())
	}

	svcOpts := []option.ClientOption{option.WithAPIKey(apiKey)}
	if o.endpoint != "" {
		svcOpts = append(svcOpts, option.WithEndpoint(o.endpoint))
	}
	if o.httpClient != nil {
		svcOpts = append(svcOpts, option.WithHTTPClient(&http.Client{
			Transport: &apiKeyTransport{key: apiKey, base: o.httpClient.Transport},
			Timeout:   o.httpClient.Timeout,
		}))
	}

	service, err := youtube.NewService(ctx, svcOpts...)
	if err != nil {
		return nil, fmt.Errorf("create youtube service: %w", err)
	}

	return &Client{
		service:     service,
		region:      o.region,
		pageSize:    o.pageSize,
		timeout:     o.timeout,
		rateLimiter: o.rateLimiter,
		retryConfig: o.retryConfig,
		logger:      o.logger,
	}, nil
}

// PopularVideos fetches one page of the most-popular chart for categoryID.
// An empty pageToken requests the first page.
func (c *Client) PopularVideos(ctx context.Context, categoryID, pageToken string) (*PopularPage, error) {
	var page *PopularPage

	err := c.call(ctx, func(ctx context.Context) error {
		call := c.service.Videos.List([]string{"snippet"}).
			Chart("mostPopular").
			RegionCode(c.region).
			VideoCategoryId(categoryID).
			MaxResults(c.pageSize).
			Fields("nextPageToken", "items(id,snippet/channelId)").
			Context(ctx)
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}

		resp, err := call.Do()
		if err != nil {
			return err
		}

		page = &PopularPage{NextPageToken: resp.NextPageToken}
		for _, item := range resp.Items {
			if item == nil || item.Snippet == nil || item.Snippet.ChannelId == "" {
				c.logger.Debug().Str("category_id", categoryID).Msg("skipping chart item without channel")
				continue
			}
			page.ChannelIDs = append(page.ChannelIDs, item.Snippet.ChannelId)
		}
		return nil
	})
	if err != nil {
		return nil, &APIError{Op: "videos.list", Err: err}
	}
	return page, nil
}

// ChannelDetails looks up snippet and statistics for up to MaxPageSize ids.
// Unknown IDs are simply absent from the result.
func (c *Client) ChannelDetails(ctx context.Context, ids []string) ([]ChannelItem, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	if len(ids) > MaxPageSize {
		return nil, &APIError{
			Op:  "channels.list",
			Err: fmt.Errorf("%d ids exceeds the %d id limit", len(ids), MaxPageSize),
		}
	}

	var items []ChannelItem

	err := c.call(ctx, func(ctx context.Context) error {
		resp, err := c.service.Channels.List([]string{"snippet", "statistics"}).
			Id(ids...).
			MaxResults(MaxPageSize).
			Context(ctx).
			Do()
		if err != nil {
			return err
		}

		items = make([]ChannelItem, 0, len(resp.Items))
		for _, ch := range resp.Items {
			if ch == nil {
				continue
			}
			item := ChannelItem{ID: ch.Id}
			if ch.Snippet != nil {
				item.Title = ch.Snippet.Title
				item.Description = ch.Snippet.Description
			}
			if st := ch.Statistics; st != nil {
				item.SubscriberCount = st.SubscriberCount
				item.ViewCount = st.ViewCount
				item.VideoCount = st.VideoCount
				item.HiddenSubscriberCount = st.HiddenSubscriberCount
			}
			items = append(items, item)
		}
		return nil
	})
	if err != nil {
		return nil, &APIError{Op: "channels.list", Err: err}
	}
	return items, nil
}

// call runs fn under the retry policy. Each attempt waits on the rate
// limiter, is bounded by the request timeout and costs one quota unit.
func (c *Client) call(ctx context.Context, fn func(context.Context) error) error {
	return retry.Do(ctx, c.retryConfig, retry.IsRetryable, func(ctx context.Context) error {
		if err := c.rateLimiter.Wait(ctx, ythttp.DataAPIBase); err != nil {
			return err
		}

		attemptCtx := ctx
		if c.timeout > 0 {
			var cancel context.CancelFunc
			attemptCtx, cancel = context.WithTimeout(ctx, c.timeout)
			defer cancel()
		}

		c.trackQuotaUsage(1)
		err := fn(attemptCtx)
		if err == nil {
			c.rateLimiter.RecordSuccess(ythttp.DataAPIBase)
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		err = classify(err)
		if errors.Is(err, ErrRateLimited) {
			c.rateLimiter.RecordRateLimitError(ythttp.DataAPIBase, 0)
		}
		return err
	})
}

// classify maps API failures onto sentinels and marks the ones that must
// not be retried.
func classify(err error) error {
	var gerr *googleapi.Error
	if !errors.As(err, &gerr) {
		// Transport failures and per-attempt timeouts.
		return err
	}

	for _, item := range gerr.Errors {
		switch item.Reason {
		case "quotaExceeded", "dailyLimitExceeded":
			return retry.Permanent(fmt.Errorf("%w: %w", ErrQuotaExceeded, err))
		case "rateLimitExceeded", "userRateLimitExceeded":
			return fmt.Errorf("%w: %w", ErrRateLimited, err)
		}
	}

	switch {
	case gerr.Code == http.StatusTooManyRequests:
		return fmt.Errorf("%w: %w", ErrRateLimited, err)
	case gerr.Code >= 500:
		return err
	default:
		return retry.Permanent(err)
	}
}

// trackQuotaUsage records units spent by this client.
func (c *Client) trackQuotaUsage(units int) {
	c.mu.Lock()
	c.quotaUsed += units
	used := c.quotaUsed
	c.mu.Unlock()

	if used >= DailyQuota {
		c.logger.Warn().Int("quota_used", used).Msg("estimated daily quota exhausted")
	}
}

// QuotaUsed returns the estimated quota units spent so far.
func (c *Client) QuotaUsed() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.quotaUsed
}

// apiKeyTransport adds the key parameter when a caller-supplied HTTP client
// replaces the SDK's own authenticated transport.
type apiKeyTransport struct {
	key  string
	base http.RoundTripper
}

func (t *apiKeyTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	base := t.base
	if base == nil {
		base = http.DefaultTransport
	}
	r := req.Clone(req.Context())
	q := r.URL.Query()
	q.Set("key", t.key)
	r.URL.RawQuery = q.Encode()
	return base.RoundTrip(r)
}
