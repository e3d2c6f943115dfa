package ytcollect

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"ytcollect/collector"
	"ytcollect/config"
	ythttp "ytcollect/http"
	"ytcollect/internal/metrics"
	"ytcollect/internal/sink"
	"ytcollect/notify"
	"ytcollect/storage"
	"ytcollect/youtube"
)

// App holds the long-lived collaborators of a collection run, built from a
// validated configuration.
type App struct {
	Config     *config.Config
	Logger     zerolog.Logger
	Categories []storage.Category
	HTTP       *ythttp.Client
	Source     *youtube.Client
	Sink       storage.SnapshotSink
	Notifier   *notify.Multi
	Metrics    *metrics.Run
}

// NewApp wires the Data API client, snapshot sink and notifiers described by
// cfg. A Telegram bot that cannot be reached is logged and left out; every
// other failure is returned. opts are applied to the Data API client after
// the configured ones.
func NewApp(ctx context.Context, cfg *config.Config, logger zerolog.Logger, opts ...youtube.Option) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	cats, err := config.LoadCategories(cfg.CategoriesPath)
	if err != nil {
		return nil, err
	}

	httpCfg := ythttp.DefaultConfig()
	httpCfg.Timeout = time.Duration(cfg.RequestTimeout)
	httpCfg.Retry = cfg.RetryConfig()
	httpCfg.RateLimiter.DataAPIRPS = ythttp.PacingRPS(time.Duration(cfg.PacingInterval))
	client := ythttp.New(httpCfg)

	ytOpts := append([]youtube.Option{
		youtube.WithRegion(cfg.RegionCode),
		youtube.WithHTTPClient(client.StandardClient()),
		youtube.WithRateLimiter(client.RateLimiter()),
		youtube.WithRetryConfig(cfg.RetryConfig()),
		youtube.WithTimeout(time.Duration(cfg.RequestTimeout)),
		youtube.WithLogger(logger),
	}, opts...)
	source, err := youtube.NewClient(ctx, cfg.APIKey, ytOpts...)
	if err != nil {
		client.Close()
		return nil, err
	}

	snapshots, err := sink.Open(ctx, cfg.SinkConfig())
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("open %s snapshot sink: %w", cfg.SnapshotBackend, err)
	}

	notifier := notify.NewMulti()
	notifier.Add("log", notify.LogNotifier{Logger: logger})
	if cfg.WebhookURL != "" {
		notifier.Add("webhook", notify.NewWebhookNotifier(cfg.WebhookURL, client))
	}
	if cfg.TelegramToken != "" {
		tg, err := notify.NewTelegramNotifier(cfg.TelegramToken, cfg.TelegramChatID, notify.WithTelegramClient(client))
		if err != nil {
			logger.Warn().Err(err).Msg("telegram notifier disabled")
		} else {
			notifier.Add("telegram", tg)
		}
	}

	return &App{
		Config:     cfg,
		Logger:     logger,
		Categories: cats,
		HTTP:       client,
		Source:     source,
		Sink:       snapshots,
		Notifier:   notifier,
		Metrics:    metrics.NewRun(),
	}, nil
}

// Collector returns a collector over the app's collaborators.
func (a *App) Collector() (*collector.Collector, error) {
	return collector.New(collector.Options{
		Categories:   a.Categories,
		QuotaCeiling: a.Config.QuotaCeiling,
		Source:       a.Source,
		Sink:         a.Sink,
		Notifier:     a.Notifier,
		SampleSize:   a.Config.NotifySampleSize,
		Metrics:      a.Metrics,
		Logger:       a.Logger,
	})
}

// Run performs one collection pass and, when configured, writes the metrics
// textfile. A metrics write failure is logged only.
func (a *App) Run(ctx context.Context) (*collector.RunReport, error) {
	c, err := a.Collector()
	if err != nil {
		return nil, err
	}

	report, err := c.Run(ctx)

	if path := a.Config.MetricsTextfile; path != "" {
		if werr := a.Metrics.WriteTextfile(path); werr != nil {
			a.Logger.Warn().Err(werr).Str("path", path).Msg("metrics textfile not written")
		}
	}
	return report, err
}

// Close releases the sink and idle HTTP connections.
func (a *App) Close() error {
	return errors.Join(a.Sink.Close(), a.HTTP.Close())
}
