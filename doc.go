// Package ytcollect collects YouTube channels from the most-popular charts.
//
// A run walks every configured video category. For each one it pages through
// the chart for the configured region, spending at most a fixed number of
// quota units, and keeps the channel IDs it has not seen before. Their
// details are fetched in batches of 50 and merged into the dataset, which is
// then written as a new immutable snapshot and summarized to the configured
// notifiers.
//
// Quick Start
//
//	cfg, err := config.Load()
//	if err != nil {
//		log.Fatal(err)
//	}
//	app, err := ytcollect.NewApp(ctx, cfg, zerolog.Nop())
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer app.Close()
//
//	report, err := app.Run(ctx)
//	if err != nil {
//		log.Fatal(err)
//	}
//	fmt.Printf("%d new channels, %d total\n", report.NewChannelCount(), report.TotalChannels)
//
// Configuration
//
// Settings are resolved in this order:
//
//  1. Environment variables (highest priority)
//  2. Config file (ytcollect.json or $XDG_CONFIG_HOME/ytcollect/ytcollect.json)
//  3. Default values (lowest priority)
//
// A .env file in the working directory is merged into the environment first.
// YOUTUBE_API_KEY is required; everything else has a default:
//
//   - YTCOLLECT_REGION: Chart region (JP)
//   - YTCOLLECT_CATEGORIES: Category list (config/category_ids.json)
//   - YTCOLLECT_QUOTA_CEILING: Discovery pages per category (4)
//   - YTCOLLECT_PACING_INTERVAL: Minimum gap between API requests (1s)
//   - YTCOLLECT_SNAPSHOT_BACKEND: file, sqlite, postgres, mongo or redis
//   - YTCOLLECT_WEBHOOK_URL, YTCOLLECT_TELEGRAM_TOKEN: Optional notifiers
//
// Error Handling
//
// Failures of a single category, detail batch or notifier are logged and
// never end a run. Run returns an error only when the snapshot cannot be
// written or the context is canceled.
//
//	if errors.Is(err, ytcollect.ErrMissingCredential) {
//		fmt.Println("set YOUTUBE_API_KEY")
//	}
//
// Advanced Usage
//
// The sub-packages can be used directly:
//
//   - collector: Paginator, DetailFetcher and the run orchestrator
//   - youtube: Data API client with pacing, retries and quota accounting
//   - storage: Dataset, snapshot codec and the SnapshotSink contract
//   - notify: Summary and the log, webhook and Telegram notifiers
//   - config: Configuration and category list loading
package ytcollect
