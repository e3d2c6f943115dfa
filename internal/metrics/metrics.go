// Package metrics records one collection run in a private Prometheus registry
// that can be written out for the node exporter's textfile collector.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Run holds the metrics of a single run. A nil *Run ignores every call.
type Run struct {
	registry *prometheus.Registry

	Categories       prometheus.Counter
	CategoryFailures *prometheus.CounterVec
	NewChannels      prometheus.Counter
	DatasetChannels  prometheus.Gauge
	QuotaUnitsUsed   prometheus.Gauge
	LastRun          prometheus.Gauge
}

// NewRun creates and registers the run metrics.
func NewRun() *Run {
	r := &Run{registry: prometheus.NewRegistry()}

	r.Categories = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "ytcollect_categories_total",
		Help: "Categories processed in the run.",
	})
	r.CategoryFailures = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ytcollect_category_failures_total",
		Help: "Categories whose discovery failed.",
	}, []string{"category"})
	r.NewChannels = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "ytcollect_new_channels_total",
		Help: "Channels added to the dataset by the run.",
	})
	r.DatasetChannels = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "ytcollect_dataset_channels",
		Help: "Channels in the dataset after the run.",
	})
	r.QuotaUnitsUsed = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "ytcollect_quota_units_used",
		Help: "Estimated Data API quota units spent by the run.",
	})
	r.LastRun = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "ytcollect_last_run_timestamp_seconds",
		Help: "Unix time the run finished.",
	})

	r.registry.MustRegister(
		r.Categories,
		r.CategoryFailures,
		r.NewChannels,
		r.DatasetChannels,
		r.QuotaUnitsUsed,
		r.LastRun,
	)
	return r
}

// CategoryDone counts a processed category and, when failed, its failure.
func (r *Run) CategoryDone(categoryID string, failed bool) {
	if r == nil {
		return
	}
	r.Categories.Inc()
	if failed {
		r.CategoryFailures.WithLabelValues(categoryID).Inc()
	}
}

// Finish records the totals of a completed run.
func (r *Run) Finish(newChannels, datasetSize, quotaUsed int, at time.Time) {
	if r == nil {
		return
	}
	r.NewChannels.Add(float64(newChannels))
	r.DatasetChannels.Set(float64(datasetSize))
	r.QuotaUnitsUsed.Set(float64(quotaUsed))
	r.LastRun.Set(float64(at.Unix()))
}

// Registry exposes the underlying registry.
func (r *Run) Registry() *prometheus.Registry {
	return r.registry
}

// WriteTextfile atomically writes the metrics in text exposition format.
func (r *Run) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}
