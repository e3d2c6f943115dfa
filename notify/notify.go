// Package notify delivers the end-of-run summary. Delivery is best effort:
// the collector logs a failed notification and carries on.
package notify

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"ytcollect/storage"
)

// MaxSample caps how many new channels a summary carries.
const MaxSample = 10

// Summary describes one finished run.
type Summary struct {
	NewChannelCount   int                     `json:"new_channel_count"`
	TotalChannelCount int                     `json:"total_channel_count"`
	Sample            []storage.ChannelRecord `json:"sample"`
	Timestamp         time.Time               `json:"timestamp"`
}

// NewSummary builds a summary whose sample is the first n of newChannels,
// with n capped at MaxSample.
func NewSummary(newChannels []storage.ChannelRecord, total, n int, ts time.Time) Summary {
	if n <= 0 || n > MaxSample {
		n = MaxSample
	}
	n = min(n, len(newChannels))
	sample := make([]storage.ChannelRecord, n)
	copy(sample, newChannels[:n])

	return Summary{
		NewChannelCount:   len(newChannels),
		TotalChannelCount: total,
		Sample:            sample,
		Timestamp:         ts,
	}
}

// Notifier delivers a run summary.
type Notifier interface {
	Notify(ctx context.Context, s Summary) error
}

// LogNotifier writes the summary to the log. It never fails.
type LogNotifier struct {
	Logger zerolog.Logger
}

func (n LogNotifier) Notify(ctx context.Context, s Summary) error {
	ids := make([]string, len(s.Sample))
	for i, ch := range s.Sample {
		ids[i] = ch.ChannelID
	}
	n.Logger.Info().
		Int("new_channels", s.NewChannelCount).
		Int("total_channels", s.TotalChannelCount).
		Strs("sample", ids).
		Time("timestamp", s.Timestamp).
		Msg("run summary")
	return nil
}

// NamedError identifies which notifier failed.
type NamedError struct {
	Name string
	Err  error
}

func (e *NamedError) Error() string {
	return fmt.Sprintf("notify %s: %v", e.Name, e.Err)
}

func (e *NamedError) Unwrap() error {
	return e.Err
}

// Multi fans a summary out to several notifiers concurrently. Every notifier
// runs to completion; the errors of the ones that failed are joined.
type Multi struct {
	targets map[string]Notifier
	order   []string
}

// NewMulti creates an empty fan-out.
func NewMulti() *Multi {
	return &Multi{targets: make(map[string]Notifier)}
}

// Add registers n under name. A later Add with the same name replaces it.
func (m *Multi) Add(name string, n Notifier) {
	if _, ok := m.targets[name]; !ok {
		m.order = append(m.order, name)
	}
	m.targets[name] = n
}

// Len returns the number of registered notifiers.
func (m *Multi) Len() int {
	return len(m.order)
}

func (m *Multi) Notify(ctx context.Context, s Summary) error {
	errs := make([]error, len(m.order))

	var g errgroup.Group
	for i, name := range m.order {
		i, name := i, name
		n := m.targets[name]
		g.Go(func() error {
			if err := n.Notify(ctx, s); err != nil {
				errs[i] = &NamedError{Name: name, Err: err}
			}
			return nil
		})
	}
	g.Wait()

	return errors.Join(errs...)
}
