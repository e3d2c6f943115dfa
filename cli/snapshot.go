package main

import (
	"errors"
	"fmt"
	"sort"
	"text/tabwriter"
	"unicode/utf8"

	"github.com/spf13/cobra"

	"ytcollect/config"
	"ytcollect/internal/sink"
	"ytcollect/storage"
)

// NewSnapshotCmd creates the snapshot command.
func NewSnapshotCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Show the latest snapshot",
		Long: `Snapshot prints the name and size of the newest snapshot in the configured
backend followed by its largest channels by subscriber count.`,
		Args: cobra.NoArgs,
		RunE: runSnapshotCmd,
	}
	cmd.Flags().IntP("top", "n", 10, "Number of channels to list")
	return cmd
}

func runSnapshotCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Read()
	if err != nil {
		return err
	}
	applyFlags(cmd, cfg)
	top, _ := cmd.Flags().GetInt("top")

	s, err := sink.Open(cmd.Context(), cfg.SinkConfig())
	if err != nil {
		return err
	}
	defer s.Close()

	name, data, err := s.Latest(cmd.Context())
	if errors.Is(err, storage.ErrNotFound) {
		fmt.Fprintln(cmd.OutOrStdout(), "No snapshots yet.")
		return nil
	}
	if err != nil {
		return err
	}
	snap, err := storage.DecodeSnapshot(data)
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Snapshot: %s\nTaken:    %s\nChannels: %d\n\n",
		name, snap.TakenAt.Format("2006-01-02 15:04:05 MST"), len(snap.Channels))

	channels := topBySubscribers(snap.Channels, top)
	if len(channels) == 0 {
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "CHANNEL ID\tTITLE\tSUBSCRIBERS\tVIDEOS\tEMAIL")
	for _, ch := range channels {
		fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%s\n",
			ch.ChannelID,
			truncate(ch.Title, 40),
			ch.SubscriberCount,
			ch.VideoCount,
			ch.Email,
		)
	}
	return w.Flush()
}

// topBySubscribers returns up to n records, largest first. Ties keep
// channel ID order.
func topBySubscribers(records []storage.ChannelRecord, n int) []storage.ChannelRecord {
	out := append([]storage.ChannelRecord(nil), records...)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].SubscriberCount != out[j].SubscriberCount {
			return out[i].SubscriberCount > out[j].SubscriberCount
		}
		return out[i].ChannelID < out[j].ChannelID
	})
	if n >= 0 && len(out) > n {
		out = out[:n]
	}
	return out
}

func truncate(s string, maxLen int) string {
	if utf8.RuneCountInString(s) <= maxLen {
		return s
	}
	r := []rune(s)
	return string(r[:maxLen-3]) + "..."
}
