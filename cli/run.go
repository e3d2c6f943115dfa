package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"ytcollect"
	"ytcollect/collector"
	"ytcollect/config"
)

// NewRunCmd creates the run command.
func NewRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run one collection pass",
		Long: `Run walks every configured category, adds the channels it has not seen
before to the dataset and writes a new snapshot.

Failures of single categories, detail batches or notifiers are logged and do
not change the exit status. A missing YOUTUBE_API_KEY or an unwritable
snapshot does.

Examples:
  # Collect with the defaults
  ytcollect run

  # Spend at most two chart pages per category and print JSON
  ytcollect run --quota-ceiling 2 --json`,
		Args: cobra.NoArgs,
		RunE: runRunCmd,
	}

	cmd.Flags().Int("quota-ceiling", 0, "Discovery pages per category (default from config)")
	cmd.Flags().String("region", "", "Chart region code (default from config)")
	cmd.Flags().BoolP("json", "j", false, "Print the run report as JSON")

	return cmd
}

func runRunCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Read()
	if err != nil {
		return err
	}
	applyFlags(cmd, cfg)
	if n, _ := cmd.Flags().GetInt("quota-ceiling"); cmd.Flags().Changed("quota-ceiling") {
		cfg.QuotaCeiling = n
	}
	if v, _ := cmd.Flags().GetString("region"); v != "" {
		cfg.RegionCode = v
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger := newLogger(cmd, cfg)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := ytcollect.NewApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer app.Close()

	report, err := app.Run(ctx)
	if report != nil {
		asJSON, _ := cmd.Flags().GetBool("json")
		if perr := printReport(cmd.OutOrStdout(), report, asJSON); perr != nil && err == nil {
			err = perr
		}
	}
	return err
}

type reportView struct {
	RunID               string    `json:"run_id"`
	CategoriesProcessed int       `json:"categories_processed"`
	FailedCategories    []string  `json:"failed_categories"`
	NewChannels         int       `json:"new_channels"`
	TotalChannels       int       `json:"total_channels"`
	QuotaUsed           int       `json:"quota_used"`
	Snapshot            string    `json:"snapshot"`
	StartedAt           time.Time `json:"started_at"`
	FinishedAt          time.Time `json:"finished_at"`
}

func printReport(w io.Writer, r *collector.RunReport, asJSON bool) error {
	view := reportView{
		RunID:               r.RunID,
		CategoriesProcessed: r.CategoriesProcessed,
		FailedCategories:    r.FailedCategories,
		NewChannels:         r.NewChannelCount(),
		TotalChannels:       r.TotalChannels,
		QuotaUsed:           r.QuotaUsed,
		Snapshot:            r.SnapshotName,
		StartedAt:           r.StartedAt,
		FinishedAt:          r.FinishedAt,
	}
	if view.FailedCategories == nil {
		view.FailedCategories = []string{}
	}

	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(view)
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Run:\t%s\n", view.RunID)
	fmt.Fprintf(tw, "Categories:\t%d\n", view.CategoriesProcessed)
	if len(view.FailedCategories) > 0 {
		fmt.Fprintf(tw, "Failed:\t%s\n", strings.Join(view.FailedCategories, ", "))
	}
	fmt.Fprintf(tw, "New channels:\t%d\n", view.NewChannels)
	fmt.Fprintf(tw, "Total channels:\t%d\n", view.TotalChannels)
	fmt.Fprintf(tw, "Quota used:\t%d\n", view.QuotaUsed)
	fmt.Fprintf(tw, "Snapshot:\t%s\n", view.Snapshot)
	fmt.Fprintf(tw, "Elapsed:\t%s\n", view.FinishedAt.Sub(view.StartedAt).Round(time.Millisecond))
	return tw.Flush()
}
