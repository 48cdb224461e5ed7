package main

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/iconidentify/makanmap/internal/app"
	"github.com/iconidentify/makanmap/internal/domain"
	"github.com/iconidentify/makanmap/internal/service"
)

func newSyncCommand(ctx *commandContext) *cobra.Command {
	var opts service.SyncOptions

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Run one sync over every configured channel",
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.MaxVideos < 0 {
				return errors.New("--max-videos cannot be negative")
			}
			return ctx.withApp(cmd, func(a *app.App) error {
				run, err := a.Sync.Run(cmd.Context(), opts)
				if errors.Is(err, domain.ErrNoChannels) {
					fmt.Fprintln(cmd.OutOrStdout(), "No channels configured; add one with `makanmap channels add`")
					return nil
				}
				if err != nil {
					return err
				}
				writeRun(cmd.OutOrStdout(), run, run.Progress())
				if run.Status == domain.SyncStatusFailed {
					return fmt.Errorf("sync %s failed", run.ID)
				}
				return nil
			})
		},
	}

	cmd.Flags().IntVar(&opts.MaxVideos, "max-videos", 0, "Videos to scan per channel (0 uses the configured default)")
	cmd.Flags().BoolVar(&opts.UseAPI, "use-api", false, "Skip yt-dlp and list videos through the Data API")
	return cmd
}

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the most recent sync run",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withApp(cmd, func(a *app.App) error {
				report, err := a.Sync.Status(cmd.Context())
				if errors.Is(err, domain.ErrRunNotFound) {
					fmt.Fprintln(cmd.OutOrStdout(), "No sync has run yet")
					return nil
				}
				if err != nil {
					return err
				}
				writeRun(cmd.OutOrStdout(), report.SyncRun, report.Progress)
				return nil
			})
		},
	}
}

func writeRun(w io.Writer, run *domain.SyncRun, progress int) {
	rows := [][]string{
		{"Run", run.ID.String()},
		{"Status", string(run.Status)},
		{"Progress", fmt.Sprintf("%d%%", progress)},
		{"Channels", fmt.Sprintf("%d/%d", run.CurrentChannel, run.TotalChannels)},
		{"Videos", fmt.Sprintf("%d/%d", run.ProcessedVideos, run.TotalVideos)},
		{"Skipped", strconv.Itoa(run.SkippedVideos)},
		{"Added", strconv.Itoa(run.Added)},
		{"Updated", strconv.Itoa(run.Updated)},
		{"Started", run.StartedAt.Local().Format(time.DateTime)},
	}
	if run.CurrentChannelName != "" && run.Status == domain.SyncStatusRunning {
		rows = append(rows, []string{"Current", run.CurrentChannelName})
	}
	if run.Method != "" {
		rows = append(rows, []string{"Method", run.Method})
	}
	if run.CompletedAt != nil {
		rows = append(rows, []string{"Duration", run.CompletedAt.Sub(run.StartedAt).Round(time.Second).String()})
	}
	fmt.Fprint(w, renderTable([]string{"Field", "Value"}, rows, []columnAlignment{alignLeft, alignLeft}))

	if len(run.Errors) > 0 {
		fmt.Fprintf(w, "\n%d error(s):\n", len(run.Errors))
		for _, e := range run.Errors {
			fmt.Fprintf(w, "  - %s\n", e)
		}
	}
}
