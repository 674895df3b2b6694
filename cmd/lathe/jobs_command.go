package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"lathe/internal/deps"
	"lathe/internal/textutil"
)

func newJobsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "jobs",
		Short: "List known jobs",
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := ctx.client().List()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(resp.Jobs) == 0 {
				fmt.Fprintln(out, "No jobs")
				return nil
			}

			rows := make([][]string, 0, len(resp.Jobs))
			for _, job := range resp.Jobs {
				rows = append(rows, []string{
					job.ID,
					textutil.Label(job.Mode),
					textutil.Label(job.Status),
					formatProgress(job.Progress),
					job.Stage,
					job.UpdatedAt.Local().Format(time.DateTime),
				})
			}
			headers := []string{"ID", "Mode", "Status", "Progress", "Stage", "Updated"}

			if isatty.IsTerminal(os.Stdout.Fd()) {
				aligns := []columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignLeft, alignLeft}
				fmt.Fprintln(out, renderTable(headers, rows, aligns))
				return nil
			}
			for _, row := range rows {
				fmt.Fprintln(out, strings.Join(row, "\t"))
			}
			return nil
		},
	}
}

func newHealthCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Show daemon health and tool availability",
		RunE: func(cmd *cobra.Command, args []string) error {
			health, err := ctx.client().Health()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Daemon:    %s\n", health.Status)
			fmt.Fprintf(out, "Jobs:      %d total, %d pending, %d processing, %d completed, %d failed\n",
				health.Queue.Total, health.Queue.Pending, health.Queue.Processing,
				health.Queue.Completed, health.Queue.Failed)
			for _, dep := range health.Dependencies {
				fmt.Fprintf(out, "%-10s %s\n", dep.Name+":", describeDependency(dep))
			}
			return nil
		},
	}
}

func describeDependency(dep deps.Status) string {
	if dep.Available {
		return "available (" + dep.Command + ")"
	}
	if dep.Detail != "" {
		return "missing: " + dep.Detail
	}
	return "missing"
}
