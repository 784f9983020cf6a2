package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"fluxqueue/internal/artifacts"
	"fluxqueue/internal/dispatch"
	"fluxqueue/internal/queue"
)

func newQueueCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "queue",
		Short: "Inspect and maintain the job queue",
	}
	cmd.AddCommand(newQueueStatusCommand(ctx))
	cmd.AddCommand(newQueueListCommand(ctx))
	cmd.AddCommand(newQueueClearCommand(ctx))
	cmd.AddCommand(newQueueRetryCommand(ctx))
	cmd.AddCommand(newQueueCleanupCommand(ctx))
	cmd.AddCommand(newQueueArchiveCommand(ctx))
	return cmd
}

func newQueueStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show queue counts and lifetime metrics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, _, err := ctx.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			stats, err := store.Stats(cmd.Context())
			if err != nil {
				return err
			}
			metrics, err := store.Metrics(cmd.Context())
			if err != nil {
				return err
			}

			rows := make([][]string, 0, len(queue.AllStatuses()))
			for _, status := range queue.AllStatuses() {
				rows = append(rows, []string{
					colorizeStatus(string(status)),
					fmt.Sprintf("%d", stats[status]),
				})
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, renderTable(
				[]string{"Status", "Jobs"},
				rows,
				[]columnAlignment{alignLeft, alignRight},
			))

			fmt.Fprintf(out, "total: %d  completed: %d  failed: %d\n",
				metrics.TotalJobs, metrics.CompletedJobs, metrics.FailedJobs)
			if metrics.AverageDuration > 0 {
				fmt.Fprintf(out, "average generation time: %s\n", metrics.AverageDuration.Round(time.Second))
			}
			if metrics.MostRecentStart != nil {
				fmt.Fprintf(out, "last job started: %s\n", metrics.MostRecentStart.Local().Format("2006-01-02 15:04:05"))
			}
			return nil
		},
	}
}

func newQueueListCommand(ctx *commandContext) *cobra.Command {
	var (
		limit      int
		statusFlag string
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recent jobs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var filter queue.Status
			if strings.TrimSpace(statusFlag) != "" {
				parsed, ok := queue.ParseStatus(statusFlag)
				if !ok {
					return fmt.Errorf("unknown status %q (expected one of: %s)", statusFlag, statusNames())
				}
				filter = parsed
			}

			store, _, err := ctx.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			jobs, err := store.ListRecent(cmd.Context(), limit, filter)
			if err != nil {
				return err
			}
			if len(jobs) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "no jobs")
				return nil
			}

			rows := make([][]string, 0, len(jobs))
			for _, job := range jobs {
				rows = append(rows, []string{
					job.ID,
					colorizeStatus(string(job.Status)),
					truncate(job.Prompt, 48),
					job.CreatedAt.Local().Format("2006-01-02 15:04"),
					formatDuration(job),
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"Job", "Status", "Prompt", "Created", "Duration"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignRight},
			))
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum number of jobs to list")
	cmd.Flags().StringVar(&statusFlag, "status", "", "Only list jobs with this status")
	return cmd
}

func newQueueClearCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove all waiting jobs from the queue",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, _, err := ctx.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			count, err := store.DeleteQueued(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "removed %d queued job(s)\n", count)
			return nil
		},
	}
}

func newQueueRetryCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "retry <job-id>",
		Short: "Requeue a failed job as a new job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, cfg, err := ctx.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			dispatcher := dispatch.New(store, cfg, ctx.cliLogger())
			receipt, err := dispatcher.Retry(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "requeued %s as new job %s\n", args[0], receipt.JobID)
			return nil
		},
	}
}

func newQueueCleanupCommand(ctx *commandContext) *cobra.Command {
	var days int

	cmd := &cobra.Command{
		Use:   "cleanup",
		Short: "Delete finished jobs and their files past a retention window",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, cfg, err := ctx.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			manager := artifacts.NewManager(store, cfg, ctx.cliLogger())
			removed, err := manager.CleanupOlderThan(cmd.Context(), time.Duration(days)*24*time.Hour)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "removed %d job(s) older than %d day(s)\n", len(removed), days)
			return nil
		},
	}

	cmd.Flags().IntVar(&days, "older-than", 30, "Retention window in days")
	return cmd
}

func newQueueArchiveCommand(ctx *commandContext) *cobra.Command {
	var days int

	cmd := &cobra.Command{
		Use:   "archive",
		Short: "Move old completed artifacts into date-keyed archive folders",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, cfg, err := ctx.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			manager := artifacts.NewManager(store, cfg, ctx.cliLogger())
			moved, err := manager.ArchiveOlderThan(cmd.Context(), time.Duration(days)*24*time.Hour)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "archived %d artifact(s) older than %d day(s)\n", moved, days)
			return nil
		},
	}

	cmd.Flags().IntVar(&days, "older-than", 7, "Age threshold in days")
	return cmd
}

func statusNames() string {
	names := make([]string, 0, len(queue.AllStatuses()))
	for _, status := range queue.AllStatuses() {
		names = append(names, string(status))
	}
	return strings.Join(names, ", ")
}

func truncate(value string, limit int) string {
	if len(value) <= limit {
		return value
	}
	if limit <= 3 {
		return value[:limit]
	}
	return value[:limit-3] + "..."
}

func formatDuration(job *queue.Job) string {
	d := job.Duration()
	if d <= 0 {
		return ""
	}
	return d.Round(time.Second).String()
}
