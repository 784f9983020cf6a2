package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"fluxqueue/internal/queue"
)

func newShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <job-id>",
		Short: "Show one job in detail",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, _, err := ctx.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			job, err := store.GetByID(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if job == nil {
				return fmt.Errorf("job %s not found", args[0])
			}

			rows := [][]string{
				{"id", job.ID},
				{"status", colorizeStatus(string(job.Status))},
				{"prompt", job.Prompt},
				{"steps", fmt.Sprintf("%d", job.Steps)},
				{"guidance scale", fmt.Sprintf("%g", job.GuidanceScale)},
				{"size", fmt.Sprintf("%dx%d", job.Width, job.Height)},
				{"autotune", fmt.Sprintf("%t", job.Autotune)},
				{"filename", job.Filename},
			}
			if job.CustomFilename != "" {
				rows = append(rows, []string{"custom filename", job.CustomFilename})
			}
			rows = append(rows, []string{"output dir", job.OutputDir})
			if job.IsImageToImage() {
				rows = append(rows,
					[]string{"init image", job.InitImage},
					[]string{"strength", fmt.Sprintf("%g", job.Strength)},
				)
			}
			rows = append(rows, []string{"created", formatTime(&job.CreatedAt)})
			rows = append(rows, []string{"started", formatTime(job.StartTime)})
			rows = append(rows, []string{"finished", formatTime(job.EndTime)})
			if d := job.Duration(); d > 0 {
				rows = append(rows, []string{"duration", d.Round(time.Second).String()})
			}
			if job.Status == queue.StatusFailed && job.ErrorMessage != "" {
				rows = append(rows, []string{"error", job.ErrorMessage})
			}

			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"Field", "Value"},
				rows,
				[]columnAlignment{alignLeft, alignLeft},
			))
			return nil
		},
	}
}

func formatTime(t *time.Time) string {
	if t == nil || t.IsZero() {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04:05")
}
