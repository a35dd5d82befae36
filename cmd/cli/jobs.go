package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/reelforge/hookrelay/internal/core"
	"github.com/reelforge/hookrelay/internal/wire"
)

var jobsLimit int

var jobsCmd = &cobra.Command{
	Use:   "jobs",
	Short: "Shows recently updated render jobs",
	RunE: func(_ *cobra.Command, _ []string) error {
		ctx := context.Background()

		app, cleanup, err := wire.InitializeApp(ctx)
		if err != nil {
			return fmt.Errorf("failed to initialize app services: %w", err)
		}
		defer cleanup()

		jobs, err := app.Store.ListRenderJobs(ctx, jobsLimit)
		if err != nil {
			return fmt.Errorf("failed to retrieve render jobs: %w", err)
		}

		if outputJSON {
			encoder := json.NewEncoder(os.Stdout)
			encoder.SetIndent("", "  ")
			return encoder.Encode(jobs)
		}

		if len(jobs) == 0 {
			fmt.Println("No render jobs tracked yet.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
		fmt.Fprintln(w, "JOB\tSTATUS\tPROGRESS\tWARNINGS\tUPDATED")
		for _, job := range jobs {
			fmt.Fprintf(w, "%s\t%s\t%d%%\t%d\t%s\n",
				job.ID,
				colorStatus(job.Status),
				job.Progress,
				len(job.Warnings),
				job.UpdatedAt.Format(time.RFC822),
			)
		}
		return w.Flush()
	},
}

func colorStatus(status core.JobStatus) string {
	switch status {
	case core.JobCompleted:
		return color.GreenString(string(status))
	case core.JobFailed, core.JobTimeout:
		return color.RedString(string(status))
	case core.JobRendering:
		return color.YellowString(string(status))
	default:
		return string(status)
	}
}

func init() { //nolint:gochecknoinits // Cobra's init function for command registration
	jobsCmd.Flags().IntVar(&jobsLimit, "limit", 20, "Maximum number of jobs to list")
	rootCmd.AddCommand(jobsCmd)
}
