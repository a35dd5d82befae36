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

var entryCmd = &cobra.Command{
	Use:   "entry <job-id>",
	Short: "Shows one changelog entry by job id",
	Args:  cobra.ExactArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		ctx := context.Background()

		app, cleanup, err := wire.InitializeApp(ctx)
		if err != nil {
			return fmt.Errorf("failed to initialize app services: %w", err)
		}
		defer cleanup()

		entry, err := app.Store.GetChangelogEntry(ctx, args[0])
		if err != nil {
			return fmt.Errorf("failed to retrieve changelog entry %s: %w", args[0], err)
		}

		if outputJSON {
			encoder := json.NewEncoder(os.Stdout)
			encoder.SetIndent("", "  ")
			return encoder.Encode(entry)
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
		fmt.Fprintf(w, "Job\t%s\n", entry.JobID)
		fmt.Fprintf(w, "Repository\t%s\n", entry.RepoFullName)
		fmt.Fprintf(w, "Pull request\t#%d %s\n", entry.PRNumber, entry.Title)
		fmt.Fprintf(w, "Author\t%s\n", entry.Author)
		fmt.Fprintf(w, "Merged\t%s\n", entry.MergedAt.Format(time.RFC822))
		fmt.Fprintf(w, "Status\t%s\n", colorChangelogStatus(entry.Status))
		fmt.Fprintf(w, "Changes\t%d files, +%d -%d, %d commits\n",
			entry.Stats.FilesChanged, entry.Stats.Additions, entry.Stats.Deletions, entry.Stats.Commits)
		fmt.Fprintf(w, "Updated\t%s\n", entry.UpdatedAt.Format(time.RFC822))
		return w.Flush()
	},
}

func colorChangelogStatus(status core.ChangelogStatus) string {
	switch status {
	case core.ChangelogDone:
		return color.GreenString(string(status))
	case core.ChangelogError:
		return color.RedString(string(status))
	case core.ChangelogProcessing:
		return color.YellowString(string(status))
	default:
		return string(status)
	}
}

func init() { //nolint:gochecknoinits // Cobra's init function for command registration
	rootCmd.AddCommand(entryCmd)
}
