package jobs

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/reelforge/hookrelay/internal/core"
	"github.com/reelforge/hookrelay/internal/jobstate"
)

// EntryUpdater is the slice of durable storage the generation job needs to
// move changelog entries through their lifecycle.
type EntryUpdater interface {
	UpdateChangelogStatus(ctx context.Context, jobID string, status core.ChangelogStatus) error
}

// GenerateJob drives the downstream generation pipeline for one trigger
// request and registers the resulting render with the job state store.
type GenerateJob struct {
	generator core.Generator
	jobs      *jobstate.Store
	entries   EntryUpdater
	logger    *slog.Logger
}

// NewGenerateJob creates the job executed by dispatcher workers.
func NewGenerateJob(generator core.Generator, jobs *jobstate.Store, entries EntryUpdater, logger *slog.Logger) *GenerateJob {
	return &GenerateJob{
		generator: generator,
		jobs:      jobs,
		entries:   entries,
		logger:    logger,
	}
}

// Run executes one trigger request. Changelog entries move
// queued -> processing -> done or error; a render id reported by the pipeline
// is tracked so its progress callbacks find a queued job.
func (j *GenerateJob) Run(ctx context.Context, req *core.TriggerRequest) error {
	if req.Entry != nil {
		return j.runChangelog(ctx, req.Entry)
	}
	if req.Command != nil {
		return j.runCommand(ctx, req.Command)
	}
	return fmt.Errorf("trigger request carries neither entry nor command")
}

func (j *GenerateJob) runChangelog(ctx context.Context, entry *core.ChangelogEntry) error {
	j.setStatus(ctx, entry.JobID, core.ChangelogProcessing)

	renderID, err := j.generator.GenerateChangelog(ctx, entry)
	if err != nil {
		j.setStatus(ctx, entry.JobID, core.ChangelogError)
		return fmt.Errorf("changelog generation for %s#%d: %w", entry.RepoFullName, entry.PRNumber, err)
	}

	if renderID != "" {
		j.jobs.Track(ctx, renderID)
		j.logger.Info("tracking render for changelog entry",
			"job_id", entry.JobID, "render_id", renderID)
	}

	j.setStatus(ctx, entry.JobID, core.ChangelogDone)
	return nil
}

func (j *GenerateJob) runCommand(ctx context.Context, cmd *core.TriggerCommand) error {
	renderID, err := j.generator.RunCommand(ctx, cmd)
	if err != nil {
		return fmt.Errorf("command %s: %w", cmd.Kind, err)
	}

	if renderID != "" {
		j.jobs.Track(ctx, renderID)
		j.logger.Info("tracking render for command", "command", cmd.Kind, "render_id", renderID)
	}
	return nil
}

// setStatus updates the entry's durable status best-effort. A failed write is
// logged; generation proceeds on the in-memory entry.
func (j *GenerateJob) setStatus(ctx context.Context, jobID string, status core.ChangelogStatus) {
	if err := j.entries.UpdateChangelogStatus(ctx, jobID, status); err != nil {
		j.logger.Error("failed to update changelog status",
			"job_id", jobID, "status", status, "error", err)
	}
}
