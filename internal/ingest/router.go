// Package ingest routes verified, deduplicated webhook events to the right
// handler and converts every failure into a typed outcome. Nothing in this
// package returns an error to the transport: webhook senders treat non-2xx
// responses as delivery failures and retry indefinitely.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/go-github/v73/github"
	"github.com/google/uuid"

	"github.com/reelforge/hookrelay/internal/command"
	"github.com/reelforge/hookrelay/internal/core"
	"github.com/reelforge/hookrelay/internal/jobstate"
)

// EntryStore is the slice of durable storage the router needs for changelog
// entries.
type EntryStore interface {
	SaveChangelogEntry(ctx context.Context, entry *core.ChangelogEntry) error
}

// Router dispatches events by type and action. Unknown types and irrelevant
// actions are acknowledged as ignored, never failed.
type Router struct {
	parser     *command.Parser
	jobs       *jobstate.Store
	dispatcher core.Dispatcher
	entries    EntryStore
	logger     *slog.Logger
}

// NewRouter creates an event router.
func NewRouter(parser *command.Parser, jobs *jobstate.Store, dispatcher core.Dispatcher, entries EntryStore, logger *slog.Logger) *Router {
	return &Router{
		parser:     parser,
		jobs:       jobs,
		dispatcher: dispatcher,
		entries:    entries,
		logger:     logger,
	}
}

// RouteGitHub dispatches a parsed GitHub event.
func (rt *Router) RouteGitHub(ctx context.Context, eventType string, event any) core.Outcome {
	switch e := event.(type) {
	case *github.IssueCommentEvent:
		return rt.handleIssueComment(ctx, e)
	case *github.PullRequestEvent:
		return rt.handlePullRequest(ctx, e)
	default:
		return core.Ignored(fmt.Sprintf("event type %q not handled", eventType))
	}
}

// handleIssueComment parses manual trigger commands out of new comments.
// Commands are only actionable on review threads; a command on a bare issue
// is acknowledged without action.
func (rt *Router) handleIssueComment(ctx context.Context, event *github.IssueCommentEvent) core.Outcome {
	if event.GetAction() != "created" {
		return core.Ignored(fmt.Sprintf("comment action %q not handled", event.GetAction()))
	}
	if !event.GetIssue().IsPullRequest() {
		return core.Ignored("comment is not on a review thread")
	}

	cmd := rt.parser.Parse(event.GetComment().GetBody())
	if cmd == nil {
		return core.Ignored("no trigger command in comment")
	}
	cmd.Requester = core.RequesterFromComment(event)

	req := &core.TriggerRequest{Command: cmd}
	if cmd.Kind == core.CommandGenerate {
		now := time.Now()
		entry := &core.ChangelogEntry{
			JobID:        uuid.NewString(),
			PRNumber:     event.GetIssue().GetNumber(),
			RepoFullName: event.GetRepo().GetFullName(),
			Title:        event.GetIssue().GetTitle(),
			Author:       cmd.Requester.DisplayName,
			Status:       core.ChangelogQueued,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		rt.saveEntry(ctx, entry)
		req.Entry = entry
	}

	if err := rt.dispatcher.Dispatch(ctx, req); err != nil {
		rt.logger.Error("failed to dispatch trigger command",
			"command", cmd.Kind, "repo", event.GetRepo().GetFullName(), "error", err)
		return core.ErrorLogged("trigger command could not be queued")
	}

	rt.logger.Info("trigger command dispatched",
		"command", cmd.Kind, "repo", event.GetRepo().GetFullName(),
		"pr", event.GetIssue().GetNumber(), "requester", cmd.Requester.DisplayName)
	return core.OK(fmt.Sprintf("command %s queued", cmd.Kind))
}

// handlePullRequest creates a changelog entry when a pull request is closed
// and merged. Every other transition on the entity is acknowledged without
// action.
func (rt *Router) handlePullRequest(ctx context.Context, event *github.PullRequestEvent) core.Outcome {
	entry, err := core.EntryFromPullRequest(event)
	if err != nil {
		rt.logger.Debug("ignoring pull request event",
			"reason", err.Error(), "repo", event.GetRepo().GetFullName())
		return core.Ignored(err.Error())
	}

	rt.saveEntry(ctx, entry)

	if err := rt.dispatcher.Dispatch(ctx, &core.TriggerRequest{Entry: entry}); err != nil {
		rt.logger.Error("failed to dispatch changelog generation",
			"repo", entry.RepoFullName, "pr", entry.PRNumber, "error", err)
		return core.ErrorLogged("changelog generation could not be queued")
	}

	rt.logger.Info("changelog generation dispatched",
		"repo", entry.RepoFullName, "pr", entry.PRNumber, "job_id", entry.JobID)
	return core.OK(fmt.Sprintf("changelog generation queued for PR #%d", entry.PRNumber))
}

// RouteRender applies a normalized render callback to the tracked job.
func (rt *Router) RouteRender(ctx context.Context, jobID string, ev core.RenderEvent) core.Outcome {
	if jobID == "" {
		return core.Ignored("callback carries no render id")
	}

	job, err := rt.jobs.Apply(ctx, jobID, ev)
	if err != nil {
		if errors.Is(err, jobstate.ErrJobNotFound) {
			rt.logger.Warn("render callback for unknown job", "job_id", jobID, "event", ev.Kind)
			return core.Ignored("acknowledged, job not found")
		}
		rt.logger.Error("failed to apply render event", "job_id", jobID, "event", ev.Kind, "error", err)
		return core.ErrorLogged("render event could not be applied")
	}

	if job.DegradedSuccess() {
		rt.logger.Warn("render completed with fallbacks",
			"job_id", jobID, "warnings", len(job.Warnings))
	}
	return core.OK(fmt.Sprintf("job %s is %s at %d%%", job.ID, job.Status, job.Progress))
}

// saveEntry persists a changelog entry best-effort. Losing the durable row
// does not block generation; the dispatcher carries the entry in memory.
func (rt *Router) saveEntry(ctx context.Context, entry *core.ChangelogEntry) {
	if err := rt.entries.SaveChangelogEntry(ctx, entry); err != nil {
		rt.logger.Error("failed to persist changelog entry",
			"job_id", entry.JobID, "repo", entry.RepoFullName, "error", err)
	}
}
