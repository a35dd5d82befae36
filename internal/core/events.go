package core

import (
	"fmt"
	"time"

	"github.com/google/go-github/v73/github"
	"github.com/google/uuid"
)

// EntryFromPullRequest transforms a raw GitHub PullRequestEvent into a
// ChangelogEntry. It acts as an anti-corruption layer: the payload is
// validated before anything downstream sees it, and only a closed-and-merged
// pull request produces an entry.
func EntryFromPullRequest(event *github.PullRequestEvent) (*ChangelogEntry, error) {
	if event.GetAction() != "closed" {
		return nil, fmt.Errorf("action %q is not a merge", event.GetAction())
	}

	pr := event.GetPullRequest()
	if pr == nil {
		return nil, fmt.Errorf("pull request data is missing from the event")
	}
	if !pr.GetMerged() {
		return nil, fmt.Errorf("pull request was closed without merging")
	}

	repo := event.GetRepo()
	if repo == nil || repo.GetFullName() == "" {
		return nil, fmt.Errorf("repository information is missing from the event")
	}

	prNumber := pr.GetNumber()
	if prNumber <= 0 {
		return nil, fmt.Errorf("invalid pull request number: %d", prNumber)
	}

	now := time.Now()
	return &ChangelogEntry{
		JobID:        uuid.NewString(),
		PRNumber:     prNumber,
		RepoFullName: repo.GetFullName(),
		Title:        pr.GetTitle(),
		Author:       pr.GetUser().GetLogin(),
		MergedAt:     pr.GetMergedAt().Time,
		Status:       ChangelogQueued,
		Stats: ChangelogStats{
			FilesChanged: pr.GetChangedFiles(),
			Additions:    pr.GetAdditions(),
			Deletions:    pr.GetDeletions(),
			Commits:      pr.GetCommits(),
		},
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// RequesterFromComment extracts the commenting user from an issue comment
// event. A zero Requester is returned when the payload carries no user.
func RequesterFromComment(event *github.IssueCommentEvent) Requester {
	user := event.GetComment().GetUser()
	if user == nil {
		return Requester{}
	}
	return Requester{
		ID:          user.GetID(),
		DisplayName: user.GetLogin(),
	}
}
