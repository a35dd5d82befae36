// Package core defines the essential interfaces and data structures that form the
// backbone of the engine. These components are designed to be abstract,
// allowing for flexible and decoupled implementations of the ingestion logic.
package core

import (
	"context"
	"time"
)

// JobStatus is the lifecycle state of a tracked render job.
type JobStatus string

const (
	JobQueued    JobStatus = "queued"
	JobRendering JobStatus = "rendering"
	JobCompleted JobStatus = "completed"
	JobFailed    JobStatus = "failed"
	JobTimeout   JobStatus = "timeout"
)

// IsTerminal reports whether no further transition is permitted from s.
func (s JobStatus) IsTerminal() bool {
	return s == JobCompleted || s == JobFailed || s == JobTimeout
}

// RenderWarning is a non-fatal issue reported by the render provider,
// accumulated on the job in arrival order.
type RenderWarning struct {
	Type      string `json:"type"`
	Message   string `json:"message"`
	SourceRef string `json:"sourceRef,omitempty"`
}

// RenderJob is the engine's view of one remote render. It is created when a
// render is dispatched and mutated only in response to verified webhook
// events. Once Status is terminal the job is immutable.
type RenderJob struct {
	ID              string
	Status          JobStatus
	Progress        int // 0..100
	OutputURL       string
	Error           string
	Warnings        []RenderWarning
	IsFinalizing    bool
	OutputSizeBytes int64
	UpdatedAt       time.Time
}

// DegradedSuccess reports whether the job completed but carried warnings,
// so downstream consumers can surface a "completed with fallbacks" notice.
func (j *RenderJob) DegradedSuccess() bool {
	return j.Status == JobCompleted && len(j.Warnings) > 0
}

// RenderEventKind classifies a render-provider callback.
type RenderEventKind string

const (
	RenderProgress RenderEventKind = "progress"
	RenderSuccess  RenderEventKind = "success"
	RenderError    RenderEventKind = "error"
	RenderTimeout  RenderEventKind = "timeout"
)

// RenderEvent is the normalized form of a render-provider callback applied to
// a tracked job. Progress is a percentage; a negative value means the event
// did not carry one.
type RenderEvent struct {
	Kind           RenderEventKind
	Progress       int
	EncodedFrames  int
	RenderedFrames int
	OutputURL      string
	Error          string
	SizeBytes      int64
	Warnings       []RenderWarning
}

// ChangelogStatus is the lifecycle state of a changelog generation request.
type ChangelogStatus string

const (
	ChangelogQueued     ChangelogStatus = "queued"
	ChangelogProcessing ChangelogStatus = "processing"
	ChangelogDone       ChangelogStatus = "done"
	ChangelogError      ChangelogStatus = "error"
)

// ChangelogStats summarizes the merged pull request a changelog video covers.
type ChangelogStats struct {
	FilesChanged int `json:"filesChanged"`
	Additions    int `json:"additions"`
	Deletions    int `json:"deletions"`
	Commits      int `json:"commits"`
}

// ChangelogEntry tracks one changelog video generation, keyed by JobID.
type ChangelogEntry struct {
	JobID        string
	PRNumber     int
	RepoFullName string
	Title        string
	Author       string
	MergedAt     time.Time
	Status       ChangelogStatus
	Stats        ChangelogStats
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Delivery is one row of the append-only delivery ledger.
type Delivery struct {
	DeliveryID string
	EventType  string
	Repository string
	ReceivedAt time.Time
}

// TriggerRequest is the unit of work queued for background processing: either
// a merged pull request that should become a changelog video, or a parsed
// manual command from a review-thread comment.
type TriggerRequest struct {
	Entry   *ChangelogEntry
	Command *TriggerCommand
}

// Dispatcher accepts trigger requests and queues them for asynchronous
// processing, decoupling the webhook handlers from job execution. Dispatch
// returns an error when the queue is full, providing backpressure.
type Dispatcher interface {
	Dispatch(ctx context.Context, req *TriggerRequest) error
}

// Job represents a single, executable unit of work that can be processed by
// the dispatcher's worker pool.
type Job interface {
	// Run executes the job's logic for one trigger request. It returns an
	// error if the job fails to complete successfully.
	Run(ctx context.Context, req *TriggerRequest) error
}

// Generator is the downstream generation pipeline. It owns scene assembly and
// video encoding; the engine only triggers it and tracks the render it
// reports back.
type Generator interface {
	// GenerateChangelog starts changelog video generation for a merged PR and
	// returns the render job id the provider will report progress against.
	GenerateChangelog(ctx context.Context, entry *ChangelogEntry) (renderID string, err error)
	// RunCommand executes a manual trigger command (showcase, demo, search,
	// list). A non-empty renderID means the command started a render.
	RunCommand(ctx context.Context, cmd *TriggerCommand) (renderID string, err error)
}
