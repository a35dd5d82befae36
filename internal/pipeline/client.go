// Package pipeline is a thin HTTP trigger for the downstream generation
// service. Scene assembly and encoding live there; this client only starts
// work and reads back the render id.
package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/reelforge/hookrelay/internal/core"
)

// Client implements core.Generator against the pipeline's trigger endpoint.
type Client struct {
	baseURL string
	http    *http.Client
	logger  *slog.Logger
}

// NewClient creates a pipeline client for the given base URL.
func NewClient(baseURL string, logger *slog.Logger) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 30 * time.Second},
		logger:  logger,
	}
}

type triggerRequest struct {
	Kind     string `json:"kind"`
	Repo     string `json:"repo,omitempty"`
	PRNumber int    `json:"prNumber,omitempty"`
	Title    string `json:"title,omitempty"`
	Author   string `json:"author,omitempty"`
	Target   string `json:"target,omitempty"`
	Query    string `json:"query,omitempty"`
}

type triggerResponse struct {
	RenderID string `json:"renderId"`
}

// GenerateChangelog asks the pipeline to build a changelog video for a merged
// pull request and returns the render id it will report progress against.
func (c *Client) GenerateChangelog(ctx context.Context, entry *core.ChangelogEntry) (string, error) {
	return c.trigger(ctx, triggerRequest{
		Kind:     "changelog",
		Repo:     entry.RepoFullName,
		PRNumber: entry.PRNumber,
		Title:    entry.Title,
		Author:   entry.Author,
	})
}

// RunCommand forwards a manual trigger command to the pipeline.
func (c *Client) RunCommand(ctx context.Context, cmd *core.TriggerCommand) (string, error) {
	return c.trigger(ctx, triggerRequest{
		Kind:   string(cmd.Kind),
		Target: cmd.Target,
		Query:  cmd.Query,
	})
}

func (c *Client) trigger(ctx context.Context, tr triggerRequest) (string, error) {
	body, err := json.Marshal(tr)
	if err != nil {
		return "", fmt.Errorf("marshal trigger request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build trigger request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("trigger pipeline: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusAccepted {
		return "", fmt.Errorf("pipeline returned status %d", resp.StatusCode)
	}

	var out triggerResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode pipeline response: %w", err)
	}

	c.logger.Debug("pipeline trigger accepted", "kind", tr.Kind, "render_id", out.RenderID)
	return out.RenderID, nil
}
