// Package storage implements the durable tier of the engine on Postgres.
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	// import db drivers
	_ "github.com/lib/pq"

	"github.com/reelforge/hookrelay/internal/core"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("storage: not found")

// Store defines the interface for all database operations.
type Store interface {
	// InsertDelivery appends a ledger row and reports whether the delivery id
	// was new. The insert is a single atomic operation; under concurrent
	// redelivery exactly one caller observes true.
	InsertDelivery(ctx context.Context, d core.Delivery) (bool, error)
	ListRecentDeliveries(ctx context.Context, limit int) ([]core.Delivery, error)

	SaveRenderJob(ctx context.Context, job *core.RenderJob) error
	GetRenderJob(ctx context.Context, id string) (*core.RenderJob, error)
	ListRenderJobs(ctx context.Context, limit int) ([]core.RenderJob, error)

	SaveChangelogEntry(ctx context.Context, entry *core.ChangelogEntry) error
	UpdateChangelogStatus(ctx context.Context, jobID string, status core.ChangelogStatus) error
	GetChangelogEntry(ctx context.Context, jobID string) (*core.ChangelogEntry, error)
}

type postgresStore struct {
	db *sqlx.DB
}

// NewStore creates a new Store backed by Postgres.
func NewStore(db *sqlx.DB) Store {
	return &postgresStore{db: db}
}

func (s *postgresStore) InsertDelivery(ctx context.Context, d core.Delivery) (bool, error) {
	query := `INSERT INTO deliveries (delivery_id, event_type, repository, received_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (delivery_id) DO NOTHING`
	res, err := s.db.ExecContext(ctx, query, d.DeliveryID, d.EventType, d.Repository, d.ReceivedAt)
	if err != nil {
		return false, fmt.Errorf("insert delivery %s: %w", d.DeliveryID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (s *postgresStore) ListRecentDeliveries(ctx context.Context, limit int) ([]core.Delivery, error) {
	query := `SELECT delivery_id, event_type, repository, received_at
		FROM deliveries ORDER BY received_at DESC LIMIT $1`
	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []core.Delivery
	for rows.Next() {
		var d core.Delivery
		if err := rows.Scan(&d.DeliveryID, &d.EventType, &d.Repository, &d.ReceivedAt); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (s *postgresStore) SaveRenderJob(ctx context.Context, job *core.RenderJob) error {
	warnings, err := json.Marshal(job.Warnings)
	if err != nil {
		return fmt.Errorf("marshal warnings for job %s: %w", job.ID, err)
	}

	query := `INSERT INTO render_jobs
			(id, status, progress, output_url, error, warnings, is_finalizing, output_size_bytes, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO UPDATE SET
			status = EXCLUDED.status,
			progress = EXCLUDED.progress,
			output_url = EXCLUDED.output_url,
			error = EXCLUDED.error,
			warnings = EXCLUDED.warnings,
			is_finalizing = EXCLUDED.is_finalizing,
			output_size_bytes = EXCLUDED.output_size_bytes,
			updated_at = EXCLUDED.updated_at`
	_, err = s.db.ExecContext(ctx, query,
		job.ID, job.Status, job.Progress, job.OutputURL, job.Error,
		warnings, job.IsFinalizing, job.OutputSizeBytes, job.UpdatedAt)
	if err != nil {
		return fmt.Errorf("save render job %s: %w", job.ID, err)
	}
	return nil
}

func (s *postgresStore) GetRenderJob(ctx context.Context, id string) (*core.RenderJob, error) {
	query := `SELECT id, status, progress, output_url, error, warnings, is_finalizing, output_size_bytes, updated_at
		FROM render_jobs WHERE id = $1`

	var job core.RenderJob
	var warnings []byte
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&job.ID, &job.Status, &job.Progress, &job.OutputURL, &job.Error,
		&warnings, &job.IsFinalizing, &job.OutputSizeBytes, &job.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if len(warnings) > 0 {
		if err := json.Unmarshal(warnings, &job.Warnings); err != nil {
			return nil, fmt.Errorf("unmarshal warnings for job %s: %w", id, err)
		}
	}
	return &job, nil
}

func (s *postgresStore) ListRenderJobs(ctx context.Context, limit int) ([]core.RenderJob, error) {
	query := `SELECT id, status, progress, output_url, error, warnings, is_finalizing, output_size_bytes, updated_at
		FROM render_jobs ORDER BY updated_at DESC LIMIT $1`
	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []core.RenderJob
	for rows.Next() {
		var job core.RenderJob
		var warnings []byte
		if err := rows.Scan(&job.ID, &job.Status, &job.Progress, &job.OutputURL, &job.Error,
			&warnings, &job.IsFinalizing, &job.OutputSizeBytes, &job.UpdatedAt); err != nil {
			return nil, err
		}
		if len(warnings) > 0 {
			if err := json.Unmarshal(warnings, &job.Warnings); err != nil {
				return nil, err
			}
		}
		out = append(out, job)
	}
	return out, rows.Err()
}

func (s *postgresStore) SaveChangelogEntry(ctx context.Context, entry *core.ChangelogEntry) error {
	stats, err := json.Marshal(entry.Stats)
	if err != nil {
		return fmt.Errorf("marshal stats for entry %s: %w", entry.JobID, err)
	}

	query := `INSERT INTO changelog_entries
			(job_id, pr_number, repo_full_name, title, author, merged_at, status, stats, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (job_id) DO UPDATE SET
			status = EXCLUDED.status,
			stats = EXCLUDED.stats,
			updated_at = EXCLUDED.updated_at`
	_, err = s.db.ExecContext(ctx, query,
		entry.JobID, entry.PRNumber, entry.RepoFullName, entry.Title, entry.Author,
		entry.MergedAt, entry.Status, stats, entry.CreatedAt, entry.UpdatedAt)
	if err != nil {
		return fmt.Errorf("save changelog entry %s: %w", entry.JobID, err)
	}
	return nil
}

func (s *postgresStore) UpdateChangelogStatus(ctx context.Context, jobID string, status core.ChangelogStatus) error {
	query := `UPDATE changelog_entries SET status = $2, updated_at = $3 WHERE job_id = $1`
	res, err := s.db.ExecContext(ctx, query, jobID, status, time.Now())
	if err != nil {
		return fmt.Errorf("update changelog entry %s: %w", jobID, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *postgresStore) GetChangelogEntry(ctx context.Context, jobID string) (*core.ChangelogEntry, error) {
	query := `SELECT job_id, pr_number, repo_full_name, title, author, merged_at, status, stats, created_at, updated_at
		FROM changelog_entries WHERE job_id = $1`

	var entry core.ChangelogEntry
	var stats []byte
	err := s.db.QueryRowContext(ctx, query, jobID).Scan(
		&entry.JobID, &entry.PRNumber, &entry.RepoFullName, &entry.Title, &entry.Author,
		&entry.MergedAt, &entry.Status, &stats, &entry.CreatedAt, &entry.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if len(stats) > 0 {
		if err := json.Unmarshal(stats, &entry.Stats); err != nil {
			return nil, fmt.Errorf("unmarshal stats for entry %s: %w", jobID, err)
		}
	}
	return &entry, nil
}
