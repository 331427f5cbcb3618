package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"pool-transcoder/internal/store"
	"pool-transcoder/pkg/models"
)

var _ store.VideoStore = (*Store)(nil)

const videoColumns = `id, project_id, user_id, video_url, status, metadata,
		original_filename, format, file_size, height, assigned_to_section_id`

// FindEligible returns up to limit videos awaiting transcoding, oldest first.
func (s *Store) FindEligible(ctx context.Context, projectID *uuid.UUID, limit int) ([]store.PoolVideo, error) {
	if limit <= 0 {
		limit = 1
	}

	args := []interface{}{limit}
	where := []string{
		"status = 'ready'",
		"metadata->>'needsTranscoding' = 'true'",
		"assigned_to_section_id IS NULL",
	}
	if projectID != nil {
		where = append(where, "project_id = $2")
		args = append(args, *projectID)
	}

	query := fmt.Sprintf(`
		SELECT %s
		FROM pool_videos
		WHERE %s
		ORDER BY created_at ASC
		LIMIT $1
	`, videoColumns, strings.Join(where, " AND "))

	videos, err := s.queryVideos(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("find eligible videos: %w", err)
	}
	return videos, nil
}

// FindProcessing returns every video left in processing, oldest update first.
func (s *Store) FindProcessing(ctx context.Context, projectID *uuid.UUID) ([]store.PoolVideo, error) {
	var args []interface{}
	where := "status = 'processing'"
	if projectID != nil {
		where += " AND project_id = $1"
		args = append(args, *projectID)
	}

	query := fmt.Sprintf(`
		SELECT %s
		FROM pool_videos
		WHERE %s
		ORDER BY updated_at ASC
	`, videoColumns, where)

	videos, err := s.queryVideos(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("find processing videos: %w", err)
	}
	return videos, nil
}

func (s *Store) Get(ctx context.Context, id uuid.UUID) (*store.PoolVideo, error) {
	query := fmt.Sprintf(`SELECT %s FROM pool_videos WHERE id = $1`, videoColumns)

	v, err := scanVideo(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("get pool video %s: %w", id, err)
	}
	return &v, nil
}

// Claim moves an eligible video to processing. The WHERE clause repeats the
// eligibility filter so two overlapping runs cannot both claim the row.
func (s *Store) Claim(ctx context.Context, id uuid.UUID, runID string, startedAt time.Time) error {
	return s.execGuarded(ctx, `
		UPDATE pool_videos
		SET status = 'processing',
		    metadata = (COALESCE(metadata, '{}'::jsonb) - 'jobId' - 'outputUrl')
		               || jsonb_build_object('runId', $2::text, 'transcodeStartedAt', $3::text),
		    updated_at = NOW()
		WHERE id = $1
		  AND status = 'ready'
		  AND metadata->>'needsTranscoding' = 'true'
		  AND assigned_to_section_id IS NULL
	`, id, runID, timestamp(startedAt))
}

func (s *Store) AttachJob(ctx context.Context, id uuid.UUID, runID, jobID, outputURL string) error {
	return s.execGuarded(ctx, `
		UPDATE pool_videos
		SET metadata = metadata || jsonb_build_object('jobId', $3::text, 'outputUrl', $4::text),
		    updated_at = NOW()
		WHERE id = $1
		  AND status = 'processing'
		  AND metadata->>'runId' = $2
	`, id, runID, jobID, outputURL)
}

func (s *Store) FailClaim(ctx context.Context, id uuid.UUID, runID, reason string, at time.Time) error {
	return s.execGuarded(ctx, `
		UPDATE pool_videos
		SET status = 'error',
		    metadata = metadata || jsonb_build_object('transcodeError', $3::text, 'transcodeFailedAt', $4::text),
		    updated_at = NOW()
		WHERE id = $1
		  AND status = 'processing'
		  AND COALESCE(metadata->>'runId', '') = $2
	`, id, runID, reason, timestamp(at))
}

// CompleteJob overwrites metadata entirely; keys from the processing phase are dropped.
func (s *Store) CompleteJob(ctx context.Context, id uuid.UUID, jobID, videoURL string, meta store.ReadyMeta) error {
	raw, err := store.EncodeMetadata(meta)
	if err != nil {
		return fmt.Errorf("encode ready metadata: %w", err)
	}
	return s.execGuarded(ctx, `
		UPDATE pool_videos
		SET video_url = $3,
		    status = 'ready',
		    metadata = $4::jsonb,
		    updated_at = NOW()
		WHERE id = $1
		  AND status = 'processing'
		  AND metadata->>'jobId' = $2
	`, id, jobID, videoURL, string(raw))
}

// FailJob merges the failure into the existing metadata.
func (s *Store) FailJob(ctx context.Context, id uuid.UUID, jobID, reason string, at time.Time) error {
	return s.execGuarded(ctx, `
		UPDATE pool_videos
		SET status = 'error',
		    metadata = metadata || jsonb_build_object('transcodeError', $3::text, 'transcodeFailedAt', $4::text),
		    updated_at = NOW()
		WHERE id = $1
		  AND status = 'processing'
		  AND metadata->>'jobId' = $2
	`, id, jobID, reason, timestamp(at))
}

func (s *Store) CountByStatus(ctx context.Context, projectID uuid.UUID) (models.PoolStats, error) {
	var stats models.PoolStats
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*),
		       COUNT(*) FILTER (WHERE status = 'ready'),
		       COUNT(*) FILTER (WHERE status = 'processing'),
		       COUNT(*) FILTER (WHERE status = 'error'),
		       COUNT(*) FILTER (WHERE metadata->>'needsTranscoding' = 'true')
		FROM pool_videos
		WHERE project_id = $1
	`, projectID).Scan(&stats.Total, &stats.Ready, &stats.Processing, &stats.Error, &stats.NeedsTranscoding)
	if err != nil {
		return models.PoolStats{}, fmt.Errorf("count pool videos for project %s: %w", projectID, err)
	}
	return stats, nil
}

// execGuarded runs a conditional single-row update; no affected row means the guard failed.
func (s *Store) execGuarded(ctx context.Context, query string, args ...interface{}) error {
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update pool video: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update pool video: %w", err)
	}
	if n == 0 {
		return store.ErrStale
	}
	return nil
}

func (s *Store) queryVideos(ctx context.Context, query string, args ...interface{}) ([]store.PoolVideo, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var videos []store.PoolVideo
	for rows.Next() {
		v, err := scanVideo(rows)
		if err != nil {
			return nil, err
		}
		videos = append(videos, v)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return videos, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanVideo(row rowScanner) (store.PoolVideo, error) {
	var (
		v        store.PoolVideo
		status   string
		meta     []byte
		assigned uuid.NullUUID
	)
	if err := row.Scan(
		&v.ID,
		&v.ProjectID,
		&v.UserID,
		&v.VideoURL,
		&status,
		&meta,
		&v.OriginalFilename,
		&v.Format,
		&v.FileSize,
		&v.Height,
		&assigned,
	); err != nil {
		return v, err
	}

	st, err := store.ParseStatus(status)
	if err != nil {
		return v, err
	}
	v.Status = st
	if v.Meta, err = store.DecodeMetadata(st, meta); err != nil {
		return v, fmt.Errorf("pool video %s: %w", v.ID, err)
	}
	if assigned.Valid {
		id := assigned.UUID
		v.AssignedToSectionID = &id
	}
	return v, nil
}

func timestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}
