package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"pool-transcoder/pkg/models"
)

var (
	// ErrNotFound is returned when no pool video has the requested id.
	ErrNotFound = errors.New("pool video not found")

	// ErrStale is returned when a guarded transition finds the row no longer in
	// the expected state, e.g. claimed by another run or already reconciled.
	ErrStale = errors.New("pool video changed concurrently")
)

// VideoStore is the persistence contract for pool video transcoding.
// Every mutation addresses one row by id and is conditional on the state the
// caller last observed, so concurrent runs cannot double-process a video.
type VideoStore interface {
	// FindEligible returns up to limit ready, flagged, unassigned videos, oldest first.
	FindEligible(ctx context.Context, projectID *uuid.UUID, limit int) ([]PoolVideo, error)

	// FindProcessing returns every video currently in processing.
	FindProcessing(ctx context.Context, projectID *uuid.UUID) ([]PoolVideo, error)

	// Get returns a single video.
	Get(ctx context.Context, id uuid.UUID) (*PoolVideo, error)

	// Claim moves an eligible ready video to processing for runID, clearing any
	// previous job handle. ErrStale if it is no longer eligible.
	Claim(ctx context.Context, id uuid.UUID, runID string, startedAt time.Time) error

	// AttachJob records the job handle on a video claimed by runID.
	AttachJob(ctx context.Context, id uuid.UUID, runID, jobID, outputURL string) error

	// FailClaim marks a video claimed by runID as errored before any job exists.
	FailClaim(ctx context.Context, id uuid.UUID, runID, reason string, at time.Time) error

	// CompleteJob replaces the record with the transcoded location and ReadyMeta,
	// provided the video is still processing jobID.
	CompleteJob(ctx context.Context, id uuid.UUID, jobID, videoURL string, meta ReadyMeta) error

	// FailJob marks a video processing jobID as errored, keeping prior metadata.
	FailJob(ctx context.Context, id uuid.UUID, jobID, reason string, at time.Time) error

	// CountByStatus summarizes a project's pool.
	CountByStatus(ctx context.Context, projectID uuid.UUID) (models.PoolStats, error)
}
