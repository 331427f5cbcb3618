package transcoder

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"pool-transcoder/internal/events"
	"pool-transcoder/internal/metrics"
	"pool-transcoder/internal/store"
)

// Reconciler writes terminal job outcomes back to the pool video.
//
// Both paths are guarded on the job id still being recorded on a processing
// row, so a second reconciliation of the same job is a no-op.
type Reconciler struct {
	store   store.VideoStore
	events  events.Publisher
	cache   StatsCache
	metrics *metrics.Recorder
	logger  *zap.Logger
	now     func() time.Time
}

// OnComplete marks the video ready at transcodedURL, replacing its metadata.
func (r *Reconciler) OnComplete(ctx context.Context, job TranscodeJob, transcodedURL string) error {
	at := r.now()
	meta := store.TranscodedReadyMeta(job.OriginalURL, transcodedURL, at)

	err := r.store.CompleteJob(ctx, job.PoolVideoID, job.JobID, transcodedURL, meta)
	if errors.Is(err, store.ErrStale) {
		r.logger.Info("Job already reconciled",
			zap.String("pool_video_id", job.PoolVideoID.String()),
			zap.String("job_id", job.JobID),
		)
		return nil
	}
	if err != nil {
		return fmt.Errorf("record completion of job %s: %w", job.JobID, err)
	}

	r.logger.Info("Pool video transcoded",
		zap.String("pool_video_id", job.PoolVideoID.String()),
		zap.String("job_id", job.JobID),
		zap.String("video_url", transcodedURL),
	)
	r.metrics.Outcome(ctx, "ready")
	r.invalidate(ctx, job.ProjectID)
	r.publish(ctx, events.Event{
		Type:        events.TypeTranscoded,
		PoolVideoID: job.PoolVideoID.String(),
		ProjectID:   job.ProjectID.String(),
		JobID:       job.JobID,
		VideoURL:    transcodedURL,
		OccurredAt:  at,
	})
	return nil
}

// OnFailure marks the video errored, keeping its processing keys.
func (r *Reconciler) OnFailure(ctx context.Context, job TranscodeJob, reason string) error {
	at := r.now()

	err := r.store.FailJob(ctx, job.PoolVideoID, job.JobID, reason, at)
	if errors.Is(err, store.ErrStale) {
		r.logger.Info("Job already reconciled",
			zap.String("pool_video_id", job.PoolVideoID.String()),
			zap.String("job_id", job.JobID),
		)
		return nil
	}
	if err != nil {
		return fmt.Errorf("record failure of job %s: %w", job.JobID, err)
	}

	r.logger.Warn("Pool video transcode failed",
		zap.String("pool_video_id", job.PoolVideoID.String()),
		zap.String("job_id", job.JobID),
		zap.String("reason", reason),
	)
	r.metrics.Outcome(ctx, "error")
	r.invalidate(ctx, job.ProjectID)
	r.publish(ctx, events.Event{
		Type:        events.TypeTranscodeFailed,
		PoolVideoID: job.PoolVideoID.String(),
		ProjectID:   job.ProjectID.String(),
		JobID:       job.JobID,
		Error:       reason,
		OccurredAt:  at,
	})
	return nil
}

func (r *Reconciler) invalidate(ctx context.Context, projectID uuid.UUID) {
	if r.cache == nil {
		return
	}
	if err := r.cache.Invalidate(ctx, projectID); err != nil {
		r.logger.Warn("Failed to invalidate status cache",
			zap.String("project_id", projectID.String()),
			zap.Error(err),
		)
	}
}

// publish is best effort; the database row is the source of truth.
func (r *Reconciler) publish(ctx context.Context, ev events.Event) {
	if r.events == nil {
		return
	}
	if err := r.events.Publish(ctx, ev); err != nil {
		r.logger.Warn("Failed to publish event",
			zap.String("type", ev.Type),
			zap.String("pool_video_id", ev.PoolVideoID),
			zap.Error(err),
		)
	}
}
