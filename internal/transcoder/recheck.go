package transcoder

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"pool-transcoder/internal/ratelimit"
	"pool-transcoder/internal/store"
	"pool-transcoder/pkg/models"
)

// CheckProcessingVideos polls every processing video's job once and reconciles
// the terminal ones. Videos claimed but never given a job id are failed once
// they are older than the orphan timeout.
func (e *Engine) CheckProcessingVideos(ctx context.Context, projectID *uuid.UUID) models.RecheckSummary {
	var summary models.RecheckSummary

	svc, err := e.connect(ctx)
	if err != nil {
		e.logger.Error("Failed to connect to job service", zap.Error(err))
		summary.Message = msgConnectFailed
		summary.Error = err.Error()
		return summary
	}

	videos, err := e.store.FindProcessing(ctx, projectID)
	if err != nil {
		e.logger.Error("Failed to load processing videos", zap.Error(err))
		summary.Message = "Failed to load processing videos"
		summary.Error = err.Error()
		return summary
	}

	summary.Success = true
	if len(videos) == 0 {
		summary.Message = "No videos in processing"
		return summary
	}

	limiter := ratelimit.New(e.tuning.CallDelay)
	for _, v := range videos {
		if ctx.Err() != nil {
			summary.StillProcessing++
			continue
		}
		m, ok := v.Processing()
		if !ok {
			continue
		}
		if m.JobID == "" {
			if e.recoverOrphan(ctx, v, m) {
				summary.Orphaned++
			} else {
				summary.StillProcessing++
			}
			continue
		}

		job := jobFromVideo(v, m)
		if job.OutputURL == "" {
			_, job.OutputURL = e.layout.Locate(v.ProjectID, sourceName(v))
		}
		summary.Checked++
		job = e.pollJob(ctx, svc, limiter, job)
		switch job.Status {
		case JobSucceeded:
			summary.Completed++
		case JobFailed:
			summary.Failed++
		default:
			summary.StillProcessing++
		}
	}

	summary.Message = fmt.Sprintf("Checked %d videos: %d completed, %d failed, %d still processing",
		summary.Checked, summary.Completed, summary.Failed, summary.StillProcessing)
	if summary.Orphaned > 0 {
		summary.Message += fmt.Sprintf(", %d orphaned", summary.Orphaned)
	}
	e.logger.Info("Recheck finished",
		zap.Int("checked", summary.Checked),
		zap.Int("completed", summary.Completed),
		zap.Int("failed", summary.Failed),
		zap.Int("still_processing", summary.StillProcessing),
		zap.Int("orphaned", summary.Orphaned),
	)
	return summary
}

func (e *Engine) recoverOrphan(ctx context.Context, v store.PoolVideo, m store.ProcessingMeta) bool {
	if e.tuning.OrphanTimeout <= 0 || m.TranscodeStartedAt.IsZero() {
		return false
	}
	if e.now().Sub(m.TranscodeStartedAt) <= e.tuning.OrphanTimeout {
		return false
	}

	log := e.logger.With(
		zap.String("pool_video_id", v.ID.String()),
		zap.String("run_id", m.RunID),
	)
	if err := e.store.FailClaim(ctx, v.ID, m.RunID, msgOrphanedSubmit, e.now()); err != nil {
		log.Warn("Failed to recover orphaned claim", zap.Error(err))
		return false
	}
	log.Warn("Recovered orphaned claim", zap.Time("started_at", m.TranscodeStartedAt))
	e.metrics.Outcome(ctx, "orphaned")
	e.reconciler.invalidate(ctx, v.ProjectID)
	return true
}
